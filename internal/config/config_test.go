// Copyright 2026 Esteban Alvarez. All Rights Reserved.
//
// Created: August 2026
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"testing"
	"time"
)

// clearEnv blanks every knob FromEnv reads so the process environment
// cannot leak into the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"TICK_HZ", "SPECTATOR_HZ", "PLAYER_HZ", "ENABLE_BROADCAST",
		"DEBUG_TPS", "LOG_HZ", "SNAKE_TICK_MS", "SNAKE_W", "SNAKE_H",
		"SNAKE_MAX_PER_USER", "SERVER_BIND_HOST", "SERVER_BIND_PORT",
		"METRICS_ADDR", "ECONOMY_CACHE_MS", "CHUNK_SIZE", "AOI_RADIUS",
		"SINGLE_CHUNK_MODE", "AOI_ENABLED",
	} {
		t.Setenv(name, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)
	cfg := FromEnv()

	if cfg.TickHz != 10 || cfg.SpectatorHz != 10 || cfg.PlayerHz != 10 {
		t.Errorf("rates = %d/%d/%d, want 10/10/10", cfg.TickHz, cfg.SpectatorHz, cfg.PlayerHz)
	}
	if !cfg.EnableBroadcast || cfg.DebugTPS {
		t.Errorf("broadcast=%v debug=%v", cfg.EnableBroadcast, cfg.DebugTPS)
	}
	if cfg.GridW != 40 || cfg.GridH != 20 || cfg.FoodCount != 1 || cfg.MaxSnakesPerUser != 3 {
		t.Errorf("world = %dx%d food=%d max=%d", cfg.GridW, cfg.GridH, cfg.FoodCount, cfg.MaxSnakesPerUser)
	}
	if cfg.BindHost != "127.0.0.1" || cfg.BindPort != 8080 {
		t.Errorf("bind = %s:%d", cfg.BindHost, cfg.BindPort)
	}
	if cfg.EconomyCacheMS != 2000 {
		t.Errorf("economy cache = %d", cfg.EconomyCacheMS)
	}
	if !cfg.SingleChunkMode || cfg.AOIEnabled {
		t.Errorf("chunking defaults: single=%v aoi=%v", cfg.SingleChunkMode, cfg.AOIEnabled)
	}
	if cfg.TickInterval() != 100*time.Millisecond {
		t.Errorf("tick interval = %v", cfg.TickInterval())
	}
	if cfg.EconomyCacheTTL() != 2*time.Second {
		t.Errorf("economy TTL = %v", cfg.EconomyCacheTTL())
	}
}

func TestFromEnvClamps(t *testing.T) {
	clearEnv(t)
	t.Setenv("TICK_HZ", "200")
	t.Setenv("SPECTATOR_HZ", "0")
	t.Setenv("PLAYER_HZ", "-4")
	t.Setenv("SNAKE_W", "3")
	t.Setenv("SNAKE_H", "5")
	t.Setenv("SNAKE_MAX_PER_USER", "0")
	t.Setenv("ECONOMY_CACHE_MS", "50")

	cfg := FromEnv()
	if cfg.TickHz != 60 {
		t.Errorf("tick hz = %d, want clamped 60", cfg.TickHz)
	}
	if cfg.SpectatorHz != 1 || cfg.PlayerHz != 1 {
		t.Errorf("hz floors: %d/%d, want 1/1", cfg.SpectatorHz, cfg.PlayerHz)
	}
	if cfg.GridW != 10 || cfg.GridH != 10 {
		t.Errorf("grid = %dx%d, want 10x10 minimum", cfg.GridW, cfg.GridH)
	}
	if cfg.MaxSnakesPerUser != 1 {
		t.Errorf("max per user = %d, want 1", cfg.MaxSnakesPerUser)
	}
	if cfg.EconomyCacheMS != 500 {
		t.Errorf("economy cache = %d, want 500", cfg.EconomyCacheMS)
	}
}

func TestFromEnvLegacyTickMS(t *testing.T) {
	clearEnv(t)
	t.Setenv("SNAKE_TICK_MS", "50")
	if cfg := FromEnv(); cfg.TickHz != 20 {
		t.Errorf("tick hz = %d, want 20 from 50ms period", cfg.TickHz)
	}

	// An explicit TICK_HZ wins over the legacy knob.
	t.Setenv("TICK_HZ", "15")
	if cfg := FromEnv(); cfg.TickHz != 15 {
		t.Errorf("tick hz = %d, want explicit 15", cfg.TickHz)
	}
}

func TestFromEnvLegacyLogHz(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_HZ", "true")
	if cfg := FromEnv(); !cfg.DebugTPS {
		t.Errorf("LOG_HZ must enable the TPS debug log")
	}

	t.Setenv("DEBUG_TPS", "off")
	if cfg := FromEnv(); cfg.DebugTPS {
		t.Errorf("explicit DEBUG_TPS must win over LOG_HZ")
	}
}

func TestFromEnvMalformedFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("TICK_HZ", "fast")
	t.Setenv("ENABLE_BROADCAST", "maybe")
	cfg := FromEnv()
	if cfg.TickHz != 10 {
		t.Errorf("malformed TICK_HZ should keep the default, got %d", cfg.TickHz)
	}
	if !cfg.EnableBroadcast {
		t.Errorf("malformed bool should keep the default")
	}
}
