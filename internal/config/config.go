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

// Package config reads the service's runtime knobs from the environment.
// Every knob has a safe default and a clamped range; a malformed value
// falls back to the default rather than failing startup.
package config

import (
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// Clamp ranges for the rate knobs.
const (
	tickHzMin = 5
	tickHzMax = 60
	hzMin     = 1
	hzMax     = 60

	economyCacheMinMS = 500
	economyCacheMaxMS = 10000
)

// Config is the resolved runtime configuration.
type Config struct {
	TickHz          int
	SpectatorHz     int
	PlayerHz        int
	EnableBroadcast bool
	DebugTPS        bool

	GridW            int
	GridH            int
	FoodCount        int
	MaxSnakesPerUser int

	BindHost    string
	BindPort    int
	MetricsAddr string

	EconomyCacheMS int

	ChunkSize       int
	AOIRadius       int
	SingleChunkMode bool
	AOIEnabled      bool
}

// FromEnv resolves the configuration. TICK_HZ falls back to the legacy
// SNAKE_TICK_MS (a period in milliseconds) when unset, and DEBUG_TPS to
// the legacy LOG_HZ flag.
func FromEnv() Config {
	cfg := Config{
		TickHz:           10,
		SpectatorHz:      10,
		PlayerHz:         10,
		EnableBroadcast:  true,
		GridW:            40,
		GridH:            20,
		FoodCount:        1,
		MaxSnakesPerUser: 3,
		BindHost:         "127.0.0.1",
		BindPort:         8080,
		EconomyCacheMS:   2000,
		ChunkSize:        64,
		AOIRadius:        1,
		SingleChunkMode:  true,
	}

	cfg.TickHz = clampInt(getenvInt("TICK_HZ", cfg.TickHz), tickHzMin, tickHzMax)
	cfg.SpectatorHz = clampInt(getenvInt("SPECTATOR_HZ", cfg.SpectatorHz), hzMin, hzMax)
	cfg.PlayerHz = clampInt(getenvInt("PLAYER_HZ", cfg.PlayerHz), hzMin, hzMax)
	cfg.EnableBroadcast = getenvBool("ENABLE_BROADCAST", cfg.EnableBroadcast)
	cfg.DebugTPS = getenvBool("DEBUG_TPS", cfg.DebugTPS)
	if !hasEnv("DEBUG_TPS") {
		// Older deployments used LOG_HZ for the same flag.
		cfg.DebugTPS = getenvBool("LOG_HZ", cfg.DebugTPS)
	}
	if !hasEnv("TICK_HZ") {
		if legacyMS := getenvInt("SNAKE_TICK_MS", -1); legacyMS > 0 {
			hz := int(math.Round(1000.0 / float64(legacyMS)))
			cfg.TickHz = clampInt(hz, tickHzMin, tickHzMax)
		}
	}

	cfg.GridW = maxInt(10, getenvInt("SNAKE_W", cfg.GridW))
	cfg.GridH = maxInt(10, getenvInt("SNAKE_H", cfg.GridH))
	cfg.MaxSnakesPerUser = maxInt(1, getenvInt("SNAKE_MAX_PER_USER", cfg.MaxSnakesPerUser))

	if v := os.Getenv("SERVER_BIND_HOST"); v != "" {
		cfg.BindHost = v
	}
	cfg.BindPort = maxInt(1, getenvInt("SERVER_BIND_PORT", cfg.BindPort))
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	cfg.EconomyCacheMS = clampInt(getenvInt("ECONOMY_CACHE_MS", cfg.EconomyCacheMS),
		economyCacheMinMS, economyCacheMaxMS)

	cfg.ChunkSize = maxInt(8, getenvInt("CHUNK_SIZE", cfg.ChunkSize))
	cfg.AOIRadius = maxInt(0, getenvInt("AOI_RADIUS", cfg.AOIRadius))
	cfg.SingleChunkMode = getenvBool("SINGLE_CHUNK_MODE", cfg.SingleChunkMode)
	cfg.AOIEnabled = getenvBool("AOI_ENABLED", cfg.AOIEnabled)

	return cfg
}

// TickInterval is the tick period, never below 1ms.
func (c Config) TickInterval() time.Duration {
	return hzInterval(c.TickHz)
}

// SpectatorInterval is the broadcast period, never below 1ms.
func (c Config) SpectatorInterval() time.Duration {
	return hzInterval(c.SpectatorHz)
}

// EconomyCacheTTL is the economy cache TTL as a duration.
func (c Config) EconomyCacheTTL() time.Duration {
	return time.Duration(c.EconomyCacheMS) * time.Millisecond
}

func hzInterval(hz int) time.Duration {
	ms := int(math.Round(1000.0 / float64(hz)))
	if ms < 1 {
		ms = 1
	}
	return time.Duration(ms) * time.Millisecond
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if b > a {
		return b
	}
	return a
}

func hasEnv(name string) bool {
	return os.Getenv(name) != ""
}

func getenvInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvBool(name string, def bool) bool {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}
