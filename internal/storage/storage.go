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

package storage

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// ErrNotFound is returned by point lookups when the row does not exist.
var ErrNotFound = errors.New("storage: not found")

// Store is the capability set the service needs from the backing store.
// It is a keyed get/put/delete/scan surface over seven logical tables plus
// two atomic counter operations. Implementations are interchangeable;
// tests use the in-memory backend.
type Store interface {
	ListUsers(ctx context.Context) ([]UserRecord, error)
	GetUserByUsername(ctx context.Context, username string) (*UserRecord, error)
	GetUserByID(ctx context.Context, userID string) (*UserRecord, error)
	PutUser(ctx context.Context, u UserRecord) error
	// IncrementUserBalance atomically adds delta to the user's balance.
	IncrementUserBalance(ctx context.Context, userID string, delta int64) error

	ListSnakes(ctx context.Context) ([]SnakeRecord, error)
	GetSnake(ctx context.Context, snakeID string) (*SnakeRecord, error)
	PutSnake(ctx context.Context, s SnakeRecord) error
	DeleteSnake(ctx context.Context, snakeID string) error

	GetWorldChunk(ctx context.Context, chunkID string) (*WorldChunkRecord, error)
	PutWorldChunk(ctx context.Context, chunk WorldChunkRecord) error

	AppendSnakeEvent(ctx context.Context, e SnakeEventRecord) error

	GetSettings(ctx context.Context, settingsID string) (*SettingsRecord, error)
	PutSettings(ctx context.Context, s SettingsRecord) error

	GetEconomyParamsActive(ctx context.Context) (*EconomyParamsRecord, error)
	// PutEconomyParamsActiveAndVersioned appends a "ver#N" history row and
	// then overwrites the active row. The written version is strictly
	// greater than the current active version.
	PutEconomyParamsActiveAndVersioned(ctx context.Context, p EconomyParamsRecord, updatedBy string) error
	GetEconomyPeriod(ctx context.Context, periodKey string) (*EconomyPeriodRecord, error)
	PutEconomyPeriod(ctx context.Context, p EconomyPeriodRecord) error
	// IncrementEconomyPeriodDeltaMBuy atomically adds delta to the period's
	// purchase counter, creating the row if needed.
	IncrementEconomyPeriodDeltaMBuy(ctx context.Context, periodKey string, delta int64) error

	HealthCheck(ctx context.Context) error
	// ResetForDev wipes all seven tables. Development tooling only.
	ResetForDev(ctx context.Context) error
}

// TableNames holds the seven logical table names. With the Redis backend
// they become key prefixes.
type TableNames struct {
	Users         string
	Snakes        string
	WorldChunks   string
	SnakeEvents   string
	Settings      string
	EconomyParams string
	EconomyPeriod string
}

// Config selects and configures a backend.
type Config struct {
	Backend   string // "redis" (default) or "memory"
	RedisAddr string
	Tables    TableNames
}

// ConfigFromEnv builds a Config from the environment. The seven TABLE_*
// names and REDIS_ADDR are required for the Redis backend; the memory
// backend needs nothing.
func ConfigFromEnv() (Config, error) {
	cfg := Config{Backend: os.Getenv("STORAGE_BACKEND")}
	if cfg.Backend == "" {
		cfg.Backend = "redis"
	}
	if cfg.Backend == "memory" {
		return cfg, nil
	}
	if cfg.Backend != "redis" {
		return Config{}, fmt.Errorf("storage: unknown backend %q", cfg.Backend)
	}

	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	if cfg.RedisAddr == "" {
		return Config{}, errors.New("storage: REDIS_ADDR is required")
	}

	required := []struct {
		env  string
		dest *string
	}{
		{"TABLE_USERS", &cfg.Tables.Users},
		{"TABLE_SNAKES", &cfg.Tables.Snakes},
		{"TABLE_WORLD_CHUNKS", &cfg.Tables.WorldChunks},
		{"TABLE_SNAKE_EVENTS", &cfg.Tables.SnakeEvents},
		{"TABLE_SETTINGS", &cfg.Tables.Settings},
		{"TABLE_ECONOMY_PARAMS", &cfg.Tables.EconomyParams},
		{"TABLE_ECONOMY_PERIOD", &cfg.Tables.EconomyPeriod},
	}
	for _, r := range required {
		v := os.Getenv(r.env)
		if v == "" {
			return Config{}, fmt.Errorf("storage: %s is required", r.env)
		}
		*r.dest = v
	}
	return cfg, nil
}

// versionedParamsKey names the append-only economy params history rows.
func versionedParamsKey(version int) string {
	return fmt.Sprintf("ver#%d", version)
}

// Open constructs the configured backend.
func Open(cfg Config, logger *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(cfg.RedisAddr, cfg.Tables, logger), nil
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Backend)
	}
}
