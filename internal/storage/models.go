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

// Package storage defines the persistence contract of the snake world:
// typed records for the seven logical tables, the Store interface the rest
// of the service programs against, and interchangeable backends (Redis for
// production, an ordered in-memory map for tests and local development).
package storage

// UserRecord is a row in the users table. Balances mutate only through the
// atomic IncrementUserBalance operation.
type UserRecord struct {
	UserID       string
	Username     string
	PasswordHash string
	BalanceMi    int64
	CreatedAt    int64
}

// SnakeRecord is a snake checkpoint row. Body cells are stored compactly
// as a "[[x,y],...]" JSON string, head first. Per-tick movement is
// deliberately not persisted; rows are upserted only when gameplay events
// or direction/pause changes mark the snake dirty.
//
// IsOnField is set on every upsert and never cleared; economy aggregation
// counts LengthK only for rows with Alive and IsOnField both set.
type SnakeRecord struct {
	SnakeID     string
	OwnerUserID string
	Alive       bool
	HeadX       int
	HeadY       int
	Direction   int
	Paused      bool
	LengthK     int
	Score       int
	BodyCompact string
	Color       string
	IsOnField   bool
	LastEventID string
	CreatedAt   int64
	UpdatedAt   int64
}

// WorldChunkRecord is the persisted world row. The single-authority world
// writes one row with ChunkID "main"; FoodState uses the same compact
// "[[x,y],...]" encoding as snake bodies.
type WorldChunkRecord struct {
	ChunkID   string
	Width     int
	Height    int
	Obstacles string
	FoodState string
	Version   int64
	UpdatedAt int64
}

// SnakeEventRecord is one row of the append-only gameplay event log.
// EventID is "{created_at}#{tick}#{event_type}#{ordinal}" where ordinal is
// the event's position in the tick's pending list. Events are never
// mutated after append.
type SnakeEventRecord struct {
	SnakeID      string
	EventID      string
	EventType    string
	X            int
	Y            int
	OtherSnakeID string
	DeltaLength  int
	TickNumber   uint64
	WorldVersion int64
	CreatedAt    int64
}

// SettingsRecord is a free-form settings row; the service uses a single
// row with SettingsID "global".
type SettingsRecord struct {
	SettingsID string
	Payload    string
	UpdatedAt  int64
}

// EconomyParamsRecord is the economy policy. The active row is overwritten
// on each write after appending a "ver#N" history row; Version is strictly
// monotone across writes.
type EconomyParamsRecord struct {
	Version       int
	KLand         int
	AProductivity float64
	VVelocity     float64
	MGovReserve   int64
	CapDeltaM     int64
	DeltaMIssue   int64
	DeltaKObs     int64
	UpdatedAt     int64
	UpdatedBy     string
}

// DefaultEconomyParams returns the bootstrap policy used when no active
// row exists yet.
func DefaultEconomyParams() EconomyParamsRecord {
	return EconomyParamsRecord{
		Version:       1,
		KLand:         24,
		AProductivity: 1.0,
		VVelocity:     2.0,
		MGovReserve:   400,
		CapDeltaM:     5000,
	}
}

// EconomyPeriodRecord accumulates purchases for one YYYYMMDDHH (UTC)
// window. DeltaMBuy mutates only through the atomic increment; the
// Computed* fields hold the last persisted macro aggregates (P and pi are
// stored as micro-units, value * 1e6).
type EconomyPeriodRecord struct {
	PeriodKey         string
	DeltaMBuy         int64
	ComputedM         int64
	ComputedK         int64
	ComputedY         int64
	ComputedPMicro    int64
	ComputedPiMicro   int64
	ComputedWorldArea int64
	ComputedWhite     int64
	ComputedAt        int64
}
