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
	"sort"
	"sync"
)

// MemoryStore is an in-process Store backed by ordered maps. It exists for
// tests and dependency-free local runs; list operations return rows in key
// order so behavior is deterministic.
type MemoryStore struct {
	mu sync.Mutex

	users         map[string]UserRecord
	snakes        map[string]SnakeRecord
	worldChunks   map[string]WorldChunkRecord
	snakeEvents   []SnakeEventRecord
	settings      map[string]SettingsRecord
	economyParams map[string]EconomyParamsRecord // "active" and "ver#N" rows
	economyPeriod map[string]EconomyPeriodRecord
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	s.resetLocked()
	return s
}

func (s *MemoryStore) resetLocked() {
	s.users = make(map[string]UserRecord)
	s.snakes = make(map[string]SnakeRecord)
	s.worldChunks = make(map[string]WorldChunkRecord)
	s.snakeEvents = nil
	s.settings = make(map[string]SettingsRecord)
	s.economyParams = make(map[string]EconomyParamsRecord)
	s.economyPeriod = make(map[string]EconomyPeriodRecord)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *MemoryStore) ListUsers(context.Context) ([]UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]UserRecord, 0, len(s.users))
	for _, k := range sortedKeys(s.users) {
		out = append(out, s.users[k])
	}
	return out, nil
}

func (s *MemoryStore) GetUserByUsername(_ context.Context, username string) (*UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range sortedKeys(s.users) {
		if s.users[k].Username == username {
			u := s.users[k]
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) GetUserByID(_ context.Context, userID string) (*UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) PutUser(_ context.Context, u UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.UserID] = u
	return nil
}

func (s *MemoryStore) IncrementUserBalance(_ context.Context, userID string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[userID]
	u.UserID = userID
	u.BalanceMi += delta
	s.users[userID] = u
	return nil
}

func (s *MemoryStore) ListSnakes(context.Context) ([]SnakeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SnakeRecord, 0, len(s.snakes))
	for _, k := range sortedKeys(s.snakes) {
		out = append(out, s.snakes[k])
	}
	return out, nil
}

func (s *MemoryStore) GetSnake(_ context.Context, snakeID string) (*SnakeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.snakes[snakeID]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (s *MemoryStore) PutSnake(_ context.Context, r SnakeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snakes[r.SnakeID] = r
	return nil
}

func (s *MemoryStore) DeleteSnake(_ context.Context, snakeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snakes, snakeID)
	return nil
}

func (s *MemoryStore) GetWorldChunk(_ context.Context, chunkID string) (*WorldChunkRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.worldChunks[chunkID]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *MemoryStore) PutWorldChunk(_ context.Context, chunk WorldChunkRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.worldChunks[chunk.ChunkID] = chunk
	return nil
}

func (s *MemoryStore) AppendSnakeEvent(_ context.Context, e SnakeEventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snakeEvents = append(s.snakeEvents, e)
	return nil
}

// SnakeEvents returns the appended event log. Test helper.
func (s *MemoryStore) SnakeEvents() []SnakeEventRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SnakeEventRecord, len(s.snakeEvents))
	copy(out, s.snakeEvents)
	return out
}

func (s *MemoryStore) GetSettings(_ context.Context, settingsID string) (*SettingsRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.settings[settingsID]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (s *MemoryStore) PutSettings(_ context.Context, r SettingsRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[r.SettingsID] = r
	return nil
}

func (s *MemoryStore) GetEconomyParamsActive(context.Context) (*EconomyParamsRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.economyParams["active"]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) PutEconomyParamsActiveAndVersioned(_ context.Context, p EconomyParamsRecord, updatedBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := p.Version
	if active, ok := s.economyParams["active"]; ok && next <= active.Version {
		next = active.Version + 1
	}
	p.Version = next
	p.UpdatedBy = updatedBy
	s.economyParams[versionedParamsKey(next)] = p
	s.economyParams["active"] = p
	return nil
}

func (s *MemoryStore) GetEconomyPeriod(_ context.Context, periodKey string) (*EconomyPeriodRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.economyPeriod[periodKey]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) PutEconomyPeriod(_ context.Context, p EconomyPeriodRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.economyPeriod[p.PeriodKey] = p
	return nil
}

func (s *MemoryStore) IncrementEconomyPeriodDeltaMBuy(_ context.Context, periodKey string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.economyPeriod[periodKey]
	p.PeriodKey = periodKey
	p.DeltaMBuy += delta
	s.economyPeriod[periodKey] = p
	return nil
}

func (s *MemoryStore) HealthCheck(context.Context) error {
	return nil
}

func (s *MemoryStore) ResetForDev(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	return nil
}
