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
	"sort"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Counter updates retry up to 3 times with linear backoff inside the
// adapter; everything else is single-shot.
const (
	counterRetryAttempts = 3
	counterRetryBackoff  = 50 * time.Millisecond
)

// RedisStore maps the seven logical tables onto Redis. Each row is a hash
// at "<table>:<id>"; a set at "<table>" indexes row ids for scans. The two
// atomic counters use HINCRBY, which gives the conditional-update-free
// increment semantics the core needs.
type RedisStore struct {
	client *redis.Client
	tables TableNames
	log    *zap.Logger
}

// NewRedisStore wraps a go-redis client for the given address and table
// names.
func NewRedisStore(addr string, tables TableNames, logger *zap.Logger) *RedisStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		tables: tables,
		log:    logger,
	}
}

func (s *RedisStore) rowKey(table, id string) string {
	return table + ":" + id
}

// row is a parsed hash with typed field accessors. Missing fields decode
// to zero values, matching wide-column reads of partially written rows.
type row map[string]string

func (r row) str(field string) string { return r[field] }

func (r row) int(field string) int {
	v, _ := strconv.Atoi(r[field])
	return v
}

func (r row) int64(field string) int64 {
	v, _ := strconv.ParseInt(r[field], 10, 64)
	return v
}

func (r row) uint64(field string) uint64 {
	v, _ := strconv.ParseUint(r[field], 10, 64)
	return v
}

func (r row) float(field string) float64 {
	v, _ := strconv.ParseFloat(r[field], 64)
	return v
}

func (r row) bool(field string) bool {
	return r[field] == "1" || r[field] == "true"
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (s *RedisStore) getRow(ctx context.Context, table, id string) (row, error) {
	m, err := s.client.HGetAll(ctx, s.rowKey(table, id)).Result()
	if err != nil {
		return nil, fmt.Errorf("storage: redis HGETALL %s: %w", table, err)
	}
	if len(m) == 0 {
		return nil, ErrNotFound
	}
	return row(m), nil
}

func (s *RedisStore) putRow(ctx context.Context, table, id string, fields map[string]interface{}) error {
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, table, id)
	pipe.HSet(ctx, s.rowKey(table, id), fields)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("storage: redis put %s: %w", table, err)
	}
	return nil
}

func (s *RedisStore) scanRows(ctx context.Context, table string) ([]row, error) {
	ids, err := s.client.SMembers(ctx, table).Result()
	if err != nil {
		return nil, fmt.Errorf("storage: redis SMEMBERS %s: %w", table, err)
	}
	sort.Strings(ids)
	out := make([]row, 0, len(ids))
	for _, id := range ids {
		r, err := s.getRow(ctx, table, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// withRetry runs a counter update with the adapter's linear backoff
// policy (50ms * attempt between attempts).
func (s *RedisStore) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= counterRetryAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == counterRetryAttempts {
			break
		}
		s.log.Warn("storage: counter update failed, retrying",
			zap.String("op", op), zap.Int("attempt", attempt), zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * counterRetryBackoff):
		}
	}
	return err
}

func userFromRow(r row) UserRecord {
	return UserRecord{
		UserID:       r.str("user_id"),
		Username:     r.str("username"),
		PasswordHash: r.str("password_hash"),
		BalanceMi:    r.int64("balance_mi"),
		CreatedAt:    r.int64("created_at"),
	}
}

func (s *RedisStore) ListUsers(ctx context.Context) ([]UserRecord, error) {
	rows, err := s.scanRows(ctx, s.tables.Users)
	if err != nil {
		return nil, err
	}
	out := make([]UserRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, userFromRow(r))
	}
	return out, nil
}

func (s *RedisStore) GetUserByUsername(ctx context.Context, username string) (*UserRecord, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Username == username {
			return &users[i], nil
		}
	}
	return nil, ErrNotFound
}

func (s *RedisStore) GetUserByID(ctx context.Context, userID string) (*UserRecord, error) {
	r, err := s.getRow(ctx, s.tables.Users, userID)
	if err != nil {
		return nil, err
	}
	u := userFromRow(r)
	return &u, nil
}

func (s *RedisStore) PutUser(ctx context.Context, u UserRecord) error {
	return s.putRow(ctx, s.tables.Users, u.UserID, map[string]interface{}{
		"user_id":       u.UserID,
		"username":      u.Username,
		"password_hash": u.PasswordHash,
		"balance_mi":    u.BalanceMi,
		"created_at":    u.CreatedAt,
	})
}

func (s *RedisStore) IncrementUserBalance(ctx context.Context, userID string, delta int64) error {
	return s.withRetry(ctx, "increment_user_balance", func() error {
		return s.client.HIncrBy(ctx, s.rowKey(s.tables.Users, userID), "balance_mi", delta).Err()
	})
}

func snakeFromRow(r row) SnakeRecord {
	return SnakeRecord{
		SnakeID:     r.str("snake_id"),
		OwnerUserID: r.str("owner_user_id"),
		Alive:       r.bool("alive"),
		HeadX:       r.int("head_x"),
		HeadY:       r.int("head_y"),
		Direction:   r.int("direction"),
		Paused:      r.bool("paused"),
		LengthK:     r.int("length_k"),
		Score:       r.int("score"),
		BodyCompact: r.str("body_compact"),
		Color:       r.str("color"),
		IsOnField:   r.bool("is_on_field"),
		LastEventID: r.str("last_event_id"),
		CreatedAt:   r.int64("created_at"),
		UpdatedAt:   r.int64("updated_at"),
	}
}

func (s *RedisStore) ListSnakes(ctx context.Context) ([]SnakeRecord, error) {
	rows, err := s.scanRows(ctx, s.tables.Snakes)
	if err != nil {
		return nil, err
	}
	out := make([]SnakeRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, snakeFromRow(r))
	}
	return out, nil
}

func (s *RedisStore) GetSnake(ctx context.Context, snakeID string) (*SnakeRecord, error) {
	r, err := s.getRow(ctx, s.tables.Snakes, snakeID)
	if err != nil {
		return nil, err
	}
	sn := snakeFromRow(r)
	return &sn, nil
}

func (s *RedisStore) PutSnake(ctx context.Context, sn SnakeRecord) error {
	return s.putRow(ctx, s.tables.Snakes, sn.SnakeID, map[string]interface{}{
		"snake_id":      sn.SnakeID,
		"owner_user_id": sn.OwnerUserID,
		"alive":         boolField(sn.Alive),
		"head_x":        sn.HeadX,
		"head_y":        sn.HeadY,
		"direction":     sn.Direction,
		"paused":        boolField(sn.Paused),
		"length_k":      sn.LengthK,
		"score":         sn.Score,
		"body_compact":  sn.BodyCompact,
		"color":         sn.Color,
		"is_on_field":   boolField(sn.IsOnField),
		"last_event_id": sn.LastEventID,
		"created_at":    sn.CreatedAt,
		"updated_at":    sn.UpdatedAt,
	})
}

func (s *RedisStore) DeleteSnake(ctx context.Context, snakeID string) error {
	pipe := s.client.TxPipeline()
	pipe.SRem(ctx, s.tables.Snakes, snakeID)
	pipe.Del(ctx, s.rowKey(s.tables.Snakes, snakeID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("storage: redis delete snake: %w", err)
	}
	return nil
}

func (s *RedisStore) GetWorldChunk(ctx context.Context, chunkID string) (*WorldChunkRecord, error) {
	r, err := s.getRow(ctx, s.tables.WorldChunks, chunkID)
	if err != nil {
		return nil, err
	}
	return &WorldChunkRecord{
		ChunkID:   r.str("chunk_id"),
		Width:     r.int("width"),
		Height:    r.int("height"),
		Obstacles: r.str("obstacles"),
		FoodState: r.str("food_state"),
		Version:   r.int64("version"),
		UpdatedAt: r.int64("updated_at"),
	}, nil
}

func (s *RedisStore) PutWorldChunk(ctx context.Context, chunk WorldChunkRecord) error {
	return s.putRow(ctx, s.tables.WorldChunks, chunk.ChunkID, map[string]interface{}{
		"chunk_id":   chunk.ChunkID,
		"width":      chunk.Width,
		"height":     chunk.Height,
		"obstacles":  chunk.Obstacles,
		"food_state": chunk.FoodState,
		"version":    chunk.Version,
		"updated_at": chunk.UpdatedAt,
	})
}

func (s *RedisStore) AppendSnakeEvent(ctx context.Context, e SnakeEventRecord) error {
	id := e.SnakeID + "#" + e.EventID
	return s.putRow(ctx, s.tables.SnakeEvents, id, map[string]interface{}{
		"snake_id":       e.SnakeID,
		"event_id":       e.EventID,
		"event_type":     e.EventType,
		"x":              e.X,
		"y":              e.Y,
		"other_snake_id": e.OtherSnakeID,
		"delta_length":   e.DeltaLength,
		"tick_number":    e.TickNumber,
		"world_version":  e.WorldVersion,
		"created_at":     e.CreatedAt,
	})
}

func (s *RedisStore) GetSettings(ctx context.Context, settingsID string) (*SettingsRecord, error) {
	r, err := s.getRow(ctx, s.tables.Settings, settingsID)
	if err != nil {
		return nil, err
	}
	return &SettingsRecord{
		SettingsID: r.str("settings_id"),
		Payload:    r.str("payload"),
		UpdatedAt:  r.int64("updated_at"),
	}, nil
}

func (s *RedisStore) PutSettings(ctx context.Context, rec SettingsRecord) error {
	return s.putRow(ctx, s.tables.Settings, rec.SettingsID, map[string]interface{}{
		"settings_id": rec.SettingsID,
		"payload":     rec.Payload,
		"updated_at":  rec.UpdatedAt,
	})
}

func paramsFromRow(r row) EconomyParamsRecord {
	return EconomyParamsRecord{
		Version:       r.int("version"),
		KLand:         r.int("k_land"),
		AProductivity: r.float("a_productivity"),
		VVelocity:     r.float("v_velocity"),
		MGovReserve:   r.int64("m_gov_reserve"),
		CapDeltaM:     r.int64("cap_delta_m"),
		DeltaMIssue:   r.int64("delta_m_issue"),
		DeltaKObs:     r.int64("delta_k_obs"),
		UpdatedAt:     r.int64("updated_at"),
		UpdatedBy:     r.str("updated_by"),
	}
}

func paramsFields(p EconomyParamsRecord) map[string]interface{} {
	return map[string]interface{}{
		"version":        p.Version,
		"k_land":         p.KLand,
		"a_productivity": p.AProductivity,
		"v_velocity":     p.VVelocity,
		"m_gov_reserve":  p.MGovReserve,
		"cap_delta_m":    p.CapDeltaM,
		"delta_m_issue":  p.DeltaMIssue,
		"delta_k_obs":    p.DeltaKObs,
		"updated_at":     p.UpdatedAt,
		"updated_by":     p.UpdatedBy,
	}
}

func (s *RedisStore) GetEconomyParamsActive(ctx context.Context) (*EconomyParamsRecord, error) {
	r, err := s.getRow(ctx, s.tables.EconomyParams, "active")
	if err != nil {
		return nil, err
	}
	p := paramsFromRow(r)
	return &p, nil
}

func (s *RedisStore) PutEconomyParamsActiveAndVersioned(ctx context.Context, p EconomyParamsRecord, updatedBy string) error {
	next := p.Version
	if active, err := s.GetEconomyParamsActive(ctx); err == nil && next <= active.Version {
		next = active.Version + 1
	}
	p.Version = next
	p.UpdatedBy = updatedBy

	if err := s.putRow(ctx, s.tables.EconomyParams, versionedParamsKey(next), paramsFields(p)); err != nil {
		return err
	}
	return s.putRow(ctx, s.tables.EconomyParams, "active", paramsFields(p))
}

func (s *RedisStore) GetEconomyPeriod(ctx context.Context, periodKey string) (*EconomyPeriodRecord, error) {
	r, err := s.getRow(ctx, s.tables.EconomyPeriod, periodKey)
	if err != nil {
		return nil, err
	}
	return &EconomyPeriodRecord{
		PeriodKey:         r.str("period_key"),
		DeltaMBuy:         r.int64("delta_m_buy"),
		ComputedM:         r.int64("computed_m"),
		ComputedK:         r.int64("computed_k"),
		ComputedY:         r.int64("computed_y"),
		ComputedPMicro:    r.int64("computed_p"),
		ComputedPiMicro:   r.int64("computed_pi"),
		ComputedWorldArea: r.int64("computed_world_area"),
		ComputedWhite:     r.int64("computed_white"),
		ComputedAt:        r.int64("computed_at"),
	}, nil
}

func (s *RedisStore) PutEconomyPeriod(ctx context.Context, p EconomyPeriodRecord) error {
	return s.putRow(ctx, s.tables.EconomyPeriod, p.PeriodKey, map[string]interface{}{
		"period_key":          p.PeriodKey,
		"delta_m_buy":         p.DeltaMBuy,
		"computed_m":          p.ComputedM,
		"computed_k":          p.ComputedK,
		"computed_y":          p.ComputedY,
		"computed_p":          p.ComputedPMicro,
		"computed_pi":         p.ComputedPiMicro,
		"computed_world_area": p.ComputedWorldArea,
		"computed_white":      p.ComputedWhite,
		"computed_at":         p.ComputedAt,
	})
}

func (s *RedisStore) IncrementEconomyPeriodDeltaMBuy(ctx context.Context, periodKey string, delta int64) error {
	return s.withRetry(ctx, "increment_period_delta_m_buy", func() error {
		pipe := s.client.TxPipeline()
		pipe.SAdd(ctx, s.tables.EconomyPeriod, periodKey)
		pipe.HSetNX(ctx, s.rowKey(s.tables.EconomyPeriod, periodKey), "period_key", periodKey)
		pipe.HIncrBy(ctx, s.rowKey(s.tables.EconomyPeriod, periodKey), "delta_m_buy", delta)
		_, err := pipe.Exec(ctx)
		return err
	})
}

func (s *RedisStore) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("storage: redis ping: %w", err)
	}
	return nil
}

func (s *RedisStore) ResetForDev(ctx context.Context) error {
	tables := []string{
		s.tables.Users,
		s.tables.Snakes,
		s.tables.WorldChunks,
		s.tables.SnakeEvents,
		s.tables.Settings,
		s.tables.EconomyParams,
		s.tables.EconomyPeriod,
	}
	for _, table := range tables {
		ids, err := s.client.SMembers(ctx, table).Result()
		if err != nil {
			return fmt.Errorf("storage: redis reset %s: %w", table, err)
		}
		keys := make([]string, 0, len(ids)+1)
		for _, id := range ids {
			keys = append(keys, s.rowKey(table, id))
		}
		keys = append(keys, table)
		if err := s.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("storage: redis reset %s: %w", table, err)
		}
	}
	return nil
}
