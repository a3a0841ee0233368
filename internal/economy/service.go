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

package economy

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"snakeworld/internal/storage"
)

// Purchase failure modes, distinguished so the transport layer can report
// which write lost.
var (
	ErrPurchaseUserUpdate   = errors.New("economy: purchase user update failed")
	ErrPurchasePeriodUpdate = errors.New("economy: purchase period update failed")
)

// micro converts a float aggregate to the fixed-point micro-units persisted
// on the period row.
func micro(v float64) int64 {
	return int64(v * 1e6)
}

// Service wraps the derivation with a TTL cache over the backing store and
// the compensating purchase path. Cache misses compute outside the lock and
// swap the result in; a failed backing read degrades to a zero-input
// computation so reads never error.
type Service struct {
	store storage.Store
	log   *zap.Logger
	ttl   time.Duration
	now   func() time.Time

	mu       sync.Mutex
	cached   *State
	cachedAt time.Time
}

// NewService builds a Service with the given cache TTL.
func NewService(store storage.Store, logger *zap.Logger, ttl time.Duration) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store: store,
		log:   logger,
		ttl:   ttl,
		now:   time.Now,
	}
}

// SetNowFunc overrides the wall clock. Test hook.
func (s *Service) SetNowFunc(fn func() time.Time) {
	s.now = fn
}

// GetState returns the current macro state, serving from cache within the
// TTL.
func (s *Service) GetState(ctx context.Context) State {
	now := s.now()
	s.mu.Lock()
	if s.cached != nil && now.Sub(s.cachedAt) < s.ttl {
		st := *s.cached
		s.mu.Unlock()
		return st
	}
	s.mu.Unlock()

	st := s.computeFresh(ctx)

	s.mu.Lock()
	s.cached = &st
	s.cachedAt = now
	s.mu.Unlock()
	return st
}

// InvalidateCache drops the cached state so the next read recomputes.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

func (s *Service) computeFresh(ctx context.Context) State {
	periodKey := PeriodKeyUTC(s.now())
	in := Inputs{}

	params := storage.DefaultEconomyParams()
	if p, err := s.store.GetEconomyParamsActive(ctx); err == nil {
		params = *p
	} else if !errors.Is(err, storage.ErrNotFound) {
		s.log.Warn("economy: active params read failed, using defaults", zap.Error(err))
	}
	in.ParamsVersion = params.Version
	in.MGov = params.MGovReserve
	in.DeltaMIssue = params.DeltaMIssue
	in.CapDeltaM = params.CapDeltaM
	in.DeltaKObs = params.DeltaKObs
	in.KLand = int64(params.KLand)
	in.AProductivity = params.AProductivity
	in.VVelocity = params.VVelocity

	if period, err := s.store.GetEconomyPeriod(ctx, periodKey); err == nil {
		in.DeltaMBuy = period.DeltaMBuy
	} else if !errors.Is(err, storage.ErrNotFound) {
		s.log.Warn("economy: period read failed, assuming zero purchases",
			zap.String("period_key", periodKey), zap.Error(err))
	}

	if users, err := s.store.ListUsers(ctx); err == nil {
		for _, u := range users {
			in.SumMi += u.BalanceMi
		}
	} else {
		s.log.Warn("economy: user scan failed, assuming zero balances", zap.Error(err))
	}

	if snakes, err := s.store.ListSnakes(ctx); err == nil {
		for _, sn := range snakes {
			if sn.Alive && sn.IsOnField && sn.LengthK > 0 {
				in.KSnakes += int64(sn.LengthK)
			}
		}
	} else {
		s.log.Warn("economy: snake scan failed, assuming zero occupancy", zap.Error(err))
	}

	return ComputeEconomyV1(in, periodKey)
}

// Purchase credits cells to the user's balance and the current period's
// purchase counter. The two writes are not transactional: when the period
// update fails the balance credit is compensated best-effort and the error
// reports which write lost. On success the cache is invalidated and the
// fresh state returned.
func (s *Service) Purchase(ctx context.Context, userID string, cells int64) (State, error) {
	if err := s.store.IncrementUserBalance(ctx, userID, cells); err != nil {
		s.log.Error("economy: purchase balance update failed",
			zap.String("user_id", userID), zap.Int64("cells", cells), zap.Error(err))
		return State{}, ErrPurchaseUserUpdate
	}

	periodKey := PeriodKeyUTC(s.now())
	if err := s.store.IncrementEconomyPeriodDeltaMBuy(ctx, periodKey, cells); err != nil {
		s.log.Error("economy: purchase period update failed, compensating",
			zap.String("user_id", userID), zap.String("period_key", periodKey), zap.Error(err))
		if cerr := s.store.IncrementUserBalance(ctx, userID, -cells); cerr != nil {
			s.log.Error("economy: purchase compensation failed, balances inconsistent",
				zap.String("user_id", userID), zap.Int64("cells", cells), zap.Error(cerr))
		}
		return State{}, ErrPurchasePeriodUpdate
	}

	s.InvalidateCache()
	return s.RecomputeAndPersist(ctx), nil
}

// RecomputeAndPersist forces a fresh derivation and checkpoints the
// computed aggregates onto the period row. The checkpoint is best-effort;
// the row's counter stays authoritative and the next call rewrites the
// aggregates anyway.
func (s *Service) RecomputeAndPersist(ctx context.Context) State {
	st := s.computeFresh(ctx)

	err := s.store.PutEconomyPeriod(ctx, storage.EconomyPeriodRecord{
		PeriodKey:         st.PeriodKey,
		DeltaMBuy:         st.Inputs.DeltaMBuy,
		ComputedM:         st.M,
		ComputedK:         st.K,
		ComputedY:         int64(st.Y),
		ComputedPMicro:    micro(st.P),
		ComputedPiMicro:   micro(st.Pi),
		ComputedWorldArea: st.AWorld,
		ComputedWhite:     st.MWhite,
		ComputedAt:        s.now().Unix(),
	})
	if err != nil {
		s.log.Warn("economy: aggregate checkpoint failed",
			zap.String("period_key", st.PeriodKey), zap.Error(err))
	}

	s.mu.Lock()
	s.cached = &st
	s.cachedAt = s.now()
	s.mu.Unlock()
	return st
}
