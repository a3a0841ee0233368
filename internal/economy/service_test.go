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
	"testing"
	"time"

	"snakeworld/internal/storage"
)

var errStoreDown = errors.New("store down")

// flakyStore fails the period increment while recording every balance
// delta, to observe the compensation write.
type flakyStore struct {
	*storage.MemoryStore
	balanceDeltas []int64
	failBalance   bool
}

func (f *flakyStore) IncrementUserBalance(ctx context.Context, userID string, delta int64) error {
	if f.failBalance {
		return errStoreDown
	}
	f.balanceDeltas = append(f.balanceDeltas, delta)
	return f.MemoryStore.IncrementUserBalance(ctx, userID, delta)
}

func (f *flakyStore) IncrementEconomyPeriodDeltaMBuy(context.Context, string, int64) error {
	return errStoreDown
}

// downStore fails every read so GetState has to degrade.
type downStore struct {
	*storage.MemoryStore
}

func (downStore) GetEconomyParamsActive(context.Context) (*storage.EconomyParamsRecord, error) {
	return nil, errStoreDown
}

func (downStore) GetEconomyPeriod(context.Context, string) (*storage.EconomyPeriodRecord, error) {
	return nil, errStoreDown
}

func (downStore) ListUsers(context.Context) ([]storage.UserRecord, error) {
	return nil, errStoreDown
}

func (downStore) ListSnakes(context.Context) ([]storage.SnakeRecord, error) {
	return nil, errStoreDown
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestPurchaseSuccess(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	if err := store.PutUser(ctx, storage.UserRecord{UserID: "1", Username: "user1"}); err != nil {
		t.Fatalf("put user: %v", err)
	}

	svc := NewService(store, nil, 2*time.Second)
	at := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	svc.SetNowFunc(fixedClock(at))

	st, err := svc.Purchase(ctx, "1", 10)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}

	if st.PeriodKey != "2026082612" {
		t.Errorf("period key = %q", st.PeriodKey)
	}
	if st.Inputs.DeltaMBuy != 10 {
		t.Errorf("delta_m_buy = %d, want 10", st.Inputs.DeltaMBuy)
	}
	// Default policy carries M_G 400; the purchase credited 10 to sum_mi.
	if st.M != 410 {
		t.Errorf("M = %d, want 410", st.M)
	}

	u, err := store.GetUserByID(ctx, "1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.BalanceMi != 10 {
		t.Errorf("balance = %d, want 10", u.BalanceMi)
	}

	period, err := store.GetEconomyPeriod(ctx, "2026082612")
	if err != nil {
		t.Fatalf("get period: %v", err)
	}
	if period.DeltaMBuy != 10 {
		t.Errorf("period delta_m_buy = %d, want 10", period.DeltaMBuy)
	}
	if period.ComputedM != 410 || period.ComputedAt != at.Unix() {
		t.Errorf("aggregate checkpoint = %+v", period)
	}
}

func TestPurchasePeriodFailureCompensates(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryStore: storage.NewMemoryStore()}
	if err := store.MemoryStore.PutUser(ctx, storage.UserRecord{UserID: "1"}); err != nil {
		t.Fatalf("put user: %v", err)
	}

	svc := NewService(store, nil, time.Second)
	_, err := svc.Purchase(ctx, "1", 25)
	if !errors.Is(err, ErrPurchasePeriodUpdate) {
		t.Fatalf("err = %v, want ErrPurchasePeriodUpdate", err)
	}

	// Credit then compensation, in that order.
	if len(store.balanceDeltas) != 2 || store.balanceDeltas[0] != 25 || store.balanceDeltas[1] != -25 {
		t.Fatalf("balance deltas = %v, want [25 -25]", store.balanceDeltas)
	}
	u, err := store.MemoryStore.GetUserByID(ctx, "1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if u.BalanceMi != 0 {
		t.Errorf("balance = %d, want fully compensated 0", u.BalanceMi)
	}
}

func TestPurchaseBalanceFailure(t *testing.T) {
	store := &flakyStore{MemoryStore: storage.NewMemoryStore(), failBalance: true}
	svc := NewService(store, nil, time.Second)

	_, err := svc.Purchase(context.Background(), "1", 5)
	if !errors.Is(err, ErrPurchaseUserUpdate) {
		t.Fatalf("err = %v, want ErrPurchaseUserUpdate", err)
	}
}

func TestGetStateCacheTTL(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	if err := store.PutUser(ctx, storage.UserRecord{UserID: "1", BalanceMi: 100}); err != nil {
		t.Fatalf("put user: %v", err)
	}

	svc := NewService(store, nil, 2*time.Second)
	at := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	svc.SetNowFunc(fixedClock(at))

	first := svc.GetState(ctx)
	if first.M != 500 {
		t.Fatalf("M = %d, want 500", first.M)
	}

	// A balance change within the TTL is not observed.
	if err := store.IncrementUserBalance(ctx, "1", 50); err != nil {
		t.Fatalf("increment: %v", err)
	}
	svc.SetNowFunc(fixedClock(at.Add(time.Second)))
	if cached := svc.GetState(ctx); cached.M != 500 {
		t.Errorf("cached M = %d, want stale 500", cached.M)
	}

	// Past the TTL the fresh balance shows up.
	svc.SetNowFunc(fixedClock(at.Add(3 * time.Second)))
	if fresh := svc.GetState(ctx); fresh.M != 550 {
		t.Errorf("fresh M = %d, want 550", fresh.M)
	}

	// Invalidation forces a recompute regardless of age.
	if err := store.IncrementUserBalance(ctx, "1", 1); err != nil {
		t.Fatalf("increment: %v", err)
	}
	svc.InvalidateCache()
	if fresh := svc.GetState(ctx); fresh.M != 551 {
		t.Errorf("post-invalidate M = %d, want 551", fresh.M)
	}
}

func TestGetStateDegradesWhenStoreDown(t *testing.T) {
	svc := NewService(downStore{}, nil, time.Second)
	at := time.Date(2026, 8, 26, 15, 0, 0, 0, time.UTC)
	svc.SetNowFunc(fixedClock(at))

	st := svc.GetState(context.Background())

	// Default policy over zero balances and zero occupancy.
	if st.M != 400 {
		t.Errorf("M = %d, want the default reserve 400", st.M)
	}
	if st.Inputs.KSnakes != 0 || st.Inputs.SumMi != 0 || st.Inputs.DeltaMBuy != 0 {
		t.Errorf("inputs not zeroed: %+v", st.Inputs)
	}
	if st.PeriodKey != "2026082615" {
		t.Errorf("period key = %q", st.PeriodKey)
	}
}

func TestKSnakesCountsOnlyOnFieldAlive(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	put := func(r storage.SnakeRecord) {
		if err := store.PutSnake(ctx, r); err != nil {
			t.Fatalf("put snake: %v", err)
		}
	}
	put(storage.SnakeRecord{SnakeID: "1", Alive: true, IsOnField: true, LengthK: 4})
	put(storage.SnakeRecord{SnakeID: "2", Alive: true, IsOnField: true, LengthK: 3})
	put(storage.SnakeRecord{SnakeID: "3", Alive: false, IsOnField: true, LengthK: 9})
	put(storage.SnakeRecord{SnakeID: "4", Alive: true, IsOnField: false, LengthK: 9})
	put(storage.SnakeRecord{SnakeID: "5", Alive: true, IsOnField: true, LengthK: -2})

	svc := NewService(store, nil, time.Second)
	st := svc.GetState(ctx)
	if st.Inputs.KSnakes != 7 {
		t.Errorf("k_snakes = %d, want 7", st.Inputs.KSnakes)
	}
}
