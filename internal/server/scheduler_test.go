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

package server

import (
	"context"
	"testing"
	"time"

	"snakeworld/internal/game"
	"snakeworld/internal/storage"
)

// orderStore records the sequence of write kinds hitting the store.
type orderStore struct {
	*storage.MemoryStore
	ops []string
}

func (o *orderStore) PutSnake(ctx context.Context, r storage.SnakeRecord) error {
	o.ops = append(o.ops, "put_snake")
	return o.MemoryStore.PutSnake(ctx, r)
}

func (o *orderStore) DeleteSnake(ctx context.Context, id string) error {
	o.ops = append(o.ops, "delete_snake")
	return o.MemoryStore.DeleteSnake(ctx, id)
}

func (o *orderStore) PutWorldChunk(ctx context.Context, c storage.WorldChunkRecord) error {
	o.ops = append(o.ops, "put_chunk")
	return o.MemoryStore.PutWorldChunk(ctx, c)
}

func (o *orderStore) AppendSnakeEvent(ctx context.Context, e storage.SnakeEventRecord) error {
	o.ops = append(o.ops, "append_event")
	return o.MemoryStore.AppendSnakeEvent(ctx, e)
}

func TestFlushDeltaWriteOrder(t *testing.T) {
	store := &orderStore{MemoryStore: storage.NewMemoryStore()}
	world := game.NewWorld(game.Config{Width: 40, Height: 20, FoodCount: 1, MaxSnakesPerUser: 3, Seed: 1})
	sched := NewScheduler(world, store, nil, 100*time.Millisecond, 100*time.Millisecond, true, false)

	// Initial state carries the first world-chunk write.
	sched.FlushDelta(context.Background())
	store.ops = nil

	if _, err := world.CreateSnakeForUser(1, "#00ff00"); err != nil {
		t.Fatalf("create: %v", err)
	}
	sched.FlushDelta(context.Background())

	// Upserts come before event appends.
	want := []string{"put_snake", "append_event"}
	if len(store.ops) != len(want) {
		t.Fatalf("ops = %v, want %v", store.ops, want)
	}
	for i := range want {
		if store.ops[i] != want[i] {
			t.Fatalf("ops = %v, want %v", store.ops, want)
		}
	}

	// A drained world flushes nothing.
	store.ops = nil
	sched.FlushDelta(context.Background())
	if len(store.ops) != 0 {
		t.Errorf("empty delta still wrote %v", store.ops)
	}

	// Store contents reflect the flush.
	rec, err := store.MemoryStore.GetSnake(context.Background(), "1")
	if err != nil {
		t.Fatalf("get snake: %v", err)
	}
	if !rec.Alive || !rec.IsOnField || rec.LengthK != 1 {
		t.Errorf("snake row = %+v", rec)
	}
	events := store.MemoryStore.SnakeEvents()
	if len(events) != 1 || events[0].EventType != game.EventSpawn {
		t.Errorf("events = %+v, want one SPAWN", events)
	}
}

func TestSchedulerRunsTicksAndBroadcasts(t *testing.T) {
	store := storage.NewMemoryStore()
	world := game.NewWorld(game.Config{Width: 40, Height: 20, FoodCount: 1, MaxSnakesPerUser: 3, Seed: 1})
	sched := NewScheduler(world, store, nil, 10*time.Millisecond, 10*time.Millisecond, true, false)

	seqBefore := sched.SnapshotSeq()
	sched.Start()
	time.Sleep(120 * time.Millisecond)
	sched.Stop()

	if world.TickID() == 0 {
		t.Errorf("scheduler never ticked the world")
	}
	if sched.SnapshotSeq() == seqBefore {
		t.Errorf("scheduler never bumped the broadcast sequence")
	}

	// Stop is idempotent.
	sched.Stop()
}

func TestAdvanceBroadcastDeadline(t *testing.T) {
	now := time.Now()
	dt := 10 * time.Millisecond

	// A small backlog fires once per elapsed period.
	next, fired := advanceBroadcastDeadline(now, now.Add(-3*dt), dt)
	if fired != 4 {
		t.Errorf("fired = %d, want 4", fired)
	}
	if !next.After(now) {
		t.Errorf("deadline %v not advanced past now", next)
	}

	// An on-time deadline is left alone.
	next, fired = advanceBroadcastDeadline(now, now.Add(dt), dt)
	if fired != 0 || !next.Equal(now.Add(dt)) {
		t.Errorf("on-time deadline moved: fired=%d next=%v", fired, next)
	}

	// A stall beyond dt*antiRunawayFactor resets the deadline instead of
	// replaying the backlog as a burst of bumps.
	next, fired = advanceBroadcastDeadline(now, now.Add(-6*dt), dt)
	if fired != 0 {
		t.Errorf("stall fired %d bumps, want none", fired)
	}
	if !next.Equal(now.Add(dt)) {
		t.Errorf("stall deadline = %v, want one period out", next)
	}
}

func TestSchedulerReload(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	if err := store.PutSnake(ctx, storage.SnakeRecord{
		SnakeID: "3", OwnerUserID: "1", Alive: true, BodyCompact: "[[5,5]]",
	}); err != nil {
		t.Fatalf("put snake: %v", err)
	}

	world := game.NewWorld(game.Config{Width: 40, Height: 20, FoodCount: 1, MaxSnakesPerUser: 3, Seed: 1})
	sched := NewScheduler(world, store, nil, 10*time.Millisecond, 10*time.Millisecond, true, false)

	sched.RequestReload()
	sched.Start()
	time.Sleep(60 * time.Millisecond)
	sched.Stop()

	if got := world.ListUserSnakes(1); len(got) != 1 || got[0].ID != 3 {
		t.Errorf("reload did not restore the stored snake, got %v", got)
	}
}
