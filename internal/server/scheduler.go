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
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"snakeworld/internal/game"
	"snakeworld/internal/storage"
)

const (
	// At most this many catch-up ticks fire per loop iteration.
	maxCatchUpTicks = 3

	// When the loop falls further behind than tickDt*antiRunawayFactor,
	// the tick deadline resets instead of replaying the backlog.
	antiRunawayFactor = 5

	// Upper bound on one scheduler sleep, keeping shutdown responsive.
	maxSchedulerSleep = 5 * time.Millisecond

	debugTPSInterval = 5 * time.Second
)

// Scheduler is the single background worker driving the world: it ticks at
// tick_hz, flushes each tick's persistence delta, and bumps the snapshot
// sequence at spectator_hz for the SSE fan-out.
type Scheduler struct {
	world *game.World
	store storage.Store
	log   *zap.Logger

	tickDt          time.Duration
	spectatorDt     time.Duration
	enableBroadcast bool
	debugTPS        bool

	seqMu sync.Mutex
	seq   uint64

	reload   atomic.Bool
	running  atomic.Bool
	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  uint32
}

// NewScheduler wires a scheduler to a world and its backing store.
func NewScheduler(world *game.World, store storage.Store, logger *zap.Logger,
	tickDt, spectatorDt time.Duration, enableBroadcast, debugTPS bool) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		world:           world,
		store:           store,
		log:             logger,
		tickDt:          tickDt,
		spectatorDt:     spectatorDt,
		enableBroadcast: enableBroadcast,
		debugTPS:        debugTPS,
		seq:             1,
		stopChan:        make(chan struct{}),
	}
}

// SnapshotSeq reads the broadcast sequence. Stream clients poll this and
// re-derive their frame when it changes.
func (s *Scheduler) SnapshotSeq() uint64 {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	return s.seq
}

func (s *Scheduler) bumpSeq() {
	s.seqMu.Lock()
	s.seq++
	s.seqMu.Unlock()
	broadcastsTotal.Inc()
}

// RequestReload asks the loop to reload the world from storage before its
// next tick batch. Safe from signal handlers.
func (s *Scheduler) RequestReload() {
	s.reload.Store(true)
}

// Start launches the scheduler loop.
func (s *Scheduler) Start() {
	s.running.Store(true)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
}

// Stop terminates the loop, waits for it, and flushes a final delta.
func (s *Scheduler) Stop() {
	if !atomic.CompareAndSwapUint32(&s.stopped, 0, 1) {
		return
	}
	s.running.Store(false)
	close(s.stopChan)
	s.wg.Wait()
	s.FlushDelta(context.Background())
}

func (s *Scheduler) loop() {
	now := time.Now()
	nextTick := now.Add(s.tickDt)
	nextBroadcast := now.Add(s.spectatorDt)

	var tickCount, broadcastCount uint64
	nextLogAt := now.Add(debugTPSInterval)

	for s.running.Load() {
		now = time.Now()

		if s.reload.CompareAndSwap(true, false) {
			if err := s.world.LoadFromStorage(context.Background(), s.store); err != nil {
				s.log.Error("scheduler: world reload failed", zap.Error(err))
			} else {
				s.log.Info("scheduler: world reloaded from storage",
					zap.Uint64("tick", s.world.TickID()))
			}
			s.bumpSeq()
		}

		fired := 0
		for !now.Before(nextTick) && fired < maxCatchUpTicks {
			s.world.Tick()
			ticksTotal.Inc()
			tickCount++
			fired++
			s.FlushDelta(context.Background())
			nextTick = nextTick.Add(s.tickDt)
		}

		if now.Sub(nextTick) > s.tickDt*antiRunawayFactor {
			nextTick = now.Add(s.tickDt)
		}

		if s.enableBroadcast {
			var fired int
			nextBroadcast, fired = advanceBroadcastDeadline(now, nextBroadcast, s.spectatorDt)
			for i := 0; i < fired; i++ {
				s.bumpSeq()
				broadcastCount++
			}
		}

		if s.debugTPS && !now.Before(nextLogAt) {
			elapsed := debugTPSInterval.Seconds()
			s.log.Info("scheduler: rates",
				zap.Float64("ticks_per_sec", float64(tickCount)/elapsed),
				zap.Float64("broadcasts_per_sec", float64(broadcastCount)/elapsed))
			tickCount, broadcastCount = 0, 0
			nextLogAt = now.Add(debugTPSInterval)
		}

		deadline := nextTick
		if s.enableBroadcast && nextBroadcast.Before(deadline) {
			deadline = nextBroadcast
		}
		if bound := now.Add(maxSchedulerSleep); bound.Before(deadline) {
			deadline = bound
		}
		select {
		case <-s.stopChan:
			return
		case <-time.After(time.Until(deadline)):
		}
	}
}

// advanceBroadcastDeadline drains the broadcast backlog, returning the
// next deadline and how many periods fired. A deadline lagging beyond
// dt*antiRunawayFactor resets forward instead of replaying the stall as
// a burst of sequence bumps.
func advanceBroadcastDeadline(now, next time.Time, dt time.Duration) (time.Time, int) {
	if now.Sub(next) > dt*antiRunawayFactor {
		return now.Add(dt), 0
	}
	fired := 0
	for !now.Before(next) {
		fired++
		next = next.Add(dt)
	}
	return next, fired
}

// FlushDelta drains the world's persistence delta and writes it item by
// item: snake upserts, snake deletes, the chunk upsert, then event
// appends. Failures are logged and dropped; dirty snakes re-upsert on the
// next delta anyway.
func (s *Scheduler) FlushDelta(ctx context.Context) {
	delta := s.world.DrainPersistenceDelta()
	if delta.Empty() {
		return
	}
	start := time.Now()

	for _, rec := range delta.SnakeUpserts {
		if err := s.store.PutSnake(ctx, rec); err != nil {
			flushErrorsTotal.Inc()
			s.log.Warn("scheduler: snake upsert failed",
				zap.String("snake_id", rec.SnakeID), zap.Error(err))
		}
	}
	for _, id := range delta.DeletedSnakeIDs {
		if err := s.store.DeleteSnake(ctx, id); err != nil {
			flushErrorsTotal.Inc()
			s.log.Warn("scheduler: snake delete failed",
				zap.String("snake_id", id), zap.Error(err))
		}
	}
	if delta.WorldChunk != nil {
		if err := s.store.PutWorldChunk(ctx, *delta.WorldChunk); err != nil {
			flushErrorsTotal.Inc()
			s.log.Warn("scheduler: world chunk upsert failed", zap.Error(err))
		}
	}
	for _, ev := range delta.Events {
		gameEventsTotal.WithLabelValues(ev.EventType).Inc()
		if err := s.store.AppendSnakeEvent(ctx, ev); err != nil {
			flushErrorsTotal.Inc()
			s.log.Warn("scheduler: event append failed",
				zap.String("event_id", ev.EventID), zap.Error(err))
		}
	}

	flushDuration.Observe(time.Since(start).Seconds())
}
