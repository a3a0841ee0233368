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

package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"snakeworld/internal/storage"
)

var (
	ErrNoSuchSnake      = errors.New("game: no such snake")
	ErrNotOwner         = errors.New("game: snake not owned by user")
	ErrSnakeLimit       = errors.New("game: snake limit reached")
	ErrInvalidDirection = errors.New("game: invalid direction")
)

// colorPalette is cycled by snake id when a stored row carries no color.
var colorPalette = []string{
	"#00ff00", "#00aaff", "#ff00ff", "#ff8800", "#00ffaa", "#ffaa00",
}

// mainChunkID names the single persisted world row.
const mainChunkID = "main"

// Config sizes a world. Values are taken as-is; the config package applies
// environment clamps before construction.
type Config struct {
	Width            int
	Height           int
	FoodCount        int
	MaxSnakesPerUser int
	Seed             int64
}

// World is the single-authority simulation. All mutation happens under one
// mutex; readers get deep-copied snapshots. The world also accumulates a
// persistence delta (dirty snakes, deletions, pending events, world-chunk
// dirtiness) which the tick scheduler drains and flushes between ticks.
type World struct {
	mu sync.Mutex

	w          int
	h          int
	foodCount  int
	maxPerUser int

	snakes    []*Snake
	foods     []Food
	obstacles Obstacles

	inputBuffer map[int]InputIntent
	tick        uint64
	version     int64
	nextSnakeID int
	rng         *rand.Rand
	chunks      *ChunkManager

	dirty           map[int]struct{}
	deleted         map[int]struct{}
	pending         []pendingEvent
	worldChunkDirty bool

	snakeCreatedAt map[int]int64
	snakeScore     map[int]int

	nowMS func() int64
}

// pendingEvent is a gameplay event awaiting drain. createdAt is zero for
// events produced inside a tick and is stamped when the delta is drained;
// out-of-tick events (SPAWN) carry their wall time from the start.
type pendingEvent struct {
	ev        Event
	tick      uint64
	createdAt int64
}

// PersistenceDelta is one drained batch of storage work. The flusher
// applies it in order: snake upserts, snake deletes, world chunk, events.
type PersistenceDelta struct {
	SnakeUpserts    []storage.SnakeRecord
	DeletedSnakeIDs []string
	WorldChunk      *storage.WorldChunkRecord
	Events          []storage.SnakeEventRecord
}

// Empty reports whether the delta carries no work.
func (d PersistenceDelta) Empty() bool {
	return len(d.SnakeUpserts) == 0 && len(d.DeletedSnakeIDs) == 0 &&
		d.WorldChunk == nil && len(d.Events) == 0
}

// SnakeSummary is the owner-facing row for a single snake.
type SnakeSummary struct {
	ID     int
	Color  string
	Paused bool
	Len    int
}

// NewWorld creates an empty world with foodCount foods already placed. A
// zero seed picks a time-based one.
func NewWorld(cfg Config) *World {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	w := &World{
		w:              cfg.Width,
		h:              cfg.Height,
		foodCount:      cfg.FoodCount,
		maxPerUser:     cfg.MaxSnakesPerUser,
		inputBuffer:    make(map[int]InputIntent),
		nextSnakeID:    1,
		rng:            rand.New(rand.NewSource(seed)),
		chunks:         NewChunkManager(minChunkSize, true),
		dirty:          make(map[int]struct{}),
		deleted:        make(map[int]struct{}),
		snakeCreatedAt: make(map[int]int64),
		snakeScore:     make(map[int]int),
		nowMS:          func() int64 { return time.Now().UnixMilli() },
	}
	w.foods = EnsureFoodCount(nil, nil, w.foodCount, w.w, w.h, w.rng)
	w.worldChunkDirty = true
	w.chunks.Rebuild(w.snakes, w.foods, w.obstacles, w.tick)
	return w
}

// ConfigureChunking reconfigures the spatial index.
func (w *World) ConfigureChunking(chunkSize int, singleChunkMode bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.chunks.SetConfig(chunkSize, singleChunkMode)
	w.chunks.Rebuild(w.snakes, w.foods, w.obstacles, w.tick)
}

// SetNowFunc overrides the wall clock. Test hook.
func (w *World) SetNowFunc(fn func() int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nowMS = fn
}

// Width returns the grid width.
func (w *World) Width() int { return w.w }

// Height returns the grid height.
func (w *World) Height() int { return w.h }

// TickID returns the current tick counter.
func (w *World) TickID() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tick
}

// LoadFromStorage restores snakes and food state from checkpoint rows.
// Rows with a non-positive snake or owner id, or a cleared alive flag,
// are skipped; a row with an undecodable body falls back to a single cell
// at the stored head. When a restored body overlaps an already-restored
// cell the snake is re-seeded as a single cell on a free one. A stored
// chunk row hands back its dimensions, food state, and version counter;
// without one the chunk is marked dirty for the first flush.
func (w *World) LoadFromStorage(ctx context.Context, store storage.Store) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	records, err := store.ListSnakes(ctx)
	if err != nil {
		return fmt.Errorf("game: load snakes: %w", err)
	}

	w.snakes = nil
	w.foods = nil
	w.inputBuffer = make(map[int]InputIntent)
	w.dirty = make(map[int]struct{})
	w.deleted = make(map[int]struct{})
	w.pending = nil
	w.worldChunkDirty = false
	w.snakeCreatedAt = make(map[int]int64)
	w.snakeScore = make(map[int]int)

	occupied := make(map[int64]struct{})
	maxID := 0
	for _, rec := range records {
		id, err := strconv.Atoi(rec.SnakeID)
		if err != nil || id <= 0 || !rec.Alive {
			continue
		}
		ownerID, err := strconv.Atoi(rec.OwnerUserID)
		if err != nil || ownerID <= 0 {
			continue
		}
		body := DecodeBody(rec.BodyCompact)
		if len(body) == 0 {
			body = []Vec2{{X: rec.HeadX, Y: rec.HeadY}}
		}
		conflict := false
		for _, c := range body {
			if _, taken := occupied[cellKey(c)]; taken {
				conflict = true
				break
			}
		}
		if conflict {
			body = []Vec2{RandFreeCell(w.snakes, w.foods, w.w, w.h, w.rng)}
		}
		for _, c := range body {
			occupied[cellKey(c)] = struct{}{}
		}

		dir := Dir(rec.Direction)
		if !dir.Valid() {
			dir = DirStop
		}
		color := rec.Color
		if color == "" {
			color = colorPalette[(id-1)%len(colorPalette)]
		}
		w.snakes = append(w.snakes, &Snake{
			ID:     id,
			UserID: ownerID,
			Body:   body,
			Dir:    dir,
			Paused: rec.Paused,
			Alive:  true,
			Color:  color,
		})
		w.snakeCreatedAt[id] = rec.CreatedAt
		w.snakeScore[id] = rec.Score
		if id > maxID {
			maxID = id
		}
	}
	w.nextSnakeID = maxID + 1

	chunk, err := store.GetWorldChunk(ctx, mainChunkID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		w.worldChunkDirty = true
		w.version++
	case err != nil:
		return fmt.Errorf("game: load world chunk: %w", err)
	default:
		// Resume the version counter where the store left it so the next
		// upsert and every event stay strictly ahead of the persisted row.
		w.version = chunk.Version
		if chunk.Width > 0 && chunk.Height > 0 {
			w.w = chunk.Width
			w.h = chunk.Height
		}
		if foods := DecodeFoods(chunk.FoodState); foods != nil {
			w.foods = foods
		}
	}
	w.foods = EnsureFoodCount(w.snakes, w.foods, w.foodCount, w.w, w.h, w.rng)
	w.chunks.Rebuild(w.snakes, w.foods, w.obstacles, w.tick)
	return nil
}

func (w *World) findSnakeLocked(snakeID int) *Snake {
	for _, s := range w.snakes {
		if s.ID == snakeID {
			return s
		}
	}
	return nil
}

func (w *World) ownedSnakeLocked(userID, snakeID int) (*Snake, error) {
	s := w.findSnakeLocked(snakeID)
	if s == nil || !s.Alive {
		return nil, ErrNoSuchSnake
	}
	if s.UserID != userID {
		return nil, ErrNotOwner
	}
	return s, nil
}

// CreateSnakeForUser spawns a single-cell snake on a free cell, stopped
// and unpaused. An empty color picks from the palette by id. It enforces
// the per-user snake limit and records a SPAWN event carrying the creation
// wall time.
func (w *World) CreateSnakeForUser(userID int, color string) (SnakeSummary, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	owned := 0
	for _, s := range w.snakes {
		if s.Alive && s.UserID == userID {
			owned++
		}
	}
	if owned >= w.maxPerUser {
		return SnakeSummary{}, ErrSnakeLimit
	}

	id := w.nextSnakeID
	w.nextSnakeID++
	cell := RandFreeCell(w.snakes, w.foods, w.w, w.h, w.rng)
	now := w.nowMS()
	if color == "" {
		color = colorPalette[(id-1)%len(colorPalette)]
	}
	s := &Snake{
		ID:     id,
		UserID: userID,
		Body:   []Vec2{cell},
		Dir:    DirStop,
		Alive:  true,
		Color:  color,
	}
	w.snakes = append(w.snakes, s)
	w.snakeCreatedAt[id] = now
	w.snakeScore[id] = 0
	w.dirty[id] = struct{}{}
	w.pending = append(w.pending, pendingEvent{
		ev:        Event{Type: EventSpawn, SnakeID: id, X: cell.X, Y: cell.Y, DeltaLength: 1},
		tick:      w.tick,
		createdAt: now,
	})
	w.chunks.Rebuild(w.snakes, w.foods, w.obstacles, w.tick)
	return SnakeSummary{ID: id, Color: s.Color, Paused: s.Paused, Len: 1}, nil
}

// QueueDirectionInput records a desired direction for the next tick. Any
// valid movement direction is accepted, including the reverse of the
// current one.
func (w *World) QueueDirectionInput(userID, snakeID int, d Dir) error {
	if !d.Valid() || d == DirStop {
		return ErrInvalidDirection
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.ownedSnakeLocked(userID, snakeID); err != nil {
		return err
	}
	intent := w.inputBuffer[snakeID]
	intent.HasDesiredDir = true
	intent.DesiredDir = d
	w.inputBuffer[snakeID] = intent
	return nil
}

// QueuePauseToggle flips the snake's queued pause parity bit.
func (w *World) QueuePauseToggle(userID, snakeID int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.ownedSnakeLocked(userID, snakeID); err != nil {
		return err
	}
	intent := w.inputBuffer[snakeID]
	intent.TogglePause = !intent.TogglePause
	w.inputBuffer[snakeID] = intent
	return nil
}

// ListUserSnakes returns summaries of the user's live snakes in id order.
func (w *World) ListUserSnakes(userID int) []SnakeSummary {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := []SnakeSummary{}
	for _, s := range w.snakes {
		if s.Alive && s.UserID == userID {
			out = append(out, SnakeSummary{ID: s.ID, Color: s.Color, Paused: s.Paused, Len: len(s.Body)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Tick advances the simulation one step: consume inputs, move, resolve
// collisions, account events into the persistence delta, and rebuild the
// spatial index. Snakes whose (dir, paused) pair changed during the tick
// are marked dirty; the world chunk dirties and world_version bumps only
// when a food moved or any event fired, so quiet ticks drain as an empty
// delta.
func (w *World) Tick() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.tick++

	type dirPause struct {
		dir    Dir
		paused bool
	}
	before := make(map[int]dirPause, len(w.snakes))
	for _, s := range w.snakes {
		before[s.ID] = dirPause{s.Dir, s.Paused}
	}

	ApplyMovement(w.snakes, w.inputBuffer, w.w, w.h)
	alive, events, foodChanged := ResolveCollisions(w.snakes, w.foods, w.w, w.h, w.rng)
	w.snakes = alive
	w.foods = EnsureFoodCount(w.snakes, w.foods, w.foodCount, w.w, w.h, w.rng)

	for _, ev := range events {
		w.pending = append(w.pending, pendingEvent{ev: ev, tick: w.tick})
		switch ev.Type {
		case EventFood:
			w.snakeScore[ev.SnakeID]++
			w.dirty[ev.SnakeID] = struct{}{}
		case EventDeath:
			w.deleted[ev.SnakeID] = struct{}{}
			delete(w.dirty, ev.SnakeID)
		default:
			w.dirty[ev.SnakeID] = struct{}{}
			if ev.OtherSnakeID != 0 {
				w.dirty[ev.OtherSnakeID] = struct{}{}
			}
		}
	}
	for _, s := range w.snakes {
		if prev, ok := before[s.ID]; ok && (prev.dir != s.Dir || prev.paused != s.Paused) {
			w.dirty[s.ID] = struct{}{}
		}
	}

	if foodChanged || len(events) > 0 {
		w.worldChunkDirty = true
		w.version++
	}

	w.chunks.Rebuild(w.snakes, w.foods, w.obstacles, w.tick)
}

func (w *World) snapshotLocked() Snapshot {
	snap := Snapshot{Tick: w.tick, W: w.w, H: w.h}
	snap.Snakes = make([]Snake, 0, len(w.snakes))
	for _, s := range w.snakes {
		snap.Snakes = append(snap.Snakes, s.Clone())
	}
	snap.Foods = make([]Food, len(w.foods))
	copy(snap.Foods, w.foods)
	return snap
}

// Snapshot returns a deep copy of the observable world state.
func (w *World) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

// SnapshotForCamera returns the camera-filtered view used by per-session
// frame building.
func (w *World) SnapshotForCamera(req ReplicationRequest) Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return BuildSnapshot(w.snapshotLocked(), w.chunks, req)
}

// DrainPersistenceDelta moves the accumulated delta out of the world and
// resets it. Event ids keep the created_at they were pushed with (zero for
// tick-phase events); the record's CreatedAt field is stamped at drain
// time when missing. Each upserted snake carries the id of its latest
// pending event.
func (w *World) DrainPersistenceDelta() PersistenceDelta {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.nowMS()
	var delta PersistenceDelta

	lastEventID := make(map[int]string)
	if len(w.pending) > 0 {
		delta.Events = make([]storage.SnakeEventRecord, 0, len(w.pending))
		for i, pe := range w.pending {
			eventID := fmt.Sprintf("%d#%d#%s#%d", pe.createdAt, pe.tick, pe.ev.Type, i)
			createdAt := pe.createdAt
			if createdAt == 0 {
				createdAt = now
			}
			otherID := ""
			if pe.ev.OtherSnakeID != 0 {
				otherID = strconv.Itoa(pe.ev.OtherSnakeID)
			}
			delta.Events = append(delta.Events, storage.SnakeEventRecord{
				SnakeID:      strconv.Itoa(pe.ev.SnakeID),
				EventID:      eventID,
				EventType:    pe.ev.Type,
				X:            pe.ev.X,
				Y:            pe.ev.Y,
				OtherSnakeID: otherID,
				DeltaLength:  pe.ev.DeltaLength,
				TickNumber:   pe.tick,
				WorldVersion: w.version,
				CreatedAt:    createdAt,
			})
			lastEventID[pe.ev.SnakeID] = eventID
		}
	}

	if len(w.dirty) > 0 {
		ids := make([]int, 0, len(w.dirty))
		for id := range w.dirty {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		for _, id := range ids {
			s := w.findSnakeLocked(id)
			if s == nil || !s.Alive {
				continue
			}
			head := s.Head()
			createdAt := w.snakeCreatedAt[s.ID]
			if createdAt == 0 {
				createdAt = now
			}
			delta.SnakeUpserts = append(delta.SnakeUpserts, storage.SnakeRecord{
				SnakeID:     strconv.Itoa(s.ID),
				OwnerUserID: strconv.Itoa(s.UserID),
				Alive:       true,
				HeadX:       head.X,
				HeadY:       head.Y,
				Direction:   int(s.Dir),
				Paused:      s.Paused,
				LengthK:     len(s.Body),
				Score:       w.snakeScore[s.ID],
				BodyCompact: EncodeBody(s.Body),
				Color:       s.Color,
				IsOnField:   true,
				LastEventID: lastEventID[s.ID],
				CreatedAt:   createdAt,
				UpdatedAt:   now,
			})
		}
	}

	if len(w.deleted) > 0 {
		ids := make([]int, 0, len(w.deleted))
		for id := range w.deleted {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		for _, id := range ids {
			delta.DeletedSnakeIDs = append(delta.DeletedSnakeIDs, strconv.Itoa(id))
			delete(w.snakeCreatedAt, id)
			delete(w.snakeScore, id)
			delete(w.inputBuffer, id)
		}
	}

	if w.worldChunkDirty {
		positions := make([]Vec2, len(w.obstacles))
		for i, o := range w.obstacles {
			positions[i] = o.Pos
		}
		delta.WorldChunk = &storage.WorldChunkRecord{
			ChunkID:   mainChunkID,
			Width:     w.w,
			Height:    w.h,
			Obstacles: EncodeBody(positions),
			FoodState: EncodeFoods(w.foods),
			Version:   w.version,
			UpdatedAt: now,
		}
	}

	w.dirty = make(map[int]struct{})
	w.deleted = make(map[int]struct{})
	w.pending = nil
	w.worldChunkDirty = false
	return delta
}
