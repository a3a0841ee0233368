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

// minChunkSize is the lower bound enforced on configured chunk sizes.
const minChunkSize = 8

// ChunkID addresses the fixed-size square [cx*S,(cx+1)*S) x [cy*S,(cy+1)*S).
type ChunkID struct {
	CX int
	CY int
}

// ChunkData is the per-tick occupancy record for one chunk. Records are
// dirty on first creation within a tick.
type ChunkData struct {
	ID             ChunkID
	SnakeIDs       map[int]struct{}
	Foods          []Food
	Obstacles      []Vec2
	Dirty          bool
	DirtySinceTick uint64
}

// ChunkManager maps cells to chunks and maintains a head-chunk index used
// by area-of-interest filtering. It holds entity ids only, never entity
// pointers; Rebuild recreates the index from scratch each tick.
type ChunkManager struct {
	chunkSize       int
	singleChunkMode bool
	chunks          map[ChunkID]*ChunkData
	snakeHeadChunk  map[int]ChunkID
}

// NewChunkManager creates a manager with the given chunk size (clamped to
// a minimum of 8) and mode. In single-chunk mode every cell maps to (0,0).
func NewChunkManager(chunkSize int, singleChunkMode bool) *ChunkManager {
	m := &ChunkManager{
		chunks:         make(map[ChunkID]*ChunkData),
		snakeHeadChunk: make(map[int]ChunkID),
	}
	m.SetConfig(chunkSize, singleChunkMode)
	return m
}

// SetConfig reconfigures chunking. Takes effect on the next Rebuild.
func (m *ChunkManager) SetConfig(chunkSize int, singleChunkMode bool) {
	if chunkSize < minChunkSize {
		chunkSize = minChunkSize
	}
	m.chunkSize = chunkSize
	m.singleChunkMode = singleChunkMode
}

// CoordToChunk maps a cell to its chunk id using floor division, so
// negative coordinates round toward negative infinity.
func (m *ChunkManager) CoordToChunk(x, y int) ChunkID {
	if m.singleChunkMode {
		return ChunkID{}
	}
	return ChunkID{CX: floorDiv(x, m.chunkSize), CY: floorDiv(y, m.chunkSize)}
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// ChunksInRadius returns the (2r+1)^2 square neighborhood around center.
// A negative radius is treated as zero.
func (m *ChunkManager) ChunksInRadius(center ChunkID, radius int) []ChunkID {
	if radius < 0 {
		radius = 0
	}
	out := make([]ChunkID, 0, (2*radius+1)*(2*radius+1))
	for dx := -radius; dx <= radius; dx++ {
		for dy := -radius; dy <= radius; dy++ {
			out = append(out, ChunkID{CX: center.CX + dx, CY: center.CY + dy})
		}
	}
	return out
}

func (m *ChunkManager) ensureChunk(id ChunkID, tickID uint64) *ChunkData {
	if c, ok := m.chunks[id]; ok {
		return c
	}
	c := &ChunkData{
		ID:             id,
		SnakeIDs:       make(map[int]struct{}),
		Dirty:          true,
		DirtySinceTick: tickID,
	}
	m.chunks[id] = c
	return c
}

// Rebuild recreates the chunk index from current world state: each alive
// snake's head maps to its chunk, each food and obstacle to its cell's
// chunk.
func (m *ChunkManager) Rebuild(snakes []*Snake, foods []Food, obstacles Obstacles, tickID uint64) {
	m.chunks = make(map[ChunkID]*ChunkData)
	m.snakeHeadChunk = make(map[int]ChunkID)

	for _, s := range snakes {
		if !s.Alive || len(s.Body) == 0 {
			continue
		}
		id := m.CoordToChunk(s.Body[0].X, s.Body[0].Y)
		m.ensureChunk(id, tickID).SnakeIDs[s.ID] = struct{}{}
		m.snakeHeadChunk[s.ID] = id
	}
	for _, f := range foods {
		id := m.CoordToChunk(f.X, f.Y)
		c := m.ensureChunk(id, tickID)
		c.Foods = append(c.Foods, f)
	}
	for _, o := range obstacles {
		id := m.CoordToChunk(o.Pos.X, o.Pos.Y)
		c := m.ensureChunk(id, tickID)
		c.Obstacles = append(c.Obstacles, o.Pos)
	}
}

// Chunks exposes the current chunk index.
func (m *ChunkManager) Chunks() map[ChunkID]*ChunkData {
	return m.chunks
}

// SnakeInChunks reports whether the snake's recorded head chunk is in the
// visible set. Filtering is head-based: a visible head keeps the whole
// body.
func (m *ChunkManager) SnakeInChunks(snakeID int, visible map[ChunkID]struct{}) bool {
	id, ok := m.snakeHeadChunk[snakeID]
	if !ok {
		return false
	}
	_, in := visible[id]
	return in
}

// FoodInChunks reports whether the food's cell maps into the visible set.
func (m *ChunkManager) FoodInChunks(f Food, visible map[ChunkID]struct{}) bool {
	_, in := visible[m.CoordToChunk(f.X, f.Y)]
	return in
}
