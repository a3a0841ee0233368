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

import "testing"

func TestCoordToChunkFloorDivision(t *testing.T) {
	m := NewChunkManager(16, false)

	cases := []struct {
		x, y int
		want ChunkID
	}{
		{0, 0, ChunkID{0, 0}},
		{15, 15, ChunkID{0, 0}},
		{16, 0, ChunkID{1, 0}},
		{0, 16, ChunkID{0, 1}},
		{-1, -1, ChunkID{-1, -1}},
		{-16, -17, ChunkID{-1, -2}},
		{33, 47, ChunkID{2, 2}},
	}
	for _, tc := range cases {
		if got := m.CoordToChunk(tc.x, tc.y); got != tc.want {
			t.Errorf("CoordToChunk(%d,%d) = %v, want %v", tc.x, tc.y, got, tc.want)
		}
	}
}

func TestCoordToChunkSingleChunkMode(t *testing.T) {
	m := NewChunkManager(16, true)
	for _, c := range []Vec2{{0, 0}, {100, 200}, {-5, -5}} {
		if got := m.CoordToChunk(c.X, c.Y); got != (ChunkID{}) {
			t.Errorf("single-chunk CoordToChunk(%v) = %v, want {0 0}", c, got)
		}
	}
}

func TestChunkSizeClampedToMinimum(t *testing.T) {
	m := NewChunkManager(1, false)
	// A size below 8 is raised to 8, so cell (7,7) stays in chunk (0,0).
	if got := m.CoordToChunk(7, 7); got != (ChunkID{0, 0}) {
		t.Errorf("CoordToChunk(7,7) = %v, want {0 0} under the clamped size", got)
	}
	if got := m.CoordToChunk(8, 8); got != (ChunkID{1, 1}) {
		t.Errorf("CoordToChunk(8,8) = %v, want {1 1}", got)
	}
}

func TestChunksInRadius(t *testing.T) {
	m := NewChunkManager(16, false)

	for _, radius := range []int{0, 1, 2} {
		got := m.ChunksInRadius(ChunkID{3, 3}, radius)
		want := (2*radius + 1) * (2*radius + 1)
		if len(got) != want {
			t.Errorf("radius %d: %d chunks, want %d", radius, len(got), want)
		}
	}

	// Negative radius degrades to just the center.
	got := m.ChunksInRadius(ChunkID{1, 2}, -3)
	if len(got) != 1 || got[0] != (ChunkID{1, 2}) {
		t.Errorf("negative radius = %v, want only the center", got)
	}
}

func TestRebuildHeadIndex(t *testing.T) {
	m := NewChunkManager(16, false)
	snakes := []*Snake{
		{ID: 1, Alive: true, Body: []Vec2{{3, 3}, {2, 3}}},
		{ID: 2, Alive: true, Body: []Vec2{{20, 20}}},
		{ID: 3, Alive: false, Body: []Vec2{{5, 5}}},
	}
	foods := []Food{{1, 1}, {18, 18}}

	m.Rebuild(snakes, foods, nil, 1)

	visible := map[ChunkID]struct{}{{0, 0}: {}}
	if !m.SnakeInChunks(1, visible) {
		t.Errorf("snake 1 head is in chunk (0,0) and must be visible")
	}
	if m.SnakeInChunks(2, visible) {
		t.Errorf("snake 2 head is in chunk (1,1) and must be filtered")
	}
	if m.SnakeInChunks(3, visible) {
		t.Errorf("dead snake must not be indexed")
	}

	if !m.FoodInChunks(Food{1, 1}, visible) {
		t.Errorf("food (1,1) maps into (0,0)")
	}
	if m.FoodInChunks(Food{18, 18}, visible) {
		t.Errorf("food (18,18) maps into (1,1)")
	}

	chunk := m.Chunks()[ChunkID{0, 0}]
	if chunk == nil {
		t.Fatalf("chunk (0,0) missing after rebuild")
	}
	if _, ok := chunk.SnakeIDs[1]; !ok {
		t.Errorf("chunk (0,0) does not record snake 1")
	}
	if len(chunk.Foods) != 1 {
		t.Errorf("chunk (0,0) has %d foods, want 1", len(chunk.Foods))
	}
}
