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

// Snapshot is a consistent, deep copy of observable world state taken
// under the world lock. Safe to hand to any number of readers.
type Snapshot struct {
	Snakes []Snake
	Foods  []Food
	Tick   uint64
	W      int
	H      int
}

// ReplicationRequest describes a viewer's camera for snapshot filtering.
type ReplicationRequest struct {
	CameraX    int
	CameraY    int
	AOIEnabled bool
	AOIRadius  int
}

// BuildSnapshot derives a per-camera view. With AOI disabled the source is
// returned unfiltered. Otherwise only snakes whose head chunk lies in the
// camera's visible chunk set survive (entire body kept), plus foods whose
// cell maps into the set. Grid dimensions and tick are preserved.
func BuildSnapshot(source Snapshot, chunks *ChunkManager, req ReplicationRequest) Snapshot {
	if !req.AOIEnabled {
		return source
	}

	center := chunks.CoordToChunk(req.CameraX, req.CameraY)
	visible := make(map[ChunkID]struct{})
	for _, id := range chunks.ChunksInRadius(center, req.AOIRadius) {
		visible[id] = struct{}{}
	}

	out := Snapshot{Tick: source.Tick, W: source.W, H: source.H}
	out.Snakes = make([]Snake, 0, len(source.Snakes))
	out.Foods = make([]Food, 0, len(source.Foods))

	for _, s := range source.Snakes {
		if chunks.SnakeInChunks(s.ID, visible) {
			out.Snakes = append(out.Snakes, s)
		}
	}
	for _, f := range source.Foods {
		if chunks.FoodInChunks(f, visible) {
			out.Foods = append(out.Foods, f)
		}
	}
	return out
}
