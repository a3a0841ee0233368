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

import "math/rand"

// randFreeCellAttempts bounds the rejection-sampling loop in RandFreeCell.
const randFreeCellAttempts = 2000

// RandFreeCell draws uniformly from [0,w)x[0,h) until it finds a cell that
// is not occupied by any alive snake body cell or any food. After 2000
// failed attempts it falls back to (0,0); callers must tolerate the
// fallback, since the next tick re-shuffles anyway.
func RandFreeCell(snakes []*Snake, foods []Food, w, h int, rng *rand.Rand) Vec2 {
	occupied := make(map[int64]struct{})
	for _, s := range snakes {
		if !s.Alive {
			continue
		}
		for _, c := range s.Body {
			occupied[cellKey(c)] = struct{}{}
		}
	}
	for _, f := range foods {
		occupied[cellKey(Vec2{f.X, f.Y})] = struct{}{}
	}

	for tries := 0; tries < randFreeCellAttempts; tries++ {
		candidate := Vec2{rng.Intn(w), rng.Intn(h)}
		if _, ok := occupied[cellKey(candidate)]; !ok {
			return candidate
		}
	}
	return Vec2{}
}

// EnsureFoodCount appends fresh foods until target foods exist. Uniqueness
// against current foods holds because RandFreeCell rejects occupied cells.
func EnsureFoodCount(snakes []*Snake, foods []Food, target, w, h int, rng *rand.Rand) []Food {
	for len(foods) < target {
		pos := RandFreeCell(snakes, foods, w, h, rng)
		foods = append(foods, Food{X: pos.X, Y: pos.Y})
	}
	return foods
}
