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
	"math/rand"
	"testing"
)

func TestRandFreeCellAvoidsOccupied(t *testing.T) {
	// 2x2 grid with three cells taken: only (1,1) is free.
	snakes := []*Snake{
		{ID: 1, Alive: true, Body: []Vec2{{0, 0}, {0, 1}}},
	}
	foods := []Food{{1, 0}}
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 50; i++ {
		got := RandFreeCell(snakes, foods, 2, 2, rng)
		if got != (Vec2{1, 1}) {
			t.Fatalf("RandFreeCell = %v, want {1 1}", got)
		}
	}
}

func TestRandFreeCellIgnoresDeadSnakes(t *testing.T) {
	// The dead snake covers the whole 1x1 grid; its cells must not count.
	snakes := []*Snake{
		{ID: 1, Alive: false, Body: []Vec2{{0, 0}}},
	}
	rng := rand.New(rand.NewSource(1))
	if got := RandFreeCell(snakes, nil, 1, 1, rng); got != (Vec2{0, 0}) {
		t.Fatalf("RandFreeCell = %v, want {0 0}", got)
	}
}

func TestEnsureFoodCountTopsUp(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	foods := []Food{{3, 3}}

	foods = EnsureFoodCount(nil, foods, 4, 10, 10, rng)
	if len(foods) != 4 {
		t.Fatalf("got %d foods, want 4", len(foods))
	}

	seen := make(map[Food]struct{})
	for _, f := range foods {
		if f.X < 0 || f.X >= 10 || f.Y < 0 || f.Y >= 10 {
			t.Errorf("food %v out of bounds", f)
		}
		if _, dup := seen[f]; dup {
			t.Errorf("duplicate food cell %v", f)
		}
		seen[f] = struct{}{}
	}

	// Already at target: no change.
	again := EnsureFoodCount(nil, foods, 4, 10, 10, rng)
	if len(again) != 4 {
		t.Fatalf("top-up at target changed count to %d", len(again))
	}
}
