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
	"reflect"
	"testing"
)

func TestApplyMovementDesiredDirClearsPause(t *testing.T) {
	s := &Snake{ID: 1, Alive: true, Paused: true, Dir: DirStop, Body: []Vec2{{5, 5}}}
	buf := map[int]InputIntent{
		1: {HasDesiredDir: true, DesiredDir: DirRight},
	}

	ApplyMovement([]*Snake{s}, buf, 10, 10)

	if s.Paused {
		t.Errorf("desired dir should clear paused")
	}
	if s.Dir != DirRight {
		t.Errorf("dir = %v, want right", s.Dir)
	}
	if s.Head() != (Vec2{6, 5}) {
		t.Errorf("head = %v, want {6 5}", s.Head())
	}
	if len(buf) != 0 {
		t.Errorf("input buffer not cleared, %d entries left", len(buf))
	}
}

func TestApplyMovementPauseToggleParity(t *testing.T) {
	s := &Snake{ID: 1, Alive: true, Dir: DirRight, Body: []Vec2{{5, 5}}}

	ApplyMovement([]*Snake{s}, map[int]InputIntent{1: {TogglePause: true}}, 10, 10)
	if !s.Paused {
		t.Fatalf("single toggle should pause")
	}
	if s.Head() != (Vec2{5, 5}) {
		t.Errorf("paused snake moved to %v", s.Head())
	}

	ApplyMovement([]*Snake{s}, map[int]InputIntent{1: {TogglePause: true}}, 10, 10)
	if s.Paused {
		t.Fatalf("second toggle should unpause")
	}
	if s.Head() != (Vec2{6, 5}) {
		t.Errorf("unpaused snake head = %v, want {6 5}", s.Head())
	}
}

func TestApplyMovementStoppedAndDeadDoNotMove(t *testing.T) {
	stopped := &Snake{ID: 1, Alive: true, Dir: DirStop, Body: []Vec2{{2, 2}}}
	dead := &Snake{ID: 2, Alive: false, Dir: DirRight, Body: []Vec2{{4, 4}}}

	ApplyMovement([]*Snake{stopped, dead}, nil, 10, 10)

	if stopped.Head() != (Vec2{2, 2}) {
		t.Errorf("stopped snake moved to %v", stopped.Head())
	}
	if dead.Body[0] != (Vec2{4, 4}) {
		t.Errorf("dead snake moved to %v", dead.Body[0])
	}
}

func TestApplyMovementGrowthConsumedOncePerTick(t *testing.T) {
	s := &Snake{ID: 1, Alive: true, Dir: DirRight, Grow: 2, Body: []Vec2{{0, 0}}}

	for i := 0; i < 4; i++ {
		ApplyMovement([]*Snake{s}, nil, 10, 10)
	}

	// Grow=2 over 4 moves: length 1 + 2 = 3, growth fully consumed.
	if len(s.Body) != 3 {
		t.Fatalf("body length = %d, want 3", len(s.Body))
	}
	if s.Grow != 0 {
		t.Errorf("pending growth = %d, want 0", s.Grow)
	}
	want := []Vec2{{4, 0}, {3, 0}, {2, 0}}
	if !reflect.DeepEqual(s.Body, want) {
		t.Errorf("body = %v, want %v", s.Body, want)
	}
}

func TestApplyMovementReversalIntoNeckAllowed(t *testing.T) {
	// Movement allows the reversal; the collision phase resolves it.
	s := &Snake{ID: 1, Alive: true, Dir: DirRight, Body: []Vec2{{5, 5}, {4, 5}, {3, 5}}}

	ApplyMovement([]*Snake{s}, map[int]InputIntent{1: {HasDesiredDir: true, DesiredDir: DirLeft}}, 10, 10)

	want := []Vec2{{4, 5}, {5, 5}, {4, 5}}
	if !reflect.DeepEqual(s.Body, want) {
		t.Errorf("body after reversal = %v, want %v", s.Body, want)
	}
}
