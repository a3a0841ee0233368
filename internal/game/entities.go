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

// Snake is a player-owned entity on the grid. Body cells are ordered with
// the head at index 0. While Alive the body is never empty outside of
// collision resolution.
type Snake struct {
	ID     int
	UserID int
	Body   []Vec2
	Dir    Dir
	Paused bool
	Alive  bool
	Grow   int
	Color  string
}

// Head returns the head cell. Callers must ensure the body is non-empty.
func (s *Snake) Head() Vec2 {
	return s.Body[0]
}

// Clone returns a deep copy, used when handing state out of the world lock.
func (s *Snake) Clone() Snake {
	out := *s
	out.Body = make([]Vec2, len(s.Body))
	copy(out.Body, s.Body)
	return out
}

// Food is a single edible cell. Exactly foodCount foods exist at any
// instant; an eaten food is replaced in place.
type Food struct {
	X int
	Y int
}

// Obstacle is a static blocked cell. Present for forward compatibility;
// current worlds carry none.
type Obstacle struct {
	Pos Vec2
}

// Obstacles is the world's static obstacle list.
type Obstacles []Obstacle

// InputIntent accumulates a snake's queued inputs between ticks. At most
// one intent exists per snake; TogglePause is a parity bit, so two toggles
// before a tick cancel out. The whole buffer is consumed in one shot at
// the start of the next tick.
type InputIntent struct {
	HasDesiredDir bool
	DesiredDir    Dir
	TogglePause   bool
}
