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

// ApplyMovement runs the per-tick movement phase:
//
//  1. Consume the input buffer: a desired direction overrides dir and
//     clears paused; the pause-toggle parity bit flips paused. The buffer
//     is cleared in one shot so intents never survive a tick.
//  2. Compute the next head for every alive, unpaused, moving snake.
//  3. Prepend the new head; consume one unit of pending growth or pop the
//     tail.
//
// Reversing directly into the neck is allowed here; the collision phase
// resolves the resulting self-hit on the tick where the head lands inside
// the body.
func ApplyMovement(snakes []*Snake, inputBuffer map[int]InputIntent, w, h int) {
	if len(inputBuffer) > 0 {
		for _, s := range snakes {
			intent, ok := inputBuffer[s.ID]
			if !ok {
				continue
			}
			if intent.HasDesiredDir {
				s.Dir = intent.DesiredDir
				s.Paused = false
			}
			if intent.TogglePause {
				s.Paused = !s.Paused
			}
		}
		clear(inputBuffer)
	}

	nextHead := make(map[int]Vec2, len(snakes))
	for _, s := range snakes {
		if !s.Alive || s.Paused || s.Dir == DirStop || len(s.Body) == 0 {
			continue
		}
		nextHead[s.ID] = StepWrapped(s.Body[0], s.Dir, w, h)
	}

	for _, s := range snakes {
		if !s.Alive {
			continue
		}
		head, ok := nextHead[s.ID]
		if !ok {
			continue
		}
		s.Body = append([]Vec2{head}, s.Body...)
		if s.Grow > 0 {
			s.Grow--
		} else {
			s.Body = s.Body[:len(s.Body)-1]
		}
	}
}
