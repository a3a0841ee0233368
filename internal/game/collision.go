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
	"sort"
)

// Gameplay event types, persisted verbatim in the append-only event log.
const (
	EventSpawn         = "SPAWN"
	EventFood          = "FOOD"
	EventSelfCollision = "SELF_COLLISION"
	EventBite          = "BITE"
	EventBitten        = "BITTEN"
	EventDeath         = "DEATH"
)

// Event is an in-memory gameplay event produced during collision
// resolution. The world converts these into storage records when draining
// the persistence delta.
type Event struct {
	Type         string
	SnakeID      int
	OtherSnakeID int
	X            int
	Y            int
	DeltaLength  int
}

// ResolveCollisions runs the authoritative collision phase on post-movement
// state. Resolution order is fixed:
//
//  1. Self-hit: head on own body pops the tail, pauses the snake, and can
//     kill it when the body empties.
//  2. Inter-snake arbitration in ascending snake id: the attacker (head on
//     another body) grows, reverses, and unpauses; the defender loses its
//     tail and can die. Two snakes on each other's bodies both fire.
//  3. Food: every head on a food grows and the food is replaced via
//     RandFreeCell.
//  4. Death events at last-known head, then compaction of dead snakes.
//
// The returned slice is the compacted live set. foods is mutated in place
// when replacements occur.
func ResolveCollisions(snakes []*Snake, foods []Food, w, h int, rng *rand.Rand) (alive []*Snake, events []Event, foodChanged bool) {
	for _, s := range snakes {
		if !s.Alive || len(s.Body) < 2 {
			continue
		}
		head := s.Body[0]
		hitSelf := false
		for i := 1; i < len(s.Body); i++ {
			if s.Body[i] == head {
				hitSelf = true
				break
			}
		}
		if hitSelf {
			s.Body = s.Body[:len(s.Body)-1]
			s.Paused = true
			events = append(events, Event{Type: EventSelfCollision, SnakeID: s.ID, X: head.X, Y: head.Y, DeltaLength: -1})
			if len(s.Body) == 0 {
				s.Alive = false
			}
		}
	}

	// Owner index over every alive body cell, heads included. Temporary
	// co-occupation is expected here; trimming below restores uniqueness.
	cellOwners := make(map[int64][]int)
	for _, s := range snakes {
		if !s.Alive {
			continue
		}
		for _, c := range s.Body {
			k := cellKey(c)
			cellOwners[k] = append(cellOwners[k], s.ID)
		}
	}

	byID := make(map[int]*Snake, len(snakes))
	ids := make([]int, 0, len(snakes))
	for _, s := range snakes {
		byID[s.ID] = s
		if s.Alive {
			ids = append(ids, s.ID)
		}
	}
	sort.Ints(ids)

	for _, id := range ids {
		attacker := byID[id]
		if attacker == nil || !attacker.Alive || len(attacker.Body) == 0 {
			continue
		}
		owners := cellOwners[cellKey(attacker.Body[0])]
		defenderID := 0
		for _, ownerID := range owners {
			if ownerID != attacker.ID {
				defenderID = ownerID
				break
			}
		}
		if defenderID == 0 {
			continue
		}
		defender := byID[defenderID]
		if defender == nil || !defender.Alive {
			continue
		}

		impact := attacker.Body[0]
		attacker.Grow++
		attacker.Dir = Opposite(attacker.Dir)
		attacker.Paused = false
		events = append(events, Event{Type: EventBite, SnakeID: attacker.ID, OtherSnakeID: defender.ID, X: impact.X, Y: impact.Y, DeltaLength: 1})

		if len(defender.Body) > 0 {
			defender.Body = defender.Body[:len(defender.Body)-1]
			events = append(events, Event{Type: EventBitten, SnakeID: defender.ID, OtherSnakeID: attacker.ID, X: impact.X, Y: impact.Y, DeltaLength: -1})
		}
		if len(defender.Body) == 0 {
			defender.Alive = false
		}
	}

	for _, s := range snakes {
		if !s.Alive || len(s.Body) == 0 {
			continue
		}
		head := s.Body[0]
		for i := range foods {
			if foods[i].X == head.X && foods[i].Y == head.Y {
				s.Grow++
				events = append(events, Event{Type: EventFood, SnakeID: s.ID, X: head.X, Y: head.Y, DeltaLength: 1})
				replacement := RandFreeCell(snakes, foods, w, h, rng)
				foods[i].X = replacement.X
				foods[i].Y = replacement.Y
				foodChanged = true
			}
		}
	}

	for _, s := range snakes {
		if s.Alive {
			continue
		}
		var x, y int
		if len(s.Body) > 0 {
			x = s.Body[0].X
			y = s.Body[0].Y
		}
		events = append(events, Event{Type: EventDeath, SnakeID: s.ID, X: x, Y: y, DeltaLength: -1})
	}

	alive = snakes[:0]
	for _, s := range snakes {
		if s.Alive {
			alive = append(alive, s)
		}
	}
	return alive, events, foodChanged
}
