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

// Package game implements the authoritative snake world: grid primitives,
// entities, the deterministic tick pipeline (input -> movement -> collision
// -> spawn), chunk-based interest management, and the persistence delta
// engine that turns world bookkeeping into minimal storage mutations.
package game

// Dir is a movement direction. The numeric values are part of the wire
// protocol (clients send dir codes 1..4) and of persisted snake records,
// so they must not be reordered.
type Dir int

const (
	DirStop Dir = iota
	DirLeft
	DirRight
	DirUp
	DirDown
)

// Valid reports whether d is one of the five known direction codes.
func (d Dir) Valid() bool {
	return d >= DirStop && d <= DirDown
}

// Opposite returns the reversed direction. Stop maps to Stop.
func Opposite(d Dir) Dir {
	switch d {
	case DirLeft:
		return DirRight
	case DirRight:
		return DirLeft
	case DirUp:
		return DirDown
	case DirDown:
		return DirUp
	default:
		return DirStop
	}
}

// Vec2 is an integer grid cell.
type Vec2 struct {
	X int
	Y int
}

// StepWrapped moves p one cell in direction d on a w*h torus. Stop is a
// no-op. Both coordinates are reduced modulo the grid bounds, so movement
// wraps on all four edges.
func StepWrapped(p Vec2, d Dir, w, h int) Vec2 {
	switch d {
	case DirLeft:
		p.X--
	case DirRight:
		p.X++
	case DirUp:
		p.Y--
	case DirDown:
		p.Y++
	}
	p.X = ((p.X % w) + w) % w
	p.Y = ((p.Y % h) + h) % h
	return p
}

// cellKey packs a cell into a single comparable value for occupancy maps.
func cellKey(v Vec2) int64 {
	return int64(v.X)<<32 ^ int64(uint32(v.Y))
}
