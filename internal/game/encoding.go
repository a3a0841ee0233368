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

import "encoding/json"

// Cell lists persist as compact "[[x,y],...]" JSON. The same encoding is
// shared by snake bodies (head first) and the world's food state.

// EncodeBody serializes body cells head-first. An empty body encodes as
// "[]".
func EncodeBody(body []Vec2) string {
	cells := make([][2]int, len(body))
	for i, c := range body {
		cells[i] = [2]int{c.X, c.Y}
	}
	b, _ := json.Marshal(cells)
	return string(b)
}

// DecodeBody parses a compact cell list. Malformed input decodes to nil,
// which loaders treat the same as an empty body.
func DecodeBody(s string) []Vec2 {
	var cells [][2]int
	if err := json.Unmarshal([]byte(s), &cells); err != nil {
		return nil
	}
	out := make([]Vec2, len(cells))
	for i, c := range cells {
		out[i] = Vec2{X: c[0], Y: c[1]}
	}
	return out
}

// EncodeFoods serializes food cells with the compact cell encoding.
func EncodeFoods(foods []Food) string {
	cells := make([][2]int, len(foods))
	for i, f := range foods {
		cells[i] = [2]int{f.X, f.Y}
	}
	b, _ := json.Marshal(cells)
	return string(b)
}

// DecodeFoods parses a compact food list. Malformed input decodes to nil.
func DecodeFoods(s string) []Food {
	var cells [][2]int
	if err := json.Unmarshal([]byte(s), &cells); err != nil {
		return nil
	}
	out := make([]Food, len(cells))
	for i, c := range cells {
		out[i] = Food{X: c[0], Y: c[1]}
	}
	return out
}
