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

package server

import (
	"sync"

	"github.com/google/uuid"
)

// Zoom bounds applied to camera updates.
const (
	zoomMin = 0.25
	zoomMax = 4.0
)

// Session is one viewer's camera state. Created lazily on the first
// /game/camera or /game/stream touch of a sid.
type Session struct {
	SID                   string
	CameraX               int
	CameraY               int
	Zoom                  float64
	WatchSnakeID          int
	SubscribedChunksCount int
}

// SessionRegistry holds viewer sessions keyed by opaque sid. Accesses are
// short and serialized by one mutex.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*Session

	gridW           int
	gridH           int
	aoiEnabled      bool
	aoiRadius       int
	singleChunkMode bool
}

// NewSessionRegistry builds a registry with the world's dimensions and the
// AOI configuration baked in for camera clamping.
func NewSessionRegistry(gridW, gridH int, aoiEnabled bool, aoiRadius int, singleChunkMode bool) *SessionRegistry {
	return &SessionRegistry{
		sessions:        make(map[string]*Session),
		gridW:           gridW,
		gridH:           gridH,
		aoiEnabled:      aoiEnabled,
		aoiRadius:       aoiRadius,
		singleChunkMode: singleChunkMode,
	}
}

// subscribedChunksCount is (2r+1)^2 with AOI on, 1 in single-chunk mode,
// and -1 ("no filter") when AOI is disabled.
func (r *SessionRegistry) subscribedChunksCount() int {
	if !r.aoiEnabled {
		return -1
	}
	if r.singleChunkMode {
		return 1
	}
	n := 2*r.aoiRadius + 1
	return n * n
}

// GetOrCreate resolves a session, minting one (and a sid when the caller
// sent none) on first touch. The returned value is a copy.
func (r *SessionRegistry) GetOrCreate(sid string) Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sid == "" {
		sid = uuid.NewString()
	}
	s, ok := r.sessions[sid]
	if !ok {
		s = &Session{
			SID:                   sid,
			Zoom:                  1.0,
			SubscribedChunksCount: r.subscribedChunksCount(),
		}
		r.sessions[sid] = s
	}
	return *s
}

// UpdateCamera clamps and stores a camera update, creating the session if
// needed, and returns the resulting state.
func (r *SessionRegistry) UpdateCamera(sid string, x, y int, zoom *float64, watchSnakeID *int) Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sid == "" {
		sid = uuid.NewString()
	}
	s, ok := r.sessions[sid]
	if !ok {
		s = &Session{SID: sid, Zoom: 1.0}
		r.sessions[sid] = s
	}

	s.CameraX = clamp(x, 0, r.gridW-1)
	s.CameraY = clamp(y, 0, r.gridH-1)
	if zoom != nil {
		z := *zoom
		if z < zoomMin {
			z = zoomMin
		}
		if z > zoomMax {
			z = zoomMax
		}
		s.Zoom = z
	}
	if watchSnakeID != nil {
		s.WatchSnakeID = *watchSnakeID
	}
	s.SubscribedChunksCount = r.subscribedChunksCount()
	return *s
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
