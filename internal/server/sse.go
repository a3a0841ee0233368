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
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"snakeworld/internal/game"
)

const keepaliveAfter = 10 * time.Second

// handleStream serves the chunked SSE snapshot stream. Each client polls
// the broadcast sequence at half the spectator period; on a bump it
// re-derives a frame for its session's camera, so two viewers of the same
// tick can receive different filtered views.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported")
		return
	}

	session := s.sessions.GetOrCreate(r.URL.Query().Get("sid"))

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sseClients.Inc()
	defer sseClients.Dec()

	pollEvery := s.spectatorDt / 2
	if pollEvery < time.Millisecond {
		pollEvery = time.Millisecond
	}
	ticker := time.NewTicker(pollEvery)
	defer ticker.Stop()

	var lastSeq uint64
	lastWrite := time.Now()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		if seq := s.scheduler.SnapshotSeq(); seq != lastSeq {
			lastSeq = seq
			// Re-read the session each frame so camera updates apply
			// mid-stream.
			session = s.sessions.GetOrCreate(session.SID)
			snap := s.world.SnapshotForCamera(game.ReplicationRequest{
				CameraX:    session.CameraX,
				CameraY:    session.CameraY,
				AOIEnabled: s.aoiEnabled,
				AOIRadius:  s.aoiRadius,
			})
			payload, err := json.Marshal(snapshotToJSON(snap))
			if err != nil {
				return
			}
			if _, err := fmt.Fprintf(w, "event: frame\ndata: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
			lastWrite = time.Now()
			continue
		}

		if time.Since(lastWrite) >= keepaliveAfter {
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
			lastWrite = time.Now()
		}
	}
}
