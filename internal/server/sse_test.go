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
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"snakeworld/internal/storage"
)

func TestStreamEmitsFrame(t *testing.T) {
	srv, _ := newTestServer(t, storage.NewMemoryStore())

	ctx, cancel := context.WithCancel(context.Background())
	r := httptest.NewRequest("GET", "/game/stream?sid=viewer", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.handleStream(w, r)
	}()

	// The sequence starts above the client's zero, so the first poll emits
	// a frame. Give the poll ticker a few periods.
	time.Sleep(300 * time.Millisecond)
	cancel()
	<-done

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	out := w.Body.String()
	if !strings.Contains(out, "event: frame\n") {
		t.Fatalf("no frame event in stream output: %q", out)
	}
	start := strings.Index(out, "data: ")
	if start < 0 {
		t.Fatalf("no data line in stream output: %q", out)
	}
	line := out[start+len("data: "):]
	if end := strings.Index(line, "\n"); end >= 0 {
		line = line[:end]
	}

	var frame struct {
		Tick   uint64           `json:"tick"`
		W      int              `json:"w"`
		H      int              `json:"h"`
		Foods  []map[string]int `json:"foods"`
		Snakes []any            `json:"snakes"`
	}
	if err := json.Unmarshal([]byte(line), &frame); err != nil {
		t.Fatalf("frame payload not JSON: %v (%q)", err, line)
	}
	if frame.W != 40 || frame.H != 20 {
		t.Errorf("frame dims = %dx%d", frame.W, frame.H)
	}
	if frame.Foods == nil || frame.Snakes == nil {
		t.Errorf("frame slices must be non-nil arrays: %q", line)
	}
}
