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

// Package server is the HTTP transport of the snake world: routes, auth
// tokens, viewer sessions, the SSE fan-out, and the tick scheduler that
// drives the world and flushes its persistence delta.
package server

import (
	"encoding/json"
	"net/http"

	"snakeworld/internal/economy"
	"snakeworld/internal/game"
)

// cellJSON is a grid cell on the wire.
type cellJSON struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// snakeJSON is one snake in a snapshot frame.
type snakeJSON struct {
	ID     int        `json:"id"`
	UserID int        `json:"user_id"`
	Color  string     `json:"color"`
	Dir    int        `json:"dir"`
	Paused bool       `json:"paused"`
	Body   []cellJSON `json:"body"`
}

// snapshotJSON is the stable snapshot shape shared by /game/state and the
// SSE frame payload. Slices are always non-nil so empty worlds encode as
// [] rather than null.
type snapshotJSON struct {
	Tick   uint64      `json:"tick"`
	W      int         `json:"w"`
	H      int         `json:"h"`
	Foods  []cellJSON  `json:"foods"`
	Snakes []snakeJSON `json:"snakes"`
}

func snapshotToJSON(snap game.Snapshot) snapshotJSON {
	out := snapshotJSON{
		Tick:   snap.Tick,
		W:      snap.W,
		H:      snap.H,
		Foods:  make([]cellJSON, 0, len(snap.Foods)),
		Snakes: make([]snakeJSON, 0, len(snap.Snakes)),
	}
	for _, f := range snap.Foods {
		out.Foods = append(out.Foods, cellJSON{X: f.X, Y: f.Y})
	}
	for _, s := range snap.Snakes {
		body := make([]cellJSON, 0, len(s.Body))
		for _, c := range s.Body {
			body = append(body, cellJSON{X: c.X, Y: c.Y})
		}
		out.Snakes = append(out.Snakes, snakeJSON{
			ID:     s.ID,
			UserID: s.UserID,
			Color:  s.Color,
			Dir:    int(s.Dir),
			Paused: s.Paused,
			Body:   body,
		})
	}
	return out
}

// economyInputsJSON echoes the derivation inputs on /economy/state.
type economyInputsJSON struct {
	KLand       int64   `json:"k_land"`
	A           float64 `json:"A"`
	V           float64 `json:"V"`
	MG          int64   `json:"M_G"`
	CapDeltaM   int64   `json:"cap_delta_m"`
	DeltaMIssue int64   `json:"delta_m_issue"`
	DeltaMBuy   int64   `json:"delta_m_buy"`
	DeltaKObs   int64   `json:"delta_k_obs"`
	SumMi       int64   `json:"sum_mi"`
	KSnakes     int64   `json:"k_snakes"`
}

// economyStateJSON is the /economy/state response body.
type economyStateJSON struct {
	PeriodKey string            `json:"period_key"`
	M         int64             `json:"M"`
	K         int64             `json:"K"`
	Y         float64           `json:"Y"`
	P         float64           `json:"P"`
	PClamped  float64           `json:"P_clamped"`
	Pi        float64           `json:"pi"`
	AWorld    int64             `json:"A_world"`
	MWhite    int64             `json:"M_white"`
	Inputs    economyInputsJSON `json:"inputs"`
}

func economyStateToJSON(st economy.State) economyStateJSON {
	return economyStateJSON{
		PeriodKey: st.PeriodKey,
		M:         st.M,
		K:         st.K,
		Y:         st.Y,
		P:         st.P,
		PClamped:  st.PClamped,
		Pi:        st.Pi,
		AWorld:    st.AWorld,
		MWhite:    st.MWhite,
		Inputs: economyInputsJSON{
			KLand:       st.Inputs.KLand,
			A:           st.Inputs.AProductivity,
			V:           st.Inputs.VVelocity,
			MG:          st.Inputs.MGov,
			CapDeltaM:   st.Inputs.CapDeltaM,
			DeltaMIssue: st.Inputs.DeltaMIssue,
			DeltaMBuy:   st.Inputs.DeltaMBuy,
			DeltaKObs:   st.Inputs.DeltaKObs,
			SumMi:       st.Inputs.SumMi,
			KSnakes:     st.Inputs.KSnakes,
		},
	}
}

// purchaseResponse is the /economy/purchase success body.
type purchaseResponse struct {
	Status    string  `json:"status"`
	Cells     int64   `json:"cells"`
	PeriodKey string  `json:"period_key"`
	M         int64   `json:"M"`
	P         float64 `json:"P"`
}

// sessionJSON is the /game/camera response body.
type sessionJSON struct {
	SID                   string  `json:"sid"`
	X                     int     `json:"x"`
	Y                     int     `json:"y"`
	Zoom                  float64 `json:"zoom"`
	WatchSnakeID          int     `json:"watch_snake_id"`
	SubscribedChunksCount int     `json:"subscribed_chunks_count"`
}

// snakeSummaryJSON is one row of the /me/snakes listing.
type snakeSummaryJSON struct {
	ID     int    `json:"id"`
	Color  string `json:"color"`
	Paused bool   `json:"paused"`
	Len    int    `json:"len"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func writeOK(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}
