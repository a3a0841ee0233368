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
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"snakeworld/internal/config"
	"snakeworld/internal/economy"
	"snakeworld/internal/game"
	"snakeworld/internal/storage"
)

// defaultSnakeColor is used when a create request carries no color.
const defaultSnakeColor = "#ff00ff"

// Server owns the HTTP surface and the shared service state behind it.
type Server struct {
	world     *game.World
	store     storage.Store
	economy   *economy.Service
	auth      *AuthTable
	sessions  *SessionRegistry
	scheduler *Scheduler
	log       *zap.Logger

	cfg         config.Config
	spectatorDt time.Duration
	aoiEnabled  bool
	aoiRadius   int

	httpServer *http.Server
}

// New assembles the server around an already-loaded world.
func New(cfg config.Config, world *game.World, store storage.Store,
	eco *economy.Service, scheduler *Scheduler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		world:       world,
		store:       store,
		economy:     eco,
		auth:        NewAuthTable(),
		sessions:    NewSessionRegistry(world.Width(), world.Height(), cfg.AOIEnabled, cfg.AOIRadius, cfg.SingleChunkMode),
		scheduler:   scheduler,
		log:         logger,
		cfg:         cfg,
		spectatorDt: cfg.SpectatorInterval(),
		aoiEnabled:  cfg.AOIEnabled,
		aoiRadius:   cfg.AOIRadius,
	}
}

// Handler builds the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return withCORS(mux)
}

// RegisterRoutes installs all routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /game/state", s.handleGameState)
	mux.HandleFunc("GET /game/runtime", s.handleRuntime)
	mux.HandleFunc("GET /game/stream", s.handleStream)
	mux.HandleFunc("POST /game/camera", s.handleCamera)
	mux.HandleFunc("GET /economy/state", s.handleEconomyState)
	mux.HandleFunc("POST /economy/purchase", s.handlePurchase)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("GET /me/snakes", s.handleListSnakes)
	mux.HandleFunc("POST /me/snakes", s.handleCreateSnake)
	mux.HandleFunc("POST /snakes/{id}/dir", s.handleSnakeDir)
	mux.HandleFunc("POST /snakes/{id}/pause", s.handleSnakePause)
}

// withCORS applies the permissive CORS policy and short-circuits
// preflight requests.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleGameState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, snapshotToJSON(s.world.Snapshot()))
}

func (s *Server) handleRuntime(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"tick_hz":           s.cfg.TickHz,
		"spectator_hz":      s.cfg.SpectatorHz,
		"player_hz":         s.cfg.PlayerHz,
		"enable_broadcast":  s.cfg.EnableBroadcast,
		"aoi_enabled":       s.cfg.AOIEnabled,
		"aoi_radius":        s.cfg.AOIRadius,
		"single_chunk_mode": s.cfg.SingleChunkMode,
	})
}

func (s *Server) handleCamera(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SID          string   `json:"sid"`
		X            *int     `json:"x"`
		Y            *int     `json:"y"`
		Zoom         *float64 `json:"zoom"`
		WatchSnakeID *int     `json:"watch_snake_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.X == nil || body.Y == nil {
		writeError(w, http.StatusBadRequest, "bad_camera_payload")
		return
	}
	session := s.sessions.UpdateCamera(body.SID, *body.X, *body.Y, body.Zoom, body.WatchSnakeID)
	writeJSON(w, http.StatusOK, sessionJSON{
		SID:                   session.SID,
		X:                     session.CameraX,
		Y:                     session.CameraY,
		Zoom:                  session.Zoom,
		WatchSnakeID:          session.WatchSnakeID,
		SubscribedChunksCount: session.SubscribedChunksCount,
	})
}

func (s *Server) handleEconomyState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, economyStateToJSON(s.economy.GetState(r.Context())))
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.auth.bearerUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body struct {
		Cells          *int64 `json:"cells"`
		PurchasedCells *int64 `json:"purchased_cells"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_cells")
		return
	}
	cells := body.Cells
	if cells == nil {
		cells = body.PurchasedCells
	}
	if cells == nil || *cells <= 0 {
		writeError(w, http.StatusBadRequest, "bad_cells")
		return
	}

	st, err := s.economy.Purchase(r.Context(), strconv.Itoa(uid), *cells)
	switch {
	case errors.Is(err, economy.ErrPurchaseUserUpdate):
		writeError(w, http.StatusInternalServerError, "purchase_user_update_failed")
		return
	case errors.Is(err, economy.ErrPurchasePeriodUpdate):
		writeError(w, http.StatusInternalServerError, "purchase_period_update_failed")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "purchase_failed")
		return
	}

	writeJSON(w, http.StatusOK, purchaseResponse{
		Status:    "OK",
		Cells:     *cells,
		PeriodKey: st.PeriodKey,
		M:         st.M,
		P:         st.P,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Username == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, "bad_request")
		return
	}
	if !s.auth.AllowLogin(body.Username) {
		writeError(w, http.StatusTooManyRequests, "rate_limited")
		return
	}

	user, err := s.store.GetUserByUsername(r.Context(), body.Username)
	if err != nil || user.PasswordHash != body.Password {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	uid, err := strconv.Atoi(user.UserID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	token := s.auth.IssueToken(uid)
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user_id": uid})
}

func (s *Server) handleListSnakes(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.auth.bearerUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	rows := make([]snakeSummaryJSON, 0)
	for _, sn := range s.world.ListUserSnakes(uid) {
		rows = append(rows, snakeSummaryJSON{ID: sn.ID, Color: sn.Color, Paused: sn.Paused, Len: sn.Len})
	}
	writeJSON(w, http.StatusOK, map[string]any{"snakes": rows})
}

func (s *Server) handleCreateSnake(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.auth.bearerUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body struct {
		Color string `json:"color"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	color := body.Color
	if color == "" {
		color = defaultSnakeColor
	}

	summary, err := s.world.CreateSnakeForUser(uid, color)
	if err != nil {
		writeError(w, http.StatusTooManyRequests, "snake_limit")
		return
	}
	// Persist the spawn immediately so the snake survives a crash before
	// the next tick flush.
	s.scheduler.FlushDelta(r.Context())
	writeJSON(w, http.StatusOK, map[string]int{"id": summary.ID})
}

func (s *Server) handleSnakeDir(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.auth.bearerUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	snakeID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request")
		return
	}

	var body struct {
		Dir *int `json:"dir"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Dir == nil || *body.Dir < 1 || *body.Dir > 4 {
		writeError(w, http.StatusBadRequest, "bad_dir")
		return
	}

	if err := s.world.QueueDirectionInput(uid, snakeID, game.Dir(*body.Dir)); err != nil {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	writeOK(w)
}

func (s *Server) handleSnakePause(w http.ResponseWriter, r *http.Request) {
	uid, ok := s.auth.bearerUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	snakeID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request")
		return
	}

	if err := s.world.QueuePauseToggle(uid, snakeID); err != nil {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	writeOK(w)
}

// ListenAndServe starts the HTTP server. Write timeout stays unset because
// SSE streams hold their response open indefinitely.
func (s *Server) ListenAndServe(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.log.Info("server: listening", zap.String("addr", addr))
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Addr formats a host/port pair for ListenAndServe.
func Addr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
