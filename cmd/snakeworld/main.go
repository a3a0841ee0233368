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

// Package main is the snake world server binary.
//
// It wires the pieces together:
//  1. Resolve runtime and storage configuration from the environment.
//  2. Open the backing store and verify it is reachable.
//  3. Bootstrap the active economy policy row when none exists.
//  4. Restore the world from its checkpoint rows.
//  5. Run the tick/broadcast scheduler and the HTTP server, with graceful
//     shutdown flushing a final persistence delta.
//
// Besides serving, two maintenance modes exist: "seed" provisions the demo
// users with one snake each, and "reset" wipes all seven tables.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"snakeworld/internal/config"
	"snakeworld/internal/economy"
	"snakeworld/internal/game"
	"snakeworld/internal/server"
	"snakeworld/internal/storage"
)

func main() {
	mode := "serve"
	if len(os.Args) >= 2 {
		mode = os.Args[1]
	}
	if mode != "serve" && mode != "seed" && mode != "reset" {
		fmt.Fprintln(os.Stderr, "Usage: snakeworld [serve|seed|reset]")
		os.Exit(1)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg := config.FromEnv()
	logger.Info("runtime config",
		zap.Int("tick_hz", cfg.TickHz),
		zap.Int("spectator_hz", cfg.SpectatorHz),
		zap.Int("player_hz", cfg.PlayerHz),
		zap.Bool("enable_broadcast", cfg.EnableBroadcast),
		zap.Bool("debug_tps", cfg.DebugTPS),
		zap.Int("grid_w", cfg.GridW),
		zap.Int("grid_h", cfg.GridH))

	storageCfg, err := storage.ConfigFromEnv()
	if err != nil {
		logger.Fatal("storage config error", zap.Error(err))
	}
	store, err := storage.Open(storageCfg, logger)
	if err != nil {
		logger.Fatal("storage open failed", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := store.HealthCheck(ctx); err != nil {
		cancel()
		logger.Fatal("storage health check failed", zap.Error(err))
	}
	cancel()

	if err := bootstrapEconomyParams(store); err != nil {
		logger.Fatal("economy params bootstrap failed", zap.Error(err))
	}

	world := game.NewWorld(game.Config{
		Width:            cfg.GridW,
		Height:           cfg.GridH,
		FoodCount:        cfg.FoodCount,
		MaxSnakesPerUser: cfg.MaxSnakesPerUser,
	})
	world.ConfigureChunking(cfg.ChunkSize, cfg.SingleChunkMode)
	if err := world.LoadFromStorage(context.Background(), store); err != nil {
		logger.Fatal("world restore failed", zap.Error(err))
	}

	scheduler := server.NewScheduler(world, store, logger,
		cfg.TickInterval(), cfg.SpectatorInterval(), cfg.EnableBroadcast, cfg.DebugTPS)
	scheduler.FlushDelta(context.Background())

	switch mode {
	case "reset":
		if err := store.ResetForDev(context.Background()); err != nil {
			logger.Fatal("storage reset failed", zap.Error(err))
		}
		logger.Info("storage reset complete")
		return
	case "seed":
		if err := seed(store, world, scheduler, logger); err != nil {
			logger.Fatal("seed failed", zap.Error(err))
		}
		return
	}

	if cfg.MetricsAddr != "" {
		server.StartMetricsEndpoint(cfg.MetricsAddr)
		logger.Info("metrics endpoint up", zap.String("addr", cfg.MetricsAddr))
	}

	eco := economy.NewService(store, logger, cfg.EconomyCacheTTL())
	srv := server.New(cfg, world, store, eco, scheduler, logger)

	scheduler.Start()

	// SIGUSR1/SIGHUP ask the scheduler to reload the world from storage
	// without restarting.
	reloadCh := make(chan os.Signal, 1)
	signal.Notify(reloadCh, syscall.SIGUSR1, syscall.SIGHUP)
	go func() {
		for range reloadCh {
			logger.Info("reload signal received")
			scheduler.RequestReload()
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe(server.Addr(cfg.BindHost, cfg.BindPort))
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("http server failed", zap.Error(err))
		}
	}

	// Stop the scheduler first; it flushes the final persistence delta.
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}

// bootstrapEconomyParams writes the default active policy row when the
// store has none, so the economy read and write paths always find one.
func bootstrapEconomyParams(store storage.Store) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := store.GetEconomyParamsActive(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	params := storage.DefaultEconomyParams()
	params.UpdatedAt = time.Now().Unix()
	return store.PutEconomyParamsActiveAndVersioned(ctx, params, "bootstrap")
}

// seed provisions the demo users (user1/pass1, user2/pass2) and gives each
// a snake when they have none.
func seed(store storage.Store, world *game.World, scheduler *server.Scheduler, logger *zap.Logger) error {
	ctx := context.Background()

	users := []struct {
		id, username, password, color string
		uid                           int
	}{
		{"1", "user1", "pass1", "#00ff00", 1},
		{"2", "user2", "pass2", "#00aaff", 2},
	}
	for _, u := range users {
		if _, err := store.GetUserByID(ctx, u.id); err == nil {
			continue
		} else if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		err := store.PutUser(ctx, storage.UserRecord{
			UserID:       u.id,
			Username:     u.username,
			PasswordHash: u.password,
			CreatedAt:    time.Now().Unix(),
		})
		if err != nil {
			return err
		}
	}

	for _, u := range users {
		if len(world.ListUserSnakes(u.uid)) > 0 {
			continue
		}
		if _, err := world.CreateSnakeForUser(u.uid, u.color); err != nil {
			return err
		}
	}
	scheduler.FlushDelta(ctx)

	logger.Info("seeded demo users", zap.String("users", "user1/pass1, user2/pass2"))
	return nil
}
