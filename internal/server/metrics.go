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
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Process-level simulation metrics. Registration is eager; if no metrics
// endpoint is exposed the registrations are harmless.
var (
	ticksTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "snakeworld_ticks_total",
		Help: "Total simulation ticks advanced",
	})
	broadcastsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "snakeworld_broadcasts_total",
		Help: "Total snapshot sequence bumps",
	})
	gameEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "snakeworld_game_events_total",
		Help: "Gameplay events appended to the event log, by type",
	}, []string{"type"})
	flushErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "snakeworld_flush_errors_total",
		Help: "Persistence delta items that failed to flush",
	})
	flushDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "snakeworld_flush_duration_seconds",
		Help:    "Wall time of one persistence delta flush",
		Buckets: prometheus.DefBuckets,
	})
	sseClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "snakeworld_sse_clients",
		Help: "Currently connected SSE stream clients",
	})
)

func init() {
	prometheus.MustRegister(ticksTotal, broadcastsTotal, gameEventsTotal,
		flushErrorsTotal, flushDuration, sseClients)
}

// StartMetricsEndpoint serves /metrics on its own listener in a background
// goroutine. Call once with a non-empty addr.
func StartMetricsEndpoint(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		_ = srv.ListenAndServe()
	}()
}
