// Playlog - Play Event Batching and Durable Aggregation
// Copyright 2026 Playlog Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/playlog-io/playlog

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/playlog-io/playlog/internal/database"
	"github.com/playlog-io/playlog/internal/tracker"
)

// Router serves the operator surface: health, pipeline stats, aggregate
// reads, and Prometheus metrics. It performs no ingestion; play events
// enter through the tracker API, not HTTP.
type Router struct {
	db      *database.DB
	tracker *tracker.Tracker
}

// NewRouter creates the API router over the store and tracker.
func NewRouter(db *database.DB, tr *tracker.Tracker) *Router {
	return &Router{
		db:      db,
		tracker: tr,
	}
}

// Handler builds the chi handler with all routes registered.
func (router *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", router.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stats/tracker", router.handleTrackerStats)
		r.Get("/stats/guilds/{guildID}", router.handleGuildStats)
		r.Get("/stats/guilds/{guildID}/users", router.handleGuildUsers)
		r.Get("/stats/guilds/{guildID}/history", router.handleGuildHistory)
		r.Get("/stats/tracks/top", router.handleTopTracks)
	})

	return r
}
