// Playlog - Play Event Batching and Durable Aggregation
// Copyright 2026 Playlog Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/playlog-io/playlog

// Package main is the entry point for the playlog daemon.
//
// Playlog ingests "a track was played" events, batches them in memory, and
// writes them durably to an embedded DuckDB file together with running
// per-guild, per-user, and per-track aggregates.
//
// # Startup Order
//
//  1. Configuration: defaults, config.yaml, then PLAYLOG_* environment
//     variables (Koanf v2)
//  2. Database: open DuckDB, create schema, run pending migrations
//  3. Tracker: build the event buffer over the batch writer
//  4. Supervisor tree: tracker flush loop and HTTP status server
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the HTTP server drains
// in-flight requests, the tracker performs its final flush, and the
// database checkpoints before closing.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/playlog-io/playlog/internal/api"
	"github.com/playlog-io/playlog/internal/config"
	"github.com/playlog-io/playlog/internal/database"
	"github.com/playlog-io/playlog/internal/logging"
	"github.com/playlog-io/playlog/internal/supervisor"
	"github.com/playlog-io/playlog/internal/supervisor/services"
	"github.com/playlog-io/playlog/internal/tracker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Default logger; config not yet available.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Int("max_queue_size", cfg.Tracker.MaxQueueSize).
		Dur("flush_interval", cfg.Tracker.FlushInterval).
		Msg("Starting playlog")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	tr := tracker.New(&cfg.Tracker, db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridge zerolog to slog for sutureslog.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	tree.AddIngestService(services.NewTrackerService(tr, cfg.Tracker.ShutdownTimeout))

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           api.NewRouter(db, tr).Handler(),
		ReadHeaderTimeout: cfg.Server.Timeout,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Playlog stopped gracefully")
}
