// Playlog - Play Event Batching and Durable Aggregation
// Copyright 2026 Playlog Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/playlog-io/playlog

package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/playlog-io/playlog/internal/config"
	"github.com/playlog-io/playlog/internal/logging"
)

// ErrNotInitialized is returned when a store operation is attempted before
// New has completed (or after Close). This indicates a wiring bug in the
// caller, not a runtime condition to recover from.
var ErrNotInitialized = fmt.Errorf("database is not initialized")

// DB wraps the DuckDB connection and provides the play history and
// aggregate data access methods.
//
// A DB returned by New is fully initialized: the connection is open, the
// schema exists, and pending migrations have been applied. Every exported
// method fails fast with ErrNotInitialized when called on a zero DB or
// after Close.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig
}

// New creates a new database connection and initializes the schema.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	// Ensure parent directory exists for the database file.
	// Use 0750 permissions (owner: rwx, group: rx, other: none) per gosec G301.
	if cfg.Path != ":memory:" {
		dbDir := filepath.Dir(cfg.Path)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
			}
		}
	}

	// Disable auto-install/auto-load to prevent hangs in restricted network
	// environments; no extensions are needed for the play history schema.
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, numThreads, cfg.MaxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{
		conn: conn,
		cfg:  cfg,
	}

	db.configureConnectionPool()

	if err := db.initialize(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Int("threads", numThreads).
		Msg("Database opened")

	return db, nil
}

// configureConnectionPool sets connection pool parameters.
func (db *DB) configureConnectionPool() {
	// Batch writes are serialized by the tracker's single-flush-in-flight
	// invariant; the extra connections serve the status endpoints.
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// initialize creates tables and runs pending migrations.
func (db *DB) initialize() error {
	if err := db.createTables(); err != nil {
		return err
	}

	if err := db.runVersionedMigrations(); err != nil {
		return err
	}

	if err := db.createIndexes(); err != nil {
		return err
	}

	// Flush the DuckDB WAL after schema initialization so a crash before the
	// first checkpoint cannot leave schema statements pending replay.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint after schema initialization")
	}

	return nil
}

// ready fails fast when the store has not been initialized or was closed.
func (db *DB) ready() error {
	if db == nil || db.conn == nil {
		return ErrNotInitialized
	}
	return nil
}

// Ping checks if the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.ready(); err != nil {
		return err
	}
	return db.conn.PingContext(ctx)
}

// Conn returns the underlying SQL database connection for packages that
// need direct access, such as package-level tests.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// checkpoint forces DuckDB to flush its WAL to the main database file.
func (db *DB) checkpoint(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}

// Close checkpoints and closes the database connection.
// After Close, all store operations fail with ErrNotInitialized.
func (db *DB) Close() error {
	if db == nil || db.conn == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.checkpoint(ctx); err != nil {
		// Best effort - the WAL replays on next open.
		logging.Warn().Err(err).Msg("Failed to checkpoint database before close")
	}
	cancel()

	conn := db.conn
	db.conn = nil
	return conn.Close()
}

// closeQuietly closes a resource, logging failures at debug level.
func closeQuietly(c interface{ Close() error }) {
	if err := c.Close(); err != nil {
		logging.Debug().Err(err).Msg("Failed to close resource")
	}
}
