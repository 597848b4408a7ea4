// Playlog - Play Event Batching and Durable Aggregation
// Copyright 2026 Playlog Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/playlog-io/playlog

/*
schema.go - Database Schema Management

Tables:
  - history: append-only log, one row per durably written play event
  - guild_stats: running totals per guild (upsert-increment)
  - user_stats: running totals per (user, guild) pair (upsert-increment)
  - track_stats: running totals per distinct track URL (upsert-increment)

All four tables are created up front; rows in the aggregate tables are
created lazily by the first upsert that references their key.

Index Strategy:
The history table is read by aggregate-style queries (per guild, per user,
recency), never by exact sequence, so indexes cover the grouping columns
and played_at.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// requiredTables lists every table the integrity check expects to exist.
var requiredTables = []string{
	"history",
	"guild_stats",
	"user_stats",
	"track_stats",
	"schema_migrations",
}

// createTables creates the core database tables.
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}

	return nil
}

// tableCreationQueries returns the table creation SQL statements.
func tableCreationQueries() []string {
	return []string{
		// Append-only play history log. played_at is server-assigned at
		// insert time; queued_at is the producer's timestamp.
		`CREATE TABLE IF NOT EXISTS history (
			id UUID PRIMARY KEY,
			guild_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			track_title TEXT NOT NULL,
			track_author TEXT,
			track_url TEXT,
			track_duration_ms BIGINT NOT NULL DEFAULT 0,
			queued_at TIMESTAMP NOT NULL,
			played_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// One row per guild, created lazily on first play.
		`CREATE TABLE IF NOT EXISTS guild_stats (
			guild_id TEXT PRIMARY KEY,
			tracks_played BIGINT NOT NULL DEFAULT 0,
			listening_time_ms BIGINT NOT NULL DEFAULT 0,
			last_activity_at TIMESTAMP NOT NULL
		)`,

		// One row per (user, guild) pair.
		`CREATE TABLE IF NOT EXISTS user_stats (
			user_id TEXT NOT NULL,
			guild_id TEXT NOT NULL,
			tracks_played BIGINT NOT NULL DEFAULT 0,
			listening_time_ms BIGINT NOT NULL DEFAULT 0,
			last_activity_at TIMESTAMP NOT NULL,
			PRIMARY KEY (user_id, guild_id)
		)`,

		// One row per distinct track URL, independent of guild and user.
		`CREATE TABLE IF NOT EXISTS track_stats (
			track_url TEXT PRIMARY KEY,
			track_title TEXT NOT NULL,
			track_author TEXT,
			play_count BIGINT NOT NULL DEFAULT 0,
			total_duration_ms BIGINT NOT NULL DEFAULT 0,
			last_played_at TIMESTAMP NOT NULL
		)`,
	}
}

// createIndexes creates indexes for the history query patterns.
func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_history_guild ON history (guild_id, played_at)`,
		`CREATE INDEX IF NOT EXISTS idx_history_user ON history (user_id, guild_id, played_at)`,
		`CREATE INDEX IF NOT EXISTS idx_history_track_url ON history (track_url)`,
	}

	for _, query := range indexes {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", query, err)
		}
	}

	return nil
}
