// Playlog - Play Event Batching and Durable Aggregation
// Copyright 2026 Playlog Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/playlog-io/playlog

package database

import (
	"context"
	"fmt"

	"github.com/playlog-io/playlog/internal/logging"
)

// IntegrityCheck verifies that the store is usable: the connection answers
// a ping, every required table exists, and a trivial aggregate query
// executes. It returns true only when all checks pass; failures are logged
// with the failing check named.
//
// This backs the /healthz endpoint, so it must be cheap enough to run on
// every probe.
func (db *DB) IntegrityCheck(ctx context.Context) bool {
	if err := db.ready(); err != nil {
		logging.Error().Err(err).Msg("Integrity check failed: store not initialized")
		return false
	}

	if err := db.conn.PingContext(ctx); err != nil {
		logging.Error().Err(err).Msg("Integrity check failed: ping")
		return false
	}

	for _, table := range requiredTables {
		if err := db.tableExists(ctx, table); err != nil {
			logging.Error().Err(err).Str("table", table).Msg("Integrity check failed: missing table")
			return false
		}
	}

	var count int64
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM history`).Scan(&count); err != nil {
		logging.Error().Err(err).Msg("Integrity check failed: history probe")
		return false
	}

	return true
}

// tableExists checks the information schema for a table by name.
func (db *DB) tableExists(ctx context.Context, name string) error {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM information_schema.tables WHERE table_name = ?`, name).Scan(&count)
	if err != nil {
		return fmt.Errorf("query information_schema for %s: %w", name, err)
	}
	if count == 0 {
		return fmt.Errorf("table %s does not exist", name)
	}
	return nil
}
