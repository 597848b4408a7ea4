// Playlog - Play Event Batching and Durable Aggregation
// Copyright 2026 Playlog Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/playlog-io/playlog

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/playlog-io/playlog/internal/logging"
	"github.com/playlog-io/playlog/internal/metrics"
)

// WithTx runs fn inside a single database transaction and commits it when
// fn returns nil. Any error from fn (or a panic) rolls the whole
// transaction back, so fn's writes are all-or-nothing.
//
// The transaction handle is held explicitly across fn's statements; the
// tracker's single-flush-in-flight invariant guarantees no two batch
// transactions ever overlap on this handle.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	if err := db.ready(); err != nil {
		return err
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		metrics.RecordDBError("begin_tx")
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.Error().Err(rbErr).Msg("Transaction rollback failed after panic")
			}
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.Error().
					Err(rbErr).
					AnErr("original_error", err).
					Msg("Transaction rollback failed")
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		metrics.RecordDBError("commit_tx")
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
