// Playlog - Play Event Batching and Durable Aggregation
// Copyright 2026 Playlog Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/playlog-io/playlog

/*
history.go - Transactional Batch Writer

WritePlayBatch is the durable half of the pipeline: it takes the batch the
tracker drained and writes every event's history row plus its three
aggregate upserts inside one transaction.

Failure handling distinguishes two levels:
  - Row-level: an event that fails validation is skipped, logged, and
    counted in BatchResult.Failed. The rest of the batch proceeds.
  - Transaction-level: a failed INSERT or a failed commit aborts the whole
    batch and returns an error, leaving the database untouched. The caller
    (the retry controller) treats this as retryable.

Validation happens before any statement executes so a malformed event can
never poison the transaction for its batch-mates.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/playlog-io/playlog/internal/logging"
	"github.com/playlog-io/playlog/internal/metrics"
	"github.com/playlog-io/playlog/internal/models"
)

// BatchResult reports the outcome of a batch write.
type BatchResult struct {
	Flushed int // events durably written
	Failed  int // events skipped by row-level validation
}

// WritePlayBatch writes a batch of play events in a single transaction:
// one history row and three aggregate upserts per event. Events that fail
// validation are counted in Failed and skipped; any database error rolls
// the whole batch back.
func (db *DB) WritePlayBatch(ctx context.Context, events []*models.PlayEvent) (BatchResult, error) {
	var result BatchResult

	if len(events) == 0 {
		return result, nil
	}

	start := time.Now()

	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO history (id, guild_id, user_id, track_title, track_author, track_url, track_duration_ms, queued_at, played_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare history insert: %w", err)
		}
		defer closeQuietly(stmt)

		for _, event := range events {
			if err := event.Validate(); err != nil {
				result.Failed++
				logging.Warn().
					Err(err).
					Str("guild_id", event.GuildID).
					Str("user_id", event.UserID).
					Str("track_title", event.Track.Title).
					Msg("Skipping invalid play event")
				continue
			}

			playedAt := time.Now().UTC()

			_, err := stmt.Exec(
				uuid.New().String(),
				event.GuildID,
				event.UserID,
				event.Track.Title,
				nullableString(event.Track.Author),
				nullableString(event.Track.URL),
				event.Track.Duration.Milliseconds(),
				event.QueuedAt.UTC(),
				playedAt,
			)
			if err != nil {
				return fmt.Errorf("insert history row for guild %s: %w", event.GuildID, err)
			}

			if err := recordPlayTx(tx, event.GuildID, event.UserID, event.Track, playedAt); err != nil {
				return err
			}

			result.Flushed++
		}

		return nil
	})
	if err != nil {
		metrics.RecordDBError("write_play_batch")
		return BatchResult{}, err
	}

	metrics.RecordDBQuery("write_play_batch", time.Since(start))

	logging.Debug().
		Int("flushed", result.Flushed).
		Int("failed", result.Failed).
		Dur("elapsed", time.Since(start)).
		Msg("Play batch written")

	return result, nil
}

// CountHistory returns the total number of durably stored plays.
func (db *DB) CountHistory(ctx context.Context) (int64, error) {
	if err := db.ready(); err != nil {
		return 0, err
	}

	var count int64
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM history`).Scan(&count)
	if err != nil {
		metrics.RecordDBError("count_history")
		return 0, fmt.Errorf("count history: %w", err)
	}
	return count, nil
}

// RecentHistory returns the most recently played entries for a guild,
// newest first.
func (db *DB) RecentHistory(ctx context.Context, guildID string, limit int) ([]*models.HistoryEntry, error) {
	if err := db.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 25
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, guild_id, user_id, track_title, track_author, track_url, track_duration_ms, queued_at, played_at
		FROM history WHERE guild_id = ?
		ORDER BY played_at DESC
		LIMIT ?`, guildID, limit)
	if err != nil {
		metrics.RecordDBError("recent_history")
		return nil, fmt.Errorf("query recent history for guild %s: %w", guildID, err)
	}
	defer rows.Close()

	var entries []*models.HistoryEntry
	for rows.Next() {
		var (
			e          models.HistoryEntry
			author     sql.NullString
			trackURL   sql.NullString
			durationMs int64
		)
		err := rows.Scan(&e.ID, &e.GuildID, &e.UserID, &e.Track.Title, &author, &trackURL,
			&durationMs, &e.QueuedAt, &e.PlayedAt)
		if err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		e.Track.Author = author.String
		e.Track.URL = trackURL.String
		e.Track.Duration = time.Duration(durationMs) * time.Millisecond
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// nullableString maps the empty string to SQL NULL.
func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
