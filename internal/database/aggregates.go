// Playlog - Play Event Batching and Durable Aggregation
// Copyright 2026 Playlog Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/playlog-io/playlog

/*
aggregates.go - Aggregate Recorder

Maintains the three running-counter tables (guild_stats, user_stats,
track_stats) with upsert-increment statements: insert the row with initial
values, and on primary-key conflict add to the existing values. First-time
and repeat plays are handled by the same statement, with no separate
existence check and no read-modify-write race.

recordPlayTx runs inside a caller-owned transaction (the batch writer's),
so a failure of any one upsert aborts all of them together. RecordPlay is
the standalone variant that opens its own transaction.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/playlog-io/playlog/internal/metrics"
	"github.com/playlog-io/playlog/internal/models"
)

// recordPlayTx applies one play to all three aggregate tables inside tx.
// Events without a track URL update guild and user stats only; there is no
// key for the per-track row.
func recordPlayTx(tx *sql.Tx, guildID, userID string, track models.TrackInfo, playedAt time.Time) error {
	durationMs := track.Duration.Milliseconds()

	_, err := tx.Exec(`
		INSERT INTO guild_stats (guild_id, tracks_played, listening_time_ms, last_activity_at)
		VALUES (?, 1, ?, ?)
		ON CONFLICT (guild_id) DO UPDATE SET
			tracks_played = guild_stats.tracks_played + 1,
			listening_time_ms = guild_stats.listening_time_ms + excluded.listening_time_ms,
			last_activity_at = excluded.last_activity_at`,
		guildID, durationMs, playedAt)
	if err != nil {
		return fmt.Errorf("upsert guild_stats for %s: %w", guildID, err)
	}
	metrics.RecordAggregateUpsert("guild_stats")

	_, err = tx.Exec(`
		INSERT INTO user_stats (user_id, guild_id, tracks_played, listening_time_ms, last_activity_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT (user_id, guild_id) DO UPDATE SET
			tracks_played = user_stats.tracks_played + 1,
			listening_time_ms = user_stats.listening_time_ms + excluded.listening_time_ms,
			last_activity_at = excluded.last_activity_at`,
		userID, guildID, durationMs, playedAt)
	if err != nil {
		return fmt.Errorf("upsert user_stats for %s/%s: %w", userID, guildID, err)
	}
	metrics.RecordAggregateUpsert("user_stats")

	if track.URL != "" {
		_, err = tx.Exec(`
			INSERT INTO track_stats (track_url, track_title, track_author, play_count, total_duration_ms, last_played_at)
			VALUES (?, ?, ?, 1, ?, ?)
			ON CONFLICT (track_url) DO UPDATE SET
				track_title = excluded.track_title,
				track_author = excluded.track_author,
				play_count = track_stats.play_count + 1,
				total_duration_ms = track_stats.total_duration_ms + excluded.total_duration_ms,
				last_played_at = excluded.last_played_at`,
			track.URL, track.Title, track.Author, durationMs, playedAt)
		if err != nil {
			return fmt.Errorf("upsert track_stats for %s: %w", track.URL, err)
		}
		metrics.RecordAggregateUpsert("track_stats")
	}

	return nil
}

// RecordPlay applies one play to the guild, user, and track aggregates in a
// single transaction, all-or-nothing. This is the convenience API for
// callers recording a play outside the batch path.
func (db *DB) RecordPlay(ctx context.Context, guildID, userID string, track models.TrackInfo) error {
	start := time.Now()
	err := db.WithTx(ctx, func(tx *sql.Tx) error {
		return recordPlayTx(tx, guildID, userID, track, time.Now().UTC())
	})
	if err != nil {
		metrics.RecordDBError("record_play")
		return err
	}
	metrics.RecordDBQuery("record_play", time.Since(start))
	return nil
}

// GuildStats returns the aggregate row for a guild, or nil if the guild has
// no recorded plays yet.
func (db *DB) GuildStats(ctx context.Context, guildID string) (*models.GuildStats, error) {
	if err := db.ready(); err != nil {
		return nil, err
	}

	var (
		s           models.GuildStats
		listeningMs int64
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT guild_id, tracks_played, listening_time_ms, last_activity_at
		FROM guild_stats WHERE guild_id = ?`, guildID).
		Scan(&s.GuildID, &s.TracksPlayed, &listeningMs, &s.LastActivityAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		metrics.RecordDBError("guild_stats")
		return nil, fmt.Errorf("query guild_stats for %s: %w", guildID, err)
	}

	s.ListeningTime = time.Duration(listeningMs) * time.Millisecond
	return &s, nil
}

// UserStatsForGuild returns the per-user aggregate rows for a guild,
// ordered by tracks played descending.
func (db *DB) UserStatsForGuild(ctx context.Context, guildID string) ([]*models.UserStats, error) {
	if err := db.ready(); err != nil {
		return nil, err
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT user_id, guild_id, tracks_played, listening_time_ms, last_activity_at
		FROM user_stats WHERE guild_id = ?
		ORDER BY tracks_played DESC, user_id`, guildID)
	if err != nil {
		metrics.RecordDBError("user_stats")
		return nil, fmt.Errorf("query user_stats for guild %s: %w", guildID, err)
	}
	defer rows.Close()

	var stats []*models.UserStats
	for rows.Next() {
		var (
			s           models.UserStats
			listeningMs int64
		)
		if err := rows.Scan(&s.UserID, &s.GuildID, &s.TracksPlayed, &listeningMs, &s.LastActivityAt); err != nil {
			return nil, fmt.Errorf("scan user_stats row: %w", err)
		}
		s.ListeningTime = time.Duration(listeningMs) * time.Millisecond
		stats = append(stats, &s)
	}
	return stats, rows.Err()
}

// UserStats returns the aggregate row for one (user, guild) pair, or nil if
// the pair has no recorded plays yet.
func (db *DB) UserStats(ctx context.Context, userID, guildID string) (*models.UserStats, error) {
	if err := db.ready(); err != nil {
		return nil, err
	}

	var (
		s           models.UserStats
		listeningMs int64
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT user_id, guild_id, tracks_played, listening_time_ms, last_activity_at
		FROM user_stats WHERE user_id = ? AND guild_id = ?`, userID, guildID).
		Scan(&s.UserID, &s.GuildID, &s.TracksPlayed, &listeningMs, &s.LastActivityAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		metrics.RecordDBError("user_stats")
		return nil, fmt.Errorf("query user_stats for %s/%s: %w", userID, guildID, err)
	}

	s.ListeningTime = time.Duration(listeningMs) * time.Millisecond
	return &s, nil
}

// TopTracks returns the most-played tracks across all guilds.
func (db *DB) TopTracks(ctx context.Context, limit int) ([]*models.TrackStats, error) {
	if err := db.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT track_url, track_title, track_author, play_count, total_duration_ms, last_played_at
		FROM track_stats
		ORDER BY play_count DESC, last_played_at DESC
		LIMIT ?`, limit)
	if err != nil {
		metrics.RecordDBError("top_tracks")
		return nil, fmt.Errorf("query top tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*models.TrackStats
	for rows.Next() {
		var (
			t          models.TrackStats
			author     sql.NullString
			durationMs int64
		)
		if err := rows.Scan(&t.TrackURL, &t.Title, &author, &t.PlayCount, &durationMs, &t.LastPlayedAt); err != nil {
			return nil, fmt.Errorf("scan track_stats row: %w", err)
		}
		t.Author = author.String
		t.TotalDuration = time.Duration(durationMs) * time.Millisecond
		tracks = append(tracks, &t)
	}
	return tracks, rows.Err()
}

// TrackStats returns the aggregate row for one track URL, or nil if the
// track has no recorded plays yet.
func (db *DB) TrackStats(ctx context.Context, trackURL string) (*models.TrackStats, error) {
	if err := db.ready(); err != nil {
		return nil, err
	}

	var (
		t          models.TrackStats
		author     sql.NullString
		durationMs int64
	)
	err := db.conn.QueryRowContext(ctx, `
		SELECT track_url, track_title, track_author, play_count, total_duration_ms, last_played_at
		FROM track_stats WHERE track_url = ?`, trackURL).
		Scan(&t.TrackURL, &t.Title, &author, &t.PlayCount, &durationMs, &t.LastPlayedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		metrics.RecordDBError("track_stats")
		return nil, fmt.Errorf("query track_stats for %s: %w", trackURL, err)
	}

	t.Author = author.String
	t.TotalDuration = time.Duration(durationMs) * time.Millisecond
	return &t, nil
}
