// Playlog - Play Event Batching and Durable Aggregation
// Copyright 2026 Playlog Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/playlog-io/playlog

package models

import (
	"fmt"
	"time"
)

// TrackInfo describes the track a play event refers to.
// URL may be empty for tracks resolved from local files or ephemeral
// streams; such events carry no key for the per-track aggregate.
type TrackInfo struct {
	Title    string        `json:"title"`
	Author   string        `json:"author"`
	URL      string        `json:"url,omitempty"`
	Duration time.Duration `json:"duration_ms"`
}

// PlayEvent is one ingested "a track was played" fact, pending durable
// storage. Events are ephemeral: they live in the tracker's buffer until a
// flush persists them, and have no identity beyond their position there.
type PlayEvent struct {
	GuildID  string    `json:"guild_id"`
	UserID   string    `json:"user_id"`
	Track    TrackInfo `json:"track"`
	QueuedAt time.Time `json:"queued_at"`
}

// NewPlayEvent creates a play event stamped with the current time.
func NewPlayEvent(guildID, userID string, track TrackInfo) *PlayEvent {
	return &PlayEvent{
		GuildID:  guildID,
		UserID:   userID,
		Track:    track,
		QueuedAt: time.Now().UTC(),
	}
}

// Validate checks the fields required for durable storage.
// Events failing validation are counted as row-level failures by the batch
// writer; they never abort a batch.
func (e *PlayEvent) Validate() error {
	if e.GuildID == "" {
		return fmt.Errorf("play event: guild id is required")
	}
	if e.UserID == "" {
		return fmt.Errorf("play event: user id is required")
	}
	if e.Track.Title == "" {
		return fmt.Errorf("play event: track title is required")
	}
	if e.Track.Duration < 0 {
		return fmt.Errorf("play event: track duration must not be negative")
	}
	return nil
}

// HistoryEntry is one durably stored play, as read back from the history
// log. PlayedAt is assigned by the store at insert time.
type HistoryEntry struct {
	ID       string    `json:"id"`
	GuildID  string    `json:"guild_id"`
	UserID   string    `json:"user_id"`
	Track    TrackInfo `json:"track"`
	QueuedAt time.Time `json:"queued_at"`
	PlayedAt time.Time `json:"played_at"`
}

// GuildStats is the running per-guild aggregate row.
type GuildStats struct {
	GuildID        string        `json:"guild_id"`
	TracksPlayed   int64         `json:"tracks_played"`
	ListeningTime  time.Duration `json:"listening_time_ms"`
	LastActivityAt time.Time     `json:"last_activity_at"`
}

// UserStats is the running per-(user, guild) aggregate row.
type UserStats struct {
	UserID         string        `json:"user_id"`
	GuildID        string        `json:"guild_id"`
	TracksPlayed   int64         `json:"tracks_played"`
	ListeningTime  time.Duration `json:"listening_time_ms"`
	LastActivityAt time.Time     `json:"last_activity_at"`
}

// TrackStats is the running per-track aggregate row, keyed by track URL.
type TrackStats struct {
	TrackURL      string        `json:"track_url"`
	Title         string        `json:"title"`
	Author        string        `json:"author"`
	PlayCount     int64         `json:"play_count"`
	TotalDuration time.Duration `json:"total_duration_ms"`
	LastPlayedAt  time.Time     `json:"last_played_at"`
}
