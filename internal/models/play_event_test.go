// Playlog - Play Event Batching and Durable Aggregation
// Copyright 2026 Playlog Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/playlog-io/playlog

package models

import (
	"testing"
	"time"
)

func TestNewPlayEventStampsQueuedAt(t *testing.T) {
	before := time.Now().UTC()
	e := NewPlayEvent("guild-1", "user-1", TrackInfo{Title: "Song"})
	after := time.Now().UTC()

	if e.QueuedAt.Before(before) || e.QueuedAt.After(after) {
		t.Errorf("QueuedAt = %v, want between %v and %v", e.QueuedAt, before, after)
	}
	if e.GuildID != "guild-1" || e.UserID != "user-1" {
		t.Errorf("identifiers not carried: %+v", e)
	}
}

func TestPlayEventValidate(t *testing.T) {
	valid := TrackInfo{Title: "Song", Author: "Artist", URL: "https://example.com/s", Duration: time.Minute}

	tests := []struct {
		name    string
		event   PlayEvent
		wantErr bool
	}{
		{"valid", PlayEvent{GuildID: "g", UserID: "u", Track: valid}, false},
		{"valid without url", PlayEvent{GuildID: "g", UserID: "u", Track: TrackInfo{Title: "Local File"}}, false},
		{"missing guild", PlayEvent{UserID: "u", Track: valid}, true},
		{"missing user", PlayEvent{GuildID: "g", Track: valid}, true},
		{"missing title", PlayEvent{GuildID: "g", UserID: "u", Track: TrackInfo{URL: "https://x"}}, true},
		{"negative duration", PlayEvent{GuildID: "g", UserID: "u", Track: TrackInfo{Title: "T", Duration: -time.Second}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
