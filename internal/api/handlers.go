// Playlog - Play Event Batching and Durable Aggregation
// Copyright 2026 Playlog Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/playlog-io/playlog

package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/playlog-io/playlog/internal/logging"
)

// APIResponse is the envelope for every JSON response.
type APIResponse struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, response *APIResponse) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Debug().Err(err).Msg("Failed to write response body")
	}
}

func respondOK(w http.ResponseWriter, data interface{}) {
	respondJSON(w, http.StatusOK, &APIResponse{Status: "ok", Data: data})
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, &APIResponse{Status: "error", Error: msg})
}

// handleHealth runs the store integrity check. 200 when the store answers
// and all tables exist, 503 otherwise.
func (router *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if !router.db.IntegrityCheck(ctx) {
		respondError(w, http.StatusServiceUnavailable, "store integrity check failed")
		return
	}
	respondOK(w, map[string]string{"status": "healthy"})
}

// handleTrackerStats returns the tracker's lifetime counters and buffer
// depth.
func (router *Router) handleTrackerStats(w http.ResponseWriter, r *http.Request) {
	respondOK(w, router.tracker.Stats())
}

// handleGuildStats returns the running aggregate for one guild.
func (router *Router) handleGuildStats(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	stats, err := router.db.GuildStats(r.Context(), guildID)
	if err != nil {
		logging.Error().Err(err).Str("guild_id", guildID).Msg("Guild stats query failed")
		respondError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if stats == nil {
		respondError(w, http.StatusNotFound, "no plays recorded for guild")
		return
	}
	respondOK(w, stats)
}

// handleGuildUsers returns per-user aggregates for a guild, most active
// first.
func (router *Router) handleGuildUsers(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	stats, err := router.db.UserStatsForGuild(r.Context(), guildID)
	if err != nil {
		logging.Error().Err(err).Str("guild_id", guildID).Msg("User stats query failed")
		respondError(w, http.StatusInternalServerError, "query failed")
		return
	}
	respondOK(w, stats)
}

// handleGuildHistory returns the most recent plays for a guild.
func (router *Router) handleGuildHistory(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	limit := queryLimit(r, 25)

	entries, err := router.db.RecentHistory(r.Context(), guildID, limit)
	if err != nil {
		logging.Error().Err(err).Str("guild_id", guildID).Msg("History query failed")
		respondError(w, http.StatusInternalServerError, "query failed")
		return
	}
	respondOK(w, entries)
}

// handleTopTracks returns the most-played tracks across all guilds.
func (router *Router) handleTopTracks(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 10)

	tracks, err := router.db.TopTracks(r.Context(), limit)
	if err != nil {
		logging.Error().Err(err).Msg("Top tracks query failed")
		respondError(w, http.StatusInternalServerError, "query failed")
		return
	}
	respondOK(w, tracks)
}

// queryLimit parses the "limit" query parameter, capped at 500.
func queryLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}
