// Playlog - Play Event Batching and Durable Aggregation
// Copyright 2026 Playlog Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/playlog-io/playlog

// Package database is the durable store for play history and aggregates,
// backed by an embedded DuckDB file.
//
// The store owns four tables: the append-only history log and three
// running-counter aggregates (per guild, per user-and-guild, per track
// URL). Writes arrive through two paths: WritePlayBatch, the transactional
// batch writer behind the tracker, and RecordPlay, the standalone
// single-play convenience.
//
// Every exported method fails fast with ErrNotInitialized when the store
// was never opened or has been closed. WithTx is the transaction
// primitive; all multi-statement writes go through it.
package database
