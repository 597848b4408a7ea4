// Playlog - Play Event Batching and Durable Aggregation
// Copyright 2026 Playlog Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/playlog-io/playlog

// Package models holds the shared data types: the ingested play event,
// the stored history entry, and the three aggregate rows.
package models
