// Playlog - Play Event Batching and Durable Aggregation
// Copyright 2026 Playlog Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/playlog-io/playlog

// Package api is the read-only HTTP operator surface: health probe,
// tracker counters, aggregate queries, and Prometheus metrics.
package api
