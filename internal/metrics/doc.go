// Playlog - Play Event Batching and Durable Aggregation
// Copyright 2026 Playlog Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/playlog-io/playlog

// Package metrics registers the Prometheus collectors for the pipeline
// and exposes small helpers so instrumented code never touches collector
// types directly.
package metrics
