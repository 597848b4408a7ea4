// Playlog - Play Event Batching and Durable Aggregation
// Copyright 2026 Playlog Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/playlog-io/playlog

// Package services adapts each component's native lifecycle to suture's
// Serve(ctx) contract. Wrappers depend on small interfaces rather than
// the concrete components so they can be tested with mocks.
package services
