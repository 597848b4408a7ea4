// Playlog - Play Event Batching and Durable Aggregation
// Copyright 2026 Playlog Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/playlog-io/playlog

// Package supervisor builds the suture supervision tree for the daemon.
// Services live in the services subpackage as thin adapters between each
// component's native lifecycle and suture's Serve(ctx) contract.
package supervisor
