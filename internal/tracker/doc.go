// Playlog - Play Event Batching and Durable Aggregation
// Copyright 2026 Playlog Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/playlog-io/playlog

// Package tracker buffers play events and flushes them to the durable
// store in batches.
//
// Two triggers drain the buffer: a periodic timer (Run) and a capacity
// threshold checked on every Enqueue. Both funnel into Flush, which
// guarantees a single flush in flight; a trigger firing during a write
// yields instead of queueing a second one.
//
// Failed batch writes are retried with linear backoff. When the retry
// budget is exhausted the batch returns to the head of the buffer, so
// arrival order is preserved across transient store outages, bounded by a
// pending-size cap that drops the oldest events under sustained failure.
package tracker
