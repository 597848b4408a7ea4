// Playlog - Play Event Batching and Durable Aggregation
// Copyright 2026 Playlog Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/playlog-io/playlog

package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/playlog-io/playlog/internal/database"
	"github.com/playlog-io/playlog/internal/logging"
	"github.com/playlog-io/playlog/internal/metrics"
	"github.com/playlog-io/playlog/internal/models"
)

// writeWithRetry attempts the batch write up to MaxRetries times total,
// with linearly increasing delays between attempts: retry n waits
// n*RetryDelay before running. A context cancellation during the wait
// aborts the remaining retries and returns the context error wrapped
// around the last write error.
func (t *Tracker) writeWithRetry(ctx context.Context, events []*models.PlayEvent) (database.BatchResult, error) {
	var lastErr error

	for attempt := 1; attempt <= t.cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			t.retryCount.Add(1)
			metrics.RecordRetryAttempt()

			if err := sleepContext(ctx, t.retryDelay(attempt-1)); err != nil {
				return database.BatchResult{}, fmt.Errorf("retry aborted: %w (last write error: %v)", err, lastErr)
			}

			logging.Warn().
				Int("attempt", attempt).
				Int("max_retries", t.cfg.MaxRetries).
				Int("batch_size", len(events)).
				Err(lastErr).
				Msg("Retrying batch write")
		}

		result, err := t.writer.WritePlayBatch(ctx, events)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}

	return database.BatchResult{}, fmt.Errorf("batch write failed after %d attempts: %w", t.cfg.MaxRetries, lastErr)
}

// retryDelay returns the wait before the given retry (1-based: the first
// retry waits 1*RetryDelay, the second 2*RetryDelay).
func (t *Tracker) retryDelay(retry int) time.Duration {
	return time.Duration(retry) * t.cfg.RetryDelay
}

// sleepContext waits for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
