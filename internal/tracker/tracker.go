// Playlog - Play Event Batching and Durable Aggregation
// Copyright 2026 Playlog Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/playlog-io/playlog

package tracker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/playlog-io/playlog/internal/config"
	"github.com/playlog-io/playlog/internal/database"
	"github.com/playlog-io/playlog/internal/logging"
	"github.com/playlog-io/playlog/internal/metrics"
	"github.com/playlog-io/playlog/internal/models"
)

// ErrTrackerClosed is returned by Enqueue after Shutdown has begun.
var ErrTrackerClosed = fmt.Errorf("tracker is closed")

// BatchWriter persists a drained batch. *database.DB is the production
// implementation; tests substitute mocks.
type BatchWriter interface {
	WritePlayBatch(ctx context.Context, events []*models.PlayEvent) (database.BatchResult, error)
}

// FlushResult reports the outcome of one flush cycle.
type FlushResult struct {
	Flushed int           // events durably written
	Failed  int           // events skipped by row-level validation
	Elapsed time.Duration // wall time of the write, including retries
}

// Tracker buffers play events in arrival order and flushes them to the
// batch writer when either the flush interval elapses or the buffer
// reaches capacity, whichever comes first.
//
// At most one flush runs at a time. A flush triggered while another is in
// flight returns immediately with an empty result; the events it would
// have drained are picked up by the next cycle. Shutdown is the one caller
// that waits for the in-flight flush instead of yielding.
type Tracker struct {
	cfg    *config.TrackerConfig
	writer BatchWriter

	mu          sync.Mutex
	pending     []*models.PlayEvent
	closed      bool
	lastFlushAt time.Time
	lastError   error

	// flushMu serializes flush cycles. Flush acquires it with TryLock so
	// concurrent triggers collapse into one write; Shutdown blocks on it.
	flushMu sync.Mutex

	// flushRequested gates the capacity trigger: at most one flush
	// goroutine is spawned per burst, not one per over-capacity Enqueue.
	flushRequested atomic.Bool

	listenerMu sync.RWMutex
	listeners  []Listener

	ticker *time.Ticker

	// Lifetime counters for the stats endpoint.
	totalEnqueued atomic.Uint64
	totalFlushed  atomic.Uint64
	totalFailed   atomic.Uint64
	totalDropped  atomic.Uint64
	flushCount    atomic.Uint64
	retryCount    atomic.Uint64
}

// New creates a tracker flushing to writer. Call Run to start the interval
// timer; events enqueued before Run still flush on the capacity trigger.
func New(cfg *config.TrackerConfig, writer BatchWriter) *Tracker {
	return &Tracker{
		cfg:     cfg,
		writer:  writer,
		pending: make([]*models.PlayEvent, 0, cfg.MaxQueueSize),
	}
}

// Enqueue appends a play event to the buffer. It never blocks on I/O: when
// the buffer reaches capacity the flush runs on its own goroutine and
// Enqueue returns immediately.
//
// Returns ErrTrackerClosed once Shutdown has begun; the event is not
// buffered and the caller should drop it.
func (t *Tracker) Enqueue(event *models.PlayEvent) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		metrics.RecordRejected()
		return ErrTrackerClosed
	}

	t.pending = append(t.pending, event)
	size := len(t.pending)
	t.mu.Unlock()

	t.totalEnqueued.Add(1)
	metrics.RecordEnqueue()
	metrics.UpdatePendingEvents(size)

	if size >= t.cfg.MaxQueueSize && t.flushRequested.CompareAndSwap(false, true) {
		go func() {
			defer t.flushRequested.Store(false)
			t.Flush(context.Background())
		}()
	}

	return nil
}

// Run flushes the buffer on every interval tick until ctx is cancelled.
// It does not perform the final flush; that belongs to Shutdown, which the
// lifecycle owner calls after cancelling ctx.
func (t *Tracker) Run(ctx context.Context) error {
	t.ticker = time.NewTicker(t.cfg.FlushInterval)
	defer t.ticker.Stop()

	logging.Info().
		Dur("flush_interval", t.cfg.FlushInterval).
		Int("max_queue_size", t.cfg.MaxQueueSize).
		Msg("Tracker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.ticker.C:
			t.Flush(context.Background())
		}
	}
}

// Flush drains the buffer and writes the drained batch through the retry
// controller. If another flush is already in flight it returns an empty
// result immediately without touching the buffer.
//
// On retry exhaustion the batch is re-queued at the head of the buffer so
// arrival order survives, error listeners are notified, and the returned
// result is empty.
func (t *Tracker) Flush(ctx context.Context) FlushResult {
	if !t.flushMu.TryLock() {
		return FlushResult{}
	}
	defer t.flushMu.Unlock()

	return t.flushLocked(ctx)
}

// flushLocked runs one flush cycle. Caller holds flushMu.
func (t *Tracker) flushLocked(ctx context.Context) FlushResult {
	t.mu.Lock()
	if len(t.pending) == 0 {
		t.mu.Unlock()
		return FlushResult{}
	}
	batch := t.pending
	t.pending = make([]*models.PlayEvent, 0, t.cfg.MaxQueueSize)
	t.mu.Unlock()

	metrics.UpdatePendingEvents(0)

	start := time.Now()
	result, err := t.writeWithRetry(ctx, batch)
	elapsed := time.Since(start)

	if err != nil {
		t.requeueHead(batch)
		t.mu.Lock()
		t.lastError = err
		t.mu.Unlock()
		metrics.RecordFlushError()
		logging.Error().
			Err(err).
			Int("batch_size", len(batch)).
			Int("max_retries", t.cfg.MaxRetries).
			Msg("Flush failed after exhausting retries, batch re-queued")
		t.notifyError(err)
		return FlushResult{}
	}

	t.flushCount.Add(1)
	t.totalFlushed.Add(uint64(result.Flushed))
	t.totalFailed.Add(uint64(result.Failed))
	t.mu.Lock()
	t.lastFlushAt = time.Now().UTC()
	t.lastError = nil
	t.mu.Unlock()
	metrics.RecordFlush(elapsed, result.Flushed, result.Failed)

	fr := FlushResult{Flushed: result.Flushed, Failed: result.Failed, Elapsed: elapsed}

	logging.Debug().
		Int("flushed", fr.Flushed).
		Int("failed", fr.Failed).
		Dur("elapsed", elapsed).
		Msg("Flush completed")

	t.notifyFlush(fr)
	return fr
}

// requeueHead puts a failed batch back at the head of the buffer, ahead of
// events that arrived during the write. When the combined buffer exceeds
// the pending-size bound the oldest events are dropped first.
func (t *Tracker) requeueHead(batch []*models.PlayEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pending = append(batch, t.pending...)

	if bound := t.cfg.MaxPendingEvents; bound > 0 && len(t.pending) > bound {
		dropped := len(t.pending) - bound
		t.pending = t.pending[dropped:]
		t.totalDropped.Add(uint64(dropped))
		metrics.RecordDropped(dropped)
		logging.Warn().
			Int("dropped", dropped).
			Int("max_pending_events", bound).
			Msg("Pending buffer over bound, dropped oldest events")
	}

	metrics.UpdatePendingEvents(len(t.pending))
}

// Shutdown stops accepting events and performs the final flush. Unlike
// Flush it waits for any in-flight flush to finish first, so no buffered
// event is silently abandoned. The final flush is not retried past the
// usual retry budget; events still unwritten when ctx expires are lost and
// logged.
func (t *Tracker) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	remaining := len(t.pending)
	t.mu.Unlock()

	logging.Info().Int("pending", remaining).Msg("Tracker shutting down, flushing remaining events")

	// Blocks until the in-flight flush (if any) completes.
	t.flushMu.Lock()
	defer t.flushMu.Unlock()

	t.flushLocked(ctx)

	t.mu.Lock()
	lost := len(t.pending)
	t.mu.Unlock()
	if lost > 0 {
		logging.Error().Int("lost", lost).Msg("Events remained unwritten at shutdown")
		return fmt.Errorf("shutdown flush left %d events unwritten", lost)
	}

	return nil
}

// Pending returns the current buffer size.
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Stats is a snapshot of the tracker's lifetime counters.
type Stats struct {
	Pending       int       `json:"pending"`
	Closed        bool      `json:"closed"`
	TotalEnqueued uint64    `json:"total_enqueued"`
	TotalFlushed  uint64    `json:"total_flushed"`
	TotalFailed   uint64    `json:"total_failed"`
	TotalDropped  uint64    `json:"total_dropped"`
	FlushCount    uint64    `json:"flush_count"`
	RetryCount    uint64    `json:"retry_count"`
	LastFlushAt   time.Time `json:"last_flush_at"`
	LastError     string    `json:"last_error,omitempty"`
}

// Stats returns a snapshot of the tracker's counters for the status API.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	pending := len(t.pending)
	closed := t.closed
	lastFlushAt := t.lastFlushAt
	lastError := ""
	if t.lastError != nil {
		lastError = t.lastError.Error()
	}
	t.mu.Unlock()

	return Stats{
		Pending:       pending,
		Closed:        closed,
		TotalEnqueued: t.totalEnqueued.Load(),
		TotalFlushed:  t.totalFlushed.Load(),
		TotalFailed:   t.totalFailed.Load(),
		TotalDropped:  t.totalDropped.Load(),
		FlushCount:    t.flushCount.Load(),
		RetryCount:    t.retryCount.Load(),
		LastFlushAt:   lastFlushAt,
		LastError:     lastError,
	}
}
