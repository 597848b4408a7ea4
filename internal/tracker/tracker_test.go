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
	"testing"
	"time"

	"github.com/playlog-io/playlog/internal/config"
	"github.com/playlog-io/playlog/internal/database"
	"github.com/playlog-io/playlog/internal/models"
)

// mockWriter records every batch it receives and can be scripted to fail
// the first failures calls. An optional release channel makes writes block
// until the test signals, for exercising the single-flush-in-flight gate.
type mockWriter struct {
	mu       sync.Mutex
	batches  [][]*models.PlayEvent
	calls    int
	failures int
	release  chan struct{}
	entered  chan struct{}
}

func (w *mockWriter) WritePlayBatch(ctx context.Context, events []*models.PlayEvent) (database.BatchResult, error) {
	w.mu.Lock()
	w.calls++
	call := w.calls
	entered := w.entered
	release := w.release
	w.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if release != nil {
		<-release
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if call <= w.failures {
		return database.BatchResult{}, fmt.Errorf("simulated write failure %d", call)
	}

	batch := make([]*models.PlayEvent, len(events))
	copy(batch, events)
	w.batches = append(w.batches, batch)
	return database.BatchResult{Flushed: len(events)}, nil
}

func (w *mockWriter) callCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.calls
}

func (w *mockWriter) written() []*models.PlayEvent {
	w.mu.Lock()
	defer w.mu.Unlock()
	var all []*models.PlayEvent
	for _, b := range w.batches {
		all = append(all, b...)
	}
	return all
}

func testConfig() *config.TrackerConfig {
	return &config.TrackerConfig{
		MaxQueueSize:     100,
		FlushInterval:    5 * time.Second,
		MaxRetries:       3,
		RetryDelay:       time.Millisecond,
		MaxPendingEvents: 10000,
		ShutdownTimeout:  5 * time.Second,
	}
}

func event(n int) *models.PlayEvent {
	return models.NewPlayEvent(
		"guild-1",
		fmt.Sprintf("user-%d", n),
		models.TrackInfo{Title: fmt.Sprintf("Track %d", n), Duration: time.Minute},
	)
}

func TestEnqueueThenShutdownWritesEverything(t *testing.T) {
	writer := &mockWriter{}
	tr := New(testConfig(), writer)

	const n = 42
	for i := 0; i < n; i++ {
		if err := tr.Enqueue(event(i)); err != nil {
			t.Fatalf("Enqueue(%d) failed: %v", i, err)
		}
	}

	if err := tr.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() failed: %v", err)
	}

	written := writer.written()
	if len(written) != n {
		t.Fatalf("wrote %d events, want %d", len(written), n)
	}
	for i, e := range written {
		if e.UserID != fmt.Sprintf("user-%d", i) {
			t.Errorf("event %d out of order: got %s", i, e.UserID)
		}
	}

	stats := tr.Stats()
	if stats.TotalEnqueued != n || stats.TotalFlushed != n {
		t.Errorf("Stats() = %+v, want %d enqueued and flushed", stats, n)
	}
	if !stats.Closed {
		t.Error("Stats().Closed = false after Shutdown")
	}
}

func TestEnqueueAfterShutdownRejected(t *testing.T) {
	writer := &mockWriter{}
	tr := New(testConfig(), writer)

	if err := tr.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() failed: %v", err)
	}
	if err := tr.Enqueue(event(0)); err != ErrTrackerClosed {
		t.Errorf("Enqueue() after Shutdown = %v, want ErrTrackerClosed", err)
	}
	// Idempotent.
	if err := tr.Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown() = %v, want nil", err)
	}
}

func TestCapacityTriggersFlush(t *testing.T) {
	writer := &mockWriter{}
	cfg := testConfig()
	cfg.MaxQueueSize = 10
	cfg.FlushInterval = time.Hour // timer never fires
	tr := New(cfg, writer)

	for i := 0; i < cfg.MaxQueueSize; i++ {
		if err := tr.Enqueue(event(i)); err != nil {
			t.Fatalf("Enqueue(%d) failed: %v", i, err)
		}
	}

	// The capacity flush runs on its own goroutine.
	deadline := time.After(2 * time.Second)
	for len(writer.written()) < cfg.MaxQueueSize {
		select {
		case <-deadline:
			t.Fatalf("capacity flush never happened, wrote %d events", len(writer.written()))
		case <-time.After(5 * time.Millisecond):
		}
	}

	if tr.Pending() != 0 {
		t.Errorf("Pending() = %d after capacity flush, want 0", tr.Pending())
	}
}

func TestCapacityBurstCollapsesFlushes(t *testing.T) {
	writer := &mockWriter{
		release: make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	cfg := testConfig()
	cfg.MaxQueueSize = 5
	cfg.FlushInterval = time.Hour
	tr := New(cfg, writer)

	// Fill to capacity; the first trigger starts a flush that blocks
	// inside the writer.
	for i := 0; i < cfg.MaxQueueSize; i++ {
		if err := tr.Enqueue(event(i)); err != nil {
			t.Fatalf("Enqueue(%d) failed: %v", i, err)
		}
	}
	<-writer.entered

	// A sustained burst while the flush is in flight: every Enqueue is
	// over capacity, but no second write may start.
	const burst = 20
	for i := cfg.MaxQueueSize; i < cfg.MaxQueueSize+burst; i++ {
		if err := tr.Enqueue(event(i)); err != nil {
			t.Fatalf("Enqueue(%d) failed: %v", i, err)
		}
	}
	if got := writer.callCount(); got != 1 {
		t.Errorf("writer called %d times during burst, want 1", got)
	}

	close(writer.release)

	// Drain whatever the burst left behind; nothing is lost or duplicated.
	deadline := time.After(2 * time.Second)
	for len(writer.written()) < cfg.MaxQueueSize+burst {
		tr.Flush(context.Background())
		select {
		case <-deadline:
			t.Fatalf("wrote %d events, want %d", len(writer.written()), cfg.MaxQueueSize+burst)
		case <-time.After(5 * time.Millisecond):
		}
	}
	if got := len(writer.written()); got != cfg.MaxQueueSize+burst {
		t.Errorf("wrote %d events, want %d", got, cfg.MaxQueueSize+burst)
	}
}

func TestTimerTriggersFlush(t *testing.T) {
	writer := &mockWriter{}
	cfg := testConfig()
	cfg.FlushInterval = 20 * time.Millisecond
	tr := New(cfg, writer)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx) }()

	if err := tr.Enqueue(event(0)); err != nil {
		t.Fatalf("Enqueue() failed: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for len(writer.written()) == 0 {
		select {
		case <-deadline:
			t.Fatal("timer flush never happened")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
}

func TestRetrySucceedsOnThirdAttempt(t *testing.T) {
	writer := &mockWriter{failures: 2}
	tr := New(testConfig(), writer)

	var errEvents atomic.Int32
	tr.AddListener(ListenerFuncs{
		Error: func(error) { errEvents.Add(1) },
	})

	if err := tr.Enqueue(event(0)); err != nil {
		t.Fatalf("Enqueue() failed: %v", err)
	}

	result := tr.Flush(context.Background())
	if result.Flushed != 1 {
		t.Errorf("Flush() = %+v, want Flushed 1", result)
	}
	if got := writer.callCount(); got != 3 {
		t.Errorf("writer called %d times, want 3 (two failures then success)", got)
	}
	if stats := tr.Stats(); stats.RetryCount != 2 {
		t.Errorf("RetryCount = %d, want 2", stats.RetryCount)
	}
	if got := errEvents.Load(); got != 0 {
		t.Errorf("error listener fired %d times, want 0 (batch eventually succeeded)", got)
	}
}

func TestRetryExhaustionRequeuesAtHead(t *testing.T) {
	cfg := testConfig()
	writer := &mockWriter{failures: cfg.MaxRetries} // every attempt of the first flush fails
	tr := New(cfg, writer)

	var (
		errMu     sync.Mutex
		flushErrs []error
	)
	tr.AddListener(ListenerFuncs{
		Error: func(err error) {
			errMu.Lock()
			flushErrs = append(flushErrs, err)
			errMu.Unlock()
		},
	})

	if err := tr.Enqueue(event(0)); err != nil {
		t.Fatalf("Enqueue() failed: %v", err)
	}
	if err := tr.Enqueue(event(1)); err != nil {
		t.Fatalf("Enqueue() failed: %v", err)
	}

	result := tr.Flush(context.Background())
	if result.Flushed != 0 || result.Failed != 0 {
		t.Errorf("failed Flush() = %+v, want empty result", result)
	}
	// The write is attempted exactly MaxRetries times in total; a batch
	// that throws on every one of them must not get an extra attempt.
	if got := writer.callCount(); got != cfg.MaxRetries {
		t.Errorf("writer called %d times, want %d", got, cfg.MaxRetries)
	}
	if tr.Pending() != 2 {
		t.Errorf("Pending() = %d after re-queue, want 2", tr.Pending())
	}

	errMu.Lock()
	if len(flushErrs) != 1 {
		t.Errorf("error listener called %d times, want 1", len(flushErrs))
	}
	errMu.Unlock()

	if stats := tr.Stats(); stats.LastError == "" {
		t.Error("Stats().LastError empty after exhausted flush")
	}

	// An event arriving after the failure lands behind the re-queued batch.
	if err := tr.Enqueue(event(2)); err != nil {
		t.Fatalf("Enqueue() failed: %v", err)
	}

	result = tr.Flush(context.Background())
	if result.Flushed != 3 {
		t.Fatalf("recovery Flush() = %+v, want Flushed 3", result)
	}

	written := writer.written()
	for i, e := range written {
		if e.UserID != fmt.Sprintf("user-%d", i) {
			t.Errorf("event %d out of order after re-queue: got %s", i, e.UserID)
		}
	}
}

func TestConcurrentFlushYields(t *testing.T) {
	writer := &mockWriter{
		release: make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	tr := New(testConfig(), writer)

	if err := tr.Enqueue(event(0)); err != nil {
		t.Fatalf("Enqueue() failed: %v", err)
	}

	first := make(chan FlushResult, 1)
	go func() { first <- tr.Flush(context.Background()) }()

	<-writer.entered // first flush is inside the writer

	// Second flush must return immediately with an empty result.
	done := make(chan FlushResult, 1)
	go func() { done <- tr.Flush(context.Background()) }()

	select {
	case result := <-done:
		if result.Flushed != 0 || result.Failed != 0 {
			t.Errorf("concurrent Flush() = %+v, want empty result", result)
		}
	case <-time.After(time.Second):
		t.Fatal("concurrent Flush() blocked instead of yielding")
	}

	close(writer.release)
	if result := <-first; result.Flushed != 1 {
		t.Errorf("first Flush() = %+v, want Flushed 1", result)
	}
	if got := writer.callCount(); got != 1 {
		t.Errorf("writer called %d times, want 1", got)
	}
}

func TestFlushEmptyBufferSkipsWriter(t *testing.T) {
	writer := &mockWriter{}
	tr := New(testConfig(), writer)

	result := tr.Flush(context.Background())
	if result.Flushed != 0 || result.Failed != 0 {
		t.Errorf("Flush() on empty buffer = %+v, want empty result", result)
	}
	if writer.callCount() != 0 {
		t.Error("writer called for an empty buffer")
	}
}

func TestPendingBoundDropsOldest(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetries = 1 // single attempt, no retries
	cfg.MaxPendingEvents = 3
	writer := &mockWriter{failures: 1}
	tr := New(cfg, writer)

	for i := 0; i < 5; i++ {
		if err := tr.Enqueue(event(i)); err != nil {
			t.Fatalf("Enqueue(%d) failed: %v", i, err)
		}
	}

	tr.Flush(context.Background()) // fails, re-queues 5 into a bound of 3

	if tr.Pending() != 3 {
		t.Fatalf("Pending() = %d, want 3", tr.Pending())
	}
	if stats := tr.Stats(); stats.TotalDropped != 2 {
		t.Errorf("TotalDropped = %d, want 2", stats.TotalDropped)
	}

	result := tr.Flush(context.Background())
	if result.Flushed != 3 {
		t.Fatalf("Flush() = %+v, want Flushed 3", result)
	}
	written := writer.written()
	// The two oldest (user-0, user-1) were dropped.
	for i, e := range written {
		if e.UserID != fmt.Sprintf("user-%d", i+2) {
			t.Errorf("event %d = %s, want user-%d", i, e.UserID, i+2)
		}
	}
}

func TestFlushListenerReceivesResults(t *testing.T) {
	writer := &mockWriter{}
	tr := New(testConfig(), writer)

	var (
		mu      sync.Mutex
		results []FlushResult
	)
	tr.AddListener(ListenerFuncs{
		Flush: func(r FlushResult) {
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		},
	})

	for i := 0; i < 4; i++ {
		if err := tr.Enqueue(event(i)); err != nil {
			t.Fatalf("Enqueue() failed: %v", err)
		}
	}
	tr.Flush(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if len(results) != 1 {
		t.Fatalf("listener called %d times, want 1", len(results))
	}
	if results[0].Flushed != 4 {
		t.Errorf("listener result = %+v, want Flushed 4", results[0])
	}
}
