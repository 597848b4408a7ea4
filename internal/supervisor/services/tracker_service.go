// Playlog - Play Event Batching and Durable Aggregation
// Copyright 2026 Playlog Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/playlog-io/playlog

package services

import (
	"context"
	"time"
)

// FlushLoop matches the tracker's lifecycle: a blocking timer loop and a
// final-flush shutdown. Satisfied by *tracker.Tracker; tests substitute
// mocks.
type FlushLoop interface {
	Run(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// TrackerService wraps the tracker's flush loop as a supervised service.
//
// On context cancellation it runs the tracker's final flush before
// returning, so a supervised shutdown drains the buffer. The final flush
// gets its own timeout since the service context is already cancelled.
type TrackerService struct {
	tracker         FlushLoop
	shutdownTimeout time.Duration
	name            string
}

// NewTrackerService creates the supervised wrapper for the tracker.
func NewTrackerService(tracker FlushLoop, shutdownTimeout time.Duration) *TrackerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &TrackerService{
		tracker:         tracker,
		shutdownTimeout: shutdownTimeout,
		name:            "tracker",
	}
}

// Serve implements suture.Service. The tracker's Run blocks on its flush
// timer until ctx is cancelled; the deferred Shutdown then performs the
// final flush under a fresh timeout.
func (s *TrackerService) Serve(ctx context.Context) error {
	runErr := s.tracker.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.tracker.Shutdown(shutdownCtx); err != nil {
		return err
	}

	return runErr
}

// String implements fmt.Stringer for suture's log messages.
func (s *TrackerService) String() string {
	return s.name
}
