// Playlog - Play Event Batching and Durable Aggregation
// Copyright 2026 Playlog Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/playlog-io/playlog

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the play-event pipeline:
// - Tracker buffer and flush behavior
// - Batch writer throughput and per-row failures
// - Retry controller activity
// - DuckDB query performance

var (
	// Tracker Metrics
	TrackerEventsEnqueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "playlog_tracker_events_enqueued_total",
			Help: "Total number of play events accepted by the tracker",
		},
	)

	TrackerEventsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "playlog_tracker_events_rejected_total",
			Help: "Total number of play events rejected after shutdown",
		},
	)

	TrackerEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "playlog_tracker_events_dropped_total",
			Help: "Total number of play events dropped by the pending-size bound",
		},
	)

	TrackerPendingEvents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "playlog_tracker_pending_events",
			Help: "Current number of buffered play events awaiting flush",
		},
	)

	// Flush Metrics
	FlushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "playlog_flush_duration_seconds",
			Help:    "Duration of flush operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	FlushBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "playlog_flush_batch_size",
			Help:    "Number of events per flush batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	EventsFlushed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "playlog_events_flushed_total",
			Help: "Total number of play events durably written",
		},
	)

	EventsFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "playlog_events_failed_total",
			Help: "Total number of play events that failed row-level writes",
		},
	)

	FlushErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "playlog_flush_errors_total",
			Help: "Total number of flushes that exhausted all retries",
		},
	)

	RetryAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "playlog_retry_attempts_total",
			Help: "Total number of batch write retry attempts",
		},
	)

	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "playlog_db_query_duration_seconds",
			Help:    "Duration of DuckDB operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playlog_db_query_errors_total",
			Help: "Total number of DuckDB operation errors",
		},
		[]string{"operation"},
	)

	AggregateUpserts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playlog_aggregate_upserts_total",
			Help: "Total number of aggregate upsert-increments",
		},
		[]string{"table"},
	)
)

// RecordEnqueue records an accepted play event.
func RecordEnqueue() {
	TrackerEventsEnqueued.Inc()
}

// RecordRejected records an enqueue rejected by the closed buffer.
func RecordRejected() {
	TrackerEventsRejected.Inc()
}

// RecordDropped records events dropped by the pending-size bound.
func RecordDropped(count int) {
	TrackerEventsDropped.Add(float64(count))
}

// UpdatePendingEvents sets the buffer size gauge.
func UpdatePendingEvents(size int) {
	TrackerPendingEvents.Set(float64(size))
}

// RecordFlush records a completed flush with its outcome counts.
func RecordFlush(elapsed time.Duration, flushed, failed int) {
	FlushDuration.Observe(elapsed.Seconds())
	FlushBatchSize.Observe(float64(flushed + failed))
	EventsFlushed.Add(float64(flushed))
	EventsFailed.Add(float64(failed))
}

// RecordFlushError records a flush that exhausted all retries.
func RecordFlushError() {
	FlushErrors.Inc()
}

// RecordRetryAttempt records one batch write retry.
func RecordRetryAttempt() {
	RetryAttempts.Inc()
}

// RecordDBQuery records the duration of a database operation.
func RecordDBQuery(operation string, elapsed time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// RecordDBError records a failed database operation.
func RecordDBError(operation string) {
	DBQueryErrors.WithLabelValues(operation).Inc()
}

// RecordAggregateUpsert records one upsert-increment against an aggregate table.
func RecordAggregateUpsert(table string) {
	AggregateUpserts.WithLabelValues(table).Inc()
}
