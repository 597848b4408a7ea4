// Playlog - Play Event Batching and Durable Aggregation
// Copyright 2026 Playlog Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/playlog-io/playlog

package config

import "time"

// Config is the root configuration for the playlog process.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Tracker  TrackerConfig  `koanf:"tracker"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// DatabaseConfig holds DuckDB connection settings.
type DatabaseConfig struct {
	// Path is the database file location. ":memory:" opens an in-memory
	// database (used by tests).
	Path string `koanf:"path"`

	// MaxMemory is passed to DuckDB's max_memory setting (e.g. "2GB").
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB thread count. 0 means runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// TrackerConfig holds the event buffer, flush, and retry settings.
type TrackerConfig struct {
	// MaxQueueSize is the buffer capacity that triggers an immediate flush.
	MaxQueueSize int `koanf:"max_queue_size"`

	// FlushInterval is the periodic flush timer interval.
	FlushInterval time.Duration `koanf:"flush_interval"`

	// MaxRetries is the total number of batch write attempts before a
	// batch is re-queued. 1 means a single attempt with no retries; 0 is
	// invalid because the batch would never be written at all.
	MaxRetries int `koanf:"max_retries"`

	// RetryDelay is the base delay between attempts; the actual delay is
	// RetryDelay * attempt number (linear backoff).
	RetryDelay time.Duration `koanf:"retry_delay"`

	// MaxPendingEvents bounds the total buffered size including re-queued
	// failed batches. When a re-queue would exceed it, the oldest events
	// are dropped.
	MaxPendingEvents int `koanf:"max_pending_events"`

	// ShutdownTimeout bounds the final flush during shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// ServerConfig holds the operator status listener settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:      "/data/playlog.duckdb",
			MaxMemory: "1GB",
			Threads:   0, // 0 = use runtime.NumCPU()
		},
		Tracker: TrackerConfig{
			MaxQueueSize:     100,
			FlushInterval:    5 * time.Second,
			MaxRetries:       3,
			RetryDelay:       1 * time.Second,
			MaxPendingEvents: 10000,
			ShutdownTimeout:  30 * time.Second,
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8490,
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}
