// Playlog - Play Event Batching and Durable Aggregation
// Copyright 2026 Playlog Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/playlog-io/playlog

package config

import (
	"fmt"
	"strings"
)

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateTracker(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

// validateDatabase validates the DuckDB settings.
func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("database.threads must not be negative, got %d", c.Database.Threads)
	}
	return nil
}

// validateTracker validates the buffer, flush, and retry settings.
func (c *Config) validateTracker() error {
	t := c.Tracker
	if t.MaxQueueSize <= 0 {
		return fmt.Errorf("tracker.max_queue_size must be positive, got %d", t.MaxQueueSize)
	}
	if t.FlushInterval <= 0 {
		return fmt.Errorf("tracker.flush_interval must be positive, got %s", t.FlushInterval)
	}
	if t.MaxRetries < 1 {
		return fmt.Errorf("tracker.max_retries is the total attempt budget and must be at least 1, got %d", t.MaxRetries)
	}
	if t.RetryDelay < 0 {
		return fmt.Errorf("tracker.retry_delay must not be negative, got %s", t.RetryDelay)
	}
	if t.MaxPendingEvents < t.MaxQueueSize {
		return fmt.Errorf("tracker.max_pending_events (%d) must be at least tracker.max_queue_size (%d)",
			t.MaxPendingEvents, t.MaxQueueSize)
	}
	if t.ShutdownTimeout <= 0 {
		return fmt.Errorf("tracker.shutdown_timeout must be positive, got %s", t.ShutdownTimeout)
	}
	return nil
}

// validateServer validates the status listener settings.
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	return nil
}

// validateLogging validates the log output settings.
func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("logging.level %q is not a valid level", c.Logging.Level)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format %q must be json or console", c.Logging.Format)
	}

	return nil
}
