// Playlog - Play Event Batching and Durable Aggregation
// Copyright 2026 Playlog Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/playlog-io/playlog

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Run from a directory with no config file so only defaults apply.
	chdirTemp(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Tracker.MaxQueueSize != 100 {
		t.Errorf("Tracker.MaxQueueSize = %d, want 100", cfg.Tracker.MaxQueueSize)
	}
	if cfg.Tracker.FlushInterval != 5*time.Second {
		t.Errorf("Tracker.FlushInterval = %v, want 5s", cfg.Tracker.FlushInterval)
	}
	if cfg.Tracker.MaxRetries != 3 {
		t.Errorf("Tracker.MaxRetries = %d, want 3", cfg.Tracker.MaxRetries)
	}
	if cfg.Tracker.RetryDelay != time.Second {
		t.Errorf("Tracker.RetryDelay = %v, want 1s", cfg.Tracker.RetryDelay)
	}
	if cfg.Server.Port != 8490 {
		t.Errorf("Server.Port = %d, want 8490", cfg.Server.Port)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	chdirTemp(t)

	t.Setenv("PLAYLOG_TRACKER_MAX_QUEUE_SIZE", "250")
	t.Setenv("PLAYLOG_DATABASE_PATH", "/tmp/playlog-test.duckdb")
	t.Setenv("PLAYLOG_LOGGING_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Tracker.MaxQueueSize != 250 {
		t.Errorf("Tracker.MaxQueueSize = %d, want 250 from env", cfg.Tracker.MaxQueueSize)
	}
	if cfg.Database.Path != "/tmp/playlog-test.duckdb" {
		t.Errorf("Database.Path = %q, want env value", cfg.Database.Path)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug from env", cfg.Logging.Level)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
tracker:
  max_queue_size: 50
  flush_interval: 2s
server:
  port: 9000
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Tracker.MaxQueueSize != 50 {
		t.Errorf("Tracker.MaxQueueSize = %d, want 50 from file", cfg.Tracker.MaxQueueSize)
	}
	if cfg.Tracker.FlushInterval != 2*time.Second {
		t.Errorf("Tracker.FlushInterval = %v, want 2s from file", cfg.Tracker.FlushInterval)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000 from file", cfg.Server.Port)
	}
	// Untouched keys keep their defaults.
	if cfg.Tracker.MaxRetries != 3 {
		t.Errorf("Tracker.MaxRetries = %d, want default 3", cfg.Tracker.MaxRetries)
	}
}

func TestEnvBeatsFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := "server:\n  port: 9000\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("PLAYLOG_SERVER_PORT", "9100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want 9100 (env beats file)", cfg.Server.Port)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty database path", func(c *Config) { c.Database.Path = "" }},
		{"zero queue size", func(c *Config) { c.Tracker.MaxQueueSize = 0 }},
		{"zero retries", func(c *Config) { c.Tracker.MaxRetries = 0 }},
		{"negative retries", func(c *Config) { c.Tracker.MaxRetries = -1 }},
		{"zero flush interval", func(c *Config) { c.Tracker.FlushInterval = 0 }},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Validate() accepted %s", tt.name)
			}
		})
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"PLAYLOG_DATABASE_PATH", "database.path"},
		{"PLAYLOG_TRACKER_MAX_QUEUE_SIZE", "tracker.max_queue_size"},
		{"PLAYLOG_SERVER_PORT", "server.port"},
		{"PLAYLOG_LOGGING_LEVEL", "logging.level"},
	}
	for _, tt := range tests {
		if got := envTransformFunc(tt.in); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// chdirTemp switches the working directory to a fresh temp dir so Load
// cannot pick up a developer's config.yaml, and clears PLAYLOG_CONFIG.
func chdirTemp(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() failed: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir() failed: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })

	t.Setenv(ConfigPathEnvVar, "")
	return dir
}
