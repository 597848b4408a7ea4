// Playlog - Play Event Batching and Durable Aggregation
// Copyright 2026 Playlog Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/playlog-io/playlog

// Package config loads layered configuration with Koanf v2: built-in
// defaults, then an optional YAML file, then PLAYLOG_* environment
// variables, highest priority last. Every loaded Config is validated
// before use.
package config
