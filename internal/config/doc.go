// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

// Package config loads radar's configuration with Koanf: struct defaults,
// an optional config.yaml, then RADAR_-prefixed environment variables.
package config
