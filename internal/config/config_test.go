// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_FailsValidationWithoutUserAgent(t *testing.T) {
	cfg := defaultConfig()
	err := cfg.Validate()
	require.Error(t, err, "institutional user agent is required and has no default")
}

func TestDefaultConfig_ValidWithUserAgent(t *testing.T) {
	cfg := defaultConfig()
	cfg.Sources.InstitutionalUserAgent = "radar-bot/1.0 (+https://example.org/bot)"
	require.NoError(t, cfg.Validate())
}

func TestValidate_RejectsBadPoolConcurrency(t *testing.T) {
	cfg := defaultConfig()
	cfg.Sources.InstitutionalUserAgent = "radar-bot/1.0"
	cfg.Fetch.FastPool.Concurrency = 0
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsUnknownFeedbackAuthMode(t *testing.T) {
	cfg := defaultConfig()
	cfg.Sources.InstitutionalUserAgent = "radar-bot/1.0"
	cfg.Feedback.AuthMode = "oauth2"
	assert.Error(t, cfg.Validate())
}

func TestValidate_BearerRequiresSecret(t *testing.T) {
	cfg := defaultConfig()
	cfg.Sources.InstitutionalUserAgent = "radar-bot/1.0"
	cfg.Feedback.AuthMode = "bearer"
	assert.Error(t, cfg.Validate())

	cfg.Feedback.JWTSecret = "s3cr3t"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_HotThresholdMustBePositive(t *testing.T) {
	cfg := defaultConfig()
	cfg.Sources.InstitutionalUserAgent = "radar-bot/1.0"
	cfg.Scoring.HotThreshold = 0
	assert.Error(t, cfg.Validate())
}
