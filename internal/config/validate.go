// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

package config

import "fmt"

// Validate rejects configurations that would leave a component unable to
// start, fail fast at process startup instead of at first use.
func (c *Config) Validate() error {
	if c.Sources.InstitutionalUserAgent == "" {
		return fmt.Errorf("sources.institutional_user_agent is required: requests must never use a rotated or default user agent")
	}
	if c.Sources.Dir == "" {
		return fmt.Errorf("sources.dir is required")
	}

	if c.Fetch.FastPool.Concurrency <= 0 {
		return fmt.Errorf("fetch.fast_pool.concurrency must be > 0")
	}
	if c.Fetch.RenderPool.Concurrency <= 0 {
		return fmt.Errorf("fetch.render_pool.concurrency must be > 0")
	}
	if c.Fetch.DeepPool.Concurrency <= 0 {
		return fmt.Errorf("fetch.deep_pool.concurrency must be > 0")
	}
	if c.Fetch.CircuitBreakerConsecutiveFailures == 0 {
		return fmt.Errorf("fetch.circuit_breaker_consecutive_failures must be > 0")
	}

	if c.Organizer.NearDupThreshold <= 0 || c.Organizer.NearDupThreshold > 1 {
		return fmt.Errorf("organizer.near_dup_threshold must be in (0,1]")
	}
	if c.Organizer.SameEventThreshold <= 0 || c.Organizer.SameEventThreshold > 1 {
		return fmt.Errorf("organizer.same_event_threshold must be in (0,1]")
	}

	if c.Scoring.HotThreshold <= 0 {
		return fmt.Errorf("scoring.hot_threshold must be > 0: it is a configurable parameter, not a pinned constant")
	}

	if c.EventState.QuarantineTTL <= 0 {
		return fmt.Errorf("event_state.quarantine_ttl must be > 0")
	}

	switch c.Feedback.AuthMode {
	case "none", "bearer", "basic":
	default:
		return fmt.Errorf("feedback.auth_mode %q is not one of none|bearer|basic", c.Feedback.AuthMode)
	}
	if c.Feedback.AuthMode == "bearer" && c.Feedback.JWTSecret == "" {
		return fmt.Errorf("feedback.jwt_secret is required when feedback.auth_mode=bearer")
	}
	if c.Feedback.AuthMode == "basic" && (c.Feedback.BasicUsername == "" || c.Feedback.BasicPasswordHash == "") {
		return fmt.Errorf("feedback.basic_username and feedback.basic_password_hash are required when feedback.auth_mode=basic")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	return nil
}
