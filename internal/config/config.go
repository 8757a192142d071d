// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

// Package config defines the process-wide configuration for radar and loads
// it with Koanf: struct defaults, then an optional YAML file, then
// environment variables, highest priority wins.
package config

import "time"

// Config is the root configuration struct, unmarshaled by koanf from nested
// sections using "koanf" struct tags.
type Config struct {
	Sources    SourcesConfig    `koanf:"sources"`
	Scheduler  SchedulerConfig  `koanf:"scheduler"`
	Fetch      FetchConfig      `koanf:"fetch"`
	Anchor     AnchorConfig     `koanf:"anchor"`
	Organizer  OrganizerConfig  `koanf:"organizer"`
	Scoring    ScoringConfig    `koanf:"scoring"`
	EventState EventStateConfig `koanf:"event_state"`
	Alert      AlertConfig      `koanf:"alert"`
	Broadcast  BroadcastConfig  `koanf:"broadcast"`
	Yield      YieldConfig      `koanf:"yield"`
	Feedback   FeedbackConfig   `koanf:"feedback"`
	RateLimit  RateLimitConfig  `koanf:"rate_limit"`
	Database   DatabaseConfig   `koanf:"database"`
	NATS       NATSConfig       `koanf:"nats"`
	Security   SecurityConfig   `koanf:"security"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// SourcesConfig configures the Source Profile Registry (C1).
type SourcesConfig struct {
	// Dir is the directory containing one TOML profile per source.
	Dir string `koanf:"dir"`
	// WatchEnabled is not read: the source registry always watches the
	// profile directory and reloads on change.
	WatchEnabled bool `koanf:"watch_enabled"`
	// InstitutionalUserAgent is required; requests never rotate it.
	InstitutionalUserAgent string `koanf:"institutional_user_agent"`
}

// SchedulerConfig configures the Scheduler (C2).
type SchedulerConfig struct {
	// TickInterval is how often the scheduler scans profiles for due sources.
	TickInterval time.Duration `koanf:"tick_interval"`
	// HighWaterMark is a per-pool queue depth. It is loaded and defaulted,
	// but the scheduler does not read it: dispatches are not throttled by
	// queue depth.
	HighWaterMark int `koanf:"high_water_mark"`
	// InFlightGuardTTL bounds how long a source can be "in flight" before
	// the scheduler considers the previous job abandoned and allows redispatch.
	InFlightGuardTTL time.Duration `koanf:"in_flight_guard_ttl"`
}

// PoolConfig configures one of the three fetch pools (C3).
type PoolConfig struct {
	Concurrency int           `koanf:"concurrency"`
	Timeout     time.Duration `koanf:"timeout"`
}

// FetchConfig configures the Fetcher's three pools and cross-cutting policy.
type FetchConfig struct {
	FastPool   PoolConfig `koanf:"fast_pool"`
	RenderPool PoolConfig `koanf:"render_pool"`
	DeepPool   PoolConfig `koanf:"deep_pool"`

	// MaxBytes is the default body cap; profiles may set a tighter one.
	MaxBytes int64 `koanf:"max_bytes"`
	// CircuitBreakerConsecutiveFailures opens a source's breaker after N
	// consecutive failures.
	CircuitBreakerConsecutiveFailures uint32 `koanf:"circuit_breaker_consecutive_failures"`
	// CircuitBreakerCooldown is how long an open breaker stays open.
	CircuitBreakerCooldown time.Duration `koanf:"circuit_breaker_cooldown"`
	// FastGateTimeout and RenderGateTimeout bound how long an event may sit
	// waiting for a fast-pool or render-pool enrichment pass before the
	// state machine times the gate out, independent of transport timeouts.
	FastGateTimeout   time.Duration `koanf:"fast_gate_timeout"`
	RenderGateTimeout time.Duration `koanf:"render_gate_timeout"`

	// RenderHeadlessBinary optionally pins a specific browser binary for the
	// go-rod render pool; empty auto-downloads a managed one.
	RenderHeadlessBinary string `koanf:"render_headless_binary"`
}

// AnchorConfig configures the Anchor & Evidence engine (C5).
type AnchorConfig struct {
	// MinConfidence is loaded and defaulted, but the anchor engine does not
	// read it: every match is kept whatever its confidence.
	MinConfidence float64 `koanf:"min_confidence"`
}

// OrganizerConfig configures clustering and deferred merge (C6).
type OrganizerConfig struct {
	// HardMergeWindow bounds how far back a shared anchor pair still
	// triggers a hard merge.
	HardMergeWindow time.Duration `koanf:"hard_merge_window"`
	// NearDupThreshold is validated to lie in (0,1], but the organizer does
	// not read it: rule 2 (near-duplicate attach) uses the SimHash
	// Hamming-distance bound organizer.Config.NearDupMaxDistance instead.
	NearDupThreshold float64 `koanf:"near_dup_threshold"`
	// SameEventThreshold is the BM25/TF-IDF + entity-overlap threshold for
	// rule 3 (same-event probabilistic attach).
	SameEventThreshold float64 `koanf:"same_event_threshold"`
	// SameEventWindow bounds rule 3's time window.
	SameEventWindow time.Duration `koanf:"same_event_window"`
	// CanonicalizationInterval is how often the background canonicalisation
	// job scans for clusters sharing a strong anchor pair.
	CanonicalizationInterval time.Duration `koanf:"canonicalization_interval"`
}

// ScoringConfig configures the scoring engine (C7).
type ScoringConfig struct {
	// PlantaoHalfLife is the exponential decay half-life for SCORE_PLANTAO.
	PlantaoHalfLife time.Duration `koanf:"plantao_half_life"`
	// HotThreshold is the configurable HOT-state score threshold; newsroom
	// editorial policy varies by outlet so it is never hardcoded.
	HotThreshold float64 `koanf:"hot_threshold"`
}

// EventStateConfig configures the state machine's timeouts (C8).
type EventStateConfig struct {
	QuarantineTTL          time.Duration `koanf:"quarantine_ttl"`           // default 15m
	HotInactivityHorizon   time.Duration `koanf:"hot_inactivity_horizon"`   // HOT/PARTIAL_ENRICH -> EXPIRED
	ViralVelocityThreshold float64       `koanf:"viral_velocity_threshold"` // UNVERIFIED_VIRAL gate
}

// AlertConfig configures the alert dispatcher (C9).
type AlertConfig struct {
	WebhookURL      string            `koanf:"webhook_url"`
	WebhookHeaders  map[string]string `koanf:"webhook_headers"`
	Enabled         bool              `koanf:"enabled"`
	CooldownDefault time.Duration     `koanf:"cooldown_default"`
}

// BroadcastConfig configures the event broadcaster (C10).
type BroadcastConfig struct {
	SendBufferSize int `koanf:"send_buffer_size"`
}

// YieldConfig configures the yield monitor (C11).
type YieldConfig struct {
	DefaultStarvationWindow time.Duration `koanf:"default_starvation_window"`
	BucketWidth             time.Duration `koanf:"bucket_width"`
}

// RateLimitConfig configures per-domain request throttling and concurrency
// ahead of the fetch pools. Defaults apply to any source whose profile
// leaves its limits unset.
type RateLimitConfig struct {
	// DefaultReqPerMin bounds requests per domain per rolling minute.
	DefaultReqPerMin int `koanf:"default_req_per_min"`
	// DefaultConcurrencyPerDomain bounds simultaneous in-flight requests
	// per domain, independent of the pool-wide worker counts.
	DefaultConcurrencyPerDomain int `koanf:"default_concurrency_per_domain"`
	// CounterTTL bounds how long a per-domain-per-minute counter entry
	// survives in the guard store past its bucket window.
	CounterTTL time.Duration `koanf:"counter_ttl"`
}

// FeedbackConfig configures the Feedback Sink's HTTP surface (C12).
type FeedbackConfig struct {
	Port              int           `koanf:"port"`
	Host              string        `koanf:"host"`
	AuthMode          string        `koanf:"auth_mode"` // "none", "bearer", "basic"
	JWTSecret         string        `koanf:"jwt_secret"`
	BasicUsername     string        `koanf:"basic_username"`
	BasicPasswordHash string        `koanf:"basic_password_hash"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// DatabaseConfig configures the DuckDB-backed store.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// NATSConfig configures the JetStream broker used for job dispatch and topic
// exchange.
type NATSConfig struct {
	Enabled        bool          `koanf:"enabled"`
	URL            string        `koanf:"url"`
	EmbeddedServer bool          `koanf:"embedded_server"`
	StoreDir       string        `koanf:"store_dir"`
	StreamName     string        `koanf:"stream_name"`
	RetentionDays  int           `koanf:"retention_days"`
	CloseTimeout   time.Duration `koanf:"close_timeout"`
}

// SecurityConfig configures shared-key-value store and SSRF policy.
type SecurityConfig struct {
	KVStorePath    string `koanf:"kv_store_path"`
	SSRFGuardOnly  bool   `koanf:"ssrf_guard_only"` // always true in practice; no override path
	TrustedProxies []string `koanf:"trusted_proxies"`
}

// LoggingConfig configures internal/logging.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}
