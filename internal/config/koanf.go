// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/radar/config.yaml",
	"/etc/radar/config.yml",
}

// ConfigPathEnvVar overrides the config file search with an explicit path.
const ConfigPathEnvVar = "RADAR_CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Sources: SourcesConfig{
			Dir:                     "sources",
			WatchEnabled:            true,
			InstitutionalUserAgent:  "",
		},
		Scheduler: SchedulerConfig{
			TickInterval:     1 * time.Second,
			HighWaterMark:    500,
			InFlightGuardTTL: 5 * time.Minute,
		},
		Fetch: FetchConfig{
			FastPool:                           PoolConfig{Concurrency: 16, Timeout: 5 * time.Second},
			RenderPool:                         PoolConfig{Concurrency: 4, Timeout: 30 * time.Second},
			DeepPool:                           PoolConfig{Concurrency: 2, Timeout: 5 * time.Minute},
			MaxBytes:                           20 << 20,
			CircuitBreakerConsecutiveFailures:  5,
			CircuitBreakerCooldown:             2 * time.Minute,
			FastGateTimeout:                    15 * time.Second,
			RenderGateTimeout:                  45 * time.Second,
			RenderHeadlessBinary:               "",
		},
		Anchor: AnchorConfig{
			MinConfidence: 0.6,
		},
		Organizer: OrganizerConfig{
			HardMergeWindow:          72 * time.Hour,
			NearDupThreshold:         0.85,
			SameEventThreshold:       0.72,
			SameEventWindow:          6 * time.Hour,
			CanonicalizationInterval: 1 * time.Minute,
		},
		Scoring: ScoringConfig{
			PlantaoHalfLife: 20 * time.Minute,
			HotThreshold:    0.75,
		},
		EventState: EventStateConfig{
			QuarantineTTL:          15 * time.Minute,
			HotInactivityHorizon:   6 * time.Hour,
			ViralVelocityThreshold: 8.0,
		},
		Alert: AlertConfig{
			Enabled:         false,
			CooldownDefault: 10 * time.Minute,
		},
		Broadcast: BroadcastConfig{
			SendBufferSize: 32,
		},
		Yield: YieldConfig{
			DefaultStarvationWindow: 2 * time.Hour,
			BucketWidth:             10 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			DefaultReqPerMin:            30,
			DefaultConcurrencyPerDomain: 4,
			CounterTTL:                  2 * time.Minute,
		},
		Feedback: FeedbackConfig{
			Port:            8088,
			Host:            "0.0.0.0",
			AuthMode:        "none",
			RateLimitReqs:   60,
			RateLimitWindow: 1 * time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Database: DatabaseConfig{
			Path:      "/data/radar.duckdb",
			MaxMemory: "2GB",
			Threads:   0,
		},
		NATS: NATSConfig{
			Enabled:        true,
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: true,
			StoreDir:       "/data/nats/jetstream",
			StreamName:     "RADAR",
			RetentionDays:  7,
			CloseTimeout:   30 * time.Second,
		},
		Security: SecurityConfig{
			KVStorePath:   "/data/radar-kv",
			SSRFGuardOnly: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load reads configuration with layered Koanf sources: struct defaults, an
// optional YAML file, then environment variables (highest priority).
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("RADAR_", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"feedback.cors_origins",
	"security.trusted_proxies",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps RADAR_-prefixed environment variable names to koanf
// dotted paths, e.g. RADAR_FETCH_FAST_POOL_CONCURRENCY -> fetch.fast_pool.concurrency.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, "RADAR_"))

	mappings := map[string]string{
		"sources_dir":                       "sources.dir",
		"sources_watch_enabled":             "sources.watch_enabled",
		"sources_institutional_user_agent":  "sources.institutional_user_agent",

		"sched_tick_interval":       "scheduler.tick_interval",
		"sched_high_water_mark":     "scheduler.high_water_mark",
		"sched_in_flight_guard_ttl": "scheduler.in_flight_guard_ttl",

		"fetch_fast_pool_concurrency":   "fetch.fast_pool.concurrency",
		"fetch_fast_pool_timeout":       "fetch.fast_pool.timeout",
		"fetch_render_pool_concurrency": "fetch.render_pool.concurrency",
		"fetch_render_pool_timeout":     "fetch.render_pool.timeout",
		"fetch_deep_pool_concurrency":   "fetch.deep_pool.concurrency",
		"fetch_deep_pool_timeout":       "fetch.deep_pool.timeout",
		"fetch_max_bytes":               "fetch.max_bytes",
		"fetch_circuit_breaker_failures": "fetch.circuit_breaker_consecutive_failures",
		"fetch_circuit_breaker_cooldown": "fetch.circuit_breaker_cooldown",
		"fetch_fast_gate_timeout":        "fetch.fast_gate_timeout",
		"fetch_render_gate_timeout":      "fetch.render_gate_timeout",
		"fetch_render_headless_binary":   "fetch.render_headless_binary",

		"anchor_min_confidence": "anchor.min_confidence",

		"organizer_hard_merge_window":          "organizer.hard_merge_window",
		"organizer_near_dup_threshold":         "organizer.near_dup_threshold",
		"organizer_same_event_threshold":       "organizer.same_event_threshold",
		"organizer_same_event_window":          "organizer.same_event_window",
		"organizer_canonicalization_interval":  "organizer.canonicalization_interval",

		"scoring_plantao_half_life": "scoring.plantao_half_life",
		"scoring_hot_threshold":     "scoring.hot_threshold",

		"event_state_quarantine_ttl":            "event_state.quarantine_ttl",
		"event_state_hot_inactivity_horizon":    "event_state.hot_inactivity_horizon",
		"event_state_viral_velocity_threshold":  "event_state.viral_velocity_threshold",

		"alert_webhook_url":      "alert.webhook_url",
		"alert_enabled":          "alert.enabled",
		"alert_cooldown_default": "alert.cooldown_default",

		"broadcast_send_buffer_size": "broadcast.send_buffer_size",

		"yield_default_starvation_window": "yield.default_starvation_window",
		"yield_bucket_width":              "yield.bucket_width",

		"feedback_port":                "feedback.port",
		"feedback_host":                 "feedback.host",
		"feedback_auth_mode":            "feedback.auth_mode",
		"feedback_jwt_secret":           "feedback.jwt_secret",
		"feedback_basic_username":       "feedback.basic_username",
		"feedback_basic_password_hash":  "feedback.basic_password_hash",
		"feedback_rate_limit_reqs":      "feedback.rate_limit_reqs",
		"feedback_rate_limit_window":    "feedback.rate_limit_window",
		"feedback_cors_origins":         "feedback.cors_origins",

		"duckdb_path":       "database.path",
		"duckdb_max_memory": "database.max_memory",
		"duckdb_threads":    "database.threads",

		"nats_enabled":        "nats.enabled",
		"nats_url":            "nats.url",
		"nats_embedded":       "nats.embedded_server",
		"nats_store_dir":      "nats.store_dir",
		"nats_stream_name":    "nats.stream_name",
		"nats_retention_days": "nats.retention_days",
		"nats_close_timeout":  "nats.close_timeout",

		"security_kv_store_path":   "security.kv_store_path",
		"security_trusted_proxies": "security.trusted_proxies",

		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := mappings[key]; ok {
		return mapped
	}
	return ""
}

// GetKoanfInstance returns a fresh Koanf instance for hot-reload or testing.
func GetKoanfInstance() *koanf.Koanf {
	return koanf.New(".")
}

// WatchConfigFile watches path for changes and invokes callback on each one.
// The caller is responsible for synchronizing access to any config swapped
// in from the callback.
func WatchConfigFile(path string, callback func()) error {
	provider := file.Provider(path)
	return provider.Watch(func(_ interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
