// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomfr/radar/internal/metrics"
	"github.com/tomfr/radar/internal/model"
)

// UpsertSource inserts or replaces a Source row, keyed by ID. Called by the
// Source Profile Registry whenever a TOML profile loads or hot-reloads.
func (s *Store) UpsertSource(ctx context.Context, src model.Source) error {
	start := time.Now()
	defer observe("upsert", "sources", start)

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO sources (id, name, tier, homepage_url, poll_interval_s, fetch_strategy, strategy, trust_weight, enabled, profile_hash, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name, tier = excluded.tier, homepage_url = excluded.homepage_url,
			poll_interval_s = excluded.poll_interval_s, fetch_strategy = excluded.fetch_strategy,
			strategy = excluded.strategy, trust_weight = excluded.trust_weight, enabled = excluded.enabled,
			profile_hash = excluded.profile_hash, updated_at = excluded.updated_at`,
		src.ID, src.Name, int(src.Tier), src.HomepageURL, int(src.PollInterval.Seconds()),
		string(src.FetchStrategy), string(src.Strategy), src.TrustWeight, src.Enabled, src.ProfileHash, src.UpdatedAt,
	)
	if err != nil {
		metrics.StoreQueryErrorsTotal.WithLabelValues("upsert", "sources").Inc()
		return fmt.Errorf("upsert source %s: %w", src.ID, err)
	}
	return nil
}

// ListEnabledSources returns every source with enabled = true, used by the
// scheduler's tick loop.
func (s *Store) ListEnabledSources(ctx context.Context) ([]model.Source, error) {
	start := time.Now()
	defer observe("list", "sources", start)

	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, name, tier, homepage_url, poll_interval_s, fetch_strategy, strategy, trust_weight, enabled, profile_hash, updated_at
		FROM sources WHERE enabled = true`)
	if err != nil {
		metrics.StoreQueryErrorsTotal.WithLabelValues("list", "sources").Inc()
		return nil, fmt.Errorf("list enabled sources: %w", err)
	}
	defer rows.Close()

	var out []model.Source
	for rows.Next() {
		var src model.Source
		var tier int
		var pollSeconds int
		var fetchStrategy, contentStrategy string
		if err := rows.Scan(&src.ID, &src.Name, &tier, &src.HomepageURL, &pollSeconds,
			&fetchStrategy, &contentStrategy, &src.TrustWeight, &src.Enabled, &src.ProfileHash, &src.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan source row: %w", err)
		}
		src.Tier = model.SourceTier(tier)
		src.PollInterval = time.Duration(pollSeconds) * time.Second
		src.FetchStrategy = model.FetchStrategy(fetchStrategy)
		src.Strategy = model.ContentStrategy(contentStrategy)
		out = append(out, src)
	}
	return out, rows.Err()
}

// GetSource fetches a single source by ID.
func (s *Store) GetSource(ctx context.Context, id string) (model.Source, error) {
	start := time.Now()
	defer observe("get", "sources", start)

	var src model.Source
	var tier int
	var pollSeconds int
	var fetchStrategy, contentStrategy string
	row := s.conn.QueryRowContext(ctx, `
		SELECT id, name, tier, homepage_url, poll_interval_s, fetch_strategy, strategy, trust_weight, enabled, profile_hash, updated_at
		FROM sources WHERE id = ?`, id)
	err := row.Scan(&src.ID, &src.Name, &tier, &src.HomepageURL, &pollSeconds,
		&fetchStrategy, &contentStrategy, &src.TrustWeight, &src.Enabled, &src.ProfileHash, &src.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Source{}, fmt.Errorf("source %s: %w", id, err)
	}
	if err != nil {
		metrics.StoreQueryErrorsTotal.WithLabelValues("get", "sources").Inc()
		return model.Source{}, fmt.Errorf("get source %s: %w", id, err)
	}
	src.Tier = model.SourceTier(tier)
	src.PollInterval = time.Duration(pollSeconds) * time.Second
	src.FetchStrategy = model.FetchStrategy(fetchStrategy)
	src.Strategy = model.ContentStrategy(contentStrategy)
	return src, nil
}

func observe(operation, table string, start time.Time) {
	metrics.StoreQueryDuration.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}
