// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/tomfr/radar/internal/metrics"
	"github.com/tomfr/radar/internal/model"
)

// InsertFetchAttempt records one pool dispatch, success or failure.
func (s *Store) InsertFetchAttempt(ctx context.Context, a model.FetchAttempt) error {
	start := time.Now()
	defer observe("insert", "fetch_attempts", start)

	var finishedAt interface{}
	if !a.FinishedAt.IsZero() {
		finishedAt = a.FinishedAt
	}
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO fetch_attempts (id, source_id, pool, started_at, finished_at, outcome, http_status, bytes_fetched, error_detail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.SourceID, a.Pool, a.StartedAt, finishedAt, string(a.Outcome), a.HTTPStatus, a.BytesFetched, a.ErrorDetail,
	)
	if err != nil {
		metrics.StoreQueryErrorsTotal.WithLabelValues("insert", "fetch_attempts").Inc()
		return fmt.Errorf("insert fetch attempt %s: %w", a.ID, err)
	}
	return nil
}

// RecentOutcomes returns the outcomes of a source's last n fetch attempts,
// most recent first.
func (s *Store) RecentOutcomes(ctx context.Context, sourceID string, n int) ([]model.FetchOutcome, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT outcome FROM fetch_attempts WHERE source_id = ?
		ORDER BY started_at DESC LIMIT ?`, sourceID, n)
	if err != nil {
		return nil, fmt.Errorf("recent outcomes for %s: %w", sourceID, err)
	}
	defer rows.Close()

	var out []model.FetchOutcome
	for rows.Next() {
		var outcome string
		if err := rows.Scan(&outcome); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		out = append(out, model.FetchOutcome(outcome))
	}
	return out, rows.Err()
}

// InsertSnapshot records a successful fetch's raw body location and content
// hash, used for change detection against the previous snapshot.
func (s *Store) InsertSnapshot(ctx context.Context, snap model.Snapshot) error {
	start := time.Now()
	defer observe("insert", "snapshots", start)

	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO snapshots (id, source_id, fetch_attempt_id, url, content_hash, raw_body_path, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.SourceID, snap.FetchAttemptID, snap.URL, snap.ContentHash, snap.RawBodyPath, snap.FetchedAt,
	)
	if err != nil {
		metrics.StoreQueryErrorsTotal.WithLabelValues("insert", "snapshots").Inc()
		return fmt.Errorf("insert snapshot %s: %w", snap.ID, err)
	}
	return nil
}

// LatestContentHash returns the content hash of the most recent snapshot
// for a URL, or "" if none exists. The scheduler passes it to the URL's
// next fetch job as the conditional-request value.
func (s *Store) LatestContentHash(ctx context.Context, url string) (string, error) {
	var hash string
	row := s.conn.QueryRowContext(ctx, `
		SELECT content_hash FROM snapshots WHERE url = ? ORDER BY fetched_at DESC LIMIT 1`, url)
	err := row.Scan(&hash)
	if err != nil {
		return "", nil
	}
	return hash, nil
}
