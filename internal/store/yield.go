// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/tomfr/radar/internal/model"
)

// SourceFetchAttemptsSince returns a source's fetch attempts since the
// given time, oldest first. The yield monitor uses the HTTP status to tell
// "the source stopped responding" (not its problem) apart from "the source
// keeps returning 200s but nothing useful comes out" (data starvation).
func (s *Store) SourceFetchAttemptsSince(ctx context.Context, sourceID string, since time.Time) ([]model.FetchAttempt, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT started_at, http_status FROM fetch_attempts
		WHERE source_id = ? AND started_at >= ?
		ORDER BY started_at ASC`, sourceID, since)
	if err != nil {
		return nil, fmt.Errorf("fetch attempts for source %s: %w", sourceID, err)
	}
	defer rows.Close()

	var out []model.FetchAttempt
	for rows.Next() {
		var a model.FetchAttempt
		var httpStatus *int
		if err := rows.Scan(&a.StartedAt, &httpStatus); err != nil {
			return nil, fmt.Errorf("scan fetch attempt: %w", err)
		}
		if httpStatus != nil {
			a.HTTPStatus = *httpStatus
		}
		a.SourceID = sourceID
		out = append(out, a)
	}
	return out, rows.Err()
}

// SourceUsefulYieldSince returns the extraction timestamps of a source's
// documents since the given time that carried at least one anchor or a
// non-zero evidence score — the "useful yield" the monitor tracks, as
// distinct from raw document volume.
func (s *Store) SourceUsefulYieldSince(ctx context.Context, sourceID string, since time.Time) ([]time.Time, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT d.extracted_at
		FROM documents d
		LEFT JOIN evidence_features ef ON ef.document_id = d.id
		LEFT JOIN (SELECT document_id, COUNT(*) AS anchor_count FROM anchors GROUP BY document_id) a
			ON a.document_id = d.id
		WHERE d.source_id = ? AND d.extracted_at >= ?
			AND (COALESCE(ef.evidence_score, 0) > 0 OR COALESCE(a.anchor_count, 0) > 0)
		ORDER BY d.extracted_at ASC`, sourceID, since)
	if err != nil {
		return nil, fmt.Errorf("useful yield for source %s: %w", sourceID, err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan yield timestamp: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
