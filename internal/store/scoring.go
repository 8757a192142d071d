// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

package store

import (
	"context"
	"fmt"

	"github.com/tomfr/radar/internal/model"
)

// EventDocumentSignals returns the scoring inputs for every document attached
// to an event: the source's tier and trust weight joined against the
// document's evidence score, for the scoring engine's velocity and
// evidence-weighted confidence passes.
func (s *Store) EventDocumentSignals(ctx context.Context, eventID string) ([]model.DocumentSignal, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT d.id, d.source_id, src.tier, src.trust_weight, d.extracted_at,
		       COALESCE(ef.evidence_score, 0), COALESCE(ef.has_document_ref, false)
		FROM documents d
		JOIN sources src ON src.id = d.source_id
		LEFT JOIN evidence_features ef ON ef.document_id = d.id
		WHERE d.event_id = ? AND d.version = (SELECT MAX(version) FROM documents WHERE id = d.id)`,
		eventID)
	if err != nil {
		return nil, fmt.Errorf("document signals for event %s: %w", eventID, err)
	}
	defer rows.Close()

	var out []model.DocumentSignal
	for rows.Next() {
		var sig model.DocumentSignal
		var tier int
		if err := rows.Scan(&sig.DocumentID, &sig.SourceID, &tier, &sig.TrustWeight, &sig.ExtractedAt,
			&sig.EvidenceScore, &sig.HasDocumentRef); err != nil {
			return nil, fmt.Errorf("scan document signal: %w", err)
		}
		sig.SourceTier = model.SourceTier(tier)
		out = append(out, sig)
	}
	return out, rows.Err()
}
