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

// InsertDocumentVersion inserts a new Document version. Versions are
// immutable; callers first look up NextDocumentVersion.
func (s *Store) InsertDocumentVersion(ctx context.Context, d model.Document) error {
	start := time.Now()
	defer observe("insert", "documents", start)

	var eventID interface{}
	if d.EventID != "" {
		eventID = d.EventID
	}
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO documents (id, version, source_id, url, canonical_url, title, body_text, content_hash, published_at, extracted_at, strategy, simhash, event_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Version, d.SourceID, d.URL, d.CanonicalURL, d.Title, d.BodyText, d.ContentHash,
		nullableTime(d.PublishedAt), d.ExtractedAt, string(d.Strategy), d.SimHash, eventID,
	)
	if err != nil {
		metrics.StoreQueryErrorsTotal.WithLabelValues("insert", "documents").Inc()
		return fmt.Errorf("insert document %s v%d: %w", d.ID, d.Version, err)
	}
	metrics.DocumentVersionsTotal.WithLabelValues(d.SourceID).Inc()
	return nil
}

// NextDocumentVersion returns the version number the next InsertDocumentVersion
// call for this document ID should use (1 if none exist yet).
func (s *Store) NextDocumentVersion(ctx context.Context, documentID string) (int, error) {
	var maxVersion sql.NullInt64
	row := s.conn.QueryRowContext(ctx, `SELECT MAX(version) FROM documents WHERE id = ?`, documentID)
	if err := row.Scan(&maxVersion); err != nil {
		return 0, fmt.Errorf("max version for %s: %w", documentID, err)
	}
	if !maxVersion.Valid {
		return 1, nil
	}
	return int(maxVersion.Int64) + 1, nil
}

// LatestDocumentVersion returns the most recent version of a document.
func (s *Store) LatestDocumentVersion(ctx context.Context, documentID string) (model.Document, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT id, version, source_id, url, canonical_url, title, body_text, content_hash, published_at, extracted_at, strategy, simhash, event_id
		FROM documents WHERE id = ? ORDER BY version DESC LIMIT 1`, documentID)
	return scanDocument(row)
}

// UpdateDocumentSimHash stores the near-duplicate fingerprint computed by the
// organizer for one document version.
func (s *Store) UpdateDocumentSimHash(ctx context.Context, documentID string, version int, simhash uint64) error {
	if _, err := s.conn.ExecContext(ctx, `UPDATE documents SET simhash = ? WHERE id = ? AND version = ?`, simhash, documentID, version); err != nil {
		return fmt.Errorf("update simhash for %s v%d: %w", documentID, version, err)
	}
	return nil
}

// AttachDocumentToEvent sets a document version's event_id and records the
// association in event_docs with the linkage rule that produced it.
func (s *Store) AttachDocumentToEvent(ctx context.Context, documentID string, version int, eventID string, rule model.LinkageRule) error {
	unlock := s.lockRow("event:" + eventID)
	defer unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attach tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE documents SET event_id = ? WHERE id = ? AND version = ?`, eventID, documentID, version); err != nil {
		return fmt.Errorf("attach document %s to event %s: %w", documentID, eventID, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO event_docs (event_id, document_id, linkage_rule, attached_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (event_id, document_id) DO UPDATE SET linkage_rule = excluded.linkage_rule`,
		eventID, documentID, string(rule), time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("insert event_doc %s/%s: %w", eventID, documentID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit attach tx: %w", err)
	}
	metrics.OrganizerAttachTotal.WithLabelValues(string(rule)).Inc()
	return nil
}

// InsertAnchors bulk-inserts the anchors extracted from one document.
func (s *Store) InsertAnchors(ctx context.Context, anchors []model.Anchor) error {
	if len(anchors) == 0 {
		return nil
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin anchor insert tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO anchors (id, document_id, anchor_type, value, normalized, confidence, span_start, span_end)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare anchor insert: %w", err)
	}
	defer stmt.Close()

	for _, a := range anchors {
		if _, err := stmt.ExecContext(ctx, a.ID, a.DocumentID, string(a.Type), a.Value, a.Normalized, a.Confidence, a.SpanStart, a.SpanEnd); err != nil {
			return fmt.Errorf("insert anchor %s: %w", a.ID, err)
		}
		metrics.AnchorsExtractedTotal.WithLabelValues(string(a.Type)).Inc()
	}
	return tx.Commit()
}

// FindDocumentsByAnchor returns the IDs of documents that carry an anchor
// with the given type and normalized value, used by the organizer's
// hard-merge rule.
func (s *Store) FindDocumentsByAnchor(ctx context.Context, anchorType model.AnchorType, normalized string) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT DISTINCT document_id FROM anchors WHERE anchor_type = ? AND normalized = ?`,
		string(anchorType), normalized)
	if err != nil {
		return nil, fmt.Errorf("find documents by anchor %s/%s: %w", anchorType, normalized, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan anchor document id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AnchorsForEvent returns every anchor carried by a document currently
// attached to an event, used for the broadcast projection's anchors field.
func (s *Store) AnchorsForEvent(ctx context.Context, eventID string) ([]model.Anchor, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT a.id, a.document_id, a.anchor_type, a.value, a.normalized, a.confidence, a.span_start, a.span_end
		FROM anchors a
		JOIN event_docs ed ON ed.document_id = a.document_id
		WHERE ed.event_id = ?`, eventID)
	if err != nil {
		return nil, fmt.Errorf("anchors for event %s: %w", eventID, err)
	}
	defer rows.Close()

	var anchors []model.Anchor
	for rows.Next() {
		var a model.Anchor
		var anchorType string
		if err := rows.Scan(&a.ID, &a.DocumentID, &anchorType, &a.Value, &a.Normalized, &a.Confidence, &a.SpanStart, &a.SpanEnd); err != nil {
			return nil, fmt.Errorf("scan event anchor: %w", err)
		}
		a.Type = model.AnchorType(anchorType)
		anchors = append(anchors, a)
	}
	return anchors, rows.Err()
}

// UpsertEvidenceFeatures stores the deterministic evidence signals computed
// for a document.
func (s *Store) UpsertEvidenceFeatures(ctx context.Context, f model.EvidenceFeatures) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO evidence_features (document_id, has_quote, has_named_official, has_document_ref, has_onscene_marker, hedge_term_count, evidence_score)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (document_id) DO UPDATE SET
			has_quote = excluded.has_quote, has_named_official = excluded.has_named_official,
			has_document_ref = excluded.has_document_ref, has_onscene_marker = excluded.has_onscene_marker,
			hedge_term_count = excluded.hedge_term_count, evidence_score = excluded.evidence_score`,
		f.DocumentID, f.HasQuote, f.HasNamedOfficial, f.HasDocumentRef, f.HasOnSceneMarker, f.HedgeTermCount, f.EvidenceScore,
	)
	if err != nil {
		return fmt.Errorf("upsert evidence features for %s: %w", f.DocumentID, err)
	}
	return nil
}

// InsertEntityMentions bulk-inserts the named entities extracted from one
// document.
func (s *Store) InsertEntityMentions(ctx context.Context, mentions []model.EntityMention) error {
	if len(mentions) == 0 {
		return nil
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin entity mention insert tx: %w", err)
	}
	defer tx.Rollback()

	for _, m := range mentions {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO entity_mentions (id, document_id, entity_type, surface, normalized)
			VALUES (?, ?, ?, ?, ?)`, m.ID, m.DocumentID, m.EntityType, m.Surface, m.Normalized); err != nil {
			return fmt.Errorf("insert entity mention %s: %w", m.ID, err)
		}
	}
	return tx.Commit()
}

func scanDocument(row *sql.Row) (model.Document, error) {
	var d model.Document
	var strategy string
	var canonicalURL, eventID sql.NullString
	var publishedAt sql.NullTime
	var simhash sql.NullInt64
	err := row.Scan(&d.ID, &d.Version, &d.SourceID, &d.URL, &canonicalURL, &d.Title, &d.BodyText, &d.ContentHash,
		&publishedAt, &d.ExtractedAt, &strategy, &simhash, &eventID)
	if err != nil {
		return model.Document{}, fmt.Errorf("scan document: %w", err)
	}
	d.Strategy = model.ExtractStrategy(strategy)
	d.CanonicalURL = canonicalURL.String
	d.EventID = eventID.String
	if publishedAt.Valid {
		d.PublishedAt = publishedAt.Time
	}
	if simhash.Valid {
		d.SimHash = uint64(simhash.Int64)
	}
	return d, nil
}

func nullableTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
