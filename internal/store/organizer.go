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

	"github.com/tomfr/radar/internal/model"
)

// EventsForAnchor returns the distinct, non-merged events that already carry
// a Document with the given (type, normalized value) anchor, attached within
// the supplied time window. Used by the organizer's hard-merge rule.
func (s *Store) EventsForAnchor(ctx context.Context, anchorType model.AnchorType, normalized string, since time.Time) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT DISTINCT e.id
		FROM anchors a
		JOIN documents d ON d.id = a.document_id
		JOIN events e ON e.id = d.event_id
		WHERE a.anchor_type = ? AND a.normalized = ? AND e.canonical_id IS NULL AND d.extracted_at >= ?`,
		string(anchorType), normalized, since)
	if err != nil {
		return nil, fmt.Errorf("events for anchor %s/%s: %w", anchorType, normalized, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan event id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RecentDocumentsSince returns the latest version of every document attached
// to a non-merged event and extracted within the window, for the near-dup and
// same-event probabilistic linkage rules to compare a new document against.
func (s *Store) RecentDocumentsSince(ctx context.Context, since time.Time) ([]model.Document, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT d.id, d.version, d.source_id, d.url, d.canonical_url, d.title, d.body_text, d.content_hash,
		       d.published_at, d.extracted_at, d.strategy, d.simhash, d.event_id
		FROM documents d
		JOIN events e ON e.id = d.event_id
		WHERE e.canonical_id IS NULL AND d.extracted_at >= ?
		AND d.version = (SELECT MAX(version) FROM documents WHERE id = d.id)`,
		since)
	if err != nil {
		return nil, fmt.Errorf("recent documents since %s: %w", since, err)
	}
	defer rows.Close()

	var out []model.Document
	for rows.Next() {
		d, err := scanDocumentRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// EntityMentionsForDocument returns the named-entity mentions extracted from
// a document, used by the same-event probabilistic linkage rule.
func (s *Store) EntityMentionsForDocument(ctx context.Context, documentID string) ([]model.EntityMention, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, document_id, entity_type, surface, normalized FROM entity_mentions WHERE document_id = ?`, documentID)
	if err != nil {
		return nil, fmt.Errorf("entity mentions for document %s: %w", documentID, err)
	}
	defer rows.Close()

	var out []model.EntityMention
	for rows.Next() {
		var m model.EntityMention
		if err := rows.Scan(&m.ID, &m.DocumentID, &m.EntityType, &m.Surface, &m.Normalized); err != nil {
			return nil, fmt.Errorf("scan entity mention: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AnchorCountForEvent counts the distinct anchors carried by any document
// attached to an event, the tie-break used when canonicalising a cluster of
// events that share a strong anchor pair.
func (s *Store) AnchorCountForEvent(ctx context.Context, eventID string) (int, error) {
	var count int
	row := s.conn.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT a.id)
		FROM anchors a
		JOIN documents d ON d.id = a.document_id
		WHERE d.event_id = ?`, eventID)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("anchor count for event %s: %w", eventID, err)
	}
	return count, nil
}

// StrongAnchorPairGroups returns, for every (type, normalized) pair among the
// strong anchor categories that is shared by more than one non-merged event,
// the set of event IDs carrying it. Feeds the deferred canonicalisation
// sweep.
func (s *Store) StrongAnchorPairGroups(ctx context.Context, strongTypes []model.AnchorType) (map[string][]string, error) {
	if len(strongTypes) == 0 {
		return nil, nil
	}
	placeholders := make([]interface{}, len(strongTypes))
	query := `
		SELECT a.anchor_type, a.normalized, e.id
		FROM anchors a
		JOIN documents d ON d.id = a.document_id
		JOIN events e ON e.id = d.event_id
		WHERE e.canonical_id IS NULL AND a.anchor_type IN (`
	for i, t := range strongTypes {
		if i > 0 {
			query += ", "
		}
		query += "?"
		placeholders[i] = string(t)
	}
	query += ")"

	rows, err := s.conn.QueryContext(ctx, query, placeholders...)
	if err != nil {
		return nil, fmt.Errorf("strong anchor pair groups: %w", err)
	}
	defer rows.Close()

	groups := make(map[string]map[string]bool)
	for rows.Next() {
		var anchorType, normalized, eventID string
		if err := rows.Scan(&anchorType, &normalized, &eventID); err != nil {
			return nil, fmt.Errorf("scan anchor pair group row: %w", err)
		}
		key := anchorType + ":" + normalized
		if groups[key] == nil {
			groups[key] = make(map[string]bool)
		}
		groups[key][eventID] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make(map[string][]string)
	for key, set := range groups {
		if len(set) < 2 {
			continue
		}
		for id := range set {
			out[key] = append(out[key], id)
		}
	}
	return out, nil
}

func scanDocumentRow(rows *sql.Rows) (model.Document, error) {
	var d model.Document
	var strategy string
	var canonicalURL, eventID sql.NullString
	var publishedAt sql.NullTime
	var simhash sql.NullInt64
	err := rows.Scan(&d.ID, &d.Version, &d.SourceID, &d.URL, &canonicalURL, &d.Title, &d.BodyText, &d.ContentHash,
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
