// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

package store

import "fmt"

var createTableStatements = []string{
	`CREATE TABLE IF NOT EXISTS sources (
		id              VARCHAR PRIMARY KEY,
		name            VARCHAR NOT NULL,
		tier            INTEGER NOT NULL,
		homepage_url    VARCHAR NOT NULL,
		poll_interval_s INTEGER NOT NULL,
		fetch_strategy  VARCHAR NOT NULL,
		strategy        VARCHAR NOT NULL,
		trust_weight    DOUBLE NOT NULL DEFAULT 1.0,
		enabled         BOOLEAN NOT NULL DEFAULT true,
		profile_hash    VARCHAR NOT NULL,
		updated_at      TIMESTAMP NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS fetch_attempts (
		id            VARCHAR PRIMARY KEY,
		source_id     VARCHAR NOT NULL,
		pool          VARCHAR NOT NULL,
		started_at    TIMESTAMP NOT NULL,
		finished_at   TIMESTAMP,
		outcome       VARCHAR NOT NULL,
		http_status   INTEGER,
		bytes_fetched BIGINT,
		error_detail  VARCHAR
	);`,
	`CREATE TABLE IF NOT EXISTS snapshots (
		id             VARCHAR PRIMARY KEY,
		source_id      VARCHAR NOT NULL,
		fetch_attempt_id VARCHAR NOT NULL,
		url            VARCHAR NOT NULL,
		content_hash   VARCHAR NOT NULL,
		raw_body_path  VARCHAR NOT NULL,
		fetched_at     TIMESTAMP NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS documents (
		id            VARCHAR NOT NULL,
		version       INTEGER NOT NULL,
		source_id     VARCHAR NOT NULL,
		url           VARCHAR NOT NULL,
		canonical_url VARCHAR,
		title         VARCHAR NOT NULL,
		body_text     VARCHAR NOT NULL,
		content_hash  VARCHAR NOT NULL,
		published_at  TIMESTAMP,
		extracted_at  TIMESTAMP NOT NULL,
		strategy      VARCHAR NOT NULL,
		simhash       UBIGINT,
		event_id      VARCHAR,
		PRIMARY KEY (id, version)
	);`,
	`CREATE TABLE IF NOT EXISTS anchors (
		id          VARCHAR PRIMARY KEY,
		document_id VARCHAR NOT NULL,
		anchor_type VARCHAR NOT NULL,
		value       VARCHAR NOT NULL,
		normalized  VARCHAR NOT NULL,
		confidence  DOUBLE NOT NULL,
		span_start  INTEGER NOT NULL,
		span_end    INTEGER NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS evidence_features (
		document_id        VARCHAR PRIMARY KEY,
		has_quote           BOOLEAN NOT NULL DEFAULT false,
		has_named_official  BOOLEAN NOT NULL DEFAULT false,
		has_document_ref    BOOLEAN NOT NULL DEFAULT false,
		has_onscene_marker  BOOLEAN NOT NULL DEFAULT false,
		hedge_term_count    INTEGER NOT NULL DEFAULT 0,
		evidence_score      DOUBLE NOT NULL DEFAULT 0
	);`,
	`CREATE TABLE IF NOT EXISTS entity_mentions (
		id          VARCHAR PRIMARY KEY,
		document_id VARCHAR NOT NULL,
		entity_type VARCHAR NOT NULL,
		surface     VARCHAR NOT NULL,
		normalized  VARCHAR NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS events (
		id               VARCHAR PRIMARY KEY,
		canonical_id     VARCHAR,
		state            VARCHAR NOT NULL,
		unverified_viral BOOLEAN NOT NULL DEFAULT false,
		headline         VARCHAR NOT NULL,
		primary_anchor   VARCHAR,
		created_at       TIMESTAMP NOT NULL,
		last_updated_at  TIMESTAMP NOT NULL,
		quarantined_at   TIMESTAMP
	);`,
	`CREATE TABLE IF NOT EXISTS event_docs (
		event_id    VARCHAR NOT NULL,
		document_id VARCHAR NOT NULL,
		linkage_rule VARCHAR NOT NULL,
		attached_at VARCHAR NOT NULL,
		PRIMARY KEY (event_id, document_id)
	);`,
	`CREATE TABLE IF NOT EXISTS event_scores (
		event_id       VARCHAR PRIMARY KEY,
		score_plantao  DOUBLE NOT NULL DEFAULT 0,
		plantao_reasons_json VARCHAR NOT NULL DEFAULT '[]',
		score_oceano_azul DOUBLE NOT NULL DEFAULT 0,
		oceano_reasons_json VARCHAR NOT NULL DEFAULT '[]',
		computed_at    TIMESTAMP NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS event_state_history (
		id         VARCHAR PRIMARY KEY,
		event_id   VARCHAR NOT NULL,
		from_state VARCHAR NOT NULL,
		to_state   VARCHAR NOT NULL,
		reason     VARCHAR NOT NULL,
		occurred_at TIMESTAMP NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS event_alert_states (
		event_id          VARCHAR PRIMARY KEY,
		last_alerted_at   TIMESTAMP,
		last_fingerprint  VARCHAR,
		cooldown_until    TIMESTAMP
	);`,
	`CREATE TABLE IF NOT EXISTS merge_audits (
		id               VARCHAR PRIMARY KEY,
		absorbed_event_id VARCHAR NOT NULL,
		canonical_event_id VARCHAR NOT NULL,
		reason           VARCHAR NOT NULL,
		merged_at        TIMESTAMP NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS feedback_events (
		id          VARCHAR PRIMARY KEY,
		event_id    VARCHAR NOT NULL,
		action      VARCHAR NOT NULL,
		actor       VARCHAR,
		note        VARCHAR,
		received_at TIMESTAMP NOT NULL
	);`,
}

var createIndexStatements = []string{
	`CREATE INDEX IF NOT EXISTS idx_fetch_attempts_source ON fetch_attempts(source_id, started_at);`,
	`CREATE INDEX IF NOT EXISTS idx_snapshots_source ON snapshots(source_id, fetched_at);`,
	`CREATE INDEX IF NOT EXISTS idx_documents_event ON documents(event_id);`,
	`CREATE INDEX IF NOT EXISTS idx_documents_source ON documents(source_id, extracted_at);`,
	`CREATE INDEX IF NOT EXISTS idx_anchors_document ON anchors(document_id);`,
	`CREATE INDEX IF NOT EXISTS idx_anchors_normalized ON anchors(anchor_type, normalized);`,
	`CREATE INDEX IF NOT EXISTS idx_entity_mentions_document ON entity_mentions(document_id);`,
	`CREATE INDEX IF NOT EXISTS idx_events_state ON events(state);`,
	`CREATE INDEX IF NOT EXISTS idx_events_canonical ON events(canonical_id);`,
	`CREATE INDEX IF NOT EXISTS idx_event_docs_document ON event_docs(document_id);`,
	`CREATE INDEX IF NOT EXISTS idx_event_state_history_event ON event_state_history(event_id, occurred_at);`,
	`CREATE INDEX IF NOT EXISTS idx_merge_audits_absorbed ON merge_audits(absorbed_event_id);`,
	`CREATE INDEX IF NOT EXISTS idx_feedback_events_event ON feedback_events(event_id, received_at);`,
}

func (s *Store) createTables() error {
	for _, stmt := range createTableStatements {
		if _, err := s.conn.Exec(stmt); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

func (s *Store) createIndexes() error {
	for _, stmt := range createIndexStatements {
		if _, err := s.conn.Exec(stmt); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
