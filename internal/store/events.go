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

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomfr/radar/internal/metrics"
	"github.com/tomfr/radar/internal/model"
)

// CreateEvent inserts a brand new Event, starting in HYDRATING.
func (s *Store) CreateEvent(ctx context.Context, e model.Event) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO events (id, canonical_id, state, unverified_viral, headline, primary_anchor, created_at, last_updated_at, quarantined_at)
		VALUES (?, NULL, ?, ?, ?, ?, ?, ?, NULL)`,
		e.ID, string(e.State), e.UnverifiedViral, e.Headline, e.PrimaryAnchor, e.CreatedAt, e.LastUpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create event %s: %w", e.ID, err)
	}
	return nil
}

// GetEvent fetches an event by ID, following canonical_id if it has been
// merged away is the caller's responsibility (ResolveCanonical does that).
func (s *Store) GetEvent(ctx context.Context, id string) (model.Event, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT id, canonical_id, state, unverified_viral, headline, primary_anchor, created_at, last_updated_at, quarantined_at
		FROM events WHERE id = ?`, id)
	return scanEvent(row)
}

// SetUnverifiedViral flips the UNVERIFIED_VIRAL flag, independent of state.
func (s *Store) SetUnverifiedViral(ctx context.Context, eventID string, viral bool) error {
	if _, err := s.conn.ExecContext(ctx, `UPDATE events SET unverified_viral = ? WHERE id = ?`, viral, eventID); err != nil {
		return fmt.Errorf("set unverified_viral for %s: %w", eventID, err)
	}
	return nil
}

// ResolveCanonical follows canonical_id chains until it finds an event that
// has not itself been merged away.
func (s *Store) ResolveCanonical(ctx context.Context, id string) (string, error) {
	current := id
	for i := 0; i < 16; i++ {
		var canonicalID sql.NullString
		row := s.conn.QueryRowContext(ctx, `SELECT canonical_id FROM events WHERE id = ?`, current)
		if err := row.Scan(&canonicalID); err != nil {
			return "", fmt.Errorf("resolve canonical for %s: %w", id, err)
		}
		if !canonicalID.Valid {
			return current, nil
		}
		current = canonicalID.String
	}
	return "", fmt.Errorf("resolve canonical for %s: merge chain too deep", id)
}

// TransitionEventState moves an event to a new state and appends a history
// row. The event row and history row are written in one transaction.
func (s *Store) TransitionEventState(ctx context.Context, eventID string, from, to model.EventState, reason string, at time.Time) error {
	unlock := s.lockRow("event:" + eventID)
	defer unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transition tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE events SET state = ?, last_updated_at = ? WHERE id = ? AND state = ?`,
		string(to), at, eventID, string(from))
	if err != nil {
		return fmt.Errorf("transition event %s: %w", eventID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("transition event %s: expected state %s not current", eventID, from)
	}

	if to == model.StateQuarantined {
		if _, err := tx.ExecContext(ctx, `UPDATE events SET quarantined_at = ? WHERE id = ?`, at, eventID); err != nil {
			return fmt.Errorf("set quarantined_at for %s: %w", eventID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO event_state_history (id, event_id, from_state, to_state, reason, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)`, uuid.NewString(), eventID, string(from), string(to), reason, at); err != nil {
		return fmt.Errorf("insert state history for %s: %w", eventID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transition tx: %w", err)
	}
	metrics.EventStateTransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
	return nil
}

// EventsInState lists events currently in a given state, used by the state
// machine's timeout sweep.
func (s *Store) EventsInState(ctx context.Context, state model.EventState) ([]model.Event, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, canonical_id, state, unverified_viral, headline, primary_anchor, created_at, last_updated_at, quarantined_at
		FROM events WHERE state = ?`, string(state))
	if err != nil {
		return nil, fmt.Errorf("events in state %s: %w", state, err)
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		e, err := scanEventRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MergeEvent absorbs one event into another: sets the absorbed event's
// canonical_id, transitions it to MERGED with a matching history row,
// re-points its documents, and records a MergeAudit row. A repeat call for
// an already-absorbed event is a no-op: MERGE(A,B) followed by MERGE(A,B)
// appends neither a second history row nor a second MergeAudit row.
func (s *Store) MergeEvent(ctx context.Context, absorbedID, canonicalID string, reason model.MergeReason, at time.Time) error {
	unlock := s.lockRow("event:" + canonicalID)
	defer unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin merge tx: %w", err)
	}
	defer tx.Rollback()

	var currentCanonical sql.NullString
	var currentState string
	row := tx.QueryRowContext(ctx, `SELECT canonical_id, state FROM events WHERE id = ?`, absorbedID)
	if err := row.Scan(&currentCanonical, &currentState); err != nil {
		return fmt.Errorf("load event %s for merge: %w", absorbedID, err)
	}
	if currentCanonical.Valid {
		return tx.Commit()
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE events SET canonical_id = ?, state = ?, last_updated_at = ? WHERE id = ?`,
		canonicalID, string(model.StateMerged), at, absorbedID); err != nil {
		return fmt.Errorf("set canonical_id on %s: %w", absorbedID, err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE documents SET event_id = ? WHERE event_id = ?`, canonicalID, absorbedID); err != nil {
		return fmt.Errorf("repoint documents from %s to %s: %w", absorbedID, canonicalID, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO event_state_history (id, event_id, from_state, to_state, reason, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), absorbedID, currentState, string(model.StateMerged), string(reason), at); err != nil {
		return fmt.Errorf("insert merge state history for %s: %w", absorbedID, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO merge_audits (id, absorbed_event_id, canonical_event_id, reason, merged_at)
		VALUES (?, ?, ?, ?, ?)`, uuid.NewString(), absorbedID, canonicalID, string(reason), at); err != nil {
		return fmt.Errorf("insert merge audit %s->%s: %w", absorbedID, canonicalID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit merge tx: %w", err)
	}
	metrics.EventStateTransitionsTotal.WithLabelValues(currentState, string(model.StateMerged)).Inc()
	metrics.OrganizerMergesTotal.WithLabelValues(string(reason)).Inc()
	return nil
}

// UpsertEventScore writes the latest dual score for an event, including its
// additive reasons_json breakdown for each of the two scores.
func (s *Store) UpsertEventScore(ctx context.Context, sc model.EventScore) error {
	plantaoReasons, err := json.Marshal(sc.PlantaoReasons)
	if err != nil {
		return fmt.Errorf("marshal plantao reasons for %s: %w", sc.EventID, err)
	}
	oceanoReasons, err := json.Marshal(sc.OceanoReasons)
	if err != nil {
		return fmt.Errorf("marshal oceano reasons for %s: %w", sc.EventID, err)
	}
	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO event_scores (event_id, score_plantao, plantao_reasons_json, score_oceano_azul, oceano_reasons_json, computed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (event_id) DO UPDATE SET
			score_plantao = excluded.score_plantao, plantao_reasons_json = excluded.plantao_reasons_json,
			score_oceano_azul = excluded.score_oceano_azul, oceano_reasons_json = excluded.oceano_reasons_json,
			computed_at = excluded.computed_at`,
		sc.EventID, sc.ScorePlantao, string(plantaoReasons), sc.ScoreOceanoAzul, string(oceanoReasons), sc.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert event score for %s: %w", sc.EventID, err)
	}
	return nil
}

// GetEventScore fetches an event's current dual score.
func (s *Store) GetEventScore(ctx context.Context, eventID string) (model.EventScore, error) {
	var sc model.EventScore
	sc.EventID = eventID
	var plantaoReasons, oceanoReasons string
	row := s.conn.QueryRowContext(ctx, `
		SELECT score_plantao, plantao_reasons_json, score_oceano_azul, oceano_reasons_json, computed_at FROM event_scores WHERE event_id = ?`, eventID)
	if err := row.Scan(&sc.ScorePlantao, &plantaoReasons, &sc.ScoreOceanoAzul, &oceanoReasons, &sc.ComputedAt); err != nil {
		if err == sql.ErrNoRows {
			return model.EventScore{EventID: eventID}, nil
		}
		return model.EventScore{}, fmt.Errorf("get event score for %s: %w", eventID, err)
	}
	if plantaoReasons != "" {
		if err := json.Unmarshal([]byte(plantaoReasons), &sc.PlantaoReasons); err != nil {
			return model.EventScore{}, fmt.Errorf("unmarshal plantao reasons for %s: %w", eventID, err)
		}
	}
	if oceanoReasons != "" {
		if err := json.Unmarshal([]byte(oceanoReasons), &sc.OceanoReasons); err != nil {
			return model.EventScore{}, fmt.Errorf("unmarshal oceano reasons for %s: %w", eventID, err)
		}
	}
	return sc, nil
}

// GetAlertState fetches an event's cooldown/fingerprint bookkeeping, zero
// value if none recorded yet.
func (s *Store) GetAlertState(ctx context.Context, eventID string) (model.EventAlertState, error) {
	st := model.EventAlertState{EventID: eventID}
	var lastAlerted, cooldownUntil sql.NullTime
	var fingerprint sql.NullString
	row := s.conn.QueryRowContext(ctx, `
		SELECT last_alerted_at, last_fingerprint, cooldown_until FROM event_alert_states WHERE event_id = ?`, eventID)
	err := row.Scan(&lastAlerted, &fingerprint, &cooldownUntil)
	if err == sql.ErrNoRows {
		return st, nil
	}
	if err != nil {
		return model.EventAlertState{}, fmt.Errorf("get alert state for %s: %w", eventID, err)
	}
	st.LastAlertedAt = lastAlerted.Time
	st.LastFingerprint = fingerprint.String
	st.CooldownUntil = cooldownUntil.Time
	return st, nil
}

// UpsertAlertState records that an alert was (or was not) sent, updating
// cooldown and fingerprint bookkeeping.
func (s *Store) UpsertAlertState(ctx context.Context, st model.EventAlertState) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO event_alert_states (event_id, last_alerted_at, last_fingerprint, cooldown_until)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (event_id) DO UPDATE SET
			last_alerted_at = excluded.last_alerted_at, last_fingerprint = excluded.last_fingerprint,
			cooldown_until = excluded.cooldown_until`,
		st.EventID, st.LastAlertedAt, st.LastFingerprint, st.CooldownUntil,
	)
	if err != nil {
		return fmt.Errorf("upsert alert state for %s: %w", st.EventID, err)
	}
	return nil
}

// DocumentsForEvent returns the IDs of documents currently attached to an
// event.
func (s *Store) DocumentsForEvent(ctx context.Context, eventID string) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT document_id FROM event_docs WHERE event_id = ?`, eventID)
	if err != nil {
		return nil, fmt.Errorf("documents for event %s: %w", eventID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan document id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// EventSourceCount returns the number of distinct sources among the
// documents currently attached to an event, used for the broadcast
// projection's source_count field.
func (s *Store) EventSourceCount(ctx context.Context, eventID string) (int, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT d.source_id)
		FROM event_docs ed
		JOIN documents d ON d.id = ed.document_id
		WHERE ed.event_id = ?`, eventID)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("source count for event %s: %w", eventID, err)
	}
	return count, nil
}

// EventHasFastSource reports whether any document currently attached to an
// event came from a FAST-strategy source, used to pick the HYDRATING gate
// timeout that applies to the event.
func (s *Store) EventHasFastSource(ctx context.Context, eventID string) (bool, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM event_docs ed
		JOIN documents d ON d.id = ed.document_id
		JOIN sources src ON src.id = d.source_id
		WHERE ed.event_id = ? AND src.fetch_strategy = ?`, eventID, string(model.StrategyFast))
	var count int
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("fast source check for event %s: %w", eventID, err)
	}
	return count > 0, nil
}

func scanEvent(row *sql.Row) (model.Event, error) {
	var e model.Event
	var canonicalID sql.NullString
	var state string
	var quarantinedAt sql.NullTime
	if err := row.Scan(&e.ID, &canonicalID, &state, &e.UnverifiedViral, &e.Headline, &e.PrimaryAnchor, &e.CreatedAt, &e.LastUpdatedAt, &quarantinedAt); err != nil {
		return model.Event{}, fmt.Errorf("scan event: %w", err)
	}
	e.CanonicalID = canonicalID.String
	e.State = model.EventState(state)
	e.QuarantinedAt = quarantinedAt.Time
	return e, nil
}

func scanEventRows(rows *sql.Rows) (model.Event, error) {
	var e model.Event
	var canonicalID sql.NullString
	var state string
	var quarantinedAt sql.NullTime
	if err := rows.Scan(&e.ID, &canonicalID, &state, &e.UnverifiedViral, &e.Headline, &e.PrimaryAnchor, &e.CreatedAt, &e.LastUpdatedAt, &quarantinedAt); err != nil {
		return model.Event{}, fmt.Errorf("scan event row: %w", err)
	}
	e.CanonicalID = canonicalID.String
	e.State = model.EventState(state)
	e.QuarantinedAt = quarantinedAt.Time
	return e, nil
}
