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

// InsertFeedbackEvent records one piece of editorial feedback about an
// event, received through the Feedback Sink.
func (s *Store) InsertFeedbackEvent(ctx context.Context, f model.FeedbackEvent) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO feedback_events (id, event_id, action, actor, note, received_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		f.ID, f.EventID, string(f.Action), f.Actor, f.Note, f.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("insert feedback event %s: %w", f.ID, err)
	}
	return nil
}

// FeedbackForEvent returns the feedback history for an event, oldest first.
func (s *Store) FeedbackForEvent(ctx context.Context, eventID string) ([]model.FeedbackEvent, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, event_id, action, actor, note, received_at FROM feedback_events
		WHERE event_id = ? ORDER BY received_at ASC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("feedback for event %s: %w", eventID, err)
	}
	defer rows.Close()

	var out []model.FeedbackEvent
	for rows.Next() {
		var f model.FeedbackEvent
		var action string
		if err := rows.Scan(&f.ID, &f.EventID, &action, &f.Actor, &f.Note, &f.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scan feedback event: %w", err)
		}
		f.Action = model.FeedbackAction(action)
		out = append(out, f)
	}
	return out, rows.Err()
}
