// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

package organizer

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tomfr/radar/internal/model"
)

// Split moves the named document versions onto a brand new Event, starting
// in HYDRATING. It is only ever triggered by an explicit editorial SPLIT
// feedback action, never by any automatic linkage rule.
func (e *Engine) Split(ctx context.Context, headline string, docs []model.Document) (string, error) {
	if len(docs) == 0 {
		return "", fmt.Errorf("split: no documents given")
	}

	now := e.now()
	newEvent := model.Event{
		ID:            uuid.NewString(),
		State:         model.StateHydrating,
		Headline:      headline,
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
	if err := e.store.CreateEvent(ctx, newEvent); err != nil {
		return "", fmt.Errorf("split: create event: %w", err)
	}

	for _, d := range docs {
		if err := e.store.AttachDocumentToEvent(ctx, d.ID, d.Version, newEvent.ID, model.LinkageNewEvent); err != nil {
			return "", fmt.Errorf("split: attach %s to %s: %w", d.ID, newEvent.ID, err)
		}
	}
	return newEvent.ID, nil
}
