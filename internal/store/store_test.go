// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tomfr/radar/internal/config"
	"github.com/tomfr/radar/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := &config.DatabaseConfig{
		Path:      filepath.Join(t.TempDir(), "radar.duckdb"),
		MaxMemory: "512MB",
		Threads:   2,
	}
	s, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func TestStore_SourceRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	src := model.Source{
		ID:            "ap-wire",
		Name:          "Associated Press",
		Tier:          model.TierWire,
		HomepageURL:   "https://apnews.com",
		PollInterval:  30 * time.Second,
		FetchStrategy: model.StrategyFast,
		Strategy:      model.ContentRSS,
		TrustWeight:   1.0,
		Enabled:       true,
		ProfileHash:   "abc123",
		UpdatedAt:     time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.UpsertSource(ctx, src))

	got, err := s.GetSource(ctx, "ap-wire")
	require.NoError(t, err)
	require.Equal(t, src.Name, got.Name)
	require.Equal(t, src.Tier, got.Tier)
	require.Equal(t, src.FetchStrategy, got.FetchStrategy)
	require.Equal(t, src.Strategy, got.Strategy)

	enabled, err := s.ListEnabledSources(ctx)
	require.NoError(t, err)
	require.Len(t, enabled, 1)
}

func TestStore_DocumentVersioningAndAttach(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateEvent(ctx, model.Event{
		ID:            "evt-1",
		State:         model.StateHydrating,
		Headline:      "placeholder",
		CreatedAt:     time.Now().UTC(),
		LastUpdatedAt: time.Now().UTC(),
	}))

	v1, err := s.NextDocumentVersion(ctx, "doc-1")
	require.NoError(t, err)
	require.Equal(t, 1, v1)

	doc := model.Document{
		ID:          "doc-1",
		Version:     v1,
		SourceID:    "ap-wire",
		URL:         "https://apnews.com/article/1",
		Title:       "Bridge collapse in city center",
		BodyText:    "Officials said the bridge collapsed at 9am.",
		ExtractedAt: time.Now().UTC(),
		Strategy:    model.ExtractReadability,
	}
	require.NoError(t, s.InsertDocumentVersion(ctx, doc))

	v2, err := s.NextDocumentVersion(ctx, "doc-1")
	require.NoError(t, err)
	require.Equal(t, 2, v2)

	require.NoError(t, s.AttachDocumentToEvent(ctx, "doc-1", v1, "evt-1", model.LinkageNewEvent))

	ids, err := s.DocumentsForEvent(ctx, "evt-1")
	require.NoError(t, err)
	require.Contains(t, ids, "doc-1")
}

func TestStore_AnchorLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertAnchors(ctx, []model.Anchor{
		{ID: "a1", DocumentID: "doc-1", Type: model.AnchorCNJ, Value: "2026-CR-0042", Normalized: "2026-cr-0042", Confidence: 0.95},
		{ID: "a2", DocumentID: "doc-2", Type: model.AnchorCNJ, Value: "2026-CR-0042", Normalized: "2026-cr-0042", Confidence: 0.9},
	}))

	ids, err := s.FindDocumentsByAnchor(ctx, model.AnchorCNJ, "2026-cr-0042")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"doc-1", "doc-2"}, ids)
}

func TestStore_EventStateTransitionAndMerge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.CreateEvent(ctx, model.Event{ID: "evt-a", State: model.StateHydrating, Headline: "a", CreatedAt: now, LastUpdatedAt: now}))
	require.NoError(t, s.CreateEvent(ctx, model.Event{ID: "evt-b", State: model.StateHydrating, Headline: "b", CreatedAt: now, LastUpdatedAt: now}))

	require.NoError(t, s.TransitionEventState(ctx, "evt-a", model.StateHydrating, model.StatePartialEnrich, "second document attached", now))

	got, err := s.GetEvent(ctx, "evt-a")
	require.NoError(t, err)
	require.Equal(t, model.StatePartialEnrich, got.State)

	// Wrong expected "from" state must fail.
	err = s.TransitionEventState(ctx, "evt-a", model.StateHydrating, model.StateHot, "bad", now)
	require.Error(t, err)

	require.NoError(t, s.MergeEvent(ctx, "evt-b", "evt-a", model.MergeSharedAnchorPair, now))
	canonical, err := s.ResolveCanonical(ctx, "evt-b")
	require.NoError(t, err)
	require.Equal(t, "evt-a", canonical)

	absorbed, err := s.GetEvent(ctx, "evt-b")
	require.NoError(t, err)
	require.Equal(t, model.StateMerged, absorbed.State)

	var historyCount, auditCount int
	require.NoError(t, s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM event_state_history WHERE event_id = ? AND to_state = ?`,
		"evt-b", string(model.StateMerged)).Scan(&historyCount))
	require.Equal(t, 1, historyCount)
	require.NoError(t, s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM merge_audits WHERE absorbed_event_id = ?`, "evt-b").Scan(&auditCount))
	require.Equal(t, 1, auditCount)

	// Repeating the merge must be idempotent: no second history or audit row.
	require.NoError(t, s.MergeEvent(ctx, "evt-b", "evt-a", model.MergeSharedAnchorPair, now))
	require.NoError(t, s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM event_state_history WHERE event_id = ? AND to_state = ?`,
		"evt-b", string(model.StateMerged)).Scan(&historyCount))
	require.Equal(t, 1, historyCount)
	require.NoError(t, s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM merge_audits WHERE absorbed_event_id = ?`, "evt-b").Scan(&auditCount))
	require.Equal(t, 1, auditCount)
}

func TestStore_AlertCooldownRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	st, err := s.GetAlertState(ctx, "evt-unknown")
	require.NoError(t, err)
	require.True(t, st.LastAlertedAt.IsZero())

	require.NoError(t, s.UpsertAlertState(ctx, model.EventAlertState{
		EventID:         "evt-a",
		LastAlertedAt:   now,
		LastFingerprint: "fp-1",
		CooldownUntil:   now.Add(5 * time.Minute),
	}))

	got, err := s.GetAlertState(ctx, "evt-a")
	require.NoError(t, err)
	require.Equal(t, "fp-1", got.LastFingerprint)
}
