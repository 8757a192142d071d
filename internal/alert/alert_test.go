// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

package alert

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomfr/radar/internal/model"
)

type fakeStore struct {
	states map[string]model.EventAlertState
}

func newFakeStore() *fakeStore {
	return &fakeStore{states: make(map[string]model.EventAlertState)}
}

func (f *fakeStore) GetAlertState(ctx context.Context, eventID string) (model.EventAlertState, error) {
	return f.states[eventID], nil
}

func (f *fakeStore) UpsertAlertState(ctx context.Context, st model.EventAlertState) error {
	f.states[st.EventID] = st
	return nil
}

type fakeNotifier struct {
	sent []Payload
}

func (f *fakeNotifier) Send(ctx context.Context, p Payload) error {
	f.sent = append(f.sent, p)
	return nil
}

func TestDispatcher_SendsFirstAlert(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	d := New(store, notifier, time.Minute)

	err := d.Dispatch(context.Background(), "evt-1", "HYDRATING->HOT", "score_threshold")
	require.NoError(t, err)
	assert.Len(t, notifier.sent, 1)
	assert.Equal(t, "evt-1", store.states["evt-1"].EventID)
}

func TestDispatcher_SuppressesDuplicateWithinCooldown(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	now := time.Now()
	d := New(store, notifier, time.Hour)
	d.now = func() time.Time { return now }

	require.NoError(t, d.Dispatch(context.Background(), "evt-1", "HYDRATING->HOT", "score_threshold"))
	require.NoError(t, d.Dispatch(context.Background(), "evt-1", "HYDRATING->HOT", "score_threshold"))
	assert.Len(t, notifier.sent, 1)
}

func TestDispatcher_ResendsAfterCooldownElapses(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	now := time.Now()
	d := New(store, notifier, time.Minute)
	d.now = func() time.Time { return now }

	require.NoError(t, d.Dispatch(context.Background(), "evt-1", "HYDRATING->HOT", "score_threshold"))
	d.now = func() time.Time { return now.Add(2 * time.Minute) }
	require.NoError(t, d.Dispatch(context.Background(), "evt-1", "HYDRATING->HOT", "score_threshold"))
	assert.Len(t, notifier.sent, 2)
}

func TestDispatcher_ResendsWhenFingerprintChanges(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	now := time.Now()
	d := New(store, notifier, time.Hour)
	d.now = func() time.Time { return now }

	require.NoError(t, d.Dispatch(context.Background(), "evt-1", "HYDRATING->HOT", "score_threshold"))
	require.NoError(t, d.Dispatch(context.Background(), "evt-1", "HOT->MERGED", "canonicalized"))
	assert.Len(t, notifier.sent, 2)
}
