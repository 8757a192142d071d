// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

package eventstate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomfr/radar/internal/config"
	"github.com/tomfr/radar/internal/model"
)

type fakeStore struct {
	events      map[string]model.Event
	fastSources map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{events: make(map[string]model.Event), fastSources: make(map[string]bool)}
}

func (f *fakeStore) EventHasFastSource(ctx context.Context, eventID string) (bool, error) {
	return f.fastSources[eventID], nil
}

func (f *fakeStore) GetEvent(ctx context.Context, id string) (model.Event, error) {
	return f.events[id], nil
}

func (f *fakeStore) TransitionEventState(ctx context.Context, eventID string, from, to model.EventState, reason string, at time.Time) error {
	e := f.events[eventID]
	if e.State != from {
		return assertErr{}
	}
	e.State = to
	e.LastUpdatedAt = at
	if to == model.StateQuarantined {
		e.QuarantinedAt = at
	}
	f.events[eventID] = e
	return nil
}

func (f *fakeStore) EventsInState(ctx context.Context, state model.EventState) ([]model.Event, error) {
	var out []model.Event
	for _, e := range f.events {
		if e.State == state {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) SetUnverifiedViral(ctx context.Context, eventID string, viral bool) error {
	e := f.events[eventID]
	e.UnverifiedViral = viral
	f.events[eventID] = e
	return nil
}

type assertErr struct{}

func (assertErr) Error() string { return "state mismatch" }

func TestMachine_Transition_AllowedEdge(t *testing.T) {
	store := newFakeStore()
	store.events["e1"] = model.Event{ID: "e1", State: model.StateHydrating, LastUpdatedAt: time.Now()}
	m := New(store, config.EventStateConfig{QuarantineTTL: 15 * time.Minute, HotInactivityHorizon: time.Hour}, 15*time.Second, 45*time.Second)

	err := m.Transition(context.Background(), "e1", model.StateHydrating, model.StatePartialEnrich, "test")
	require.NoError(t, err)
	assert.Equal(t, model.StatePartialEnrich, store.events["e1"].State)
}

func TestMachine_Transition_RejectsDisallowedEdge(t *testing.T) {
	store := newFakeStore()
	store.events["e1"] = model.Event{ID: "e1", State: model.StateExpired}
	m := New(store, config.EventStateConfig{}, 0, 0)

	err := m.Transition(context.Background(), "e1", model.StateExpired, model.StateHot, "test")
	var notAllowed *ErrTransitionNotAllowed
	assert.ErrorAs(t, err, &notAllowed)
}

func TestMachine_Sweep_ExpiresQuarantineAfterTTL(t *testing.T) {
	store := newFakeStore()
	store.events["e1"] = model.Event{
		ID: "e1", State: model.StateQuarantined,
		QuarantinedAt: time.Now().Add(-20 * time.Minute),
		LastUpdatedAt: time.Now().Add(-20 * time.Minute),
	}
	m := New(store, config.EventStateConfig{QuarantineTTL: 15 * time.Minute}, 15*time.Second, 45*time.Second)

	m.sweep(context.Background())
	assert.Equal(t, model.StateExpired, store.events["e1"].State)
}

func TestMachine_Sweep_GateTimeoutFallsBackToPartialEnrich(t *testing.T) {
	store := newFakeStore()
	store.events["e1"] = model.Event{ID: "e1", State: model.StateHydrating, CreatedAt: time.Now().Add(-time.Minute)}
	m := New(store, config.EventStateConfig{QuarantineTTL: 15 * time.Minute}, 15*time.Second, 45*time.Second)

	m.sweep(context.Background())
	assert.Equal(t, model.StatePartialEnrich, store.events["e1"].State)
}

func TestMachine_Sweep_FastSourceGatesAtFifteenSeconds(t *testing.T) {
	store := newFakeStore()
	store.events["e1"] = model.Event{ID: "e1", State: model.StateHydrating, CreatedAt: time.Now().Add(-20 * time.Second)}
	store.fastSources["e1"] = true
	m := New(store, config.EventStateConfig{QuarantineTTL: 15 * time.Minute}, 15*time.Second, 45*time.Second)

	m.sweep(context.Background())
	assert.Equal(t, model.StatePartialEnrich, store.events["e1"].State, "FAST-pool event should gate out at 15s, not wait for the 45s render gate")
}

func TestMachine_Sweep_NonFastSourceWaitsForRenderGate(t *testing.T) {
	store := newFakeStore()
	store.events["e1"] = model.Event{ID: "e1", State: model.StateHydrating, CreatedAt: time.Now().Add(-20 * time.Second)}
	m := New(store, config.EventStateConfig{QuarantineTTL: 15 * time.Minute}, 15*time.Second, 45*time.Second)

	m.sweep(context.Background())
	assert.Equal(t, model.StateHydrating, store.events["e1"].State, "non-FAST event should still be within the 45s render gate at 20s")
}

func TestAllowed_MergeFromAnyNonTerminal(t *testing.T) {
	assert.True(t, Allowed(model.StateHot, model.StateMerged))
	assert.True(t, Allowed(model.StateQuarantined, model.StateMerged))
	assert.False(t, Allowed(model.StateMerged, model.StateHot))
}
