// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

package feedback

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomfr/radar/internal/broadcast"
	"github.com/tomfr/radar/internal/model"
)

type fakeStore struct {
	events    map[string]model.Event
	attached  map[string][]string
	documents map[string]model.Document
	feedback  []model.FeedbackEvent
	merges    []mergeCall
	mergeErr  error
}

type mergeCall struct {
	absorbed, canonical string
	reason              model.MergeReason
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:    make(map[string]model.Event),
		attached:  make(map[string][]string),
		documents: make(map[string]model.Document),
	}
}

func (f *fakeStore) GetEvent(ctx context.Context, id string) (model.Event, error) {
	e, ok := f.events[id]
	if !ok {
		return model.Event{}, errors.New("not found")
	}
	return e, nil
}

func (f *fakeStore) InsertFeedbackEvent(ctx context.Context, fe model.FeedbackEvent) error {
	f.feedback = append(f.feedback, fe)
	return nil
}

func (f *fakeStore) DocumentsForEvent(ctx context.Context, eventID string) ([]string, error) {
	return f.attached[eventID], nil
}

func (f *fakeStore) LatestDocumentVersion(ctx context.Context, documentID string) (model.Document, error) {
	d, ok := f.documents[documentID]
	if !ok {
		return model.Document{}, errors.New("not found")
	}
	return d, nil
}

func (f *fakeStore) MergeEvent(ctx context.Context, absorbedID, canonicalID string, reason model.MergeReason, at time.Time) error {
	if f.mergeErr != nil {
		return f.mergeErr
	}
	f.merges = append(f.merges, mergeCall{absorbed: absorbedID, canonical: canonicalID, reason: reason})
	return nil
}

type fakeMachine struct {
	transitions []string
	err         error
}

func (f *fakeMachine) Transition(ctx context.Context, eventID string, from, to model.EventState, reason string) error {
	if f.err != nil {
		return f.err
	}
	f.transitions = append(f.transitions, string(from)+"->"+string(to))
	return nil
}

type fakeOrganizer struct {
	splitHeadline string
	splitDocs     []model.Document
}

func (f *fakeOrganizer) Split(ctx context.Context, headline string, docs []model.Document) (string, error) {
	f.splitHeadline = headline
	f.splitDocs = docs
	return "new-event-id", nil
}

type fakeBroadcaster struct {
	stateChanged []broadcast.EventStateChangedData
	merged       []broadcast.EventMergedData
}

func (f *fakeBroadcaster) PublishEventStateChanged(data broadcast.EventStateChangedData) {
	f.stateChanged = append(f.stateChanged, data)
}
func (f *fakeBroadcaster) PublishEventMerged(data broadcast.EventMergedData) {
	f.merged = append(f.merged, data)
}

func TestSink_Submit_IgnoreAllowed(t *testing.T) {
	store := newFakeStore()
	store.events["evt-1"] = model.Event{ID: "evt-1", State: model.StateHot}
	machine := &fakeMachine{}
	bc := &fakeBroadcaster{}
	sink := New(store, machine, &fakeOrganizer{}, bc)

	fe, err := sink.Submit(context.Background(), Request{EventID: "evt-1", Action: model.FeedbackIgnore, Actor: "editor-1"})
	require.NoError(t, err)
	assert.Equal(t, model.FeedbackIgnore, fe.Action)
	assert.Equal(t, []string{"HOT->IGNORED"}, machine.transitions)
	assert.Len(t, store.feedback, 1)
	assert.Len(t, bc.stateChanged, 1)
}

func TestSink_Submit_IgnoreRejected_TerminalState(t *testing.T) {
	store := newFakeStore()
	store.events["evt-1"] = model.Event{ID: "evt-1", State: model.StateMerged}
	sink := New(store, &fakeMachine{}, &fakeOrganizer{}, nil)

	_, err := sink.Submit(context.Background(), Request{EventID: "evt-1", Action: model.FeedbackIgnore})
	require.Error(t, err)
	var notAllowed *ErrActionNotAllowed
	assert.ErrorAs(t, err, &notAllowed)
	assert.Empty(t, store.feedback, "rejected action must not be persisted")
}

func TestSink_Submit_SnoozeAllowed(t *testing.T) {
	store := newFakeStore()
	store.events["evt-1"] = model.Event{ID: "evt-1", State: model.StatePartialEnrich}
	machine := &fakeMachine{}
	sink := New(store, machine, &fakeOrganizer{}, nil)

	_, err := sink.Submit(context.Background(), Request{EventID: "evt-1", Action: model.FeedbackSnooze})
	require.NoError(t, err)
	assert.Equal(t, []string{"PARTIAL_ENRICH->QUARANTINE"}, machine.transitions)
}

func TestSink_Submit_MergeSuccess(t *testing.T) {
	store := newFakeStore()
	store.events["evt-1"] = model.Event{ID: "evt-1", State: model.StateHot}
	store.events["evt-2"] = model.Event{ID: "evt-2", State: model.StateHot}
	bc := &fakeBroadcaster{}
	sink := New(store, &fakeMachine{}, &fakeOrganizer{}, bc)

	_, err := sink.Submit(context.Background(), Request{EventID: "evt-1", Action: model.FeedbackMerge, MergeInto: "evt-2"})
	require.NoError(t, err)
	require.Len(t, store.merges, 1)
	assert.Equal(t, "evt-1", store.merges[0].absorbed)
	assert.Equal(t, "evt-2", store.merges[0].canonical)
	assert.Equal(t, model.MergeManualEditorial, store.merges[0].reason)
	require.Len(t, bc.merged, 1)
	assert.Equal(t, "evt-2", bc.merged[0].ToEventID)
}

func TestSink_Submit_MergeRejectsSelfTarget(t *testing.T) {
	store := newFakeStore()
	store.events["evt-1"] = model.Event{ID: "evt-1", State: model.StateHot}
	sink := New(store, &fakeMachine{}, &fakeOrganizer{}, nil)

	_, err := sink.Submit(context.Background(), Request{EventID: "evt-1", Action: model.FeedbackMerge, MergeInto: "evt-1"})
	require.Error(t, err)
	assert.Empty(t, store.merges)
}

func TestSink_Submit_MergeRejectsUnknownTarget(t *testing.T) {
	store := newFakeStore()
	store.events["evt-1"] = model.Event{ID: "evt-1", State: model.StateHot}
	sink := New(store, &fakeMachine{}, &fakeOrganizer{}, nil)

	_, err := sink.Submit(context.Background(), Request{EventID: "evt-1", Action: model.FeedbackMerge, MergeInto: "evt-does-not-exist"})
	require.Error(t, err)
	assert.Empty(t, store.merges)
}

func TestSink_Submit_MergeRejectedFromTerminalState(t *testing.T) {
	store := newFakeStore()
	store.events["evt-1"] = model.Event{ID: "evt-1", State: model.StateMerged}
	store.events["evt-2"] = model.Event{ID: "evt-2", State: model.StateHot}
	sink := New(store, &fakeMachine{}, &fakeOrganizer{}, nil)

	_, err := sink.Submit(context.Background(), Request{EventID: "evt-1", Action: model.FeedbackMerge, MergeInto: "evt-2"})
	require.Error(t, err)
	var notAllowed *ErrActionNotAllowed
	assert.ErrorAs(t, err, &notAllowed)
}

func TestSink_Submit_SplitSuccess(t *testing.T) {
	store := newFakeStore()
	store.events["evt-1"] = model.Event{ID: "evt-1", State: model.StateHot, Headline: "original headline"}
	store.attached["evt-1"] = []string{"doc-1", "doc-2"}
	store.documents["doc-1"] = model.Document{ID: "doc-1", Version: 2}
	store.documents["doc-2"] = model.Document{ID: "doc-2", Version: 1}
	org := &fakeOrganizer{}
	sink := New(store, &fakeMachine{}, org, nil)

	fe, err := sink.Submit(context.Background(), Request{
		EventID: "evt-1", Action: model.FeedbackSplit, SplitDocumentIDs: []string{"doc-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, model.FeedbackSplit, fe.Action)
	assert.Equal(t, "original headline", org.splitHeadline)
	require.Len(t, org.splitDocs, 1)
	assert.Equal(t, "doc-1", org.splitDocs[0].ID)
}

func TestSink_Submit_SplitRejectsUnattachedDocument(t *testing.T) {
	store := newFakeStore()
	store.events["evt-1"] = model.Event{ID: "evt-1", State: model.StateHot}
	store.attached["evt-1"] = []string{"doc-1"}
	sink := New(store, &fakeMachine{}, &fakeOrganizer{}, nil)

	_, err := sink.Submit(context.Background(), Request{
		EventID: "evt-1", Action: model.FeedbackSplit, SplitDocumentIDs: []string{"doc-999"},
	})
	require.Error(t, err)
	assert.Empty(t, store.feedback)
}

func TestSink_Submit_SplitRejectsEmptyDocumentList(t *testing.T) {
	store := newFakeStore()
	store.events["evt-1"] = model.Event{ID: "evt-1", State: model.StateHot}
	sink := New(store, &fakeMachine{}, &fakeOrganizer{}, nil)

	_, err := sink.Submit(context.Background(), Request{EventID: "evt-1", Action: model.FeedbackSplit})
	require.Error(t, err)
}

func TestSink_Submit_UnknownAction(t *testing.T) {
	store := newFakeStore()
	store.events["evt-1"] = model.Event{ID: "evt-1", State: model.StateHot}
	sink := New(store, &fakeMachine{}, &fakeOrganizer{}, nil)

	_, err := sink.Submit(context.Background(), Request{EventID: "evt-1", Action: model.FeedbackAction("bogus")})
	require.Error(t, err)
}

func TestSink_Submit_UnknownEvent(t *testing.T) {
	store := newFakeStore()
	sink := New(store, &fakeMachine{}, &fakeOrganizer{}, nil)

	_, err := sink.Submit(context.Background(), Request{EventID: "missing", Action: model.FeedbackIgnore})
	require.Error(t, err)
}
