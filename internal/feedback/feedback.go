// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

// Package feedback implements the Feedback Sink: it validates that a
// human editorial action is permitted against an Event's current state,
// applies it, and records a FeedbackEvent for every applied action; a
// rejected action is not recorded.
package feedback

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomfr/radar/internal/broadcast"
	"github.com/tomfr/radar/internal/eventstate"
	"github.com/tomfr/radar/internal/metrics"
	"github.com/tomfr/radar/internal/model"
)

// Store is the persistence surface the sink needs.
type Store interface {
	GetEvent(ctx context.Context, id string) (model.Event, error)
	InsertFeedbackEvent(ctx context.Context, f model.FeedbackEvent) error
	DocumentsForEvent(ctx context.Context, eventID string) ([]string, error)
	LatestDocumentVersion(ctx context.Context, documentID string) (model.Document, error)
	MergeEvent(ctx context.Context, absorbedID, canonicalID string, reason model.MergeReason, at time.Time) error
}

// StateMachine is the subset of eventstate.Machine the sink drives.
type StateMachine interface {
	Transition(ctx context.Context, eventID string, from, to model.EventState, reason string) error
}

// Organizer is the subset of organizer.Engine the sink drives for SPLIT.
type Organizer interface {
	Split(ctx context.Context, headline string, docs []model.Document) (string, error)
}

// Broadcaster is told about feedback-driven state changes so connected
// clients reflect editorial decisions without polling.
type Broadcaster interface {
	PublishEventStateChanged(data broadcast.EventStateChangedData)
	PublishEventMerged(data broadcast.EventMergedData)
}

// ErrActionNotAllowed is returned when the requested action is not
// permitted from the Event's current state.
type ErrActionNotAllowed struct {
	EventID string
	State   model.EventState
	Action  model.FeedbackAction
}

func (e *ErrActionNotAllowed) Error() string {
	return fmt.Sprintf("feedback: action %q is not allowed on event %s in state %s", e.Action, e.EventID, e.State)
}

// Request is one piece of editorial feedback submitted through the sink.
type Request struct {
	EventID  string
	Action   model.FeedbackAction
	Actor    string
	Note     string
	MergeInto       string   // required for FeedbackMerge: the canonical event id
	SplitDocumentIDs []string // required for FeedbackSplit
	SplitHeadline    string   // optional for FeedbackSplit; defaults to the source event's headline
}

// Sink validates and applies editorial feedback actions.
type Sink struct {
	store       Store
	machine     StateMachine
	organizer   Organizer
	broadcaster Broadcaster
	now         func() time.Time
}

// New builds a Sink. broadcaster may be nil, in which case feedback-driven
// transitions are applied but not pushed to the live stream directly —
// they still surface through whatever already publishes on the normal
// state-change path.
func New(store Store, machine StateMachine, organizer Organizer, broadcaster Broadcaster) *Sink {
	return &Sink{store: store, machine: machine, organizer: organizer, broadcaster: broadcaster, now: time.Now}
}

// Submit validates req against the target Event's current state, applies
// the action, and persists the FeedbackEvent audit record. Rejected
// actions are never persisted.
func (s *Sink) Submit(ctx context.Context, req Request) (model.FeedbackEvent, error) {
	event, err := s.store.GetEvent(ctx, req.EventID)
	if err != nil {
		metrics.FeedbackActionsTotal.WithLabelValues(string(req.Action), "error").Inc()
		return model.FeedbackEvent{}, fmt.Errorf("feedback: load event %s: %w", req.EventID, err)
	}

	now := s.now()

	switch req.Action {
	case model.FeedbackIgnore:
		err = s.applyTransition(ctx, event, model.StateIgnored, req.Action, "editorial_ignore", now)
	case model.FeedbackSnooze:
		err = s.applyTransition(ctx, event, model.StateQuarantined, req.Action, "editorial_snooze", now)
	case model.FeedbackMerge:
		err = s.applyMerge(ctx, event, req, now)
	case model.FeedbackSplit:
		err = s.applySplit(ctx, event, req)
	default:
		err = fmt.Errorf("feedback: unknown action %q", req.Action)
	}
	if err != nil {
		metrics.FeedbackActionsTotal.WithLabelValues(string(req.Action), "rejected").Inc()
		return model.FeedbackEvent{}, err
	}

	fe := model.FeedbackEvent{
		ID:         uuid.NewString(),
		EventID:    event.ID,
		Action:     req.Action,
		Actor:      req.Actor,
		Note:       req.Note,
		ReceivedAt: now,
	}
	if err := s.store.InsertFeedbackEvent(ctx, fe); err != nil {
		metrics.FeedbackActionsTotal.WithLabelValues(string(req.Action), "error").Inc()
		return model.FeedbackEvent{}, fmt.Errorf("feedback: persist feedback event: %w", err)
	}
	metrics.FeedbackActionsTotal.WithLabelValues(string(req.Action), "accepted").Inc()
	return fe, nil
}

func (s *Sink) applyTransition(ctx context.Context, event model.Event, to model.EventState, action model.FeedbackAction, reason string, now time.Time) error {
	if !eventstate.Allowed(event.State, to) {
		return &ErrActionNotAllowed{EventID: event.ID, State: event.State, Action: action}
	}
	if err := s.machine.Transition(ctx, event.ID, event.State, to, reason); err != nil {
		return fmt.Errorf("feedback: transition %s -> %s: %w", event.State, to, err)
	}
	if s.broadcaster != nil {
		s.broadcaster.PublishEventStateChanged(broadcast.EventStateChangedData{
			EventID:        event.ID,
			PreviousStatus: event.State,
			NewStatus:      to,
			Reason:         reason,
			OccurredAt:     now,
		})
	}
	return nil
}

func (s *Sink) applyMerge(ctx context.Context, event model.Event, req Request, now time.Time) error {
	if req.MergeInto == "" {
		return fmt.Errorf("feedback: merge requires a target event id")
	}
	if req.MergeInto == event.ID {
		return fmt.Errorf("feedback: event %s cannot merge into itself", event.ID)
	}
	if !eventstate.Allowed(event.State, model.StateMerged) {
		return &ErrActionNotAllowed{EventID: event.ID, State: event.State, Action: model.FeedbackMerge}
	}
	if _, err := s.store.GetEvent(ctx, req.MergeInto); err != nil {
		return fmt.Errorf("feedback: merge target %s: %w", req.MergeInto, err)
	}

	if err := s.store.MergeEvent(ctx, event.ID, req.MergeInto, model.MergeManualEditorial, now); err != nil {
		return fmt.Errorf("feedback: merge %s into %s: %w", event.ID, req.MergeInto, err)
	}
	if s.broadcaster != nil {
		s.broadcaster.PublishEventMerged(broadcast.EventMergedData{
			FromEventID: event.ID,
			ToEventID:   req.MergeInto,
			Reason:      model.MergeManualEditorial,
		})
	}
	return nil
}

func (s *Sink) applySplit(ctx context.Context, event model.Event, req Request) error {
	if len(req.SplitDocumentIDs) == 0 {
		return fmt.Errorf("feedback: split requires at least one document id")
	}

	attached, err := s.store.DocumentsForEvent(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("feedback: load documents for event %s: %w", event.ID, err)
	}
	attachedSet := make(map[string]bool, len(attached))
	for _, id := range attached {
		attachedSet[id] = true
	}

	docs := make([]model.Document, 0, len(req.SplitDocumentIDs))
	for _, id := range req.SplitDocumentIDs {
		if !attachedSet[id] {
			return fmt.Errorf("feedback: document %s is not attached to event %s", id, event.ID)
		}
		doc, err := s.store.LatestDocumentVersion(ctx, id)
		if err != nil {
			return fmt.Errorf("feedback: load document %s: %w", id, err)
		}
		docs = append(docs, doc)
	}

	headline := req.SplitHeadline
	if headline == "" {
		headline = event.Headline
	}
	if _, err := s.organizer.Split(ctx, headline, docs); err != nil {
		return fmt.Errorf("feedback: split event %s: %w", event.ID, err)
	}
	return nil
}
