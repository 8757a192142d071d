// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

package main

import (
	"context"
	"fmt"

	"github.com/tomfr/radar/internal/alert"
	"github.com/tomfr/radar/internal/anchor"
	"github.com/tomfr/radar/internal/broadcast"
	"github.com/tomfr/radar/internal/config"
	"github.com/tomfr/radar/internal/eventstate"
	"github.com/tomfr/radar/internal/extract"
	"github.com/tomfr/radar/internal/fetch"
	"github.com/tomfr/radar/internal/fetch/jobqueue"
	"github.com/tomfr/radar/internal/logging"
	"github.com/tomfr/radar/internal/model"
	"github.com/tomfr/radar/internal/organizer"
	"github.com/tomfr/radar/internal/scoring"
	"github.com/tomfr/radar/internal/sources"
	"github.com/tomfr/radar/internal/store"
)

// SchedulerCompleter is the subset of *scheduler.Scheduler the ingestor
// needs to release a source's in-flight guard once its job resolves.
type SchedulerCompleter interface {
	CompleteDispatch(sourceID string)
}

// Ingestor drives a fetch Result all the way from a persisted attempt
// through extraction, anchoring, clustering, scoring and, if the event's
// state crosses a threshold, the state machine, alert dispatch and the
// broadcast hub. It is the callback jobqueue.Subscriber.Run invokes for
// every decoded job.
type Ingestor struct {
	store     *store.Store
	registry  *sources.Registry
	scheduler SchedulerCompleter
	extractor *extract.Extractor
	anchors   *anchor.Engine
	organizer *organizer.Engine
	scoring   *scoring.Engine
	machine   *eventstate.Machine
	alerts    *alert.Dispatcher
	hub       *broadcast.Hub
	cfg       config.Config
}

// NewIngestor assembles an Ingestor from the pipeline's already-constructed
// components.
func NewIngestor(
	st *store.Store,
	registry *sources.Registry,
	sched SchedulerCompleter,
	extractor *extract.Extractor,
	anchors *anchor.Engine,
	organizer *organizer.Engine,
	scoring *scoring.Engine,
	machine *eventstate.Machine,
	alerts *alert.Dispatcher,
	hub *broadcast.Hub,
	cfg config.Config,
) *Ingestor {
	return &Ingestor{
		store:     st,
		registry:  registry,
		scheduler: sched,
		extractor: extractor,
		anchors:   anchors,
		organizer: organizer,
		scoring:   scoring,
		machine:   machine,
		alerts:    alerts,
		hub:       hub,
		cfg:       cfg,
	}
}

// HandleResult is the jobqueue onResult callback: it runs synchronously on
// the subscriber's delivery goroutine, so a slow event touch backs up
// redelivery rather than silently dropping work.
func (ig *Ingestor) HandleResult(result fetch.Result) {
	ctx := context.Background()

	if err := ig.store.InsertFetchAttempt(ctx, result.Attempt); err != nil {
		logging.Error().Err(err).Str("source_id", result.Attempt.SourceID).Msg("ingest: insert fetch attempt failed")
	}
	ig.scheduler.CompleteDispatch(result.Attempt.SourceID)

	if result.Attempt.Outcome != model.OutcomeOK {
		return
	}

	src, ok := ig.registry.Get(result.Attempt.SourceID)
	if !ok {
		logging.Warn().Str("source_id", result.Attempt.SourceID).Msg("ingest: result for unknown source, dropping")
		return
	}

	if err := ig.store.InsertSnapshot(ctx, result.Snapshot); err != nil {
		logging.Error().Err(err).Str("source_id", src.ID).Msg("ingest: insert snapshot failed")
		return
	}

	docs, err := ig.extractor.Extract(ctx, src, result.Snapshot, result.Body)
	if err != nil {
		logging.Warn().Err(err).Str("source_id", src.ID).Msg("ingest: extraction failed")
		return
	}

	for _, doc := range docs {
		if err := ig.touch(ctx, doc); err != nil {
			logging.Warn().Err(err).Str("document_id", doc.ID).Msg("ingest: document processing failed")
		}
	}
}

// touch runs one Document through anchoring, clustering, scoring, and the
// state/alert/broadcast fan-out that follows a score recompute.
func (ig *Ingestor) touch(ctx context.Context, doc model.Document) error {
	anchors, _, err := ig.anchors.Run(ctx, doc)
	if err != nil {
		return fmt.Errorf("anchor run for %s: %w", doc.ID, err)
	}

	_, eventID, err := ig.organizer.Attach(ctx, doc, anchors)
	if err != nil {
		return fmt.Errorf("organizer attach for %s: %w", doc.ID, err)
	}

	sc, err := ig.scoring.Score(ctx, eventID)
	if err != nil {
		return fmt.Errorf("score event %s: %w", eventID, err)
	}

	ev, err := ig.store.GetEvent(ctx, eventID)
	if err != nil {
		return fmt.Errorf("get event %s: %w", eventID, err)
	}

	if ig.cfg.EventState.ViralVelocityThreshold > 0 && sc.ScorePlantao >= ig.cfg.EventState.ViralVelocityThreshold {
		if err := ig.machine.SetUnverifiedViral(ctx, eventID, true); err != nil {
			logging.Warn().Err(err).Str("event_id", eventID).Msg("ingest: set unverified_viral failed")
		}
	}

	ig.maybePromoteToHot(ctx, ev, sc)
	ig.publishUpsert(ctx, eventID, sc)
	return nil
}

// maybePromoteToHot crosses an event into HOT once its velocity score
// clears the configured threshold. A score recompute that does not cross
// the threshold, or that touches an event already HOT or in a terminal
// state, never reaches the state machine — alerts only fire on an actual
// transition.
func (ig *Ingestor) maybePromoteToHot(ctx context.Context, ev model.Event, sc model.EventScore) {
	if sc.ScorePlantao < ig.cfg.Scoring.HotThreshold {
		return
	}
	if ev.State != model.StateHydrating && ev.State != model.StatePartialEnrich {
		return
	}

	const reason = "score_threshold_crossed"
	if err := ig.machine.Transition(ctx, ev.ID, ev.State, model.StateHot, reason); err != nil {
		logging.Warn().Err(err).Str("event_id", ev.ID).Msg("ingest: hot promotion failed")
		return
	}

	transition := fmt.Sprintf("%s->%s", ev.State, model.StateHot)
	if ig.alerts != nil {
		if err := ig.alerts.Dispatch(ctx, ev.ID, transition, reason); err != nil {
			logging.Warn().Err(err).Str("event_id", ev.ID).Msg("ingest: alert dispatch failed")
		}
	}
	if ig.hub != nil {
		ig.hub.PublishEventStateChanged(broadcast.EventStateChangedData{
			EventID:        ev.ID,
			PreviousStatus: ev.State,
			NewStatus:      model.StateHot,
			Reason:         reason,
			OccurredAt:     sc.ComputedAt,
		})
	}
}

// publishUpsert sends the event's full current projection to every
// connected editorial client, independent of whether its state changed.
func (ig *Ingestor) publishUpsert(ctx context.Context, eventID string, sc model.EventScore) {
	if ig.hub == nil {
		return
	}
	ev, err := ig.store.GetEvent(ctx, eventID)
	if err != nil {
		logging.Warn().Err(err).Str("event_id", eventID).Msg("ingest: reload event for broadcast failed")
		return
	}
	docIDs, err := ig.store.DocumentsForEvent(ctx, eventID)
	if err != nil {
		logging.Warn().Err(err).Str("event_id", eventID).Msg("ingest: document count for broadcast failed")
	}
	sourceCount, err := ig.store.EventSourceCount(ctx, eventID)
	if err != nil {
		logging.Warn().Err(err).Str("event_id", eventID).Msg("ingest: source count for broadcast failed")
	}
	anchors, err := ig.store.AnchorsForEvent(ctx, eventID)
	if err != nil {
		logging.Warn().Err(err).Str("event_id", eventID).Msg("ingest: anchors for broadcast failed")
	}

	ig.hub.PublishEventUpsert(broadcast.EventUpsertData{
		EventID:         ev.ID,
		Status:          ev.State,
		Headline:        ev.Headline,
		ScorePlantao:    sc.ScorePlantao,
		PlantaoReasons:  sc.PlantaoReasons,
		ScoreOceanoAzul: sc.ScoreOceanoAzul,
		OceanoReasons:   sc.OceanoReasons,
		Anchors:         anchors,
		DocCount:        len(docIDs),
		SourceCount:     sourceCount,
		FirstSeen:       ev.CreatedAt,
		LastSeen:        ev.LastUpdatedAt,
		UnverifiedViral: ev.UnverifiedViral,
	})
}

// poolService adapts one (topic, pool) pair onto suture.Service so the
// supervisor tree can restart a stalled subscriber independently of the
// others.
type poolService struct {
	name string
	topic jobqueue.Topic
	sub   *jobqueue.Subscriber
	pool  fetch.Pool
	onResult func(fetch.Result)
}

func (p *poolService) String() string { return "pool-" + p.name }

func (p *poolService) Serve(ctx context.Context) error {
	return p.sub.Run(ctx, p.topic, p.pool, p.onResult)
}

// starvationNotifier bridges the yield monitor's incidents into the alert
// dispatcher, fingerprinted per source rather than per event since a
// starvation incident has no associated Event.
type starvationNotifier struct {
	alerts *alert.Dispatcher
}

func (n *starvationNotifier) NotifyStarvation(ctx context.Context, incident model.DataStarvationIncident) error {
	reason := fmt.Sprintf("observed_yield=%.3f expected_yield=%.3f window=%s", incident.ObservedYield, incident.ExpectedYield, incident.Window)
	return n.alerts.Dispatch(ctx, incident.SourceID, "DATA_STARVATION", reason)
}
