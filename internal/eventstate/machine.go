// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

// Package eventstate implements the Event lifecycle state machine: a fixed
// transition table, validated CAS-style transitions, and a periodic sweep
// that expires quarantined and inactive events.
package eventstate

import (
	"context"
	"fmt"
	"time"

	"github.com/tomfr/radar/internal/config"
	"github.com/tomfr/radar/internal/logging"
	"github.com/tomfr/radar/internal/model"
)

// Store is the persistence surface the state machine needs.
type Store interface {
	GetEvent(ctx context.Context, id string) (model.Event, error)
	TransitionEventState(ctx context.Context, eventID string, from, to model.EventState, reason string, at time.Time) error
	EventsInState(ctx context.Context, state model.EventState) ([]model.Event, error)
	SetUnverifiedViral(ctx context.Context, eventID string, viral bool) error
	EventHasFastSource(ctx context.Context, eventID string) (bool, error)
}

// nonTerminal lists the states QUARANTINE and IGNORED can be reached from.
var nonTerminal = []model.EventState{
	model.StateNew, model.StateHydrating, model.StatePartialEnrich, model.StateHot,
}

// allowed is the event lifecycle's transition table. Keys are "from"
// states; a missing "from" key means no outbound transition is permitted
// (FAILED_ENRICH, MERGED, IGNORED, EXPIRED are terminal).
var allowed = buildTable()

func buildTable() map[model.EventState]map[model.EventState]bool {
	t := make(map[model.EventState]map[model.EventState]bool)
	add := func(from, to model.EventState) {
		if t[from] == nil {
			t[from] = make(map[model.EventState]bool)
		}
		t[from][to] = true
	}

	add(model.StateHydrating, model.StatePartialEnrich)
	add(model.StateHydrating, model.StateHot)
	add(model.StatePartialEnrich, model.StateHot)
	add(model.StateHot, model.StateExpired)
	add(model.StatePartialEnrich, model.StateExpired)
	add(model.StateQuarantined, model.StateExpired)

	for _, from := range nonTerminal {
		add(from, model.StateQuarantined)
		add(from, model.StateIgnored)
	}
	// "any" reaches MERGED, including states already reachable above.
	for _, from := range append(append([]model.EventState{}, nonTerminal...), model.StateQuarantined) {
		add(from, model.StateMerged)
	}
	return t
}

// ErrTransitionNotAllowed is returned when the requested from->to edge is
// not in the transition table.
type ErrTransitionNotAllowed struct {
	From, To model.EventState
}

func (e *ErrTransitionNotAllowed) Error() string {
	return fmt.Sprintf("eventstate: %s -> %s is not an allowed transition", e.From, e.To)
}

// Machine validates and executes Event lifecycle transitions.
type Machine struct {
	store      Store
	cfg        config.EventStateConfig
	fastGate   time.Duration
	renderGate time.Duration
}

// New creates a state Machine. fastGate/renderGate are the HYDRATING gate
// timeouts from FetchConfig.
func New(store Store, cfg config.EventStateConfig, fastGate, renderGate time.Duration) *Machine {
	return &Machine{store: store, cfg: cfg, fastGate: fastGate, renderGate: renderGate}
}

// Transition validates the from->to edge against the table, then performs
// the CAS transition in the store.
func (m *Machine) Transition(ctx context.Context, eventID string, from, to model.EventState, reason string) error {
	if from == to {
		return nil
	}
	if !allowed[from][to] {
		return &ErrTransitionNotAllowed{From: from, To: to}
	}
	return m.store.TransitionEventState(ctx, eventID, from, to, reason, time.Now())
}

// SetUnverifiedViral flips the UNVERIFIED_VIRAL flag independent of state.
func (m *Machine) SetUnverifiedViral(ctx context.Context, eventID string, viral bool) error {
	return m.store.SetUnverifiedViral(ctx, eventID, viral)
}

// Allowed reports whether a transition is permitted by the table, without
// performing it. Used by the Feedback Sink to reject disallowed actions
// before touching the store.
func Allowed(from, to model.EventState) bool {
	return allowed[from][to]
}

// String implements suture.Service / fmt.Stringer.
func (m *Machine) String() string { return "event-state-sweeper" }

// Serve runs the periodic TTL/inactivity sweep until ctx is canceled.
func (m *Machine) Serve(ctx context.Context) error {
	interval := m.cfg.QuarantineTTL / 4
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

func (m *Machine) sweep(ctx context.Context) {
	now := time.Now()

	// Gate timeout: HYDRATING events that have sat past their pool's gate
	// without strong evidence fall back to PARTIAL_ENRICH so they still
	// surface to editors. An event fed by a FAST-strategy source gates at
	// fastGate; anything else (SPA/headless, deep) gates at the looser
	// renderGate. Strong-evidence promotion straight to HOT is handled by
	// the ingestor in cmd/radar after each score recompute, not here.
	hydrating, err := m.store.EventsInState(ctx, model.StateHydrating)
	if err != nil {
		logging.Warn().Err(err).Msg("eventstate: sweep hydrating scan failed")
	}
	for _, e := range hydrating {
		gate := m.renderGate
		if fast, err := m.store.EventHasFastSource(ctx, e.ID); err != nil {
			logging.Warn().Err(err).Str("event_id", e.ID).Msg("eventstate: fast source check failed")
		} else if fast {
			gate = m.fastGate
		}
		if gate <= 0 {
			gate = m.fastGate
		}
		if gate <= 0 || now.Sub(e.CreatedAt) < gate {
			continue
		}
		if err := m.Transition(ctx, e.ID, model.StateHydrating, model.StatePartialEnrich, "gate_timeout_no_strong_evidence"); err != nil {
			logging.Warn().Err(err).Str("event_id", e.ID).Msg("eventstate: gate timeout transition failed")
		}
	}

	quarantined, err := m.store.EventsInState(ctx, model.StateQuarantined)
	if err != nil {
		logging.Warn().Err(err).Msg("eventstate: sweep quarantine scan failed")
	}
	for _, e := range quarantined {
		if now.Sub(e.QuarantinedAt) < m.cfg.QuarantineTTL {
			continue
		}
		if err := m.Transition(ctx, e.ID, model.StateQuarantined, model.StateExpired, "quarantine_ttl_elapsed"); err != nil {
			logging.Warn().Err(err).Str("event_id", e.ID).Msg("eventstate: quarantine expiry failed")
		}
	}

	for _, state := range []model.EventState{model.StateHot, model.StatePartialEnrich} {
		events, err := m.store.EventsInState(ctx, state)
		if err != nil {
			logging.Warn().Err(err).Str("state", string(state)).Msg("eventstate: sweep inactivity scan failed")
			continue
		}
		for _, e := range events {
			if now.Sub(e.LastUpdatedAt) < m.cfg.HotInactivityHorizon {
				continue
			}
			if err := m.Transition(ctx, e.ID, state, model.StateExpired, "inactivity_horizon_elapsed"); err != nil {
				logging.Warn().Err(err).Str("event_id", e.ID).Msg("eventstate: inactivity expiry failed")
			}
		}
	}
}
