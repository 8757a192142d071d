// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

// Package alert dispatches external notifications for Event state
// transitions. It never fires on score crossings alone: Dispatch is called
// only after a state transition has been applied (and, for the yield
// monitor, once per DATA_STARVATION incident), so a score recompute that
// leaves the state unchanged never reaches Dispatch.
package alert

import (
	"context"
	"time"

	"github.com/tomfr/radar/internal/metrics"
	"github.com/tomfr/radar/internal/model"
)

// Store is the persistence surface the dispatcher needs for cooldown and
// fingerprint bookkeeping.
type Store interface {
	GetAlertState(ctx context.Context, eventID string) (model.EventAlertState, error)
	UpsertAlertState(ctx context.Context, st model.EventAlertState) error
}

// Payload is what a Notifier actually sends out.
type Payload struct {
	EventID    string
	Transition string
	Reason     string
	OccurredAt time.Time
}

// Notifier delivers one alert payload to an external system.
type Notifier interface {
	Send(ctx context.Context, p Payload) error
}

// Dispatcher emits exactly one external notification per (event_id,
// transition) unless the fingerprint has changed since the last alert or
// the per-event cooldown window has elapsed.
type Dispatcher struct {
	store    Store
	notifier Notifier
	cooldown time.Duration
	now      func() time.Time
}

// New builds a Dispatcher. cooldown is the default per-event cooldown
// window; zero falls back to one minute.
func New(store Store, notifier Notifier, cooldown time.Duration) *Dispatcher {
	return &Dispatcher{store: store, notifier: notifier, cooldown: cooldown, now: time.Now}
}

// Dispatch is called once per validated state transition. eventID and
// transition ("NEW->HYDRATING" etc.) together with reason form the alert's
// fingerprint.
func (d *Dispatcher) Dispatch(ctx context.Context, eventID, transition, reason string) error {
	now := d.now()
	fingerprint := eventID + "|" + transition + "|" + reason

	state, err := d.store.GetAlertState(ctx, eventID)
	if err != nil {
		return err
	}
	if state.LastFingerprint == fingerprint && now.Before(state.CooldownUntil) {
		metrics.AlertsSuppressedTotal.WithLabelValues("cooldown").Inc()
		return nil
	}

	if err := d.notifier.Send(ctx, Payload{EventID: eventID, Transition: transition, Reason: reason, OccurredAt: now}); err != nil {
		return err
	}
	metrics.AlertsSentTotal.WithLabelValues(transition).Inc()

	cooldown := d.cooldown
	if cooldown <= 0 {
		cooldown = time.Minute
	}
	return d.store.UpsertAlertState(ctx, model.EventAlertState{
		EventID:         eventID,
		LastAlertedAt:   now,
		LastFingerprint: fingerprint,
		CooldownUntil:   now.Add(cooldown),
	})
}
