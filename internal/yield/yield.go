// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

// Package yield watches each source's "useful yield" — documents carrying
// an anchor or a non-zero evidence score — against its own calendar
// baseline, and opens a DATA_STARVATION incident when that yield collapses
// to near zero while the source's fetches keep succeeding. A source that
// stops responding entirely is the circuit breaker's problem, not this
// monitor's.
package yield

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomfr/radar/internal/config"
	"github.com/tomfr/radar/internal/logging"
	"github.com/tomfr/radar/internal/metrics"
	"github.com/tomfr/radar/internal/model"
)

// starvationRatio is how far observed yield must fall below the calendar
// baseline, as a fraction, before an incident opens. 0.1 means "yield
// dropped to ~0", per the observability contract, not "yield dipped".
const starvationRatio = 0.1

// baselineLookback is how far back the monitor looks for matching
// calendar slots (same weekday, overlapping hour-of-day band) to build the
// expected-yield baseline.
const baselineLookback = 14 * 24 * time.Hour

// Store is the subset of persistence the monitor needs.
type Store interface {
	ListEnabledSources(ctx context.Context) ([]model.Source, error)
	SourceFetchAttemptsSince(ctx context.Context, sourceID string, since time.Time) ([]model.FetchAttempt, error)
	SourceUsefulYieldSince(ctx context.Context, sourceID string, since time.Time) ([]time.Time, error)
}

// Notifier is told about opened incidents. Implementations may fan them
// into the alert dispatcher, a ticket system, or nothing at all.
type Notifier interface {
	NotifyStarvation(ctx context.Context, incident model.DataStarvationIncident) error
}

// Monitor periodically checks every enabled source for data starvation.
type Monitor struct {
	store    Store
	notifier Notifier
	cfg      config.YieldConfig
	now      func() time.Time

	mu      sync.RWMutex
	enabled bool
}

// New builds a Monitor. notifier may be nil, in which case incidents are
// only logged and counted.
func New(store Store, notifier Notifier, cfg config.YieldConfig) *Monitor {
	return &Monitor{
		store:    store,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
		enabled:  true,
	}
}

// String satisfies suture.Service / fmt.Stringer.
func (m *Monitor) String() string { return "yield-monitor" }

// Serve runs the periodic sweep until ctx is canceled, checking every
// enabled source once per bucket width.
func (m *Monitor) Serve(ctx context.Context) error {
	interval := m.cfg.BucketWidth
	if interval <= 0 {
		interval = 15 * time.Minute
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

func (m *Monitor) sweep(ctx context.Context) {
	m.mu.RLock()
	enabled := m.enabled
	m.mu.RUnlock()
	if !enabled {
		return
	}

	sources, err := m.store.ListEnabledSources(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("yield: failed to list enabled sources")
		return
	}

	for _, src := range sources {
		incident, err := m.Check(ctx, src)
		if err != nil {
			logging.Error().Err(err).Str("source_id", src.ID).Msg("yield: check failed")
			continue
		}
		if incident == nil {
			continue
		}

		metrics.YieldStarvationIncidentsTotal.WithLabelValues(src.ID).Inc()
		logging.Warn().
			Str("source_id", incident.SourceID).
			Float64("observed_yield", incident.ObservedYield).
			Float64("expected_yield", incident.ExpectedYield).
			Dur("window", incident.Window).
			Msg("yield: DATA_STARVATION incident")

		if m.notifier != nil {
			if err := m.notifier.NotifyStarvation(ctx, *incident); err != nil {
				logging.Error().Err(err).Str("source_id", src.ID).Msg("yield: notify failed")
			}
		}
	}
}

// Enabled reports whether the monitor's sweep is active.
func (m *Monitor) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

// SetEnabled toggles the sweep without tearing down the Monitor.
func (m *Monitor) SetEnabled(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = enabled
}

// Check evaluates one source's current useful yield against its own
// calendar baseline and returns a DATA_STARVATION incident if yield has
// collapsed to near zero while HTTP 200s keep arriving. Returns (nil, nil)
// when the source isn't starving, or when there isn't enough history yet
// to judge a baseline.
func (m *Monitor) Check(ctx context.Context, source model.Source) (*model.DataStarvationIncident, error) {
	window := m.cfg.DefaultStarvationWindow
	if window <= 0 {
		window = 2 * time.Hour
	}
	now := m.now()
	since := now.Add(-window)

	fetches, err := m.store.SourceFetchAttemptsSince(ctx, source.ID, since)
	if err != nil {
		return nil, fmt.Errorf("fetch attempts for %s: %w", source.ID, err)
	}
	var ok200 int
	for _, f := range fetches {
		if f.HTTPStatus >= 200 && f.HTTPStatus < 300 {
			ok200++
		}
	}
	if ok200 == 0 {
		// No successful transport at all: the source is down, not
		// starving. That's the circuit breaker's signal to raise.
		return nil, nil
	}

	recentYield, err := m.store.SourceUsefulYieldSince(ctx, source.ID, since)
	if err != nil {
		return nil, fmt.Errorf("recent yield for %s: %w", source.ID, err)
	}
	observed := float64(len(recentYield)) / window.Hours()

	history, err := m.store.SourceUsefulYieldSince(ctx, source.ID, now.Add(-baselineLookback))
	if err != nil {
		return nil, fmt.Errorf("yield history for %s: %w", source.ID, err)
	}
	expected := calendarExpectedYield(history, now, window)
	if expected <= 0 {
		// No comparable calendar history yet; nothing to compare against.
		return nil, nil
	}

	if observed > expected*starvationRatio {
		return nil, nil
	}

	return &model.DataStarvationIncident{
		SourceID:      source.ID,
		ObservedYield: observed,
		ExpectedYield: expected,
		Window:        window,
		DetectedAt:    now,
	}, nil
}

// calendarExpectedYield estimates the historical useful-yield rate
// (events per hour) for slots matching now's weekday and hour-of-day band,
// so a quiet Sunday night isn't mistaken for starvation. halfBand is half
// the starvation window, in hours, centered on now's hour-of-day.
func calendarExpectedYield(history []time.Time, now time.Time, window time.Duration) float64 {
	if len(history) == 0 {
		return 0
	}

	matchWeekday := now.Weekday()
	halfBand := window.Hours() / 2
	if halfBand <= 0 {
		halfBand = 1
	}

	var matchedEvents int
	matchedDays := make(map[string]bool)
	for _, t := range history {
		if t.Weekday() != matchWeekday {
			continue
		}
		if hourDistance(t.Hour(), now.Hour()) > halfBand {
			continue
		}
		matchedEvents++
		matchedDays[t.Format("2006-01-02")] = true
	}
	if len(matchedDays) == 0 {
		return 0
	}

	hoursObserved := float64(len(matchedDays)) * window.Hours()
	return float64(matchedEvents) / hoursObserved
}

// hourDistance returns the shortest distance between two hours-of-day on a
// 24-hour clock, e.g. hourDistance(23, 1) == 2.
func hourDistance(a, b int) float64 {
	d := a - b
	if d < 0 {
		d = -d
	}
	if d > 12 {
		d = 24 - d
	}
	return float64(d)
}
