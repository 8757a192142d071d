// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

// Package scoring computes the two dual scores the rest of the pipeline
// acts on: SCORE_PLANTAO (velocity/urgency, for the breaking-news surface)
// and SCORE_OCEANO_AZUL (evidence-weighted confidence, for the
// investigative/"blue ocean" surface). Both scores are recomputed whenever a
// Document attaches to an Event and emit a stable, additive-only
// reasons_json breakdown alongside the final number.
package scoring

import (
	"context"
	"time"

	"github.com/tomfr/radar/internal/config"
	"github.com/tomfr/radar/internal/model"
)

// Store is the persistence surface the scoring engine depends on.
type Store interface {
	EventDocumentSignals(ctx context.Context, eventID string) ([]model.DocumentSignal, error)
	UpsertEventScore(ctx context.Context, sc model.EventScore) error
}

// Engine recomputes and persists an Event's dual score.
type Engine struct {
	store Store
	cfg   config.ScoringConfig
	now   func() time.Time
}

// New builds an Engine from its scoring configuration.
func New(store Store, cfg config.ScoringConfig) *Engine {
	return &Engine{store: store, cfg: cfg, now: time.Now}
}

// Score recomputes both dual scores for an event from its attached
// documents' signals and persists the result.
func (e *Engine) Score(ctx context.Context, eventID string) (model.EventScore, error) {
	signals, err := e.store.EventDocumentSignals(ctx, eventID)
	if err != nil {
		return model.EventScore{}, err
	}

	now := e.now()
	plantaoScore, plantaoReasons := computePlantao(signals, now, e.cfg.PlantaoHalfLife)
	oceanoScore, oceanoReasons := computeOceanoAzul(signals, now)

	sc := model.EventScore{
		EventID:         eventID,
		ScorePlantao:    plantaoScore,
		PlantaoReasons:  plantaoReasons,
		ScoreOceanoAzul: oceanoScore,
		OceanoReasons:   oceanoReasons,
		ComputedAt:      now,
	}
	if err := e.store.UpsertEventScore(ctx, sc); err != nil {
		return model.EventScore{}, err
	}
	return sc, nil
}

// sum adds up a list of reason contributions.
func sum(reasons []model.ScoreReason) float64 {
	var total float64
	for _, r := range reasons {
		total += r.Contribution
	}
	return total
}

// clamp restricts x to [lo, hi].
func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// tierWeight maps a source tier to its contribution weight: Tier 1 (wire
// services, official newsrooms) carries the most urgency signal, Tier 4
// (unverified/social) the least.
func tierWeight(t model.SourceTier) float64 {
	switch t {
	case model.TierWire:
		return 1.0
	case model.TierEstablished:
		return 0.75
	case model.TierRegional:
		return 0.5
	default:
		return 0.25
	}
}

// averageTrustWeight is the mean TrustWeight across a set of signals, 1.0 if
// empty (no penalty for an event with no documents yet).
func averageTrustWeight(signals []model.DocumentSignal) float64 {
	if len(signals) == 0 {
		return 1.0
	}
	var total float64
	for _, s := range signals {
		total += s.TrustWeight
	}
	return total / float64(len(signals))
}
