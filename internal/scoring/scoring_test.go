// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

package scoring

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
	signals []model.DocumentSignal
	saved   model.EventScore
}

func (f *fakeStore) EventDocumentSignals(ctx context.Context, eventID string) ([]model.DocumentSignal, error) {
	return f.signals, nil
}

func (f *fakeStore) UpsertEventScore(ctx context.Context, sc model.EventScore) error {
	f.saved = sc
	return nil
}

func TestEngine_Score_NoDocumentsYieldsZero(t *testing.T) {
	store := &fakeStore{}
	engine := New(store, config.ScoringConfig{PlantaoHalfLife: time.Hour})

	sc, err := engine.Score(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Zero(t, sc.ScorePlantao)
	assert.Zero(t, sc.ScoreOceanoAzul)
	assert.Equal(t, "evt-1", store.saved.EventID)
}

func TestEngine_Score_PlantaoRewardsFreshTier1Velocity(t *testing.T) {
	now := time.Now()
	store := &fakeStore{signals: []model.DocumentSignal{
		{DocumentID: "d1", SourceID: "wire-1", SourceTier: model.TierWire, TrustWeight: 1.0, ExtractedAt: now},
		{DocumentID: "d2", SourceID: "wire-2", SourceTier: model.TierWire, TrustWeight: 1.0, ExtractedAt: now.Add(-time.Minute)},
		{DocumentID: "d3", SourceID: "regional-1", SourceTier: model.TierRegional, TrustWeight: 0.8, ExtractedAt: now.Add(-2 * time.Minute)},
	}}
	engine := New(store, config.ScoringConfig{PlantaoHalfLife: time.Hour})
	engine.now = func() time.Time { return now }

	sc, err := engine.Score(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Greater(t, sc.ScorePlantao, 0.0)

	var hasTier1Reason bool
	for _, r := range sc.PlantaoReasons {
		if r.Code == ReasonPlantaoTier1Confirmation {
			hasTier1Reason = true
		}
	}
	assert.True(t, hasTier1Reason)
}

func TestEngine_Score_PlantaoDecaysWithAge(t *testing.T) {
	now := time.Now()
	freshSignals := []model.DocumentSignal{
		{DocumentID: "d1", SourceID: "wire-1", SourceTier: model.TierWire, TrustWeight: 1.0, ExtractedAt: now},
	}
	staleSignals := []model.DocumentSignal{
		{DocumentID: "d1", SourceID: "wire-1", SourceTier: model.TierWire, TrustWeight: 1.0, ExtractedAt: now.Add(-6 * time.Hour)},
	}

	freshStore := &fakeStore{signals: freshSignals}
	freshEngine := New(freshStore, config.ScoringConfig{PlantaoHalfLife: time.Hour})
	freshEngine.now = func() time.Time { return now }
	freshScore, err := freshEngine.Score(context.Background(), "evt-1")
	require.NoError(t, err)

	staleStore := &fakeStore{signals: staleSignals}
	staleEngine := New(staleStore, config.ScoringConfig{PlantaoHalfLife: time.Hour})
	staleEngine.now = func() time.Time { return now }
	staleScore, err := staleEngine.Score(context.Background(), "evt-1")
	require.NoError(t, err)

	assert.Greater(t, freshScore.ScorePlantao, staleScore.ScorePlantao)
}

func TestEngine_Score_OceanoAzulRewardsEvidence(t *testing.T) {
	now := time.Now()
	store := &fakeStore{signals: []model.DocumentSignal{
		{DocumentID: "d1", SourceID: "s1", SourceTier: model.TierWire, TrustWeight: 1.0, ExtractedAt: now, EvidenceScore: 0.9, HasDocumentRef: true},
	}}
	engine := New(store, config.ScoringConfig{PlantaoHalfLife: time.Hour})
	engine.now = func() time.Time { return now }

	sc, err := engine.Score(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.Greater(t, sc.ScoreOceanoAzul, 0.5)
}

func TestComputeOceanoAzul_MonotonicOnEvidenceIncrease(t *testing.T) {
	now := time.Now()
	base := []model.DocumentSignal{
		{DocumentID: "d1", SourceID: "s1", SourceTier: model.TierRegional, TrustWeight: 0.6, ExtractedAt: now, EvidenceScore: 0.2},
	}
	withStrongerAnchor := []model.DocumentSignal{
		{DocumentID: "d1", SourceID: "s1", SourceTier: model.TierRegional, TrustWeight: 0.6, ExtractedAt: now, EvidenceScore: 0.2, HasDocumentRef: false},
	}
	withStrongerAnchor[0].EvidenceScore = 0.35
	withStrongerAnchor[0].HasDocumentRef = true

	baseScore, _ := computeOceanoAzul(base, now)
	higherScore, _ := computeOceanoAzul(withStrongerAnchor, now)

	assert.GreaterOrEqual(t, higherScore, baseScore)
}

func TestComputeOceanoAzul_NoTier1CoverageAppliesLagPenalty(t *testing.T) {
	now := time.Now()
	covered := []model.DocumentSignal{
		{DocumentID: "d1", SourceID: "s1", SourceTier: model.TierWire, TrustWeight: 1.0, ExtractedAt: now, EvidenceScore: 0.5},
	}
	uncovered := []model.DocumentSignal{
		{DocumentID: "d1", SourceID: "s1", SourceTier: model.TierUnverified, TrustWeight: 1.0, ExtractedAt: now, EvidenceScore: 0.5},
	}

	coveredScore, reasons := computeOceanoAzul(covered, now)
	uncoveredScore, _ := computeOceanoAzul(uncovered, now)

	assert.Greater(t, coveredScore, uncoveredScore)
	for _, r := range reasons {
		assert.NotEqual(t, ReasonOceanoCoverageLag, r.Code)
	}
}
