// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

package scoring

import (
	"math"
	"time"

	"github.com/tomfr/radar/internal/model"
)

const (
	velocityWindow        = 5 * time.Minute
	defaultPlantaoHalfLife = time.Hour
)

// computePlantao derives SCORE_PLANTAO: tier weight, velocity and its first
// derivative, source diversity, an impact heuristic, and a trust penalty,
// combined additively and then scaled by exponential decay on the age of
// the event's most recent document.
func computePlantao(signals []model.DocumentSignal, now time.Time, halfLife time.Duration) (float64, []model.ScoreReason) {
	var reasons []model.ScoreReason
	if len(signals) == 0 {
		return 0, reasons
	}

	var recentCount, priorCount int
	var bestTier = tierWeight(model.TierUnverified)
	var hasTier1 bool
	var docRefCount int
	sources := make(map[string]bool)
	var newest time.Time

	for _, s := range signals {
		age := now.Sub(s.ExtractedAt)
		switch {
		case age <= velocityWindow:
			recentCount++
		case age <= 2*velocityWindow:
			priorCount++
		}
		if w := tierWeight(s.SourceTier); w > bestTier {
			bestTier = w
		}
		if s.SourceTier == model.TierWire {
			hasTier1 = true
		}
		if s.HasDocumentRef {
			docRefCount++
		}
		sources[s.SourceID] = true
		if s.ExtractedAt.After(newest) {
			newest = s.ExtractedAt
		}
	}

	velocity := float64(recentCount) / velocityWindow.Minutes()
	reasons = append(reasons, model.ScoreReason{Code: ReasonPlantaoVelocity, Contribution: clamp(0.1*velocity, 0, 0.5)})

	if derivative := recentCount - priorCount; derivative > 0 {
		reasons = append(reasons, model.ScoreReason{Code: ReasonPlantaoVelocitySpike, Contribution: clamp(0.05*float64(derivative), 0, 0.4)})
	}

	reasons = append(reasons, model.ScoreReason{Code: ReasonPlantaoTierWeight, Contribution: 0.3 * bestTier})

	diversity := float64(len(sources)) / float64(len(signals))
	reasons = append(reasons, model.ScoreReason{Code: ReasonPlantaoSourceDiversity, Contribution: 0.2 * diversity})

	impact := float64(docRefCount) / float64(len(signals))
	reasons = append(reasons, model.ScoreReason{Code: ReasonPlantaoImpactHeuristic, Contribution: 0.15 * impact})

	if hasTier1 {
		reasons = append(reasons, model.ScoreReason{Code: ReasonPlantaoTier1Confirmation, Contribution: 0.1})
	}

	avgTrust := averageTrustWeight(signals)
	if avgTrust < 1 {
		reasons = append(reasons, model.ScoreReason{Code: ReasonTrustPenaltyLowTier, Contribution: -0.3 * (1 - avgTrust)})
	}

	raw := sum(reasons)
	if halfLife <= 0 {
		halfLife = defaultPlantaoHalfLife
	}
	age := now.Sub(newest)
	decay := math.Exp(-math.Ln2 * age.Seconds() / halfLife.Seconds())

	return clamp(raw*decay, 0, 2), reasons
}
