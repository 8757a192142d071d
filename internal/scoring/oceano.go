// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

package scoring

import (
	"time"

	"github.com/tomfr/radar/internal/model"
)

// noTier1CoverageLag is the penalty-computation stand-in for "no Tier-1
// source has covered this yet": a large but finite lag so the penalty term
// saturates instead of requiring special-cased infinite arithmetic.
const noTier1CoverageLag = 24 * time.Hour

// computeOceanoAzul derives SCORE_OCEANO_AZUL from the evidence strength of
// an event's documents, reduced by the time elapsed since a Tier-1 source
// first covered it (the full penalty when none has) and by low average
// source trust. Every term is additive and
// either independent of the evidence multiplier or shrinks (never grows)
// as evidence strengthens, so adding a strong anchor to any attached
// document can only raise or hold the score, never lower it.
func computeOceanoAzul(signals []model.DocumentSignal, now time.Time) (float64, []model.ScoreReason) {
	if len(signals) == 0 {
		return 0, nil
	}

	var evidenceTotal float64
	var documentRefCount int
	var firstTier1 time.Time
	for _, s := range signals {
		evidenceTotal += s.EvidenceScore
		if s.HasDocumentRef {
			documentRefCount++
		}
		if s.SourceTier == model.TierWire {
			if firstTier1.IsZero() || s.ExtractedAt.Before(firstTier1) {
				firstTier1 = s.ExtractedAt
			}
		}
	}
	evidenceMultiplier := clamp(evidenceTotal/float64(len(signals)), 0, 1)

	var lag time.Duration
	if firstTier1.IsZero() {
		lag = noTier1CoverageLag
	} else {
		lag = now.Sub(firstTier1)
		if lag < 0 {
			lag = 0
		}
	}
	lagPenalty := 0.3 * clamp(lag.Minutes()/noTier1CoverageLag.Minutes(), 0, 1)

	avgTrust := averageTrustWeight(signals)
	trustPenaltyBase := 0.3 * (1 - avgTrust)
	// Divided down, not multiplied up: the stronger the evidence, the less
	// a scattering of low-trust outlets can drag the score down.
	trustPenaltyReduced := trustPenaltyBase / (1 + evidenceMultiplier)

	pdfBonus := 0.15 * float64(documentRefCount) / float64(len(signals))

	var reasons []model.ScoreReason
	reasons = append(reasons, model.ScoreReason{Code: ReasonOceanoEvidenceBase, Contribution: evidenceMultiplier})
	if pdfBonus > 0 {
		reasons = append(reasons, model.ScoreReason{Code: ReasonOceanoEvidencePDF, Contribution: pdfBonus})
	}
	if lagPenalty > 0 {
		reasons = append(reasons, model.ScoreReason{Code: ReasonOceanoCoverageLag, Contribution: -lagPenalty})
	}
	if trustPenaltyReduced > 0 {
		reasons = append(reasons, model.ScoreReason{Code: ReasonTrustPenaltyLowTier, Contribution: -trustPenaltyReduced})
	}

	return clamp(sum(reasons), 0, 1), reasons
}
