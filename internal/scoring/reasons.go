// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

package scoring

// Reason codes attached to SCORE_PLANTAO and SCORE_OCEANO_AZUL. Codes are
// additive-only across releases: never renamed, never removed, only added
// to.
const (
	ReasonPlantaoTierWeight        = "PLANTAO_TIER_WEIGHT"
	ReasonPlantaoVelocity          = "PLANTAO_VELOCITY"
	ReasonPlantaoVelocitySpike     = "PLANTAO_VELOCITY_SPIKE"
	ReasonPlantaoSourceDiversity   = "PLANTAO_SOURCE_DIVERSITY"
	ReasonPlantaoImpactHeuristic   = "PLANTAO_IMPACT_HEURISTIC"
	ReasonPlantaoTier1Confirmation = "PLANTAO_TIER1_CONFIRMATION"

	ReasonOceanoEvidenceBase = "OCEANO_EVIDENCE_BASE"
	ReasonOceanoEvidencePDF  = "OCEANO_EVIDENCE_PDF"
	ReasonOceanoCoverageLag  = "OCEANO_COVERAGE_LAG"

	// ReasonTrustPenaltyLowTier is shared by both scores: a low average
	// source trust weight pulls down velocity and evidence confidence
	// alike.
	ReasonTrustPenaltyLowTier = "TRUST_PENALTY_LOW_TIER"
)
