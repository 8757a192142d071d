// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

package organizer

import "github.com/tomfr/radar/internal/model"

// bm25Saturation is the BM25 term-frequency saturation constant k1.
const bm25Saturation = 1.2

// titleLedeSimilarity scores the term overlap between two title+lede strings
// with a BM25-style saturating term-frequency weight: a shared term that is
// common to both contributes less per additional repetition, so a handful of
// shared rare words outweighs many repeats of a common one.
func titleLedeSimilarity(a, b string) float64 {
	freqA := termFrequencies(a)
	freqB := termFrequencies(b)
	if len(freqA) == 0 || len(freqB) == 0 {
		return 0
	}

	var score float64
	for term, tfA := range freqA {
		tfB, ok := freqB[term]
		if !ok {
			continue
		}
		overlap := float64(tfA * tfB)
		score += overlap / (bm25Saturation + overlap)
	}

	norm := float64(len(freqA) + len(freqB))
	if norm == 0 {
		return 0
	}
	return 2 * score / norm
}

func termFrequencies(text string) map[string]int {
	freq := make(map[string]int)
	for _, tok := range tokenize(text) {
		freq[tok]++
	}
	return freq
}

// entityOverlap is the Jaccard similarity of two documents' normalized
// entity-mention surface forms.
func entityOverlap(a, b []model.EntityMention) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	setA := make(map[string]bool, len(a))
	for _, m := range a {
		setA[m.EntityType+":"+m.Normalized] = true
	}
	setB := make(map[string]bool, len(b))
	for _, m := range b {
		setB[m.EntityType+":"+m.Normalized] = true
	}

	intersection := 0
	for k := range setA {
		if setB[k] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
