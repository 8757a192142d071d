// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

// Package anchor runs the deterministic regex pack over every new or
// updated Document, extracting canonical-category anchors (tax ids,
// process ids, bill ids, monetary values, dates, official links) and
// deriving the document's evidence features.
package anchor

import (
	"context"
	"regexp"

	"github.com/google/uuid"

	"github.com/tomfr/radar/internal/cache"
	"github.com/tomfr/radar/internal/metrics"
	"github.com/tomfr/radar/internal/model"
)

// Store is the subset of internal/store.Store the anchor engine depends on.
type Store interface {
	InsertAnchors(ctx context.Context, anchors []model.Anchor) error
	UpsertEvidenceFeatures(ctx context.Context, f model.EvidenceFeatures) error
}

// Engine applies the regex pack to a Document and persists the anchors and
// evidence features it finds.
type Engine struct {
	store Store
}

// New builds an Engine.
func New(store Store) *Engine {
	return &Engine{store: store}
}

// strongAnchorTypes are the categories that, on their own, indicate the
// document cites an identifiable official act or process rather than a
// generic reference.
var strongAnchorTypes = map[model.AnchorType]bool{
	model.AnchorCNJ: true,
	model.AnchorSEI: true,
	model.AnchorTCU: true,
	model.AnchorPL:  true,
	model.AnchorACT: true,
}

// Run extracts anchors and evidence features from a Document's clean text
// and persists both. It returns the anchors found, for callers (the
// organizer's hard-merge rule) that want them without a second query.
func (e *Engine) Run(ctx context.Context, doc model.Document) ([]model.Anchor, model.EvidenceFeatures, error) {
	anchors := Extract(doc.ID, doc.BodyText)
	features := Evidence(doc.ID, doc.BodyText, anchors)

	if err := e.store.InsertAnchors(ctx, anchors); err != nil {
		return nil, model.EvidenceFeatures{}, err
	}
	if err := e.store.UpsertEvidenceFeatures(ctx, features); err != nil {
		return nil, model.EvidenceFeatures{}, err
	}
	metrics.EvidenceScoreObserved.WithLabelValues(string(doc.SourceID)).Observe(features.EvidenceScore)
	return anchors, features, nil
}

// Extract runs every regex matcher over text and returns the anchors found,
// each carrying its type, normalized value, text span and confidence.
func Extract(documentID, text string) []model.Anchor {
	var out []model.Anchor
	for _, m := range matchers {
		for _, loc := range m.pattern.FindAllStringIndex(text, -1) {
			raw := text[loc[0]:loc[1]]
			out = append(out, model.Anchor{
				ID:         uuid.NewString(),
				DocumentID: documentID,
				Type:       m.anchorType,
				Value:      raw,
				Normalized: m.normalize(raw),
				Confidence: m.confidence,
				SpanStart:  loc[0],
				SpanEnd:    loc[1],
			})
			metrics.AnchorsExtractedTotal.WithLabelValues(string(m.anchorType)).Inc()
		}
	}
	return out
}

var (
	quoteAttribution = regexp.MustCompile(`(?i)(disse|afirmou|declarou|segundo|de acordo com)\b[^".]{0,60}["“]`)
	namedOfficial    = regexp.MustCompile(`(?i)\b(ministr[oa]|secretári[oa]|president[ea]|governador[a]?|prefeit[oa]|deputad[oa]|senador[a]?|delegad[oa]|promotor[a]?|juiz|juíza)\s+[A-ZÀ-Ý][\wÀ-ÿ'.-]*(\s+[A-ZÀ-Ý][\wÀ-ÿ'.-]*){0,3}`)
	tableLikeRow     = regexp.MustCompile(`(?m)^.*(\t.*){2,}$|(?i)(R\$\s?[\d.,]+.*){2,}`)

	// onSceneLexicon and hedgeLexicon are scanned with Aho-Corasick rather
	// than regexp: both are flat phrase lists with no internal structure,
	// and the automaton finds every phrase in one pass over the text
	// instead of one regexp pass per phrase.
	onSceneLexicon = cache.NewPatternMatcherFromSlice([]string{
		"no local", "testemunhas relataram", "testemunhas disseram",
		"populares relataram", "em entrevista à reportagem",
		"a reportagem apurou", "a reportagem esteve",
	}, "on_scene")

	hedgeLexicon = cache.NewPatternMatcherFromSlice([]string{
		"ainda não confirmado", "não foi possível confirmar",
		"possivelmente", "supostamente", "segundo apuração preliminar",
		"informações preliminares",
	}, "hedge")
)

// Evidence computes the deterministic evidence features for a document. The
// resulting EvidenceScore is a monotonic combination of its inputs: adding a
// strong anchor, a PDF/official-domain link, a table-like layout signal, or
// another money mention never lowers the score.
func Evidence(documentID, text string, anchors []model.Anchor) model.EvidenceFeatures {
	var strongAnchorCount, moneyMentions int
	var hasOfficialArtefact bool
	for _, a := range anchors {
		if strongAnchorTypes[a.Type] {
			strongAnchorCount++
		}
		if a.Type == model.AnchorMoney {
			moneyMentions++
		}
		if a.Type == model.AnchorPDFLink || a.Type == model.AnchorGovLink || a.Type == model.AnchorGazette {
			hasOfficialArtefact = true
		}
	}

	f := model.EvidenceFeatures{
		DocumentID:       documentID,
		HasQuote:         quoteAttribution.MatchString(text),
		HasNamedOfficial: namedOfficial.MatchString(text),
		HasDocumentRef:   strongAnchorCount > 0,
		HasOnSceneMarker: onSceneLexicon.Contains(text),
		HedgeTermCount:   len(hedgeLexicon.Match(text)),
	}

	score := 0.0
	score += 0.15 * float64(min(strongAnchorCount, 4))
	if hasOfficialArtefact {
		score += 0.25
	}
	if tableLikeRow.MatchString(text) {
		score += 0.1
	}
	score += 0.05 * float64(min(moneyMentions, 4))
	if score > 1 {
		score = 1
	}
	f.EvidenceScore = score

	return f
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
