// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

package anchor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomfr/radar/internal/model"
)

type fakeStore struct {
	anchors  []model.Anchor
	features []model.EvidenceFeatures
}

func (f *fakeStore) InsertAnchors(ctx context.Context, anchors []model.Anchor) error {
	f.anchors = append(f.anchors, anchors...)
	return nil
}

func (f *fakeStore) UpsertEvidenceFeatures(ctx context.Context, feat model.EvidenceFeatures) error {
	f.features = append(f.features, feat)
	return nil
}

const sampleText = `O Tribunal de Contas da União julgou o processo 00123.456789/2026-01
e confirmou o Acórdão nº 1234/2026-TCU. O contrato, no valor de R$ 1.250.000,00,
foi assinado em 2026-03-12. A íntegra está disponível em
https://www.gov.br/orgao/documento.pdf. O ministro João Silva afirmou que
"o processo seguirá o rito normal".`

func TestExtract_FindsExpectedAnchorTypes(t *testing.T) {
	anchors := Extract("doc-1", sampleText)
	require.NotEmpty(t, anchors)

	byType := map[model.AnchorType]int{}
	for _, a := range anchors {
		byType[a.Type]++
		assert.Equal(t, "doc-1", a.DocumentID)
		assert.Greater(t, a.SpanEnd, a.SpanStart)
	}

	assert.Equal(t, 1, byType[model.AnchorSEI])
	assert.Equal(t, 1, byType[model.AnchorTCU])
	assert.Equal(t, 1, byType[model.AnchorMoney])
	assert.Equal(t, 1, byType[model.AnchorDate])
	assert.Equal(t, 1, byType[model.AnchorPDFLink])
	assert.GreaterOrEqual(t, byType[model.AnchorGovLink], 1)
}

func TestExtract_NormalizesMoneyAndDate(t *testing.T) {
	anchors := Extract("doc-1", sampleText)
	for _, a := range anchors {
		switch a.Type {
		case model.AnchorMoney:
			assert.Equal(t, "1250000.00", a.Normalized)
		case model.AnchorDate:
			assert.Equal(t, "2026-03-12", a.Normalized)
		}
	}
}

func TestExtract_CPFPrefersMaskedOverUnmasked(t *testing.T) {
	anchors := Extract("doc-1", "CPF do requerente: 123.456.789-09.")
	var found bool
	for _, a := range anchors {
		if a.Type == model.AnchorCPF {
			found = true
			assert.Equal(t, 0.9, a.Confidence, "masked CPF should carry the high-confidence match")
		}
	}
	assert.True(t, found)
}

func TestEvidence_DetectsQuoteAndNamedOfficial(t *testing.T) {
	anchors := Extract("doc-1", sampleText)
	features := Evidence("doc-1", sampleText, anchors)

	assert.True(t, features.HasQuote)
	assert.True(t, features.HasNamedOfficial)
	assert.True(t, features.HasDocumentRef, "strong anchors (SEI, TCU) must set HasDocumentRef")
}

func TestEvidence_ScoreIsMonotonicOnStrongAnchorAddition(t *testing.T) {
	base := "A prefeitura anunciou um novo programa social para a cidade."
	withAnchor := base + " O processo SEI 00123.456789/2026-01 formaliza o repasse."

	baseAnchors := Extract("doc-1", base)
	baseScore := Evidence("doc-1", base, baseAnchors).EvidenceScore

	withAnchors := Extract("doc-2", withAnchor)
	withScore := Evidence("doc-2", withAnchor, withAnchors).EvidenceScore

	assert.GreaterOrEqual(t, withScore, baseScore)
}

func TestEvidence_ScoreClampedToUnitInterval(t *testing.T) {
	saturated := sampleText + sampleText + sampleText + sampleText
	anchors := Extract("doc-1", saturated)
	features := Evidence("doc-1", saturated, anchors)

	assert.LessOrEqual(t, features.EvidenceScore, 1.0)
	assert.GreaterOrEqual(t, features.EvidenceScore, 0.0)
}

func TestEvidence_HedgeTermsCounted(t *testing.T) {
	text := "Informações preliminares indicam que o fato, ainda não confirmado pelas autoridades, ocorreu na madrugada."
	features := Evidence("doc-1", text, nil)
	assert.GreaterOrEqual(t, features.HedgeTermCount, 2)
}

func TestEngine_RunPersistsAnchorsAndFeatures(t *testing.T) {
	store := &fakeStore{}
	engine := New(store)

	doc := model.Document{ID: "doc-1", SourceID: "ap-wire", BodyText: sampleText}
	anchors, features, err := engine.Run(context.Background(), doc)
	require.NoError(t, err)

	assert.NotEmpty(t, anchors)
	assert.Equal(t, anchors, store.anchors)
	require.Len(t, store.features, 1)
	assert.Equal(t, features, store.features[0])
	assert.Equal(t, "doc-1", features.DocumentID)
}
