// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

package anchor

import (
	"regexp"
	"strings"

	"github.com/tomfr/radar/internal/model"
)

// matcher finds every occurrence of one canonical anchor category in a body
// of text and returns it already normalized.
type matcher struct {
	anchorType model.AnchorType
	pattern    *regexp.Regexp
	confidence float64
	normalize  func(raw string) string
}

var digitsOnly = regexp.MustCompile(`\D`)

func stripNonDigits(s string) string { return digitsOnly.ReplaceAllString(s, "") }

var matchers = []matcher{
	{
		// CNJ unified judicial process numbering: NNNNNNN-DD.AAAA.J.TR.OOOO
		anchorType: model.AnchorCNJ,
		pattern:    regexp.MustCompile(`\b\d{7}-\d{2}\.\d{4}\.\d\.\d{2}\.\d{4}\b`),
		confidence: 0.97,
		normalize:  stripNonDigits,
	},
	{
		// SEI administrative process numbering: NNNNN.NNNNNN/NNNN-NN
		anchorType: model.AnchorSEI,
		pattern:    regexp.MustCompile(`\b\d{5}\.\d{6}/\d{4}-\d{2}\b`),
		confidence: 0.95,
		normalize:  stripNonDigits,
	},
	{
		// CNPJ, masked or unmasked
		anchorType: model.AnchorCNPJ,
		pattern:    regexp.MustCompile(`\b\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}\b|\b\d{14}\b`),
		confidence: 0.9,
		normalize:  stripNonDigits,
	},
	{
		// CPF, masked form. High confidence: the mask is distinctive.
		anchorType: model.AnchorCPF,
		pattern:    regexp.MustCompile(`\b\d{3}\.\d{3}\.\d{3}-\d{2}\b`),
		confidence: 0.9,
		normalize:  stripNonDigits,
	},
	{
		// CPF, unmasked. An 11-digit run is ambiguous with other numeric
		// identifiers (phone numbers, protocol numbers), so it carries a
		// much lower confidence than the masked form.
		anchorType: model.AnchorCPF,
		pattern:    regexp.MustCompile(`\b\d{11}\b`),
		confidence: 0.4,
		normalize:  stripNonDigits,
	},
	{
		anchorType: model.AnchorTCU,
		pattern:    regexp.MustCompile(`(?i)\bacórdão\s+n?º?\.?\s*\d{1,6}/\d{4}[\s-]*tcu\b`),
		confidence: 0.9,
		normalize:  func(raw string) string { return strings.ToUpper(stripSpaces(raw)) },
	},
	{
		anchorType: model.AnchorPL,
		pattern:    regexp.MustCompile(`(?i)\bpls?\s*n?º?\.?\s*\d{1,6}/\d{4}\b`),
		confidence: 0.85,
		normalize:  func(raw string) string { return strings.ToUpper(stripSpaces(raw)) },
	},
	{
		anchorType: model.AnchorACT,
		pattern:    regexp.MustCompile(`(?i)\b(decreto|portaria|resolução|resolucao)\s+n?º?\.?\s*[\d.]+/\d{4}\b`),
		confidence: 0.85,
		normalize:  func(raw string) string { return strings.ToUpper(stripSpaces(raw)) },
	},
	{
		anchorType: model.AnchorMoney,
		pattern:    regexp.MustCompile(`R\$\s?[\d.]+(?:,\d{2})?`),
		confidence: 0.8,
		normalize:  normalizeMoney,
	},
	{
		anchorType: model.AnchorDate,
		pattern:    regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b|\b\d{1,2}/\d{1,2}/\d{4}\b`),
		confidence: 0.75,
		normalize:  normalizeDate,
	},
	{
		anchorType: model.AnchorPDFLink,
		pattern:    regexp.MustCompile(`https?://[^\s"'<>]+\.pdf\b`),
		confidence: 0.9,
		normalize:  strings.ToLower,
	},
	{
		anchorType: model.AnchorGazette,
		pattern:    regexp.MustCompile(`(?i)https?://[^\s"'<>]*(diariooficial|diario-oficial|dou\.gov|in\.gov\.br/web/dou)[^\s"'<>]*`),
		confidence: 0.9,
		normalize:  strings.ToLower,
	},
	{
		anchorType: model.AnchorGovLink,
		pattern:    regexp.MustCompile(`(?i)https?://[^\s"'<>]*\.gov(?:\.[a-z]{2})?(?:/[^\s"'<>]*)?`),
		confidence: 0.7,
		normalize:  strings.ToLower,
	},
}

func stripSpaces(s string) string { return strings.Join(strings.Fields(s), " ") }

func normalizeMoney(raw string) string {
	digits := strings.TrimPrefix(strings.TrimSpace(raw), "R$")
	digits = strings.TrimSpace(digits)
	// Brazilian thousands separator is '.', decimal separator is ','.
	digits = strings.ReplaceAll(digits, ".", "")
	digits = strings.ReplaceAll(digits, ",", ".")
	return digits
}

func normalizeDate(raw string) string {
	if strings.Contains(raw, "-") {
		return raw // already ISO-shaped
	}
	parts := strings.Split(raw, "/")
	if len(parts) != 3 {
		return raw
	}
	day, month, year := parts[0], parts[1], parts[2]
	if len(day) == 1 {
		day = "0" + day
	}
	if len(month) == 1 {
		month = "0" + month
	}
	return year + "-" + month + "-" + day
}
