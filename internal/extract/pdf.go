// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	radarmodel "github.com/tomfr/radar/internal/model"
)

// textRun matches a parenthesized string literal following a PDF content
// stream text-showing operator (Tj or the array form inside TJ). This is a
// best-effort scrape, not a full PDF content-stream interpreter: it is
// sufficient to recover prose text from the gazette PDFs this pipeline
// targets, which are text-laid-out rather than form-heavy.
var textRun = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)\s*(?:Tj|TJ)?`)

// parsePDF extracts text from a PDF snapshot. If no text layer is found at
// all, it falls back to OCR when one is configured; otherwise it reports a
// content error rather than silently producing an empty Document, per the
// rule that OCR is never invoked for anything but an image-only PDF.
func (x *Extractor) parsePDF(ctx context.Context, rawURL string, body []byte) ([]candidate, error) {
	text, err := extractPDFText(body)
	if err != nil {
		return nil, fmt.Errorf("extract pdf content streams: %w", err)
	}

	if strings.TrimSpace(text) == "" {
		if x.ocr == nil {
			return nil, fmt.Errorf("pdf %s has no text layer and no OCR engine is configured", rawURL)
		}
		recognized, err := x.ocr.Recognize(ctx, body)
		if err != nil {
			return nil, fmt.Errorf("ocr fallback for %s: %w", rawURL, err)
		}
		text = recognized
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("pdf %s: no extractable text after ocr fallback", rawURL)
	}

	return []candidate{{
		url:          rawURL,
		canonicalURL: rawURL,
		bodyText:     text,
		strategy:     radarmodel.ExtractFallback,
		contentHash:  contentHash(text),
	}}, nil
}

// extractPDFText decodes the PDF's content streams via pdfcpu and scrapes
// the text-showing operands out of them.
func extractPDFText(body []byte) (string, error) {
	outDir, err := os.MkdirTemp("", "radar-pdf-extract-*")
	if err != nil {
		return "", fmt.Errorf("create extraction tempdir: %w", err)
	}
	defer os.RemoveAll(outDir)

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractContent(bytes.NewReader(body), outDir, "content", nil, conf); err != nil {
		return "", fmt.Errorf("extract content streams: %w", err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return "", fmt.Errorf("read extraction tempdir: %w", err)
	}

	var sb strings.Builder
	for _, e := range entries {
		raw, err := os.ReadFile(filepath.Join(outDir, e.Name()))
		if err != nil {
			continue
		}
		for _, m := range textRun.FindAllSubmatch(raw, -1) {
			sb.Write(unescapePDFString(m[1]))
			sb.WriteByte(' ')
		}
	}
	return sb.String(), nil
}

func unescapePDFString(s []byte) []byte {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			switch s[i] {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			default:
				out = append(out, s[i])
			}
			continue
		}
		out = append(out, s[i])
	}
	return out
}
