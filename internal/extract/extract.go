// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

// Package extract turns a Fetcher's raw Snapshot payload into versioned
// Documents, routed by the source's ContentStrategy. A new Document version
// is only ever written when the strategy's content hash differs from the
// latest stored version for that url.
package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/tomfr/radar/internal/metrics"
	"github.com/tomfr/radar/internal/model"
)

// Store is the subset of internal/store.Store the extractor depends on.
type Store interface {
	NextDocumentVersion(ctx context.Context, documentID string) (int, error)
	LatestDocumentVersion(ctx context.Context, documentID string) (model.Document, error)
	InsertDocumentVersion(ctx context.Context, d model.Document) error
}

// OCR is invoked only when a PDF has no extractable text layer. No default
// implementation is wired because the corpus this project drew its
// dependencies from carries no OCR library; Configure a real engine before
// enabling PDF sources that serve scanned gazettes.
type OCR interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// Extractor dispatches a fetched body to the strategy-specific parser and
// persists the resulting Document versions.
type Extractor struct {
	store Store
	ocr   OCR
}

// New builds an Extractor. ocr may be nil; PDFs requiring OCR then fail with
// a content error instead of silently producing an empty Document.
func New(store Store, ocr OCR) *Extractor {
	return &Extractor{store: store, ocr: ocr}
}

// candidate is one strategy's parsed-but-not-yet-persisted article, prior to
// version comparison against the stored latest.
type candidate struct {
	url          string
	canonicalURL string
	title        string
	bodyText     string
	publishedAt  time.Time
	strategy     model.ExtractStrategy
	contentHash  string
}

// Extract parses body according to src.Strategy and persists a new Document
// version for every candidate whose content hash differs from what is
// already stored. It returns only the versions that were actually written.
func (x *Extractor) Extract(ctx context.Context, src model.Source, snap model.Snapshot, body []byte) ([]model.Document, error) {
	var candidates []candidate
	var err error

	switch src.Strategy {
	case model.ContentRSS:
		candidates, err = parseRSS(body)
	case model.ContentHTML:
		candidates, err = parseHTML(snap.URL, body)
	case model.ContentAPI, model.ContentSPAAPI:
		candidates, err = parseAPI(snap.URL, body)
	case model.ContentSPAHeadless:
		candidates, err = parseSPAHeadless(snap.URL, body)
	case model.ContentPDF:
		candidates, err = x.parsePDF(ctx, snap.URL, body)
	default:
		return nil, fmt.Errorf("extract %s: unknown content strategy %q", snap.URL, src.Strategy)
	}
	if err != nil {
		metrics.ExtractErrorsTotal.WithLabelValues(src.ID, string(src.Strategy)).Inc()
		return nil, fmt.Errorf("extract %s (%s): %w", snap.URL, src.Strategy, err)
	}

	var written []model.Document
	for _, c := range candidates {
		if c.url == "" {
			continue // entries without a resolvable link are discarded
		}
		d, ok, err := x.persistIfChanged(ctx, src.ID, c)
		if err != nil {
			return written, err
		}
		if ok {
			written = append(written, d)
		}
	}
	return written, nil
}

func (x *Extractor) persistIfChanged(ctx context.Context, sourceID string, c candidate) (model.Document, bool, error) {
	docID := documentID(sourceID, c.url)

	latest, err := x.store.LatestDocumentVersion(ctx, docID)
	if err == nil && latest.ContentHash == c.contentHash {
		return model.Document{}, false, nil
	}

	version, err := x.store.NextDocumentVersion(ctx, docID)
	if err != nil {
		return model.Document{}, false, fmt.Errorf("next version for %s: %w", docID, err)
	}

	d := model.Document{
		ID:           docID,
		Version:      version,
		SourceID:     sourceID,
		URL:          c.url,
		CanonicalURL: c.canonicalURL,
		Title:        c.title,
		BodyText:     c.bodyText,
		ContentHash:  c.contentHash,
		PublishedAt:  c.publishedAt,
		ExtractedAt:  time.Now().UTC(),
		Strategy:     c.strategy,
	}
	if err := x.store.InsertDocumentVersion(ctx, d); err != nil {
		return model.Document{}, false, err
	}
	return d, true, nil
}

// documentID derives a stable per-url document identity, independent of the
// per-version content hash.
func documentID(sourceID, url string) string {
	sum := sha256.Sum256([]byte(sourceID + "\x00" + url))
	return hex.EncodeToString(sum[:])
}

func parsedOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func contentHash(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
