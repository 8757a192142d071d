// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/tomfr/radar/internal/model"
)

// parseHTML extracts the main article content from a raw HTML body. Content
// hash covers the clean extracted text only, so boilerplate churn (ad
// slots, related-article widgets, timestamps in a sidebar) never triggers a
// spurious new Document version.
func parseHTML(rawURL string, body []byte) ([]candidate, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url %s: %w", rawURL, err)
	}

	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		return nil, fmt.Errorf("readability extract %s: %w", rawURL, err)
	}

	cleanText := strings.TrimSpace(article.TextContent)
	if cleanText == "" {
		return nil, fmt.Errorf("readability extract %s: no extractable text", rawURL)
	}

	var published time.Time
	if article.PublishedTime != nil {
		published = *article.PublishedTime
	}

	return []candidate{{
		url:          rawURL,
		canonicalURL: rawURL,
		title:        article.Title,
		bodyText:     cleanText,
		publishedAt:  published,
		strategy:     model.ExtractReadability,
		contentHash:  contentHash(cleanText),
	}}, nil
}
