// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"github.com/tomfr/radar/internal/model"
)

var rssStripPolicy = bluemonday.StrictPolicy()

// parseRSS turns every feed entry into a candidate Document. Entries without
// a resolvable link are returned with an empty url and discarded by the
// caller. Per spec, the content hash covers title, link and whatever the
// entry carries as a summary or full content, not the full feed XML.
func parseRSS(body []byte) ([]candidate, error) {
	fp := gofeed.NewParser()
	feed, err := fp.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	out := make([]candidate, 0, len(feed.Items))
	for _, item := range feed.Items {
		summaryOrContent := item.Content
		if summaryOrContent == "" {
			summaryOrContent = item.Description
		}
		cleanText := strings.TrimSpace(rssStripPolicy.Sanitize(summaryOrContent))

		out = append(out, candidate{
			url:         item.Link,
			title:       item.Title,
			bodyText:    cleanText,
			publishedAt: parsedOrZero(item.PublishedParsed),
			strategy:    model.ExtractFallback,
			contentHash: contentHash(item.Title, item.Link, summaryOrContent),
		})
	}
	return out, nil
}
