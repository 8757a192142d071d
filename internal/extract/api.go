// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

package extract

import (
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/microcosm-cc/bluemonday"

	"github.com/tomfr/radar/internal/model"
)

var apiBodyPolicy = bluemonday.StrictPolicy()

// titleKeys, bodyKeys and linkKeys are tried in order against each decoded
// JSON object; most newsroom CMS APIs use one of these conventions.
var (
	titleKeys = []string{"title", "headline", "name"}
	bodyKeys  = []string{"body", "content", "text", "summary", "description"}
	linkKeys  = []string{"url", "link", "permalink", "canonical_url"}
	timeKeys  = []string{"published_at", "pubDate", "date", "created_at"}
)

// parseAPI maps an API/SPA_API JSON payload into candidate Documents. The
// payload may be a single object or an array of objects (a list endpoint);
// both shapes are handled uniformly.
func parseAPI(fallbackURL string, body []byte) ([]candidate, error) {
	var raw interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode json payload: %w", err)
	}

	var items []map[string]interface{}
	switch v := raw.(type) {
	case []interface{}:
		for _, elem := range v {
			if obj, ok := elem.(map[string]interface{}); ok {
				items = append(items, obj)
			}
		}
	case map[string]interface{}:
		if nested, ok := firstArrayField(v); ok {
			for _, elem := range nested {
				if obj, ok := elem.(map[string]interface{}); ok {
					items = append(items, obj)
				}
			}
		} else {
			items = append(items, v)
		}
	default:
		return nil, fmt.Errorf("decode json payload: unsupported top-level shape")
	}

	out := make([]candidate, 0, len(items))
	for _, item := range items {
		link := firstString(item, linkKeys)
		if link == "" {
			link = fallbackURL
		}
		title := firstString(item, titleKeys)
		rawBody := firstString(item, bodyKeys)
		cleanText := strings.TrimSpace(apiBodyPolicy.Sanitize(rawBody))

		out = append(out, candidate{
			url:         link,
			title:       title,
			bodyText:    cleanText,
			publishedAt: parseTimeField(firstString(item, timeKeys)),
			strategy:    model.ExtractJSONLD,
			contentHash: contentHash(title, link, cleanText),
		})
	}
	return out, nil
}

// parseSPAHeadless handles the XHR JSON payloads captured by the render
// pool. The wire shape is identical to an API response, so it reuses the
// same field-mapping logic, and its candidates carry the same json_ld
// strategy label as parseAPI's.
func parseSPAHeadless(fallbackURL string, body []byte) ([]candidate, error) {
	out, err := parseAPI(fallbackURL, body)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].strategy = model.ExtractJSONLD
	}
	return out, nil
}

// firstArrayField returns the first field in obj whose value is a JSON
// array, used to unwrap envelope shapes like {"items": [...]} or
// {"data": [...]}.
func firstArrayField(obj map[string]interface{}) ([]interface{}, bool) {
	for _, key := range []string{"items", "data", "results", "articles", "entries"} {
		if v, ok := obj[key]; ok {
			if arr, ok := v.([]interface{}); ok {
				return arr, true
			}
		}
	}
	return nil, false
}

var apiTimeLayouts = []string{time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func parseTimeField(s string) time.Time {
	for _, layout := range apiTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func firstString(obj map[string]interface{}, keys []string) string {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
