// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

// Package deeppool fetches long-form, often multi-page investigative
// articles for sources whose profile declares fetch_strategy = "DEEP". It
// follows rel="next" pagination links and concatenates the resulting pages
// into a single body, at the cost of a much longer per-job timeout than
// fastpool.
package deeppool

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/google/uuid"

	"github.com/tomfr/radar/internal/fetch"
	"github.com/tomfr/radar/internal/metrics"
	"github.com/tomfr/radar/internal/model"
)

// Breaker is the subset of fetch.BreakerRegistry the pool needs.
type Breaker interface {
	Execute(sourceID string, fn func() ([]byte, error)) ([]byte, error)
}

// Pool is the deep/slow fetch pool: low concurrency, long timeout, follows
// pagination.
type Pool struct {
	client     *http.Client
	sem        chan struct{}
	breaker    Breaker
	userAgent  string
	timeout    time.Duration
	maxPages   int
}

// Config configures the deep pool.
type Config struct {
	Concurrency int
	Timeout     time.Duration
	UserAgent   string
	MaxPages    int // 0 defaults to 5
}

// New creates a deep pool with cfg.Concurrency worker slots.
func New(cfg Config, breaker Breaker) *Pool {
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 5
	}
	return &Pool{
		client:    &http.Client{Timeout: cfg.Timeout},
		sem:       make(chan struct{}, cfg.Concurrency),
		breaker:   breaker,
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout,
		maxPages:  maxPages,
	}
}

// Name implements fetch.Pool.
func (p *Pool) Name() string { return "deep" }

// Fetch implements fetch.Pool.
func (p *Pool) Fetch(job fetch.Job) fetch.Result {
	p.sem <- struct{}{}
	defer func() { <-p.sem }()

	started := time.Now()
	attempt := model.FetchAttempt{
		ID:        uuid.NewString(),
		SourceID:  job.SourceID,
		Pool:      p.Name(),
		StartedAt: started,
	}

	var status int
	body, err := p.breaker.Execute(job.SourceID, func() ([]byte, error) {
		b, s, e := p.fetchPaginated(job)
		status = s
		return b, e
	})
	attempt.FinishedAt = time.Now()
	attempt.HTTPStatus = status
	attempt.BytesFetched = int64(len(body))

	outcome := classify(status, err)
	attempt.Outcome = outcome
	if err != nil {
		attempt.ErrorDetail = err.Error()
	}
	metrics.FetchDuration.WithLabelValues(p.Name()).Observe(attempt.FinishedAt.Sub(started).Seconds())
	metrics.FetchOutcomeTotal.WithLabelValues(p.Name(), string(outcome)).Inc()

	result := fetch.Result{Attempt: attempt, Body: body}
	if outcome == model.OutcomeOK {
		result.Snapshot = model.Snapshot{
			ID:             uuid.NewString(),
			SourceID:       job.SourceID,
			FetchAttemptID: attempt.ID,
			URL:            job.URL,
			FetchedAt:      attempt.FinishedAt,
		}
	}
	return result
}

// fetchPaginated retrieves job.URL and, while a rel="next" link is present
// and the page budget is not exhausted, follows it, concatenating bodies
// with a form-feed separator so extraction can still locate page breaks.
func (p *Pool) fetchPaginated(job fetch.Job) ([]byte, int, error) {
	var combined strings.Builder
	status := 0
	next := job.URL

	for page := 0; page < p.maxPages && next != ""; page++ {
		body, s, err := p.fetchOne(next)
		status = s
		if err != nil {
			if page == 0 {
				return nil, s, err
			}
			break // partial content from earlier pages is still useful
		}
		if page > 0 {
			combined.WriteByte('\f')
		}
		combined.Write(body)

		if job.MaxBytes > 0 && int64(combined.Len()) >= job.MaxBytes {
			break
		}
		next = findNextLink(body, next)
	}
	return []byte(combined.String()), status, nil
}

func (p *Pool) fetchOne(target string) ([]byte, int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request for %s: %w", target, err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 25<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body of %s: %w", target, err)
	}
	if resp.StatusCode >= 400 {
		return body, resp.StatusCode, fmt.Errorf("fetch %s: http %d", target, resp.StatusCode)
	}
	return body, resp.StatusCode, nil
}

// findNextLink scans for <a rel="next" href="..."> and resolves it against
// base. Returns "" when no pagination link is present.
func findNextLink(body []byte, base string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}

	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return ""
	}

	var href string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if href != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "a" {
			isNext := false
			var h string
			for _, a := range n.Attr {
				switch a.Key {
				case "rel":
					if strings.Contains(a.Val, "next") {
						isNext = true
					}
				case "href":
					h = a.Val
				}
			}
			if isNext && h != "" {
				href = h
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if href == "" {
		return ""
	}

	resolved, err := baseURL.Parse(href)
	if err != nil {
		return ""
	}
	return resolved.String()
}

func classify(status int, err error) model.FetchOutcome {
	switch {
	case status >= 200 && status < 300:
		return model.OutcomeOK
	case status >= 400:
		return model.OutcomeHTTPError
	case err != nil:
		return model.OutcomeTransportError
	default:
		return model.OutcomeTransportError
	}
}
