// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

// Package renderpool fetches JavaScript-rendered pages through a headless
// Chrome instance for sources whose profile declares
// fetch_strategy = "SPA_HEADLESS".
package renderpool

import (
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"

	"github.com/tomfr/radar/internal/fetch"
	"github.com/tomfr/radar/internal/metrics"
	"github.com/tomfr/radar/internal/model"
)

// Breaker is the subset of fetch.BreakerRegistry the pool needs.
type Breaker interface {
	Execute(sourceID string, fn func() ([]byte, error)) ([]byte, error)
}

// Pool drives a shared headless Chrome browser behind a bounded worker
// semaphore, one tab per in-flight job.
type Pool struct {
	browser *rod.Browser
	sem     chan struct{}
	breaker Breaker
	timeout time.Duration
}

// Config configures the render pool.
type Config struct {
	Concurrency  int
	Timeout      time.Duration
	BinPath      string // path to a Chrome/Chromium binary, empty to auto-locate
}

// New launches a headless browser and returns a pool ready to serve fetches.
// The browser process is shared across all jobs; Close must be called on
// shutdown to terminate it.
func New(cfg Config, breaker Breaker) (*Pool, error) {
	l := launcher.New().Headless(true).NoSandbox(true)
	if cfg.BinPath != "" {
		l = l.Bin(cfg.BinPath)
	}
	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch headless chrome: %w", err)
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome devtools: %w", err)
	}

	return &Pool{
		browser: browser,
		sem:     make(chan struct{}, cfg.Concurrency),
		breaker: breaker,
		timeout: cfg.Timeout,
	}, nil
}

// Name implements fetch.Pool.
func (p *Pool) Name() string { return "render" }

// Close terminates the underlying browser process.
func (p *Pool) Close() error {
	return p.browser.Close()
}

// Fetch implements fetch.Pool. It navigates a fresh tab to job.URL, waits for
// the page to settle, and returns the rendered DOM as the response body.
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

	body, err := p.breaker.Execute(job.SourceID, func() ([]byte, error) {
		return p.render(job)
	})
	attempt.FinishedAt = time.Now()
	attempt.BytesFetched = int64(len(body))

	outcome := model.OutcomeOK
	if err != nil {
		outcome = model.OutcomeTransportError
		attempt.ErrorDetail = err.Error()
	}
	attempt.Outcome = outcome

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

func (p *Pool) render(job fetch.Job) ([]byte, error) {
	page, err := p.browser.Timeout(p.timeout).Page(proto.TargetCreateTarget{URL: job.URL})
	if err != nil {
		return nil, fmt.Errorf("open page %s: %w", job.URL, err)
	}
	defer page.Close()

	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load %s: %w", job.URL, err)
	}
	// Give client-side rendering a moment to settle after the load event;
	// many SPA news templates hydrate content asynchronously.
	page.WaitIdle(p.timeout)

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("read rendered DOM %s: %w", job.URL, err)
	}

	body := []byte(html)
	if job.MaxBytes > 0 && int64(len(body)) > job.MaxBytes {
		body = body[:job.MaxBytes]
	}
	return body, nil
}
