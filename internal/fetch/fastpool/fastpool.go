// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

// Package fastpool fetches plain HTML/RSS over net/http for sources whose
// profile declares fetch_strategy = "FAST".
package fastpool

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tomfr/radar/internal/fetch"
	"github.com/tomfr/radar/internal/metrics"
	"github.com/tomfr/radar/internal/model"
)

// Breaker is the subset of fetch.BreakerRegistry the pool needs.
type Breaker interface {
	Execute(sourceID string, fn func() ([]byte, error)) ([]byte, error)
}

// Pool is the fast HTTP fetch pool: a bounded worker semaphore in front of
// a shared http.Client, one circuit breaker per source.
type Pool struct {
	client    *http.Client
	sem       chan struct{}
	breaker   Breaker
	userAgent string
	timeout   time.Duration
}

// Config configures the fast pool.
type Config struct {
	Concurrency int
	Timeout     time.Duration
	UserAgent   string
}

// New creates a fast pool with cfg.Concurrency worker slots.
func New(cfg Config, breaker Breaker) *Pool {
	return &Pool{
		client:    &http.Client{Timeout: cfg.Timeout},
		sem:       make(chan struct{}, cfg.Concurrency),
		breaker:   breaker,
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout,
	}
}

// Name implements fetch.Pool.
func (p *Pool) Name() string { return "fast" }

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

	body, status, err := p.breakered(job)
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

func (p *Pool) breakered(job fetch.Job) ([]byte, int, error) {
	var status int
	body, err := p.breaker.Execute(job.SourceID, func() ([]byte, error) {
		b, s, e := p.do(job)
		status = s
		return b, e
	})
	return body, status, err
}

func (p *Pool) do(job fetch.Job) ([]byte, int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, job.URL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request for %s: %w", job.URL, err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	if job.PriorConditional != "" {
		req.Header.Set("If-None-Match", job.PriorConditional)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch %s: %w", job.URL, err)
	}
	defer resp.Body.Close()

	maxBytes := job.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body of %s: %w", job.URL, err)
	}
	if resp.StatusCode >= 400 {
		return body, resp.StatusCode, fmt.Errorf("fetch %s: http %d", job.URL, resp.StatusCode)
	}
	return body, resp.StatusCode, nil
}

func classify(status int, err error) model.FetchOutcome {
	switch {
	case status == http.StatusNotModified:
		return model.OutcomeNotModified
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
