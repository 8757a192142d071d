// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

// Package fetch implements the three-pool fetcher (fast, headless-render,
// deep) that retrieves source content under per-source circuit breaking.
package fetch

import (
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomfr/radar/internal/metrics"
)

// BreakerConfig configures the per-source circuit breaker.
type BreakerConfig struct {
	ConsecutiveFailures uint32
	Cooldown            time.Duration
}

// BreakerRegistry holds one circuit breaker per source, created lazily.
type BreakerRegistry struct {
	cfg      BreakerConfig
	mu       sync.RWMutex
	breakers map[string]*gobreaker.CircuitBreaker[[]byte]
}

// NewBreakerRegistry creates an empty registry.
func NewBreakerRegistry(cfg BreakerConfig) *BreakerRegistry {
	return &BreakerRegistry{
		cfg:      cfg,
		breakers: make(map[string]*gobreaker.CircuitBreaker[[]byte]),
	}
}

func (r *BreakerRegistry) get(sourceID string) *gobreaker.CircuitBreaker[[]byte] {
	r.mu.RLock()
	cb, ok := r.breakers[sourceID]
	r.mu.RUnlock()
	if ok {
		return cb
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok := r.breakers[sourceID]; ok {
		return cb
	}

	settings := gobreaker.Settings{
		Name:        sourceID,
		MaxRequests: 1,
		Timeout:     r.cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= r.cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	}
	cb = gobreaker.NewCircuitBreaker[[]byte](settings)
	r.breakers[sourceID] = cb
	return cb
}

// Execute runs fn through the named source's circuit breaker, opening the
// breaker after cfg.ConsecutiveFailures consecutive failures and keeping it
// open for cfg.Cooldown.
func (r *BreakerRegistry) Execute(sourceID string, fn func() ([]byte, error)) ([]byte, error) {
	return r.get(sourceID).Execute(fn)
}

// State returns the human-readable breaker state for a source, or "closed"
// if no breaker has been created yet (i.e. no fetch has run through
// Execute for the source).
func (r *BreakerRegistry) State(sourceID string) string {
	r.mu.RLock()
	cb, ok := r.breakers[sourceID]
	r.mu.RUnlock()
	if !ok {
		return gobreaker.StateClosed.String()
	}
	return cb.State().String()
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
