// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

// Package ratelimit throttles outbound fetches per domain, ahead of the
// pool-level worker counts: a request-per-minute counter persisted in
// Badger (so a restart does not reset a domain mid-penalty) and an
// in-memory concurrency gate bounding simultaneous in-flight requests.
// Neither is a source of truth; both are durable or live only as long as
// they need to be to keep one domain from drowning out the rest.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomfr/radar/internal/config"
)

// DomainFor extracts the rate-limit key from a source's homepage URL: the
// lowercase host with any "www." prefix stripped, so "www.example.com" and
// "example.com" share one counter.
func DomainFor(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// Limiter bounds per-domain request rate and concurrency ahead of dispatch.
type Limiter struct {
	cfg   config.RateLimitConfig
	guard *badger.DB
	now   func() time.Time

	mu    sync.Mutex
	slots map[string]chan struct{}
}

// New creates a Limiter. guard is a Badger instance dedicated to rate
// counters (it may be shared with other components under distinct key
// prefixes, the same convention internal/scheduler uses for its guard).
func New(cfg config.RateLimitConfig, guard *badger.DB) *Limiter {
	return &Limiter{
		cfg:   cfg,
		guard: guard,
		now:   time.Now,
		slots: make(map[string]chan struct{}),
	}
}

// Allow reports whether a request to domain may proceed under its
// requests-per-minute budget, and records the attempt if so. reqPerMin
// overrides the configured default when positive (a source profile's
// own limit).
func (l *Limiter) Allow(domain string, reqPerMin int) (bool, error) {
	if reqPerMin <= 0 {
		reqPerMin = l.cfg.DefaultReqPerMin
	}
	if reqPerMin <= 0 {
		return true, nil
	}

	key := counterKey(domain, l.now())
	allowed := false
	err := l.guard.Update(func(txn *badger.Txn) error {
		count := 0
		item, err := txn.Get(key)
		switch {
		case err == nil:
			if err := item.Value(func(val []byte) error {
				count = decodeCount(val)
				return nil
			}); err != nil {
				return err
			}
		case errors.Is(err, badger.ErrKeyNotFound):
			// first request in this minute's bucket
		default:
			return err
		}

		if count >= reqPerMin {
			return nil
		}
		allowed = true

		ttl := l.cfg.CounterTTL
		if ttl <= 0 {
			ttl = 2 * time.Minute
		}
		entry := badger.NewEntry(key, encodeCount(count+1)).WithTTL(ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return false, fmt.Errorf("ratelimit: check domain %s: %w", domain, err)
	}
	return allowed, nil
}

// Acquire blocks until a concurrency slot for domain is free or ctx is
// canceled, and returns a function that releases it. limit overrides the
// configured default when positive.
func (l *Limiter) Acquire(ctx context.Context, domain string, limit int) (func(), error) {
	if limit <= 0 {
		limit = l.cfg.DefaultConcurrencyPerDomain
	}
	if limit <= 0 {
		return func() {}, nil
	}

	sem := l.slotsFor(domain, limit)
	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Limiter) slotsFor(domain string, limit int) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	sem, ok := l.slots[domain]
	if !ok {
		sem = make(chan struct{}, limit)
		l.slots[domain] = sem
	}
	return sem
}

func counterKey(domain string, at time.Time) []byte {
	bucket := at.UTC().Format("200601021504")
	return []byte("ratelimit:" + domain + ":" + bucket)
}

func encodeCount(n int) []byte {
	return []byte(fmt.Sprintf("%d", n))
}

func decodeCount(val []byte) int {
	n := 0
	for _, b := range val {
		if b < '0' || b > '9' {
			return n
		}
		n = n*10 + int(b-'0')
	}
	return n
}
