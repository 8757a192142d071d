// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomfr/radar/internal/config"
)

func newTestGuard(t *testing.T) *badger.DB {
	t.Helper()
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDomainFor(t *testing.T) {
	cases := map[string]string{
		"https://www.example.com/feed": "example.com",
		"https://example.com/feed":     "example.com",
		"https://News.Example.com/x":   "news.example.com",
	}
	for in, want := range cases {
		assert.Equal(t, want, DomainFor(in), in)
	}
}

func TestLimiter_Allow_WithinBudget(t *testing.T) {
	l := New(config.RateLimitConfig{DefaultReqPerMin: 3, CounterTTL: time.Minute}, newTestGuard(t))

	for i := 0; i < 3; i++ {
		ok, err := l.Allow("example.com", 0)
		require.NoError(t, err)
		assert.True(t, ok, "request %d should be allowed", i)
	}
}

func TestLimiter_Allow_RejectsOverBudget(t *testing.T) {
	l := New(config.RateLimitConfig{DefaultReqPerMin: 2, CounterTTL: time.Minute}, newTestGuard(t))

	ok1, _ := l.Allow("example.com", 0)
	ok2, _ := l.Allow("example.com", 0)
	ok3, err := l.Allow("example.com", 0)
	require.NoError(t, err)
	assert.True(t, ok1)
	assert.True(t, ok2)
	assert.False(t, ok3, "third request in the same minute should be rejected")
}

func TestLimiter_Allow_PerSourceOverrideWins(t *testing.T) {
	l := New(config.RateLimitConfig{DefaultReqPerMin: 1, CounterTTL: time.Minute}, newTestGuard(t))

	ok1, _ := l.Allow("example.com", 5)
	ok2, _ := l.Allow("example.com", 5)
	assert.True(t, ok1)
	assert.True(t, ok2, "source-specific limit of 5 should override the default of 1")
}

func TestLimiter_Allow_DomainsAreIndependent(t *testing.T) {
	l := New(config.RateLimitConfig{DefaultReqPerMin: 1, CounterTTL: time.Minute}, newTestGuard(t))

	okA, _ := l.Allow("a.example.com", 0)
	okB, _ := l.Allow("b.example.com", 0)
	assert.True(t, okA)
	assert.True(t, okB, "a distinct domain must not share a's budget")
}

func TestLimiter_Allow_ZeroLimitMeansUnbounded(t *testing.T) {
	l := New(config.RateLimitConfig{DefaultReqPerMin: 0}, newTestGuard(t))

	for i := 0; i < 10; i++ {
		ok, err := l.Allow("example.com", 0)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestLimiter_Acquire_BoundsConcurrency(t *testing.T) {
	l := New(config.RateLimitConfig{DefaultConcurrencyPerDomain: 1}, newTestGuard(t))

	release, err := l.Acquire(context.Background(), "example.com", 0)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "example.com", 0)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "a second acquire must block while the slot is held")

	release()
	ctx2, cancel2 := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel2()
	release2, err := l.Acquire(ctx2, "example.com", 0)
	require.NoError(t, err)
	release2()
}

func TestLimiter_Acquire_UnboundedWhenLimitZero(t *testing.T) {
	l := New(config.RateLimitConfig{}, newTestGuard(t))

	release, err := l.Acquire(context.Background(), "example.com", 0)
	require.NoError(t, err)
	release()
}
