// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

// Package scheduler scans the Source Profile Registry on a fixed tick,
// decides which sources are due for a fetch, and dispatches one job per due
// source onto the pool queue matching its fetch strategy. Due timestamps and
// an in-flight guard are persisted in Badger so a restart does not cause a
// burst of redundant dispatches or a source stuck in flight forever. A due
// source still yields to its domain's rate budget before dispatch.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomfr/radar/internal/config"
	"github.com/tomfr/radar/internal/fetch"
	"github.com/tomfr/radar/internal/fetch/jobqueue"
	"github.com/tomfr/radar/internal/logging"
	"github.com/tomfr/radar/internal/metrics"
	"github.com/tomfr/radar/internal/model"
	"github.com/tomfr/radar/internal/ratelimit"
)

// Registry is the subset of internal/sources.Registry the scheduler needs.
type Registry interface {
	All() []model.Source
}

// ContentLookup resolves the last known content hash for a URL, used as the
// conditional-request value on repeat fetches.
type ContentLookup interface {
	LatestContentHash(ctx context.Context, url string) (string, error)
}

// Publisher is the subset of jobqueue.Publisher the scheduler needs.
type Publisher interface {
	Enqueue(ctx context.Context, topic jobqueue.Topic, job fetch.Job) error
}

// DomainLimiter is the subset of internal/ratelimit.Limiter the scheduler
// needs to hold a source's dispatch until its domain has budget. A nil
// limiter disables the check entirely.
type DomainLimiter interface {
	Allow(domain string, reqPerMin int) (bool, error)
}

// Scheduler dispatches due sources to the fetch pools.
type Scheduler struct {
	cfg       config.SchedulerConfig
	maxBytes  int64
	registry  Registry
	content   ContentLookup
	publisher Publisher
	guard     *badger.DB
	limiter   DomainLimiter
}

// New creates a Scheduler. guard is a Badger instance dedicated to due
// timestamps and in-flight markers (it may be shared with other components
// under distinct key prefixes). limiter may be nil to disable per-domain
// rate limiting.
func New(cfg config.SchedulerConfig, maxBytes int64, registry Registry, content ContentLookup, publisher Publisher, guard *badger.DB, limiter DomainLimiter) *Scheduler {
	return &Scheduler{
		cfg:       cfg,
		maxBytes:  maxBytes,
		registry:  registry,
		content:   content,
		publisher: publisher,
		guard:     guard,
		limiter:   limiter,
	}
}

// String implements suture.Service / fmt.Stringer.
func (s *Scheduler) String() string { return "scheduler" }

// Serve runs the tick loop until ctx is canceled.
func (s *Scheduler) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	now := time.Now()
	for _, src := range s.registry.All() {
		if !src.Enabled {
			continue
		}
		due, err := s.isDue(src.ID, now)
		if err != nil {
			logging.Warn().Err(err).Str("source_id", src.ID).Msg("scheduler: due check failed")
			continue
		}
		if !due {
			continue
		}
		if !s.domainHasBudget(src) {
			continue // source's domain is at its per-minute request budget
		}
		if !s.tryAcquireInFlight(src.ID) {
			continue // previous job still in flight, guard not yet expired
		}

		if err := s.dispatch(ctx, src); err != nil {
			logging.Warn().Err(err).Str("source_id", src.ID).Msg("scheduler: dispatch failed")
			s.releaseInFlight(src.ID)
			continue
		}
		s.setNextDue(src.ID, now.Add(src.PollInterval))
	}
}

// domainHasBudget reports true when no limiter is configured, or the
// source's domain has room under its per-minute request budget.
func (s *Scheduler) domainHasBudget(src model.Source) bool {
	if s.limiter == nil {
		return true
	}
	domain := ratelimit.DomainFor(src.HomepageURL)
	ok, err := s.limiter.Allow(domain, src.RateLimitReqPerMin)
	if err != nil {
		logging.Warn().Err(err).Str("source_id", src.ID).Msg("scheduler: rate limit check failed, allowing dispatch")
		return true
	}
	return ok
}

func (s *Scheduler) dispatch(ctx context.Context, src model.Source) error {
	prior := ""
	if s.content != nil {
		if hash, err := s.content.LatestContentHash(ctx, src.HomepageURL); err == nil {
			prior = hash
		}
	}

	job := fetch.Job{
		SourceID:         src.ID,
		URL:              src.HomepageURL,
		MaxBytes:         s.maxBytes,
		PriorConditional: prior,
	}
	topic := jobqueue.TopicForStrategy(src.FetchStrategy)
	if err := s.publisher.Enqueue(ctx, topic, job); err != nil {
		return fmt.Errorf("enqueue job for %s: %w", src.ID, err)
	}
	metrics.SchedulerQueueDepth.WithLabelValues(string(topic)).Inc()
	return nil
}

func dueKey(sourceID string) []byte   { return []byte("due:" + sourceID) }
func inFlightKey(sourceID string) []byte { return []byte("inflight:" + sourceID) }

// isDue reports whether sourceID has no recorded next-due time (first run)
// or its next-due time has passed.
func (s *Scheduler) isDue(sourceID string, now time.Time) (bool, error) {
	due := true
	err := s.guard.View(func(txn *badger.Txn) error {
		item, err := txn.Get(dueKey(sourceID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var next time.Time
			if err := json.Unmarshal(val, &next); err != nil {
				return err
			}
			due = !now.Before(next)
			return nil
		})
	})
	return due, err
}

func (s *Scheduler) setNextDue(sourceID string, next time.Time) {
	data, err := json.Marshal(next)
	if err != nil {
		return
	}
	_ = s.guard.Update(func(txn *badger.Txn) error {
		return txn.Set(dueKey(sourceID), data)
	})
}

// tryAcquireInFlight sets an in-flight marker with a TTL, refusing the
// dispatch if one is already set. The TTL bounds how long a crashed or
// hung pool worker can block future dispatches for the same source.
func (s *Scheduler) tryAcquireInFlight(sourceID string) bool {
	acquired := false
	_ = s.guard.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(inFlightKey(sourceID))
		if err == nil {
			return nil // still in flight
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		e := badger.NewEntry(inFlightKey(sourceID), []byte{1}).WithTTL(s.cfg.InFlightGuardTTL)
		if err := txn.SetEntry(e); err != nil {
			return err
		}
		acquired = true
		return nil
	})
	return acquired
}

func (s *Scheduler) releaseInFlight(sourceID string) {
	_ = s.guard.Update(func(txn *badger.Txn) error {
		return txn.Delete(inFlightKey(sourceID))
	})
}

// CompleteDispatch clears the in-flight guard for sourceID. Pool workers
// call this (via their result callback) once a dispatched job finishes,
// so the guard's TTL is only a backstop against a lost result, not the
// normal release path.
func (s *Scheduler) CompleteDispatch(sourceID string) {
	s.releaseInFlight(sourceID)
}
