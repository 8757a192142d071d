// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

package fetch

import (
	"time"

	"github.com/google/uuid"

	"github.com/tomfr/radar/internal/model"
)

// Job is a single fetch dispatch handed to one of the three pools.
type Job struct {
	SourceID    string
	URL         string
	MaxBytes    int64
	PriorConditional string // content hash of the URL's most recent stored snapshot
}

// Result is the outcome of executing a Job.
type Result struct {
	Attempt  model.FetchAttempt
	Snapshot model.Snapshot // zero value when Attempt.Outcome != OutcomeOK
	Body     []byte
}

// Pool is satisfied by each of fastpool, renderpool and deeppool.
type Pool interface {
	// Fetch blocks until a worker slot is free, then executes the job with
	// the pool's configured timeout and circuit breaker.
	Fetch(job Job) Result
	// Name identifies the pool in logs and metrics ("fast", "render", "deep").
	Name() string
}

func classifyStatus(status int) model.FetchOutcome {
	switch {
	case status == 304:
		return model.OutcomeNotModified
	case status >= 200 && status < 300:
		return model.OutcomeOK
	case status >= 400:
		return model.OutcomeHTTPError
	default:
		return model.OutcomeTransportError
	}
}

func newAttempt(sourceID, pool string, started time.Time) model.FetchAttempt {
	return model.FetchAttempt{
		ID:        uuid.NewString(),
		SourceID:  sourceID,
		Pool:      pool,
		StartedAt: started,
	}
}
