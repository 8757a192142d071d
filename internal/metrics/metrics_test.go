// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestFetchOutcomeTotal_Increments(t *testing.T) {
	FetchOutcomeTotal.Reset()
	FetchOutcomeTotal.WithLabelValues("fast", "ok").Inc()
	FetchOutcomeTotal.WithLabelValues("fast", "ok").Inc()

	got := testutil.ToFloat64(FetchOutcomeTotal.WithLabelValues("fast", "ok"))
	assert.Equal(t, float64(2), got)
}

func TestEventStateTransitionsTotal_LabelsByTransition(t *testing.T) {
	EventStateTransitionsTotal.Reset()
	EventStateTransitionsTotal.WithLabelValues("HYDRATING", "PARTIAL_ENRICH").Inc()

	got := testutil.ToFloat64(EventStateTransitionsTotal.WithLabelValues("HYDRATING", "PARTIAL_ENRICH"))
	assert.Equal(t, float64(1), got)

	zero := testutil.ToFloat64(EventStateTransitionsTotal.WithLabelValues("HYDRATING", "HOT"))
	assert.Equal(t, float64(0), zero)
}

func TestBroadcastClients_Gauge(t *testing.T) {
	BroadcastClients.Set(0)
	BroadcastClients.Inc()
	BroadcastClients.Inc()
	BroadcastClients.Dec()

	assert.Equal(t, float64(1), testutil.ToFloat64(BroadcastClients))
}
