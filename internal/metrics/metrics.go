// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

// Package metrics registers the Prometheus instrumentation for every
// pipeline component, one histogram/counter/gauge vector per subsystem.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchDuration tracks end-to-end fetch latency per pool.
	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "radar_fetch_duration_seconds",
		Help:    "Fetcher end-to-end latency by pool.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15, 30, 60, 120, 300},
	}, []string{"pool"})

	// FetchOutcomeTotal counts fetch attempts by pool and outcome class.
	FetchOutcomeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_fetch_outcome_total",
		Help: "Fetch attempts by pool and outcome (ok, not_modified, transport_error, http_error, content_error, policy_error).",
	}, []string{"pool", "outcome"})

	// CircuitBreakerState tracks the open/half-open/closed state per source.
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "radar_circuit_breaker_state",
		Help: "Circuit breaker state per source: 0=closed, 1=half-open, 2=open.",
	}, []string{"source_id"})

	// ExtractDuration tracks content-extraction latency per strategy.
	ExtractDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "radar_extract_duration_seconds",
		Help:    "Extractor latency by strategy.",
		Buckets: prometheus.DefBuckets,
	}, []string{"strategy"})

	// ExtractErrorsTotal counts extraction failures by source and strategy.
	ExtractErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_extract_errors_total",
		Help: "Extractor failures, by source and content strategy.",
	}, []string{"source_id", "strategy"})

	// DocumentVersionsTotal counts new Document versions created.
	DocumentVersionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_document_versions_total",
		Help: "New Document versions created, by source.",
	}, []string{"source_id"})

	// AnchorsExtractedTotal counts Anchors extracted, by type.
	AnchorsExtractedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_anchors_extracted_total",
		Help: "Anchors extracted by the evidence engine, by anchor type.",
	}, []string{"anchor_type"})

	// EvidenceScoreObserved tracks the distribution of computed evidence
	// scores, by source.
	EvidenceScoreObserved = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "radar_evidence_score",
		Help:    "Computed EvidenceFeatures.evidence_score, by source.",
		Buckets: prometheus.LinearBuckets(0, 0.1, 11),
	}, []string{"source_id"})

	// OrganizerAttachTotal counts Document-to-Event attach decisions by rule.
	OrganizerAttachTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_organizer_attach_total",
		Help: "Document attach decisions by linkage rule (hard_anchor, near_dup, same_event, new_event).",
	}, []string{"rule"})

	// OrganizerMergesTotal counts canonicalisation merges, by reason code.
	OrganizerMergesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_organizer_merges_total",
		Help: "Deferred canonicalisation merges, by reason code.",
	}, []string{"reason"})

	// EventStateTransitionsTotal counts state machine transitions.
	EventStateTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_event_state_transitions_total",
		Help: "Event state machine transitions, from -> to.",
	}, []string{"from", "to"})

	// AlertsSentTotal counts alerts actually dispatched (post-cooldown).
	AlertsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_alerts_sent_total",
		Help: "Alerts dispatched after cooldown/fingerprint filtering.",
	}, []string{"transition"})

	// AlertsSuppressedTotal counts alerts suppressed by cooldown or fingerprint match.
	AlertsSuppressedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_alerts_suppressed_total",
		Help: "Alerts suppressed by cooldown or unchanged fingerprint.",
	}, []string{"reason"})

	// BroadcastClients is the number of currently connected live-stream clients.
	BroadcastClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "radar_broadcast_clients",
		Help: "Connected editorial live-stream clients.",
	})

	// BroadcastMessagesTotal counts broadcast messages by kind.
	BroadcastMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_broadcast_messages_total",
		Help: "Broadcast messages sent, by kind (event_upsert, event_state_changed, event_merged).",
	}, []string{"kind"})

	// YieldStarvationIncidentsTotal counts DATA_STARVATION incidents opened.
	YieldStarvationIncidentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_yield_starvation_incidents_total",
		Help: "DATA_STARVATION incidents opened, by source.",
	}, []string{"source_id"})

	// FeedbackActionsTotal counts editorial feedback actions received.
	FeedbackActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_feedback_actions_total",
		Help: "Editorial feedback actions received, by action and outcome.",
	}, []string{"action", "outcome"})

	// StoreQueryDuration tracks store query latency by operation.
	StoreQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "radar_store_query_duration_seconds",
		Help:    "DuckDB query latency by operation and table.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// StoreQueryErrorsTotal counts store query errors.
	StoreQueryErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "radar_store_query_errors_total",
		Help: "DuckDB query errors by operation and table.",
	}, []string{"operation", "table"})

	// SchedulerQueueDepth counts the jobs the scheduler has enqueued per pool.
	// It is incremented on each dispatch and never decremented.
	SchedulerQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "radar_scheduler_queue_depth",
		Help: "Jobs enqueued per pool by the scheduler (incremented on dispatch, never decremented).",
	}, []string{"pool"})

	// apiRequestDuration tracks HTTP request latency on the feedback/edge
	// surface, by method, path, and status code.
	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "radar_api_request_duration_seconds",
		Help:    "HTTP request latency on the feedback API, by method, path, and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	// apiActiveRequests tracks requests currently being handled.
	apiActiveRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "radar_api_active_requests",
		Help: "HTTP requests currently in flight on the feedback API.",
	})
)

// RecordAPIRequest records one completed HTTP request's latency, labeled by
// method, path, and status code.
func RecordAPIRequest(method, path, status string, duration time.Duration) {
	apiRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge by delta (+1 on
// entry, -1 on exit).
func TrackActiveRequest(delta int) {
	apiActiveRequests.Add(float64(delta))
}
