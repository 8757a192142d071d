// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

//go:build nats

package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// EventLogger provides specialized logging for the fetch/organizer pipeline:
// job dispatch, document clustering, and broker publish/subscribe, all of
// which run as Watermill handlers over NATS JetStream.
type EventLogger struct {
	logger zerolog.Logger
}

// NewEventLogger creates a logger configured for pipeline event logging.
func NewEventLogger() *EventLogger {
	return &EventLogger{
		logger: With().Str("component", "pipeline").Logger(),
	}
}

// NewEventLoggerWithLogger creates an EventLogger with a custom logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value (copy-on-write semantics)
func NewEventLoggerWithLogger(logger zerolog.Logger) *EventLogger {
	return &EventLogger{
		logger: logger.With().Str("component", "pipeline").Logger(),
	}
}

// WithFields returns a new EventLogger with additional default fields.
func (e *EventLogger) WithFields(fields map[string]interface{}) *EventLogger {
	ctx := e.logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &EventLogger{logger: ctx.Logger()}
}

// Debug logs a debug message.
func (e *EventLogger) Debug(msg string, fields ...interface{}) {
	event := e.logger.Debug()
	event = addFieldPairs(event, fields)
	event.Msg(msg)
}

// Info logs an info message.
func (e *EventLogger) Info(msg string, fields ...interface{}) {
	event := e.logger.Info()
	event = addFieldPairs(event, fields)
	event.Msg(msg)
}

// Warn logs a warning message.
func (e *EventLogger) Warn(msg string, fields ...interface{}) {
	event := e.logger.Warn()
	event = addFieldPairs(event, fields)
	event.Msg(msg)
}

// Error logs an error message.
func (e *EventLogger) Error(msg string, fields ...interface{}) {
	event := e.logger.Error()
	event = addFieldPairs(event, fields)
	event.Msg(msg)
}

// DebugContext logs a debug message with context (for correlation ID).
func (e *EventLogger) DebugContext(ctx context.Context, msg string, fields ...interface{}) {
	logger := e.loggerWithContext(ctx)
	event := logger.Debug()
	event = addFieldPairs(event, fields)
	event.Msg(msg)
}

// InfoContext logs an info message with context.
func (e *EventLogger) InfoContext(ctx context.Context, msg string, fields ...interface{}) {
	logger := e.loggerWithContext(ctx)
	event := logger.Info()
	event = addFieldPairs(event, fields)
	event.Msg(msg)
}

// WarnContext logs a warning message with context.
func (e *EventLogger) WarnContext(ctx context.Context, msg string, fields ...interface{}) {
	logger := e.loggerWithContext(ctx)
	event := logger.Warn()
	event = addFieldPairs(event, fields)
	event.Msg(msg)
}

// ErrorContext logs an error message with context.
func (e *EventLogger) ErrorContext(ctx context.Context, msg string, fields ...interface{}) {
	logger := e.loggerWithContext(ctx)
	event := logger.Error()
	event = addFieldPairs(event, fields)
	event.Msg(msg)
}

// loggerWithContext returns a logger with context fields added.
func (e *EventLogger) loggerWithContext(ctx context.Context) zerolog.Logger {
	logCtx := e.logger.With()

	if correlationID := CorrelationIDFromContext(ctx); correlationID != "" {
		logCtx = logCtx.Str("correlation_id", correlationID)
	}

	if requestID := RequestIDFromContext(ctx); requestID != "" {
		logCtx = logCtx.Str("request_id", requestID)
	}

	return logCtx.Logger()
}

// ============================================================
// Pipeline Event Logging Methods
// ============================================================

// LogJobDispatched logs when the Scheduler enqueues a fetch job.
func (e *EventLogger) LogJobDispatched(ctx context.Context, sourceID, pool string) {
	e.InfoContext(ctx, "fetch job dispatched",
		"source_id", sourceID,
		"pool", pool,
	)
}

// LogDocumentVersioned logs when the Extractor creates a new Document version.
func (e *EventLogger) LogDocumentVersioned(ctx context.Context, docID string, version int, durationMs int64) {
	e.InfoContext(ctx, "document version created",
		"doc_id", docID,
		"version", version,
		"duration_ms", durationMs,
	)
}

// LogAttachFailed logs when the Organizer fails to attach a Document to an Event.
func (e *EventLogger) LogAttachFailed(ctx context.Context, docID string, err error) {
	logger := e.loggerWithContext(ctx)
	event := logger.Error().
		Str("doc_id", docID).
		Err(err)
	event.Msg("organizer attach failed")
}

// LogDuplicate logs when a near-duplicate Document is skipped.
func (e *EventLogger) LogDuplicate(ctx context.Context, docID, reason string) {
	e.DebugContext(ctx, "near-duplicate document skipped",
		"doc_id", docID,
		"reason", reason,
	)
}

// LogDLQEntry logs when a message is sent to the dead-letter queue.
func (e *EventLogger) LogDLQEntry(ctx context.Context, subject string, err error, retryCount int) {
	logger := e.loggerWithContext(ctx)
	event := logger.Warn().
		Str("subject", subject).
		Err(err).
		Int("retry_count", retryCount)
	event.Msg("message sent to DLQ")
}

// LogBatchFlush logs a batched store write.
func (e *EventLogger) LogBatchFlush(ctx context.Context, count int, durationMs int64) {
	e.InfoContext(ctx, "batch flush completed",
		"row_count", count,
		"duration_ms", durationMs,
	)
}

// LogEventPublished logs when a broadcast message is published to NATS.
func (e *EventLogger) LogEventPublished(ctx context.Context, eventID, topic string) {
	e.DebugContext(ctx, "event message published",
		"event_id", eventID,
		"topic", topic,
	)
}

// LogSubscriptionStarted logs when a subscription is started.
func (e *EventLogger) LogSubscriptionStarted(topic, queue string) {
	e.Info("subscription started",
		"topic", topic,
		"queue", queue,
	)
}

// LogSubscriptionStopped logs when a subscription is stopped.
func (e *EventLogger) LogSubscriptionStopped(topic string) {
	e.Info("subscription stopped",
		"topic", topic,
	)
}

// LogRouterStarted logs when the Watermill router starts.
func (e *EventLogger) LogRouterStarted() {
	e.Info("router started")
}

// LogRouterStopped logs when the Watermill router stops.
func (e *EventLogger) LogRouterStopped() {
	e.Info("router stopped")
}
