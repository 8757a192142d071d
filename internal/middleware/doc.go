// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

// Package middleware provides generic chi-compatible HTTP middleware shared
// across the edge HTTP surface: request ID propagation (tying a handler's
// logs to logging's correlation ID context) and Prometheus request
// instrumentation. Both are func(http.Handler) http.Handler, so they compose
// directly with chi's Router.Use.
//
//	r.Use(middleware.RequestID)
//	r.Use(middleware.PrometheusMetrics)
package middleware
