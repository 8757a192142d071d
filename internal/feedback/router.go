// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

package feedback

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomfr/radar/internal/config"
	"github.com/tomfr/radar/internal/middleware"
)

// NewRouter builds the sink's HTTP surface: health and metrics endpoints
// are open, the feedback endpoint runs the full auth/rate-limit/CORS stack.
func NewRouter(sink *Sink, cfg config.FeedbackConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.PrometheusMetrics)
	r.Use(CORS(cfg))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	handler := NewHandler(sink)
	r.Route("/api/v1/feedback", func(r chi.Router) {
		r.Use(RateLimit(cfg))
		r.Use(Authenticate(cfg))
		r.Post("/", handler.Submit)
	})

	return r
}
