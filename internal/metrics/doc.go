// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

// Package metrics exposes Prometheus collectors registered via promauto;
// import for side effects and reference the exported vectors directly.
package metrics
