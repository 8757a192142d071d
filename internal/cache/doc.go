// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

// Package cache provides the Aho-Corasick multi-pattern matcher used to
// scan document text against a fixed lexicon in one pass, rather than
// running one substring search per term.
//
// internal/anchor builds one matcher per lexicon (hedge terms, on-scene
// markers) at package init and reuses it across every document.
package cache
