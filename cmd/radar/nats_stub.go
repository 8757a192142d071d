// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

//go:build !nats

package main

import (
	"context"
	"fmt"

	"github.com/tomfr/radar/internal/config"
)

// embeddedBroker is a stub when the binary is built without -tags=nats.
type embeddedBroker struct{}

func startEmbeddedBroker(cfg config.NATSConfig) (*embeddedBroker, error) {
	return nil, fmt.Errorf("embedded NATS server not available: build with -tags=nats")
}

func (b *embeddedBroker) ClientURL() string { return "" }

func (b *embeddedBroker) Shutdown(ctx context.Context) error { return nil }
