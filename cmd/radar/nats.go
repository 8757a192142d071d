// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

//go:build nats

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"

	"github.com/tomfr/radar/internal/config"
)

// embeddedBroker wraps an in-process NATS JetStream server, used when
// nats.embedded_server is set instead of pointing at an external cluster.
type embeddedBroker struct {
	server    *server.Server
	clientURL string
}

// startEmbeddedBroker launches and waits for an embedded NATS JetStream
// server configured from cfg. The job queue's publisher/subscriber connect
// to its ClientURL exactly as they would an external broker.
func startEmbeddedBroker(cfg config.NATSConfig) (*embeddedBroker, error) {
	opts := &server.Options{
		ServerName:         "radar",
		Host:               "127.0.0.1",
		Port:               -1, // random free port, clients dial ClientURL
		JetStream:          true,
		StoreDir:           cfg.StoreDir,
		JetStreamMaxMemory: 1 << 30,
		JetStreamMaxStore:  10 << 30,
		DontListen:         false,
		MaxPayload:         8 * 1024 * 1024,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create embedded NATS server: %w", err)
	}
	ns.ConfigureLogger()

	go ns.Start()
	if !ns.ReadyForConnections(30 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded NATS server not ready within timeout")
	}

	return &embeddedBroker{server: ns, clientURL: ns.ClientURL()}, nil
}

func (b *embeddedBroker) ClientURL() string { return b.clientURL }

func (b *embeddedBroker) Shutdown(ctx context.Context) error {
	b.server.Shutdown()
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		b.server.WaitForShutdown()
		return nil
	}
}
