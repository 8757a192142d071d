// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

/*
Package supervisor provides process supervision for radar using suture v4.

This package implements a hierarchical supervisor tree that manages the
lifecycle of every long-running component in the pipeline. It provides
Erlang/OTP-style supervision with automatic restart, failure isolation, and
graceful shutdown.

# Overview

The supervisor tree organizes services into three layers for failure
isolation:

	RootSupervisor ("radar")
	├── IngestSupervisor ("ingest-layer")
	│   ├── Source registry, Scheduler
	│   └── fast / render / deep pool consumers (each fetch result runs
	│       through extract, anchor, organizer and scoring)
	├── ProcessingSupervisor ("processing-layer")
	│   └── Event state machine, Yield monitor, Organizer canonicalize sweeper
	└── EdgeSupervisor ("edge-layer")
	    ├── Broadcast hub
	    └── HTTPServerService (Feedback Sink)

This hierarchy ensures that a crash while clustering documents doesn't take
the live broadcast stream down, and that a stalled source fetch doesn't
block editorial feedback from being recorded.

# Key Features

Automatic Restart:
  - Crashed services are automatically restarted
  - Exponential backoff prevents restart storms
  - Configurable failure thresholds and decay rates

Failure Isolation:
  - Services are organized into logical groups
  - Child supervisor failures don't propagate upward
  - Each layer has independent failure counting

Graceful Shutdown:
  - Context cancellation triggers orderly shutdown
  - Configurable shutdown timeout per service
  - UnstoppedServiceReport for debugging hangs

Structured Logging:
  - Integration with slog for structured events
  - Logs service starts, stops, failures, and restarts
  - Event hooks via sutureslog adapter

# Usage Example

Basic setup in cmd/radar:

	import (
	    "log/slog"
	    "github.com/tomfr/radar/internal/supervisor"
	    "github.com/tomfr/radar/internal/supervisor/services"
	)

	func main() {
	    logger := slog.Default()
	    config := supervisor.DefaultTreeConfig()

	    tree, err := supervisor.NewSupervisorTree(logger, config)
	    if err != nil {
	        log.Fatal(err)
	    }

	    tree.AddEdgeService(services.NewHTTPServerService(server, 10*time.Second))
	    tree.AddIngestService(scheduler)
	    tree.AddProcessingService(organizer)

	    ctx := context.Background()
	    if err := tree.Serve(ctx); err != nil {
	        log.Printf("Supervisor stopped: %v", err)
	    }
	}

Background operation:

	errChan := tree.ServeBackground(ctx)
	// Do other setup...
	if err := <-errChan; err != nil {
	    log.Printf("Supervisor error: %v", err)
	}

# Configuration

The TreeConfig controls restart behavior:

	config := supervisor.TreeConfig{
	    FailureThreshold: 5.0,          // Failures before backoff
	    FailureDecay:     30.0,         // Seconds for failures to decay
	    FailureBackoff:   15 * time.Second, // Backoff duration
	    ShutdownTimeout:  10 * time.Second, // Per-service shutdown timeout
	}

# Failure Handling

1. Each service failure increments a counter.
2. The counter decays exponentially over time (FailureDecay seconds).
3. When the counter exceeds FailureThreshold, the supervisor enters backoff.
4. During backoff, restarts are delayed by FailureBackoff duration.

# Service Interface

All services must implement suture.Service:

	type Service interface {
	    Serve(ctx context.Context) error
	}

Return nil for a clean stop (no restart); return an error to be restarted;
return promptly once ctx is canceled.

# Build Tags

Optional components are controlled by build tags:

	-tags nats   # Build the embedded NATS JetStream server into cmd/radar

Without this tag, starting the embedded server returns an error; job
dispatch then needs an external NATS server at the configured URL.

# What Is NOT Supervised

DuckDB (internal/store) is intentionally not supervised: it's an embedded
library, not a long-running service, and a crash there requires a process
restart regardless.

# Debugging Shutdown Issues

	report, err := tree.UnstoppedServiceReport()
	for _, svc := range report {
	    log.Printf("service didn't stop: %v", svc)
	}

# See Also

  - internal/supervisor/services: generic service wrappers (HTTP)
  - github.com/thejerf/suture/v4: underlying library
*/
package supervisor
