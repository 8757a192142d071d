// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

// Command radar runs the editorial radar pipeline end to end: the source
// scheduler, the three fetch pools, content extraction, anchor/evidence
// extraction, clustering, dual scoring, the event lifecycle state machine,
// alerting, and the broadcast/feedback HTTP edge.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"

	"github.com/tomfr/radar/internal/alert"
	"github.com/tomfr/radar/internal/anchor"
	"github.com/tomfr/radar/internal/broadcast"
	"github.com/tomfr/radar/internal/config"
	"github.com/tomfr/radar/internal/eventstate"
	"github.com/tomfr/radar/internal/extract"
	"github.com/tomfr/radar/internal/feedback"
	"github.com/tomfr/radar/internal/fetch"
	"github.com/tomfr/radar/internal/fetch/deeppool"
	"github.com/tomfr/radar/internal/fetch/fastpool"
	"github.com/tomfr/radar/internal/fetch/jobqueue"
	"github.com/tomfr/radar/internal/fetch/renderpool"
	"github.com/tomfr/radar/internal/logging"
	"github.com/tomfr/radar/internal/organizer"
	"github.com/tomfr/radar/internal/ratelimit"
	"github.com/tomfr/radar/internal/scheduler"
	"github.com/tomfr/radar/internal/scoring"
	"github.com/tomfr/radar/internal/sources"
	"github.com/tomfr/radar/internal/store"
	"github.com/tomfr/radar/internal/supervisor"
	"github.com/tomfr/radar/internal/supervisor/services"
	"github.com/tomfr/radar/internal/yield"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().Msg("starting radar")

	st, err := store.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing store")
		}
	}()

	guard, err := badger.Open(badger.DefaultOptions(cfg.Security.KVStorePath).WithLogger(nil))
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open guard store")
	}
	defer func() {
		if err := guard.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing guard store")
		}
	}()

	registry, err := sources.NewRegistry(cfg.Sources.Dir, cfg.Sources.InstitutionalUserAgent, st)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load source registry")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slogLogger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create supervisor tree")
	}

	natsURL := cfg.NATS.URL
	var broker *embeddedBroker
	if cfg.NATS.Enabled && cfg.NATS.EmbeddedServer {
		broker, err = startEmbeddedBroker(cfg.NATS)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to start embedded NATS server")
		}
		natsURL = broker.ClientURL()
		cfg.NATS.URL = natsURL
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.NATS.CloseTimeout)
			defer cancel()
			if err := broker.Shutdown(shutdownCtx); err != nil {
				logging.Error().Err(err).Msg("error shutting down embedded NATS server")
			}
		}()
		logging.Info().Str("url", natsURL).Msg("embedded NATS server ready")
	}

	publisher, err := jobqueue.NewPublisher(jobqueue.PublisherConfig{
		URL:             natsURL,
		MaxReconnects:   -1,
		ReconnectWait:   time.Second,
		ReconnectBuffer: 8 * 1024 * 1024,
	}, nil)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create job publisher")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing job publisher")
		}
	}()

	limiter := ratelimit.New(cfg.RateLimit, guard)
	sched := scheduler.New(cfg.Scheduler, cfg.Fetch.MaxBytes, registry, st, publisher, guard, limiter)

	breakers := fetch.NewBreakerRegistry(fetch.BreakerConfig{
		ConsecutiveFailures: cfg.Fetch.CircuitBreakerConsecutiveFailures,
		Cooldown:            cfg.Fetch.CircuitBreakerCooldown,
	})

	fastPool := fastpool.New(fastpool.Config{
		Concurrency: cfg.Fetch.FastPool.Concurrency,
		Timeout:     cfg.Fetch.FastPool.Timeout,
		UserAgent:   cfg.Sources.InstitutionalUserAgent,
	}, breakers)

	renderPool, err := renderpool.New(renderpool.Config{
		Concurrency: cfg.Fetch.RenderPool.Concurrency,
		Timeout:     cfg.Fetch.RenderPool.Timeout,
		BinPath:     cfg.Fetch.RenderHeadlessBinary,
	}, breakers)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to start render pool")
	}

	deepPool := deeppool.New(deeppool.Config{
		Concurrency: cfg.Fetch.DeepPool.Concurrency,
		Timeout:     cfg.Fetch.DeepPool.Timeout,
		UserAgent:   cfg.Sources.InstitutionalUserAgent,
	}, breakers)

	extractor := extract.New(st, nil)
	anchorEngine := anchor.New(st)

	hub := broadcast.NewHub(cfg.Broadcast.SendBufferSize)

	organizerEngine := organizer.New(st, organizer.Config{
		HardMergeWindow:      cfg.Organizer.HardMergeWindow,
		NearDupWindow:        cfg.Organizer.SameEventWindow,
		NearDupMaxDistance:   3,
		SameEventWindow:      cfg.Organizer.SameEventWindow,
		SameEventThreshold:   cfg.Organizer.SameEventThreshold,
		TextWeight:           0.6,
		EntityWeight:         0.4,
		CanonicalizeInterval: cfg.Organizer.CanonicalizationInterval,
	}, hub)
	scoringEngine := scoring.New(st, cfg.Scoring)
	machine := eventstate.New(st, cfg.EventState, cfg.Fetch.FastGateTimeout, cfg.Fetch.RenderGateTimeout)

	// WebhookNotifier no-ops internally when disabled or unconfigured, so it
	// is always safe to construct and wire in.
	notifier := alert.NewWebhookNotifier(cfg.Alert)
	dispatcher := alert.New(st, notifier, cfg.Alert.CooldownDefault)

	yieldMonitor := yield.New(st, &starvationNotifier{alerts: dispatcher}, cfg.Yield)

	ingestor := NewIngestor(st, registry, sched, extractor, anchorEngine, organizerEngine, scoringEngine, machine, dispatcher, hub, *cfg)

	feedbackSink := feedback.New(st, machine, organizerEngine, hub)
	feedbackRouter := feedback.NewRouter(feedbackSink, cfg.Feedback)

	mux := http.NewServeMux()
	mux.Handle("/", feedbackRouter)
	mux.HandleFunc("/ws", wsHandler(hub))

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Feedback.Host, cfg.Feedback.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Ingest layer: source registry, scheduler, fetch pools.
	tree.AddIngestService(registry)
	tree.AddIngestService(sched)
	tree.AddIngestService(&poolService{name: "fast", topic: jobqueue.TopicFast, sub: mustSubscriber(cfg, "radar-fast"), pool: fastPool, onResult: ingestor.HandleResult})
	tree.AddIngestService(&poolService{name: "render", topic: jobqueue.TopicRender, sub: mustSubscriber(cfg, "radar-render"), pool: renderPool, onResult: ingestor.HandleResult})
	tree.AddIngestService(&poolService{name: "deep", topic: jobqueue.TopicDeep, sub: mustSubscriber(cfg, "radar-deep"), pool: deepPool, onResult: ingestor.HandleResult})

	// Processing layer: event lifecycle sweep, yield monitor, deferred
	// canonicalisation sweep.
	tree.AddProcessingService(machine)
	tree.AddProcessingService(yieldMonitor)
	tree.AddProcessingService(organizerEngine)

	// Edge layer: broadcast hub, feedback + websocket HTTP surface.
	tree.AddEdgeService(hub)
	tree.AddEdgeService(services.NewHTTPServerService(httpServer, 10*time.Second))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", httpServer.Addr).Msg("starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	if unstopped, err := tree.UnstoppedServiceReport(); err == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("service failed to stop within timeout")
		}
	}

	logging.Info().Msg("radar stopped gracefully")
}

func mustSubscriber(cfg *config.Config, durableName string) *jobqueue.Subscriber {
	natsURL := cfg.NATS.URL
	sub, err := jobqueue.NewSubscriber(jobqueue.SubscriberConfig{
		URL:              natsURL,
		QueueGroup:       "radar",
		DurableName:      durableName,
		SubscribersCount: 1,
		MaxDeliver:       5,
		MaxAckPending:    64,
		AckWaitTimeout:   time.Minute,
		CloseTimeout:     cfg.NATS.CloseTimeout,
		MaxReconnects:    -1,
		ReconnectWait:    time.Second,
	}, nil)
	if err != nil {
		logging.Fatal().Err(err).Str("durable_name", durableName).Msg("failed to create job subscriber")
	}
	return sub
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsHandler upgrades a newsroom client's connection and registers it with
// the broadcast hub.
func wsHandler(hub *broadcast.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}
		client := broadcast.NewClient(hub, conn)
		hub.Register <- client
		client.Start()
	}
}
