// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

// Package jobqueue dispatches fetch jobs from the scheduler to the three
// fetch pools over a Watermill/NATS JetStream queue, so a job survives a
// process restart and so worker count can scale independently of the
// scheduler.
package jobqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomfr/radar/internal/fetch"
	"github.com/tomfr/radar/internal/model"
)

// Topic names one of the three strategy queues; each fetch pool subscribes
// to exactly one.
type Topic string

const (
	TopicFast   Topic = "fetch.fast"
	TopicRender Topic = "fetch.render"
	TopicDeep   Topic = "fetch.deep"
)

// TopicForStrategy maps a source's configured strategy to its queue.
func TopicForStrategy(s model.FetchStrategy) Topic {
	switch s {
	case model.StrategySPAHeadless:
		return TopicRender
	case model.StrategyDeep:
		return TopicDeep
	default:
		return TopicFast
	}
}

// PublisherConfig configures the NATS connection used to enqueue jobs.
type PublisherConfig struct {
	URL             string
	MaxReconnects   int
	ReconnectWait   time.Duration
	ReconnectBuffer int
}

// Publisher enqueues fetch jobs for asynchronous pickup by pool workers.
type Publisher struct {
	publisher message.Publisher
	logger    watermill.LoggerAdapter
}

// NewPublisher connects to NATS and returns a job publisher.
func NewPublisher(cfg PublisherConfig, logger watermill.LoggerAdapter) (*Publisher, error) {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.ReconnectBufSize(cfg.ReconnectBuffer),
	}

	wmConfig := wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: true,
			TrackMsgId:    true,
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create jobqueue publisher: %w", err)
	}

	return &Publisher{publisher: pub, logger: logger}, nil
}

// Enqueue publishes a fetch job onto the queue matching its strategy. The
// job's SourceID and URL, joined as "SourceID:URL", form the NATS dedup key so a re-tick of the
// scheduler's due-source scan cannot double-enqueue a job still in flight.
func (p *Publisher) Enqueue(ctx context.Context, topic Topic, job fetch.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job for %s: %w", job.SourceID, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set(natsgo.MsgIdHdr, job.SourceID+":"+job.URL)

	if err := p.publisher.Publish(string(topic), msg); err != nil {
		return fmt.Errorf("publish job for %s to %s: %w", job.SourceID, topic, err)
	}
	return nil
}

// Close shuts down the underlying NATS connection.
func (p *Publisher) Close() error {
	return p.publisher.Close()
}

// SubscriberConfig configures a worker's NATS consumer.
type SubscriberConfig struct {
	URL              string
	QueueGroup       string
	DurableName      string
	SubscribersCount int
	MaxDeliver       int
	MaxAckPending    int
	AckWaitTimeout   time.Duration
	CloseTimeout     time.Duration
	MaxReconnects    int
	ReconnectWait    time.Duration
}

// Subscriber consumes fetch jobs for one topic and hands them to a pool.
type Subscriber struct {
	subscriber message.Subscriber
	logger     watermill.LoggerAdapter
}

// NewSubscriber connects to NATS and returns a durable job consumer.
func NewSubscriber(cfg SubscriberConfig, logger watermill.LoggerAdapter) (*Subscriber, error) {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
	}

	subOpts := []natsgo.SubOpt{
		natsgo.MaxDeliver(cfg.MaxDeliver),
		natsgo.MaxAckPending(cfg.MaxAckPending),
		natsgo.AckWait(cfg.AckWaitTimeout),
		natsgo.DeliverNew(),
	}

	wmConfig := wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: cfg.SubscribersCount,
		AckWaitTimeout:   cfg.AckWaitTimeout,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:         false,
			AutoProvision:    true,
			AckAsync:         false,
			SubscribeOptions: subOpts,
			DurablePrefix:    cfg.DurableName,
		},
	}

	sub, err := wmNats.NewSubscriber(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create jobqueue subscriber: %w", err)
	}

	return &Subscriber{subscriber: sub, logger: logger}, nil
}

// Run subscribes to topic and invokes pool.Fetch for every decoded job,
// acking once the fetch has run, whatever its outcome, and nacking (for
// JetStream redelivery) only when the job cannot be decoded. It blocks
// until ctx is canceled.
func (s *Subscriber) Run(ctx context.Context, topic Topic, pool fetch.Pool, onResult func(fetch.Result)) error {
	messages, err := s.subscriber.Subscribe(ctx, string(topic))
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			var job fetch.Job
			if err := json.Unmarshal(msg.Payload, &job); err != nil {
				s.logger.Error("decode fetch job", err, watermill.LogFields{"topic": string(topic)})
				msg.Nack()
				continue
			}
			result := pool.Fetch(job)
			if onResult != nil {
				onResult(result)
			}
			msg.Ack()
		}
	}
}

// Close shuts down the underlying NATS connection.
func (s *Subscriber) Close() error {
	return s.subscriber.Close()
}
