package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/wixandwax/storefront-backend/pkg/config"
	"github.com/wixandwax/storefront-backend/pkg/kafka"
	"github.com/wixandwax/storefront-backend/pkg/outbox/registry"
	"github.com/wixandwax/storefront-backend/pkg/pubsub"
)

// sinkMessage is one outbox row ready for the wire. Key is the aggregate id
// so events for one order stay ordered on sinks that partition by key.
type sinkMessage struct {
	Key        string
	Data       []byte
	Attributes map[string]string
}

type sink interface {
	Name() string
	Ping(context.Context) error
	Publish(ctx context.Context, topic string, msg sinkMessage) error
}

type pubsubSink struct {
	client *pubsub.Client
}

func (pubsubSink) Name() string { return config.OutboxSinkPubSub }

func (s pubsubSink) Ping(ctx context.Context) error { return s.client.Ping(ctx) }

func (s pubsubSink) Publish(ctx context.Context, topic string, msg sinkMessage) error {
	_, err := s.client.Publish(ctx, topic, msg.Data, msg.Attributes)
	return err
}

type kafkaSink struct {
	client *kafka.Client
}

func (kafkaSink) Name() string { return config.OutboxSinkKafka }

func (s kafkaSink) Ping(ctx context.Context) error { return s.client.Ping(ctx) }

func (s kafkaSink) Publish(ctx context.Context, topic string, msg sinkMessage) error {
	return s.client.Publish(ctx, topic, msg.Key, msg.Data, msg.Attributes)
}

// topicsFor picks the topic names of the configured sink.
func topicsFor(cfg *config.Config) (registry.Topics, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Outbox.Sink)) {
	case config.OutboxSinkPubSub:
		return registry.Topics{Orders: cfg.PubSub.OrdersTopic, Payments: cfg.PubSub.PaymentsTopic}, nil
	case config.OutboxSinkKafka:
		return registry.Topics{Orders: cfg.Kafka.OrdersTopic, Payments: cfg.Kafka.PaymentsTopic}, nil
	default:
		return registry.Topics{}, fmt.Errorf("unknown outbox sink %q", cfg.Outbox.Sink)
	}
}
