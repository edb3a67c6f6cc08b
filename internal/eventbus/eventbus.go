// Package eventbus wraps the watermill publisher/subscriber pair used by every module.
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	nc "github.com/nats-io/nats.go"
)

// TopicMetadataKey names the metadata entry used when a message is published without a topic.
const TopicMetadataKey = "topic"

// ErrMissingTopic is returned when neither the caller nor the message names a topic.
var ErrMissingTopic = errors.New("message has no topic")

// EventBus is a watermill publisher and subscriber sharing one connection.
type EventBus interface {
	message.Publisher
	message.Subscriber
	// Healthy reports whether the underlying transport is connected.
	Healthy() error
}

type natsEventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	conn       *nc.Conn
	logger     *slog.Logger
}

// NewNATSEventBus connects to NATS core subjects through watermill-nats.
func NewNATSEventBus(ctx context.Context, natsURL string, queueGroup string, logger *slog.Logger) (EventBus, error) {
	conn, err := nc.Connect(natsURL, nc.RetryOnFailedConnect(true), nc.Name("lobby-bot"))
	if err != nil {
		logger.ErrorContext(ctx, "Failed to connect to NATS", slog.Any("error", err))
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	wmLogger := watermill.NewSlogLogger(logger)
	marshaler := &nats.NATSMarshaler{}

	publisher, err := nats.NewPublisher(
		nats.PublisherConfig{
			URL:       natsURL,
			Marshaler: marshaler,
			NatsOptions: []nc.Option{
				nc.RetryOnFailedConnect(true),
			},
			JetStream: nats.JetStreamConfig{Disabled: true},
		},
		wmLogger,
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create watermill publisher: %w", err)
	}

	subscriber, err := nats.NewSubscriber(
		nats.SubscriberConfig{
			URL:              natsURL,
			QueueGroupPrefix: queueGroup,
			Unmarshaler:      marshaler,
			NatsOptions: []nc.Option{
				nc.RetryOnFailedConnect(true),
			},
			JetStream: nats.JetStreamConfig{Disabled: true},
		},
		wmLogger,
	)
	if err != nil {
		conn.Close()
		_ = publisher.Close()
		return nil, fmt.Errorf("failed to create watermill subscriber: %w", err)
	}

	return &natsEventBus{
		publisher:  publisher,
		subscriber: subscriber,
		conn:       conn,
		logger:     logger,
	}, nil
}

func (b *natsEventBus) Publish(topic string, messages ...*message.Message) error {
	return publishResolved(b.publisher, topic, messages)
}

func (b *natsEventBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.subscriber.Subscribe(ctx, topic)
}

func (b *natsEventBus) Healthy() error {
	if status := b.conn.Status(); status != nc.CONNECTED {
		return fmt.Errorf("nats connection is %s", status)
	}
	return nil
}

func (b *natsEventBus) Close() error {
	var errs []error
	if err := b.subscriber.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing subscriber: %w", err))
	}
	if err := b.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing publisher: %w", err))
	}
	b.conn.Close()
	return errors.Join(errs...)
}

type memoryEventBus struct {
	pubsub *gochannel.GoChannel
}

// NewInMemoryEventBus returns a process-local bus, used by tests and single-binary runs.
func NewInMemoryEventBus(logger *slog.Logger) EventBus {
	return &memoryEventBus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, watermill.NewSlogLogger(logger)),
	}
}

func (b *memoryEventBus) Publish(topic string, messages ...*message.Message) error {
	return publishResolved(b.pubsub, topic, messages)
}

func (b *memoryEventBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topic)
}

func (b *memoryEventBus) Healthy() error { return nil }

func (b *memoryEventBus) Close() error { return b.pubsub.Close() }

// publishResolved publishes each message on topic, or on its "topic" metadata when topic is empty.
// Router handlers registered with an empty publish topic rely on this.
func publishResolved(pub message.Publisher, topic string, messages []*message.Message) error {
	for _, msg := range messages {
		target := topic
		if target == "" {
			target = msg.Metadata.Get(TopicMetadataKey)
		}
		if target == "" {
			return fmt.Errorf("%w: uuid %s", ErrMissingTopic, msg.UUID)
		}
		if err := pub.Publish(target, msg); err != nil {
			return fmt.Errorf("failed to publish to %s: %w", target, err)
		}
	}
	return nil
}
