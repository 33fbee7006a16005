package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// EventPublisher delivers domain events. Publish failures never undo committed work.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// PublisherConfig selects the transport
type PublisherConfig struct {
	KafkaBrokers []string // empty keeps events in process
	TopicPrefix  string
}

// WatermillPublisher publishes JSON envelopes to "<prefix>.<event type>" topics
type WatermillPublisher struct {
	publisher   message.Publisher
	subscriber  message.Subscriber // set only for the in-process transport
	topicPrefix string
	logger      *slog.Logger
}

// NewPublisher builds a Kafka publisher when brokers are configured and an
// in-process gochannel otherwise. Kafka connection failures fall back to gochannel.
func NewPublisher(cfg PublisherConfig, logger *slog.Logger) *WatermillPublisher {
	wmLogger := watermill.NewSlogLogger(logger)

	if len(cfg.KafkaBrokers) > 0 {
		pub, err := kafka.NewPublisher(kafka.PublisherConfig{
			Brokers:   cfg.KafkaBrokers,
			Marshaler: kafka.DefaultMarshaler{},
		}, wmLogger)
		if err == nil {
			logger.Info("Publishing domain events to Kafka", "brokers", cfg.KafkaBrokers)
			return &WatermillPublisher{publisher: pub, topicPrefix: cfg.TopicPrefix, logger: logger}
		}
		logger.Warn("Kafka unavailable, publishing events in process", "error", err)
	}

	ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, wmLogger)
	return &WatermillPublisher{publisher: ch, subscriber: ch, topicPrefix: cfg.TopicPrefix, logger: logger}
}

// Topic returns the topic an event type is published on
func (p *WatermillPublisher) Topic(eventType string) string {
	if p.topicPrefix == "" {
		return eventType
	}
	return strings.TrimSuffix(p.topicPrefix, ".") + "." + eventType
}

func (p *WatermillPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.Type, err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("event_type", event.Type)
	msg.Metadata.Set("source", event.Source)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.Topic(event.Type), msg); err != nil {
		return fmt.Errorf("publish event %s: %w", event.Type, err)
	}
	return nil
}

// Subscriber returns the in-process subscriber, or nil when events go to Kafka
func (p *WatermillPublisher) Subscriber() message.Subscriber {
	return p.subscriber
}

func (p *WatermillPublisher) Close() error {
	return p.publisher.Close()
}

// StartAuditLog logs every event received on the given types until ctx ends
func StartAuditLog(ctx context.Context, sub message.Subscriber, topicFor func(string) string, logger *slog.Logger, eventTypes ...string) error {
	for _, eventType := range eventTypes {
		messages, err := sub.Subscribe(ctx, topicFor(eventType))
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", eventType, err)
		}
		go func(eventType string, messages <-chan *message.Message) {
			for msg := range messages {
				var event Event
				if err := json.Unmarshal(msg.Payload, &event); err != nil {
					logger.Warn("Dropping malformed event", "type", eventType, "error", err)
					msg.Nack()
					continue
				}
				logger.Info("Domain event", "type", event.Type, "id", event.ID, "data", event.Data)
				msg.Ack()
			}
		}(eventType, messages)
	}
	return nil
}

// PublishSafe publishes and logs failures instead of returning them
func PublishSafe(ctx context.Context, publisher EventPublisher, logger *slog.Logger, event Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Warn("Failed to publish event", "type", event.Type, "error", err)
	}
}
