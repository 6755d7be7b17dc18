// Package events fans committed booking changes out to in-process subscribers.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/example/meeting-calendar/internal/application"
)

// Topic carries every calendar event.
const Topic = "calendar.events"

const metadataEventType = "event_type"

// Publisher implements application.EventPublisher on a watermill GoChannel.
type Publisher struct {
	pubsub *gochannel.GoChannel
	logger *slog.Logger
}

var _ application.EventPublisher = (*Publisher)(nil)

// NewPublisher creates an in-memory pub/sub. Messages published while no
// subscriber is listening are dropped.
func NewPublisher(logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 64},
			watermill.NewSlogLogger(logger),
		),
		logger: logger,
	}
}

// Publish serializes event and sends it on Topic.
func (p *Publisher) Publish(ctx context.Context, event application.DomainEvent) error {
	if p == nil || p.pubsub == nil {
		return errors.New("events: publisher not configured")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Type, err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(metadataEventType, string(event.Type))
	msg.SetContext(ctx)
	return p.pubsub.Publish(Topic, msg)
}

// Handler reacts to one delivered event. Errors are logged; delivery is not retried.
type Handler func(ctx context.Context, event application.DomainEvent) error

// Subscribe delivers events to handler until ctx is cancelled. It returns once
// the subscription is registered; delivery runs on its own goroutine.
func (p *Publisher) Subscribe(ctx context.Context, handler Handler) error {
	if p == nil || p.pubsub == nil {
		return errors.New("events: publisher not configured")
	}
	if handler == nil {
		return errors.New("events: handler is nil")
	}
	messages, err := p.pubsub.Subscribe(ctx, Topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", Topic, err)
	}
	go p.consume(ctx, messages, handler)
	return nil
}

func (p *Publisher) consume(ctx context.Context, messages <-chan *message.Message, handler Handler) {
	for msg := range messages {
		var event application.DomainEvent
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			p.logger.Warn("dropping undecodable event",
				"message_id", msg.UUID,
				"event_type", msg.Metadata.Get(metadataEventType),
				"error", err,
			)
			msg.Ack()
			continue
		}
		if err := handler(ctx, event); err != nil {
			p.logger.Warn("event handler failed",
				"message_id", msg.UUID,
				"event_type", string(event.Type),
				"error", err,
			)
		}
		msg.Ack()
	}
}

// Close stops delivery to every subscriber.
func (p *Publisher) Close() error {
	if p == nil || p.pubsub == nil {
		return nil
	}
	return p.pubsub.Close()
}

// AuditLog returns a handler that records each event at Info.
func AuditLog(logger *slog.Logger) Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, event application.DomainEvent) error {
		attrs := []any{
			"event_type", string(event.Type),
			"actor_id", event.ActorID,
			"occurred_at", event.OccurredAt,
		}
		if event.SessionID != "" {
			attrs = append(attrs, "session_id", event.SessionID, "owner_id", event.OwnerID)
		}
		if event.BlackoutID != "" {
			attrs = append(attrs, "blackout_id", event.BlackoutID)
		}
		if !event.Start.IsZero() {
			attrs = append(attrs, "start", event.Start, "end", event.End)
		}
		logger.InfoContext(ctx, "calendar event", attrs...)
		return nil
	}
}
