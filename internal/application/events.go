package application

import (
	"context"
	"log/slog"
	"time"
)

// EventType names a state change other components may react to.
type EventType string

const (
	EventSessionBooked      EventType = "session.booked"
	EventSessionRescheduled EventType = "session.rescheduled"
	EventSessionCancelled   EventType = "session.cancelled"
	EventSessionHeld        EventType = "session.held"
	EventSessionApproved    EventType = "session.approved"
	EventBlackoutCreated    EventType = "blackout.created"
	EventBlackoutUpdated    EventType = "blackout.updated"
	EventBlackoutDeleted    EventType = "blackout.deleted"
)

// DomainEvent is emitted after a state change has committed.
type DomainEvent struct {
	Type       EventType `json:"type"`
	SessionID  string    `json:"session_id,omitempty"`
	BlackoutID string    `json:"blackout_id,omitempty"`
	OwnerID    string    `json:"owner_id,omitempty"`
	ActorID    string    `json:"actor_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher delivers domain events to subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
}

// publishAll sends events after a commit. Failures are logged and never undo
// the write.
func publishAll(ctx context.Context, publisher EventPublisher, logger *slog.Logger, events ...DomainEvent) {
	if publisher == nil {
		return
	}
	for _, event := range events {
		if err := publisher.Publish(ctx, event); err != nil {
			logger.WarnContext(ctx, "failed to publish domain event",
				"event_type", string(event.Type),
				"error", err,
			)
		}
	}
}
