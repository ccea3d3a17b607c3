// Package notifier consumes notification events from the event bus and turns
// them into persisted notification rows. Delivery from the bus is
// at-least-once; the service achieves an exactly-once effect by claiming each
// event's idempotency key in the same transaction as the writes and only
// acknowledging events whose effects are durably persisted.
package notifier

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cfpulse/cfpulse/internal/domain/events"
	"github.com/cfpulse/cfpulse/internal/domain/notification"
	"github.com/cfpulse/cfpulse/pkg/common/logger"
)

// Metrics defines the counters the notifier records while consuming.
type Metrics interface {
	IncEventProcessed(ctx context.Context, eventType events.EventType)
	IncDuplicateEvent(ctx context.Context, eventType events.EventType)
	IncPersistFailure(ctx context.Context, eventType events.EventType)
	IncMalformedEvent(ctx context.Context, eventType events.EventType)
}

var _ events.EventHandler = (*Service)(nil)

// Service subscribes to notification events and persists their effects.
// Multiple instances may run concurrently; the store's unique idempotency
// claim is what keeps them from double-writing.
type Service struct {
	id string

	bus   events.EventBus
	store notification.Store

	logger  *logger.Logger
	metrics Metrics
	tracer  trace.Tracer
}

// NewService creates a notifier service identified by id (typically the hostname).
func NewService(
	id string,
	bus events.EventBus,
	store notification.Store,
	logger *logger.Logger,
	metrics Metrics,
	tracer trace.Tracer,
) *Service {
	return &Service{
		id:      id,
		bus:     bus,
		store:   store,
		logger:  logger.With("component", "notifier", "notifier_id", id),
		metrics: metrics,
		tracer:  tracer,
	}
}

// Run subscribes to all notification event types and blocks until the context
// is cancelled. In-flight events finish their claim-and-write unit before the
// consumer stops; an event whose unit did not complete is never acknowledged.
func (s *Service) Run(ctx context.Context) error {
	if err := s.bus.Subscribe(ctx, s.SupportedEvents(), s.HandleEvent); err != nil {
		return fmt.Errorf("notifier subscribe: %w", err)
	}
	s.logger.Info(ctx, "Notifier started")

	<-ctx.Done()
	s.logger.Info(ctx, "Notifier stopping")
	return ctx.Err()
}

// SupportedEvents returns the event types the notifier consumes.
func (s *Service) SupportedEvents() []events.EventType {
	return notification.AllEventTypes()
}

// HandleEvent processes one delivery. Terminal outcomes and their acks:
//
//   - persisted: ack success, the effect is durable
//   - duplicate: ack success, an earlier delivery already persisted the effect
//   - malformed: ack success, redelivery can never fix the payload
//   - persist failure: ack failure, the claim rolled back and the event
//     will be redelivered
func (s *Service) HandleEvent(ctx context.Context, evt events.EventEnvelope, ack events.AckFunc) error {
	ctx, span := s.tracer.Start(ctx, "notifier.handle_event",
		trace.WithAttributes(
			attribute.String("event_type", string(evt.Type)),
			attribute.Int64("offset", evt.Metadata.Offset),
		))
	defer span.End()

	eventID, notifications, err := expand(evt.Payload)
	if err != nil {
		s.logger.Warn(ctx, "Discarding malformed event", "event_type", evt.Type, "error", err)
		s.metrics.IncMalformedEvent(ctx, evt.Type)
		span.RecordError(err)
		ack(nil)
		return nil
	}
	span.SetAttributes(attribute.String("event_id", eventID))

	err = s.store.SaveNotifications(ctx, eventID, evt.Type, notifications)
	switch {
	case err == nil:
		s.metrics.IncEventProcessed(ctx, evt.Type)
		s.logger.Debug(ctx, "Event persisted",
			"event_id", eventID,
			"event_type", evt.Type,
			"notifications", len(notifications),
		)
		ack(nil)
		return nil

	case errors.Is(err, notification.ErrDuplicateEvent):
		// Redelivery of a fully processed event. Acknowledge so the bus
		// stops resending; nothing was written.
		s.metrics.IncDuplicateEvent(ctx, evt.Type)
		s.logger.Debug(ctx, "Duplicate event discarded", "event_id", eventID, "event_type", evt.Type)
		ack(nil)
		return nil

	default:
		s.metrics.IncPersistFailure(ctx, evt.Type)
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		s.logger.Error(ctx, "Failed to persist event, leaving unacked for redelivery",
			"event_id", eventID,
			"event_type", evt.Type,
			"error", err,
		)
		ack(err)
		return nil
	}
}

// expand derives the event's idempotency key and builds its notification rows.
func expand(payload any) (string, []*notification.Notification, error) {
	eventID, err := notification.EventID(payload)
	if err != nil {
		return "", nil, err
	}

	var rows []*notification.Notification
	switch evt := payload.(type) {
	case notification.ContestReminderEvent:
		rows = notification.FromContestReminder(evt)
	case notification.TaskAssignedEvent:
		rows = notification.FromTaskAssigned(evt)
	case notification.TaskBatchAssignedEvent:
		rows = notification.FromTaskBatchAssigned(evt)
	case notification.TaskOfDayAssignedEvent:
		rows = notification.FromTaskOfDayAssigned(evt)
	default:
		return "", nil, fmt.Errorf("unsupported payload type %T", payload)
	}
	return eventID, rows, nil
}
