package events

import (
	"context"
	"time"
)

// EventEnvelope wraps a domain event as it travels over a concrete transport.
// It carries the decoded payload together with the transport-level metadata a
// consumer needs to acknowledge the event.
type EventEnvelope struct {
	// Type identifies the category of this event for routing and handling.
	Type EventType

	// Key is the partition/routing key the event was published with.
	Key string

	// Timestamp records when the event was created by its producer.
	Timestamp time.Time

	// Payload contains the decoded event data. The concrete type depends on Type.
	Payload any

	// Metadata describes where in the underlying stream this event came from.
	Metadata EventMetadata
}

// EventMetadata identifies an event's position within its transport stream.
type EventMetadata struct {
	Partition int32
	Offset    int64
}

// AckFunc acknowledges completion of event processing. Passing a nil error
// marks the event as successfully consumed; passing a non-nil error leaves it
// unacknowledged so the transport redelivers it.
type AckFunc func(err error)

// HandlerFunc processes a single event delivered by an EventBus subscription.
// Implementations must invoke ack exactly once when processing reaches a
// terminal outcome, and must not ack an event whose effects were not persisted.
type HandlerFunc func(ctx context.Context, evt EventEnvelope, ack AckFunc) error
