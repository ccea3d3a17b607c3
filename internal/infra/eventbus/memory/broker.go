// Package memory provides an in-memory implementation of the event bus.
// It offers a lightweight, non-persistent broker suitable for testing and
// development environments where durability is not required, while preserving
// the at-least-once contract of the real transport: an event that is not
// acknowledged with a nil error is delivered again.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cfpulse/cfpulse/internal/domain/events"
)

var _ events.EventBus = (*EventBus)(nil)

// EventBus is an in-memory events.EventBus. Publish delivers synchronously to
// every subscribed handler and redelivers until the handler acknowledges
// success or the redelivery budget is exhausted, mimicking how an unacked
// message returns after a consumer restart.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[events.EventType][]events.HandlerFunc
	closed   bool

	// maxDeliveries bounds redelivery so a permanently failing handler cannot
	// spin a test forever.
	maxDeliveries int

	offsetMu   sync.Mutex
	nextOffset int64
}

// NewEventBus creates an in-memory event bus. Each event is delivered at most
// maxDeliveries times; zero or negative means a single delivery with no retry.
func NewEventBus(maxDeliveries int) *EventBus {
	if maxDeliveries < 1 {
		maxDeliveries = 1
	}
	return &EventBus{
		handlers:      make(map[events.EventType][]events.HandlerFunc),
		maxDeliveries: maxDeliveries,
	}
}

// Subscribe registers a handler for the given event types.
func (b *EventBus) Subscribe(ctx context.Context, eventTypes []events.EventType, handler events.HandlerFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errors.New("event bus is closed")
	}
	for _, et := range eventTypes {
		b.handlers[et] = append(b.handlers[et], handler)
	}
	return nil
}

// Publish delivers the event to every subscribed handler. A handler that
// acknowledges with an error, or never acknowledges, sees the event again up
// to the redelivery budget. Publish returns an error if any handler exhausted
// its budget without a successful acknowledgment.
func (b *EventBus) Publish(ctx context.Context, event events.EventEnvelope, opts ...events.PublishOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var pParams events.PublishParams
	for _, opt := range opts {
		opt(&pParams)
	}
	if pParams.Key != "" {
		event.Key = pParams.Key
	}

	b.offsetMu.Lock()
	event.Metadata = events.EventMetadata{Partition: 0, Offset: b.nextOffset}
	b.nextOffset++
	b.offsetMu.Unlock()

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return errors.New("event bus is closed")
	}
	// Copy handlers to avoid holding the lock while executing them.
	handlersCopy := make([]events.HandlerFunc, len(b.handlers[event.Type]))
	copy(handlersCopy, b.handlers[event.Type])
	b.mu.RUnlock()

	for _, handler := range handlersCopy {
		if err := b.deliver(ctx, event, handler); err != nil {
			return err
		}
	}
	return nil
}

// deliver runs one handler's at-least-once loop for a single event.
func (b *EventBus) deliver(ctx context.Context, event events.EventEnvelope, handler events.HandlerFunc) error {
	for attempt := 1; attempt <= b.maxDeliveries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		var (
			acked  bool
			ackErr error
		)
		ack := func(err error) {
			acked = true
			ackErr = err
		}

		if err := handler(ctx, event, ack); err != nil {
			// Handler error without an ack behaves like a consumer crash:
			// the event comes back.
			continue
		}
		if acked && ackErr == nil {
			return nil
		}
	}
	return fmt.Errorf("event %s not acknowledged after %d deliveries", event.Type, b.maxDeliveries)
}

// Close shuts down the bus; further publishes and subscriptions fail.
func (b *EventBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
