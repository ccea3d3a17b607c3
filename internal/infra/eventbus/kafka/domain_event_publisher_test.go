package kafka

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cfpulse/cfpulse/internal/domain/events"
)

// MockEventBus is a manual mock implementation of events.EventBus.
type MockEventBus struct {
	publishFunc func(ctx context.Context, event events.EventEnvelope, opts ...events.PublishOption) error
}

func (m *MockEventBus) Publish(ctx context.Context, event events.EventEnvelope, opts ...events.PublishOption) error {
	return m.publishFunc(ctx, event, opts...)
}

func (m *MockEventBus) Subscribe(ctx context.Context, eventTypes []events.EventType, handler events.HandlerFunc) error {
	return nil
}

func (m *MockEventBus) Close() error { return nil }

func testEvent() events.DomainEvent {
	return events.DomainEvent{
		Type:      "test-event",
		Key:       "test-key-source",
		Timestamp: time.Now(),
		Payload:   "payload",
	}
}

func TestDomainEventPublisher_PublishDomainEvent_Success(t *testing.T) {
	ctx := context.Background()
	event := testEvent()

	mockEventBus := &MockEventBus{
		publishFunc: func(ctx context.Context, evt events.EventEnvelope, opts ...events.PublishOption) error {
			assert.Equal(t, event.Type, evt.Type)
			assert.Equal(t, event.Key, evt.Key)
			assert.Equal(t, event.Timestamp, evt.Timestamp)
			assert.Equal(t, event.Payload, evt.Payload)
			return nil
		},
	}

	publisher := NewDomainEventPublisher(mockEventBus, events.NewDomainEventTranslator())
	err := publisher.PublishDomainEvent(ctx, event)
	assert.NoError(t, err)
}

func TestDomainEventPublisher_PublishDomainEvent_Error(t *testing.T) {
	ctx := context.Background()

	mockEventBus := &MockEventBus{
		publishFunc: func(ctx context.Context, evt events.EventEnvelope, opts ...events.PublishOption) error {
			return errors.New("publish failed")
		},
	}

	publisher := NewDomainEventPublisher(mockEventBus, events.NewDomainEventTranslator())
	err := publisher.PublishDomainEvent(ctx, testEvent())
	assert.Error(t, err)
	assert.Equal(t, "publish failed", err.Error())
}

func TestDomainEventPublisher_PublishDomainEvent_OptionsConversion(t *testing.T) {
	ctx := context.Background()

	var receivedOpts []events.PublishOption
	mockEventBus := &MockEventBus{
		publishFunc: func(ctx context.Context, evt events.EventEnvelope, opts ...events.PublishOption) error {
			receivedOpts = opts
			return nil
		},
	}

	publisher := NewDomainEventPublisher(mockEventBus, events.NewDomainEventTranslator())

	err := publisher.PublishDomainEvent(ctx, testEvent(), events.WithKey("test-key"))
	assert.NoError(t, err)

	assert.Equal(t, 1, len(receivedOpts), "EventBus should receive exactly one option")

	params := &events.PublishParams{}
	if len(receivedOpts) > 0 {
		receivedOpts[0](params)
		assert.Equal(t, "test-key", params.Key, "The key should be set in the params")
	}
}

func TestDomainEventPublisher_PublishDomainEvent_MultipleOptions(t *testing.T) {
	ctx := context.Background()

	var receivedOpts []events.PublishOption
	mockEventBus := &MockEventBus{
		publishFunc: func(ctx context.Context, evt events.EventEnvelope, opts ...events.PublishOption) error {
			receivedOpts = opts
			return nil
		},
	}

	publisher := NewDomainEventPublisher(mockEventBus, events.NewDomainEventTranslator())
	err := publisher.PublishDomainEvent(ctx, testEvent(),
		events.WithKey("test-key"),
		events.WithHeaders(map[string]string{"test-header": "test-value"}),
	)
	assert.NoError(t, err)

	params := &events.PublishParams{}
	for _, opt := range receivedOpts {
		opt(params)
	}
	assert.Equal(t, "test-key", params.Key)
	assert.Equal(t, "test-value", params.Headers["test-header"])
}

func TestDomainEventPublisher_PublishDomainEvent_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	mockEventBus := &MockEventBus{
		publishFunc: func(ctx context.Context, evt events.EventEnvelope, opts ...events.PublishOption) error {
			return ctx.Err()
		},
	}

	publisher := NewDomainEventPublisher(mockEventBus, events.NewDomainEventTranslator())
	err := publisher.PublishDomainEvent(ctx, testEvent())
	assert.Error(t, err)
	assert.Equal(t, context.Canceled, err)
}

func TestDomainEventPublisher_PublishDomainEvent_Concurrency(t *testing.T) {
	ctx := context.Background()

	var publishCount int32
	mockEventBus := &MockEventBus{
		publishFunc: func(ctx context.Context, evt events.EventEnvelope, opts ...events.PublishOption) error {
			atomic.AddInt32(&publishCount, 1)
			return nil
		},
	}

	publisher := NewDomainEventPublisher(mockEventBus, events.NewDomainEventTranslator())

	var wg sync.WaitGroup
	numGoroutines := 10
	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := publisher.PublishDomainEvent(ctx, testEvent())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(numGoroutines), atomic.LoadInt32(&publishCount))
}
