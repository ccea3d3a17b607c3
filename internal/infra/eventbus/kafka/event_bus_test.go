package kafka

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/cfpulse/cfpulse/internal/domain/events"
	"github.com/cfpulse/cfpulse/internal/domain/notification"
	"github.com/cfpulse/cfpulse/internal/infra/eventbus/serialization"
	"github.com/cfpulse/cfpulse/pkg/common/logger"
)

type noopBusMetrics struct{}

func (noopBusMetrics) IncMessagePublished(context.Context, string) {}
func (noopBusMetrics) IncMessageConsumed(context.Context, string)  {}
func (noopBusMetrics) IncPublishError(context.Context, string)     {}
func (noopBusMetrics) IncConsumeError(context.Context, string)     {}

// fakeGroupSession records offset marks and commits the way a live
// sarama.ConsumerGroupSession would track them.
type fakeGroupSession struct {
	ctx context.Context

	mu      sync.Mutex
	marked  []int64
	commits int
}

func newFakeGroupSession(ctx context.Context) *fakeGroupSession {
	return &fakeGroupSession{ctx: ctx}
}

func (s *fakeGroupSession) Claims() map[string][]int32 { return nil }
func (s *fakeGroupSession) MemberID() string           { return "test-member" }
func (s *fakeGroupSession) GenerationID() int32        { return 1 }
func (s *fakeGroupSession) MarkOffset(topic string, partition int32, offset int64, metadata string) {
}
func (s *fakeGroupSession) ResetOffset(topic string, partition int32, offset int64, metadata string) {
}
func (s *fakeGroupSession) Context() context.Context { return s.ctx }

func (s *fakeGroupSession) MarkMessage(msg *sarama.ConsumerMessage, metadata string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, msg.Offset)
}

func (s *fakeGroupSession) Commit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commits++
}

func (s *fakeGroupSession) markedOffsets() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.marked...)
}

type fakeGroupClaim struct {
	messages chan *sarama.ConsumerMessage
}

func newFakeGroupClaim(msgs ...*sarama.ConsumerMessage) *fakeGroupClaim {
	ch := make(chan *sarama.ConsumerMessage, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	close(ch)
	return &fakeGroupClaim{messages: ch}
}

func (c *fakeGroupClaim) Topic() string                            { return "task-events" }
func (c *fakeGroupClaim) Partition() int32                         { return 0 }
func (c *fakeGroupClaim) InitialOffset() int64                     { return 0 }
func (c *fakeGroupClaim) HighWaterMarkOffset() int64               { return 0 }
func (c *fakeGroupClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func newClaimHandler(t *testing.T, handler events.HandlerFunc) *domainEventHandler {
	t.Helper()
	return &domainEventHandler{
		userHandler: handler,
		logger:      logger.New(os.Stdout, logger.LevelError, "test", nil),
		tracer:      noop.NewTracerProvider().Tracer("test"),
		metrics:     noopBusMetrics{},
	}
}

func taskMessage(t *testing.T, offset int64, taskID int64) *sarama.ConsumerMessage {
	t.Helper()
	evt := notification.NewTaskAssignedEvent(taskID, 7, "Two Sum")
	value, err := serialization.SerializeEventEnvelope(notification.EventTypeTaskAssigned, evt)
	require.NoError(t, err)
	return &sarama.ConsumerMessage{
		Topic:     "task-events",
		Partition: 0,
		Offset:    offset,
		Value:     value,
	}
}

// A failed unit must halt the claim before any later offset is marked.
// Marking past it would commit the consumer group beyond the failed event and
// drop it instead of redelivering it.
func TestConsumeClaim_StopsAtUnacknowledgedEvent(t *testing.T) {
	sess := newFakeGroupSession(context.Background())
	claim := newFakeGroupClaim(
		taskMessage(t, 0, 100),
		taskMessage(t, 1, 101),
	)

	var deliveries int
	handler := newClaimHandler(t, func(ctx context.Context, evt events.EventEnvelope, ack events.AckFunc) error {
		deliveries++
		if evt.Metadata.Offset == 0 {
			ack(errors.New("database unavailable"))
			return nil
		}
		ack(nil)
		return nil
	})

	require.NoError(t, handler.ConsumeClaim(sess, claim))

	// Only the failed unit was delivered; the claim ended before offset 1.
	assert.Equal(t, 1, deliveries)
	assert.Empty(t, sess.markedOffsets(), "no offset may be marked past the failed event")
}

func TestConsumeClaim_MarksAcknowledgedEvents(t *testing.T) {
	sess := newFakeGroupSession(context.Background())
	claim := newFakeGroupClaim(
		taskMessage(t, 0, 100),
		taskMessage(t, 1, 101),
	)

	handler := newClaimHandler(t, func(ctx context.Context, evt events.EventEnvelope, ack events.AckFunc) error {
		ack(nil)
		return nil
	})

	require.NoError(t, handler.ConsumeClaim(sess, claim))

	assert.Equal(t, []int64{0, 1}, sess.markedOffsets())
	assert.GreaterOrEqual(t, sess.commits, 1)
}

func TestConsumeClaim_HandlerErrorHaltsPartition(t *testing.T) {
	sess := newFakeGroupSession(context.Background())
	claim := newFakeGroupClaim(
		taskMessage(t, 0, 100),
		taskMessage(t, 1, 101),
	)

	var deliveries int
	handler := newClaimHandler(t, func(ctx context.Context, evt events.EventEnvelope, ack events.AckFunc) error {
		deliveries++
		return errors.New("handler blew up")
	})

	require.NoError(t, handler.ConsumeClaim(sess, claim))

	assert.Equal(t, 1, deliveries)
	assert.Empty(t, sess.markedOffsets())
}

func TestConsumeClaim_DropsMalformedMessages(t *testing.T) {
	sess := newFakeGroupSession(context.Background())
	garbage := &sarama.ConsumerMessage{
		Topic:     "task-events",
		Partition: 0,
		Offset:    0,
		Value:     []byte("not an envelope"),
	}
	claim := newFakeGroupClaim(garbage, taskMessage(t, 1, 101))

	var deliveries int
	handler := newClaimHandler(t, func(ctx context.Context, evt events.EventEnvelope, ack events.AckFunc) error {
		deliveries++
		ack(nil)
		return nil
	})

	require.NoError(t, handler.ConsumeClaim(sess, claim))

	// The malformed message is marked and skipped; the valid one still flows.
	assert.Equal(t, 1, deliveries)
	assert.Equal(t, []int64{0, 1}, sess.markedOffsets())
}
