package notifier

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/cfpulse/cfpulse/internal/domain/events"
	"github.com/cfpulse/cfpulse/internal/domain/notification"
	busmemory "github.com/cfpulse/cfpulse/internal/infra/eventbus/memory"
	storememory "github.com/cfpulse/cfpulse/internal/infra/storage/notifications/memory"
	"github.com/cfpulse/cfpulse/pkg/common/logger"
)

type fixture struct {
	bus   *busmemory.EventBus
	store *storememory.Store
	svc   *Service
}

func newFixture(t *testing.T, maxDeliveries int) *fixture {
	t.Helper()

	log := logger.New(os.Stdout, logger.LevelError, "test", nil)
	bus := busmemory.NewEventBus(maxDeliveries)
	store := storememory.NewStore()
	svc := NewService(
		"test-notifier",
		bus,
		store,
		log,
		NewMetrics(metricnoop.NewMeterProvider()),
		noop.NewTracerProvider().Tracer("test"),
	)
	require.NoError(t, bus.Subscribe(context.Background(), svc.SupportedEvents(), svc.HandleEvent))
	return &fixture{bus: bus, store: store, svc: svc}
}

type payloadEvent interface {
	EventType() events.EventType
	OccurredAt() time.Time
}

func envelope(payload payloadEvent) events.EventEnvelope {
	return events.EventEnvelope{
		Type:      payload.EventType(),
		Timestamp: payload.OccurredAt(),
		Payload:   payload,
	}
}

func TestHandleEvent_PersistsNotifications(t *testing.T) {
	f := newFixture(t, 1)

	evt := notification.NewTaskAssignedEvent(42, 7, "Two Sum")
	require.NoError(t, f.bus.Publish(context.Background(), envelope(evt)))

	assert.Equal(t, 1, f.store.ClaimCount())
	assert.Equal(t, 1, f.store.NotificationCount())

	rows, err := f.store.ListForUser(context.Background(), 7, 10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Contains(t, rows[0].Content, "Two Sum")
}

func TestHandleEvent_DuplicateDeliveryHasNoEffect(t *testing.T) {
	f := newFixture(t, 1)

	evt := notification.NewContestReminderEvent(1951, "Codeforces Round 912", time.Now().Add(time.Hour), 7200)

	require.NoError(t, f.bus.Publish(context.Background(), envelope(evt)))
	before := f.store.NotificationCount()

	// Redelivery of the same event. The publish succeeds because the
	// duplicate is acknowledged, not retried.
	require.NoError(t, f.bus.Publish(context.Background(), envelope(evt)))

	assert.Equal(t, 1, f.store.ClaimCount())
	assert.Equal(t, before, f.store.NotificationCount())
}

func TestHandleEvent_PersistFailureTriggersRedelivery(t *testing.T) {
	f := newFixture(t, 3)

	// The first save fails after the claim would have been taken; the
	// rollback leaves no claim, so the redelivered event persists cleanly.
	f.store.FailNext(errors.New("connection reset by peer"))

	evt := notification.NewTaskAssignedEvent(99, 3, "Dijkstra Practice")
	require.NoError(t, f.bus.Publish(context.Background(), envelope(evt)))

	assert.Equal(t, 1, f.store.ClaimCount())
	assert.Equal(t, 1, f.store.NotificationCount())
}

func TestHandleEvent_PersistFailureExhaustsBudget(t *testing.T) {
	f := newFixture(t, 1)
	f.store.FailNext(errors.New("database unavailable"))

	evt := notification.NewTaskAssignedEvent(5, 5, "Segment Trees")
	err := f.bus.Publish(context.Background(), envelope(evt))
	require.Error(t, err)

	// Nothing was persisted and nothing was claimed: the event is safe to
	// redeliver later.
	assert.Equal(t, 0, f.store.ClaimCount())
	assert.Equal(t, 0, f.store.NotificationCount())
}

func TestHandleEvent_MalformedPayloadDiscarded(t *testing.T) {
	f := newFixture(t, 1)

	// A payload type the consumer does not understand can never succeed, so
	// it is acknowledged and dropped rather than redelivered forever.
	evt := events.EventEnvelope{
		Type:      notification.EventTypeTaskAssigned,
		Timestamp: time.Now(),
		Payload:   struct{ Junk string }{Junk: "junk"},
	}
	require.NoError(t, f.bus.Publish(context.Background(), evt))

	assert.Equal(t, 0, f.store.ClaimCount())
	assert.Equal(t, 0, f.store.NotificationCount())
}

func TestHandleEvent_BatchExpandsPerUser(t *testing.T) {
	f := newFixture(t, 1)

	evt := notification.NewTaskBatchAssignedEvent("batch-2024-w3", []notification.AssignedTask{
		{TaskID: 1, UserID: 10, Title: "A"},
		{TaskID: 2, UserID: 10, Title: "B"},
		{TaskID: 3, UserID: 20, Title: "C"},
	})
	require.NoError(t, f.bus.Publish(context.Background(), envelope(evt)))

	// One claim for the batch; per-task rows plus a summary for the
	// multi-task user.
	assert.Equal(t, 1, f.store.ClaimCount())
	assert.Equal(t, 4, f.store.NotificationCount())
}
