package notifier

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/cfpulse/cfpulse/internal/domain/events"
)

// notifierMetrics records consumer counters through OpenTelemetry.
type notifierMetrics struct {
	eventsProcessed metric.Int64Counter
	duplicateEvents metric.Int64Counter
	persistFailures metric.Int64Counter
	malformedEvents metric.Int64Counter
}

var _ Metrics = (*notifierMetrics)(nil)

// NewMetrics creates the notifier's metric set on the given meter provider.
func NewMetrics(mp metric.MeterProvider) *notifierMetrics {
	meter := mp.Meter("notifier")

	counter := func(name, description string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(description))
		if err != nil {
			panic(err)
		}
		return c
	}

	return &notifierMetrics{
		eventsProcessed: counter("events_processed_total", "Total number of events persisted as notifications"),
		duplicateEvents: counter("duplicate_events_total", "Total number of redelivered events discarded as duplicates"),
		persistFailures: counter("persist_failures_total", "Total number of events whose persistence failed and rolled back"),
		malformedEvents: counter("malformed_events_total", "Total number of events discarded as malformed"),
	}
}

func (m *notifierMetrics) IncEventProcessed(ctx context.Context, eventType events.EventType) {
	m.eventsProcessed.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", string(eventType))))
}

func (m *notifierMetrics) IncDuplicateEvent(ctx context.Context, eventType events.EventType) {
	m.duplicateEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", string(eventType))))
}

func (m *notifierMetrics) IncPersistFailure(ctx context.Context, eventType events.EventType) {
	m.persistFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", string(eventType))))
}

func (m *notifierMetrics) IncMalformedEvent(ctx context.Context, eventType events.EventType) {
	m.malformedEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", string(eventType))))
}
