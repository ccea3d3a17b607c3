package kafka

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// busMetrics records publish/consume counters through OpenTelemetry.
type busMetrics struct {
	messagesPublished metric.Int64Counter
	messagesConsumed  metric.Int64Counter
	publishErrors     metric.Int64Counter
	consumeErrors     metric.Int64Counter
}

var _ EventBusMetrics = (*busMetrics)(nil)

// NewEventBusMetrics creates the bus metric set on the given meter provider.
func NewEventBusMetrics(mp metric.MeterProvider) *busMetrics {
	meter := mp.Meter("event_bus")

	counter := func(name, description string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(description))
		if err != nil {
			panic(err)
		}
		return c
	}

	return &busMetrics{
		messagesPublished: counter("messages_published_total", "Total number of messages published to the event bus"),
		messagesConsumed:  counter("messages_consumed_total", "Total number of messages consumed from the event bus"),
		publishErrors:     counter("publish_errors_total", "Total number of errors publishing messages"),
		consumeErrors:     counter("consume_errors_total", "Total number of errors consuming messages"),
	}
}

func (m *busMetrics) IncMessagePublished(ctx context.Context, topic string) {
	m.messagesPublished.Add(ctx, 1, metric.WithAttributes(attribute.String("topic", topic)))
}

func (m *busMetrics) IncMessageConsumed(ctx context.Context, topic string) {
	m.messagesConsumed.Add(ctx, 1, metric.WithAttributes(attribute.String("topic", topic)))
}

func (m *busMetrics) IncPublishError(ctx context.Context, topic string) {
	m.publishErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("topic", topic)))
}

func (m *busMetrics) IncConsumeError(ctx context.Context, topic string) {
	m.consumeErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("topic", topic)))
}
