// Package kafka provides a Kafka-based implementation of the event bus for asynchronous messaging.
package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cfpulse/cfpulse/internal/domain/events"
	"github.com/cfpulse/cfpulse/internal/domain/notification"
	"github.com/cfpulse/cfpulse/internal/infra/eventbus/kafka/tracing"
	"github.com/cfpulse/cfpulse/internal/infra/eventbus/serialization"
	"github.com/cfpulse/cfpulse/pkg/common/logger"
)

// EventBusMetrics defines metrics operations needed to monitor Kafka message handling.
// It enables tracking of successful and failed message publishing/consumption.
type EventBusMetrics interface {
	IncMessagePublished(ctx context.Context, topic string)
	IncMessageConsumed(ctx context.Context, topic string)
	IncPublishError(ctx context.Context, topic string)
	IncConsumeError(ctx context.Context, topic string)
}

// EventBusConfig contains settings for connecting to and interacting with Kafka brokers.
// It defines the topics, consumer group, and client identifiers needed for message routing.
type EventBusConfig struct {
	// Brokers is a list of Kafka broker addresses to connect to.
	Brokers []string

	// ContestNotificationTopic carries contest reminder events.
	ContestNotificationTopic string
	// TaskEventTopic carries task assignment events (single, batch, task-of-day).
	TaskEventTopic string

	// GroupID identifies the consumer group for this broker instance.
	GroupID string
	// ClientID uniquely identifies this client to the Kafka cluster.
	ClientID string

	// ServiceType identifies the type of service (e.g., "notifier", "contestwatch")
	ServiceType string
}

var _ events.EventBus = (*EventBus)(nil)

// EventBus implements the EventBus interface using Kafka as the underlying message broker.
// It handles publishing and subscribing to domain events across distributed services.
//
// Publish blocks until every in-sync replica acknowledges the message, so a nil
// error means the event is durable. Consumption commits offsets only through
// the per-message AckFunc, giving at-least-once delivery.
type EventBus struct {
	producer      sarama.SyncProducer
	consumerGroup sarama.ConsumerGroup

	// Maps domain event types to their Kafka topics
	topicMap map[events.EventType]string

	logger  *logger.Logger
	tracer  trace.Tracer
	metrics EventBusMetrics
}

// NewEventBus creates an event bus from already-connected producer and consumer
// group instances.
func NewEventBus(
	producer sarama.SyncProducer,
	consumerGroup sarama.ConsumerGroup,
	cfg *EventBusConfig,
	logger *logger.Logger,
	metrics EventBusMetrics,
	tracer trace.Tracer,
) (*EventBus, error) {
	if metrics == nil {
		return nil, fmt.Errorf("metrics are required for kafka event bus")
	}

	logger = logger.With(
		"component", "kafka_event_bus",
		"client_id", cfg.ClientID,
		"group_id", cfg.GroupID,
		"service_type", cfg.ServiceType,
	)

	topicMap := map[events.EventType]string{
		notification.EventTypeContestReminder:   cfg.ContestNotificationTopic,
		notification.EventTypeTaskAssigned:      cfg.TaskEventTopic,
		notification.EventTypeTaskBatchAssigned: cfg.TaskEventTopic,
		notification.EventTypeTaskOfDayAssigned: cfg.TaskEventTopic,
	}

	bus := &EventBus{
		producer:      producer,
		consumerGroup: consumerGroup,
		topicMap:      topicMap,
		logger:        logger,
		metrics:       metrics,
		tracer:        tracer,
	}

	return bus, nil
}

// Publish sends a domain event to the Kafka topic configured for its type.
// It handles serialization, routing based on event type, and includes
// observability instrumentation for tracing and metrics.
func (b *EventBus) Publish(ctx context.Context, event events.EventEnvelope, opts ...events.PublishOption) error {
	topic, ok := b.topicMap[event.Type]
	if !ok {
		return fmt.Errorf("unknown event type '%s', no topic mapped", event.Type)
	}

	ctx, span := tracing.StartProducerSpan(ctx, topic, b.tracer)
	defer span.End()

	var pParams events.PublishParams
	for _, opt := range opts {
		opt(&pParams)
	}

	if pParams.Key != "" {
		event.Key = pParams.Key
		span.SetAttributes(attribute.String("event.key", event.Key))
	}

	msgBytes, err := serialization.SerializeEventEnvelope(event.Type, event.Payload)
	if err != nil {
		span.RecordError(err)
		b.metrics.IncPublishError(ctx, topic)
		return fmt.Errorf("failed to serialize payload for event %s: %w", event.Type, err)
	}

	return b.publishToTopic(ctx, topic, event.Key, msgBytes)
}

// publishToTopic handles the actual publishing of a message to a single Kafka topic
func (b *EventBus) publishToTopic(ctx context.Context, topic, key string, msgBytes []byte) error {
	kafkaMsg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(msgBytes),
	}

	tracing.InjectTraceContext(ctx, kafkaMsg)

	partition, offset, err := b.producer.SendMessage(kafkaMsg)
	if err != nil {
		b.metrics.IncPublishError(ctx, topic)
		return fmt.Errorf("failed to send message to kafka topic %s: %w", topic, err)
	}

	b.metrics.IncMessagePublished(ctx, topic)

	b.logger.Debug(ctx, "Published message to Kafka",
		"topic", topic,
		"partition", partition,
		"offset", offset,
		"key", key,
	)

	return nil
}

// Subscribe registers a handler function to process domain events from specified event types.
// It manages consumer group membership and message processing in a separate goroutine.
func (b *EventBus) Subscribe(
	ctx context.Context,
	eventTypes []events.EventType,
	handler events.HandlerFunc,
) error {
	ctx, span := b.tracer.Start(ctx, "kafka_event_bus.subscribe",
		trace.WithAttributes(
			attribute.String("component", "kafka_event_bus"),
		))
	defer span.End()

	// Collect unique topics for the requested event types.
	var topics []string
	topicSet := make(map[string]struct{})
	for _, et := range eventTypes {
		topic, ok := b.topicMap[et]
		if !ok {
			span.RecordError(fmt.Errorf("subscribe: unknown event type %s", et))
			span.SetStatus(codes.Error, "unknown event type")
			return fmt.Errorf("subscribe: unknown event type %s", et)
		}
		if _, seen := topicSet[topic]; seen {
			continue
		}
		topicSet[topic] = struct{}{}
		topics = append(topics, topic)
	}

	span.AddEvent("topics_collected", trace.WithAttributes(attribute.StringSlice("topics", topics)))

	go b.consumeLoop(ctx, topics, handler)
	b.logger.Info(ctx, "Subscribed to events", "event_types", eventTypes)

	return nil
}

// consumeLoop maintains a continuous consumer group session for processing messages.
func (b *EventBus) consumeLoop(
	ctx context.Context,
	topics []string,
	handler events.HandlerFunc,
) {
	cgHandler := &domainEventHandler{
		eventBus:    b,
		userHandler: handler,
		logger:      b.logger,
		tracer:      b.tracer,
		metrics:     b.metrics,
	}

	for {
		if err := b.consumerGroup.Consume(ctx, topics, cgHandler); err != nil {
			b.logger.Error(ctx, "Error from consumer group", "error", err)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// domainEventHandler implements sarama.ConsumerGroupHandler to process Kafka messages
// and convert them into domain events for the application.
type domainEventHandler struct {
	eventBus    *EventBus
	userHandler events.HandlerFunc

	logger  *logger.Logger
	tracer  trace.Tracer
	metrics EventBusMetrics
}

func (h *domainEventHandler) Setup(sess sarama.ConsumerGroupSession) error {
	h.logger.Info(context.Background(),
		"Consumer group session setup",
		"generation_id", sess.GenerationID(),
		"member_id", sess.MemberID(),
	)
	return nil
}

func (h *domainEventHandler) Cleanup(sess sarama.ConsumerGroupSession) error {
	h.logger.Info(context.Background(),
		"Consumer group session cleanup",
		"generation_id", sess.GenerationID(),
		"member_id", sess.MemberID(),
	)
	return nil
}

// offsetCommitInterval bounds how often marked offsets are committed to the
// group. Commits happen on marked offsets only, never past an unacked unit.
const offsetCommitInterval = 1 * time.Second

// ConsumeClaim processes messages from an assigned partition, deserializing them into
// domain events and invoking the user-provided handler. Offsets are marked only
// through the per-message ack. Because a mark is a high-water mark, the claim
// must stop at the first unacknowledged unit: marking any later offset would
// commit the group past the failed event and lose it instead of redelivering it.
func (h *domainEventHandler) ConsumeClaim(
	sess sarama.ConsumerGroupSession,
	claim sarama.ConsumerGroupClaim,
) error {
	h.logPartitionStart(sess.Context(), claim.Partition(), sess.MemberID())
	consumeLogger := h.logger.With("operation", "consume_claim", "partition", claim.Partition())

	// Track the latest processed offset for periodic commits
	lastCommit := time.Now()

	for msg := range claim.Messages() {
		if !h.processMessage(sess, msg, consumeLogger, &lastCommit) {
			// The unit was not acknowledged. End the claim here so the group
			// re-fetches from the last committed offset and redelivers the
			// failed event; anything already marked is committed first.
			sess.Commit()
			return nil
		}
	}

	// Final commit before exiting
	sess.Commit()

	return nil
}

// processMessage runs one delivery unit and reports whether the partition may
// advance past it: true when the unit was acknowledged successfully or dropped
// as malformed, false when it must be redelivered.
func (h *domainEventHandler) processMessage(
	sess sarama.ConsumerGroupSession,
	msg *sarama.ConsumerMessage,
	consumeLogger *logger.Logger,
	lastCommit *time.Time,
) bool {
	msgCtx := tracing.ExtractTraceContext(sess.Context(), msg)
	msgCtx, span := tracing.StartConsumerSpan(msgCtx, msg, h.tracer)
	defer span.End()

	evtType, domainBytes, err := serialization.UnmarshalUniversalEnvelope(msg.Value)
	if err != nil {
		// Malformed framing can never succeed on redelivery; drop it.
		sess.MarkMessage(msg, "")
		span.RecordError(err)
		return true
	}

	payloadObj, err := serialization.DeserializePayload(evtType, domainBytes)
	if err != nil {
		sess.MarkMessage(msg, "")
		span.RecordError(err)
		return true
	}

	dEvent := events.EventEnvelope{
		Type:      evtType,
		Key:       string(msg.Key),
		Timestamp: msg.Timestamp,
		Payload:   payloadObj,
		Metadata: events.EventMetadata{
			Partition: msg.Partition,
			Offset:    msg.Offset,
		},
	}

	consumeLogger.Debug(msgCtx, "Received Kafka message",
		"topic", msg.Topic,
		"partition", msg.Partition,
		"offset", msg.Offset,
		"event_type", evtType,
		"key", dEvent.Key,
	)

	var acked, ackOK bool
	ack := func(err error) {
		acked = true
		ackCtx, ackSpan := h.tracer.Start(msgCtx, "kafka_consumer.acknowledge",
			trace.WithLinks(trace.LinkFromContext(msgCtx)),
		)
		defer ackSpan.End()

		if err != nil {
			consumeLogger.Error(ackCtx, "Message left unacknowledged, will be redelivered", "error", err)
			h.metrics.IncConsumeError(ackCtx, msg.Topic)
			ackSpan.RecordError(err)
			ackSpan.SetStatus(codes.Error, "failed to acknowledge message")
			return
		}
		ackOK = true
		h.metrics.IncMessageConsumed(ackCtx, msg.Topic)

		sess.MarkMessage(msg, "")

		// Commit offsets periodically rather than per message.
		if time.Since(*lastCommit) > offsetCommitInterval {
			sess.Commit()
			*lastCommit = time.Now()
			consumeLogger.Debug(ackCtx, "Committed offsets",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
			)
		}
	}

	if err := h.userHandler(msgCtx, dEvent, ack); err != nil {
		// A handler error without an ack behaves like a consumer crash:
		// the offset stays put and the event comes back.
		consumeLogger.Error(msgCtx, "Failed to handle message", "error", err)
		span.RecordError(err)
		return false
	}
	if !acked || !ackOK {
		return false
	}

	consumeLogger.Debug(msgCtx, "Successfully processed message", "topic", msg.Topic)
	return true
}

func (h *domainEventHandler) logPartitionStart(ctx context.Context, partition int32, memberID string) {
	h.logger.Info(ctx, "Starting to consume from partition",
		"partition", partition,
		"member_id", memberID,
	)
}

// Close gracefully shuts down the event bus by closing both producer and consumer connections.
func (b *EventBus) Close() error {
	logger := b.logger.With("operation", "close")
	ctx, span := b.tracer.Start(context.Background(), "kafka_event_bus.close")
	defer span.End()

	if err := b.producer.Close(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to close producer")
		logger.Error(ctx, "Failed to close producer", "error", err)
		return err
	}
	if err := b.consumerGroup.Close(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to close consumer group")
		logger.Error(ctx, "Failed to close consumer group", "error", err)
		return err
	}

	span.AddEvent("closed_event_bus")
	span.SetStatus(codes.Ok, "closed event bus")
	logger.Info(ctx, "Closed event bus")

	return nil
}
