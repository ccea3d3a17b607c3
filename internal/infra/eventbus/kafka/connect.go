package kafka

import (
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/cenkalti/backoff"
	"go.opentelemetry.io/otel/trace"

	"github.com/cfpulse/cfpulse/internal/domain/events"
	"github.com/cfpulse/cfpulse/pkg/common/logger"
)

// ConnectWithRetry establishes the Kafka client and event bus, retrying the
// initial broker connection with exponential backoff for up to 5 minutes
// starting at 5 second intervals. This helps handle temporary network issues
// or Kafka cluster unavailability during startup. The returned client backs
// the bus and must be closed by the caller after the bus itself.
func ConnectWithRetry(
	cfg *EventBusConfig,
	logger *logger.Logger,
	metrics EventBusMetrics,
	tracer trace.Tracer,
) (events.EventBus, sarama.Client, error) {
	var client sarama.Client

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.MaxElapsedTime = 5 * time.Minute
	expBackoff.InitialInterval = 5 * time.Second

	operation := func() error {
		var err error
		client, err = NewClient(&ClientConfig{
			Brokers:     cfg.Brokers,
			GroupID:     cfg.GroupID,
			ClientID:    cfg.ClientID,
			ServiceType: cfg.ServiceType,
		})
		return err
	}

	if err := backoff.Retry(operation, expBackoff); err != nil {
		return nil, nil, fmt.Errorf("failed to connect to Kafka after retries: %w", err)
	}

	bus, err := ConnectEventBus(cfg, client, logger, metrics, tracer)
	if err != nil {
		client.Close()
		return nil, nil, err
	}

	return bus, client, nil
}
