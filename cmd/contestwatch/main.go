package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/cfpulse/cfpulse/internal/app/contestwatch"
	"github.com/cfpulse/cfpulse/internal/domain/events"
	"github.com/cfpulse/cfpulse/internal/infra/codeforces"
	"github.com/cfpulse/cfpulse/internal/infra/eventbus/kafka"
	"github.com/cfpulse/cfpulse/pkg/common"
	"github.com/cfpulse/cfpulse/pkg/common/logger"
	"github.com/cfpulse/cfpulse/pkg/common/otel"
	"github.com/cfpulse/cfpulse/pkg/config"
)

const serviceType = "contestwatch"

func main() {
	_, _ = maxprocs.Set()

	hostname, err := os.Hostname()
	if err != nil {
		log.Fatalf("failed to get hostname: %v", err)
	}

	logEvents := logger.Events{
		Error: func(ctx context.Context, r logger.Record) {
			errorAttrs := map[string]any{
				"error_message": r.Message,
				"error_time":    r.Time.UTC().Format(time.RFC3339),
				"trace_id":      otel.GetTraceID(ctx),
			}
			for k, v := range r.Attributes {
				errorAttrs[k] = v
			}

			errorAttrsJSON, err := json.Marshal(errorAttrs)
			if err != nil {
				fmt.Fprintf(os.Stderr, "failed to marshal error attributes: %v\n", err)
				return
			}
			fmt.Fprintf(os.Stderr, "Error event: %s, details: %s\n", r.Message, errorAttrsJSON)
		},
	}

	traceIDFn := func(ctx context.Context) string {
		return otel.GetTraceID(ctx)
	}

	svcName := fmt.Sprintf("CONTESTWATCH-%s", hostname)
	metadata := map[string]string{
		"service":  svcName,
		"hostname": hostname,
		"pod":      os.Getenv("POD_NAME"),
		"app":      serviceType,
	}

	logg := logger.NewWithMetadata(os.Stdout, logger.LevelInfo, svcName, traceIDFn, logEvents, metadata)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	prob := 1.0
	if raw := os.Getenv("OTEL_SAMPLING_RATIO"); raw != "" {
		prob, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			logg.Error(ctx, "failed to parse OTEL_SAMPLING_RATIO", "error", err)
			os.Exit(1)
		}
	}
	tp, telemetryTeardown, err := otel.InitTelemetry(logg, otel.Config{
		ServiceName:      svcName,
		ExporterEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ExcludedRoutes: map[string]struct{}{
			"/v1/health":    {},
			"/v1/readiness": {},
		},
		Probability:      prob,
		InsecureExporter: true,
	})
	if err != nil {
		logg.Error(ctx, "failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer telemetryTeardown(ctx)

	tracer := tp.Tracer(svcName)

	ready := &atomic.Bool{}
	healthServer := common.NewHealthServer(ready)
	defer func() {
		if err := healthServer.Server().Shutdown(ctx); err != nil {
			logg.Error(ctx, "Error shutting down health server", "error", err)
		}
	}()

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "redis:6379"
	}
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()

	metrics := kafka.NewEventBusMetrics(otel.GetMeterProvider())

	groupID := fmt.Sprintf("contestwatch-%s", hostname)
	busCfg := &kafka.EventBusConfig{
		Brokers:                  strings.Split(os.Getenv("KAFKA_BROKERS"), ","),
		ContestNotificationTopic: os.Getenv("KAFKA_CONTEST_NOTIFICATION_TOPIC"),
		TaskEventTopic:           os.Getenv("KAFKA_TASK_EVENT_TOPIC"),
		GroupID:                  groupID,
		ClientID:                 svcName,
		ServiceType:              serviceType,
	}
	eventBus, kafkaClient, err := kafka.ConnectWithRetry(busCfg, logg, metrics, tracer)
	if err != nil {
		logg.Error(ctx, "failed to connect event bus", "error", err)
		os.Exit(1)
	}
	defer kafkaClient.Close()

	publisher := kafka.NewDomainEventPublisher(eventBus, events.NewDomainEventTranslator())

	var opts []contestwatch.Option
	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		cfg, err := config.NewFileLoader(configPath).Load(ctx)
		if err != nil {
			logg.Error(ctx, "failed to load config", "error", err, "path", configPath)
			os.Exit(1)
		}
		if cfg.Watch.PollInterval != "" {
			d, err := time.ParseDuration(cfg.Watch.PollInterval)
			if err != nil {
				logg.Error(ctx, "invalid watch.poll_interval", "error", err)
				os.Exit(1)
			}
			opts = append(opts, contestwatch.WithPollInterval(d))
		}
		if cfg.Watch.ReminderWindow != "" {
			d, err := time.ParseDuration(cfg.Watch.ReminderWindow)
			if err != nil {
				logg.Error(ctx, "invalid watch.reminder_window", "error", err)
				os.Exit(1)
			}
			opts = append(opts, contestwatch.WithReminderWindow(d))
		}
	}

	cfClient := codeforces.NewClient(nil, logg, tracer)
	cache := codeforces.NewContestCache(rdb, logg)
	watcher := contestwatch.NewWatcher(cfClient, cache, publisher, logg, tracer, opts...)

	logg.Info(ctx, "Contest watcher initialized")
	ready.Store(true)

	errCh := make(chan error, 1)
	go func() {
		if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
			errCh <- err
		}
	}()

	select {
	case sig := <-sigCh:
		logg.Info(ctx, "Received shutdown signal", "signal", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()
		if err := eventBus.Close(); err != nil {
			logg.Error(shutdownCtx, "Failed to close event bus", "error", err)
		}

	case err := <-errCh:
		logg.Error(ctx, "Contest watcher error", "error", err)
		os.Exit(1)
	}
}
