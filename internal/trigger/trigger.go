// Package trigger implements the cron-side client that kicks off the job
// service's synchronous run. The protocol makes repeated triggering safe: the
// service admits one run at a time and answers 409 for the rest, so the
// trigger treats a conflict as success and retries only genuine failures.
package trigger

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cfpulse/cfpulse/pkg/common/logger"
)

// Exit codes reported to the cron scheduler.
const (
	ExitOK      = 0
	ExitFailure = 1
)

// Trigger drives one trigger cycle against the job service.
type Trigger struct {
	client *Client
	cfg    Config
	logger *logger.Logger

	// sleep is swappable so tests don't wait out real retry delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a trigger from the given configuration.
func New(cfg Config, logger *logger.Logger) *Trigger {
	return &Trigger{
		client: NewClient(cfg.JobServiceURL, &http.Client{Timeout: cfg.RunTimeout}),
		cfg:    cfg,
		logger: logger.With("component", "trigger"),
		sleep:  sleepCtx,
	}
}

// Run executes one trigger cycle and returns the process exit code.
//
// The cycle probes the service's status first. An unreachable service is
// fatal with no retry, since retrying cannot tell a dead service from one
// mid-deploy and the next cron tick covers it. A running job is a no-op
// success. Otherwise the run is triggered with bounded fixed-delay retries;
// a conflict on any attempt means another trigger won the race, which is
// equally success.
func (t *Trigger) Run(ctx context.Context) (int, error) {
	statusCtx, cancel := context.WithTimeout(ctx, t.cfg.RequestTimeout)
	status, err := t.client.Status(statusCtx)
	cancel()
	if err != nil {
		t.logger.Error(ctx, "Job service unreachable, giving up", "error", err)
		return ExitFailure, err
	}

	if status.IsRunning {
		t.logger.Info(ctx, "Run already in progress, nothing to do")
		return ExitOK, nil
	}

	var lastErr error
	for attempt := 0; attempt <= t.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			t.logger.Info(ctx, "Retrying run trigger",
				"attempt", attempt,
				"max_retries", t.cfg.MaxRetries,
				"delay", t.cfg.RetryDelay.String(),
			)
			if err := t.sleep(ctx, t.cfg.RetryDelay); err != nil {
				return ExitFailure, err
			}
		}

		run, err := t.client.RunSync(ctx)
		switch {
		case err == nil:
			t.logger.Info(ctx, "Run completed",
				"run_id", run.RunID,
				"status", run.Status,
			)
			return ExitOK, nil

		case errors.Is(err, ErrRunConflict):
			t.logger.Info(ctx, "Run already in progress, treating as success")
			return ExitOK, nil

		default:
			// Failed runs and transport errors are both retryable: the
			// computation is idempotent and the slot serializes executions.
			lastErr = err
			t.logger.Warn(ctx, "Run trigger attempt failed",
				"attempt", attempt,
				"error", err,
			)
		}
	}

	t.logger.Error(ctx, "Run trigger failed after all retries",
		"max_retries", t.cfg.MaxRetries,
		"error", lastErr,
	)
	return ExitFailure, lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
