// Package jobrunner owns the job service's single execution slot. It admits
// at most one run at a time and executes the configured computation
// synchronously, so a caller's successful response means the work happened.
package jobrunner

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cfpulse/cfpulse/internal/domain/jobs"
	"github.com/cfpulse/cfpulse/pkg/common/logger"
)

// Computation is the unit of work a run executes. Implementations must be
// idempotent at the data layer; the runner guarantees only that two
// computations never overlap.
type Computation func(ctx context.Context) error

// Runner serializes executions of a Computation through a single slot.
// Admission is an atomic check-and-set on the run's status, so concurrent
// RunSync calls resolve to exactly one execution.
type Runner struct {
	mu  sync.Mutex
	run *jobs.Run

	compute Computation

	logger *logger.Logger
	tracer trace.Tracer
}

// NewRunner creates a Runner with an idle slot.
func NewRunner(compute Computation, logger *logger.Logger, tracer trace.Tracer) *Runner {
	return &Runner{
		run:     jobs.NewRun(),
		compute: compute,
		logger:  logger.With("component", "job_runner"),
		tracer:  tracer,
	}
}

// Status returns a snapshot of the slot's state.
func (r *Runner) Status() jobs.RunSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.run.Snapshot()
}

// RunSync admits a run if the slot is free and executes the computation to
// completion before returning. If the slot is occupied it returns
// jobs.ErrRunInProgress without executing anything. A computation error or
// panic settles the run as Failed and is returned to the caller.
func (r *Runner) RunSync(ctx context.Context) (jobs.RunSnapshot, error) {
	ctx, span := r.tracer.Start(ctx, "job_runner.run_sync")
	defer span.End()

	// Admission: atomic check-and-set under the lock.
	r.mu.Lock()
	if r.run.Status() == jobs.RunStatusRunning {
		snap := r.run.Snapshot()
		r.mu.Unlock()
		span.AddEvent("run_rejected_in_progress")
		return snap, jobs.ErrRunInProgress
	}
	if err := r.run.Start(); err != nil {
		snap := r.run.Snapshot()
		r.mu.Unlock()
		span.RecordError(err)
		return snap, err
	}
	runID := r.run.ID()
	r.mu.Unlock()

	span.SetAttributes(attribute.String("run_id", runID.String()))
	r.logger.Info(ctx, "Run admitted", "run_id", runID)

	err := r.execute(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		if ferr := r.run.Fail(err); ferr != nil {
			r.logger.Error(ctx, "Failed to settle run as failed", "error", ferr)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "run failed")
		r.logger.Error(ctx, "Run failed", "run_id", runID, "error", err)
		return r.run.Snapshot(), err
	}

	if cerr := r.run.Complete(); cerr != nil {
		r.logger.Error(ctx, "Failed to settle run as completed", "error", cerr)
		return r.run.Snapshot(), cerr
	}
	r.logger.Info(ctx, "Run completed", "run_id", runID)
	return r.run.Snapshot(), nil
}

// execute runs the computation with panic recovery. The slot must always
// settle, even if the computation panics.
func (r *Runner) execute(ctx context.Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("computation panicked: %v", rec)
		}
	}()
	return r.compute(ctx)
}
