package jobs

import (
	"time"

	"github.com/google/uuid"
)

// Run is the aggregate tracking the job service's single execution slot. It
// records the outcome of the most recent execution and enforces the status
// transition rules. Run is not safe for concurrent use; callers serialize
// access (see the app-layer runner).
type Run struct {
	id         uuid.UUID
	status     RunStatus
	startedAt  time.Time
	finishedAt time.Time
	lastErr    string
}

// NewRun creates a Run with an empty, idle execution slot.
func NewRun() *Run {
	return &Run{status: RunStatusIdle}
}

// ReconstructRun creates a Run from persisted state. Used when loading the
// slot's last known outcome rather than starting fresh.
func ReconstructRun(id uuid.UUID, status RunStatus, startedAt, finishedAt time.Time, lastErr string) *Run {
	return &Run{
		id:         id,
		status:     status,
		startedAt:  startedAt,
		finishedAt: finishedAt,
		lastErr:    lastErr,
	}
}

// ID returns the identifier of the most recent execution, or uuid.Nil if the
// slot has never admitted one.
func (r *Run) ID() uuid.UUID { return r.id }

// Status returns the current status of the execution slot.
func (r *Run) Status() RunStatus { return r.status }

// StartedAt returns when the most recent execution was admitted.
func (r *Run) StartedAt() time.Time { return r.startedAt }

// FinishedAt returns when the most recent execution settled.
func (r *Run) FinishedAt() time.Time { return r.finishedAt }

// LastError returns the error message of the most recent failed execution,
// or the empty string if it succeeded.
func (r *Run) LastError() string { return r.lastErr }

// Start admits a new execution into the slot. It fails if the slot is
// currently occupied.
func (r *Run) Start() error {
	if err := r.status.ValidateTransition(RunStatusRunning); err != nil {
		return err
	}
	r.id = uuid.New()
	r.status = RunStatusRunning
	r.startedAt = time.Now()
	r.finishedAt = time.Time{}
	r.lastErr = ""
	return nil
}

// Complete settles the running execution as successful.
func (r *Run) Complete() error {
	if err := r.status.ValidateTransition(RunStatusCompleted); err != nil {
		return err
	}
	r.status = RunStatusCompleted
	r.finishedAt = time.Now()
	return nil
}

// Fail settles the running execution as failed, recording the cause.
func (r *Run) Fail(cause error) error {
	if err := r.status.ValidateTransition(RunStatusFailed); err != nil {
		return err
	}
	r.status = RunStatusFailed
	r.finishedAt = time.Now()
	if cause != nil {
		r.lastErr = cause.Error()
	}
	return nil
}

// RunSnapshot is an immutable copy of the slot's state, safe to hand across
// goroutine boundaries.
type RunSnapshot struct {
	ID         uuid.UUID
	Status     RunStatus
	StartedAt  time.Time
	FinishedAt time.Time
	LastError  string
}

// Snapshot returns a point-in-time copy of the run's state.
func (r *Run) Snapshot() RunSnapshot {
	return RunSnapshot{
		ID:         r.id,
		Status:     r.status,
		StartedAt:  r.startedAt,
		FinishedAt: r.finishedAt,
		LastError:  r.lastErr,
	}
}
