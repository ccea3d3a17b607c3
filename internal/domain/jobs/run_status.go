// Package jobs models the lifecycle of a background job that must never have
// more than one execution in flight. The job service holds a single execution
// slot; every run moves through the statuses defined here under guarded
// transitions.
package jobs

import (
	"fmt"
)

// RunStatus represents the current state of the job's execution slot. It
// enables tracking of a run's lifecycle from admission through completion
// or failure.
type RunStatus string

const (
	// RunStatusIdle indicates no execution has been admitted yet.
	RunStatusIdle RunStatus = "IDLE"

	// RunStatusRunning indicates an execution currently occupies the slot.
	RunStatusRunning RunStatus = "RUNNING"

	// RunStatusCompleted indicates the most recent execution finished successfully.
	RunStatusCompleted RunStatus = "COMPLETED"

	// RunStatusFailed indicates the most recent execution ended with an error.
	RunStatusFailed RunStatus = "FAILED"
)

func (s RunStatus) String() string { return string(s) }

// ParseRunStatus converts a string to a RunStatus.
func ParseRunStatus(s string) RunStatus {
	switch s {
	case "IDLE":
		return RunStatusIdle
	case "RUNNING":
		return RunStatusRunning
	case "COMPLETED":
		return RunStatusCompleted
	case "FAILED":
		return RunStatusFailed
	default:
		return "" // represents unspecified
	}
}

// IsSettled reports whether the slot can admit a new execution. Completed and
// Failed are settled outcomes of a previous run, not occupancy.
func (s RunStatus) IsSettled() bool {
	return s == RunStatusIdle || s == RunStatusCompleted || s == RunStatusFailed
}

// ValidateTransition checks if a status transition is valid and returns an error if not.
func (s RunStatus) ValidateTransition(target RunStatus) error {
	if !s.isValidTransition(target) {
		return fmt.Errorf("invalid run status transition from %s to %s", s, target)
	}
	return nil
}

// isValidTransition checks if the current status can transition to the target status.
// It enforces the single-slot lifecycle rules to prevent invalid state changes.
func (s RunStatus) isValidTransition(target RunStatus) bool {
	switch s {
	case RunStatusIdle, RunStatusCompleted, RunStatusFailed:
		// Settled states admit exactly one thing: a new execution.
		return target == RunStatusRunning
	case RunStatusRunning:
		// A running execution settles as Completed or Failed.
		return target == RunStatusCompleted || target == RunStatusFailed
	default:
		return false
	}
}
