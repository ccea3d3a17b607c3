package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateTransition_ValidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		current RunStatus
		target  RunStatus
	}{
		{
			name:    "Idle to Running is valid",
			current: RunStatusIdle,
			target:  RunStatusRunning,
		},
		{
			name:    "Running to Completed is valid",
			current: RunStatusRunning,
			target:  RunStatusCompleted,
		},
		{
			name:    "Running to Failed is valid",
			current: RunStatusRunning,
			target:  RunStatusFailed,
		},
		{
			name:    "Completed to Running is valid",
			current: RunStatusCompleted,
			target:  RunStatusRunning,
		},
		{
			name:    "Failed to Running is valid",
			current: RunStatusFailed,
			target:  RunStatusRunning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.current.ValidateTransition(tt.target)
			assert.NoError(t, err, "expected valid transition from %s to %s", tt.current, tt.target)
		})
	}
}

func TestValidateTransition_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		current RunStatus
		target  RunStatus
	}{
		{
			name:    "Idle to Completed is invalid",
			current: RunStatusIdle,
			target:  RunStatusCompleted,
		},
		{
			name:    "Idle to Failed is invalid",
			current: RunStatusIdle,
			target:  RunStatusFailed,
		},
		{
			name:    "Idle to Idle is invalid",
			current: RunStatusIdle,
			target:  RunStatusIdle,
		},
		{
			name:    "Running to Running is invalid",
			current: RunStatusRunning,
			target:  RunStatusRunning,
		},
		{
			name:    "Running to Idle is invalid",
			current: RunStatusRunning,
			target:  RunStatusIdle,
		},
		{
			name:    "Completed to Completed is invalid",
			current: RunStatusCompleted,
			target:  RunStatusCompleted,
		},
		{
			name:    "Failed to Completed is invalid",
			current: RunStatusFailed,
			target:  RunStatusCompleted,
		},
		{
			name:    "unknown status cannot transition",
			current: RunStatus("BOGUS"),
			target:  RunStatusRunning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.current.ValidateTransition(tt.target)
			assert.Error(t, err, "expected invalid transition from %s to %s", tt.current, tt.target)
		})
	}
}

func TestParseRunStatus(t *testing.T) {
	tests := []struct {
		input string
		want  RunStatus
	}{
		{input: "IDLE", want: RunStatusIdle},
		{input: "RUNNING", want: RunStatusRunning},
		{input: "COMPLETED", want: RunStatusCompleted},
		{input: "FAILED", want: RunStatusFailed},
		{input: "nope", want: RunStatus("")},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRunStatus(tt.input))
		})
	}
}

func TestIsSettled(t *testing.T) {
	assert.True(t, RunStatusIdle.IsSettled())
	assert.True(t, RunStatusCompleted.IsSettled())
	assert.True(t, RunStatusFailed.IsSettled())
	assert.False(t, RunStatusRunning.IsSettled())
}
