package jobrunner

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/cfpulse/cfpulse/internal/domain/jobs"
	"github.com/cfpulse/cfpulse/pkg/common/logger"
)

func newTestRunner(compute Computation) *Runner {
	log := logger.New(os.Stdout, logger.LevelError, "test", nil)
	return NewRunner(compute, log, noop.NewTracerProvider().Tracer("test"))
}

func TestRunSync_Success(t *testing.T) {
	executed := false
	r := newTestRunner(func(ctx context.Context) error {
		executed = true
		return nil
	})

	snap, err := r.RunSync(context.Background())
	require.NoError(t, err)
	assert.True(t, executed)
	assert.Equal(t, jobs.RunStatusCompleted, snap.Status)
	assert.Empty(t, snap.LastError)
}

func TestRunSync_ComputationError(t *testing.T) {
	wantErr := errors.New("codeforces api unavailable")
	r := newTestRunner(func(ctx context.Context) error { return wantErr })

	snap, err := r.RunSync(context.Background())
	require.ErrorIs(t, err, wantErr)
	assert.Equal(t, jobs.RunStatusFailed, snap.Status)
	assert.Equal(t, wantErr.Error(), snap.LastError)

	// The slot settles, so the next run is admitted.
	snap, err = r.RunSync(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, jobs.ErrRunInProgress)
}

func TestRunSync_PanicSettlesSlot(t *testing.T) {
	r := newTestRunner(func(ctx context.Context) error { panic("boom") })

	snap, err := r.RunSync(context.Background())
	require.Error(t, err)
	assert.Equal(t, jobs.RunStatusFailed, snap.Status)
	assert.Contains(t, snap.LastError, "boom")

	assert.Equal(t, jobs.RunStatusFailed, r.Status().Status)
}

func TestRunSync_RejectsConcurrentRun(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	r := newTestRunner(func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := r.RunSync(context.Background())
		assert.NoError(t, err)
	}()

	<-started
	snap, err := r.RunSync(context.Background())
	require.ErrorIs(t, err, jobs.ErrRunInProgress)
	assert.Equal(t, jobs.RunStatusRunning, snap.Status)

	close(release)
	<-done
	assert.Equal(t, jobs.RunStatusCompleted, r.Status().Status)
}

func TestRunSync_AtMostOneExecutes(t *testing.T) {
	var executions atomic.Int32
	release := make(chan struct{})
	r := newTestRunner(func(ctx context.Context) error {
		executions.Add(1)
		<-release
		return nil
	})

	const callers = 10
	var admitted, rejected atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.RunSync(context.Background())
			switch {
			case err == nil:
				admitted.Add(1)
			case errors.Is(err, jobs.ErrRunInProgress):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}

	// Give contenders a moment to pile up, then let the winner finish.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), executions.Load(), "exactly one computation may execute")
	assert.Equal(t, int32(1), admitted.Load())
	assert.Equal(t, int32(callers-1), rejected.Load())
}

func TestStatus_InitiallyIdle(t *testing.T) {
	r := newTestRunner(func(ctx context.Context) error { return nil })
	snap := r.Status()
	assert.Equal(t, jobs.RunStatusIdle, snap.Status)
}
