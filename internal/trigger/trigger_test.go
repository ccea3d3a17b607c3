package trigger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cfpulse/cfpulse/internal/api"
	"github.com/cfpulse/cfpulse/pkg/common/logger"
)

type jobServiceStub struct {
	status      api.StatusResponse
	runHandler  func(w http.ResponseWriter, attempt int64)
	runAttempts atomic.Int64
}

func (s *jobServiceStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(s.status)
	})
	mux.HandleFunc("/v1/run-sync", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		attempt := s.runAttempts.Add(1)
		s.runHandler(w, attempt)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func newTestTrigger(t *testing.T, baseURL string, maxRetries int) *Trigger {
	t.Helper()
	log := logger.New(os.Stdout, logger.LevelError, "test", nil)
	tr := New(Config{
		JobServiceURL:  baseURL,
		MaxRetries:     maxRetries,
		RetryDelay:     time.Minute,
		RequestTimeout: 2 * time.Second,
		RunTimeout:     5 * time.Second,
	}, log)
	tr.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return tr
}

func TestRun_CompletedRun(t *testing.T) {
	stub := &jobServiceStub{
		status: api.StatusResponse{LastStatus: "IDLE"},
		runHandler: func(w http.ResponseWriter, attempt int64) {
			writeJSON(w, http.StatusOK, api.RunResponse{RunID: "run-1", Status: "COMPLETED"})
		},
	}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	code, err := newTestTrigger(t, srv.URL, 3).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ExitOK, code)
	assert.Equal(t, int64(1), stub.runAttempts.Load())
}

func TestRun_AlreadyRunningIsNoOp(t *testing.T) {
	stub := &jobServiceStub{
		status: api.StatusResponse{IsRunning: true, LastStatus: "RUNNING"},
		runHandler: func(w http.ResponseWriter, attempt int64) {
			t.Error("run-sync must not be called when a run is in progress")
		},
	}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	code, err := newTestTrigger(t, srv.URL, 3).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ExitOK, code)
}

func TestRun_ConflictIsSuccess(t *testing.T) {
	stub := &jobServiceStub{
		status: api.StatusResponse{LastStatus: "IDLE"},
		runHandler: func(w http.ResponseWriter, attempt int64) {
			// Another trigger won the race between the probe and the run.
			writeJSON(w, http.StatusConflict, api.ErrorResponse{Error: "run already in progress"})
		},
	}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	code, err := newTestTrigger(t, srv.URL, 3).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ExitOK, code)
	assert.Equal(t, int64(1), stub.runAttempts.Load(), "conflict must not be retried")
}

func TestRun_RetriesThenSucceeds(t *testing.T) {
	stub := &jobServiceStub{
		status: api.StatusResponse{LastStatus: "IDLE"},
		runHandler: func(w http.ResponseWriter, attempt int64) {
			if attempt <= 2 {
				writeJSON(w, http.StatusInternalServerError, api.ErrorResponse{Error: "codeforces api unavailable"})
				return
			}
			writeJSON(w, http.StatusOK, api.RunResponse{RunID: "run-2", Status: "COMPLETED"})
		},
	}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	code, err := newTestTrigger(t, srv.URL, 3).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ExitOK, code)
	assert.Equal(t, int64(3), stub.runAttempts.Load())
}

func TestRun_ExhaustsRetries(t *testing.T) {
	stub := &jobServiceStub{
		status: api.StatusResponse{LastStatus: "IDLE"},
		runHandler: func(w http.ResponseWriter, attempt int64) {
			writeJSON(w, http.StatusInternalServerError, api.ErrorResponse{Error: "persistent failure"})
		},
	}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	code, err := newTestTrigger(t, srv.URL, 2).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRunFailed)
	assert.Equal(t, ExitFailure, code)
	assert.Equal(t, int64(3), stub.runAttempts.Load(), "one initial attempt plus two retries")
}

func TestRun_RunEndpointConnectionFailureExhaustsRetries(t *testing.T) {
	stub := &jobServiceStub{
		status: api.StatusResponse{LastStatus: "IDLE"},
		runHandler: func(w http.ResponseWriter, attempt int64) {
			// The probe answered but the service dies mid-request: drop the
			// connection without writing a response.
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Error("response writer does not support hijacking")
				return
			}
			conn, _, err := hj.Hijack()
			if err != nil {
				t.Errorf("hijack failed: %v", err)
				return
			}
			_ = conn.Close()
		},
	}
	srv := httptest.NewServer(stub.handler())
	defer srv.Close()

	code, err := newTestTrigger(t, srv.URL, 2).Run(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRunFailed, "transport failures carry no service verdict")
	assert.Equal(t, ExitFailure, code)
	assert.Equal(t, int64(3), stub.runAttempts.Load(), "one initial attempt plus two retries")
}

func TestRun_UnreachableServiceIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // connections now refused

	code, err := newTestTrigger(t, srv.URL, 3).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, ExitFailure, code)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("JOB_SERVICE_URL", "http://jobservice:8000")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://jobservice:8000", cfg.JobServiceURL)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Minute, cfg.RetryDelay)
}

func TestLoadConfig_MissingURL(t *testing.T) {
	t.Setenv("JOB_SERVICE_URL", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JOB_SERVICE_URL")
}
