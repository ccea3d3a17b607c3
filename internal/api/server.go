// Package api exposes the job service's HTTP surface: a status probe and a
// synchronous run trigger. The response bodies are structured so clients make
// decisions on fields, never on matching error strings.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/cfpulse/cfpulse/internal/app/jobrunner"
	"github.com/cfpulse/cfpulse/internal/domain/jobs"
	"github.com/cfpulse/cfpulse/pkg/common/logger"
)

// StatusResponse is the body of GET /v1/status.
type StatusResponse struct {
	IsRunning  bool   `json:"is_running"`
	LastStatus string `json:"last_status"`
	LastError  string `json:"last_error,omitempty"`
	StartedAt  string `json:"started_at,omitempty"`
	FinishedAt string `json:"finished_at,omitempty"`
}

// RunResponse is the body of a successful POST /v1/run-sync.
type RunResponse struct {
	RunID      string `json:"run_id"`
	Status     string `json:"status"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
}

// ErrorResponse is the body of any non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server wires the HTTP routes to the job runner.
type Server struct {
	engine *gin.Engine
	runner *jobrunner.Runner
	logger *logger.Logger
	tracer trace.Tracer
}

// NewServer creates the HTTP server for the job service.
func NewServer(runner *jobrunner.Runner, logger *logger.Logger, tracer trace.Tracer) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		engine: gin.New(),
		runner: runner,
		logger: logger.With("component", "job_api"),
		tracer: tracer,
	}

	s.engine.Use(gin.Recovery())

	v1 := s.engine.Group("/v1")
	v1.GET("/status", s.handleStatus)
	v1.POST("/run-sync", s.handleRunSync)

	return s
}

// Handler returns the http.Handler for mounting on a listener.
func (s *Server) Handler() http.Handler { return s.engine }

// handleStatus reports the execution slot's state. It never blocks on a
// running computation.
func (s *Server) handleStatus(c *gin.Context) {
	snap := s.runner.Status()
	c.JSON(http.StatusOK, statusFromSnapshot(snap))
}

// handleRunSync admits and executes a run, blocking until it settles.
// An occupied slot yields 409; a failed computation yields 500. Both are safe
// to retry because the computation is idempotent at the data layer and the
// slot admits one execution at a time.
func (s *Server) handleRunSync(c *gin.Context) {
	ctx := c.Request.Context()

	snap, err := s.runner.RunSync(ctx)
	if err != nil {
		if errors.Is(err, jobs.ErrRunInProgress) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "run already in progress"})
			return
		}
		s.logger.Error(ctx, "Run failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, RunResponse{
		RunID:      snap.ID.String(),
		Status:     snap.Status.String(),
		StartedAt:  snap.StartedAt.UTC().Format(time.RFC3339),
		FinishedAt: snap.FinishedAt.UTC().Format(time.RFC3339),
	})
}

func statusFromSnapshot(snap jobs.RunSnapshot) StatusResponse {
	resp := StatusResponse{
		IsRunning:  snap.Status == jobs.RunStatusRunning,
		LastStatus: snap.Status.String(),
		LastError:  snap.LastError,
	}
	if !snap.StartedAt.IsZero() {
		resp.StartedAt = snap.StartedAt.UTC().Format(time.RFC3339)
	}
	if !snap.FinishedAt.IsZero() {
		resp.FinishedAt = snap.FinishedAt.UTC().Format(time.RFC3339)
	}
	return resp
}
