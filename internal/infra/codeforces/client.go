// Package codeforces provides a rate-limited client for the public Codeforces
// API, plus a Redis-backed cache for the contest list. The API enforces a
// strict request budget per key, so every call goes through a shared limiter.
package codeforces

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cfpulse/cfpulse/pkg/common"
	"github.com/cfpulse/cfpulse/pkg/common/logger"
)

const defaultBaseURL = "https://codeforces.com/api"

// Contest is one entry from the contest.list endpoint.
type Contest struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Phase            string `json:"phase"`
	StartTimeSeconds int64  `json:"startTimeSeconds"`
	DurationSeconds  int64  `json:"durationSeconds"`
}

// StartsAt returns the contest start time.
func (c Contest) StartsAt() time.Time { return time.Unix(c.StartTimeSeconds, 0).UTC() }

// Problem identifies a problem within a contest.
type Problem struct {
	ContestID int64  `json:"contestId"`
	Index     string `json:"index"`
	Name      string `json:"name"`
}

// Submission is one entry from the user.status endpoint.
type Submission struct {
	ID                  int64   `json:"id"`
	CreationTimeSeconds int64   `json:"creationTimeSeconds"`
	Verdict             string  `json:"verdict"`
	Problem             Problem `json:"problem"`
}

// SubmittedAt returns when the submission was made.
func (s Submission) SubmittedAt() time.Time { return time.Unix(s.CreationTimeSeconds, 0).UTC() }

// apiResponse is the envelope every Codeforces endpoint wraps its result in.
type apiResponse[T any] struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
	Result  T      `json:"result"`
}

// Client calls the Codeforces API with rate limiting and tracing.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *common.RateLimiter
	logger     *logger.Logger
	tracer     trace.Tracer
}

// NewClient creates a Codeforces API client. The Codeforces API allows at
// most one request per second per key, so the limiter defaults accordingly.
func NewClient(httpClient *http.Client, logger *logger.Logger, tracer trace.Tracer) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    defaultBaseURL,
		httpClient: httpClient,
		limiter:    common.NewRateLimiter(1, 1),
		logger:     logger.With("component", "codeforces_client"),
		tracer:     tracer,
	}
}

// WithBaseURL overrides the API base URL. Used by tests.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = base
	return c
}

// ContestList fetches the list of non-gym contests.
func (c *Client) ContestList(ctx context.Context) ([]Contest, error) {
	return call[[]Contest](ctx, c, "contest.list", url.Values{"gym": {"false"}})
}

// UserStatus fetches a user's most recent submissions, newest first.
func (c *Client) UserStatus(ctx context.Context, handle string, count int) ([]Submission, error) {
	params := url.Values{
		"handle": {handle},
		"from":   {"1"},
		"count":  {fmt.Sprintf("%d", count)},
	}
	return call[[]Submission](ctx, c, "user.status", params)
}

// call performs one rate-limited API request and decodes the envelope.
func call[T any](ctx context.Context, c *Client, method string, params url.Values) (T, error) {
	var zero T

	ctx, span := c.tracer.Start(ctx, "codeforces.api_call",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("cf.method", method)),
	)
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		return zero, fmt.Errorf("rate limiter wait: %w", err)
	}

	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, method, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		span.RecordError(err)
		return zero, fmt.Errorf("building request for %s: %w", method, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return zero, fmt.Errorf("calling %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("codeforces %s returned status %d", method, resp.StatusCode)
		span.RecordError(err)
		return zero, err
	}

	var envelope apiResponse[T]
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		span.RecordError(err)
		return zero, fmt.Errorf("decoding %s response: %w", method, err)
	}
	if envelope.Status != "OK" {
		err := fmt.Errorf("codeforces %s failed: %s", method, envelope.Comment)
		span.RecordError(err)
		return zero, err
	}

	c.logger.Debug(ctx, "Codeforces API call succeeded", "method", method)
	return envelope.Result, nil
}
