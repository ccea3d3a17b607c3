package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cfpulse/cfpulse/internal/api"
)

// ErrRunConflict indicates the job service rejected the trigger because a run
// is already executing. For the trigger this is success: the work is happening.
var ErrRunConflict = errors.New("run already in progress")

// ErrRunFailed indicates the job service executed the run and it failed.
var ErrRunFailed = errors.New("run failed")

// Client is a typed HTTP client for the job service's trigger API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a trigger client for the job service at baseURL.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Status fetches the job service's current run status. An error here means
// the service could not be reached or answered garbage, not that a run failed.
func (c *Client) Status(ctx context.Context) (api.StatusResponse, error) {
	var status api.StatusResponse

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/status", nil)
	if err != nil {
		return status, fmt.Errorf("building status request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return status, fmt.Errorf("status request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return status, fmt.Errorf("status request returned %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return status, fmt.Errorf("decoding status response: %w", err)
	}
	return status, nil
}

// RunSync triggers a synchronous run and waits for it to settle.
//
//   - 200: the run completed, the result is returned
//   - 409: another run is executing, ErrRunConflict
//   - 500: the run executed and failed, ErrRunFailed with the service's message
//
// Any other outcome is a transport or service error the caller may retry.
func (c *Client) RunSync(ctx context.Context) (api.RunResponse, error) {
	var run api.RunResponse

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/run-sync", nil)
	if err != nil {
		return run, fmt.Errorf("building run request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return run, fmt.Errorf("run request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
			return run, fmt.Errorf("decoding run response: %w", err)
		}
		return run, nil

	case http.StatusConflict:
		return run, ErrRunConflict

	case http.StatusInternalServerError:
		var errResp api.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil || errResp.Error == "" {
			return run, ErrRunFailed
		}
		return run, fmt.Errorf("%w: %s", ErrRunFailed, errResp.Error)

	default:
		return run, fmt.Errorf("run request returned %d", resp.StatusCode)
	}
}
