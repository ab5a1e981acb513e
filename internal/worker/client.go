package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"task-service/internal/domain"
)

// TaskAPI is the worker's view of the task lifecycle service. Implementations
// must translate the service's response categories into the domain sentinels
// so the loop can tell "task gone" and "duplicate delivery" apart from
// infrastructure failures.
type TaskAPI interface {
	Start(ctx context.Context, globalID string) error
	Fetch(ctx context.Context, globalID string) (*domain.Task, error)
	Complete(ctx context.Context, globalID, resultFile string) error
	Fail(ctx context.Context, globalID string) error
}

// APIClient talks to the task service over HTTP. The client timeout bounds
// every outbound call so a stalled service cannot stall the worker loop.
type APIClient struct {
	baseURL string
	client  *http.Client
}

// NewAPIClient creates a client for the task API at baseURL.
func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Start asks the service to move the task to InProgress.
func (c *APIClient) Start(ctx context.Context, globalID string) error {
	return c.putAction(ctx, globalID, "start", nil)
}

// Fail asks the service to move the task to Failed.
func (c *APIClient) Fail(ctx context.Context, globalID string) error {
	return c.putAction(ctx, globalID, "fail", nil)
}

// Complete asks the service to move the task to Completed, recording the
// result reference.
func (c *APIClient) Complete(ctx context.Context, globalID, resultFile string) error {
	body, err := json.Marshal(map[string]string{"result_file": resultFile})
	if err != nil {
		return fmt.Errorf("failed to marshal completion request: %w", err)
	}
	return c.putAction(ctx, globalID, "complete", body)
}

// Fetch retrieves the full task record.
func (c *APIClient) Fetch(ctx context.Context, globalID string) (*domain.Task, error) {
	url := fmt.Sprintf("%s/task/%s", c.baseURL, globalID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create fetch request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch task request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return nil, err
	}

	var task domain.Task
	if err := json.NewDecoder(resp.Body).Decode(&task); err != nil {
		return nil, fmt.Errorf("failed to decode task response: %w", err)
	}
	return &task, nil
}

func (c *APIClient) putAction(ctx context.Context, globalID, action string, body []byte) error {
	url := fmt.Sprintf("%s/task/%s/%s", c.baseURL, globalID, action)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", action, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s task request failed: %w", action, err)
	}
	defer resp.Body.Close()

	return classifyStatus(resp)
}

// classifyStatus maps the API's response categories onto the domain error
// set. 404 and 400 are task-level outcomes; everything else non-2xx is an
// infrastructure failure from the loop's point of view.
func classifyStatus(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	// Read a small portion of the body for error context.
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrTaskNotFound, bodyBytes)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", domain.ErrInvalidTransition, bodyBytes)
	default:
		return fmt.Errorf("task api returned %s: %s", resp.Status, bodyBytes)
	}
}
