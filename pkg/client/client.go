package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cuemby/cube/pkg/task"
)

const requestTimeout = 10 * time.Second

// Client talks to a single Worker's HTTP API. The Manager holds one
// per worker address; nothing else in Cube makes outbound HTTP calls
// to a Worker.
type Client struct {
	addr       string
	httpClient *http.Client
}

// New creates a Client bound to a worker's address, e.g. "10.0.0.5:8901".
func New(addr string) *Client {
	return &Client{
		addr:       addr,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// StartTask sends a TaskEvent to the worker's /tasks endpoint and
// returns the Task it reports back.
//
// The returned error is always one of ErrorReachingWorker,
// StatusCodeError, or ErrorDecodingResponse. Only ErrorReachingWorker
// is retriable: it means the request never reached the worker, so the
// event can be requeued safely. The other two mean the worker received
// and rejected (or malformed its response to) the request, and retrying
// would not help.
func (c *Client) StartTask(ctx context.Context, te task.TaskEvent) (task.Task, error) {
	body, err := json.Marshal(te)
	if err != nil {
		return task.Task{}, fmt.Errorf("failed to marshal task event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	url := fmt.Sprintf("http://%s/tasks", c.addr)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return task.Task{}, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return task.Task{}, &ErrorReachingWorker{Err: err}
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if readErr != nil {
			respBody = []byte(fmt.Sprintf("(failed to read body: %v)", readErr))
		}
		return task.Task{}, &StatusCodeError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if readErr != nil {
		return task.Task{}, &ErrorDecodingResponse{Err: readErr}
	}

	var t task.Task
	if err := json.Unmarshal(respBody, &t); err != nil {
		return task.Task{}, &ErrorDecodingResponse{Err: err}
	}
	return t, nil
}

// GetTasks fetches the worker's current task list from GET /tasks.
func (c *Client) GetTasks(ctx context.Context) ([]task.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	url := fmt.Sprintf("http://%s/tasks", c.addr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ErrorReachingWorker{Err: err}
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if readErr != nil {
			respBody = []byte(fmt.Sprintf("(failed to read body: %v)", readErr))
		}
		return nil, &StatusCodeError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if readErr != nil {
		return nil, &ErrorDecodingResponse{Err: readErr}
	}

	var tasks []task.Task
	if err := json.Unmarshal(respBody, &tasks); err != nil {
		return nil, &ErrorDecodingResponse{Err: err}
	}
	return tasks, nil
}
