package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/cube/pkg/task"
)

func TestStartTaskHappyPath(t *testing.T) {
	want := task.NewTask("hello", "hello-world")
	want.State = task.Running

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/tasks", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = writeJSON(w, want)
	}))
	defer srv.Close()

	c := New(serverAddr(srv))
	got, err := c.StartTask(context.Background(), task.NewTaskEvent(want))
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, task.Running, got.State)
}

func TestStartTaskReachingWorkerFails(t *testing.T) {
	// Close immediately: nothing listens on this address, so the
	// request itself fails to reach a server.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := serverAddr(srv)
	srv.Close()

	c := New(addr)
	_, err := c.StartTask(context.Background(), task.NewTaskEvent(task.NewTask("hello", "hello-world")))
	require.Error(t, err)

	var reachErr *ErrorReachingWorker
	assert.ErrorAs(t, err, &reachErr)
}

func TestStartTaskStatusCodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	c := New(serverAddr(srv))
	_, err := c.StartTask(context.Background(), task.NewTaskEvent(task.NewTask("hello", "hello-world")))
	require.Error(t, err)

	var statusErr *StatusCodeError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "boom")
}

func TestStartTaskDecodingError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := New(serverAddr(srv))
	_, err := c.StartTask(context.Background(), task.NewTaskEvent(task.NewTask("hello", "hello-world")))
	require.Error(t, err)

	var decodeErr *ErrorDecodingResponse
	assert.ErrorAs(t, err, &decodeErr)
}

func TestGetTasksHappyPath(t *testing.T) {
	want := []task.Task{task.NewTask("hello", "hello-world")}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.WriteHeader(http.StatusOK)
		_ = writeJSON(w, want)
	}))
	defer srv.Close()

	c := New(serverAddr(srv))
	got, err := c.GetTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, want[0].ID, got[0].ID)
}

func serverAddr(srv *httptest.Server) string {
	return srv.Listener.Addr().String()
}

func writeJSON(w http.ResponseWriter, v interface{}) error {
	return json.NewEncoder(w).Encode(v)
}
