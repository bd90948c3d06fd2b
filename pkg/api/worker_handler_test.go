package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/cube/pkg/log"
	"github.com/cuemby/cube/pkg/runtime"
	"github.com/cuemby/cube/pkg/task"
	"github.com/cuemby/cube/pkg/worker"
)

type noopRuntime struct{}

func (noopRuntime) Run(task.Config) runtime.RunResult { return runtime.RunResult{ContainerID: "c1"} }
func (noopRuntime) Stop(string) runtime.StopResult    { return runtime.StopResult{} }

func newTestWorkerRouter() http.Handler {
	w := worker.New("worker-a", noopRuntime{})
	return NewWorkerRouter(w, log.Logger)
}

func TestWorkerStartTaskReturnsCreated(t *testing.T) {
	r := newTestWorkerRouter()

	tk := task.NewTask("hello", "hello-world")
	te := task.NewTaskEvent(tk)
	body, _ := json.Marshal(te)

	req := httptest.NewRequest(http.MethodPost, "/tasks/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var got task.Task
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, tk.ID, got.ID)
}

func TestWorkerStartTaskMalformedBody(t *testing.T) {
	r := newTestWorkerRouter()

	req := httptest.NewRequest(http.MethodPost, "/tasks/", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWorkerGetTasksListsQueuedTasks(t *testing.T) {
	r := newTestWorkerRouter()

	tk := task.NewTask("hello", "hello-world")
	te := task.NewTaskEvent(tk)
	body, _ := json.Marshal(te)
	postReq := httptest.NewRequest(http.MethodPost, "/tasks/", bytes.NewReader(body))
	r.ServeHTTP(httptest.NewRecorder(), postReq)

	req := httptest.NewRequest(http.MethodGet, "/tasks/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWorkerStopTaskMalformedID(t *testing.T) {
	r := newTestWorkerRouter()

	req := httptest.NewRequest(http.MethodDelete, "/tasks/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWorkerStopTaskUnknownID(t *testing.T) {
	r := newTestWorkerRouter()

	tk := task.NewTask("hello", "hello-world")
	req := httptest.NewRequest(http.MethodDelete, "/tasks/"+tk.ID.String(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWorkerStatsEndpoint(t *testing.T) {
	r := newTestWorkerRouter()

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
