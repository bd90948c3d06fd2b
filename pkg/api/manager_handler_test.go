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
	"github.com/cuemby/cube/pkg/manager"
	"github.com/cuemby/cube/pkg/task"
)

func newTestManagerRouter() (http.Handler, *manager.Manager) {
	m := manager.New(nil)
	return NewManagerRouter(m, log.Logger), m
}

func TestManagerSubmitTaskReturnsCreated(t *testing.T) {
	r, _ := newTestManagerRouter()

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

func TestManagerGetTasksEmptyInitially(t *testing.T) {
	r, _ := newTestManagerRouter()

	req := httptest.NewRequest(http.MethodGet, "/tasks/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var got []task.Task
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Empty(t, got)
}

func TestManagerStopTaskMalformedID(t *testing.T) {
	r, _ := newTestManagerRouter()

	req := httptest.NewRequest(http.MethodDelete, "/tasks/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestManagerStopTaskUnknownID(t *testing.T) {
	r, _ := newTestManagerRouter()

	tk := task.NewTask("hello", "hello-world")
	req := httptest.NewRequest(http.MethodDelete, "/tasks/"+tk.ID.String(), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
