package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cuemby/cube/pkg/log"
	"github.com/cuemby/cube/pkg/task"
	"github.com/cuemby/cube/pkg/worker"
)

// WorkerHandler adapts a *worker.Worker to the Worker HTTP API.
type WorkerHandler struct {
	worker *worker.Worker
}

// NewWorkerHandler wraps w.
func NewWorkerHandler(w *worker.Worker) *WorkerHandler {
	return &WorkerHandler{worker: w}
}

// StartTask handles POST /tasks: add_task(te.task), 201 + the embedded Task.
func (h *WorkerHandler) StartTask(w http.ResponseWriter, r *http.Request) {
	var te task.TaskEvent
	if err := json.NewDecoder(r.Body).Decode(&te); err != nil {
		respondError(w, http.StatusBadRequest, "malformed task event")
		return
	}

	h.worker.AddTask(te.Task)
	log.WithTaskID(te.Task.ID.String()).Info().Msg("task added to worker queue")
	respond(w, http.StatusCreated, te.Task)
}

// GetTasks handles GET /tasks: 200, array of Task.
func (h *WorkerHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.worker.GetTasks())
}

// StopTask handles DELETE /tasks/{id}: clone the stored task, set
// state=Completed, add_task it. 400 on malformed id, 404 if unknown.
func (h *WorkerHandler) StopTask(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "malformed task id")
		return
	}

	tasks := h.worker.GetTasks()
	var found *task.Task
	for i := range tasks {
		if tasks[i].ID == id {
			found = &tasks[i]
			break
		}
	}
	if found == nil {
		respondError(w, http.StatusNotFound, "task not found")
		return
	}

	stopped := *found
	stopped.State = task.Completed
	h.worker.AddTask(stopped)

	w.WriteHeader(http.StatusNoContent)
}

// GetStats handles GET /stats: 200, latest Stats.
func (h *WorkerHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.worker.Stats())
}
