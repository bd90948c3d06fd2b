package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cuemby/cube/pkg/log"
	"github.com/cuemby/cube/pkg/manager"
	"github.com/cuemby/cube/pkg/task"
)

// ManagerHandler adapts a *manager.Manager to the Manager HTTP API.
type ManagerHandler struct {
	manager *manager.Manager
}

// NewManagerHandler wraps m.
func NewManagerHandler(m *manager.Manager) *ManagerHandler {
	return &ManagerHandler{manager: m}
}

// SubmitTask handles POST /tasks: add_task(te), 201 + the embedded Task.
func (h *ManagerHandler) SubmitTask(w http.ResponseWriter, r *http.Request) {
	var te task.TaskEvent
	if err := json.NewDecoder(r.Body).Decode(&te); err != nil {
		respondError(w, http.StatusBadRequest, "malformed task event")
		return
	}

	h.manager.AddTask(te)
	log.WithTaskID(te.Task.ID.String()).Info().Msg("task added to pending queue")
	respond(w, http.StatusCreated, te.Task)
}

// GetTasks handles GET /tasks: 200, array of Task.
func (h *ManagerHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, h.manager.GetTasks())
}

// StopTask handles DELETE /tasks/{id}: 204, 404 if absent. Constructs
// the stop TaskEvent as described by the Manager core's StopTask.
func (h *ManagerHandler) StopTask(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "malformed task id")
		return
	}

	if err := h.manager.StopTask(id); err != nil {
		if errors.Is(err, manager.ErrTaskNotFound) {
			respondError(w, http.StatusNotFound, "task not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to stop task")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
