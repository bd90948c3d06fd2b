package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cuemby/cube/pkg/metrics"
)

// HealthServer provides liveness/readiness/metrics endpoints shared by
// the Worker and Manager binaries.
type HealthServer struct {
	mux     *http.ServeMux
	readyFn func() bool
}

// NewHealthServer creates a health server. readyFn reports whether the
// caller is ready to serve traffic; nil means always ready.
func NewHealthServer(readyFn func() bool) *HealthServer {
	hs := &HealthServer{
		mux:     http.NewServeMux(),
		readyFn: readyFn,
	}

	hs.mux.HandleFunc("/health", hs.healthHandler)
	hs.mux.HandleFunc("/ready", hs.readyHandler)
	hs.mux.Handle("/metrics", metrics.Handler())

	return hs
}

// HealthResponse is the /health response body.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse is the /ready response body.
type ReadyResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// healthHandler is a liveness check: 200 if the process can handle requests.
func (hs *HealthServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	respond(w, http.StatusOK, HealthResponse{Status: "healthy", Timestamp: time.Now().UTC()})
}

// readyHandler reports whether the caller-supplied readiness check passes.
func (hs *HealthServer) readyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ready := hs.readyFn == nil || hs.readyFn()
	status := http.StatusOK
	body := ReadyResponse{Status: "ready", Timestamp: time.Now().UTC()}
	if !ready {
		status = http.StatusServiceUnavailable
		body.Status = "not ready"
	}
	respond(w, status, body)
}

// GetHandler returns the HTTP handler for embedding in other servers.
func (hs *HealthServer) GetHandler() http.Handler {
	return hs.mux
}

func respond(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
