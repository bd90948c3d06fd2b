package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/cuemby/cube/pkg/manager"
	"github.com/cuemby/cube/pkg/metrics"
	"github.com/cuemby/cube/pkg/worker"
)

// NewWorkerRouter builds the Worker's HTTP API: POST/GET /tasks,
// DELETE /tasks/{id}, GET /stats, plus health/ready/metrics.
func NewWorkerRouter(w *worker.Worker, logger zerolog.Logger) http.Handler {
	h := NewWorkerHandler(w)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Route("/tasks", func(r chi.Router) {
		r.Post("/", h.StartTask)
		r.Get("/", h.GetTasks)
		r.Delete("/{id}", h.StopTask)
	})
	r.Get("/stats", h.GetStats)

	mountHealth(r, nil)
	return r
}

// NewManagerRouter builds the Manager's HTTP API: POST/GET /tasks,
// DELETE /tasks/{id}, plus health/ready/metrics.
func NewManagerRouter(m *manager.Manager, logger zerolog.Logger) http.Handler {
	h := NewManagerHandler(m)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Route("/tasks", func(r chi.Router) {
		r.Post("/", h.SubmitTask)
		r.Get("/", h.GetTasks)
		r.Delete("/{id}", h.StopTask)
	})

	mountHealth(r, nil)
	return r
}

func mountHealth(r chi.Router, readyFn func() bool) {
	hs := NewHealthServer(readyFn)
	handler := hs.GetHandler()
	r.Get("/health", handler.ServeHTTP)
	r.Get("/ready", handler.ServeHTTP)
	r.Get("/metrics", handler.ServeHTTP)
}

// requestLogger logs each request's method, path, status, and latency
// at Info via the given zerolog.Logger, and records the same request
// into the API request counter/duration metrics.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			timer := metrics.NewTimer()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", timer.Duration()).
				Msg("request handled")

			metrics.APIRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(ww.Status())).Inc()
			timer.ObserveDurationVec(metrics.APIRequestDuration, r.Method)
		})
	}
}
