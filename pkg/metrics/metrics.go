package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Worker metrics
	WorkerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cube_worker_queue_depth",
			Help: "Number of tasks currently queued on this worker",
		},
	)

	WorkerTasksTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cube_worker_tasks_total",
			Help: "Number of tasks known to this worker, by state",
		},
		[]string{"state"},
	)

	WorkerRunTaskDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cube_worker_run_task_duration_seconds",
			Help:    "Time taken to process one run_task iteration",
			Buckets: prometheus.DefBuckets,
		},
	)

	WorkerRunTaskErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cube_worker_run_task_errors_total",
			Help: "Total number of run_task iterations that returned an error result",
		},
	)

	StatsCollectionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cube_worker_stats_collection_duration_seconds",
			Help:    "Time taken to collect one Stats snapshot",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Manager metrics
	ManagerPendingDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cube_manager_pending_depth",
			Help: "Number of TaskEvents currently queued in the Manager's pending queue",
		},
	)

	ManagerTasksTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cube_manager_tasks_total",
			Help: "Number of tasks known to the Manager, by state",
		},
		[]string{"state"},
	)

	ManagerWorkersTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cube_manager_workers_total",
			Help: "Number of workers registered with the Manager",
		},
	)

	DispatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cube_manager_dispatch_duration_seconds",
			Help:    "Time taken for one send_work dispatch cycle",
			Buckets: prometheus.DefBuckets,
		},
	)

	DispatchRequeuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cube_manager_dispatch_requeued_total",
			Help: "Total number of TaskEvents requeued after a transport failure",
		},
	)

	ReconciliationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cube_manager_reconciliation_duration_seconds",
			Help:    "Time taken for a reconciliation cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ReconciliationCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cube_manager_reconciliation_cycles_total",
			Help: "Total number of reconciliation cycles completed",
		},
	)

	ReconciliationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cube_manager_reconciliation_errors_total",
			Help: "Total number of per-worker reconciliation errors, by worker",
		},
		[]string{"worker"},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cube_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cube_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(
		WorkerQueueDepth,
		WorkerTasksTotal,
		WorkerRunTaskDuration,
		WorkerRunTaskErrors,
		StatsCollectionDuration,
		ManagerPendingDepth,
		ManagerTasksTotal,
		ManagerWorkersTotal,
		DispatchDuration,
		DispatchRequeuedTotal,
		ReconciliationDuration,
		ReconciliationCyclesTotal,
		ReconciliationErrorsTotal,
		APIRequestsTotal,
		APIRequestDuration,
	)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
