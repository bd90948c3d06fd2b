package worker

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cuemby/cube/pkg/log"
	"github.com/cuemby/cube/pkg/metrics"
	"github.com/cuemby/cube/pkg/runtime"
	"github.com/cuemby/cube/pkg/stats"
	"github.com/cuemby/cube/pkg/task"
)

const (
	defaultRunLoopInterval   = 10 * time.Second
	defaultStatsLoopInterval = 10 * time.Second
)

// Worker holds one node's task queue, its authoritative task DB, and
// the latest published Stats snapshot. Its public methods are the
// whole contract; the run-loop and stats-loop are the only callers of
// RunTask and the stats provider's Refresh.
type Worker struct {
	Name string

	queueMu sync.Mutex
	queue   []task.Task

	dbMu sync.Mutex
	db   map[uuid.UUID]task.Task

	taskCount uint64

	runtime runtime.Runtime
	statsP  *stats.Provider

	runLoopInterval   time.Duration
	statsLoopInterval time.Duration

	logger zerolog.Logger
	stopCh chan struct{}
}

// New creates a Worker bound to rt, the only component permitted to
// touch the host container runtime.
func New(name string, rt runtime.Runtime) *Worker {
	return &Worker{
		Name:              name,
		db:                make(map[uuid.UUID]task.Task),
		runtime:           rt,
		statsP:            stats.NewProvider(),
		runLoopInterval:   defaultRunLoopInterval,
		statsLoopInterval: defaultStatsLoopInterval,
		logger:            log.WithComponent("worker").With().Str("worker", name).Logger(),
		stopCh:            make(chan struct{}),
	}
}

// SetIntervals overrides the run-loop and stats-loop tick intervals.
// Call before Start; zero values are ignored and keep the default.
func (w *Worker) SetIntervals(runLoop, statsLoop time.Duration) {
	if runLoop > 0 {
		w.runLoopInterval = runLoop
	}
	if statsLoop > 0 {
		w.statsLoopInterval = statsLoop
	}
}

// Start begins the run-loop and stats-loop.
func (w *Worker) Start() {
	go w.runLoop()
	go w.statsLoop()
}

// Stop terminates both background loops.
func (w *Worker) Stop() {
	close(w.stopCh)
}

// AddTask enqueues t at the tail of the queue. Non-blocking.
func (w *Worker) AddTask(t task.Task) {
	w.queueMu.Lock()
	w.queue = append(w.queue, t)
	w.queueMu.Unlock()
}

// RunTask pops one Task from the head of the queue and dispatches it.
// If the queue is empty it is a no-op success. Returns an error for
// illegal transitions or unsupported desired states without touching
// the runtime.
func (w *Worker) RunTask() error {
	t, ok := w.popQueue()
	if !ok {
		return nil
	}

	persisted, exists := w.lookupTask(t.ID)
	if !exists {
		persisted = t
		w.storeTask(persisted)
	}

	if !task.Valid(persisted.State, t.State) {
		metrics.WorkerRunTaskErrors.Inc()
		return fmt.Errorf("invalid state transition: %s -> %s", persisted.State, t.State)
	}

	switch t.State {
	case task.Scheduled:
		return w.startTask(t)
	case task.Completed:
		return w.stopTask(t)
	default:
		metrics.WorkerRunTaskErrors.Inc()
		return fmt.Errorf("invalid state transition")
	}
}

func (w *Worker) startTask(t task.Task) error {
	now := time.Now().UTC()
	t.StartTime = &now

	w.taskCount++
	result := w.runtime.Run(task.NewConfig(t, nil))
	if result.Err != nil {
		t.State = task.Failed
		w.storeTask(t)
		w.logger.Error().Err(result.Err).Str("task_id", t.ID.String()).Msg("failed to start task")
		return result.Err
	}

	t.ContainerID = result.ContainerID
	t.State = task.Running
	w.storeTask(t)
	w.logger.Info().Str("task_id", t.ID.String()).Str("container_id", t.ContainerID).Msg("task started")
	return nil
}

func (w *Worker) stopTask(t task.Task) error {
	result := w.runtime.Stop(t.ContainerID)
	if result.Err != nil {
		// Best-effort: the task still moves to Completed, matching
		// operator expectations that termination was requested.
		w.logger.Error().Err(result.Err).Str("task_id", t.ID.String()).Msg("runtime stop failed")
	}

	now := time.Now().UTC()
	t.FinishTime = &now
	t.State = task.Completed
	w.storeTask(t)
	w.logger.Info().Str("task_id", t.ID.String()).Msg("task stopped")
	return nil
}

// GetTasks returns a snapshot copy of the task DB's values.
func (w *Worker) GetTasks() []task.Task {
	w.dbMu.Lock()
	defer w.dbMu.Unlock()

	out := make([]task.Task, 0, len(w.db))
	for _, t := range w.db {
		out = append(out, t)
	}
	return out
}

// Stats returns the latest published Stats snapshot.
func (w *Worker) Stats() stats.Stats {
	return w.statsP.Latest()
}

func (w *Worker) popQueue() (task.Task, bool) {
	w.queueMu.Lock()
	defer w.queueMu.Unlock()

	if len(w.queue) == 0 {
		return task.Task{}, false
	}
	t := w.queue[0]
	w.queue = w.queue[1:]
	return t, true
}

func (w *Worker) lookupTask(id uuid.UUID) (task.Task, bool) {
	w.dbMu.Lock()
	defer w.dbMu.Unlock()
	t, ok := w.db[id]
	return t, ok
}

func (w *Worker) storeTask(t task.Task) {
	w.dbMu.Lock()
	w.db[t.ID] = t
	counts := make(map[task.State]int, len(w.db))
	for _, stored := range w.db {
		counts[stored.State]++
	}
	w.dbMu.Unlock()

	for _, state := range []task.State{task.Pending, task.Scheduled, task.Running, task.Completed, task.Failed} {
		metrics.WorkerTasksTotal.WithLabelValues(state.String()).Set(float64(counts[state]))
	}
}

func (w *Worker) runLoop() {
	ticker := time.NewTicker(w.runLoopInterval)
	defer ticker.Stop()

	w.logger.Info().Msg("run-loop started")
	for {
		select {
		case <-ticker.C:
			w.queueMu.Lock()
			depth := len(w.queue)
			w.queueMu.Unlock()
			metrics.WorkerQueueDepth.Set(float64(depth))

			if depth == 0 {
				w.logger.Debug().Msg("no tasks to process")
				continue
			}

			timer := metrics.NewTimer()
			if err := w.RunTask(); err != nil {
				w.logger.Error().Err(err).Msg("run_task failed")
			}
			timer.ObserveDuration(metrics.WorkerRunTaskDuration)
		case <-w.stopCh:
			w.logger.Info().Msg("run-loop stopped")
			return
		}
	}
}

func (w *Worker) statsLoop() {
	ticker := time.NewTicker(w.statsLoopInterval)
	defer ticker.Stop()

	w.logger.Info().Msg("stats-loop started")
	for {
		select {
		case <-ticker.C:
			timer := metrics.NewTimer()
			if err := w.statsP.Refresh(); err != nil {
				w.logger.Error().Err(err).Msg("failed to refresh stats")
			}
			timer.ObserveDuration(metrics.StatsCollectionDuration)
		case <-w.stopCh:
			w.logger.Info().Msg("stats-loop stopped")
			return
		}
	}
}
