package manager

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cuemby/cube/pkg/client"
	"github.com/cuemby/cube/pkg/log"
	"github.com/cuemby/cube/pkg/metrics"
	"github.com/cuemby/cube/pkg/task"
)

const (
	defaultDispatchLoopInterval  = 1 * time.Second
	defaultReconcileLoopInterval = 10 * time.Second
)

// ErrTaskNotFound is returned when a lookup by task ID finds nothing
// in task_db.
var ErrTaskNotFound = errors.New("task not found")

// ErrNoWorkers is returned by selectWorker when the Manager has no
// workers to dispatch to.
var ErrNoWorkers = errors.New("no workers configured")

// WorkerClient is the subset of pkg/client.Client the Manager depends
// on. Defined here, at the point of use, so tests can inject a fake
// instead of making real HTTP calls.
type WorkerClient interface {
	StartTask(ctx context.Context, te task.TaskEvent) (task.Task, error)
	GetTasks(ctx context.Context) ([]task.Task, error)
}

// Manager holds the pending event queue, the task and event DBs, and
// the worker bookkeeping maps described by this package's lock order.
//
// Many mutexes are in play here. If a critical section needs more than
// one of them, they must be acquired in exactly the order they appear
// below: pending, task_db, event_db, worker_task_map, task_worker_map,
// last_worker. No re-entry, no upgrading a read into a write.
type Manager struct {
	pendingMu sync.Mutex
	pending   []task.TaskEvent

	taskDBMu sync.Mutex
	taskDB   map[uuid.UUID]task.Task

	eventDBMu sync.Mutex
	eventDB   map[uuid.UUID]task.TaskEvent

	workers []string

	workerTaskMapMu sync.Mutex
	workerTaskMap   map[string][]uuid.UUID

	taskWorkerMapMu sync.Mutex
	taskWorkerMap   map[uuid.UUID]string

	lastWorkerMu sync.Mutex
	lastWorker   int

	dial func(addr string) WorkerClient

	dispatchLoopInterval  time.Duration
	reconcileLoopInterval time.Duration

	logger zerolog.Logger
	stopCh chan struct{}
}

// New creates a Manager for the given worker addresses ("host:port").
func New(workers []string) *Manager {
	workerTaskMap := make(map[string][]uuid.UUID, len(workers))
	for _, w := range workers {
		workerTaskMap[w] = nil
	}

	metrics.ManagerWorkersTotal.Set(float64(len(workers)))

	return &Manager{
		taskDB:                make(map[uuid.UUID]task.Task),
		eventDB:               make(map[uuid.UUID]task.TaskEvent),
		workers:               workers,
		workerTaskMap:         workerTaskMap,
		taskWorkerMap:         make(map[uuid.UUID]string),
		lastWorker:            0,
		dial:                  func(addr string) WorkerClient { return client.New(addr) },
		dispatchLoopInterval:  defaultDispatchLoopInterval,
		reconcileLoopInterval: defaultReconcileLoopInterval,
		logger:                log.WithComponent("manager"),
		stopCh:                make(chan struct{}),
	}
}

// SetIntervals overrides the dispatch-loop and reconcile-loop tick
// intervals. Call before Start; zero values are ignored and keep the
// default.
func (m *Manager) SetIntervals(dispatch, reconcile time.Duration) {
	if dispatch > 0 {
		m.dispatchLoopInterval = dispatch
	}
	if reconcile > 0 {
		m.reconcileLoopInterval = reconcile
	}
}

// Start begins the dispatch and reconciliation loops.
func (m *Manager) Start() {
	go m.dispatchLoop()
	go m.reconcileLoop()
}

// Stop terminates both background loops.
func (m *Manager) Stop() {
	close(m.stopCh)
}

// AddTask appends te to the tail of pending.
func (m *Manager) AddTask(te task.TaskEvent) {
	m.pendingMu.Lock()
	m.pending = append(m.pending, te)
	m.pendingMu.Unlock()
}

// GetTasks returns a snapshot of task_db's values.
func (m *Manager) GetTasks() []task.Task {
	m.taskDBMu.Lock()
	defer m.taskDBMu.Unlock()

	out := make([]task.Task, 0, len(m.taskDB))
	for _, t := range m.taskDB {
		out = append(out, t)
	}
	return out
}

// GetTask looks up a single task by ID.
func (m *Manager) GetTask(id uuid.UUID) (task.Task, bool) {
	m.taskDBMu.Lock()
	defer m.taskDBMu.Unlock()
	t, ok := m.taskDB[id]
	return t, ok
}

// StopTask implements the stop-task handler shared by the Manager HTTP
// API: locate the task, clone it into Completed state, and enqueue a
// fresh stop TaskEvent. Returns ErrTaskNotFound if id is unknown.
func (m *Manager) StopTask(id uuid.UUID) error {
	t, ok := m.GetTask(id)
	if !ok {
		return ErrTaskNotFound
	}

	t.State = task.Completed
	te := task.TaskEvent{
		ID:        uuid.New(),
		State:     task.Completed,
		Timestamp: time.Now().UTC(),
		Task:      t,
	}
	m.AddTask(te)
	m.logger.Info().Str("task_id", id.String()).Str("event_id", te.ID.String()).Msg("queued stop event")
	return nil
}

// selectWorker advances last_worker round-robin and returns the
// chosen worker address. Not safe to call with zero workers.
func (m *Manager) selectWorker() (string, error) {
	if len(m.workers) == 0 {
		return "", ErrNoWorkers
	}

	m.lastWorkerMu.Lock()
	defer m.lastWorkerMu.Unlock()
	m.lastWorker = (m.lastWorker + 1) % len(m.workers)
	return m.workers[m.lastWorker], nil
}

// SendWork dispatches one event from the head of pending, if any.
//
// A normal event forces the dispatched task's state to Scheduled and
// picks a worker round-robin. A stop event (te.State == Completed, as
// produced by StopTask) bypasses select_worker entirely: it is routed
// to whichever worker task_worker_map says currently owns the task,
// and the dispatched task's state mirrors the event's state instead of
// being forced to Scheduled.
func (m *Manager) SendWork(ctx context.Context) {
	te, ok := m.popPending()
	if !ok {
		m.logger.Debug().Msg("no tasks in queue")
		return
	}

	dispatched := te.Task

	isStop := te.State == task.Completed

	var w string
	if isStop {
		dispatched.State = task.Completed
		var found bool
		w, found = m.lookupTaskWorker(dispatched.ID)
		if !found {
			m.logger.Error().Str("task_id", dispatched.ID.String()).Msg("no worker owns task, dropping stop event")
			return
		}
	} else {
		dispatched.State = task.Scheduled
		selected, err := m.selectWorker()
		if err != nil {
			m.logger.Error().Err(err).Msg("cannot select worker")
			return
		}
		w = selected
	}

	m.logger.Info().Str("task_id", dispatched.ID.String()).Str("worker", w).Msg("dispatching task")

	// Transactional bookkeeping: acquire task_db, event_db,
	// worker_task_map, task_worker_map together (in that order) and
	// release them together, before any HTTP I/O.
	m.taskDBMu.Lock()
	m.eventDBMu.Lock()
	m.workerTaskMapMu.Lock()
	m.taskWorkerMapMu.Lock()

	m.eventDB[te.ID] = te
	if !isStop {
		m.workerTaskMap[w] = append(m.workerTaskMap[w], dispatched.ID)
	}
	m.taskWorkerMap[dispatched.ID] = w
	m.taskDB[dispatched.ID] = dispatched

	m.taskWorkerMapMu.Unlock()
	m.workerTaskMapMu.Unlock()
	m.eventDBMu.Unlock()
	m.taskDBMu.Unlock()

	dispatchEvent := task.TaskEvent{
		ID:        te.ID,
		State:     dispatched.State,
		Timestamp: te.Timestamp,
		Task:      dispatched,
	}

	c := m.dial(w)
	_, err := c.StartTask(ctx, dispatchEvent)
	if err == nil {
		m.logger.Info().Str("task_id", dispatched.ID.String()).Msg("task sent to worker")
		return
	}

	var reachErr *client.ErrorReachingWorker
	if errors.As(err, &reachErr) {
		m.logger.Error().Err(err).Str("worker", w).Msg("error reaching worker, requeueing")
		m.AddTask(te)
		metrics.DispatchRequeuedTotal.Inc()
		return
	}

	m.logger.Error().Err(err).Str("worker", w).Msg("error sending task to worker, giving up")
}

// UpdateTasks pulls each worker's task list and merges state into
// task_db. Network, status, and decode errors are logged per-worker
// and do not interrupt reconciliation of the remaining workers. Tasks
// the Manager has no record of are silently ignored.
func (m *Manager) UpdateTasks(ctx context.Context) {
	for _, w := range m.workers {
		m.logger.Debug().Str("worker", w).Msg("checking worker for task updates")

		c := m.dial(w)
		tasks, err := c.GetTasks(ctx)
		if err != nil {
			m.logger.Error().Err(err).Str("worker", w).Msg("error getting tasks from worker")
			metrics.ReconciliationErrorsTotal.WithLabelValues(w).Inc()
			continue
		}

		m.taskDBMu.Lock()
		for _, t := range tasks {
			existing, ok := m.taskDB[t.ID]
			if !ok {
				continue
			}
			existing.State = t.State
			existing.StartTime = t.StartTime
			existing.FinishTime = t.FinishTime
			existing.ContainerID = t.ContainerID
			m.taskDB[t.ID] = existing
		}
		m.taskDBMu.Unlock()
	}

	m.reportTaskMetrics()
}

func (m *Manager) reportTaskMetrics() {
	counts := make(map[task.State]int)

	m.taskDBMu.Lock()
	for _, t := range m.taskDB {
		counts[t.State]++
	}
	m.taskDBMu.Unlock()

	for _, state := range []task.State{task.Pending, task.Scheduled, task.Running, task.Completed, task.Failed} {
		metrics.ManagerTasksTotal.WithLabelValues(state.String()).Set(float64(counts[state]))
	}
}

func (m *Manager) popPending() (task.TaskEvent, bool) {
	m.pendingMu.Lock()
	defer m.pendingMu.Unlock()

	if len(m.pending) == 0 {
		return task.TaskEvent{}, false
	}
	te := m.pending[0]
	m.pending = m.pending[1:]
	return te, true
}

func (m *Manager) lookupTaskWorker(id uuid.UUID) (string, bool) {
	m.taskWorkerMapMu.Lock()
	defer m.taskWorkerMapMu.Unlock()
	w, ok := m.taskWorkerMap[id]
	return w, ok
}

func (m *Manager) pendingDepth() int {
	m.pendingMu.Lock()
	defer m.pendingMu.Unlock()
	return len(m.pending)
}

func (m *Manager) dispatchLoop() {
	ticker := time.NewTicker(m.dispatchLoopInterval)
	defer ticker.Stop()

	m.logger.Info().Msg("dispatch loop started")
	for {
		select {
		case <-ticker.C:
			metrics.ManagerPendingDepth.Set(float64(m.pendingDepth()))
			timer := metrics.NewTimer()
			m.SendWork(context.Background())
			timer.ObserveDuration(metrics.DispatchDuration)
		case <-m.stopCh:
			m.logger.Info().Msg("dispatch loop stopped")
			return
		}
	}
}

func (m *Manager) reconcileLoop() {
	ticker := time.NewTicker(m.reconcileLoopInterval)
	defer ticker.Stop()

	m.logger.Info().Msg("reconciliation loop started")
	for {
		select {
		case <-ticker.C:
			timer := metrics.NewTimer()
			m.UpdateTasks(context.Background())
			timer.ObserveDuration(metrics.ReconciliationDuration)
			metrics.ReconciliationCyclesTotal.Inc()
		case <-m.stopCh:
			m.logger.Info().Msg("reconciliation loop stopped")
			return
		}
	}
}

// withDial overrides the worker-client factory. Exposed for tests only.
func (m *Manager) withDial(dial func(addr string) WorkerClient) {
	m.dial = dial
}
