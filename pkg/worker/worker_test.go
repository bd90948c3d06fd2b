package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/cube/pkg/runtime"
	"github.com/cuemby/cube/pkg/task"
)

// fakeRuntime is the stub Runtime used by tests, per this repo's
// design notes: the concrete runtime client never leaks into Worker
// code, so tests inject a fake instead of talking to containerd.
type fakeRuntime struct {
	runCalls  int
	stopCalls int
	runErr    error
	stopErr   error
	runID     string
}

func (f *fakeRuntime) Run(task.Config) runtime.RunResult {
	f.runCalls++
	if f.runErr != nil {
		return runtime.RunResult{Err: f.runErr}
	}
	id := f.runID
	if id == "" {
		id = "container-1"
	}
	return runtime.RunResult{ContainerID: id}
}

func (f *fakeRuntime) Stop(string) runtime.StopResult {
	f.stopCalls++
	if f.stopErr != nil {
		return runtime.StopResult{Err: f.stopErr}
	}
	return runtime.StopResult{}
}

func TestStartThenStopHappyPath(t *testing.T) {
	rt := &fakeRuntime{}
	w := New("worker-a", rt)

	t1 := task.NewTask("hello", "hello-world")
	t1.State = task.Scheduled
	w.AddTask(t1)

	require.NoError(t, w.RunTask())
	assert.Equal(t, 1, rt.runCalls)

	tasks := w.GetTasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, task.Running, tasks[0].State)
	assert.NotEmpty(t, tasks[0].ContainerID)

	stopReq := tasks[0]
	stopReq.State = task.Completed
	w.AddTask(stopReq)

	require.NoError(t, w.RunTask())
	assert.Equal(t, 1, rt.stopCalls)

	tasks = w.GetTasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, task.Completed, tasks[0].State)
	assert.NotNil(t, tasks[0].FinishTime)
}

func TestIllegalTransitionRejected(t *testing.T) {
	rt := &fakeRuntime{}
	w := New("worker-a", rt)

	t1 := task.NewTask("hello", "hello-world")
	t1.State = task.Running
	w.storeTask(t1)

	desired := t1
	desired.State = task.Pending
	w.AddTask(desired)

	err := w.RunTask()
	assert.Error(t, err)
	assert.Equal(t, 0, rt.runCalls)

	tasks := w.GetTasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, task.Running, tasks[0].State)
}

func TestRunTaskEmptyQueueIsNoOp(t *testing.T) {
	w := New("worker-a", &fakeRuntime{})
	assert.NoError(t, w.RunTask())
	assert.Empty(t, w.GetTasks())
}

func TestRuntimeStartErrorMarksFailed(t *testing.T) {
	rt := &fakeRuntime{runErr: assert.AnError}
	w := New("worker-a", rt)

	t1 := task.NewTask("hello", "hello-world")
	t1.State = task.Scheduled
	w.AddTask(t1)

	err := w.RunTask()
	assert.Error(t, err)

	tasks := w.GetTasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, task.Failed, tasks[0].State)
	assert.Empty(t, tasks[0].ContainerID)
}
