package runtime

import "github.com/cuemby/cube/pkg/task"

// RunResult is the outcome of a Run call.
type RunResult struct {
	ContainerID string
	Err         error
}

// StopResult is the outcome of a Stop call.
type StopResult struct {
	Err error
}

// Runtime is the two-operation capability a Worker uses to materialize
// and tear down containers. It is the only component permitted to
// perform side effects on the host; concrete container clients (e.g.
// containerd) are injected behind this interface so the Worker core
// never depends on them directly.
type Runtime interface {
	// Run materializes an image, creates a container with the given
	// resource limits and env, and starts it.
	Run(cfg task.Config) RunResult
	// Stop stops, then removes, the container identified by
	// containerID. Volumes are dropped, links preserved, no force.
	Stop(containerID string) StopResult
}
