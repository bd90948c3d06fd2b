package runtime

import (
	"context"
	"fmt"
	"syscall"
	"time"

	"github.com/containerd/containerd"
	"github.com/containerd/containerd/cio"
	"github.com/containerd/containerd/namespaces"
	"github.com/containerd/containerd/oci"
	"github.com/google/uuid"

	"github.com/cuemby/cube/pkg/task"
)

const (
	// DefaultNamespace is the containerd namespace Cube containers run in.
	DefaultNamespace = "cube"

	// DefaultSocketPath is the default containerd socket.
	DefaultSocketPath = "/run/containerd/containerd.sock"

	// defaultStopTimeout bounds how long Stop waits for a graceful exit
	// before escalating to SIGKILL.
	defaultStopTimeout = 10 * time.Second

	// cpuPeriod is the CFS bandwidth period used to translate a
	// fractional-core CPU request into quota/period, mirroring the
	// nano_cpus = round(cpu * 1e9) translation this adapter's contract
	// specifies, just expressed in containerd's native CFS units
	// instead of Docker-style nanocpus.
	cpuPeriod = 100000
)

// ContainerdRuntime implements Runtime using a containerd client.
type ContainerdRuntime struct {
	client    *containerd.Client
	namespace string
}

// NewContainerdRuntime connects to containerd at socketPath (or
// DefaultSocketPath if empty).
func NewContainerdRuntime(socketPath string) (*ContainerdRuntime, error) {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}

	client, err := containerd.New(socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to containerd: %w", err)
	}

	return &ContainerdRuntime{
		client:    client,
		namespace: DefaultNamespace,
	}, nil
}

// Close closes the containerd client connection.
func (r *ContainerdRuntime) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Run implements Runtime. It pulls the image if necessary, creates a
// container translating cfg's resource limits and env into an OCI
// spec, and starts it.
func (r *ContainerdRuntime) Run(cfg task.Config) RunResult {
	ctx := namespaces.WithNamespace(context.Background(), r.namespace)

	image, err := r.client.GetImage(ctx, cfg.Image)
	if err != nil {
		image, err = r.client.Pull(ctx, cfg.Image, containerd.WithPullUnpack)
		if err != nil {
			return RunResult{Err: fmt.Errorf("failed to pull image %s: %w", cfg.Image, err)}
		}
	}

	opts := []oci.SpecOpts{
		oci.WithImageConfig(image),
		oci.WithEnv(cfg.Env),
	}

	if cfg.CPU > 0 {
		quota := int64(cfg.CPU * cpuPeriod)
		opts = append(opts, oci.WithCPUCFS(quota, cpuPeriod))
	}
	if cfg.Memory > 0 {
		opts = append(opts, oci.WithMemoryLimit(cfg.Memory))
	}

	id := containerID(cfg.Name)
	ctrdContainer, err := r.client.NewContainer(
		ctx,
		id,
		containerd.WithImage(image),
		containerd.WithNewSnapshot(id+"-snapshot", image),
		containerd.WithNewSpec(opts...),
	)
	if err != nil {
		return RunResult{Err: fmt.Errorf("failed to create container: %w", err)}
	}

	ctrdTask, err := ctrdContainer.NewTask(ctx, cio.NullIO)
	if err != nil {
		return RunResult{Err: fmt.Errorf("failed to create task: %w", err)}
	}
	if err := ctrdTask.Start(ctx); err != nil {
		return RunResult{Err: fmt.Errorf("failed to start task: %w", err)}
	}

	return RunResult{ContainerID: ctrdContainer.ID()}
}

// Stop implements Runtime: SIGTERM, wait up to defaultStopTimeout,
// SIGKILL on timeout, then delete the container and its snapshot.
func (r *ContainerdRuntime) Stop(containerID string) StopResult {
	ctx := namespaces.WithNamespace(context.Background(), r.namespace)

	ctrdContainer, err := r.client.LoadContainer(ctx, containerID)
	if err != nil {
		// Already gone; stop is idempotent.
		return StopResult{}
	}

	if err := r.stopTask(ctx, ctrdContainer); err != nil {
		return StopResult{Err: err}
	}

	if err := ctrdContainer.Delete(ctx, containerd.WithSnapshotCleanup); err != nil {
		return StopResult{Err: fmt.Errorf("failed to delete container: %w", err)}
	}
	return StopResult{}
}

func (r *ContainerdRuntime) stopTask(ctx context.Context, c containerd.Container) error {
	ctrdTask, err := c.Task(ctx, nil)
	if err != nil {
		// No task means nothing is running.
		return nil
	}

	stopCtx, cancel := context.WithTimeout(ctx, defaultStopTimeout)
	defer cancel()

	if err := ctrdTask.Kill(stopCtx, syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to signal task: %w", err)
	}

	statusC, err := ctrdTask.Wait(stopCtx)
	if err != nil {
		return fmt.Errorf("failed to wait for task: %w", err)
	}

	select {
	case <-statusC:
	case <-stopCtx.Done():
		if err := ctrdTask.Kill(ctx, syscall.SIGKILL); err != nil {
			return fmt.Errorf("failed to force kill task: %w", err)
		}
	}

	if _, err := ctrdTask.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// containerID derives a containerd container ID from a task name plus
// a random suffix, since two tasks may share a name.
func containerID(name string) string {
	if name == "" {
		return uuid.New().String()
	}
	return name + "-" + uuid.New().String()[:8]
}
