// Package task defines the Task and TaskEvent data model and the
// transition table that governs how a Task's state may change.
package task

import (
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle state of a Task.
type State int

const (
	Pending State = iota
	Scheduled
	Running
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Scheduled:
		return "scheduled"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the state in its lowercase wire form.
func (s State) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON parses the lowercase wire form back into a State.
func (s *State) UnmarshalJSON(data []byte) error {
	str := string(data)
	str = str[1 : len(str)-1] // strip quotes
	switch str {
	case "pending":
		*s = Pending
	case "scheduled":
		*s = Scheduled
	case "running":
		*s = Running
	case "completed":
		*s = Completed
	case "failed":
		*s = Failed
	default:
		*s = Pending
	}
	return nil
}

// Protocol is the transport protocol of an exposed port.
type Protocol string

const (
	TCP Protocol = "Tcp"
	UDP Protocol = "Udp"
)

// Port is a single exposed port declaration on a Task.
type Port struct {
	Number   uint16   `json:"number"`
	Protocol Protocol `json:"protocol"`
}

// Task is the unit of work: a desired containerized workload plus its
// current observed state.
type Task struct {
	ID            uuid.UUID         `json:"id"`
	ContainerID   string            `json:"container_id"`
	Name          string            `json:"name"`
	State         State             `json:"state"`
	Image         string            `json:"image"`
	CPU           float64           `json:"cpu"`
	Memory        uint64            `json:"memory"`
	Disk          uint64            `json:"disk"`
	ExposedPorts  []Port            `json:"exposed_ports"`
	PortBindings  map[string]string `json:"port_bindings"`
	RestartPolicy string            `json:"restart_policy"`
	StartTime     *time.Time        `json:"start_time"`
	FinishTime    *time.Time        `json:"finish_time"`
}

// NewTask constructs a Task in the Pending state with empty maps/slices
// pre-populated so JSON round-trips don't produce nulls.
func NewTask(name, image string) Task {
	return Task{
		ID:           uuid.New(),
		Name:         name,
		Image:        image,
		State:        Pending,
		ExposedPorts: []Port{},
		PortBindings: map[string]string{},
	}
}

// TaskEvent is a timestamped request to drive a Task toward a target
// state.
type TaskEvent struct {
	ID        uuid.UUID `json:"id"`
	State     State     `json:"state"`
	Timestamp time.Time `json:"timestamp"`
	Task      Task      `json:"task"`
}

// NewTaskEvent wraps t in a fresh TaskEvent whose own state mirrors the
// embedded task's desired state.
func NewTaskEvent(t Task) TaskEvent {
	return TaskEvent{
		ID:        uuid.New(),
		State:     t.State,
		Timestamp: time.Now().UTC(),
		Task:      t,
	}
}

// Config is what a Runtime adapter needs to materialize a Task; it
// never leaves the process, unlike Task/TaskEvent which are wire
// formats.
type Config struct {
	Name          string
	Image         string
	CPU           float64
	Memory        uint64
	Disk          uint64
	ExposedPorts  []Port
	RestartPolicy string
	Env           []string
}

// NewConfig derives a Runtime Config from a Task. env is supplied by the
// caller since it isn't part of the Task wire format.
func NewConfig(t Task, env []string) Config {
	return Config{
		Name:          t.Name,
		Image:         t.Image,
		CPU:           t.CPU,
		Memory:        t.Memory,
		Disk:          t.Disk,
		ExposedPorts:  t.ExposedPorts,
		RestartPolicy: t.RestartPolicy,
		Env:           env,
	}
}
