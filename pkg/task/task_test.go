package task

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskJSONRoundTrip(t *testing.T) {
	start := time.Now().UTC().Truncate(time.Second)
	tk := Task{
		ID:            uuid.New(),
		ContainerID:   "c1",
		Name:          "web",
		State:         Running,
		Image:         "nginx:latest",
		CPU:           0.5,
		Memory:        134217728,
		Disk:          0,
		ExposedPorts:  []Port{{Number: 80, Protocol: TCP}},
		PortBindings:  map[string]string{"8080": "80"},
		RestartPolicy: "always",
		StartTime:     &start,
	}

	raw, err := json.Marshal(tk)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"state":"running"`)
	assert.Contains(t, string(raw), `"Tcp"`)

	var decoded Task
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, tk.ID, decoded.ID)
	assert.Equal(t, tk.State, decoded.State)
	assert.Equal(t, tk.ExposedPorts, decoded.ExposedPorts)
	assert.True(t, tk.StartTime.Equal(*decoded.StartTime))
}

func TestTaskEventWrapsState(t *testing.T) {
	tk := NewTask("web", "nginx")
	tk.State = Scheduled

	ev := NewTaskEvent(tk)
	assert.Equal(t, Scheduled, ev.State)
	assert.Equal(t, tk.ID, ev.Task.ID)
	assert.NotEqual(t, uuid.Nil, ev.ID)
}

func TestNewConfigDerivesFromTask(t *testing.T) {
	tk := NewTask("web", "nginx")
	tk.CPU = 1.5
	tk.Memory = 256
	tk.RestartPolicy = "on-failure"

	cfg := NewConfig(tk, []string{"FOO=bar"})
	assert.Equal(t, tk.Name, cfg.Name)
	assert.Equal(t, tk.Image, cfg.Image)
	assert.Equal(t, tk.CPU, cfg.CPU)
	assert.Equal(t, tk.Memory, cfg.Memory)
	assert.Equal(t, tk.RestartPolicy, cfg.RestartPolicy)
	assert.Equal(t, []string{"FOO=bar"}, cfg.Env)
}
