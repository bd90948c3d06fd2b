package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cuemby/cube/pkg/task"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a task manifest to a running Manager",
	Long: `Submit reads a YAML-encoded task manifest and POSTs it to the
Manager's /tasks endpoint as a scheduled TaskEvent.

Example manifest:

  name: hello
  image: strm/helloworld-http
  cpu: 0.5
  memory: 134217728
  exposedPorts:
    - number: 80
      protocol: Tcp`,
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().StringP("file", "f", "", "YAML task manifest to submit (required)")
	submitCmd.Flags().String("manager", "127.0.0.1:8902", "Manager address")
	_ = submitCmd.MarkFlagRequired("file")
}

// taskManifest mirrors the fields of task.Task a user is expected to
// set by hand; ID, State, and the timestamps are computed on submit.
type taskManifest struct {
	Name          string            `yaml:"name"`
	Image         string            `yaml:"image"`
	CPU           float64           `yaml:"cpu"`
	Memory        uint64            `yaml:"memory"`
	Disk          uint64            `yaml:"disk"`
	ExposedPorts  []task.Port       `yaml:"exposedPorts"`
	PortBindings  map[string]string `yaml:"portBindings"`
	RestartPolicy string            `yaml:"restartPolicy"`
}

func runSubmit(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")
	managerAddr, _ := cmd.Flags().GetString("manager")

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var manifest taskManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	if manifest.Name == "" || manifest.Image == "" {
		return fmt.Errorf("manifest must set name and image")
	}

	t := task.NewTask(manifest.Name, manifest.Image)
	t.CPU = manifest.CPU
	t.Memory = manifest.Memory
	t.Disk = manifest.Disk
	if manifest.ExposedPorts != nil {
		t.ExposedPorts = manifest.ExposedPorts
	}
	if manifest.PortBindings != nil {
		t.PortBindings = manifest.PortBindings
	}
	t.RestartPolicy = manifest.RestartPolicy
	t.State = task.Scheduled

	te := task.NewTaskEvent(t)

	body, err := json.Marshal(te)
	if err != nil {
		return fmt.Errorf("failed to encode task event: %w", err)
	}

	httpClient := &http.Client{Timeout: 10 * time.Second}
	resp, err := httpClient.Post(fmt.Sprintf("http://%s/tasks", managerAddr), "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to reach manager at %s: %w", managerAddr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("manager rejected task: status %d", resp.StatusCode)
	}

	var created task.Task
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return fmt.Errorf("failed to decode manager response: %w", err)
	}

	fmt.Printf("✓ Task submitted: %s\n", created.Name)
	fmt.Printf("  ID: %s\n", created.ID)
	fmt.Printf("  Image: %s\n", created.Image)
	return nil
}
