// Package runtime defines the Runtime capability (Run/Stop) the Worker
// core depends on, plus its only concrete implementation: a containerd
// client. New container runtimes plug in by implementing Runtime; the
// Worker never imports containerd directly.
package runtime
