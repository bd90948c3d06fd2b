// Package api is the plain-JSON HTTP surface for both the Worker and
// the Manager: chi routers over task.TaskEvent/task.Task bodies, plus
// shared health/ready/metrics endpoints. Neither router depends on the
// other; cmd/cube-worker and cmd/cube-manager each mount one.
package api
