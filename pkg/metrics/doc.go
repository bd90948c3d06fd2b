// Package metrics defines the cube_* Prometheus metrics for both
// binaries: worker queue depth and task counts by state, manager
// pending depth, dispatch/reconciliation duration and counts, and API
// request counters. All metrics register at package init via
// prometheus.MustRegister; Handler serves them for scraping and Timer
// is a small helper for observing operation duration into a histogram.
package metrics
