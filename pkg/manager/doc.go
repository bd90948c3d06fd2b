// Package manager implements the central scheduler: a pending event
// queue, the task and event DBs, and the worker bookkeeping maps that
// back round-robin dispatch and periodic reconciliation. See Manager's
// doc comment for the mutex lock order a multi-map critical section
// must respect.
package manager
