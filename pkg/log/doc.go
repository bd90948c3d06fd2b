// Package log provides structured logging built on zerolog: a global
// logger initialized once via Init, and component-scoped child loggers
// (WithComponent, WithTask, WithWorker, WithEvent) for the Worker and
// Manager's background loops and HTTP handlers.
package log
