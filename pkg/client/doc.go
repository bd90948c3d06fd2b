// Package client is the Manager's HTTP client for talking to a Worker:
// StartTask and GetTasks over plain JSON, with a three-way error
// taxonomy (ErrorReachingWorker, StatusCodeError, ErrorDecodingResponse)
// so callers can tell a retriable transport failure apart from a
// worker-side rejection.
package client
