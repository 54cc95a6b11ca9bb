/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package async

import "errors"

var (
	// ErrPoolStopped indicates the pool no longer accepts tasks.
	ErrPoolStopped = errors.New("async pool stopped")

	// ErrQueueFull indicates TrySubmit found no room in the queue.
	ErrQueueFull = errors.New("async pool queue full")

	// ErrStopTimeout indicates in-flight tasks did not finish before the stop deadline.
	ErrStopTimeout = errors.New("timeout waiting for async workers to stop")
)

// PanicError carries a value recovered from a panicking task.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return "async task panicked: " + fmtValue(e.Value)
}
