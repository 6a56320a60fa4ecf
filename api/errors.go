// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error values used across the runtime.

package api

import "errors"

var (
	// ErrAlreadyAdopted indicates a second adoption of the same thread.
	ErrAlreadyAdopted = errors.New("thread record already present")

	// ErrTopologyReinit indicates a second init of the topology service.
	ErrTopologyReinit = errors.New("topology already initialized")

	// ErrPoolRunning indicates a start of an already-started worker pool.
	ErrPoolRunning = errors.New("worker pool already running")

	// ErrNotWorker indicates a worker-only query from a foreign thread.
	ErrNotWorker = errors.New("calling thread is not a worker")

	// ErrRelayClosed indicates an operation on a closed relay handle.
	ErrRelayClosed = errors.New("relay handle is closed")

	// ErrBrokenWait indicates a blocking wait woken by break-all rather
	// than by an arriving operation.
	ErrBrokenWait = errors.New("wait broken by shutdown")

	// ErrNotSupported indicates the platform lacks the kernel shim.
	ErrNotSupported = errors.New("zuf relay not supported on this platform")
)
