package uthread

import "errors"

// Error kinds returned by this package. Operations return one of these
// (wrapped with additional context via fmt.Errorf("%w: ...")) on failure and
// nil on success — the idiomatic-Go substitute for the positive/zero/negative
// integer return convention of the source this package is a port of.
var (
	// ErrInvalidArgument is returned for nil handles, non-positive sleep
	// durations, and semaphore initial values outside {0,1}.
	ErrInvalidArgument = errors.New("uthread: invalid argument")

	// ErrUninitialized is returned when a semaphore operation targets a
	// semaphore that was never created.
	ErrUninitialized = errors.New("uthread: semaphore not initialized")

	// ErrDoubleInit is returned by Runtime.CreateSem on an already-initialized
	// semaphore.
	ErrDoubleInit = errors.New("uthread: semaphore already initialized")

	// ErrNotFound is returned by Destroy when the thread is not present
	// in the run queue.
	ErrNotFound = errors.New("uthread: thread not found in run queue")

	// ErrAllocation is returned by Runtime.Create when a thread entry record
	// cannot be obtained from its pool.
	ErrAllocation = errors.New("uthread: allocation failed")

	// ErrPrimitive is returned when an underlying OS or runtime primitive
	// (context capture, timer/signal installation) fails.
	ErrPrimitive = errors.New("uthread: primitive failure")

	// ErrNotRunning is returned by operations that require the runtime to
	// have been started with Init.
	ErrNotRunning = errors.New("uthread: runtime not initialized")
)
