package qdispatch

import "errors"

// Sentinel errors returned by the Dispatch Core. Callers should use
// errors.Is against these rather than comparing strings.
var (
	// ErrSubmit wraps any failure encountered while handing a task to a
	// pilot job or the reference cluster manager.
	ErrSubmit = errors.New("qdispatch: submit failed")

	// ErrNotInitialized is returned when a Dispatcher operation that
	// requires DREAMER is called before InitializeDreamer.
	ErrNotInitialized = errors.New("qdispatch: dreamer not initialized")

	// ErrNoQuantumPilots is returned by InitializeDreamer when no added
	// pilot declares a quantum resource_type.
	ErrNoQuantumPilots = errors.New("qdispatch: no quantum pilots configured")

	// ErrNoResources is returned when the resource catalogue is empty.
	ErrNoResources = errors.New("qdispatch: no quantum resources available")

	// ErrUnsupportedExecutor is returned when a resource names an
	// executor family with no registered adapter.
	ErrUnsupportedExecutor = errors.New("qdispatch: unsupported executor family")

	// ErrNoSuitableResource is returned when the selector's strategy
	// cannot find any resource meeting a task's requirements.
	ErrNoSuitableResource = errors.New("qdispatch: no suitable resource found")

	// ErrCapacityLimited is returned when a regulator refuses to admit a
	// job into the reference cluster manager.
	ErrCapacityLimited = errors.New("qdispatch: capacity limited, try again")
)

// ExecutionError wraps the error returned by an executor adapter verbatim,
// preserving it under errors.Unwrap while identifying which resource and
// task were involved.
type ExecutionError struct {
	TaskID     string
	Resource   string
	Underlying error
}

func (e *ExecutionError) Error() string {
	return "qdispatch: execution of task " + e.TaskID + " on " + e.Resource + " failed: " + e.Underlying.Error()
}

func (e *ExecutionError) Unwrap() error {
	return e.Underlying
}
