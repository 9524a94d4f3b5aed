package incr

import (
	"errors"
	"fmt"
)

// Consistency errors
var (
	// ErrConsistency indicates that a change record contradicts the state a computation tracks.
	// It means an upstream notification was missed or reordered.
	ErrConsistency = errors.New("incr: internal consistency violation")
)

// Usage errors
var (
	// ErrInactive indicates an operation that needs a computation to be consumed.
	ErrInactive = errors.New("incr: computation is not active")

	// ErrReentrant indicates a mutation issued from inside a change handler of the same computation,
	// or a validation requested while a change is being applied.
	ErrReentrant = errors.New("incr: re-entrant mutation")

	// ErrOutsideDispatcher indicates a change delivered outside the engine's dispatcher scope.
	ErrOutsideDispatcher = errors.New("incr: change delivered outside the dispatcher")

	// ErrConsumerDisposed indicates a consumer used after Dispose.
	ErrConsumerDisposed = errors.New("incr: consumer is disposed")

	// ErrDispatcherClosed indicates a dispatcher used after Close.
	ErrDispatcherClosed = errors.New("incr: dispatcher is closed")
)

// Configuration errors
var (
	ErrInvalidConfig = errors.New("incr: invalid configuration")
)

// ConsistencyError details a consistency violation.
type ConsistencyError struct {
	Computation string
	Op          string
	Reason      string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("%v: %s: %s: %s", ErrConsistency, e.Computation, e.Op, e.Reason)
}

func (e *ConsistencyError) Unwrap() error {
	return ErrConsistency
}
