package recording

import (
	"errors"
	"fmt"
)

var (
	// ErrNothingToStop is returned by Stop outside Recording/Paused
	ErrNothingToStop = errors.New("nothing to stop")

	// ErrPauseUnsupported is returned when the capture cannot pause
	ErrPauseUnsupported = errors.New("pause not supported by capture device")

	// ErrInvalidTransition is returned for operations not allowed in the current state
	ErrInvalidTransition = errors.New("invalid state transition")
)

// StateConflictError reports an operation rejected for the current state.
// The machine is left unchanged.
type StateConflictError struct {
	Op    string
	State Kind
	Err   error
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("cannot %s while %s: %v", e.Op, e.State, e.Err)
}

func (e *StateConflictError) Unwrap() error {
	return e.Err
}

func conflict(op string, state Kind, err error) error {
	return &StateConflictError{Op: op, State: state, Err: err}
}

// IsStateConflict reports whether err is a StateConflictError
func IsStateConflict(err error) bool {
	var sc *StateConflictError
	return errors.As(err, &sc)
}
