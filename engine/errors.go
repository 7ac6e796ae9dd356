package engine

import (
	"errors"
	"fmt"

	"github.com/unitops/packml/executor"
	"github.com/unitops/packml/packml"
)

// Predefined error types.
var (
	// ErrStopped is returned by command methods once the engine has been
	// shut down. It aliases the executor's sentinel so errors.Is works
	// across both packages.
	ErrStopped = executor.ErrStopped

	// ErrUnitNameRequired indicates the builder was given no unit name.
	ErrUnitNameRequired = errors.New("unit name is required")
	// ErrInvalidInitialState indicates the initial state is not one of the
	// 17 PackML states.
	ErrInvalidInitialState = errors.New("invalid initial state")
	// ErrInvalidActionState indicates an action was registered for a state
	// that does not exist.
	ErrInvalidActionState = errors.New("action registered for invalid state")
	// ErrNilAction indicates a nil action was registered.
	ErrNilAction = errors.New("nil action registered")
	// ErrNilObserver indicates a nil observer was registered.
	ErrNilObserver = errors.New("nil observer registered")
	// ErrUnknownFaultPolicy is returned when parsing a fault policy name.
	ErrUnknownFaultPolicy = errors.New("unknown fault policy")
)

// CommandError wraps a failure to carry out a validated command, which can
// only happen when work can no longer be submitted.
type CommandError struct {
	Unit    string
	Command packml.Command
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("unit %s: command %s: %v", e.Unit, e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
