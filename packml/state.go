// Package packml models the ISA-88 / PackML equipment state machine: the
// closed set of unit states, the operator commands that drive them, and the
// standard transition graph. The package is pure data with no side effects;
// orchestration lives in the engine package.
package packml

import (
	"errors"
	"fmt"
)

// State is one of the 17 ISA-88 unit states.
type State int

const (
	Idle State = iota
	Starting
	Execute
	Completing
	Complete
	Holding
	Held
	Unholding
	Suspending
	Suspended
	Unsuspending
	Stopping
	Stopped
	Aborting
	Aborted
	Clearing
	Resetting

	numStates int = iota
)

// Kind classifies a state as stable or active.
type Kind int

const (
	// KindStable states have no associated work; the unit remains there
	// until an external command fires.
	KindStable Kind = iota

	// KindActive states have associated work and auto-advance to a fixed
	// next state once that work completes uncancelled. Execute is active
	// despite not ending in "-ing": it represents production running.
	KindActive
)

var stateNames = map[State]string{
	Idle:         "Idle",
	Starting:     "Starting",
	Execute:      "Execute",
	Completing:   "Completing",
	Complete:     "Complete",
	Holding:      "Holding",
	Held:         "Held",
	Unholding:    "Unholding",
	Suspending:   "Suspending",
	Suspended:    "Suspended",
	Unsuspending: "Unsuspending",
	Stopping:     "Stopping",
	Stopped:      "Stopped",
	Aborting:     "Aborting",
	Aborted:      "Aborted",
	Clearing:     "Clearing",
	Resetting:    "Resetting",
}

var stateKinds = map[State]Kind{
	Idle:         KindStable,
	Starting:     KindActive,
	Execute:      KindActive,
	Completing:   KindActive,
	Complete:     KindStable,
	Holding:      KindActive,
	Held:         KindStable,
	Unholding:    KindActive,
	Suspending:   KindActive,
	Suspended:    KindStable,
	Unsuspending: KindActive,
	Stopping:     KindActive,
	Stopped:      KindStable,
	Aborting:     KindActive,
	Aborted:      KindStable,
	Clearing:     KindActive,
	Resetting:    KindActive,
}

// ErrUnknownState is returned when parsing a string that names no state.
var ErrUnknownState = errors.New("unknown state")

// String returns the canonical PackML name of the state.
func (s State) String() string {
	name, ok := stateNames[s]
	if !ok {
		return fmt.Sprintf("State(%d)", int(s))
	}

	return name
}

// Kind returns whether the state is stable or active.
func (s State) Kind() Kind {
	return stateKinds[s]
}

// Valid returns true if s is one of the 17 defined states.
func (s State) Valid() bool {
	return s >= Idle && int(s) < numStates
}

// MarshalText implements encoding.TextMarshaler so states render by name
// in YAML and JSON documents.
func (s State) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownState, int(s))
	}

	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}

// ParseState resolves a canonical PackML state name.
func ParseState(name string) (State, error) {
	for state, stateName := range stateNames {
		if stateName == name {
			return state, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownState, name)
}

// States returns all 17 states in declaration order.
func States() []State {
	all := make([]State, 0, numStates)
	for s := Idle; int(s) < numStates; s++ {
		all = append(all, s)
	}

	return all
}

func (k Kind) String() string {
	switch k {
	case KindActive:
		return "active"
	case KindStable:
		return "stable"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}
