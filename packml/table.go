package packml

import (
	"errors"
	"fmt"
)

// Table is the transition graph: a partial function from (state, command) to
// the resulting state, plus a partial function from each active state to the
// state it auto-advances to when its work completes uncancelled. Pairs with
// no entry mean "command not valid from this state" — lookups report a miss,
// never an error.
type Table struct {
	transitions map[transitionKey]State
	auto        map[State]State
}

type transitionKey struct {
	state State
	cmd   Command
}

// Predefined table validation errors.
var (
	// ErrMissingAutoAdvance indicates an active state with no auto-advance entry.
	ErrMissingAutoAdvance = errors.New("active state has no auto-advance entry")
	// ErrAutoAdvanceOnStable indicates an auto-advance entry on a stable state.
	ErrAutoAdvanceOnStable = errors.New("stable state must not auto-advance")
)

// NewTable creates an empty table. Most callers want Standard instead.
func NewTable() *Table {
	return &Table{
		transitions: make(map[transitionKey]State),
		auto:        make(map[State]State),
	}
}

// Add registers a command transition.
func (t *Table) Add(from State, cmd Command, to State) *Table {
	t.transitions[transitionKey{state: from, cmd: cmd}] = to

	return t
}

// AddAuto registers an auto-advance edge for an active state.
func (t *Table) AddAuto(from, to State) *Table {
	t.auto[from] = to

	return t
}

// Validate looks up the target state for a command issued in the current
// state. The second return is false when the command is not valid there.
// Pure lookup, no side effects.
func (t *Table) Validate(cmd Command, current State) (State, bool) {
	target, ok := t.transitions[transitionKey{state: current, cmd: cmd}]

	return target, ok
}

// AutoAdvance looks up the state an active state advances to on uncancelled
// completion of its work. The second return is false for stable states.
func (t *Table) AutoAdvance(state State) (State, bool) {
	next, ok := t.auto[state]

	return next, ok
}

// Check verifies the table is internally consistent: every active state has
// an auto-advance entry and no stable state has one. The engine builder calls
// this eagerly so a bad graph fails at construction, not mid-run.
func (t *Table) Check() error {
	for _, state := range States() {
		_, hasAuto := t.auto[state]

		switch state.Kind() {
		case KindActive:
			if !hasAuto {
				return fmt.Errorf("%w: %s", ErrMissingAutoAdvance, state)
			}
		case KindStable:
			if hasAuto {
				return fmt.Errorf("%w: %s", ErrAutoAdvanceOnStable, state)
			}
		}
	}

	return nil
}

// Standard builds the full ISA-88 / PackML transition graph.
//
// The hold/suspend branches follow the published standard: hold and suspend
// are valid only from Execute, and the stable Held and Suspended states can
// still be stopped or aborted.
func Standard() *Table {
	t := NewTable()

	// Production path.
	t.Add(Idle, CommandStart, Starting)
	t.AddAuto(Starting, Execute)
	t.AddAuto(Execute, Completing)
	t.AddAuto(Completing, Complete)
	t.Add(Complete, CommandReset, Resetting)
	t.AddAuto(Resetting, Idle)

	// Hold branch.
	t.Add(Execute, CommandHold, Holding)
	t.AddAuto(Holding, Held)
	t.Add(Held, CommandUnhold, Unholding)
	t.AddAuto(Unholding, Execute)

	// Suspend branch.
	t.Add(Execute, CommandSuspend, Suspending)
	t.AddAuto(Suspending, Suspended)
	t.Add(Suspended, CommandUnsuspend, Unsuspending)
	t.AddAuto(Unsuspending, Execute)

	// Stop is valid from every state that is not already stopping, stopped,
	// or in the abort branch.
	for _, from := range []State{
		Idle, Starting, Execute, Completing, Complete,
		Holding, Held, Unholding,
		Suspending, Suspended, Unsuspending,
		Resetting,
	} {
		t.Add(from, CommandStop, Stopping)
	}

	t.AddAuto(Stopping, Stopped)
	t.Add(Stopped, CommandReset, Resetting)

	// Abort is valid from every state except Aborting and Aborted.
	for _, from := range States() {
		if from == Aborting || from == Aborted {
			continue
		}

		t.Add(from, CommandAbort, Aborting)
	}

	t.AddAuto(Aborting, Aborted)
	t.Add(Aborted, CommandClear, Clearing)
	t.AddAuto(Clearing, Stopped)

	return t
}
