// Package engine orchestrates the ISA-88 / PackML state machine for one
// equipment unit: it owns the current state, validates commands against the
// transition table, notifies observers synchronously, runs per-state actions
// on a single-worker executor, and auto-advances active states when their
// work completes uncancelled.
//
// All transitions — command-driven and auto-advance alike — are serialized
// through one mutex, so observers always see states in the exact order they
// were committed, with no coalescing or dropping. Observers are called with
// that mutex held and therefore must not issue commands synchronously from
// their callback.
package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/unitops/packml/executor"
	"github.com/unitops/packml/packml"
)

// Trigger records what caused a transition.
type Trigger string

const (
	// TriggerCommand marks transitions driven by an external command.
	TriggerCommand Trigger = "command"
	// TriggerAuto marks auto-advance transitions driven by completed work.
	TriggerAuto Trigger = "auto"
)

// Action is the pluggable per-state work contract.
type Action = executor.Action

// ActionFunc adapts a function to the Action interface.
type ActionFunc = executor.ActionFunc

// Engine drives one unit through the PackML state graph. Construct it with
// a Builder; the zero value is not usable.
type Engine struct {
	unit        string
	table       *packml.Table
	actions     map[packml.State]Action
	exec        *executor.Executor
	log         Logger
	faultPolicy FaultPolicy
	observers   *observerRegistry

	// mu is the single serialization point: every validate -> cancel ->
	// swap -> notify -> submit sequence runs under it, whether it
	// originates on a command caller or on the worker goroutine.
	mu   sync.Mutex
	cur  packml.State
	last *executor.Task

	// Lock-free mirrors so State and Status stay callable from observer
	// callbacks and hot paths.
	curMirror  *atomic.Int32
	seq        *atomic.Uint64
	lastChange *atomic.Time

	closed *atomic.Bool
}

// Status is a point-in-time snapshot of a unit.
type Status struct {
	Unit  string       `json:"unit"          yaml:"unit"`
	State packml.State `json:"state"         yaml:"state"`
	Kind  packml.Kind  `json:"-"             yaml:"-"`
	Since time.Time    `json:"since"         yaml:"since"`
	Seq   uint64       `json:"changeSeq"     yaml:"changeSeq"`
}

// State returns the current state. Safe to call from anywhere, including
// observer callbacks.
func (e *Engine) State() packml.State {
	return packml.State(e.curMirror.Load())
}

// Unit returns the unit name the engine was built with.
func (e *Engine) Unit() string {
	return e.unit
}

// Status returns a snapshot of the unit: state, kind, time of the last
// change, and a monotonically increasing change sequence.
func (e *Engine) Status() Status {
	state := e.State()

	return Status{
		Unit:  e.unit,
		State: state,
		Kind:  state.Kind(),
		Since: e.lastChange.Load(),
		Seq:   e.seq.Load(),
	}
}

// Command methods. Each validates against the transition table and is a
// silent no-op when the command has no entry for the current state: state
// unchanged, no notification, nil error. The only loud failure is issuing
// commands after Shutdown.

func (e *Engine) Start() error     { return e.Apply(packml.CommandStart) }
func (e *Engine) Stop() error      { return e.Apply(packml.CommandStop) }
func (e *Engine) Abort() error     { return e.Apply(packml.CommandAbort) }
func (e *Engine) Hold() error      { return e.Apply(packml.CommandHold) }
func (e *Engine) Unhold() error    { return e.Apply(packml.CommandUnhold) }
func (e *Engine) Suspend() error   { return e.Apply(packml.CommandSuspend) }
func (e *Engine) Unsuspend() error { return e.Apply(packml.CommandUnsuspend) }
func (e *Engine) Clear() error     { return e.Apply(packml.CommandClear) }
func (e *Engine) Reset() error     { return e.Apply(packml.CommandReset) }

// Apply dispatches a command by value. The named command methods all route
// through here; so does line.Broadcast.
func (e *Engine) Apply(cmd packml.Command) error {
	if e.closed.Load() {
		return &CommandError{Unit: e.unit, Command: cmd, Err: ErrStopped}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	target, ok := e.table.Validate(cmd, e.cur)
	if !ok {
		commandsIgnored.WithLabelValues(e.unit, cmd.String(), e.cur.String()).Inc()
		e.log.CommandIgnored(e.unit, cmd, e.cur)

		return nil
	}

	if err := e.transitionLocked(target, TriggerCommand); err != nil {
		return &CommandError{Unit: e.unit, Command: cmd, Err: err}
	}

	return nil
}

// AddObserver registers a state-change observer and returns a handle for
// removal. The observer sees transitions committed after registration.
func (e *Engine) AddObserver(fn Observer) ObserverHandle {
	return e.observers.add(fn)
}

// RemoveObserver deregisters an observer. Returns false if the handle is
// unknown or already removed.
func (e *Engine) RemoveObserver(h ObserverHandle) bool {
	return e.observers.remove(h)
}

// WaitFor blocks until the unit is observed in the wanted state or the
// context ends. It returns immediately if the unit is already there.
func (e *Engine) WaitFor(ctx context.Context, want packml.State) error {
	seen := make(chan struct{})

	var once sync.Once

	handle := e.AddObserver(func(s packml.State) {
		if s == want {
			once.Do(func() { close(seen) })
		}
	})
	defer e.RemoveObserver(handle)

	if e.State() == want {
		return nil
	}

	select {
	case <-seen:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops the engine: commands are rejected from now on and the
// executor drains within the context's deadline. Idempotent.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.closed.Store(true)

	return e.exec.Shutdown(ctx)
}

// transitionLocked performs the cancel -> swap -> notify -> submit sequence
// for a validated target state, chaining through active states that have no
// registered action. Caller must hold e.mu.
func (e *Engine) transitionLocked(target packml.State, trigger Trigger) error {
	for {
		// Request cancellation of the outgoing work before the incoming
		// work is submitted. Request-only: the old action may still be
		// winding down while the new one starts.
		if e.last != nil {
			e.last.Cancel()
			e.last = nil
		}

		from := e.cur
		e.cur = target
		e.curMirror.Store(int32(target))
		e.seq.Inc()
		e.lastChange.Store(time.Now())

		span := startTransitionSpan(e.unit, from, target, trigger)
		transitionsTotal.WithLabelValues(e.unit, from.String(), target.String(), string(trigger)).Inc()
		e.log.StateChanged(e.unit, from, target, trigger)

		e.observers.notify(target)

		if action, ok := e.actions[target]; ok {
			task, err := e.exec.Submit(target, action, e.completionHook(target))

			span.End()

			if err != nil {
				return err
			}

			e.last = task

			return nil
		}

		span.End()

		// Active state with no registered action: auto-advance applies
		// immediately, collapsing chains synchronously.
		next, ok := e.table.AutoAdvance(target)
		if !ok {
			return nil
		}

		target = next
		trigger = TriggerAuto
	}
}

// completionHook builds the executor callback that drives auto-advance when
// the work submitted for a state finishes. It runs on the worker goroutine
// and re-enters the same transition path commands use.
func (e *Engine) completionHook(from packml.State) func(*executor.Task) {
	return func(task *executor.Task) {
		// A cancelled task was preempted, or stranded in the queue at
		// shutdown; either way its work does not drive a transition.
		if task.Status() == executor.StatusCancelled {
			return
		}

		if task.Err() != nil && e.faultPolicy == FaultHold {
			e.log.ActionFaultHeld(e.unit, from, task.Err())

			return
		}

		e.mu.Lock()
		defer e.mu.Unlock()

		// Stale guard: the unit may have moved on between the action
		// finishing and this hook acquiring the lock — including leaving
		// and re-entering the same state, which resubmits the action as a
		// new task. Only the task the engine still considers outstanding
		// may advance the unit; comparing states alone is not enough.
		if e.last != task {
			autoAdvanceDiscarded.WithLabelValues(e.unit, from.String()).Inc()
			e.log.AutoAdvanceDiscarded(e.unit, from, e.cur)

			return
		}

		e.last = nil

		next, ok := e.table.AutoAdvance(from)
		if !ok {
			return
		}

		// Submission can only fail once shutdown has begun; the engine is
		// winding down and the advance is moot.
		_ = e.transitionLocked(next, TriggerAuto)
	}
}
