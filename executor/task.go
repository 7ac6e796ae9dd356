package executor

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/unitops/packml/packml"
)

// Status tracks a task through its lifecycle. A task moves pending ->
// running -> {completed | cancelled}, exactly once.
type Status int32

const (
	StatusPending Status = iota
	StatusRunning
	StatusCompleted
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Action is a unit of per-state work. Execute must poll ctx during long work
// and return promptly once it is cancelled; a clean cancellation must not be
// reported as an error beyond returning ctx.Err(). Actions touching shared
// external resources are responsible for their own mutual exclusion: the
// executor guarantees one action runs at a time, but a cancelled predecessor
// may still be winding down when its successor starts.
type Action interface {
	Execute(ctx context.Context) error
}

// ActionFunc adapts a function to the Action interface.
type ActionFunc func(ctx context.Context) error

func (f ActionFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

// Task is the handle returned by Submit. It owns a one-shot cancellation
// flag; cancelling is request-only and never kills the running action.
type Task struct {
	id        uuid.UUID
	state     packml.State
	action    Action
	status    *atomic.Int32
	cancelled *atomic.Bool
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	err       error
	onDone    func(*Task)
}

func newTask(state packml.State, action Action, onDone func(*Task)) *Task {
	ctx, cancel := context.WithCancel(context.Background())

	return &Task{
		id:        uuid.New(),
		state:     state,
		action:    action,
		status:    atomic.NewInt32(int32(StatusPending)),
		cancelled: atomic.NewBool(false),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		onDone:    onDone,
	}
}

// ID returns the task's unique identifier.
func (t *Task) ID() uuid.UUID {
	return t.id
}

// State returns the unit state this work was submitted for.
func (t *Task) State() packml.State {
	return t.state
}

// Status returns the task's current lifecycle status.
func (t *Task) Status() Status {
	return Status(t.status.Load())
}

// Cancel requests cooperative cancellation: the flag is set once and the
// action's context is cancelled. The call returns immediately; whether and
// when the action actually stops is up to the action.
func (t *Task) Cancel() {
	if t.cancelled.CompareAndSwap(false, true) {
		t.cancel()
	}
}

// Cancelled returns true once Cancel has been called.
func (t *Task) Cancelled() bool {
	return t.cancelled.Load()
}

// Done is closed when the task reaches a terminal status.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err returns the action's fault, if any. Only valid after Done is closed.
// Cancellation is not a fault: a task that returned its context's error after
// being cancelled reports nil.
func (t *Task) Err() error {
	return t.err
}

// finish moves the task to a terminal status. Called exactly once, by the
// worker goroutine. The completion callback runs before Done is closed so
// that anyone unblocked by Done observes the callback's effects.
func (t *Task) finish(status Status, err error) {
	t.err = err
	t.status.Store(int32(status))
	t.cancel()

	if t.onDone != nil {
		t.onDone(t)
	}

	close(t.done)
}
