// Package executor runs per-state work on a single dedicated worker
// goroutine, strictly sequentially and in submission order, with cooperative
// cancellation of whichever task is currently executing. It is the concurrency
// backbone of the engine package: commands submit work here and never wait
// for it, and a new command can preempt long-running work before the next
// state's work begins.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/atomic"

	"github.com/unitops/packml/channels"
	"github.com/unitops/packml/packml"
)

var (
	// ErrStopped is returned when submitting to an executor that has been
	// shut down.
	ErrStopped = errors.New("executor is stopped")
	// ErrActionPanic wraps a panic recovered from an action.
	ErrActionPanic = errors.New("panic in state action")
)

// Executor owns one worker goroutine and an unbounded FIFO inbox. Submit
// never blocks the caller; tasks run one at a time in submission order.
type Executor struct {
	unit string
	log  *slog.Logger

	inboxWrite chan<- *Task
	inboxRead  <-chan *Task
	queueLen   func() int

	mu      sync.Mutex // guards current
	current *Task

	stopped    *atomic.Bool
	stopOnce   sync.Once
	workerDone chan struct{}
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger used for fault and lifecycle logging.
// Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(e *Executor) {
		e.log = log
	}
}

// New creates an executor for the named unit and starts its worker
// goroutine. The worker runs until Shutdown is called.
func New(unit string, opts ...Option) *Executor {
	w, r, length := channels.Unbounded[*Task]()

	e := &Executor{
		unit:       unit,
		log:        slog.Default(),
		inboxWrite: w,
		inboxRead:  r,
		queueLen:   length,
		stopped:    atomic.NewBool(false),
		workerDone: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(e)
	}

	workersAlive.WithLabelValues(unit).Inc()
	tasksSubmitted.WithLabelValues(unit).Add(0)
	tasksCompleted.WithLabelValues(unit).Add(0)
	tasksCancelled.WithLabelValues(unit).Add(0)
	actionFaults.WithLabelValues(unit).Add(0)
	actionPanics.WithLabelValues(unit).Add(0)

	go e.work()

	return e
}

// Submit enqueues an action to run on the worker goroutine, tagged with the
// unit state it belongs to. The optional onDone callback is invoked on the
// worker goroutine once the task reaches a terminal status; the engine uses
// it to drive auto-advance. Fails with ErrStopped after Shutdown.
func (e *Executor) Submit(state packml.State, action Action, onDone func(*Task)) (task *Task, err error) {
	if e.stopped.Load() {
		return nil, ErrStopped
	}

	task = newTask(state, action, onDone)

	// Shutdown can close the inbox between the flag check above and the
	// send below; the resulting panic means the executor stopped.
	defer func() {
		if recover() != nil {
			task, err = nil, ErrStopped
		}
	}()

	e.inboxWrite <- task

	tasksSubmitted.WithLabelValues(e.unit).Inc()
	queueDepth.WithLabelValues(e.unit).Set(float64(e.queueLen()))

	return task, nil
}

// CancelCurrent requests cancellation of whichever task is presently
// executing. It is a no-op when the worker is idle and returns immediately;
// it never waits for the action to stop.
func (e *Executor) CancelCurrent() {
	e.mu.Lock()
	cur := e.current
	e.mu.Unlock()

	if cur != nil {
		cur.Cancel()
	}
}

// Shutdown stops accepting submissions, cancels the running task, and waits
// for the worker to drain within the context's deadline. Tasks still queued
// when shutdown begins finish as cancelled without executing. Idempotent.
func (e *Executor) Shutdown(ctx context.Context) error {
	e.stopOnce.Do(func() {
		e.stopped.Store(true)
		channels.CloseIgnorePanic(e.inboxWrite)
		e.CancelCurrent()
	})

	select {
	case <-e.workerDone:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("executor %s shutdown: %w", e.unit, ctx.Err())
	}
}

// work is the single worker loop. It exits when the inbox is closed and
// drained.
func (e *Executor) work() {
	defer close(e.workerDone)
	defer workersAlive.WithLabelValues(e.unit).Dec()

	for task := range e.inboxRead {
		e.runTask(task)
		queueDepth.WithLabelValues(e.unit).Set(float64(e.queueLen()))
	}
}

// runTask executes one task with panic recovery and classifies the outcome.
func (e *Executor) runTask(task *Task) {
	// Tasks cancelled before they started, or stranded in the queue when
	// shutdown began, never execute. Stranded tasks are marked cancelled so
	// completion callbacks can tell them from finished work.
	if task.Cancelled() || e.stopped.Load() {
		task.Cancel()
		task.finish(StatusCancelled, nil)
		tasksCancelled.WithLabelValues(e.unit).Inc()

		return
	}

	e.mu.Lock()
	e.current = task
	e.mu.Unlock()

	task.status.Store(int32(StatusRunning))
	workerBusy.WithLabelValues(e.unit).Set(1)

	start := time.Now()
	err := e.execute(task)
	elapsed := time.Since(start)

	e.mu.Lock()
	e.current = nil
	e.mu.Unlock()

	workerBusy.WithLabelValues(e.unit).Set(0)
	actionDuration.WithLabelValues(e.unit, task.state.String()).Observe(elapsed.Seconds())

	if task.Cancelled() {
		// A cancelled action returning its context's error is the
		// expected outcome of preemption, not a fault.
		e.log.Debug("state action cancelled",
			"unit", e.unit,
			"state", task.state.String(),
			"task", task.id.String())

		task.finish(StatusCancelled, nil)
		tasksCancelled.WithLabelValues(e.unit).Inc()

		return
	}

	if err != nil {
		actionFaults.WithLabelValues(e.unit).Inc()

		e.log.Error("state action fault",
			"unit", e.unit,
			"state", task.state.String(),
			"task", task.id.String(),
			"error", err)
	}

	task.finish(StatusCompleted, err)
	tasksCompleted.WithLabelValues(e.unit).Inc()
}

// execute runs the action with panic recovery. A panicking action is
// contained: the worker logs it, records metrics, and proceeds to the next
// task as if the faulted task had completed.
func (e *Executor) execute(task *Task) (err error) {
	tracer := otel.Tracer("packml/executor")

	ctx, span := tracer.Start(task.ctx, "action."+task.state.String())
	span.SetAttributes(
		attribute.String("unit", e.unit),
		attribute.String("state", task.state.String()),
		attribute.String("task_id", task.id.String()),
	)

	defer func() {
		if r := recover(); r != nil {
			actionPanics.WithLabelValues(e.unit).Inc()

			err = panicErr(task.state, r)

			e.log.Error("state action recovered from panic",
				"unit", e.unit,
				"state", task.state.String(),
				"error", err,
				"stack", string(debug.Stack()))
		}

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "completed")
		}

		span.End()
	}()

	return task.action.Execute(ctx)
}

// panicErr wraps a panic value into an error, preserving the original error
// if possible.
func panicErr(state packml.State, v any) error {
	if e, ok := v.(error); ok {
		return fmt.Errorf("%w in %s: %w", ErrActionPanic, state, e)
	}

	return fmt.Errorf("%w in %s: %v", ErrActionPanic, state, v)
}
