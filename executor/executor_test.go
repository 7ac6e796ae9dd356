package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/unitops/packml/packml"
)

var errBoom = errors.New("boom")

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()

	e := New(t.Name(), WithLogger(slogt.New(t)))

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = e.Shutdown(ctx)
	})

	return e
}

func TestSubmitRunsSequentiallyInOrder(t *testing.T) {
	t.Parallel()

	e := newTestExecutor(t)

	var (
		mu      sync.Mutex
		order   []int
		running = atomic.NewInt32(0)
	)

	tasks := make([]*Task, 0, 20)

	for i := 0; i < 20; i++ {
		i := i

		task, err := e.Submit(packml.Execute, ActionFunc(func(ctx context.Context) error {
			// At most one action may ever be executing.
			assert.Equal(t, int32(1), running.Inc())
			defer running.Dec()

			mu.Lock()
			order = append(order, i)
			mu.Unlock()

			return nil
		}), nil)
		require.NoError(t, err)

		tasks = append(tasks, task)
	}

	for _, task := range tasks {
		<-task.Done()
		assert.Equal(t, StatusCompleted, task.Status())
		assert.NoError(t, task.Err())
	}

	mu.Lock()
	defer mu.Unlock()

	require.Len(t, order, 20)

	for i, got := range order {
		assert.Equal(t, i, got)
	}
}

func TestCancelCurrentIsCooperative(t *testing.T) {
	t.Parallel()

	e := newTestExecutor(t)

	started := make(chan struct{})

	task, err := e.Submit(packml.Starting, ActionFunc(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()

		return ctx.Err()
	}), nil)
	require.NoError(t, err)

	<-started
	assert.Equal(t, StatusRunning, task.Status())

	// Fire-and-forget; the action decides when to stop.
	e.CancelCurrent()

	<-task.Done()
	assert.Equal(t, StatusCancelled, task.Status())
	assert.True(t, task.Cancelled())
	// A clean cancellation is not a fault.
	assert.NoError(t, task.Err())
}

func TestCancelPendingTaskNeverExecutes(t *testing.T) {
	t.Parallel()

	e := newTestExecutor(t)

	started := make(chan struct{})
	release := make(chan struct{})

	first, err := e.Submit(packml.Starting, ActionFunc(func(ctx context.Context) error {
		close(started)
		<-release

		return nil
	}), nil)
	require.NoError(t, err)

	executed := atomic.NewBool(false)

	second, err := e.Submit(packml.Execute, ActionFunc(func(ctx context.Context) error {
		executed.Store(true)

		return nil
	}), nil)
	require.NoError(t, err)

	<-started
	second.Cancel()
	close(release)

	<-first.Done()
	<-second.Done()

	assert.Equal(t, StatusCompleted, first.Status())
	assert.Equal(t, StatusCancelled, second.Status())
	assert.False(t, executed.Load(), "cancelled pending task must not execute")
}

func TestCancelCurrentWhenIdleIsNoop(t *testing.T) {
	t.Parallel()

	e := newTestExecutor(t)

	e.CancelCurrent()

	task, err := e.Submit(packml.Execute, ActionFunc(func(ctx context.Context) error {
		return nil
	}), nil)
	require.NoError(t, err)

	<-task.Done()
	assert.Equal(t, StatusCompleted, task.Status())
}

func TestActionFaultDoesNotStopWorker(t *testing.T) {
	t.Parallel()

	e := newTestExecutor(t)

	faulted, err := e.Submit(packml.Starting, ActionFunc(func(ctx context.Context) error {
		return errBoom
	}), nil)
	require.NoError(t, err)

	next, err := e.Submit(packml.Execute, ActionFunc(func(ctx context.Context) error {
		return nil
	}), nil)
	require.NoError(t, err)

	<-faulted.Done()
	assert.Equal(t, StatusCompleted, faulted.Status())
	require.ErrorIs(t, faulted.Err(), errBoom)

	// The worker proceeds to the next queued task as if the faulted task
	// had completed.
	<-next.Done()
	assert.Equal(t, StatusCompleted, next.Status())
	assert.NoError(t, next.Err())
}

func TestActionPanicIsContained(t *testing.T) {
	t.Parallel()

	e := newTestExecutor(t)

	panicked, err := e.Submit(packml.Starting, ActionFunc(func(ctx context.Context) error {
		panic("wild panic")
	}), nil)
	require.NoError(t, err)

	next, err := e.Submit(packml.Execute, ActionFunc(func(ctx context.Context) error {
		return nil
	}), nil)
	require.NoError(t, err)

	<-panicked.Done()
	require.ErrorIs(t, panicked.Err(), ErrActionPanic)
	require.ErrorContains(t, panicked.Err(), "wild panic")

	<-next.Done()
	assert.Equal(t, StatusCompleted, next.Status())
}

func TestOnDoneRunsBeforeDoneCloses(t *testing.T) {
	t.Parallel()

	e := newTestExecutor(t)

	ran := atomic.NewBool(false)

	task, err := e.Submit(packml.Execute, ActionFunc(func(ctx context.Context) error {
		return nil
	}), func(done *Task) {
		assert.Equal(t, StatusCompleted, done.Status())
		ran.Store(true)
	})
	require.NoError(t, err)

	<-task.Done()
	assert.True(t, ran.Load(), "onDone must have run by the time Done closes")
}

func TestShutdownRejectsNewSubmissions(t *testing.T) {
	t.Parallel()

	e := New(t.Name(), WithLogger(slogt.New(t)))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, e.Shutdown(ctx))
	// Idempotent.
	require.NoError(t, e.Shutdown(ctx))

	_, err := e.Submit(packml.Execute, ActionFunc(func(ctx context.Context) error {
		return nil
	}), nil)
	require.ErrorIs(t, err, ErrStopped)
}

func TestShutdownCancelsQueuedTasks(t *testing.T) {
	t.Parallel()

	e := New(t.Name(), WithLogger(slogt.New(t)))

	started := make(chan struct{})

	running, err := e.Submit(packml.Starting, ActionFunc(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()

		return ctx.Err()
	}), nil)
	require.NoError(t, err)

	executed := atomic.NewBool(false)

	queued, err := e.Submit(packml.Execute, ActionFunc(func(ctx context.Context) error {
		executed.Store(true)

		return nil
	}), nil)
	require.NoError(t, err)

	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, e.Shutdown(ctx))

	<-running.Done()
	<-queued.Done()

	assert.Equal(t, StatusCancelled, running.Status())
	assert.Equal(t, StatusCancelled, queued.Status())
	assert.True(t, queued.Cancelled(), "stranded task must carry the cancel flag")
	assert.False(t, executed.Load(), "queued task must not execute after shutdown")
}

func TestShutdownWaitIsBounded(t *testing.T) {
	t.Parallel()

	e := New(t.Name(), WithLogger(slogt.New(t)))

	release := make(chan struct{})
	started := make(chan struct{})

	// An action that ignores its cancellation signal: liveness depends on
	// the action, so shutdown must give up at the deadline.
	_, err := e.Submit(packml.Execute, ActionFunc(func(ctx context.Context) error {
		close(started)
		<-release

		return nil
	}), nil)
	require.NoError(t, err)

	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = e.Shutdown(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// Let the stubborn action go and drain for real.
	close(release)

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()

	require.NoError(t, e.Shutdown(ctx2))
}
