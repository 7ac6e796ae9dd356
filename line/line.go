// Package line supervises a group of PackML units as one production line:
// commands fan out to every unit over a bounded worker pool, and the line
// exposes an aggregated state snapshot. Coordination is strictly in-process;
// each unit keeps its own engine and its own state.
package line

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alitto/pond/v2"

	"github.com/unitops/packml/engine"
	"github.com/unitops/packml/packml"
)

const defaultWorkerCount = 4

var (
	// ErrDuplicateUnit is returned when adding a unit name twice.
	ErrDuplicateUnit = errors.New("unit already registered")
	// ErrUnknownUnit is returned when looking up a name that was never added.
	ErrUnknownUnit = errors.New("unknown unit")
)

// Line is a named group of engines driven together.
type Line struct {
	name string
	log  *slog.Logger
	pool pond.Pool

	mu    sync.RWMutex
	units map[string]*engine.Engine

	stopOnce sync.Once
}

// Option configures a Line.
type Option func(*options)

type options struct {
	workers int
	log     *slog.Logger
}

// WithWorkers sets the broadcast pool size. Defaults to 4.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// New creates an empty line and its broadcast worker pool.
func New(name string, opts ...Option) *Line {
	o := &options{
		workers: defaultWorkerCount,
		log:     slog.Default(),
	}

	for _, opt := range opts {
		opt(o)
	}

	return &Line{
		name:  name,
		log:   o.log,
		pool:  pond.NewPool(o.workers),
		units: make(map[string]*engine.Engine),
	}
}

// Name returns the line's name.
func (l *Line) Name() string {
	return l.name
}

// Add registers a unit under its engine's unit name.
func (l *Line) Add(e *engine.Engine) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	name := e.Unit()
	if _, exists := l.units[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateUnit, name)
	}

	l.units[name] = e

	l.log.Debug("unit added to line", "line", l.name, "unit", name)

	return nil
}

// Remove deregisters a unit without shutting it down.
func (l *Line) Remove(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.units[name]; !exists {
		return fmt.Errorf("%w: %s", ErrUnknownUnit, name)
	}

	delete(l.units, name)

	return nil
}

// Get returns a unit's engine by name.
func (l *Line) Get(name string) (*engine.Engine, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	e, exists := l.units[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUnit, name)
	}

	return e, nil
}

// Broadcast fans a command out to every unit concurrently over the pool and
// waits for all of them to accept or ignore it. Units where the command is
// invalid treat it as the usual silent no-op; the returned error joins the
// failures of units that could no longer take commands.
func (l *Line) Broadcast(cmd packml.Command) error {
	l.mu.RLock()
	snapshot := make([]*engine.Engine, 0, len(l.units))

	for _, e := range l.units {
		snapshot = append(snapshot, e)
	}
	l.mu.RUnlock()

	var (
		errMu sync.Mutex
		errs  []error
	)

	tasks := make([]pond.Task, 0, len(snapshot))

	for _, e := range snapshot {
		e := e

		tasks = append(tasks, l.pool.Submit(func() {
			if err := e.Apply(cmd); err != nil {
				errMu.Lock()
				errs = append(errs, err)
				errMu.Unlock()
			}
		}))
	}

	for _, task := range tasks {
		_ = task.Wait()
	}

	errMu.Lock()
	defer errMu.Unlock()

	return errors.Join(errs...)
}

// States returns each unit's state at roughly the same instant.
func (l *Line) States() map[string]packml.State {
	l.mu.RLock()
	defer l.mu.RUnlock()

	states := make(map[string]packml.State, len(l.units))
	for name, e := range l.units {
		states[name] = e.State()
	}

	return states
}

// Shutdown stops every unit within the context's deadline, then stops the
// broadcast pool. Idempotent.
func (l *Line) Shutdown(ctx context.Context) error {
	l.mu.RLock()
	snapshot := make([]*engine.Engine, 0, len(l.units))

	for _, e := range l.units {
		snapshot = append(snapshot, e)
	}
	l.mu.RUnlock()

	var errs []error

	for _, e := range snapshot {
		if err := e.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	l.stopOnce.Do(l.pool.StopAndWait)

	return errors.Join(errs...)
}
