package engine

import (
	"fmt"
	"log/slog"
	"time"

	"go.uber.org/atomic"

	"github.com/unitops/packml/executor"
	"github.com/unitops/packml/packml"
)

// FaultPolicy decides what a faulted action does to auto-advance. The
// original controllers never distinguished fault from success, so advancing
// is the default; FaultHold is for units where advancing past a fault is
// worse than stalling in the active state until an operator intervenes.
type FaultPolicy int

const (
	// FaultAdvance treats a faulted action like a completed one: the unit
	// auto-advances as usual.
	FaultAdvance FaultPolicy = iota
	// FaultHold suppresses auto-advance after a fault; the unit stays in
	// the active state until a command moves it.
	FaultHold
)

func (p FaultPolicy) String() string {
	switch p {
	case FaultAdvance:
		return "advance"
	case FaultHold:
		return "hold"
	default:
		return fmt.Sprintf("FaultPolicy(%d)", int(p))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p FaultPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *FaultPolicy) UnmarshalText(text []byte) error {
	switch string(text) {
	case "advance", "":
		*p = FaultAdvance
	case "hold":
		*p = FaultHold
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFaultPolicy, string(text))
	}

	return nil
}

// Builder constructs an Engine. All registration happens before Build; the
// resulting engine's table and action registry are immutable.
type Builder struct {
	unit        string
	initial     packml.State
	table       *packml.Table
	actions     map[packml.State]Action
	observers   []Observer
	logger      Logger
	slogger     *slog.Logger
	faultPolicy FaultPolicy
	buildErr    error
}

// NewBuilder creates a builder for the named unit. The initial state
// defaults to Idle and the table to the standard PackML graph.
func NewBuilder(unit string) *Builder {
	return &Builder{
		unit:    unit,
		initial: packml.Idle,
		actions: make(map[packml.State]Action),
	}
}

// WithInitialState sets the state the unit starts in.
func (b *Builder) WithInitialState(state packml.State) *Builder {
	b.initial = state

	return b
}

// WithTable overrides the standard transition table.
func (b *Builder) WithTable(table *packml.Table) *Builder {
	b.table = table

	return b
}

// WithAction registers the work to run whenever the unit enters the given
// state. States with no registered action skip the submit step; active ones
// auto-advance immediately.
func (b *Builder) WithAction(state packml.State, action Action) *Builder {
	if action == nil {
		b.fail(fmt.Errorf("%w: %s", ErrNilAction, state))

		return b
	}

	if !state.Valid() {
		b.fail(fmt.Errorf("%w: %s", ErrInvalidActionState, state))

		return b
	}

	b.actions[state] = action

	return b
}

// WithActionFunc registers a function as the state's action.
func (b *Builder) WithActionFunc(state packml.State, fn ActionFunc) *Builder {
	return b.WithAction(state, fn)
}

// WithObserver preregisters a state-change observer.
func (b *Builder) WithObserver(fn Observer) *Builder {
	if fn == nil {
		b.fail(ErrNilObserver)

		return b
	}

	b.observers = append(b.observers, fn)

	return b
}

// WithLogger sets the engine's Logger hooks.
func (b *Builder) WithLogger(logger Logger) *Builder {
	b.logger = logger

	return b
}

// WithSlog sets the slog logger used for the default Logger hooks and for
// the executor. Ignored if WithLogger was also given.
func (b *Builder) WithSlog(log *slog.Logger) *Builder {
	b.slogger = log

	return b
}

// WithFaultPolicy sets what a faulted action does to auto-advance.
func (b *Builder) WithFaultPolicy(policy FaultPolicy) *Builder {
	b.faultPolicy = policy

	return b
}

func (b *Builder) fail(err error) {
	if b.buildErr == nil {
		b.buildErr = err
	}
}

// Build validates the configuration eagerly and returns a running engine:
// the executor's worker goroutine starts here and lives until Shutdown.
func (b *Builder) Build() (*Engine, error) {
	if b.buildErr != nil {
		return nil, b.buildErr
	}

	if b.unit == "" {
		return nil, ErrUnitNameRequired
	}

	if !b.initial.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidInitialState, int(b.initial))
	}

	table := b.table
	if table == nil {
		table = packml.Standard()
	}

	if err := table.Check(); err != nil {
		return nil, fmt.Errorf("transition table: %w", err)
	}

	slogger := b.slogger
	if slogger == nil {
		slogger = slog.Default()
	}

	logger := b.logger
	if logger == nil {
		logger = NewSlogLogger(slogger)
	}

	actions := make(map[packml.State]Action, len(b.actions))
	for state, action := range b.actions {
		actions[state] = action
	}

	e := &Engine{
		unit:        b.unit,
		table:       table,
		actions:     actions,
		exec:        executor.New(b.unit, executor.WithLogger(slogger)),
		log:         logger,
		faultPolicy: b.faultPolicy,
		observers:   newObserverRegistry(),
		cur:         b.initial,
		curMirror:   atomic.NewInt32(int32(b.initial)),
		seq:         atomic.NewUint64(0),
		lastChange:  atomic.NewTime(time.Now()),
		closed:      atomic.NewBool(false),
	}

	for _, fn := range b.observers {
		e.observers.add(fn)
	}

	return e, nil
}
