package engine

import (
	"log/slog"

	"github.com/unitops/packml/packml"
)

// Logger provides logging hooks for engine activity. Implementations must be
// safe for concurrent use; hooks fire from both command callers and the
// executor's worker goroutine.
type Logger interface {
	StateChanged(unit string, from, to packml.State, trigger Trigger)
	CommandIgnored(unit string, cmd packml.Command, state packml.State)
	AutoAdvanceDiscarded(unit string, state, current packml.State)
	ActionFaultHeld(unit string, state packml.State, err error)
}

// slogLogger implements Logger using slog.
type slogLogger struct {
	log *slog.Logger
}

// NewSlogLogger creates a Logger backed by the given slog logger. A nil
// argument uses slog.Default().
func NewSlogLogger(log *slog.Logger) Logger {
	if log == nil {
		log = slog.Default()
	}

	return &slogLogger{log: log}
}

func (l *slogLogger) StateChanged(unit string, from, to packml.State, trigger Trigger) {
	l.log.Info("state changed",
		"unit", unit,
		"from", from.String(),
		"to", to.String(),
		"trigger", string(trigger))
}

func (l *slogLogger) CommandIgnored(unit string, cmd packml.Command, state packml.State) {
	l.log.Debug("command ignored",
		"unit", unit,
		"command", cmd.String(),
		"state", state.String())
}

func (l *slogLogger) AutoAdvanceDiscarded(unit string, state, current packml.State) {
	l.log.Debug("stale auto-advance discarded",
		"unit", unit,
		"completed_state", state.String(),
		"current_state", current.String())
}

func (l *slogLogger) ActionFaultHeld(unit string, state packml.State, err error) {
	l.log.Warn("action fault held auto-advance",
		"unit", unit,
		"state", state.String(),
		"error", err)
}
