package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric definitions with appropriate labels.
var (
	// transitionsTotal tracks committed state transitions by unit and
	// trigger (command or auto-advance).
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "packml_transitions_total",
		Help: "Total number of state transitions by unit, from_state, to_state, and trigger",
	}, []string{"unit", "from_state", "to_state", "trigger"})

	// commandsIgnored tracks commands that had no table entry for the
	// current state and were silently dropped.
	commandsIgnored = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "packml_commands_ignored_total",
		Help: "Total number of commands ignored because they were invalid in the current state",
	}, []string{"unit", "command", "state"})

	// autoAdvanceDiscarded tracks completions whose auto-advance was
	// dropped because the state had moved on by the time the work finished.
	autoAdvanceDiscarded = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "packml_auto_advance_discarded_total",
		Help: "Total number of stale auto-advances discarded after the state changed mid-flight",
	}, []string{"unit", "state"})
)
