package packml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardTableIsConsistent(t *testing.T) {
	t.Parallel()

	require.NoError(t, Standard().Check())
}

func TestStandardProductionPath(t *testing.T) {
	t.Parallel()

	tbl := Standard()

	target, ok := tbl.Validate(CommandStart, Idle)
	require.True(t, ok)
	assert.Equal(t, Starting, target)

	// Starting -> Execute -> Completing -> Complete via auto-advance.
	for _, step := range []struct {
		from, to State
	}{
		{Starting, Execute},
		{Execute, Completing},
		{Completing, Complete},
		{Resetting, Idle},
		{Stopping, Stopped},
		{Aborting, Aborted},
		{Clearing, Stopped},
		{Holding, Held},
		{Unholding, Execute},
		{Suspending, Suspended},
		{Unsuspending, Execute},
	} {
		next, ok := tbl.AutoAdvance(step.from)
		require.True(t, ok, step.from.String())
		assert.Equal(t, step.to, next, step.from.String())
	}

	target, ok = tbl.Validate(CommandReset, Complete)
	require.True(t, ok)
	assert.Equal(t, Resetting, target)
}

func TestStandardHoldSuspendBranches(t *testing.T) {
	t.Parallel()

	tbl := Standard()

	target, ok := tbl.Validate(CommandHold, Execute)
	require.True(t, ok)
	assert.Equal(t, Holding, target)

	target, ok = tbl.Validate(CommandUnhold, Held)
	require.True(t, ok)
	assert.Equal(t, Unholding, target)

	target, ok = tbl.Validate(CommandSuspend, Execute)
	require.True(t, ok)
	assert.Equal(t, Suspending, target)

	target, ok = tbl.Validate(CommandUnsuspend, Suspended)
	require.True(t, ok)
	assert.Equal(t, Unsuspending, target)

	// Hold and suspend are only valid from Execute.
	for _, from := range States() {
		if from == Execute {
			continue
		}

		_, ok := tbl.Validate(CommandHold, from)
		assert.False(t, ok, "hold from %s", from)

		_, ok = tbl.Validate(CommandSuspend, from)
		assert.False(t, ok, "suspend from %s", from)
	}

	// Held and Suspended units can still be stopped and aborted.
	for _, from := range []State{Held, Suspended} {
		target, ok := tbl.Validate(CommandStop, from)
		require.True(t, ok)
		assert.Equal(t, Stopping, target)

		target, ok = tbl.Validate(CommandAbort, from)
		require.True(t, ok)
		assert.Equal(t, Aborting, target)
	}
}

func TestStandardAbortAndStopCoverage(t *testing.T) {
	t.Parallel()

	tbl := Standard()

	for _, from := range States() {
		target, ok := tbl.Validate(CommandAbort, from)

		if from == Aborting || from == Aborted {
			assert.False(t, ok, "abort from %s", from)
		} else {
			require.True(t, ok, "abort from %s", from)
			assert.Equal(t, Aborting, target)
		}
	}

	for _, from := range []State{Stopping, Stopped, Aborting, Aborted, Clearing} {
		_, ok := tbl.Validate(CommandStop, from)
		assert.False(t, ok, "stop from %s", from)
	}
}

func TestUndefinedPairsAreMisses(t *testing.T) {
	t.Parallel()

	tbl := Standard()

	// A sampling of pairs the standard graph leaves undefined.
	for _, pair := range []struct {
		cmd Command
		cur State
	}{
		{CommandStart, Execute},
		{CommandStart, Aborted},
		{CommandClear, Idle},
		{CommandClear, Stopped},
		{CommandReset, Idle},
		{CommandReset, Execute},
		{CommandUnhold, Execute},
		{CommandUnsuspend, Held},
	} {
		_, ok := tbl.Validate(pair.cmd, pair.cur)
		assert.False(t, ok, "%s from %s", pair.cmd, pair.cur)
	}
}

func TestCheckRejectsBadGraphs(t *testing.T) {
	t.Parallel()

	// Missing auto-advance for an active state.
	missing := NewTable()
	missing.Add(Idle, CommandStart, Starting)
	require.ErrorIs(t, missing.Check(), ErrMissingAutoAdvance)

	// Auto-advance on a stable state.
	bad := Standard()
	bad.AddAuto(Idle, Starting)
	require.ErrorIs(t, bad.Check(), ErrAutoAdvanceOnStable)
}
