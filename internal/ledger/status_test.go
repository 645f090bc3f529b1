package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateTransitions(t *testing.T) {
	g := NewGate(StatusOnline)
	require.NoError(t, g.Admit())

	require.NoError(t, g.Transition(StatusCrashed))
	assert.ErrorIs(t, g.Admit(), ErrNotOnline)
	assert.ErrorIs(t, g.Transition(StatusOnline), ErrBadTransition)
	assert.ErrorIs(t, g.Transition(StatusCrashed), ErrBadTransition)

	require.NoError(t, g.Transition(StatusRecovering))
	assert.False(t, g.Online())
	assert.ErrorIs(t, g.Transition(StatusCrashed), ErrBadTransition)

	require.NoError(t, g.Transition(StatusOnline))
	assert.True(t, g.Online())

	// 已上線時的復原
	require.NoError(t, g.Transition(StatusRecovering))
}

func TestGateDefaults(t *testing.T) {
	var zero Gate
	assert.Equal(t, StatusOnline, zero.Status())
	assert.Equal(t, StatusOnline, NewGate("weird").Status())

	g := NewGate(StatusCrashed)
	g.Force(StatusOnline)
	assert.True(t, g.Online())
}
