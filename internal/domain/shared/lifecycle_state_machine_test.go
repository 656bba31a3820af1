package shared_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

func TestLifecycleStateMachine_HappyPath(t *testing.T) {
	// Arrange
	clock := shared.NewMockClock(time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC))
	sm := shared.NewLifecycleStateMachine(clock)

	// Assert initial state
	assert.Equal(t, shared.LifecycleStatusPending, sm.Status())
	assert.True(t, sm.IsPending())
	assert.False(t, sm.IsRunning())

	// Act
	require.NoError(t, sm.Start())
	clock.Advance(42 * time.Second)
	require.NoError(t, sm.Complete())

	// Assert
	assert.Equal(t, shared.LifecycleStatusCompleted, sm.Status())
	assert.True(t, sm.IsFinished())
	assert.Equal(t, 42*time.Second, sm.RuntimeDuration())
}

func TestLifecycleStateMachine_InvalidTransitions(t *testing.T) {
	clock := shared.NewMockClock(time.Now().UTC())
	sm := shared.NewLifecycleStateMachine(clock)

	assert.Error(t, sm.Complete(), "cannot complete before starting")

	require.NoError(t, sm.Start())
	assert.Error(t, sm.Start(), "cannot start twice")

	require.NoError(t, sm.Complete())
	assert.Error(t, sm.Stop(), "cannot stop a completed machine")
	assert.Error(t, sm.Fail(errors.New("late failure")), "cannot fail a completed machine")
}

func TestLifecycleStateMachine_FailRecordsError(t *testing.T) {
	clock := shared.NewMockClock(time.Now().UTC())
	sm := shared.NewLifecycleStateMachine(clock)
	require.NoError(t, sm.Start())

	cause := errors.New("navigation rejected")
	require.NoError(t, sm.Fail(cause))

	assert.Equal(t, shared.LifecycleStatusFailed, sm.Status())
	assert.Equal(t, cause, sm.LastError())
	assert.NotNil(t, sm.StoppedAt())
}

func TestLifecycleStateMachine_RestartAfterStop(t *testing.T) {
	clock := shared.NewMockClock(time.Now().UTC())
	sm := shared.NewLifecycleStateMachine(clock)
	require.NoError(t, sm.Start())
	require.NoError(t, sm.Stop())

	// STOPPED machines can be started again; the supervisor relies on this.
	require.NoError(t, sm.Start())
	assert.True(t, sm.IsRunning())
}

func TestLifecycleStateMachine_ResetForRestart(t *testing.T) {
	clock := shared.NewMockClock(time.Now().UTC())
	sm := shared.NewLifecycleStateMachine(clock)
	require.NoError(t, sm.Start())
	require.NoError(t, sm.Fail(errors.New("boom")))

	sm.ResetForRestart()

	assert.True(t, sm.IsPending())
	assert.Nil(t, sm.LastError())
	assert.Nil(t, sm.StartedAt())
	assert.Nil(t, sm.StoppedAt())
}
