package container_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitalmachines/astrogator/internal/domain/container"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

func newTestContainer(clock shared.Clock, maxIterations int) *container.Container {
	playerID, _ := shared.NewPlayerID(1)
	return container.NewContainer(
		"navigate-falcon-1a2b3c4d",
		container.ContainerTypeNavigate,
		playerID,
		"FALCON-1",
		maxIterations,
		map[string]interface{}{"destination": "X1-QD40-B6"},
		clock,
	)
}

func TestContainer_Lifecycle(t *testing.T) {
	// Arrange
	clock := shared.NewMockClock(time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC))
	c := newTestContainer(clock, 1)

	assert.Equal(t, container.ContainerStatusPending, c.Status())
	assert.True(t, c.IsActive())
	assert.False(t, c.IsTerminal())

	// Act
	require.NoError(t, c.MarkStarting())
	assert.Equal(t, container.ContainerStatusStarting, c.Status())
	assert.True(t, c.IsActive(), "starting still occupies the idempotency slot")

	require.NoError(t, c.Start())
	assert.Equal(t, container.ContainerStatusRunning, c.Status())

	require.NoError(t, c.IncrementIteration())
	assert.False(t, c.ShouldContinue(), "one-shot container is done after one iteration")

	require.NoError(t, c.Complete())

	// Assert
	assert.Equal(t, container.ContainerStatusCompleted, c.Status())
	assert.True(t, c.IsTerminal())
	assert.False(t, c.IsActive())
}

func TestContainer_StopWhileRunning(t *testing.T) {
	clock := shared.NewMockClock(time.Now().UTC())
	c := newTestContainer(clock, container.InfiniteIterations)
	require.NoError(t, c.Start())

	// Stop on a running container only requests shutdown.
	require.NoError(t, c.Stop())
	assert.Equal(t, container.ContainerStatusStopping, c.Status())
	assert.True(t, c.IsStopping())
	assert.False(t, c.IsTerminal(), "stopping waits for the body to exit")

	// The body observed the stop request and exited.
	require.NoError(t, c.MarkStopped())
	assert.Equal(t, container.ContainerStatusStopped, c.Status())
	assert.True(t, c.IsTerminal())
}

func TestContainer_StopBeforeStart(t *testing.T) {
	clock := shared.NewMockClock(time.Now().UTC())
	c := newTestContainer(clock, 1)

	require.NoError(t, c.Stop())
	assert.Equal(t, container.ContainerStatusStopped, c.Status())

	assert.Error(t, c.Stop(), "stopped is terminal")
}

func TestContainer_InfiniteIterations(t *testing.T) {
	clock := shared.NewMockClock(time.Now().UTC())
	c := newTestContainer(clock, container.InfiniteIterations)
	require.NoError(t, c.Start())

	for i := 0; i < 500; i++ {
		require.NoError(t, c.IncrementIteration())
	}

	assert.True(t, c.ShouldContinue())
	assert.Equal(t, 500, c.CurrentIteration())
}

func TestContainer_RestartAfterFailure(t *testing.T) {
	clock := shared.NewMockClock(time.Now().UTC())
	c := newTestContainer(clock, 5)
	require.NoError(t, c.Start())
	require.NoError(t, c.IncrementIteration())

	cause := errors.New("api unreachable")
	require.NoError(t, c.Fail(cause))
	assert.Equal(t, container.ContainerStatusFailed, c.Status())
	assert.Equal(t, cause, c.LastError())

	// Three automatic restarts are allowed.
	for attempt := 1; attempt <= container.MaxRestartAttempts; attempt++ {
		require.True(t, c.CanRestart(), "attempt %d should be allowed", attempt)
		require.NoError(t, c.ResetForRestart())
		require.NoError(t, c.Start())
		require.NoError(t, c.Fail(cause))
	}

	assert.False(t, c.CanRestart(), "restart budget exhausted")
	assert.Error(t, c.ResetForRestart())
	assert.Equal(t, 1, c.CurrentIteration(), "failures do not advance the iteration counter")
}

func TestNextRestartDelay_DoublesAndCaps(t *testing.T) {
	assert.Equal(t, 5*time.Second, container.NextRestartDelay(1))
	assert.Equal(t, 10*time.Second, container.NextRestartDelay(2))
	assert.Equal(t, 20*time.Second, container.NextRestartDelay(3))
	assert.Equal(t, 30*time.Second, container.NextRestartDelay(4))
	assert.Equal(t, 30*time.Second, container.NextRestartDelay(9))
	assert.Equal(t, 5*time.Second, container.NextRestartDelay(0), "attempts are 1-based")
}

func TestContainer_InterruptAndRecover(t *testing.T) {
	clock := shared.NewMockClock(time.Now().UTC())
	c := newTestContainer(clock, container.InfiniteIterations)
	require.NoError(t, c.Start())

	require.NoError(t, c.MarkInterrupted())
	assert.Equal(t, container.ContainerStatusInterrupted, c.Status())
	assert.False(t, c.IsActive(), "interrupted containers do not hold the idempotency slot")

	// Boot recovery restarts it.
	require.NoError(t, c.Start())
	assert.Equal(t, container.ContainerStatusRunning, c.Status())
}

func TestContainer_ReconstructFromPersistence(t *testing.T) {
	// Arrange
	clock := shared.NewMockClock(time.Date(2026, 2, 2, 12, 0, 0, 0, time.UTC))
	playerID, _ := shared.NewPlayerID(7)
	createdAt := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	startedAt := createdAt.Add(time.Second)

	// Act
	c := container.Reconstruct(
		"scout_tour-wren-deadbeef",
		container.ContainerTypeScoutTour,
		playerID,
		"WREN-3",
		container.ContainerStatusRunning,
		12, container.InfiniteIterations, 1,
		map[string]interface{}{"system": "X1-QD40"},
		createdAt, createdAt.Add(time.Hour),
		&startedAt, nil,
		"",
		clock,
	)

	// Assert
	assert.Equal(t, container.ContainerStatusRunning, c.Status())
	assert.Equal(t, 12, c.CurrentIteration())
	assert.Equal(t, 1, c.RestartCount())
	assert.True(t, c.ShouldContinue())

	// A persisted STOPPING has no body anymore; it collapses to STOPPED.
	stopping := container.Reconstruct(
		"navigate-hawk-cafe0123", container.ContainerTypeNavigate, playerID, "HAWK-1",
		container.ContainerStatusStopping,
		0, 1, 0, nil, createdAt, createdAt, &startedAt, nil, "", clock,
	)
	assert.Equal(t, container.ContainerStatusStopped, stopping.Status())

	// INTERRUPTED survives the round trip.
	interrupted := container.Reconstruct(
		"arbitrage-dove-00ff1122", container.ContainerTypeArbitrage, playerID, "DOVE-2",
		container.ContainerStatusInterrupted,
		3, container.InfiniteIterations, 0, nil, createdAt, createdAt, &startedAt, nil, "", clock,
	)
	assert.Equal(t, container.ContainerStatusInterrupted, interrupted.Status())
}

func TestShipAssignment_ReleaseOnce(t *testing.T) {
	clock := shared.NewMockClock(time.Now().UTC())
	playerID, _ := shared.NewPlayerID(1)
	lock := container.NewShipAssignment("FALCON-1", playerID, "navigate-falcon-1a2b3c4d", clock)

	assert.True(t, lock.IsActive())
	require.NoError(t, lock.Release("completed"))
	assert.False(t, lock.IsActive())
	require.NotNil(t, lock.ReleaseReason())
	assert.Equal(t, "completed", *lock.ReleaseReason())

	assert.Error(t, lock.Release("again"), "double release is rejected")
}

func TestShipAssignment_Staleness(t *testing.T) {
	clock := shared.NewMockClock(time.Now().UTC())
	playerID, _ := shared.NewPlayerID(1)
	lock := container.NewShipAssignment("FALCON-1", playerID, "navigate-falcon-1a2b3c4d", clock)

	assert.False(t, lock.IsStale(time.Hour))

	clock.Advance(2 * time.Hour)
	assert.True(t, lock.IsStale(time.Hour))

	lock.ForceRelease("stale_timeout")
	assert.False(t, lock.IsStale(time.Hour), "released locks are never stale")
}
