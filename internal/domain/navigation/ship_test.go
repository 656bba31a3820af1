package navigation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

func newTestShip(t *testing.T, status navigation.NavStatus) *navigation.Ship {
	t.Helper()

	location, err := shared.NewWaypoint("X1-GZ7-A1", 0, 0)
	require.NoError(t, err)
	fuel, err := shared.NewFuel(400, 400)
	require.NoError(t, err)

	ship, err := navigation.NewShip("MONGOOSE-1", shared.MustNewPlayerID(1),
		location, fuel, shared.EmptyCargo(40), 30, "FRAME_FRIGATE", "COMMAND", status)
	require.NoError(t, err)
	return ship
}

func TestShip_OrbitAndDockTransitions(t *testing.T) {
	ship := newTestShip(t, navigation.NavStatusDocked)

	changed, err := ship.EnsureInOrbit()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, ship.IsInOrbit())

	changed, err = ship.EnsureInOrbit()
	require.NoError(t, err)
	assert.False(t, changed, "already in orbit is a no-op")

	changed, err = ship.EnsureDocked()
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, ship.IsDocked())
}

func TestShip_TransitLifecycle(t *testing.T) {
	// Arrange
	ship := newTestShip(t, navigation.NavStatusInOrbit)
	dest, err := shared.NewWaypoint("X1-GZ7-B2", 60, 80)
	require.NoError(t, err)
	arrival := time.Date(2026, 2, 1, 12, 5, 0, 0, time.UTC)

	// Act
	require.NoError(t, ship.StartTransit(dest, arrival))

	// Assert
	assert.True(t, ship.IsInTransit())
	assert.Equal(t, "X1-GZ7-B2", ship.CurrentLocation().Symbol)
	require.NotNil(t, ship.ArrivalTime())
	assert.Equal(t, arrival, *ship.ArrivalTime())

	// Cannot dock or orbit mid-transit.
	_, err = ship.EnsureDocked()
	assert.Error(t, err)
	_, err = ship.EnsureInOrbit()
	assert.Error(t, err)

	require.NoError(t, ship.Arrive())
	assert.True(t, ship.IsInOrbit())
	assert.Nil(t, ship.ArrivalTime())
}

func TestShip_TransitToCurrentLocationFails(t *testing.T) {
	ship := newTestShip(t, navigation.NavStatusInOrbit)
	same, err := shared.NewWaypoint("X1-GZ7-A1", 0, 0)
	require.NoError(t, err)

	err = ship.StartTransit(same, time.Now().UTC())
	assert.Error(t, err)
}

func TestShip_TimeUntilArrival(t *testing.T) {
	ship := newTestShip(t, navigation.NavStatusInOrbit)
	dest, _ := shared.NewWaypoint("X1-GZ7-B2", 60, 80)

	clock := shared.NewMockClock(time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC))
	arrival := clock.Now().Add(90 * time.Second)
	require.NoError(t, ship.StartTransit(dest, arrival))

	assert.Equal(t, 90*time.Second, ship.TimeUntilArrival(clock))

	clock.Advance(2 * time.Minute)
	assert.Equal(t, time.Duration(0), ship.TimeUntilArrival(clock), "past arrival clamps to zero")
}

func TestShip_AssignmentLifecycle(t *testing.T) {
	// Arrange
	ship := newTestShip(t, navigation.NavStatusDocked)
	clock := shared.NewMockClock(time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC))

	assert.True(t, ship.IsIdle())

	// Act
	require.NoError(t, ship.AssignToContainer("scout-MONGOOSE-1-a1b2c3d4", clock))

	// Assert
	assert.True(t, ship.IsAssigned())
	assert.Equal(t, "scout-MONGOOSE-1-a1b2c3d4", ship.ContainerID())

	err := ship.AssignToContainer("navigate-MONGOOSE-1-ffffffff", clock)
	assert.Error(t, err, "double assignment is rejected")

	require.NoError(t, ship.Release("tour complete", clock))
	assert.True(t, ship.IsIdle())
	assert.Equal(t, "", ship.ContainerID())
}

func TestShip_ForceReleaseAlwaysSucceeds(t *testing.T) {
	ship := newTestShip(t, navigation.NavStatusDocked)
	clock := shared.NewMockClock(time.Now().UTC())

	ship.ForceRelease("daemon restart", clock)
	assert.True(t, ship.IsIdle())

	require.NoError(t, ship.AssignToContainer("arbitrage-MONGOOSE-1-12345678", clock))
	ship.ForceRelease("daemon restart", clock)
	assert.True(t, ship.IsIdle())
}

func TestShip_ScoutTypeQueries(t *testing.T) {
	location, _ := shared.NewWaypoint("X1-GZ7-A1", 0, 0)
	fuel, _ := shared.NewFuel(0, 0)

	probe, err := navigation.NewShip("PROBE-1", shared.MustNewPlayerID(1),
		location, fuel, shared.EmptyCargo(0), 2, "FRAME_PROBE", "SATELLITE", navigation.NavStatusInOrbit)
	require.NoError(t, err)

	assert.True(t, probe.IsProbe())
	assert.True(t, probe.IsScoutType())

	frigate := newTestShip(t, navigation.NavStatusDocked)
	assert.False(t, frigate.IsProbe())
	assert.False(t, frigate.IsScoutType())
}
