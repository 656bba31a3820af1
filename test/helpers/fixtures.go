package helpers

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// TestPlayerID builds a PlayerID, failing the test on invalid input.
func TestPlayerID(t *testing.T, id int) shared.PlayerID {
	t.Helper()
	playerID, err := shared.NewPlayerID(id)
	require.NoError(t, err)
	return playerID
}

// TestWaypoint builds a waypoint at (x, y) carrying the given traits. A
// MARKETPLACE trait also sets HasFuel, matching how most markets behave.
func TestWaypoint(t *testing.T, symbol string, x, y float64, traits ...string) *shared.Waypoint {
	t.Helper()
	waypoint, err := shared.NewWaypoint(symbol, x, y)
	require.NoError(t, err)

	waypoint.Type = "PLANET"
	for _, trait := range traits {
		waypoint.Traits = append(waypoint.Traits, trait)
		if trait == "MARKETPLACE" {
			waypoint.HasFuel = true
		}
	}
	return waypoint
}

// TestShip builds an in-orbit ship with a full tank and an empty hold.
func TestShip(t *testing.T, symbol string, playerID shared.PlayerID, location *shared.Waypoint) *navigation.Ship {
	t.Helper()
	return buildShip(t, symbol, playerID, location, "FRAME_FRIGATE", "COMMAND")
}

// TestProbe builds a scout-type ship: a probe frame flying a satellite role.
func TestProbe(t *testing.T, symbol string, playerID shared.PlayerID, location *shared.Waypoint) *navigation.Ship {
	t.Helper()
	return buildShip(t, symbol, playerID, location, "FRAME_PROBE", "SATELLITE")
}

func buildShip(t *testing.T, symbol string, playerID shared.PlayerID, location *shared.Waypoint, frame, role string) *navigation.Ship {
	t.Helper()

	fuel, err := shared.NewFuel(400, 400)
	require.NoError(t, err)
	cargo, err := shared.NewCargo(40, 0, nil)
	require.NoError(t, err)

	ship, err := navigation.NewShip(symbol, playerID, location, fuel, cargo, 30, frame, role, navigation.NavStatusInOrbit)
	require.NoError(t, err)
	return ship
}
