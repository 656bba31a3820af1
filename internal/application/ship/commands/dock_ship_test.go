package commands_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitalmachines/astrogator/internal/application/ship/commands"
	"github.com/orbitalmachines/astrogator/internal/application/ship/types"
	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/test/helpers"
)

func TestDockShip_DocksAnOrbitingShip(t *testing.T) {
	// Arrange
	playerID := helpers.TestPlayerID(t, 1)
	waypoint := helpers.TestWaypoint(t, "X1-TST-A1", 0, 0, "MARKETPLACE")
	ship := helpers.TestShip(t, "SHIP-1", playerID, waypoint)
	repo := helpers.NewMockShipRepository()
	repo.AddShip(ship)
	handler := commands.NewDockShipHandler(repo)

	// Act
	resp, err := handler.Handle(context.Background(), &types.DockShipCommand{
		ShipSymbol: "SHIP-1",
		PlayerID:   playerID,
	})

	// Assert
	require.NoError(t, err)
	dock := resp.(*types.DockShipResponse)
	assert.Equal(t, "docked", dock.Status)
	assert.Equal(t, navigation.NavStatusDocked, ship.NavStatus())
}

func TestDockShip_AlreadyDockedIsANoOp(t *testing.T) {
	playerID := helpers.TestPlayerID(t, 1)
	waypoint := helpers.TestWaypoint(t, "X1-TST-A1", 0, 0, "MARKETPLACE")
	ship := helpers.TestShip(t, "SHIP-1", playerID, waypoint)
	_, err := ship.EnsureDocked()
	require.NoError(t, err)

	repo := helpers.NewMockShipRepository()
	repo.AddShip(ship)
	handler := commands.NewDockShipHandler(repo)

	resp, err := handler.Handle(context.Background(), &types.DockShipCommand{
		ShipSymbol: "SHIP-1",
		PlayerID:   playerID,
	})

	require.NoError(t, err)
	assert.Equal(t, "already_docked", resp.(*types.DockShipResponse).Status)
}

func TestDockShip_UnknownShipFails(t *testing.T) {
	playerID := helpers.TestPlayerID(t, 1)
	handler := commands.NewDockShipHandler(helpers.NewMockShipRepository())

	_, err := handler.Handle(context.Background(), &types.DockShipCommand{
		ShipSymbol: "GHOST-1",
		PlayerID:   playerID,
	})

	require.Error(t, err)
	assert.True(t, shared.IsCode(err, shared.ErrShipNotFound))
}

func TestDockShip_PreloadedShipSkipsLookup(t *testing.T) {
	playerID := helpers.TestPlayerID(t, 1)
	waypoint := helpers.TestWaypoint(t, "X1-TST-A1", 0, 0, "MARKETPLACE")
	ship := helpers.TestShip(t, "SHIP-1", playerID, waypoint)

	// Repository is empty: the handler must use the ship on the command.
	handler := commands.NewDockShipHandler(helpers.NewMockShipRepository())

	resp, err := handler.Handle(context.Background(), &types.DockShipCommand{
		ShipSymbol: "SHIP-1",
		PlayerID:   playerID,
		Ship:       ship,
	})

	require.NoError(t, err)
	assert.Equal(t, "docked", resp.(*types.DockShipResponse).Status)
}
