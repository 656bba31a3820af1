package commands_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	"github.com/orbitalmachines/astrogator/internal/application/scouting/commands"
	"github.com/orbitalmachines/astrogator/test/helpers"
)

func TestAssignScoutingFleet_DeploysInSystemProbes(t *testing.T) {
	// Arrange
	playerID := helpers.TestPlayerID(t, 1)

	marketA := helpers.TestWaypoint(t, "X1-TST-A1", 0, 0, "MARKETPLACE")
	marketB := helpers.TestWaypoint(t, "X1-TST-B2", 10, 0, "MARKETPLACE")
	fuelStop := helpers.TestWaypoint(t, "X1-TST-F5", 20, 0, "MARKETPLACE")
	fuelStop.Type = "FUEL_STATION"
	barren := helpers.TestWaypoint(t, "X1-TST-R7", 30, 0)
	abroad := helpers.TestWaypoint(t, "X1-FAR-A1", 0, 0, "MARKETPLACE")

	waypointRepo := helpers.NewMockWaypointRepository()
	waypointRepo.AddWaypoint(marketA)
	waypointRepo.AddWaypoint(marketB)
	waypointRepo.AddWaypoint(fuelStop)
	waypointRepo.AddWaypoint(barren)
	waypointRepo.AddWaypoint(abroad)

	shipRepo := helpers.NewMockShipRepository()
	shipRepo.AddShip(helpers.TestProbe(t, "SCOUT-1", playerID, marketA))
	shipRepo.AddShip(helpers.TestProbe(t, "SCOUT-2", playerID, marketB))
	shipRepo.AddShip(helpers.TestShip(t, "HAULER-1", playerID, marketA))
	shipRepo.AddShip(helpers.TestProbe(t, "SCOUT-9", playerID, abroad))

	med := helpers.NewMockMediator()
	var captured *commands.ScoutMarketsCommand
	med.SendFunc = func(ctx context.Context, request mediator.Request) (mediator.Response, error) {
		captured = request.(*commands.ScoutMarketsCommand)
		return &commands.ScoutMarketsResponse{
			ContainerIDs: []string{"SCOUT_TOUR-SCOUT-1-00000001", "SCOUT_TOUR-SCOUT-2-00000002"},
			Assignments: map[string][]string{
				"SCOUT-1": {"X1-TST-A1"},
				"SCOUT-2": {"X1-TST-B2"},
			},
		}, nil
	}

	handler := commands.NewAssignScoutingFleetHandler(shipRepo, waypointRepo, med)

	// Act
	response, err := handler.Handle(context.Background(), &commands.AssignScoutingFleetCommand{
		PlayerID:     playerID,
		SystemSymbol: "X1-TST",
	})

	// Assert
	require.NoError(t, err)
	require.NotNil(t, captured)

	// Only in-system probes are deployed; haulers and foreign probes stay.
	assert.ElementsMatch(t, []string{"SCOUT-1", "SCOUT-2"}, captured.ShipSymbols)

	// Fuel stations and traitless waypoints are not scouting targets.
	assert.ElementsMatch(t, []string{"X1-TST-A1", "X1-TST-B2"}, captured.Markets)
	assert.Equal(t, -1, captured.Iterations)

	result := response.(*commands.AssignScoutingFleetResponse)
	assert.ElementsMatch(t, []string{"SCOUT-1", "SCOUT-2"}, result.AssignedShips)
	assert.Len(t, result.ContainerIDs, 2)
}

func TestAssignScoutingFleet_NoProbesInSystemFails(t *testing.T) {
	// Arrange
	playerID := helpers.TestPlayerID(t, 1)
	marketA := helpers.TestWaypoint(t, "X1-TST-A1", 0, 0, "MARKETPLACE")

	shipRepo := helpers.NewMockShipRepository()
	shipRepo.AddShip(helpers.TestShip(t, "HAULER-1", playerID, marketA))

	waypointRepo := helpers.NewMockWaypointRepository()
	waypointRepo.AddWaypoint(marketA)

	handler := commands.NewAssignScoutingFleetHandler(shipRepo, waypointRepo, helpers.NewMockMediator())

	// Act
	_, err := handler.Handle(context.Background(), &commands.AssignScoutingFleetCommand{
		PlayerID:     playerID,
		SystemSymbol: "X1-TST",
	})

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no probe or satellite ships")
}

func TestAssignScoutingFleet_NoScoutableMarketsFails(t *testing.T) {
	// Arrange
	playerID := helpers.TestPlayerID(t, 1)
	fuelStop := helpers.TestWaypoint(t, "X1-TST-F5", 0, 0, "MARKETPLACE")
	fuelStop.Type = "FUEL_STATION"

	shipRepo := helpers.NewMockShipRepository()
	shipRepo.AddShip(helpers.TestProbe(t, "SCOUT-1", playerID, fuelStop))

	waypointRepo := helpers.NewMockWaypointRepository()
	waypointRepo.AddWaypoint(fuelStop)

	handler := commands.NewAssignScoutingFleetHandler(shipRepo, waypointRepo, helpers.NewMockMediator())

	// Act
	_, err := handler.Handle(context.Background(), &commands.AssignScoutingFleetCommand{
		PlayerID:     playerID,
		SystemSymbol: "X1-TST",
	})

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no scoutable marketplaces")
}

func TestAssignScoutingFleet_RejectsWrongRequestType(t *testing.T) {
	// Arrange
	handler := commands.NewAssignScoutingFleetHandler(helpers.NewMockShipRepository(), helpers.NewMockWaypointRepository(), helpers.NewMockMediator())

	// Act
	_, err := handler.Handle(context.Background(), &commands.ScoutTourCommand{})

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid request type")
}
