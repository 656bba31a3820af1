package commands_test

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitalmachines/astrogator/internal/adapters/routing"
	"github.com/orbitalmachines/astrogator/internal/application/scouting/commands"
	"github.com/orbitalmachines/astrogator/internal/domain/container"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/internal/domain/system"
	"github.com/orbitalmachines/astrogator/test/helpers"
)

// scoutFixture wires a handler with two probes parked on the first two
// markets of a four-market line.
type scoutFixture struct {
	handler  *commands.ScoutMarketsHandler
	launcher *helpers.MockContainerLauncher
	shipRepo *helpers.MockShipRepository
	playerID shared.PlayerID
}

func newScoutFixture(t *testing.T, shipCount int) *scoutFixture {
	t.Helper()

	playerID := helpers.TestPlayerID(t, 1)

	graph := system.NewNavigationGraph("X1-TST")
	waypoints := make(map[string]*shared.Waypoint)
	for i, symbol := range []string{"X1-TST-A1", "X1-TST-B2", "X1-TST-C3", "X1-TST-D4"} {
		wp := helpers.TestWaypoint(t, symbol, float64(i*10), 0, "MARKETPLACE")
		graph.AddWaypoint(wp)
		waypoints[symbol] = wp
	}

	graphProvider := helpers.NewMockGraphProvider()
	graphProvider.SetGraph(graph)

	shipRepo := helpers.NewMockShipRepository()
	starts := []string{"X1-TST-A1", "X1-TST-B2", "X1-TST-C3"}
	for i := 0; i < shipCount; i++ {
		symbol := starts[i%len(starts)]
		shipRepo.AddShip(helpers.TestProbe(t, scoutSymbol(i), playerID, waypoints[symbol]))
	}

	launcher := helpers.NewMockContainerLauncher()
	handler := commands.NewScoutMarketsHandler(shipRepo, graphProvider, routing.NewEngine(), launcher)

	return &scoutFixture{
		handler:  handler,
		launcher: launcher,
		shipRepo: shipRepo,
		playerID: playerID,
	}
}

func scoutSymbol(i int) string {
	return []string{"SCOUT-1", "SCOUT-2", "SCOUT-3"}[i]
}

func scoutCommand(playerID shared.PlayerID, shipCount int, markets []string) *commands.ScoutMarketsCommand {
	symbols := make([]string, shipCount)
	for i := range symbols {
		symbols[i] = scoutSymbol(i)
	}
	return &commands.ScoutMarketsCommand{
		PlayerID:     playerID,
		ShipSymbols:  symbols,
		SystemSymbol: "X1-TST",
		Markets:      markets,
		Iterations:   -1,
	}
}

var allMarkets = []string{"X1-TST-A1", "X1-TST-B2", "X1-TST-C3", "X1-TST-D4"}

func TestScoutMarkets_LaunchesOneContainerPerShip(t *testing.T) {
	// Arrange
	fixture := newScoutFixture(t, 2)

	// Act
	response, err := fixture.handler.Handle(context.Background(), scoutCommand(fixture.playerID, 2, allMarkets))

	// Assert
	require.NoError(t, err)
	result := response.(*commands.ScoutMarketsResponse)

	assert.Len(t, result.ContainerIDs, 2)
	assert.Empty(t, result.ReusedContainers)

	// Every market lands with exactly one ship.
	var covered []string
	for _, markets := range result.Assignments {
		covered = append(covered, markets...)
	}
	sort.Strings(covered)
	assert.Equal(t, allMarkets, covered)

	// The launched specs carry a runnable tour command and a recoverable blob.
	launched := fixture.launcher.Launched()
	require.Len(t, launched, 2)
	for _, spec := range launched {
		assert.Equal(t, container.ContainerTypeScoutTour, spec.Kind)
		assert.Equal(t, -1, spec.MaxIterations)

		tourCmd, ok := spec.Command.(*commands.ScoutTourCommand)
		require.True(t, ok, "expected *ScoutTourCommand, got %T", spec.Command)
		assert.Equal(t, spec.ShipSymbol, tourCmd.ShipSymbol)
		assert.Equal(t, result.Assignments[spec.ShipSymbol], tourCmd.Markets)
		assert.Equal(t, result.Assignments[spec.ShipSymbol], spec.Metadata["markets"])
	}
}

func TestScoutMarkets_SecondDeployReusesContainers(t *testing.T) {
	// Arrange
	fixture := newScoutFixture(t, 2)
	cmd := scoutCommand(fixture.playerID, 2, allMarkets)

	first, err := fixture.handler.Handle(context.Background(), cmd)
	require.NoError(t, err)

	// Act
	second, err := fixture.handler.Handle(context.Background(), cmd)

	// Assert
	require.NoError(t, err)
	firstResult := first.(*commands.ScoutMarketsResponse)
	secondResult := second.(*commands.ScoutMarketsResponse)

	assert.ElementsMatch(t, firstResult.ContainerIDs, secondResult.ContainerIDs)
	assert.ElementsMatch(t, secondResult.ContainerIDs, secondResult.ReusedContainers)
	assert.Len(t, fixture.launcher.Launched(), 2, "reuse must not create new containers")
}

func TestScoutMarkets_ConcurrentDeploysShareContainers(t *testing.T) {
	// Arrange
	fixture := newScoutFixture(t, 2)
	cmd := scoutCommand(fixture.playerID, 2, allMarkets)

	// Act
	const callers = 6
	responses := make([]*commands.ScoutMarketsResponse, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			response, err := fixture.handler.Handle(context.Background(), cmd)
			if err != nil {
				errs[i] = err
				return
			}
			responses[i] = response.(*commands.ScoutMarketsResponse)
		}(i)
	}
	wg.Wait()

	// Assert: every caller sees the same two containers, and only two exist.
	require.Len(t, fixture.launcher.Launched(), 2)
	assert.Equal(t, 2, fixture.launcher.ActiveCount())

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.ElementsMatch(t, responses[0].ContainerIDs, responses[i].ContainerIDs)
	}
}

func TestScoutMarkets_SpareShipIdlesWithoutContainer(t *testing.T) {
	// Arrange
	fixture := newScoutFixture(t, 3)
	twoMarkets := []string{"X1-TST-A1", "X1-TST-D4"}

	// Act
	response, err := fixture.handler.Handle(context.Background(), scoutCommand(fixture.playerID, 3, twoMarkets))

	// Assert
	require.NoError(t, err)
	result := response.(*commands.ScoutMarketsResponse)

	assert.Len(t, result.ContainerIDs, 2)
	assert.Len(t, result.Assignments, 3)

	idle := 0
	for _, markets := range result.Assignments {
		if len(markets) == 0 {
			idle++
		}
	}
	assert.Equal(t, 1, idle)
}

func TestScoutMarkets_NoMarketsLaunchesNothing(t *testing.T) {
	// Arrange
	fixture := newScoutFixture(t, 2)

	// Act
	response, err := fixture.handler.Handle(context.Background(), scoutCommand(fixture.playerID, 2, nil))

	// Assert
	require.NoError(t, err)
	result := response.(*commands.ScoutMarketsResponse)
	assert.Empty(t, result.ContainerIDs)
	assert.Empty(t, result.Assignments)
	assert.Equal(t, 0, fixture.launcher.ActiveCount())
}

func TestScoutMarkets_UnknownShipFails(t *testing.T) {
	// Arrange
	fixture := newScoutFixture(t, 1)
	cmd := scoutCommand(fixture.playerID, 1, allMarkets)
	cmd.ShipSymbols = []string{"GHOST-9"}

	// Act
	_, err := fixture.handler.Handle(context.Background(), cmd)

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GHOST-9")
}

func TestScoutMarkets_GraphFailurePropagates(t *testing.T) {
	// Arrange
	playerID := helpers.TestPlayerID(t, 1)
	home := helpers.TestWaypoint(t, "X1-TST-A1", 0, 0, "MARKETPLACE")

	shipRepo := helpers.NewMockShipRepository()
	shipRepo.AddShip(helpers.TestProbe(t, "SCOUT-1", playerID, home))

	graphProvider := helpers.NewMockGraphProvider()
	graphProvider.Err = assert.AnError

	handler := commands.NewScoutMarketsHandler(shipRepo, graphProvider, routing.NewEngine(), helpers.NewMockContainerLauncher())

	// Act
	_, err := handler.Handle(context.Background(), scoutCommand(playerID, 1, allMarkets))

	// Assert
	require.ErrorIs(t, err, assert.AnError)
}

func TestScoutMarkets_RejectsWrongRequestType(t *testing.T) {
	// Arrange
	fixture := newScoutFixture(t, 1)

	// Act
	_, err := fixture.handler.Handle(context.Background(), &commands.ScoutTourCommand{})

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid request type")
}
