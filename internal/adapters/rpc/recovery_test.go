package rpc_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitalmachines/astrogator/internal/adapters/rpc"
	scoutingcommands "github.com/orbitalmachines/astrogator/internal/application/scouting/commands"
	shiptypes "github.com/orbitalmachines/astrogator/internal/application/ship/types"
	"github.com/orbitalmachines/astrogator/internal/domain/container"
	"github.com/orbitalmachines/astrogator/test/helpers"
)

// seedInterruptable persists a RUNNING container row the way a crashed daemon
// would have left it, together with its command type and ship lock.
func seedInterruptable(t *testing.T, f *registryFixture, id string, kind container.ContainerType, commandType, shipSymbol string, metadata map[string]interface{}) *container.Container {
	t.Helper()

	playerID := helpers.TestPlayerID(t, 1)
	entity := container.NewContainer(id, kind, playerID, shipSymbol, container.InfiniteIterations, metadata, nil)
	require.NoError(t, entity.Start())
	require.NoError(t, f.containers.Insert(context.Background(), entity, commandType))

	if shipSymbol != "" {
		lock := container.NewShipAssignment(shipSymbol, playerID, id, nil)
		require.NoError(t, f.assignments.Assign(context.Background(), lock))
	}
	return entity
}

func TestRecover_RelaunchesInterruptedContainers(t *testing.T) {
	f := newRegistryFixture(t)
	release := f.blockSends()
	defer release()

	seedInterruptable(t, f, "scout-tour-PROBE-1-aaaaaaaa", container.ContainerTypeScoutTour, "scout_tour", "PROBE-1",
		map[string]interface{}{
			"ship_symbol": "PROBE-1",
			"markets":     []interface{}{"X1-A1", "X1-B2"},
			"iterations":  float64(-1), // metadata after a JSON round trip
		})

	report, err := f.registry.Recover(context.Background(), rpc.NewFactoryRegistry())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Found)
	assert.Equal(t, []string{"scout-tour-PROBE-1-aaaaaaaa"}, report.Recovered)
	assert.Equal(t, 1, report.LocksReleased, "stale locks are swept before relaunch")

	runner := f.registry.Get("scout-tour-PROBE-1-aaaaaaaa")
	require.NotNil(t, runner, "recovered container must be registered")
	assert.Equal(t, container.ContainerStatusRunning, runner.Container().Status())
	assert.Equal(t, 1, f.assignments.ActiveCount(), "recovered container re-acquires its ship lock")

	require.Eventually(t, func() bool {
		return len(f.mediator.SentOfType(&scoutingcommands.ScoutTourCommand{})) > 0
	}, 2*time.Second, 10*time.Millisecond, "recovered runner must dispatch its rebuilt command")
	sent := f.mediator.SentOfType(&scoutingcommands.ScoutTourCommand{})
	cmd := sent[0].(*scoutingcommands.ScoutTourCommand)
	assert.Equal(t, "PROBE-1", cmd.ShipSymbol)
	assert.Equal(t, []string{"X1-A1", "X1-B2"}, cmd.Markets)
	assert.Equal(t, -1, cmd.Iterations)
	require.NotNil(t, cmd.Context)
	assert.Equal(t, "scout-tour-PROBE-1-aaaaaaaa", cmd.Context.ContainerID)

	require.NoError(t, f.registry.StopContainer(context.Background(), "scout-tour-PROBE-1-aaaaaaaa", helpers.TestPlayerID(t, 1)))
	select {
	case <-runner.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("recovered runner did not stop")
	}
}

func TestRecover_UnknownCommandTypeStaysInterrupted(t *testing.T) {
	f := newRegistryFixture(t)

	seedInterruptable(t, f, "mystery-SHIP-1-bbbbbbbb", container.ContainerTypeDock, "mystery_op", "SHIP-1",
		map[string]interface{}{"ship_symbol": "SHIP-1"})

	report, err := f.registry.Recover(context.Background(), rpc.NewFactoryRegistry())
	require.NoError(t, err)

	assert.Empty(t, report.Recovered)
	assert.Equal(t, []string{"mystery-SHIP-1-bbbbbbbb"}, report.Skipped)
	assert.Nil(t, f.registry.Get("mystery-SHIP-1-bbbbbbbb"))

	stored := f.containers.Stored("mystery-SHIP-1-bbbbbbbb")
	require.NotNil(t, stored)
	assert.Equal(t, container.ContainerStatusInterrupted, stored.Status())
}

func TestRecover_MissingMetadataSkipsContainer(t *testing.T) {
	f := newRegistryFixture(t)

	// scout_tour without its markets list cannot be rebuilt.
	seedInterruptable(t, f, "scout-tour-PROBE-1-cccccccc", container.ContainerTypeScoutTour, "scout_tour", "PROBE-1",
		map[string]interface{}{"ship_symbol": "PROBE-1"})

	report, err := f.registry.Recover(context.Background(), rpc.NewFactoryRegistry())
	require.NoError(t, err)

	assert.Empty(t, report.Recovered)
	assert.Len(t, report.Skipped, 1)
	assert.Equal(t, 0, f.assignments.ActiveCount(), "skipped containers keep no lock")
}

func TestRecover_TerminalRowsAreIgnored(t *testing.T) {
	f := newRegistryFixture(t)

	playerID := helpers.TestPlayerID(t, 1)
	done := container.NewContainer("dock-ship-SHIP-9-dddddddd", container.ContainerTypeDock, playerID, "SHIP-9", 1, nil, nil)
	require.NoError(t, done.Start())
	require.NoError(t, done.IncrementIteration())
	require.NoError(t, done.Complete())
	require.NoError(t, f.containers.Insert(context.Background(), done, "dock_ship"))

	report, err := f.registry.Recover(context.Background(), rpc.NewFactoryRegistry())
	require.NoError(t, err)

	assert.Equal(t, 0, report.Found)
	assert.Empty(t, report.Recovered)
}

func TestFactoryRegistry_RebuildsNumbersFromJSONMetadata(t *testing.T) {
	factories := rpc.NewFactoryRegistry()
	playerID := helpers.TestPlayerID(t, 1)

	factory, ok := factories.Lookup("refuel_ship")
	require.True(t, ok)

	// Persisted metadata comes back from JSON with float64 numbers.
	command, err := factory(map[string]interface{}{
		"ship_symbol": "SHIP-1",
		"units":       float64(120),
	}, playerID)
	require.NoError(t, err)

	refuel, ok := command.(*shiptypes.RefuelShipCommand)
	require.True(t, ok)
	assert.Equal(t, "SHIP-1", refuel.ShipSymbol)
	require.NotNil(t, refuel.Units)
	assert.Equal(t, 120, *refuel.Units)
}

func TestFactoryRegistry_AllPersistedCommandTypesHaveFactories(t *testing.T) {
	factories := rpc.NewFactoryRegistry()

	for _, commandType := range []string{
		"navigate_route", "dock_ship", "orbit_ship", "refuel_ship",
		"scout_tour", "assign_scouting_fleet",
		"purchase_ship", "batch_purchase_ships",
		"run_contract_workflow", "run_arbitrage",
	} {
		_, ok := factories.Lookup(commandType)
		assert.True(t, ok, "missing factory for %s", commandType)
	}
}

func TestFactoryRegistry_MissingRequiredFieldFails(t *testing.T) {
	factories := rpc.NewFactoryRegistry()
	playerID := helpers.TestPlayerID(t, 1)

	factory, ok := factories.Lookup("navigate_route")
	require.True(t, ok)

	_, err := factory(map[string]interface{}{"ship_symbol": "SHIP-1"}, playerID)
	require.Error(t, err, "navigate without a destination cannot be rebuilt")
}

func TestRecover_ReleasesLocksBeforeRelaunch(t *testing.T) {
	f := newRegistryFixture(t)

	// Lock held by a container that no longer exists as a row.
	playerID := helpers.TestPlayerID(t, 1)
	orphan := container.NewShipAssignment("GHOST-1", playerID, "dock-ship-GHOST-1-eeeeeeee", nil)
	require.NoError(t, f.assignments.Assign(context.Background(), orphan))

	report, err := f.registry.Recover(context.Background(), rpc.NewFactoryRegistry())
	require.NoError(t, err)

	assert.Equal(t, 1, report.LocksReleased)
	assert.Equal(t, 0, f.assignments.ActiveCount())
}

func TestRecover_RecoveredContainerStops(t *testing.T) {
	f := newRegistryFixture(t)
	release := f.blockSends()
	defer release()

	seedInterruptable(t, f, "dock-ship-SHIP-1-ffffffff", container.ContainerTypeDock, "dock_ship", "SHIP-1",
		map[string]interface{}{"ship_symbol": "SHIP-1"})

	_, err := f.registry.Recover(context.Background(), rpc.NewFactoryRegistry())
	require.NoError(t, err)

	runner := f.registry.Get("dock-ship-SHIP-1-ffffffff")
	require.NotNil(t, runner)

	require.NoError(t, f.registry.StopContainer(context.Background(), "dock-ship-SHIP-1-ffffffff", helpers.TestPlayerID(t, 1)))
	select {
	case <-runner.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("recovered runner did not stop")
	}
	assert.Equal(t, container.ContainerStatusStopped, runner.Container().Status())
}
