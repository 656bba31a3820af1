package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitalmachines/astrogator/internal/adapters/persistence"
	"github.com/orbitalmachines/astrogator/internal/domain/container"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/test/helpers"
)

func TestContainerRepository_InsertAndFind(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewContainerRepository(db, nil)
	playerID := testPlayerID(t, 1)

	c := container.NewContainer(
		"navigate-ship1-abc123",
		container.ContainerTypeNavigate,
		playerID,
		"SHIP-1",
		1,
		map[string]interface{}{"destination": "X1-GZ7-B2"},
		nil,
	)

	// Act
	err := repo.Insert(context.Background(), c, "NavigateShipCommand")

	// Assert
	require.NoError(t, err)

	found, err := repo.FindByID(context.Background(), "navigate-ship1-abc123", playerID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, container.ContainerTypeNavigate, found.Type())
	assert.Equal(t, "SHIP-1", found.ShipSymbol())
	assert.Equal(t, container.ContainerStatusPending, found.Status())
	assert.Equal(t, 1, found.MaxIterations())
	assert.Equal(t, "X1-GZ7-B2", found.Metadata()["destination"])
}

func TestContainerRepository_FindMissReturnsNil(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewContainerRepository(db, nil)

	// Act
	found, err := repo.FindByID(context.Background(), "no-such-container", testPlayerID(t, 1))

	// Assert
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestContainerRepository_UpdatePersistsLifecycle(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewContainerRepository(db, nil)
	playerID := testPlayerID(t, 1)

	c := container.NewContainer("scout-tour-xyz", container.ContainerTypeScoutTour, playerID, "SHIP-2", container.InfiniteIterations, nil, nil)
	require.NoError(t, repo.Insert(context.Background(), c, "ScoutTourCommand"))

	require.NoError(t, c.Start())
	require.NoError(t, c.IncrementIteration())
	require.NoError(t, c.IncrementIteration())

	// Act
	err := repo.Update(context.Background(), c)

	// Assert
	require.NoError(t, err)

	found, err := repo.FindByID(context.Background(), "scout-tour-xyz", playerID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, container.ContainerStatusRunning, found.Status())
	assert.Equal(t, 2, found.CurrentIteration())
	assert.NotNil(t, found.StartedAt())
}

func TestContainerRepository_UpdatePersistsFailure(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewContainerRepository(db, nil)
	playerID := testPlayerID(t, 1)

	c := container.NewContainer("refuel-op", container.ContainerTypeRefuel, playerID, "SHIP-3", 1, nil, nil)
	require.NoError(t, repo.Insert(context.Background(), c, "RefuelShipCommand"))
	require.NoError(t, c.Start())
	require.NoError(t, c.Fail(assert.AnError))

	// Act
	require.NoError(t, repo.Update(context.Background(), c))

	// Assert
	found, err := repo.FindByID(context.Background(), "refuel-op", playerID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, container.ContainerStatusFailed, found.Status())
	require.NotNil(t, found.LastError())
	assert.Contains(t, found.LastError().Error(), assert.AnError.Error())
}

func TestContainerRepository_FindAllByPlayerNewestFirst(t *testing.T) {
	// Arrange
	clock := shared.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	db := helpers.NewTestDB(t)
	repo := persistence.NewContainerRepository(db, clock)
	playerID := testPlayerID(t, 1)

	older := container.NewContainer("op-older", container.ContainerTypeDock, playerID, "SHIP-1", 1, nil, clock)
	require.NoError(t, repo.Insert(context.Background(), older, "DockShipCommand"))

	clock.Advance(time.Minute)
	newer := container.NewContainer("op-newer", container.ContainerTypeOrbit, playerID, "SHIP-1", 1, nil, clock)
	require.NoError(t, repo.Insert(context.Background(), newer, "OrbitShipCommand"))

	// Act
	containers, err := repo.FindAllByPlayer(context.Background(), playerID)

	// Assert
	require.NoError(t, err)
	require.Len(t, containers, 2)
	assert.Equal(t, "op-newer", containers[0].ID())
	assert.Equal(t, "op-older", containers[1].ID())
}

func TestContainerRepository_FindNonTerminal(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewContainerRepository(db, nil)
	playerID := testPlayerID(t, 1)

	pending := container.NewContainer("op-pending", container.ContainerTypeNavigate, playerID, "SHIP-1", 1, nil, nil)
	require.NoError(t, repo.Insert(context.Background(), pending, "NavigateShipCommand"))

	running := container.NewContainer("op-running", container.ContainerTypeScoutTour, playerID, "SHIP-2", container.InfiniteIterations, nil, nil)
	require.NoError(t, repo.Insert(context.Background(), running, "ScoutTourCommand"))
	require.NoError(t, running.Start())
	require.NoError(t, repo.Update(context.Background(), running))

	done := container.NewContainer("op-done", container.ContainerTypeDock, playerID, "SHIP-3", 1, nil, nil)
	require.NoError(t, repo.Insert(context.Background(), done, "DockShipCommand"))
	require.NoError(t, done.Start())
	require.NoError(t, done.Complete())
	require.NoError(t, repo.Update(context.Background(), done))

	// Act
	nonTerminal, err := repo.FindNonTerminal(context.Background())

	// Assert
	require.NoError(t, err)
	require.Len(t, nonTerminal, 2)

	ids := []string{nonTerminal[0].ID(), nonTerminal[1].ID()}
	assert.Contains(t, ids, "op-pending")
	assert.Contains(t, ids, "op-running")
}

func TestContainerRepository_DeleteScopedToPlayer(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewContainerRepository(db, nil)
	owner := testPlayerID(t, 1)
	other := testPlayerID(t, 2)

	c := container.NewContainer("dock-op", container.ContainerTypeDock, owner, "SHIP-1", 1, nil, nil)
	require.NoError(t, repo.Insert(context.Background(), c, "DockShipCommand"))

	// Act: another player's delete must not touch the row.
	require.NoError(t, repo.Delete(context.Background(), "dock-op", other))

	found, err := repo.FindByID(context.Background(), "dock-op", owner)
	require.NoError(t, err)
	require.NotNil(t, found)

	require.NoError(t, repo.Delete(context.Background(), "dock-op", owner))

	// Assert
	found, err = repo.FindByID(context.Background(), "dock-op", owner)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestContainerRepository_DeleteTerminalBefore(t *testing.T) {
	// Arrange
	clock := shared.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	db := helpers.NewTestDB(t)
	repo := persistence.NewContainerRepository(db, clock)
	playerID := testPlayerID(t, 1)

	old := container.NewContainer("op-old", container.ContainerTypeDock, playerID, "SHIP-1", 1, nil, clock)
	require.NoError(t, repo.Insert(context.Background(), old, "DockShipCommand"))
	require.NoError(t, old.Start())
	require.NoError(t, old.Complete())
	require.NoError(t, repo.Update(context.Background(), old))

	clock.Advance(2 * time.Hour)

	fresh := container.NewContainer("op-fresh", container.ContainerTypeOrbit, playerID, "SHIP-2", 1, nil, clock)
	require.NoError(t, repo.Insert(context.Background(), fresh, "OrbitShipCommand"))
	require.NoError(t, fresh.Start())
	require.NoError(t, fresh.Complete())
	require.NoError(t, repo.Update(context.Background(), fresh))

	running := container.NewContainer("op-running", container.ContainerTypeScoutTour, playerID, "SHIP-3", container.InfiniteIterations, nil, clock)
	require.NoError(t, repo.Insert(context.Background(), running, "ScoutTourCommand"))
	require.NoError(t, running.Start())
	require.NoError(t, repo.Update(context.Background(), running))

	// Act: cutoff falls between the old and the fresh stop times.
	cutoff := clock.Now().Add(-time.Hour)
	deleted, err := repo.DeleteTerminalBefore(context.Background(), cutoff)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"op-old"}, deleted)

	remaining, err := repo.FindAllByPlayer(context.Background(), playerID)
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	ids := []string{remaining[0].ID(), remaining[1].ID()}
	assert.Contains(t, ids, "op-fresh")
	assert.Contains(t, ids, "op-running")
}

func TestContainerRepository_CommandType(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewContainerRepository(db, nil)
	playerID := testPlayerID(t, 1)

	c := container.NewContainer("arbitrage-op", container.ContainerTypeArbitrage, playerID, "SHIP-1", container.InfiniteIterations, nil, nil)
	require.NoError(t, repo.Insert(context.Background(), c, "ArbitrageWorkflowCommand"))

	// Act
	commandType, err := repo.CommandType(context.Background(), "arbitrage-op")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "ArbitrageWorkflowCommand", commandType)
}
