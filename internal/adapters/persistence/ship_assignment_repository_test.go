package persistence_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitalmachines/astrogator/internal/adapters/persistence"
	"github.com/orbitalmachines/astrogator/internal/domain/container"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/test/helpers"
)

func testPlayerID(t *testing.T, id int) shared.PlayerID {
	t.Helper()
	playerID, err := shared.NewPlayerID(id)
	require.NoError(t, err)
	return playerID
}

func TestShipAssignmentRepository_AssignAndFind(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewShipAssignmentRepository(db, nil)
	playerID := testPlayerID(t, 1)

	assignment := container.NewShipAssignment("SHIP-1", playerID, "navigate-ship1-abc123", nil)

	// Act
	err := repo.Assign(context.Background(), assignment)

	// Assert
	require.NoError(t, err)

	found, err := repo.FindByShip(context.Background(), "SHIP-1", playerID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "SHIP-1", found.ShipSymbol())
	assert.Equal(t, "navigate-ship1-abc123", found.ContainerID())
	assert.Equal(t, container.AssignmentStatusActive, found.Status())
}

func TestShipAssignmentRepository_FindUnlockedShipReturnsNil(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewShipAssignmentRepository(db, nil)

	// Act
	found, err := repo.FindByShip(context.Background(), "SHIP-9", testPlayerID(t, 1))

	// Assert
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestShipAssignmentRepository_ReassignSameContainerIsNoop(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewShipAssignmentRepository(db, nil)
	playerID := testPlayerID(t, 1)

	first := container.NewShipAssignment("SHIP-1", playerID, "container-a", nil)
	require.NoError(t, repo.Assign(context.Background(), first))

	// Act - same container re-asserts its lock
	again := container.NewShipAssignment("SHIP-1", playerID, "container-a", nil)
	err := repo.Assign(context.Background(), again)

	// Assert
	require.NoError(t, err)
}

func TestShipAssignmentRepository_ConflictingAssignRejected(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewShipAssignmentRepository(db, nil)
	playerID := testPlayerID(t, 1)

	first := container.NewShipAssignment("SHIP-1", playerID, "container-a", nil)
	require.NoError(t, repo.Assign(context.Background(), first))

	// Act - a different container tries to grab the same ship
	intruder := container.NewShipAssignment("SHIP-1", playerID, "container-b", nil)
	err := repo.Assign(context.Background(), intruder)

	// Assert
	assert.True(t, shared.IsCode(err, shared.ErrShipAlreadyAssigned))
}

func TestShipAssignmentRepository_ReleaseFreesShip(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewShipAssignmentRepository(db, nil)
	playerID := testPlayerID(t, 1)

	assignment := container.NewShipAssignment("SHIP-1", playerID, "container-a", nil)
	require.NoError(t, repo.Assign(context.Background(), assignment))

	// Act
	err := repo.Release(context.Background(), "SHIP-1", playerID, "operation completed")

	// Assert
	require.NoError(t, err)

	found, err := repo.FindByShip(context.Background(), "SHIP-1", playerID)
	require.NoError(t, err)
	assert.Nil(t, found)

	// Released rows get reused by the next assign
	next := container.NewShipAssignment("SHIP-1", playerID, "container-b", nil)
	require.NoError(t, repo.Assign(context.Background(), next))

	found, err = repo.FindByShip(context.Background(), "SHIP-1", playerID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "container-b", found.ContainerID())
}

func TestShipAssignmentRepository_ReleaseByContainer(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewShipAssignmentRepository(db, nil)
	playerID := testPlayerID(t, 1)

	require.NoError(t, repo.Assign(context.Background(), container.NewShipAssignment("SHIP-1", playerID, "fleet-op", nil)))
	require.NoError(t, repo.Assign(context.Background(), container.NewShipAssignment("SHIP-2", playerID, "fleet-op", nil)))
	require.NoError(t, repo.Assign(context.Background(), container.NewShipAssignment("SHIP-3", playerID, "other-op", nil)))

	// Act
	err := repo.ReleaseByContainer(context.Background(), "fleet-op", playerID, "container stopped")

	// Assert
	require.NoError(t, err)

	locks, err := repo.FindByContainer(context.Background(), "fleet-op", playerID)
	require.NoError(t, err)
	assert.Empty(t, locks)

	remaining, err := repo.FindByShip(context.Background(), "SHIP-3", playerID)
	require.NoError(t, err)
	assert.NotNil(t, remaining)
}

func TestShipAssignmentRepository_ReleaseAllActive(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewShipAssignmentRepository(db, nil)

	player1 := testPlayerID(t, 1)
	player2 := testPlayerID(t, 2)

	require.NoError(t, repo.Assign(context.Background(), container.NewShipAssignment("SHIP-1", player1, "op-a", nil)))
	require.NoError(t, repo.Assign(context.Background(), container.NewShipAssignment("SHIP-2", player2, "op-b", nil)))

	// Act
	released, err := repo.ReleaseAllActive(context.Background(), "daemon restart")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, released)

	active, err := repo.FindActiveByPlayer(context.Background(), player1)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestShipAssignmentRepository_FindActiveByPlayer(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewShipAssignmentRepository(db, nil)

	player1 := testPlayerID(t, 1)
	player2 := testPlayerID(t, 2)

	require.NoError(t, repo.Assign(context.Background(), container.NewShipAssignment("SHIP-1", player1, "op-a", nil)))
	require.NoError(t, repo.Assign(context.Background(), container.NewShipAssignment("SHIP-2", player1, "op-b", nil)))
	require.NoError(t, repo.Assign(context.Background(), container.NewShipAssignment("SHIP-3", player2, "op-c", nil)))
	require.NoError(t, repo.Release(context.Background(), "SHIP-2", player1, "done"))

	// Act
	active, err := repo.FindActiveByPlayer(context.Background(), player1)

	// Assert
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "SHIP-1", active[0].ShipSymbol())
}
