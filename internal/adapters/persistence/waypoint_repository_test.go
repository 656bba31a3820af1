package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitalmachines/astrogator/internal/adapters/persistence"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/test/helpers"
)

func TestWaypointRepository_SaveAndFind(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormWaypointRepository(db, nil)

	waypoint, err := shared.NewWaypoint("X1-GZ7-A1", 10.5, 20.3)
	require.NoError(t, err)

	waypoint.Type = "PLANET"
	waypoint.HasFuel = true
	waypoint.Traits = []string{"MARKETPLACE", "SHIPYARD"}
	waypoint.Orbitals = []string{"X1-GZ7-A1a", "X1-GZ7-A1b"}

	// Act - Save
	err = repo.Save(context.Background(), waypoint)

	// Assert
	require.NoError(t, err)

	// Act - FindBySymbol
	found, err := repo.FindBySymbol(context.Background(), "X1-GZ7-A1", "X1-GZ7")

	// Assert
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, waypoint.Symbol, found.Symbol)
	assert.Equal(t, waypoint.SystemSymbol, found.SystemSymbol)
	assert.Equal(t, waypoint.Type, found.Type)
	assert.Equal(t, waypoint.X, found.X)
	assert.Equal(t, waypoint.Y, found.Y)
	assert.Equal(t, waypoint.HasFuel, found.HasFuel)
	assert.Equal(t, waypoint.Traits, found.Traits)
	assert.Equal(t, waypoint.Orbitals, found.Orbitals)
}

func TestWaypointRepository_FindMissReturnsNil(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormWaypointRepository(db, nil)

	// Act
	found, err := repo.FindBySymbol(context.Background(), "X1-GZ7-Z9", "X1-GZ7")

	// Assert
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestWaypointRepository_StaleRowTreatedAsMiss(t *testing.T) {
	// Arrange
	clock := shared.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormWaypointRepository(db, clock)

	waypoint, _ := shared.NewWaypoint("X1-GZ7-A1", 1.0, 2.0)
	require.NoError(t, repo.Save(context.Background(), waypoint))

	// Fresh row is returned
	found, err := repo.FindBySymbol(context.Background(), "X1-GZ7-A1", "X1-GZ7")
	require.NoError(t, err)
	require.NotNil(t, found)

	// Act - age the row past the sync TTL
	clock.Advance(3 * time.Hour)
	found, err = repo.FindBySymbol(context.Background(), "X1-GZ7-A1", "X1-GZ7")

	// Assert - stale rows look like misses so callers resync
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestWaypointRepository_ListBySystemIncludesStaleRows(t *testing.T) {
	// Arrange
	clock := shared.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormWaypointRepository(db, clock)

	waypoint, _ := shared.NewWaypoint("X1-GZ7-A1", 1.0, 2.0)
	require.NoError(t, repo.Save(context.Background(), waypoint))

	clock.Advance(3 * time.Hour)

	// Act
	waypoints, err := repo.ListBySystem(context.Background(), "X1-GZ7")

	// Assert
	require.NoError(t, err)
	assert.Len(t, waypoints, 1)
}

func TestWaypointRepository_ListBySystem(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormWaypointRepository(db, nil)

	wp1, _ := shared.NewWaypoint("X1-GZ7-A1", 10.0, 20.0)
	wp1.Type = "PLANET"

	wp2, _ := shared.NewWaypoint("X1-GZ7-B2", 30.0, 40.0)
	wp2.Type = "MOON"

	wp3, _ := shared.NewWaypoint("X1-ABC-C3", 50.0, 60.0)
	wp3.Type = "ASTEROID"

	require.NoError(t, repo.SaveBatch(context.Background(), []*shared.Waypoint{wp1, wp2, wp3}))

	// Act
	waypoints, err := repo.ListBySystem(context.Background(), "X1-GZ7")

	// Assert
	require.NoError(t, err)
	assert.Len(t, waypoints, 2)

	symbols := make([]string, len(waypoints))
	for i, wp := range waypoints {
		symbols[i] = wp.Symbol
	}
	assert.Contains(t, symbols, "X1-GZ7-A1")
	assert.Contains(t, symbols, "X1-GZ7-B2")
}

func TestWaypointRepository_ListBySystemWithTrait(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormWaypointRepository(db, nil)

	wp1, _ := shared.NewWaypoint("X1-GZ7-A1", 10.0, 20.0)
	wp1.Traits = []string{"MARKETPLACE"}

	wp2, _ := shared.NewWaypoint("X1-GZ7-B2", 30.0, 40.0)
	wp2.Traits = []string{"SHIPYARD", "MARKETPLACE"}

	wp3, _ := shared.NewWaypoint("X1-GZ7-C3", 50.0, 60.0)

	require.NoError(t, repo.SaveBatch(context.Background(), []*shared.Waypoint{wp1, wp2, wp3}))

	// Act
	marketplaces, err := repo.ListBySystemWithTrait(context.Background(), "X1-GZ7", "MARKETPLACE")

	// Assert
	require.NoError(t, err)
	assert.Len(t, marketplaces, 2)

	shipyards, err := repo.ListBySystemWithTrait(context.Background(), "X1-GZ7", "SHIPYARD")
	require.NoError(t, err)
	require.Len(t, shipyards, 1)
	assert.Equal(t, "X1-GZ7-B2", shipyards[0].Symbol)
}

func TestWaypointRepository_SaveBatchUpserts(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormWaypointRepository(db, nil)

	wp, _ := shared.NewWaypoint("X1-GZ7-A1", 10.0, 20.0)
	wp.Type = "PLANET"
	require.NoError(t, repo.Save(context.Background(), wp))

	// Act - second batch carries updated data for the same symbol
	updated, _ := shared.NewWaypoint("X1-GZ7-A1", 10.0, 20.0)
	updated.Type = "PLANET"
	updated.HasFuel = true
	require.NoError(t, repo.SaveBatch(context.Background(), []*shared.Waypoint{updated}))

	// Assert - one row, fuel flag refreshed
	waypoints, err := repo.ListBySystem(context.Background(), "X1-GZ7")
	require.NoError(t, err)
	require.Len(t, waypoints, 1)
	assert.True(t, waypoints[0].HasFuel)
}
