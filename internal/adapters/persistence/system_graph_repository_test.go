package persistence_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitalmachines/astrogator/internal/adapters/persistence"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/internal/domain/system"
	"github.com/orbitalmachines/astrogator/test/helpers"
)

func TestSystemGraphRepository_SaveAndGet(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormSystemGraphRepository(db)

	graph := system.NewNavigationGraph("X1-GZ7")
	planet, _ := shared.NewWaypoint("X1-GZ7-A1", 10.0, 20.0)
	planet.HasFuel = true
	moon, _ := shared.NewWaypoint("X1-GZ7-A1a", 10.0, 20.0)
	graph.AddWaypoint(planet)
	graph.AddWaypoint(moon)
	graph.AddEdge("X1-GZ7-A1", "X1-GZ7-A1a", 0, system.EdgeTypeOrbital)

	// Act
	err := repo.Save(context.Background(), graph)

	// Assert
	require.NoError(t, err)

	found, err := repo.Get(context.Background(), "X1-GZ7")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "X1-GZ7", found.SystemSymbol)
	assert.Len(t, found.Waypoints, 2)
	assert.Len(t, found.Edges, 2)
	assert.True(t, found.HasWaypoint("X1-GZ7-A1a"))
	assert.True(t, found.Waypoints["X1-GZ7-A1"].HasFuel)
	assert.Equal(t, system.EdgeTypeOrbital, found.Edges[0].Type)
}

func TestSystemGraphRepository_GetMissReturnsNil(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormSystemGraphRepository(db)

	// Act
	found, err := repo.Get(context.Background(), "X1-NOPE")

	// Assert
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestSystemGraphRepository_SaveOverwrites(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormSystemGraphRepository(db)

	first := system.NewNavigationGraph("X1-GZ7")
	wp, _ := shared.NewWaypoint("X1-GZ7-A1", 10.0, 20.0)
	first.AddWaypoint(wp)
	require.NoError(t, repo.Save(context.Background(), first))

	// Act - rebuilt graph carries more waypoints
	second := system.NewNavigationGraph("X1-GZ7")
	wp2, _ := shared.NewWaypoint("X1-GZ7-B2", 30.0, 40.0)
	second.AddWaypoint(wp)
	second.AddWaypoint(wp2)
	require.NoError(t, repo.Save(context.Background(), second))

	// Assert
	found, err := repo.Get(context.Background(), "X1-GZ7")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Len(t, found.Waypoints, 2)
}
