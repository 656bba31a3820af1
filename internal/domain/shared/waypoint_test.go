package shared_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

func TestWaypoint_DistanceToRoundsToTwoDecimals(t *testing.T) {
	// Arrange
	a, err := shared.NewWaypoint("X1-GZ7-A1", 0, 0)
	require.NoError(t, err)
	b, err := shared.NewWaypoint("X1-GZ7-B2", 3, 4)
	require.NoError(t, err)
	c, err := shared.NewWaypoint("X1-GZ7-C3", 1, 1)
	require.NoError(t, err)

	// Act & Assert
	assert.Equal(t, 5.0, a.DistanceTo(b))
	assert.Equal(t, 1.41, a.DistanceTo(c), "sqrt(2) rounds to 1.41")
	assert.Equal(t, a.DistanceTo(b), b.DistanceTo(a), "distance is symmetric")
	assert.Equal(t, 0.0, a.DistanceTo(a))
}

func TestWaypoint_IsOrbitalOf(t *testing.T) {
	planet, _ := shared.NewWaypoint("X1-GZ7-A1", 10, 10)
	planet.Orbitals = []string{"X1-GZ7-A1a"}
	moon, _ := shared.NewWaypoint("X1-GZ7-A1a", 10, 10)
	other, _ := shared.NewWaypoint("X1-GZ7-B2", 50, 50)

	assert.True(t, planet.IsOrbitalOf(moon))
	assert.True(t, moon.IsOrbitalOf(planet), "orbital relation works in both directions")
	assert.False(t, planet.IsOrbitalOf(other))
}

func TestExtractSystemSymbol(t *testing.T) {
	assert.Equal(t, "X1-GZ7", shared.ExtractSystemSymbol("X1-GZ7-A1"))
	assert.Equal(t, "X1", shared.ExtractSystemSymbol("X1"), "no hyphen returns input unchanged")
}

func TestFindNearestWaypoint(t *testing.T) {
	// Arrange
	origin, _ := shared.NewWaypoint("X1-GZ7-A1", 0, 0)
	near, _ := shared.NewWaypoint("X1-GZ7-B2", 5, 0)
	far, _ := shared.NewWaypoint("X1-GZ7-C3", 100, 100)

	// Act
	nearest, distance := shared.FindNearestWaypoint(origin, []*shared.Waypoint{far, near})

	// Assert
	require.NotNil(t, nearest)
	assert.Equal(t, "X1-GZ7-B2", nearest.Symbol)
	assert.Equal(t, 5.0, distance)

	// Act - empty targets
	nearest, distance = shared.FindNearestWaypoint(origin, nil)

	// Assert
	assert.Nil(t, nearest)
	assert.Equal(t, 0.0, distance)
}
