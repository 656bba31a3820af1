package system_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/internal/domain/system"
)

func buildTestGraph(t *testing.T) *system.NavigationGraph {
	t.Helper()

	graph := system.NewNavigationGraph("X1-GZ7")

	planet, err := shared.NewWaypoint("X1-GZ7-A1", 0, 0)
	require.NoError(t, err)
	planet.Type = "PLANET"
	planet.HasFuel = true
	planet.Orbitals = []string{"X1-GZ7-A1a"}

	moon, err := shared.NewWaypoint("X1-GZ7-A1a", 0, 0)
	require.NoError(t, err)
	moon.Type = "MOON"

	station, err := shared.NewWaypoint("X1-GZ7-B2", 30, 40)
	require.NoError(t, err)
	station.Type = "ORBITAL_STATION"
	station.HasFuel = true

	graph.AddWaypoint(planet)
	graph.AddWaypoint(moon)
	graph.AddWaypoint(station)

	graph.AddEdge("X1-GZ7-A1", "X1-GZ7-A1a", 0, system.EdgeTypeOrbital)
	graph.AddEdge("X1-GZ7-A1", "X1-GZ7-B2", 50, system.EdgeTypeNormal)

	return graph
}

func TestNavigationGraph_EdgesAreBidirectional(t *testing.T) {
	graph := buildTestGraph(t)

	forward := graph.EdgesFrom("X1-GZ7-A1")
	assert.Len(t, forward, 2)

	back := graph.EdgesFrom("X1-GZ7-B2")
	require.Len(t, back, 1)
	assert.Equal(t, "X1-GZ7-A1", back[0].To)
	assert.Equal(t, 50.0, back[0].Distance)
}

func TestNavigationGraph_GetWaypoint(t *testing.T) {
	graph := buildTestGraph(t)

	wp, err := graph.GetWaypoint("X1-GZ7-B2")
	require.NoError(t, err)
	assert.Equal(t, "ORBITAL_STATION", wp.Type)

	_, err = graph.GetWaypoint("X1-GZ7-MISSING")
	require.Error(t, err)
	assert.Equal(t, shared.ErrWaypointNotFound, shared.CodeOf(err))
}

func TestNavigationGraph_DistanceFallsBackToCoordinates(t *testing.T) {
	graph := buildTestGraph(t)

	// Edge exists: use the stored distance.
	d, err := graph.Distance("X1-GZ7-A1", "X1-GZ7-B2")
	require.NoError(t, err)
	assert.Equal(t, 50.0, d)

	// No stored edge between moon and station: derive from coordinates.
	d, err = graph.Distance("X1-GZ7-A1a", "X1-GZ7-B2")
	require.NoError(t, err)
	assert.Equal(t, 50.0, d)

	// Orbital pair without a stored edge stays free.
	bare := system.NewNavigationGraph("X1-GZ7")
	p, _ := shared.NewWaypoint("X1-GZ7-C3", 5, 5)
	p.Orbitals = []string{"X1-GZ7-C3a"}
	m, _ := shared.NewWaypoint("X1-GZ7-C3a", 5, 5)
	bare.AddWaypoint(p)
	bare.AddWaypoint(m)

	d, err = bare.Distance("X1-GZ7-C3", "X1-GZ7-C3a")
	require.NoError(t, err)
	assert.Equal(t, 0.0, d)
}

func TestNavigationGraph_FuelStations(t *testing.T) {
	graph := buildTestGraph(t)

	stations := graph.FuelStations()
	assert.Len(t, stations, 2)
}

func TestNavigationGraph_JSONRoundTrip(t *testing.T) {
	// Arrange
	graph := buildTestGraph(t)

	// Act
	data, err := json.Marshal(graph)
	require.NoError(t, err)

	var restored system.NavigationGraph
	require.NoError(t, json.Unmarshal(data, &restored))

	// Assert
	assert.Equal(t, graph.SystemSymbol, restored.SystemSymbol)
	assert.Equal(t, graph.WaypointCount(), restored.WaypointCount())
	assert.Equal(t, graph.EdgeCount(), restored.EdgeCount())

	wp, err := restored.GetWaypoint("X1-GZ7-A1")
	require.NoError(t, err)
	assert.True(t, wp.HasFuel)
}
