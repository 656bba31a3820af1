package graph_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitalmachines/astrogator/internal/adapters/graph"
	"github.com/orbitalmachines/astrogator/internal/adapters/persistence"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/internal/domain/system"
	"github.com/orbitalmachines/astrogator/test/helpers"
)

type fakeBuilder struct {
	builds int32
	err    error
}

func (b *fakeBuilder) BuildSystemGraph(ctx context.Context, systemSymbol string, playerID shared.PlayerID) (*system.NavigationGraph, error) {
	atomic.AddInt32(&b.builds, 1)
	if b.err != nil {
		return nil, b.err
	}

	g := system.NewNavigationGraph(systemSymbol)
	wp, _ := shared.NewWaypoint(systemSymbol+"-A1", 0, 0)
	g.AddWaypoint(wp)
	return g, nil
}

func (b *fakeBuilder) buildCount() int {
	return int(atomic.LoadInt32(&b.builds))
}

func newTestProvider(t *testing.T) (*graph.Provider, *fakeBuilder, system.SystemGraphRepository) {
	t.Helper()
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormSystemGraphRepository(db)
	builder := &fakeBuilder{}
	provider := graph.NewProvider(repo, builder, zerolog.Nop())
	return provider, builder, repo
}

func TestGraphProvider_BuildsOnMissAndCaches(t *testing.T) {
	// Arrange
	provider, builder, _ := newTestProvider(t)
	playerID := testPlayerID(t, 1)

	// Act - first load misses everything and builds
	first, err := provider.GetGraph(context.Background(), "X1-GZ7", false, playerID)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, system.GraphSourceAPI, first.Source)
	assert.True(t, first.Graph.HasWaypoint("X1-GZ7-A1"))
	assert.Equal(t, 1, builder.buildCount())

	// Act - second load hits memory
	second, err := provider.GetGraph(context.Background(), "X1-GZ7", false, playerID)
	require.NoError(t, err)
	assert.Equal(t, system.GraphSourceMemory, second.Source)
	assert.Equal(t, 1, builder.buildCount())
}

func TestGraphProvider_ServesFromDatabase(t *testing.T) {
	// Arrange - graph already persisted, fresh provider with cold memory
	provider, builder, repo := newTestProvider(t)

	stored := system.NewNavigationGraph("X1-GZ7")
	wp, _ := shared.NewWaypoint("X1-GZ7-B2", 5, 5)
	stored.AddWaypoint(wp)
	require.NoError(t, repo.Save(context.Background(), stored))

	// Act
	result, err := provider.GetGraph(context.Background(), "X1-GZ7", false, testPlayerID(t, 1))

	// Assert - no API build happened
	require.NoError(t, err)
	assert.Equal(t, system.GraphSourceDatabase, result.Source)
	assert.True(t, result.Graph.HasWaypoint("X1-GZ7-B2"))
	assert.Equal(t, 0, builder.buildCount())
}

func TestGraphProvider_ForceRefreshRebuilds(t *testing.T) {
	// Arrange
	provider, builder, _ := newTestProvider(t)
	playerID := testPlayerID(t, 1)

	_, err := provider.GetGraph(context.Background(), "X1-GZ7", false, playerID)
	require.NoError(t, err)

	// Act
	result, err := provider.GetGraph(context.Background(), "X1-GZ7", true, playerID)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, system.GraphSourceAPI, result.Source)
	assert.Equal(t, 2, builder.buildCount())
}

func TestGraphProvider_ConcurrentMissesBuildOnce(t *testing.T) {
	// Arrange
	provider, builder, _ := newTestProvider(t)
	playerID := testPlayerID(t, 1)

	// Act - many goroutines race the first load
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := provider.GetGraph(context.Background(), "X1-GZ7", false, playerID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Assert - the per-system lock collapsed them into one build
	assert.Equal(t, 1, builder.buildCount())
}

func TestGraphProvider_BuildFailurePropagates(t *testing.T) {
	// Arrange
	provider, builder, _ := newTestProvider(t)
	builder.err = assert.AnError

	// Act
	_, err := provider.GetGraph(context.Background(), "X1-GZ7", false, testPlayerID(t, 1))

	// Assert
	assert.ErrorIs(t, err, assert.AnError)
}

func TestGraphProvider_InvalidateDropsMemoryCopy(t *testing.T) {
	// Arrange
	provider, builder, _ := newTestProvider(t)
	playerID := testPlayerID(t, 1)

	_, err := provider.GetGraph(context.Background(), "X1-GZ7", false, playerID)
	require.NoError(t, err)

	// Act
	provider.Invalidate("X1-GZ7")
	result, err := provider.GetGraph(context.Background(), "X1-GZ7", false, playerID)

	// Assert - database still holds the built graph, no rebuild
	require.NoError(t, err)
	assert.Equal(t, system.GraphSourceDatabase, result.Source)
	assert.Equal(t, 1, builder.buildCount())
}

func testPlayerID(t *testing.T, id int) shared.PlayerID {
	t.Helper()
	playerID, err := shared.NewPlayerID(id)
	require.NoError(t, err)
	return playerID
}
