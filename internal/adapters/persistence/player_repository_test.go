package persistence_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitalmachines/astrogator/internal/adapters/persistence"
	"github.com/orbitalmachines/astrogator/internal/domain/player"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/test/helpers"
)

func TestPlayerRepository_AddAssignsID(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormPlayerRepository(db, nil)

	p, err := player.New("TEST-AGENT", "test-token-123")
	require.NoError(t, err)

	// Act
	err = repo.Add(context.Background(), p)

	// Assert
	require.NoError(t, err)
	assert.False(t, p.ID.IsZero())
	assert.False(t, p.CreatedAt.IsZero())
}

func TestPlayerRepository_AddAndFindByID(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormPlayerRepository(db, nil)

	p, err := player.New("TEST-AGENT", "test-token-123")
	require.NoError(t, err)
	p.Headquarters = "X1-GZ7-A1"
	p.Credits = 100000
	p.StartingFaction = "COSMIC"

	require.NoError(t, repo.Add(context.Background(), p))

	// Act
	found, err := repo.FindByID(context.Background(), p.ID)

	// Assert
	require.NoError(t, err)
	assert.True(t, p.ID.Equals(found.ID))
	assert.Equal(t, "TEST-AGENT", found.AgentSymbol)
	assert.Equal(t, "test-token-123", found.Token)
	assert.Equal(t, "X1-GZ7-A1", found.Headquarters)
	assert.Equal(t, 100000, found.Credits)
	assert.Equal(t, "COSMIC", found.StartingFaction)
}

func TestPlayerRepository_FindByAgentSymbol(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormPlayerRepository(db, nil)

	p, err := player.New("AGENT-2", "token-456")
	require.NoError(t, err)
	require.NoError(t, repo.Add(context.Background(), p))

	// Act
	found, err := repo.FindByAgentSymbol(context.Background(), "AGENT-2")

	// Assert
	require.NoError(t, err)
	assert.True(t, p.ID.Equals(found.ID))
	assert.Equal(t, "AGENT-2", found.AgentSymbol)
}

func TestPlayerRepository_FindAll(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormPlayerRepository(db, nil)

	p1, _ := player.New("AGENT-A", "token-a")
	p2, _ := player.New("AGENT-B", "token-b")
	require.NoError(t, repo.Add(context.Background(), p1))
	require.NoError(t, repo.Add(context.Background(), p2))

	// Act
	players, err := repo.FindAll(context.Background())

	// Assert
	require.NoError(t, err)
	require.Len(t, players, 2)
	assert.Equal(t, "AGENT-A", players[0].AgentSymbol)
	assert.Equal(t, "AGENT-B", players[1].AgentSymbol)
}

func TestPlayerRepository_UpdateCredits(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormPlayerRepository(db, nil)

	p, _ := player.New("AGENT-C", "token-c")
	require.NoError(t, repo.Add(context.Background(), p))

	// Act
	err := repo.UpdateCredits(context.Background(), p.ID, 250000)

	// Assert
	require.NoError(t, err)
	found, err := repo.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 250000, found.Credits)
}

func TestPlayerRepository_UpdateCreditsUnknownPlayer(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormPlayerRepository(db, nil)

	missing, err := shared.NewPlayerID(999)
	require.NoError(t, err)

	// Act
	err = repo.UpdateCredits(context.Background(), missing, 1)

	// Assert
	assert.True(t, shared.IsCode(err, shared.ErrPlayerNotFound))
}

func TestPlayerRepository_NotFound(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormPlayerRepository(db, nil)

	missing, err := shared.NewPlayerID(999)
	require.NoError(t, err)

	// Act
	_, err = repo.FindByID(context.Background(), missing)

	// Assert
	assert.True(t, shared.IsCode(err, shared.ErrPlayerNotFound))

	_, err = repo.FindByAgentSymbol(context.Background(), "NO-SUCH-AGENT")
	assert.True(t, shared.IsCode(err, shared.ErrPlayerNotFound))
}
