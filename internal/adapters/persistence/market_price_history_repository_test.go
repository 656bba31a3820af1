package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitalmachines/astrogator/internal/adapters/persistence"
	"github.com/orbitalmachines/astrogator/internal/domain/market"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/test/helpers"
)

func observation(t *testing.T, playerID shared.PlayerID, purchasePrice, sellPrice int, recordedAt time.Time) *market.PriceHistory {
	t.Helper()
	h, err := market.NewPriceHistory("X1-GZ7-A1", "IRON_ORE", playerID, purchasePrice, sellPrice, strPtr("MODERATE"), strPtr("STRONG"), 60, recordedAt)
	require.NoError(t, err)
	return h
}

func TestPriceHistoryRepository_RecordAndGetLatest(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormPriceHistoryRepository(db)
	playerID := testPlayerID(t, 1)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.RecordPriceChange(context.Background(), observation(t, playerID, 40, 55, base)))
	require.NoError(t, repo.RecordPriceChange(context.Background(), observation(t, playerID, 44, 58, base.Add(time.Hour))))

	// Act
	latest, err := repo.GetLatest(context.Background(), "X1-GZ7-A1", "IRON_ORE", playerID)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 44, latest.PurchasePrice())
	assert.Equal(t, 58, latest.SellPrice())
	assert.Equal(t, "MODERATE", *latest.Supply())
}

func TestPriceHistoryRepository_GetLatestMissReturnsNil(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormPriceHistoryRepository(db)

	// Act
	latest, err := repo.GetLatest(context.Background(), "X1-GZ7-Z9", "GOLD", testPlayerID(t, 1))

	// Assert
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestPriceHistoryRepository_GetPriceHistory(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormPriceHistoryRepository(db)
	playerID := testPlayerID(t, 1)
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.RecordPriceChange(context.Background(), observation(t, playerID, 40, 55, base)))
	require.NoError(t, repo.RecordPriceChange(context.Background(), observation(t, playerID, 42, 56, base.Add(time.Hour))))
	require.NoError(t, repo.RecordPriceChange(context.Background(), observation(t, playerID, 45, 61, base.Add(2*time.Hour))))

	// Act - newest first
	history, err := repo.GetPriceHistory(context.Background(), "X1-GZ7-A1", "IRON_ORE", time.Time{}, 0)

	// Assert
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, 45, history[0].PurchasePrice())
	assert.Equal(t, 40, history[2].PurchasePrice())

	// Act - since trims older observations, limit caps the page
	history, err = repo.GetPriceHistory(context.Background(), "X1-GZ7-A1", "IRON_ORE", base.Add(30*time.Minute), 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 45, history[0].PurchasePrice())
}
