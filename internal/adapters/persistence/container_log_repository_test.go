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

func TestContainerLogRepository_LogAndGet(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormContainerLogRepository(db, nil)
	playerID := testPlayerID(t, 1)

	// Act
	err := repo.Log(context.Background(), "container-a", playerID, "navigation started", "INFO", map[string]interface{}{
		"destination": "X1-GZ7-B2",
	})

	// Assert
	require.NoError(t, err)

	logs, err := repo.GetLogs(context.Background(), "container-a", playerID, 0, nil, nil)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "navigation started", logs[0].Message)
	assert.Equal(t, "INFO", logs[0].Level)
	assert.Equal(t, "X1-GZ7-B2", logs[0].Metadata["destination"])
}

func TestContainerLogRepository_DedupWithinWindow(t *testing.T) {
	// Arrange
	clock := shared.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormContainerLogRepository(db, clock)
	playerID := testPlayerID(t, 1)

	// Act - same message logged twice back to back
	require.NoError(t, repo.Log(context.Background(), "container-a", playerID, "waiting for arrival", "INFO", nil))
	require.NoError(t, repo.Log(context.Background(), "container-a", playerID, "waiting for arrival", "INFO", nil))

	// Assert - the repeat inside the window is dropped
	logs, err := repo.GetLogs(context.Background(), "container-a", playerID, 0, nil, nil)
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	// Act - once the window passes the message logs again
	clock.Advance(61 * time.Second)
	require.NoError(t, repo.Log(context.Background(), "container-a", playerID, "waiting for arrival", "INFO", nil))

	logs, err = repo.GetLogs(context.Background(), "container-a", playerID, 0, nil, nil)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

func TestContainerLogRepository_DedupScopedToContainer(t *testing.T) {
	// Arrange
	clock := shared.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormContainerLogRepository(db, clock)
	playerID := testPlayerID(t, 1)

	// Act - identical message from two containers
	require.NoError(t, repo.Log(context.Background(), "container-a", playerID, "refueling", "INFO", nil))
	require.NoError(t, repo.Log(context.Background(), "container-b", playerID, "refueling", "INFO", nil))

	// Assert - both land
	logsA, err := repo.GetLogs(context.Background(), "container-a", playerID, 0, nil, nil)
	require.NoError(t, err)
	logsB, err := repo.GetLogs(context.Background(), "container-b", playerID, 0, nil, nil)
	require.NoError(t, err)
	assert.Len(t, logsA, 1)
	assert.Len(t, logsB, 1)
}

func TestContainerLogRepository_LevelFilter(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormContainerLogRepository(db, nil)
	playerID := testPlayerID(t, 1)

	require.NoError(t, repo.Log(context.Background(), "container-a", playerID, "iteration 1 done", "INFO", nil))
	require.NoError(t, repo.Log(context.Background(), "container-a", playerID, "market fetch failed", "ERROR", nil))

	// Act
	level := "ERROR"
	logs, err := repo.GetLogs(context.Background(), "container-a", playerID, 0, &level, nil)

	// Assert
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "market fetch failed", logs[0].Message)
}

func TestContainerLogRepository_SinceFilterAndLimit(t *testing.T) {
	// Arrange
	clock := shared.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormContainerLogRepository(db, clock)
	playerID := testPlayerID(t, 1)

	require.NoError(t, repo.Log(context.Background(), "container-a", playerID, "first", "INFO", nil))
	clock.Advance(2 * time.Minute)
	require.NoError(t, repo.Log(context.Background(), "container-a", playerID, "second", "INFO", nil))
	clock.Advance(2 * time.Minute)
	require.NoError(t, repo.Log(context.Background(), "container-a", playerID, "third", "INFO", nil))

	// Act - only entries after the first
	since := time.Date(2024, 1, 1, 12, 1, 0, 0, time.UTC)
	logs, err := repo.GetLogs(context.Background(), "container-a", playerID, 0, nil, &since)

	// Assert - newest first
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "third", logs[0].Message)
	assert.Equal(t, "second", logs[1].Message)

	// Act - limit caps the page
	logs, err = repo.GetLogs(context.Background(), "container-a", playerID, 1, nil, nil)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "third", logs[0].Message)
}

func TestContainerLogRepository_DeleteByContainer(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormContainerLogRepository(db, nil)
	playerID := testPlayerID(t, 1)

	require.NoError(t, repo.Log(context.Background(), "container-a", playerID, "first", "INFO", nil))
	require.NoError(t, repo.Log(context.Background(), "container-b", playerID, "other", "INFO", nil))

	// Act
	require.NoError(t, repo.DeleteByContainer(context.Background(), "container-a"))

	// Assert - only the targeted container's rows go
	logs, err := repo.GetLogs(context.Background(), "container-a", playerID, 0, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, logs)

	logs, err = repo.GetLogs(context.Background(), "container-b", playerID, 0, nil, nil)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}
