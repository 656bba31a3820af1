package queries_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitalmachines/astrogator/internal/adapters/persistence"
	"github.com/orbitalmachines/astrogator/internal/application/player"
	"github.com/orbitalmachines/astrogator/internal/application/scouting/queries"
	"github.com/orbitalmachines/astrogator/internal/domain/market"
	playerdomain "github.com/orbitalmachines/astrogator/internal/domain/player"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/test/helpers"
	"gorm.io/gorm"
)

var queryNow = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

type marketQueryFixture struct {
	db         *gorm.DB
	marketRepo *persistence.MarketRepositoryGORM
	resolver   *player.Resolver
	clock      *shared.MockClock
	playerID   shared.PlayerID
	playerRef  *int
}

func newMarketQueryFixture(t *testing.T) *marketQueryFixture {
	t.Helper()
	db := helpers.NewTestDB(t)
	playerID := helpers.TestPlayerID(t, 1)
	id := playerID.Value()
	return &marketQueryFixture{
		db:         db,
		marketRepo: persistence.NewMarketRepository(db),
		resolver:   player.NewResolver(persistence.NewGormPlayerRepository(db, nil)),
		clock:      shared.NewMockClock(queryNow),
		playerID:   playerID,
		playerRef:  &id,
	}
}

// seedMarket stores a snapshot whose age relative to queryNow is controlled
// by the caller.
func (f *marketQueryFixture) seedMarket(t *testing.T, waypointSymbol string, age time.Duration, goods ...market.TradeGood) {
	t.Helper()
	m, err := market.NewMarket(waypointSymbol, goods, queryNow.Add(-age))
	require.NoError(t, err)
	require.NoError(t, f.marketRepo.Upsert(context.Background(), m, f.playerID))
}

func seedGood(t *testing.T, symbol string, purchasePrice, sellPrice int) market.TradeGood {
	t.Helper()
	supply := "MODERATE"
	g, err := market.NewTradeGood(symbol, &supply, nil, purchasePrice, sellPrice, 60)
	require.NoError(t, err)
	return *g
}

func TestGetMarketData_ReturnsFreshSnapshot(t *testing.T) {
	// Arrange
	f := newMarketQueryFixture(t)
	f.seedMarket(t, "X1-GZ7-A1", 5*time.Minute,
		seedGood(t, "IRON_ORE", 40, 55),
		seedGood(t, "FUEL", 70, 80),
	)
	handler := queries.NewGetMarketDataHandler(f.marketRepo, f.resolver, f.clock)

	// Act
	response, err := handler.Handle(context.Background(), &queries.GetMarketDataQuery{
		PlayerID:       f.playerRef,
		WaypointSymbol: "X1-GZ7-A1",
	})

	// Assert
	require.NoError(t, err)
	result := response.(*queries.GetMarketDataResponse)
	require.NotNil(t, result.Market)

	assert.Equal(t, "X1-GZ7-A1", result.Market.WaypointSymbol)
	assert.Len(t, result.Market.Goods, 2)
	assert.Equal(t, 300, result.Market.AgeSeconds)
	assert.False(t, result.Market.Stale)
	assert.WithinDuration(t, queryNow.Add(-5*time.Minute), result.Market.LastUpdated, time.Second)

	bySymbol := make(map[string]queries.TradeGoodDTO)
	for _, good := range result.Market.Goods {
		bySymbol[good.Symbol] = good
	}
	iron := bySymbol["IRON_ORE"]
	assert.Equal(t, 40, iron.PurchasePrice)
	assert.Equal(t, 55, iron.SellPrice)
	require.NotNil(t, iron.Supply)
	assert.Equal(t, "MODERATE", *iron.Supply)
	assert.Nil(t, iron.Activity)
}

func TestGetMarketData_FlagsOldSnapshotStale(t *testing.T) {
	// Arrange
	f := newMarketQueryFixture(t)
	f.seedMarket(t, "X1-GZ7-A1", 16*time.Minute, seedGood(t, "FUEL", 70, 80))
	handler := queries.NewGetMarketDataHandler(f.marketRepo, f.resolver, f.clock)

	// Act
	response, err := handler.Handle(context.Background(), &queries.GetMarketDataQuery{
		PlayerID:       f.playerRef,
		WaypointSymbol: "X1-GZ7-A1",
	})

	// Assert
	require.NoError(t, err)
	result := response.(*queries.GetMarketDataResponse)
	assert.True(t, result.Market.Stale)
	assert.Equal(t, 960, result.Market.AgeSeconds)
}

func TestGetMarketData_UnknownWaypointFails(t *testing.T) {
	// Arrange
	f := newMarketQueryFixture(t)
	handler := queries.NewGetMarketDataHandler(f.marketRepo, f.resolver, f.clock)

	// Act
	_, err := handler.Handle(context.Background(), &queries.GetMarketDataQuery{
		PlayerID:       f.playerRef,
		WaypointSymbol: "X1-GZ7-Z9",
	})

	// Assert
	assert.ErrorIs(t, err, market.ErrMarketNotFound)
}

func TestGetMarketData_ResolvesAgentSymbol(t *testing.T) {
	// Arrange
	f := newMarketQueryFixture(t)

	agent, err := playerdomain.New("QUERYAGENT", "token-1")
	require.NoError(t, err)
	playerRepo := persistence.NewGormPlayerRepository(f.db, nil)
	require.NoError(t, playerRepo.Add(context.Background(), agent))

	snapshot, err := market.NewMarket("X1-GZ7-A1",
		[]market.TradeGood{seedGood(t, "FUEL", 70, 80)}, queryNow.Add(-time.Minute))
	require.NoError(t, err)
	require.NoError(t, f.marketRepo.Upsert(context.Background(), snapshot, agent.ID))

	handler := queries.NewGetMarketDataHandler(f.marketRepo, f.resolver, f.clock)

	// Act
	response, err := handler.Handle(context.Background(), &queries.GetMarketDataQuery{
		AgentSymbol:    "QUERYAGENT",
		WaypointSymbol: "X1-GZ7-A1",
	})

	// Assert
	require.NoError(t, err)
	result := response.(*queries.GetMarketDataResponse)
	assert.Equal(t, "X1-GZ7-A1", result.Market.WaypointSymbol)
}

func TestGetMarketData_RejectsWrongRequestType(t *testing.T) {
	// Arrange
	f := newMarketQueryFixture(t)
	handler := queries.NewGetMarketDataHandler(f.marketRepo, f.resolver, f.clock)

	// Act
	_, err := handler.Handle(context.Background(), &queries.ListSystemMarketsQuery{})

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid request type")
}

func TestListSystemMarkets_ReturnsStoredSnapshots(t *testing.T) {
	// Arrange
	f := newMarketQueryFixture(t)
	f.seedMarket(t, "X1-GZ7-A1", 2*time.Minute, seedGood(t, "FUEL", 70, 80))
	f.seedMarket(t, "X1-GZ7-B2", 20*time.Minute, seedGood(t, "IRON_ORE", 40, 55))
	f.seedMarket(t, "X1-ABC-C3", time.Minute, seedGood(t, "FUEL", 60, 66))
	handler := queries.NewListSystemMarketsHandler(f.marketRepo, f.resolver, f.clock)

	// Act
	response, err := handler.Handle(context.Background(), &queries.ListSystemMarketsQuery{
		PlayerID:     f.playerRef,
		SystemSymbol: "X1-GZ7",
	})

	// Assert
	require.NoError(t, err)
	result := response.(*queries.ListSystemMarketsResponse)
	require.Len(t, result.Markets, 2)

	assert.Equal(t, "X1-GZ7-A1", result.Markets[0].WaypointSymbol)
	assert.False(t, result.Markets[0].Stale)
	assert.Equal(t, "X1-GZ7-B2", result.Markets[1].WaypointSymbol)
	assert.True(t, result.Markets[1].Stale)
}

func TestListSystemMarkets_EmptySystem(t *testing.T) {
	// Arrange
	f := newMarketQueryFixture(t)
	handler := queries.NewListSystemMarketsHandler(f.marketRepo, f.resolver, f.clock)

	// Act
	response, err := handler.Handle(context.Background(), &queries.ListSystemMarketsQuery{
		PlayerID:     f.playerRef,
		SystemSymbol: "X1-GZ7",
	})

	// Assert
	require.NoError(t, err)
	result := response.(*queries.ListSystemMarketsResponse)
	assert.Empty(t, result.Markets)
}
