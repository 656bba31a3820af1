package queries_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitalmachines/astrogator/internal/application/player"
	"github.com/orbitalmachines/astrogator/internal/application/trading/queries"
	"github.com/orbitalmachines/astrogator/internal/application/trading/services"
	"github.com/orbitalmachines/astrogator/internal/domain/market"
	domainplayer "github.com/orbitalmachines/astrogator/internal/domain/player"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/test/helpers"
)

type opportunityQueryFixture struct {
	handler      *queries.FindArbitrageOpportunitiesHandler
	marketRepo   *helpers.MockMarketRepository
	waypointRepo *helpers.MockWaypointRepository
	playerID     shared.PlayerID
	playerIDInt  int
}

func newOpportunityQueryFixture(t *testing.T) *opportunityQueryFixture {
	t.Helper()

	players := helpers.NewMockPlayerRepository()
	p, err := domainplayer.New("AGENT", "token-1")
	require.NoError(t, err)
	playerID := players.AddPlayer(p)

	marketRepo := helpers.NewMockMarketRepository()
	waypointRepo := helpers.NewMockWaypointRepository()
	finder := services.NewArbitrageOpportunityFinder(marketRepo, waypointRepo)

	return &opportunityQueryFixture{
		handler:      queries.NewFindArbitrageOpportunitiesHandler(finder, player.NewResolver(players)),
		marketRepo:   marketRepo,
		waypointRepo: waypointRepo,
		playerID:     playerID,
		playerIDInt:  playerID.Value(),
	}
}

func (f *opportunityQueryFixture) seed(t *testing.T, symbol string, x, y float64, goods ...market.TradeGoodData) {
	t.Helper()
	f.waypointRepo.AddWaypoint(helpers.TestWaypoint(t, symbol, x, y, "MARKETPLACE"))
	f.marketRepo.SeedMarket(t, f.playerID, symbol, goods...)
}

func TestFindArbitrageOpportunities_ReturnsScoredDTOs(t *testing.T) {
	f := newOpportunityQueryFixture(t)
	f.seed(t, "X1-TST-A1", 0, 0,
		market.TradeGoodData{Symbol: "FUEL", SellPrice: 50, PurchasePrice: 40, TradeVolume: 100})
	f.seed(t, "X1-TST-B2", 30, 0,
		market.TradeGoodData{Symbol: "FUEL", SellPrice: 110, PurchasePrice: 100, TradeVolume: 100})

	resp, err := f.handler.Handle(context.Background(), &queries.FindArbitrageOpportunitiesQuery{
		PlayerID:      &f.playerIDInt,
		SystemSymbol:  "X1-TST",
		CargoCapacity: 40,
	})
	require.NoError(t, err)

	result := resp.(*queries.FindArbitrageOpportunitiesResponse)
	require.Len(t, result.Opportunities, 1)

	dto := result.Opportunities[0]
	assert.Equal(t, "FUEL", dto.Good)
	assert.Equal(t, "X1-TST-A1", dto.BuyMarket)
	assert.Equal(t, "X1-TST-B2", dto.SellMarket)
	assert.Equal(t, 50, dto.BuyPrice)
	assert.Equal(t, 100, dto.SellPrice)
	assert.Equal(t, 50, dto.ProfitPerUnit)
	assert.Equal(t, 2000, dto.EstimatedProfit)
	assert.InDelta(t, 30.0, dto.Distance, 0.01)
	assert.Greater(t, dto.Score, 0.0)
}

func TestFindArbitrageOpportunities_QuietSystemReturnsEmptyList(t *testing.T) {
	f := newOpportunityQueryFixture(t)

	// Both markets quote the same prices; nothing clears the margin bar.
	f.seed(t, "X1-TST-A1", 0, 0,
		market.TradeGoodData{Symbol: "FUEL", SellPrice: 100, PurchasePrice: 90, TradeVolume: 100})
	f.seed(t, "X1-TST-B2", 30, 0,
		market.TradeGoodData{Symbol: "FUEL", SellPrice: 100, PurchasePrice: 90, TradeVolume: 100})

	resp, err := f.handler.Handle(context.Background(), &queries.FindArbitrageOpportunitiesQuery{
		PlayerID:     &f.playerIDInt,
		SystemSymbol: "X1-TST",
	})
	require.NoError(t, err)
	assert.Empty(t, resp.(*queries.FindArbitrageOpportunitiesResponse).Opportunities)
}

func TestFindArbitrageOpportunities_MissingMarketDataFails(t *testing.T) {
	f := newOpportunityQueryFixture(t)

	_, err := f.handler.Handle(context.Background(), &queries.FindArbitrageOpportunitiesQuery{
		PlayerID:     &f.playerIDInt,
		SystemSymbol: "X1-TST",
	})
	require.Error(t, err)
}

func TestFindArbitrageOpportunities_ResolvesAgentSymbol(t *testing.T) {
	f := newOpportunityQueryFixture(t)
	f.seed(t, "X1-TST-A1", 0, 0,
		market.TradeGoodData{Symbol: "FUEL", SellPrice: 50, PurchasePrice: 40, TradeVolume: 100})
	f.seed(t, "X1-TST-B2", 30, 0,
		market.TradeGoodData{Symbol: "FUEL", SellPrice: 110, PurchasePrice: 100, TradeVolume: 100})

	resp, err := f.handler.Handle(context.Background(), &queries.FindArbitrageOpportunitiesQuery{
		AgentSymbol:  "AGENT",
		SystemSymbol: "X1-TST",
	})
	require.NoError(t, err)
	assert.Len(t, resp.(*queries.FindArbitrageOpportunitiesResponse).Opportunities, 1)
}

func TestFindArbitrageOpportunities_UnknownPlayerFails(t *testing.T) {
	f := newOpportunityQueryFixture(t)

	_, err := f.handler.Handle(context.Background(), &queries.FindArbitrageOpportunitiesQuery{
		AgentSymbol:  "NOBODY",
		SystemSymbol: "X1-TST",
	})
	require.Error(t, err)
	assert.True(t, shared.IsCode(err, shared.ErrPlayerNotFound))
}
