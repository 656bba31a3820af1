package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitalmachines/astrogator/internal/application/trading/services"
	"github.com/orbitalmachines/astrogator/internal/domain/market"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/internal/domain/trading"
	"github.com/orbitalmachines/astrogator/test/helpers"
)

// finderFixture seeds stored market snapshots and their charted waypoints.
// TradeGoodData.SellPrice is the market's ask (what we pay to buy),
// PurchasePrice is its bid (what we receive when selling).
type finderFixture struct {
	finder       *services.ArbitrageOpportunityFinder
	marketRepo   *helpers.MockMarketRepository
	waypointRepo *helpers.MockWaypointRepository
	playerID     shared.PlayerID
}

func newFinderFixture(t *testing.T) *finderFixture {
	t.Helper()

	marketRepo := helpers.NewMockMarketRepository()
	waypointRepo := helpers.NewMockWaypointRepository()

	return &finderFixture{
		finder:       services.NewArbitrageOpportunityFinder(marketRepo, waypointRepo),
		marketRepo:   marketRepo,
		waypointRepo: waypointRepo,
		playerID:     helpers.TestPlayerID(t, 1),
	}
}

func (f *finderFixture) seed(t *testing.T, symbol string, x, y float64, goods ...market.TradeGoodData) {
	t.Helper()
	f.waypointRepo.AddWaypoint(helpers.TestWaypoint(t, symbol, x, y, "MARKETPLACE"))
	f.marketRepo.SeedMarket(t, f.playerID, symbol, goods...)
}

func TestArbitrageFinder_RanksOpportunitiesByScore(t *testing.T) {
	f := newFinderFixture(t)

	// FUEL carries a 100% margin, IRON only 10%.
	f.seed(t, "X1-TST-A1", 0, 0,
		market.TradeGoodData{Symbol: "FUEL", SellPrice: 50, PurchasePrice: 40, TradeVolume: 100},
		market.TradeGoodData{Symbol: "IRON", SellPrice: 100, PurchasePrice: 90, TradeVolume: 100},
	)
	f.seed(t, "X1-TST-B2", 30, 0,
		market.TradeGoodData{Symbol: "FUEL", SellPrice: 110, PurchasePrice: 100, TradeVolume: 100},
		market.TradeGoodData{Symbol: "IRON", SellPrice: 120, PurchasePrice: 110, TradeVolume: 100},
	)

	opportunities, err := f.finder.FindOpportunities(context.Background(), "X1-TST", f.playerID, 40, 5.0, 10)
	require.NoError(t, err)
	require.Len(t, opportunities, 2)

	best := opportunities[0]
	assert.Equal(t, "FUEL", best.Good())
	assert.Equal(t, "X1-TST-A1", best.BuyMarket().Symbol)
	assert.Equal(t, "X1-TST-B2", best.SellMarket().Symbol)
	assert.Equal(t, 50, best.BuyPrice())
	assert.Equal(t, 100, best.SellPrice())
	assert.Equal(t, 50, best.ProfitPerUnit())
	assert.Equal(t, 50*40, best.EstimatedProfit())
	assert.InDelta(t, 100.0, best.ProfitMargin(), 0.01)

	assert.Equal(t, "IRON", opportunities[1].Good())
	assert.Greater(t, best.Score(), opportunities[1].Score())
}

func TestArbitrageFinder_LimitTrimsResults(t *testing.T) {
	f := newFinderFixture(t)

	f.seed(t, "X1-TST-A1", 0, 0,
		market.TradeGoodData{Symbol: "FUEL", SellPrice: 50, PurchasePrice: 40, TradeVolume: 100},
		market.TradeGoodData{Symbol: "IRON", SellPrice: 60, PurchasePrice: 50, TradeVolume: 100},
	)
	f.seed(t, "X1-TST-B2", 30, 0,
		market.TradeGoodData{Symbol: "FUEL", SellPrice: 110, PurchasePrice: 100, TradeVolume: 100},
		market.TradeGoodData{Symbol: "IRON", SellPrice: 130, PurchasePrice: 120, TradeVolume: 100},
	)

	opportunities, err := f.finder.FindOpportunities(context.Background(), "X1-TST", f.playerID, 40, 5.0, 1)
	require.NoError(t, err)
	assert.Len(t, opportunities, 1)
}

func TestArbitrageFinder_SingleMarketLacksData(t *testing.T) {
	f := newFinderFixture(t)

	f.seed(t, "X1-TST-A1", 0, 0,
		market.TradeGoodData{Symbol: "FUEL", SellPrice: 50, PurchasePrice: 40, TradeVolume: 100},
	)

	_, err := f.finder.FindOpportunities(context.Background(), "X1-TST", f.playerID, 40, 5.0, 10)
	assert.ErrorIs(t, err, trading.ErrMarketDataUnavailable)
}

func TestArbitrageFinder_UnchartedMarketSkipped(t *testing.T) {
	f := newFinderFixture(t)

	// Two snapshots stored, but only one waypoint is charted; the other
	// snapshot drops out and leaves too little data to pair.
	f.seed(t, "X1-TST-A1", 0, 0,
		market.TradeGoodData{Symbol: "FUEL", SellPrice: 50, PurchasePrice: 40, TradeVolume: 100},
	)
	f.marketRepo.SeedMarket(t, f.playerID, "X1-TST-B2",
		market.TradeGoodData{Symbol: "FUEL", SellPrice: 110, PurchasePrice: 100, TradeVolume: 100},
	)

	_, err := f.finder.FindOpportunities(context.Background(), "X1-TST", f.playerID, 40, 5.0, 10)
	assert.ErrorIs(t, err, trading.ErrMarketDataUnavailable)
}

func TestArbitrageFinder_NoProfitablePair(t *testing.T) {
	f := newFinderFixture(t)

	// Both markets ask more than the other bids.
	f.seed(t, "X1-TST-A1", 0, 0,
		market.TradeGoodData{Symbol: "FUEL", SellPrice: 100, PurchasePrice: 90, TradeVolume: 100},
	)
	f.seed(t, "X1-TST-B2", 30, 0,
		market.TradeGoodData{Symbol: "FUEL", SellPrice: 100, PurchasePrice: 90, TradeVolume: 100},
	)

	_, err := f.finder.FindOpportunities(context.Background(), "X1-TST", f.playerID, 40, 5.0, 10)
	assert.ErrorIs(t, err, trading.ErrNoOpportunitiesFound)
}

func TestArbitrageFinder_MarginBelowThresholdNotViable(t *testing.T) {
	f := newFinderFixture(t)

	// A 10% margin exists but the caller demands 20%.
	f.seed(t, "X1-TST-A1", 0, 0,
		market.TradeGoodData{Symbol: "FUEL", SellPrice: 100, PurchasePrice: 90, TradeVolume: 100},
	)
	f.seed(t, "X1-TST-B2", 30, 0,
		market.TradeGoodData{Symbol: "FUEL", SellPrice: 120, PurchasePrice: 110, TradeVolume: 100},
	)

	_, err := f.finder.FindOpportunities(context.Background(), "X1-TST", f.playerID, 40, 20.0, 10)
	assert.ErrorIs(t, err, trading.ErrNoOpportunitiesFound)

	opportunities, err := f.finder.FindOpportunities(context.Background(), "X1-TST", f.playerID, 40, 5.0, 10)
	require.NoError(t, err)
	assert.Len(t, opportunities, 1)
}

func TestArbitrageFinder_RejectsInvalidInputs(t *testing.T) {
	f := newFinderFixture(t)

	_, err := f.finder.FindOpportunities(context.Background(), "X1-TST", f.playerID, 0, 5.0, 10)
	assert.ErrorIs(t, err, trading.ErrInvalidCargoCapacity)

	_, err = f.finder.FindOpportunities(context.Background(), "X1-TST", f.playerID, 40, -1.0, 10)
	assert.ErrorIs(t, err, trading.ErrInvalidMarginThreshold)
}

func TestArbitrageFinder_RepositoryErrorPropagates(t *testing.T) {
	f := newFinderFixture(t)
	f.marketRepo.Err = assert.AnError

	_, err := f.finder.FindOpportunities(context.Background(), "X1-TST", f.playerID, 40, 5.0, 10)
	assert.ErrorIs(t, err, assert.AnError)
}
