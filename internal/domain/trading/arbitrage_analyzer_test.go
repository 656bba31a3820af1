package trading_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitalmachines/astrogator/internal/domain/market"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/internal/domain/trading"
)

func analyzerWaypoint(t *testing.T, symbol string, x, y float64) *shared.Waypoint {
	t.Helper()
	wp, err := shared.NewWaypoint(symbol, x, y)
	require.NoError(t, err)
	return wp
}

func analyzerGood(t *testing.T, supply, activity *string, purchasePrice, sellPrice int) *market.TradeGood {
	t.Helper()
	good, err := market.NewTradeGood("FUEL", supply, activity, purchasePrice, sellPrice, 60)
	require.NoError(t, err)
	return good
}

func TestAnalyzeMarketPair_BuildsScoredOpportunity(t *testing.T) {
	// Arrange
	analyzer := trading.NewArbitrageAnalyzer()
	buyWp := analyzerWaypoint(t, "X1-TST-A1", 0, 0)
	sellWp := analyzerWaypoint(t, "X1-TST-B2", 30, 0)
	buyGood := analyzerGood(t, nil, nil, 45, 50)
	sellGood := analyzerGood(t, nil, nil, 100, 110)

	// Act
	opp, err := analyzer.AnalyzeMarketPair("FUEL", buyGood, sellGood, buyWp, sellWp, 40, 10.0)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 50, opp.BuyPrice())
	assert.Equal(t, 100, opp.SellPrice())
	assert.Equal(t, 50, opp.ProfitPerUnit())
	assert.Equal(t, 2000, opp.EstimatedProfit())
	assert.InDelta(t, 100.0, opp.ProfitMargin(), 0.01)
	assert.InDelta(t, 30.0, opp.Distance(), 0.01)
	assert.True(t, opp.IsViable())

	// Missing supply and activity fall back to the neutral defaults.
	assert.Equal(t, "MODERATE", opp.BuySupply())
	assert.Equal(t, "WEAK", opp.SellActivity())
	assert.Equal(t, analyzer.ScoreOpportunity(opp), opp.Score())
}

func TestAnalyzeMarketPair_InvertedSpreadFails(t *testing.T) {
	analyzer := trading.NewArbitrageAnalyzer()
	buyWp := analyzerWaypoint(t, "X1-TST-A1", 0, 0)
	sellWp := analyzerWaypoint(t, "X1-TST-B2", 30, 0)
	buyGood := analyzerGood(t, nil, nil, 90, 100)
	sellGood := analyzerGood(t, nil, nil, 80, 95)

	_, err := analyzer.AnalyzeMarketPair("FUEL", buyGood, sellGood, buyWp, sellWp, 40, 10.0)

	assert.Error(t, err)
}

func TestAnalyzeMarketPair_MissingGoodDataFails(t *testing.T) {
	analyzer := trading.NewArbitrageAnalyzer()
	buyWp := analyzerWaypoint(t, "X1-TST-A1", 0, 0)
	sellWp := analyzerWaypoint(t, "X1-TST-B2", 30, 0)
	sellGood := analyzerGood(t, nil, nil, 100, 110)

	_, err := analyzer.AnalyzeMarketPair("FUEL", nil, sellGood, buyWp, sellWp, 40, 10.0)

	assert.Error(t, err)
}

func TestAnalyzeMarketPair_ThinMarginIsNotViable(t *testing.T) {
	analyzer := trading.NewArbitrageAnalyzer()
	buyWp := analyzerWaypoint(t, "X1-TST-A1", 0, 0)
	sellWp := analyzerWaypoint(t, "X1-TST-B2", 30, 0)
	buyGood := analyzerGood(t, nil, nil, 95, 100)
	sellGood := analyzerGood(t, nil, nil, 105, 115)

	opp, err := analyzer.AnalyzeMarketPair("FUEL", buyGood, sellGood, buyWp, sellWp, 40, 10.0)

	require.NoError(t, err)
	assert.False(t, opp.IsViable())
	assert.InDelta(t, 5.0, opp.ProfitMargin(), 0.01)
}

func TestScoreOpportunity_SupplyAndActivityWeighting(t *testing.T) {
	analyzer := trading.NewArbitrageAnalyzer()
	buyWp := analyzerWaypoint(t, "X1-TST-A1", 0, 0)
	sellWp := analyzerWaypoint(t, "X1-TST-B2", 30, 0)

	abundant, strong := "ABUNDANT", "STRONG"
	scarce, weak := "SCARCE", "WEAK"

	rich, err := analyzer.AnalyzeMarketPair("FUEL",
		analyzerGood(t, &abundant, nil, 45, 50),
		analyzerGood(t, nil, &strong, 100, 110),
		buyWp, sellWp, 40, 10.0)
	require.NoError(t, err)

	poor, err := analyzer.AnalyzeMarketPair("FUEL",
		analyzerGood(t, &scarce, nil, 45, 50),
		analyzerGood(t, nil, &weak, 100, 110),
		buyWp, sellWp, 40, 10.0)
	require.NoError(t, err)

	// Same spread, so the market-quality terms decide the ordering.
	assert.Greater(t, rich.Score(), poor.Score())
}

func TestSupplyAndActivityScores(t *testing.T) {
	analyzer := trading.NewArbitrageAnalyzer()

	assert.Equal(t, 20.0, analyzer.SupplyToScore("ABUNDANT"))
	assert.Equal(t, 10.0, analyzer.SupplyToScore("MODERATE"))
	assert.Equal(t, 0.0, analyzer.SupplyToScore("SCARCE"))

	assert.Equal(t, 20.0, analyzer.ActivityToScore("STRONG"))
	assert.Equal(t, 5.0, analyzer.ActivityToScore("WEAK"))
	assert.Equal(t, 0.0, analyzer.ActivityToScore("RESTRICTED"))
}
