package trading

import (
	"fmt"

	"github.com/orbitalmachines/astrogator/internal/domain/market"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// ArbitrageAnalyzer scores buy/sell market pairs. Pure domain service; all
// methods are stateless and deterministic.
type ArbitrageAnalyzer struct {
	profitWeight    float64
	supplyWeight    float64
	activityWeight  float64
	distancePenalty float64
}

func NewArbitrageAnalyzer() *ArbitrageAnalyzer {
	return &ArbitrageAnalyzer{
		profitWeight:    40.0,
		supplyWeight:    20.0,
		activityWeight:  20.0,
		distancePenalty: 0.1,
	}
}

// AnalyzeMarketPair builds a scored opportunity from a buy market and a sell
// market listing the same good. Returns an error when the pair carries no
// profit at all; a pair below minMargin comes back non-viable, not as an
// error.
func (a *ArbitrageAnalyzer) AnalyzeMarketPair(
	good string,
	buyTradeGood, sellTradeGood *market.TradeGood,
	buyWaypoint, sellWaypoint *shared.Waypoint,
	cargoCapacity int,
	minMargin float64,
) (*ArbitrageOpportunity, error) {
	if buyTradeGood == nil || sellTradeGood == nil {
		return nil, fmt.Errorf("trade good data missing for %s", good)
	}

	// We pay the buy market's ask and receive the sell market's bid.
	buyPrice := buyTradeGood.SellPrice()
	sellPrice := sellTradeGood.PurchasePrice()

	if sellPrice <= buyPrice {
		return nil, fmt.Errorf("no profit: sell price (%d) <= buy price (%d)", sellPrice, buyPrice)
	}

	buySupply := "MODERATE"
	if buyTradeGood.Supply() != nil {
		buySupply = *buyTradeGood.Supply()
	}

	sellActivity := "WEAK"
	if sellTradeGood.Activity() != nil {
		sellActivity = *sellTradeGood.Activity()
	}

	opp, err := NewArbitrageOpportunity(
		good,
		buyWaypoint,
		sellWaypoint,
		buyPrice,
		sellPrice,
		cargoCapacity,
		buySupply,
		sellActivity,
		minMargin,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create opportunity: %w", err)
	}

	opp.SetScore(a.ScoreOpportunity(opp))

	return opp, nil
}

// ScoreOpportunity computes the composite score:
//
//	margin*40 + supplyScore*20 + activityScore*20 - distance*0.1
//
// Margin dominates; supply and activity derate risky markets; distance is a
// fuel tiebreaker.
func (a *ArbitrageAnalyzer) ScoreOpportunity(opp *ArbitrageOpportunity) float64 {
	profitScore := opp.ProfitMargin() * a.profitWeight
	supplyScore := a.SupplyToScore(opp.BuySupply()) * a.supplyWeight
	activityScore := a.ActivityToScore(opp.SellActivity()) * a.activityWeight
	distanceScore := opp.Distance() * a.distancePenalty

	return profitScore + supplyScore + activityScore - distanceScore
}

// SupplyToScore maps the buy market's supply to 0..20. Abundant supply means
// low stockout risk while filling cargo.
func (a *ArbitrageAnalyzer) SupplyToScore(supply string) float64 {
	switch supply {
	case "ABUNDANT":
		return 20.0
	case "HIGH":
		return 15.0
	case "MODERATE":
		return 10.0
	case "LIMITED":
		return 5.0
	default:
		return 0.0
	}
}

// ActivityToScore maps the sell market's activity to 0..20. Strong activity
// means demand will still be there when the hauler arrives.
func (a *ArbitrageAnalyzer) ActivityToScore(activity string) float64 {
	switch activity {
	case "STRONG":
		return 20.0
	case "GROWING":
		return 15.0
	case "WEAK":
		return 5.0
	default:
		return 0.0
	}
}
