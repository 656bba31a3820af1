package steps

import (
	"context"
	"fmt"
	"math"

	"github.com/cucumber/godog"

	"github.com/orbitalmachines/astrogator/internal/domain/market"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/internal/domain/trading"
)

type arbitrageAnalysisContext struct {
	good      string
	buyGood   *market.TradeGood
	sellGood  *market.TradeGood
	buyWp     *shared.Waypoint
	sellWp    *shared.Waypoint
	buySupply *string

	capacity  int
	minMargin float64

	opportunity *trading.ArbitrageOpportunity
	second      *trading.ArbitrageOpportunity
	analysisErr error
}

func (ac *arbitrageAnalysisContext) reset() {
	*ac = arbitrageAnalysisContext{}
}

func (ac *arbitrageAnalysisContext) buyMarketAsks(x, y, ask int, good string) error {
	return ac.buyMarketAsksWithSupply(x, y, ask, good, "")
}

func (ac *arbitrageAnalysisContext) buyMarketAsksWithSupply(x, y, ask int, good, supply string) error {
	wp, err := shared.NewWaypoint("X1-TST-BUY", float64(x), float64(y))
	if err != nil {
		return err
	}
	var supplyPtr *string
	if supply != "" {
		supplyPtr = &supply
	}
	// The ask is what the market charges us, its sell price.
	tg, err := market.NewTradeGood(good, supplyPtr, nil, ask/2, ask, 60)
	if err != nil {
		return err
	}
	ac.good = good
	ac.buyWp = wp
	ac.buyGood = tg
	ac.buySupply = supplyPtr
	return nil
}

func (ac *arbitrageAnalysisContext) sellMarketBids(x, y, bid int, good string) error {
	wp, err := shared.NewWaypoint("X1-TST-SELL", float64(x), float64(y))
	if err != nil {
		return err
	}
	// The bid is what the market pays us, its purchase price.
	tg, err := market.NewTradeGood(good, nil, nil, bid, bid*2, 60)
	if err != nil {
		return err
	}
	ac.sellWp = wp
	ac.sellGood = tg
	return nil
}

func (ac *arbitrageAnalysisContext) iAnalyzeThePair(capacity int, minMargin int) error {
	ac.capacity = capacity
	ac.minMargin = float64(minMargin)
	analyzer := trading.NewArbitrageAnalyzer()
	ac.opportunity, ac.analysisErr = analyzer.AnalyzeMarketPair(
		ac.good, ac.buyGood, ac.sellGood, ac.buyWp, ac.sellWp, capacity, ac.minMargin)
	return nil
}

func (ac *arbitrageAnalysisContext) iAnalyzeTheSamePairWithSupply(supply string) error {
	tg, err := market.NewTradeGood(ac.good, &supply, nil,
		ac.buyGood.PurchasePrice(), ac.buyGood.SellPrice(), ac.buyGood.TradeVolume())
	if err != nil {
		return err
	}
	analyzer := trading.NewArbitrageAnalyzer()
	ac.second, err = analyzer.AnalyzeMarketPair(
		ac.good, tg, ac.sellGood, ac.buyWp, ac.sellWp, ac.capacity, ac.minMargin)
	return err
}

func (ac *arbitrageAnalysisContext) requireOpportunity() error {
	if ac.analysisErr != nil {
		return fmt.Errorf("analysis failed: %w", ac.analysisErr)
	}
	if ac.opportunity == nil {
		return fmt.Errorf("no opportunity produced")
	}
	return nil
}

func (ac *arbitrageAnalysisContext) theOpportunityShouldBeViable() error {
	if err := ac.requireOpportunity(); err != nil {
		return err
	}
	if !ac.opportunity.IsViable() {
		return fmt.Errorf("opportunity is not viable at %.1f%% margin", ac.opportunity.ProfitMargin())
	}
	return nil
}

func (ac *arbitrageAnalysisContext) theOpportunityShouldNotBeViable() error {
	if err := ac.requireOpportunity(); err != nil {
		return err
	}
	if ac.opportunity.IsViable() {
		return fmt.Errorf("opportunity is viable at %.1f%% margin", ac.opportunity.ProfitMargin())
	}
	return nil
}

func (ac *arbitrageAnalysisContext) theProfitPerUnitShouldBe(expected int) error {
	if err := ac.requireOpportunity(); err != nil {
		return err
	}
	if ac.opportunity.ProfitPerUnit() != expected {
		return fmt.Errorf("profit per unit is %d, expected %d", ac.opportunity.ProfitPerUnit(), expected)
	}
	return nil
}

func (ac *arbitrageAnalysisContext) theEstimatedProfitShouldBe(expected int) error {
	if err := ac.requireOpportunity(); err != nil {
		return err
	}
	if ac.opportunity.EstimatedProfit() != expected {
		return fmt.Errorf("estimated profit is %d, expected %d", ac.opportunity.EstimatedProfit(), expected)
	}
	return nil
}

func (ac *arbitrageAnalysisContext) theProfitMarginShouldBePercent(expected float64) error {
	if err := ac.requireOpportunity(); err != nil {
		return err
	}
	if math.Abs(ac.opportunity.ProfitMargin()-expected) > 0.01 {
		return fmt.Errorf("profit margin is %.2f%%, expected %.2f%%", ac.opportunity.ProfitMargin(), expected)
	}
	return nil
}

func (ac *arbitrageAnalysisContext) theAnalysisShouldFail() error {
	if ac.analysisErr == nil {
		return fmt.Errorf("expected the analysis to fail, got %s", ac.opportunity)
	}
	return nil
}

func (ac *arbitrageAnalysisContext) theFirstOpportunityShouldScoreHigher() error {
	if err := ac.requireOpportunity(); err != nil {
		return err
	}
	if ac.second == nil {
		return fmt.Errorf("no second opportunity to compare")
	}
	if ac.opportunity.Score() <= ac.second.Score() {
		return fmt.Errorf("first scores %.1f, second %.1f", ac.opportunity.Score(), ac.second.Score())
	}
	return nil
}

// InitializeArbitrageAnalysisScenario registers arbitrage analysis steps.
func InitializeArbitrageAnalysisScenario(sc *godog.ScenarioContext) {
	ac := &arbitrageAnalysisContext{}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		ac.reset()
		return ctx, nil
	})

	sc.Step(`^the buy market at position (\d+), (\d+) asks (\d+) for "([^"]+)"$`, ac.buyMarketAsks)
	sc.Step(`^the buy market at position (\d+), (\d+) asks (\d+) for "([^"]+)" with "([^"]+)" supply$`, ac.buyMarketAsksWithSupply)
	sc.Step(`^the sell market at position (\d+), (\d+) bids (\d+) for "([^"]+)"$`, ac.sellMarketBids)
	sc.Step(`^I analyze the pair with cargo capacity (\d+) and minimum margin (\d+)$`, ac.iAnalyzeThePair)
	sc.Step(`^I analyze the same pair with "([^"]+)" supply at the buy market$`, ac.iAnalyzeTheSamePairWithSupply)
	sc.Step(`^the opportunity should be viable$`, ac.theOpportunityShouldBeViable)
	sc.Step(`^the opportunity should not be viable$`, ac.theOpportunityShouldNotBeViable)
	sc.Step(`^the profit per unit should be (\d+)$`, ac.theProfitPerUnitShouldBe)
	sc.Step(`^the estimated profit should be (\d+)$`, ac.theEstimatedProfitShouldBe)
	sc.Step(`^the profit margin should be (\d+\.\d+) percent$`, ac.theProfitMarginShouldBePercent)
	sc.Step(`^the analysis should fail$`, ac.theAnalysisShouldFail)
	sc.Step(`^the first opportunity should score higher$`, ac.theFirstOpportunityShouldScoreHigher)
}
