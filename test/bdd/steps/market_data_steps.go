package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/cucumber/godog"

	"github.com/orbitalmachines/astrogator/internal/domain/market"
)

type marketDataContext struct {
	now    time.Time
	market *market.Market
	stale  bool
}

func (mc *marketDataContext) reset() {
	mc.now = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	mc.market = nil
	mc.stale = false
}

func (mc *marketDataContext) aMarketScannedMinutesAgo(minutes int, good string, volume int) error {
	tg, err := market.NewTradeGood(good, nil, nil, 90, 100, volume)
	if err != nil {
		return err
	}
	scannedAt := mc.now.Add(-time.Duration(minutes) * time.Minute)
	mc.market, err = market.NewMarket("X1-TST-A1", []market.TradeGood{*tg}, scannedAt)
	return err
}

func (mc *marketDataContext) iCheckStalenessWithTolerance(minutes int) error {
	mc.stale = mc.market.IsStale(mc.now, time.Duration(minutes)*time.Minute)
	return nil
}

func (mc *marketDataContext) theMarketShouldBeFresh() error {
	if mc.stale {
		return fmt.Errorf("market is stale, expected fresh")
	}
	return nil
}

func (mc *marketDataContext) theMarketShouldBeStale() error {
	if !mc.stale {
		return fmt.Errorf("market is fresh, expected stale")
	}
	return nil
}

func (mc *marketDataContext) theTransactionLimitShouldBe(good string, limit int) error {
	actual := mc.market.TransactionLimit(good)
	if actual != limit {
		return fmt.Errorf("transaction limit for %s is %d, expected %d", good, actual, limit)
	}
	return nil
}

// InitializeMarketDataScenario registers market data steps.
func InitializeMarketDataScenario(sc *godog.ScenarioContext) {
	mc := &marketDataContext{}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		mc.reset()
		return ctx, nil
	})

	sc.Step(`^a market scanned (\d+) minutes ago listing "([^"]+)" at volume (\d+)$`, mc.aMarketScannedMinutesAgo)
	sc.Step(`^I check staleness with a tolerance of (\d+) minutes$`, mc.iCheckStalenessWithTolerance)
	sc.Step(`^the market should be fresh$`, mc.theMarketShouldBeFresh)
	sc.Step(`^the market should be stale$`, mc.theMarketShouldBeStale)
	sc.Step(`^the transaction limit for "([^"]+)" should be (\d+)$`, mc.theTransactionLimitShouldBe)
}
