package services

import (
	"context"
	"sort"

	"github.com/orbitalmachines/astrogator/internal/application/logging"
	"github.com/orbitalmachines/astrogator/internal/domain/market"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/internal/domain/system"
	"github.com/orbitalmachines/astrogator/internal/domain/trading"
)

// ArbitrageOpportunityFinder scans a system's stored market snapshots for
// buy-low/sell-high pairs. It never calls the remote API; scouting keeps the
// snapshots fresh, and trading on stale data is the caller's risk to take.
type ArbitrageOpportunityFinder struct {
	marketRepo   market.Repository
	waypointRepo system.WaypointRepository
	analyzer     *trading.ArbitrageAnalyzer
}

func NewArbitrageOpportunityFinder(
	marketRepo market.Repository,
	waypointRepo system.WaypointRepository,
) *ArbitrageOpportunityFinder {
	return &ArbitrageOpportunityFinder{
		marketRepo:   marketRepo,
		waypointRepo: waypointRepo,
		analyzer:     trading.NewArbitrageAnalyzer(),
	}
}

// marketSnapshot pairs a stored market with its charted waypoint so the
// analyzer can compute distances.
type marketSnapshot struct {
	market   *market.Market
	waypoint *shared.Waypoint
}

// FindOpportunities returns viable opportunities sorted by score, best
// first, at most limit entries. ErrNoOpportunitiesFound when the system has
// no profitable pair above the margin threshold.
func (f *ArbitrageOpportunityFinder) FindOpportunities(
	ctx context.Context,
	systemSymbol string,
	playerID shared.PlayerID,
	cargoCapacity int,
	minMargin float64,
	limit int,
) ([]*trading.ArbitrageOpportunity, error) {
	if cargoCapacity <= 0 {
		return nil, trading.ErrInvalidCargoCapacity
	}
	if minMargin < 0 {
		return nil, trading.ErrInvalidMarginThreshold
	}

	logger := logging.LoggerFromContext(ctx)

	snapshots, err := f.loadSnapshots(ctx, systemSymbol, playerID)
	if err != nil {
		return nil, err
	}
	if len(snapshots) < 2 {
		return nil, trading.ErrMarketDataUnavailable
	}

	opportunities := f.analyzePairs(snapshots, cargoCapacity, minMargin)
	if len(opportunities) == 0 {
		return nil, trading.ErrNoOpportunitiesFound
	}

	sort.Slice(opportunities, func(i, j int) bool {
		return opportunities[i].Score() > opportunities[j].Score()
	})
	if limit > 0 && len(opportunities) > limit {
		opportunities = opportunities[:limit]
	}

	logger.Log("INFO", "Arbitrage opportunities found", map[string]interface{}{
		"system_symbol": systemSymbol,
		"markets":       len(snapshots),
		"opportunities": len(opportunities),
		"best_good":     opportunities[0].Good(),
		"best_score":    opportunities[0].Score(),
	})

	return opportunities, nil
}

func (f *ArbitrageOpportunityFinder) loadSnapshots(
	ctx context.Context,
	systemSymbol string,
	playerID shared.PlayerID,
) ([]marketSnapshot, error) {
	waypointSymbols, err := f.marketRepo.FindAllInSystem(ctx, systemSymbol, playerID)
	if err != nil {
		return nil, err
	}

	snapshots := make([]marketSnapshot, 0, len(waypointSymbols))
	for _, symbol := range waypointSymbols {
		m, err := f.marketRepo.GetMarketData(ctx, symbol, playerID)
		if err != nil {
			continue
		}
		wp, err := f.waypointRepo.FindBySymbol(ctx, symbol, systemSymbol)
		if err != nil || wp == nil {
			continue
		}
		snapshots = append(snapshots, marketSnapshot{market: m, waypoint: wp})
	}
	return snapshots, nil
}

// analyzePairs indexes goods across markets and scores every cross-market
// pair trading the same good.
func (f *ArbitrageOpportunityFinder) analyzePairs(
	snapshots []marketSnapshot,
	cargoCapacity int,
	minMargin float64,
) []*trading.ArbitrageOpportunity {
	type listing struct {
		snapshot marketSnapshot
		good     *market.TradeGood
	}

	byGood := make(map[string][]listing)
	for _, snap := range snapshots {
		for _, tg := range snap.market.TradeGoods() {
			good := tg
			byGood[good.Symbol()] = append(byGood[good.Symbol()], listing{snapshot: snap, good: &good})
		}
	}

	var opportunities []*trading.ArbitrageOpportunity
	for goodSymbol, listings := range byGood {
		if len(listings) < 2 {
			continue
		}
		for _, buy := range listings {
			for _, sell := range listings {
				if buy.snapshot.waypoint.Symbol == sell.snapshot.waypoint.Symbol {
					continue
				}
				opp, err := f.analyzer.AnalyzeMarketPair(
					goodSymbol,
					buy.good, sell.good,
					buy.snapshot.waypoint, sell.snapshot.waypoint,
					cargoCapacity, minMargin,
				)
				if err != nil || !opp.IsViable() {
					continue
				}
				opportunities = append(opportunities, opp)
			}
		}
	}
	return opportunities
}

var _ trading.OpportunityFinder = (*ArbitrageOpportunityFinder)(nil)
