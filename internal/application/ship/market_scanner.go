package ship

import (
	"context"
	"fmt"

	"github.com/orbitalmachines/astrogator/internal/adapters/metrics"
	"github.com/orbitalmachines/astrogator/internal/application/auth"
	"github.com/orbitalmachines/astrogator/internal/application/logging"
	"github.com/orbitalmachines/astrogator/internal/domain/market"
	"github.com/orbitalmachines/astrogator/internal/domain/ports"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// MarketScanner fetches a market snapshot from the API and persists it.
// Scans run as side effects of other work (a ship arriving at a marketplace,
// a trade completing), so failures never propagate past the caller's log.
type MarketScanner struct {
	apiClient        ports.APIClient
	marketRepo       market.Repository
	priceHistoryRepo market.PriceHistoryRepository
	clock            shared.Clock
}

// NewMarketScanner builds a scanner. priceHistoryRepo may be nil when price
// history tracking is not wanted; clock nil means the real clock.
func NewMarketScanner(
	apiClient ports.APIClient,
	marketRepo market.Repository,
	priceHistoryRepo market.PriceHistoryRepository,
	clock shared.Clock,
) *MarketScanner {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &MarketScanner{
		apiClient:        apiClient,
		marketRepo:       marketRepo,
		priceHistoryRepo: priceHistoryRepo,
		clock:            clock,
	}
}

// ScanAndSaveMarket fetches the market at waypointSymbol, replaces the stored
// snapshot, and appends price history for goods whose prices moved.
func (s *MarketScanner) ScanAndSaveMarket(ctx context.Context, playerID shared.PlayerID, waypointSymbol string) error {
	logger := logging.LoggerFromContext(ctx)
	start := s.clock.Now()

	token, err := auth.PlayerTokenFromContext(ctx)
	if err != nil {
		metrics.RecordMarketScan(playerID.Value(), waypointSymbol, s.clock.Now().Sub(start), err)
		return fmt.Errorf("player token missing for market scan: %w", err)
	}

	systemSymbol := shared.ExtractSystemSymbol(waypointSymbol)

	data, err := s.apiClient.GetMarket(ctx, systemSymbol, waypointSymbol, token)
	if err != nil {
		metrics.RecordMarketScan(playerID.Value(), waypointSymbol, s.clock.Now().Sub(start), err)
		return fmt.Errorf("failed to fetch market %s: %w", waypointSymbol, err)
	}

	snapshot, err := s.buildSnapshot(data)
	if err != nil {
		metrics.RecordMarketScan(playerID.Value(), waypointSymbol, s.clock.Now().Sub(start), err)
		return err
	}

	if err := s.marketRepo.Upsert(ctx, snapshot, playerID); err != nil {
		metrics.RecordMarketScan(playerID.Value(), waypointSymbol, s.clock.Now().Sub(start), err)
		return fmt.Errorf("failed to persist market %s: %w", waypointSymbol, err)
	}

	s.recordObservations(ctx, snapshot, playerID)

	metrics.RecordMarketScan(playerID.Value(), waypointSymbol, s.clock.Now().Sub(start), nil)

	logger.Log("INFO", "Market scanned and saved", map[string]interface{}{
		"waypoint": waypointSymbol,
		"goods":    snapshot.GoodsCount(),
	})
	return nil
}

// buildSnapshot converts the raw API payload into a validated Market.
func (s *MarketScanner) buildSnapshot(data *market.Data) (*market.Market, error) {
	goods := make([]market.TradeGood, 0, len(data.TradeGoods))
	for _, raw := range data.TradeGoods {
		good, err := market.NewTradeGood(
			raw.Symbol,
			optionalString(raw.Supply),
			optionalString(raw.Activity),
			raw.PurchasePrice,
			raw.SellPrice,
			raw.TradeVolume,
		)
		if err != nil {
			return nil, fmt.Errorf("invalid trade good %s at %s: %w", raw.Symbol, data.WaypointSymbol, err)
		}
		goods = append(goods, *good)
	}

	return market.NewMarket(data.WaypointSymbol, goods, s.clock.Now())
}

// recordObservations updates the price gauges for every good and appends
// history rows for goods whose prices moved since the last observation.
// History failures are logged, never returned; the snapshot is already saved.
func (s *MarketScanner) recordObservations(ctx context.Context, snapshot *market.Market, playerID shared.PlayerID) {
	logger := logging.LoggerFromContext(ctx)

	for _, good := range snapshot.TradeGoods() {
		metrics.RecordPriceObservation(playerID.Value(), good.Symbol(), good.PurchasePrice(), good.SellPrice())

		if s.priceHistoryRepo == nil {
			continue
		}

		observation, err := market.NewPriceHistory(
			snapshot.WaypointSymbol(),
			good.Symbol(),
			playerID,
			good.PurchasePrice(),
			good.SellPrice(),
			good.Supply(),
			good.Activity(),
			good.TradeVolume(),
			snapshot.LastUpdated(),
		)
		if err != nil {
			logger.Log("ERROR", "Failed to build price observation", map[string]interface{}{
				"waypoint": snapshot.WaypointSymbol(),
				"good":     good.Symbol(),
				"error":    err.Error(),
			})
			continue
		}

		latest, err := s.priceHistoryRepo.GetLatest(ctx, snapshot.WaypointSymbol(), good.Symbol(), playerID)
		if err != nil {
			logger.Log("ERROR", "Failed to load latest price observation", map[string]interface{}{
				"waypoint": snapshot.WaypointSymbol(),
				"good":     good.Symbol(),
				"error":    err.Error(),
			})
			continue
		}

		if !observation.DiffersFrom(latest) {
			continue
		}

		if err := s.priceHistoryRepo.RecordPriceChange(ctx, observation); err != nil {
			logger.Log("ERROR", "Failed to record price change", map[string]interface{}{
				"waypoint": snapshot.WaypointSymbol(),
				"good":     good.Symbol(),
				"error":    err.Error(),
			})
		}
	}
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
