package market

import (
	"context"
	"time"

	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// Repository stores market snapshots and serves the lookups the arbitrage
// finder and trading queries need.
type Repository interface {
	// Upsert replaces the stored snapshot for the market's waypoint.
	Upsert(ctx context.Context, m *Market, playerID shared.PlayerID) error

	// GetMarketData returns the stored snapshot, ErrMarketNotFound when the
	// waypoint has never been scouted.
	GetMarketData(ctx context.Context, waypointSymbol string, playerID shared.PlayerID) (*Market, error)

	// FindAllInSystem lists waypoint symbols with stored snapshots.
	FindAllInSystem(ctx context.Context, systemSymbol string, playerID shared.PlayerID) ([]string, error)

	// FindCheapestSelling locates the market charging the least for a good.
	FindCheapestSelling(ctx context.Context, goodSymbol, systemSymbol string, playerID shared.PlayerID) (*CheapestMarketResult, error)

	// FindBestBuying locates the market paying the most for a good.
	FindBestBuying(ctx context.Context, goodSymbol, systemSymbol string, playerID shared.PlayerID) (*BestMarketResult, error)
}

// PriceHistoryRepository appends and reads price observations.
type PriceHistoryRepository interface {
	RecordPriceChange(ctx context.Context, h *PriceHistory) error

	// GetPriceHistory returns observations newest first.
	GetPriceHistory(ctx context.Context, waypointSymbol, goodSymbol string, since time.Time, limit int) ([]*PriceHistory, error)

	// GetLatest returns the most recent observation, nil when none exists.
	GetLatest(ctx context.Context, waypointSymbol, goodSymbol string, playerID shared.PlayerID) (*PriceHistory, error)
}

// Data is the raw market payload from the API.
type Data struct {
	WaypointSymbol string
	TradeGoods     []TradeGoodData
}

type TradeGoodData struct {
	Symbol        string
	Supply        string
	Activity      string
	SellPrice     int
	PurchasePrice int
	TradeVolume   int
}

// CheapestMarketResult is where to buy a good at the lowest ask.
type CheapestMarketResult struct {
	WaypointSymbol string
	TradeSymbol    string
	SellPrice      int
	Supply         string
}

// BestMarketResult is where to sell a good at the highest bid.
type BestMarketResult struct {
	WaypointSymbol string
	TradeSymbol    string
	PurchasePrice  int
	Supply         string
}
