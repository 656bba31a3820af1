package helpers

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/orbitalmachines/astrogator/internal/domain/market"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// MockMarketRepository is an in-memory market.Repository. Snapshots are keyed
// by (player, waypoint); the cheapest/best lookups scan stored snapshots the
// way the SQL implementation does, returning nil when no market lists the
// good.
type MockMarketRepository struct {
	mu      sync.Mutex
	markets map[string]*market.Market

	// Err fails every call when set.
	Err error
}

func NewMockMarketRepository() *MockMarketRepository {
	return &MockMarketRepository{markets: make(map[string]*market.Market)}
}

func marketKey(playerID shared.PlayerID, waypointSymbol string) string {
	return playerID.String() + "/" + waypointSymbol
}

// SeedMarket stores a snapshot built from good/purchase/sell triples,
// bypassing Upsert error injection.
func (m *MockMarketRepository) SeedMarket(t *testing.T, playerID shared.PlayerID, waypointSymbol string, goods ...market.TradeGoodData) {
	t.Helper()

	tradeGoods := make([]market.TradeGood, 0, len(goods))
	for _, g := range goods {
		good, err := market.NewTradeGood(g.Symbol, nil, nil, g.PurchasePrice, g.SellPrice, g.TradeVolume)
		require.NoError(t, err)
		tradeGoods = append(tradeGoods, *good)
	}

	snapshot, err := market.NewMarket(waypointSymbol, tradeGoods, time.Now().UTC())
	require.NoError(t, err)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.markets[marketKey(playerID, waypointSymbol)] = snapshot
}

func (m *MockMarketRepository) Upsert(ctx context.Context, snapshot *market.Market, playerID shared.PlayerID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}

	m.markets[marketKey(playerID, snapshot.WaypointSymbol())] = snapshot
	return nil
}

func (m *MockMarketRepository) GetMarketData(ctx context.Context, waypointSymbol string, playerID shared.PlayerID) (*market.Market, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	snapshot, exists := m.markets[marketKey(playerID, waypointSymbol)]
	if !exists {
		return nil, market.ErrMarketNotFound
	}
	return snapshot, nil
}

func (m *MockMarketRepository) FindAllInSystem(ctx context.Context, systemSymbol string, playerID shared.PlayerID) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	var waypoints []string
	prefix := marketKey(playerID, systemSymbol+"-")
	for key, snapshot := range m.markets {
		if strings.HasPrefix(key, prefix) {
			waypoints = append(waypoints, snapshot.WaypointSymbol())
		}
	}
	return waypoints, nil
}

func (m *MockMarketRepository) FindCheapestSelling(ctx context.Context, goodSymbol, systemSymbol string, playerID shared.PlayerID) (*market.CheapestMarketResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	var best *market.CheapestMarketResult
	prefix := marketKey(playerID, systemSymbol+"-")
	for key, snapshot := range m.markets {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		good := snapshot.FindGood(goodSymbol)
		if good == nil {
			continue
		}
		if best == nil || good.SellPrice() < best.SellPrice {
			best = &market.CheapestMarketResult{
				WaypointSymbol: snapshot.WaypointSymbol(),
				TradeSymbol:    goodSymbol,
				SellPrice:      good.SellPrice(),
				Supply:         derefOrEmpty(good.Supply()),
			}
		}
	}
	return best, nil
}

func (m *MockMarketRepository) FindBestBuying(ctx context.Context, goodSymbol, systemSymbol string, playerID shared.PlayerID) (*market.BestMarketResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	var best *market.BestMarketResult
	prefix := marketKey(playerID, systemSymbol+"-")
	for key, snapshot := range m.markets {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		good := snapshot.FindGood(goodSymbol)
		if good == nil {
			continue
		}
		if best == nil || good.PurchasePrice() > best.PurchasePrice {
			best = &market.BestMarketResult{
				WaypointSymbol: snapshot.WaypointSymbol(),
				TradeSymbol:    goodSymbol,
				PurchasePrice:  good.PurchasePrice(),
				Supply:         derefOrEmpty(good.Supply()),
			}
		}
	}
	return best, nil
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ market.Repository = (*MockMarketRepository)(nil)
