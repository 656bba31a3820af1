package market

import "time"

// Market is an immutable snapshot of the trade goods at a waypoint at one
// point in time. Scout containers refresh these; the arbitrage finder and
// the trading queries read them.
type Market struct {
	waypointSymbol string
	tradeGoods     []TradeGood
	lastUpdated    time.Time
}

// NewMarket validates and builds a snapshot.
func NewMarket(waypointSymbol string, tradeGoods []TradeGood, lastUpdated time.Time) (*Market, error) {
	if waypointSymbol == "" {
		return nil, ErrInvalidWaypointSymbol
	}
	if lastUpdated.IsZero() {
		return nil, ErrMissingTimestamp
	}

	goodsCopy := make([]TradeGood, len(tradeGoods))
	copy(goodsCopy, tradeGoods)

	return &Market{
		waypointSymbol: waypointSymbol,
		tradeGoods:     goodsCopy,
		lastUpdated:    lastUpdated,
	}, nil
}

func (m *Market) WaypointSymbol() string { return m.waypointSymbol }
func (m *Market) LastUpdated() time.Time { return m.lastUpdated }
func (m *Market) GoodsCount() int        { return len(m.tradeGoods) }

func (m *Market) TradeGoods() []TradeGood {
	goodsCopy := make([]TradeGood, len(m.tradeGoods))
	copy(goodsCopy, m.tradeGoods)
	return goodsCopy
}

// FindGood returns the trade good with the given symbol, nil if the market
// does not list it.
func (m *Market) FindGood(symbol string) *TradeGood {
	for i := range m.tradeGoods {
		if m.tradeGoods[i].Symbol() == symbol {
			good := m.tradeGoods[i]
			return &good
		}
	}
	return nil
}

func (m *Market) HasGood(symbol string) bool {
	return m.FindGood(symbol) != nil
}

// TransactionLimit returns the per-transaction volume cap for a good, 0 when
// the market does not list it.
func (m *Market) TransactionLimit(symbol string) int {
	good := m.FindGood(symbol)
	if good == nil {
		return 0
	}
	return good.TradeVolume()
}

// IsStale reports whether the snapshot is older than maxAge at now.
func (m *Market) IsStale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(m.lastUpdated) > maxAge
}
