package market_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitalmachines/astrogator/internal/domain/market"
)

func testGood(t *testing.T, symbol string, purchasePrice, sellPrice, volume int) market.TradeGood {
	t.Helper()
	good, err := market.NewTradeGood(symbol, nil, nil, purchasePrice, sellPrice, volume)
	require.NoError(t, err)
	return *good
}

func TestNewMarket_RejectsEmptyWaypoint(t *testing.T) {
	_, err := market.NewMarket("", nil, time.Now())
	assert.Error(t, err)
}

func TestMarket_FindGood(t *testing.T) {
	m, err := market.NewMarket("X1-TST-A1", []market.TradeGood{
		testGood(t, "FUEL", 45, 50, 60),
		testGood(t, "IRON", 90, 100, 20),
	}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 2, m.GoodsCount())

	fuel := m.FindGood("FUEL")
	require.NotNil(t, fuel)
	assert.Equal(t, 50, fuel.SellPrice())
	assert.Equal(t, 45, fuel.PurchasePrice())

	assert.Nil(t, m.FindGood("GOLD"))
	assert.True(t, m.HasGood("IRON"))
	assert.False(t, m.HasGood("GOLD"))
}

func TestMarket_TransactionLimit(t *testing.T) {
	m, err := market.NewMarket("X1-TST-A1", []market.TradeGood{
		testGood(t, "FUEL", 45, 50, 60),
	}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 60, m.TransactionLimit("FUEL"))
	assert.Equal(t, 0, m.TransactionLimit("GOLD"))
}

func TestMarket_IsStale(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	m, err := market.NewMarket("X1-TST-A1", []market.TradeGood{
		testGood(t, "FUEL", 45, 50, 60),
	}, now.Add(-45*time.Minute))
	require.NoError(t, err)

	assert.True(t, m.IsStale(now, 30*time.Minute))
	assert.False(t, m.IsStale(now, time.Hour))
}

func TestNewTradeGood_RejectsInvalidInput(t *testing.T) {
	_, err := market.NewTradeGood("", nil, nil, 10, 10, 1)
	assert.Error(t, err)

	_, err = market.NewTradeGood("FUEL", nil, nil, -1, 10, 1)
	assert.Error(t, err)
}
