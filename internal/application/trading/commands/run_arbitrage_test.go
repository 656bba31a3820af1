package commands_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	shipcommands "github.com/orbitalmachines/astrogator/internal/application/ship/commands"
	shiptypes "github.com/orbitalmachines/astrogator/internal/application/ship/types"
	"github.com/orbitalmachines/astrogator/internal/application/trading/commands"
	"github.com/orbitalmachines/astrogator/internal/application/trading/services"
	"github.com/orbitalmachines/astrogator/internal/domain/market"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/test/helpers"
)

// arbitrageFixture wires the handler against a real finder over seeded
// snapshots. By default the system holds one FUEL opportunity: buy at A1
// (ask 50), sell at B2 (bid 100).
type arbitrageFixture struct {
	handler      *commands.RunArbitrageHandler
	mediator     *helpers.MockMediator
	shipRepo     *helpers.MockShipRepository
	marketRepo   *helpers.MockMarketRepository
	waypointRepo *helpers.MockWaypointRepository
	clock        *shared.MockClock
	playerID     shared.PlayerID
	buyMarket    *shared.Waypoint
	sellMarket   *shared.Waypoint
}

func newArbitrageFixture(t *testing.T) *arbitrageFixture {
	t.Helper()

	playerID := helpers.TestPlayerID(t, 1)
	marketRepo := helpers.NewMockMarketRepository()
	waypointRepo := helpers.NewMockWaypointRepository()
	shipRepo := helpers.NewMockShipRepository()
	m := helpers.NewMockMediator()
	clock := shared.NewMockClock(time.Time{})

	f := &arbitrageFixture{
		handler: commands.NewRunArbitrageHandler(
			shipRepo,
			services.NewArbitrageOpportunityFinder(marketRepo, waypointRepo),
			m,
			clock,
		),
		mediator:     m,
		shipRepo:     shipRepo,
		marketRepo:   marketRepo,
		waypointRepo: waypointRepo,
		clock:        clock,
		playerID:     playerID,
	}

	f.buyMarket = helpers.TestWaypoint(t, "X1-TST-A1", 0, 0, "MARKETPLACE")
	f.sellMarket = helpers.TestWaypoint(t, "X1-TST-B2", 30, 0, "MARKETPLACE")
	waypointRepo.AddWaypoint(f.buyMarket)
	waypointRepo.AddWaypoint(f.sellMarket)
	return f
}

func (f *arbitrageFixture) seedOpportunity(t *testing.T) {
	t.Helper()
	f.marketRepo.SeedMarket(t, f.playerID, "X1-TST-A1",
		market.TradeGoodData{Symbol: "FUEL", SellPrice: 50, PurchasePrice: 40, TradeVolume: 100})
	f.marketRepo.SeedMarket(t, f.playerID, "X1-TST-B2",
		market.TradeGoodData{Symbol: "FUEL", SellPrice: 110, PurchasePrice: 100, TradeVolume: 100})
}

// respondToLegs answers navigation and docking with empty responses and the
// cargo legs with the given fills.
func (f *arbitrageFixture) respondToLegs(purchase *shipcommands.PurchaseCargoResponse, sale *shipcommands.SellCargoResponse) {
	f.mediator.SendFunc = func(ctx context.Context, request mediator.Request) (mediator.Response, error) {
		switch request.(type) {
		case *shipcommands.NavigateRouteCommand:
			return &shipcommands.NavigateRouteResponse{}, nil
		case *shiptypes.DockShipCommand:
			return &shiptypes.DockShipResponse{Status: "docked"}, nil
		case *shipcommands.PurchaseCargoCommand:
			return purchase, nil
		case *shipcommands.SellCargoCommand:
			return sale, nil
		default:
			return nil, fmt.Errorf("unexpected request %T", request)
		}
	}
}

func TestRunArbitrage_ExecutesBuyAndSellLegs(t *testing.T) {
	f := newArbitrageFixture(t)
	f.seedOpportunity(t)

	// Ship starts parked on the buy market, so the buy leg skips navigation.
	ship := helpers.TestShip(t, "SHIP-1", f.playerID, f.buyMarket)
	f.shipRepo.AddShip(ship)
	f.respondToLegs(
		&shipcommands.PurchaseCargoResponse{UnitsAdded: 40, TotalCost: 2000},
		&shipcommands.SellCargoResponse{UnitsSold: 40, TotalRevenue: 4000},
	)

	opCtx := &shared.OperationContext{ContainerID: "arbitrage-ship-1-deadbeef"}
	resp, err := f.handler.Handle(context.Background(), &commands.RunArbitrageCommand{
		ShipSymbol:   "SHIP-1",
		SystemSymbol: "X1-TST",
		PlayerID:     f.playerID,
		Context:      opCtx,
	})
	require.NoError(t, err)

	result := resp.(*commands.RunArbitrageResponse)
	assert.Equal(t, "completed", result.Status)
	assert.Equal(t, "FUEL", result.Good)
	assert.Equal(t, "X1-TST-A1", result.BuyMarket)
	assert.Equal(t, "X1-TST-B2", result.SellMarket)
	assert.Equal(t, 40, result.UnitsTraded)
	assert.Equal(t, 2000, result.TotalCost)
	assert.Equal(t, 4000, result.TotalRevenue)
	assert.Equal(t, 2000, result.Profit)

	// Dock, fill the hold, haul to the sell market, dock, liquidate.
	sent := f.mediator.Sent()
	require.Len(t, sent, 5)
	assert.IsType(t, &shiptypes.DockShipCommand{}, sent[0])

	purchase := sent[1].(*shipcommands.PurchaseCargoCommand)
	assert.Equal(t, "FUEL", purchase.GoodSymbol)
	assert.Equal(t, 40, purchase.Units)
	assert.Same(t, opCtx, purchase.Context)

	navigate := sent[2].(*shipcommands.NavigateRouteCommand)
	assert.Equal(t, "X1-TST-B2", navigate.Destination)

	assert.IsType(t, &shiptypes.DockShipCommand{}, sent[3])

	sale := sent[4].(*shipcommands.SellCargoCommand)
	assert.Equal(t, "FUEL", sale.GoodSymbol)
	assert.Equal(t, 40, sale.Units)
	assert.Same(t, opCtx, sale.Context)
}

func TestRunArbitrage_NoOpportunitiesIdlesIteration(t *testing.T) {
	f := newArbitrageFixture(t)
	f.shipRepo.AddShip(helpers.TestShip(t, "SHIP-1", f.playerID, f.buyMarket))

	start := f.clock.Now()
	resp, err := f.handler.Handle(context.Background(), &commands.RunArbitrageCommand{
		ShipSymbol:   "SHIP-1",
		SystemSymbol: "X1-TST",
		PlayerID:     f.playerID,
	})
	require.NoError(t, err)

	result := resp.(*commands.RunArbitrageResponse)
	assert.Equal(t, "no_opportunities", result.Status)
	assert.Equal(t, 60*time.Second, f.clock.Now().Sub(start))
	assert.Empty(t, f.mediator.Sent())
}

func TestRunArbitrage_MarginThresholdSuppressesThinTrades(t *testing.T) {
	f := newArbitrageFixture(t)
	f.seedOpportunity(t)
	f.shipRepo.AddShip(helpers.TestShip(t, "SHIP-1", f.playerID, f.buyMarket))

	// The seeded pair carries a 100% margin; demanding 200% idles instead.
	resp, err := f.handler.Handle(context.Background(), &commands.RunArbitrageCommand{
		ShipSymbol:   "SHIP-1",
		SystemSymbol: "X1-TST",
		PlayerID:     f.playerID,
		MinMargin:    200.0,
	})
	require.NoError(t, err)
	assert.Equal(t, "no_opportunities", resp.(*commands.RunArbitrageResponse).Status)
}

func TestRunArbitrage_NavigationFailureAbortsTrade(t *testing.T) {
	f := newArbitrageFixture(t)
	f.seedOpportunity(t)

	// Starting away from both markets forces a navigate before the buy.
	elsewhere := helpers.TestWaypoint(t, "X1-TST-C3", 60, 60)
	f.shipRepo.AddShip(helpers.TestShip(t, "SHIP-1", f.playerID, elsewhere))

	f.mediator.SendFunc = func(ctx context.Context, request mediator.Request) (mediator.Response, error) {
		return nil, assert.AnError
	}

	_, err := f.handler.Handle(context.Background(), &commands.RunArbitrageCommand{
		ShipSymbol:   "SHIP-1",
		SystemSymbol: "X1-TST",
		PlayerID:     f.playerID,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)

	sent := f.mediator.Sent()
	require.Len(t, sent, 1)
	assert.IsType(t, &shipcommands.NavigateRouteCommand{}, sent[0])
}

func TestRunArbitrage_CanceledContextStopsBeforeMoving(t *testing.T) {
	f := newArbitrageFixture(t)
	f.seedOpportunity(t)
	f.shipRepo.AddShip(helpers.TestShip(t, "SHIP-1", f.playerID, f.buyMarket))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.handler.Handle(ctx, &commands.RunArbitrageCommand{
		ShipSymbol:   "SHIP-1",
		SystemSymbol: "X1-TST",
		PlayerID:     f.playerID,
	})
	assert.ErrorIs(t, err, shared.ErrCanceled)
	assert.Empty(t, f.mediator.Sent())
}

func TestRunArbitrage_UnknownShipFails(t *testing.T) {
	f := newArbitrageFixture(t)
	f.seedOpportunity(t)

	_, err := f.handler.Handle(context.Background(), &commands.RunArbitrageCommand{
		ShipSymbol:   "GHOST",
		SystemSymbol: "X1-TST",
		PlayerID:     f.playerID,
	})
	require.Error(t, err)
}
