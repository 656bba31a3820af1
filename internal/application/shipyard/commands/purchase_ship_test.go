package commands_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitalmachines/astrogator/internal/application/auth"
	ledgerCommands "github.com/orbitalmachines/astrogator/internal/application/ledger/commands"
	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	shipCommands "github.com/orbitalmachines/astrogator/internal/application/ship/commands"
	"github.com/orbitalmachines/astrogator/internal/application/ship/types"
	"github.com/orbitalmachines/astrogator/internal/application/shipyard/commands"
	"github.com/orbitalmachines/astrogator/internal/application/shipyard/queries"
	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/player"
	"github.com/orbitalmachines/astrogator/internal/domain/ports"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/internal/domain/shipyard"
	"github.com/orbitalmachines/astrogator/internal/domain/system"
	"github.com/orbitalmachines/astrogator/test/helpers"
)

type purchaseFixture struct {
	shipRepo      *helpers.MockShipRepository
	waypointRepo  *helpers.MockWaypointRepository
	graphProvider *helpers.MockGraphProvider
	playerRepo    *helpers.MockPlayerRepository
	api           *helpers.MockAPIClient
	med           *helpers.MockMediator
	handler       *commands.PurchaseShipHandler
	playerID      shared.PlayerID
	ctx           context.Context
}

func newPurchaseFixture(t *testing.T) *purchaseFixture {
	t.Helper()

	f := &purchaseFixture{
		shipRepo:      helpers.NewMockShipRepository(),
		waypointRepo:  helpers.NewMockWaypointRepository(),
		graphProvider: helpers.NewMockGraphProvider(),
		playerRepo:    helpers.NewMockPlayerRepository(),
		api:           helpers.NewMockAPIClient(),
		med:           helpers.NewMockMediator(),
		playerID:      helpers.TestPlayerID(t, 1),
	}
	f.handler = commands.NewPurchaseShipHandler(
		f.shipRepo, f.waypointRepo, f.graphProvider, f.playerRepo, f.api, f.med)
	f.ctx = auth.WithPlayerToken(context.Background(), "token-1")

	buyer, err := player.New("BUYER", "token-1")
	require.NoError(t, err)
	buyer.ID = f.playerID
	f.playerRepo.AddPlayer(buyer)

	f.api.Agents["token-1"] = &player.AgentData{Symbol: "BUYER", Credits: 200000}
	return f
}

// routeMediator answers the nested dispatches a purchase makes: navigation
// and docking succeed, the listings query serves the given catalog at
// whatever yard is asked, and ledger records are swallowed.
func (f *purchaseFixture) routeMediator(shipTypes []string, listings []shipyard.ShipListing) {
	f.med.SendFunc = func(ctx context.Context, request mediator.Request) (mediator.Response, error) {
		switch req := request.(type) {
		case *shipCommands.NavigateRouteCommand:
			return &shipCommands.NavigateRouteResponse{Status: "completed"}, nil
		case *types.DockShipCommand:
			return nil, nil
		case *queries.GetShipyardListingsQuery:
			yard := shipyard.NewShipyard(req.WaypointSymbol, shipTypes, listings, 0)
			return &queries.GetShipyardListingsResponse{Shipyard: &yard}, nil
		case *ledgerCommands.RecordTransactionCommand:
			return nil, nil
		default:
			return nil, fmt.Errorf("unexpected request %T", request)
		}
	}
}

func (f *purchaseFixture) sellProbes() {
	f.routeMediator(
		[]string{"SHIP_PROBE"},
		[]shipyard.ShipListing{{ShipType: "SHIP_PROBE", Name: "Probe", PurchasePrice: 24500}},
	)
	f.api.PurchaseShipFunc = func(ctx context.Context, shipType, waypointSymbol, token string) (*ports.ShipPurchaseResult, error) {
		return &ports.ShipPurchaseResult{
			Agent: &player.AgentData{Symbol: "BUYER", Credits: 175500},
			Ship:  &navigation.ShipData{Symbol: "BUYER-2", Location: waypointSymbol},
			Transaction: &ports.ShipPurchaseTransaction{
				WaypointSymbol: waypointSymbol,
				ShipSymbol:     "BUYER-2",
				ShipType:       shipType,
				Price:          24500,
				AgentSymbol:    "BUYER",
				Timestamp:      "2026-01-10T12:00:00Z",
			},
		}, nil
	}
}

func TestPurchaseShip_BuysAtProvidedYard(t *testing.T) {
	// Arrange
	f := newPurchaseFixture(t)
	home := helpers.TestWaypoint(t, "X1-GZ7-H1", 0, 0, "MARKETPLACE")
	f.shipRepo.AddShip(helpers.TestShip(t, "BUYER-1", f.playerID, home))
	f.sellProbes()

	// Act
	response, err := f.handler.Handle(f.ctx, &commands.PurchaseShipCommand{
		ShipSymbol:       "BUYER-1",
		ShipType:         "SHIP_PROBE",
		PlayerID:         f.playerID,
		ShipyardWaypoint: "X1-GZ7-Y1",
	})

	// Assert
	require.NoError(t, err)
	result, ok := response.(*commands.PurchaseShipResponse)
	require.True(t, ok)

	assert.Equal(t, "BUYER-2", result.NewShipSymbol)
	assert.Equal(t, "SHIP_PROBE", result.ShipType)
	assert.Equal(t, 24500, result.Price)
	assert.Equal(t, 175500, result.AgentCredits)
	assert.Equal(t, "X1-GZ7-Y1", result.ShipyardWaypoint)
	assert.Equal(t, "2026-01-10T12:00:00Z", result.TransactionTime)

	assert.Len(t, f.med.SentOfType(&shipCommands.NavigateRouteCommand{}), 1)
	assert.Len(t, f.med.SentOfType(&types.DockShipCommand{}), 1)
	assert.Equal(t, []helpers.PurchasedShip{{ShipType: "SHIP_PROBE", WaypointSymbol: "X1-GZ7-Y1"}}, f.api.Purchases())
}

func TestPurchaseShip_RecordsLedgerEntry(t *testing.T) {
	// Arrange
	f := newPurchaseFixture(t)
	home := helpers.TestWaypoint(t, "X1-GZ7-H1", 0, 0)
	f.shipRepo.AddShip(helpers.TestShip(t, "BUYER-1", f.playerID, home))
	f.sellProbes()

	// Act
	_, err := f.handler.Handle(f.ctx, &commands.PurchaseShipCommand{
		ShipSymbol:       "BUYER-1",
		ShipType:         "SHIP_PROBE",
		PlayerID:         f.playerID,
		ShipyardWaypoint: "X1-GZ7-Y1",
		Context:          &shared.OperationContext{ContainerID: "purchase-buyer1-abc123ef", OperationType: "batch_purchase"},
	})

	// Assert
	require.NoError(t, err)

	// The ledger write is dispatched from a goroutine after the purchase.
	require.Eventually(t, func() bool {
		return len(f.med.SentOfType(&ledgerCommands.RecordTransactionCommand{})) == 1
	}, time.Second, 10*time.Millisecond)

	recorded, ok := f.med.SentOfType(&ledgerCommands.RecordTransactionCommand{})[0].(*ledgerCommands.RecordTransactionCommand)
	require.True(t, ok)
	assert.Equal(t, 1, recorded.PlayerID)
	assert.Equal(t, "SHIP_PURCHASE", recorded.TransactionType)
	assert.Equal(t, -24500, recorded.Amount)
	assert.Equal(t, 1, recorded.Units)
	assert.Equal(t, 24500, recorded.PricePerUnit)
	assert.Equal(t, "SHIP_PROBE", recorded.GoodSymbol)
	assert.Equal(t, "X1-GZ7-Y1", recorded.WaypointSymbol)
	assert.Equal(t, "BUYER-2", recorded.ShipSymbol)
	assert.Equal(t, 200000, recorded.BalanceBefore)
	assert.Equal(t, 175500, recorded.BalanceAfter)
	assert.Equal(t, "BUYER", recorded.AgentSymbol)
	assert.Equal(t, "purchase-buyer1-abc123ef", recorded.ContainerID)
	assert.Equal(t, map[string]interface{}{"operation_type": "purchase"}, recorded.Metadata)
}

func TestPurchaseShip_SkipsNavigationWhenAlreadyAtYard(t *testing.T) {
	// Arrange
	f := newPurchaseFixture(t)
	yard := helpers.TestWaypoint(t, "X1-GZ7-Y1", 10, 0, "SHIPYARD")
	f.shipRepo.AddShip(helpers.TestShip(t, "BUYER-1", f.playerID, yard))
	f.sellProbes()

	// Act
	response, err := f.handler.Handle(f.ctx, &commands.PurchaseShipCommand{
		ShipSymbol:       "BUYER-1",
		ShipType:         "SHIP_PROBE",
		PlayerID:         f.playerID,
		ShipyardWaypoint: "X1-GZ7-Y1",
	})

	// Assert
	require.NoError(t, err)
	require.NotNil(t, response)
	assert.Empty(t, f.med.SentOfType(&shipCommands.NavigateRouteCommand{}))
	assert.Len(t, f.med.SentOfType(&types.DockShipCommand{}), 1)
}

func TestPurchaseShip_DiscoversNearestSellingYard(t *testing.T) {
	// Arrange
	f := newPurchaseFixture(t)
	home := helpers.TestWaypoint(t, "X1-GZ7-H1", 0, 0)
	f.shipRepo.AddShip(helpers.TestShip(t, "BUYER-1", f.playerID, home))

	// Three charted yards: the closest is unreadable, the next sells probes,
	// the farthest also sells but loses on distance.
	f.waypointRepo.AddWaypoint(helpers.TestWaypoint(t, "X1-GZ7-DEAD", 1, 0, "SHIPYARD"))
	f.waypointRepo.AddWaypoint(helpers.TestWaypoint(t, "X1-GZ7-NEAR", 5, 0, "SHIPYARD"))
	f.waypointRepo.AddWaypoint(helpers.TestWaypoint(t, "X1-GZ7-FAR", 50, 0, "SHIPYARD"))
	f.api.Shipyards["X1-GZ7-NEAR"] = &ports.ShipyardData{Symbol: "X1-GZ7-NEAR", ShipTypes: []string{"SHIP_PROBE"}}
	f.api.Shipyards["X1-GZ7-FAR"] = &ports.ShipyardData{Symbol: "X1-GZ7-FAR", ShipTypes: []string{"SHIP_PROBE"}}
	f.sellProbes()

	// Act
	response, err := f.handler.Handle(f.ctx, &commands.PurchaseShipCommand{
		ShipSymbol: "BUYER-1",
		ShipType:   "SHIP_PROBE",
		PlayerID:   f.playerID,
	})

	// Assert
	require.NoError(t, err)
	result, ok := response.(*commands.PurchaseShipResponse)
	require.True(t, ok)

	assert.Equal(t, "X1-GZ7-NEAR", result.ShipyardWaypoint)
	assert.ElementsMatch(t, []string{"X1-GZ7-DEAD", "X1-GZ7-NEAR", "X1-GZ7-FAR"}, f.api.ShipyardCalls())
	assert.Equal(t, []helpers.PurchasedShip{{ShipType: "SHIP_PROBE", WaypointSymbol: "X1-GZ7-NEAR"}}, f.api.Purchases())
}

func TestPurchaseShip_ChartsUnsyncedSystem(t *testing.T) {
	// Arrange
	f := newPurchaseFixture(t)
	home := helpers.TestWaypoint(t, "X1-GZ7-H1", 0, 0)
	f.shipRepo.AddShip(helpers.TestShip(t, "BUYER-1", f.playerID, home))
	f.sellProbes()

	// The waypoint store starts empty; charting the system populates it.
	syncs := 0
	f.graphProvider.GetGraphFunc = func(ctx context.Context, systemSymbol string, forceRefresh bool, playerID shared.PlayerID) (*system.GraphLoadResult, error) {
		syncs++
		assert.Equal(t, "X1-GZ7", systemSymbol)
		assert.True(t, forceRefresh)
		f.waypointRepo.AddWaypoint(helpers.TestWaypoint(t, "X1-GZ7-Y1", 10, 0, "SHIPYARD"))
		return &system.GraphLoadResult{}, nil
	}
	f.api.Shipyards["X1-GZ7-Y1"] = &ports.ShipyardData{Symbol: "X1-GZ7-Y1", ShipTypes: []string{"SHIP_PROBE"}}

	// Act
	response, err := f.handler.Handle(f.ctx, &commands.PurchaseShipCommand{
		ShipSymbol: "BUYER-1",
		ShipType:   "SHIP_PROBE",
		PlayerID:   f.playerID,
	})

	// Assert
	require.NoError(t, err)
	result, ok := response.(*commands.PurchaseShipResponse)
	require.True(t, ok)
	assert.Equal(t, "X1-GZ7-Y1", result.ShipyardWaypoint)
	assert.Equal(t, 1, syncs)
}

func TestPurchaseShip_NoYardSellsTypeFails(t *testing.T) {
	// Arrange
	f := newPurchaseFixture(t)
	home := helpers.TestWaypoint(t, "X1-GZ7-H1", 0, 0)
	f.shipRepo.AddShip(helpers.TestShip(t, "BUYER-1", f.playerID, home))
	f.waypointRepo.AddWaypoint(helpers.TestWaypoint(t, "X1-GZ7-Y1", 10, 0, "SHIPYARD"))
	f.api.Shipyards["X1-GZ7-Y1"] = &ports.ShipyardData{Symbol: "X1-GZ7-Y1", ShipTypes: []string{"SHIP_LIGHT_HAULER"}}

	// Act
	response, err := f.handler.Handle(f.ctx, &commands.PurchaseShipCommand{
		ShipSymbol: "BUYER-1",
		ShipType:   "SHIP_PROBE",
		PlayerID:   f.playerID,
	})

	// Assert
	require.Error(t, err)
	assert.Nil(t, response)
	assert.True(t, shared.IsCode(err, shared.ErrNoShipyardFound))
	assert.Contains(t, err.Error(), "sells SHIP_PROBE")
	assert.Empty(t, f.api.Purchases())
}

func TestPurchaseShip_EmptySystemFails(t *testing.T) {
	// Arrange
	f := newPurchaseFixture(t)
	home := helpers.TestWaypoint(t, "X1-GZ7-H1", 0, 0)
	f.shipRepo.AddShip(helpers.TestShip(t, "BUYER-1", f.playerID, home))

	// Charting finds nothing either.
	f.graphProvider.GetGraphFunc = func(ctx context.Context, systemSymbol string, forceRefresh bool, playerID shared.PlayerID) (*system.GraphLoadResult, error) {
		return &system.GraphLoadResult{}, nil
	}

	// Act
	response, err := f.handler.Handle(f.ctx, &commands.PurchaseShipCommand{
		ShipSymbol: "BUYER-1",
		ShipType:   "SHIP_PROBE",
		PlayerID:   f.playerID,
	})

	// Assert
	require.Error(t, err)
	assert.Nil(t, response)
	assert.True(t, shared.IsCode(err, shared.ErrNoShipyardFound))
	assert.Contains(t, err.Error(), "no shipyards in system X1-GZ7")
}

func TestPurchaseShip_InsufficientCreditsFails(t *testing.T) {
	// Arrange
	f := newPurchaseFixture(t)
	home := helpers.TestWaypoint(t, "X1-GZ7-H1", 0, 0)
	f.shipRepo.AddShip(helpers.TestShip(t, "BUYER-1", f.playerID, home))
	f.sellProbes()
	f.api.Agents["token-1"] = &player.AgentData{Symbol: "BUYER", Credits: 1000}

	// Act
	response, err := f.handler.Handle(f.ctx, &commands.PurchaseShipCommand{
		ShipSymbol:       "BUYER-1",
		ShipType:         "SHIP_PROBE",
		PlayerID:         f.playerID,
		ShipyardWaypoint: "X1-GZ7-Y1",
	})

	// Assert
	require.Error(t, err)
	assert.Nil(t, response)
	assert.True(t, shared.IsCode(err, shared.ErrInsufficientCredits))
	assert.Empty(t, f.api.Purchases())
}

func TestPurchaseShip_TypeNotListedFails(t *testing.T) {
	// Arrange
	f := newPurchaseFixture(t)
	home := helpers.TestWaypoint(t, "X1-GZ7-H1", 0, 0)
	f.shipRepo.AddShip(helpers.TestShip(t, "BUYER-1", f.playerID, home))

	// The yard lists haulers only; the probe price never shows up.
	f.routeMediator(
		[]string{"SHIP_LIGHT_HAULER"},
		[]shipyard.ShipListing{{ShipType: "SHIP_LIGHT_HAULER", PurchasePrice: 118000}},
	)

	// Act
	response, err := f.handler.Handle(f.ctx, &commands.PurchaseShipCommand{
		ShipSymbol:       "BUYER-1",
		ShipType:         "SHIP_PROBE",
		PlayerID:         f.playerID,
		ShipyardWaypoint: "X1-GZ7-Y1",
	})

	// Assert
	require.Error(t, err)
	assert.Nil(t, response)
	assert.True(t, shared.IsCode(err, shared.ErrShipTypeNotAvailable))
	assert.Empty(t, f.api.Purchases())
}

func TestPurchaseShip_RejectsWrongRequestType(t *testing.T) {
	// Arrange
	f := newPurchaseFixture(t)

	// Act
	_, err := f.handler.Handle(f.ctx, &commands.BatchPurchaseShipsCommand{})

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid request type")
}
