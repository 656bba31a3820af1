package commands

import (
	"context"
	"fmt"

	"github.com/orbitalmachines/astrogator/internal/application/auth"
	ledgerCommands "github.com/orbitalmachines/astrogator/internal/application/ledger/commands"
	"github.com/orbitalmachines/astrogator/internal/application/logging"
	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	shipCommands "github.com/orbitalmachines/astrogator/internal/application/ship/commands"
	"github.com/orbitalmachines/astrogator/internal/application/ship/types"
	"github.com/orbitalmachines/astrogator/internal/application/shipyard/queries"
	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/player"
	"github.com/orbitalmachines/astrogator/internal/domain/ports"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/internal/domain/system"
)

// PurchaseShipCommand buys one ship of a type. ShipSymbol names the ship
// that travels to the yard and stands present for the purchase; the remote
// API only exposes purchase prices while a ship of the player is docked at
// the shipyard waypoint.
//
// ShipyardWaypoint is optional: left empty, the handler picks the nearest
// yard in the ship's system that sells the type, charting the system first
// when its waypoints were never synced.
type PurchaseShipCommand struct {
	ShipSymbol       string `validate:"required"`
	ShipType         string `validate:"required"`
	PlayerID         shared.PlayerID
	ShipyardWaypoint string
	Ship             *navigation.Ship
	Context          *shared.OperationContext
}

// PurchaseShipResponse reports the completed purchase. NewShipSymbol is the
// symbol the API assigned to the bought ship.
type PurchaseShipResponse struct {
	NewShipSymbol    string
	ShipType         string
	Price            int
	AgentCredits     int
	ShipyardWaypoint string
	TransactionTime  string
}

type PurchaseShipHandler struct {
	shipRepo      navigation.ShipRepository
	waypointRepo  system.WaypointRepository
	graphProvider system.GraphProvider
	playerRepo    player.Repository
	apiClient     ports.APIClient
	mediator      mediator.Mediator
}

func NewPurchaseShipHandler(
	shipRepo navigation.ShipRepository,
	waypointRepo system.WaypointRepository,
	graphProvider system.GraphProvider,
	playerRepo player.Repository,
	apiClient ports.APIClient,
	m mediator.Mediator,
) *PurchaseShipHandler {
	return &PurchaseShipHandler{
		shipRepo:      shipRepo,
		waypointRepo:  waypointRepo,
		graphProvider: graphProvider,
		playerRepo:    playerRepo,
		apiClient:     apiClient,
		mediator:      m,
	}
}

func (h *PurchaseShipHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*PurchaseShipCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *PurchaseShipCommand")
	}

	token, err := auth.PlayerTokenFromContext(ctx)
	if err != nil {
		return nil, err
	}

	ship := cmd.Ship
	if ship == nil {
		ship, err = h.shipRepo.FindBySymbol(ctx, cmd.ShipSymbol, cmd.PlayerID)
		if err != nil {
			return nil, fmt.Errorf("purchasing ship not found: %w", err)
		}
	}

	yardWaypoint := cmd.ShipyardWaypoint
	if yardWaypoint == "" {
		yardWaypoint, err = h.discoverNearestShipyard(ctx, ship, cmd.ShipType, cmd.PlayerID, token)
		if err != nil {
			return nil, err
		}
	}

	if err := h.moveToShipyard(ctx, cmd, ship, yardWaypoint); err != nil {
		return nil, err
	}

	price, err := h.priceAtYard(ctx, cmd, yardWaypoint)
	if err != nil {
		return nil, err
	}

	agent, err := h.apiClient.GetAgent(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to check credits: %w", err)
	}
	if agent.Credits < price {
		return nil, shared.NewDomainErrorf(shared.ErrInsufficientCredits,
			"ship %s costs %d, agent holds %d", cmd.ShipType, price, agent.Credits)
	}

	result, err := h.apiClient.PurchaseShip(ctx, cmd.ShipType, yardWaypoint, token)
	if err != nil {
		return nil, fmt.Errorf("failed to purchase ship: %w", err)
	}

	logging.LoggerFromContext(ctx).Log("INFO", "Ship purchased", map[string]interface{}{
		"new_ship":  result.Transaction.ShipSymbol,
		"ship_type": cmd.ShipType,
		"price":     result.Transaction.Price,
		"shipyard":  yardWaypoint,
	})

	go h.recordPurchaseTransaction(ctx, cmd, yardWaypoint, result)

	return &PurchaseShipResponse{
		NewShipSymbol:    result.Transaction.ShipSymbol,
		ShipType:         cmd.ShipType,
		Price:            result.Transaction.Price,
		AgentCredits:     result.Agent.Credits,
		ShipyardWaypoint: yardWaypoint,
		TransactionTime:  result.Transaction.Timestamp,
	}, nil
}

// discoverNearestShipyard picks the closest yard in the ship's system that
// sells the type. Yards come from the cached waypoint store; a system that
// was never charted is synced once through the graph provider before giving
// up.
func (h *PurchaseShipHandler) discoverNearestShipyard(
	ctx context.Context,
	ship *navigation.Ship,
	shipType string,
	playerID shared.PlayerID,
	token string,
) (string, error) {
	systemSymbol := ship.CurrentLocation().SystemSymbol

	yards, err := h.waypointRepo.ListBySystemWithTrait(ctx, systemSymbol, "SHIPYARD")
	if err != nil {
		return "", fmt.Errorf("failed to list shipyards: %w", err)
	}

	if len(yards) == 0 {
		// Charting the system persists every waypoint as a side effect.
		if _, err := h.graphProvider.GetGraph(ctx, systemSymbol, true, playerID); err != nil {
			return "", fmt.Errorf("failed to sync waypoints for %s: %w", systemSymbol, err)
		}
		yards, err = h.waypointRepo.ListBySystemWithTrait(ctx, systemSymbol, "SHIPYARD")
		if err != nil {
			return "", fmt.Errorf("failed to list shipyards: %w", err)
		}
	}

	if len(yards) == 0 {
		return "", shared.NewDomainErrorf(shared.ErrNoShipyardFound,
			"no shipyards in system %s", systemSymbol)
	}

	var nearest *shared.Waypoint
	var nearestDistance float64
	for _, yard := range yards {
		sells, err := h.yardSellsType(ctx, systemSymbol, yard.Symbol, shipType, token)
		if err != nil || !sells {
			// A yard we cannot read is a yard we cannot buy from.
			continue
		}
		distance := ship.CurrentLocation().DistanceTo(yard)
		if nearest == nil || distance < nearestDistance {
			nearest = yard
			nearestDistance = distance
		}
	}

	if nearest == nil {
		return "", shared.NewDomainErrorf(shared.ErrNoShipyardFound,
			"no shipyard in system %s sells %s", systemSymbol, shipType)
	}
	return nearest.Symbol, nil
}

// yardSellsType checks the yard's ship types, which the API reveals without
// a ship present.
func (h *PurchaseShipHandler) yardSellsType(ctx context.Context, systemSymbol, waypointSymbol, shipType, token string) (bool, error) {
	data, err := h.apiClient.GetShipyard(ctx, systemSymbol, waypointSymbol, token)
	if err != nil {
		return false, err
	}
	for _, st := range data.ShipTypes {
		if st == shipType {
			return true, nil
		}
	}
	return false, nil
}

// moveToShipyard brings the purchasing ship to the yard and docks it, which
// makes the yard's prices visible.
func (h *PurchaseShipHandler) moveToShipyard(
	ctx context.Context,
	cmd *PurchaseShipCommand,
	ship *navigation.Ship,
	yardWaypoint string,
) error {
	if ship.CurrentLocation().Symbol != yardWaypoint {
		_, err := h.mediator.Send(ctx, &shipCommands.NavigateRouteCommand{
			ShipSymbol:  cmd.ShipSymbol,
			Destination: yardWaypoint,
			PlayerID:    cmd.PlayerID,
			Ship:        ship,
			Context:     cmd.Context,
		})
		if err != nil {
			return fmt.Errorf("failed to navigate to shipyard: %w", err)
		}
	}

	_, err := h.mediator.Send(ctx, &types.DockShipCommand{
		ShipSymbol: cmd.ShipSymbol,
		PlayerID:   cmd.PlayerID,
		Ship:       ship,
	})
	if err != nil {
		return fmt.Errorf("failed to dock at shipyard: %w", err)
	}
	return nil
}

// priceAtYard reads the live listing now that a ship is docked at the yard.
func (h *PurchaseShipHandler) priceAtYard(
	ctx context.Context,
	cmd *PurchaseShipCommand,
	yardWaypoint string,
) (int, error) {
	pid := cmd.PlayerID.Value()
	response, err := h.mediator.Send(ctx, &queries.GetShipyardListingsQuery{
		PlayerID:       &pid,
		WaypointSymbol: yardWaypoint,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get shipyard listings: %w", err)
	}

	listings, ok := response.(*queries.GetShipyardListingsResponse)
	if !ok {
		return 0, fmt.Errorf("unexpected response type %T from shipyard listings", response)
	}

	listing, found := listings.Shipyard.FindListingByType(cmd.ShipType)
	if !found {
		return 0, shared.NewDomainErrorf(shared.ErrShipTypeNotAvailable,
			"ship type %s not available at %s", cmd.ShipType, yardWaypoint)
	}
	return listing.PurchasePrice, nil
}

// recordPurchaseTransaction writes the ledger entry. The purchase has
// already happened, so failures here are logged and never propagated.
func (h *PurchaseShipHandler) recordPurchaseTransaction(
	ctx context.Context,
	cmd *PurchaseShipCommand,
	yardWaypoint string,
	result *ports.ShipPurchaseResult,
) {
	logger := logging.LoggerFromContext(ctx)

	agentSymbol := ""
	if p, err := h.playerRepo.FindByID(ctx, cmd.PlayerID); err == nil && p != nil {
		agentSymbol = p.AgentSymbol
	}

	recordCmd := &ledgerCommands.RecordTransactionCommand{
		PlayerID:        cmd.PlayerID.Value(),
		TransactionType: "SHIP_PURCHASE",
		Amount:          -result.Transaction.Price,
		Units:           1,
		PricePerUnit:    result.Transaction.Price,
		GoodSymbol:      cmd.ShipType,
		WaypointSymbol:  yardWaypoint,
		ShipSymbol:      result.Transaction.ShipSymbol,
		BalanceBefore:   result.Agent.Credits + result.Transaction.Price,
		BalanceAfter:    result.Agent.Credits,
		Description:     fmt.Sprintf("Purchased %s at %s", cmd.ShipType, yardWaypoint),
		AgentSymbol:     agentSymbol,
	}

	if cmd.Context != nil && cmd.Context.IsValid() {
		recordCmd.ContainerID = cmd.Context.ContainerID
		recordCmd.Metadata = map[string]interface{}{
			"operation_type": cmd.Context.NormalizedOperationType(),
		}
	}

	if _, err := h.mediator.Send(context.Background(), recordCmd); err != nil {
		logger.Log("ERROR", "Failed to record ship purchase in ledger", map[string]interface{}{
			"error":     err.Error(),
			"new_ship":  result.Transaction.ShipSymbol,
			"price":     result.Transaction.Price,
			"player_id": cmd.PlayerID.Value(),
		})
	}
}
