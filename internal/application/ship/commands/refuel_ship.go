package commands

import (
	"context"
	"fmt"

	"github.com/orbitalmachines/astrogator/internal/adapters/metrics"
	ledgerCommands "github.com/orbitalmachines/astrogator/internal/application/ledger/commands"
	"github.com/orbitalmachines/astrogator/internal/application/logging"
	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	"github.com/orbitalmachines/astrogator/internal/application/ship/types"
	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/player"
)

// RefuelShipHandler refuels a ship at its current waypoint. The waypoint
// must sell fuel; the ship is docked first when needed. Every paid refuel
// is recorded in the ledger with the exact cost and balance the API
// reported.
type RefuelShipHandler struct {
	shipRepo   navigation.ShipRepository
	playerRepo player.Repository
	mediator   mediator.Mediator
}

func NewRefuelShipHandler(shipRepo navigation.ShipRepository, playerRepo player.Repository, m mediator.Mediator) *RefuelShipHandler {
	return &RefuelShipHandler{
		shipRepo:   shipRepo,
		playerRepo: playerRepo,
		mediator:   m,
	}
}

func (h *RefuelShipHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*types.RefuelShipCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *RefuelShipCommand")
	}

	ship, err := loadShip(ctx, h.shipRepo, cmd.Ship, cmd.ShipSymbol, cmd.PlayerID)
	if err != nil {
		return nil, err
	}

	if !ship.CurrentLocation().HasFuel {
		return nil, fmt.Errorf("waypoint %s does not sell fuel", ship.CurrentLocation().Symbol)
	}

	if cmd.Units == nil && ship.Fuel().IsFull() {
		return &types.RefuelShipResponse{
			Status:       "already_full",
			CurrentFuel:  ship.Fuel().Current,
			FuelCapacity: ship.Fuel().Capacity,
		}, nil
	}

	if err := h.ensureDocked(ctx, ship, cmd); err != nil {
		return nil, err
	}

	result, err := h.shipRepo.Refuel(ctx, ship, cmd.PlayerID, cmd.Units)
	if err != nil {
		return nil, fmt.Errorf("failed to refuel ship: %w", err)
	}

	metrics.RecordFuelPurchase(cmd.PlayerID.Value(), ship.CurrentLocation().Symbol, result.FuelAdded)

	if result.CreditsCost > 0 {
		go h.recordRefuelTransaction(ctx, cmd, ship.CurrentLocation().Symbol, result)
	}

	return &types.RefuelShipResponse{
		Status:       "refueled",
		FuelAdded:    result.FuelAdded,
		CreditsCost:  result.CreditsCost,
		CurrentFuel:  ship.Fuel().Current,
		FuelCapacity: ship.Fuel().Capacity,
	}, nil
}

func (h *RefuelShipHandler) ensureDocked(ctx context.Context, ship *navigation.Ship, cmd *types.RefuelShipCommand) error {
	stateChanged, err := ship.EnsureDocked()
	if err != nil {
		return err
	}
	if stateChanged {
		if err := h.shipRepo.Dock(ctx, ship, cmd.PlayerID); err != nil {
			return fmt.Errorf("failed to dock ship for refuel: %w", err)
		}
	}
	return nil
}

// recordRefuelTransaction writes the ledger entry. The refuel has already
// happened, so failures here are logged and never propagated.
func (h *RefuelShipHandler) recordRefuelTransaction(
	ctx context.Context,
	cmd *types.RefuelShipCommand,
	waypointSymbol string,
	result *navigation.RefuelResult,
) {
	logger := logging.LoggerFromContext(ctx)

	agentSymbol := ""
	if p, err := h.playerRepo.FindByID(ctx, cmd.PlayerID); err == nil && p != nil {
		agentSymbol = p.AgentSymbol
	}

	pricePerUnit := 0
	if result.FuelAdded > 0 {
		pricePerUnit = result.CreditsCost / result.FuelAdded
	}

	recordCmd := &ledgerCommands.RecordTransactionCommand{
		PlayerID:        cmd.PlayerID.Value(),
		TransactionType: "REFUEL",
		Amount:          -result.CreditsCost,
		Units:           result.FuelAdded,
		PricePerUnit:    pricePerUnit,
		GoodSymbol:      "FUEL",
		WaypointSymbol:  waypointSymbol,
		ShipSymbol:      cmd.ShipSymbol,
		BalanceBefore:   result.AgentCredits + result.CreditsCost,
		BalanceAfter:    result.AgentCredits,
		Description:     fmt.Sprintf("Refueled ship %s at %s", cmd.ShipSymbol, waypointSymbol),
		AgentSymbol:     agentSymbol,
	}

	if cmd.Context != nil && cmd.Context.IsValid() {
		recordCmd.ContainerID = cmd.Context.ContainerID
		recordCmd.Metadata = map[string]interface{}{
			"operation_type": cmd.Context.NormalizedOperationType(),
		}
	}

	if _, err := h.mediator.Send(context.Background(), recordCmd); err != nil {
		logger.Log("ERROR", "Failed to record refuel transaction in ledger", map[string]interface{}{
			"error":     err.Error(),
			"ship":      cmd.ShipSymbol,
			"cost":      result.CreditsCost,
			"player_id": cmd.PlayerID.Value(),
		})
	}
}
