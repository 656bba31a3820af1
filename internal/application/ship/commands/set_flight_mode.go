package commands

import (
	"context"
	"fmt"

	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	"github.com/orbitalmachines/astrogator/internal/application/ship/types"
	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// SetFlightModeHandler changes a ship's flight mode. Setting the mode the
// ship already flies is answered locally without an API call; the route
// executor calls this before every travel step.
type SetFlightModeHandler struct {
	shipRepo navigation.ShipRepository
}

func NewSetFlightModeHandler(shipRepo navigation.ShipRepository) *SetFlightModeHandler {
	return &SetFlightModeHandler{shipRepo: shipRepo}
}

func (h *SetFlightModeHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*types.SetFlightModeCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *SetFlightModeCommand")
	}

	if !shared.IsValidFlightModeName(cmd.Mode.Name()) {
		return nil, fmt.Errorf("invalid flight mode: %s", cmd.Mode.Name())
	}

	ship, err := loadShip(ctx, h.shipRepo, cmd.Ship, cmd.ShipSymbol, cmd.PlayerID)
	if err != nil {
		return nil, err
	}

	if ship.FlightMode() == cmd.Mode {
		return &types.SetFlightModeResponse{Status: "already_set", Mode: cmd.Mode}, nil
	}

	if err := h.shipRepo.SetFlightMode(ctx, ship, cmd.PlayerID, cmd.Mode); err != nil {
		return nil, fmt.Errorf("failed to set flight mode: %w", err)
	}

	return &types.SetFlightModeResponse{Status: "mode_set", Mode: cmd.Mode}, nil
}
