package commands

import (
	"context"
	"fmt"

	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	"github.com/orbitalmachines/astrogator/internal/application/ship/types"
	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
)

// DockShipHandler docks a ship at its current waypoint. Docking an already
// docked ship is a no-op.
type DockShipHandler struct {
	shipRepo navigation.ShipRepository
}

func NewDockShipHandler(shipRepo navigation.ShipRepository) *DockShipHandler {
	return &DockShipHandler{shipRepo: shipRepo}
}

func (h *DockShipHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*types.DockShipCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *DockShipCommand")
	}

	ship, err := loadShip(ctx, h.shipRepo, cmd.Ship, cmd.ShipSymbol, cmd.PlayerID)
	if err != nil {
		return nil, err
	}

	stateChanged, err := ship.EnsureDocked()
	if err != nil {
		return nil, err
	}

	if !stateChanged {
		return &types.DockShipResponse{Status: "already_docked"}, nil
	}

	if err := h.shipRepo.Dock(ctx, ship, cmd.PlayerID); err != nil {
		return nil, fmt.Errorf("failed to dock ship: %w", err)
	}

	return &types.DockShipResponse{Status: "docked"}, nil
}
