package commands

import (
	"context"
	"fmt"

	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	"github.com/orbitalmachines/astrogator/internal/application/ship/types"
	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// OrbitShipHandler moves a ship from docked to orbiting. A ship already in
// orbit is a no-op, not an error, so callers can use it as a precondition.
type OrbitShipHandler struct {
	shipRepo navigation.ShipRepository
}

func NewOrbitShipHandler(shipRepo navigation.ShipRepository) *OrbitShipHandler {
	return &OrbitShipHandler{shipRepo: shipRepo}
}

func (h *OrbitShipHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*types.OrbitShipCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *OrbitShipCommand")
	}

	ship, err := loadShip(ctx, h.shipRepo, cmd.Ship, cmd.ShipSymbol, cmd.PlayerID)
	if err != nil {
		return nil, err
	}

	stateChanged, err := ship.EnsureInOrbit()
	if err != nil {
		return nil, err
	}

	if !stateChanged {
		return &types.OrbitShipResponse{Status: "already_in_orbit"}, nil
	}

	if err := h.shipRepo.Orbit(ctx, ship, cmd.PlayerID); err != nil {
		return nil, fmt.Errorf("failed to orbit ship: %w", err)
	}

	return &types.OrbitShipResponse{Status: "in_orbit"}, nil
}

// loadShip returns the caller-provided ship when present, falling back to a
// live fetch by symbol.
func loadShip(ctx context.Context, shipRepo navigation.ShipRepository, ship *navigation.Ship, symbol string, playerID shared.PlayerID) (*navigation.Ship, error) {
	if ship != nil {
		return ship, nil
	}
	ship, err := shipRepo.FindBySymbol(ctx, symbol, playerID)
	if err != nil {
		return nil, fmt.Errorf("ship not found: %w", err)
	}
	return ship, nil
}
