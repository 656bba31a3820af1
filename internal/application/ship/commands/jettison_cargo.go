package commands

import (
	"context"
	"fmt"

	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// JettisonCargoCommand dumps cargo into space. Used to clear holds of goods
// not worth hauling to a market.
type JettisonCargoCommand struct {
	ShipSymbol string `validate:"required"`
	GoodSymbol string `validate:"required"`
	Units      int    `validate:"gt=0"`
	PlayerID   shared.PlayerID

	// Ship carries the live entity when the caller already holds one.
	Ship *navigation.Ship
}

type JettisonCargoResponse struct {
	UnitsJettisoned int
}

type JettisonCargoHandler struct {
	shipRepo navigation.ShipRepository
}

func NewJettisonCargoHandler(shipRepo navigation.ShipRepository) *JettisonCargoHandler {
	return &JettisonCargoHandler{shipRepo: shipRepo}
}

func (h *JettisonCargoHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*JettisonCargoCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type")
	}

	ship, err := loadShip(ctx, h.shipRepo, cmd.Ship, cmd.ShipSymbol, cmd.PlayerID)
	if err != nil {
		return nil, err
	}

	currentUnits := ship.Cargo().GetItemUnits(cmd.GoodSymbol)
	if currentUnits < cmd.Units {
		return nil, fmt.Errorf("insufficient cargo: have %d units of %s, need %d", currentUnits, cmd.GoodSymbol, cmd.Units)
	}

	stateChanged, err := ship.EnsureInOrbit()
	if err != nil {
		return nil, err
	}
	if stateChanged {
		if err := h.shipRepo.Orbit(ctx, ship, cmd.PlayerID); err != nil {
			return nil, fmt.Errorf("failed to orbit ship: %w", err)
		}
	}

	if err := h.shipRepo.JettisonCargo(ctx, ship, cmd.PlayerID, cmd.GoodSymbol, cmd.Units); err != nil {
		return nil, fmt.Errorf("failed to jettison cargo: %w", err)
	}

	return &JettisonCargoResponse{UnitsJettisoned: cmd.Units}, nil
}
