package commands

import (
	"context"
	"fmt"

	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	"github.com/orbitalmachines/astrogator/internal/application/ship/strategies"
	"github.com/orbitalmachines/astrogator/internal/domain/market"
	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/player"
	"github.com/orbitalmachines/astrogator/internal/domain/ports"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// PurchaseCargoCommand buys goods at the ship's current docked marketplace.
// Purchases larger than the market's per-transaction volume are split into
// multiple API calls automatically.
type PurchaseCargoCommand struct {
	ShipSymbol string `validate:"required"`
	GoodSymbol string `validate:"required"`
	Units      int    `validate:"gt=0"`
	PlayerID   shared.PlayerID

	// Ship carries the live entity when the caller already holds one.
	Ship *navigation.Ship

	// Context links ledger entries to the container running the purchase.
	Context *shared.OperationContext
}

type PurchaseCargoResponse struct {
	TotalCost        int
	UnitsAdded       int
	TransactionCount int
	AgentCredits     int
}

// PurchaseCargoHandler adapts the purchase command onto the shared cargo
// transaction machinery with a purchase strategy.
type PurchaseCargoHandler struct {
	delegate *CargoTransactionHandler
}

func NewPurchaseCargoHandler(
	shipRepo navigation.ShipRepository,
	playerRepo player.Repository,
	apiClient ports.APIClient,
	marketRepo market.Repository,
	m mediator.Mediator,
	marketRefresher MarketRefresher,
) *PurchaseCargoHandler {
	strategy := strategies.NewPurchaseStrategy(apiClient)
	return &PurchaseCargoHandler{
		delegate: NewCargoTransactionHandler(strategy, shipRepo, playerRepo, marketRepo, m, marketRefresher),
	}
}

func (h *PurchaseCargoHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*PurchaseCargoCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type")
	}

	response, err := h.delegate.Handle(ctx, &CargoTransactionCommand{
		ShipSymbol: cmd.ShipSymbol,
		GoodSymbol: cmd.GoodSymbol,
		Units:      cmd.Units,
		PlayerID:   cmd.PlayerID,
		Ship:       cmd.Ship,
		Context:    cmd.Context,
	})
	if err != nil {
		return nil, err
	}

	result := response.(*CargoTransactionResponse)
	return &PurchaseCargoResponse{
		TotalCost:        result.TotalAmount,
		UnitsAdded:       result.UnitsProcessed,
		TransactionCount: result.TransactionCount,
		AgentCredits:     result.AgentCredits,
	}, nil
}
