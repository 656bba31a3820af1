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

// SellCargoCommand sells goods from the ship's hold at its current docked
// marketplace. Sales larger than the market's per-transaction volume are
// split into multiple API calls automatically.
type SellCargoCommand struct {
	ShipSymbol string `validate:"required"`
	GoodSymbol string `validate:"required"`
	Units      int    `validate:"gt=0"`
	PlayerID   shared.PlayerID

	// Ship carries the live entity when the caller already holds one.
	Ship *navigation.Ship

	// Context links ledger entries to the container running the sale.
	Context *shared.OperationContext
}

type SellCargoResponse struct {
	TotalRevenue     int
	UnitsSold        int
	TransactionCount int
	AgentCredits     int
}

// SellCargoHandler adapts the sell command onto the shared cargo transaction
// machinery with a sell strategy.
type SellCargoHandler struct {
	delegate *CargoTransactionHandler
}

func NewSellCargoHandler(
	shipRepo navigation.ShipRepository,
	playerRepo player.Repository,
	apiClient ports.APIClient,
	marketRepo market.Repository,
	m mediator.Mediator,
	marketRefresher MarketRefresher,
) *SellCargoHandler {
	strategy := strategies.NewSellStrategy(apiClient)
	return &SellCargoHandler{
		delegate: NewCargoTransactionHandler(strategy, shipRepo, playerRepo, marketRepo, m, marketRefresher),
	}
}

func (h *SellCargoHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*SellCargoCommand)
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
	return &SellCargoResponse{
		TotalRevenue:     result.TotalAmount,
		UnitsSold:        result.UnitsProcessed,
		TransactionCount: result.TransactionCount,
		AgentCredits:     result.AgentCredits,
	}, nil
}
