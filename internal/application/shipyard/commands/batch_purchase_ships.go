package commands

import (
	"context"
	"fmt"

	"github.com/orbitalmachines/astrogator/internal/application/logging"
	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// BatchPurchaseShipsCommand buys up to Quantity ships of one type, stopping
// early when the next purchase would break MaxBudget or the agent's live
// credit balance. A failure after at least one successful purchase is a
// partial success, not an error; the response carries the counts.
type BatchPurchaseShipsCommand struct {
	ShipSymbol       string `validate:"required"`
	ShipType         string `validate:"required"`
	Quantity         int    `validate:"required,min=1"`
	MaxBudget        int    `validate:"required,min=1"`
	PlayerID         shared.PlayerID
	ShipyardWaypoint string
	Context          *shared.OperationContext
}

type BatchPurchaseShipsResponse struct {
	PurchasedShips []string
	TotalCost      int
	Requested      int
	Purchased      int
	StoppedReason  string
}

type BatchPurchaseShipsHandler struct {
	shipRepo navigation.ShipRepository
	mediator mediator.Mediator
}

func NewBatchPurchaseShipsHandler(shipRepo navigation.ShipRepository, m mediator.Mediator) *BatchPurchaseShipsHandler {
	return &BatchPurchaseShipsHandler{shipRepo: shipRepo, mediator: m}
}

func (h *BatchPurchaseShipsHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*BatchPurchaseShipsCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *BatchPurchaseShipsCommand")
	}

	logger := logging.LoggerFromContext(ctx)

	// One live entity rides through every iteration; the single-purchase
	// handler navigates and docks it on the first pass and finds it already
	// in place on the rest.
	ship, err := h.shipRepo.FindBySymbol(ctx, cmd.ShipSymbol, cmd.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("purchasing ship not found: %w", err)
	}

	var purchased []string
	totalCost := 0
	yard := cmd.ShipyardWaypoint
	stopped := ""

	for len(purchased) < cmd.Quantity {
		if err := ctx.Err(); err != nil {
			stopped = "canceled"
			break
		}

		result, err := h.purchaseOne(ctx, cmd, ship, yard)
		if err != nil {
			if len(purchased) == 0 {
				return nil, fmt.Errorf("failed to purchase ship 1 of %d: %w", cmd.Quantity, err)
			}
			logger.Log("WARN", "Batch purchase stopped mid-batch", map[string]interface{}{
				"purchased": len(purchased),
				"requested": cmd.Quantity,
				"error":     err.Error(),
			})
			stopped = err.Error()
			break
		}

		purchased = append(purchased, result.NewShipSymbol)
		totalCost += result.Price
		// Pin the yard the first purchase discovered so later iterations
		// skip rediscovery.
		yard = result.ShipyardWaypoint

		if totalCost+result.Price > cmd.MaxBudget {
			stopped = "budget exhausted"
			break
		}
		if result.AgentCredits < result.Price {
			stopped = "insufficient credits for another ship"
			break
		}
	}

	logger.Log("INFO", "Batch ship purchase finished", map[string]interface{}{
		"ship_type": cmd.ShipType,
		"purchased": len(purchased),
		"requested": cmd.Quantity,
		"total":     totalCost,
	})

	return &BatchPurchaseShipsResponse{
		PurchasedShips: purchased,
		TotalCost:      totalCost,
		Requested:      cmd.Quantity,
		Purchased:      len(purchased),
		StoppedReason:  stopped,
	}, nil
}

func (h *BatchPurchaseShipsHandler) purchaseOne(
	ctx context.Context,
	cmd *BatchPurchaseShipsCommand,
	ship *navigation.Ship,
	yard string,
) (*PurchaseShipResponse, error) {
	response, err := h.mediator.Send(ctx, &PurchaseShipCommand{
		ShipSymbol:       cmd.ShipSymbol,
		ShipType:         cmd.ShipType,
		PlayerID:         cmd.PlayerID,
		ShipyardWaypoint: yard,
		Ship:             ship,
		Context:          cmd.Context,
	})
	if err != nil {
		return nil, err
	}

	result, ok := response.(*PurchaseShipResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type %T from ship purchase", response)
	}
	return result, nil
}
