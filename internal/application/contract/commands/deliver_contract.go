package commands

import (
	"context"
	"fmt"

	"github.com/orbitalmachines/astrogator/internal/application/auth"
	"github.com/orbitalmachines/astrogator/internal/application/logging"
	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	"github.com/orbitalmachines/astrogator/internal/domain/contract"
	"github.com/orbitalmachines/astrogator/internal/domain/ports"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// DeliverContractCommand hands over cargo at a delivery destination. The
// ship must already be docked there with the goods aboard; the workflow
// handles getting it in position.
type DeliverContractCommand struct {
	ContractID  string `validate:"required"`
	ShipSymbol  string `validate:"required"`
	TradeSymbol string `validate:"required"`
	Units       int    `validate:"gt=0"`
	PlayerID    shared.PlayerID
}

type DeliverContractResponse struct {
	Contract       *contract.Contract
	UnitsDelivered int
}

type DeliverContractHandler struct {
	contractRepo contract.Repository
	apiClient    ports.APIClient
}

func NewDeliverContractHandler(contractRepo contract.Repository, apiClient ports.APIClient) *DeliverContractHandler {
	return &DeliverContractHandler{contractRepo: contractRepo, apiClient: apiClient}
}

func (h *DeliverContractHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*DeliverContractCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *DeliverContractCommand")
	}

	token, err := auth.PlayerTokenFromContext(ctx)
	if err != nil {
		return nil, err
	}

	c, err := h.contractRepo.FindByID(ctx, cmd.ContractID, cmd.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("contract not found: %w", err)
	}

	// Domain gate: rejects deliveries against unaccepted contracts, goods the
	// contract never asked for, and over-deliveries.
	if err := c.DeliverCargo(cmd.TradeSymbol, cmd.Units); err != nil {
		return nil, fmt.Errorf("delivery rejected: %w", err)
	}

	result, err := h.apiClient.DeliverContract(ctx, cmd.ContractID, cmd.ShipSymbol, cmd.TradeSymbol, cmd.Units, token)
	if err != nil {
		return nil, fmt.Errorf("failed to deliver contract cargo: %w", err)
	}

	// The API's fulfilled counts win over our optimistic bookkeeping.
	if result.Contract != nil {
		for _, d := range result.Contract.Deliveries {
			c.SyncDeliveryProgress(d.TradeSymbol, d.UnitsFulfilled)
		}
	}

	if err := h.contractRepo.Upsert(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to save contract: %w", err)
	}

	logging.LoggerFromContext(ctx).Log("INFO", "Contract cargo delivered", map[string]interface{}{
		"contract_id":  cmd.ContractID,
		"ship_symbol":  cmd.ShipSymbol,
		"trade_symbol": cmd.TradeSymbol,
		"units":        cmd.Units,
		"remaining":    c.RemainingUnits(cmd.TradeSymbol),
	})

	return &DeliverContractResponse{Contract: c, UnitsDelivered: cmd.Units}, nil
}
