package commands

import (
	"context"
	"fmt"

	"github.com/orbitalmachines/astrogator/internal/application/auth"
	ledgerCommands "github.com/orbitalmachines/astrogator/internal/application/ledger/commands"
	"github.com/orbitalmachines/astrogator/internal/application/logging"
	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	"github.com/orbitalmachines/astrogator/internal/domain/contract"
	"github.com/orbitalmachines/astrogator/internal/domain/player"
	"github.com/orbitalmachines/astrogator/internal/domain/ports"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// FulfillContractCommand closes out a contract whose deliveries are all
// complete and collects the on-fulfilled payment.
type FulfillContractCommand struct {
	ContractID string `validate:"required"`
	PlayerID   shared.PlayerID

	// Context links the payout ledger entry to the container fulfilling.
	Context *shared.OperationContext
}

type FulfillContractResponse struct {
	Contract        *contract.Contract
	AgentCredits    int
	PaymentReceived int
}

type FulfillContractHandler struct {
	contractRepo contract.Repository
	playerRepo   player.Repository
	apiClient    ports.APIClient
	mediator     mediator.Mediator
}

func NewFulfillContractHandler(
	contractRepo contract.Repository,
	playerRepo player.Repository,
	apiClient ports.APIClient,
	m mediator.Mediator,
) *FulfillContractHandler {
	return &FulfillContractHandler{
		contractRepo: contractRepo,
		playerRepo:   playerRepo,
		apiClient:    apiClient,
		mediator:     m,
	}
}

func (h *FulfillContractHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*FulfillContractCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *FulfillContractCommand")
	}

	token, err := auth.PlayerTokenFromContext(ctx)
	if err != nil {
		return nil, err
	}

	c, err := h.contractRepo.FindByID(ctx, cmd.ContractID, cmd.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("contract not found: %w", err)
	}

	// Domain gate: refuses while any delivery line is incomplete.
	if err := c.Fulfill(); err != nil {
		return nil, err
	}

	result, err := h.apiClient.FulfillContract(ctx, cmd.ContractID, token)
	if err != nil {
		return nil, fmt.Errorf("failed to fulfill contract: %w", err)
	}

	if err := h.contractRepo.Upsert(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to save contract: %w", err)
	}

	payment := c.Terms().Payment.OnFulfilled

	logging.LoggerFromContext(ctx).Log("INFO", "Contract fulfilled", map[string]interface{}{
		"contract_id":   cmd.ContractID,
		"payment":       payment,
		"agent_credits": result.AgentCredits,
	})

	go h.recordFulfillmentPayment(ctx, cmd, payment, result)

	return &FulfillContractResponse{
		Contract:        c,
		AgentCredits:    result.AgentCredits,
		PaymentReceived: payment,
	}, nil
}

// recordFulfillmentPayment books the completion payout. The contract is
// already fulfilled upstream, so failures here are logged, never propagated.
func (h *FulfillContractHandler) recordFulfillmentPayment(
	ctx context.Context,
	cmd *FulfillContractCommand,
	payment int,
	result *ports.ContractAgreementResult,
) {
	logger := logging.LoggerFromContext(ctx)

	if payment == 0 {
		return
	}

	agentSymbol := ""
	if p, err := h.playerRepo.FindByID(ctx, cmd.PlayerID); err == nil && p != nil {
		agentSymbol = p.AgentSymbol
	}

	recordCmd := &ledgerCommands.RecordTransactionCommand{
		PlayerID:        cmd.PlayerID.Value(),
		TransactionType: "CONTRACT_REWARD",
		Amount:          payment,
		BalanceBefore:   result.AgentCredits - payment,
		BalanceAfter:    result.AgentCredits,
		Description:     fmt.Sprintf("Fulfilled contract %s (completion payment)", cmd.ContractID),
		AgentSymbol:     agentSymbol,
		Metadata: map[string]interface{}{
			"contract_id": cmd.ContractID,
			"milestone":   "fulfilled",
		},
	}

	if cmd.Context != nil && cmd.Context.IsValid() {
		recordCmd.ContainerID = cmd.Context.ContainerID
		recordCmd.Metadata["operation_type"] = cmd.Context.NormalizedOperationType()
	}

	if _, err := h.mediator.Send(context.Background(), recordCmd); err != nil {
		logger.Log("ERROR", "Failed to record contract payout in ledger", map[string]interface{}{
			"error":       err.Error(),
			"contract_id": cmd.ContractID,
			"player_id":   cmd.PlayerID.Value(),
		})
	}
}
