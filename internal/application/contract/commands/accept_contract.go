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

// AcceptContractCommand commits the player to a negotiated contract. The
// faction pays the on-accepted advance immediately; the entry lands in the
// ledger as CONTRACT_REWARD income.
type AcceptContractCommand struct {
	ContractID string `validate:"required"`
	PlayerID   shared.PlayerID

	// Context links the ledger entry to the container accepting.
	Context *shared.OperationContext
}

type AcceptContractResponse struct {
	Contract     *contract.Contract
	AgentCredits int
}

type AcceptContractHandler struct {
	contractRepo contract.Repository
	playerRepo   player.Repository
	apiClient    ports.APIClient
	mediator     mediator.Mediator
}

func NewAcceptContractHandler(
	contractRepo contract.Repository,
	playerRepo player.Repository,
	apiClient ports.APIClient,
	m mediator.Mediator,
) *AcceptContractHandler {
	return &AcceptContractHandler{
		contractRepo: contractRepo,
		playerRepo:   playerRepo,
		apiClient:    apiClient,
		mediator:     m,
	}
}

func (h *AcceptContractHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*AcceptContractCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *AcceptContractCommand")
	}

	token, err := auth.PlayerTokenFromContext(ctx)
	if err != nil {
		return nil, err
	}

	c, err := h.contractRepo.FindByID(ctx, cmd.ContractID, cmd.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("contract not found: %w", err)
	}

	// Domain gate: rejects double-accepts and accepting a fulfilled contract
	// before any API call is spent.
	if err := c.Accept(); err != nil {
		return nil, err
	}

	result, err := h.apiClient.AcceptContract(ctx, cmd.ContractID, token)
	if err != nil {
		return nil, fmt.Errorf("failed to accept contract: %w", err)
	}

	if err := h.contractRepo.Upsert(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to save contract: %w", err)
	}

	logging.LoggerFromContext(ctx).Log("INFO", "Contract accepted", map[string]interface{}{
		"contract_id":   cmd.ContractID,
		"on_accepted":   c.Terms().Payment.OnAccepted,
		"on_fulfilled":  c.Terms().Payment.OnFulfilled,
		"agent_credits": result.AgentCredits,
	})

	go h.recordAcceptPayment(ctx, cmd, c, result)

	return &AcceptContractResponse{Contract: c, AgentCredits: result.AgentCredits}, nil
}

// recordAcceptPayment books the on-accepted advance. The contract is already
// accepted upstream, so failures here are logged, never propagated.
func (h *AcceptContractHandler) recordAcceptPayment(
	ctx context.Context,
	cmd *AcceptContractCommand,
	c *contract.Contract,
	result *ports.ContractAgreementResult,
) {
	logger := logging.LoggerFromContext(ctx)

	payment := c.Terms().Payment.OnAccepted
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
		Description:     fmt.Sprintf("Accepted contract %s (advance payment)", cmd.ContractID),
		AgentSymbol:     agentSymbol,
		Metadata: map[string]interface{}{
			"contract_id": cmd.ContractID,
			"milestone":   "accepted",
		},
	}

	if cmd.Context != nil && cmd.Context.IsValid() {
		recordCmd.ContainerID = cmd.Context.ContainerID
		recordCmd.Metadata["operation_type"] = cmd.Context.NormalizedOperationType()
	}

	if _, err := h.mediator.Send(context.Background(), recordCmd); err != nil {
		logger.Log("ERROR", "Failed to record contract advance in ledger", map[string]interface{}{
			"error":       err.Error(),
			"contract_id": cmd.ContractID,
			"player_id":   cmd.PlayerID.Value(),
		})
	}
}
