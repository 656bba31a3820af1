package commands

import (
	"context"
	"fmt"

	"github.com/orbitalmachines/astrogator/internal/application/auth"
	ledgerCommands "github.com/orbitalmachines/astrogator/internal/application/ledger/commands"
	"github.com/orbitalmachines/astrogator/internal/application/logging"
	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	"github.com/orbitalmachines/astrogator/internal/domain/contract"
	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/player"
	"github.com/orbitalmachines/astrogator/internal/domain/ports"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// NegotiateContractCommand asks the faction at the ship's waypoint for a new
// procurement contract. The ship is docked first when it is not already.
//
// The remote API refuses to negotiate while the agent holds an unfulfilled
// contract and names that contract instead. The handler treats this as a
// resume: the existing contract is fetched, persisted, and returned with
// WasNegotiated false.
type NegotiateContractCommand struct {
	ShipSymbol string `validate:"required"`
	PlayerID   shared.PlayerID

	// Context links the audit ledger entry to the container negotiating.
	Context *shared.OperationContext
}

type NegotiateContractResponse struct {
	Contract      *contract.Contract
	WasNegotiated bool
}

type NegotiateContractHandler struct {
	contractRepo contract.Repository
	shipRepo     navigation.ShipRepository
	playerRepo   player.Repository
	apiClient    ports.APIClient
	mediator     mediator.Mediator
	clock        shared.Clock
}

func NewNegotiateContractHandler(
	contractRepo contract.Repository,
	shipRepo navigation.ShipRepository,
	playerRepo player.Repository,
	apiClient ports.APIClient,
	m mediator.Mediator,
	clock shared.Clock,
) *NegotiateContractHandler {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &NegotiateContractHandler{
		contractRepo: contractRepo,
		shipRepo:     shipRepo,
		playerRepo:   playerRepo,
		apiClient:    apiClient,
		mediator:     m,
		clock:        clock,
	}
}

func (h *NegotiateContractHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*NegotiateContractCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *NegotiateContractCommand")
	}

	token, err := auth.PlayerTokenFromContext(ctx)
	if err != nil {
		return nil, err
	}

	ship, err := h.shipRepo.FindBySymbol(ctx, cmd.ShipSymbol, cmd.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("negotiating ship not found: %w", err)
	}

	// Factions only talk to docked ships.
	stateChanged, err := ship.EnsureDocked()
	if err != nil {
		return nil, err
	}
	if stateChanged {
		if err := h.shipRepo.Dock(ctx, ship, cmd.PlayerID); err != nil {
			return nil, fmt.Errorf("failed to dock for negotiation: %w", err)
		}
	}

	result, err := h.apiClient.NegotiateContract(ctx, cmd.ShipSymbol, token)
	if err != nil {
		return nil, fmt.Errorf("failed to negotiate contract: %w", err)
	}

	if result.ExistingContractID != "" {
		return h.resumeExisting(ctx, cmd, result.ExistingContractID, token)
	}
	if result.Contract == nil {
		return nil, fmt.Errorf("negotiation returned no contract")
	}

	negotiated := contractFromData(result.Contract, cmd.PlayerID, h.clock)
	if err := h.contractRepo.Upsert(ctx, negotiated); err != nil {
		return nil, fmt.Errorf("failed to save contract: %w", err)
	}

	logging.LoggerFromContext(ctx).Log("INFO", "Contract negotiated", map[string]interface{}{
		"contract_id": negotiated.ContractID(),
		"faction":     negotiated.FactionSymbol(),
		"ship_symbol": cmd.ShipSymbol,
	})

	go h.recordNegotiation(ctx, cmd, ship.CurrentLocation().Symbol, negotiated)

	return &NegotiateContractResponse{Contract: negotiated, WasNegotiated: true}, nil
}

// resumeExisting fetches the contract the API named and persists it so the
// workflow picks it up where the last run left off.
func (h *NegotiateContractHandler) resumeExisting(
	ctx context.Context,
	cmd *NegotiateContractCommand,
	contractID, token string,
) (*NegotiateContractResponse, error) {
	data, err := h.apiClient.GetContract(ctx, contractID, token)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch existing contract %s: %w", contractID, err)
	}

	existing := contractFromData(data, cmd.PlayerID, h.clock)
	if err := h.contractRepo.Upsert(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to save contract: %w", err)
	}

	logging.LoggerFromContext(ctx).Log("INFO", "Resuming existing contract", map[string]interface{}{
		"contract_id": contractID,
		"ship_symbol": cmd.ShipSymbol,
	})

	return &NegotiateContractResponse{Contract: existing, WasNegotiated: false}, nil
}

// recordNegotiation leaves a zero-amount audit entry in the ledger. The
// negotiation already happened, so recording failures are logged, never
// propagated.
func (h *NegotiateContractHandler) recordNegotiation(
	ctx context.Context,
	cmd *NegotiateContractCommand,
	waypointSymbol string,
	negotiated *contract.Contract,
) {
	logger := logging.LoggerFromContext(ctx)

	agentSymbol := ""
	if p, err := h.playerRepo.FindByID(ctx, cmd.PlayerID); err == nil && p != nil {
		agentSymbol = p.AgentSymbol
	}

	goodSymbol := ""
	if deliveries := negotiated.Terms().Deliveries; len(deliveries) > 0 {
		goodSymbol = deliveries[0].TradeSymbol
	}

	recordCmd := &ledgerCommands.RecordTransactionCommand{
		PlayerID:        cmd.PlayerID.Value(),
		TransactionType: "CONTRACT_NEGOTIATION",
		GoodSymbol:      goodSymbol,
		WaypointSymbol:  waypointSymbol,
		ShipSymbol:      cmd.ShipSymbol,
		Description:     fmt.Sprintf("Negotiated contract %s with %s", negotiated.ContractID(), negotiated.FactionSymbol()),
		AgentSymbol:     agentSymbol,
	}

	if cmd.Context != nil && cmd.Context.IsValid() {
		recordCmd.ContainerID = cmd.Context.ContainerID
		recordCmd.Metadata = map[string]interface{}{
			"operation_type": cmd.Context.NormalizedOperationType(),
		}
	}

	if _, err := h.mediator.Send(context.Background(), recordCmd); err != nil {
		logger.Log("ERROR", "Failed to record contract negotiation in ledger", map[string]interface{}{
			"error":       err.Error(),
			"contract_id": negotiated.ContractID(),
			"player_id":   cmd.PlayerID.Value(),
		})
	}
}

// contractFromData hydrates a domain contract from the API payload. The API
// is authoritative for accepted and fulfilled state.
func contractFromData(data *contract.Data, playerID shared.PlayerID, clock shared.Clock) *contract.Contract {
	deliveries := make([]contract.Delivery, len(data.Deliveries))
	for i, d := range data.Deliveries {
		deliveries[i] = contract.Delivery{
			TradeSymbol:       d.TradeSymbol,
			DestinationSymbol: d.DestinationSymbol,
			UnitsRequired:     d.UnitsRequired,
			UnitsFulfilled:    d.UnitsFulfilled,
		}
	}

	terms := contract.Terms{
		Payment: contract.Payment{
			OnAccepted:  data.PaymentAccepted,
			OnFulfilled: data.PaymentFulfilled,
		},
		Deliveries:       deliveries,
		DeadlineToAccept: data.DeadlineToAccept,
		Deadline:         data.Deadline,
	}

	return contract.Reconstruct(
		data.ContractID,
		playerID,
		data.FactionSymbol,
		data.Type,
		terms,
		data.Accepted,
		data.Fulfilled,
		clock,
	)
}
