package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/orbitalmachines/astrogator/internal/adapters/metrics"
	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	"github.com/orbitalmachines/astrogator/internal/domain/ledger"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// RecordTransactionCommand appends one entry to the financial ledger.
// Amount is signed: positive for income, negative for spend. BalanceBefore
// and BalanceAfter are the exact agent balances around the API call; the
// entry is rejected when they disagree with Amount.
//
// Handlers dispatch this asynchronously after the game API has already
// committed the trade, so a recording failure is logged, never propagated.
type RecordTransactionCommand struct {
	PlayerID        int    `validate:"required"`
	TransactionType string `validate:"required"`
	Amount          int
	Units           int
	PricePerUnit    int
	GoodSymbol      string
	WaypointSymbol  string
	ShipSymbol      string
	BalanceBefore   int
	BalanceAfter    int
	Description     string
	ContainerID     string
	Metadata        map[string]interface{}

	// AgentSymbol labels the transaction metrics; it is not persisted.
	AgentSymbol string

	// Timestamp overrides the clock when the API reported its own time.
	Timestamp *time.Time
}

type RecordTransactionResponse struct {
	TransactionID string
	Timestamp     time.Time
}

type RecordTransactionHandler struct {
	transactionRepo ledger.TransactionRepository
	clock           shared.Clock
}

func NewRecordTransactionHandler(transactionRepo ledger.TransactionRepository, clock shared.Clock) *RecordTransactionHandler {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &RecordTransactionHandler{
		transactionRepo: transactionRepo,
		clock:           clock,
	}
}

func (h *RecordTransactionHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*RecordTransactionCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *RecordTransactionCommand")
	}

	transactionType, err := ledger.ParseTransactionType(cmd.TransactionType)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction type: %w", err)
	}

	playerID, err := shared.NewPlayerID(cmd.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("invalid player ID: %w", err)
	}

	timestamp := h.clock.Now()
	if cmd.Timestamp != nil {
		timestamp = *cmd.Timestamp
	}

	transaction, err := ledger.NewTransaction(ledger.NewTransactionParams{
		PlayerID:        playerID,
		Timestamp:       timestamp,
		TransactionType: transactionType,
		Amount:          cmd.Amount,
		Units:           cmd.Units,
		PricePerUnit:    cmd.PricePerUnit,
		GoodSymbol:      cmd.GoodSymbol,
		WaypointSymbol:  cmd.WaypointSymbol,
		ShipSymbol:      cmd.ShipSymbol,
		BalanceBefore:   cmd.BalanceBefore,
		BalanceAfter:    cmd.BalanceAfter,
		Description:     cmd.Description,
		ContainerID:     cmd.ContainerID,
		Metadata:        cmd.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	if err := h.transactionRepo.Create(ctx, transaction); err != nil {
		return nil, fmt.Errorf("failed to persist transaction: %w", err)
	}

	agentSymbol := cmd.AgentSymbol
	if agentSymbol == "" {
		agentSymbol = "UNKNOWN"
	}

	metrics.RecordTransaction(
		cmd.PlayerID,
		agentSymbol,
		cmd.TransactionType,
		transaction.Category().String(),
		cmd.Amount,
		cmd.BalanceAfter,
	)

	return &RecordTransactionResponse{
		TransactionID: transaction.ID().String(),
		Timestamp:     transaction.Timestamp(),
	}, nil
}
