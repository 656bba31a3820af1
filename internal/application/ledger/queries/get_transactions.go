package queries

import (
	"context"
	"fmt"
	"time"

	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	"github.com/orbitalmachines/astrogator/internal/application/player"
	"github.com/orbitalmachines/astrogator/internal/domain/ledger"
)

// GetTransactionsQuery pages through a player's ledger, newest first by
// default. Nil filters match everything.
type GetTransactionsQuery struct {
	PlayerID    *int
	AgentSymbol string

	StartDate       *time.Time
	EndDate         *time.Time
	Category        *string
	TransactionType *string
	ContainerID     *string
	ShipSymbol      *string

	Limit   int
	Offset  int
	OrderBy string
}

type GetTransactionsResponse struct {
	Transactions []*TransactionDTO
	Total        int
}

// TransactionDTO is the wire shape of one ledger entry.
type TransactionDTO struct {
	ID             string                 `json:"id"`
	PlayerID       int                    `json:"player_id"`
	Timestamp      time.Time              `json:"timestamp"`
	Type           string                 `json:"type"`
	Category       string                 `json:"category"`
	Amount         int                    `json:"amount"`
	Units          int                    `json:"units,omitempty"`
	PricePerUnit   int                    `json:"price_per_unit,omitempty"`
	GoodSymbol     string                 `json:"good_symbol,omitempty"`
	WaypointSymbol string                 `json:"waypoint_symbol,omitempty"`
	ShipSymbol     string                 `json:"ship_symbol,omitempty"`
	BalanceBefore  int                    `json:"balance_before"`
	BalanceAfter   int                    `json:"balance_after"`
	Description    string                 `json:"description,omitempty"`
	ContainerID    string                 `json:"container_id,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

type GetTransactionsHandler struct {
	transactionRepo ledger.TransactionRepository
	playerResolver  *player.Resolver
}

func NewGetTransactionsHandler(transactionRepo ledger.TransactionRepository, playerResolver *player.Resolver) *GetTransactionsHandler {
	return &GetTransactionsHandler{
		transactionRepo: transactionRepo,
		playerResolver:  playerResolver,
	}
}

func (h *GetTransactionsHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	query, ok := request.(*GetTransactionsQuery)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *GetTransactionsQuery")
	}

	playerID, err := h.playerResolver.ResolvePlayerID(ctx, query.PlayerID, query.AgentSymbol)
	if err != nil {
		return nil, err
	}

	opts, err := buildQueryOptions(query)
	if err != nil {
		return nil, err
	}

	transactions, err := h.transactionRepo.FindByPlayer(ctx, playerID, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}

	total, err := h.transactionRepo.CountByPlayer(ctx, playerID, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	dtos := make([]*TransactionDTO, len(transactions))
	for i, tx := range transactions {
		dtos[i] = toTransactionDTO(tx)
	}

	return &GetTransactionsResponse{
		Transactions: dtos,
		Total:        total,
	}, nil
}

func buildQueryOptions(query *GetTransactionsQuery) (ledger.QueryOptions, error) {
	opts := ledger.DefaultQueryOptions()

	opts.StartDate = query.StartDate
	opts.EndDate = query.EndDate
	opts.ContainerID = query.ContainerID
	opts.ShipSymbol = query.ShipSymbol

	if query.Category != nil {
		category, err := ledger.ParseCategory(*query.Category)
		if err != nil {
			return opts, fmt.Errorf("invalid category: %w", err)
		}
		opts.Category = &category
	}

	if query.TransactionType != nil {
		txType, err := ledger.ParseTransactionType(*query.TransactionType)
		if err != nil {
			return opts, fmt.Errorf("invalid transaction type: %w", err)
		}
		opts.TransactionType = &txType
	}

	if query.Limit > 0 {
		opts.Limit = query.Limit
	}
	opts.Offset = query.Offset

	if query.OrderBy != "" {
		opts.OrderBy = query.OrderBy
	}

	return opts, nil
}

func toTransactionDTO(tx *ledger.Transaction) *TransactionDTO {
	return &TransactionDTO{
		ID:             tx.ID().String(),
		PlayerID:       tx.PlayerID().Value(),
		Timestamp:      tx.Timestamp(),
		Type:           tx.TransactionType().String(),
		Category:       tx.Category().String(),
		Amount:         tx.Amount(),
		Units:          tx.Units(),
		PricePerUnit:   tx.PricePerUnit(),
		GoodSymbol:     tx.GoodSymbol(),
		WaypointSymbol: tx.WaypointSymbol(),
		ShipSymbol:     tx.ShipSymbol(),
		BalanceBefore:  tx.BalanceBefore(),
		BalanceAfter:   tx.BalanceAfter(),
		Description:    tx.Description(),
		ContainerID:    tx.ContainerID(),
		Metadata:       tx.Metadata(),
	}
}
