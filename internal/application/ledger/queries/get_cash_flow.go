package queries

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	"github.com/orbitalmachines/astrogator/internal/application/player"
	"github.com/orbitalmachines/astrogator/internal/domain/ledger"
)

// GetCashFlowQuery builds a per-category cash flow statement. Only
// category grouping is implemented; day/week buckets would need the
// repository to aggregate server-side first.
type GetCashFlowQuery struct {
	PlayerID    *int
	AgentSymbol string
	StartDate   *time.Time
	EndDate     *time.Time
	GroupBy     string
}

type GetCashFlowResponse struct {
	Period     string
	Categories []*CategoryCashFlow
}

type CategoryCashFlow struct {
	Category     string
	TotalInflow  int
	TotalOutflow int
	NetFlow      int
	Transactions int
}

type GetCashFlowHandler struct {
	transactionRepo ledger.TransactionRepository
	playerResolver  *player.Resolver
}

func NewGetCashFlowHandler(transactionRepo ledger.TransactionRepository, playerResolver *player.Resolver) *GetCashFlowHandler {
	return &GetCashFlowHandler{
		transactionRepo: transactionRepo,
		playerResolver:  playerResolver,
	}
}

func (h *GetCashFlowHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	query, ok := request.(*GetCashFlowQuery)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *GetCashFlowQuery")
	}

	if query.GroupBy != "" && query.GroupBy != "category" {
		return nil, fmt.Errorf("only 'category' grouping is supported")
	}

	playerID, err := h.playerResolver.ResolvePlayerID(ctx, query.PlayerID, query.AgentSymbol)
	if err != nil {
		return nil, err
	}

	opts := ledger.QueryOptions{
		StartDate: query.StartDate,
		EndDate:   query.EndDate,
	}

	transactions, err := h.transactionRepo.FindByPlayer(ctx, playerID, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}

	return &GetCashFlowResponse{
		Period:     formatPeriod(query.StartDate, query.EndDate),
		Categories: calculateCashFlow(transactions),
	}, nil
}

func calculateCashFlow(transactions []*ledger.Transaction) []*CategoryCashFlow {
	byCategory := make(map[string]*CategoryCashFlow)

	for _, tx := range transactions {
		category := tx.Category().String()
		flow, exists := byCategory[category]
		if !exists {
			flow = &CategoryCashFlow{Category: category}
			byCategory[category] = flow
		}

		flow.Transactions++
		if amount := tx.Amount(); amount > 0 {
			flow.TotalInflow += amount
		} else {
			flow.TotalOutflow += -amount
		}
		flow.NetFlow = flow.TotalInflow - flow.TotalOutflow
	}

	categories := make([]*CategoryCashFlow, 0, len(byCategory))
	for _, flow := range byCategory {
		categories = append(categories, flow)
	}
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].Category < categories[j].Category
	})

	return categories
}
