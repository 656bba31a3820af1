package queries

import (
	"context"
	"fmt"
	"time"

	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	"github.com/orbitalmachines/astrogator/internal/application/player"
	"github.com/orbitalmachines/astrogator/internal/domain/ledger"
)

// GetProfitLossQuery builds a profit & loss statement from the ledger.
// Nil dates mean all time.
type GetProfitLossQuery struct {
	PlayerID    *int
	AgentSymbol string
	StartDate   *time.Time
	EndDate     *time.Time
}

type GetProfitLossResponse struct {
	Period           string
	TotalRevenue     int
	TotalExpenses    int
	NetProfit        int
	RevenueBreakdown map[string]int
	ExpenseBreakdown map[string]int
}

type GetProfitLossHandler struct {
	transactionRepo ledger.TransactionRepository
	playerResolver  *player.Resolver
}

func NewGetProfitLossHandler(transactionRepo ledger.TransactionRepository, playerResolver *player.Resolver) *GetProfitLossHandler {
	return &GetProfitLossHandler{
		transactionRepo: transactionRepo,
		playerResolver:  playerResolver,
	}
}

func (h *GetProfitLossHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	query, ok := request.(*GetProfitLossQuery)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *GetProfitLossQuery")
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

	return calculateProfitLoss(query, transactions), nil
}

func calculateProfitLoss(query *GetProfitLossQuery, transactions []*ledger.Transaction) *GetProfitLossResponse {
	revenueBreakdown := make(map[string]int)
	expenseBreakdown := make(map[string]int)
	totalRevenue := 0
	totalExpenses := 0

	for _, tx := range transactions {
		category := tx.Category().String()
		amount := tx.Amount()

		if tx.IsIncome() {
			revenueBreakdown[category] += amount
			totalRevenue += amount
		} else {
			// Expenses are reported as positive amounts.
			expenseBreakdown[category] += -amount
			totalExpenses += -amount
		}
	}

	return &GetProfitLossResponse{
		Period:           formatPeriod(query.StartDate, query.EndDate),
		TotalRevenue:     totalRevenue,
		TotalExpenses:    totalExpenses,
		NetProfit:        totalRevenue - totalExpenses,
		RevenueBreakdown: revenueBreakdown,
		ExpenseBreakdown: expenseBreakdown,
	}
}

func formatPeriod(start, end *time.Time) string {
	switch {
	case start == nil && end == nil:
		return "all time"
	case start == nil:
		return fmt.Sprintf("until %s", end.Format("2006-01-02"))
	case end == nil:
		return fmt.Sprintf("since %s", start.Format("2006-01-02"))
	default:
		return fmt.Sprintf("%s to %s", start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
}
