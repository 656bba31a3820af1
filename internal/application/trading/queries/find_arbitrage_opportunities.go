package queries

import (
	"context"
	"errors"
	"fmt"

	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	"github.com/orbitalmachines/astrogator/internal/application/player"
	"github.com/orbitalmachines/astrogator/internal/domain/trading"
)

const (
	defaultCargoCapacity = 40
	defaultMinMargin     = 5.0
	defaultLimit         = 10
)

// FindArbitrageOpportunitiesQuery lists the best scored buy-haul-sell pairs
// in a system, from stored market data. CargoCapacity sizes the profit
// estimate; zero values fall back to defaults.
type FindArbitrageOpportunitiesQuery struct {
	PlayerID      *int
	AgentSymbol   string
	SystemSymbol  string `validate:"required"`
	CargoCapacity int
	MinMargin     float64
	Limit         int
}

type FindArbitrageOpportunitiesResponse struct {
	Opportunities []*OpportunityDTO
}

// OpportunityDTO is the wire shape of one opportunity.
type OpportunityDTO struct {
	Good            string  `json:"good"`
	BuyMarket       string  `json:"buy_market"`
	SellMarket      string  `json:"sell_market"`
	BuyPrice        int     `json:"buy_price"`
	SellPrice       int     `json:"sell_price"`
	ProfitPerUnit   int     `json:"profit_per_unit"`
	ProfitMargin    float64 `json:"profit_margin"`
	EstimatedProfit int     `json:"estimated_profit"`
	Distance        float64 `json:"distance"`
	Score           float64 `json:"score"`
}

type FindArbitrageOpportunitiesHandler struct {
	finder         trading.OpportunityFinder
	playerResolver *player.Resolver
}

func NewFindArbitrageOpportunitiesHandler(
	finder trading.OpportunityFinder,
	playerResolver *player.Resolver,
) *FindArbitrageOpportunitiesHandler {
	return &FindArbitrageOpportunitiesHandler{
		finder:         finder,
		playerResolver: playerResolver,
	}
}

func (h *FindArbitrageOpportunitiesHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	query, ok := request.(*FindArbitrageOpportunitiesQuery)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *FindArbitrageOpportunitiesQuery")
	}

	playerID, err := h.playerResolver.ResolvePlayerID(ctx, query.PlayerID, query.AgentSymbol)
	if err != nil {
		return nil, err
	}

	cargoCapacity := query.CargoCapacity
	if cargoCapacity <= 0 {
		cargoCapacity = defaultCargoCapacity
	}
	minMargin := query.MinMargin
	if minMargin <= 0 {
		minMargin = defaultMinMargin
	}
	limit := query.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	opportunities, err := h.finder.FindOpportunities(ctx, query.SystemSymbol, playerID, cargoCapacity, minMargin, limit)
	if err != nil {
		// An empty result is an answer, not a failure.
		if errors.Is(err, trading.ErrNoOpportunitiesFound) {
			return &FindArbitrageOpportunitiesResponse{Opportunities: []*OpportunityDTO{}}, nil
		}
		return nil, err
	}

	dtos := make([]*OpportunityDTO, 0, len(opportunities))
	for _, opp := range opportunities {
		dtos = append(dtos, &OpportunityDTO{
			Good:            opp.Good(),
			BuyMarket:       opp.BuyMarket().Symbol,
			SellMarket:      opp.SellMarket().Symbol,
			BuyPrice:        opp.BuyPrice(),
			SellPrice:       opp.SellPrice(),
			ProfitPerUnit:   opp.ProfitPerUnit(),
			ProfitMargin:    opp.ProfitMargin(),
			EstimatedProfit: opp.EstimatedProfit(),
			Distance:        opp.Distance(),
			Score:           opp.Score(),
		})
	}

	return &FindArbitrageOpportunitiesResponse{Opportunities: dtos}, nil
}
