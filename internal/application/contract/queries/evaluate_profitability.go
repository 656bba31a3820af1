package queries

import (
	"context"
	"fmt"

	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	"github.com/orbitalmachines/astrogator/internal/domain/contract"
	"github.com/orbitalmachines/astrogator/internal/domain/market"
	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// EvaluateContractProfitabilityQuery scores a contract against the stored
// market snapshots: payment minus purchase cost at the cheapest market minus
// estimated fuel for the trips the hauler's cargo hold requires.
//
// Missing price data is not an error. Scouts may simply not have covered the
// system yet, so the result comes back unprofitable with a reason and the
// caller polls again later.
type EvaluateContractProfitabilityQuery struct {
	Contract        *contract.Contract
	ShipSymbol      string `validate:"required"`
	PlayerID        shared.PlayerID
	FuelCostPerTrip int
}

// ProfitabilityResult mirrors the domain evaluation plus the waypoint of the
// cheapest market, which the delivery loop uses as its purchase stop.
type ProfitabilityResult struct {
	IsProfitable           bool
	NetProfit              int
	TotalPayment           int
	PurchaseCost           int
	FuelCost               int
	TripsRequired          int
	CheapestMarketWaypoint string
	Reason                 string
}

type EvaluateContractProfitabilityHandler struct {
	shipRepo   navigation.ShipRepository
	marketRepo market.Repository
}

func NewEvaluateContractProfitabilityHandler(
	shipRepo navigation.ShipRepository,
	marketRepo market.Repository,
) *EvaluateContractProfitabilityHandler {
	return &EvaluateContractProfitabilityHandler{
		shipRepo:   shipRepo,
		marketRepo: marketRepo,
	}
}

func (h *EvaluateContractProfitabilityHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	query, ok := request.(*EvaluateContractProfitabilityQuery)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *EvaluateContractProfitabilityQuery")
	}
	if query.Contract == nil {
		return nil, fmt.Errorf("contract is required")
	}

	ship, err := h.shipRepo.FindBySymbol(ctx, query.ShipSymbol, query.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("hauling ship not found: %w", err)
	}

	marketPrices, cheapestWaypoint, missing, err := h.collectMarketPrices(ctx, query)
	if err != nil {
		return nil, err
	}
	if missing != "" {
		return &ProfitabilityResult{
			IsProfitable: false,
			Reason:       missing,
		}, nil
	}

	evaluation, err := query.Contract.EvaluateProfitability(contract.ProfitabilityContext{
		MarketPrices:           marketPrices,
		CargoCapacity:          ship.Cargo().Capacity(),
		FuelCostPerTrip:        query.FuelCostPerTrip,
		CheapestMarketWaypoint: cheapestWaypoint,
	})
	if err != nil {
		return nil, fmt.Errorf("profitability evaluation failed: %w", err)
	}

	return &ProfitabilityResult{
		IsProfitable:           evaluation.IsProfitable,
		NetProfit:              evaluation.NetProfit,
		TotalPayment:           evaluation.TotalPayment,
		PurchaseCost:           evaluation.PurchaseCost,
		FuelCost:               evaluation.FuelCost,
		TripsRequired:          evaluation.TripsRequired,
		CheapestMarketWaypoint: evaluation.CheapestMarketWaypoint,
		Reason:                 evaluation.Reason,
	}, nil
}

// collectMarketPrices looks up the cheapest ask for every delivery line still
// owing units. The third return names the first good with no market data, or
// "" when every line priced.
func (h *EvaluateContractProfitabilityHandler) collectMarketPrices(
	ctx context.Context,
	query *EvaluateContractProfitabilityQuery,
) (map[string]int, string, string, error) {
	marketPrices := make(map[string]int)
	var cheapestWaypoint string

	for _, delivery := range query.Contract.Terms().Deliveries {
		if delivery.UnitsRequired-delivery.UnitsFulfilled == 0 {
			continue
		}

		systemSymbol := shared.ExtractSystemSymbol(delivery.DestinationSymbol)
		cheapest, err := h.marketRepo.FindCheapestSelling(ctx, delivery.TradeSymbol, systemSymbol, query.PlayerID)
		if err != nil {
			return nil, "", "", fmt.Errorf("failed to find market for %s: %w", delivery.TradeSymbol, err)
		}
		if cheapest == nil {
			return nil, "", fmt.Sprintf("no market data for %s in system %s", delivery.TradeSymbol, systemSymbol), nil
		}

		marketPrices[delivery.TradeSymbol] = cheapest.SellPrice
		if cheapestWaypoint == "" {
			cheapestWaypoint = cheapest.WaypointSymbol
		}
	}

	return marketPrices, cheapestWaypoint, "", nil
}
