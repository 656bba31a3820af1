package contract

import "fmt"

// evaluateProfitability scores a contract:
//
//	total_payment  = on_accepted + on_fulfilled
//	purchase_cost  = sum(ask * units still owed) over deliveries
//	trips_required = ceil(total_units / cargo_capacity)
//	net_profit     = total_payment - purchase_cost - trips * fuel_cost_per_trip
//
// A contract is acceptable when net_profit >= MinProfitThreshold.
func evaluateProfitability(c *Contract, ctx ProfitabilityContext) (*ProfitabilityEvaluation, error) {
	totalPayment := c.terms.Payment.OnAccepted + c.terms.Payment.OnFulfilled

	purchaseCost := 0
	totalUnits := 0
	for _, delivery := range c.terms.Deliveries {
		unitsNeeded := delivery.UnitsRequired - delivery.UnitsFulfilled
		if unitsNeeded == 0 {
			continue
		}

		askPrice, ok := ctx.MarketPrices[delivery.TradeSymbol]
		if !ok {
			return nil, fmt.Errorf("missing market price for %s", delivery.TradeSymbol)
		}

		purchaseCost += askPrice * unitsNeeded
		totalUnits += unitsNeeded
	}

	tripsRequired := 0
	if ctx.CargoCapacity > 0 && totalUnits > 0 {
		tripsRequired = (totalUnits + ctx.CargoCapacity - 1) / ctx.CargoCapacity
	}

	fuelCost := tripsRequired * ctx.FuelCostPerTrip
	netProfit := totalPayment - (purchaseCost + fuelCost)

	reason := "Profitable"
	if netProfit <= 0 {
		if netProfit >= MinProfitThreshold {
			reason = "Acceptable small loss (avoids opportunity cost)"
		} else {
			reason = "Loss exceeds acceptable threshold"
		}
	}

	return &ProfitabilityEvaluation{
		IsProfitable:           netProfit >= MinProfitThreshold,
		NetProfit:              netProfit,
		TotalPayment:           totalPayment,
		PurchaseCost:           purchaseCost,
		FuelCost:               fuelCost,
		TripsRequired:          tripsRequired,
		CheapestMarketWaypoint: ctx.CheapestMarketWaypoint,
		Reason:                 reason,
	}, nil
}
