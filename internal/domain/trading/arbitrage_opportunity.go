package trading

import (
	"errors"
	"fmt"

	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// ArbitrageOpportunity is an immutable buy-haul-sell candidate. Prices are
// quoted from the ship's side: buyPrice is what we pay at the buy market
// (its ask), sellPrice is what we receive at the sell market (its bid).
type ArbitrageOpportunity struct {
	good            string
	buyMarket       *shared.Waypoint
	sellMarket      *shared.Waypoint
	buyPrice        int
	sellPrice       int
	profitPerUnit   int
	profitMargin    float64
	distance        float64
	estimatedProfit int
	cargoCapacity   int
	buySupply       string
	sellActivity    string
	score           float64
	viability       bool
}

// NewArbitrageOpportunity validates the pair and derives profit, margin and
// viability. minMargin is a percentage (10.0 means 10%).
func NewArbitrageOpportunity(
	good string,
	buyMarket, sellMarket *shared.Waypoint,
	buyPrice, sellPrice, cargoCapacity int,
	buySupply, sellActivity string,
	minMargin float64,
) (*ArbitrageOpportunity, error) {
	if good == "" {
		return nil, errors.New("good symbol required")
	}
	if buyMarket == nil {
		return nil, errors.New("buy market required")
	}
	if sellMarket == nil {
		return nil, errors.New("sell market required")
	}
	if buyPrice <= 0 {
		return nil, errors.New("buy price must be positive")
	}
	if sellPrice <= 0 {
		return nil, errors.New("sell price must be positive")
	}
	if sellPrice <= buyPrice {
		return nil, fmt.Errorf("sell price (%d) must exceed buy price (%d)", sellPrice, buyPrice)
	}
	if cargoCapacity <= 0 {
		return nil, ErrInvalidCargoCapacity
	}
	if !validSupply[buySupply] {
		return nil, fmt.Errorf("invalid supply value: %s", buySupply)
	}
	if !validActivity[sellActivity] {
		return nil, fmt.Errorf("invalid activity value: %s", sellActivity)
	}

	profitPerUnit := sellPrice - buyPrice
	profitMargin := (float64(profitPerUnit) / float64(buyPrice)) * 100.0

	return &ArbitrageOpportunity{
		good:            good,
		buyMarket:       buyMarket,
		sellMarket:      sellMarket,
		buyPrice:        buyPrice,
		sellPrice:       sellPrice,
		profitPerUnit:   profitPerUnit,
		profitMargin:    profitMargin,
		distance:        buyMarket.DistanceTo(sellMarket),
		estimatedProfit: profitPerUnit * cargoCapacity,
		cargoCapacity:   cargoCapacity,
		buySupply:       buySupply,
		sellActivity:    sellActivity,
		viability:       profitMargin >= minMargin,
	}, nil
}

func (o *ArbitrageOpportunity) Good() string                 { return o.good }
func (o *ArbitrageOpportunity) BuyMarket() *shared.Waypoint  { return o.buyMarket }
func (o *ArbitrageOpportunity) SellMarket() *shared.Waypoint { return o.sellMarket }
func (o *ArbitrageOpportunity) BuyPrice() int                { return o.buyPrice }
func (o *ArbitrageOpportunity) SellPrice() int               { return o.sellPrice }
func (o *ArbitrageOpportunity) ProfitPerUnit() int           { return o.profitPerUnit }
func (o *ArbitrageOpportunity) ProfitMargin() float64        { return o.profitMargin }
func (o *ArbitrageOpportunity) Distance() float64            { return o.distance }
func (o *ArbitrageOpportunity) EstimatedProfit() int         { return o.estimatedProfit }
func (o *ArbitrageOpportunity) CargoCapacity() int           { return o.cargoCapacity }
func (o *ArbitrageOpportunity) BuySupply() string            { return o.buySupply }
func (o *ArbitrageOpportunity) SellActivity() string         { return o.sellActivity }
func (o *ArbitrageOpportunity) Score() float64               { return o.score }
func (o *ArbitrageOpportunity) IsViable() bool               { return o.viability }

// SetScore is called by the analyzer once after construction.
func (o *ArbitrageOpportunity) SetScore(score float64) {
	o.score = score
}

// EstimatedNetProfit deducts an estimated fuel spend from the gross profit.
func (o *ArbitrageOpportunity) EstimatedNetProfit(fuelCost int) int {
	return o.estimatedProfit - fuelCost
}

var validSupply = map[string]bool{
	"SCARCE":   true,
	"LIMITED":  true,
	"MODERATE": true,
	"HIGH":     true,
	"ABUNDANT": true,
}

var validActivity = map[string]bool{
	"WEAK":       true,
	"GROWING":    true,
	"STRONG":     true,
	"RESTRICTED": true,
}

func (o *ArbitrageOpportunity) String() string {
	return fmt.Sprintf("ArbitrageOpportunity{good=%s, margin=%.1f%%, profit=%d, score=%.0f}",
		o.good, o.profitMargin, o.estimatedProfit, o.score)
}
