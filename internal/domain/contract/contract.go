package contract

import (
	"fmt"
	"time"

	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

type Payment struct {
	OnAccepted  int
	OnFulfilled int
}

type Delivery struct {
	TradeSymbol       string
	DestinationSymbol string
	UnitsRequired     int
	UnitsFulfilled    int
}

type Terms struct {
	Payment          Payment
	Deliveries       []Delivery
	DeadlineToAccept string
	Deadline         string
}

// Contract is a procurement agreement with a faction. The batch workflow
// drives it through negotiate, accept, deliver, fulfill.
type Contract struct {
	contractID    string
	playerID      shared.PlayerID
	factionSymbol string
	contractType  string
	terms         Terms
	accepted      bool
	fulfilled     bool
	clock         shared.Clock
}

// NewContract validates and builds a contract.
func NewContract(contractID string, playerID shared.PlayerID, factionSymbol, contractType string, terms Terms, clock shared.Clock) (*Contract, error) {
	if contractID == "" {
		return nil, fmt.Errorf("contract ID cannot be empty")
	}
	if playerID.IsZero() {
		return nil, fmt.Errorf("invalid player ID")
	}
	if factionSymbol == "" {
		return nil, fmt.Errorf("faction symbol cannot be empty")
	}
	if len(terms.Deliveries) == 0 {
		return nil, fmt.Errorf("contract must have at least one delivery")
	}

	if clock == nil {
		clock = shared.NewRealClock()
	}

	return &Contract{
		contractID:    contractID,
		playerID:      playerID,
		factionSymbol: factionSymbol,
		contractType:  contractType,
		terms:         terms,
		clock:         clock,
	}, nil
}

// Reconstruct hydrates a contract from persistence.
func Reconstruct(contractID string, playerID shared.PlayerID, factionSymbol, contractType string, terms Terms, accepted, fulfilled bool, clock shared.Clock) *Contract {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &Contract{
		contractID:    contractID,
		playerID:      playerID,
		factionSymbol: factionSymbol,
		contractType:  contractType,
		terms:         terms,
		accepted:      accepted,
		fulfilled:     fulfilled,
		clock:         clock,
	}
}

func (c *Contract) ContractID() string        { return c.contractID }
func (c *Contract) PlayerID() shared.PlayerID { return c.playerID }
func (c *Contract) FactionSymbol() string     { return c.factionSymbol }
func (c *Contract) Type() string              { return c.contractType }
func (c *Contract) Terms() Terms              { return c.terms }
func (c *Contract) Accepted() bool            { return c.accepted }
func (c *Contract) Fulfilled() bool           { return c.fulfilled }

func (c *Contract) Accept() error {
	if c.fulfilled {
		return fmt.Errorf("contract already fulfilled")
	}
	if c.accepted {
		return fmt.Errorf("contract already accepted")
	}
	c.accepted = true
	return nil
}

// DeliverCargo records units delivered against one of the contract's goods.
func (c *Contract) DeliverCargo(tradeSymbol string, units int) error {
	if !c.accepted {
		return fmt.Errorf("contract not accepted")
	}

	var delivery *Delivery
	for i := range c.terms.Deliveries {
		if c.terms.Deliveries[i].TradeSymbol == tradeSymbol {
			delivery = &c.terms.Deliveries[i]
			break
		}
	}

	if delivery == nil {
		return fmt.Errorf("trade symbol not in contract")
	}

	if delivery.UnitsFulfilled+units > delivery.UnitsRequired {
		return fmt.Errorf("units exceed required")
	}

	delivery.UnitsFulfilled += units
	return nil
}

// CanFulfill reports whether every delivery line is complete.
func (c *Contract) CanFulfill() bool {
	for _, delivery := range c.terms.Deliveries {
		if delivery.UnitsFulfilled < delivery.UnitsRequired {
			return false
		}
	}
	return true
}

func (c *Contract) Fulfill() error {
	if !c.accepted {
		return fmt.Errorf("contract not accepted")
	}
	if !c.CanFulfill() {
		return fmt.Errorf("deliveries not complete")
	}
	c.fulfilled = true
	return nil
}

// SyncDeliveryProgress overwrites a delivery line's fulfilled count with the
// authoritative value the API reported. Local DeliverCargo bookkeeping is
// optimistic; the API wins.
func (c *Contract) SyncDeliveryProgress(tradeSymbol string, unitsFulfilled int) {
	for i := range c.terms.Deliveries {
		if c.terms.Deliveries[i].TradeSymbol == tradeSymbol {
			c.terms.Deliveries[i].UnitsFulfilled = unitsFulfilled
			return
		}
	}
}

// RemainingUnits returns units still owed for a trade symbol.
func (c *Contract) RemainingUnits(tradeSymbol string) int {
	for _, delivery := range c.terms.Deliveries {
		if delivery.TradeSymbol == tradeSymbol {
			return delivery.UnitsRequired - delivery.UnitsFulfilled
		}
	}
	return 0
}

func (c *Contract) IsExpired() bool {
	deadline, err := time.Parse(time.RFC3339, c.terms.Deadline)
	if err != nil {
		return false
	}
	return c.clock.Now().UTC().After(deadline)
}

// ProfitabilityContext carries the market and ship inputs for evaluating a
// contract before accepting it.
type ProfitabilityContext struct {
	// MarketPrices maps trade symbol to the ask at the cheapest market.
	MarketPrices map[string]int

	CargoCapacity int

	// FuelCostPerTrip is the estimated fuel spend for one delivery round trip.
	FuelCostPerTrip int

	CheapestMarketWaypoint string
}

type ProfitabilityEvaluation struct {
	IsProfitable           bool
	NetProfit              int
	TotalPayment           int
	PurchaseCost           int
	FuelCost               int
	TripsRequired          int
	CheapestMarketWaypoint string
	Reason                 string
}

// MinProfitThreshold is the floor for accepting a contract. Small losses are
// tolerated; an idle hauler costs more than 5000 credits of opportunity.
const MinProfitThreshold = -5000

// EvaluateProfitability scores the contract against current market prices.
func (c *Contract) EvaluateProfitability(ctx ProfitabilityContext) (*ProfitabilityEvaluation, error) {
	return evaluateProfitability(c, ctx)
}
