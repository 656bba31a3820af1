package contract

import (
	"context"

	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// Repository persists contracts so workflows can resume across restarts.
type Repository interface {
	FindByID(ctx context.Context, contractID string, playerID shared.PlayerID) (*Contract, error)
	FindActive(ctx context.Context, playerID shared.PlayerID) ([]*Contract, error)
	Upsert(ctx context.Context, c *Contract) error
}

// Data is the raw contract payload from the API.
type Data struct {
	ContractID       string
	FactionSymbol    string
	Type             string
	Accepted         bool
	Fulfilled        bool
	DeadlineToAccept string
	Deadline         string
	PaymentAccepted  int
	PaymentFulfilled int
	Deliveries       []DeliveryData
}

type DeliveryData struct {
	TradeSymbol       string
	DestinationSymbol string
	UnitsRequired     int
	UnitsFulfilled    int
}

// NegotiationResult reports a negotiate call. When the agent already holds
// an unfulfilled contract, the API rejects the negotiation and returns that
// contract's id instead.
type NegotiationResult struct {
	Contract           *Data
	ExistingContractID string
}
