package ports

import (
	"context"

	"github.com/orbitalmachines/astrogator/internal/domain/contract"
	"github.com/orbitalmachines/astrogator/internal/domain/market"
	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/player"
	"github.com/orbitalmachines/astrogator/internal/domain/system"
)

// APIClient is the domain's view of the remote game API. The gateway
// implementation owns rate limiting, retries and the circuit breaker; handlers
// and repositories only see these operations and domain errors.
//
// Every call takes the player's bearer token explicitly. The daemon serves
// many players, so the client itself is stateless with respect to identity.
type APIClient interface {
	// Agent operations
	RegisterAgent(ctx context.Context, agentSymbol, faction string) (*RegistrationResult, error)
	GetAgent(ctx context.Context, token string) (*player.AgentData, error)

	// Ship operations
	GetShip(ctx context.Context, symbol, token string) (*navigation.ShipData, error)
	ListShips(ctx context.Context, token string) ([]*navigation.ShipData, error)
	NavigateShip(ctx context.Context, symbol, destination, token string) (*navigation.NavigationResult, error)
	OrbitShip(ctx context.Context, symbol, token string) error
	DockShip(ctx context.Context, symbol, token string) error
	RefuelShip(ctx context.Context, symbol, token string, units *int) (*navigation.RefuelResult, error)
	SetFlightMode(ctx context.Context, symbol, flightMode, token string) error

	// Cargo operations
	PurchaseCargo(ctx context.Context, shipSymbol, goodSymbol string, units int, token string) (*PurchaseResult, error)
	SellCargo(ctx context.Context, shipSymbol, goodSymbol string, units int, token string) (*SellResult, error)
	JettisonCargo(ctx context.Context, shipSymbol, goodSymbol string, units int, token string) error

	// Contract operations
	NegotiateContract(ctx context.Context, shipSymbol, token string) (*contract.NegotiationResult, error)
	GetContract(ctx context.Context, contractID, token string) (*contract.Data, error)
	AcceptContract(ctx context.Context, contractID, token string) (*ContractAgreementResult, error)
	DeliverContract(ctx context.Context, contractID, shipSymbol, tradeSymbol string, units int, token string) (*ContractDeliveryResult, error)
	FulfillContract(ctx context.Context, contractID, token string) (*ContractAgreementResult, error)

	// Market operations
	GetMarket(ctx context.Context, systemSymbol, waypointSymbol, token string) (*market.Data, error)

	// Shipyard operations
	GetShipyard(ctx context.Context, systemSymbol, waypointSymbol, token string) (*ShipyardData, error)
	PurchaseShip(ctx context.Context, shipType, waypointSymbol, token string) (*ShipPurchaseResult, error)

	// Waypoint operations
	ListWaypoints(ctx context.Context, systemSymbol, token string, page, limit int) (*system.WaypointsListResponse, error)
}

// RegistrationResult carries the one-time agent token issued on registration.
type RegistrationResult struct {
	Token string
	Agent *player.AgentData
}

// Cargo DTOs. AgentCredits is the balance after the trade, straight from the
// API response, so ledger entries can record exact before/after balances.
type PurchaseResult struct {
	GoodSymbol   string
	UnitsAdded   int
	PricePerUnit int
	TotalCost    int
	AgentCredits int
	Cargo        *navigation.CargoData
}

type SellResult struct {
	GoodSymbol   string
	UnitsSold    int
	PricePerUnit int
	TotalRevenue int
	AgentCredits int
	Cargo        *navigation.CargoData
}

// ContractAgreementResult is returned by accept and fulfill, both of which
// pay out and move the agent balance.
type ContractAgreementResult struct {
	Contract     *contract.Data
	AgentCredits int
}

// ContractDeliveryResult reports a delivery; Cargo is the ship's hold after
// the drop-off.
type ContractDeliveryResult struct {
	Contract *contract.Data
	Cargo    *navigation.CargoData
}

// Shipyard DTOs
type ShipyardData struct {
	Symbol          string
	ShipTypes       []string
	Listings        []ShipListingData
	ModificationFee int
}

type ShipListingData struct {
	Type          string
	Name          string
	Description   string
	PurchasePrice int
}

type ShipPurchaseResult struct {
	Agent       *player.AgentData
	Ship        *navigation.ShipData
	Transaction *ShipPurchaseTransaction
}

type ShipPurchaseTransaction struct {
	WaypointSymbol string
	ShipSymbol     string
	ShipType       string
	Price          int
	AgentSymbol    string
	Timestamp      string
}
