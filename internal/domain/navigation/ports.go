package navigation

import (
	"context"

	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// ShipRepository abstracts ship reads (live from the API) and ship commands.
// Implementations route every call through the API gateway.
type ShipRepository interface {
	// FindBySymbol fetches live ship state, reconstructing the waypoint from
	// the cache.
	FindBySymbol(ctx context.Context, symbol string, playerID shared.PlayerID) (*Ship, error)

	// FindAllByPlayer fetches all ships a player owns.
	FindAllByPlayer(ctx context.Context, playerID shared.PlayerID) ([]*Ship, error)

	// FindByContainer returns the ships a container has locked.
	FindByContainer(ctx context.Context, containerID string, playerID shared.PlayerID) ([]*Ship, error)

	// FindIdleByPlayer returns ships not locked by any container.
	FindIdleByPlayer(ctx context.Context, playerID shared.PlayerID) ([]*Ship, error)

	// Save persists locally-owned ship state (assignments).
	Save(ctx context.Context, ship *Ship) error

	// Navigate orders the ship to a destination and reports the API's
	// arrival time and fuel spend.
	Navigate(ctx context.Context, ship *Ship, destination *shared.Waypoint, playerID shared.PlayerID) (*NavigationResult, error)

	Dock(ctx context.Context, ship *Ship, playerID shared.PlayerID) error
	Orbit(ctx context.Context, ship *Ship, playerID shared.PlayerID) error

	// Refuel fills the tank; units nil means fill to capacity.
	Refuel(ctx context.Context, ship *Ship, playerID shared.PlayerID, units *int) (*RefuelResult, error)

	SetFlightMode(ctx context.Context, ship *Ship, playerID shared.PlayerID, mode shared.FlightMode) error

	JettisonCargo(ctx context.Context, ship *Ship, playerID shared.PlayerID, goodSymbol string, units int) error
}

// ShipData is the raw ship snapshot returned by the API client.
type ShipData struct {
	Symbol       string
	Location     string
	NavStatus    string
	FlightMode   string
	ArrivalTime  string
	FuelCurrent  int
	FuelCapacity int
	EngineSpeed  int
	FrameSymbol  string
	Role         string
	Cargo        *CargoData
}

type CargoData struct {
	Capacity  int
	Units     int
	Inventory []CargoItemData
}

type CargoItemData struct {
	Symbol string
	Units  int
}

// Result of a navigate command.
type NavigationResult struct {
	Destination  string
	ArrivalTime  string // RFC3339 timestamp from the API
	FuelConsumed int
	FuelCurrent  int
	FuelCapacity int
}

// RefuelResult reports what a refuel cost. AgentCredits is the post-purchase
// balance, used when recording the ledger entry.
type RefuelResult struct {
	FuelAdded    int
	CreditsCost  int
	AgentCredits int
}
