package types

import (
	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// Atomic ship command DTOs, shared between the command handlers and the
// route executor so neither package imports the other.
//
// Every command carries an optional Ship. Callers that already hold live
// ship state (the route executor between steps) pass it so the handler can
// skip the API fetch; external callers leave it nil and the handler loads
// the ship by symbol.

// OrbitShipCommand moves a ship to orbit at its current waypoint.
type OrbitShipCommand struct {
	ShipSymbol string `validate:"required"`
	PlayerID   shared.PlayerID
	Ship       *navigation.Ship
}

// Status is "in_orbit" or "already_in_orbit".
type OrbitShipResponse struct {
	Status string
}

// DockShipCommand docks a ship at its current waypoint.
type DockShipCommand struct {
	ShipSymbol string `validate:"required"`
	PlayerID   shared.PlayerID
	Ship       *navigation.Ship
}

// Status is "docked" or "already_docked".
type DockShipResponse struct {
	Status string
}

// RefuelShipCommand refuels a ship at its current waypoint, docking first
// when needed. Units nil means fill to capacity. Context attributes the
// resulting ledger entry to the container that caused the refuel.
type RefuelShipCommand struct {
	ShipSymbol string `validate:"required"`
	PlayerID   shared.PlayerID
	Units      *int
	Ship       *navigation.Ship
	Context    *shared.OperationContext
}

// Status is "refueled" or "already_full".
type RefuelShipResponse struct {
	Status       string
	FuelAdded    int
	CreditsCost  int
	CurrentFuel  int
	FuelCapacity int
}

// SetFlightModeCommand changes a ship's flight mode.
type SetFlightModeCommand struct {
	ShipSymbol string `validate:"required"`
	Mode       shared.FlightMode
	PlayerID   shared.PlayerID
	Ship       *navigation.Ship
}

// Status is "mode_set" or "already_set".
type SetFlightModeResponse struct {
	Status string
	Mode   shared.FlightMode
}

// NavigateDirectCommand performs one single-hop navigation in the ship's
// current flight mode. The route executor issues these per step; external
// callers normally want NavigateRouteCommand, which plans refuel stops.
type NavigateDirectCommand struct {
	ShipSymbol  string `validate:"required"`
	Destination string `validate:"required"`
	PlayerID    shared.PlayerID
	Ship        *navigation.Ship
}

// Status is "navigating" or "already_at_destination". ArrivalTime is the
// RFC3339 timestamp from the API; WaitSeconds the remaining transit time.
type NavigateDirectResponse struct {
	Status       string
	ArrivalTime  string
	WaitSeconds  int
	FuelConsumed int
	FuelCurrent  int
	FuelCapacity int
}
