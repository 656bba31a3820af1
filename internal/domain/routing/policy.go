package routing

import "github.com/orbitalmachines/astrogator/internal/domain/shared"

const (
	// FuelSafetyReserve is the minimum fuel buffer in units. Plans refuel
	// rather than arrive below it, covering rounding drift and detours.
	FuelSafetyReserve = 4

	// TopUpThreshold is the tank fraction below which a ship at a fuel
	// waypoint tops up opportunistically.
	TopUpThreshold = 0.9

	// RefuelStopSeconds is the planning-time estimate for a refuel stop
	// (dock, refuel, orbit). Real stops take three API round-trips.
	RefuelStopSeconds = 2

	// OrbitalHopSeconds is the cost of moving between a body and its
	// orbital. Zero distance, zero fuel, but never free in time.
	OrbitalHopSeconds = 1
)

// ShouldRefuelBeforeDeparture decides the opportunistic start refuel: top up
// at the start waypoint when the tank is below threshold and the direct
// cruise leg to the goal would land under the safety reserve. A full tank
// never refuels.
func ShouldRefuelBeforeDeparture(startHasFuel bool, currentFuel, fuelCapacity, directCruiseFuel int) bool {
	if !startHasFuel || fuelCapacity == 0 {
		return false
	}
	if currentFuel == fuelCapacity {
		return false
	}
	if float64(currentFuel) >= TopUpThreshold*float64(fuelCapacity) {
		return false
	}
	return currentFuel-directCruiseFuel < FuelSafetyReserve
}

// ShouldTopUpAfterArrival decides the executor's opportunistic refuel on
// arriving at a fuel-bearing waypoint.
func ShouldTopUpAfterArrival(waypointHasFuel bool, fuel *shared.Fuel) bool {
	if !waypointHasFuel || fuel == nil || fuel.Capacity == 0 {
		return false
	}
	return float64(fuel.Current) < TopUpThreshold*float64(fuel.Capacity)
}
