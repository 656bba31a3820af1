package commands

import (
	"context"
	"fmt"

	"github.com/orbitalmachines/astrogator/internal/adapters/metrics"
	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	"github.com/orbitalmachines/astrogator/internal/application/ship/types"
	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/internal/domain/system"
)

// NavigateDirectHandler performs one single-hop navigation in the ship's
// current flight mode. No fuel planning happens here; that is the route
// executor's job.
type NavigateDirectHandler struct {
	shipRepo     navigation.ShipRepository
	waypointRepo system.WaypointRepository
	clock        shared.Clock
}

func NewNavigateDirectHandler(shipRepo navigation.ShipRepository, waypointRepo system.WaypointRepository, clock shared.Clock) *NavigateDirectHandler {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &NavigateDirectHandler{
		shipRepo:     shipRepo,
		waypointRepo: waypointRepo,
		clock:        clock,
	}
}

func (h *NavigateDirectHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*types.NavigateDirectCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *NavigateDirectCommand")
	}

	ship, err := loadShip(ctx, h.shipRepo, cmd.Ship, cmd.ShipSymbol, cmd.PlayerID)
	if err != nil {
		return nil, err
	}

	if ship.IsAtLocation(cmd.Destination) {
		return &types.NavigateDirectResponse{
			Status:       "already_at_destination",
			FuelCurrent:  ship.Fuel().Current,
			FuelCapacity: ship.Fuel().Capacity,
		}, nil
	}

	destination, err := h.loadDestination(ctx, cmd.Destination)
	if err != nil {
		return nil, err
	}

	stateChanged, err := ship.EnsureInOrbit()
	if err != nil {
		return nil, fmt.Errorf("cannot depart: %w", err)
	}
	if stateChanged {
		if err := h.shipRepo.Orbit(ctx, ship, cmd.PlayerID); err != nil {
			return nil, fmt.Errorf("failed to orbit ship before departure: %w", err)
		}
	}

	result, err := h.shipRepo.Navigate(ctx, ship, destination, cmd.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("failed to navigate: %w", err)
	}

	metrics.RecordFuelConsumption(cmd.PlayerID.Value(), ship.FlightMode(), result.FuelConsumed)

	waitSeconds := 0
	if arrival, err := shared.NewArrivalTime(result.ArrivalTime); err == nil {
		waitSeconds = arrival.WaitTimeFrom(h.clock.Now())
	}

	return &types.NavigateDirectResponse{
		Status:       "navigating",
		ArrivalTime:  result.ArrivalTime,
		WaitSeconds:  waitSeconds,
		FuelConsumed: result.FuelConsumed,
		FuelCurrent:  result.FuelCurrent,
		FuelCapacity: result.FuelCapacity,
	}, nil
}

// loadDestination resolves the waypoint from the cache. An uncached waypoint
// falls back to a coordinate-less stub; the API validates the real symbol.
func (h *NavigateDirectHandler) loadDestination(ctx context.Context, destinationSymbol string) (*shared.Waypoint, error) {
	systemSymbol := shared.ExtractSystemSymbol(destinationSymbol)
	destination, err := h.waypointRepo.FindBySymbol(ctx, destinationSymbol, systemSymbol)
	if err == nil {
		return destination, nil
	}

	destination, err = shared.NewWaypoint(destinationSymbol, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("invalid destination: %w", err)
	}
	return destination, nil
}
