package commands

import (
	"context"
	"fmt"

	"github.com/orbitalmachines/astrogator/internal/application/logging"
	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// RoutePlanner plans a multi-hop route for a ship to an intra-system
// destination. Implemented by the ship application service.
type RoutePlanner interface {
	PlanRoute(ctx context.Context, ship *navigation.Ship, destination string) (*navigation.Route, error)
}

// RouteExecutor drives a planned route through the atomic ship commands.
type RouteExecutor interface {
	ExecuteRoute(ctx context.Context, route *navigation.Route, ship *navigation.Ship, operationContext *shared.OperationContext) error
	WaitForTransit(ctx context.Context, ship *navigation.Ship) error
}

// NavigateRouteCommand is the high-level navigation command: it plans a
// fuel-aware multi-hop route and executes it end to end, refuel stops
// included. Workflows use this; NavigateDirectCommand is the single-hop
// primitive underneath it.
//
// Ship, when set, is the caller's live entity and is mutated in place as the
// route executes. Context attributes refuel spending to a parent operation.
type NavigateRouteCommand struct {
	ShipSymbol  string `validate:"required"`
	Destination string `validate:"required"`
	PlayerID    shared.PlayerID
	Ship        *navigation.Ship
	Context     *shared.OperationContext
}

// NavigateRouteResponse reports where the ship ended up. Status is
// "completed" or "already_at_destination"; Route is nil in the latter case.
type NavigateRouteResponse struct {
	Status          string
	CurrentLocation string
	FuelRemaining   int
	TravelSeconds   int
	Route           *navigation.Route
	Ship            *navigation.Ship
}

type NavigateRouteHandler struct {
	shipRepo navigation.ShipRepository
	planner  RoutePlanner
	executor RouteExecutor
}

func NewNavigateRouteHandler(shipRepo navigation.ShipRepository, planner RoutePlanner, executor RouteExecutor) *NavigateRouteHandler {
	return &NavigateRouteHandler{shipRepo: shipRepo, planner: planner, executor: executor}
}

func (h *NavigateRouteHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*NavigateRouteCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type")
	}

	logger := logging.LoggerFromContext(ctx)

	ship, err := loadShip(ctx, h.shipRepo, cmd.Ship, cmd.ShipSymbol, cmd.PlayerID)
	if err != nil {
		return nil, err
	}

	logger.Log("INFO", "Ship navigation requested", map[string]interface{}{
		"ship_symbol": ship.ShipSymbol(),
		"current":     ship.CurrentLocation().Symbol,
		"destination": cmd.Destination,
		"nav_status":  string(ship.NavStatus()),
	})

	// A ship mid-transit reports its destination as the current location, so
	// settle the transit before deciding anything.
	if ship.IsInTransit() {
		if err := h.executor.WaitForTransit(ctx, ship); err != nil {
			return nil, fmt.Errorf("failed to wait for current transit: %w", err)
		}
	}

	if ship.CurrentLocation().Symbol == cmd.Destination {
		logger.Log("INFO", "Ship already at destination", map[string]interface{}{
			"ship_symbol": ship.ShipSymbol(),
			"destination": cmd.Destination,
		})
		return &NavigateRouteResponse{
			Status:          "already_at_destination",
			CurrentLocation: ship.CurrentLocation().Symbol,
			FuelRemaining:   ship.Fuel().Current,
			Ship:            ship,
		}, nil
	}

	route, err := h.planner.PlanRoute(ctx, ship, cmd.Destination)
	if err != nil {
		if shared.IsCode(err, shared.ErrNoRouteFound) {
			return nil, fmt.Errorf("no route for %s (fuel %d/%d): %w",
				ship.ShipSymbol(), ship.Fuel().Current, ship.FuelCapacity(), err)
		}
		return nil, fmt.Errorf("failed to plan route: %w", err)
	}

	if err := h.executeRoute(ctx, route, ship, cmd.Context); err != nil {
		return nil, fmt.Errorf("failed to execute route: %w", err)
	}

	return &NavigateRouteResponse{
		Status:          "completed",
		CurrentLocation: ship.CurrentLocation().Symbol,
		FuelRemaining:   ship.Fuel().Current,
		TravelSeconds:   route.TotalSeconds(),
		Route:           route,
		Ship:            ship,
	}, nil
}

// executeRoute converts a panic during execution into a failed route and an
// error, so a crashing step cannot leave the route stuck in EXECUTING.
func (h *NavigateRouteHandler) executeRoute(ctx context.Context, route *navigation.Route, ship *navigation.Ship, operationContext *shared.OperationContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			route.Fail(fmt.Sprintf("panic during route execution: %v", r))
			err = fmt.Errorf("route execution panicked: %v", r)
		}
	}()
	return h.executor.ExecuteRoute(ctx, route, ship, operationContext)
}
