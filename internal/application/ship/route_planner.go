package ship

import (
	"context"
	"fmt"

	"github.com/orbitalmachines/astrogator/internal/application/logging"
	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/routing"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/internal/domain/system"
)

// RoutePlanner turns a destination into an executable Route: it loads the
// system graph, asks the planner for a fuel-feasible step sequence, and wraps
// the result in the Route entity that tracks execution.
type RoutePlanner struct {
	graphProvider system.GraphProvider
	planner       routing.Planner
	clock         shared.Clock
}

// NewRoutePlanner builds a planner service. clock nil means the real clock.
func NewRoutePlanner(graphProvider system.GraphProvider, planner routing.Planner, clock shared.Clock) *RoutePlanner {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &RoutePlanner{
		graphProvider: graphProvider,
		planner:       planner,
		clock:         clock,
	}
}

// PlanRoute plans from the ship's current position to destination. The
// returned route is validated and in PLANNED state. Same-waypoint requests
// yield a zero-travel route that completes on start.
func (p *RoutePlanner) PlanRoute(ctx context.Context, ship *navigation.Ship, destination string) (*navigation.Route, error) {
	logger := logging.LoggerFromContext(ctx)

	start := ship.CurrentLocation().Symbol
	systemSymbol := shared.ExtractSystemSymbol(destination)

	// Routing is intra-system; jump gates are a different operation.
	if startSystem := ship.CurrentLocation().SystemSymbol; startSystem != systemSymbol {
		return nil, fmt.Errorf("destination %s is in system %s but ship is in %s",
			destination, systemSymbol, startSystem)
	}

	loaded, err := p.graphProvider.GetGraph(ctx, systemSymbol, false, ship.PlayerID())
	if err != nil {
		return nil, fmt.Errorf("failed to load graph for system %s: %w", systemSymbol, err)
	}

	plan, err := p.planner.PlanRoute(ctx, loaded.Graph, routing.RouteRequest{
		SystemSymbol:  systemSymbol,
		StartWaypoint: start,
		GoalWaypoint:  destination,
		CurrentFuel:   ship.Fuel().Current,
		FuelCapacity:  ship.FuelCapacity(),
		EngineSpeed:   ship.EngineSpeed(),
	})
	if err != nil {
		return nil, err
	}

	logger.Log("INFO", "Route planned", map[string]interface{}{
		"ship_symbol":     ship.ShipSymbol(),
		"from":            start,
		"to":              destination,
		"steps":           len(plan.Steps),
		"total_fuel":      plan.TotalFuel,
		"total_seconds":   plan.TotalSeconds,
		"states_explored": plan.StatesExplored,
		"graph_source":    string(loaded.Source),
	})
	for i, step := range plan.Steps {
		logger.Log("DEBUG", "Route step", map[string]interface{}{
			"ship_symbol": ship.ShipSymbol(),
			"step_index":  i,
			"step":        step.String(),
		})
	}

	routeID := fmt.Sprintf("%s_%d", ship.ShipSymbol(), p.clock.Now().UnixMilli())

	return navigation.NewRoute(
		routeID,
		ship.ShipSymbol(),
		ship.PlayerID(),
		start,
		destination,
		plan.Steps,
		ship.FuelCapacity(),
		p.clock,
	)
}
