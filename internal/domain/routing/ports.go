package routing

import (
	"context"

	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/system"
)

// Planner is the routing engine seam. Implementations are pure planning;
// nothing here touches the network or moves a ship.
type Planner interface {
	// PlanRoute finds the fastest fuel-feasible path from start to goal.
	// Returns ErrNoRouteFound when no fuel-feasible path exists.
	PlanRoute(ctx context.Context, graph *system.NavigationGraph, request RouteRequest) (*Plan, error)

	// OptimizeTour orders a multi-stop visit sequence to minimize total
	// travel time. Tours return to the start unless they are stationary.
	OptimizeTour(ctx context.Context, graph *system.NavigationGraph, request TourRequest) (*TourPlan, error)

	// PartitionFleet splits markets across ships, minimizing the slowest
	// ship's total tour time.
	PartitionFleet(ctx context.Context, graph *system.NavigationGraph, request FleetRequest) (*FleetPlan, error)
}

// RouteRequest asks for a path for one ship.
type RouteRequest struct {
	SystemSymbol  string
	StartWaypoint string
	GoalWaypoint  string
	CurrentFuel   int
	FuelCapacity  int
	EngineSpeed   int
}

// Plan is a priced, ordered step sequence. StatesExplored is a search
// diagnostic carried into NoRouteFound errors.
type Plan struct {
	Steps          []navigation.Step
	TotalFuel      int
	TotalSeconds   int
	TotalDistance  float64
	StatesExplored int
}

// TourRequest asks for a visit order over markets for one ship.
type TourRequest struct {
	SystemSymbol  string
	StartWaypoint string
	Waypoints     []string
	CurrentFuel   int
	FuelCapacity  int
	EngineSpeed   int
}

// TourPlan is the optimized visit order. The order excludes the implicit
// return to start; for multi-stop tours Legs carries one fully priced plan
// per leg including that return, and totals are the leg sums.
type TourPlan struct {
	VisitOrder    []string
	Legs          []*Plan
	TotalFuel     int
	TotalSeconds  int
	TotalDistance float64
}

// FleetShip describes one ship available for fleet partitioning.
type FleetShip struct {
	ShipSymbol   string
	Location     string
	CurrentFuel  int
	FuelCapacity int
	EngineSpeed  int
}

// FleetRequest asks for a market partition across ships.
type FleetRequest struct {
	SystemSymbol string
	Ships        []FleetShip
	Markets      []string
}

// ShipTour is one ship's share of a fleet partition.
type ShipTour struct {
	Waypoints    []string
	TotalSeconds int
}

// FleetPlan assigns every market to exactly one ship.
type FleetPlan struct {
	Assignments map[string]*ShipTour
}
