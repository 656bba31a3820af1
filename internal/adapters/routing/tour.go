package routing

import (
	"context"
	"sort"

	domainRouting "github.com/orbitalmachines/astrogator/internal/domain/routing"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/internal/domain/system"
)

// costMatrix caches leg plans between tour points, keyed [from][to].
// Diagonal entries are absent.
type costMatrix map[string]map[string]*domainRouting.Plan

// buildCostMatrix prices every ordered pair of points with the path search.
// Legs are planned from a full tank: tours are steady-state loops and the
// executor refuels organically, so loop-leg cost is what matters for
// ordering. Points must be deduplicated.
func (e *Engine) buildCostMatrix(ctx context.Context, graph *system.NavigationGraph, systemSymbol string, points []string, fuelCapacity, engineSpeed int) (costMatrix, error) {
	matrix := make(costMatrix, len(points))
	for _, from := range points {
		matrix[from] = make(map[string]*domainRouting.Plan, len(points)-1)
		for _, to := range points {
			if from == to {
				continue
			}
			plan, err := e.PlanRoute(ctx, graph, domainRouting.RouteRequest{
				SystemSymbol:  systemSymbol,
				StartWaypoint: from,
				GoalWaypoint:  to,
				CurrentFuel:   fuelCapacity,
				FuelCapacity:  fuelCapacity,
				EngineSpeed:   engineSpeed,
			})
			if err != nil {
				return nil, err
			}
			matrix[from][to] = plan
		}
	}
	return matrix, nil
}

// OptimizeTour orders the requested waypoints into the fastest loop from the
// ship's position. Multi-stop tours close back to the start and their totals
// include the return leg; a single remote waypoint is one leg out with no
// return (the ship parks there).
func (e *Engine) OptimizeTour(ctx context.Context, graph *system.NavigationGraph, request domainRouting.TourRequest) (*domainRouting.TourPlan, error) {
	if graph == nil || graph.WaypointCount() == 0 {
		return nil, shared.NewDomainErrorf(shared.ErrEmptyWaypointCache,
			"no waypoints loaded for system %s", request.SystemSymbol)
	}
	if len(request.Waypoints) == 0 {
		return nil, shared.NewDomainError(shared.ErrInvalidParams, "tour requires at least one waypoint")
	}
	if _, err := graph.GetWaypoint(request.StartWaypoint); err != nil {
		return nil, err
	}

	startIsStop := false
	remaining := make([]string, 0, len(request.Waypoints))
	for _, stop := range dedupeSymbols(request.Waypoints) {
		if _, err := graph.GetWaypoint(stop); err != nil {
			return nil, err
		}
		if stop == request.StartWaypoint {
			startIsStop = true
			continue
		}
		remaining = append(remaining, stop)
	}

	points := append([]string{request.StartWaypoint}, remaining...)
	matrix, err := e.buildCostMatrix(ctx, graph, request.SystemSymbol, points, request.FuelCapacity, request.EngineSpeed)
	if err != nil {
		return nil, err
	}

	return assembleTour(request.StartWaypoint, remaining, startIsStop, matrix), nil
}

// assembleTour runs the ordering heuristics over remaining stops and prices
// the result. startIsStop marks the start itself as a stop, visited at
// position 0.
func assembleTour(start string, remaining []string, startIsStop bool, matrix costMatrix) *domainRouting.TourPlan {
	plan := &domainRouting.TourPlan{VisitOrder: []string{}}

	if len(remaining) == 0 {
		// Stationary: already parked on the only stop.
		if startIsStop {
			plan.VisitOrder = []string{start}
		}
		return plan
	}

	if !startIsStop && len(remaining) == 1 {
		plan.VisitOrder = []string{remaining[0]}
		addLeg(plan, matrix[start][remaining[0]])
		return plan
	}

	order := nearestNeighborOrder(start, remaining, matrix)
	order = twoOptImprove(start, order, matrix)

	current := start
	for _, stop := range order {
		addLeg(plan, matrix[current][stop])
		current = stop
	}
	addLeg(plan, matrix[current][start])

	plan.VisitOrder = order
	if startIsStop {
		plan.VisitOrder = append([]string{start}, order...)
	}
	return plan
}

// nearestNeighborOrder builds an initial visit order by always taking the
// fastest-reachable unvisited stop, ties broken lexicographically.
func nearestNeighborOrder(start string, stops []string, matrix costMatrix) []string {
	pending := append([]string(nil), stops...)
	sort.Strings(pending)

	order := make([]string, 0, len(pending))
	visited := make(map[string]bool, len(pending))
	current := start
	for len(order) < len(pending) {
		next := ""
		nextSeconds := 0
		for _, candidate := range pending {
			if visited[candidate] {
				continue
			}
			seconds := matrix[current][candidate].TotalSeconds
			if next == "" || seconds < nextSeconds {
				next = candidate
				nextSeconds = seconds
			}
		}
		visited[next] = true
		order = append(order, next)
		current = next
	}
	return order
}

// twoOptImprove reverses order segments while the loop time improves. Leg
// costs are asymmetric (refuel geography differs by direction), so every
// candidate is priced over the whole loop.
func twoOptImprove(start string, order []string, matrix costMatrix) []string {
	if len(order) < 2 {
		return order
	}
	best := append([]string(nil), order...)
	bestSeconds := loopSeconds(start, best, matrix)

	improved := true
	for improved {
		improved = false
		for i := 0; i < len(best)-1; i++ {
			for j := i + 1; j < len(best); j++ {
				candidate := append([]string(nil), best...)
				for lo, hi := i, j; lo < hi; lo, hi = lo+1, hi-1 {
					candidate[lo], candidate[hi] = candidate[hi], candidate[lo]
				}
				if seconds := loopSeconds(start, candidate, matrix); seconds < bestSeconds {
					best = candidate
					bestSeconds = seconds
					improved = true
				}
			}
		}
	}
	return best
}

// addLeg appends a priced leg and folds it into the tour totals.
func addLeg(plan *domainRouting.TourPlan, leg *domainRouting.Plan) {
	plan.Legs = append(plan.Legs, leg)
	plan.TotalFuel += leg.TotalFuel
	plan.TotalSeconds += leg.TotalSeconds
	plan.TotalDistance += leg.TotalDistance
}

// loopSeconds prices the closed loop start -> order -> start.
func loopSeconds(start string, order []string, matrix costMatrix) int {
	seconds := 0
	current := start
	for _, stop := range order {
		seconds += matrix[current][stop].TotalSeconds
		current = stop
	}
	return seconds + matrix[current][start].TotalSeconds
}

func dedupeSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		if seen[symbol] {
			continue
		}
		seen[symbol] = true
		out = append(out, symbol)
	}
	return out
}
