package routing

import (
	"container/heap"
	"context"
	"sort"

	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	domainRouting "github.com/orbitalmachines/astrogator/internal/domain/routing"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/internal/domain/system"
)

// Engine is the in-process routing engine. It searches (waypoint, fuel)
// states with Dijkstra over travel time, so faster modes win whenever the
// tank allows them and refuel stops appear exactly where they pay off.
type Engine struct{}

var _ domainRouting.Planner = (*Engine)(nil)

func NewEngine() *Engine {
	return &Engine{}
}

// travelModes in expansion order. DRIFT is excluded: where only DRIFT would
// reach, the search inserts a refuel or reports no route.
var travelModes = [2]shared.FlightMode{shared.FlightModeBurn, shared.FlightModeCruise}

// searchState is a node in the time-Dijkstra over fuel-annotated positions.
type searchState struct {
	waypoint string
	fuel     int
}

// cameFrom records the step that produced a state, for path reconstruction.
type cameFrom struct {
	prev searchState
	step navigation.Step
}

// adjacency is the per-request neighbor index. Every pair of waypoints is
// connected: stored edges win, otherwise the distance derives from
// coordinates (zero for orbital siblings).
type adjacency map[string][]neighbor

type neighbor struct {
	to       string
	distance float64
	orbital  bool
}

// PlanRoute finds the fastest fuel-feasible path from start to goal.
func (e *Engine) PlanRoute(ctx context.Context, graph *system.NavigationGraph, request domainRouting.RouteRequest) (*domainRouting.Plan, error) {
	if graph == nil || graph.WaypointCount() == 0 {
		return nil, shared.NewDomainErrorf(shared.ErrEmptyWaypointCache,
			"no waypoints loaded for system %s", request.SystemSymbol)
	}

	startWp, err := graph.GetWaypoint(request.StartWaypoint)
	if err != nil {
		return nil, err
	}
	if _, err := graph.GetWaypoint(request.GoalWaypoint); err != nil {
		return nil, err
	}

	if request.StartWaypoint == request.GoalWaypoint {
		return &domainRouting.Plan{Steps: []navigation.Step{}}, nil
	}

	// Ships without a tank (probes) are exempt from every fuel rule.
	unlimitedFuel := request.FuelCapacity == 0

	startFuel := request.CurrentFuel
	if startFuel > request.FuelCapacity {
		startFuel = request.FuelCapacity
	}

	var prefix []navigation.Step
	if !unlimitedFuel {
		directDistance, err := graph.Distance(request.StartWaypoint, request.GoalWaypoint)
		if err != nil {
			return nil, err
		}
		directCruiseFuel := shared.FlightModeCruise.FuelCost(directDistance)
		if domainRouting.ShouldRefuelBeforeDeparture(startWp.HasFuel, startFuel, request.FuelCapacity, directCruiseFuel) {
			prefix = append(prefix, navigation.NewRefuelStep(request.StartWaypoint, domainRouting.RefuelStopSeconds))
			startFuel = request.FuelCapacity
		}
	}

	steps, explored, err := e.search(ctx, graph, request, startFuel, unlimitedFuel)
	if err != nil {
		return nil, err
	}

	plan := &domainRouting.Plan{
		Steps:          append(prefix, steps...),
		StatesExplored: explored,
	}
	for _, step := range plan.Steps {
		plan.TotalFuel += step.FuelCost
		plan.TotalSeconds += step.Seconds
		plan.TotalDistance += step.Distance
	}
	return plan, nil
}

// search runs time-Dijkstra from (start, startFuel) until the goal pops.
func (e *Engine) search(
	ctx context.Context,
	graph *system.NavigationGraph,
	request domainRouting.RouteRequest,
	startFuel int,
	unlimitedFuel bool,
) ([]navigation.Step, int, error) {
	adj := buildAdjacency(graph)

	start := searchState{waypoint: request.StartWaypoint, fuel: startFuel}
	if unlimitedFuel {
		start.fuel = 0
	}

	dist := map[searchState]int{start: 0}
	parents := map[searchState]cameFrom{}

	pq := &stateQueue{}
	heap.Init(pq)
	heap.Push(pq, &queueItem{state: start, seconds: 0})

	explored := 0

	for pq.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return nil, explored, shared.ErrCanceled
		}

		item := heap.Pop(pq).(*queueItem)
		current := item.state

		if item.seconds > dist[current] {
			continue // stale queue entry
		}
		explored++

		if current.waypoint == request.GoalWaypoint {
			return reconstructPath(parents, start, current), explored, nil
		}

		currentWp, err := graph.GetWaypoint(current.waypoint)
		if err != nil {
			return nil, explored, err
		}

		// Refuel in place. Never at the initial state: the head-of-route
		// refuel is the departure policy's call, not the search's.
		if !unlimitedFuel && current != start && currentWp.HasFuel && current.fuel < request.FuelCapacity {
			next := searchState{waypoint: current.waypoint, fuel: request.FuelCapacity}
			seconds := item.seconds + domainRouting.RefuelStopSeconds
			if best, seen := dist[next]; !seen || seconds < best {
				dist[next] = seconds
				parents[next] = cameFrom{
					prev: current,
					step: navigation.NewRefuelStep(current.waypoint, domainRouting.RefuelStopSeconds),
				}
				heap.Push(pq, &queueItem{state: next, seconds: seconds})
			}
		}

		for _, nb := range adj[current.waypoint] {
			if nb.orbital {
				e.relaxTravel(pq, dist, parents, current, item.seconds, navigation.NewTravelStep(
					current.waypoint, nb.to, shared.FlightModeCruise, 0, 0, domainRouting.OrbitalHopSeconds,
				), current.fuel)
				continue
			}

			for _, mode := range travelModes {
				fuelCost := mode.FuelCost(nb.distance)
				remaining := current.fuel
				if !unlimitedFuel {
					remaining = current.fuel - fuelCost
					if remaining < 0 {
						continue
					}
					toWp, err := graph.GetWaypoint(nb.to)
					if err != nil {
						return nil, explored, err
					}
					if !toWp.HasFuel && remaining < domainRouting.FuelSafetyReserve {
						continue
					}
				} else {
					fuelCost = 0
				}

				seconds := mode.TravelTime(nb.distance, request.EngineSpeed)
				e.relaxTravel(pq, dist, parents, current, item.seconds, navigation.NewTravelStep(
					current.waypoint, nb.to, mode, fuelCost, nb.distance, seconds,
				), remaining)
			}
		}
	}

	return nil, explored, shared.NewDomainErrorf(shared.ErrNoRouteFound,
		"no fuel-feasible route from %s to %s (explored %d states)",
		request.StartWaypoint, request.GoalWaypoint, explored)
}

// relaxTravel applies a candidate travel step and records it when it improves
// the best known time for the resulting state.
func (e *Engine) relaxTravel(
	pq *stateQueue,
	dist map[searchState]int,
	parents map[searchState]cameFrom,
	current searchState,
	currentSeconds int,
	step navigation.Step,
	arrivalFuel int,
) {
	next := searchState{waypoint: step.To, fuel: arrivalFuel}
	seconds := currentSeconds + step.Seconds
	if best, seen := dist[next]; !seen || seconds < best {
		dist[next] = seconds
		parents[next] = cameFrom{prev: current, step: step}
		heap.Push(pq, &queueItem{state: next, seconds: seconds})
	}
}

func reconstructPath(parents map[searchState]cameFrom, start, goal searchState) []navigation.Step {
	var reversed []navigation.Step
	for at := goal; at != start; {
		entry := parents[at]
		reversed = append(reversed, entry.step)
		at = entry.prev
	}

	steps := make([]navigation.Step, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		steps = append(steps, reversed[i])
	}
	return steps
}

// buildAdjacency connects every waypoint pair: stored edges first, derived
// coordinate distances for the rest. Neighbor lists are sorted so the search
// is deterministic.
func buildAdjacency(graph *system.NavigationGraph) adjacency {
	adj := make(adjacency, graph.WaypointCount())

	type pair struct{ from, to string }
	stored := make(map[pair]bool, len(graph.Edges))

	for _, edge := range graph.Edges {
		stored[pair{edge.From, edge.To}] = true
		adj[edge.From] = append(adj[edge.From], neighbor{
			to:       edge.To,
			distance: edge.Distance,
			orbital:  edge.Type == system.EdgeTypeOrbital || edge.Distance == 0,
		})
	}

	for fromSym, fromWp := range graph.Waypoints {
		for toSym, toWp := range graph.Waypoints {
			if fromSym == toSym || stored[pair{fromSym, toSym}] {
				continue
			}
			orbital := fromWp.IsOrbitalOf(toWp)
			distance := 0.0
			if !orbital {
				distance = fromWp.DistanceTo(toWp)
			}
			adj[fromSym] = append(adj[fromSym], neighbor{
				to:       toSym,
				distance: distance,
				orbital:  orbital || distance == 0,
			})
		}
	}

	for sym := range adj {
		neighbors := adj[sym]
		sort.Slice(neighbors, func(i, j int) bool { return neighbors[i].to < neighbors[j].to })
	}
	return adj
}

// queueItem and stateQueue implement the priority queue for the search.
type queueItem struct {
	state   searchState
	seconds int
	index   int
}

type stateQueue []*queueItem

func (q stateQueue) Len() int { return len(q) }

func (q stateQueue) Less(i, j int) bool {
	if q[i].seconds != q[j].seconds {
		return q[i].seconds < q[j].seconds
	}
	// Tie-break on position for deterministic expansion order.
	if q[i].state.waypoint != q[j].state.waypoint {
		return q[i].state.waypoint < q[j].state.waypoint
	}
	return q[i].state.fuel > q[j].state.fuel
}

func (q stateQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *stateQueue) Push(x interface{}) {
	item := x.(*queueItem)
	item.index = len(*q)
	*q = append(*q, item)
}

func (q *stateQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}
