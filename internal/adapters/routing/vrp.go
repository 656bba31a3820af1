package routing

import (
	"context"
	"sort"

	domainRouting "github.com/orbitalmachines/astrogator/internal/domain/routing"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/internal/domain/system"
)

// shipClass groups ships whose leg costs are identical, so a fleet of
// identical probes shares one cost matrix.
type shipClass struct {
	fuelCapacity int
	engineSpeed  int
}

// fleetShipState is one ship's working assignment during partitioning.
// order holds assigned markets in working visit order; the ship's own
// location, when it is itself an assigned market, is tracked separately
// because it is visited at position 0 regardless of ordering.
type fleetShipState struct {
	ship   domainRouting.FleetShip
	matrix costMatrix
	order  []string
	hasOwn bool
}

// price values a candidate assignment with the tour conventions: nothing
// assigned (or only the own-location market) is free, a lone remote market
// is one leg out with no return, anything else is a closed loop.
func (s *fleetShipState) price(order []string, hasOwn bool) int {
	if len(order) == 0 {
		return 0
	}
	if len(order) == 1 && !hasOwn {
		return s.matrix[s.ship.Location][order[0]].TotalSeconds
	}
	return loopSeconds(s.ship.Location, order, s.matrix)
}

func (s *fleetShipState) seconds() int {
	return s.price(s.order, s.hasOwn)
}

// bestInsertion returns the cheapest position for market and the resulting
// tour seconds. Position -1 means the market is the ship's own location.
func (s *fleetShipState) bestInsertion(market string) (int, int) {
	if market == s.ship.Location {
		return -1, s.price(s.order, true)
	}
	bestPos := 0
	bestSeconds := -1
	for pos := 0; pos <= len(s.order); pos++ {
		candidate := make([]string, 0, len(s.order)+1)
		candidate = append(candidate, s.order[:pos]...)
		candidate = append(candidate, market)
		candidate = append(candidate, s.order[pos:]...)
		if seconds := s.price(candidate, s.hasOwn); bestSeconds < 0 || seconds < bestSeconds {
			bestPos = pos
			bestSeconds = seconds
		}
	}
	return bestPos, bestSeconds
}

func (s *fleetShipState) insert(market string, pos int) {
	if pos < 0 {
		s.hasOwn = true
		return
	}
	s.order = append(s.order, "")
	copy(s.order[pos+1:], s.order[pos:])
	s.order[pos] = market
}

func (s *fleetShipState) remove(market string) {
	if market == s.ship.Location && s.hasOwn {
		s.hasOwn = false
		return
	}
	for i, assigned := range s.order {
		if assigned == market {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

func (s *fleetShipState) assignedCount() int {
	if s.hasOwn {
		return len(s.order) + 1
	}
	return len(s.order)
}

// assignedMarkets lists the ship's markets, own location first.
func (s *fleetShipState) assignedMarkets() []string {
	markets := make([]string, 0, s.assignedCount())
	if s.hasOwn {
		markets = append(markets, s.ship.Location)
	}
	return append(markets, s.order...)
}

// PartitionFleet splits markets across the fleet so every market is scanned
// by exactly one ship and the busiest ship finishes as early as possible.
// No ship idles unless there are more ships than markets.
func (e *Engine) PartitionFleet(ctx context.Context, graph *system.NavigationGraph, request domainRouting.FleetRequest) (*domainRouting.FleetPlan, error) {
	if graph == nil || graph.WaypointCount() == 0 {
		return nil, shared.NewDomainErrorf(shared.ErrEmptyWaypointCache,
			"no waypoints loaded for system %s", request.SystemSymbol)
	}
	if len(request.Ships) == 0 {
		return nil, shared.NewDomainError(shared.ErrInvalidParams, "fleet partition requires at least one ship")
	}
	if len(request.Markets) == 0 {
		return nil, shared.NewDomainError(shared.ErrInvalidParams, "fleet partition requires at least one market")
	}

	markets := dedupeSymbols(request.Markets)
	for _, market := range markets {
		if _, err := graph.GetWaypoint(market); err != nil {
			return nil, err
		}
	}

	ships := append([]domainRouting.FleetShip(nil), request.Ships...)
	sort.Slice(ships, func(i, j int) bool { return ships[i].ShipSymbol < ships[j].ShipSymbol })
	seen := make(map[string]bool, len(ships))
	for _, ship := range ships {
		if seen[ship.ShipSymbol] {
			return nil, shared.NewDomainErrorf(shared.ErrInvalidParams,
				"duplicate ship %s in fleet request", ship.ShipSymbol)
		}
		seen[ship.ShipSymbol] = true
		if _, err := graph.GetWaypoint(ship.Location); err != nil {
			return nil, err
		}
	}

	// One ship takes everything.
	if len(ships) == 1 {
		tour, err := e.OptimizeTour(ctx, graph, domainRouting.TourRequest{
			SystemSymbol:  request.SystemSymbol,
			StartWaypoint: ships[0].Location,
			Waypoints:     markets,
			CurrentFuel:   ships[0].CurrentFuel,
			FuelCapacity:  ships[0].FuelCapacity,
			EngineSpeed:   ships[0].EngineSpeed,
		})
		if err != nil {
			return nil, err
		}
		return &domainRouting.FleetPlan{Assignments: map[string]*domainRouting.ShipTour{
			ships[0].ShipSymbol: {Waypoints: tour.VisitOrder, TotalSeconds: tour.TotalSeconds},
		}}, nil
	}

	states, err := e.buildFleetStates(ctx, graph, request.SystemSymbol, ships, markets)
	if err != nil {
		return nil, err
	}

	assignMarkets(states, markets)
	rebalance(states)
	fillEmptyShips(states, len(markets))

	plan := &domainRouting.FleetPlan{Assignments: make(map[string]*domainRouting.ShipTour, len(states))}
	for _, state := range states {
		tour := assembleTour(state.ship.Location, state.order, state.hasOwn, state.matrix)
		plan.Assignments[state.ship.ShipSymbol] = &domainRouting.ShipTour{
			Waypoints:    tour.VisitOrder,
			TotalSeconds: tour.TotalSeconds,
		}
	}
	return plan, nil
}

// buildFleetStates prepares one working state per ship, sharing cost
// matrices between ships of the same class.
func (e *Engine) buildFleetStates(ctx context.Context, graph *system.NavigationGraph, systemSymbol string, ships []domainRouting.FleetShip, markets []string) ([]*fleetShipState, error) {
	points := make([]string, 0, len(ships)+len(markets))
	for _, ship := range ships {
		points = append(points, ship.Location)
	}
	points = dedupeSymbols(append(points, markets...))

	matrices := make(map[shipClass]costMatrix, len(ships))
	states := make([]*fleetShipState, 0, len(ships))
	for _, ship := range ships {
		class := shipClass{fuelCapacity: ship.FuelCapacity, engineSpeed: ship.EngineSpeed}
		matrix, ok := matrices[class]
		if !ok {
			var err error
			matrix, err = e.buildCostMatrix(ctx, graph, systemSymbol, points, class.fuelCapacity, class.engineSpeed)
			if err != nil {
				return nil, err
			}
			matrices[class] = matrix
		}
		states = append(states, &fleetShipState{ship: ship, matrix: matrix})
	}
	return states, nil
}

// assignMarkets places every market with a greedy makespan-minimizing
// insertion. Scan order is fixed (sorted markets, symbol-sorted ships) and
// improvements are strict, so the result is deterministic.
func assignMarkets(states []*fleetShipState, markets []string) {
	pending := append([]string(nil), markets...)
	sort.Strings(pending)

	for len(pending) > 0 {
		current := make([]int, len(states))
		top1, top2 := -1, -1
		for i, state := range states {
			current[i] = state.seconds()
			switch {
			case top1 < 0 || current[i] > current[top1]:
				top2 = top1
				top1 = i
			case top2 < 0 || current[i] > current[top2]:
				top2 = i
			}
		}
		maxExcluding := func(i int) int {
			if i != top1 {
				return current[top1]
			}
			if top2 >= 0 {
				return current[top2]
			}
			return 0
		}

		bestMarket, bestShip, bestPos := -1, -1, 0
		bestMakespan, bestShipSeconds := 0, 0
		for mi, market := range pending {
			for si, state := range states {
				pos, shipSeconds := state.bestInsertion(market)
				makespan := shipSeconds
				if others := maxExcluding(si); others > makespan {
					makespan = others
				}
				better := bestMarket < 0 ||
					makespan < bestMakespan ||
					(makespan == bestMakespan && shipSeconds < bestShipSeconds)
				if better {
					bestMarket, bestShip, bestPos = mi, si, pos
					bestMakespan, bestShipSeconds = makespan, shipSeconds
				}
			}
		}

		states[bestShip].insert(pending[bestMarket], bestPos)
		pending = append(pending[:bestMarket], pending[bestMarket+1:]...)
	}
}

// rebalance moves markets off the busiest ship while doing so lowers the
// fleet makespan.
func rebalance(states []*fleetShipState) {
	if len(states) < 2 {
		return
	}
	for {
		current := make([]int, len(states))
		busiest := 0
		for i, state := range states {
			current[i] = state.seconds()
			if current[i] > current[busiest] {
				busiest = i
			}
		}
		makespan := current[busiest]
		if makespan == 0 {
			return
		}

		bestMakespan := makespan
		bestShip, bestPos := -1, 0
		bestMarket := ""
		for _, market := range states[busiest].assignedMarkets() {
			if market == states[busiest].ship.Location {
				continue // scanned in place at zero cost, nothing to gain
			}
			donorSeconds := states[busiest].price(withoutSymbol(states[busiest].order, market), states[busiest].hasOwn)
			for si, receiver := range states {
				if si == busiest {
					continue
				}
				pos, receiverSeconds := receiver.bestInsertion(market)
				candidate := donorSeconds
				if receiverSeconds > candidate {
					candidate = receiverSeconds
				}
				for oi := range states {
					if oi == busiest || oi == si {
						continue
					}
					if current[oi] > candidate {
						candidate = current[oi]
					}
				}
				if candidate < bestMakespan {
					bestMakespan = candidate
					bestMarket, bestShip, bestPos = market, si, pos
				}
			}
		}

		if bestShip < 0 {
			return
		}
		states[busiest].remove(bestMarket)
		states[bestShip].insert(bestMarket, bestPos)
	}
}

// fillEmptyShips enforces the floor that no ship idles while another holds
// two or more markets.
func fillEmptyShips(states []*fleetShipState, marketCount int) {
	if len(states) > marketCount {
		return
	}
	for {
		empty := -1
		for i, state := range states {
			if state.assignedCount() == 0 {
				empty = i
				break
			}
		}
		if empty < 0 {
			return
		}

		bestMakespan, bestDonor, bestPos := -1, -1, 0
		bestMarket := ""
		for di, donor := range states {
			if di == empty || donor.assignedCount() < 2 {
				continue
			}
			for _, market := range donor.assignedMarkets() {
				var donorSeconds int
				if market == donor.ship.Location {
					donorSeconds = donor.price(donor.order, false)
				} else {
					donorSeconds = donor.price(withoutSymbol(donor.order, market), donor.hasOwn)
				}
				pos, receiverSeconds := states[empty].bestInsertion(market)
				candidate := donorSeconds
				if receiverSeconds > candidate {
					candidate = receiverSeconds
				}
				for oi, other := range states {
					if oi == di || oi == empty {
						continue
					}
					if s := other.seconds(); s > candidate {
						candidate = s
					}
				}
				if bestMakespan < 0 || candidate < bestMakespan {
					bestMakespan = candidate
					bestDonor, bestMarket, bestPos = di, market, pos
				}
			}
		}

		if bestDonor < 0 {
			return
		}
		states[bestDonor].remove(bestMarket)
		states[empty].insert(bestMarket, bestPos)
	}
}

func withoutSymbol(symbols []string, drop string) []string {
	out := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		if symbol != drop {
			out = append(out, symbol)
		}
	}
	return out
}
