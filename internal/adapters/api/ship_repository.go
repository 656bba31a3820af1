package api

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/orbitalmachines/astrogator/internal/domain/container"
	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/player"
	"github.com/orbitalmachines/astrogator/internal/domain/ports"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/internal/domain/system"
)

// shipListCacheTTL bounds how stale a fleet listing may be. Coordinators poll
// the fleet every iteration; without this every poll would cost API calls.
const shipListCacheTTL = 15 * time.Second

type cachedShipList struct {
	ships     []*navigation.Ship
	fetchedAt time.Time
}

// ShipRepository reads ship state live from the remote API and persists only
// what the game does not own: container assignments. Waypoints are resolved
// through the waypoint store with the system graph as fallback so callers get
// coordinates and traits, not bare symbols.
type ShipRepository struct {
	client      ports.APIClient
	players     player.Repository
	waypoints   system.WaypointRepository
	graphs      system.GraphProvider
	assignments container.ShipAssignmentRepository
	clock       shared.Clock
	log         zerolog.Logger

	listCache sync.Map // playerID int -> *cachedShipList
}

var _ navigation.ShipRepository = (*ShipRepository)(nil)

func NewShipRepository(
	client ports.APIClient,
	players player.Repository,
	waypoints system.WaypointRepository,
	graphs system.GraphProvider,
	assignments container.ShipAssignmentRepository,
	clock shared.Clock,
	log zerolog.Logger,
) *ShipRepository {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &ShipRepository{
		client:      client,
		players:     players,
		waypoints:   waypoints,
		graphs:      graphs,
		assignments: assignments,
		clock:       clock,
		log:         log,
	}
}

func (r *ShipRepository) token(ctx context.Context, playerID shared.PlayerID) (string, error) {
	p, err := r.players.FindByID(ctx, playerID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve player %s: %w", playerID, err)
	}
	if p == nil {
		return "", shared.NewDomainError(shared.ErrPlayerNotFound, fmt.Sprintf("player %s not found", playerID))
	}
	return p.Token, nil
}

func (r *ShipRepository) FindBySymbol(ctx context.Context, symbol string, playerID shared.PlayerID) (*navigation.Ship, error) {
	token, err := r.token(ctx, playerID)
	if err != nil {
		return nil, err
	}

	data, err := r.client.GetShip(ctx, symbol, token)
	if err != nil {
		return nil, err
	}

	ship, err := r.toDomain(ctx, data, playerID)
	if err != nil {
		return nil, err
	}
	r.attachAssignment(ctx, ship, playerID)
	return ship, nil
}

func (r *ShipRepository) FindAllByPlayer(ctx context.Context, playerID shared.PlayerID) ([]*navigation.Ship, error) {
	if cached, ok := r.listCache.Load(playerID.Value()); ok {
		entry := cached.(*cachedShipList)
		if r.clock.Now().Sub(entry.fetchedAt) < shipListCacheTTL {
			ships := make([]*navigation.Ship, len(entry.ships))
			copy(ships, entry.ships)
			return ships, nil
		}
	}

	token, err := r.token(ctx, playerID)
	if err != nil {
		return nil, err
	}

	listings, err := r.client.ListShips(ctx, token)
	if err != nil {
		return nil, err
	}

	ships := make([]*navigation.Ship, 0, len(listings))
	for _, data := range listings {
		ship, err := r.toDomain(ctx, data, playerID)
		if err != nil {
			return nil, fmt.Errorf("failed to build ship %s: %w", data.Symbol, err)
		}
		ships = append(ships, ship)
	}
	r.attachAssignments(ctx, ships, playerID)

	r.listCache.Store(playerID.Value(), &cachedShipList{ships: ships, fetchedAt: r.clock.Now()})

	out := make([]*navigation.Ship, len(ships))
	copy(out, ships)
	return out, nil
}

func (r *ShipRepository) FindByContainer(ctx context.Context, containerID string, playerID shared.PlayerID) ([]*navigation.Ship, error) {
	ships, err := r.FindAllByPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	var assigned []*navigation.Ship
	for _, ship := range ships {
		if ship.ContainerID() == containerID {
			assigned = append(assigned, ship)
		}
	}
	return assigned, nil
}

func (r *ShipRepository) FindIdleByPlayer(ctx context.Context, playerID shared.PlayerID) ([]*navigation.Ship, error) {
	ships, err := r.FindAllByPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	var idle []*navigation.Ship
	for _, ship := range ships {
		if ship.IsIdle() {
			idle = append(idle, ship)
		}
	}
	return idle, nil
}

// Save persists the ship's assignment. All other ship state is owned by the
// remote API and never written locally.
func (r *ShipRepository) Save(ctx context.Context, ship *navigation.Ship) error {
	assignment := ship.Assignment()
	if assignment == nil {
		return nil
	}

	if assignment.IsActive() {
		lock := container.NewShipAssignment(ship.ShipSymbol(), ship.PlayerID(), assignment.ContainerID(), r.clock)
		if err := r.assignments.Assign(ctx, lock); err != nil {
			return fmt.Errorf("failed to persist assignment for %s: %w", ship.ShipSymbol(), err)
		}
	} else {
		reason := "released"
		if assignment.ReleaseReason() != nil {
			reason = *assignment.ReleaseReason()
		}
		if err := r.assignments.Release(ctx, ship.ShipSymbol(), ship.PlayerID(), reason); err != nil {
			return fmt.Errorf("failed to release assignment for %s: %w", ship.ShipSymbol(), err)
		}
	}

	// Assignment changed, so cached fleet listings are stale.
	r.listCache.Delete(ship.PlayerID().Value())
	return nil
}

func (r *ShipRepository) Navigate(ctx context.Context, ship *navigation.Ship, destination *shared.Waypoint, playerID shared.PlayerID) (*navigation.NavigationResult, error) {
	token, err := r.token(ctx, playerID)
	if err != nil {
		return nil, err
	}

	result, err := r.client.NavigateShip(ctx, ship.ShipSymbol(), destination.Symbol, token)
	if err != nil {
		return nil, err
	}

	arrival, parseErr := time.Parse(time.RFC3339, result.ArrivalTime)
	if parseErr != nil {
		return nil, shared.WrapDomainError(shared.ErrInternal,
			fmt.Sprintf("unparseable arrival time %q", result.ArrivalTime), parseErr)
	}
	if err := ship.StartTransit(destination, arrival); err != nil {
		return nil, err
	}
	ship.UpdateFuelFromAPI(result.FuelCurrent, result.FuelCapacity)
	return result, nil
}

func (r *ShipRepository) Dock(ctx context.Context, ship *navigation.Ship, playerID shared.PlayerID) error {
	token, err := r.token(ctx, playerID)
	if err != nil {
		return err
	}

	if err := r.client.DockShip(ctx, ship.ShipSymbol(), token); err != nil && !isAlreadyInState(err, "already docked") {
		return err
	}
	_, err = ship.EnsureDocked()
	return err
}

func (r *ShipRepository) Orbit(ctx context.Context, ship *navigation.Ship, playerID shared.PlayerID) error {
	token, err := r.token(ctx, playerID)
	if err != nil {
		return err
	}

	if err := r.client.OrbitShip(ctx, ship.ShipSymbol(), token); err != nil && !isAlreadyInState(err, "already in orbit") {
		return err
	}
	_, err = ship.EnsureInOrbit()
	return err
}

func (r *ShipRepository) Refuel(ctx context.Context, ship *navigation.Ship, playerID shared.PlayerID, units *int) (*navigation.RefuelResult, error) {
	token, err := r.token(ctx, playerID)
	if err != nil {
		return nil, err
	}

	result, err := r.client.RefuelShip(ctx, ship.ShipSymbol(), token, units)
	if err != nil {
		return nil, err
	}

	capacity := ship.Fuel().Capacity
	current := ship.Fuel().Current + result.FuelAdded
	if current > capacity {
		current = capacity
	}
	ship.UpdateFuelFromAPI(current, capacity)
	return result, nil
}

func (r *ShipRepository) SetFlightMode(ctx context.Context, ship *navigation.Ship, playerID shared.PlayerID, mode shared.FlightMode) error {
	token, err := r.token(ctx, playerID)
	if err != nil {
		return err
	}

	if err := r.client.SetFlightMode(ctx, ship.ShipSymbol(), mode.Name(), token); err != nil {
		return err
	}
	ship.SetFlightMode(mode)
	return nil
}

func (r *ShipRepository) JettisonCargo(ctx context.Context, ship *navigation.Ship, playerID shared.PlayerID, goodSymbol string, units int) error {
	token, err := r.token(ctx, playerID)
	if err != nil {
		return err
	}
	return r.client.JettisonCargo(ctx, ship.ShipSymbol(), goodSymbol, units, token)
}

// isAlreadyInState detects the API's rejection of a no-op dock or orbit. The
// command's intent is already satisfied, so callers treat it as success.
func isAlreadyInState(err error, phrase string) bool {
	var remote *remoteError
	if !errors.As(err, &remote) {
		return false
	}
	return strings.Contains(strings.ToLower(remote.Message), phrase)
}

func (r *ShipRepository) toDomain(ctx context.Context, data *navigation.ShipData, playerID shared.PlayerID) (*navigation.Ship, error) {
	location := r.resolveWaypoint(ctx, data.Location, playerID)

	fuel, err := shared.NewFuel(data.FuelCurrent, data.FuelCapacity)
	if err != nil {
		return nil, err
	}

	var cargo *shared.Cargo
	if data.Cargo != nil {
		items := make([]shared.CargoItem, len(data.Cargo.Inventory))
		for i, item := range data.Cargo.Inventory {
			items[i] = shared.CargoItem{Symbol: item.Symbol, Units: item.Units}
		}
		cargo, err = shared.NewCargo(data.Cargo.Capacity, data.Cargo.Units, items)
		if err != nil {
			return nil, err
		}
	} else {
		cargo = shared.EmptyCargo(0)
	}

	ship, err := navigation.NewShip(
		data.Symbol,
		playerID,
		location,
		fuel,
		cargo,
		data.EngineSpeed,
		data.FrameSymbol,
		data.Role,
		navigation.NavStatus(data.NavStatus),
	)
	if err != nil {
		return nil, err
	}

	if mode, err := shared.ParseFlightMode(data.FlightMode); err == nil {
		ship.SetFlightMode(mode)
	}
	if data.ArrivalTime != "" {
		if arrival, err := time.Parse(time.RFC3339, data.ArrivalTime); err == nil {
			ship.SetArrivalTime(arrival)
		}
	}
	return ship, nil
}

// resolveWaypoint turns a waypoint symbol into a full waypoint. It tries the
// waypoint store first, then the system graph. A placeholder with zero
// coordinates is a last resort so a missing chart never blocks a ship read.
func (r *ShipRepository) resolveWaypoint(ctx context.Context, symbol string, playerID shared.PlayerID) *shared.Waypoint {
	if symbol == "" {
		return nil
	}
	systemSymbol := shared.ExtractSystemSymbol(symbol)

	if wp, err := r.waypoints.FindBySymbol(ctx, symbol, systemSymbol); err == nil && wp != nil {
		return wp
	}

	if result, err := r.graphs.GetGraph(ctx, systemSymbol, false, playerID); err == nil && result.Graph != nil {
		if wp, err := result.Graph.GetWaypoint(symbol); err == nil {
			return wp
		}
	}

	r.log.Warn().
		Str("waypoint", symbol).
		Str("system", systemSymbol).
		Msg("waypoint unknown, using placeholder coordinates")
	placeholder, _ := shared.NewWaypoint(symbol, 0, 0)
	return placeholder
}

func (r *ShipRepository) attachAssignment(ctx context.Context, ship *navigation.Ship, playerID shared.PlayerID) {
	lock, err := r.assignments.FindByShip(ctx, ship.ShipSymbol(), playerID)
	if err != nil {
		r.log.Warn().Err(err).Str("ship", ship.ShipSymbol()).Msg("failed to load ship assignment")
		ship.SetAssignment(navigation.NewIdleAssignment())
		return
	}
	ship.SetAssignment(assignmentFromLock(lock))
}

// attachAssignments enriches a fleet in one read instead of one per ship.
func (r *ShipRepository) attachAssignments(ctx context.Context, ships []*navigation.Ship, playerID shared.PlayerID) {
	locks, err := r.assignments.FindActiveByPlayer(ctx, playerID)
	if err != nil {
		r.log.Warn().Err(err).Msg("failed to load ship assignments")
		for _, ship := range ships {
			ship.SetAssignment(navigation.NewIdleAssignment())
		}
		return
	}

	byShip := make(map[string]*container.ShipAssignment, len(locks))
	for _, lock := range locks {
		byShip[lock.ShipSymbol()] = lock
	}
	for _, ship := range ships {
		ship.SetAssignment(assignmentFromLock(byShip[ship.ShipSymbol()]))
	}
}

func assignmentFromLock(lock *container.ShipAssignment) *navigation.ShipAssignment {
	if lock == nil || !lock.IsActive() {
		return navigation.NewIdleAssignment()
	}
	return navigation.ReconstructAssignment(
		lock.ContainerID(),
		navigation.AssignmentStatusActive,
		lock.AssignedAt(),
		lock.ReleasedAt(),
		lock.ReleaseReason(),
	)
}
