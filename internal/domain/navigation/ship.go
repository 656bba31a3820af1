package navigation

import (
	"fmt"
	"time"

	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// NavStatus represents ship navigation status.
type NavStatus string

const (
	NavStatusDocked    NavStatus = "DOCKED"
	NavStatusInOrbit   NavStatus = "IN_ORBIT"
	NavStatusInTransit NavStatus = "IN_TRANSIT"
)

var validNavStatuses = map[NavStatus]bool{
	NavStatusDocked:    true,
	NavStatusInOrbit:   true,
	NavStatusInTransit: true,
}

// Ship is a player's spacecraft. The remote API is the source of truth for
// ship state; this entity mirrors the latest fetched snapshot plus the local
// container assignment, which is ours alone.
//
// Navigation state machine:
//
//	DOCKED → EnsureInOrbit() → IN_ORBIT
//	IN_ORBIT → StartTransit() → IN_TRANSIT
//	IN_TRANSIT → Arrive() → IN_ORBIT
//	IN_ORBIT → EnsureDocked() → DOCKED
type Ship struct {
	shipSymbol      string
	playerID        shared.PlayerID
	currentLocation *shared.Waypoint
	fuel            *shared.Fuel
	cargo           *shared.Cargo
	engineSpeed     int
	frameSymbol     string
	role            string
	navStatus       NavStatus
	flightMode      shared.FlightMode
	arrivalTime     *time.Time
	assignment      *ShipAssignment
}

// NewShip creates a ship entity with validation.
func NewShip(
	shipSymbol string,
	playerID shared.PlayerID,
	currentLocation *shared.Waypoint,
	fuel *shared.Fuel,
	cargo *shared.Cargo,
	engineSpeed int,
	frameSymbol string,
	role string,
	navStatus NavStatus,
) (*Ship, error) {
	s := &Ship{
		shipSymbol:      shipSymbol,
		playerID:        playerID,
		currentLocation: currentLocation,
		fuel:            fuel,
		cargo:           cargo,
		engineSpeed:     engineSpeed,
		frameSymbol:     frameSymbol,
		role:            role,
		navStatus:       navStatus,
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Ship) validate() error {
	if s.shipSymbol == "" {
		return shared.NewValidationError("ship_symbol", "cannot be empty")
	}
	if s.playerID.IsZero() {
		return shared.NewValidationError("player_id", "must be positive")
	}
	if s.fuel == nil {
		return shared.NewValidationError("fuel", "cannot be nil")
	}
	if s.cargo == nil {
		return shared.NewValidationError("cargo", "cannot be nil")
	}
	if s.engineSpeed <= 0 {
		return shared.NewValidationError("engine_speed", "must be positive")
	}
	if !validNavStatuses[s.navStatus] {
		return shared.NewValidationError("nav_status", fmt.Sprintf("invalid value: %s", s.navStatus))
	}
	return nil
}

func (s *Ship) ShipSymbol() string                { return s.shipSymbol }
func (s *Ship) PlayerID() shared.PlayerID         { return s.playerID }
func (s *Ship) CurrentLocation() *shared.Waypoint { return s.currentLocation }
func (s *Ship) Fuel() *shared.Fuel                { return s.fuel }
func (s *Ship) FuelCapacity() int                 { return s.fuel.Capacity }
func (s *Ship) Cargo() *shared.Cargo              { return s.cargo }
func (s *Ship) EngineSpeed() int                  { return s.engineSpeed }
func (s *Ship) FrameSymbol() string               { return s.frameSymbol }
func (s *Ship) Role() string                      { return s.role }
func (s *Ship) NavStatus() NavStatus              { return s.navStatus }

func (s *Ship) IsAtLocation(symbol string) bool {
	return s.currentLocation != nil && s.currentLocation.Symbol == symbol
}

// IsProbe reports whether the ship is a probe frame. Probes carry no fuel
// tank, so refuel planning skips them.
func (s *Ship) IsProbe() bool {
	return s.frameSymbol == "FRAME_PROBE"
}

// IsScoutType reports whether the ship suits market scouting duty.
func (s *Ship) IsScoutType() bool {
	return s.role == "SATELLITE"
}

// Navigation state

// EnsureInOrbit moves a docked ship to orbit. Returns true when a transition
// happened, false if already in orbit.
func (s *Ship) EnsureInOrbit() (bool, error) {
	if s.navStatus == NavStatusInOrbit {
		return false, nil
	}
	if s.navStatus == NavStatusInTransit {
		return false, shared.NewDomainError(shared.ErrShipNotInOrbit, "cannot orbit while in transit")
	}
	s.navStatus = NavStatusInOrbit
	return true, nil
}

// EnsureDocked docks an orbiting ship. Returns true when a transition
// happened, false if already docked.
func (s *Ship) EnsureDocked() (bool, error) {
	if s.navStatus == NavStatusDocked {
		return false, nil
	}
	if s.navStatus == NavStatusInTransit {
		return false, shared.NewDomainError(shared.ErrShipNotDocked, "cannot dock while in transit")
	}
	s.navStatus = NavStatusDocked
	return true, nil
}

// StartTransit begins transit to destination. The location is set to the
// destination immediately; arrival time says when the ship is actually there.
func (s *Ship) StartTransit(destination *shared.Waypoint, arrival time.Time) error {
	if s.navStatus != NavStatusInOrbit {
		return shared.NewDomainErrorf(shared.ErrShipNotInOrbit,
			"ship must be in orbit to navigate, currently %s", s.navStatus)
	}
	if s.currentLocation.Symbol == destination.Symbol {
		return shared.NewValidationError("destination", "cannot transit to current location")
	}
	s.navStatus = NavStatusInTransit
	s.currentLocation = destination
	s.arrivalTime = &arrival
	return nil
}

// Arrive transitions from in-transit to orbit.
func (s *Ship) Arrive() error {
	if s.navStatus != NavStatusInTransit {
		return shared.NewDomainErrorf(shared.ErrShipNotInOrbit,
			"ship must be in transit to arrive, currently %s", s.navStatus)
	}
	s.navStatus = NavStatusInOrbit
	s.arrivalTime = nil
	return nil
}

func (s *Ship) IsDocked() bool    { return s.navStatus == NavStatusDocked }
func (s *Ship) IsInOrbit() bool   { return s.navStatus == NavStatusInOrbit }
func (s *Ship) IsInTransit() bool { return s.navStatus == NavStatusInTransit }

// FlightMode returns the current flight mode; ships default to CRUISE.
func (s *Ship) FlightMode() shared.FlightMode {
	return s.flightMode
}

func (s *Ship) SetFlightMode(mode shared.FlightMode) {
	s.flightMode = mode
}

// ArrivalTime is when an IN_TRANSIT ship reaches its destination, nil
// otherwise.
func (s *Ship) ArrivalTime() *time.Time {
	return s.arrivalTime
}

// TimeUntilArrival returns the remaining transit time as seen by clock.
func (s *Ship) TimeUntilArrival(clock shared.Clock) time.Duration {
	if s.arrivalTime == nil {
		return 0
	}
	remaining := s.arrivalTime.Sub(clock.Now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// API state refresh. Repositories call these after every remote command so
// the entity tracks what the API reported, not what we predicted.

func (s *Ship) UpdateFuelFromAPI(current, capacity int) {
	fuel, err := shared.NewFuel(current, capacity)
	if err == nil {
		s.fuel = fuel
	}
}

func (s *Ship) SetCargo(c *shared.Cargo) {
	if c != nil {
		s.cargo = c
	}
}

func (s *Ship) SetLocation(w *shared.Waypoint) {
	s.currentLocation = w
}

func (s *Ship) SetNavStatus(status NavStatus) {
	s.navStatus = status
}

func (s *Ship) SetArrivalTime(t time.Time) {
	s.arrivalTime = &t
}

// Cargo queries

func (s *Ship) CargoUnits() int {
	return s.cargo.Units()
}

func (s *Ship) CargoCapacity() int {
	return s.cargo.Capacity()
}

func (s *Ship) AvailableCargoSpace() int {
	return s.cargo.AvailableCapacity()
}

func (s *Ship) IsCargoFull() bool {
	return s.cargo.IsFull()
}

// Assignment management. Assignments are persisted via ShipRepository.Save.

// Assignment returns the current assignment, nil if never assigned.
func (s *Ship) Assignment() *ShipAssignment {
	return s.assignment
}

// IsIdle reports whether the ship is available for new work.
func (s *Ship) IsIdle() bool {
	return s.assignment == nil || s.assignment.IsIdle()
}

func (s *Ship) IsAssigned() bool {
	return s.assignment != nil && s.assignment.IsActive()
}

// ContainerID returns the assigned container id, empty when idle.
func (s *Ship) ContainerID() string {
	if s.assignment == nil {
		return ""
	}
	return s.assignment.ContainerID()
}

// AssignToContainer assigns the ship to a container operation.
func (s *Ship) AssignToContainer(containerID string, clock shared.Clock) error {
	if s.IsAssigned() {
		return fmt.Errorf("ship %s is already assigned to container %s",
			s.shipSymbol, s.assignment.ContainerID())
	}
	s.assignment = NewActiveAssignment(containerID, clock.Now())
	return nil
}

// Release frees the ship from its current assignment.
func (s *Ship) Release(reason string, clock shared.Clock) error {
	if !s.IsAssigned() {
		return fmt.Errorf("ship %s is not assigned to any container", s.shipSymbol)
	}
	s.assignment = s.assignment.Released(reason, clock.Now())
	return nil
}

// ForceRelease frees the ship regardless of current state. Used by daemon
// boot cleanup.
func (s *Ship) ForceRelease(reason string, clock shared.Clock) {
	if s.assignment == nil {
		s.assignment = NewIdleAssignment()
		return
	}
	s.assignment = s.assignment.Released(reason, clock.Now())
}

// SetAssignment restores assignment state from persistence.
func (s *Ship) SetAssignment(assignment *ShipAssignment) {
	s.assignment = assignment
}

func (s *Ship) String() string {
	return fmt.Sprintf("Ship(symbol=%s, location=%s, status=%s, fuel=%s)",
		s.shipSymbol, s.currentLocation.Symbol, s.navStatus, s.fuel)
}
