package helpers

import (
	"context"
	"fmt"
	"time"

	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// MockShipRepository is an in-memory ShipRepository. Ships are keyed by
// symbol; remote operations mutate the stored entity the way the live
// repository would, minus the API round trip.
type MockShipRepository struct {
	Ships map[string]*navigation.Ship

	// NavigateErr, when set, fails every Navigate call.
	NavigateErr error

	// FindErr, when set, fails every lookup.
	FindErr error
}

func NewMockShipRepository() *MockShipRepository {
	return &MockShipRepository{
		Ships: make(map[string]*navigation.Ship),
	}
}

// AddShip stores a ship for lookup by symbol.
func (m *MockShipRepository) AddShip(ship *navigation.Ship) {
	m.Ships[ship.ShipSymbol()] = ship
}

func (m *MockShipRepository) FindBySymbol(ctx context.Context, symbol string, playerID shared.PlayerID) (*navigation.Ship, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	ship, ok := m.Ships[symbol]
	if !ok {
		return nil, shared.NewDomainErrorf(shared.ErrShipNotFound, "ship %s not found", symbol)
	}
	return ship, nil
}

func (m *MockShipRepository) FindAllByPlayer(ctx context.Context, playerID shared.PlayerID) ([]*navigation.Ship, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	var ships []*navigation.Ship
	for _, ship := range m.Ships {
		if ship.PlayerID() == playerID {
			ships = append(ships, ship)
		}
	}
	return ships, nil
}

func (m *MockShipRepository) FindByContainer(ctx context.Context, containerID string, playerID shared.PlayerID) ([]*navigation.Ship, error) {
	var ships []*navigation.Ship
	for _, ship := range m.Ships {
		if ship.PlayerID() == playerID && ship.ContainerID() == containerID {
			ships = append(ships, ship)
		}
	}
	return ships, nil
}

func (m *MockShipRepository) FindIdleByPlayer(ctx context.Context, playerID shared.PlayerID) ([]*navigation.Ship, error) {
	var ships []*navigation.Ship
	for _, ship := range m.Ships {
		if ship.PlayerID() == playerID && ship.IsIdle() {
			ships = append(ships, ship)
		}
	}
	return ships, nil
}

func (m *MockShipRepository) Save(ctx context.Context, ship *navigation.Ship) error {
	m.Ships[ship.ShipSymbol()] = ship
	return nil
}

// Navigate moves the ship instantly: transit starts and arrival is now, so
// tests never wait.
func (m *MockShipRepository) Navigate(ctx context.Context, ship *navigation.Ship, destination *shared.Waypoint, playerID shared.PlayerID) (*navigation.NavigationResult, error) {
	if m.NavigateErr != nil {
		return nil, m.NavigateErr
	}

	if _, err := ship.EnsureInOrbit(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := ship.StartTransit(destination, now); err != nil {
		return nil, err
	}
	if err := ship.Arrive(); err != nil {
		return nil, err
	}

	return &navigation.NavigationResult{
		Destination:  destination.Symbol,
		ArrivalTime:  now.Format(time.RFC3339),
		FuelConsumed: 0,
		FuelCurrent:  ship.Fuel().Current,
		FuelCapacity: ship.FuelCapacity(),
	}, nil
}

func (m *MockShipRepository) Dock(ctx context.Context, ship *navigation.Ship, playerID shared.PlayerID) error {
	_, err := ship.EnsureDocked()
	return err
}

func (m *MockShipRepository) Orbit(ctx context.Context, ship *navigation.Ship, playerID shared.PlayerID) error {
	_, err := ship.EnsureInOrbit()
	return err
}

func (m *MockShipRepository) Refuel(ctx context.Context, ship *navigation.Ship, playerID shared.PlayerID, units *int) (*navigation.RefuelResult, error) {
	capacity := ship.FuelCapacity()
	added := capacity - ship.Fuel().Current
	if units != nil && *units < added {
		added = *units
	}
	ship.UpdateFuelFromAPI(ship.Fuel().Current+added, capacity)

	return &navigation.RefuelResult{
		FuelAdded:    added,
		CreditsCost:  added * 2,
		AgentCredits: 100000,
	}, nil
}

func (m *MockShipRepository) SetFlightMode(ctx context.Context, ship *navigation.Ship, playerID shared.PlayerID, mode shared.FlightMode) error {
	ship.SetFlightMode(mode)
	return nil
}

func (m *MockShipRepository) JettisonCargo(ctx context.Context, ship *navigation.Ship, playerID shared.PlayerID, goodSymbol string, units int) error {
	if ship.CargoUnits() < units {
		return fmt.Errorf("cannot jettison %d units of %s: only %d aboard", units, goodSymbol, ship.CargoUnits())
	}
	return nil
}

var _ navigation.ShipRepository = (*MockShipRepository)(nil)
