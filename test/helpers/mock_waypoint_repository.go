package helpers

import (
	"context"
	"fmt"

	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/internal/domain/system"
)

// MockWaypointRepository serves waypoints from memory, preserving insertion
// order for deterministic listings.
type MockWaypointRepository struct {
	waypoints []*shared.Waypoint
}

func NewMockWaypointRepository() *MockWaypointRepository {
	return &MockWaypointRepository{}
}

// AddWaypoint stores a waypoint for lookup.
func (m *MockWaypointRepository) AddWaypoint(waypoint *shared.Waypoint) {
	m.waypoints = append(m.waypoints, waypoint)
}

func (m *MockWaypointRepository) FindBySymbol(ctx context.Context, symbol, systemSymbol string) (*shared.Waypoint, error) {
	for _, waypoint := range m.waypoints {
		if waypoint.Symbol == symbol {
			return waypoint, nil
		}
	}
	return nil, fmt.Errorf("waypoint %s not found", symbol)
}

func (m *MockWaypointRepository) ListBySystem(ctx context.Context, systemSymbol string) ([]*shared.Waypoint, error) {
	var matches []*shared.Waypoint
	for _, waypoint := range m.waypoints {
		if waypoint.SystemSymbol == systemSymbol {
			matches = append(matches, waypoint)
		}
	}
	return matches, nil
}

func (m *MockWaypointRepository) ListBySystemWithTrait(ctx context.Context, systemSymbol, trait string) ([]*shared.Waypoint, error) {
	var matches []*shared.Waypoint
	for _, waypoint := range m.waypoints {
		if waypoint.SystemSymbol != systemSymbol {
			continue
		}
		for _, t := range waypoint.Traits {
			if t == trait {
				matches = append(matches, waypoint)
				break
			}
		}
	}
	return matches, nil
}

func (m *MockWaypointRepository) Save(ctx context.Context, waypoint *shared.Waypoint) error {
	m.AddWaypoint(waypoint)
	return nil
}

func (m *MockWaypointRepository) SaveBatch(ctx context.Context, waypoints []*shared.Waypoint) error {
	m.waypoints = append(m.waypoints, waypoints...)
	return nil
}

var _ system.WaypointRepository = (*MockWaypointRepository)(nil)
