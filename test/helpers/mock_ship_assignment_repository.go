package helpers

import (
	"context"
	"sync"

	"github.com/orbitalmachines/astrogator/internal/domain/container"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

type assignmentKey struct {
	shipSymbol string
	playerID   shared.PlayerID
}

// MockShipAssignmentRepository keeps ship locks in a map and enforces the
// one-active-lock-per-ship rule the way the real persistence layer does:
// assigning an already locked ship fails with ShipAlreadyAssigned.
type MockShipAssignmentRepository struct {
	mu       sync.Mutex
	active   map[assignmentKey]*container.ShipAssignment
	released []*container.ShipAssignment

	AssignErr error
}

func NewMockShipAssignmentRepository() *MockShipAssignmentRepository {
	return &MockShipAssignmentRepository{
		active: make(map[assignmentKey]*container.ShipAssignment),
	}
}

func (m *MockShipAssignmentRepository) Assign(ctx context.Context, assignment *container.ShipAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.AssignErr != nil {
		return m.AssignErr
	}

	key := assignmentKey{assignment.ShipSymbol(), assignment.PlayerID()}
	if existing, ok := m.active[key]; ok && existing.ContainerID() != assignment.ContainerID() {
		return shared.NewDomainError(shared.ErrShipAlreadyAssigned,
			"ship "+assignment.ShipSymbol()+" is assigned to container "+existing.ContainerID())
	}
	m.active[key] = assignment
	return nil
}

func (m *MockShipAssignmentRepository) FindByShip(ctx context.Context, shipSymbol string, playerID shared.PlayerID) (*container.ShipAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active[assignmentKey{shipSymbol, playerID}], nil
}

func (m *MockShipAssignmentRepository) FindByContainer(ctx context.Context, containerID string, playerID shared.PlayerID) ([]*container.ShipAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matches []*container.ShipAssignment
	for _, a := range m.active {
		if a.ContainerID() == containerID && a.PlayerID() == playerID {
			matches = append(matches, a)
		}
	}
	return matches, nil
}

func (m *MockShipAssignmentRepository) FindActiveByPlayer(ctx context.Context, playerID shared.PlayerID) ([]*container.ShipAssignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matches []*container.ShipAssignment
	for key, a := range m.active {
		if key.playerID == playerID {
			matches = append(matches, a)
		}
	}
	return matches, nil
}

func (m *MockShipAssignmentRepository) Release(ctx context.Context, shipSymbol string, playerID shared.PlayerID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := assignmentKey{shipSymbol, playerID}
	if a, ok := m.active[key]; ok {
		a.ForceRelease(reason)
		m.released = append(m.released, a)
		delete(m.active, key)
	}
	return nil
}

func (m *MockShipAssignmentRepository) ReleaseByContainer(ctx context.Context, containerID string, playerID shared.PlayerID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, a := range m.active {
		if a.ContainerID() == containerID && a.PlayerID() == playerID {
			a.ForceRelease(reason)
			m.released = append(m.released, a)
			delete(m.active, key)
		}
	}
	return nil
}

func (m *MockShipAssignmentRepository) ReleaseAllActive(ctx context.Context, reason string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := len(m.active)
	for key, a := range m.active {
		a.ForceRelease(reason)
		m.released = append(m.released, a)
		delete(m.active, key)
	}
	return count, nil
}

// ActiveCount reports how many locks are currently held.
func (m *MockShipAssignmentRepository) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// Released returns every lock released so far, in release order.
func (m *MockShipAssignmentRepository) Released() []*container.ShipAssignment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*container.ShipAssignment{}, m.released...)
}
