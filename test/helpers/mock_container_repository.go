package helpers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/orbitalmachines/astrogator/internal/domain/container"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// MockContainerRepository stores containers in a map keyed by id. Insert
// remembers the command type so boot recovery tests can round-trip it.
type MockContainerRepository struct {
	mu           sync.Mutex
	containers   map[string]*container.Container
	commandTypes map[string]string

	InsertErr error
	UpdateErr error
}

func NewMockContainerRepository() *MockContainerRepository {
	return &MockContainerRepository{
		containers:   make(map[string]*container.Container),
		commandTypes: make(map[string]string),
	}
}

func (m *MockContainerRepository) Insert(ctx context.Context, c *container.Container, commandType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.InsertErr != nil {
		return m.InsertErr
	}
	m.containers[c.ID()] = c
	m.commandTypes[c.ID()] = commandType
	return nil
}

func (m *MockContainerRepository) Update(ctx context.Context, c *container.Container) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.containers[c.ID()] = c
	return nil
}

func (m *MockContainerRepository) FindByID(ctx context.Context, containerID string, playerID shared.PlayerID) (*container.Container, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.containers[containerID]
	if !ok || c.PlayerID() != playerID {
		return nil, nil
	}
	return c, nil
}

func (m *MockContainerRepository) FindAllByPlayer(ctx context.Context, playerID shared.PlayerID) ([]*container.Container, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matches []*container.Container
	for _, c := range m.containers {
		if c.PlayerID() == playerID {
			matches = append(matches, c)
		}
	}
	return matches, nil
}

func (m *MockContainerRepository) FindNonTerminal(ctx context.Context) ([]*container.Container, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matches []*container.Container
	for _, c := range m.containers {
		switch c.Status() {
		case container.ContainerStatusPending, container.ContainerStatusStarting, container.ContainerStatusRunning:
			matches = append(matches, c)
		}
	}
	return matches, nil
}

func (m *MockContainerRepository) CommandType(ctx context.Context, containerID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	commandType, ok := m.commandTypes[containerID]
	if !ok {
		return "", fmt.Errorf("no command type stored for container %s", containerID)
	}
	return commandType, nil
}

func (m *MockContainerRepository) Delete(ctx context.Context, containerID string, playerID shared.PlayerID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.containers[containerID]; ok && c.PlayerID() == playerID {
		delete(m.containers, containerID)
		delete(m.commandTypes, containerID)
	}
	return nil
}

func (m *MockContainerRepository) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []string
	for id, c := range m.containers {
		if !c.IsTerminal() {
			continue
		}
		stopped := c.StoppedAt()
		if stopped == nil || !stopped.Before(cutoff) {
			continue
		}
		ids = append(ids, id)
	}
	for _, id := range ids {
		delete(m.containers, id)
		delete(m.commandTypes, id)
	}
	return ids, nil
}

// Stored returns the persisted container with the given id, nil if absent.
func (m *MockContainerRepository) Stored(containerID string) *container.Container {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.containers[containerID]
}

// Count reports how many containers have been persisted.
func (m *MockContainerRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.containers)
}
