package helpers

import (
	"context"
	"fmt"
	"sync"

	"github.com/orbitalmachines/astrogator/internal/domain/container"
	"github.com/orbitalmachines/astrogator/internal/domain/daemon"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// MockContainerLauncher implements the supervisor's launch seam in memory,
// including the find-or-create rule: one non-terminal container per
// (player, ship, kind). Safe for concurrent Launch calls, so idempotency
// races are testable.
type MockContainerLauncher struct {
	mu       sync.Mutex
	active   map[string]string // (player,ship,kind) key -> container id
	launched []daemon.LaunchSpec
	stopped  []string
	nextID   int

	// LaunchErr, when set, fails every Launch call.
	LaunchErr error
}

func NewMockContainerLauncher() *MockContainerLauncher {
	return &MockContainerLauncher{
		active: make(map[string]string),
	}
}

func (m *MockContainerLauncher) Launch(ctx context.Context, spec daemon.LaunchSpec) (*daemon.LaunchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.LaunchErr != nil {
		return nil, m.LaunchErr
	}

	key := launchKey(spec.PlayerID, spec.ShipSymbol, spec.Kind)
	if id, ok := m.active[key]; ok {
		return &daemon.LaunchResult{ContainerID: id, Reused: true}, nil
	}

	m.nextID++
	id := fmt.Sprintf("%s-%s-%08d", spec.Kind, spec.ShipSymbol, m.nextID)
	m.active[key] = id
	m.launched = append(m.launched, spec)

	return &daemon.LaunchResult{ContainerID: id, Reused: false}, nil
}

func (m *MockContainerLauncher) StopContainer(ctx context.Context, containerID string, playerID shared.PlayerID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, id := range m.active {
		if id == containerID {
			delete(m.active, key)
			m.stopped = append(m.stopped, containerID)
			return nil
		}
	}
	return fmt.Errorf("container %s not found", containerID)
}

// Launched returns the specs that created new containers, in launch order.
func (m *MockContainerLauncher) Launched() []daemon.LaunchSpec {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]daemon.LaunchSpec{}, m.launched...)
}

// Stopped returns the ids StopContainer was called with.
func (m *MockContainerLauncher) Stopped() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.stopped...)
}

// ActiveCount reports how many containers are currently running.
func (m *MockContainerLauncher) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

func launchKey(playerID shared.PlayerID, shipSymbol string, kind container.ContainerType) string {
	return fmt.Sprintf("%d|%s|%s", playerID.Value(), shipSymbol, kind)
}

var _ daemon.ContainerLauncher = (*MockContainerLauncher)(nil)
