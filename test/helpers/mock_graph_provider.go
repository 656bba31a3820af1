package helpers

import (
	"context"
	"fmt"
	"sync"

	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/internal/domain/system"
)

// MockGraphProvider serves pre-built navigation graphs from memory.
type MockGraphProvider struct {
	mu     sync.RWMutex
	graphs map[string]*system.NavigationGraph

	// GetGraphFunc, when set, takes over GetGraph entirely. Tests use it to
	// mimic the chart-and-persist side effect of the real provider.
	GetGraphFunc func(ctx context.Context, systemSymbol string, forceRefresh bool, playerID shared.PlayerID) (*system.GraphLoadResult, error)

	// Err, when set, fails every GetGraph call.
	Err error
}

func NewMockGraphProvider() *MockGraphProvider {
	return &MockGraphProvider{
		graphs: make(map[string]*system.NavigationGraph),
	}
}

// SetGraph registers the graph returned for a system.
func (m *MockGraphProvider) SetGraph(graph *system.NavigationGraph) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.graphs[graph.SystemSymbol] = graph
}

func (m *MockGraphProvider) GetGraph(ctx context.Context, systemSymbol string, forceRefresh bool, playerID shared.PlayerID) (*system.GraphLoadResult, error) {
	if m.GetGraphFunc != nil {
		return m.GetGraphFunc(ctx, systemSymbol, forceRefresh, playerID)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.Err != nil {
		return nil, m.Err
	}

	graph, ok := m.graphs[systemSymbol]
	if !ok {
		return nil, fmt.Errorf("no graph configured for system %s", systemSymbol)
	}

	return &system.GraphLoadResult{
		Graph:   graph,
		Source:  system.GraphSourceMemory,
		Message: "test graph",
	}, nil
}

var _ system.GraphProvider = (*MockGraphProvider)(nil)
