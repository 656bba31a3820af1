package helpers

import (
	"context"
	"sync"

	"github.com/orbitalmachines/astrogator/internal/domain/player"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// MockPlayerRepository keeps players in memory, assigning sequential IDs on
// Add the way the real store does.
type MockPlayerRepository struct {
	mu      sync.Mutex
	players map[int]*player.Player
	nextID  int

	// Err fails every call when set.
	Err error
}

func NewMockPlayerRepository() *MockPlayerRepository {
	return &MockPlayerRepository{
		players: make(map[int]*player.Player),
		nextID:  1,
	}
}

// AddPlayer seeds a player without going through Add's ID assignment. A zero
// ID gets the next sequential one.
func (m *MockPlayerRepository) AddPlayer(p *player.Player) shared.PlayerID {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.ID.Value() == 0 {
		pid, err := shared.NewPlayerID(m.nextID)
		if err != nil {
			panic(err) // nextID starts at 1 and only grows
		}
		p.ID = pid
		m.nextID++
	} else if p.ID.Value() >= m.nextID {
		m.nextID = p.ID.Value() + 1
	}
	m.players[p.ID.Value()] = p
	return p.ID
}

func (m *MockPlayerRepository) FindByID(ctx context.Context, playerID shared.PlayerID) (*player.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	p, ok := m.players[playerID.Value()]
	if !ok {
		return nil, shared.NewDomainErrorf(shared.ErrPlayerNotFound, "player not found: %s", playerID.String())
	}
	return p, nil
}

func (m *MockPlayerRepository) FindByAgentSymbol(ctx context.Context, agentSymbol string) (*player.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	for _, p := range m.players {
		if p.AgentSymbol == agentSymbol {
			return p, nil
		}
	}
	return nil, shared.NewDomainErrorf(shared.ErrPlayerNotFound, "player not found: %s", agentSymbol)
}

func (m *MockPlayerRepository) FindAll(ctx context.Context) ([]*player.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	players := make([]*player.Player, 0, len(m.players))
	for _, p := range m.players {
		players = append(players, p)
	}
	return players, nil
}

func (m *MockPlayerRepository) Add(ctx context.Context, p *player.Player) error {
	if m.Err != nil {
		return m.Err
	}
	m.AddPlayer(p)
	return nil
}

func (m *MockPlayerRepository) UpdateCredits(ctx context.Context, playerID shared.PlayerID, credits int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	p, ok := m.players[playerID.Value()]
	if !ok {
		return shared.NewDomainErrorf(shared.ErrPlayerNotFound, "player not found: %s", playerID.String())
	}
	p.Credits = credits
	return nil
}

var _ player.Repository = (*MockPlayerRepository)(nil)
