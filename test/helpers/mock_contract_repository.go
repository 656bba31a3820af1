package helpers

import (
	"context"
	"sync"

	"github.com/orbitalmachines/astrogator/internal/domain/contract"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// MockContractRepository is an in-memory contract.Repository. Contracts are
// keyed by id; FindActive mirrors the real store's accepted-and-unfulfilled
// filter.
type MockContractRepository struct {
	mu        sync.Mutex
	contracts map[string]*contract.Contract

	// Err fails every call when set.
	Err error
}

func NewMockContractRepository() *MockContractRepository {
	return &MockContractRepository{contracts: make(map[string]*contract.Contract)}
}

// AddContract seeds a contract, bypassing Upsert error injection.
func (m *MockContractRepository) AddContract(c *contract.Contract) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contracts[c.ContractID()] = c
}

func (m *MockContractRepository) FindByID(ctx context.Context, contractID string, playerID shared.PlayerID) (*contract.Contract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	c, exists := m.contracts[contractID]
	if !exists || !c.PlayerID().Equals(playerID) {
		return nil, shared.NewDomainErrorf(shared.ErrContractNotFound, "contract not found: %s", contractID)
	}
	return c, nil
}

func (m *MockContractRepository) FindActive(ctx context.Context, playerID shared.PlayerID) ([]*contract.Contract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	var active []*contract.Contract
	for _, c := range m.contracts {
		if c.PlayerID().Equals(playerID) && c.Accepted() && !c.Fulfilled() {
			active = append(active, c)
		}
	}
	return active, nil
}

func (m *MockContractRepository) Upsert(ctx context.Context, c *contract.Contract) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}

	m.contracts[c.ContractID()] = c
	return nil
}

// Stored returns the contract as last persisted, nil when never saved.
func (m *MockContractRepository) Stored(contractID string) *contract.Contract {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contracts[contractID]
}

var _ contract.Repository = (*MockContractRepository)(nil)
