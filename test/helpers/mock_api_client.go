package helpers

import (
	"context"
	"fmt"
	"sync"

	"github.com/orbitalmachines/astrogator/internal/domain/contract"
	"github.com/orbitalmachines/astrogator/internal/domain/market"
	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/player"
	"github.com/orbitalmachines/astrogator/internal/domain/ports"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/internal/domain/system"
)

// PurchasedShip records one PurchaseShip call.
type PurchasedShip struct {
	ShipType       string
	WaypointSymbol string
}

// MockAPIClient is a canned-data stand-in for the remote game API. Read
// operations answer from the maps below, missing entries coming back as the
// 4xx domain errors the real gateway would produce. Anything a test needs to
// script (failures, sequences, side effects) goes through the XxxFunc hooks,
// which take precedence when set. Mutating verbs with no canned equivalent
// fail loudly when their hook is missing so absent expectations surface.
type MockAPIClient struct {
	mu sync.Mutex

	// Canned state, keyed the way the remote API keys it.
	Agents    map[string]*player.AgentData    // token -> agent
	ShipData  map[string]*navigation.ShipData // ship symbol -> snapshot
	Shipyards map[string]*ports.ShipyardData  // waypoint -> shipyard
	Markets   map[string]*market.Data         // waypoint -> market
	Contracts map[string]*contract.Data       // contract id -> contract

	// Err fails every call that has no hook set.
	Err error

	RegisterAgentFunc     func(ctx context.Context, agentSymbol, faction string) (*ports.RegistrationResult, error)
	GetAgentFunc          func(ctx context.Context, token string) (*player.AgentData, error)
	GetShipFunc           func(ctx context.Context, symbol, token string) (*navigation.ShipData, error)
	ListShipsFunc         func(ctx context.Context, token string) ([]*navigation.ShipData, error)
	NavigateShipFunc      func(ctx context.Context, symbol, destination, token string) (*navigation.NavigationResult, error)
	OrbitShipFunc         func(ctx context.Context, symbol, token string) error
	DockShipFunc          func(ctx context.Context, symbol, token string) error
	RefuelShipFunc        func(ctx context.Context, symbol, token string, units *int) (*navigation.RefuelResult, error)
	SetFlightModeFunc     func(ctx context.Context, symbol, flightMode, token string) error
	PurchaseCargoFunc     func(ctx context.Context, shipSymbol, goodSymbol string, units int, token string) (*ports.PurchaseResult, error)
	SellCargoFunc         func(ctx context.Context, shipSymbol, goodSymbol string, units int, token string) (*ports.SellResult, error)
	JettisonCargoFunc     func(ctx context.Context, shipSymbol, goodSymbol string, units int, token string) error
	NegotiateContractFunc func(ctx context.Context, shipSymbol, token string) (*contract.NegotiationResult, error)
	GetContractFunc       func(ctx context.Context, contractID, token string) (*contract.Data, error)
	AcceptContractFunc    func(ctx context.Context, contractID, token string) (*ports.ContractAgreementResult, error)
	DeliverContractFunc   func(ctx context.Context, contractID, shipSymbol, tradeSymbol string, units int, token string) (*ports.ContractDeliveryResult, error)
	FulfillContractFunc   func(ctx context.Context, contractID, token string) (*ports.ContractAgreementResult, error)
	GetMarketFunc         func(ctx context.Context, systemSymbol, waypointSymbol, token string) (*market.Data, error)
	GetShipyardFunc       func(ctx context.Context, systemSymbol, waypointSymbol, token string) (*ports.ShipyardData, error)
	PurchaseShipFunc      func(ctx context.Context, shipType, waypointSymbol, token string) (*ports.ShipPurchaseResult, error)
	ListWaypointsFunc     func(ctx context.Context, systemSymbol, token string, page, limit int) (*system.WaypointsListResponse, error)

	marketCalls   []string
	shipyardCalls []string
	purchases     []PurchasedShip
}

func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{
		Agents:    make(map[string]*player.AgentData),
		ShipData:  make(map[string]*navigation.ShipData),
		Shipyards: make(map[string]*ports.ShipyardData),
		Markets:   make(map[string]*market.Data),
		Contracts: make(map[string]*contract.Data),
	}
}

// MarketCalls returns the waypoints GetMarket was asked for, in order.
func (m *MockAPIClient) MarketCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.marketCalls...)
}

// ShipyardCalls returns the waypoints GetShipyard was asked for, in order.
func (m *MockAPIClient) ShipyardCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.shipyardCalls...)
}

// Purchases returns every PurchaseShip call recorded so far.
func (m *MockAPIClient) Purchases() []PurchasedShip {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PurchasedShip{}, m.purchases...)
}

func (m *MockAPIClient) RegisterAgent(ctx context.Context, agentSymbol, faction string) (*ports.RegistrationResult, error) {
	if m.RegisterAgentFunc != nil {
		return m.RegisterAgentFunc(ctx, agentSymbol, faction)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return nil, fmt.Errorf("no RegisterAgentFunc configured")
}

func (m *MockAPIClient) GetAgent(ctx context.Context, token string) (*player.AgentData, error) {
	if m.GetAgentFunc != nil {
		return m.GetAgentFunc(ctx, token)
	}
	if m.Err != nil {
		return nil, m.Err
	}

	m.mu.Lock()
	agent, ok := m.Agents[token]
	m.mu.Unlock()
	if !ok {
		return nil, shared.NewDomainError(shared.ErrHTTP4xx, "invalid token")
	}
	return agent, nil
}

func (m *MockAPIClient) GetShip(ctx context.Context, symbol, token string) (*navigation.ShipData, error) {
	if m.GetShipFunc != nil {
		return m.GetShipFunc(ctx, symbol, token)
	}
	if m.Err != nil {
		return nil, m.Err
	}

	m.mu.Lock()
	data, ok := m.ShipData[symbol]
	m.mu.Unlock()
	if !ok {
		return nil, shared.NewDomainErrorf(shared.ErrHTTP4xx, "ship %s not found", symbol)
	}
	return data, nil
}

func (m *MockAPIClient) ListShips(ctx context.Context, token string) ([]*navigation.ShipData, error) {
	if m.ListShipsFunc != nil {
		return m.ListShipsFunc(ctx, token)
	}
	if m.Err != nil {
		return nil, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	ships := make([]*navigation.ShipData, 0, len(m.ShipData))
	for _, data := range m.ShipData {
		ships = append(ships, data)
	}
	return ships, nil
}

func (m *MockAPIClient) NavigateShip(ctx context.Context, symbol, destination, token string) (*navigation.NavigationResult, error) {
	if m.NavigateShipFunc != nil {
		return m.NavigateShipFunc(ctx, symbol, destination, token)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	// Instant arrival keeps navigation tests from sleeping.
	return &navigation.NavigationResult{Destination: destination}, nil
}

func (m *MockAPIClient) OrbitShip(ctx context.Context, symbol, token string) error {
	if m.OrbitShipFunc != nil {
		return m.OrbitShipFunc(ctx, symbol, token)
	}
	return m.Err
}

func (m *MockAPIClient) DockShip(ctx context.Context, symbol, token string) error {
	if m.DockShipFunc != nil {
		return m.DockShipFunc(ctx, symbol, token)
	}
	return m.Err
}

func (m *MockAPIClient) RefuelShip(ctx context.Context, symbol, token string, units *int) (*navigation.RefuelResult, error) {
	if m.RefuelShipFunc != nil {
		return m.RefuelShipFunc(ctx, symbol, token, units)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return &navigation.RefuelResult{}, nil
}

func (m *MockAPIClient) SetFlightMode(ctx context.Context, symbol, flightMode, token string) error {
	if m.SetFlightModeFunc != nil {
		return m.SetFlightModeFunc(ctx, symbol, flightMode, token)
	}
	return m.Err
}

func (m *MockAPIClient) PurchaseCargo(ctx context.Context, shipSymbol, goodSymbol string, units int, token string) (*ports.PurchaseResult, error) {
	if m.PurchaseCargoFunc != nil {
		return m.PurchaseCargoFunc(ctx, shipSymbol, goodSymbol, units, token)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return nil, fmt.Errorf("no PurchaseCargoFunc configured")
}

func (m *MockAPIClient) SellCargo(ctx context.Context, shipSymbol, goodSymbol string, units int, token string) (*ports.SellResult, error) {
	if m.SellCargoFunc != nil {
		return m.SellCargoFunc(ctx, shipSymbol, goodSymbol, units, token)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return nil, fmt.Errorf("no SellCargoFunc configured")
}

func (m *MockAPIClient) JettisonCargo(ctx context.Context, shipSymbol, goodSymbol string, units int, token string) error {
	if m.JettisonCargoFunc != nil {
		return m.JettisonCargoFunc(ctx, shipSymbol, goodSymbol, units, token)
	}
	return m.Err
}

func (m *MockAPIClient) NegotiateContract(ctx context.Context, shipSymbol, token string) (*contract.NegotiationResult, error) {
	if m.NegotiateContractFunc != nil {
		return m.NegotiateContractFunc(ctx, shipSymbol, token)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return nil, fmt.Errorf("no NegotiateContractFunc configured")
}

func (m *MockAPIClient) GetContract(ctx context.Context, contractID, token string) (*contract.Data, error) {
	if m.GetContractFunc != nil {
		return m.GetContractFunc(ctx, contractID, token)
	}
	if m.Err != nil {
		return nil, m.Err
	}

	m.mu.Lock()
	data, ok := m.Contracts[contractID]
	m.mu.Unlock()
	if !ok {
		return nil, shared.NewDomainErrorf(shared.ErrHTTP4xx, "contract %s not found", contractID)
	}
	return data, nil
}

func (m *MockAPIClient) AcceptContract(ctx context.Context, contractID, token string) (*ports.ContractAgreementResult, error) {
	if m.AcceptContractFunc != nil {
		return m.AcceptContractFunc(ctx, contractID, token)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return nil, fmt.Errorf("no AcceptContractFunc configured")
}

func (m *MockAPIClient) DeliverContract(ctx context.Context, contractID, shipSymbol, tradeSymbol string, units int, token string) (*ports.ContractDeliveryResult, error) {
	if m.DeliverContractFunc != nil {
		return m.DeliverContractFunc(ctx, contractID, shipSymbol, tradeSymbol, units, token)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return nil, fmt.Errorf("no DeliverContractFunc configured")
}

func (m *MockAPIClient) FulfillContract(ctx context.Context, contractID, token string) (*ports.ContractAgreementResult, error) {
	if m.FulfillContractFunc != nil {
		return m.FulfillContractFunc(ctx, contractID, token)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return nil, fmt.Errorf("no FulfillContractFunc configured")
}

func (m *MockAPIClient) GetMarket(ctx context.Context, systemSymbol, waypointSymbol, token string) (*market.Data, error) {
	m.mu.Lock()
	m.marketCalls = append(m.marketCalls, waypointSymbol)
	data, ok := m.Markets[waypointSymbol]
	m.mu.Unlock()

	if m.GetMarketFunc != nil {
		return m.GetMarketFunc(ctx, systemSymbol, waypointSymbol, token)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if !ok {
		return nil, shared.NewDomainErrorf(shared.ErrHTTP4xx, "no market at %s", waypointSymbol)
	}
	return data, nil
}

func (m *MockAPIClient) GetShipyard(ctx context.Context, systemSymbol, waypointSymbol, token string) (*ports.ShipyardData, error) {
	m.mu.Lock()
	m.shipyardCalls = append(m.shipyardCalls, waypointSymbol)
	data, ok := m.Shipyards[waypointSymbol]
	m.mu.Unlock()

	if m.GetShipyardFunc != nil {
		return m.GetShipyardFunc(ctx, systemSymbol, waypointSymbol, token)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if !ok {
		return nil, shared.NewDomainErrorf(shared.ErrHTTP4xx, "no shipyard at %s", waypointSymbol)
	}
	return data, nil
}

func (m *MockAPIClient) PurchaseShip(ctx context.Context, shipType, waypointSymbol, token string) (*ports.ShipPurchaseResult, error) {
	m.mu.Lock()
	m.purchases = append(m.purchases, PurchasedShip{ShipType: shipType, WaypointSymbol: waypointSymbol})
	m.mu.Unlock()

	if m.PurchaseShipFunc != nil {
		return m.PurchaseShipFunc(ctx, shipType, waypointSymbol, token)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return nil, fmt.Errorf("no PurchaseShipFunc configured")
}

func (m *MockAPIClient) ListWaypoints(ctx context.Context, systemSymbol, token string, page, limit int) (*system.WaypointsListResponse, error) {
	if m.ListWaypointsFunc != nil {
		return m.ListWaypointsFunc(ctx, systemSymbol, token, page, limit)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return &system.WaypointsListResponse{
		Data: []system.WaypointAPIData{},
		Meta: system.PaginationMeta{Total: 0, Page: page, Limit: limit},
	}, nil
}

var _ ports.APIClient = (*MockAPIClient)(nil)
