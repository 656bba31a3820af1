package cli

import (
	"context"
	"time"

	"github.com/orbitalmachines/astrogator/internal/adapters/rpc"
	ledgerqueries "github.com/orbitalmachines/astrogator/internal/application/ledger/queries"
	scoutingqueries "github.com/orbitalmachines/astrogator/internal/application/scouting/queries"
	shipqueries "github.com/orbitalmachines/astrogator/internal/application/ship/queries"
	tradingqueries "github.com/orbitalmachines/astrogator/internal/application/trading/queries"
	"github.com/orbitalmachines/astrogator/internal/domain/daemon"
	"github.com/orbitalmachines/astrogator/internal/domain/shipyard"
)

// DaemonClient is the CLI's typed view of the daemon RPC surface. Each
// method is one socket round trip.
type DaemonClient struct {
	rpc *rpc.Client
}

func NewDaemonClient(socketPath string) *DaemonClient {
	return &DaemonClient{rpc: rpc.NewClient(socketPath)}
}

// Identity names the player a request acts for. The numeric id wins when
// both fields are set.
type Identity struct {
	PlayerID    *int   `json:"player_id,omitempty"`
	AgentSymbol string `json:"agent_symbol,omitempty"`
}

// LaunchResult is the daemon's acknowledgment of a container intent.
type LaunchResult struct {
	ContainerID string `json:"container_id"`
	Reused      bool   `json:"reused"`
}

// commandContext caps every CLI call; workflow launches return immediately,
// so a stuck daemon should fail fast rather than hang the terminal.
func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

func (c *DaemonClient) Navigate(ctx context.Context, id Identity, shipSymbol, destination string) (*LaunchResult, error) {
	params := struct {
		Identity
		ShipSymbol  string `json:"ship_symbol"`
		Destination string `json:"destination"`
	}{id, shipSymbol, destination}

	var out LaunchResult
	if err := c.rpc.Call(ctx, "Navigate", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *DaemonClient) Dock(ctx context.Context, id Identity, shipSymbol string) (*LaunchResult, error) {
	return c.launchShipOp(ctx, "Dock", id, shipSymbol)
}

func (c *DaemonClient) Orbit(ctx context.Context, id Identity, shipSymbol string) (*LaunchResult, error) {
	return c.launchShipOp(ctx, "Orbit", id, shipSymbol)
}

func (c *DaemonClient) launchShipOp(ctx context.Context, method string, id Identity, shipSymbol string) (*LaunchResult, error) {
	params := struct {
		Identity
		ShipSymbol string `json:"ship_symbol"`
	}{id, shipSymbol}

	var out LaunchResult
	if err := c.rpc.Call(ctx, method, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *DaemonClient) Refuel(ctx context.Context, id Identity, shipSymbol string, units *int) (*LaunchResult, error) {
	params := struct {
		Identity
		ShipSymbol string `json:"ship_symbol"`
		Units      *int   `json:"units,omitempty"`
	}{id, shipSymbol, units}

	var out LaunchResult
	if err := c.rpc.Call(ctx, "Refuel", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *DaemonClient) ListShips(ctx context.Context, id Identity) ([]*shipqueries.ShipDTO, error) {
	var out struct {
		Ships []*shipqueries.ShipDTO
	}
	if err := c.rpc.Call(ctx, "ListShips", id, &out); err != nil {
		return nil, err
	}
	return out.Ships, nil
}

func (c *DaemonClient) GetShip(ctx context.Context, id Identity, shipSymbol string) (*shipqueries.ShipDTO, error) {
	params := struct {
		Identity
		ShipSymbol string `json:"ship_symbol"`
	}{id, shipSymbol}

	var out struct {
		Ship *shipqueries.ShipDTO
	}
	if err := c.rpc.Call(ctx, "GetShip", params, &out); err != nil {
		return nil, err
	}
	return out.Ship, nil
}

func (c *DaemonClient) ShipyardListings(ctx context.Context, id Identity, waypointSymbol string) (*shipyard.Shipyard, error) {
	params := struct {
		Identity
		WaypointSymbol string `json:"waypoint_symbol"`
	}{id, waypointSymbol}

	var out struct {
		Shipyard *shipyard.Shipyard
	}
	if err := c.rpc.Call(ctx, "ShipyardListings", params, &out); err != nil {
		return nil, err
	}
	return out.Shipyard, nil
}

func (c *DaemonClient) ShipyardPurchase(ctx context.Context, id Identity, shipSymbol, shipType, shipyardWaypoint string) (*LaunchResult, error) {
	params := struct {
		Identity
		ShipSymbol       string `json:"ship_symbol"`
		ShipType         string `json:"ship_type"`
		ShipyardWaypoint string `json:"shipyard_waypoint,omitempty"`
	}{id, shipSymbol, shipType, shipyardWaypoint}

	var out LaunchResult
	if err := c.rpc.Call(ctx, "ShipyardPurchase", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *DaemonClient) ShipyardBatchPurchase(ctx context.Context, id Identity, shipSymbol, shipType string, quantity, maxBudget int, shipyardWaypoint string) (*LaunchResult, error) {
	params := struct {
		Identity
		ShipSymbol       string `json:"ship_symbol"`
		ShipType         string `json:"ship_type"`
		Quantity         int    `json:"quantity"`
		MaxBudget        int    `json:"max_budget"`
		ShipyardWaypoint string `json:"shipyard_waypoint,omitempty"`
	}{id, shipSymbol, shipType, quantity, maxBudget, shipyardWaypoint}

	var out LaunchResult
	if err := c.rpc.Call(ctx, "ShipyardBatchPurchase", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ScoutResult describes a fleet scouting assignment: which containers run
// and which markets each ship visits.
type ScoutResult struct {
	AssignedShips    []string
	ContainerIDs     []string
	Assignments      map[string][]string
	ReusedContainers []string
}

func (c *DaemonClient) ScoutMarkets(ctx context.Context, id Identity, shipSymbols []string, systemSymbol string, markets []string, iterations int) (*ScoutResult, error) {
	params := struct {
		Identity
		ShipSymbols  []string `json:"ship_symbols"`
		SystemSymbol string   `json:"system_symbol"`
		Markets      []string `json:"markets,omitempty"`
		Iterations   int      `json:"iterations"`
	}{id, shipSymbols, systemSymbol, markets, iterations}

	var out ScoutResult
	if err := c.rpc.Call(ctx, "ScoutMarkets", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *DaemonClient) ScoutTour(ctx context.Context, id Identity, shipSymbol string, markets []string, iterations int) (*LaunchResult, error) {
	params := struct {
		Identity
		ShipSymbol string   `json:"ship_symbol"`
		Markets    []string `json:"markets"`
		Iterations int      `json:"iterations"`
	}{id, shipSymbol, markets, iterations}

	var out LaunchResult
	if err := c.rpc.Call(ctx, "ScoutTour", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *DaemonClient) AssignScoutingFleet(ctx context.Context, id Identity, systemSymbol string) (*ScoutResult, error) {
	params := struct {
		Identity
		SystemSymbol string `json:"system_symbol"`
	}{id, systemSymbol}

	var out ScoutResult
	if err := c.rpc.Call(ctx, "AssignScoutingFleet", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *DaemonClient) ContractWorkflow(ctx context.Context, id Identity, shipSymbol string, iterations int) (*LaunchResult, error) {
	params := struct {
		Identity
		ShipSymbol string `json:"ship_symbol"`
		Iterations int    `json:"iterations"`
	}{id, shipSymbol, iterations}

	var out LaunchResult
	if err := c.rpc.Call(ctx, "ContractBatchWorkflow", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *DaemonClient) Arbitrage(ctx context.Context, id Identity, shipSymbol, systemSymbol string, minMargin float64, iterations int) (*LaunchResult, error) {
	params := struct {
		Identity
		ShipSymbol   string  `json:"ship_symbol"`
		SystemSymbol string  `json:"system_symbol"`
		MinMargin    float64 `json:"min_margin,omitempty"`
		Iterations   int     `json:"iterations"`
	}{id, shipSymbol, systemSymbol, minMargin, iterations}

	var out LaunchResult
	if err := c.rpc.Call(ctx, "Arbitrage", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *DaemonClient) ArbitrageOpportunities(ctx context.Context, id Identity, systemSymbol string, cargoCapacity int, minMargin float64, limit int) ([]*tradingqueries.OpportunityDTO, error) {
	params := struct {
		Identity
		SystemSymbol  string  `json:"system_symbol"`
		CargoCapacity int     `json:"cargo_capacity,omitempty"`
		MinMargin     float64 `json:"min_margin,omitempty"`
		Limit         int     `json:"limit,omitempty"`
	}{id, systemSymbol, cargoCapacity, minMargin, limit}

	var out struct {
		Opportunities []*tradingqueries.OpportunityDTO
	}
	if err := c.rpc.Call(ctx, "ArbitrageOpportunities", params, &out); err != nil {
		return nil, err
	}
	return out.Opportunities, nil
}

func (c *DaemonClient) GetMarketData(ctx context.Context, id Identity, waypointSymbol string) (*scoutingqueries.MarketDataDTO, error) {
	params := struct {
		Identity
		WaypointSymbol string `json:"waypoint_symbol"`
	}{id, waypointSymbol}

	var out struct {
		Market *scoutingqueries.MarketDataDTO
	}
	if err := c.rpc.Call(ctx, "GetMarketData", params, &out); err != nil {
		return nil, err
	}
	return out.Market, nil
}

// TransactionFilter narrows a ledger transaction listing. Nil fields mean no
// constraint; dates are RFC3339.
type TransactionFilter struct {
	StartDate   *string `json:"start_date,omitempty"`
	EndDate     *string `json:"end_date,omitempty"`
	Category    *string `json:"category,omitempty"`
	Type        *string `json:"transaction_type,omitempty"`
	ContainerID *string `json:"container_id,omitempty"`
	ShipSymbol  *string `json:"ship_symbol,omitempty"`
	Limit       int     `json:"limit,omitempty"`
	Offset      int     `json:"offset,omitempty"`
}

func (c *DaemonClient) LedgerTransactions(ctx context.Context, id Identity, filter TransactionFilter) (*ledgerqueries.GetTransactionsResponse, error) {
	params := struct {
		Identity
		TransactionFilter
	}{id, filter}

	var out ledgerqueries.GetTransactionsResponse
	if err := c.rpc.Call(ctx, "LedgerTransactions", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *DaemonClient) LedgerProfitLoss(ctx context.Context, id Identity, startDate, endDate *string) (*ledgerqueries.GetProfitLossResponse, error) {
	params := struct {
		Identity
		StartDate *string `json:"start_date,omitempty"`
		EndDate   *string `json:"end_date,omitempty"`
	}{id, startDate, endDate}

	var out ledgerqueries.GetProfitLossResponse
	if err := c.rpc.Call(ctx, "LedgerProfitLoss", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *DaemonClient) LedgerCashFlow(ctx context.Context, id Identity, startDate, endDate *string, groupBy string) (*ledgerqueries.GetCashFlowResponse, error) {
	params := struct {
		Identity
		StartDate *string `json:"start_date,omitempty"`
		EndDate   *string `json:"end_date,omitempty"`
		GroupBy   string  `json:"group_by,omitempty"`
	}{id, startDate, endDate, groupBy}

	var out ledgerqueries.GetCashFlowResponse
	if err := c.rpc.Call(ctx, "LedgerCashFlow", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PlayerInfo is the daemon's wire shape of a registered player; the API
// token never crosses the socket.
type PlayerInfo struct {
	ID           int       `json:"id"`
	AgentSymbol  string    `json:"agent_symbol"`
	Headquarters string    `json:"headquarters,omitempty"`
	Credits      int       `json:"credits"`
	Faction      string    `json:"faction,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (c *DaemonClient) RegisterPlayer(ctx context.Context, agentSymbol, faction, token string) (*PlayerInfo, error) {
	params := struct {
		AgentSymbol string `json:"agent_symbol"`
		Faction     string `json:"faction,omitempty"`
		Token       string `json:"token"`
	}{agentSymbol, faction, token}

	var out struct {
		Player *PlayerInfo `json:"player"`
	}
	if err := c.rpc.Call(ctx, "RegisterPlayer", params, &out); err != nil {
		return nil, err
	}
	return out.Player, nil
}

func (c *DaemonClient) ListPlayers(ctx context.Context) ([]*PlayerInfo, error) {
	var out struct {
		Players []*PlayerInfo `json:"players"`
	}
	if err := c.rpc.Call(ctx, "ListPlayers", struct{}{}, &out); err != nil {
		return nil, err
	}
	return out.Players, nil
}

// ContainerInfo is the wire shape of one container row.
type ContainerInfo struct {
	ID            string                 `json:"id"`
	Kind          string                 `json:"kind"`
	PlayerID      int                    `json:"player_id"`
	ShipSymbol    string                 `json:"ship_symbol,omitempty"`
	Status        string                 `json:"status"`
	Iteration     int                    `json:"iteration"`
	MaxIterations int                    `json:"max_iterations"`
	RestartCount  int                    `json:"restart_count"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	StartedAt     *time.Time             `json:"started_at,omitempty"`
	StoppedAt     *time.Time             `json:"stopped_at,omitempty"`
	LastError     string                 `json:"last_error,omitempty"`
}

func (c *DaemonClient) ListContainers(ctx context.Context, id Identity, status, kind, shipSymbol string) ([]*ContainerInfo, error) {
	params := struct {
		Identity
		Status     string `json:"status,omitempty"`
		Kind       string `json:"kind,omitempty"`
		ShipSymbol string `json:"ship_symbol,omitempty"`
	}{id, status, kind, shipSymbol}

	var out struct {
		Containers []*ContainerInfo `json:"containers"`
	}
	if err := c.rpc.Call(ctx, "DaemonList", params, &out); err != nil {
		return nil, err
	}
	return out.Containers, nil
}

func (c *DaemonClient) InspectContainer(ctx context.Context, id Identity, containerID string) (*ContainerInfo, error) {
	params := struct {
		Identity
		ContainerID string `json:"container_id"`
	}{id, containerID}

	var out ContainerInfo
	if err := c.rpc.Call(ctx, "DaemonInspect", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *DaemonClient) StopContainer(ctx context.Context, id Identity, containerID string) error {
	params := struct {
		Identity
		ContainerID string `json:"container_id"`
	}{id, containerID}
	return c.rpc.Call(ctx, "DaemonStop", params, nil)
}

func (c *DaemonClient) RemoveContainer(ctx context.Context, id Identity, containerID string) error {
	params := struct {
		Identity
		ContainerID string `json:"container_id"`
	}{id, containerID}
	return c.rpc.Call(ctx, "DaemonRemove", params, nil)
}

// LogEntry is one container log line.
type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

func (c *DaemonClient) ContainerLogs(ctx context.Context, id Identity, containerID string, limit int, level, since *string) ([]*LogEntry, error) {
	params := struct {
		Identity
		ContainerID string  `json:"container_id"`
		Limit       int     `json:"limit,omitempty"`
		Level       *string `json:"level,omitempty"`
		Since       *string `json:"since,omitempty"`
	}{id, containerID, limit, level, since}

	var out struct {
		Logs []*LogEntry `json:"logs"`
	}
	if err := c.rpc.Call(ctx, "DaemonLogs", params, &out); err != nil {
		return nil, err
	}
	return out.Logs, nil
}

func (c *DaemonClient) Health(ctx context.Context) (*daemon.HealthReport, error) {
	var out daemon.HealthReport
	if err := c.rpc.Call(ctx, "DaemonHealth", struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
