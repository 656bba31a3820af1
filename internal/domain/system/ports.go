package system

import (
	"context"

	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// WaypointRepository defines waypoint persistence operations.
type WaypointRepository interface {
	FindBySymbol(ctx context.Context, symbol, systemSymbol string) (*shared.Waypoint, error)
	ListBySystem(ctx context.Context, systemSymbol string) ([]*shared.Waypoint, error)
	ListBySystemWithTrait(ctx context.Context, systemSymbol, trait string) ([]*shared.Waypoint, error)
	Save(ctx context.Context, waypoint *shared.Waypoint) error
	SaveBatch(ctx context.Context, waypoints []*shared.Waypoint) error
}

// SystemGraphRepository persists one graph row per system.
type SystemGraphRepository interface {
	// Get returns the cached graph, or nil without error on a miss.
	Get(ctx context.Context, systemSymbol string) (*NavigationGraph, error)
	Save(ctx context.Context, graph *NavigationGraph) error
}

// GraphBuilder constructs a system graph from live API data.
type GraphBuilder interface {
	BuildSystemGraph(ctx context.Context, systemSymbol string, playerID shared.PlayerID) (*NavigationGraph, error)
}

// GraphProvider hands out system graphs, serving from cache when possible.
type GraphProvider interface {
	// GetGraph returns the graph for a system. playerID authenticates the
	// API fetch on a cache miss.
	GetGraph(ctx context.Context, systemSymbol string, forceRefresh bool, playerID shared.PlayerID) (*GraphLoadResult, error)
}

// GraphLoadResult reports where a graph came from alongside the graph itself.
type GraphLoadResult struct {
	Graph   *NavigationGraph
	Source  GraphSource
	Message string
}

type GraphSource string

const (
	GraphSourceMemory   GraphSource = "memory"
	GraphSourceDatabase GraphSource = "database"
	GraphSourceAPI      GraphSource = "api"
)

// WaypointAPIData is one waypoint as returned by the remote waypoint listing.
type WaypointAPIData struct {
	Symbol   string
	Type     string
	X        float64
	Y        float64
	Traits   []TraitData
	Orbitals []OrbitalData
}

type TraitData struct {
	Symbol string
}

type OrbitalData struct {
	Symbol string
}

// WaypointsListResponse is one page of the waypoint listing.
type WaypointsListResponse struct {
	Data []WaypointAPIData
	Meta PaginationMeta
}

type PaginationMeta struct {
	Total int
	Page  int
	Limit int
}
