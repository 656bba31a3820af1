package api

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/orbitalmachines/astrogator/internal/domain/player"
	"github.com/orbitalmachines/astrogator/internal/domain/ports"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/internal/domain/system"
)

const (
	waypointsPageSize = 20

	// maxWaypointPages caps pagination in case the API meta lies. The largest
	// known systems hold a few hundred waypoints.
	maxWaypointPages = 50
)

// GraphBuilder charts a system: it pages every waypoint out of the API,
// persists them for trait queries, and assembles the navigation graph the
// routing engine searches.
type GraphBuilder struct {
	client    ports.APIClient
	players   player.Repository
	waypoints system.WaypointRepository
	log       zerolog.Logger
}

var _ system.GraphBuilder = (*GraphBuilder)(nil)

func NewGraphBuilder(
	client ports.APIClient,
	players player.Repository,
	waypoints system.WaypointRepository,
	log zerolog.Logger,
) *GraphBuilder {
	return &GraphBuilder{
		client:    client,
		players:   players,
		waypoints: waypoints,
		log:       log,
	}
}

func (b *GraphBuilder) BuildSystemGraph(ctx context.Context, systemSymbol string, playerID shared.PlayerID) (*system.NavigationGraph, error) {
	p, err := b.players.FindByID(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve player %s: %w", playerID, err)
	}
	if p == nil {
		return nil, shared.NewDomainError(shared.ErrPlayerNotFound, fmt.Sprintf("player %s not found", playerID))
	}

	waypoints, err := b.fetchAllWaypoints(ctx, systemSymbol, p.Token)
	if err != nil {
		return nil, err
	}

	if err := b.waypoints.SaveBatch(ctx, waypoints); err != nil {
		// The graph is still usable; trait queries will refetch later.
		b.log.Warn().Err(err).Str("system", systemSymbol).Msg("failed to persist charted waypoints")
	}

	graph := system.NewNavigationGraph(systemSymbol)
	for _, wp := range waypoints {
		graph.AddWaypoint(wp)
	}
	for i := 0; i < len(waypoints); i++ {
		for j := i + 1; j < len(waypoints); j++ {
			a, c := waypoints[i], waypoints[j]
			if a.IsOrbitalOf(c) {
				graph.AddEdge(a.Symbol, c.Symbol, 0, system.EdgeTypeOrbital)
			} else {
				graph.AddEdge(a.Symbol, c.Symbol, a.DistanceTo(c), system.EdgeTypeNormal)
			}
		}
	}

	b.log.Info().
		Str("system", systemSymbol).
		Int("waypoints", len(graph.Waypoints)).
		Int("edges", len(graph.Edges)).
		Msg("built system graph")
	return graph, nil
}

func (b *GraphBuilder) fetchAllWaypoints(ctx context.Context, systemSymbol, token string) ([]*shared.Waypoint, error) {
	var waypoints []*shared.Waypoint

	for page := 1; page <= maxWaypointPages; page++ {
		resp, err := b.client.ListWaypoints(ctx, systemSymbol, token, page, waypointsPageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to list waypoints for %s (page %d): %w", systemSymbol, page, err)
		}
		if len(resp.Data) == 0 {
			break
		}

		for i := range resp.Data {
			wp, err := waypointFromAPI(&resp.Data[i])
			if err != nil {
				return nil, fmt.Errorf("bad waypoint payload in %s: %w", systemSymbol, err)
			}
			waypoints = append(waypoints, wp)
		}

		totalPages := (resp.Meta.Total + waypointsPageSize - 1) / waypointsPageSize
		if page >= totalPages {
			break
		}
	}

	if len(waypoints) == 0 {
		return nil, shared.NewDomainError(shared.ErrWaypointNotFound,
			fmt.Sprintf("system %s has no waypoints", systemSymbol))
	}
	return waypoints, nil
}

func waypointFromAPI(data *system.WaypointAPIData) (*shared.Waypoint, error) {
	wp, err := shared.NewWaypoint(data.Symbol, data.X, data.Y)
	if err != nil {
		return nil, err
	}
	wp.Type = data.Type

	traits := make([]string, len(data.Traits))
	for i, t := range data.Traits {
		traits[i] = t.Symbol
	}
	wp.Traits = traits

	orbitals := make([]string, len(data.Orbitals))
	for i, o := range data.Orbitals {
		orbitals[i] = o.Symbol
	}
	wp.Orbitals = orbitals

	wp.HasFuel = wp.HasTrait("MARKETPLACE") || wp.HasTrait("FUEL_STATION")
	return wp, nil
}
