package graph

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/internal/domain/system"
)

// Provider serves system graphs through three tiers: an in-memory map that
// lives as long as the daemon, the database graph row, and a full API build.
// Concurrent misses on the same system build once; the per-system lock plus
// a double-check keeps every other caller on the cached copy.
type Provider struct {
	graphRepo system.SystemGraphRepository
	builder   system.GraphBuilder
	log       zerolog.Logger

	graphs sync.Map // systemSymbol -> *system.NavigationGraph
	builds sync.Map // systemSymbol -> *sync.Mutex
}

var _ system.GraphProvider = (*Provider)(nil)

func NewProvider(
	graphRepo system.SystemGraphRepository,
	builder system.GraphBuilder,
	log zerolog.Logger,
) *Provider {
	return &Provider{
		graphRepo: graphRepo,
		builder:   builder,
		log:       log.With().Str("component", "graph_provider").Logger(),
	}
}

// GetGraph returns the navigation graph for a system. forceRefresh skips
// both caches and rebuilds from the API; playerID authenticates that build.
func (p *Provider) GetGraph(ctx context.Context, systemSymbol string, forceRefresh bool, playerID shared.PlayerID) (*system.GraphLoadResult, error) {
	if !forceRefresh {
		if result := p.fromCache(ctx, systemSymbol); result != nil {
			return result, nil
		}
	}

	lock := p.buildLock(systemSymbol)
	lock.Lock()
	defer lock.Unlock()

	// Another caller may have built the graph while we waited on the lock.
	if !forceRefresh {
		if result := p.fromCache(ctx, systemSymbol); result != nil {
			return result, nil
		}
	}

	p.log.Info().Str("system", systemSymbol).Msg("building navigation graph from API")

	graph, err := p.builder.BuildSystemGraph(ctx, systemSymbol, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to build graph for %s: %w", systemSymbol, err)
	}

	// A failed cache write must not fail the operation that needed the graph.
	if err := p.graphRepo.Save(ctx, graph); err != nil {
		p.log.Warn().Err(err).Str("system", systemSymbol).Msg("failed to cache graph")
	}
	p.graphs.Store(systemSymbol, graph)

	return &system.GraphLoadResult{
		Graph:   graph,
		Source:  system.GraphSourceAPI,
		Message: fmt.Sprintf("built graph for %s from API", systemSymbol),
	}, nil
}

// Invalidate drops the in-memory copy so the next GetGraph re-reads the
// database. Used after waypoint syncs that change trait data.
func (p *Provider) Invalidate(systemSymbol string) {
	p.graphs.Delete(systemSymbol)
}

func (p *Provider) fromCache(ctx context.Context, systemSymbol string) *system.GraphLoadResult {
	if cached, ok := p.graphs.Load(systemSymbol); ok {
		return &system.GraphLoadResult{
			Graph:   cached.(*system.NavigationGraph),
			Source:  system.GraphSourceMemory,
			Message: fmt.Sprintf("graph for %s served from memory", systemSymbol),
		}
	}

	graph, err := p.graphRepo.Get(ctx, systemSymbol)
	if err != nil {
		p.log.Warn().Err(err).Str("system", systemSymbol).Msg("graph cache read failed")
		return nil
	}
	if graph == nil {
		return nil
	}

	p.graphs.Store(systemSymbol, graph)
	return &system.GraphLoadResult{
		Graph:   graph,
		Source:  system.GraphSourceDatabase,
		Message: fmt.Sprintf("graph for %s loaded from database", systemSymbol),
	}
}

func (p *Provider) buildLock(systemSymbol string) *sync.Mutex {
	lock, _ := p.builds.LoadOrStore(systemSymbol, &sync.Mutex{})
	return lock.(*sync.Mutex)
}
