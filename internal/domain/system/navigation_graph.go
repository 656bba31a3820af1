package system

import (
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// EdgeType distinguishes orbital hops from regular travel.
type EdgeType string

const (
	// EdgeTypeOrbital connects a body and its orbital. Zero distance; the
	// planner charges a 1 second hop and no fuel.
	EdgeTypeOrbital EdgeType = "orbital"
	// EdgeTypeNormal is a standard travel edge priced by Euclidean distance.
	EdgeTypeNormal EdgeType = "normal"
)

// GraphEdge is a directed connection between two waypoints. Edges are always
// added in bidirectional pairs.
type GraphEdge struct {
	From     string   `json:"from"`
	To       string   `json:"to"`
	Distance float64  `json:"distance"`
	Type     EdgeType `json:"type"`
}

// NavigationGraph is a system's waypoints plus travel edges. Built once per
// system, then shared read-only; it marshals to a single JSON document for
// the graph cache row.
type NavigationGraph struct {
	SystemSymbol string                      `json:"system"`
	Waypoints    map[string]*shared.Waypoint `json:"waypoints"`
	Edges        []GraphEdge                 `json:"edges"`
}

func NewNavigationGraph(systemSymbol string) *NavigationGraph {
	return &NavigationGraph{
		SystemSymbol: systemSymbol,
		Waypoints:    make(map[string]*shared.Waypoint),
		Edges:        []GraphEdge{},
	}
}

func (g *NavigationGraph) AddWaypoint(waypoint *shared.Waypoint) {
	g.Waypoints[waypoint.Symbol] = waypoint
}

// AddEdge adds a bidirectional edge between two waypoints.
func (g *NavigationGraph) AddEdge(from, to string, distance float64, edgeType EdgeType) {
	g.Edges = append(g.Edges,
		GraphEdge{From: from, To: to, Distance: distance, Type: edgeType},
		GraphEdge{From: to, To: from, Distance: distance, Type: edgeType},
	)
}

func (g *NavigationGraph) GetWaypoint(symbol string) (*shared.Waypoint, error) {
	waypoint, exists := g.Waypoints[symbol]
	if !exists {
		return nil, shared.NewDomainErrorf(shared.ErrWaypointNotFound,
			"waypoint %s not in graph for %s", symbol, g.SystemSymbol)
	}
	return waypoint, nil
}

func (g *NavigationGraph) HasWaypoint(symbol string) bool {
	_, exists := g.Waypoints[symbol]
	return exists
}

// EdgesFrom returns all edges leaving a waypoint.
func (g *NavigationGraph) EdgesFrom(fromSymbol string) []GraphEdge {
	var edges []GraphEdge
	for _, edge := range g.Edges {
		if edge.From == fromSymbol {
			edges = append(edges, edge)
		}
	}
	return edges
}

// Distance returns the edge distance between two waypoints. A missing edge
// falls back to coordinate-derived Euclidean distance, 0 for orbital pairs.
func (g *NavigationGraph) Distance(from, to string) (float64, error) {
	if from == to {
		return 0, nil
	}
	for _, edge := range g.Edges {
		if edge.From == from && edge.To == to {
			return edge.Distance, nil
		}
	}

	a, err := g.GetWaypoint(from)
	if err != nil {
		return 0, err
	}
	b, err := g.GetWaypoint(to)
	if err != nil {
		return 0, err
	}
	if a.IsOrbitalOf(b) {
		return 0, nil
	}
	return a.DistanceTo(b), nil
}

func (g *NavigationGraph) WaypointCount() int {
	return len(g.Waypoints)
}

func (g *NavigationGraph) EdgeCount() int {
	return len(g.Edges)
}

// FuelStations returns every waypoint where refueling is possible.
func (g *NavigationGraph) FuelStations() []*shared.Waypoint {
	var fuelStations []*shared.Waypoint
	for _, waypoint := range g.Waypoints {
		if waypoint.HasFuel {
			fuelStations = append(fuelStations, waypoint)
		}
	}
	return fuelStations
}

// WaypointsWithTrait returns waypoints carrying the given trait tag.
func (g *NavigationGraph) WaypointsWithTrait(trait string) []*shared.Waypoint {
	var matches []*shared.Waypoint
	for _, waypoint := range g.Waypoints {
		for _, t := range waypoint.Traits {
			if t == trait {
				matches = append(matches, waypoint)
				break
			}
		}
	}
	return matches
}
