package shared

import (
	"fmt"
	"math"
)

// Waypoint is an immutable location in space. Instances are loaded once per
// system snapshot and shared read-only between containers.
type Waypoint struct {
	Symbol       string   `json:"symbol"`
	X            float64  `json:"x"`
	Y            float64  `json:"y"`
	SystemSymbol string   `json:"systemSymbol"`
	Type         string   `json:"type"`
	Traits       []string `json:"traits,omitempty"`
	HasFuel      bool     `json:"has_fuel"`
	Orbitals     []string `json:"orbitals,omitempty"`
}

// NewWaypoint creates a waypoint with validation.
func NewWaypoint(symbol string, x, y float64) (*Waypoint, error) {
	if symbol == "" {
		return nil, NewValidationError("symbol", "cannot be empty")
	}

	return &Waypoint{
		Symbol:       symbol,
		X:            x,
		Y:            y,
		SystemSymbol: ExtractSystemSymbol(symbol),
		Traits:       []string{},
		Orbitals:     []string{},
	}, nil
}

// DistanceTo returns the Euclidean distance to another waypoint, rounded to
// 2 decimals. Orbital siblings are NOT special-cased here; graph edges carry
// the zero-distance override for them.
func (w *Waypoint) DistanceTo(other *Waypoint) float64 {
	dx := other.X - w.X
	dy := other.Y - w.Y
	return RoundDistance(math.Sqrt(dx*dx + dy*dy))
}

// RoundDistance rounds a raw distance to the 2-decimal convention used by
// every cost calculation.
func RoundDistance(d float64) float64 {
	return math.Round(d*100) / 100
}

// HasTrait checks for a trait tag.
func (w *Waypoint) HasTrait(trait string) bool {
	for _, t := range w.Traits {
		if t == trait {
			return true
		}
	}
	return false
}

// IsMarketplace reports whether the waypoint hosts a market.
func (w *Waypoint) IsMarketplace() bool {
	return w.HasTrait("MARKETPLACE")
}

// IsOrbitalOf checks whether this waypoint and other are in an orbital
// relationship (either direction).
func (w *Waypoint) IsOrbitalOf(other *Waypoint) bool {
	for _, orbital := range w.Orbitals {
		if orbital == other.Symbol {
			return true
		}
	}
	for _, orbital := range other.Orbitals {
		if orbital == w.Symbol {
			return true
		}
	}
	return false
}

// FindNearestWaypoint returns the nearest waypoint from targets and its
// distance; nil and 0 when targets is empty.
func FindNearestWaypoint(from *Waypoint, targets []*Waypoint) (*Waypoint, float64) {
	if len(targets) == 0 {
		return nil, 0
	}

	nearest := targets[0]
	minDistance := from.DistanceTo(targets[0])

	for _, target := range targets[1:] {
		distance := from.DistanceTo(target)
		if distance < minDistance {
			minDistance = distance
			nearest = target
		}
	}

	return nearest, minDistance
}

func (w *Waypoint) String() string {
	return fmt.Sprintf("Waypoint(%s)", w.Symbol)
}

// ExtractSystemSymbol derives the system symbol from a waypoint symbol by
// dropping the final hyphenated segment. "X1-AB12-C3D4" -> "X1-AB12".
func ExtractSystemSymbol(waypointSymbol string) string {
	systemSymbol := waypointSymbol
	for i := len(waypointSymbol) - 1; i >= 0; i-- {
		if waypointSymbol[i] == '-' {
			systemSymbol = waypointSymbol[:i]
			break
		}
	}
	return systemSymbol
}
