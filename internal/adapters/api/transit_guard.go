package api

import (
	"sync"
	"time"

	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// transitGuard remembers, per ship, the arrival instant of the last transit
// the API reported. Ship commands fired at a ship whose last known state is
// IN_TRANSIT would bounce with a 4xx, so the client consults this table and
// waits the transit out first.
//
// Entries are written from every nav payload that passes through the client
// and cleared as soon as a payload shows the ship landed. Stale entries
// (arrival in the past) still trigger a live re-check, which then clears them.
type transitGuard struct {
	clock shared.Clock

	mu       sync.Mutex
	arrivals map[string]time.Time
}

func newTransitGuard(clock shared.Clock) *transitGuard {
	return &transitGuard{
		clock:    clock,
		arrivals: make(map[string]time.Time),
	}
}

// observe updates the table from a nav snapshot. Anything but IN_TRANSIT,
// and any unparseable arrival timestamp, clears the entry.
func (g *transitGuard) observe(shipSymbol, navStatus, arrivalTime string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if navStatus != string(navigation.NavStatusInTransit) {
		delete(g.arrivals, shipSymbol)
		return
	}
	arrival, err := time.Parse(time.RFC3339, arrivalTime)
	if err != nil {
		delete(g.arrivals, shipSymbol)
		return
	}
	g.arrivals[shipSymbol] = arrival
}

// clear drops the entry for a ship.
func (g *transitGuard) clear(shipSymbol string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.arrivals, shipSymbol)
}

// lastKnownTransit returns the recorded arrival instant for a ship, if its
// last known state was IN_TRANSIT. A past arrival is still reported: the
// ship has probably landed, but only a live fetch may clear the entry.
func (g *transitGuard) lastKnownTransit(shipSymbol string) (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	arrival, ok := g.arrivals[shipSymbol]
	return arrival, ok
}
