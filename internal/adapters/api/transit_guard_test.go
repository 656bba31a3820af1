package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

func TestTransitGuard_TracksInTransitShips(t *testing.T) {
	clock := shared.NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	guard := newTransitGuard(clock)
	arrival := clock.Now().Add(90 * time.Second)

	guard.observe("SHIP-1", string(navigation.NavStatusInTransit), arrival.Format(time.RFC3339))

	got, known := guard.lastKnownTransit("SHIP-1")
	require.True(t, known)
	assert.True(t, got.Equal(arrival))
}

func TestTransitGuard_NonTransitStatusClearsEntry(t *testing.T) {
	clock := shared.NewMockClock(time.Time{})
	guard := newTransitGuard(clock)
	arrival := clock.Now().Add(time.Minute).Format(time.RFC3339)
	guard.observe("SHIP-1", string(navigation.NavStatusInTransit), arrival)

	guard.observe("SHIP-1", string(navigation.NavStatusDocked), "")

	_, known := guard.lastKnownTransit("SHIP-1")
	assert.False(t, known)
}

func TestTransitGuard_UnparseableArrivalClearsEntry(t *testing.T) {
	clock := shared.NewMockClock(time.Time{})
	guard := newTransitGuard(clock)
	guard.observe("SHIP-1", string(navigation.NavStatusInTransit), clock.Now().Add(time.Minute).Format(time.RFC3339))

	guard.observe("SHIP-1", string(navigation.NavStatusInTransit), "not-a-timestamp")

	_, known := guard.lastKnownTransit("SHIP-1")
	assert.False(t, known)
}

func TestTransitGuard_PastArrivalStillReported(t *testing.T) {
	// Only a live fetch may decide the ship has landed.
	clock := shared.NewMockClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	guard := newTransitGuard(clock)
	arrival := clock.Now().Add(time.Second)
	guard.observe("SHIP-1", string(navigation.NavStatusInTransit), arrival.Format(time.RFC3339))

	clock.Advance(time.Hour)

	got, known := guard.lastKnownTransit("SHIP-1")
	require.True(t, known)
	assert.True(t, got.Before(clock.Now()))
}

func TestTransitGuard_ClearRemovesEntry(t *testing.T) {
	clock := shared.NewMockClock(time.Time{})
	guard := newTransitGuard(clock)
	guard.observe("SHIP-1", string(navigation.NavStatusInTransit), clock.Now().Add(time.Minute).Format(time.RFC3339))

	guard.clear("SHIP-1")

	_, known := guard.lastKnownTransit("SHIP-1")
	assert.False(t, known)
}
