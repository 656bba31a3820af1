package routing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orbitalmachines/astrogator/internal/domain/routing"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

func TestShouldRefuelBeforeDeparture(t *testing.T) {
	// Low tank, long leg: top up.
	assert.True(t, routing.ShouldRefuelBeforeDeparture(true, 20, 400, 400))

	// Full tank never refuels, even when the leg exceeds the tank.
	assert.False(t, routing.ShouldRefuelBeforeDeparture(true, 400, 400, 600))

	// At or above 90% of capacity: no top-up.
	assert.False(t, routing.ShouldRefuelBeforeDeparture(true, 360, 400, 360))

	// Plenty of reserve after the direct leg: no top-up.
	assert.False(t, routing.ShouldRefuelBeforeDeparture(true, 300, 400, 100))

	// Reserve would dip below the margin: top up.
	assert.True(t, routing.ShouldRefuelBeforeDeparture(true, 300, 400, 297))

	// No fuel sold at the start waypoint.
	assert.False(t, routing.ShouldRefuelBeforeDeparture(false, 20, 400, 400))

	// Probes have no tank.
	assert.False(t, routing.ShouldRefuelBeforeDeparture(true, 0, 0, 0))
}

func TestShouldTopUpAfterArrival(t *testing.T) {
	lowFuel, _ := shared.NewFuel(100, 400)
	assert.True(t, routing.ShouldTopUpAfterArrival(true, lowFuel))
	assert.False(t, routing.ShouldTopUpAfterArrival(false, lowFuel), "no fuel sold here")

	atThreshold, _ := shared.NewFuel(360, 400)
	assert.False(t, routing.ShouldTopUpAfterArrival(true, atThreshold), "exactly 90% does not top up")

	justBelow, _ := shared.NewFuel(359, 400)
	assert.True(t, routing.ShouldTopUpAfterArrival(true, justBelow))

	probeTank, _ := shared.NewFuel(0, 0)
	assert.False(t, routing.ShouldTopUpAfterArrival(true, probeTank))
}
