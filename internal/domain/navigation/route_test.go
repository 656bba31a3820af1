package navigation_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

func testClock() shared.Clock {
	return shared.NewMockClock(time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC))
}

func TestNewRoute_ValidChain(t *testing.T) {
	// Arrange
	steps := []navigation.Step{
		navigation.NewRefuelStep("X1-GZ7-A1", 2),
		navigation.NewTravelStep("X1-GZ7-A1", "X1-GZ7-M1", shared.FlightModeCruise, 100, 100, 310),
		navigation.NewRefuelStep("X1-GZ7-M1", 2),
		navigation.NewTravelStep("X1-GZ7-M1", "X1-GZ7-B2", shared.FlightModeBurn, 200, 100, 26),
	}

	// Act
	route, err := navigation.NewRoute("route-1", "MONGOOSE-1", shared.MustNewPlayerID(1),
		"X1-GZ7-A1", "X1-GZ7-B2", steps, 400, testClock())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, navigation.RouteStatusPlanned, route.Status())
	assert.Equal(t, 300, route.TotalFuelRequired())
	assert.Equal(t, 340, route.TotalSeconds())
	assert.Equal(t, 2, route.RefuelStops())
	assert.True(t, route.HasTravelSteps())
}

func TestNewRoute_EmptyRouteNeedsMatchingEndpoints(t *testing.T) {
	route, err := navigation.NewRoute("route-1", "MONGOOSE-1", shared.MustNewPlayerID(1),
		"X1-GZ7-A1", "X1-GZ7-A1", nil, 400, testClock())
	require.NoError(t, err)
	assert.False(t, route.HasTravelSteps())

	_, err = navigation.NewRoute("route-2", "MONGOOSE-1", shared.MustNewPlayerID(1),
		"X1-GZ7-A1", "X1-GZ7-B2", nil, 400, testClock())
	assert.Error(t, err, "empty route with distinct endpoints is invalid")
}

func TestNewRoute_RejectsBrokenChain(t *testing.T) {
	steps := []navigation.Step{
		navigation.NewTravelStep("X1-GZ7-A1", "X1-GZ7-M1", shared.FlightModeCruise, 50, 50, 155),
		navigation.NewTravelStep("X1-GZ7-XX", "X1-GZ7-B2", shared.FlightModeCruise, 50, 50, 155),
	}

	_, err := navigation.NewRoute("route-1", "MONGOOSE-1", shared.MustNewPlayerID(1),
		"X1-GZ7-A1", "X1-GZ7-B2", steps, 400, testClock())
	assert.Error(t, err)
}

func TestNewRoute_RejectsWrongGoal(t *testing.T) {
	steps := []navigation.Step{
		navigation.NewTravelStep("X1-GZ7-A1", "X1-GZ7-M1", shared.FlightModeCruise, 50, 50, 155),
	}

	_, err := navigation.NewRoute("route-1", "MONGOOSE-1", shared.MustNewPlayerID(1),
		"X1-GZ7-A1", "X1-GZ7-B2", steps, 400, testClock())
	assert.Error(t, err)
}

func TestNewRoute_RejectsDrift(t *testing.T) {
	steps := []navigation.Step{
		navigation.NewTravelStep("X1-GZ7-A1", "X1-GZ7-B2", shared.FlightModeDrift, 1, 300, 310),
	}

	_, err := navigation.NewRoute("route-1", "MONGOOSE-1", shared.MustNewPlayerID(1),
		"X1-GZ7-A1", "X1-GZ7-B2", steps, 400, testClock())
	assert.Error(t, err)
}

func TestNewRoute_RejectsFuelOverCapacityBetweenRefuels(t *testing.T) {
	// Two cruise legs back to back need 500 fuel against a 400 tank.
	steps := []navigation.Step{
		navigation.NewTravelStep("X1-GZ7-A1", "X1-GZ7-M1", shared.FlightModeCruise, 250, 250, 775),
		navigation.NewTravelStep("X1-GZ7-M1", "X1-GZ7-B2", shared.FlightModeCruise, 250, 250, 775),
	}

	_, err := navigation.NewRoute("route-1", "MONGOOSE-1", shared.MustNewPlayerID(1),
		"X1-GZ7-A1", "X1-GZ7-B2", steps, 400, testClock())
	assert.Error(t, err)

	// A refuel stop between them resets the budget.
	steps = []navigation.Step{
		navigation.NewTravelStep("X1-GZ7-A1", "X1-GZ7-M1", shared.FlightModeCruise, 250, 250, 775),
		navigation.NewRefuelStep("X1-GZ7-M1", 2),
		navigation.NewTravelStep("X1-GZ7-M1", "X1-GZ7-B2", shared.FlightModeCruise, 250, 250, 775),
	}

	_, err = navigation.NewRoute("route-1", "MONGOOSE-1", shared.MustNewPlayerID(1),
		"X1-GZ7-A1", "X1-GZ7-B2", steps, 400, testClock())
	assert.NoError(t, err)
}

func TestRoute_Execution(t *testing.T) {
	// Arrange
	steps := []navigation.Step{
		navigation.NewRefuelStep("X1-GZ7-A1", 2),
		navigation.NewTravelStep("X1-GZ7-A1", "X1-GZ7-B2", shared.FlightModeBurn, 200, 100, 26),
	}
	route, err := navigation.NewRoute("route-1", "MONGOOSE-1", shared.MustNewPlayerID(1),
		"X1-GZ7-A1", "X1-GZ7-B2", steps, 400, testClock())
	require.NoError(t, err)

	// Act & Assert
	require.NoError(t, route.StartExecution())
	assert.Equal(t, navigation.RouteStatusExecuting, route.Status())

	current := route.CurrentStep()
	require.NotNil(t, current)
	assert.True(t, current.IsRefuel())

	require.NoError(t, route.CompleteStep())
	current = route.CurrentStep()
	require.NotNil(t, current)
	assert.True(t, current.IsTravel())

	require.NoError(t, route.CompleteStep())
	assert.True(t, route.IsComplete())
	assert.Nil(t, route.CurrentStep())
}

func TestRoute_ZeroTravelCompletesOnStart(t *testing.T) {
	route, err := navigation.NewRoute("route-1", "MONGOOSE-1", shared.MustNewPlayerID(1),
		"X1-GZ7-A1", "X1-GZ7-A1", nil, 400, testClock())
	require.NoError(t, err)

	require.NoError(t, route.StartExecution())
	assert.True(t, route.IsComplete())
}

func TestStep_JSONRoundTrip(t *testing.T) {
	// Arrange
	steps := []navigation.Step{
		navigation.NewRefuelStep("X1-GZ7-A1", 2),
		navigation.NewTravelStep("X1-GZ7-A1", "X1-GZ7-B2", shared.FlightModeBurn, 200, 100.25, 26),
		navigation.NewTravelStep("X1-GZ7-B2", "X1-GZ7-C3", shared.FlightModeCruise, 5, 4.5, 13),
	}

	// Act
	data, err := json.Marshal(steps)
	require.NoError(t, err)

	var restored []navigation.Step
	require.NoError(t, json.Unmarshal(data, &restored))

	// Assert
	require.Len(t, restored, 3)
	assert.Equal(t, steps, restored)

	// Refuel steps carry no travel fields on the wire.
	var raw []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.NotContains(t, raw[0], "mode")
	assert.NotContains(t, raw[0], "from")
	assert.Equal(t, "BURN", raw[1]["mode"])
}
