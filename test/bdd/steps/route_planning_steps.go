package steps

import (
	"context"
	"fmt"

	"github.com/cucumber/godog"

	"github.com/orbitalmachines/astrogator/internal/adapters/routing"
	domainrouting "github.com/orbitalmachines/astrogator/internal/domain/routing"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/internal/domain/system"
)

type routePlanningContext struct {
	graph   *system.NavigationGraph
	plan    *domainrouting.Plan
	planErr error
}

func (rc *routePlanningContext) reset() {
	rc.graph = system.NewNavigationGraph("X1-TST")
	rc.plan = nil
	rc.planErr = nil
}

func (rc *routePlanningContext) addWaypoint(symbol string, x, y int, hasFuel bool) error {
	wp, err := shared.NewWaypoint(symbol, float64(x), float64(y))
	if err != nil {
		return err
	}
	wp.HasFuel = hasFuel
	rc.graph.AddWaypoint(wp)
	return nil
}

func (rc *routePlanningContext) aFuelStationAtPosition(symbol string, x, y int) error {
	return rc.addWaypoint(symbol, x, y, true)
}

func (rc *routePlanningContext) aDryWaypointAtPosition(symbol string, x, y int) error {
	return rc.addWaypoint(symbol, x, y, false)
}

func (rc *routePlanningContext) iPlanARoute(start, goal string, fuel, capacity, speed int) error {
	engine := routing.NewEngine()
	rc.plan, rc.planErr = engine.PlanRoute(context.Background(), rc.graph, domainrouting.RouteRequest{
		SystemSymbol:  "X1-TST",
		StartWaypoint: start,
		GoalWaypoint:  goal,
		CurrentFuel:   fuel,
		FuelCapacity:  capacity,
		EngineSpeed:   speed,
	})
	return nil
}

func (rc *routePlanningContext) thePlanShouldHaveSteps(count int) error {
	if rc.planErr != nil {
		return fmt.Errorf("planning failed: %w", rc.planErr)
	}
	if len(rc.plan.Steps) != count {
		return fmt.Errorf("expected %d steps, got %d", count, len(rc.plan.Steps))
	}
	return nil
}

func (rc *routePlanningContext) step(n int) (*navigationStep, error) {
	if rc.plan == nil {
		return nil, fmt.Errorf("no plan available")
	}
	if n < 1 || n > len(rc.plan.Steps) {
		return nil, fmt.Errorf("step %d out of range, plan has %d steps", n, len(rc.plan.Steps))
	}
	s := rc.plan.Steps[n-1]
	return &navigationStep{s.IsTravel(), s.IsRefuel(), s.To, s.At, s.Mode.String()}, nil
}

type navigationStep struct {
	travel bool
	refuel bool
	to     string
	at     string
	mode   string
}

func (rc *routePlanningContext) stepShouldTravelIn(n int, destination, mode string) error {
	s, err := rc.step(n)
	if err != nil {
		return err
	}
	if !s.travel {
		return fmt.Errorf("step %d is not a travel step", n)
	}
	if s.to != destination {
		return fmt.Errorf("step %d travels to %s, expected %s", n, s.to, destination)
	}
	if s.mode != mode {
		return fmt.Errorf("step %d uses %s mode, expected %s", n, s.mode, mode)
	}
	return nil
}

func (rc *routePlanningContext) stepShouldRefuelAt(n int, waypoint string) error {
	s, err := rc.step(n)
	if err != nil {
		return err
	}
	if !s.refuel {
		return fmt.Errorf("step %d is not a refuel step", n)
	}
	if s.at != waypoint {
		return fmt.Errorf("step %d refuels at %s, expected %s", n, s.at, waypoint)
	}
	return nil
}

func (rc *routePlanningContext) thePlanShouldConsumeFuel(units int) error {
	if rc.planErr != nil {
		return fmt.Errorf("planning failed: %w", rc.planErr)
	}
	if rc.plan.TotalFuel != units {
		return fmt.Errorf("plan consumes %d fuel, expected %d", rc.plan.TotalFuel, units)
	}
	return nil
}

func (rc *routePlanningContext) planningShouldFailWithNoRouteFound() error {
	if rc.planErr == nil {
		return fmt.Errorf("expected planning to fail, got a plan with %d steps", len(rc.plan.Steps))
	}
	if !shared.IsCode(rc.planErr, shared.ErrNoRouteFound) {
		return fmt.Errorf("expected NoRouteFound, got: %v", rc.planErr)
	}
	return nil
}

// InitializeRoutePlanningScenario registers route planning steps.
func InitializeRoutePlanningScenario(sc *godog.ScenarioContext) {
	rc := &routePlanningContext{}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		rc.reset()
		return ctx, nil
	})

	sc.Step(`^a fuel station "([^"]+)" at position (-?\d+), (-?\d+)$`, rc.aFuelStationAtPosition)
	sc.Step(`^a dry waypoint "([^"]+)" at position (-?\d+), (-?\d+)$`, rc.aDryWaypointAtPosition)
	sc.Step(`^I plan a route from "([^"]+)" to "([^"]+)" with fuel (\d+) of (\d+) and engine speed (\d+)$`, rc.iPlanARoute)
	sc.Step(`^the plan should have (\d+) steps?$`, rc.thePlanShouldHaveSteps)
	sc.Step(`^step (\d+) should travel to "([^"]+)" in "([^"]+)" mode$`, rc.stepShouldTravelIn)
	sc.Step(`^step (\d+) should refuel at "([^"]+)"$`, rc.stepShouldRefuelAt)
	sc.Step(`^the plan should consume (\d+) fuel$`, rc.thePlanShouldConsumeFuel)
	sc.Step(`^planning should fail with no route found$`, rc.planningShouldFailWithNoRouteFound)
}
