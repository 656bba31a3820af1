package ship

import (
	"context"
	"fmt"
	"time"

	"github.com/orbitalmachines/astrogator/internal/adapters/metrics"
	"github.com/orbitalmachines/astrogator/internal/application/logging"
	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	"github.com/orbitalmachines/astrogator/internal/application/ship/types"
	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/routing"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

const (
	// arrivalBufferSeconds pads every transit wait; the API's arrival
	// timestamp and our clock drift by a second or two.
	arrivalBufferSeconds = 3

	// After the wait elapses the API may still report IN_TRANSIT for a few
	// seconds. Poll a bounded number of times before forcing arrival locally.
	transitPollRetries = 5
	transitPollDelay   = 2 * time.Second
)

// RouteExecutor walks a planned route step by step, dispatching the atomic
// ship commands through the mediator: orbit, set mode, navigate, and the
// dock/refuel/orbit triplet for refuel stops.
//
// The executor owns the live ship entity for the duration of the route and
// passes it into every command, so handlers mutate shared state instead of
// re-fetching the ship per command. The entity is re-synced from the API only
// around transit waits, where the server is the authority on arrival.
//
// Safety behaviors carried by every route:
//   - a ship already IN_TRANSIT is waited out before the first step, which
//     makes navigation idempotent across restarts
//   - planned refuel stops are always honored
//   - arriving at a fuel waypoint with a tank below the top-up threshold
//     triggers an opportunistic refuel
//   - marketplaces are scanned on arrival when a scanner is configured
type RouteExecutor struct {
	shipRepo      navigation.ShipRepository
	mediator      mediator.Mediator
	clock         shared.Clock
	marketScanner *MarketScanner
}

// NewRouteExecutor builds an executor. marketScanner nil disables arrival
// scans; clock nil means the real clock.
func NewRouteExecutor(
	shipRepo navigation.ShipRepository,
	m mediator.Mediator,
	clock shared.Clock,
	marketScanner *MarketScanner,
) *RouteExecutor {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &RouteExecutor{
		shipRepo:      shipRepo,
		mediator:      m,
		clock:         clock,
		marketScanner: marketScanner,
	}
}

// ExecuteRoute runs the route to completion. On a step failure the route is
// marked failed and the error returned; completed steps stay completed, so
// the ship is left wherever the failure caught it.
//
// operationContext attributes refuel ledger entries to the parent container
// and may be nil for ad-hoc navigation.
func (e *RouteExecutor) ExecuteRoute(
	ctx context.Context,
	route *navigation.Route,
	ship *navigation.Ship,
	operationContext *shared.OperationContext,
) error {
	logger := logging.LoggerFromContext(ctx)

	if err := route.StartExecution(); err != nil {
		return fmt.Errorf("failed to start route execution: %w", err)
	}

	// Finish any transit left over from a previous command before stepping.
	if err := e.WaitForTransit(ctx, ship); err != nil {
		return err
	}

	stepsExecuted := 0
	for {
		step := route.CurrentStep()
		if step == nil {
			break
		}

		if err := ctx.Err(); err != nil {
			route.Abort()
			e.recordRouteMetrics(route)
			return err
		}

		logger.Log("INFO", "Executing route step", map[string]interface{}{
			"ship_symbol": ship.ShipSymbol(),
			"route_id":    route.RouteID(),
			"step_index":  route.CurrentStepIndex(),
			"step":        step.String(),
		})

		if err := e.executeStep(ctx, *step, ship, operationContext); err != nil {
			logger.Log("ERROR", "Route step failed", map[string]interface{}{
				"ship_symbol": ship.ShipSymbol(),
				"route_id":    route.RouteID(),
				"step_index":  route.CurrentStepIndex(),
				"step":        step.String(),
				"error":       err.Error(),
			})
			route.Fail(err.Error())
			e.recordRouteMetrics(route)
			return err
		}

		if step.IsTravel() {
			metrics.RecordStepCompletion(ship.PlayerID().Value(), int(step.Distance), step.FuelCost)
		}

		if err := route.CompleteStep(); err != nil {
			return err
		}
		stepsExecuted++
	}

	e.recordRouteMetrics(route)

	logger.Log("INFO", "Route execution finished", map[string]interface{}{
		"ship_symbol":    ship.ShipSymbol(),
		"route_id":       route.RouteID(),
		"steps_executed": stepsExecuted,
		"status":         string(route.Status()),
	})
	return nil
}

func (e *RouteExecutor) executeStep(
	ctx context.Context,
	step navigation.Step,
	ship *navigation.Ship,
	operationContext *shared.OperationContext,
) error {
	switch {
	case step.IsRefuel():
		return e.refuelHere(ctx, ship, operationContext)
	case step.IsTravel():
		return e.travel(ctx, step, ship, operationContext)
	default:
		return fmt.Errorf("unknown step type %q", step.Type)
	}
}

// travel performs one hop: orbit, set the planned mode, navigate, wait out
// the transit, then the arrival behaviors (top-up, market scan).
func (e *RouteExecutor) travel(
	ctx context.Context,
	step navigation.Step,
	ship *navigation.Ship,
	operationContext *shared.OperationContext,
) error {
	playerID := ship.PlayerID()

	if _, err := e.mediator.Send(ctx, &types.OrbitShipCommand{
		ShipSymbol: ship.ShipSymbol(),
		PlayerID:   playerID,
		Ship:       ship,
	}); err != nil {
		return fmt.Errorf("failed to orbit: %w", err)
	}

	if _, err := e.mediator.Send(ctx, &types.SetFlightModeCommand{
		ShipSymbol: ship.ShipSymbol(),
		Mode:       step.Mode,
		PlayerID:   playerID,
		Ship:       ship,
	}); err != nil {
		return fmt.Errorf("failed to set flight mode: %w", err)
	}

	response, err := e.mediator.Send(ctx, &types.NavigateDirectCommand{
		ShipSymbol:  ship.ShipSymbol(),
		Destination: step.To,
		PlayerID:    playerID,
		Ship:        ship,
	})
	if err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", step.To, err)
	}

	navResponse, ok := response.(*types.NavigateDirectResponse)
	if !ok {
		return fmt.Errorf("unexpected navigate response type %T", response)
	}

	if navResponse.Status != "already_at_destination" {
		metrics.RecordFuelConsumption(playerID.Value(), step.Mode, navResponse.FuelConsumed)
		if err := e.awaitArrival(ctx, ship, time.Duration(navResponse.WaitSeconds)*time.Second); err != nil {
			return err
		}
	}

	if routing.ShouldTopUpAfterArrival(ship.CurrentLocation().HasFuel, ship.Fuel()) {
		logging.LoggerFromContext(ctx).Log("INFO", "Topping up fuel after arrival", map[string]interface{}{
			"ship_symbol": ship.ShipSymbol(),
			"waypoint":    ship.CurrentLocation().Symbol,
			"fuel":        ship.Fuel().Current,
		})
		if err := e.refuelHere(ctx, ship, operationContext); err != nil {
			return err
		}
	}

	e.scanMarketIfPresent(ctx, ship)

	return nil
}

// refuelHere runs the dock/refuel/orbit triplet at the ship's position.
func (e *RouteExecutor) refuelHere(ctx context.Context, ship *navigation.Ship, operationContext *shared.OperationContext) error {
	playerID := ship.PlayerID()

	if _, err := e.mediator.Send(ctx, &types.DockShipCommand{
		ShipSymbol: ship.ShipSymbol(),
		PlayerID:   playerID,
		Ship:       ship,
	}); err != nil {
		return fmt.Errorf("failed to dock for refuel: %w", err)
	}

	if _, err := e.mediator.Send(ctx, &types.RefuelShipCommand{
		ShipSymbol: ship.ShipSymbol(),
		PlayerID:   playerID,
		Ship:       ship,
		Context:    operationContext,
	}); err != nil {
		return fmt.Errorf("failed to refuel: %w", err)
	}

	if _, err := e.mediator.Send(ctx, &types.OrbitShipCommand{
		ShipSymbol: ship.ShipSymbol(),
		PlayerID:   playerID,
		Ship:       ship,
	}); err != nil {
		return fmt.Errorf("failed to orbit after refuel: %w", err)
	}

	return nil
}

// WaitForTransit waits out a transit that is already underway, leaving the
// ship arrived and in orbit at its destination. No-op for ships not in
// transit.
func (e *RouteExecutor) WaitForTransit(ctx context.Context, ship *navigation.Ship) error {
	if !ship.IsInTransit() {
		return nil
	}

	wait := ship.TimeUntilArrival(e.clock)

	logging.LoggerFromContext(ctx).Log("INFO", "Ship in transit from a previous command, waiting", map[string]interface{}{
		"ship_symbol":  ship.ShipSymbol(),
		"wait_seconds": int(wait.Seconds()) + arrivalBufferSeconds,
	})

	return e.awaitArrival(ctx, ship, wait)
}

// awaitArrival sleeps out the transit plus buffer, then polls the API until
// the ship reports arrival. If the API still says IN_TRANSIT after the polls,
// the local entity is forced to arrive; the API clock is lagging, not the
// ship.
func (e *RouteExecutor) awaitArrival(ctx context.Context, ship *navigation.Ship, wait time.Duration) error {
	logger := logging.LoggerFromContext(ctx)

	if wait > 0 {
		e.clock.Sleep(wait + arrivalBufferSeconds*time.Second)
	}

	if err := e.resyncShip(ctx, ship); err != nil {
		return err
	}

	for i := 0; i < transitPollRetries && ship.IsInTransit(); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		logger.Log("DEBUG", "Ship still in transit, polling", map[string]interface{}{
			"ship_symbol": ship.ShipSymbol(),
			"attempt":     i + 1,
			"max_retries": transitPollRetries,
		})
		e.clock.Sleep(transitPollDelay)
		if err := e.resyncShip(ctx, ship); err != nil {
			return err
		}
	}

	if ship.IsInTransit() {
		logger.Log("WARN", "Ship still in transit after polling, forcing arrival", map[string]interface{}{
			"ship_symbol": ship.ShipSymbol(),
			"retries":     transitPollRetries,
		})
		if err := ship.Arrive(); err != nil {
			return fmt.Errorf("failed to mark ship arrived: %w", err)
		}
	}

	return nil
}

// resyncShip replaces the live entity's state with the repository's view.
func (e *RouteExecutor) resyncShip(ctx context.Context, ship *navigation.Ship) error {
	fresh, err := e.shipRepo.FindBySymbol(ctx, ship.ShipSymbol(), ship.PlayerID())
	if err != nil {
		return fmt.Errorf("failed to sync ship state: %w", err)
	}
	*ship = *fresh
	return nil
}

func (e *RouteExecutor) scanMarketIfPresent(ctx context.Context, ship *navigation.Ship) {
	if e.marketScanner == nil || !ship.CurrentLocation().IsMarketplace() {
		return
	}

	if err := e.marketScanner.ScanAndSaveMarket(ctx, ship.PlayerID(), ship.CurrentLocation().Symbol); err != nil {
		logging.LoggerFromContext(ctx).Log("ERROR", "Market scan on arrival failed", map[string]interface{}{
			"ship_symbol": ship.ShipSymbol(),
			"waypoint":    ship.CurrentLocation().Symbol,
			"error":       err.Error(),
		})
	}
}

func (e *RouteExecutor) recordRouteMetrics(route *navigation.Route) {
	duration := e.clock.Now().Sub(route.CreatedAt()).Seconds()
	metrics.RecordRouteCompletion(
		route.PlayerID().Value(),
		route.Status(),
		duration,
		int(route.TotalDistance()),
		route.TotalFuelRequired(),
	)
}
