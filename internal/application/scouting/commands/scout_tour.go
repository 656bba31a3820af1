package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/orbitalmachines/astrogator/internal/application/logging"
	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	shipCommands "github.com/orbitalmachines/astrogator/internal/application/ship/commands"
	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// stationaryScanInterval paces repeat scans when the tour is a single market
// and the ship never moves. Multi-stop tours need no pacing; travel is the
// pacing.
const stationaryScanInterval = 60 * time.Second

// MarketScanner records a price observation at a waypoint. The ship
// application service implements it; declaring the seam here keeps the
// dependency pointing one way.
type MarketScanner interface {
	ScanAndSaveMarket(ctx context.Context, playerID shared.PlayerID, waypointSymbol string) error
}

// ScoutTourCommand runs one ship around a set of markets, scanning prices at
// each stop. This is the iteration body of a SCOUT_TOUR container: one
// Handle call is one full tour (or, for a single market, one scan cycle).
//
// A tour that includes the ship's current waypoint is rotated to start
// there, so re-running the command after a restart continues instead of
// backtracking.
type ScoutTourCommand struct {
	PlayerID   shared.PlayerID
	ShipSymbol string   `validate:"required"`
	Markets    []string `validate:"required,min=1"`
	Iterations int
	Context    *shared.OperationContext
}

// ScoutTourResponse reports what the tour accomplished before it finished or
// was cancelled.
type ScoutTourResponse struct {
	MarketsVisited int
	TourOrder      []string
	Iterations     int
}

type ScoutTourHandler struct {
	shipRepo      navigation.ShipRepository
	mediator      mediator.Mediator
	marketScanner MarketScanner
	clock         shared.Clock
}

// NewScoutTourHandler builds the handler. clock nil means the real clock.
func NewScoutTourHandler(
	shipRepo navigation.ShipRepository,
	m mediator.Mediator,
	marketScanner MarketScanner,
	clock shared.Clock,
) *ScoutTourHandler {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &ScoutTourHandler{
		shipRepo:      shipRepo,
		mediator:      m,
		marketScanner: marketScanner,
		clock:         clock,
	}
}

func (h *ScoutTourHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*ScoutTourCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *ScoutTourCommand")
	}

	shipEntity, err := h.shipRepo.FindBySymbol(ctx, cmd.ShipSymbol, cmd.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("failed to find ship: %w", err)
	}

	tourOrder := rotateTourToStart(cmd.Markets, shipEntity.CurrentLocation().Symbol)

	response := &ScoutTourResponse{TourOrder: tourOrder}

	if len(tourOrder) == 1 {
		err = h.runStationaryScout(ctx, cmd, shipEntity, tourOrder[0], response)
	} else {
		err = h.runTour(ctx, cmd, tourOrder, response)
	}

	return response, err
}

// runStationaryScout parks the ship at a single market and re-scans it on a
// fixed cadence until the iteration budget runs out or the context is
// cancelled.
func (h *ScoutTourHandler) runStationaryScout(
	ctx context.Context,
	cmd *ScoutTourCommand,
	shipEntity *navigation.Ship,
	marketWaypoint string,
	response *ScoutTourResponse,
) error {
	logger := logging.LoggerFromContext(ctx)

	if shipEntity.CurrentLocation().Symbol != marketWaypoint {
		// Arrival at a marketplace triggers a scan inside the route executor,
		// so navigation doubles as the first observation.
		if _, err := h.navigateTo(ctx, cmd, marketWaypoint); err != nil {
			return err
		}
		response.MarketsVisited++
	} else {
		logger.Log("INFO", "Ship already at scout position, scanning in place", map[string]interface{}{
			"ship_symbol": cmd.ShipSymbol,
			"waypoint":    marketWaypoint,
		})
		if err := h.scanMarket(ctx, cmd, marketWaypoint); err == nil {
			response.MarketsVisited++
		}
	}
	response.Iterations++

	for iteration := 1; iteration < cmd.Iterations || cmd.Iterations == -1; iteration++ {
		if err := ctx.Err(); err != nil {
			logger.Log("INFO", "Scout tour cancelled", map[string]interface{}{
				"ship_symbol": cmd.ShipSymbol,
				"iterations":  response.Iterations,
			})
			return nil
		}

		h.clock.Sleep(stationaryScanInterval)

		if err := ctx.Err(); err != nil {
			return nil
		}

		if err := h.scanMarket(ctx, cmd, marketWaypoint); err == nil {
			response.MarketsVisited++
		}
		response.Iterations++
	}

	return nil
}

// runTour loops the ship through the rotated visit order, scanning each
// market on arrival. A failed scan moves on to the next stop; a failed
// navigation aborts the tour.
func (h *ScoutTourHandler) runTour(
	ctx context.Context,
	cmd *ScoutTourCommand,
	tourOrder []string,
	response *ScoutTourResponse,
) error {
	for iteration := 0; iteration < cmd.Iterations || cmd.Iterations == -1; iteration++ {
		for _, marketWaypoint := range tourOrder {
			if err := ctx.Err(); err != nil {
				logging.LoggerFromContext(ctx).Log("INFO", "Scout tour cancelled", map[string]interface{}{
					"ship_symbol": cmd.ShipSymbol,
					"iterations":  response.Iterations,
				})
				return nil
			}

			navResult, err := h.navigateTo(ctx, cmd, marketWaypoint)
			if err != nil {
				return err
			}

			// The executor scans on arrival, but a ship already at the stop
			// skips execution entirely; scan explicitly so every loop
			// produces a fresh observation.
			if navResult.Status == "already_at_destination" {
				if err := h.scanMarket(ctx, cmd, marketWaypoint); err != nil {
					continue
				}
			}
			response.MarketsVisited++
		}
		response.Iterations++
	}

	return nil
}

func (h *ScoutTourHandler) navigateTo(
	ctx context.Context,
	cmd *ScoutTourCommand,
	destination string,
) (*shipCommands.NavigateRouteResponse, error) {
	logger := logging.LoggerFromContext(ctx)
	logger.Log("INFO", "Ship navigating to market", map[string]interface{}{
		"ship_symbol": cmd.ShipSymbol,
		"destination": destination,
	})

	response, err := h.mediator.Send(ctx, &shipCommands.NavigateRouteCommand{
		ShipSymbol:  cmd.ShipSymbol,
		Destination: destination,
		PlayerID:    cmd.PlayerID,
		Context:     cmd.Context,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to navigate to %s: %w", destination, err)
	}

	navResult, ok := response.(*shipCommands.NavigateRouteResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected navigate response type %T", response)
	}

	logger.Log("INFO", "Ship arrived at market", map[string]interface{}{
		"ship_symbol": cmd.ShipSymbol,
		"waypoint":    destination,
		"status":      navResult.Status,
		"fuel":        navResult.FuelRemaining,
	})

	return navResult, nil
}

// scanMarket records one price observation. Scan failures are logged and
// reported to the caller, never fatal to the tour.
func (h *ScoutTourHandler) scanMarket(ctx context.Context, cmd *ScoutTourCommand, marketWaypoint string) error {
	if err := h.marketScanner.ScanAndSaveMarket(ctx, cmd.PlayerID, marketWaypoint); err != nil {
		logging.LoggerFromContext(ctx).Log("ERROR", "Market scan failed", map[string]interface{}{
			"ship_symbol": cmd.ShipSymbol,
			"waypoint":    marketWaypoint,
			"error":       err.Error(),
		})
		return err
	}
	return nil
}

// rotateTourToStart shifts the visit order so it begins at the ship's
// current waypoint. A ship not on the tour keeps the planned order.
func rotateTourToStart(markets []string, currentWaypoint string) []string {
	startIndex := -1
	for i, waypoint := range markets {
		if waypoint == currentWaypoint {
			startIndex = i
			break
		}
	}
	if startIndex <= 0 {
		return markets
	}

	rotated := make([]string, len(markets))
	for i := range markets {
		rotated[i] = markets[(startIndex+i)%len(markets)]
	}
	return rotated
}
