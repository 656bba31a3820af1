package commands

import (
	"context"
	"fmt"

	"github.com/orbitalmachines/astrogator/internal/application/logging"
	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	"github.com/orbitalmachines/astrogator/internal/domain/container"
	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/internal/domain/system"
)

// AssignScoutingFleetCommand puts every probe and satellite the player owns
// in a system to work scouting its markets, indefinitely. Fuel stations are
// excluded; their markets only trade fuel.
type AssignScoutingFleetCommand struct {
	PlayerID     shared.PlayerID
	SystemSymbol string `validate:"required"`
}

type AssignScoutingFleetResponse struct {
	AssignedShips    []string
	Assignments      map[string][]string
	ContainerIDs     []string
	ReusedContainers []string
}

type AssignScoutingFleetHandler struct {
	shipRepo     navigation.ShipRepository
	waypointRepo system.WaypointRepository
	mediator     mediator.Mediator
}

func NewAssignScoutingFleetHandler(
	shipRepo navigation.ShipRepository,
	waypointRepo system.WaypointRepository,
	m mediator.Mediator,
) *AssignScoutingFleetHandler {
	return &AssignScoutingFleetHandler{
		shipRepo:     shipRepo,
		waypointRepo: waypointRepo,
		mediator:     m,
	}
}

func (h *AssignScoutingFleetHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*AssignScoutingFleetCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *AssignScoutingFleetCommand")
	}

	scoutSymbols, err := h.findScoutShips(ctx, cmd)
	if err != nil {
		return nil, err
	}

	marketSymbols, err := h.findScoutableMarkets(ctx, cmd.SystemSymbol)
	if err != nil {
		return nil, err
	}

	logging.LoggerFromContext(ctx).Log("INFO", "Assigning scouting fleet", map[string]interface{}{
		"system":  cmd.SystemSymbol,
		"ships":   len(scoutSymbols),
		"markets": len(marketSymbols),
	})

	response, err := h.mediator.Send(ctx, &ScoutMarketsCommand{
		PlayerID:     cmd.PlayerID,
		ShipSymbols:  scoutSymbols,
		SystemSymbol: cmd.SystemSymbol,
		Markets:      marketSymbols,
		Iterations:   container.InfiniteIterations,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to deploy scouting fleet: %w", err)
	}

	scoutResult, ok := response.(*ScoutMarketsResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response type %T from scout markets", response)
	}

	return &AssignScoutingFleetResponse{
		AssignedShips:    scoutSymbols,
		Assignments:      scoutResult.Assignments,
		ContainerIDs:     scoutResult.ContainerIDs,
		ReusedContainers: scoutResult.ReusedContainers,
	}, nil
}

// findScoutShips returns the player's probe and satellite frames currently
// in the target system. Haulers stay out of scouting; their cargo holds earn
// elsewhere.
func (h *AssignScoutingFleetHandler) findScoutShips(
	ctx context.Context,
	cmd *AssignScoutingFleetCommand,
) ([]string, error) {
	ships, err := h.shipRepo.FindAllByPlayer(ctx, cmd.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ships: %w", err)
	}

	var scoutSymbols []string
	for _, shipEntity := range ships {
		if shipEntity.CurrentLocation().SystemSymbol != cmd.SystemSymbol {
			continue
		}
		if shipEntity.IsScoutType() {
			scoutSymbols = append(scoutSymbols, shipEntity.ShipSymbol())
		}
	}

	if len(scoutSymbols) == 0 {
		return nil, fmt.Errorf("no probe or satellite ships found in %s", cmd.SystemSymbol)
	}
	return scoutSymbols, nil
}

// findScoutableMarkets lists the system's marketplaces minus fuel stations.
func (h *AssignScoutingFleetHandler) findScoutableMarkets(ctx context.Context, systemSymbol string) ([]string, error) {
	marketplaces, err := h.waypointRepo.ListBySystemWithTrait(ctx, systemSymbol, "MARKETPLACE")
	if err != nil {
		return nil, fmt.Errorf("failed to list marketplaces: %w", err)
	}

	var marketSymbols []string
	for _, waypoint := range marketplaces {
		if waypoint.Type == "FUEL_STATION" {
			continue
		}
		marketSymbols = append(marketSymbols, waypoint.Symbol)
	}

	if len(marketSymbols) == 0 {
		return nil, fmt.Errorf("no scoutable marketplaces found in %s", systemSymbol)
	}
	return marketSymbols, nil
}
