package commands

import (
	"context"
	"fmt"

	"github.com/orbitalmachines/astrogator/internal/application/logging"
	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	"github.com/orbitalmachines/astrogator/internal/domain/container"
	"github.com/orbitalmachines/astrogator/internal/domain/daemon"
	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
	"github.com/orbitalmachines/astrogator/internal/domain/routing"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/internal/domain/system"
)

// ScoutMarketsCommand deploys a set of ships across a system's markets.
// Markets are partitioned so every market belongs to exactly one ship, then
// one SCOUT_TOUR container is launched per ship with an assignment.
//
// Safe to retry: launching goes through the supervisor's find-or-create, so
// a ship already running a scout tour keeps its container and the response
// reports it as reused.
type ScoutMarketsCommand struct {
	PlayerID     shared.PlayerID
	ShipSymbols  []string `validate:"required,min=1"`
	SystemSymbol string   `validate:"required"`
	Markets      []string
	Iterations   int
}

// ScoutMarketsResponse maps ships to their market assignments. ContainerIDs
// holds every container serving the fleet; ReusedContainers is the subset
// that already existed.
type ScoutMarketsResponse struct {
	ContainerIDs     []string
	Assignments      map[string][]string
	ReusedContainers []string
}

type ScoutMarketsHandler struct {
	shipRepo      navigation.ShipRepository
	graphProvider system.GraphProvider
	planner       routing.Planner
	launcher      daemon.ContainerLauncher
}

func NewScoutMarketsHandler(
	shipRepo navigation.ShipRepository,
	graphProvider system.GraphProvider,
	planner routing.Planner,
	launcher daemon.ContainerLauncher,
) *ScoutMarketsHandler {
	return &ScoutMarketsHandler{
		shipRepo:      shipRepo,
		graphProvider: graphProvider,
		planner:       planner,
		launcher:      launcher,
	}
}

func (h *ScoutMarketsHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*ScoutMarketsCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *ScoutMarketsCommand")
	}

	if len(cmd.Markets) == 0 {
		return &ScoutMarketsResponse{
			Assignments: make(map[string][]string),
		}, nil
	}

	assignments, err := h.partitionMarkets(ctx, cmd)
	if err != nil {
		return nil, err
	}

	return h.launchTours(ctx, cmd, assignments)
}

// partitionMarkets splits the markets across the fleet, minimizing the
// slowest ship's tour time. Distances come from the fuel-aware planner, not
// straight lines.
func (h *ScoutMarketsHandler) partitionMarkets(
	ctx context.Context,
	cmd *ScoutMarketsCommand,
) (map[string][]string, error) {
	fleet := make([]routing.FleetShip, 0, len(cmd.ShipSymbols))
	for _, shipSymbol := range cmd.ShipSymbols {
		shipEntity, err := h.shipRepo.FindBySymbol(ctx, shipSymbol, cmd.PlayerID)
		if err != nil {
			return nil, fmt.Errorf("failed to load ship %s: %w", shipSymbol, err)
		}

		fleet = append(fleet, routing.FleetShip{
			ShipSymbol:   shipSymbol,
			Location:     shipEntity.CurrentLocation().Symbol,
			CurrentFuel:  shipEntity.Fuel().Current,
			FuelCapacity: shipEntity.FuelCapacity(),
			EngineSpeed:  shipEntity.EngineSpeed(),
		})
	}

	graphResult, err := h.graphProvider.GetGraph(ctx, cmd.SystemSymbol, false, cmd.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get graph for %s: %w", cmd.SystemSymbol, err)
	}

	plan, err := h.planner.PartitionFleet(ctx, graphResult.Graph, routing.FleetRequest{
		SystemSymbol: cmd.SystemSymbol,
		Ships:        fleet,
		Markets:      cmd.Markets,
	})
	if err != nil {
		return nil, fmt.Errorf("fleet partition failed: %w", err)
	}

	assignments := make(map[string][]string, len(cmd.ShipSymbols))
	for _, shipSymbol := range cmd.ShipSymbols {
		if tour, ok := plan.Assignments[shipSymbol]; ok {
			assignments[shipSymbol] = tour.Waypoints
		} else {
			assignments[shipSymbol] = []string{}
		}
	}
	return assignments, nil
}

// launchTours starts one scout-tour container per ship with markets. Spare
// ships (more ships than markets) keep an empty assignment and no container.
func (h *ScoutMarketsHandler) launchTours(
	ctx context.Context,
	cmd *ScoutMarketsCommand,
	assignments map[string][]string,
) (*ScoutMarketsResponse, error) {
	logger := logging.LoggerFromContext(ctx)
	response := &ScoutMarketsResponse{
		Assignments: assignments,
	}

	for _, shipSymbol := range cmd.ShipSymbols {
		markets := assignments[shipSymbol]
		if len(markets) == 0 {
			continue
		}

		result, err := h.launcher.Launch(ctx, daemon.LaunchSpec{
			Kind:          container.ContainerTypeScoutTour,
			PlayerID:      cmd.PlayerID,
			ShipSymbol:    shipSymbol,
			MaxIterations: cmd.Iterations,
			Metadata: map[string]interface{}{
				"ship_symbol":   shipSymbol,
				"system_symbol": cmd.SystemSymbol,
				"markets":       markets,
				"iterations":    cmd.Iterations,
			},
			Command: &ScoutTourCommand{
				PlayerID:   cmd.PlayerID,
				ShipSymbol: shipSymbol,
				Markets:    markets,
				Iterations: cmd.Iterations,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to launch scout tour for %s: %w", shipSymbol, err)
		}

		response.ContainerIDs = append(response.ContainerIDs, result.ContainerID)
		if result.Reused {
			response.ReusedContainers = append(response.ReusedContainers, result.ContainerID)
			logger.Log("INFO", "Ship already scouting, container reused", map[string]interface{}{
				"ship_symbol":  shipSymbol,
				"container_id": result.ContainerID,
			})
			continue
		}

		logger.Log("INFO", "Scout tour container launched", map[string]interface{}{
			"ship_symbol":  shipSymbol,
			"container_id": result.ContainerID,
			"markets":      len(markets),
		})
	}

	return response, nil
}
