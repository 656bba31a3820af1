package rpc

import (
	"context"
	"encoding/json"

	contractcommands "github.com/orbitalmachines/astrogator/internal/application/contract/commands"
	scoutingcommands "github.com/orbitalmachines/astrogator/internal/application/scouting/commands"
	shipyardcommands "github.com/orbitalmachines/astrogator/internal/application/shipyard/commands"
	tradingcommands "github.com/orbitalmachines/astrogator/internal/application/trading/commands"
	"github.com/orbitalmachines/astrogator/internal/domain/container"
	"github.com/orbitalmachines/astrogator/internal/domain/daemon"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

func (s *Server) handleShipyardPurchase(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		playerParams
		ShipSymbol       string `json:"ship_symbol"`
		ShipType         string `json:"ship_type"`
		ShipyardWaypoint string `json:"shipyard_waypoint"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.ShipSymbol == "" || p.ShipType == "" {
		return nil, shared.NewDomainError(shared.ErrInvalidParams, "ship_symbol and ship_type are required")
	}

	playerID, err := s.resolvePlayer(ctx, p.playerParams)
	if err != nil {
		return nil, err
	}

	metadata := map[string]interface{}{
		"ship_symbol": p.ShipSymbol,
		"ship_type":   p.ShipType,
	}
	if p.ShipyardWaypoint != "" {
		metadata["shipyard_waypoint"] = p.ShipyardWaypoint
	}

	result, err := s.registry.Launch(ctx, daemon.LaunchSpec{
		Kind:          container.ContainerTypeShipyardPurchase,
		PlayerID:      playerID,
		ShipSymbol:    p.ShipSymbol,
		MaxIterations: 1,
		Metadata:      metadata,
		Command: &shipyardcommands.PurchaseShipCommand{
			ShipSymbol:       p.ShipSymbol,
			ShipType:         p.ShipType,
			PlayerID:         playerID,
			ShipyardWaypoint: p.ShipyardWaypoint,
		},
	})
	if err != nil {
		return nil, err
	}
	return launchResult{ContainerID: result.ContainerID, Reused: result.Reused}, nil
}

func (s *Server) handleShipyardBatchPurchase(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		playerParams
		ShipSymbol       string `json:"ship_symbol"`
		ShipType         string `json:"ship_type"`
		Quantity         int    `json:"quantity"`
		MaxBudget        int    `json:"max_budget"`
		ShipyardWaypoint string `json:"shipyard_waypoint"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.ShipSymbol == "" || p.ShipType == "" || p.Quantity < 1 || p.MaxBudget < 1 {
		return nil, shared.NewDomainError(shared.ErrInvalidParams,
			"ship_symbol, ship_type, quantity and max_budget are required")
	}

	playerID, err := s.resolvePlayer(ctx, p.playerParams)
	if err != nil {
		return nil, err
	}

	metadata := map[string]interface{}{
		"ship_symbol": p.ShipSymbol,
		"ship_type":   p.ShipType,
		"quantity":    p.Quantity,
		"max_budget":  p.MaxBudget,
	}
	if p.ShipyardWaypoint != "" {
		metadata["shipyard_waypoint"] = p.ShipyardWaypoint
	}

	result, err := s.registry.Launch(ctx, daemon.LaunchSpec{
		Kind:          container.ContainerTypeBatchPurchase,
		PlayerID:      playerID,
		ShipSymbol:    p.ShipSymbol,
		MaxIterations: 1,
		Metadata:      metadata,
		Command: &shipyardcommands.BatchPurchaseShipsCommand{
			ShipSymbol:       p.ShipSymbol,
			ShipType:         p.ShipType,
			Quantity:         p.Quantity,
			MaxBudget:        p.MaxBudget,
			PlayerID:         playerID,
			ShipyardWaypoint: p.ShipyardWaypoint,
		},
	})
	if err != nil {
		return nil, err
	}
	return launchResult{ContainerID: result.ContainerID, Reused: result.Reused}, nil
}

// ScoutMarkets partitions markets across a fleet and launches the tour
// containers synchronously; the response already names every container.
func (s *Server) handleScoutMarkets(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		playerParams
		ShipSymbols  []string `json:"ship_symbols"`
		SystemSymbol string   `json:"system_symbol"`
		Markets      []string `json:"markets"`
		Iterations   int      `json:"iterations"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	playerID, err := s.resolvePlayer(ctx, p.playerParams)
	if err != nil {
		return nil, err
	}

	resp, err := s.mediator.Send(ctx, &scoutingcommands.ScoutMarketsCommand{
		PlayerID:     playerID,
		ShipSymbols:  p.ShipSymbols,
		SystemSymbol: p.SystemSymbol,
		Markets:      p.Markets,
		Iterations:   normalizeIterations(p.Iterations),
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Server) handleScoutTour(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		playerParams
		ShipSymbol string   `json:"ship_symbol"`
		Markets    []string `json:"markets"`
		Iterations int      `json:"iterations"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.ShipSymbol == "" || len(p.Markets) == 0 {
		return nil, shared.NewDomainError(shared.ErrInvalidParams, "ship_symbol and markets are required")
	}

	playerID, err := s.resolvePlayer(ctx, p.playerParams)
	if err != nil {
		return nil, err
	}

	iterations := normalizeIterations(p.Iterations)
	result, err := s.registry.Launch(ctx, daemon.LaunchSpec{
		Kind:          container.ContainerTypeScoutTour,
		PlayerID:      playerID,
		ShipSymbol:    p.ShipSymbol,
		MaxIterations: iterations,
		Metadata: map[string]interface{}{
			"ship_symbol": p.ShipSymbol,
			"markets":     p.Markets,
			"iterations":  iterations,
		},
		Command: &scoutingcommands.ScoutTourCommand{
			PlayerID:   playerID,
			ShipSymbol: p.ShipSymbol,
			Markets:    p.Markets,
			Iterations: iterations,
		},
	})
	if err != nil {
		return nil, err
	}
	return launchResult{ContainerID: result.ContainerID, Reused: result.Reused}, nil
}

func (s *Server) handleAssignScoutingFleet(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		playerParams
		SystemSymbol string `json:"system_symbol"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.SystemSymbol == "" {
		return nil, shared.NewDomainError(shared.ErrInvalidParams, "system_symbol is required")
	}

	playerID, err := s.resolvePlayer(ctx, p.playerParams)
	if err != nil {
		return nil, err
	}

	resp, err := s.mediator.Send(ctx, &scoutingcommands.AssignScoutingFleetCommand{
		PlayerID:     playerID,
		SystemSymbol: p.SystemSymbol,
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Server) handleContractBatchWorkflow(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		playerParams
		ShipSymbol string `json:"ship_symbol"`
		Iterations int    `json:"iterations"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.ShipSymbol == "" {
		return nil, shared.NewDomainError(shared.ErrInvalidParams, "ship_symbol is required")
	}

	playerID, err := s.resolvePlayer(ctx, p.playerParams)
	if err != nil {
		return nil, err
	}

	iterations := normalizeIterations(p.Iterations)
	result, err := s.registry.Launch(ctx, daemon.LaunchSpec{
		Kind:          container.ContainerTypeContractWorkflow,
		PlayerID:      playerID,
		ShipSymbol:    p.ShipSymbol,
		MaxIterations: iterations,
		Metadata: map[string]interface{}{
			"ship_symbol": p.ShipSymbol,
			"iterations":  iterations,
		},
		Command: &contractcommands.RunContractWorkflowCommand{
			ShipSymbol: p.ShipSymbol,
			PlayerID:   playerID,
		},
	})
	if err != nil {
		return nil, err
	}
	return launchResult{ContainerID: result.ContainerID, Reused: result.Reused}, nil
}

func (s *Server) handleArbitrage(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		playerParams
		ShipSymbol   string  `json:"ship_symbol"`
		SystemSymbol string  `json:"system_symbol"`
		MinMargin    float64 `json:"min_margin"`
		Iterations   int     `json:"iterations"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.ShipSymbol == "" || p.SystemSymbol == "" {
		return nil, shared.NewDomainError(shared.ErrInvalidParams, "ship_symbol and system_symbol are required")
	}

	playerID, err := s.resolvePlayer(ctx, p.playerParams)
	if err != nil {
		return nil, err
	}

	iterations := normalizeIterations(p.Iterations)
	metadata := map[string]interface{}{
		"ship_symbol":   p.ShipSymbol,
		"system_symbol": p.SystemSymbol,
		"iterations":    iterations,
	}
	if p.MinMargin > 0 {
		metadata["min_margin"] = p.MinMargin
	}

	result, err := s.registry.Launch(ctx, daemon.LaunchSpec{
		Kind:          container.ContainerTypeArbitrage,
		PlayerID:      playerID,
		ShipSymbol:    p.ShipSymbol,
		MaxIterations: iterations,
		Metadata:      metadata,
		Command: &tradingcommands.RunArbitrageCommand{
			ShipSymbol:   p.ShipSymbol,
			SystemSymbol: p.SystemSymbol,
			PlayerID:     playerID,
			MinMargin:    p.MinMargin,
		},
	})
	if err != nil {
		return nil, err
	}
	return launchResult{ContainerID: result.ContainerID, Reused: result.Reused}, nil
}

// normalizeIterations maps the wire convention (0 or negative = run forever)
// onto the container loop's infinite marker.
func normalizeIterations(n int) int {
	if n <= 0 {
		return container.InfiniteIterations
	}
	return n
}
