package rpc

import (
	"context"
	"encoding/json"

	shipcommands "github.com/orbitalmachines/astrogator/internal/application/ship/commands"
	shipqueries "github.com/orbitalmachines/astrogator/internal/application/ship/queries"
	shiptypes "github.com/orbitalmachines/astrogator/internal/application/ship/types"
	"github.com/orbitalmachines/astrogator/internal/domain/container"
	"github.com/orbitalmachines/astrogator/internal/domain/daemon"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// playerParams is the identity pair every request may carry. Either field
// resolves to a player; the numeric id wins when both are set.
type playerParams struct {
	PlayerID    *int   `json:"player_id"`
	AgentSymbol string `json:"agent_symbol"`
}

func (s *Server) resolvePlayer(ctx context.Context, p playerParams) (shared.PlayerID, error) {
	return s.resolver.ResolvePlayerID(ctx, p.PlayerID, p.AgentSymbol)
}

// launchResult is the wire shape of an accepted container intent.
type launchResult struct {
	ContainerID string `json:"container_id"`
	Reused      bool   `json:"reused"`
}

// Navigate accepts the intent and returns the container id immediately; the
// route plans and executes in the background.
func (s *Server) handleNavigate(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		playerParams
		ShipSymbol  string `json:"ship_symbol"`
		Destination string `json:"destination"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.ShipSymbol == "" || p.Destination == "" {
		return nil, shared.NewDomainError(shared.ErrInvalidParams, "ship_symbol and destination are required")
	}

	playerID, err := s.resolvePlayer(ctx, p.playerParams)
	if err != nil {
		return nil, err
	}

	result, err := s.registry.Launch(ctx, daemon.LaunchSpec{
		Kind:          container.ContainerTypeNavigate,
		PlayerID:      playerID,
		ShipSymbol:    p.ShipSymbol,
		MaxIterations: 1,
		Metadata: map[string]interface{}{
			"ship_symbol": p.ShipSymbol,
			"destination": p.Destination,
		},
		Command: &shipcommands.NavigateRouteCommand{
			ShipSymbol:  p.ShipSymbol,
			Destination: p.Destination,
			PlayerID:    playerID,
		},
	})
	if err != nil {
		return nil, err
	}
	return launchResult{ContainerID: result.ContainerID, Reused: result.Reused}, nil
}

func (s *Server) handleDock(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		playerParams
		ShipSymbol string `json:"ship_symbol"`
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

	result, err := s.registry.Launch(ctx, daemon.LaunchSpec{
		Kind:          container.ContainerTypeDock,
		PlayerID:      playerID,
		ShipSymbol:    p.ShipSymbol,
		MaxIterations: 1,
		Metadata:      map[string]interface{}{"ship_symbol": p.ShipSymbol},
		Command:       &shiptypes.DockShipCommand{ShipSymbol: p.ShipSymbol, PlayerID: playerID},
	})
	if err != nil {
		return nil, err
	}
	return launchResult{ContainerID: result.ContainerID, Reused: result.Reused}, nil
}

func (s *Server) handleOrbit(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		playerParams
		ShipSymbol string `json:"ship_symbol"`
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

	result, err := s.registry.Launch(ctx, daemon.LaunchSpec{
		Kind:          container.ContainerTypeOrbit,
		PlayerID:      playerID,
		ShipSymbol:    p.ShipSymbol,
		MaxIterations: 1,
		Metadata:      map[string]interface{}{"ship_symbol": p.ShipSymbol},
		Command:       &shiptypes.OrbitShipCommand{ShipSymbol: p.ShipSymbol, PlayerID: playerID},
	})
	if err != nil {
		return nil, err
	}
	return launchResult{ContainerID: result.ContainerID, Reused: result.Reused}, nil
}

func (s *Server) handleRefuel(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		playerParams
		ShipSymbol string `json:"ship_symbol"`
		Units      *int   `json:"units"`
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

	metadata := map[string]interface{}{"ship_symbol": p.ShipSymbol}
	if p.Units != nil {
		metadata["units"] = *p.Units
	}

	result, err := s.registry.Launch(ctx, daemon.LaunchSpec{
		Kind:          container.ContainerTypeRefuel,
		PlayerID:      playerID,
		ShipSymbol:    p.ShipSymbol,
		MaxIterations: 1,
		Metadata:      metadata,
		Command: &shiptypes.RefuelShipCommand{
			ShipSymbol: p.ShipSymbol,
			PlayerID:   playerID,
			Units:      p.Units,
		},
	})
	if err != nil {
		return nil, err
	}
	return launchResult{ContainerID: result.ContainerID, Reused: result.Reused}, nil
}

func (s *Server) handleListShips(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p playerParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	resp, err := s.mediator.Send(ctx, &shipqueries.ListShipsQuery{
		PlayerID:    p.PlayerID,
		AgentSymbol: p.AgentSymbol,
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Server) handleGetShip(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var p struct {
		playerParams
		ShipSymbol string `json:"ship_symbol"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	resp, err := s.mediator.Send(ctx, &shipqueries.GetShipQuery{
		ShipSymbol:  p.ShipSymbol,
		PlayerID:    p.PlayerID,
		AgentSymbol: p.AgentSymbol,
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
