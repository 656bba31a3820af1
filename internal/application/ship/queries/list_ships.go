package queries

import (
	"context"
	"fmt"

	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	"github.com/orbitalmachines/astrogator/internal/application/player"
	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
)

// ListShipsQuery lists every ship the player owns.
type ListShipsQuery struct {
	PlayerID    *int
	AgentSymbol string
}

type ListShipsResponse struct {
	Ships []*ShipDTO
}

type ListShipsHandler struct {
	shipRepo       navigation.ShipRepository
	playerResolver *player.Resolver
}

func NewListShipsHandler(shipRepo navigation.ShipRepository, playerResolver *player.Resolver) *ListShipsHandler {
	return &ListShipsHandler{
		shipRepo:       shipRepo,
		playerResolver: playerResolver,
	}
}

func (h *ListShipsHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	query, ok := request.(*ListShipsQuery)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *ListShipsQuery")
	}

	playerID, err := h.playerResolver.ResolvePlayerID(ctx, query.PlayerID, query.AgentSymbol)
	if err != nil {
		return nil, err
	}

	ships, err := h.shipRepo.FindAllByPlayer(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ships: %w", err)
	}

	dtos := make([]*ShipDTO, len(ships))
	for i, s := range ships {
		dtos[i] = toShipDTO(s)
	}

	return &ListShipsResponse{Ships: dtos}, nil
}
