package queries

import (
	"context"
	"fmt"

	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	"github.com/orbitalmachines/astrogator/internal/domain/player"
)

// ListPlayersQuery lists every registered player.
type ListPlayersQuery struct{}

type ListPlayersResponse struct {
	Players []*player.Player
}

type ListPlayersHandler struct {
	playerRepo player.Repository
}

func NewListPlayersHandler(playerRepo player.Repository) *ListPlayersHandler {
	return &ListPlayersHandler{playerRepo: playerRepo}
}

func (h *ListPlayersHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	if _, ok := request.(*ListPlayersQuery); !ok {
		return nil, fmt.Errorf("invalid request type: expected *ListPlayersQuery")
	}

	players, err := h.playerRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}

	return &ListPlayersResponse{Players: players}, nil
}
