package queries

import (
	"context"
	"fmt"

	"github.com/orbitalmachines/astrogator/internal/application/auth"
	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	appPlayer "github.com/orbitalmachines/astrogator/internal/application/player"
	"github.com/orbitalmachines/astrogator/internal/domain/player"
	"github.com/orbitalmachines/astrogator/internal/domain/ports"
)

// GetPlayerQuery fetches one player by id or agent symbol, refreshing the
// cached credit balance from the API.
type GetPlayerQuery struct {
	PlayerID    *int
	AgentSymbol string
}

type GetPlayerResponse struct {
	Player *player.Player
}

type GetPlayerHandler struct {
	playerRepo player.Repository
	resolver   *appPlayer.Resolver
	apiClient  ports.APIClient
}

func NewGetPlayerHandler(playerRepo player.Repository, resolver *appPlayer.Resolver, apiClient ports.APIClient) *GetPlayerHandler {
	return &GetPlayerHandler{
		playerRepo: playerRepo,
		resolver:   resolver,
		apiClient:  apiClient,
	}
}

func (h *GetPlayerHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	query, ok := request.(*GetPlayerQuery)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *GetPlayerQuery")
	}

	p, err := h.resolver.ResolvePlayer(ctx, query.PlayerID, query.AgentSymbol)
	if err != nil {
		return nil, err
	}

	// Refresh credits when the token middleware resolved us a token; a miss
	// just means the caller sees the cached balance.
	if token, err := auth.PlayerTokenFromContext(ctx); err == nil {
		agent, err := h.apiClient.GetAgent(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch agent from API: %w", err)
		}
		p.UpdateFromAgent(agent)
		if err := h.playerRepo.UpdateCredits(ctx, p.ID, p.Credits); err != nil {
			return nil, fmt.Errorf("failed to persist refreshed credits: %w", err)
		}
	}

	return &GetPlayerResponse{Player: p}, nil
}
