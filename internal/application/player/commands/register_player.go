package commands

import (
	"context"
	"fmt"

	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	"github.com/orbitalmachines/astrogator/internal/domain/player"
	"github.com/orbitalmachines/astrogator/internal/domain/ports"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// RegisterPlayerCommand registers an agent with the daemon. When Token is
// empty the agent is first registered remotely (Faction required); when a
// token is supplied the agent already exists and is only verified.
type RegisterPlayerCommand struct {
	AgentSymbol string `validate:"required,min=3,max=14"`
	Faction     string
	Token       string
}

type RegisterPlayerResponse struct {
	Player *player.Player
}

type RegisterPlayerHandler struct {
	playerRepo player.Repository
	apiClient  ports.APIClient
}

func NewRegisterPlayerHandler(playerRepo player.Repository, apiClient ports.APIClient) *RegisterPlayerHandler {
	return &RegisterPlayerHandler{
		playerRepo: playerRepo,
		apiClient:  apiClient,
	}
}

func (h *RegisterPlayerHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	cmd, ok := request.(*RegisterPlayerCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *RegisterPlayerCommand")
	}

	if existing, err := h.playerRepo.FindByAgentSymbol(ctx, cmd.AgentSymbol); err == nil && existing != nil {
		return nil, shared.NewDomainErrorf(shared.ErrInvalidParams,
			"agent %s is already registered as player %s", existing.AgentSymbol, existing.ID.String())
	}

	token := cmd.Token
	var agent *player.AgentData

	if token == "" {
		if cmd.Faction == "" {
			return nil, shared.NewDomainError(shared.ErrInvalidParams,
				"faction is required when registering a new agent")
		}
		registration, err := h.apiClient.RegisterAgent(ctx, cmd.AgentSymbol, cmd.Faction)
		if err != nil {
			return nil, fmt.Errorf("failed to register agent: %w", err)
		}
		token = registration.Token
		agent = registration.Agent
	} else {
		// Existing agent: the token is the credential, verify it works.
		fetched, err := h.apiClient.GetAgent(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("token verification failed: %w", err)
		}
		agent = fetched
	}

	p, err := player.New(cmd.AgentSymbol, token)
	if err != nil {
		return nil, err
	}
	if agent != nil {
		p.UpdateFromAgent(agent)
	}

	if err := h.playerRepo.Add(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save player: %w", err)
	}

	return &RegisterPlayerResponse{Player: p}, nil
}
