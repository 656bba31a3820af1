package player

import (
	"context"

	"github.com/orbitalmachines/astrogator/internal/domain/player"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// Resolver turns the (player_id, agent_symbol) pair every RPC request may
// carry into a concrete player id. Handlers share one resolver instead of
// each reimplementing the precedence rule.
type Resolver struct {
	playerRepo player.Repository
}

func NewResolver(playerRepo player.Repository) *Resolver {
	return &Resolver{playerRepo: playerRepo}
}

// ResolvePlayerID resolves a player id from a numeric id or an agent symbol.
// The numeric id wins when both are set; providing neither is an error.
func (r *Resolver) ResolvePlayerID(ctx context.Context, playerID *int, agentSymbol string) (shared.PlayerID, error) {
	if playerID == nil && agentSymbol == "" {
		return shared.PlayerID{}, shared.NewDomainError(shared.ErrInvalidParams,
			"either player_id or agent_symbol must be provided")
	}

	if playerID != nil {
		pid, err := shared.NewPlayerID(*playerID)
		if err != nil {
			return shared.PlayerID{}, shared.WrapDomainError(shared.ErrInvalidParams, "invalid player_id", err)
		}
		return pid, nil
	}

	p, err := r.playerRepo.FindByAgentSymbol(ctx, agentSymbol)
	if err != nil {
		return shared.PlayerID{}, shared.WrapDomainError(shared.ErrPlayerNotFound, "agent "+agentSymbol, err)
	}
	return p.ID, nil
}

// ResolvePlayer is ResolvePlayerID plus the player row itself, for handlers
// that need the token or cached credits.
func (r *Resolver) ResolvePlayer(ctx context.Context, playerID *int, agentSymbol string) (*player.Player, error) {
	pid, err := r.ResolvePlayerID(ctx, playerID, agentSymbol)
	if err != nil {
		return nil, err
	}
	p, err := r.playerRepo.FindByID(ctx, pid)
	if err != nil {
		return nil, shared.WrapDomainError(shared.ErrPlayerNotFound, "player "+pid.String(), err)
	}
	return p, nil
}
