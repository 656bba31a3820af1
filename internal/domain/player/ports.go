package player

import (
	"context"

	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// Repository persists registered players.
type Repository interface {
	FindByID(ctx context.Context, playerID shared.PlayerID) (*Player, error)
	FindByAgentSymbol(ctx context.Context, agentSymbol string) (*Player, error)
	FindAll(ctx context.Context) ([]*Player, error)

	// Add assigns the store-generated ID on the passed player.
	Add(ctx context.Context, p *Player) error

	// UpdateCredits refreshes the cached credit balance.
	UpdateCredits(ctx context.Context, playerID shared.PlayerID, credits int) error
}

// AgentData is the agent snapshot returned by the API for a token.
type AgentData struct {
	AccountID       string
	Symbol          string
	Headquarters    string
	Credits         int
	StartingFaction string
	ShipCount       int
}
