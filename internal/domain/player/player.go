package player

import (
	"strings"
	"time"

	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// Player is a registered agent identity. The daemon serves many players;
// every operation resolves one of these to obtain the API bearer token.
type Player struct {
	ID              shared.PlayerID
	AgentSymbol     string
	Token           string
	Headquarters    string
	Credits         int
	StartingFaction string
	CreatedAt       time.Time
}

// New creates a player pending persistence. The ID is assigned by the store.
func New(agentSymbol, token string) (*Player, error) {
	agentSymbol = strings.ToUpper(strings.TrimSpace(agentSymbol))
	if agentSymbol == "" {
		return nil, shared.NewValidationError("agent_symbol", "must not be empty")
	}
	if strings.TrimSpace(token) == "" {
		return nil, shared.NewValidationError("token", "must not be empty")
	}

	return &Player{
		AgentSymbol: agentSymbol,
		Token:       token,
	}, nil
}

// Reconstruct hydrates a player from persistence.
func Reconstruct(
	id shared.PlayerID,
	agentSymbol, token, headquarters string,
	credits int,
	startingFaction string,
	createdAt time.Time,
) *Player {
	return &Player{
		ID:              id,
		AgentSymbol:     agentSymbol,
		Token:           token,
		Headquarters:    headquarters,
		Credits:         credits,
		StartingFaction: startingFaction,
		CreatedAt:       createdAt,
	}
}

// UpdateFromAgent refreshes the fields the API owns.
func (p *Player) UpdateFromAgent(agent *AgentData) {
	p.Headquarters = agent.Headquarters
	p.Credits = agent.Credits
	p.StartingFaction = agent.StartingFaction
}
