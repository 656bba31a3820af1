package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/orbitalmachines/astrogator/internal/domain/player"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// GormPlayerRepository implements player.Repository using GORM.
type GormPlayerRepository struct {
	db    *gorm.DB
	clock shared.Clock
}

// NewGormPlayerRepository creates a new GORM player repository.
func NewGormPlayerRepository(db *gorm.DB, clock shared.Clock) *GormPlayerRepository {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &GormPlayerRepository{db: db, clock: clock}
}

var _ player.Repository = (*GormPlayerRepository)(nil)

// FindByID retrieves a player by ID.
func (r *GormPlayerRepository) FindByID(ctx context.Context, playerID shared.PlayerID) (*player.Player, error) {
	var model PlayerModel
	result := r.db.WithContext(ctx).Where("id = ?", playerID.Value()).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainErrorf(shared.ErrPlayerNotFound, "player not found: %s", playerID.String())
		}
		return nil, fmt.Errorf("failed to find player: %w", result.Error)
	}

	return r.modelToPlayer(&model)
}

// FindByAgentSymbol retrieves a player by agent symbol.
func (r *GormPlayerRepository) FindByAgentSymbol(ctx context.Context, agentSymbol string) (*player.Player, error) {
	var model PlayerModel
	result := r.db.WithContext(ctx).Where("agent_symbol = ?", agentSymbol).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainErrorf(shared.ErrPlayerNotFound, "player not found: %s", agentSymbol)
		}
		return nil, fmt.Errorf("failed to find player: %w", result.Error)
	}

	return r.modelToPlayer(&model)
}

// FindAll retrieves every registered player.
func (r *GormPlayerRepository) FindAll(ctx context.Context) ([]*player.Player, error) {
	var models []PlayerModel
	result := r.db.WithContext(ctx).Order("id ASC").Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list players: %w", result.Error)
	}

	players := make([]*player.Player, 0, len(models))
	for i := range models {
		p, err := r.modelToPlayer(&models[i])
		if err != nil {
			// Skip rows with unusable ids rather than failing the listing.
			continue
		}
		players = append(players, p)
	}

	return players, nil
}

// Add inserts a player and writes the store-generated ID back onto it.
func (r *GormPlayerRepository) Add(ctx context.Context, p *player.Player) error {
	model := &PlayerModel{
		AgentSymbol:     p.AgentSymbol,
		Token:           p.Token,
		Headquarters:    p.Headquarters,
		Credits:         p.Credits,
		StartingFaction: p.StartingFaction,
		CreatedAt:       r.clock.Now(),
	}
	if !p.ID.IsZero() {
		model.ID = p.ID.Value()
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to add player: %w", err)
	}

	playerID, err := shared.NewPlayerID(model.ID)
	if err != nil {
		return fmt.Errorf("store returned invalid player id: %w", err)
	}
	p.ID = playerID
	p.CreatedAt = model.CreatedAt

	return nil
}

// UpdateCredits refreshes the cached credit balance.
func (r *GormPlayerRepository) UpdateCredits(ctx context.Context, playerID shared.PlayerID, credits int) error {
	result := r.db.WithContext(ctx).
		Model(&PlayerModel{}).
		Where("id = ?", playerID.Value()).
		Update("credits", credits)

	if result.Error != nil {
		return fmt.Errorf("failed to update credits: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainErrorf(shared.ErrPlayerNotFound, "player not found: %s", playerID.String())
	}

	return nil
}

func (r *GormPlayerRepository) modelToPlayer(model *PlayerModel) (*player.Player, error) {
	playerID, err := shared.NewPlayerID(model.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid player ID in database: %w", err)
	}

	return player.Reconstruct(
		playerID,
		model.AgentSymbol,
		model.Token,
		model.Headquarters,
		model.Credits,
		model.StartingFaction,
		model.CreatedAt,
	), nil
}
