package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/orbitalmachines/astrogator/internal/domain/contract"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// GormContractRepository implements contract.Repository using GORM.
type GormContractRepository struct {
	db    *gorm.DB
	clock shared.Clock
}

// NewGormContractRepository creates a new GORM contract repository.
func NewGormContractRepository(db *gorm.DB, clock shared.Clock) *GormContractRepository {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &GormContractRepository{db: db, clock: clock}
}

var _ contract.Repository = (*GormContractRepository)(nil)

// FindByID retrieves a contract by ID and player.
func (r *GormContractRepository) FindByID(ctx context.Context, contractID string, playerID shared.PlayerID) (*contract.Contract, error) {
	var model ContractModel
	result := r.db.WithContext(ctx).
		Where("id = ? AND player_id = ?", contractID, playerID.Value()).
		First(&model)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, shared.NewDomainErrorf(shared.ErrContractNotFound, "contract not found: %s", contractID)
		}
		return nil, fmt.Errorf("failed to find contract: %w", result.Error)
	}

	return r.modelToEntity(&model)
}

// FindActive retrieves accepted but unfulfilled contracts for a player.
func (r *GormContractRepository) FindActive(ctx context.Context, playerID shared.PlayerID) ([]*contract.Contract, error) {
	var models []ContractModel
	result := r.db.WithContext(ctx).
		Where("player_id = ? AND accepted = ? AND fulfilled = ?", playerID.Value(), true, false).
		Find(&models)

	if result.Error != nil {
		return nil, fmt.Errorf("failed to find active contracts: %w", result.Error)
	}

	contracts := make([]*contract.Contract, 0, len(models))
	for i := range models {
		entity, err := r.modelToEntity(&models[i])
		if err != nil {
			return nil, fmt.Errorf("failed to convert contract %s: %w", models[i].ID, err)
		}
		contracts = append(contracts, entity)
	}

	return contracts, nil
}

// Upsert writes the contract's current state, replacing any stored row.
func (r *GormContractRepository) Upsert(ctx context.Context, c *contract.Contract) error {
	model, err := r.entityToModel(c)
	if err != nil {
		return fmt.Errorf("failed to convert contract to model: %w", err)
	}

	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return fmt.Errorf("failed to upsert contract: %w", err)
	}

	return nil
}

func (r *GormContractRepository) modelToEntity(model *ContractModel) (*contract.Contract, error) {
	playerID, err := shared.NewPlayerID(model.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("invalid player ID in database: %w", err)
	}

	var deliveries []contract.Delivery
	if err := json.Unmarshal([]byte(model.DeliveriesJSON), &deliveries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal deliveries: %w", err)
	}

	terms := contract.Terms{
		Payment: contract.Payment{
			OnAccepted:  model.PaymentOnAccepted,
			OnFulfilled: model.PaymentOnFulfilled,
		},
		Deliveries:       deliveries,
		DeadlineToAccept: model.DeadlineToAccept,
		Deadline:         model.Deadline,
	}

	return contract.Reconstruct(
		model.ID,
		playerID,
		model.FactionSymbol,
		model.Type,
		terms,
		model.Accepted,
		model.Fulfilled,
		r.clock,
	), nil
}

func (r *GormContractRepository) entityToModel(c *contract.Contract) (*ContractModel, error) {
	deliveriesJSON, err := json.Marshal(c.Terms().Deliveries)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal deliveries: %w", err)
	}

	return &ContractModel{
		ID:                 c.ContractID(),
		PlayerID:           c.PlayerID().Value(),
		FactionSymbol:      c.FactionSymbol(),
		Type:               c.Type(),
		Accepted:           c.Accepted(),
		Fulfilled:          c.Fulfilled(),
		DeadlineToAccept:   c.Terms().DeadlineToAccept,
		Deadline:           c.Terms().Deadline,
		PaymentOnAccepted:  c.Terms().Payment.OnAccepted,
		PaymentOnFulfilled: c.Terms().Payment.OnFulfilled,
		DeliveriesJSON:     string(deliveriesJSON),
		LastUpdated:        r.clock.Now().UTC().Format(time.RFC3339),
	}, nil
}
