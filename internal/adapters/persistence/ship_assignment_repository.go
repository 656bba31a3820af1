package persistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/orbitalmachines/astrogator/internal/domain/container"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// ShipAssignmentRepositoryGORM implements container.ShipAssignmentRepository
// using GORM. One row per (ship, player); reassignment after release updates
// the row in place.
type ShipAssignmentRepositoryGORM struct {
	db    *gorm.DB
	clock shared.Clock
}

// NewShipAssignmentRepository creates a new GORM-based ship assignment
// repository.
func NewShipAssignmentRepository(db *gorm.DB, clock shared.Clock) *ShipAssignmentRepositoryGORM {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &ShipAssignmentRepositoryGORM{db: db, clock: clock}
}

var _ container.ShipAssignmentRepository = (*ShipAssignmentRepositoryGORM)(nil)

// Assign upserts an active lock for a ship. A lock already held by another
// container is an error; re-asserting the same container's lock is a no-op
// so repeated saves stay idempotent.
func (r *ShipAssignmentRepositoryGORM) Assign(ctx context.Context, assignment *container.ShipAssignment) error {
	existing, err := r.FindByShip(ctx, assignment.ShipSymbol(), assignment.PlayerID())
	if err != nil {
		return fmt.Errorf("failed to check existing assignment: %w", err)
	}

	if existing != nil {
		if existing.ContainerID() == assignment.ContainerID() {
			return nil
		}
		return shared.NewDomainErrorf(shared.ErrShipAlreadyAssigned,
			"ship %s is already assigned to container %s",
			assignment.ShipSymbol(), existing.ContainerID())
	}

	assignedAt := assignment.AssignedAt()
	model := &ShipAssignmentModel{
		ShipSymbol:    assignment.ShipSymbol(),
		PlayerID:      assignment.PlayerID().Value(),
		ContainerID:   assignment.ContainerID(),
		Status:        string(assignment.Status()),
		AssignedAt:    &assignedAt,
		ReleasedAt:    nil,
		ReleaseReason: nil,
	}

	// Released rows are reused: conflict on (ship_symbol, player_id)
	// rewrites the lock columns.
	err = r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ship_symbol"}, {Name: "player_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"container_id", "status", "assigned_at", "released_at", "release_reason"}),
	}).Create(model).Error

	if err != nil {
		return fmt.Errorf("failed to assign ship: %w", err)
	}

	return nil
}

// FindByShip returns the active lock for a ship, nil if unlocked.
func (r *ShipAssignmentRepositoryGORM) FindByShip(ctx context.Context, shipSymbol string, playerID shared.PlayerID) (*container.ShipAssignment, error) {
	var model ShipAssignmentModel

	err := r.db.WithContext(ctx).
		Where("ship_symbol = ? AND player_id = ? AND status = ?",
			shipSymbol, playerID.Value(), string(container.AssignmentStatusActive)).
		First(&model).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find ship assignment: %w", err)
	}

	return r.modelToAssignment(&model)
}

// FindByContainer returns all active locks held by a container.
func (r *ShipAssignmentRepositoryGORM) FindByContainer(ctx context.Context, containerID string, playerID shared.PlayerID) ([]*container.ShipAssignment, error) {
	var models []ShipAssignmentModel

	err := r.db.WithContext(ctx).
		Where("container_id = ? AND player_id = ? AND status = ?",
			containerID, playerID.Value(), string(container.AssignmentStatusActive)).
		Find(&models).Error

	if err != nil {
		return nil, fmt.Errorf("failed to find container assignments: %w", err)
	}

	return r.modelsToAssignments(models)
}

// FindActiveByPlayer returns every active lock for a player in one read.
func (r *ShipAssignmentRepositoryGORM) FindActiveByPlayer(ctx context.Context, playerID shared.PlayerID) ([]*container.ShipAssignment, error) {
	var models []ShipAssignmentModel

	err := r.db.WithContext(ctx).
		Where("player_id = ? AND status = ?",
			playerID.Value(), string(container.AssignmentStatusActive)).
		Find(&models).Error

	if err != nil {
		return nil, fmt.Errorf("failed to find active assignments: %w", err)
	}

	return r.modelsToAssignments(models)
}

// Release releases the active lock on a ship. Releasing an unlocked ship is
// not an error.
func (r *ShipAssignmentRepositoryGORM) Release(ctx context.Context, shipSymbol string, playerID shared.PlayerID, reason string) error {
	now := r.clock.Now()

	result := r.db.WithContext(ctx).
		Model(&ShipAssignmentModel{}).
		Where("ship_symbol = ? AND player_id = ? AND status = ?",
			shipSymbol, playerID.Value(), string(container.AssignmentStatusActive)).
		Updates(map[string]interface{}{
			"status":         string(container.AssignmentStatusReleased),
			"released_at":    now,
			"release_reason": reason,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to release ship assignment: %w", result.Error)
	}

	return nil
}

// ReleaseByContainer releases every lock a container holds.
func (r *ShipAssignmentRepositoryGORM) ReleaseByContainer(ctx context.Context, containerID string, playerID shared.PlayerID, reason string) error {
	now := r.clock.Now()

	result := r.db.WithContext(ctx).
		Model(&ShipAssignmentModel{}).
		Where("container_id = ? AND player_id = ? AND status = ?",
			containerID, playerID.Value(), string(container.AssignmentStatusActive)).
		Updates(map[string]interface{}{
			"status":         string(container.AssignmentStatusReleased),
			"released_at":    now,
			"release_reason": reason,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to release container assignments: %w", result.Error)
	}

	return nil
}

// ReleaseAllActive releases every active lock and reports how many there
// were. Used at boot before recovery restarts re-acquire.
func (r *ShipAssignmentRepositoryGORM) ReleaseAllActive(ctx context.Context, reason string) (int, error) {
	now := r.clock.Now()

	result := r.db.WithContext(ctx).
		Model(&ShipAssignmentModel{}).
		Where("status = ?", string(container.AssignmentStatusActive)).
		Updates(map[string]interface{}{
			"status":         string(container.AssignmentStatusReleased),
			"released_at":    now,
			"release_reason": reason,
		})

	if result.Error != nil {
		return 0, fmt.Errorf("failed to release all active assignments: %w", result.Error)
	}

	return int(result.RowsAffected), nil
}

func (r *ShipAssignmentRepositoryGORM) modelToAssignment(model *ShipAssignmentModel) (*container.ShipAssignment, error) {
	playerID, err := shared.NewPlayerID(model.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("invalid player ID in database: %w", err)
	}

	assignedAt := r.clock.Now()
	if model.AssignedAt != nil {
		assignedAt = *model.AssignedAt
	}

	return container.ReconstructShipAssignment(
		model.ShipSymbol,
		playerID,
		model.ContainerID,
		container.AssignmentStatus(model.Status),
		assignedAt,
		model.ReleasedAt,
		model.ReleaseReason,
		r.clock,
	), nil
}

func (r *ShipAssignmentRepositoryGORM) modelsToAssignments(models []ShipAssignmentModel) ([]*container.ShipAssignment, error) {
	assignments := make([]*container.ShipAssignment, 0, len(models))
	for i := range models {
		assignment, err := r.modelToAssignment(&models[i])
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, assignment)
	}
	return assignments, nil
}
