package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/orbitalmachines/astrogator/internal/domain/container"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// ContainerRepositoryGORM implements container.Repository using GORM. The
// registry owns live state; this repository is what boot recovery and the
// CLI queries read.
type ContainerRepositoryGORM struct {
	db    *gorm.DB
	clock shared.Clock
}

// NewContainerRepository creates a new GORM-based container repository.
func NewContainerRepository(db *gorm.DB, clock shared.Clock) *ContainerRepositoryGORM {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &ContainerRepositoryGORM{db: db, clock: clock}
}

var _ container.Repository = (*ContainerRepositoryGORM)(nil)

// Insert stores a freshly created container together with the command type
// used to rebuild its iteration command at boot.
func (r *ContainerRepositoryGORM) Insert(ctx context.Context, c *container.Container, commandType string) error {
	model, err := r.containerToModel(c, commandType)
	if err != nil {
		return err
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to insert container: %w", err)
	}

	return nil
}

// Update persists status, iteration and restart counters. The command type
// is immutable after insert.
func (r *ContainerRepositoryGORM) Update(ctx context.Context, c *container.Container) error {
	configJSON, err := marshalConfig(c.Metadata())
	if err != nil {
		return err
	}

	lastError := ""
	if c.LastError() != nil {
		lastError = c.LastError().Error()
	}

	updates := map[string]interface{}{
		"status":            string(c.Status()),
		"current_iteration": c.CurrentIteration(),
		"restart_count":     c.RestartCount(),
		"config":            configJSON,
		"updated_at":        c.UpdatedAt(),
		"started_at":        c.StartedAt(),
		"stopped_at":        c.StoppedAt(),
		"last_error":        lastError,
	}

	result := r.db.WithContext(ctx).
		Model(&ContainerModel{}).
		Where("id = ? AND player_id = ?", c.ID(), c.PlayerID().Value()).
		Updates(updates)

	if result.Error != nil {
		return fmt.Errorf("failed to update container: %w", result.Error)
	}

	return nil
}

// FindByID returns nil, nil when the container does not exist.
func (r *ContainerRepositoryGORM) FindByID(ctx context.Context, containerID string, playerID shared.PlayerID) (*container.Container, error) {
	var model ContainerModel

	result := r.db.WithContext(ctx).
		Where("id = ? AND player_id = ?", containerID, playerID.Value()).
		First(&model)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get container: %w", result.Error)
	}

	return r.modelToContainer(&model)
}

// FindAllByPlayer returns every container row for a player, newest first.
func (r *ContainerRepositoryGORM) FindAllByPlayer(ctx context.Context, playerID shared.PlayerID) ([]*container.Container, error) {
	var models []ContainerModel

	err := r.db.WithContext(ctx).
		Where("player_id = ?", playerID.Value()).
		Order("created_at DESC").
		Find(&models).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	return r.modelsToContainers(models)
}

// FindNonTerminal returns containers left PENDING, STARTING or RUNNING
// across all players. Used at boot to mark them INTERRUPTED.
func (r *ContainerRepositoryGORM) FindNonTerminal(ctx context.Context) ([]*container.Container, error) {
	var models []ContainerModel

	err := r.db.WithContext(ctx).
		Where("status IN ?", []string{
			string(container.ContainerStatusPending),
			string(container.ContainerStatusStarting),
			string(container.ContainerStatusRunning),
			string(container.ContainerStatusStopping),
		}).
		Order("created_at ASC").
		Find(&models).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list non-terminal containers: %w", err)
	}

	return r.modelsToContainers(models)
}

// CommandType returns the persisted command type for boot recovery.
func (r *ContainerRepositoryGORM) CommandType(ctx context.Context, containerID string) (string, error) {
	var commandType string

	err := r.db.WithContext(ctx).
		Model(&ContainerModel{}).
		Where("id = ?", containerID).
		Pluck("command_type", &commandType).Error

	if err != nil {
		return "", fmt.Errorf("failed to read command type: %w", err)
	}

	return commandType, nil
}

// Delete removes a container row. The caller deletes the log rows.
func (r *ContainerRepositoryGORM) Delete(ctx context.Context, containerID string, playerID shared.PlayerID) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND player_id = ?", containerID, playerID.Value()).
		Delete(&ContainerModel{})

	if result.Error != nil {
		return fmt.Errorf("failed to delete container: %w", result.Error)
	}

	return nil
}

// DeleteTerminalBefore removes terminal rows stopped before cutoff, returning
// the ids it deleted so their logs can be purged with them.
func (r *ContainerRepositoryGORM) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	terminal := []string{
		string(container.ContainerStatusCompleted),
		string(container.ContainerStatusFailed),
		string(container.ContainerStatusStopped),
	}

	var ids []string
	err := r.db.WithContext(ctx).
		Model(&ContainerModel{}).
		Where("status IN ? AND stopped_at IS NOT NULL AND stopped_at < ?", terminal, cutoff).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list expired containers: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&ContainerModel{}).Error; err != nil {
		return nil, fmt.Errorf("failed to delete expired containers: %w", err)
	}

	return ids, nil
}

func (r *ContainerRepositoryGORM) containerToModel(c *container.Container, commandType string) (*ContainerModel, error) {
	configJSON, err := marshalConfig(c.Metadata())
	if err != nil {
		return nil, err
	}

	lastError := ""
	if c.LastError() != nil {
		lastError = c.LastError().Error()
	}

	return &ContainerModel{
		ID:               c.ID(),
		PlayerID:         c.PlayerID().Value(),
		ContainerType:    string(c.Type()),
		CommandType:      commandType,
		ShipSymbol:       c.ShipSymbol(),
		Status:           string(c.Status()),
		CurrentIteration: c.CurrentIteration(),
		MaxIterations:    c.MaxIterations(),
		RestartCount:     c.RestartCount(),
		Config:           configJSON,
		CreatedAt:        c.CreatedAt(),
		UpdatedAt:        c.UpdatedAt(),
		StartedAt:        c.StartedAt(),
		StoppedAt:        c.StoppedAt(),
		LastError:        lastError,
	}, nil
}

func (r *ContainerRepositoryGORM) modelToContainer(model *ContainerModel) (*container.Container, error) {
	playerID, err := shared.NewPlayerID(model.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("invalid player ID in database: %w", err)
	}

	var metadata map[string]interface{}
	if model.Config != "" {
		if err := json.Unmarshal([]byte(model.Config), &metadata); err != nil {
			return nil, fmt.Errorf("failed to parse container config for %s: %w", model.ID, err)
		}
	}

	return container.Reconstruct(
		model.ID,
		container.ContainerType(model.ContainerType),
		playerID,
		model.ShipSymbol,
		container.ContainerStatus(model.Status),
		model.CurrentIteration,
		model.MaxIterations,
		model.RestartCount,
		metadata,
		model.CreatedAt,
		model.UpdatedAt,
		model.StartedAt,
		model.StoppedAt,
		model.LastError,
		r.clock,
	), nil
}

func (r *ContainerRepositoryGORM) modelsToContainers(models []ContainerModel) ([]*container.Container, error) {
	containers := make([]*container.Container, 0, len(models))
	for i := range models {
		c, err := r.modelToContainer(&models[i])
		if err != nil {
			return nil, err
		}
		containers = append(containers, c)
	}
	return containers, nil
}

// marshalConfig serializes operation metadata. JSONB columns reject empty
// strings, so nil maps become an empty object.
func marshalConfig(metadata map[string]interface{}) (string, error) {
	if metadata == nil {
		return "{}", nil
	}
	configJSON, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("failed to serialize config: %w", err)
	}
	return string(configJSON), nil
}
