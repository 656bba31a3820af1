package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/internal/domain/system"
)

// waypointSyncTTL is how long a stored waypoint stays authoritative.
// FindBySymbol treats older rows as misses so callers re-fetch from the
// graph or the API instead of navigating on stale coordinates.
const waypointSyncTTL = 2 * time.Hour

// GormWaypointRepository implements system.WaypointRepository using GORM.
type GormWaypointRepository struct {
	db    *gorm.DB
	clock shared.Clock
}

// NewGormWaypointRepository creates a new GORM waypoint repository.
func NewGormWaypointRepository(db *gorm.DB, clock shared.Clock) *GormWaypointRepository {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &GormWaypointRepository{db: db, clock: clock}
}

var _ system.WaypointRepository = (*GormWaypointRepository)(nil)

// FindBySymbol retrieves a waypoint. Returns nil, nil when the waypoint is
// unknown or its row is older than the sync TTL.
func (r *GormWaypointRepository) FindBySymbol(ctx context.Context, symbol, systemSymbol string) (*shared.Waypoint, error) {
	var model WaypointModel
	result := r.db.WithContext(ctx).
		Where("waypoint_symbol = ? AND system_symbol = ?", symbol, systemSymbol).
		First(&model)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find waypoint: %w", result.Error)
	}

	if r.clock.Now().Sub(model.SyncedAt) > waypointSyncTTL {
		return nil, nil
	}

	return r.modelToWaypoint(&model)
}

// ListBySystem retrieves all waypoints in a system, stale rows included.
// System-wide listings back graph rebuilds, which refresh everything anyway.
func (r *GormWaypointRepository) ListBySystem(ctx context.Context, systemSymbol string) ([]*shared.Waypoint, error) {
	var models []WaypointModel
	result := r.db.WithContext(ctx).Where("system_symbol = ?", systemSymbol).Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list waypoints: %w", result.Error)
	}

	return r.modelsToWaypoints(models)
}

// ListBySystemWithTrait retrieves waypoints in a system carrying a trait.
func (r *GormWaypointRepository) ListBySystemWithTrait(ctx context.Context, systemSymbol, trait string) ([]*shared.Waypoint, error) {
	var models []WaypointModel
	// Traits are a JSON array stored as text; match the quoted symbol.
	pattern := fmt.Sprintf("%%\"%s\"%%", trait)
	result := r.db.WithContext(ctx).
		Where("system_symbol = ? AND traits LIKE ?", systemSymbol, pattern).
		Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list waypoints by trait: %w", result.Error)
	}

	return r.modelsToWaypoints(models)
}

// Save upserts a single waypoint and stamps it freshly synced.
func (r *GormWaypointRepository) Save(ctx context.Context, waypoint *shared.Waypoint) error {
	model, err := r.waypointToModel(waypoint)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).Save(model)
	if result.Error != nil {
		return fmt.Errorf("failed to save waypoint: %w", result.Error)
	}

	return nil
}

// SaveBatch upserts a full system listing in one statement.
func (r *GormWaypointRepository) SaveBatch(ctx context.Context, waypoints []*shared.Waypoint) error {
	if len(waypoints) == 0 {
		return nil
	}

	models := make([]WaypointModel, 0, len(waypoints))
	for _, waypoint := range waypoints {
		model, err := r.waypointToModel(waypoint)
		if err != nil {
			return err
		}
		models = append(models, *model)
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "waypoint_symbol"}},
		UpdateAll: true,
	}).Create(&models).Error

	if err != nil {
		return fmt.Errorf("failed to save waypoint batch: %w", err)
	}

	return nil
}

func (r *GormWaypointRepository) modelToWaypoint(model *WaypointModel) (*shared.Waypoint, error) {
	waypoint, err := shared.NewWaypoint(model.WaypointSymbol, model.X, model.Y)
	if err != nil {
		return nil, err
	}

	waypoint.SystemSymbol = model.SystemSymbol
	waypoint.Type = model.Type
	waypoint.HasFuel = model.HasFuel == 1

	if model.Traits != "" {
		var traits []string
		if err := json.Unmarshal([]byte(model.Traits), &traits); err != nil {
			traits = []string{}
		}
		waypoint.Traits = traits
	}

	if model.Orbitals != "" {
		var orbitals []string
		if err := json.Unmarshal([]byte(model.Orbitals), &orbitals); err != nil {
			orbitals = []string{}
		}
		waypoint.Orbitals = orbitals
	}

	return waypoint, nil
}

func (r *GormWaypointRepository) modelsToWaypoints(models []WaypointModel) ([]*shared.Waypoint, error) {
	waypoints := make([]*shared.Waypoint, 0, len(models))
	for i := range models {
		waypoint, err := r.modelToWaypoint(&models[i])
		if err != nil {
			return nil, fmt.Errorf("failed to convert waypoint %s: %w", models[i].WaypointSymbol, err)
		}
		waypoints = append(waypoints, waypoint)
	}
	return waypoints, nil
}

func (r *GormWaypointRepository) waypointToModel(waypoint *shared.Waypoint) (*WaypointModel, error) {
	hasFuel := 0
	if waypoint.HasFuel {
		hasFuel = 1
	}

	var traitsJSON string
	if len(waypoint.Traits) > 0 {
		bytes, err := json.Marshal(waypoint.Traits)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal traits: %w", err)
		}
		traitsJSON = string(bytes)
	}

	var orbitalsJSON string
	if len(waypoint.Orbitals) > 0 {
		bytes, err := json.Marshal(waypoint.Orbitals)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal orbitals: %w", err)
		}
		orbitalsJSON = string(bytes)
	}

	return &WaypointModel{
		WaypointSymbol: waypoint.Symbol,
		SystemSymbol:   waypoint.SystemSymbol,
		Type:           waypoint.Type,
		X:              waypoint.X,
		Y:              waypoint.Y,
		Traits:         traitsJSON,
		HasFuel:        hasFuel,
		Orbitals:       orbitalsJSON,
		SyncedAt:       r.clock.Now(),
	}, nil
}
