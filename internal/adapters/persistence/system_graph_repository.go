package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/orbitalmachines/astrogator/internal/domain/system"
)

// GormSystemGraphRepository implements system.SystemGraphRepository: one
// JSON document per system, upserted whenever the graph is rebuilt.
type GormSystemGraphRepository struct {
	db *gorm.DB
}

// NewGormSystemGraphRepository creates a new GORM-based system graph
// repository.
func NewGormSystemGraphRepository(db *gorm.DB) *GormSystemGraphRepository {
	return &GormSystemGraphRepository{db: db}
}

var _ system.SystemGraphRepository = (*GormSystemGraphRepository)(nil)

// Get returns the cached graph, or nil without error on a miss.
func (r *GormSystemGraphRepository) Get(ctx context.Context, systemSymbol string) (*system.NavigationGraph, error) {
	var model SystemGraphModel

	err := r.db.WithContext(ctx).
		Where("system_symbol = ?", systemSymbol).
		First(&model).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get system graph: %w", err)
	}

	var graph system.NavigationGraph
	if err := json.Unmarshal([]byte(model.GraphData), &graph); err != nil {
		return nil, fmt.Errorf("failed to unmarshal graph data for %s: %w", systemSymbol, err)
	}

	return &graph, nil
}

// Save upserts the graph document for its system.
func (r *GormSystemGraphRepository) Save(ctx context.Context, graph *system.NavigationGraph) error {
	graphJSON, err := json.Marshal(graph)
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}

	model := SystemGraphModel{
		SystemSymbol: graph.SystemSymbol,
		GraphData:    string(graphJSON),
	}

	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "system_symbol"}},
			DoUpdates: clause.AssignmentColumns([]string{"graph_data", "updated_at"}),
		}).
		Create(&model).Error

	if err != nil {
		return fmt.Errorf("failed to save system graph: %w", err)
	}

	return nil
}
