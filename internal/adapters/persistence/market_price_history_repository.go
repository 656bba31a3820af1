package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/orbitalmachines/astrogator/internal/domain/market"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// GormPriceHistoryRepository implements market.PriceHistoryRepository.
// Observations are append-only; scouts write one whenever a refreshed
// price differs from the previous observation.
type GormPriceHistoryRepository struct {
	db *gorm.DB
}

// NewGormPriceHistoryRepository creates a new GORM price history repository.
func NewGormPriceHistoryRepository(db *gorm.DB) *GormPriceHistoryRepository {
	return &GormPriceHistoryRepository{db: db}
}

var _ market.PriceHistoryRepository = (*GormPriceHistoryRepository)(nil)

// RecordPriceChange persists a new observation.
func (r *GormPriceHistoryRepository) RecordPriceChange(ctx context.Context, h *market.PriceHistory) error {
	model := &PriceHistoryModel{
		WaypointSymbol: h.WaypointSymbol(),
		GoodSymbol:     h.GoodSymbol(),
		PlayerID:       h.PlayerID().Value(),
		PurchasePrice:  h.PurchasePrice(),
		SellPrice:      h.SellPrice(),
		Supply:         h.Supply(),
		Activity:       h.Activity(),
		TradeVolume:    h.TradeVolume(),
		RecordedAt:     h.RecordedAt(),
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to record price change: %w", err)
	}

	return nil
}

// GetPriceHistory returns observations newest first.
func (r *GormPriceHistoryRepository) GetPriceHistory(ctx context.Context, waypointSymbol, goodSymbol string, since time.Time, limit int) ([]*market.PriceHistory, error) {
	var models []PriceHistoryModel

	query := r.db.WithContext(ctx).
		Where("waypoint_symbol = ? AND good_symbol = ?", waypointSymbol, goodSymbol)

	if !since.IsZero() {
		query = query.Where("recorded_at >= ?", since)
	}

	query = query.Order("recorded_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to get price history: %w", err)
	}

	histories := make([]*market.PriceHistory, 0, len(models))
	for i := range models {
		history, err := r.modelToHistory(&models[i])
		if err != nil {
			return nil, err
		}
		histories = append(histories, history)
	}

	return histories, nil
}

// GetLatest returns the most recent observation, nil when none exists.
func (r *GormPriceHistoryRepository) GetLatest(ctx context.Context, waypointSymbol, goodSymbol string, playerID shared.PlayerID) (*market.PriceHistory, error) {
	var model PriceHistoryModel

	err := r.db.WithContext(ctx).
		Where("waypoint_symbol = ? AND good_symbol = ? AND player_id = ?",
			waypointSymbol, goodSymbol, playerID.Value()).
		Order("recorded_at DESC").
		First(&model).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest price observation: %w", err)
	}

	return r.modelToHistory(&model)
}

func (r *GormPriceHistoryRepository) modelToHistory(model *PriceHistoryModel) (*market.PriceHistory, error) {
	playerID, err := shared.NewPlayerID(model.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("invalid player ID in database: %w", err)
	}

	return market.ReconstructPriceHistory(
		model.ID,
		model.WaypointSymbol,
		model.GoodSymbol,
		playerID,
		model.PurchasePrice,
		model.SellPrice,
		model.Supply,
		model.Activity,
		model.TradeVolume,
		model.RecordedAt,
	), nil
}
