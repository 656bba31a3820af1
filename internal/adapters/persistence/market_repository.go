package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/orbitalmachines/astrogator/internal/domain/market"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// MarketRepositoryGORM implements market.Repository using GORM. The
// market_data table holds one row per (waypoint, good, player); a scout
// refresh replaces a waypoint's rows atomically.
type MarketRepositoryGORM struct {
	db *gorm.DB
}

// NewMarketRepository creates a new GORM-based market repository.
func NewMarketRepository(db *gorm.DB) *MarketRepositoryGORM {
	return &MarketRepositoryGORM{db: db}
}

var _ market.Repository = (*MarketRepositoryGORM)(nil)

// Upsert replaces the stored snapshot for the market's waypoint.
func (r *MarketRepositoryGORM) Upsert(ctx context.Context, m *market.Market, playerID shared.PlayerID) error {
	goods := m.TradeGoods()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Delete-and-insert keeps goods that vanished from the listing from
		// surviving as ghost rows.
		if err := tx.Where("player_id = ? AND waypoint_symbol = ?", playerID.Value(), m.WaypointSymbol()).
			Delete(&MarketDataModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete old market data: %w", err)
		}

		if len(goods) == 0 {
			return nil
		}

		rows := make([]MarketDataModel, len(goods))
		for i := range goods {
			rows[i] = MarketDataModel{
				WaypointSymbol: m.WaypointSymbol(),
				GoodSymbol:     goods[i].Symbol(),
				PlayerID:       playerID.Value(),
				Supply:         goods[i].Supply(),
				Activity:       goods[i].Activity(),
				PurchasePrice:  goods[i].PurchasePrice(),
				SellPrice:      goods[i].SellPrice(),
				TradeVolume:    goods[i].TradeVolume(),
				LastUpdated:    m.LastUpdated(),
			}
		}

		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to insert market data: %w", err)
		}

		return nil
	})
}

// GetMarketData returns the stored snapshot, ErrMarketNotFound when the
// waypoint has never been scouted.
func (r *MarketRepositoryGORM) GetMarketData(ctx context.Context, waypointSymbol string, playerID shared.PlayerID) (*market.Market, error) {
	var rows []MarketDataModel
	err := r.db.WithContext(ctx).
		Where("player_id = ? AND waypoint_symbol = ?", playerID.Value(), waypointSymbol).
		Find(&rows).Error

	if err != nil {
		return nil, fmt.Errorf("failed to get market data: %w", err)
	}

	if len(rows) == 0 {
		return nil, market.ErrMarketNotFound
	}

	goods := make([]market.TradeGood, len(rows))
	timestamp := rows[0].LastUpdated
	for i := range rows {
		good, err := market.NewTradeGood(
			rows[i].GoodSymbol,
			rows[i].Supply,
			rows[i].Activity,
			rows[i].PurchasePrice,
			rows[i].SellPrice,
			rows[i].TradeVolume,
		)
		if err != nil {
			return nil, fmt.Errorf("invalid trade good in database: %w", err)
		}
		goods[i] = *good
		timestamp = rows[i].LastUpdated
	}

	return market.NewMarket(waypointSymbol, goods, timestamp)
}

// FindAllInSystem lists waypoint symbols with stored snapshots.
func (r *MarketRepositoryGORM) FindAllInSystem(ctx context.Context, systemSymbol string, playerID shared.PlayerID) ([]string, error) {
	var waypoints []string

	err := r.db.WithContext(ctx).
		Model(&MarketDataModel{}).
		Distinct("waypoint_symbol").
		Where("player_id = ?", playerID.Value()).
		Where("waypoint_symbol LIKE ?", systemSymbol+"-%").
		Order("waypoint_symbol ASC").
		Pluck("waypoint_symbol", &waypoints).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list markets in system: %w", err)
	}

	return waypoints, nil
}

// FindCheapestSelling locates the market charging the least for a good.
// Returns nil, nil when no stored market lists it.
func (r *MarketRepositoryGORM) FindCheapestSelling(ctx context.Context, goodSymbol, systemSymbol string, playerID shared.PlayerID) (*market.CheapestMarketResult, error) {
	var row struct {
		WaypointSymbol string
		GoodSymbol     string
		SellPrice      int
		Supply         *string
	}

	err := r.db.WithContext(ctx).
		Model(&MarketDataModel{}).
		Select("waypoint_symbol, good_symbol, sell_price, supply").
		Where("player_id = ?", playerID.Value()).
		Where("waypoint_symbol LIKE ?", systemSymbol+"-%").
		Where("good_symbol = ?", goodSymbol).
		Order("sell_price ASC").
		Limit(1).
		Scan(&row).Error

	if err != nil {
		return nil, fmt.Errorf("failed to find cheapest market: %w", err)
	}

	if row.WaypointSymbol == "" {
		return nil, nil
	}

	return &market.CheapestMarketResult{
		WaypointSymbol: row.WaypointSymbol,
		TradeSymbol:    row.GoodSymbol,
		SellPrice:      row.SellPrice,
		Supply:         deref(row.Supply),
	}, nil
}

// FindBestBuying locates the market paying the most for a good. Returns
// nil, nil when no stored market lists it.
func (r *MarketRepositoryGORM) FindBestBuying(ctx context.Context, goodSymbol, systemSymbol string, playerID shared.PlayerID) (*market.BestMarketResult, error) {
	var row struct {
		WaypointSymbol string
		GoodSymbol     string
		PurchasePrice  int
		Supply         *string
	}

	err := r.db.WithContext(ctx).
		Model(&MarketDataModel{}).
		Select("waypoint_symbol, good_symbol, purchase_price, supply").
		Where("player_id = ?", playerID.Value()).
		Where("waypoint_symbol LIKE ?", systemSymbol+"-%").
		Where("good_symbol = ?", goodSymbol).
		Order("purchase_price DESC").
		Limit(1).
		Scan(&row).Error

	if err != nil {
		return nil, fmt.Errorf("failed to find best buying market: %w", err)
	}

	if row.WaypointSymbol == "" {
		return nil, nil
	}

	return &market.BestMarketResult{
		WaypointSymbol: row.WaypointSymbol,
		TradeSymbol:    row.GoodSymbol,
		PurchasePrice:  row.PurchasePrice,
		Supply:         deref(row.Supply),
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
