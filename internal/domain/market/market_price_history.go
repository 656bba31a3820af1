package market

import (
	"time"

	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// PriceHistory is one point-in-time price observation for a good at a
// waypoint. Scout containers append these every time a refreshed snapshot
// differs from the stored one.
type PriceHistory struct {
	id             int
	waypointSymbol string
	goodSymbol     string
	playerID       shared.PlayerID
	purchasePrice  int
	sellPrice      int
	supply         *string
	activity       *string
	tradeVolume    int
	recordedAt     time.Time
}

// NewPriceHistory validates and builds an observation.
func NewPriceHistory(
	waypointSymbol, goodSymbol string,
	playerID shared.PlayerID,
	purchasePrice, sellPrice int,
	supply, activity *string,
	tradeVolume int,
	recordedAt time.Time,
) (*PriceHistory, error) {
	if waypointSymbol == "" {
		return nil, ErrInvalidWaypointSymbol
	}
	if goodSymbol == "" {
		return nil, ErrInvalidGoodSymbol
	}
	if playerID.IsZero() {
		return nil, ErrInvalidPlayerID
	}
	if purchasePrice < 0 || sellPrice < 0 {
		return nil, ErrInvalidPrice
	}
	if tradeVolume < 0 {
		return nil, ErrInvalidTradeVolume
	}

	return &PriceHistory{
		waypointSymbol: waypointSymbol,
		goodSymbol:     goodSymbol,
		playerID:       playerID,
		purchasePrice:  purchasePrice,
		sellPrice:      sellPrice,
		supply:         supply,
		activity:       activity,
		tradeVolume:    tradeVolume,
		recordedAt:     recordedAt,
	}, nil
}

// ReconstructPriceHistory hydrates an observation from persistence.
func ReconstructPriceHistory(
	id int,
	waypointSymbol, goodSymbol string,
	playerID shared.PlayerID,
	purchasePrice, sellPrice int,
	supply, activity *string,
	tradeVolume int,
	recordedAt time.Time,
) *PriceHistory {
	return &PriceHistory{
		id:             id,
		waypointSymbol: waypointSymbol,
		goodSymbol:     goodSymbol,
		playerID:       playerID,
		purchasePrice:  purchasePrice,
		sellPrice:      sellPrice,
		supply:         supply,
		activity:       activity,
		tradeVolume:    tradeVolume,
		recordedAt:     recordedAt,
	}
}

func (h *PriceHistory) ID() int                   { return h.id }
func (h *PriceHistory) WaypointSymbol() string    { return h.waypointSymbol }
func (h *PriceHistory) GoodSymbol() string        { return h.goodSymbol }
func (h *PriceHistory) PlayerID() shared.PlayerID { return h.playerID }
func (h *PriceHistory) PurchasePrice() int        { return h.purchasePrice }
func (h *PriceHistory) SellPrice() int            { return h.sellPrice }
func (h *PriceHistory) Supply() *string           { return h.supply }
func (h *PriceHistory) Activity() *string         { return h.activity }
func (h *PriceHistory) TradeVolume() int          { return h.tradeVolume }
func (h *PriceHistory) RecordedAt() time.Time     { return h.recordedAt }

// DiffersFrom reports whether prices moved relative to a previous
// observation. Supply and activity shifts without a price move do not count.
func (h *PriceHistory) DiffersFrom(prev *PriceHistory) bool {
	if prev == nil {
		return true
	}
	return h.purchasePrice != prev.purchasePrice || h.sellPrice != prev.sellPrice
}
