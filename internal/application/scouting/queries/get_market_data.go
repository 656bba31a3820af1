package queries

import (
	"context"
	"fmt"
	"time"

	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	"github.com/orbitalmachines/astrogator/internal/application/player"
	"github.com/orbitalmachines/astrogator/internal/domain/market"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// staleAfter is the age past which a snapshot is flagged stale in query
// responses. Scout tours rescan every market on roughly this cadence when
// the fleet covers the system.
const staleAfter = 15 * time.Minute

// GetMarketDataQuery returns the stored price snapshot for one waypoint,
// annotated with how old it is. It never reaches for the API; scouting keeps
// the store fresh.
type GetMarketDataQuery struct {
	PlayerID       *int
	AgentSymbol    string
	WaypointSymbol string `validate:"required"`
}

type GetMarketDataResponse struct {
	Market *MarketDataDTO
}

// MarketDataDTO is the wire shape of one market snapshot.
type MarketDataDTO struct {
	WaypointSymbol string         `json:"waypoint_symbol"`
	Goods          []TradeGoodDTO `json:"goods"`
	LastUpdated    time.Time      `json:"last_updated"`
	AgeSeconds     int            `json:"age_seconds"`
	Stale          bool           `json:"stale"`
}

type TradeGoodDTO struct {
	Symbol        string  `json:"symbol"`
	Supply        *string `json:"supply,omitempty"`
	Activity      *string `json:"activity,omitempty"`
	PurchasePrice int     `json:"purchase_price"`
	SellPrice     int     `json:"sell_price"`
	TradeVolume   int     `json:"trade_volume"`
}

type GetMarketDataHandler struct {
	marketRepo     market.Repository
	playerResolver *player.Resolver
	clock          shared.Clock
}

func NewGetMarketDataHandler(marketRepo market.Repository, playerResolver *player.Resolver, clock shared.Clock) *GetMarketDataHandler {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &GetMarketDataHandler{
		marketRepo:     marketRepo,
		playerResolver: playerResolver,
		clock:          clock,
	}
}

func (h *GetMarketDataHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	query, ok := request.(*GetMarketDataQuery)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *GetMarketDataQuery")
	}

	playerID, err := h.playerResolver.ResolvePlayerID(ctx, query.PlayerID, query.AgentSymbol)
	if err != nil {
		return nil, err
	}

	snapshot, err := h.marketRepo.GetMarketData(ctx, query.WaypointSymbol, playerID)
	if err != nil {
		return nil, err
	}

	return &GetMarketDataResponse{
		Market: toMarketDataDTO(snapshot, h.clock.Now()),
	}, nil
}

// ListSystemMarketsQuery returns every stored snapshot in a system, newest
// data first is not guaranteed; ordering follows waypoint symbol.
type ListSystemMarketsQuery struct {
	PlayerID     *int
	AgentSymbol  string
	SystemSymbol string `validate:"required"`
}

type ListSystemMarketsResponse struct {
	Markets []*MarketDataDTO
}

type ListSystemMarketsHandler struct {
	marketRepo     market.Repository
	playerResolver *player.Resolver
	clock          shared.Clock
}

func NewListSystemMarketsHandler(marketRepo market.Repository, playerResolver *player.Resolver, clock shared.Clock) *ListSystemMarketsHandler {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &ListSystemMarketsHandler{
		marketRepo:     marketRepo,
		playerResolver: playerResolver,
		clock:          clock,
	}
}

func (h *ListSystemMarketsHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	query, ok := request.(*ListSystemMarketsQuery)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *ListSystemMarketsQuery")
	}

	playerID, err := h.playerResolver.ResolvePlayerID(ctx, query.PlayerID, query.AgentSymbol)
	if err != nil {
		return nil, err
	}

	waypoints, err := h.marketRepo.FindAllInSystem(ctx, query.SystemSymbol, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list markets in %s: %w", query.SystemSymbol, err)
	}

	now := h.clock.Now()
	markets := make([]*MarketDataDTO, 0, len(waypoints))
	for _, waypointSymbol := range waypoints {
		snapshot, err := h.marketRepo.GetMarketData(ctx, waypointSymbol, playerID)
		if err != nil {
			return nil, fmt.Errorf("failed to load market %s: %w", waypointSymbol, err)
		}
		markets = append(markets, toMarketDataDTO(snapshot, now))
	}

	return &ListSystemMarketsResponse{Markets: markets}, nil
}

func toMarketDataDTO(snapshot *market.Market, now time.Time) *MarketDataDTO {
	goods := make([]TradeGoodDTO, 0, snapshot.GoodsCount())
	for _, good := range snapshot.TradeGoods() {
		goods = append(goods, TradeGoodDTO{
			Symbol:        good.Symbol(),
			Supply:        good.Supply(),
			Activity:      good.Activity(),
			PurchasePrice: good.PurchasePrice(),
			SellPrice:     good.SellPrice(),
			TradeVolume:   good.TradeVolume(),
		})
	}

	age := now.Sub(snapshot.LastUpdated())
	if age < 0 {
		age = 0
	}

	return &MarketDataDTO{
		WaypointSymbol: snapshot.WaypointSymbol(),
		Goods:          goods,
		LastUpdated:    snapshot.LastUpdated(),
		AgeSeconds:     int(age.Seconds()),
		Stale:          snapshot.IsStale(now, staleAfter),
	}
}
