package queries

import (
	"context"
	"fmt"
	"time"

	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	"github.com/orbitalmachines/astrogator/internal/application/player"
	"github.com/orbitalmachines/astrogator/internal/domain/navigation"
)

// GetShipQuery fetches one ship. Exactly one of PlayerID or AgentSymbol must
// identify the owner.
type GetShipQuery struct {
	ShipSymbol  string `validate:"required"`
	PlayerID    *int
	AgentSymbol string
}

type GetShipResponse struct {
	Ship *ShipDTO
}

// ShipDTO is the wire shape of a ship.
type ShipDTO struct {
	ShipSymbol    string         `json:"ship_symbol"`
	PlayerID      int            `json:"player_id"`
	Location      string         `json:"location"`
	SystemSymbol  string         `json:"system_symbol"`
	NavStatus     string         `json:"nav_status"`
	FlightMode    string         `json:"flight_mode"`
	FuelCurrent   int            `json:"fuel_current"`
	FuelCapacity  int            `json:"fuel_capacity"`
	CargoUnits    int            `json:"cargo_units"`
	CargoCapacity int            `json:"cargo_capacity"`
	Cargo         []CargoItemDTO `json:"cargo,omitempty"`
	EngineSpeed   int            `json:"engine_speed"`
	FrameSymbol   string         `json:"frame_symbol,omitempty"`
	Role          string         `json:"role,omitempty"`
	ArrivalTime   *time.Time     `json:"arrival_time,omitempty"`
	ContainerID   string         `json:"container_id,omitempty"`
}

type CargoItemDTO struct {
	Symbol string `json:"symbol"`
	Units  int    `json:"units"`
}

type GetShipHandler struct {
	shipRepo       navigation.ShipRepository
	playerResolver *player.Resolver
}

func NewGetShipHandler(shipRepo navigation.ShipRepository, playerResolver *player.Resolver) *GetShipHandler {
	return &GetShipHandler{
		shipRepo:       shipRepo,
		playerResolver: playerResolver,
	}
}

func (h *GetShipHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	query, ok := request.(*GetShipQuery)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *GetShipQuery")
	}

	playerID, err := h.playerResolver.ResolvePlayerID(ctx, query.PlayerID, query.AgentSymbol)
	if err != nil {
		return nil, err
	}

	ship, err := h.shipRepo.FindBySymbol(ctx, query.ShipSymbol, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get ship: %w", err)
	}

	return &GetShipResponse{Ship: toShipDTO(ship)}, nil
}

func toShipDTO(ship *navigation.Ship) *ShipDTO {
	inventory := ship.Cargo().Inventory()
	cargo := make([]CargoItemDTO, len(inventory))
	for i, item := range inventory {
		cargo[i] = CargoItemDTO{Symbol: item.Symbol, Units: item.Units}
	}

	return &ShipDTO{
		ShipSymbol:    ship.ShipSymbol(),
		PlayerID:      ship.PlayerID().Value(),
		Location:      ship.CurrentLocation().Symbol,
		SystemSymbol:  ship.CurrentLocation().SystemSymbol,
		NavStatus:     string(ship.NavStatus()),
		FlightMode:    string(ship.FlightMode()),
		FuelCurrent:   ship.Fuel().Current,
		FuelCapacity:  ship.FuelCapacity(),
		CargoUnits:    ship.CargoUnits(),
		CargoCapacity: ship.CargoCapacity(),
		Cargo:         cargo,
		EngineSpeed:   ship.EngineSpeed(),
		FrameSymbol:   ship.FrameSymbol(),
		Role:          ship.Role(),
		ArrivalTime:   ship.ArrivalTime(),
		ContainerID:   ship.ContainerID(),
	}
}
