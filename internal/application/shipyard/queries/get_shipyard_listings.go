package queries

import (
	"context"
	"fmt"

	"github.com/orbitalmachines/astrogator/internal/application/auth"
	"github.com/orbitalmachines/astrogator/internal/application/mediator"
	"github.com/orbitalmachines/astrogator/internal/domain/ports"
	"github.com/orbitalmachines/astrogator/internal/domain/shared"
	"github.com/orbitalmachines/astrogator/internal/domain/shipyard"
)

// GetShipyardListingsQuery fetches what a shipyard sells. The remote API only
// reveals prices while one of the player's ships is at the waypoint; without
// one the response still carries the yard's ship types, just no listings.
type GetShipyardListingsQuery struct {
	PlayerID       *int
	AgentSymbol    string
	WaypointSymbol string `validate:"required"`
}

type GetShipyardListingsResponse struct {
	Shipyard *shipyard.Shipyard
}

type GetShipyardListingsHandler struct {
	apiClient ports.APIClient
}

func NewGetShipyardListingsHandler(apiClient ports.APIClient) *GetShipyardListingsHandler {
	return &GetShipyardListingsHandler{apiClient: apiClient}
}

func (h *GetShipyardListingsHandler) Handle(ctx context.Context, request mediator.Request) (mediator.Response, error) {
	query, ok := request.(*GetShipyardListingsQuery)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *GetShipyardListingsQuery")
	}

	token, err := auth.PlayerTokenFromContext(ctx)
	if err != nil {
		return nil, err
	}

	systemSymbol := shared.ExtractSystemSymbol(query.WaypointSymbol)
	data, err := h.apiClient.GetShipyard(ctx, systemSymbol, query.WaypointSymbol, token)
	if err != nil {
		if shared.IsCode(err, shared.ErrHTTP4xx) {
			return nil, shared.WrapDomainError(shared.ErrShipyardNotFound,
				fmt.Sprintf("no shipyard at %s", query.WaypointSymbol), err)
		}
		return nil, fmt.Errorf("failed to fetch shipyard %s: %w", query.WaypointSymbol, err)
	}

	yard := shipyardFromData(data)
	return &GetShipyardListingsResponse{Shipyard: &yard}, nil
}

func shipyardFromData(data *ports.ShipyardData) shipyard.Shipyard {
	listings := make([]shipyard.ShipListing, len(data.Listings))
	for i, listing := range data.Listings {
		listings[i] = shipyard.ShipListing{
			ShipType:      listing.Type,
			Name:          listing.Name,
			Description:   listing.Description,
			PurchasePrice: listing.PurchasePrice,
		}
	}
	return shipyard.NewShipyard(data.Symbol, data.ShipTypes, listings, data.ModificationFee)
}
