package shipyard

// ShipListing is one ship type offered for purchase at a shipyard, with its
// current price. Prices drift, so listings are only as fresh as the last
// shipyard fetch.
type ShipListing struct {
	ShipType      string
	Name          string
	Description   string
	PurchasePrice int
}

// Shipyard is the purchase surface at a waypoint. ShipTypes lists what the
// yard can ever sell; Listings carries prices and is only populated while a
// ship of the player is present at the waypoint.
type Shipyard struct {
	Symbol          string
	ShipTypes       []string
	Listings        []ShipListing
	ModificationFee int
}

func NewShipyard(symbol string, shipTypes []string, listings []ShipListing, modificationFee int) Shipyard {
	return Shipyard{
		Symbol:          symbol,
		ShipTypes:       shipTypes,
		Listings:        listings,
		ModificationFee: modificationFee,
	}
}

// FindListingByType returns the priced listing for a ship type, false when
// the yard has no live listing for it.
func (s *Shipyard) FindListingByType(shipType string) (*ShipListing, bool) {
	for i := range s.Listings {
		if s.Listings[i].ShipType == shipType {
			return &s.Listings[i], true
		}
	}
	return nil, false
}

// HasShipType reports whether the yard ever sells the type, independent of
// price visibility.
func (s *Shipyard) HasShipType(shipType string) bool {
	for _, st := range s.ShipTypes {
		if st == shipType {
			return true
		}
	}
	return false
}

// PurchaseResult reports a completed ship purchase.
type PurchaseResult struct {
	ShipSymbol   string
	ShipType     string
	Price        int
	AgentCredits int
}
