package trading

import (
	"context"

	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// OpportunityFinder discovers arbitrage opportunities across the scouted
// markets of a system. Implemented as an application service over the market
// repository.
type OpportunityFinder interface {
	// FindOpportunities returns viable opportunities sorted by score,
	// best first, at most limit entries.
	FindOpportunities(
		ctx context.Context,
		systemSymbol string,
		playerID shared.PlayerID,
		cargoCapacity int,
		minMargin float64,
		limit int,
	) ([]*ArbitrageOpportunity, error)
}
