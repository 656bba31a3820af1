package trading

import "errors"

var (
	ErrNoOpportunitiesFound   = errors.New("no arbitrage opportunities found")
	ErrInvalidMarginThreshold = errors.New("minimum margin threshold must be positive")
	ErrInvalidCargoCapacity   = errors.New("cargo capacity must be positive")
	ErrMarketDataUnavailable  = errors.New("market data unavailable")
)
