package market

import "errors"

var (
	ErrMarketNotFound        = errors.New("market not found")
	ErrStaleMarketData       = errors.New("stale market data")
	ErrInvalidWaypointSymbol = errors.New("invalid waypoint symbol")
	ErrInvalidGoodSymbol     = errors.New("invalid good symbol")
	ErrInvalidPlayerID       = errors.New("invalid player id")
	ErrInvalidPrice          = errors.New("invalid price")
	ErrInvalidTradeVolume    = errors.New("invalid trade volume")
	ErrInvalidSupply         = errors.New("invalid supply value")
	ErrInvalidActivity       = errors.New("invalid activity value")
	ErrMissingTimestamp      = errors.New("timestamp cannot be empty")
)
