package market

// TradeGood is one commodity listed at a market. Prices are quoted from the
// market's side: purchasePrice is what the market pays a ship selling to it,
// sellPrice is what the market charges a ship buying from it.
type TradeGood struct {
	symbol        string
	supply        *string
	activity      *string
	purchasePrice int
	sellPrice     int
	tradeVolume   int
}

var validSupplyValues = map[string]bool{
	"SCARCE":   true,
	"LIMITED":  true,
	"MODERATE": true,
	"HIGH":     true,
	"ABUNDANT": true,
}

var validActivityValues = map[string]bool{
	"WEAK":       true,
	"GROWING":    true,
	"STRONG":     true,
	"RESTRICTED": true,
}

// NewTradeGood validates and builds a listing. supply and activity are
// optional; the API omits them at waypoints without a live market feed.
func NewTradeGood(symbol string, supply, activity *string, purchasePrice, sellPrice, tradeVolume int) (*TradeGood, error) {
	if symbol == "" {
		return nil, ErrInvalidGoodSymbol
	}
	if purchasePrice < 0 || sellPrice < 0 {
		return nil, ErrInvalidPrice
	}
	if tradeVolume < 0 {
		return nil, ErrInvalidTradeVolume
	}
	if supply != nil && *supply != "" && !validSupplyValues[*supply] {
		return nil, ErrInvalidSupply
	}
	if activity != nil && *activity != "" && !validActivityValues[*activity] {
		return nil, ErrInvalidActivity
	}

	return &TradeGood{
		symbol:        symbol,
		supply:        supply,
		activity:      activity,
		purchasePrice: purchasePrice,
		sellPrice:     sellPrice,
		tradeVolume:   tradeVolume,
	}, nil
}

func (t *TradeGood) Symbol() string     { return t.symbol }
func (t *TradeGood) Supply() *string    { return t.supply }
func (t *TradeGood) Activity() *string  { return t.activity }
func (t *TradeGood) PurchasePrice() int { return t.purchasePrice }
func (t *TradeGood) SellPrice() int     { return t.sellPrice }
func (t *TradeGood) TradeVolume() int   { return t.tradeVolume }

// Spread returns sellPrice minus purchasePrice, the market's own margin.
func (t *TradeGood) Spread() int {
	return t.sellPrice - t.purchasePrice
}
