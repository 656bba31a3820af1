package ledger

import "fmt"

// Category groups transaction types for cash-flow reporting.
type Category string

const (
	CategoryFuelCosts       Category = "FUEL_COSTS"
	CategoryTradingRevenue  Category = "TRADING_REVENUE"
	CategoryTradingCosts    Category = "TRADING_COSTS"
	CategoryShipInvestments Category = "SHIP_INVESTMENTS"
	CategoryContractRevenue Category = "CONTRACT_REVENUE"
)

func AllCategories() []Category {
	return []Category{
		CategoryFuelCosts,
		CategoryTradingRevenue,
		CategoryTradingCosts,
		CategoryShipInvestments,
		CategoryContractRevenue,
	}
}

var typeToCategory = map[TransactionType]Category{
	TransactionTypeRefuel:              CategoryFuelCosts,
	TransactionTypeCargoPurchase:       CategoryTradingCosts,
	TransactionTypeCargoSale:           CategoryTradingRevenue,
	TransactionTypeShipPurchase:        CategoryShipInvestments,
	TransactionTypeContractReward:      CategoryContractRevenue,
	TransactionTypeContractNegotiation: CategoryContractRevenue,
}

func (c Category) String() string {
	return string(c)
}

func (c Category) IsValid() bool {
	switch c {
	case CategoryFuelCosts,
		CategoryTradingRevenue,
		CategoryTradingCosts,
		CategoryShipInvestments,
		CategoryContractRevenue:
		return true
	default:
		return false
	}
}

func (c Category) IsIncome() bool {
	switch c {
	case CategoryTradingRevenue, CategoryContractRevenue:
		return true
	default:
		return false
	}
}

func (c Category) IsExpense() bool {
	return !c.IsIncome()
}

func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.IsValid() {
		return "", fmt.Errorf("invalid category: %s", s)
	}
	return c, nil
}
