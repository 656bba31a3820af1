package ledger

import "fmt"

// TransactionType is the kind of credit movement a ledger entry records.
type TransactionType string

const (
	TransactionTypeRefuel TransactionType = "REFUEL"

	TransactionTypeCargoPurchase TransactionType = "CARGO_PURCHASE"

	TransactionTypeCargoSale TransactionType = "CARGO_SALE"

	TransactionTypeShipPurchase TransactionType = "SHIP_PURCHASE"

	// TransactionTypeContractReward covers both the on-accepted and the
	// on-fulfilled payment of a contract.
	TransactionTypeContractReward TransactionType = "CONTRACT_REWARD"

	// TransactionTypeContractNegotiation marks a negotiation. Amount is
	// usually zero; the entry exists so workflows leave an audit trail.
	TransactionTypeContractNegotiation TransactionType = "CONTRACT_NEGOTIATION"
)

func AllTransactionTypes() []TransactionType {
	return []TransactionType{
		TransactionTypeRefuel,
		TransactionTypeCargoPurchase,
		TransactionTypeCargoSale,
		TransactionTypeShipPurchase,
		TransactionTypeContractReward,
		TransactionTypeContractNegotiation,
	}
}

func (t TransactionType) String() string {
	return string(t)
}

func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeRefuel,
		TransactionTypeCargoPurchase,
		TransactionTypeCargoSale,
		TransactionTypeShipPurchase,
		TransactionTypeContractReward,
		TransactionTypeContractNegotiation:
		return true
	default:
		return false
	}
}

// ToCategory maps the type to its cash-flow category.
func (t TransactionType) ToCategory() (Category, error) {
	category, exists := typeToCategory[t]
	if !exists {
		return "", fmt.Errorf("unknown transaction type: %s", t)
	}
	return category, nil
}

func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid transaction type: %s", s)
	}
	return t, nil
}
