package ledger

import (
	"fmt"
	"time"

	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// Transaction is one append-only ledger entry. Amount is signed: positive
// for income, negative for spend. Container-driven entries carry the id of
// the container that caused them so profit can be attributed per operation.
type Transaction struct {
	id              TransactionID
	playerID        shared.PlayerID
	timestamp       time.Time
	transactionType TransactionType
	category        Category
	amount          int
	units           int
	pricePerUnit    int
	goodSymbol      string
	waypointSymbol  string
	shipSymbol      string
	balanceBefore   int
	balanceAfter    int
	description     string
	containerID     string
	metadata        map[string]interface{}
}

// NewTransactionParams carries the inputs for NewTransaction; most entries
// leave several fields at their zero value.
type NewTransactionParams struct {
	PlayerID        shared.PlayerID
	Timestamp       time.Time
	TransactionType TransactionType
	Amount          int
	Units           int
	PricePerUnit    int
	GoodSymbol      string
	WaypointSymbol  string
	ShipSymbol      string
	BalanceBefore   int
	BalanceAfter    int
	Description     string
	ContainerID     string
	Metadata        map[string]interface{}
}

// NewTransaction validates and builds an entry with a fresh id.
func NewTransaction(p NewTransactionParams) (*Transaction, error) {
	if p.PlayerID.IsZero() {
		return nil, &ErrInvalidTransaction{Field: "player_id", Reason: "player_id cannot be zero"}
	}

	if !p.TransactionType.IsValid() {
		return nil, &ErrInvalidTransaction{
			Field:  "transaction_type",
			Reason: fmt.Sprintf("invalid transaction type: %s", p.TransactionType),
		}
	}

	category, err := p.TransactionType.ToCategory()
	if err != nil {
		return nil, &ErrInvalidTransaction{Field: "category", Reason: err.Error()}
	}

	t := &Transaction{
		id:              NewTransactionID(),
		playerID:        p.PlayerID,
		timestamp:       p.Timestamp,
		transactionType: p.TransactionType,
		category:        category,
		amount:          p.Amount,
		units:           p.Units,
		pricePerUnit:    p.PricePerUnit,
		goodSymbol:      p.GoodSymbol,
		waypointSymbol:  p.WaypointSymbol,
		shipSymbol:      p.ShipSymbol,
		balanceBefore:   p.BalanceBefore,
		balanceAfter:    p.BalanceAfter,
		description:     p.Description,
		containerID:     p.ContainerID,
		metadata:        p.Metadata,
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}

	return t, nil
}

// ReconstructTransaction hydrates an entry from persistence, bypassing
// validation.
func ReconstructTransaction(
	id TransactionID,
	playerID shared.PlayerID,
	timestamp time.Time,
	transactionType TransactionType,
	category Category,
	amount, units, pricePerUnit int,
	goodSymbol, waypointSymbol, shipSymbol string,
	balanceBefore, balanceAfter int,
	description, containerID string,
	metadata map[string]interface{},
) *Transaction {
	return &Transaction{
		id:              id,
		playerID:        playerID,
		timestamp:       timestamp,
		transactionType: transactionType,
		category:        category,
		amount:          amount,
		units:           units,
		pricePerUnit:    pricePerUnit,
		goodSymbol:      goodSymbol,
		waypointSymbol:  waypointSymbol,
		shipSymbol:      shipSymbol,
		balanceBefore:   balanceBefore,
		balanceAfter:    balanceAfter,
		description:     description,
		containerID:     containerID,
		metadata:        metadata,
	}
}

// Validate enforces the entry's invariants. Only negotiations may carry a
// zero amount.
func (t *Transaction) Validate() error {
	if t.amount == 0 && t.transactionType != TransactionTypeContractNegotiation {
		return &ErrInvalidTransaction{Field: "amount", Reason: "amount cannot be zero"}
	}

	expected := t.balanceBefore + t.amount
	if t.balanceAfter != expected {
		return &ErrBalanceInvariantViolation{
			BalanceBefore: t.balanceBefore,
			Amount:        t.amount,
			BalanceAfter:  t.balanceAfter,
			Expected:      expected,
		}
	}

	// Allow a minute of clock skew between us and the API.
	if t.timestamp.After(time.Now().Add(time.Minute)) {
		return &ErrInvalidTransaction{
			Field:  "timestamp",
			Reason: fmt.Sprintf("timestamp cannot be in the future: %s", t.timestamp),
		}
	}

	return nil
}

func (t *Transaction) ID() TransactionID                { return t.id }
func (t *Transaction) PlayerID() shared.PlayerID        { return t.playerID }
func (t *Transaction) Timestamp() time.Time             { return t.timestamp }
func (t *Transaction) TransactionType() TransactionType { return t.transactionType }
func (t *Transaction) Category() Category               { return t.category }
func (t *Transaction) Amount() int                      { return t.amount }
func (t *Transaction) Units() int                       { return t.units }
func (t *Transaction) PricePerUnit() int                { return t.pricePerUnit }
func (t *Transaction) GoodSymbol() string               { return t.goodSymbol }
func (t *Transaction) WaypointSymbol() string           { return t.waypointSymbol }
func (t *Transaction) ShipSymbol() string               { return t.shipSymbol }
func (t *Transaction) BalanceBefore() int               { return t.balanceBefore }
func (t *Transaction) BalanceAfter() int                { return t.balanceAfter }
func (t *Transaction) Description() string              { return t.description }
func (t *Transaction) ContainerID() string              { return t.containerID }

func (t *Transaction) Metadata() map[string]interface{} {
	if t.metadata == nil {
		return nil
	}
	copied := make(map[string]interface{}, len(t.metadata))
	for k, v := range t.metadata {
		copied[k] = v
	}
	return copied
}

func (t *Transaction) IsIncome() bool {
	return t.amount > 0
}

func (t *Transaction) IsExpense() bool {
	return t.amount < 0
}

func (t *Transaction) String() string {
	return fmt.Sprintf("Transaction[%s, type=%s, amount=%d, balance=%d->%d]",
		t.id.String(), t.transactionType, t.amount, t.balanceBefore, t.balanceAfter)
}
