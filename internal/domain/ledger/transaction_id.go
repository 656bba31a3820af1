package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// TransactionID identifies a ledger entry.
type TransactionID struct {
	value string
}

// NewTransactionID generates a fresh UUID id.
func NewTransactionID() TransactionID {
	return TransactionID{value: uuid.New().String()}
}

// NewTransactionIDFromString validates and wraps an existing id.
func NewTransactionIDFromString(id string) (TransactionID, error) {
	if id == "" {
		return TransactionID{}, fmt.Errorf("transaction_id cannot be empty")
	}

	if _, err := uuid.Parse(id); err != nil {
		return TransactionID{}, fmt.Errorf("invalid transaction_id format: %w", err)
	}

	return TransactionID{value: id}, nil
}

// MustNewTransactionIDFromString wraps an id known to be valid (e.g. loaded
// from storage).
func MustNewTransactionIDFromString(id string) TransactionID {
	tid, err := NewTransactionIDFromString(id)
	if err != nil {
		panic(err)
	}
	return tid
}

func (t TransactionID) Value() string {
	return t.value
}

func (t TransactionID) String() string {
	return t.value
}

func (t TransactionID) Equals(other TransactionID) bool {
	return t.value == other.value
}

func (t TransactionID) IsZero() bool {
	return t.value == ""
}
