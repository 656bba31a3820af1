package ledger

import (
	"context"
	"time"

	"github.com/orbitalmachines/astrogator/internal/domain/shared"
)

// TransactionRepository persists ledger entries. Entries are append-only;
// there is no update or delete.
type TransactionRepository interface {
	Create(ctx context.Context, transaction *Transaction) error

	FindByID(ctx context.Context, id TransactionID, playerID shared.PlayerID) (*Transaction, error)

	FindByPlayer(ctx context.Context, playerID shared.PlayerID, opts QueryOptions) ([]*Transaction, error)

	CountByPlayer(ctx context.Context, playerID shared.PlayerID, opts QueryOptions) (int, error)
}

// QueryOptions filters and paginates transaction queries. Nil filters match
// everything.
type QueryOptions struct {
	StartDate *time.Time
	EndDate   *time.Time

	Category        *Category
	TransactionType *TransactionType

	ContainerID *string
	ShipSymbol  *string

	// Limit 0 means no limit.
	Limit  int
	Offset int

	// OrderBy is "timestamp ASC" or "timestamp DESC" (default).
	OrderBy string
}

// DefaultQueryOptions is the paging the RPC layer uses when the caller does
// not specify one.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{
		Limit:   50,
		OrderBy: "timestamp DESC",
	}
}
