package ports

import (
	"context"
	"time"

	"boostpanel/contexts/finance-core/balance-ledger/domain/entities"
)

// MutateFunc computes the next balance state and the audit entries to append.
// It runs with the user's row exclusively locked; it must not perform I/O.
type MutateFunc func(current entities.UserBalance) (entities.UserBalance, []entities.Transaction, error)

// MutatePairFunc is the two-row variant used by transfers. Rows arrive in the
// order they were passed, already locked lower-user-id first by the store.
type MutatePairFunc func(from, to entities.UserBalance) (entities.UserBalance, entities.UserBalance, []entities.Transaction, error)

type LedgerStore interface {
	// UpdateLocked runs fn inside one database transaction with the balance
	// row locked for update. The write compares-and-swaps the row version and
	// reports ErrConcurrencyConflict on a miss.
	UpdateLocked(ctx context.Context, userID string, fn MutateFunc) error
	// UpdatePairLocked locks both rows in globally consistent order
	// (lower user id first) to keep concurrent transfers deadlock-free.
	UpdatePairLocked(ctx context.Context, fromID, toID string, fn MutatePairFunc) error

	GetBalance(ctx context.Context, userID string) (entities.UserBalance, error)
	ListTransactions(ctx context.Context, userID string, limit, offset int) ([]entities.Transaction, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
