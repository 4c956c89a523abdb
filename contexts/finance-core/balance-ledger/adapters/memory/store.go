package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"boostpanel/contexts/finance-core/balance-ledger/domain/entities"
	domainerrors "boostpanel/contexts/finance-core/balance-ledger/domain/errors"
	"boostpanel/contexts/finance-core/balance-ledger/ports"
)

// Store is the in-memory ledger used by tests. The single mutex stands in for
// the row locks the postgres adapter takes, so MutateFuncs observe the same
// exclusive-access contract.
type Store struct {
	mu           sync.Mutex
	balances     map[string]entities.UserBalance
	transactions []entities.Transaction
}

func NewStore(seed []entities.UserBalance) *Store {
	balances := make(map[string]entities.UserBalance, len(seed))
	for _, item := range seed {
		balances[item.UserID] = item
	}
	return &Store{balances: balances}
}

func (s *Store) UpdateLocked(ctx context.Context, userID string, fn ports.MutateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.balances[strings.TrimSpace(userID)]
	if !ok {
		return domainerrors.ErrUserNotFound
	}

	next, entries, err := fn(current)
	if err != nil {
		return err
	}
	next.Version = current.Version + 1
	next.UpdatedAt = time.Now().UTC()
	s.balances[next.UserID] = next
	s.transactions = append(s.transactions, entries...)
	return nil
}

func (s *Store) UpdatePairLocked(ctx context.Context, fromID, toID string, fn ports.MutatePairFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	from, ok := s.balances[strings.TrimSpace(fromID)]
	if !ok {
		return domainerrors.ErrUserNotFound
	}
	to, ok := s.balances[strings.TrimSpace(toID)]
	if !ok {
		return domainerrors.ErrUserNotFound
	}

	nextFrom, nextTo, entries, err := fn(from, to)
	if err != nil {
		return err
	}
	nextFrom.Version = from.Version + 1
	nextTo.Version = to.Version + 1
	now := time.Now().UTC()
	nextFrom.UpdatedAt = now
	nextTo.UpdatedAt = now
	s.balances[nextFrom.UserID] = nextFrom
	s.balances[nextTo.UserID] = nextTo
	s.transactions = append(s.transactions, entries...)
	return nil
}

func (s *Store) GetBalance(_ context.Context, userID string) (entities.UserBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.balances[strings.TrimSpace(userID)]
	if !ok {
		return entities.UserBalance{}, domainerrors.ErrUserNotFound
	}
	return item, nil
}

func (s *Store) ListTransactions(_ context.Context, userID string, limit, offset int) ([]entities.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	items := make([]entities.Transaction, 0)
	for _, item := range s.transactions {
		if item.UserID == strings.TrimSpace(userID) {
			items = append(items, item)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if offset >= len(items) {
		return []entities.Transaction{}, nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end], nil
}

// SeedBalance registers a user row; convenience for tests.
func (s *Store) SeedBalance(userID string, balance decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[userID] = entities.UserBalance{
		UserID:    userID,
		Balance:   balance,
		UpdatedAt: time.Now().UTC(),
	}
}

// AllTransactions returns a copy of the audit trail; convenience for tests.
func (s *Store) AllTransactions() []entities.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entities.Transaction(nil), s.transactions...)
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.LedgerStore = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
