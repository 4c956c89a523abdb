package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"boostpanel/contexts/fulfillment/clip-orchestrator/domain/entities"
	domainerrors "boostpanel/contexts/fulfillment/clip-orchestrator/domain/errors"
)

// Store backs orchestrator tests: account pool, processing records and a
// scriptable automation driver in one place.
type Store struct {
	mu          sync.Mutex
	accounts    map[string]entities.Account
	processings map[string]entities.Processing // keyed by order id

	ClipURL      string
	DriverErr    error
	FailAttempts int // fail this many driver calls before succeeding
	driverCalls  int
}

func NewStore(accounts []entities.Account) *Store {
	pool := make(map[string]entities.Account, len(accounts))
	for _, item := range accounts {
		pool[item.AccountID] = item
	}
	return &Store{
		accounts:    pool,
		processings: make(map[string]entities.Processing),
		ClipURL:     "https://youtube.com/clip/generated",
	}
}

func (s *Store) SelectAvailable(_ context.Context, today time.Time) (entities.Account, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.accounts))
	for id := range s.accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		account := s.accounts[id]
		if account.LastClipDate.Before(startOfDay(today)) && account.DailyClips != 0 {
			account.DailyClips = 0
			s.accounts[id] = account
		}
		if account.Available(today) {
			return account, true, nil
		}
	}
	return entities.Account{}, false, nil
}

func (s *Store) RecordUsage(_ context.Context, accountID string, today time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return domainerrors.ErrAccountNotFound
	}
	account.DailyClips++
	account.TotalClips++
	account.LastClipDate = today
	s.accounts[accountID] = account
	return nil
}

func (s *Store) ResetDailyCounters(_ context.Context, today time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, account := range s.accounts {
		if account.DailyClips > 0 && account.LastClipDate.Before(startOfDay(today)) {
			account.DailyClips = 0
			s.accounts[id] = account
			count++
		}
	}
	return count, nil
}

func (s *Store) CreateProcessing(_ context.Context, item entities.Processing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.processings[item.OrderID]; exists {
		return errors.New("processing already exists for order")
	}
	s.processings[item.OrderID] = item
	return nil
}

func (s *Store) GetByOrder(_ context.Context, orderID string) (entities.Processing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.processings[strings.TrimSpace(orderID)]
	if !ok {
		return entities.Processing{}, domainerrors.ErrProcessingNotFound
	}
	return item, nil
}

func (s *Store) UpdateProcessing(_ context.Context, item entities.Processing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.processings[item.OrderID]; !ok {
		return domainerrors.ErrProcessingNotFound
	}
	s.processings[item.OrderID] = item
	return nil
}

func (s *Store) CreateClip(_ context.Context, _, _, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.driverCalls++
	if s.DriverErr != nil {
		return "", s.DriverErr
	}
	if s.driverCalls <= s.FailAttempts {
		return "", errors.New("automation driver timed out")
	}
	return s.ClipURL, nil
}

// DriverCalls reports how many times the fake driver was invoked.
func (s *Store) DriverCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.driverCalls
}

// Account returns a copy of one pool entry; convenience for tests.
func (s *Store) Account(accountID string) (entities.Account, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.accounts[accountID]
	return item, ok
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
