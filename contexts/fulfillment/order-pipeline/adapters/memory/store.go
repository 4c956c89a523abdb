package memory

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"boostpanel/contexts/fulfillment/order-pipeline/domain/entities"
	domainerrors "boostpanel/contexts/fulfillment/order-pipeline/domain/errors"
	"boostpanel/contexts/fulfillment/order-pipeline/ports"
	"boostpanel/internal/shared/events"
	"boostpanel/internal/shared/outbox"
)

// Store backs pipeline tests: orders, the service catalog, the outbox and
// scriptable fakes for every external collaborator in one place.
type Store struct {
	mu       sync.Mutex
	orders   map[string]entities.Order
	services map[string]entities.Service
	rows     []outbox.Record

	// Publisher fake.
	Published  []events.Envelope
	PublishErr error

	// Metadata fake.
	Views        map[string]int64
	MissingVideo map[string]bool
	MetadataErr  error

	// Ledger fake.
	Balances   map[string]decimal.Decimal
	DeductErr  error
	RefundErr  error
	Refunds    []decimal.Decimal
	Deductions []decimal.Decimal

	// Clip orchestrator fake.
	Clip       ports.ClipOutcome
	ClipKnown  bool
	ClipErr    error
	ClipCalls  int
	OutcomeErr error

	// Distributor fake.
	Distribution    ports.DistributionOutcome
	DistributeErr   error
	DistributeCalls int
	LastTargetURL   string
	LastClipCreated bool
	Delivery        ports.DeliveryStats
	StatsErr        error
	StopCalls       int
	ResumeCalls     int
	StopErr         error
}

func NewStore(services []entities.Service) *Store {
	catalog := make(map[string]entities.Service, len(services))
	for _, item := range services {
		catalog[item.ServiceID] = item
	}
	return &Store{
		orders:       make(map[string]entities.Order),
		services:     catalog,
		Views:        make(map[string]int64),
		MissingVideo: make(map[string]bool),
		Balances:     make(map[string]decimal.Decimal),
		Distribution: ports.DistributionOutcome{Coefficient: decimal.NewFromInt(3), TotalClicks: 0},
	}
}

func (s *Store) CreateOrder(_ context.Context, order entities.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[order.OrderID]; exists {
		return errors.New("order already exists")
	}
	s.orders[order.OrderID] = order
	return nil
}

func (s *Store) GetOrder(_ context.Context, orderID string) (entities.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[strings.TrimSpace(orderID)]
	if !ok {
		return entities.Order{}, domainerrors.ErrOrderNotFound
	}
	return order, nil
}

func (s *Store) ListOrdersByUser(_ context.Context, userID string, limit, offset int) ([]entities.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]entities.Order, 0)
	for _, order := range s.orders {
		if order.UserID == userID {
			matched = append(matched, order)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *Store) ListOrdersByStatus(_ context.Context, status entities.OrderStatus, limit int) ([]entities.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]entities.Order, 0)
	for _, order := range s.orders {
		if order.Status == status {
			matched = append(matched, order)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.Before(matched[j].CreatedAt) })
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *Store) UpdateOrder(_ context.Context, order entities.Order, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.orders[order.OrderID]
	if !ok {
		return domainerrors.ErrOrderNotFound
	}
	if current.Version != expectedVersion {
		return errors.New("order version conflict")
	}
	s.orders[order.OrderID] = order
	return nil
}

func (s *Store) GetService(_ context.Context, serviceID string) (entities.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	service, ok := s.services[strings.TrimSpace(serviceID)]
	if !ok {
		return entities.Service{}, domainerrors.ErrServiceNotFound
	}
	return service, nil
}

func (s *Store) ListServices(_ context.Context) ([]entities.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]entities.Service, 0, len(s.services))
	for _, service := range s.services {
		items = append(items, service)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ServiceID < items[j].ServiceID })
	return items, nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope events.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	s.rows = append(s.rows, outbox.Record{
		OutboxID:  envelope.EventID,
		EventType: envelope.EventType,
		OrderID:   envelope.OrderID,
		Payload:   payload,
		Status:    outbox.StatusPending,
		CreatedAt: envelope.OccurredAtUTC,
	})
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]outbox.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make([]outbox.Record, 0)
	for _, row := range s.rows {
		if row.Status == outbox.StatusPending {
			pending = append(pending, row)
		}
		if len(pending) == limit {
			break
		}
	}
	return pending, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, recordID string, publishedAt time.Time) error {
	return s.markOutbox(recordID, outbox.StatusPublished, &publishedAt, "")
}

func (s *Store) MarkOutboxFailed(_ context.Context, recordID string, reason string) error {
	return s.markOutbox(recordID, outbox.StatusFailed, nil, reason)
}

func (s *Store) markOutbox(recordID, status string, publishedAt *time.Time, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, row := range s.rows {
		if row.OutboxID == recordID {
			s.rows[i].Status = status
			s.rows[i].PublishedAt = publishedAt
			s.rows[i].LastError = reason
			return nil
		}
	}
	return errors.New("outbox record not found")
}

// PendingTopics lists the event types still waiting in the outbox, in append
// order; convenience for tests.
func (s *Store) PendingTopics() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	topics := make([]string, 0)
	for _, row := range s.rows {
		if row.Status == outbox.StatusPending {
			topics = append(topics, row.EventType)
		}
	}
	return topics
}

func (s *Store) Publish(_ context.Context, _ string, envelope events.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.PublishErr != nil {
		return s.PublishErr
	}
	s.Published = append(s.Published, envelope)
	return nil
}

func (s *Store) BaselineViews(_ context.Context, videoID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.MetadataErr != nil {
		return 0, s.MetadataErr
	}
	return s.Views[videoID], nil
}

func (s *Store) VideoExists(_ context.Context, videoID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.MetadataErr != nil {
		return false, s.MetadataErr
	}
	return !s.MissingVideo[videoID], nil
}

func (s *Store) CheckAndDeduct(_ context.Context, userID string, amount decimal.Decimal, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.DeductErr != nil {
		return s.DeductErr
	}
	balance := s.Balances[userID]
	if balance.LessThan(amount) {
		return domainerrors.ErrInsufficientBalance
	}
	s.Balances[userID] = balance.Sub(amount)
	s.Deductions = append(s.Deductions, amount)
	return nil
}

func (s *Store) Refund(_ context.Context, userID string, amount decimal.Decimal, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.RefundErr != nil {
		return s.RefundErr
	}
	s.Balances[userID] = s.Balances[userID].Add(amount)
	s.Refunds = append(s.Refunds, amount)
	return nil
}

func (s *Store) PrepareClip(_ context.Context, _, _ string) (ports.ClipOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ClipCalls++
	if s.ClipErr != nil {
		return ports.ClipOutcome{}, s.ClipErr
	}
	s.ClipKnown = true
	return s.Clip, nil
}

func (s *Store) Outcome(_ context.Context, _ string) (ports.ClipOutcome, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.OutcomeErr != nil {
		return ports.ClipOutcome{}, false, s.OutcomeErr
	}
	return s.Clip, s.ClipKnown, nil
}

func (s *Store) Distribute(
	_ context.Context,
	_, _, targetURL string,
	_ int,
	clipCreated bool,
	_ string,
) (ports.DistributionOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.DistributeCalls++
	s.LastTargetURL = targetURL
	s.LastClipCreated = clipCreated
	if s.DistributeErr != nil {
		return ports.DistributionOutcome{}, s.DistributeErr
	}
	return s.Distribution, nil
}

func (s *Store) Stats(_ context.Context, _ string) (ports.DeliveryStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.StatsErr != nil {
		return ports.DeliveryStats{}, s.StatsErr
	}
	return s.Delivery, nil
}

func (s *Store) StopAll(_ context.Context, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.StopCalls++
	return s.StopErr
}

func (s *Store) Resume(_ context.Context, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ResumeCalls++
	return nil
}

// Order returns a copy of one stored order; convenience for tests.
func (s *Store) Order(orderID string) (entities.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.orders[orderID]
	return order, ok
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
