package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"boostpanel/contexts/fulfillment/campaign-distributor/domain/entities"
	domainerrors "boostpanel/contexts/fulfillment/campaign-distributor/domain/errors"
	"boostpanel/contexts/fulfillment/campaign-distributor/ports"
)

// Store backs distributor tests: repositories plus a scriptable traffic
// platform fake in one place.
type Store struct {
	mu           sync.RWMutex
	fixed        []entities.FixedCampaign
	assignments  map[string]entities.Assignment
	coefficients map[string]entities.Coefficient

	offers       map[string]string // offer name -> offer id
	offerTargets map[string]string // offer id -> target url
	assignCalls  []string
	stats        map[string]ports.CampaignStats

	FailAssignFor map[string]bool
	FailStatsFor  map[string]bool
}

func NewStore(fixed []entities.FixedCampaign) *Store {
	return &Store{
		fixed:         fixed,
		assignments:   make(map[string]entities.Assignment),
		coefficients:  make(map[string]entities.Coefficient),
		offers:        make(map[string]string),
		offerTargets:  make(map[string]string),
		stats:         make(map[string]ports.CampaignStats),
		FailAssignFor: make(map[string]bool),
		FailStatsFor:  make(map[string]bool),
	}
}

func (s *Store) ListActive(_ context.Context) ([]entities.FixedCampaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.FixedCampaign, 0, len(s.fixed))
	for _, item := range s.fixed {
		if item.Active {
			items = append(items, item)
		}
	}
	return items, nil
}

func (s *Store) CreateAssignment(_ context.Context, assignment entities.Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.assignments[assignment.AssignmentID]; exists {
		return domainerrors.ErrInvalidDistribution
	}
	s.assignments[assignment.AssignmentID] = assignment
	return nil
}

func (s *Store) ListByOrder(_ context.Context, orderID string) ([]entities.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Assignment, 0)
	for _, item := range s.assignments {
		if item.OrderID == strings.TrimSpace(orderID) {
			items = append(items, item)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CampaignID < items[j].CampaignID
	})
	return items, nil
}

func (s *Store) UpdateStatus(_ context.Context, assignmentID string, status entities.AssignmentStatus, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.assignments[assignmentID]
	if !ok {
		return domainerrors.ErrAssignmentNotFound
	}
	item.Status = status
	item.UpdatedAt = updatedAt
	s.assignments[assignmentID] = item
	return nil
}

func (s *Store) UpdateDelivered(_ context.Context, assignmentID string, clicksDelivered int, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.assignments[assignmentID]
	if !ok {
		return domainerrors.ErrAssignmentNotFound
	}
	item.ClicksDelivered = clicksDelivered
	item.UpdatedAt = updatedAt
	s.assignments[assignmentID] = item
	return nil
}

func (s *Store) GetByService(_ context.Context, serviceID string) (entities.Coefficient, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.coefficients[strings.TrimSpace(serviceID)]
	return item, ok, nil
}

func (s *Store) SeedCoefficient(item entities.Coefficient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coefficients[item.ServiceID] = item
}

func (s *Store) OfferExists(_ context.Context, name string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.offers[name]
	return id, ok, nil
}

func (s *Store) CreateOffer(_ context.Context, name, targetURL, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.offers[name]; exists {
		return "", errors.New("offer already exists")
	}
	id := fmt.Sprintf("offer-%d", len(s.offers)+1)
	s.offers[name] = id
	s.offerTargets[id] = targetURL
	return id, nil
}

func (s *Store) AssignOffer(_ context.Context, campaignID, offerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailAssignFor[campaignID] {
		return errors.New("assignment rejected by platform")
	}
	s.assignCalls = append(s.assignCalls, campaignID+":"+offerID)
	return nil
}

func (s *Store) CampaignStats(_ context.Context, campaignID string) (ports.CampaignStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.FailStatsFor[campaignID] {
		return ports.CampaignStats{}, errors.New("stats endpoint unavailable")
	}
	return s.stats[campaignID], nil
}

func (s *Store) SeedStats(campaignID string, stats ports.CampaignStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats[campaignID] = stats
}

// OfferCount reports how many distinct offers exist; used by idempotency tests.
func (s *Store) OfferCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.offers)
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
