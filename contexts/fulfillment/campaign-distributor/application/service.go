package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"boostpanel/contexts/fulfillment/campaign-distributor/domain/entities"
	domainerrors "boostpanel/contexts/fulfillment/campaign-distributor/domain/errors"
	"boostpanel/contexts/fulfillment/campaign-distributor/ports"
)

type DistributeInput struct {
	OrderID     string
	ServiceID   string
	Quantity    int
	TargetURL   string
	ClipCreated bool
	Geo         string
}

type DistributeResult struct {
	OfferID     string
	Coefficient decimal.Decimal
	TotalClicks int
	CampaignIDs []string
}

type AggregateStatus string

const (
	AggregateStatusActive  AggregateStatus = "ACTIVE"
	AggregateStatusPartial AggregateStatus = "PARTIAL"
)

type AggregatedStats struct {
	Clicks         int64
	Conversions    int64
	Cost           decimal.Decimal
	Revenue        decimal.Decimal
	ViewsDelivered int64
	CampaignCount  int
	Status         AggregateStatus
}

// Service spreads one order's required clicks across the fixed campaign pool
// and aggregates delivery stats back out of it.
type Service struct {
	Fixed       ports.FixedCampaignRepository
	Assignments ports.AssignmentRepository
	Platform    ports.TrafficPlatform
	Resolver    CoefficientResolver
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Logger      *slog.Logger
}

func (s Service) Distribute(ctx context.Context, input DistributeInput) (DistributeResult, error) {
	logger := ResolveLogger(s.Logger)
	if strings.TrimSpace(input.OrderID) == "" || input.Quantity <= 0 || strings.TrimSpace(input.TargetURL) == "" {
		return DistributeResult{}, domainerrors.ErrInvalidDistribution
	}

	pool, err := s.Fixed.ListActive(ctx)
	if err != nil {
		return DistributeResult{}, fmt.Errorf("list fixed campaigns: %w", err)
	}
	if len(pool) < 2 || len(pool) > 3 {
		return DistributeResult{}, domainerrors.ErrCampaignPoolSize
	}
	sort.SliceStable(pool, func(i, j int) bool { return pool[i].Priority < pool[j].Priority })

	coefficient := s.Resolver.Resolve(ctx, input.ServiceID, input.ClipCreated)
	total := entities.RequiredClicks(input.Quantity, coefficient)
	parts := entities.SplitClicks(total, len(pool))

	offerID, err := s.createOrReuseOffer(ctx, input)
	if err != nil {
		return DistributeResult{}, fmt.Errorf("%w: %v", domainerrors.ErrPlatformUnavailable, err)
	}

	// Redelivery after a partial failure must not duplicate rows: campaigns
	// that already carry an assignment for this order are reused as-is.
	existing, err := s.Assignments.ListByOrder(ctx, input.OrderID)
	if err != nil {
		return DistributeResult{}, err
	}
	assignedCampaigns := make(map[string]bool, len(existing))
	for _, assignment := range existing {
		assignedCampaigns[assignment.CampaignID] = true
	}

	now := s.Clock.Now().UTC()
	assigned := make([]string, 0, len(pool))
	for i, campaign := range pool {
		if assignedCampaigns[campaign.CampaignID] {
			assigned = append(assigned, campaign.CampaignID)
			continue
		}
		if err := s.Platform.AssignOffer(ctx, campaign.CampaignID, offerID); err != nil {
			logger.Error("offer assignment failed",
				"event", "offer_assignment_failed",
				"module", "fulfillment/campaign-distributor",
				"layer", "application",
				"order_id", input.OrderID,
				"campaign_id", campaign.CampaignID,
				"error", err.Error(),
			)
			return DistributeResult{}, fmt.Errorf("%w: campaign %s: %v",
				domainerrors.ErrDistributionIncomplete, campaign.CampaignID, err)
		}

		assignmentID, err := s.IDGen.NewID(ctx)
		if err != nil {
			return DistributeResult{}, err
		}
		assignment := entities.Assignment{
			AssignmentID:   assignmentID,
			OrderID:        input.OrderID,
			CampaignID:     campaign.CampaignID,
			OfferID:        offerID,
			TargetURL:      strings.TrimSpace(input.TargetURL),
			Coefficient:    coefficient,
			ClicksRequired: parts[i],
			Status:         entities.AssignmentStatusActive,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.Assignments.CreateAssignment(ctx, assignment); err != nil {
			return DistributeResult{}, err
		}
		assigned = append(assigned, campaign.CampaignID)
	}

	logger.Info("order distributed across fixed campaigns",
		"event", "order_distributed",
		"module", "fulfillment/campaign-distributor",
		"layer", "application",
		"order_id", input.OrderID,
		"campaign_count", len(assigned),
		"total_clicks", total,
		"coefficient", coefficient.String(),
	)
	return DistributeResult{
		OfferID:     offerID,
		Coefficient: coefficient,
		TotalClicks: total,
		CampaignIDs: assigned,
	}, nil
}

// AggregateStats sums delivery numbers across the order's active assignments.
// A single unreachable campaign degrades the result to PARTIAL instead of
// failing the whole poll.
func (s Service) AggregateStats(ctx context.Context, orderID string) (AggregatedStats, error) {
	logger := ResolveLogger(s.Logger)
	assignments, err := s.Assignments.ListByOrder(ctx, orderID)
	if err != nil {
		return AggregatedStats{}, err
	}

	stats := AggregatedStats{
		Cost:    decimal.Zero,
		Revenue: decimal.Zero,
	}
	reachable := 0
	var coefficient decimal.Decimal
	for _, assignment := range assignments {
		if assignment.Status != entities.AssignmentStatusActive {
			continue
		}
		stats.CampaignCount++
		coefficient = assignment.Coefficient

		snapshot, err := s.Platform.CampaignStats(ctx, assignment.CampaignID)
		if err != nil {
			logger.Warn("campaign stats fetch failed",
				"event", "campaign_stats_failed",
				"module", "fulfillment/campaign-distributor",
				"layer", "application",
				"order_id", orderID,
				"campaign_id", assignment.CampaignID,
				"error", err.Error(),
			)
			continue
		}
		reachable++
		stats.Clicks += snapshot.Clicks
		stats.Conversions += snapshot.Conversions
		stats.Cost = stats.Cost.Add(snapshot.Cost)
		stats.Revenue = stats.Revenue.Add(snapshot.Revenue)

		if snapshot.Clicks != int64(assignment.ClicksDelivered) {
			if err := s.Assignments.UpdateDelivered(ctx, assignment.AssignmentID, int(snapshot.Clicks), s.Clock.Now().UTC()); err != nil {
				logger.Warn("assignment delivered update failed",
					"event", "assignment_update_failed",
					"module", "fulfillment/campaign-distributor",
					"layer", "application",
					"assignment_id", assignment.AssignmentID,
					"error", err.Error(),
				)
			}
		}
	}

	if coefficient.Cmp(decimal.Zero) > 0 {
		stats.ViewsDelivered = decimal.NewFromInt(stats.Clicks).Div(coefficient).Floor().IntPart()
	}
	stats.Status = AggregateStatusActive
	if stats.CampaignCount == 0 || reachable != stats.CampaignCount {
		stats.Status = AggregateStatusPartial
	}
	return stats, nil
}

// StopAll flips every active assignment for the order to STOPPED. Idempotent:
// already-stopped assignments are untouched.
func (s Service) StopAll(ctx context.Context, orderID string) error {
	return s.setStatus(ctx, orderID, entities.AssignmentStatusActive, entities.AssignmentStatusStopped)
}

// Resume re-activates stopped assignments. Idempotent like StopAll.
func (s Service) Resume(ctx context.Context, orderID string) error {
	return s.setStatus(ctx, orderID, entities.AssignmentStatusStopped, entities.AssignmentStatusActive)
}

func (s Service) setStatus(ctx context.Context, orderID string, from, to entities.AssignmentStatus) error {
	assignments, err := s.Assignments.ListByOrder(ctx, orderID)
	if err != nil {
		return err
	}
	now := s.Clock.Now().UTC()
	for _, assignment := range assignments {
		if assignment.Status != from {
			continue
		}
		if err := s.Assignments.UpdateStatus(ctx, assignment.AssignmentID, to, now); err != nil {
			return err
		}
	}
	ResolveLogger(s.Logger).Info("assignment statuses updated",
		"event", "assignments_status_changed",
		"module", "fulfillment/campaign-distributor",
		"layer", "application",
		"order_id", orderID,
		"status", string(to),
	)
	return nil
}

func (s Service) createOrReuseOffer(ctx context.Context, input DistributeInput) (string, error) {
	name := OfferName(input.OrderID, input.ClipCreated)
	if id, exists, err := s.Platform.OfferExists(ctx, name); err != nil {
		return "", err
	} else if exists {
		return id, nil
	}
	return s.Platform.CreateOffer(ctx, name, strings.TrimSpace(input.TargetURL), input.Geo)
}

// OfferName is deterministic per order and clip flag so a re-run of
// distribution reuses the offer instead of creating a duplicate.
func OfferName(orderID string, clipCreated bool) string {
	suffix := "DIRECT"
	if clipCreated {
		suffix = "CLIP"
	}
	return fmt.Sprintf("ORDER_%s_%s", orderID, suffix)
}
