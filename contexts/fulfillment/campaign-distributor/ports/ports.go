package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"boostpanel/contexts/fulfillment/campaign-distributor/domain/entities"
)

// CampaignStats is the raw per-campaign snapshot from the traffic platform.
type CampaignStats struct {
	Clicks      int64
	Conversions int64
	Cost        decimal.Decimal
	Revenue     decimal.Decimal
}

// TrafficPlatform is the external ad-tracking API surface the distributor
// consumes. Offer creation is keyed by name so re-runs reuse instead of
// duplicating.
type TrafficPlatform interface {
	OfferExists(ctx context.Context, name string) (string, bool, error)
	CreateOffer(ctx context.Context, name, targetURL, geo string) (string, error)
	AssignOffer(ctx context.Context, campaignID, offerID string) error
	CampaignStats(ctx context.Context, campaignID string) (CampaignStats, error)
}

type FixedCampaignRepository interface {
	ListActive(ctx context.Context) ([]entities.FixedCampaign, error)
}

type AssignmentRepository interface {
	CreateAssignment(ctx context.Context, assignment entities.Assignment) error
	ListByOrder(ctx context.Context, orderID string) ([]entities.Assignment, error)
	UpdateStatus(ctx context.Context, assignmentID string, status entities.AssignmentStatus, updatedAt time.Time) error
	UpdateDelivered(ctx context.Context, assignmentID string, clicksDelivered int, updatedAt time.Time) error
}

type CoefficientRepository interface {
	// GetByService returns (coefficient, found, error); absence is not an error.
	GetByService(ctx context.Context, serviceID string) (entities.Coefficient, bool, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
