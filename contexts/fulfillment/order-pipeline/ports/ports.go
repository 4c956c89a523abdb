package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"boostpanel/contexts/fulfillment/order-pipeline/domain/entities"
	"boostpanel/internal/shared/events"
	"boostpanel/internal/shared/outbox"
)

// OrderRepository persists order state. UpdateOrder performs a versioned
// write and fails with ErrConcurrencyConflict when the stored version moved.
type OrderRepository interface {
	CreateOrder(ctx context.Context, order entities.Order) error
	GetOrder(ctx context.Context, orderID string) (entities.Order, error)
	ListOrdersByUser(ctx context.Context, userID string, limit, offset int) ([]entities.Order, error)
	ListOrdersByStatus(ctx context.Context, status entities.OrderStatus, limit int) ([]entities.Order, error)
	UpdateOrder(ctx context.Context, order entities.Order, expectedVersion int64) error
}

type ServiceRepository interface {
	GetService(ctx context.Context, serviceID string) (entities.Service, error)
	ListServices(ctx context.Context) ([]entities.Service, error)
}

// VideoMetadata looks up public facts about a video on the hosting platform.
type VideoMetadata interface {
	BaselineViews(ctx context.Context, videoID string) (int64, error)
	VideoExists(ctx context.Context, videoID string) (bool, error)
}

// Ledger is the pipeline's view of the balance ledger. Implemented by a thin
// adapter over the finance-core module so the contexts stay decoupled.
type Ledger interface {
	CheckAndDeduct(ctx context.Context, userID string, amount decimal.Decimal, orderID string) error
	Refund(ctx context.Context, userID string, amount decimal.Decimal, orderID string) error
}

// ClipOutcome is what the pipeline needs back from clip orchestration. The
// orchestrator never fails the pipeline; a miss is carried in the value.
type ClipOutcome struct {
	Created      bool
	ClipURL      string
	ErrorMessage string
}

type ClipOrchestrator interface {
	PrepareClip(ctx context.Context, orderID, videoURL string) (ClipOutcome, error)
	Outcome(ctx context.Context, orderID string) (ClipOutcome, bool, error)
}

// DistributionOutcome reports what the distributor committed for an order.
type DistributionOutcome struct {
	Coefficient decimal.Decimal
	TotalClicks int
}

// DeliveryStats is the distributor's aggregate for one order.
type DeliveryStats struct {
	Clicks         int64
	Conversions    int64
	ViewsDelivered int64
	Partial        bool
}

type CampaignDistributor interface {
	Distribute(ctx context.Context, orderID, serviceID, targetURL string, quantity int, clipCreated bool, geo string) (DistributionOutcome, error)
	Stats(ctx context.Context, orderID string) (DeliveryStats, error)
	StopAll(ctx context.Context, orderID string) error
	Resume(ctx context.Context, orderID string) error
}

// OutboxRepository is the transactional work queue feeding the pipeline.
type OutboxRepository interface {
	AppendOutbox(ctx context.Context, envelope events.Envelope) error
	ListPendingOutbox(ctx context.Context, limit int) ([]outbox.Record, error)
	MarkOutboxPublished(ctx context.Context, recordID string, publishedAt time.Time) error
	MarkOutboxFailed(ctx context.Context, recordID string, reason string) error
}

type Publisher interface {
	Publish(ctx context.Context, topic string, envelope events.Envelope) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
