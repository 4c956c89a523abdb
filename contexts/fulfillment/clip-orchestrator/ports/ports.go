package ports

import (
	"context"
	"time"

	"boostpanel/contexts/fulfillment/clip-orchestrator/domain/entities"
)

// AutomationDriver is the opaque browser-automation collaborator. It carries
// its own internal retry/timeout behavior; the orchestrator only adds an
// outer attempt budget and a per-attempt deadline.
type AutomationDriver interface {
	CreateClip(ctx context.Context, originalURL, identity, title string) (string, error)
}

type AccountRepository interface {
	// SelectAvailable returns the first ACTIVE account with remaining daily
	// quota, applying the lazy daily rollover before the check.
	SelectAvailable(ctx context.Context, today time.Time) (entities.Account, bool, error)
	// RecordUsage bumps daily and lifetime counters in its own short
	// transaction so usage is never lost to a failing caller.
	RecordUsage(ctx context.Context, accountID string, today time.Time) error
	// ResetDailyCounters zeroes daily counts for accounts whose last clip
	// date is before today; returns how many rows were touched.
	ResetDailyCounters(ctx context.Context, today time.Time) (int, error)
}

type ProcessingRepository interface {
	CreateProcessing(ctx context.Context, item entities.Processing) error
	GetByOrder(ctx context.Context, orderID string) (entities.Processing, error)
	UpdateProcessing(ctx context.Context, item entities.Processing) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
