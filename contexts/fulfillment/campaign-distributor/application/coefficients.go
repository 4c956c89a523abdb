package application

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"

	"boostpanel/contexts/fulfillment/campaign-distributor/domain/entities"
	"boostpanel/contexts/fulfillment/campaign-distributor/ports"
)

// Default click-per-view multipliers when no per-service override applies.
// Direct-link traffic converts worse than clip traffic, hence the higher value.
var (
	DefaultWithClip    = decimal.RequireFromString("3.0")
	DefaultWithoutClip = decimal.RequireFromString("4.0")
)

// CoefficientResolver picks the multiplier for a service/clip combination.
// A per-service override wins only when the stored value is in (0, 10].
type CoefficientResolver struct {
	Coefficients ports.CoefficientRepository
	Logger       *slog.Logger
}

func (r CoefficientResolver) Resolve(ctx context.Context, serviceID string, clipCreated bool) decimal.Decimal {
	fallback := DefaultWithoutClip
	if clipCreated {
		fallback = DefaultWithClip
	}
	if r.Coefficients == nil {
		return fallback
	}

	override, found, err := r.Coefficients.GetByService(ctx, serviceID)
	if err != nil {
		ResolveLogger(r.Logger).Warn("coefficient lookup failed, using default",
			"event", "coefficient_lookup_failed",
			"module", "fulfillment/campaign-distributor",
			"layer", "application",
			"service_id", serviceID,
			"error", err.Error(),
		)
		return fallback
	}
	if !found {
		return fallback
	}

	value := override.WithoutClip
	if clipCreated {
		value = override.WithClip
	}
	if !entities.Usable(value) {
		return fallback
	}
	return value
}
