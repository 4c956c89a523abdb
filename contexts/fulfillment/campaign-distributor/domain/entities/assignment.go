package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

type AssignmentStatus string

const (
	AssignmentStatusActive  AssignmentStatus = "ACTIVE"
	AssignmentStatusStopped AssignmentStatus = "STOPPED"
)

// FixedCampaign is one pre-provisioned slot in the shared traffic pool.
// Membership is managed outside the core; we only read it.
type FixedCampaign struct {
	CampaignID    string
	TrafficSource string
	Priority      int
	Active        bool
	Geo           string
}

// Assignment links one order to one fixed campaign. One row per fixed
// campaign per distributed order; rows are never deleted.
type Assignment struct {
	AssignmentID    string
	OrderID         string
	CampaignID      string
	OfferID         string
	TargetURL       string
	Coefficient     decimal.Decimal
	ClicksRequired  int
	ClicksDelivered int
	Status          AssignmentStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Coefficient is the per-service click-per-view override pair.
type Coefficient struct {
	ServiceID   string
	WithClip    decimal.Decimal
	WithoutClip decimal.Decimal
}

// Usable reports whether an override value may replace the default.
// Out-of-range rows fall back rather than poisoning distribution sizing.
func Usable(value decimal.Decimal) bool {
	return value.Cmp(decimal.Zero) > 0 && value.Cmp(decimal.NewFromInt(10)) <= 0
}

// SplitClicks spreads total across n campaigns, remainder on the first.
func SplitClicks(total, n int) []int {
	if n <= 0 {
		return nil
	}
	per := total / n
	remainder := total % n
	parts := make([]int, n)
	for i := range parts {
		parts[i] = per
		if i == 0 {
			parts[i] += remainder
		}
	}
	return parts
}

// RequiredClicks converts a delivery quantity into platform clicks:
// ceil(quantity * coefficient).
func RequiredClicks(quantity int, coefficient decimal.Decimal) int {
	return int(decimal.NewFromInt(int64(quantity)).Mul(coefficient).Ceil().IntPart())
}
