package entities

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the pipeline's own vocabulary. PublicStatus is what external
// callers see; keep the two separate and map explicitly.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusActive     OrderStatus = "ACTIVE"
	OrderStatusHolding    OrderStatus = "HOLDING"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

type PublicStatus string

const (
	PublicStatusPending    PublicStatus = "Pending"
	PublicStatusInProgress PublicStatus = "In progress"
	PublicStatusCompleted  PublicStatus = "Completed"
	PublicStatusPartial    PublicStatus = "Partial"
	PublicStatusCanceled   PublicStatus = "Canceled"
)

// PublicStatusFor is the total mapping from internal to public vocabulary.
// HOLDING deliberately reads as "In progress": recovery is an operator
// concern, not a customer-facing state. A cancelled order that delivered
// some but not all of its quantity reads as "Partial".
func PublicStatusFor(status OrderStatus, quantity, remains int) PublicStatus {
	switch status {
	case OrderStatusPending:
		return PublicStatusPending
	case OrderStatusProcessing, OrderStatusActive, OrderStatusHolding:
		return PublicStatusInProgress
	case OrderStatusCompleted:
		return PublicStatusCompleted
	case OrderStatusCancelled:
		if remains > 0 && remains < quantity {
			return PublicStatusPartial
		}
		return PublicStatusCanceled
	default:
		return PublicStatusPending
	}
}

// Order is one user's view-delivery purchase.
type Order struct {
	OrderID      string
	UserID       string
	ServiceID    string
	Link         string
	VideoID      string
	Quantity     int
	Charge       decimal.Decimal
	StartCount   int64
	Remains      int
	Status       OrderStatus
	ErrorMessage string
	Coefficient  decimal.Decimal
	ResumeCount  int
	Version      int64
	ActivatedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Service is the purchasable catalog entry orders are priced against.
type Service struct {
	ServiceID    string
	Name         string
	PricePer1000 decimal.Decimal
	MinQuantity  int
	MaxQuantity  int
	Geo          string
	Active       bool
}

var allowedTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusHolding, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusActive, OrderStatusHolding, OrderStatusCancelled},
	OrderStatusActive:     {OrderStatusCompleted, OrderStatusHolding, OrderStatusCancelled},
	OrderStatusHolding:    {OrderStatusPending, OrderStatusCancelled},
	OrderStatusCompleted:  {},
	OrderStatusCancelled:  {},
}

// CanTransition validates a state-machine edge.
func CanTransition(from, to OrderStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the status permits no further lifecycle.
func (o Order) Terminal() bool {
	return o.Status == OrderStatusCompleted || o.Status == OrderStatusCancelled
}

// ChargeScale is the money precision used for charges and refunds.
const ChargeScale = 4

// ComputeCharge prices an order: price_per_1000 * quantity / 1000, half-up.
func ComputeCharge(pricePer1000 decimal.Decimal, quantity int) decimal.Decimal {
	return pricePer1000.
		Mul(decimal.NewFromInt(int64(quantity))).
		Div(decimal.NewFromInt(1000)).
		Round(ChargeScale)
}

// RefundAmount computes the proportional refund on cancellation. Full charge
// back when delivery never started; nothing back when fully delivered.
func RefundAmount(charge decimal.Decimal, quantity, remains int, activated bool) decimal.Decimal {
	if remains <= 0 {
		return decimal.Zero
	}
	if !activated || quantity <= 0 {
		return charge
	}
	if remains >= quantity {
		return charge
	}
	ratio := decimal.NewFromInt(int64(remains)).Div(decimal.NewFromInt(int64(quantity)))
	return charge.Mul(ratio).Round(ChargeScale)
}

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)[?&]v=([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`(?i)youtu\.be/([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`(?i)/shorts/([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`(?i)/live/([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`(?i)/embed/([A-Za-z0-9_-]{11})`),
}

// ExtractVideoID pulls the platform asset identifier out of an order link.
// Empty result means the link is unusable and the pipeline must not proceed.
func ExtractVideoID(link string) string {
	trimmed := strings.TrimSpace(link)
	for _, pattern := range videoIDPatterns {
		if match := pattern.FindStringSubmatch(trimmed); len(match) == 2 {
			return match[1]
		}
	}
	return ""
}
