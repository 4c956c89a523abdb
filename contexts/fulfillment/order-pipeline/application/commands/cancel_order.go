package commands

import (
	"context"
	"log/slog"
	"strings"

	application "boostpanel/contexts/fulfillment/order-pipeline/application"
	"boostpanel/contexts/fulfillment/order-pipeline/domain/entities"
	domainerrors "boostpanel/contexts/fulfillment/order-pipeline/domain/errors"
	"boostpanel/contexts/fulfillment/order-pipeline/ports"
)

type CancelOrderUseCase struct {
	Orders      ports.OrderRepository
	Ledger      ports.Ledger
	Distributor ports.CampaignDistributor
	Clock       ports.Clock
	Logger      *slog.Logger
}

type CancelOrderResult struct {
	Order    entities.Order
	Refunded bool
}

// Execute cancels any non-terminal order. Traffic stop and refund are best
// effort; the cancellation itself never fails because of them.
func (uc CancelOrderUseCase) Execute(ctx context.Context, orderID string) (CancelOrderResult, error) {
	logger := application.ResolveLogger(uc.Logger)

	order, err := uc.Orders.GetOrder(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return CancelOrderResult{}, err
	}
	if order.Terminal() {
		return CancelOrderResult{}, domainerrors.ErrOrderNotCancellable
	}

	if err := uc.Distributor.StopAll(ctx, order.OrderID); err != nil {
		logger.Warn("assignment stop failed during cancel",
			"event", "order_cancel_stop_failed",
			"module", "fulfillment/order-pipeline",
			"layer", "application",
			"order_id", order.OrderID,
			"error", err.Error(),
		)
	}

	refund := entities.RefundAmount(order.Charge, order.Quantity, order.Remains, order.ActivatedAt != nil)
	refunded := false
	if refund.IsPositive() {
		if err := uc.Ledger.Refund(ctx, order.UserID, refund, order.OrderID); err != nil {
			logger.Error("refund failed during cancel",
				"event", "order_cancel_refund_failed",
				"module", "fulfillment/order-pipeline",
				"layer", "application",
				"order_id", order.OrderID,
				"user_id", order.UserID,
				"amount", refund.String(),
				"error", err.Error(),
			)
		} else {
			refunded = true
		}
	}

	expected := order.Version
	order.Status = entities.OrderStatusCancelled
	order.Version++
	order.UpdatedAt = uc.Clock.Now().UTC()
	if err := uc.Orders.UpdateOrder(ctx, order, expected); err != nil {
		return CancelOrderResult{}, err
	}

	logger.Info("order cancelled",
		"event", "order_cancelled",
		"module", "fulfillment/order-pipeline",
		"layer", "application",
		"order_id", order.OrderID,
		"refund", refund.String(),
		"refunded", refunded,
	)
	return CancelOrderResult{Order: order, Refunded: refunded}, nil
}
