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

// DeliveryControlUseCase is the operator lever over an active order's
// traffic. Pausing stops the campaign assignments without touching the order
// status; resuming re-activates them.
type DeliveryControlUseCase struct {
	Orders      ports.OrderRepository
	Distributor ports.CampaignDistributor
	Logger      *slog.Logger
}

func (uc DeliveryControlUseCase) PauseDelivery(ctx context.Context, orderID string) error {
	return uc.toggle(ctx, orderID, "order_delivery_paused", uc.Distributor.StopAll)
}

func (uc DeliveryControlUseCase) ResumeDelivery(ctx context.Context, orderID string) error {
	return uc.toggle(ctx, orderID, "order_delivery_resumed", uc.Distributor.Resume)
}

func (uc DeliveryControlUseCase) toggle(
	ctx context.Context,
	orderID, event string,
	action func(context.Context, string) error,
) error {
	order, err := uc.Orders.GetOrder(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return err
	}
	if order.Status != entities.OrderStatusActive {
		return domainerrors.ErrInvalidStateTransition
	}
	if err := action(ctx, order.OrderID); err != nil {
		return err
	}
	application.ResolveLogger(uc.Logger).Info("delivery control applied",
		"event", event,
		"module", "fulfillment/order-pipeline",
		"layer", "application",
		"order_id", order.OrderID,
	)
	return nil
}
