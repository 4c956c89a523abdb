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

// MaxResumes bounds how often an operator can re-drive a HOLDING order.
const MaxResumes = 3

type ResumeOrderUseCase struct {
	Orders      ports.OrderRepository
	Outbox      ports.OutboxRepository
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

// Execute moves a HOLDING order back to PENDING and re-enqueues processing.
func (uc ResumeOrderUseCase) Execute(ctx context.Context, orderID string) (entities.Order, error) {
	order, err := uc.Orders.GetOrder(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return entities.Order{}, err
	}
	if order.Status != entities.OrderStatusHolding {
		return entities.Order{}, domainerrors.ErrInvalidStateTransition
	}
	if order.ResumeCount >= MaxResumes {
		return entities.Order{}, domainerrors.ErrResumeBudgetExceeded
	}

	expected := order.Version
	order.Status = entities.OrderStatusPending
	order.ErrorMessage = ""
	order.ResumeCount++
	order.Version++
	order.UpdatedAt = uc.Clock.Now().UTC()
	if err := uc.Orders.UpdateOrder(ctx, order, expected); err != nil {
		return entities.Order{}, err
	}

	if err := enqueuePhase(ctx, uc.Outbox, uc.IDGenerator, TopicOrderProcess, order.OrderID, order.UserID, uc.Clock.Now()); err != nil {
		return entities.Order{}, err
	}

	application.ResolveLogger(uc.Logger).Info("order resumed",
		"event", "order_resumed",
		"module", "fulfillment/order-pipeline",
		"layer", "application",
		"order_id", order.OrderID,
		"resume_count", order.ResumeCount,
	)
	return order, nil
}
