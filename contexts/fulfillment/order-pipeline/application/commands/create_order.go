package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	application "boostpanel/contexts/fulfillment/order-pipeline/application"
	"boostpanel/contexts/fulfillment/order-pipeline/domain/entities"
	domainerrors "boostpanel/contexts/fulfillment/order-pipeline/domain/errors"
	"boostpanel/contexts/fulfillment/order-pipeline/ports"
)

type CreateOrderCommand struct {
	UserID    string
	ServiceID string
	Link      string
	Quantity  int
}

type CreateOrderUseCase struct {
	Orders      ports.OrderRepository
	Services    ports.ServiceRepository
	Ledger      ports.Ledger
	Outbox      ports.OutboxRepository
	Clock       ports.Clock
	IDGenerator ports.IDGenerator
	Logger      *slog.Logger
}

// Execute charges the user and persists a PENDING order. The charge happens
// first so an unfunded order row never exists; if the row write fails after
// the charge, the deduction is compensated with a refund.
func (uc CreateOrderUseCase) Execute(ctx context.Context, cmd CreateOrderCommand) (entities.Order, error) {
	logger := application.ResolveLogger(uc.Logger)

	userID := strings.TrimSpace(cmd.UserID)
	link := strings.TrimSpace(cmd.Link)
	if userID == "" || link == "" || cmd.Quantity <= 0 {
		return entities.Order{}, domainerrors.ErrInvalidOrderInput
	}

	service, err := uc.Services.GetService(ctx, strings.TrimSpace(cmd.ServiceID))
	if err != nil {
		return entities.Order{}, err
	}
	if !service.Active {
		return entities.Order{}, domainerrors.ErrServiceNotFound
	}
	if cmd.Quantity < service.MinQuantity || cmd.Quantity > service.MaxQuantity {
		return entities.Order{}, fmt.Errorf("%w: quantity %d outside [%d, %d]",
			domainerrors.ErrInvalidOrderInput, cmd.Quantity, service.MinQuantity, service.MaxQuantity)
	}

	orderID, err := uc.IDGenerator.NewID(ctx)
	if err != nil {
		return entities.Order{}, err
	}

	charge := entities.ComputeCharge(service.PricePer1000, cmd.Quantity)
	if err := uc.Ledger.CheckAndDeduct(ctx, userID, charge, orderID); err != nil {
		if errors.Is(err, domainerrors.ErrInsufficientBalance) {
			return entities.Order{}, domainerrors.ErrInsufficientBalance
		}
		return entities.Order{}, fmt.Errorf("deduct charge: %w", err)
	}

	now := uc.Clock.Now().UTC()
	order := entities.Order{
		OrderID:   orderID,
		UserID:    userID,
		ServiceID: service.ServiceID,
		Link:      link,
		Quantity:  cmd.Quantity,
		Charge:    charge,
		Remains:   cmd.Quantity,
		Status:    entities.OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.Orders.CreateOrder(ctx, order); err != nil {
		if refundErr := uc.Ledger.Refund(ctx, userID, charge, orderID); refundErr != nil {
			logger.Error("order intake compensation failed",
				"event", "order_intake_compensation_failed",
				"module", "fulfillment/order-pipeline",
				"layer", "application",
				"order_id", orderID,
				"user_id", userID,
				"error", refundErr.Error(),
			)
		}
		return entities.Order{}, fmt.Errorf("persist order: %w", err)
	}

	if err := enqueuePhase(ctx, uc.Outbox, uc.IDGenerator, TopicOrderProcess, orderID, userID, now); err != nil {
		logger.Error("order intake enqueue failed",
			"event", "order_intake_enqueue_failed",
			"module", "fulfillment/order-pipeline",
			"layer", "application",
			"order_id", orderID,
			"error", err.Error(),
		)
		return order, fmt.Errorf("enqueue processing: %w", err)
	}

	logger.Info("order created",
		"event", "order_created",
		"module", "fulfillment/order-pipeline",
		"layer", "application",
		"order_id", orderID,
		"user_id", userID,
		"service_id", service.ServiceID,
		"quantity", cmd.Quantity,
		"charge", charge.String(),
	)
	return order, nil
}
