package workers

import (
	"context"
	"log/slog"

	application "boostpanel/contexts/fulfillment/order-pipeline/application"
	"boostpanel/contexts/fulfillment/order-pipeline/domain/entities"
	"boostpanel/contexts/fulfillment/order-pipeline/ports"
)

// ProgressMonitor sweeps ACTIVE orders and reconciles delivery progress from
// the distributor's aggregate stats. Remains is recomputed from absolutes
// every pass, never decremented, so a missed pass cannot corrupt it.
type ProgressMonitor struct {
	Orders      ports.OrderRepository
	Distributor ports.CampaignDistributor
	Clock       ports.Clock
	BatchSize   int
	Logger      *slog.Logger
}

func (m ProgressMonitor) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(m.Logger)
	limit := m.BatchSize
	if limit <= 0 {
		limit = 100
	}

	active, err := m.Orders.ListOrdersByStatus(ctx, entities.OrderStatusActive, limit)
	if err != nil {
		logger.Error("active order sweep failed",
			"event", "order_monitor_list_failed",
			"module", "fulfillment/order-pipeline",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	for _, order := range active {
		if err := m.reconcile(ctx, order); err != nil {
			logger.Error("order reconcile failed",
				"event", "order_monitor_reconcile_failed",
				"module", "fulfillment/order-pipeline",
				"layer", "worker",
				"order_id", order.OrderID,
				"error", err.Error(),
			)
		}
	}
	return nil
}

func (m ProgressMonitor) reconcile(ctx context.Context, order entities.Order) error {
	logger := application.ResolveLogger(m.Logger)

	stats, err := m.Distributor.Stats(ctx, order.OrderID)
	if err != nil {
		return err
	}

	remains := order.Quantity - int(stats.Conversions)
	if remains < 0 {
		remains = 0
	}
	// A degraded aggregate undercounts conversions, which would push remains
	// back up and inflate a later refund. Partial polls may only lower it.
	if stats.Partial && remains > order.Remains {
		remains = order.Remains
	}

	completed := stats.Conversions >= int64(order.Quantity)
	if !completed && remains == order.Remains {
		return nil
	}

	expected := order.Version
	order.Remains = remains
	if completed {
		order.Status = entities.OrderStatusCompleted
		order.Remains = 0
	}
	order.Version++
	order.UpdatedAt = m.Clock.Now().UTC()
	if err := m.Orders.UpdateOrder(ctx, order, expected); err != nil {
		return err
	}

	if completed {
		// Traffic stop rides behind the completion write; a failure here is
		// retried by the next sweep finding stray active assignments.
		if err := m.Distributor.StopAll(ctx, order.OrderID); err != nil {
			logger.Warn("assignment stop failed after completion",
				"event", "order_monitor_stop_failed",
				"module", "fulfillment/order-pipeline",
				"layer", "worker",
				"order_id", order.OrderID,
				"error", err.Error(),
			)
		}
		logger.Info("order completed",
			"event", "order_completed",
			"module", "fulfillment/order-pipeline",
			"layer", "worker",
			"order_id", order.OrderID,
			"conversions", stats.Conversions,
			"views_delivered", stats.ViewsDelivered,
		)
	}
	return nil
}
