package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	application "boostpanel/contexts/fulfillment/order-pipeline/application"
	"boostpanel/contexts/fulfillment/order-pipeline/ports"
	"boostpanel/internal/shared/events"
)

// OutboxRelay publishes pending pipeline work items onto the process bus.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.Publisher
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

func (r OutboxRelay) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("outbox list failed",
			"event", "order_outbox_list_failed",
			"module", "fulfillment/order-pipeline",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}

	for _, row := range pending {
		var event events.Envelope
		if err := json.Unmarshal(row.Payload, &event); err != nil {
			logger.Error("outbox decode failed",
				"event", "order_outbox_decode_failed",
				"module", "fulfillment/order-pipeline",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			if markErr := r.Outbox.MarkOutboxFailed(ctx, row.OutboxID, err.Error()); markErr != nil {
				return markErr
			}
			continue
		}

		topic := event.EventType
		if topic == "" {
			topic = row.EventType
		}

		if err := r.Publisher.Publish(ctx, topic, event); err != nil {
			logger.Error("outbox publish failed",
				"event", "order_outbox_publish_failed",
				"module", "fulfillment/order-pipeline",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"topic", topic,
				"error", err.Error(),
			)
			return err
		}

		if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, now); err != nil {
			logger.Error("outbox mark failed",
				"event", "order_outbox_mark_failed",
				"module", "fulfillment/order-pipeline",
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return err
		}
	}
	return nil
}
