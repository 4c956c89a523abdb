package commands

import (
	"context"
	"time"

	"boostpanel/contexts/fulfillment/order-pipeline/ports"
	"boostpanel/internal/shared/events"
)

// Pipeline phase topics. Each outbox envelope addresses exactly one phase;
// consumers are idempotent because the relay delivers at least once.
const (
	TopicOrderProcess    = "order.process"
	TopicOrderAnalyze    = "order.analyze"
	TopicOrderClip       = "order.clip"
	TopicOrderDistribute = "order.distribute"
)

const sourceService = "fulfillment/order-pipeline"

func enqueuePhase(
	ctx context.Context,
	outboxRepo ports.OutboxRepository,
	idGen ports.IDGenerator,
	topic, orderID, userID string,
	occurredAt time.Time,
) error {
	eventID, err := idGen.NewID(ctx)
	if err != nil {
		return err
	}
	return outboxRepo.AppendOutbox(ctx, events.Envelope{
		EventID:       eventID,
		EventType:     topic,
		SourceService: sourceService,
		OccurredAtUTC: occurredAt.UTC(),
		OrderID:       orderID,
		UserID:        userID,
	})
}
