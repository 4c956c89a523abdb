package workers

import (
	"context"
	"fmt"
	"log/slog"

	application "boostpanel/contexts/fulfillment/order-pipeline/application"
	"boostpanel/contexts/fulfillment/order-pipeline/application/commands"
	"boostpanel/internal/shared/events"
)

// Subscriber matches the process bus contract used by the consumer.
type Subscriber interface {
	Subscribe(ctx context.Context, topic, consumerGroup string, handler func(context.Context, events.Envelope) error) error
}

// PipelineConsumer binds the phase topics to the process use case. Every
// handler is idempotent at phase granularity so redelivery is harmless.
type PipelineConsumer struct {
	Bus           Subscriber
	Process       commands.ProcessOrderUseCase
	ConsumerGroup string
	Logger        *slog.Logger
}

func (c PipelineConsumer) Start(ctx context.Context) error {
	group := c.ConsumerGroup
	if group == "" {
		group = "order-pipeline"
	}

	bindings := []struct {
		topic   string
		handler func(context.Context, string) error
	}{
		{commands.TopicOrderProcess, c.Process.StartProcessing},
		{commands.TopicOrderAnalyze, c.Process.RunAnalysis},
		{commands.TopicOrderClip, c.Process.RunClipPhase},
		{commands.TopicOrderDistribute, c.Process.RunDistribution},
	}
	for _, binding := range bindings {
		handler := binding.handler
		topic := binding.topic
		err := c.Bus.Subscribe(ctx, topic, group, func(ctx context.Context, event events.Envelope) error {
			if event.OrderID == "" {
				return fmt.Errorf("work item %s has no order id", event.EventID)
			}
			return handler(ctx, event.OrderID)
		})
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}

	application.ResolveLogger(c.Logger).Info("pipeline consumer started",
		"event", "order_pipeline_consumer_started",
		"module", "fulfillment/order-pipeline",
		"layer", "worker",
		"consumer_group", group,
	)
	return nil
}
