package commands

import (
	"context"
	"fmt"
	"log/slog"

	application "boostpanel/contexts/fulfillment/order-pipeline/application"
	"boostpanel/contexts/fulfillment/order-pipeline/domain/entities"
	domainerrors "boostpanel/contexts/fulfillment/order-pipeline/domain/errors"
	"boostpanel/contexts/fulfillment/order-pipeline/ports"
)

// ProcessOrderUseCase drives one order through the delivery phases. Each
// phase is a separate consumer invocation: load, check status, do exactly one
// piece of external work, write back, enqueue the next phase. Phase failures
// park the order in HOLDING with a readable reason instead of retrying.
type ProcessOrderUseCase struct {
	Orders              ports.OrderRepository
	Services            ports.ServiceRepository
	Metadata            ports.VideoMetadata
	Clips               ports.ClipOrchestrator
	Distributor         ports.CampaignDistributor
	Outbox              ports.OutboxRepository
	Clock               ports.Clock
	IDGenerator         ports.IDGenerator
	ClipCreationEnabled bool
	Logger              *slog.Logger
}

// StartProcessing moves PENDING to PROCESSING and resolves the video id.
// No network calls happen here.
func (uc ProcessOrderUseCase) StartProcessing(ctx context.Context, orderID string) error {
	order, err := uc.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	switch order.Status {
	case entities.OrderStatusPending:
	case entities.OrderStatusProcessing:
		// Redelivered envelope; the phase already ran, just push it forward.
		return enqueuePhase(ctx, uc.Outbox, uc.IDGenerator, TopicOrderAnalyze, order.OrderID, order.UserID, uc.Clock.Now())
	default:
		uc.skip(order, "start")
		return nil
	}

	videoID := entities.ExtractVideoID(order.Link)
	if videoID == "" {
		return uc.hold(ctx, order, domainerrors.ErrUnparsableLink.Error())
	}

	order.VideoID = videoID
	order.Status = entities.OrderStatusProcessing
	if err := uc.save(ctx, order); err != nil {
		return err
	}
	return enqueuePhase(ctx, uc.Outbox, uc.IDGenerator, TopicOrderAnalyze, order.OrderID, order.UserID, uc.Clock.Now())
}

// RunAnalysis records the baseline view count so progress can later be
// measured as a delta. Safe to re-run.
func (uc ProcessOrderUseCase) RunAnalysis(ctx context.Context, orderID string) error {
	order, err := uc.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != entities.OrderStatusProcessing {
		uc.skip(order, "analyze")
		return nil
	}

	exists, err := uc.Metadata.VideoExists(ctx, order.VideoID)
	if err != nil {
		return uc.hold(ctx, order, fmt.Sprintf("%s: %v", domainerrors.ErrMetadataUnavailable, err))
	}
	if !exists {
		return uc.hold(ctx, order, "video not found on platform")
	}

	baseline, err := uc.Metadata.BaselineViews(ctx, order.VideoID)
	if err != nil {
		return uc.hold(ctx, order, fmt.Sprintf("%s: %v", domainerrors.ErrMetadataUnavailable, err))
	}

	order.StartCount = baseline
	order.Remains = order.Quantity
	if err := uc.save(ctx, order); err != nil {
		return err
	}
	return enqueuePhase(ctx, uc.Outbox, uc.IDGenerator, TopicOrderClip, order.OrderID, order.UserID, uc.Clock.Now())
}

// RunClipPhase asks the orchestrator for a clip. A clip miss is an expected
// outcome, not a failure: delivery continues against the original link.
func (uc ProcessOrderUseCase) RunClipPhase(ctx context.Context, orderID string) error {
	order, err := uc.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != entities.OrderStatusProcessing {
		uc.skip(order, "clip")
		return nil
	}

	if uc.ClipCreationEnabled {
		outcome, err := uc.Clips.PrepareClip(ctx, order.OrderID, order.Link)
		if err != nil {
			return uc.hold(ctx, order, fmt.Sprintf("clip orchestration failed: %v", err))
		}
		application.ResolveLogger(uc.Logger).Info("clip phase finished",
			"event", "order_clip_phase_finished",
			"module", "fulfillment/order-pipeline",
			"layer", "application",
			"order_id", order.OrderID,
			"clip_created", outcome.Created,
			"reason", outcome.ErrorMessage,
		)
	}
	return enqueuePhase(ctx, uc.Outbox, uc.IDGenerator, TopicOrderDistribute, order.OrderID, order.UserID, uc.Clock.Now())
}

// RunDistribution hands the order to the campaign distributor and activates
// it. The target URL is the clip when one was produced, otherwise the
// original link.
func (uc ProcessOrderUseCase) RunDistribution(ctx context.Context, orderID string) error {
	order, err := uc.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != entities.OrderStatusProcessing {
		uc.skip(order, "distribute")
		return nil
	}

	service, err := uc.Services.GetService(ctx, order.ServiceID)
	if err != nil {
		return uc.hold(ctx, order, fmt.Sprintf("service lookup failed: %v", err))
	}

	targetURL := order.Link
	clipCreated := false
	if uc.ClipCreationEnabled {
		outcome, ok, err := uc.Clips.Outcome(ctx, order.OrderID)
		if err != nil {
			return uc.hold(ctx, order, fmt.Sprintf("clip outcome lookup failed: %v", err))
		}
		if ok && outcome.Created {
			targetURL = outcome.ClipURL
			clipCreated = true
		}
	}

	distribution, err := uc.Distributor.Distribute(
		ctx, order.OrderID, order.ServiceID, targetURL, order.Quantity, clipCreated, service.Geo,
	)
	if err != nil {
		return uc.hold(ctx, order, fmt.Sprintf("campaign distribution failed: %v", err))
	}

	now := uc.Clock.Now().UTC()
	order.Coefficient = distribution.Coefficient
	order.Status = entities.OrderStatusActive
	order.ActivatedAt = &now
	if err := uc.save(ctx, order); err != nil {
		return err
	}

	application.ResolveLogger(uc.Logger).Info("order activated",
		"event", "order_activated",
		"module", "fulfillment/order-pipeline",
		"layer", "application",
		"order_id", order.OrderID,
		"coefficient", distribution.Coefficient.String(),
		"total_clicks", distribution.TotalClicks,
		"clip_created", clipCreated,
	)
	return nil
}

func (uc ProcessOrderUseCase) hold(ctx context.Context, order entities.Order, reason string) error {
	if !entities.CanTransition(order.Status, entities.OrderStatusHolding) {
		return domainerrors.ErrInvalidStateTransition
	}
	order.Status = entities.OrderStatusHolding
	order.ErrorMessage = reason
	if err := uc.save(ctx, order); err != nil {
		return err
	}
	application.ResolveLogger(uc.Logger).Warn("order parked for recovery",
		"event", "order_holding",
		"module", "fulfillment/order-pipeline",
		"layer", "application",
		"order_id", order.OrderID,
		"reason", reason,
	)
	return nil
}

func (uc ProcessOrderUseCase) save(ctx context.Context, order entities.Order) error {
	expected := order.Version
	order.Version++
	order.UpdatedAt = uc.Clock.Now().UTC()
	return uc.Orders.UpdateOrder(ctx, order, expected)
}

func (uc ProcessOrderUseCase) skip(order entities.Order, phase string) {
	application.ResolveLogger(uc.Logger).Info("phase skipped for order status",
		"event", "order_phase_skipped",
		"module", "fulfillment/order-pipeline",
		"layer", "application",
		"order_id", order.OrderID,
		"phase", phase,
		"status", string(order.Status),
	)
}
