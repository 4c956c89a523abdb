package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	ledgerapp "boostpanel/contexts/finance-core/balance-ledger/application"
	ledgererrors "boostpanel/contexts/finance-core/balance-ledger/domain/errors"
	distributorapp "boostpanel/contexts/fulfillment/campaign-distributor/application"
	clipapp "boostpanel/contexts/fulfillment/clip-orchestrator/application"
	cliperrors "boostpanel/contexts/fulfillment/clip-orchestrator/domain/errors"
	clipports "boostpanel/contexts/fulfillment/clip-orchestrator/ports"
	pipelineerrors "boostpanel/contexts/fulfillment/order-pipeline/domain/errors"
	pipelineports "boostpanel/contexts/fulfillment/order-pipeline/ports"
)

// The pipeline talks to the other contexts through its own ports. These glue
// types live in the composition root so the contexts never import each other.

type ledgerGlue struct {
	service ledgerapp.Service
}

func (g ledgerGlue) CheckAndDeduct(ctx context.Context, userID string, amount decimal.Decimal, orderID string) error {
	err := g.service.CheckAndDeduct(ctx, userID, amount, orderID, "")
	if errors.Is(err, ledgererrors.ErrInsufficientBalance) {
		// Each context owns its sentinels; intake matches on the pipeline's.
		return fmt.Errorf("%w: %v", pipelineerrors.ErrInsufficientBalance, err)
	}
	return err
}

func (g ledgerGlue) Refund(ctx context.Context, userID string, amount decimal.Decimal, orderID string) error {
	return g.service.Refund(ctx, userID, amount, orderID, "")
}

type clipGlue struct {
	service     clipapp.Service
	processings clipports.ProcessingRepository
}

func (g clipGlue) PrepareClip(ctx context.Context, orderID, videoURL string) (pipelineports.ClipOutcome, error) {
	if _, err := g.service.InitProcessing(ctx, orderID, videoURL); err != nil {
		return pipelineports.ClipOutcome{}, err
	}
	result := g.service.CreateClip(ctx, orderID)
	return pipelineports.ClipOutcome{
		Created:      result.Created,
		ClipURL:      result.ClipURL,
		ErrorMessage: result.Reason,
	}, nil
}

func (g clipGlue) Outcome(ctx context.Context, orderID string) (pipelineports.ClipOutcome, bool, error) {
	processing, err := g.processings.GetByOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, cliperrors.ErrProcessingNotFound) {
			return pipelineports.ClipOutcome{}, false, nil
		}
		return pipelineports.ClipOutcome{}, false, err
	}
	return pipelineports.ClipOutcome{
		Created:      processing.ClipCreated,
		ClipURL:      processing.ClipURL,
		ErrorMessage: processing.ErrorMessage,
	}, true, nil
}

type distributorGlue struct {
	service distributorapp.Service
}

func (g distributorGlue) Distribute(
	ctx context.Context,
	orderID, serviceID, targetURL string,
	quantity int,
	clipCreated bool,
	geo string,
) (pipelineports.DistributionOutcome, error) {
	result, err := g.service.Distribute(ctx, distributorapp.DistributeInput{
		OrderID:     orderID,
		ServiceID:   serviceID,
		Quantity:    quantity,
		TargetURL:   targetURL,
		ClipCreated: clipCreated,
		Geo:         geo,
	})
	if err != nil {
		return pipelineports.DistributionOutcome{}, err
	}
	return pipelineports.DistributionOutcome{
		Coefficient: result.Coefficient,
		TotalClicks: result.TotalClicks,
	}, nil
}

func (g distributorGlue) Stats(ctx context.Context, orderID string) (pipelineports.DeliveryStats, error) {
	stats, err := g.service.AggregateStats(ctx, orderID)
	if err != nil {
		return pipelineports.DeliveryStats{}, err
	}
	return pipelineports.DeliveryStats{
		Clicks:         stats.Clicks,
		Conversions:    stats.Conversions,
		ViewsDelivered: stats.ViewsDelivered,
		Partial:        stats.Status == distributorapp.AggregateStatusPartial,
	}, nil
}

func (g distributorGlue) StopAll(ctx context.Context, orderID string) error {
	return g.service.StopAll(ctx, orderID)
}

func (g distributorGlue) Resume(ctx context.Context, orderID string) error {
	return g.service.Resume(ctx, orderID)
}
