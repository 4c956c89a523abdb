package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"boostpanel/contexts/fulfillment/clip-orchestrator/domain/entities"
	domainerrors "boostpanel/contexts/fulfillment/clip-orchestrator/domain/errors"
	"boostpanel/contexts/fulfillment/clip-orchestrator/ports"
)

// Result is the only thing CreateClip hands back. No error crosses the
// orchestrator boundary; the pipeline continues to distribution either way.
type Result struct {
	Created bool
	ClipURL string
	Reason  string
}

const maxProcessingAttempts = 3

// Service drives clip fabrication: eligibility, account rotation, bounded
// retries with a per-attempt deadline, and persistent outcome tracking.
type Service struct {
	Driver         ports.AutomationDriver
	Accounts       ports.AccountRepository
	Processings    ports.ProcessingRepository
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	MaxAttempts    int
	RetryBackoff   time.Duration
	AttemptTimeout time.Duration
	Logger         *slog.Logger
}

// InitProcessing creates the processing record at pipeline initialization.
// Idempotent per order: an existing record is returned untouched.
func (s Service) InitProcessing(ctx context.Context, orderID, originalURL string) (entities.Processing, error) {
	if existing, err := s.Processings.GetByOrder(ctx, orderID); err == nil {
		return existing, nil
	} else if !errors.Is(err, domainerrors.ErrProcessingNotFound) {
		return entities.Processing{}, err
	}

	id, err := s.IDGen.NewID(ctx)
	if err != nil {
		return entities.Processing{}, err
	}
	now := s.Clock.Now().UTC()
	item := entities.Processing{
		ProcessingID: id,
		OrderID:      orderID,
		OriginalURL:  originalURL,
		VideoType:    entities.DetermineVideoType(originalURL),
		Status:       entities.ProcessingStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Processings.CreateProcessing(ctx, item); err != nil {
		return entities.Processing{}, err
	}
	return item, nil
}

// CreateClip attempts to fabricate a derivative clip for the order.
func (s Service) CreateClip(ctx context.Context, orderID string) Result {
	logger := ResolveLogger(s.Logger)

	processing, err := s.Processings.GetByOrder(ctx, orderID)
	if err != nil {
		return s.failWithoutRecord(orderID, fmt.Sprintf("load processing record: %v", err))
	}
	if !entities.ClipEligible(processing.VideoType) {
		reason := fmt.Sprintf("video type %s is not clip-eligible", processing.VideoType)
		s.persistOutcome(ctx, processing, Result{Reason: reason})
		return Result{Reason: reason}
	}
	if processing.Attempts >= maxProcessingAttempts {
		reason := "clip processing retry budget exceeded"
		s.persistOutcome(ctx, processing, Result{Reason: reason})
		return Result{Reason: reason}
	}

	today := s.Clock.Now().UTC()
	account, found, err := s.Accounts.SelectAvailable(ctx, today)
	if err != nil {
		return s.fail(ctx, processing, fmt.Sprintf("account selection: %v", err))
	}
	if !found {
		return s.fail(ctx, processing, domainerrors.ErrNoAvailableAccounts.Error())
	}

	processing.Status = entities.ProcessingStatusProcessing
	processing.Attempts++
	if err := s.Processings.UpdateProcessing(ctx, processing); err != nil {
		return s.failWithoutRecord(orderID, fmt.Sprintf("mark processing: %v", err))
	}

	attempts := s.MaxAttempts
	if attempts <= 0 {
		attempts = 2
	}
	backoff := s.RetryBackoff
	if backoff <= 0 {
		backoff = 2 * time.Second
	}

	title := clipTitle(orderID)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		clipURL, err := s.attempt(ctx, processing.OriginalURL, account.Identity, title)
		if err == nil {
			if err := s.Accounts.RecordUsage(ctx, account.AccountID, today); err != nil {
				logger.Warn("account usage recording failed",
					"event", "account_usage_failed",
					"module", "fulfillment/clip-orchestrator",
					"layer", "application",
					"account_id", account.AccountID,
					"error", err.Error(),
				)
			}
			processing.Status = entities.ProcessingStatusCompleted
			processing.ClipCreated = true
			processing.ClipURL = clipURL
			processing.ErrorMessage = ""
			processing.UpdatedAt = s.Clock.Now().UTC()
			if err := s.Processings.UpdateProcessing(ctx, processing); err != nil {
				logger.Error("processing completion persist failed",
					"event", "clip_persist_failed",
					"module", "fulfillment/clip-orchestrator",
					"layer", "application",
					"order_id", orderID,
					"error", err.Error(),
				)
			}
			logger.Info("clip created",
				"event", "clip_created",
				"module", "fulfillment/clip-orchestrator",
				"layer", "application",
				"order_id", orderID,
				"account_id", account.AccountID,
				"attempt", attempt,
			)
			return Result{Created: true, ClipURL: clipURL}
		}

		lastErr = err
		logger.Warn("clip attempt failed",
			"event", "clip_attempt_failed",
			"module", "fulfillment/clip-orchestrator",
			"layer", "application",
			"order_id", orderID,
			"attempt", attempt,
			"error", err.Error(),
		)
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return s.fail(ctx, processing, ctx.Err().Error())
			case <-time.After(backoff):
			}
		}
	}
	return s.fail(ctx, processing, fmt.Sprintf("all attempts failed: %v", lastErr))
}

// RetryProcessing re-drives a failed fabrication on operator request, bounded
// by the overall processing attempt budget.
func (s Service) RetryProcessing(ctx context.Context, orderID string) (Result, error) {
	processing, err := s.Processings.GetByOrder(ctx, orderID)
	if err != nil {
		return Result{}, err
	}
	if processing.Attempts >= maxProcessingAttempts {
		return Result{}, domainerrors.ErrRetryBudgetExceeded
	}
	processing.Status = entities.ProcessingStatusPending
	processing.ErrorMessage = ""
	processing.UpdatedAt = s.Clock.Now().UTC()
	if err := s.Processings.UpdateProcessing(ctx, processing); err != nil {
		return Result{}, err
	}
	return s.CreateClip(ctx, orderID), nil
}

// ResetDailyCounters is the midnight rollover for the whole account pool.
func (s Service) ResetDailyCounters(ctx context.Context) (int, error) {
	count, err := s.Accounts.ResetDailyCounters(ctx, s.Clock.Now().UTC())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		ResolveLogger(s.Logger).Info("daily account counters reset",
			"event", "account_quota_reset",
			"module", "fulfillment/clip-orchestrator",
			"layer", "application",
			"accounts_reset", count,
		)
	}
	return count, nil
}

func (s Service) attempt(ctx context.Context, originalURL, identity, title string) (string, error) {
	timeout := s.AttemptTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.Driver.CreateClip(attemptCtx, originalURL, identity, title)
}

func (s Service) fail(ctx context.Context, processing entities.Processing, reason string) Result {
	result := Result{Reason: reason}
	s.persistOutcome(ctx, processing, result)
	return result
}

func (s Service) persistOutcome(ctx context.Context, processing entities.Processing, result Result) {
	processing.Status = entities.ProcessingStatusFailed
	processing.ClipCreated = false
	processing.ErrorMessage = result.Reason
	processing.UpdatedAt = s.Clock.Now().UTC()
	if err := s.Processings.UpdateProcessing(ctx, processing); err != nil {
		ResolveLogger(s.Logger).Error("processing outcome persist failed",
			"event", "clip_persist_failed",
			"module", "fulfillment/clip-orchestrator",
			"layer", "application",
			"order_id", processing.OrderID,
			"error", err.Error(),
		)
	}
}

func (s Service) failWithoutRecord(orderID, reason string) Result {
	ResolveLogger(s.Logger).Error("clip orchestration failed before record update",
		"event", "clip_orchestration_failed",
		"module", "fulfillment/clip-orchestrator",
		"layer", "application",
		"order_id", orderID,
		"reason", reason,
	)
	return Result{Reason: reason}
}

func clipTitle(orderID string) string {
	return fmt.Sprintf("Highlights %s", orderID)
}
