package application_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	cliporchestrator "boostpanel/contexts/fulfillment/clip-orchestrator"
	"boostpanel/contexts/fulfillment/clip-orchestrator/domain/entities"
	domainerrors "boostpanel/contexts/fulfillment/clip-orchestrator/domain/errors"
)

const regularURL = "https://youtube.com/watch?v=abcDEF12345"

func activeAccount(id string) entities.Account {
	return entities.Account{
		AccountID:  id,
		Identity:   id + "@pool",
		Status:     entities.AccountStatusActive,
		DailyLimit: 50,
	}
}

func TestCreateClipSuccessRecordsUsage(t *testing.T) {
	module := cliporchestrator.NewInMemoryModule([]entities.Account{activeAccount("acc-1")}, nil)
	ctx := context.Background()

	if _, err := module.Service.InitProcessing(ctx, "order-1", regularURL); err != nil {
		t.Fatalf("init processing failed: %v", err)
	}
	result := module.Service.CreateClip(ctx, "order-1")
	if !result.Created || result.ClipURL == "" {
		t.Fatalf("expected created clip, got %+v", result)
	}

	processing, err := module.Store.GetByOrder(ctx, "order-1")
	if err != nil {
		t.Fatalf("load processing failed: %v", err)
	}
	if processing.Status != entities.ProcessingStatusCompleted || !processing.ClipCreated {
		t.Fatalf("expected COMPLETED processing, got %+v", processing)
	}

	account, ok := module.Store.Account("acc-1")
	if !ok {
		t.Fatalf("account disappeared")
	}
	if account.DailyClips != 1 || account.TotalClips != 1 {
		t.Fatalf("expected usage counters 1/1, got %d/%d", account.DailyClips, account.TotalClips)
	}
}

func TestCreateClipFailsAfterBoundedAttempts(t *testing.T) {
	module := cliporchestrator.NewInMemoryModule([]entities.Account{activeAccount("acc-1")}, nil)
	module.Store.DriverErr = errors.New("browser session crashed")
	ctx := context.Background()

	if _, err := module.Service.InitProcessing(ctx, "order-1", regularURL); err != nil {
		t.Fatalf("init processing failed: %v", err)
	}
	result := module.Service.CreateClip(ctx, "order-1")
	if result.Created {
		t.Fatalf("expected failed clip, got %+v", result)
	}
	if !strings.Contains(result.Reason, "browser session crashed") {
		t.Fatalf("reason must carry the last driver error, got %q", result.Reason)
	}
	if module.Store.DriverCalls() != 2 {
		t.Fatalf("expected exactly 2 driver attempts, got %d", module.Store.DriverCalls())
	}

	processing, _ := module.Store.GetByOrder(ctx, "order-1")
	if processing.Status != entities.ProcessingStatusFailed {
		t.Fatalf("expected FAILED processing, got %s", processing.Status)
	}
	account, _ := module.Store.Account("acc-1")
	if account.DailyClips != 0 {
		t.Fatalf("failed fabrication must not consume quota, got %d", account.DailyClips)
	}
}

func TestCreateClipRecoversOnSecondAttempt(t *testing.T) {
	module := cliporchestrator.NewInMemoryModule([]entities.Account{activeAccount("acc-1")}, nil)
	module.Store.FailAttempts = 1
	ctx := context.Background()

	if _, err := module.Service.InitProcessing(ctx, "order-1", regularURL); err != nil {
		t.Fatalf("init processing failed: %v", err)
	}
	result := module.Service.CreateClip(ctx, "order-1")
	if !result.Created {
		t.Fatalf("expected recovery on second attempt, got %+v", result)
	}
	if module.Store.DriverCalls() != 2 {
		t.Fatalf("expected 2 driver calls, got %d", module.Store.DriverCalls())
	}
}

func TestShortsAreNotClipEligible(t *testing.T) {
	module := cliporchestrator.NewInMemoryModule([]entities.Account{activeAccount("acc-1")}, nil)
	ctx := context.Background()

	if _, err := module.Service.InitProcessing(ctx, "order-1", "https://youtube.com/shorts/abcDEF12345"); err != nil {
		t.Fatalf("init processing failed: %v", err)
	}
	result := module.Service.CreateClip(ctx, "order-1")
	if result.Created {
		t.Fatalf("shorts must not produce clips")
	}
	if module.Store.DriverCalls() != 0 {
		t.Fatalf("ineligible video must not touch the driver")
	}
	account, _ := module.Store.Account("acc-1")
	if account.DailyClips != 0 {
		t.Fatalf("ineligible video must not consume quota")
	}
}

func TestCreateClipWithoutAvailableAccounts(t *testing.T) {
	exhausted := activeAccount("acc-1")
	exhausted.DailyClips = 50
	exhausted.LastClipDate = time.Now().UTC()
	module := cliporchestrator.NewInMemoryModule([]entities.Account{exhausted}, nil)
	ctx := context.Background()

	if _, err := module.Service.InitProcessing(ctx, "order-1", regularURL); err != nil {
		t.Fatalf("init processing failed: %v", err)
	}
	result := module.Service.CreateClip(ctx, "order-1")
	if result.Created {
		t.Fatalf("expected failure with exhausted pool")
	}
	if !strings.Contains(result.Reason, "no available accounts") {
		t.Fatalf("unexpected reason %q", result.Reason)
	}
}

func TestStaleDailyCounterRollsOverLazily(t *testing.T) {
	stale := activeAccount("acc-1")
	stale.DailyClips = 50
	stale.LastClipDate = time.Now().UTC().Add(-48 * time.Hour)
	module := cliporchestrator.NewInMemoryModule([]entities.Account{stale}, nil)
	ctx := context.Background()

	if _, err := module.Service.InitProcessing(ctx, "order-1", regularURL); err != nil {
		t.Fatalf("init processing failed: %v", err)
	}
	result := module.Service.CreateClip(ctx, "order-1")
	if !result.Created {
		t.Fatalf("stale counters must roll over and free the account, got %+v", result)
	}
}

func TestInitProcessingIsIdempotentPerOrder(t *testing.T) {
	module := cliporchestrator.NewInMemoryModule([]entities.Account{activeAccount("acc-1")}, nil)
	ctx := context.Background()

	first, err := module.Service.InitProcessing(ctx, "order-1", regularURL)
	if err != nil {
		t.Fatalf("init processing failed: %v", err)
	}
	second, err := module.Service.InitProcessing(ctx, "order-1", regularURL)
	if err != nil {
		t.Fatalf("repeat init failed: %v", err)
	}
	if first.ProcessingID != second.ProcessingID {
		t.Fatalf("expected same processing record, got %s and %s", first.ProcessingID, second.ProcessingID)
	}
}

func TestRetryProcessingHonorsAttemptBudget(t *testing.T) {
	module := cliporchestrator.NewInMemoryModule([]entities.Account{activeAccount("acc-1")}, nil)
	module.Store.DriverErr = errors.New("persistent failure")
	ctx := context.Background()

	if _, err := module.Service.InitProcessing(ctx, "order-1", regularURL); err != nil {
		t.Fatalf("init processing failed: %v", err)
	}
	module.Service.CreateClip(ctx, "order-1")

	// Two more operator retries exhaust the 3-attempt processing budget.
	for i := 0; i < 2; i++ {
		if _, err := module.Service.RetryProcessing(ctx, "order-1"); err != nil {
			t.Fatalf("retry %d failed: %v", i+1, err)
		}
	}
	if _, err := module.Service.RetryProcessing(ctx, "order-1"); !errors.Is(err, domainerrors.ErrRetryBudgetExceeded) {
		t.Fatalf("expected ErrRetryBudgetExceeded, got %v", err)
	}
}

func TestResetDailyCountersClearsStaleAccounts(t *testing.T) {
	stale := activeAccount("acc-1")
	stale.DailyClips = 12
	stale.LastClipDate = time.Now().UTC().Add(-48 * time.Hour)
	fresh := activeAccount("acc-2")
	fresh.DailyClips = 3
	fresh.LastClipDate = time.Now().UTC()
	module := cliporchestrator.NewInMemoryModule([]entities.Account{stale, fresh}, nil)

	count, err := module.Service.ResetDailyCounters(context.Background())
	if err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one stale account reset, got %d", count)
	}
	reset, _ := module.Store.Account("acc-1")
	if reset.DailyClips != 0 {
		t.Fatalf("stale counter must reset, got %d", reset.DailyClips)
	}
	kept, _ := module.Store.Account("acc-2")
	if kept.DailyClips != 3 {
		t.Fatalf("fresh counter must survive, got %d", kept.DailyClips)
	}
}

func TestDetermineVideoType(t *testing.T) {
	cases := []struct {
		url      string
		expected entities.VideoType
	}{
		{regularURL, entities.VideoTypeRegular},
		{"https://youtube.com/shorts/abcDEF12345", entities.VideoTypeShorts},
		{"https://youtube.com/live/abcDEF12345", entities.VideoTypeLive},
		{"https://youtu.be/abcDEF12345", entities.VideoTypeRegular},
	}
	for _, tc := range cases {
		if got := entities.DetermineVideoType(tc.url); got != tc.expected {
			t.Fatalf("%s: expected %s, got %s", tc.url, tc.expected, got)
		}
	}
}
