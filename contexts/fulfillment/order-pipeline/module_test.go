package orderpipeline_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	orderpipeline "boostpanel/contexts/fulfillment/order-pipeline"
	"boostpanel/contexts/fulfillment/order-pipeline/application/commands"
	"boostpanel/contexts/fulfillment/order-pipeline/domain/entities"
	domainerrors "boostpanel/contexts/fulfillment/order-pipeline/domain/errors"
	"boostpanel/contexts/fulfillment/order-pipeline/ports"
)

const (
	watchLink = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"
	videoID   = "dQw4w9WgXcQ"
)

func dec(value string) decimal.Decimal {
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return parsed
}

func catalog() []entities.Service {
	return []entities.Service{{
		ServiceID:    "svc-1",
		Name:         "YouTube views",
		PricePer1000: dec("50.00"),
		MinQuantity:  100,
		MaxQuantity:  100000,
		Geo:          "US",
		Active:       true,
	}}
}

func newModule(balance string) orderpipeline.Module {
	module := orderpipeline.NewInMemoryModule(catalog(), nil)
	module.Store.Balances["user-1"] = dec(balance)
	module.Store.Views[videoID] = 12000
	return module
}

func createOrder(t *testing.T, module orderpipeline.Module, quantity int) entities.Order {
	t.Helper()
	order, err := module.CreateOrder.Execute(context.Background(), commands.CreateOrderCommand{
		UserID:    "user-1",
		ServiceID: "svc-1",
		Link:      watchLink,
		Quantity:  quantity,
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return order
}

func TestCreateOrderChargesAndEnqueues(t *testing.T) {
	module := newModule("100.00")

	order := createOrder(t, module, 1000)
	if !order.Charge.Equal(dec("50.00")) {
		t.Fatalf("expected charge 50.00, got %s", order.Charge)
	}
	if order.Status != entities.OrderStatusPending {
		t.Fatalf("expected PENDING order, got %s", order.Status)
	}
	if !module.Store.Balances["user-1"].Equal(dec("50.00")) {
		t.Fatalf("expected remaining balance 50.00, got %s", module.Store.Balances["user-1"])
	}

	topics := module.Store.PendingTopics()
	if len(topics) != 1 || topics[0] != commands.TopicOrderProcess {
		t.Fatalf("expected a single order.process work item, got %v", topics)
	}
}

func TestCreateOrderInsufficientBalanceLeavesNoOrder(t *testing.T) {
	module := newModule("10.00")

	_, err := module.CreateOrder.Execute(context.Background(), commands.CreateOrderCommand{
		UserID:    "user-1",
		ServiceID: "svc-1",
		Link:      watchLink,
		Quantity:  1000,
	})
	if !errors.Is(err, domainerrors.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	orders, _ := module.Store.ListOrdersByUser(context.Background(), "user-1", 10, 0)
	if len(orders) != 0 {
		t.Fatalf("unfunded order must never be persisted, found %d", len(orders))
	}
	if len(module.Store.PendingTopics()) != 0 {
		t.Fatalf("unfunded order must not enqueue work")
	}
}

func TestCreateOrderValidatesQuantityBounds(t *testing.T) {
	module := newModule("1000.00")

	for _, quantity := range []int{50, 200000} {
		_, err := module.CreateOrder.Execute(context.Background(), commands.CreateOrderCommand{
			UserID:    "user-1",
			ServiceID: "svc-1",
			Link:      watchLink,
			Quantity:  quantity,
		})
		if !errors.Is(err, domainerrors.ErrInvalidOrderInput) {
			t.Fatalf("quantity %d: expected ErrInvalidOrderInput, got %v", quantity, err)
		}
	}
}

func runAllPhases(t *testing.T, module orderpipeline.Module, orderID string) {
	t.Helper()
	ctx := context.Background()
	if err := module.Process.StartProcessing(ctx, orderID); err != nil {
		t.Fatalf("start processing failed: %v", err)
	}
	if err := module.Process.RunAnalysis(ctx, orderID); err != nil {
		t.Fatalf("analysis failed: %v", err)
	}
	if err := module.Process.RunClipPhase(ctx, orderID); err != nil {
		t.Fatalf("clip phase failed: %v", err)
	}
	if err := module.Process.RunDistribution(ctx, orderID); err != nil {
		t.Fatalf("distribution failed: %v", err)
	}
}

func TestPipelineActivatesOrderWithClip(t *testing.T) {
	module := newModule("100.00")
	module.Store.Clip = ports.ClipOutcome{Created: true, ClipURL: "https://youtube.com/clip/xyz"}

	order := createOrder(t, module, 1000)
	runAllPhases(t, module, order.OrderID)

	stored, ok := module.Store.Order(order.OrderID)
	if !ok {
		t.Fatalf("order disappeared")
	}
	if stored.Status != entities.OrderStatusActive {
		t.Fatalf("expected ACTIVE order, got %s (%s)", stored.Status, stored.ErrorMessage)
	}
	if stored.VideoID != videoID {
		t.Fatalf("expected extracted video id, got %q", stored.VideoID)
	}
	if stored.StartCount != 12000 {
		t.Fatalf("expected baseline 12000, got %d", stored.StartCount)
	}
	if stored.Remains != 1000 {
		t.Fatalf("expected remains reset to quantity, got %d", stored.Remains)
	}
	if stored.ActivatedAt == nil {
		t.Fatalf("activation timestamp missing")
	}
	if module.Store.LastTargetURL != "https://youtube.com/clip/xyz" || !module.Store.LastClipCreated {
		t.Fatalf("distribution must target the clip, got %q created=%v",
			module.Store.LastTargetURL, module.Store.LastClipCreated)
	}
}

func TestPipelineProceedsWithOriginalLinkWhenClipFails(t *testing.T) {
	module := newModule("100.00")
	module.Store.Clip = ports.ClipOutcome{
		Created:      false,
		ErrorMessage: "all attempts failed: browser session crashed",
	}

	order := createOrder(t, module, 1000)
	runAllPhases(t, module, order.OrderID)

	stored, _ := module.Store.Order(order.OrderID)
	if stored.Status != entities.OrderStatusActive {
		t.Fatalf("clip failure must not block activation, got %s (%s)", stored.Status, stored.ErrorMessage)
	}
	if module.Store.LastTargetURL != watchLink || module.Store.LastClipCreated {
		t.Fatalf("distribution must fall back to the original link, got %q created=%v",
			module.Store.LastTargetURL, module.Store.LastClipCreated)
	}
}

func TestUnparsableLinkParksOrder(t *testing.T) {
	module := newModule("100.00")
	ctx := context.Background()

	order, err := module.CreateOrder.Execute(ctx, commands.CreateOrderCommand{
		UserID:    "user-1",
		ServiceID: "svc-1",
		Link:      "https://example.com/not-a-video",
		Quantity:  1000,
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if err := module.Process.StartProcessing(ctx, order.OrderID); err != nil {
		t.Fatalf("start processing failed: %v", err)
	}

	stored, _ := module.Store.Order(order.OrderID)
	if stored.Status != entities.OrderStatusHolding {
		t.Fatalf("expected HOLDING order, got %s", stored.Status)
	}
	if !strings.Contains(stored.ErrorMessage, domainerrors.ErrUnparsableLink.Error()) {
		t.Fatalf("expected readable reason, got %q", stored.ErrorMessage)
	}
}

func TestMetadataFailureParksOrder(t *testing.T) {
	module := newModule("100.00")
	module.Store.MetadataErr = errors.New("quota exceeded")

	order := createOrder(t, module, 1000)
	ctx := context.Background()
	if err := module.Process.StartProcessing(ctx, order.OrderID); err != nil {
		t.Fatalf("start processing failed: %v", err)
	}
	if err := module.Process.RunAnalysis(ctx, order.OrderID); err != nil {
		t.Fatalf("run analysis failed: %v", err)
	}

	stored, _ := module.Store.Order(order.OrderID)
	if stored.Status != entities.OrderStatusHolding {
		t.Fatalf("expected HOLDING order, got %s", stored.Status)
	}
	if !strings.Contains(stored.ErrorMessage, domainerrors.ErrMetadataUnavailable.Error()) {
		t.Fatalf("expected metadata reason, got %q", stored.ErrorMessage)
	}
	if !strings.Contains(stored.ErrorMessage, "quota exceeded") {
		t.Fatalf("reason must carry the collaborator error, got %q", stored.ErrorMessage)
	}
}

func TestDistributionFailureParksOrder(t *testing.T) {
	module := newModule("100.00")
	module.Store.DistributeErr = errors.New("campaign pool misconfigured")

	order := createOrder(t, module, 1000)
	ctx := context.Background()
	if err := module.Process.StartProcessing(ctx, order.OrderID); err != nil {
		t.Fatalf("start processing failed: %v", err)
	}
	if err := module.Process.RunAnalysis(ctx, order.OrderID); err != nil {
		t.Fatalf("analysis failed: %v", err)
	}
	if err := module.Process.RunClipPhase(ctx, order.OrderID); err != nil {
		t.Fatalf("clip phase failed: %v", err)
	}
	if err := module.Process.RunDistribution(ctx, order.OrderID); err != nil {
		t.Fatalf("distribution phase returned hard error: %v", err)
	}

	stored, _ := module.Store.Order(order.OrderID)
	if stored.Status != entities.OrderStatusHolding {
		t.Fatalf("expected HOLDING order, got %s", stored.Status)
	}
	if !strings.Contains(stored.ErrorMessage, "campaign pool misconfigured") {
		t.Fatalf("expected distributor reason, got %q", stored.ErrorMessage)
	}
}

func TestMonitorCompletesDeliveredOrder(t *testing.T) {
	module := newModule("100.00")
	order := createOrder(t, module, 1000)
	runAllPhases(t, module, order.OrderID)

	module.Store.Delivery = ports.DeliveryStats{Clicks: 4000, Conversions: 1000, ViewsDelivered: 1000}
	if err := module.ProgressMonitor.RunOnce(context.Background()); err != nil {
		t.Fatalf("monitor failed: %v", err)
	}

	stored, _ := module.Store.Order(order.OrderID)
	if stored.Status != entities.OrderStatusCompleted {
		t.Fatalf("expected COMPLETED order, got %s", stored.Status)
	}
	if stored.Remains != 0 {
		t.Fatalf("completed order must have zero remains, got %d", stored.Remains)
	}
	if module.Store.StopCalls == 0 {
		t.Fatalf("completion must stop the campaign assignments")
	}
}

func TestMonitorRecomputesRemainsFromAbsolutes(t *testing.T) {
	module := newModule("100.00")
	order := createOrder(t, module, 1000)
	runAllPhases(t, module, order.OrderID)

	module.Store.Delivery = ports.DeliveryStats{Clicks: 2400, Conversions: 600}
	if err := module.ProgressMonitor.RunOnce(context.Background()); err != nil {
		t.Fatalf("monitor failed: %v", err)
	}

	stored, _ := module.Store.Order(order.OrderID)
	if stored.Status != entities.OrderStatusActive {
		t.Fatalf("undelivered order must stay ACTIVE, got %s", stored.Status)
	}
	if stored.Remains != 400 {
		t.Fatalf("expected remains 400, got %d", stored.Remains)
	}

	// A repeated sweep with the same absolutes is a no-op.
	if err := module.ProgressMonitor.RunOnce(context.Background()); err != nil {
		t.Fatalf("repeat monitor failed: %v", err)
	}
	again, _ := module.Store.Order(order.OrderID)
	if again.Version != stored.Version {
		t.Fatalf("unchanged stats must not rewrite the order")
	}
}

func TestMonitorPartialStatsNeverRaiseRemains(t *testing.T) {
	module := newModule("100.00")
	order := createOrder(t, module, 1000)
	runAllPhases(t, module, order.OrderID)

	module.Store.Delivery = ports.DeliveryStats{Clicks: 2400, Conversions: 600}
	if err := module.ProgressMonitor.RunOnce(context.Background()); err != nil {
		t.Fatalf("monitor failed: %v", err)
	}

	// An unreachable campaign undercounts conversions. The degraded poll must
	// not roll delivered progress back and inflate a later refund.
	module.Store.Delivery = ports.DeliveryStats{Clicks: 1200, Conversions: 300, Partial: true}
	if err := module.ProgressMonitor.RunOnce(context.Background()); err != nil {
		t.Fatalf("partial monitor failed: %v", err)
	}
	stored, _ := module.Store.Order(order.OrderID)
	if stored.Remains != 400 {
		t.Fatalf("partial poll must keep remains at 400, got %d", stored.Remains)
	}

	// A partial poll may still move remains down.
	module.Store.Delivery = ports.DeliveryStats{Clicks: 3200, Conversions: 800, Partial: true}
	if err := module.ProgressMonitor.RunOnce(context.Background()); err != nil {
		t.Fatalf("partial monitor failed: %v", err)
	}
	stored, _ = module.Store.Order(order.OrderID)
	if stored.Remains != 200 {
		t.Fatalf("expected remains 200, got %d", stored.Remains)
	}
}

func TestCancelRefundsProportionally(t *testing.T) {
	module := newModule("100.00")
	order := createOrder(t, module, 1000)
	runAllPhases(t, module, order.OrderID)

	module.Store.Delivery = ports.DeliveryStats{Clicks: 2400, Conversions: 600}
	if err := module.ProgressMonitor.RunOnce(context.Background()); err != nil {
		t.Fatalf("monitor failed: %v", err)
	}

	result, err := module.CancelOrder.Execute(context.Background(), order.OrderID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if !result.Refunded {
		t.Fatalf("expected refund to be issued")
	}
	if len(module.Store.Refunds) != 1 || !module.Store.Refunds[0].Equal(dec("20.00")) {
		t.Fatalf("expected refund of 20.00, got %v", module.Store.Refunds)
	}
	// 100 - 50 charge + 20 refund.
	if !module.Store.Balances["user-1"].Equal(dec("70.00")) {
		t.Fatalf("expected balance 70.00, got %s", module.Store.Balances["user-1"])
	}

	view, err := module.GetOrder.Execute(context.Background(), order.OrderID)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if view.Status != entities.PublicStatusPartial {
		t.Fatalf("partially delivered cancellation must read Partial, got %s", view.Status)
	}
}

func TestCancelBeforeActivationRefundsFullCharge(t *testing.T) {
	module := newModule("100.00")
	order := createOrder(t, module, 1000)

	result, err := module.CancelOrder.Execute(context.Background(), order.OrderID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if !result.Refunded {
		t.Fatalf("expected full refund")
	}
	if !module.Store.Balances["user-1"].Equal(dec("100.00")) {
		t.Fatalf("expected restored balance 100.00, got %s", module.Store.Balances["user-1"])
	}
}

func TestCancelSucceedsEvenWhenRefundFails(t *testing.T) {
	module := newModule("100.00")
	module.Store.RefundErr = errors.New("ledger offline")
	order := createOrder(t, module, 1000)

	result, err := module.CancelOrder.Execute(context.Background(), order.OrderID)
	if err != nil {
		t.Fatalf("cancel must survive refund failure: %v", err)
	}
	if result.Refunded {
		t.Fatalf("refund flag must reflect the failure")
	}
	stored, _ := module.Store.Order(order.OrderID)
	if stored.Status != entities.OrderStatusCancelled {
		t.Fatalf("expected CANCELLED order, got %s", stored.Status)
	}
}

func TestCancelTerminalOrderIsRejected(t *testing.T) {
	module := newModule("100.00")
	order := createOrder(t, module, 1000)

	if _, err := module.CancelOrder.Execute(context.Background(), order.OrderID); err != nil {
		t.Fatalf("first cancel failed: %v", err)
	}
	_, err := module.CancelOrder.Execute(context.Background(), order.OrderID)
	if !errors.Is(err, domainerrors.ErrOrderNotCancellable) {
		t.Fatalf("expected ErrOrderNotCancellable, got %v", err)
	}
}

func TestResumeBudgetIsBounded(t *testing.T) {
	module := newModule("1000.00")
	ctx := context.Background()

	order, err := module.CreateOrder.Execute(ctx, commands.CreateOrderCommand{
		UserID:    "user-1",
		ServiceID: "svc-1",
		Link:      "https://example.com/not-a-video",
		Quantity:  1000,
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	park := func() {
		if err := module.Process.StartProcessing(ctx, order.OrderID); err != nil {
			t.Fatalf("start processing failed: %v", err)
		}
	}

	park()
	for i := 0; i < commands.MaxResumes; i++ {
		if _, err := module.ResumeOrder.Execute(ctx, order.OrderID); err != nil {
			t.Fatalf("resume %d failed: %v", i+1, err)
		}
		park()
	}
	_, err = module.ResumeOrder.Execute(ctx, order.OrderID)
	if !errors.Is(err, domainerrors.ErrResumeBudgetExceeded) {
		t.Fatalf("expected ErrResumeBudgetExceeded, got %v", err)
	}
}

func TestResumeClearsErrorAndReenqueues(t *testing.T) {
	module := newModule("100.00")
	ctx := context.Background()

	order, err := module.CreateOrder.Execute(ctx, commands.CreateOrderCommand{
		UserID:    "user-1",
		ServiceID: "svc-1",
		Link:      "https://example.com/not-a-video",
		Quantity:  1000,
	})
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if err := module.Process.StartProcessing(ctx, order.OrderID); err != nil {
		t.Fatalf("start processing failed: %v", err)
	}

	resumed, err := module.ResumeOrder.Execute(ctx, order.OrderID)
	if err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if resumed.Status != entities.OrderStatusPending || resumed.ErrorMessage != "" {
		t.Fatalf("resume must clear the error and go PENDING, got %+v", resumed)
	}

	sawProcess := 0
	for _, topic := range module.Store.PendingTopics() {
		if topic == commands.TopicOrderProcess {
			sawProcess++
		}
	}
	if sawProcess == 0 {
		t.Fatalf("resume must re-enqueue processing")
	}
}

func TestOutboxRelayPublishesPendingWork(t *testing.T) {
	module := newModule("100.00")
	order := createOrder(t, module, 1000)

	if err := module.OutboxRelay.RunOnce(context.Background()); err != nil {
		t.Fatalf("relay failed: %v", err)
	}
	if len(module.Store.Published) != 1 {
		t.Fatalf("expected one published work item, got %d", len(module.Store.Published))
	}
	published := module.Store.Published[0]
	if published.EventType != commands.TopicOrderProcess || published.OrderID != order.OrderID {
		t.Fatalf("unexpected published envelope: %+v", published)
	}
	if len(module.Store.PendingTopics()) != 0 {
		t.Fatalf("published rows must leave the pending set")
	}
}

func TestDeliveryControlsRequireActiveOrder(t *testing.T) {
	module := newModule("100.00")
	order := createOrder(t, module, 1000)

	if err := module.DeliveryControl.PauseDelivery(context.Background(), order.OrderID); !errors.Is(err, domainerrors.ErrInvalidStateTransition) {
		t.Fatalf("pause on PENDING order must fail, got %v", err)
	}

	runAllPhases(t, module, order.OrderID)
	if err := module.DeliveryControl.PauseDelivery(context.Background(), order.OrderID); err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if module.Store.StopCalls != 1 {
		t.Fatalf("expected one stop call, got %d", module.Store.StopCalls)
	}
	if err := module.DeliveryControl.ResumeDelivery(context.Background(), order.OrderID); err != nil {
		t.Fatalf("resume delivery failed: %v", err)
	}
	if module.Store.ResumeCalls != 1 {
		t.Fatalf("expected one resume call, got %d", module.Store.ResumeCalls)
	}
}

func TestListOrdersExposesPublicStatuses(t *testing.T) {
	module := newModule("1000.00")
	first := createOrder(t, module, 1000)
	second := createOrder(t, module, 1000)
	runAllPhases(t, module, second.OrderID)

	views, err := module.ListOrders.Execute(context.Background(), "user-1", 10, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(views))
	}
	statuses := map[string]entities.PublicStatus{}
	for _, view := range views {
		statuses[view.OrderID] = view.Status
	}
	if statuses[first.OrderID] != entities.PublicStatusPending {
		t.Fatalf("expected Pending, got %s", statuses[first.OrderID])
	}
	if statuses[second.OrderID] != entities.PublicStatusInProgress {
		t.Fatalf("expected In progress, got %s", statuses[second.OrderID])
	}
}

func TestPhaseRedeliveryIsIdempotent(t *testing.T) {
	module := newModule("100.00")
	order := createOrder(t, module, 1000)
	runAllPhases(t, module, order.OrderID)

	distributeCalls := module.Store.DistributeCalls
	// Redelivered envelopes for earlier phases hit an ACTIVE order and skip.
	ctx := context.Background()
	if err := module.Process.RunAnalysis(ctx, order.OrderID); err != nil {
		t.Fatalf("redelivered analysis failed: %v", err)
	}
	if err := module.Process.RunDistribution(ctx, order.OrderID); err != nil {
		t.Fatalf("redelivered distribution failed: %v", err)
	}
	if module.Store.DistributeCalls != distributeCalls {
		t.Fatalf("redelivery must not redistribute, got %d extra calls",
			module.Store.DistributeCalls-distributeCalls)
	}

	stored, _ := module.Store.Order(order.OrderID)
	if stored.Status != entities.OrderStatusActive {
		t.Fatalf("redelivery must not change status, got %s", stored.Status)
	}
}
