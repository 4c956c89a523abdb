package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	balanceledger "boostpanel/contexts/finance-core/balance-ledger"
	ledgerentities "boostpanel/contexts/finance-core/balance-ledger/domain/entities"
	pipelineerrors "boostpanel/contexts/fulfillment/order-pipeline/domain/errors"
)

func TestLedgerGlueTranslatesInsufficientBalance(t *testing.T) {
	ledger := balanceledger.NewInMemoryModule([]ledgerentities.UserBalance{
		{UserID: "user-1", Balance: decimal.RequireFromString("1.00")},
	}, nil)
	glue := ledgerGlue{service: ledger.Service}
	ctx := context.Background()

	err := glue.CheckAndDeduct(ctx, "user-1", decimal.RequireFromString("50.00"), "order-1")
	if !errors.Is(err, pipelineerrors.ErrInsufficientBalance) {
		t.Fatalf("expected the pipeline's insufficient-balance sentinel, got %v", err)
	}

	if err := glue.CheckAndDeduct(ctx, "user-1", decimal.RequireFromString("1.00"), "order-1"); err != nil {
		t.Fatalf("funded deduction failed: %v", err)
	}
	balance, err := ledger.Service.Balance(ctx, "user-1")
	if err != nil {
		t.Fatalf("balance read failed: %v", err)
	}
	if !balance.Balance.Equal(decimal.Zero) {
		t.Fatalf("expected zero balance after deduction, got %s", balance.Balance)
	}
}
