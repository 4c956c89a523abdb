package application_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	balanceledger "boostpanel/contexts/finance-core/balance-ledger"
	"boostpanel/contexts/finance-core/balance-ledger/domain/entities"
	domainerrors "boostpanel/contexts/finance-core/balance-ledger/domain/errors"
)

func money(value string) decimal.Decimal {
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return parsed
}

func seededModule(userID, balance string) balanceledger.Module {
	return balanceledger.NewInMemoryModule([]entities.UserBalance{
		{UserID: userID, Balance: money(balance)},
	}, nil)
}

func TestCheckAndDeductHappyPath(t *testing.T) {
	module := seededModule("user-1", "100.00")
	ctx := context.Background()

	if err := module.Service.CheckAndDeduct(ctx, "user-1", money("50.00"), "order-1", ""); err != nil {
		t.Fatalf("deduct failed: %v", err)
	}

	balance, err := module.Service.Balance(ctx, "user-1")
	if err != nil {
		t.Fatalf("balance lookup failed: %v", err)
	}
	if !balance.Balance.Equal(money("50.00")) {
		t.Fatalf("expected balance 50.00, got %s", balance.Balance)
	}
	if !balance.TotalSpent.Equal(money("50.00")) {
		t.Fatalf("expected total spent 50.00, got %s", balance.TotalSpent)
	}

	entries := module.Store.AllTransactions()
	if len(entries) != 1 {
		t.Fatalf("expected one transaction, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Type != entities.TransactionTypeOrderPayment {
		t.Fatalf("unexpected transaction type %s", entry.Type)
	}
	if !entry.Amount.Equal(money("-50.00")) {
		t.Fatalf("expected signed amount -50.00, got %s", entry.Amount)
	}
	if !entry.Consistent() {
		t.Fatalf("transaction breaks before+amount=after: %+v", entry)
	}
}

func TestCheckAndDeductInsufficientBalanceLeavesNoTrace(t *testing.T) {
	module := seededModule("user-1", "10.00")
	ctx := context.Background()

	err := module.Service.CheckAndDeduct(ctx, "user-1", money("10.01"), "order-1", "")
	if !errors.Is(err, domainerrors.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	balance, err := module.Service.Balance(ctx, "user-1")
	if err != nil {
		t.Fatalf("balance lookup failed: %v", err)
	}
	if !balance.Balance.Equal(money("10.00")) {
		t.Fatalf("balance must be untouched, got %s", balance.Balance)
	}
	if len(module.Store.AllTransactions()) != 0 {
		t.Fatalf("failed deduction must not write transactions")
	}
}

func TestDeductRejectsNonPositiveAmounts(t *testing.T) {
	module := seededModule("user-1", "10.00")
	ctx := context.Background()

	for _, amount := range []string{"0", "-5.00"} {
		if err := module.Service.CheckAndDeduct(ctx, "user-1", money(amount), "order-1", ""); !errors.Is(err, domainerrors.ErrInvalidAmount) {
			t.Fatalf("amount %s: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

func TestConcurrentDeductionsNeverOverspend(t *testing.T) {
	module := seededModule("user-1", "100.00")
	ctx := context.Background()

	var wg sync.WaitGroup
	succeeded := make(chan struct{}, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := module.Service.CheckAndDeduct(ctx, "user-1", money("10.00"), "order-n", ""); err == nil {
				succeeded <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(succeeded)

	wins := 0
	for range succeeded {
		wins++
	}
	if wins != 10 {
		t.Fatalf("expected exactly 10 deductions to win, got %d", wins)
	}

	balance, err := module.Service.Balance(ctx, "user-1")
	if err != nil {
		t.Fatalf("balance lookup failed: %v", err)
	}
	if !balance.Balance.Equal(decimal.Zero) {
		t.Fatalf("expected drained balance, got %s", balance.Balance)
	}
}

func TestLedgerConservationAcrossOperations(t *testing.T) {
	module := seededModule("user-1", "100.00")
	ctx := context.Background()

	if err := module.Service.CheckAndDeduct(ctx, "user-1", money("30.00"), "order-1", ""); err != nil {
		t.Fatalf("deduct failed: %v", err)
	}
	if _, err := module.Service.Add(ctx, "user-1", money("12.50"), "deposit-1", ""); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := module.Service.Refund(ctx, "user-1", money("5.00"), "order-1", ""); err != nil {
		t.Fatalf("refund failed: %v", err)
	}

	sum := decimal.Zero
	for _, entry := range module.Store.AllTransactions() {
		if !entry.Consistent() {
			t.Fatalf("inconsistent entry: %+v", entry)
		}
		sum = sum.Add(entry.Amount)
	}

	balance, err := module.Service.Balance(ctx, "user-1")
	if err != nil {
		t.Fatalf("balance lookup failed: %v", err)
	}
	if !balance.Balance.Sub(money("100.00")).Equal(sum) {
		t.Fatalf("transaction sum %s does not explain balance delta %s", sum, balance.Balance.Sub(money("100.00")))
	}
}

func TestTransferMovesFundsAtomically(t *testing.T) {
	module := balanceledger.NewInMemoryModule([]entities.UserBalance{
		{UserID: "payer", Balance: money("40.00")},
		{UserID: "payee", Balance: money("1.00")},
	}, nil)
	ctx := context.Background()

	if err := module.Service.Transfer(ctx, "payer", "payee", money("15.00"), ""); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	payer, _ := module.Service.Balance(ctx, "payer")
	payee, _ := module.Service.Balance(ctx, "payee")
	if !payer.Balance.Equal(money("25.00")) || !payee.Balance.Equal(money("16.00")) {
		t.Fatalf("unexpected balances after transfer: %s / %s", payer.Balance, payee.Balance)
	}

	var sawOut, sawIn bool
	for _, entry := range module.Store.AllTransactions() {
		switch entry.Type {
		case entities.TransactionTypeTransferOut:
			sawOut = true
		case entities.TransactionTypeTransferIn:
			sawIn = true
		}
	}
	if !sawOut || !sawIn {
		t.Fatalf("expected both TRANSFER_OUT and TRANSFER_IN entries")
	}
}

func TestTransferToSelfIsRejected(t *testing.T) {
	module := seededModule("user-1", "40.00")

	err := module.Service.Transfer(context.Background(), "user-1", "user-1", money("5.00"), "")
	if !errors.Is(err, domainerrors.ErrSameUserTransfer) {
		t.Fatalf("expected ErrSameUserTransfer, got %v", err)
	}
}

func TestAdjustNeverDrivesBalanceNegative(t *testing.T) {
	module := seededModule("user-1", "3.00")
	ctx := context.Background()

	err := module.Service.Adjust(ctx, "user-1", money("10.00").Neg(), "")
	if !errors.Is(err, domainerrors.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	if err := module.Service.Adjust(ctx, "user-1", money("2.00").Neg(), ""); err != nil {
		t.Fatalf("adjust failed: %v", err)
	}
	balance, err := module.Service.Balance(ctx, "user-1")
	if err != nil {
		t.Fatalf("balance lookup failed: %v", err)
	}
	if !balance.Balance.Equal(money("1.00")) {
		t.Fatalf("expected 1.00 after debit, got %s", balance.Balance)
	}
}

func TestTransactionsPaging(t *testing.T) {
	module := seededModule("user-1", "100.00")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := module.Service.CheckAndDeduct(ctx, "user-1", money("1.00"), "order-page", ""); err != nil {
			t.Fatalf("deduct failed: %v", err)
		}
	}

	page, err := module.Service.Transactions(ctx, "user-1", 2, 0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected page of 2, got %d", len(page))
	}
	rest, err := module.Service.Transactions(ctx, "user-1", 10, 2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(rest) != 3 {
		t.Fatalf("expected remaining 3, got %d", len(rest))
	}
}
