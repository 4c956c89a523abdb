package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"boostpanel/contexts/finance-core/balance-ledger/domain/entities"
	domainerrors "boostpanel/contexts/finance-core/balance-ledger/domain/errors"
	"boostpanel/contexts/finance-core/balance-ledger/ports"
	"boostpanel/internal/shared/retry"
)

// Service owns every balance mutation. Each operation validates the amount
// before any lock is taken, then runs the locked mutation under the retry
// policy so version conflicts stay invisible to callers until exhausted.
type Service struct {
	Store       ports.LedgerStore
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	RetryPolicy retry.Policy
	Logger      *slog.Logger
}

func (s Service) CheckAndDeduct(
	ctx context.Context,
	userID string,
	amount decimal.Decimal,
	orderID string,
	description string,
) error {
	if !entities.ValidAmount(amount) {
		return domainerrors.ErrInvalidAmount
	}
	charge := entities.Normalize(amount)
	if description == "" {
		description = fmt.Sprintf("Payment for order %s", orderID)
	}

	err := s.mutate(ctx, userID, func(current entities.UserBalance) (entities.UserBalance, []entities.Transaction, error) {
		if current.Balance.Cmp(charge) < 0 {
			return entities.UserBalance{}, nil, domainerrors.ErrInsufficientBalance
		}
		next := current
		next.Balance = current.Balance.Sub(charge)
		next.TotalSpent = current.TotalSpent.Add(charge)

		entry, err := s.newEntry(ctx, current, next, charge.Neg(), entities.TransactionTypeOrderPayment, description)
		if err != nil {
			return entities.UserBalance{}, nil, err
		}
		entry.OrderID = orderID
		return next, []entities.Transaction{entry}, nil
	})
	if err != nil {
		return err
	}

	ResolveLogger(s.Logger).Info("balance deducted",
		"event", "balance_deducted",
		"module", "finance-core/balance-ledger",
		"layer", "application",
		"user_id", userID,
		"order_id", orderID,
		"amount", charge.String(),
	)
	return nil
}

func (s Service) Add(
	ctx context.Context,
	userID string,
	amount decimal.Decimal,
	depositID string,
	description string,
) (decimal.Decimal, error) {
	if !entities.ValidAmount(amount) {
		return decimal.Zero, domainerrors.ErrInvalidAmount
	}
	credit := entities.Normalize(amount)
	if description == "" {
		description = "Balance deposit"
	}

	var newBalance decimal.Decimal
	err := s.mutate(ctx, userID, func(current entities.UserBalance) (entities.UserBalance, []entities.Transaction, error) {
		next := current
		next.Balance = current.Balance.Add(credit)
		newBalance = next.Balance

		entry, err := s.newEntry(ctx, current, next, credit, entities.TransactionTypeDeposit, description)
		if err != nil {
			return entities.UserBalance{}, nil, err
		}
		entry.DepositID = depositID
		return next, []entities.Transaction{entry}, nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	ResolveLogger(s.Logger).Info("balance credited",
		"event", "balance_credited",
		"module", "finance-core/balance-ledger",
		"layer", "application",
		"user_id", userID,
		"amount", credit.String(),
	)
	return newBalance, nil
}

func (s Service) Refund(
	ctx context.Context,
	userID string,
	amount decimal.Decimal,
	orderID string,
	reason string,
) error {
	if !entities.ValidAmount(amount) {
		return domainerrors.ErrInvalidAmount
	}
	credit := entities.Normalize(amount)
	if reason == "" {
		reason = fmt.Sprintf("Refund for order %s", orderID)
	}

	err := s.mutate(ctx, userID, func(current entities.UserBalance) (entities.UserBalance, []entities.Transaction, error) {
		next := current
		next.Balance = current.Balance.Add(credit)

		entry, err := s.newEntry(ctx, current, next, credit, entities.TransactionTypeRefund, reason)
		if err != nil {
			return entities.UserBalance{}, nil, err
		}
		entry.OrderID = orderID
		return next, []entities.Transaction{entry}, nil
	})
	if err != nil {
		return err
	}

	ResolveLogger(s.Logger).Info("balance refunded",
		"event", "balance_refunded",
		"module", "finance-core/balance-ledger",
		"layer", "application",
		"user_id", userID,
		"order_id", orderID,
		"amount", credit.String(),
	)
	return nil
}

func (s Service) Transfer(
	ctx context.Context,
	fromID string,
	toID string,
	amount decimal.Decimal,
	description string,
) error {
	if strings.TrimSpace(fromID) == strings.TrimSpace(toID) {
		return domainerrors.ErrSameUserTransfer
	}
	if !entities.ValidAmount(amount) {
		return domainerrors.ErrInvalidAmount
	}
	moved := entities.Normalize(amount)
	if description == "" {
		description = fmt.Sprintf("Transfer from %s to %s", fromID, toID)
	}

	op := func(ctx context.Context) error {
		return s.Store.UpdatePairLocked(ctx, fromID, toID, func(from, to entities.UserBalance) (entities.UserBalance, entities.UserBalance, []entities.Transaction, error) {
			if from.Balance.Cmp(moved) < 0 {
				return entities.UserBalance{}, entities.UserBalance{}, nil, domainerrors.ErrInsufficientBalance
			}
			nextFrom := from
			nextFrom.Balance = from.Balance.Sub(moved)
			nextTo := to
			nextTo.Balance = to.Balance.Add(moved)

			out, err := s.newEntry(ctx, from, nextFrom, moved.Neg(), entities.TransactionTypeTransferOut, description)
			if err != nil {
				return entities.UserBalance{}, entities.UserBalance{}, nil, err
			}
			in, err := s.newEntry(ctx, to, nextTo, moved, entities.TransactionTypeTransferIn, description)
			if err != nil {
				return entities.UserBalance{}, entities.UserBalance{}, nil, err
			}
			return nextFrom, nextTo, []entities.Transaction{out, in}, nil
		})
	}
	if err := retry.Do(ctx, s.RetryPolicy, isConflict, op); err != nil {
		return err
	}

	ResolveLogger(s.Logger).Info("balance transferred",
		"event", "balance_transferred",
		"module", "finance-core/balance-ledger",
		"layer", "application",
		"from_user_id", fromID,
		"to_user_id", toID,
		"amount", moved.String(),
	)
	return nil
}

// Adjust applies a signed operator correction. The result may not take the
// balance below zero.
func (s Service) Adjust(
	ctx context.Context,
	userID string,
	signedAmount decimal.Decimal,
	reason string,
) error {
	if !entities.ValidAmount(signedAmount.Abs()) {
		return domainerrors.ErrInvalidAmount
	}
	delta := entities.Normalize(signedAmount)
	if reason == "" {
		reason = "Manual balance adjustment"
	}

	err := s.mutate(ctx, userID, func(current entities.UserBalance) (entities.UserBalance, []entities.Transaction, error) {
		next := current
		next.Balance = current.Balance.Add(delta)
		if next.Balance.Cmp(decimal.Zero) < 0 {
			return entities.UserBalance{}, nil, domainerrors.ErrInsufficientBalance
		}

		entry, err := s.newEntry(ctx, current, next, delta, entities.TransactionTypeAdjustment, reason)
		if err != nil {
			return entities.UserBalance{}, nil, err
		}
		return next, []entities.Transaction{entry}, nil
	})
	if err != nil {
		return err
	}

	ResolveLogger(s.Logger).Info("balance adjusted",
		"event", "balance_adjusted",
		"module", "finance-core/balance-ledger",
		"layer", "application",
		"user_id", userID,
		"amount", delta.String(),
	)
	return nil
}

func (s Service) Balance(ctx context.Context, userID string) (entities.UserBalance, error) {
	return s.Store.GetBalance(ctx, userID)
}

func (s Service) Transactions(ctx context.Context, userID string, limit, offset int) ([]entities.Transaction, error) {
	return s.Store.ListTransactions(ctx, userID, limit, offset)
}

func (s Service) mutate(ctx context.Context, userID string, fn ports.MutateFunc) error {
	return retry.Do(ctx, s.RetryPolicy, isConflict, func(ctx context.Context) error {
		return s.Store.UpdateLocked(ctx, userID, fn)
	})
}

func (s Service) newEntry(
	ctx context.Context,
	before entities.UserBalance,
	after entities.UserBalance,
	signedAmount decimal.Decimal,
	txType entities.TransactionType,
	description string,
) (entities.Transaction, error) {
	id, err := s.IDGen.NewID(ctx)
	if err != nil {
		return entities.Transaction{}, err
	}
	entry := entities.Transaction{
		TransactionID: id,
		UserID:        before.UserID,
		Amount:        signedAmount,
		BalanceBefore: before.Balance,
		BalanceAfter:  after.Balance,
		Type:          txType,
		Description:   description,
		CreatedAt:     s.Clock.Now().UTC(),
	}
	if !entry.Consistent() {
		return entities.Transaction{}, domainerrors.ErrInconsistentEntry
	}
	return entry, nil
}

func isConflict(err error) bool {
	return retry.Is(err, domainerrors.ErrConcurrencyConflict)
}
