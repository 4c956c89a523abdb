package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeOrderPayment TransactionType = "ORDER_PAYMENT"
	TransactionTypeRefund       TransactionType = "REFUND"
	TransactionTypeDeposit      TransactionType = "DEPOSIT"
	TransactionTypeTransferIn   TransactionType = "TRANSFER_IN"
	TransactionTypeTransferOut  TransactionType = "TRANSFER_OUT"
	TransactionTypeAdjustment   TransactionType = "ADJUSTMENT"
)

// AmountScale is the maximum number of fractional digits accepted on any
// ledger amount. Everything stored is normalized to this scale.
const AmountScale = 8

// UserBalance is the single hot mutable row the ledger owns. Version backs the
// compare-and-swap on write; nothing outside the ledger may touch Balance.
type UserBalance struct {
	UserID     string
	Balance    decimal.Decimal
	TotalSpent decimal.Decimal
	Version    int64
	UpdatedAt  time.Time
}

// Transaction is one immutable audit-trail entry. Created exactly once per
// balance mutation, never updated or deleted.
type Transaction struct {
	TransactionID string
	UserID        string
	OrderID       string
	DepositID     string
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	Type          TransactionType
	Description   string
	CreatedAt     time.Time
}

// Consistent reports whether the entry satisfies the ledger write invariant
// balance_after = balance_before + amount.
func (t Transaction) Consistent() bool {
	return t.BalanceBefore.Add(t.Amount).Equal(t.BalanceAfter)
}

// ValidAmount reports whether a pre-sign amount is acceptable for mutation:
// strictly positive and within the fixed decimal scale.
func ValidAmount(amount decimal.Decimal) bool {
	if amount.Cmp(decimal.Zero) <= 0 {
		return false
	}
	return int(-amount.Exponent()) <= AmountScale
}

// Normalize pins an amount to the ledger scale with half-up rounding.
func Normalize(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(AmountScale)
}
