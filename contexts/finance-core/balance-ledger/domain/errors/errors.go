package errors

import "errors"

var (
	ErrUserNotFound        = errors.New("user balance not found")
	ErrInvalidAmount       = errors.New("amount must be positive and within ledger scale")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrConcurrencyConflict = errors.New("balance version conflict")
	ErrSameUserTransfer    = errors.New("transfer requires two distinct users")
	ErrInconsistentEntry   = errors.New("transaction entry violates balance invariant")
)
