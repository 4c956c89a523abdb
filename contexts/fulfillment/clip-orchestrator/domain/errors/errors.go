package errors

import "errors"

var (
	ErrProcessingNotFound  = errors.New("clip processing record not found")
	ErrNoAvailableAccounts = errors.New("no available automation accounts")
	ErrRetryBudgetExceeded = errors.New("clip processing retry budget exceeded")
	ErrAccountNotFound     = errors.New("automation account not found")
)
