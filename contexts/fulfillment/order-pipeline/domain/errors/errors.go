package errors

import "errors"

var (
	ErrOrderNotFound          = errors.New("order not found")
	ErrServiceNotFound        = errors.New("service not found")
	ErrInvalidOrderInput      = errors.New("invalid order input")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrUnparsableLink         = errors.New("video id could not be extracted from link")
	ErrInvalidStateTransition = errors.New("invalid order state transition")
	ErrOrderNotCancellable    = errors.New("order is already in a terminal state")
	ErrResumeBudgetExceeded   = errors.New("order resume budget exceeded")
	ErrMetadataUnavailable    = errors.New("video metadata unavailable")
)
