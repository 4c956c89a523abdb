package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Policy is an explicit, testable retry configuration.
// Keep backoff parameters visible here instead of burying them in call sites.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	Jitter      bool
}

// DefaultBalancePolicy matches the ledger contention budget:
// 5 attempts, 100ms base, x2 growth capped at 5s, randomized.
func DefaultBalancePolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Multiplier:  2.0,
		Jitter:      true,
	}
}

// Do runs op until it succeeds, returns a non-retryable error, or the attempt
// budget is exhausted. retryable decides which errors consume an attempt.
func Do(ctx context.Context, policy Policy, retryable func(error) bool, op func(context.Context) error) error {
	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	delay := policy.BaseDelay
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if retryable == nil || !retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		wait := delay
		if policy.Jitter && wait > 0 {
			wait = time.Duration(float64(wait) * (0.5 + rand.Float64()))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		next := time.Duration(float64(delay) * policy.Multiplier)
		if policy.MaxDelay > 0 && next > policy.MaxDelay {
			next = policy.MaxDelay
		}
		if next > 0 {
			delay = next
		}
	}
	return lastErr
}

// Is reports whether err matches any of the targets.
func Is(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
