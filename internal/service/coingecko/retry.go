package coingecko

import (
	"context"
	"time"

	"CoinPull/internal/domain/models"
)

// retryState tracks one logical fetch: attempts made so far and the backoff
// policy. A fetch ends when a kind is terminal or the ceiling is reached.
type retryState struct {
	attempt     int
	maxAttempts int
	base        time.Duration
	cap         time.Duration
}

func newRetryState(maxAttempts int, base, cap time.Duration) *retryState {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &retryState{maxAttempts: maxAttempts, base: base, cap: cap}
}

// begin marks the start of the next attempt and returns its 1-based index.
func (s *retryState) begin() int {
	s.attempt++
	return s.attempt
}

// next returns the wait before another attempt after the current one failed
// with kind. ok is false when the failure is final.
func (s *retryState) next(kind models.ErrorKind) (wait time.Duration, ok bool) {
	if !kind.Retryable() || s.attempt >= s.maxAttempts {
		return 0, false
	}

	if kind == models.KindRateLimited {
		return s.base * time.Duration(s.attempt), true
	}

	wait = s.base
	for i := 1; i < s.attempt; i++ {
		wait *= 2
		if wait >= s.cap {
			break
		}
	}
	if s.cap > 0 && wait > s.cap {
		wait = s.cap
	}
	return wait, true
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
