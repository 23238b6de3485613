package resilience

import (
	"context"
	"time"
)

// Policy combines the breaker and retry settings applied to one remote call.
// The zero value calls fn once with no breaker.
type Policy struct {
	Retry   RetryConfig
	Breaker *Breaker
}

// NewPolicy builds a Policy from config values. maxAttempts <= 1 disables
// retries and failureThreshold <= 0 disables the breaker.
func NewPolicy(maxAttempts, failureThreshold, resetSecs int) Policy {
	p := Policy{Retry: NoRetry()}
	if maxAttempts > 1 {
		p.Retry.MaxAttempts = maxAttempts
		p.Retry.OnRetry = RetryLogger("overpass interpreter")
	}
	if failureThreshold > 0 {
		p.Breaker = NewBreaker(BreakerConfig{
			FailureThreshold: failureThreshold,
			ResetTimeout:     time.Duration(resetSecs) * time.Second,
		})
	}
	return p
}

// Call runs fn under p. Every attempt goes through the breaker, and an open
// breaker ends the retry loop because ErrBreakerOpen is not transient.
func Call[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	attempt := fn
	if p.Breaker != nil {
		attempt = func(ctx context.Context) (T, error) {
			return ExecuteVal(ctx, p.Breaker, fn)
		}
	}
	return DoVal(ctx, p.Retry, attempt)
}
