package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func failing(_ context.Context) (string, error) {
	return "", errors.New("down")
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 2, ResetTimeout: time.Minute})
	ctx := context.Background()

	_, _ = ExecuteVal(ctx, b, failing)
	if b.State() != StateClosed {
		t.Fatalf("expected closed after 1 failure, got %s", b.State())
	}
	_, _ = ExecuteVal(ctx, b, failing)
	if b.State() != StateOpen {
		t.Fatalf("expected open after 2 failures, got %s", b.State())
	}

	_, err := ExecuteVal(ctx, b, func(_ context.Context) (string, error) {
		t.Error("should not be called while open")
		return "", nil
	})
	if !errors.Is(err, ErrBreakerOpen) {
		t.Errorf("expected ErrBreakerOpen, got %v", err)
	}
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	now := time.Now()
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, ResetTimeout: time.Second})
	b.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = ExecuteVal(ctx, b, failing)
	if b.State() != StateOpen {
		t.Fatalf("expected open, got %s", b.State())
	}

	now = now.Add(2 * time.Second)
	if b.State() != StateHalfOpen {
		t.Fatalf("expected half-open, got %s", b.State())
	}

	// A failed probe reopens.
	_, _ = ExecuteVal(ctx, b, failing)
	if b.State() != StateOpen {
		t.Fatalf("expected reopen after failed probe, got %s", b.State())
	}

	now = now.Add(2 * time.Second)
	val, err := ExecuteVal(ctx, b, func(_ context.Context) (string, error) { return "primary", nil })
	if err != nil || val != "primary" {
		t.Fatalf("probe: %q, %v", val, err)
	}
	if b.State() != StateClosed || b.Failures() != 0 {
		t.Errorf("expected closed with 0 failures, got %s/%d", b.State(), b.Failures())
	}
}

func TestBreakerState_String(t *testing.T) {
	if StateClosed.String() != "closed" || StateOpen.String() != "open" ||
		StateHalfOpen.String() != "half-open" || BreakerState(9).String() != "unknown" {
		t.Error("unexpected state names")
	}
}
