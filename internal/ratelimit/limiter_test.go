package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_Acquire(t *testing.T) {
	limiter := NewLimiter(10 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	if err := limiter.Acquire(ctx, "api.example.com"); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}
	if err := limiter.Acquire(ctx, "api.example.com"); err != nil {
		t.Fatalf("second acquire failed: %v", err)
	}

	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("expected second acquire to wait >= 10ms, total elapsed %v", elapsed)
	}
}

func TestLimiter_IndependentKeys(t *testing.T) {
	limiter := NewLimiter(time.Minute)

	if !limiter.Allow("a.example.com") {
		t.Errorf("first call for key a should be allowed")
	}
	if limiter.Allow("a.example.com") {
		t.Errorf("second call for key a should be rate limited")
	}

	// A different key has its own budget
	if !limiter.Allow("b.example.com") {
		t.Errorf("first call for key b should be allowed")
	}
}

func TestLimiter_AcquireCanceled(t *testing.T) {
	limiter := NewLimiter(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	if err := limiter.Acquire(ctx, "slow.example.com"); err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	cancel()
	if err := limiter.Acquire(ctx, "slow.example.com"); err == nil {
		t.Errorf("expected error from canceled context")
	}
}

func TestLimiter_DefaultInterval(t *testing.T) {
	limiter := NewLimiter(0)
	if limiter.minInterval != time.Second {
		t.Errorf("expected 1s default interval, got %v", limiter.minInterval)
	}
}
