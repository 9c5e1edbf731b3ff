package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWaitURL_SameHost_EnforcesRate(t *testing.T) {
	limiter := NewHostLimiter(10, 1) // one token every 100ms
	ctx := context.Background()

	// First call should return immediately.
	if err := limiter.WaitURL(ctx, "https://www.seek.com.au/jobs"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	start := time.Now()
	if err := limiter.WaitURL(ctx, "https://www.seek.com.au/job/1"); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	elapsed := time.Since(start)

	// Should have waited at least ~100ms (allow 80ms for timer jitter).
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait, got %v", elapsed)
	}
}

func TestWaitURL_DifferentHosts_NoCrossBlocking(t *testing.T) {
	limiter := NewHostLimiter(5, 1)
	ctx := context.Background()

	if err := limiter.WaitURL(ctx, "https://www.linkedin.com/jobs"); err != nil {
		t.Fatalf("linkedin wait: %v", err)
	}

	// Immediately call for seek, should NOT block.
	start := time.Now()
	if err := limiter.WaitURL(ctx, "https://www.seek.com.au/jobs"); err != nil {
		t.Fatalf("seek wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("expected seek wait to be near-instant, got %v", elapsed)
	}
}

func TestWaitURL_Disabled(t *testing.T) {
	limiter := NewHostLimiter(0, 0)
	start := time.Now()
	for i := 0; i < 20; i++ {
		if err := limiter.WaitURL(context.Background(), "https://example.com/"); err != nil {
			t.Fatalf("wait %d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("expected unlimited limiter to not block, took %v", elapsed)
	}
}

func TestWaitURL_ContextCancelled(t *testing.T) {
	limiter := NewHostLimiter(0.1, 1) // one token per 10s
	ctx := context.Background()
	if err := limiter.WaitURL(ctx, "https://example.com/"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := limiter.WaitURL(ctx, "https://example.com/"); err == nil {
		t.Fatal("expected error when context expires before a token is available")
	}
}

func TestRangePick_WithinBounds(t *testing.T) {
	r := Between(0.8, 2.5)
	for i := 0; i < 200; i++ {
		d := r.Pick()
		if d < 800*time.Millisecond || d > 2500*time.Millisecond {
			t.Fatalf("Pick() = %v, out of range %v", d, r)
		}
	}
}

func TestRangePick_Degenerate(t *testing.T) {
	if got := (Range{}).Pick(); got != 0 {
		t.Errorf("zero range Pick() = %v, want 0", got)
	}
	if got := (Range{Min: time.Second, Max: time.Millisecond}).Pick(); got != time.Second {
		t.Errorf("inverted range Pick() = %v, want Min", got)
	}
}

func TestPause_ZeroRangeReturnsImmediately(t *testing.T) {
	start := time.Now()
	if err := Pause(context.Background(), Range{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) > 10*time.Millisecond {
		t.Error("expected zero range to not sleep")
	}
}

func TestPause_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Pause(ctx, Range{Min: time.Hour, Max: time.Hour})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
