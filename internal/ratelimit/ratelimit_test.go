package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryAllowsUpToMax(t *testing.T) {
	limiter := NewMemory(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "10.0.0.1")
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !allowed {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	allowed, err := limiter.Allow(ctx, "10.0.0.1")
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if allowed {
		t.Fatalf("attempt past the limit should be blocked")
	}
}

func TestMemoryTracksKeysIndependently(t *testing.T) {
	limiter := NewMemory(1, time.Minute)
	ctx := context.Background()

	if allowed, _ := limiter.Allow(ctx, "10.0.0.1"); !allowed {
		t.Fatalf("first key should be allowed")
	}
	if allowed, _ := limiter.Allow(ctx, "10.0.0.2"); !allowed {
		t.Fatalf("second key should have its own budget")
	}
	if allowed, _ := limiter.Allow(ctx, "10.0.0.1"); allowed {
		t.Fatalf("first key should now be blocked")
	}
}

func TestMemoryWindowExpiry(t *testing.T) {
	limiter := NewMemory(1, 10*time.Millisecond)
	ctx := context.Background()

	if allowed, _ := limiter.Allow(ctx, "10.0.0.1"); !allowed {
		t.Fatalf("first attempt should be allowed")
	}
	if allowed, _ := limiter.Allow(ctx, "10.0.0.1"); allowed {
		t.Fatalf("second attempt inside the window should be blocked")
	}

	time.Sleep(15 * time.Millisecond)
	if allowed, _ := limiter.Allow(ctx, "10.0.0.1"); !allowed {
		t.Fatalf("attempt after the window should be allowed again")
	}
}

func TestNewMemoryClampsBadArguments(t *testing.T) {
	limiter := NewMemory(0, 0)
	if limiter.max != 1 {
		t.Fatalf("expected max clamped to 1, got %d", limiter.max)
	}
	if limiter.window != time.Minute {
		t.Fatalf("expected default window, got %v", limiter.window)
	}
}
