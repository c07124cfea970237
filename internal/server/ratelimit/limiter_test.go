package ratelimit

import (
	"testing"
	"time"
)

func TestLimiter_Allow(t *testing.T) {
	l := NewLimiter(5, time.Minute, 5)
	defer l.Close()

	for i := range 5 {
		result := l.Allow("k")
		if !result.Allowed {
			t.Errorf("request %d should be allowed", i+1)
		}
		if result.Limit != 5 {
			t.Errorf("Limit = %d, want 5", result.Limit)
		}
		if result.RetryAfter != 0 {
			t.Errorf("RetryAfter = %v, want 0", result.RetryAfter)
		}
	}
	result := l.Allow("k")
	if result.Allowed {
		t.Error("6th request should be rate limited")
	}
	if result.Remaining != 0 {
		t.Errorf("Remaining = %d, want 0", result.Remaining)
	}
	if result.RetryAfter < time.Second {
		t.Errorf("RetryAfter = %v, want >= 1s", result.RetryAfter)
	}
	if !result.ResetAt.After(time.Now()) {
		t.Errorf("ResetAt = %v, want in the future", result.ResetAt)
	}
}

func TestLimiter_DifferentKeys(t *testing.T) {
	l := NewLimiter(2, time.Minute, 2)
	defer l.Close()
	for range 2 {
		l.Allow("a")
	}
	if l.Allow("a").Allowed {
		t.Error("a should be rate limited")
	}
	if !l.Allow("b").Allowed {
		t.Error("b should not be rate limited")
	}
	if l.Len() != 2 {
		t.Errorf("Len() = %d, want 2", l.Len())
	}
}

func TestLimiter_Cleanup(t *testing.T) {
	l := NewLimiter(60, time.Minute, 10)
	defer l.Close()
	l.Allow("idle")
	// Not idle long enough.
	l.cleanup(time.Now())
	if l.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", l.Len())
	}
	// Long after, the bucket refilled and is dropped.
	l.cleanup(time.Now().Add(time.Hour))
	if l.Len() != 0 {
		t.Errorf("Len() = %d, want 0", l.Len())
	}
}

func TestLimiter_CloseTwice(t *testing.T) {
	l := NewLimiter(1, time.Minute, 1)
	l.Close()
	l.Close()
}
