package realtimeclient

import (
	"errors"
	"testing"
	"time"

	"github.com/voicebridge/bridge/internal/bridgeerr"
)

func TestRateLimiterAllowsWithinBounds(t *testing.T) {
	rl := NewRateLimiter()
	for i := 0; i < rateLimitMaxRequests; i++ {
		if err := rl.Allow(100); err != nil {
			t.Fatalf("request %d unexpectedly rejected: %v", i, err)
		}
	}
}

func TestRateLimiterRejectsOverRequestCount(t *testing.T) {
	rl := NewRateLimiter()
	for i := 0; i < rateLimitMaxRequests; i++ {
		if err := rl.Allow(0); err != nil {
			t.Fatalf("request %d unexpectedly rejected: %v", i, err)
		}
	}
	if err := rl.Allow(0); !errors.Is(err, bridgeerr.ErrRateLimit) {
		t.Fatalf("expected ErrRateLimit on the 101st request, got %v", err)
	}
}

func TestRateLimiterRejectsOverByteBudget(t *testing.T) {
	rl := NewRateLimiter()
	if err := rl.Allow(rateLimitMaxBytes); err != nil {
		t.Fatalf("request at exact budget unexpectedly rejected: %v", err)
	}
	if err := rl.Allow(1); !errors.Is(err, bridgeerr.ErrRateLimit) {
		t.Fatalf("expected ErrRateLimit when exceeding byte budget, got %v", err)
	}
}

func TestRateLimiterEvictsOldEntries(t *testing.T) {
	fake := time.Now()
	rl := NewRateLimiter()
	rl.now = func() time.Time { return fake }

	for i := 0; i < rateLimitMaxRequests; i++ {
		if err := rl.Allow(0); err != nil {
			t.Fatalf("request %d unexpectedly rejected: %v", i, err)
		}
	}

	fake = fake.Add(rateLimitWindow + time.Second)
	if err := rl.Allow(0); err != nil {
		t.Fatalf("expected request to succeed after window eviction, got %v", err)
	}
}
