package realtimeclient

import (
	"fmt"
	"sync"
	"time"

	"github.com/voicebridge/bridge/internal/bridgeerr"
)

const (
	rateLimitWindow      = 60 * time.Second
	rateLimitMaxRequests = 100
	rateLimitMaxBytes    = 10 * 1024 * 1024 // 10 MiB
)

// rateLimitEntry is one accepted send, used to evict once it ages out
// of the sliding window (spec §4.4.5).
type rateLimitEntry struct {
	at    time.Time
	bytes int
}

// RateLimiter enforces the sliding 60s/100-request/10MiB window on the
// send path. No teacher file implements this algorithm (the teacher has
// no outbound rate limiting at all); it is hand-rolled directly from
// spec §4.4.5's evict-then-check-then-append description, backed by a
// slice acting as a ring rather than the teacher's byte-oriented
// ring_buffer.go, which solves a different problem (byte storage, not
// timestamped accounting).
type RateLimiter struct {
	mu         sync.Mutex
	entries    []rateLimitEntry
	totalBytes int

	maxRequests int
	maxBytes    int

	now func() time.Time // overridable for tests
}

// NewRateLimiter builds a limiter using the spec's default bounds
// (100 requests / 10 MiB per 60s window).
func NewRateLimiter() *RateLimiter {
	return NewRateLimiterWithLimits(rateLimitMaxRequests, rateLimitMaxBytes)
}

// NewRateLimiterWithLimits builds a limiter with configured bounds
// (spec §6.4 RATE_LIMIT_MAX_REQUESTS/RATE_LIMIT_MAX_BYTES); a
// non-positive value falls back to the spec's default for that bound.
func NewRateLimiterWithLimits(maxRequests, maxBytes int) *RateLimiter {
	if maxRequests <= 0 {
		maxRequests = rateLimitMaxRequests
	}
	if maxBytes <= 0 {
		maxBytes = rateLimitMaxBytes
	}
	return &RateLimiter{maxRequests: maxRequests, maxBytes: maxBytes, now: time.Now}
}

// evictLocked drops entries older than the window and keeps
// totalBytes in sync. Callers must hold rl.mu.
func (rl *RateLimiter) evictLocked() {
	cutoff := rl.now().Add(-rateLimitWindow)
	i := 0
	for i < len(rl.entries) && rl.entries[i].at.Before(cutoff) {
		rl.totalBytes -= rl.entries[i].bytes
		i++
	}
	if i > 0 {
		rl.entries = rl.entries[i:]
	}
}

// Allow evicts stale entries, then checks whether an event of the
// given byte size may be sent now. On success it records the entry.
// On failure it returns bridgeerr.ErrRateLimit and records nothing.
func (rl *RateLimiter) Allow(bytes int) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.evictLocked()

	if len(rl.entries) >= rl.maxRequests {
		return fmt.Errorf("%w: max %d requests per %s exceeded", bridgeerr.ErrRateLimit, rl.maxRequests, rateLimitWindow)
	}
	if rl.totalBytes+bytes > rl.maxBytes {
		return fmt.Errorf("%w: max %d bytes per %s exceeded", bridgeerr.ErrRateLimit, rl.maxBytes, rateLimitWindow)
	}

	rl.entries = append(rl.entries, rateLimitEntry{at: rl.now(), bytes: bytes})
	rl.totalBytes += bytes
	return nil
}
