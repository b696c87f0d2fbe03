// Copyright 2025 Tomas Cupr
//
// Token bucket rate limiter for the HTTP transport

package transport

import (
	"net/http"
	"sync"
	"time"
)

// RateLimiter is a token bucket limiter. When the bucket is empty, requests
// are rejected with HTTP 429 Too Many Requests. Safe for concurrent use.
type RateLimiter struct {
	clock      func() time.Time // injectable for tests
	lastRefill time.Time
	rate       float64 // tokens per second
	burst      float64 // bucket capacity
	tokens     float64
	mu         sync.Mutex
}

// NewRateLimiter creates a limiter allowing requestsPerSecond sustained,
// with a burst of twice that (minimum 1). Returns nil when the rate is zero
// or negative, which disables rate limiting entirely.
func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	return NewRateLimiterWithClock(requestsPerSecond, time.Now)
}

// NewRateLimiterWithClock is NewRateLimiter with an injectable clock,
// used by tests to control time progression.
func NewRateLimiterWithClock(requestsPerSecond float64, clock func() time.Time) *RateLimiter {
	if requestsPerSecond <= 0 {
		return nil
	}
	burst := requestsPerSecond * 2
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		rate:       requestsPerSecond,
		burst:      burst,
		tokens:     burst, // start full
		lastRefill: clock(),
		clock:      clock,
	}
}

// Allow consumes a token if one is available. A nil limiter always allows.
func (r *RateLimiter) Allow() bool {
	if r == nil {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock()
	elapsed := now.Sub(r.lastRefill).Seconds()

	r.tokens += elapsed * r.rate
	if r.tokens > r.burst {
		r.tokens = r.burst
	}
	r.lastRefill = now

	if r.tokens < 1 {
		return false
	}

	r.tokens--
	return true
}

// Tokens returns the current token count, or -1 for a nil (disabled)
// limiter. Used for testing and monitoring.
func (r *RateLimiter) Tokens() float64 {
	if r == nil {
		return -1
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tokens
}

// RateLimitMiddleware wraps next with rate limiting. The /health and
// /metrics endpoints stay exempt so load balancers and scrapers are not
// throttled. A nil limiter makes this a passthrough.
func RateLimitMiddleware(limiter *RateLimiter, next http.Handler) http.Handler {
	if limiter == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		if !limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
