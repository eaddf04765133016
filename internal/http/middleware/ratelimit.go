package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/flowiq/scheduling-platform/internal/tenancy"
)

// BookingLimiter throttles booking mutations with a token bucket per caller.
// Buckets are keyed by tenant and client IP so a burst from one clinic's
// front desk cannot exhaust another clinic's budget behind a shared proxy.
type BookingLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64 // tokens per second
	burst   int     // max tokens
}

type bucket struct {
	tokens   float64
	lastTime time.Time
}

// NewBookingLimiter creates a limiter allowing rate requests/sec with the
// given burst size per tenant+IP pair.
func NewBookingLimiter(rate float64, burst int) *BookingLimiter {
	rl := &BookingLimiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
	}
	// Periodically evict stale entries to prevent memory growth.
	go rl.cleanup()
	return rl
}

// Allow returns true if the request identified by key is within the limit.
func (rl *BookingLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(rl.burst), lastTime: now}
		rl.buckets[key] = b
	}

	elapsed := now.Sub(b.lastTime).Seconds()
	b.tokens += elapsed * rl.rate
	if b.tokens > float64(rl.burst) {
		b.tokens = float64(rl.burst)
	}
	b.lastTime = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (rl *BookingLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		rl.mu.Lock()
		cutoff := time.Now().Add(-10 * time.Minute)
		for key, b := range rl.buckets {
			if b.lastTime.Before(cutoff) {
				delete(rl.buckets, key)
			}
		}
		rl.mu.Unlock()
	}
}

// clientKey scopes the bucket to the resolved tenant and the caller's IP.
// Requests hitting the limiter before tenant resolution share a "public"
// tenant segment.
func clientKey(r *http.Request) string {
	ip := r.RemoteAddr
	// Prefer X-Real-Ip set by chi's RealIP middleware.
	if xri := r.Header.Get("X-Real-Ip"); xri != "" {
		ip = xri
	}
	tenant := "public"
	if tc, ok := tenancy.FromContext(r.Context()); ok {
		tenant = tc.TenantID
	}
	return tenant + "|" + ip
}

// RateLimit returns an HTTP middleware that rejects book/release requests
// exceeding the configured rate with 429 Too Many Requests.
func RateLimit(rate float64, burst int) func(http.Handler) http.Handler {
	limiter := NewBookingLimiter(rate, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(clientKey(r)) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error": "rate limit exceeded, slow down and retry"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
