// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements an in-memory token-bucket rate limiter. Updates are
// keyed by conversation so one customer hammering a button cannot flood the
// workflow engine; other routes are keyed by user or client IP. Buckets idle
// for longer than the TTL are swept.
//
// The limiter is process-local; it guards one instance, not the fleet.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	rateLimitedCode = "too_many_requests"
	bucketTTL       = 10 * time.Minute
)

// keyFunc selects the identity used to key a rate-limit bucket.
type keyFunc func(*gin.Context) string

// KeyByUserOrIP keys by the caller's user id (context or X-User-ID header)
// and falls back to the client IP. Keys are namespaced ("user:", "ip:").
func KeyByUserOrIP() keyFunc {
	return func(c *gin.Context) string {
		if uid := UserID(c); uid != "" {
			return "user:" + uid
		}
		return "ip:" + c.ClientIP()
	}
}

// KeyByChat keys by the ":id" route parameter, falling back to
// KeyByUserOrIP on routes without one.
func KeyByChat() keyFunc {
	fallback := KeyByUserOrIP()
	return func(c *gin.Context) string {
		if id := c.Param("id"); id != "" {
			return "chat:" + id
		}
		return fallback(c)
	}
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands out one token bucket per key. It is safe for concurrent
// use.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	keyFn keyFunc
	ttl   time.Duration

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

// NewRateLimiter refills rps tokens per second up to burst (at least 1).
// A nil keyFn keys by user or IP.
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if keyFn == nil {
		keyFn = KeyByUserOrIP()
	}
	return &RateLimiter{
		rps:       rate.Limit(rps),
		burst:     burst,
		keyFn:     keyFn,
		ttl:       bucketTTL,
		buckets:   make(map[string]*bucket),
		lastSweep: time.Now(),
	}
}

// bucketFor returns key's limiter, sweeping idle buckets at most once per TTL.
func (rl *RateLimiter) bucketFor(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) >= rl.ttl {
		for k, b := range rl.buckets {
			if now.Sub(b.lastSeen) >= rl.ttl {
				delete(rl.buckets, k)
			}
		}
		rl.lastSweep = now
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rl.rps, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.lim
}

// reserve takes a token for key now, or reports how long until one is free.
func (rl *RateLimiter) reserve(key string, now time.Time) (time.Duration, bool) {
	r := rl.bucketFor(key, now).ReserveN(now, 1)
	if !r.OK() {
		return time.Second, false
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return d, false
	}
	return 0, true
}

// IsRateBypass reports whether IdempotencyValidator marked this request as a
// replay, which is served without consuming tokens.
func IsRateBypass(c *gin.Context) bool { return ctxAs[bool](c, ctxKeyRateBypass) }

// Handler returns the limiting middleware. Rejected requests get 429 with
// the standard error envelope and Retry-After set to the whole seconds until
// the bucket has a token again.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		wait, ok := rl.reserve(rl.keyFn(c), time.Now())
		if ok {
			c.Next()
			return
		}

		secs := int(math.Ceil(wait.Seconds()))
		if secs < 1 {
			secs = 1
		}
		httpRejected.WithLabelValues(rejectRateLimited).Inc()
		c.Header("Retry-After", strconv.Itoa(secs))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": RequestIDFrom(c),
			"code":       rateLimitedCode,
			"message":    "too many updates, slow down",
		})
	}
}
