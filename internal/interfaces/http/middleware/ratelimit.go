package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openregulatory/licensure/pkg/errors"
	"github.com/openregulatory/licensure/pkg/types/common"
)

// RateLimiter is an in-memory token bucket keyed by client IP.  Buckets
// refill continuously at rate/interval; idle buckets are evicted after two
// intervals.
type RateLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	rate     float64
	capacity float64
	interval time.Duration
	lastSwep time.Time
	now      func() time.Time
}

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// NewRateLimiter allows up to limit requests per interval per client.
func NewRateLimiter(limit int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		buckets:  make(map[string]*bucket),
		rate:     float64(limit) / interval.Seconds(),
		capacity: float64(limit),
		interval: interval,
		now:      time.Now,
	}
}

// Allow consumes one token for key, reporting whether the request may
// proceed and how many tokens remain.
func (l *RateLimiter) Allow(key string) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.capacity, lastSeen: now}
		l.buckets[key] = b
	}

	elapsed := now.Sub(b.lastSeen).Seconds()
	b.tokens += elapsed * l.rate
	if b.tokens > l.capacity {
		b.tokens = l.capacity
	}
	b.lastSeen = now

	if b.tokens < 1 {
		return false, 0
	}
	b.tokens--
	return true, int(b.tokens)
}

// sweep drops buckets idle for two intervals.  Runs at most once per
// interval, amortized over Allow calls.
func (l *RateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSwep) < l.interval {
		return
	}
	l.lastSwep = now
	cutoff := now.Add(-2 * l.interval)
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

// RateLimit rejects requests over the per-client budget with 429.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, remaining := limiter.Allow(c.ClientIP())
		c.Writer.Header().Set("X-RateLimit-Limit", strconv.Itoa(int(limiter.capacity)))
		c.Writer.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			c.Writer.Header().Set("Retry-After", strconv.Itoa(int(limiter.interval.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				common.NewErrorResponse(
					errors.ErrCodeTooManyRequests.String(),
					errors.DefaultMessageForCode(errors.ErrCodeTooManyRequests)))
			return
		}
		c.Next()
	}
}
