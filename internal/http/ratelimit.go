package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// fixed-window counter per client IP; enough to keep a stuck scanner from
// flooding the retail DB
type rateLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	records map[string]*windowRecord
	now     func() time.Time
	swept   time.Time
}

type windowRecord struct {
	count       int
	windowStart time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:   limit,
		window:  window,
		records: make(map[string]*windowRecord),
		now:     time.Now,
	}
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	// drop lapsed windows so one-off clients don't accumulate forever
	if now.Sub(rl.swept) > rl.window {
		for addr, rec := range rl.records {
			if now.Sub(rec.windowStart) > rl.window {
				delete(rl.records, addr)
			}
		}
		rl.swept = now
	}

	rec, ok := rl.records[ip]
	if !ok || now.Sub(rec.windowStart) > rl.window {
		rl.records[ip] = &windowRecord{count: 1, windowStart: now}
		return true
	}
	rec.count++
	return rec.count <= rl.limit
}

// RateLimit rejects callers that exceed limit requests per window.
func RateLimit(limit int, window time.Duration) gin.HandlerFunc {
	rl := newRateLimiter(limit, window)
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}
