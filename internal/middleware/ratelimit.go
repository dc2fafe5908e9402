package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles requests per client key (IP plus any extra
// request-derived component).
type RateLimiter struct {
	limit    rate.Limit
	burst    int
	idle     time.Duration
	limiters *xsync.MapOf[string, *limiterEntry]
}

func NewRateLimiter(every time.Duration, burst int) *RateLimiter {
	return &RateLimiter{
		limit:    rate.Every(every),
		burst:    burst,
		idle:     10 * time.Minute,
		limiters: xsync.NewMapOf[string, *limiterEntry](),
	}
}

func (rl *RateLimiter) Allow(key string) bool {
	now := time.Now()
	entry, _ := rl.limiters.Compute(key, func(old *limiterEntry, loaded bool) (*limiterEntry, bool) {
		if !loaded {
			old = &limiterEntry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		}
		old.lastSeen = now
		return old, false
	})
	return entry.limiter.AllowN(now, 1)
}

// Sweep drops limiters idle longer than the idle window.
func (rl *RateLimiter) Sweep() {
	cutoff := time.Now().Add(-rl.idle)
	rl.limiters.Range(func(key string, entry *limiterEntry) bool {
		if entry.lastSeen.Before(cutoff) {
			rl.limiters.Delete(key)
		}
		return true
	})
}

// Middleware limits by client IP, optionally narrowed by keyFunc.
func (rl *RateLimiter) Middleware(keyFunc func(c *gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if keyFunc != nil {
			if extra := strings.TrimSpace(keyFunc(c)); extra != "" {
				key += "|" + strings.ToLower(extra)
			}
		}

		if !rl.Allow(key) {
			log.Warn().Str("client_ip", c.ClientIP()).Str("path", c.Request.URL.Path).Msg("rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}
