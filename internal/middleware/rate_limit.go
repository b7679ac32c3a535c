// internal/middleware/rate_limit.go
package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/javajoker/storefront/internal/i18n"
	"github.com/javajoker/storefront/internal/utils"
)

const visitorTTL = 3 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client key. Signed-in callers are
// keyed by user id, anonymous ones by IP.
type RateLimiter struct {
	visitors map[string]*visitor
	mtx      sync.Mutex
	rate     rate.Limit
	burst    int
}

func NewRateLimiter(r rate.Limit, b int) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     r,
		burst:    b,
	}
}

// PerMinute builds a limiter allowing n requests a minute with the given burst.
func PerMinute(n, burst int) *RateLimiter {
	if n <= 0 {
		return NewRateLimiter(rate.Inf, 0)
	}
	if burst <= 0 {
		burst = 1
	}
	return NewRateLimiter(rate.Every(time.Minute/time.Duration(n)), burst)
}

// Cleanup drops idle visitors every minute until ctx ends.
func (rl *RateLimiter) Cleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.evict(now)
		}
	}
}

func (rl *RateLimiter) evict(now time.Time) {
	rl.mtx.Lock()
	defer rl.mtx.Unlock()
	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) > visitorTTL {
			delete(rl.visitors, key)
		}
	}
}

func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	rl.mtx.Lock()
	defer rl.mtx.Unlock()

	v, exists := rl.visitors[key]
	if !exists {
		limiter := rate.NewLimiter(rl.rate, rl.burst)
		rl.visitors[key] = &visitor{limiter, time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if userID, ok := utils.GetUserIDFromContext(c); ok {
			key = "user:" + userID
		}

		if !rl.getVisitor(key).Allow() {
			utils.ErrorResponse(c, http.StatusTooManyRequests, "RATE_LIMITED",
				i18n.T(utils.GetLangFromContext(c), i18n.KeyRateLimitExceeded), nil)
			c.Abort()
			return
		}

		c.Next()
	}
}
