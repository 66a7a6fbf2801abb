package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"tradie-schedule-service/internal/platform/obs"
)

const requestIDHeader = "X-Request-ID"

// requestID propagates an incoming X-Request-ID, or generates one, and
// stores it on the request context for the logger.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := obs.WithRequestID(c.Request.Context(), c.GetHeader(requestIDHeader))
		if owner := c.Param("ownerID"); owner != "" {
			ctx = obs.WithOwnerID(ctx, owner)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Header(requestIDHeader, obs.RequestIDFromContext(ctx))
		c.Next()
	}
}

// accessLog logs end-to-end request duration and response size.
func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		slog.InfoContext(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.Request.URL.RequestURI(),
			"status", c.Writer.Status(),
			"bytes", c.Writer.Size(),
			"dur_ms", time.Since(start).Milliseconds(),
		)
	}
}

// ipRateLimiter keeps one token bucket per client IP. Idle buckets expire
// so the table does not grow without bound.
type ipRateLimiter struct {
	limiters *cache.Cache
	r        rate.Limit
	b        int
}

func newIPRateLimiter(r rate.Limit, b int) *ipRateLimiter {
	return &ipRateLimiter{
		limiters: cache.New(10*time.Minute, 20*time.Minute),
		r:        r,
		b:        b,
	}
}

func (i *ipRateLimiter) limiter(ip string) *rate.Limiter {
	if v, ok := i.limiters.Get(ip); ok {
		i.limiters.SetDefault(ip, v)
		return v.(*rate.Limiter)
	}
	l := rate.NewLimiter(i.r, i.b)
	// Two requests racing on a new IP may both build a limiter; Add keeps the first.
	if err := i.limiters.Add(ip, l, cache.DefaultExpiration); err != nil {
		if v, ok := i.limiters.Get(ip); ok {
			return v.(*rate.Limiter)
		}
	}
	return l
}

// rateLimit rejects requests beyond perSec (with burst) from a single IP.
func rateLimit(perSec float64, burst int) gin.HandlerFunc {
	limiter := newIPRateLimiter(rate.Limit(perSec), burst)
	return func(c *gin.Context) {
		if !limiter.limiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
