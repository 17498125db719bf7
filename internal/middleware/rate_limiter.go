package middleware

import (
	"net/http"
	"sync"
	"time"

	"neelgund-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter hands every client IP its own token bucket
type RateLimiter struct {
	ips   map[string]*visitor
	mu    sync.Mutex
	limit rate.Limit
	burst int
	idle  time.Duration
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		ips:   make(map[string]*visitor),
		limit: rate.Limit(perSecond),
		burst: burst,
		idle:  10 * time.Minute,
	}
}

func (r *RateLimiter) getLimiter(ip string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for key, v := range r.ips {
		if now.Sub(v.lastSeen) > r.idle {
			delete(r.ips, key)
		}
	}

	v, ok := r.ips[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.ips[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// Limit rejects requests over the bucket with 429
func (r *RateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.getLimiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.Error(http.StatusTooManyRequests, "Too many requests"))
			return
		}
		c.Next()
	}
}
