package ginserver

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	gin "github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// DefaultLimiterIdle is how long a client bucket survives without requests.
// A bucket refills completely within a minute, so dropping it later loses nothing.
const DefaultLimiterIdle = 3 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP and drops idle buckets.
type RateLimiter struct {
	PerMinute int
	Logger    *slog.Logger
	Idle      time.Duration
	Now       func() time.Time

	mu        sync.Mutex
	limiters  map[string]*clientLimiter
	lastSweep time.Time
}

func NewRateLimiter(perMinute int, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		PerMinute: perMinute,
		Logger:    logger,
		Idle:      DefaultLimiterIdle,
		limiters:  make(map[string]*clientLimiter),
	}
}

func (r *RateLimiter) limiter(ip string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.sweepLocked(now)
	cl, ok := r.limiters[ip]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(r.PerMinute)), r.PerMinute)}
		r.limiters[ip] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// sweepLocked drops idle buckets at most once per idle window.
func (r *RateLimiter) sweepLocked(now time.Time) {
	idle := r.Idle
	if idle <= 0 {
		idle = DefaultLimiterIdle
	}
	if now.Sub(r.lastSweep) < idle {
		return
	}
	r.lastSweep = now
	for ip, cl := range r.limiters {
		if now.Sub(cl.lastSeen) >= idle {
			delete(r.limiters, ip)
		}
	}
}

// Size reports how many client buckets are held.
func (r *RateLimiter) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}

func (r *RateLimiter) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Middleware is a no-op when PerMinute is not positive.
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if r.PerMinute <= 0 {
			c.Next()
			return
		}
		ip := c.ClientIP()
		if !r.limiter(ip).Allow() {
			if r.Logger != nil {
				r.Logger.Warn("rate limit exceeded", "ip", ip)
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded, try again later"})
			return
		}
		c.Next()
	}
}
