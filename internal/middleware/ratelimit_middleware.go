package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/GTDGit/gtd_inbox/internal/metrics"
	"github.com/GTDGit/gtd_inbox/internal/utils"
)

// RateLimiter throttles unauthenticated auth attempts per client IP.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	limit    rate.Limit
	burst    int
	stop     chan struct{}
	stopOnce sync.Once
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewRateLimiter allows perMinute attempts per IP with the given burst.
// A non-positive perMinute disables limiting.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	if burst <= 0 {
		burst = 1
	}
	rl := &RateLimiter{
		limiters: make(map[string]*limiterEntry),
		limit:    limit,
		burst:    burst,
		stop:     make(chan struct{}),
	}
	go rl.cleanupLoop(5 * time.Minute)
	return rl
}

// Allow checks if ip can make another attempt.
func (r *RateLimiter) Allow(ip string) bool {
	r.mu.Lock()
	entry, ok := r.limiters[ip]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.limiters[ip] = entry
	}
	entry.lastAccess = time.Now()
	limiter := entry.limiter
	r.mu.Unlock()

	return limiter.Allow()
}

// Handle rejects requests over the limit with 429.
func (r *RateLimiter) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.Allow(utils.ClientIP(c.Request)) {
			metrics.RateLimited.Inc()
			utils.Error(c, 429, "TOO_MANY_REQUESTS", "Too many authentication attempts")
			c.Abort()
			return
		}
		c.Next()
	}
}

// Stop ends the cleanup goroutine.
func (r *RateLimiter) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func (r *RateLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.cleanup(time.Now().Add(-time.Hour))
		case <-r.stop:
			return
		}
	}
}

func (r *RateLimiter) cleanup(before time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ip, entry := range r.limiters {
		if entry.lastAccess.Before(before) {
			delete(r.limiters, ip)
		}
	}
}
