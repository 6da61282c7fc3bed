package api

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/buildwatch/internal/metrics"
	"golang.org/x/time/rate"
)

// cors allows any origin and answers preflight requests with an empty 200.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, "+clientHeader)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

// observe records request counts and latency by route template.
func observe(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.ObserveRequest(c.FullPath(), c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}

type cachedLimiter struct {
	limiter   *rate.Limiter
	expiresAt atomic.Int64 // unix nanos; pushed forward on every use
}

// limiterSet holds one token bucket per client IP. Buckets idle for ttl are
// swept, at most once per ttl.
type limiterSet struct {
	limit rate.Limit
	burst int
	ttl   time.Duration
	now   func() time.Time

	limiters sync.Map // client IP -> *cachedLimiter

	mu        sync.Mutex
	lastSweep time.Time
}

func newLimiterSet(limit float64, burst int, ttl time.Duration) *limiterSet {
	if burst < 1 {
		burst = 1
	}
	return &limiterSet{limit: rate.Limit(limit), burst: burst, ttl: ttl, now: time.Now}
}

func (s *limiterSet) get(key string) *rate.Limiter {
	now := s.now()
	s.sweep(now)

	v, ok := s.limiters.Load(key)
	if !ok {
		v, _ = s.limiters.LoadOrStore(key, &cachedLimiter{limiter: rate.NewLimiter(s.limit, s.burst)})
	}
	cached := v.(*cachedLimiter)
	cached.expiresAt.Store(now.Add(s.ttl).UnixNano())
	return cached.limiter
}

func (s *limiterSet) sweep(now time.Time) {
	s.mu.Lock()
	if now.Sub(s.lastSweep) < s.ttl {
		s.mu.Unlock()
		return
	}
	s.lastSweep = now
	s.mu.Unlock()

	cutoff := now.UnixNano()
	s.limiters.Range(func(k, v any) bool {
		if v.(*cachedLimiter).expiresAt.Load() <= cutoff {
			s.limiters.Delete(k)
		}
		return true
	})
}

func (s *limiterSet) len() int {
	n := 0
	s.limiters.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// rateLimit applies a token bucket per client IP. The client ID header is
// caller-chosen and never used as the key.
func rateLimit(set *limiterSet) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !set.get(c.ClientIP()).Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}
