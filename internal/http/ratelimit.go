package http

import (
	"context"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"castenobar/internal/database"
)

// RateLimiter counts attempts per key inside a fixed window.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type redisRateLimiter struct {
	redis  *database.Redis
	prefix string
	limit  int
	window time.Duration
}

func NewRedisRateLimiter(r *database.Redis, limit int, window time.Duration) RateLimiter {
	return &redisRateLimiter{redis: r, prefix: "cnb:ratelimit:", limit: limit, window: window}
}

func (rl *redisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if rl.limit <= 0 {
		return true, nil
	}
	n, err := rl.redis.IncrWithExpire(ctx, rl.prefix+key, rl.window)
	if err != nil {
		return true, err
	}
	return n <= int64(rl.limit), nil
}

type rateState struct {
	count     int
	windowEnd time.Time
}

// MemoryRateLimiter is the single-process limiter used without Redis.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	entries map[string]rateState
	limit   int
	window  time.Duration
	now     func() time.Time
}

func NewMemoryRateLimiter(limit int, window time.Duration) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		entries: make(map[string]rateState),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

func (rl *MemoryRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	if rl.limit <= 0 {
		return true, nil
	}
	now := rl.now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for k, st := range rl.entries {
		if now.After(st.windowEnd) {
			delete(rl.entries, k)
		}
	}
	st, ok := rl.entries[key]
	if !ok {
		rl.entries[key] = rateState{count: 1, windowEnd: now.Add(rl.window)}
		return true, nil
	}
	if st.count >= rl.limit {
		return false, nil
	}
	st.count++
	rl.entries[key] = st
	return true, nil
}

// rateLimit keys on the client address; a limiter error lets the request
// through.
func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil {
			c.Next()
			return
		}
		allowed, err := s.limiter.Allow(c.Request.Context(), "ip:"+c.ClientIP()+":"+c.FullPath())
		if err != nil {
			s.logger.Warn("rate limiter error", zap.Error(err))
		}
		if !allowed {
			s.metrics.recordRateLimitHit(c.FullPath())
			c.AbortWithStatusJSON(429, gin.H{"error": "rate_limit_exceeded"})
			return
		}
		c.Next()
	}
}
