// internal/interfaces/http/middleware/rate_limit.go
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const rateWindow = time.Minute

// Limiter counts hits per key in fixed one-minute windows
type Limiter interface {
	// Hit records one request and returns the count in the current window
	Hit(ctx context.Context, key string) (int, error)
}

// RedisLimiter shares counters between instances through Redis
type RedisLimiter struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisLimiter creates a Redis-backed limiter
func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, now: time.Now}
}

// Hit increments the counter of the current window
func (l *RedisLimiter) Hit(ctx context.Context, key string) (int, error) {
	slot := l.now().Unix() / int64(rateWindow.Seconds())
	k := fmt.Sprintf("%srate_limit:%s:%d", l.prefix, key, slot)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, 2*rateWindow)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to count request: %w", err)
	}
	return int(incr.Val()), nil
}

// MemoryLimiter keeps counters in process
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

type window struct {
	start time.Time
	count int
}

// NewMemoryLimiter creates an in-process limiter
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{windows: make(map[string]*window), now: time.Now}
}

// Hit increments the window counter for key
func (l *MemoryLimiter) Hit(_ context.Context, key string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= rateWindow {
		// Drop expired windows while we hold the lock
		for k, old := range l.windows {
			if now.Sub(old.start) >= rateWindow {
				delete(l.windows, k)
			}
		}
		w = &window{start: now}
		l.windows[key] = w
	}
	w.count++
	return w.count, nil
}

// RateLimit limits requests per client IP. When the limiter fails the request is allowed.
func RateLimit(limit int, limiter Limiter, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 || limiter == nil {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		current, err := limiter.Hit(ctx, c.ClientIP())
		if err != nil {
			log.WithError(err).Warn("Rate limiter unavailable")
			c.Next()
			return
		}

		remaining := limit - current
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if current > limit {
			c.Header("Retry-After", strconv.Itoa(int(rateWindow.Seconds())))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": int(rateWindow.Seconds()),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
