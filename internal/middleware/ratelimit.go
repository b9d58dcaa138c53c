package middleware

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/HammerMeetNail/circleboard/internal/handlers"
	"github.com/HammerMeetNail/circleboard/internal/logging"
)

// RateLimiter counts requests per client in fixed Redis windows. When Redis
// is unavailable it falls back to an in-process token bucket per client.
type RateLimiter struct {
	redis  *redis.Client
	limit  int
	window time.Duration
	prefix string
	logger *logging.Logger

	mu    sync.Mutex
	local map[string]*visitor
	now   func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(redisClient *redis.Client, limit int, window time.Duration, prefix string, logger *logging.Logger) *RateLimiter {
	if logger == nil {
		logger = logging.Default
	}
	return &RateLimiter{
		redis:  redisClient,
		limit:  limit,
		window: window,
		prefix: prefix,
		logger: logger,
		local:  make(map[string]*visitor),
		now:    time.Now,
	}
}

func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := GetClientIP(r)
		key := fmt.Sprintf("%s:%s", rl.prefix, ip)

		allowed, remaining, resetTime, err := rl.isAllowed(r.Context(), key)
		if err != nil {
			rl.logger.Warn("Rate limit store unavailable, using local limiter", map[string]interface{}{
				"error": err.Error(),
			})
			allowed = rl.allowLocal(key)
			remaining = -1
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		if remaining >= 0 {
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime, 10))
		}

		if !allowed {
			retry := int64(rl.window.Seconds())
			if remaining >= 0 {
				retry = resetTime - rl.now().Unix()
			}
			w.Header().Set("Retry-After", strconv.FormatInt(retry, 10))
			handlers.WriteFailure(w, http.StatusTooManyRequests, handlers.CodeDenied, "Too many requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) isAllowed(ctx context.Context, key string) (allowed bool, remaining int, resetTime int64, err error) {
	if rl.redis == nil {
		return false, 0, 0, errors.New("no redis client")
	}

	windowStart := rl.now().Truncate(rl.window)
	windowEnd := windowStart.Add(rl.window)
	windowKey := fmt.Sprintf("%s:%d", key, windowStart.Unix())

	pipe := rl.redis.Pipeline()
	incrCmd := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, 0, err
	}

	count := int(incrCmd.Val())
	remaining = rl.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= rl.limit, remaining, windowEnd.Unix(), nil
}

func (rl *RateLimiter) allowLocal(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.local[key]
	if !ok {
		every := rl.window / time.Duration(max(rl.limit, 1))
		v = &visitor{limiter: rate.NewLimiter(rate.Every(every), rl.limit)}
		rl.local[key] = v
	}
	v.lastSeen = rl.now()
	return v.limiter.AllowN(v.lastSeen, 1)
}

// Cleanup drops idle local limiters every interval until ctx is done.
func (rl *RateLimiter) Cleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-rl.window)
	for key, v := range rl.local {
		if v.lastSeen.Before(cutoff) {
			delete(rl.local, key)
		}
	}
}

// GetClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then
// the connection address.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if ip, _, err := net.SplitHostPort(first); err == nil {
			return ip
		}
		return first
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
