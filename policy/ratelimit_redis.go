package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisRateLimiter enforces the same dual per-minute/per-hour budget as
// RateLimiter, but against counters shared across every responder
// process pointed at the same Redis instance — needed once the
// responder runs as more than a single process.
type RedisRateLimiter struct {
	client   *redis.Client
	limits   map[string]RateLimit
	fallback RateLimit
	ctx      context.Context
}

// NewRedisRateLimiter wraps client with the given per-requester limit
// table and fallback, used identically to NewRateLimiter.
func NewRedisRateLimiter(client *redis.Client, limits map[string]RateLimit, fallback RateLimit) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:   client,
		limits:   limits,
		fallback: fallback,
		ctx:      context.Background(),
	}
}

// Allow implements Limiter.
func (rl *RedisRateLimiter) Allow(requester string, now time.Time) bool {
	limit, ok := rl.limits[requester]
	if !ok {
		limit = rl.fallback
	}
	if limit.RequestsPerMinute == 0 && limit.RequestsPerHour == 0 {
		return true
	}

	if limit.RequestsPerMinute > 0 {
		ok, err := rl.checkAndIncr(requester, "m", time.Minute, limit.RequestsPerMinute)
		if err != nil || !ok {
			return false
		}
	}
	if limit.RequestsPerHour > 0 {
		ok, err := rl.checkAndIncr(requester, "h", time.Hour, limit.RequestsPerHour)
		if err != nil || !ok {
			return false
		}
	}
	return true
}

// checkAndIncr atomically increments the counter for requester's
// window and reports whether the resulting count is still within
// budget, setting the key's expiry on first use so stale counters
// self-clean.
func (rl *RedisRateLimiter) checkAndIncr(requester, window string, ttl time.Duration, budget int) (bool, error) {
	key := fmt.Sprintf("vqp:ratelimit:%s:%s", window, requester)
	count, err := rl.client.Incr(rl.ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("policy: redis rate limit incr: %w", err)
	}
	if count == 1 {
		if err := rl.client.Expire(rl.ctx, key, ttl).Err(); err != nil {
			return false, fmt.Errorf("policy: redis rate limit expire: %w", err)
		}
	}
	return int(count) <= budget, nil
}
