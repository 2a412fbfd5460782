package policy

import (
	"sync"
	"time"
)

// RateLimit bounds how often a single requester may query the
// responder. Both windows are enforced; the stricter of the two
// governs (a generous per-hour budget doesn't excuse a per-minute
// burst, and vice versa).
type RateLimit struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int `yaml:"requests_per_hour" json:"requests_per_hour"`
}

// Limiter is the policy's view of rate limiting, satisfied by both
// RateLimiter (in-process) and RedisRateLimiter (shared across
// responder replicas).
type Limiter interface {
	Allow(requester string, now time.Time) bool
}

// counter tracks one requester's recent request timestamps, pruned
// lazily on each check.
type counter struct {
	mu        sync.Mutex
	perMinute []time.Time
	perHour   []time.Time
}

// RateLimiter enforces per-requester RateLimit budgets in-process.
// For a responder running as more than one process, RedisRateLimiter
// is used in its place as the policy's Limiter; it does not wrap this
// type.
type RateLimiter struct {
	mu       sync.Mutex
	limits   map[string]RateLimit
	fallback RateLimit
	counters map[string]*counter
}

// NewRateLimiter builds a limiter from a per-requester limit table and
// a fallback applied to any requester absent from it. A zero fallback
// (both fields 0) means unlimited for requesters with no explicit
// entry.
func NewRateLimiter(limits map[string]RateLimit, fallback RateLimit) *RateLimiter {
	return &RateLimiter{
		limits:   limits,
		fallback: fallback,
		counters: make(map[string]*counter),
	}
}

// Allow records one request attempt for requester at now and reports
// whether it is within both the per-minute and per-hour budgets.
func (rl *RateLimiter) Allow(requester string, now time.Time) bool {
	limit := rl.limitFor(requester)
	if limit.RequestsPerMinute == 0 && limit.RequestsPerHour == 0 {
		return true
	}

	c := rl.counterFor(requester)
	c.mu.Lock()
	defer c.mu.Unlock()

	c.perMinute = pruneBefore(c.perMinute, now.Add(-time.Minute))
	c.perHour = pruneBefore(c.perHour, now.Add(-time.Hour))

	if limit.RequestsPerMinute > 0 && len(c.perMinute) >= limit.RequestsPerMinute {
		return false
	}
	if limit.RequestsPerHour > 0 && len(c.perHour) >= limit.RequestsPerHour {
		return false
	}

	c.perMinute = append(c.perMinute, now)
	c.perHour = append(c.perHour, now)
	return true
}

func (rl *RateLimiter) limitFor(requester string) RateLimit {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if l, ok := rl.limits[requester]; ok {
		return l
	}
	return rl.fallback
}

func (rl *RateLimiter) counterFor(requester string) *counter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	c, ok := rl.counters[requester]
	if !ok {
		c = &counter{}
		rl.counters[requester] = c
	}
	return c
}

func pruneBefore(ts []time.Time, cutoff time.Time) []time.Time {
	kept := ts[:0]
	for _, t := range ts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}
