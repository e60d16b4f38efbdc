package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RateLimiter allows or denies events for a key using a sliding-window count.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Limit() int
}

// admitScript trims the window and records the event only when there is room,
// so rejected attempts do not extend a lockout.
var admitScript = redis.NewScript(`
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", ARGV[2])
if redis.call("ZCARD", KEYS[1]) >= tonumber(ARGV[3]) then
	return 0
end
redis.call("ZADD", KEYS[1], ARGV[1], ARGV[4])
redis.call("PEXPIRE", KEYS[1], ARGV[5])
return 1
`)

type slidingWindowLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

// NewRateLimiter returns a Redis-backed sliding-window rate limiter.
// limit is the maximum number of events allowed per window for a given key;
// prefix namespaces the limiter's keys, e.g. "notify".
func NewRateLimiter(client *redis.Client, prefix string, limit int, window time.Duration) RateLimiter {
	return &slidingWindowLimiter{client: client, prefix: prefix, limit: limit, window: window}
}

func (r *slidingWindowLimiter) Limit() int { return r.limit }

func (r *slidingWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := time.Now().UnixNano()
	member := strconv.FormatInt(now, 10) + "-" + uuid.NewString()[:8]

	admitted, err := admitScript.Run(ctx, r.client, []string{"ratelimit:" + r.prefix + ":" + key},
		now,
		now-r.window.Nanoseconds(),
		r.limit,
		member,
		r.window.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("rate limiter for %q: %w", key, err)
	}
	return admitted == 1, nil
}
