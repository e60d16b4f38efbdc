package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// renewScript extends the lease only while this instance still owns it.
var renewScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	end
	return 0
`)

// releaseScript drops the lease only while this instance still owns it.
var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	end
	return 0
`)

// Leader is a lease-based leader lock. The lease expires after ttl unless
// renewed, so a crashed leader is replaced within one ttl.
type Leader struct {
	client *redis.Client
	key    string
	id     string
	ttl    time.Duration
}

func NewLeader(client *redis.Client, key, instanceID string, ttl time.Duration) *Leader {
	return &Leader{client: client, key: key, id: instanceID, ttl: ttl}
}

func (l *Leader) ID() string { return l.id }

// Acquire takes the lease or renews it if already held. It reports whether
// this instance is the leader afterwards.
func (l *Leader) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.id, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("leader SETNX %s: %w", l.key, err)
	}
	if ok {
		return true, nil
	}
	n, err := renewScript.Run(ctx, l.client, []string{l.key}, l.id, l.ttl.Milliseconds()).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("leader renew %s: %w", l.key, err)
	}
	return n == 1, nil
}

// Release gives the lease up if this instance holds it.
func (l *Leader) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.id).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("leader release %s: %w", l.key, err)
	}
	return nil
}
