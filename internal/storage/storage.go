// Package storage opens the configured persistence backend and hands out
// namespaced collections from it.
package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/ramiqadoumi/go-resume-flow/internal/postgres"
	redisstore "github.com/ramiqadoumi/go-resume-flow/internal/redis"
	"github.com/ramiqadoumi/go-resume-flow/internal/store"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Collection namespaces.
const (
	NamespaceTasks    = "tasks"
	NamespaceResume   = "resume"
	NamespaceSections = "sections"
)

type Options struct {
	Backend     string
	RedisAddr   string
	PostgresDSN string
}

// Storage is an open backend.
type Storage struct {
	backend string
	redis   *goredis.Client
	pool    *pgxpool.Pool

	mu     sync.Mutex
	memory map[string]*store.Memory
}

// Open connects to the backend named in opts. An empty backend means memory.
func Open(ctx context.Context, opts Options) (*Storage, error) {
	s := &Storage{backend: opts.Backend}
	switch opts.Backend {
	case "", BackendMemory:
		s.backend = BackendMemory
		s.memory = make(map[string]*store.Memory)
	case BackendRedis:
		s.redis = redisstore.NewClient(opts.RedisAddr)
		if err := s.redis.Ping(ctx).Err(); err != nil {
			_ = s.redis.Close()
			return nil, fmt.Errorf("redis ping %s: %w", opts.RedisAddr, err)
		}
	case BackendPostgres:
		pool, err := postgres.NewPool(ctx, opts.PostgresDSN)
		if err != nil {
			return nil, err
		}
		s.pool = pool
	default:
		return nil, fmt.Errorf("unknown storage backend %q (want memory, redis or postgres)", opts.Backend)
	}
	return s, nil
}

func (s *Storage) Backend() string { return s.backend }

// Collection returns the collection for namespace ns. Memory collections
// are created once per namespace and shared.
func (s *Storage) Collection(ns string) store.Collection {
	switch {
	case s.redis != nil:
		return redisstore.NewCollection(s.redis, ns)
	case s.pool != nil:
		return postgres.NewCollection(s.pool, ns)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memory[ns]
	if !ok {
		m = store.NewMemory()
		s.memory[ns] = m
	}
	return m
}

// TransitionLog returns the audit log, or nil when the backend is not
// PostgreSQL.
func (s *Storage) TransitionLog() postgres.TransitionLog {
	if s.pool == nil {
		return nil
	}
	return postgres.NewTransitionLog(s.pool)
}

// Ping checks the backend is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	switch {
	case s.redis != nil:
		return s.redis.Ping(ctx).Err()
	case s.pool != nil:
		return s.pool.Ping(ctx)
	}
	return nil
}

func (s *Storage) Close() error {
	switch {
	case s.redis != nil:
		return s.redis.Close()
	case s.pool != nil:
		s.pool.Close()
	}
	return nil
}
