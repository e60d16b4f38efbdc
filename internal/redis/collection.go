package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/ramiqadoumi/go-resume-flow/internal/store"
)

const maxTxRetries = 5

// Collection is a Redis-backed store.Collection.
//
// Layout for namespace ns:
//
//	ns:rec:<key>              record value
//	ns:keys                   zset of all keys (score 0, lexical order)
//	ns:idxof:<key>            hash index name -> value for the record
//	ns:idx:<name>:<value>     set of keys filed under that index value
type Collection struct {
	client *redis.Client
	ns     string
}

var _ store.Collection = (*Collection)(nil)

// NewCollection returns a Collection storing its records under namespace ns.
func NewCollection(client *redis.Client, ns string) *Collection {
	return &Collection{client: client, ns: ns}
}

func (c *Collection) recKey(key string) string   { return c.ns + ":rec:" + key }
func (c *Collection) keysKey() string            { return c.ns + ":keys" }
func (c *Collection) idxOfKey(key string) string { return c.ns + ":idxof:" + key }
func (c *Collection) idxKey(name, value string) string {
	return c.ns + ":idx:" + name + ":" + value
}

func (c *Collection) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, c.recKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("redis get %s/%s: %w", c.ns, key, err)
	}
	return data, nil
}

// Set writes the record and moves it between index sets in one MULTI/EXEC,
// guarded by WATCH on the record's index hash.
func (c *Collection) Set(ctx context.Context, key string, value []byte, idx store.Index) error {
	idxOf := c.idxOfKey(key)
	txf := func(tx *redis.Tx) error {
		old, err := tx.HGetAll(ctx, idxOf).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for name, v := range old {
				pipe.SRem(ctx, c.idxKey(name, v), key)
			}
			pipe.Del(ctx, idxOf)
			pipe.Set(ctx, c.recKey(key), value, 0)
			pipe.ZAdd(ctx, c.keysKey(), redis.Z{Score: 0, Member: key})
			for name, v := range idx {
				pipe.HSet(ctx, idxOf, name, v)
				pipe.SAdd(ctx, c.idxKey(name, v), key)
			}
			return nil
		})
		return err
	}
	if err := c.watch(ctx, txf, idxOf); err != nil {
		return fmt.Errorf("redis set %s/%s: %w", c.ns, key, err)
	}
	return nil
}

func (c *Collection) List(ctx context.Context) ([][]byte, error) {
	keys, err := c.client.ZRange(ctx, c.keysKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list %s: %w", c.ns, err)
	}
	return c.values(ctx, keys)
}

func (c *Collection) ListByIndex(ctx context.Context, name, value string) ([][]byte, error) {
	keys, err := c.client.SMembers(ctx, c.idxKey(name, value)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list %s by %s=%s: %w", c.ns, name, value, err)
	}
	sort.Strings(keys)
	return c.values(ctx, keys)
}

func (c *Collection) Delete(ctx context.Context, key string) error {
	idxOf := c.idxOfKey(key)
	txf := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, c.recKey(key)).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return store.ErrNotFound
		}
		old, err := tx.HGetAll(ctx, idxOf).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for name, v := range old {
				pipe.SRem(ctx, c.idxKey(name, v), key)
			}
			pipe.Del(ctx, idxOf, c.recKey(key))
			pipe.ZRem(ctx, c.keysKey(), key)
			return nil
		})
		return err
	}
	if err := c.watch(ctx, txf, idxOf, c.recKey(key)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		return fmt.Errorf("redis delete %s/%s: %w", c.ns, key, err)
	}
	return nil
}

// watch runs an optimistic transaction, retrying when a watched key changed.
func (c *Collection) watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	var err error
	for i := 0; i < maxTxRetries; i++ {
		err = c.client.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return err
}

// values fetches record values for keys, skipping keys removed concurrently.
func (c *Collection) values(ctx context.Context, keys []string) ([][]byte, error) {
	if len(keys) == 0 {
		return [][]byte{}, nil
	}
	recKeys := make([]string, len(keys))
	for i, k := range keys {
		recKeys[i] = c.recKey(k)
	}
	vals, err := c.client.MGet(ctx, recKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget %s: %w", c.ns, err)
	}
	out := make([][]byte, 0, len(vals))
	for _, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		out = append(out, []byte(s))
	}
	return out, nil
}
