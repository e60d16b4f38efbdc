package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ramiqadoumi/go-resume-flow/internal/store"
)

// NewPool creates a pgxpool and verifies connectivity.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return pool, nil
}

// Collection is a PostgreSQL-backed store.Collection over the records and
// record_indexes tables.
type Collection struct {
	pool *pgxpool.Pool
	ns   string
}

var _ store.Collection = (*Collection)(nil)

// NewCollection returns a Collection scoped to namespace ns.
func NewCollection(pool *pgxpool.Pool, ns string) *Collection {
	return &Collection{pool: pool, ns: ns}
}

func (c *Collection) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := c.pool.QueryRow(ctx, `
		SELECT value FROM records WHERE namespace = $1 AND key = $2
	`, c.ns, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get record %s/%s: %w", c.ns, key, err)
	}
	return value, nil
}

// Set upserts the record and replaces its index rows in one transaction.
func (c *Collection) Set(ctx context.Context, key string, value []byte, idx store.Index) error {
	err := pgx.BeginFunc(ctx, c.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO records (namespace, key, value, created_at, updated_at)
			VALUES ($1, $2, $3, NOW(), NOW())
			ON CONFLICT (namespace, key)
			DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
		`, c.ns, key, value); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			DELETE FROM record_indexes WHERE namespace = $1 AND key = $2
		`, c.ns, key); err != nil {
			return err
		}
		for name, v := range idx {
			if _, err := tx.Exec(ctx, `
				INSERT INTO record_indexes (namespace, key, name, value)
				VALUES ($1, $2, $3, $4)
			`, c.ns, key, name, v); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("set record %s/%s: %w", c.ns, key, err)
	}
	return nil
}

func (c *Collection) List(ctx context.Context) ([][]byte, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT value FROM records WHERE namespace = $1 ORDER BY key
	`, c.ns)
	if err != nil {
		return nil, fmt.Errorf("list records %s: %w", c.ns, err)
	}
	return scanValues(rows)
}

func (c *Collection) ListByIndex(ctx context.Context, name, value string) ([][]byte, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT r.value
		FROM records r
		JOIN record_indexes i ON i.namespace = r.namespace AND i.key = r.key
		WHERE r.namespace = $1 AND i.name = $2 AND i.value = $3
		ORDER BY r.key
	`, c.ns, name, value)
	if err != nil {
		return nil, fmt.Errorf("list records %s by %s=%s: %w", c.ns, name, value, err)
	}
	return scanValues(rows)
}

func (c *Collection) Delete(ctx context.Context, key string) error {
	tag, err := c.pool.Exec(ctx, `
		DELETE FROM records WHERE namespace = $1 AND key = $2
	`, c.ns, key)
	if err != nil {
		return fmt.Errorf("delete record %s/%s: %w", c.ns, key, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func scanValues(rows pgx.Rows) ([][]byte, error) {
	defer rows.Close()
	out := [][]byte{}
	for rows.Next() {
		var v []byte
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
