package kv

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on a single kv_store table. Values are
// stored as jsonb; entities serialize to JSON documents and index pointers
// are JSON-encoded id strings, so every write parses.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Set creates or overwrites the entry for key.
func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	const query = `
        INSERT INTO kv_store (k, v) VALUES ($1, $2)
        ON CONFLICT (k) DO UPDATE SET v = EXCLUDED.v`
	_, err := s.pool.Exec(ctx, query, key, value)
	return err
}

// Get returns the value for key or ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	const query = `SELECT v FROM kv_store WHERE k = $1`
	var value []byte
	if err := s.pool.QueryRow(ctx, query, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

// GetByPrefix returns every stored pair whose key begins with prefix.
func (s *PostgresStore) GetByPrefix(ctx context.Context, prefix string) ([]Pair, error) {
	const query = `SELECT k, v FROM kv_store WHERE k LIKE $1 || '%'`
	rows, err := s.pool.Query(ctx, query, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pairs []Pair
	for rows.Next() {
		var pair Pair
		if err := rows.Scan(&pair.Key, &pair.Value); err != nil {
			return nil, err
		}
		pairs = append(pairs, pair)
	}
	return pairs, rows.Err()
}

// Delete removes the entry for key if present.
func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	const query = `DELETE FROM kv_store WHERE k = $1`
	_, err := s.pool.Exec(ctx, query, key)
	return err
}
