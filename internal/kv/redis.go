package kv

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on a Redis database. Prefix scans use SCAN
// with a MATCH pattern, so they are safe against large keyspaces.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Set creates or overwrites the entry for key.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

// Get returns the value for key or ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return value, nil
}

// GetByPrefix returns every stored pair whose key begins with prefix.
func (s *RedisStore) GetByPrefix(ctx context.Context, prefix string) ([]Pair, error) {
	var pairs []Pair
	iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		value, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// deleted between scan and fetch
				continue
			}
			return nil, err
		}
		pairs = append(pairs, Pair{Key: key, Value: value})
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return pairs, nil
}

// Delete removes the entry for key if present.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
