// Package kv provides the durable key-value substrate every entity is
// persisted through. Keys are opaque `:`-delimited strings composed by
// callers; the store is the single source of truth and in-memory structures
// elsewhere are derived views rebuilt from it on startup.
package kv

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned by Get for keys that were never set or were
// deleted.
var ErrNotFound = errors.New("kv: key not found")

// Pair is one key/value entry returned by prefix scans.
type Pair struct {
	Key   string
	Value []byte
}

// Store is the durable store contract. Set overwrites, Get returns
// ErrNotFound for missing keys, GetByPrefix returns every key beginning
// with the prefix in no particular order, Delete is a no-op for missing
// keys.
type Store interface {
	Set(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	GetByPrefix(ctx context.Context, prefix string) ([]Pair, error)
	Delete(ctx context.Context, key string) error
}

// Key joins segments into a `:`-delimited store key.
func Key(segments ...string) string {
	return strings.Join(segments, ":")
}
