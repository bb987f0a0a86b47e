package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Index layers secondary pointers over a Store so collections can be
// enumerated by a foreign key without full scans. A secondary entry's key is
// `{collection}:{foreign_key}:{entity_id}` and its value is the primary
// entity id, JSON-encoded like every other stored value so backends with a
// JSON value column accept it. Primary and secondary writes for one logical
// operation happen under a single critical section, so readers never observe
// one without the other.
type Index struct {
	mu    sync.Mutex
	store Store
}

// NewIndex wraps a store.
func NewIndex(store Store) *Index {
	return &Index{store: store}
}

// Store exposes the underlying store for plain primary-key operations.
func (ix *Index) Store() Store {
	return ix.store
}

// Put writes the primary record and every secondary entry pointing at it.
// Secondary values hold the primary entity id.
func (ix *Index) Put(ctx context.Context, primaryKey string, value []byte, entityID string, indexKeys ...string) error {
	pointer, err := EncodePointer(entityID)
	if err != nil {
		return err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if err := ix.store.Set(ctx, primaryKey, value); err != nil {
		return err
	}
	for _, key := range indexKeys {
		if err := ix.store.Set(ctx, key, pointer); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the primary record together with its secondary entries.
func (ix *Index) Delete(ctx context.Context, primaryKey string, indexKeys ...string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, key := range indexKeys {
		if err := ix.store.Delete(ctx, key); err != nil {
			return err
		}
	}
	return ix.store.Delete(ctx, primaryKey)
}

// Enumerate scans the secondary entries under prefix and resolves each
// pointed-at entity through the primary store. Entries whose primary record
// vanished concurrently are skipped.
func (ix *Index) Enumerate(ctx context.Context, prefix, primaryPrefix string) ([][]byte, error) {
	pairs, err := ix.store.GetByPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}

	values := make([][]byte, 0, len(pairs))
	for _, pair := range pairs {
		entityID, err := DecodePointer(pair.Value)
		if err != nil {
			return nil, err
		}
		value, err := ix.store.Get(ctx, primaryPrefix+entityID)
		if err != nil {
			if err == ErrNotFound {
				continue
			}
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}

// EncodePointer serializes an id for storage as a value. Backends may put
// values in a JSON column, so a bare id string is not storable as-is.
func EncodePointer(id string) ([]byte, error) {
	return json.Marshal(id)
}

// DecodePointer reverses EncodePointer.
func DecodePointer(value []byte) (string, error) {
	var id string
	if err := json.Unmarshal(value, &id); err != nil {
		return "", fmt.Errorf("decode pointer value %q: %w", value, err)
	}
	return id, nil
}
