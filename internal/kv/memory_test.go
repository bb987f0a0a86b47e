package kv

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
)

func TestMemoryStoreSetGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Set(ctx, "request:1", []byte(`{"id":"1"}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := store.Get(ctx, "request:1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `{"id":"1"}` {
		t.Fatalf("Get = %q, want %q", got, `{"id":"1"}`)
	}

	if err := store.Set(ctx, "request:1", []byte(`{"id":"1","v":2}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err = store.Get(ctx, "request:1")
	if err != nil {
		t.Fatalf("Get after overwrite: %v", err)
	}
	if string(got) != `{"id":"1","v":2}` {
		t.Fatalf("Get after overwrite = %q", got)
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get missing = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Delete(ctx, "absent"); err != nil {
		t.Fatalf("Delete absent key: %v", err)
	}

	if err := store.Set(ctx, "worker:w1", []byte("x")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Delete(ctx, "worker:w1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "worker:w1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after delete = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreGetByPrefix(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	keys := []string{"queued:a", "queued:b", "queued:c", "request:a", "session:s1"}
	for _, key := range keys {
		if err := store.Set(ctx, key, []byte(key)); err != nil {
			t.Fatalf("Set %s: %v", key, err)
		}
	}

	pairs, err := store.GetByPrefix(ctx, "queued:")
	if err != nil {
		t.Fatalf("GetByPrefix: %v", err)
	}
	if len(pairs) != 3 {
		t.Fatalf("GetByPrefix returned %d pairs, want 3", len(pairs))
	}
	for _, pair := range pairs {
		if string(pair.Value) != pair.Key {
			t.Fatalf("pair %s holds %q", pair.Key, pair.Value)
		}
	}

	pairs, err = store.GetByPrefix(ctx, "missing:")
	if err != nil {
		t.Fatalf("GetByPrefix empty: %v", err)
	}
	if len(pairs) != 0 {
		t.Fatalf("GetByPrefix empty returned %d pairs", len(pairs))
	}
}

func TestMemoryStoreValueIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	original := []byte("abc")
	if err := store.Set(ctx, "k", original); err != nil {
		t.Fatalf("Set: %v", err)
	}
	original[0] = 'z'

	got, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "abc" {
		t.Fatalf("stored value mutated through caller slice: %q", got)
	}
	got[0] = 'z'

	again, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get again: %v", err)
	}
	if string(again) != "abc" {
		t.Fatalf("stored value mutated through returned slice: %q", again)
	}
}

func TestMemoryStoreRandomizedOperations(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	rng := rand.New(rand.NewSource(7))
	shadow := make(map[string]string)

	for i := 0; i < 2000; i++ {
		key := fmt.Sprintf("entity:%d", rng.Intn(50))
		switch rng.Intn(3) {
		case 0:
			value := fmt.Sprintf("v%d", i)
			if err := store.Set(ctx, key, []byte(value)); err != nil {
				t.Fatalf("Set: %v", err)
			}
			shadow[key] = value
		case 1:
			if err := store.Delete(ctx, key); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			delete(shadow, key)
		default:
			got, err := store.Get(ctx, key)
			want, ok := shadow[key]
			if !ok {
				if !errors.Is(err, ErrNotFound) {
					t.Fatalf("Get %s = %v, want ErrNotFound", key, err)
				}
				continue
			}
			if err != nil {
				t.Fatalf("Get %s: %v", key, err)
			}
			if string(got) != want {
				t.Fatalf("Get %s = %q, want %q", key, got, want)
			}
		}
	}

	pairs, err := store.GetByPrefix(ctx, "entity:")
	if err != nil {
		t.Fatalf("GetByPrefix: %v", err)
	}
	if len(pairs) != len(shadow) {
		t.Fatalf("final scan has %d entries, shadow has %d", len(pairs), len(shadow))
	}
}

func TestKeyJoinsSegments(t *testing.T) {
	if got := Key("session", "s1"); got != "session:s1" {
		t.Fatalf("Key = %q", got)
	}
}
