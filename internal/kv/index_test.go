package kv

import (
	"context"
	"errors"
	"testing"
)

func TestIndexPutWritesPrimaryAndSecondaries(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	index := NewIndex(store)

	err := index.Put(ctx, "session:s1", []byte(`{"id":"s1"}`), "s1",
		"byrequester:r1:s1", "byworker:w1:s1")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	primary, err := store.Get(ctx, "session:s1")
	if err != nil {
		t.Fatalf("primary missing: %v", err)
	}
	if string(primary) != `{"id":"s1"}` {
		t.Fatalf("primary = %q", primary)
	}
	for _, key := range []string{"byrequester:r1:s1", "byworker:w1:s1"} {
		raw, err := store.Get(ctx, key)
		if err != nil {
			t.Fatalf("secondary %s missing: %v", key, err)
		}
		pointer, err := DecodePointer(raw)
		if err != nil {
			t.Fatalf("secondary %s not decodable: %v", key, err)
		}
		if pointer != "s1" {
			t.Fatalf("secondary %s = %q, want entity id", key, pointer)
		}
	}
}

func TestIndexDeleteRemovesBoth(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	index := NewIndex(store)

	if err := index.Put(ctx, "session:s1", []byte("v"), "s1", "byworker:w1:s1"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := index.Delete(ctx, "session:s1", "byworker:w1:s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, "session:s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("primary survived delete: %v", err)
	}
	if _, err := store.Get(ctx, "byworker:w1:s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("secondary survived delete: %v", err)
	}
}

func TestIndexEnumerateResolvesEntities(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	index := NewIndex(store)

	for _, id := range []string{"s1", "s2", "s3"} {
		err := index.Put(ctx, "session:"+id, []byte("payload-"+id), id, "byrequester:r1:"+id)
		if err != nil {
			t.Fatalf("Put %s: %v", id, err)
		}
	}

	values, err := index.Enumerate(ctx, "byrequester:r1:", "session:")
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if len(values) != 3 {
		t.Fatalf("Enumerate returned %d values, want 3", len(values))
	}
	seen := make(map[string]bool)
	for _, value := range values {
		seen[string(value)] = true
	}
	for _, id := range []string{"s1", "s2", "s3"} {
		if !seen["payload-"+id] {
			t.Fatalf("Enumerate missing payload for %s", id)
		}
	}
}

func TestIndexEnumerateSkipsDanglingPointers(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	index := NewIndex(store)

	if err := index.Put(ctx, "session:s1", []byte("v1"), "s1", "byrequester:r1:s1"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	// secondary entry whose primary record no longer exists
	dangling, err := EncodePointer("gone")
	if err != nil {
		t.Fatalf("EncodePointer: %v", err)
	}
	if err := store.Set(ctx, "byrequester:r1:gone", dangling); err != nil {
		t.Fatalf("Set dangling: %v", err)
	}

	values, err := index.Enumerate(ctx, "byrequester:r1:", "session:")
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if len(values) != 1 || string(values[0]) != "v1" {
		t.Fatalf("Enumerate = %d values, want the single live entity", len(values))
	}
}
