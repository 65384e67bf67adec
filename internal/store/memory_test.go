package store

import (
	"context"
	"reflect"
	"testing"
)

func TestMemory_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	if _, ok, err := s.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("get absent: ok=%v err=%v, want absent", ok, err)
	}

	if err := s.Put(ctx, "k", "v1"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if v, ok, _ := s.Get(ctx, "k"); !ok || v != "v1" {
		t.Fatalf("get: ok=%v v=%q, want v1", ok, v)
	}

	// Put overwrites.
	if err := s.Put(ctx, "k", "v2"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if v, _, _ := s.Get(ctx, "k"); v != "v2" {
		t.Fatalf("get after overwrite: v=%q, want v2", v)
	}

	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatalf("key survived delete")
	}

	// Deleting an absent key is not an error.
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete absent: %v", err)
	}
}

func TestMemory_ListPrefixSorted(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	for _, k := range []string{"SUBS_GROUP:b", "SUBS_GROUP:a", "SUBS_CONFIG", "other"} {
		if err := s.Put(ctx, k, "x"); err != nil {
			t.Fatalf("put %q: %v", k, err)
		}
	}

	keys, err := s.List(ctx, "SUBS_GROUP:")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"SUBS_GROUP:a", "SUBS_GROUP:b"}
	if !reflect.DeepEqual(keys, want) {
		t.Fatalf("keys=%v, want=%v", keys, want)
	}
}
