package kv

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStore_SetNX(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	ok, err := store.SetNX(ctx, "k", []byte("a"), time.Minute)
	if err != nil || !ok {
		t.Fatalf("first SetNX: ok=%v err=%v", ok, err)
	}

	ok, err = store.SetNX(ctx, "k", []byte("b"), time.Minute)
	if err != nil {
		t.Fatalf("second SetNX failed: %v", err)
	}
	if ok {
		t.Error("SetNX must not overwrite a live key")
	}
}

func TestMemoryStore_CompareAndDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Set(ctx, "k", []byte("holder-a"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Wrong value leaves the key in place
	deleted, err := store.CompareAndDelete(ctx, "k", []byte("holder-b"))
	if err != nil {
		t.Fatalf("CompareAndDelete failed: %v", err)
	}
	if deleted {
		t.Error("CompareAndDelete must not delete on a value mismatch")
	}
	if _, err := store.Get(ctx, "k"); err != nil {
		t.Errorf("key should still exist after mismatch, got %v", err)
	}

	// Matching value deletes
	deleted, err = store.CompareAndDelete(ctx, "k", []byte("holder-a"))
	if err != nil {
		t.Fatalf("CompareAndDelete failed: %v", err)
	}
	if !deleted {
		t.Error("CompareAndDelete should delete on a value match")
	}
	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	// Missing key is not an error
	deleted, err = store.CompareAndDelete(ctx, "gone", []byte("x"))
	if err != nil || deleted {
		t.Errorf("missing key: deleted=%v err=%v", deleted, err)
	}
}

func TestMemoryStore_ExpiredKeyIsGone(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Set(ctx, "k", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for expired key, got %v", err)
	}
	if deleted, _ := store.CompareAndDelete(ctx, "k", []byte("v")); deleted {
		t.Error("CompareAndDelete must treat an expired key as absent")
	}
}
