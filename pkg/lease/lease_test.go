package lease

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hollandale/creekrun/pkg/kv"
)

func TestLocker_AcquireRelease(t *testing.T) {
	locker := NewLocker(kv.NewMemoryStore())
	ctx := context.Background()

	lease, err := locker.Acquire(ctx, "refresh", time.Minute)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	// Second acquire while held must fail
	if _, err := locker.Acquire(ctx, "refresh", time.Minute); !errors.Is(err, ErrHeld) {
		t.Errorf("Expected ErrHeld, got %v", err)
	}

	if err := lease.Release(ctx); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	// Released lease can be re-acquired
	if _, err := locker.Acquire(ctx, "refresh", time.Minute); err != nil {
		t.Errorf("Acquire after release failed: %v", err)
	}
}

func TestLocker_DifferentNames(t *testing.T) {
	locker := NewLocker(kv.NewMemoryStore())
	ctx := context.Background()

	if _, err := locker.Acquire(ctx, "refresh", time.Minute); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	// A different job name is an independent lease
	if _, err := locker.Acquire(ctx, "other", time.Minute); err != nil {
		t.Errorf("Acquire for different name failed: %v", err)
	}
}

func TestLocker_ExpiredLease(t *testing.T) {
	locker := NewLocker(kv.NewMemoryStore())
	ctx := context.Background()

	if _, err := locker.Acquire(ctx, "refresh", 10*time.Millisecond); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	// The expired lease no longer blocks acquisition
	if _, err := locker.Acquire(ctx, "refresh", time.Minute); err != nil {
		t.Errorf("Acquire after expiry failed: %v", err)
	}
}

func TestLease_ReleaseAfterExpiryAndReacquire(t *testing.T) {
	locker := NewLocker(kv.NewMemoryStore())
	ctx := context.Background()

	first, err := locker.Acquire(ctx, "refresh", 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	time.Sleep(20 * time.Millisecond)

	second, err := locker.Acquire(ctx, "refresh", time.Minute)
	if err != nil {
		t.Fatalf("Re-acquire failed: %v", err)
	}

	// Releasing the stale lease must not free the new holder's lock
	if err := first.Release(ctx); err != nil {
		t.Fatalf("Release of stale lease failed: %v", err)
	}

	if _, err := locker.Acquire(ctx, "refresh", time.Minute); !errors.Is(err, ErrHeld) {
		t.Errorf("Expected ErrHeld while second lease active, got %v", err)
	}

	_ = second.Release(ctx)
}

func TestLease_ReleaseLeavesForeignHolder(t *testing.T) {
	store := kv.NewMemoryStore()
	locker := NewLocker(store)
	ctx := context.Background()

	lease, err := locker.Acquire(ctx, "refresh", time.Minute)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	// The key changing hands after expiry looks like this at the store
	// level: same key, different holder value.
	key := keyPrefix + "refresh"
	if err := store.Set(ctx, key, []byte("other-holder"), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if err := lease.Release(ctx); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("the new holder's lock was removed: %v", err)
	}
	if string(got) != "other-holder" {
		t.Errorf("unexpected holder after stale release: %q", got)
	}
}
