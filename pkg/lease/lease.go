// Package lease implements named, expiring locks on top of kv.Store.
// A lease is acquired before an invocation is provisioned and released on
// terminal status, so two triggers for the same job never overlap. The TTL
// bounds how long a crashed holder can block the next trigger.
package lease

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hollandale/creekrun/pkg/kv"
)

// ErrHeld is returned when another holder currently owns the lease.
var ErrHeld = errors.New("lease: already held")

const keyPrefix = "creekrun:lease:"

// Locker acquires leases against a shared kv.Store.
type Locker struct {
	store kv.Store
}

// Lease represents one acquired lock. Release is idempotent.
type Lease struct {
	store  kv.Store
	key    string
	holder string
}

// NewLocker creates a Locker backed by the given store.
func NewLocker(store kv.Store) *Locker {
	return &Locker{store: store}
}

// Acquire takes the named lease for at most ttl. It returns ErrHeld when
// the lease is currently owned by someone else.
func (l *Locker) Acquire(ctx context.Context, name string, ttl time.Duration) (*Lease, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("lease: ttl must be positive, got %s", ttl)
	}

	holder := uuid.New().String()
	key := keyPrefix + name

	ok, err := l.store.SetNX(ctx, key, []byte(holder), ttl)
	if err != nil {
		return nil, fmt.Errorf("lease: acquiring %s: %w", name, err)
	}
	if !ok {
		return nil, ErrHeld
	}

	return &Lease{store: l.store, key: key, holder: holder}, nil
}

// Release frees the lease if this holder still owns it. The check and
// the delete happen in one store operation, so a lease that expired and
// was re-acquired between them can never be removed from under the new
// holder.
func (le *Lease) Release(ctx context.Context) error {
	if _, err := le.store.CompareAndDelete(ctx, le.key, []byte(le.holder)); err != nil {
		return fmt.Errorf("lease: releasing %s: %w", le.key, err)
	}
	return nil
}
