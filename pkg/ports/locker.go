package ports

import (
	"context"
	"time"
)

// UnlockFunc is a function that releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker defines the interface for cross-process concurrency
// control. It lets the session lock manager guarantee a single editor
// session per story even when several editor instances share a machine.
type DistributedLocker interface {
	// Lock attempts to acquire a distributed lock for the given key (e.g., the story path).
	// It blocks until the lock is acquired, the context is canceled, or the TTL expires (implementation specific).
	// Returns an UnlockFunc that MUST be called to release the lock.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
