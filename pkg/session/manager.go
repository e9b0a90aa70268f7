package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/mooncrowned/storyed/internal/logging"
	"github.com/mooncrowned/storyed/pkg/domain"
	"github.com/mooncrowned/storyed/pkg/ports"
)

// DefaultLeaseTTL bounds how long a crashed session can hold a distributed
// lock before it expires on its own.
const DefaultLeaseTTL = 30 * time.Second

type lease struct {
	owner  string
	unlock ports.UnlockFunc
}

// Manager hands out exclusive story leases. A story can be held by exactly
// one owner at a time; acquiring a held story fails immediately with
// domain.ErrStoryLocked instead of blocking, because an editor waiting on
// another editor helps nobody.
type Manager struct {
	mu     sync.Mutex
	leases map[string]*lease

	locker ports.DistributedLocker // optional
	ttl    time.Duration
	logger *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker extends exclusivity across processes.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLeaseTTL overrides the distributed lease TTL.
func WithLeaseTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.ttl = ttl
	}
}

// WithLogger configures a logger for deferred errors.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a lease manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		leases: make(map[string]*lease),
		ttl:    DefaultLeaseTTL,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Acquire takes the story lease for owner. The returned release function
// must be called exactly once when the session closes.
func (m *Manager) Acquire(ctx context.Context, key, owner string) (func(context.Context) error, error) {
	m.mu.Lock()
	if held, ok := m.leases[key]; ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w (held by %s)", domain.ErrStoryLocked, held.owner)
	}
	entry := &lease{owner: owner}
	m.leases[key] = entry
	m.mu.Unlock()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, key, m.ttl)
		if err != nil {
			m.mu.Lock()
			delete(m.leases, key)
			m.mu.Unlock()
			return nil, fmt.Errorf("failed to acquire distributed story lock: %w", err)
		}
		entry.unlock = unlock
	}

	released := false
	return func(ctx context.Context) error {
		m.mu.Lock()
		if released {
			m.mu.Unlock()
			return nil
		}
		released = true
		delete(m.leases, key)
		m.mu.Unlock()

		if entry.unlock != nil {
			if err := entry.unlock(ctx); err != nil {
				m.logger.Warn("failed to release distributed lock (will expire via TTL)",
					"story", key, "err", err)
				return err
			}
		}
		return nil
	}, nil
}

// Holder reports the current owner of a story lease, if any.
func (m *Manager) Holder(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leases[key]
	if !ok {
		return "", false
	}
	return l.owner, true
}
