package story

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mooncrowned/storyed/internal/logging"
	"github.com/mooncrowned/storyed/pkg/domain"
)

// FlushFunc serializes one node's current in-memory state to storage.
type FlushFunc func(ctx context.Context, n *domain.Node) error

// Scheduler debounces node saves. Each Schedule call (re)starts the node's
// debounce window; when it expires, the node's state at that moment is
// flushed. At most one timer is pending per id, so N schedules inside the
// window coalesce into a single flush carrying the final state.
//
// A failed flush is logged and recovered locally: there is no automatic
// retry, the next Schedule for that node tries again.
type Scheduler struct {
	store  *Store
	flush  FlushFunc
	delay  time.Duration
	logger *slog.Logger

	mu     sync.Mutex
	timers map[int]*pendingTimer
	gen    uint64
	closed bool

	inflight sync.WaitGroup
}

// pendingTimer is one armed debounce window. The generation ties a fired
// timer back to its own map entry: a timer that fired just as Schedule
// replaced it must not clear the fresh entry.
type pendingTimer struct {
	timer *time.Timer
	gen   uint64
}

// SchedulerOption configures the Scheduler.
type SchedulerOption func(*Scheduler)

// WithDebounce overrides the default debounce window.
func WithDebounce(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.delay = d
	}
}

// WithSchedulerLogger configures a logger for flush outcomes.
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// NewScheduler creates a scheduler flushing the given store through flush.
func NewScheduler(store *Store, flush FlushFunc, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		store:  store,
		flush:  flush,
		delay:  domain.DebounceWindow,
		logger: logging.NewNop(),
		timers: make(map[int]*pendingTimer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule (re)starts the debounce window for the node. Calling it for a
// node with a pending timer cancels and restarts that timer.
func (s *Scheduler) Schedule(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if e, ok := s.timers[id]; ok {
		// A stopped timer never runs its func, so balance its Add here.
		if e.timer.Stop() {
			s.inflight.Done()
		}
	}
	s.gen++
	gen := s.gen
	s.inflight.Add(1)
	s.timers[id] = &pendingTimer{
		gen: gen,
		timer: time.AfterFunc(s.delay, func() {
			defer s.inflight.Done()
			s.expire(id, gen)
		}),
	}
}

// expire runs on the timer goroutine: clear the pending entry, then flush.
func (s *Scheduler) expire(id int, gen uint64) {
	s.mu.Lock()
	if e, ok := s.timers[id]; ok {
		if e.gen != gen {
			// Schedule replaced this window between the timer firing and
			// expire taking the lock. The fresh window carries the flush.
			s.mu.Unlock()
			return
		}
		delete(s.timers, id)
	}
	s.mu.Unlock()
	s.flushNode(context.Background(), id)
}

func (s *Scheduler) flushNode(ctx context.Context, id int) {
	n, ok := s.store.Get(id)
	if !ok {
		s.logger.Warn("skipping flush of unknown node", "node", id)
		return
	}
	if err := s.flush(ctx, n); err != nil {
		// Node-scoped: other nodes' flushes proceed, the next mutation
		// reschedules this one.
		s.logger.Error("node flush failed", "node", id, "err", err)
		return
	}
	s.logger.Debug("node flushed", "node", id)
}

// FlushNow cancels any pending timer for the node and flushes it
// synchronously. Used where durability must precede further edits, such as
// node creation.
func (s *Scheduler) FlushNow(ctx context.Context, id int) error {
	s.mu.Lock()
	if e, ok := s.timers[id]; ok {
		if e.timer.Stop() {
			s.inflight.Done()
		}
		delete(s.timers, id)
	}
	s.mu.Unlock()

	n, ok := s.store.Get(id)
	if !ok {
		return domain.ErrNodeNotFound
	}
	return s.flush(ctx, n)
}

// Pending returns the ids with an armed debounce timer, ascending.
func (s *Scheduler) Pending() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int, 0, len(s.timers))
	for id := range s.timers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Close stops accepting schedules, cancels pending timers and flushes the
// nodes they covered synchronously. The first flush error is returned after
// all nodes were attempted.
func (s *Scheduler) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	pending := make([]int, 0, len(s.timers))
	for id, e := range s.timers {
		if e.timer.Stop() {
			s.inflight.Done()
			pending = append(pending, id)
		}
	}
	s.timers = make(map[int]*pendingTimer)
	s.mu.Unlock()

	// Timers that already fired finish their flush before we proceed.
	s.inflight.Wait()

	sort.Ints(pending)
	var firstErr error
	for _, id := range pending {
		n, ok := s.store.Get(id)
		if !ok {
			continue
		}
		if err := s.flush(ctx, n); err != nil {
			s.logger.Error("flush on close failed", "node", id, "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
