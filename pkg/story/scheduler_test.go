package story

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mooncrowned/storyed/pkg/domain"
)

// flushRecorder collects flushed node snapshots, optionally failing some.
type flushRecorder struct {
	mu      sync.Mutex
	flushed []*domain.Node
	failFor map[int]error
}

func (f *flushRecorder) flush(ctx context.Context, n *domain.Node) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failFor[n.ID]; err != nil {
		return err
	}
	f.flushed = append(f.flushed, n)
	return nil
}

func (f *flushRecorder) snapshot() []*domain.Node {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*domain.Node(nil), f.flushed...)
}

func TestSchedulerCoalescesBurst(t *testing.T) {
	store := NewStore()
	store.Load([]*domain.Node{{ID: 0}})
	rec := &flushRecorder{}
	s := NewScheduler(store, rec.flush, WithDebounce(30*time.Millisecond))
	defer s.Close(context.Background())

	// Three quick edits inside one debounce window.
	for i := 0; i < 3; i++ {
		err := store.Put(0, func(n *domain.Node) {
			n.Messages = append(n.Messages, domain.NewTextMessage("anna", "edit"))
		})
		require.NoError(t, err)
		s.Schedule(0)
	}

	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 1
	}, time.Second, 5*time.Millisecond, "the burst must coalesce into one flush")

	// The single flush carries the final state, not the first edit.
	got := rec.snapshot()
	assert.Len(t, got[0].Messages, 3)

	// No second flush sneaks in afterwards.
	time.Sleep(80 * time.Millisecond)
	assert.Len(t, rec.snapshot(), 1)
}

func TestSchedulerFailureIsNodeScoped(t *testing.T) {
	store := NewStore()
	store.Load([]*domain.Node{{ID: 1}, {ID: 2}})
	rec := &flushRecorder{failFor: map[int]error{1: errors.New("disk full")}}
	s := NewScheduler(store, rec.flush, WithDebounce(10*time.Millisecond))
	defer s.Close(context.Background())

	s.Schedule(1)
	s.Schedule(2)

	require.Eventually(t, func() bool {
		flushed := rec.snapshot()
		return len(flushed) == 1 && flushed[0].ID == 2
	}, time.Second, 5*time.Millisecond, "node 2 must flush despite node 1 failing")

	// No automatic retry for node 1.
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, rec.snapshot(), 1)
	assert.Empty(t, s.Pending())
}

func TestSchedulerFlushNow(t *testing.T) {
	store := NewStore()
	store.Load([]*domain.Node{{ID: 0}})
	rec := &flushRecorder{}
	s := NewScheduler(store, rec.flush, WithDebounce(time.Hour))
	defer s.Close(context.Background())

	s.Schedule(0)
	require.Equal(t, []int{0}, s.Pending())

	require.NoError(t, s.FlushNow(context.Background(), 0))
	assert.Len(t, rec.snapshot(), 1)
	assert.Empty(t, s.Pending(), "FlushNow must cancel the armed timer")

	assert.ErrorIs(t, s.FlushNow(context.Background(), 42), domain.ErrNodeNotFound)
}

func TestSchedulerStaleExpiryLeavesFreshWindowAlone(t *testing.T) {
	store := NewStore()
	store.Load([]*domain.Node{{ID: 0}})
	rec := &flushRecorder{}
	s := NewScheduler(store, rec.flush, WithDebounce(time.Hour))
	defer s.Close(context.Background())

	s.Schedule(0)
	s.mu.Lock()
	fresh := s.timers[0].gen
	s.mu.Unlock()

	// A timer that fired just as Schedule restarted its window reaches
	// expire carrying the old generation. It must neither flush nor drop
	// the freshly armed window from the books.
	s.expire(0, fresh-1)

	assert.Equal(t, []int{0}, s.Pending(), "the restarted window stays cancellable")
	assert.Empty(t, rec.snapshot(), "the fresh window carries the flush")

	require.NoError(t, s.FlushNow(context.Background(), 0))
	assert.Empty(t, s.Pending())
	assert.Len(t, rec.snapshot(), 1)
}

func TestSchedulerRescheduleRestartsWindow(t *testing.T) {
	store := NewStore()
	store.Load([]*domain.Node{{ID: 0}})
	rec := &flushRecorder{}
	s := NewScheduler(store, rec.flush, WithDebounce(40*time.Millisecond))
	defer s.Close(context.Background())

	s.Schedule(0)
	time.Sleep(25 * time.Millisecond)
	s.Schedule(0) // restart before expiry

	// The original window would have fired by now; the restarted one not yet.
	time.Sleep(25 * time.Millisecond)
	assert.Empty(t, rec.snapshot(), "restarted window must not fire early")

	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestSchedulerCloseFlushesPending(t *testing.T) {
	store := NewStore()
	store.Load([]*domain.Node{{ID: 0}, {ID: 3}})
	rec := &flushRecorder{}
	s := NewScheduler(store, rec.flush, WithDebounce(time.Hour))

	s.Schedule(3)
	s.Schedule(0)

	require.NoError(t, s.Close(context.Background()))
	flushed := rec.snapshot()
	require.Len(t, flushed, 2)
	assert.Equal(t, 0, flushed[0].ID, "close flushes in ascending id order")
	assert.Equal(t, 3, flushed[1].ID)

	// Further schedules after close are ignored.
	s.Schedule(0)
	assert.Empty(t, s.Pending())
}

func TestSchedulerCloseReturnsFirstError(t *testing.T) {
	store := NewStore()
	store.Load([]*domain.Node{{ID: 0}, {ID: 1}})
	boom := errors.New("boom")
	rec := &flushRecorder{failFor: map[int]error{0: boom}}
	s := NewScheduler(store, rec.flush, WithDebounce(time.Hour))

	s.Schedule(0)
	s.Schedule(1)

	err := s.Close(context.Background())
	assert.ErrorIs(t, err, boom)
	// The failing node does not abort the rest.
	flushed := rec.snapshot()
	require.Len(t, flushed, 1)
	assert.Equal(t, 1, flushed[0].ID)
}
