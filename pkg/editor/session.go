package editor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mooncrowned/storyed/internal/logging"
	"github.com/mooncrowned/storyed/internal/metrics"
	"github.com/mooncrowned/storyed/pkg/domain"
	"github.com/mooncrowned/storyed/pkg/layout"
	"github.com/mooncrowned/storyed/pkg/ports"
	"github.com/mooncrowned/storyed/pkg/session"
	"github.com/mooncrowned/storyed/pkg/story"
)

// Options configures an editor session. The zero value is usable; every
// field has a default.
type Options struct {
	Logger   *slog.Logger
	Debounce time.Duration
	Layout   layout.Options
	Measure  layout.Measure // defaults to a content-based estimate
	Metrics  *metrics.Collector

	// Locks guards the story against concurrent sessions when set.
	Locks    *session.Manager
	StoryKey string // lock key, usually the story path
}

// Session is one open story being edited. All operations are safe for
// concurrent use; mutations are serialized internally.
type Session struct {
	id     string
	repo   *story.Repository
	store  *story.Store
	sched  *story.Scheduler
	logger *slog.Logger
	stats  *metrics.Collector

	mu         sync.Mutex
	meta       *domain.StoryMeta
	layoutOpts layout.Options
	measure    layout.Measure
	result     *layout.Result
	highlight  layout.Highlight
	selected   *int

	release func(context.Context) error
}

// Open loads a story from storage and starts an editing session. The story
// must exist (see Repository.Init for creating one); an empty Nodes
// directory gets the initial node 0, persisted durably before Open returns.
func Open(ctx context.Context, storage ports.Storage, opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	s := &Session{
		id:         uuid.NewString(),
		repo:       story.NewRepository(storage, logger),
		store:      story.NewStore(),
		logger:     logger,
		stats:      opts.Metrics,
		layoutOpts: opts.Layout,
	}
	if s.layoutOpts == (layout.Options{}) {
		s.layoutOpts = layout.DefaultOptions()
	}
	s.measure = opts.Measure
	if s.measure == nil {
		s.measure = EstimateHeight(s.store)
	}

	if opts.Locks != nil {
		key := opts.StoryKey
		if key == "" {
			key = "story"
		}
		release, err := opts.Locks.Acquire(ctx, key, s.id)
		if err != nil {
			return nil, err
		}
		s.release = release
	}

	meta, err := s.repo.ReadMeta(ctx)
	if err != nil {
		s.releaseLock(ctx)
		return nil, err
	}
	s.meta = meta

	nodes, err := s.repo.LoadNodes(ctx)
	if err != nil {
		s.releaseLock(ctx)
		return nil, err
	}
	s.store.Load(nodes)

	// Node 0 always exists. Its creation is durable before any edit.
	if s.store.Len() == 0 {
		root := &domain.Node{ID: 0, Messages: []domain.Message{}, Answers: []domain.Answer{}}
		if err := s.repo.SaveNode(ctx, root); err != nil {
			s.releaseLock(ctx)
			return nil, fmt.Errorf("failed to create initial node: %w", err)
		}
		s.store.Insert(root)
		s.stats.CountNodeCreated()
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = domain.DebounceWindow
	}
	s.sched = story.NewScheduler(s.store, s.flushNode,
		story.WithDebounce(debounce),
		story.WithSchedulerLogger(logger),
	)
	s.store.OnDirty(s.sched.Schedule)

	s.mu.Lock()
	s.relayout()
	s.mu.Unlock()

	logger.Info("story opened", "session", s.id, "nodes", s.store.Len())
	return s, nil
}

func (s *Session) flushNode(ctx context.Context, n *domain.Node) error {
	err := s.repo.SaveNode(ctx, n)
	s.stats.CountFlush(err == nil)
	return err
}

func (s *Session) releaseLock(ctx context.Context) {
	if s.release == nil {
		return
	}
	if err := s.release(ctx); err != nil {
		s.logger.Warn("failed to release story lock", "err", err)
	}
	s.release = nil
}

// Close flushes every dirty node and releases the story lock. The session
// must not be used afterwards.
func (s *Session) Close(ctx context.Context) error {
	err := s.sched.Close(ctx)
	s.releaseLock(ctx)
	s.logger.Info("story closed", "session", s.id)
	return err
}

// ID returns the session instance id (used as the lock owner value).
func (s *Session) ID() string { return s.id }

// Reload replaces the in-memory node set with the current on-disk state,
// for example after an external tool edited the story. Unsaved in-memory
// edits are discarded; callers should check the scheduler for pending
// flushes first. The selection survives when its node still exists.
func (s *Session) Reload(ctx context.Context) error {
	nodes, err := s.repo.LoadNodes(ctx)
	if err != nil {
		return err
	}
	meta, err := s.repo.ReadMeta(ctx)
	if err != nil {
		return err
	}

	// The swap happens under the session mutex so no operation can see the
	// new node set against the old layout.
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Load(nodes)
	s.meta = meta
	s.relayout()
	s.logger.Info("story reloaded", "nodes", s.store.Len())
	return nil
}

// Meta returns the story metadata.
func (s *Session) Meta() *domain.StoryMeta {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta
}

// Store exposes the node store for read access and the fill workflow.
func (s *Session) Store() *story.Store { return s.store }

// Scheduler exposes the persistence scheduler, mainly for shutdown hooks.
func (s *Session) Scheduler() *story.Scheduler { return s.sched }

// Node returns a copy of one node.
func (s *Session) Node(id int) (*domain.Node, bool) { return s.store.Get(id) }

// Layout returns a snapshot of the current layout. The snapshot is
// detached: later edits reflow the live layout without touching copies
// already handed out.
func (s *Session) Layout() *layout.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result.Clone()
}

// Highlight returns the current selection highlight.
func (s *Session) Highlight() layout.Highlight {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.highlight
}

// relayout recomputes the full layout and reapplies selection. Callers hold s.mu.
func (s *Session) relayout() {
	start := time.Now()
	nodes := make([]*domain.Node, 0, s.store.Len())
	for _, id := range s.store.IDs() {
		n, _ := s.store.Get(id)
		nodes = append(nodes, n)
	}
	s.result = layout.Compute(nodes, s.measure, s.layoutOpts)
	s.applySelection()
	s.stats.ObserveLayout(time.Since(start))
}

// reflow re-stacks the existing columns with fresh heights. Callers hold s.mu.
func (s *Session) reflow() {
	s.result.Reflow(s.measure)
	s.applySelection()
}

func (s *Session) applySelection() {
	s.highlight = s.result.Select(s.selected)
	if s.highlight.Empty() {
		s.selected = nil
		return
	}
	s.result.Realign(s.highlight)
}

// Select sets (or clears, with nil) the selected node and recomputes the
// highlight and the ancestor alignment. Selecting an unknown id behaves
// like selecting nil.
func (s *Session) Select(id *int) layout.Highlight {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = id
	// Reset to the canonical stacking first so repeated selections do not
	// accumulate column shifts.
	s.result.Reflow(s.measure)
	s.applySelection()
	return s.highlight
}

// AddMessage inserts a message at index (index == len appends). Content
// change only: the graph shape is untouched.
func (s *Session) AddMessage(nodeID, index int, msg domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.store.Put(nodeID, func(n *domain.Node) {
		if index < 0 || index > len(n.Messages) {
			index = len(n.Messages)
		}
		n.Messages = append(n.Messages, domain.Message{})
		copy(n.Messages[index+1:], n.Messages[index:])
		n.Messages[index] = msg
	})
	if err != nil {
		return err
	}
	s.reflow()
	return nil
}

// UpdateMessage replaces the message at index.
func (s *Session) UpdateMessage(nodeID, index int, msg domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.putAt(nodeID, index, messageLen, func(n *domain.Node) {
		n.Messages[index] = msg
	}); err != nil {
		return err
	}
	s.reflow()
	return nil
}

// RemoveMessage deletes the message at index. No other state is cleared.
func (s *Session) RemoveMessage(nodeID, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.putAt(nodeID, index, messageLen, func(n *domain.Node) {
		n.Messages = append(n.Messages[:index], n.Messages[index+1:]...)
	}); err != nil {
		return err
	}
	s.reflow()
	return nil
}

// AddAnswer appends a fresh answer: auto-assigned id, zero delay, no
// target. The id sequence is monotonic per node and never reused.
func (s *Session) AddAnswer(nodeID int) (domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.store.Get(nodeID); !ok {
		return domain.Answer{}, domain.ErrNodeNotFound
	}
	ans := domain.Answer{ID: s.store.AllocAnswerID(nodeID), Delay: 0, NextNode: nil}
	err := s.store.Put(nodeID, func(n *domain.Node) {
		n.Answers = append(n.Answers, ans)
	})
	if err != nil {
		return domain.Answer{}, err
	}
	s.reflow()
	return ans, nil
}

// UpdateAnswer sets the answer's message text and delay. Content only; use
// SetAnswerTarget for wiring.
func (s *Session) UpdateAnswer(nodeID, index int, message string, delay float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if delay < 0 {
		delay = 0
	}
	if err := s.putAt(nodeID, index, answerLen, func(n *domain.Node) {
		n.Answers[index].Message = message
		n.Answers[index].Delay = delay
	}); err != nil {
		return err
	}
	s.reflow()
	return nil
}

// RemoveAnswer deletes the answer at index. Removing a wired answer changes
// the graph shape, so this recomputes the full layout.
func (s *Session) RemoveAnswer(nodeID, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.putAt(nodeID, index, answerLen, func(n *domain.Node) {
		n.Answers = append(n.Answers[:index], n.Answers[index+1:]...)
	}); err != nil {
		return err
	}
	s.relayout()
	return nil
}

// SetAnswerTarget points the answer at a node id, or unwires it with nil.
// The target may reference a node that does not exist yet; such edges are
// simply not drawn until the node appears.
func (s *Session) SetAnswerTarget(nodeID, index int, target *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.putAt(nodeID, index, answerLen, func(n *domain.Node) {
		n.Answers[index].NextNode = target
	}); err != nil {
		return err
	}
	s.relayout()
	return nil
}

// CreateLinkedNode allocates the next id, creates an empty node, persists
// it durably (not debounced: the node must exist on disk before the answer
// is wired to it), then points the answer at it. Returns the new node id.
func (s *Session) CreateLinkedNode(ctx context.Context, nodeID, index int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.store.Get(nodeID)
	if !ok {
		return 0, domain.ErrNodeNotFound
	}
	if index < 0 || index >= len(src.Answers) {
		return 0, fmt.Errorf("answer %d on node %d: %w", index, nodeID, domain.ErrIndexOutOfRange)
	}

	newID := s.store.NextID()
	created := &domain.Node{ID: newID, Messages: []domain.Message{}, Answers: []domain.Answer{}}
	if err := s.repo.SaveNode(ctx, created); err != nil {
		// Storage failed before any in-memory mutation: the graph is
		// unchanged.
		return 0, err
	}
	s.store.Insert(created)
	s.stats.CountNodeCreated()

	err := s.store.Put(nodeID, func(n *domain.Node) {
		n.Answers[index].NextNode = &newID
	})
	if err != nil {
		return 0, err
	}
	s.relayout()
	s.logger.Info("linked node created", "from", nodeID, "answer", index, "node", newID)
	return newID, nil
}

// putAt runs a mutation that needs a valid index into one of the node's
// slices. length picks which slice is being indexed.
func (s *Session) putAt(nodeID, index int, length func(*domain.Node) int, mutate func(*domain.Node)) error {
	var bad bool
	err := s.store.Put(nodeID, func(n *domain.Node) {
		if index < 0 || index >= length(n) {
			bad = true
			return
		}
		mutate(n)
	})
	if err != nil {
		return err
	}
	if bad {
		return fmt.Errorf("index %d on node %d: %w", index, nodeID, domain.ErrIndexOutOfRange)
	}
	return nil
}

func messageLen(n *domain.Node) int { return len(n.Messages) }
func answerLen(n *domain.Node) int  { return len(n.Answers) }

// EstimateHeight is the default measurement callback: a crude content-based
// estimate used when no renderer is injected. Real hosts measure rendered
// DOM/TUI height and pass their own callback.
func EstimateHeight(store *story.Store) layout.Measure {
	const (
		base      = 80.0
		perMsg    = 90.0
		perAnswer = 34.0
	)
	return func(id int) float64 {
		n, ok := store.Get(id)
		if !ok {
			return base
		}
		return base + perMsg*float64(len(n.Messages)) + perAnswer*float64(len(n.Answers))
	}
}
