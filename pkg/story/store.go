package story

import (
	"sort"
	"sync"

	"github.com/mooncrowned/storyed/pkg/domain"
)

// Store is the in-memory node store. It owns every node document; callers
// read through Get (clones) and mutate through Put so no edit can bypass
// dirty tracking. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	nodes    map[int]*domain.Node
	counters map[int]int // highest answer seq ever seen, per node
	onDirty  func(id int)
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		nodes:    make(map[int]*domain.Node),
		counters: make(map[int]int),
	}
}

// OnDirty registers the callback invoked after every mutation with the
// mutated node's id. The persistence scheduler hooks in here.
func (s *Store) OnDirty(fn func(id int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDirty = fn
}

// Load replaces the entire in-memory set with the given nodes and recovers
// the per-node answer id counters from the highest auto-assigned sequence
// present, so counters stay monotonic across editor restarts.
func (s *Store) Load(nodes []*domain.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodes = make(map[int]*domain.Node, len(nodes))
	s.counters = make(map[int]int, len(nodes))
	for _, n := range nodes {
		c := n.Clone()
		s.nodes[c.ID] = c
		for _, a := range c.Answers {
			if seq, ok := domain.ParseAnswerSeq(a.ID, c.ID); ok && seq > s.counters[c.ID] {
				s.counters[c.ID] = seq
			}
		}
	}
}

// Get returns a deep copy of the node, or false when absent.
func (s *Store) Get(id int) (*domain.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return nil, false
	}
	return n.Clone(), true
}

// Put applies a mutation to the node and marks it dirty. The mutator runs
// under the store lock and must not call back into the store.
func (s *Store) Put(id int, mutate func(n *domain.Node)) error {
	s.mu.Lock()
	n, ok := s.nodes[id]
	if !ok {
		s.mu.Unlock()
		return domain.ErrNodeNotFound
	}
	mutate(n)
	notify := s.onDirty
	s.mu.Unlock()

	if notify != nil {
		notify(id)
	}
	return nil
}

// Insert adds a newly created node. It does not mark the node dirty: node
// creation is persisted synchronously by the session before any answer is
// wired to it.
func (s *Store) Insert(n *domain.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[n.ID] = n.Clone()
}

// NextID returns the smallest non-negative id greater than every existing
// id: max+1, or 0 for an empty store.
func (s *Store) NextID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	next := 0
	for id := range s.nodes {
		if id >= next {
			next = id + 1
		}
	}
	return next
}

// AllocAnswerID hands out the next auto-assigned answer id for the node.
// Sequences are monotonic and never reused, even after deletions.
func (s *Store) AllocAnswerID(nodeID int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[nodeID]++
	return domain.FormatAnswerID(nodeID, s.counters[nodeID])
}

// IDs returns all node ids in ascending order.
func (s *Store) IDs() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]int, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Len returns the number of nodes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}
