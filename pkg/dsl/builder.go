package dsl

import (
	"sort"

	"github.com/mooncrowned/storyed/pkg/domain"
)

// Builder manages the story construction.
type Builder struct {
	nodes map[int]*NodeBuilder
}

// New creates a new story builder.
func New() *Builder {
	return &Builder{
		nodes: make(map[int]*NodeBuilder),
	}
}

// Node creates a new node in the story.
// If the node already exists, it returns the existing builder.
func (b *Builder) Node(id int) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node: domain.Node{
			ID:       id,
			Messages: []domain.Message{},
			Answers:  []domain.Answer{},
		},
		builder: b,
	}
	b.nodes[id] = nb
	return nb
}

// Build compiles the story into a node list sorted by id. Answers that
// were added without an explicit id get canonical auto-assigned ids.
func (b *Builder) Build() []*domain.Node {
	ids := make([]int, 0, len(b.nodes))
	for id := range b.nodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	nodes := make([]*domain.Node, 0, len(ids))
	for _, id := range ids {
		nb := b.nodes[id]
		seq := 0
		for i := range nb.node.Answers {
			if nb.node.Answers[i].ID == "" {
				seq++
				nb.node.Answers[i].ID = domain.FormatAnswerID(id, seq)
			}
		}
		nodes = append(nodes, nb.node.Clone())
	}
	return nodes
}
