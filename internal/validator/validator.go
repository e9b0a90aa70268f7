// Package validator checks a loaded story for structural problems before
// publishing: unreachable nodes, answers pointing at missing nodes and
// photo messages still waiting for an image.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mooncrowned/storyed/pkg/domain"
)

// Problem is one finding, tied to the node it was found in.
type Problem struct {
	NodeID  int
	Message string
}

func (p Problem) String() string {
	return fmt.Sprintf("node %d: %s", p.NodeID, p.Message)
}

// ValidateStory crawls the story from its root and collects problems.
// An empty result means the story is structurally sound.
func ValidateStory(nodes []*domain.Node) []Problem {
	if len(nodes) == 0 {
		return []Problem{{NodeID: 0, Message: "story has no nodes"}}
	}

	byID := make(map[int]*domain.Node, len(nodes))
	ids := make([]int, 0, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
		ids = append(ids, n.ID)
	}
	sort.Ints(ids)
	root := ids[0]

	// Crawl from the root to find what the reader can reach.
	visited := make(map[int]bool)
	queue := []int{root}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if visited[current] {
			continue
		}
		visited[current] = true
		n, ok := byID[current]
		if !ok {
			continue
		}
		for _, target := range n.Edges() {
			if !visited[target] {
				queue = append(queue, target)
			}
		}
	}

	var problems []Problem
	for _, id := range ids {
		n := byID[id]
		if !visited[id] {
			problems = append(problems, Problem{NodeID: id, Message: fmt.Sprintf("unreachable from node %d", root)})
		}
		for _, a := range n.Answers {
			if a.NextNode == nil {
				continue
			}
			if _, ok := byID[*a.NextNode]; !ok {
				problems = append(problems, Problem{
					NodeID:  id,
					Message: fmt.Sprintf("answer %q points to missing node %d", a.ID, *a.NextNode),
				})
			}
		}
		for i, m := range n.Messages {
			switch {
			case m.NeedsPhoto():
				problems = append(problems, Problem{
					NodeID:  id,
					Message: fmt.Sprintf("message %d has no photo yet", i),
				})
			case m.IsPhoto() && strings.TrimSpace(m.PhotoDescription) == "" && strings.TrimSpace(m.PhotoFile) == "":
				problems = append(problems, Problem{
					NodeID:  id,
					Message: fmt.Sprintf("photo message %d has no description", i),
				})
			}
		}
	}
	return problems
}
