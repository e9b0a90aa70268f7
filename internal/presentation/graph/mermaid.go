// Package graph renders the story graph as Mermaid flowchart syntax.
package graph

import (
	"fmt"
	"strings"

	"github.com/mooncrowned/storyed/pkg/domain"
	"github.com/mooncrowned/storyed/pkg/layout"
)

// maxLabelLen truncates answer labels so wide choices do not blow up the
// diagram.
const maxLabelLen = 24

// GenerateMermaid produces a Mermaid flowchart (graph LR, matching the
// editor's left-to-right columns) from the node set. Shapes carry meaning:
//   - node 0 (story start): ((circle))
//   - endings (no answers): [[subroutine]]
//   - everything else: [rectangle]
//
// Edges are labeled with the answer text; answers without a resolved
// target draw nothing. An optional highlight marks ancestors and the
// selection.
func GenerateMermaid(nodes []*domain.Node, highlight *layout.Highlight) string {
	exists := make(map[int]bool, len(nodes))
	for _, n := range nodes {
		exists[n.ID] = true
	}

	var sb strings.Builder
	sb.WriteString("graph LR\n")

	for _, node := range nodes {
		opener, closer := "[", "]"
		switch {
		case node.ID == 0:
			opener, closer = "((", "))"
		case len(node.Answers) == 0:
			opener, closer = "[[", "]]"
		}
		sb.WriteString(fmt.Sprintf("    n%d%s\"%s\"%s\n", node.ID, opener, nodeLabel(node), closer))

		for _, a := range node.Answers {
			if a.NextNode == nil || !exists[*a.NextNode] {
				continue
			}
			arrow := "-->"
			if label := edgeLabel(a); label != "" {
				arrow = fmt.Sprintf("-- \"%s\" -->", label)
			}
			sb.WriteString(fmt.Sprintf("    n%d %s n%d\n", node.ID, arrow, *a.NextNode))
		}
	}

	if highlight != nil && !highlight.Empty() {
		sb.WriteString("\n    %% Selection styles\n")
		// Force black text for contrast regardless of theme.
		sb.WriteString("    classDef ancestor fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef selected fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		for _, n := range nodes {
			if highlight.Ancestors[n.ID] {
				sb.WriteString(fmt.Sprintf("    class n%d ancestor;\n", n.ID))
			}
		}
		sb.WriteString(fmt.Sprintf("    class n%d selected;\n", *highlight.Selected))
	}

	return sb.String()
}

// nodeLabel summarizes a node: its id plus the content counts.
func nodeLabel(n *domain.Node) string {
	return fmt.Sprintf("%d (%dm/%da)", n.ID, len(n.Messages), len(n.Answers))
}

// edgeLabel is the truncated, quote-escaped answer text.
func edgeLabel(a domain.Answer) string {
	label := strings.TrimSpace(a.Message)
	if label == "" {
		return ""
	}
	if runes := []rune(label); len(runes) > maxLabelLen {
		label = string(runes[:maxLabelLen-1]) + "…"
	}
	return strings.ReplaceAll(label, "\"", "'")
}
