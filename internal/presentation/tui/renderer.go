package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/mooncrowned/storyed/pkg/domain"
)

// NewRenderer returns a function that renders markdown using glamour,
// auto-detecting light/dark terminal backgrounds.
func NewRenderer() func(string) (string, error) {
	r, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
	)
	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// NodeMarkdown formats one node as markdown for the terminal preview:
// messages in order with their sender, then the answer choices.
func NodeMarkdown(n *domain.Node, meta *domain.StoryMeta) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Node %d\n\n", n.ID)

	for i, m := range n.Messages {
		sender := m.Sender
		if meta != nil {
			if c, ok := meta.Character(m.Sender); ok {
				sender = c.Name
			}
		}
		switch m.Type {
		case domain.MessageTypePhoto:
			fmt.Fprintf(&sb, "%d. **%s** 📷 _%s_", i, sender, m.PhotoDescription)
			if m.PhotoFile != "" {
				fmt.Fprintf(&sb, " (`%s`)", m.PhotoFile)
			}
		case domain.MessageTypeVideo:
			fmt.Fprintf(&sb, "%d. **%s** 🎬 _%s_", i, sender, m.VideoDescription)
			if m.VideoFile != "" {
				fmt.Fprintf(&sb, " (`%s`)", m.VideoFile)
			}
		case domain.MessageTypeSystem:
			fmt.Fprintf(&sb, "%d. _%s_", i, m.Text)
		default:
			fmt.Fprintf(&sb, "%d. **%s**: %s", i, sender, m.Text)
		}
		sb.WriteString("\n")
	}

	if len(n.Answers) > 0 {
		sb.WriteString("\n## Answers\n\n")
		for i, a := range n.Answers {
			target := "∅"
			if a.NextNode != nil {
				target = fmt.Sprintf("→ %d", *a.NextNode)
			}
			fmt.Fprintf(&sb, "%d. %s (%s, delay %.0f)\n", i, a.Message, target, a.Delay)
		}
	}
	return sb.String()
}
