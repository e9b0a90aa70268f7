package dsl

import "github.com/mooncrowned/storyed/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
}

// Text appends a plain dialogue message from sender.
func (n *NodeBuilder) Text(sender, text string) *NodeBuilder {
	n.node.Messages = append(n.node.Messages, domain.NewTextMessage(sender, text))
	return n
}

// System appends a narrator message outside the chat flow.
func (n *NodeBuilder) System(text string) *NodeBuilder {
	n.node.Messages = append(n.node.Messages, domain.Message{
		Type: domain.MessageTypeSystem,
		Text: text,
	})
	return n
}

// Photo appends a photo message awaiting generation. The image file is
// filled in later by the image-fill workflow.
func (n *NodeBuilder) Photo(sender, description string) *NodeBuilder {
	n.node.Messages = append(n.node.Messages, domain.NewPhotoMessage(sender, description))
	return n
}

// Message appends an arbitrary message for variants the shortcuts don't
// cover, like videos or pre-filled photos.
func (n *NodeBuilder) Message(msg domain.Message) *NodeBuilder {
	n.node.Messages = append(n.node.Messages, msg)
	return n
}

// Answer adds a choice wired to the target node.
func (n *NodeBuilder) Answer(text string, target int) *NodeBuilder {
	to := target
	n.node.Answers = append(n.node.Answers, domain.Answer{
		Message:  text,
		NextNode: &to,
	})
	return n
}

// OpenAnswer adds a choice that is not wired to a successor yet.
func (n *NodeBuilder) OpenAnswer(text string) *NodeBuilder {
	n.node.Answers = append(n.node.Answers, domain.Answer{Message: text})
	return n
}

// Delay sets the send delay, in seconds, on the last added answer.
func (n *NodeBuilder) Delay(seconds float64) *NodeBuilder {
	if len(n.node.Answers) > 0 {
		n.node.Answers[len(n.node.Answers)-1].Delay = seconds
	}
	return n
}

// Build returns the underlying domain.Node.
// This is primarily used by the Builder, but exposed for advanced usage.
func (n *NodeBuilder) Build() domain.Node {
	return n.node
}
