package domain

// MessageType constants tag the Message variant.
const (
	// MessageTypeText is plain dialogue text.
	MessageTypeText = "text"
	// MessageTypePhoto carries a generated or hand-placed image.
	MessageTypePhoto = "photo"
	// MessageTypeVideo carries a video clip with optional subtitles.
	MessageTypeVideo = "video"
	// MessageTypeSystem is narrator/system text outside the chat flow.
	MessageTypeSystem = "system"
)

// Message is a tagged variant over {text, photo, video, system}.
// Only the fields belonging to the active Type are meaningful; the others
// stay at their zero value and are omitted from JSON.
type Message struct {
	Type   string `json:"type"`
	Sender string `json:"sender,omitempty"`

	// Text / system content.
	Text string `json:"message,omitempty"`

	// Photo content.
	PhotoDescription string `json:"photo_description,omitempty"`
	PhotoFile        string `json:"photo_file,omitempty"`
	PhotoMessage     string `json:"photo_message,omitempty"`

	// Video content.
	VideoDescription string `json:"video_description,omitempty"`
	VideoFile        string `json:"video_file,omitempty"`
	VideoSubtitles   string `json:"video_subtitles,omitempty"`
	VideoMessage     string `json:"video_message,omitempty"`
}

// Answer is a choice presented to the reader. NextNode is nil while the
// answer is not yet wired to a successor node; it may also reference an id
// that does not exist yet.
type Answer struct {
	ID       string  `json:"id"`
	Message  string  `json:"message"`
	Delay    float64 `json:"delay"`
	NextNode *int    `json:"next_node"`
}

// Node represents a unit of story content. IDs are non-negative and unique
// within a story; node 0 always exists.
type Node struct {
	ID       int       `json:"id"`
	Messages []Message `json:"messages"`
	Answers  []Answer  `json:"answers"`
}

// Clone returns a deep copy, so callers can hand nodes across goroutines
// without sharing slices.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{ID: n.ID}
	if n.Messages != nil {
		c.Messages = make([]Message, len(n.Messages))
		copy(c.Messages, n.Messages)
	}
	if n.Answers != nil {
		c.Answers = make([]Answer, len(n.Answers))
		for i, a := range n.Answers {
			c.Answers[i] = a
			if a.NextNode != nil {
				next := *a.NextNode
				c.Answers[i].NextNode = &next
			}
		}
	}
	return c
}

// Edges returns the resolved outgoing references of this node, in answer
// order. Unwired answers are skipped; targets are not checked for existence.
func (n *Node) Edges() []int {
	var out []int
	for _, a := range n.Answers {
		if a.NextNode != nil {
			out = append(out, *a.NextNode)
		}
	}
	return out
}
