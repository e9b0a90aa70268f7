package domain

import "strings"

// NewTextMessage builds a text message from a sender and body.
func NewTextMessage(sender, text string) Message {
	return Message{Type: MessageTypeText, Sender: sender, Text: text}
}

// NewPhotoMessage builds a photo message awaiting generation: the
// description is set, the file is filled in later by the image-fill
// workflow.
func NewPhotoMessage(sender, description string) Message {
	return Message{Type: MessageTypePhoto, Sender: sender, PhotoDescription: description}
}

// IsPhoto reports whether the message carries photo content.
func (m Message) IsPhoto() bool { return m.Type == MessageTypePhoto }

// NeedsPhoto reports whether the message is an image-fill candidate:
// a photo with a non-empty description and no file yet.
func (m Message) NeedsPhoto() bool {
	if m.Type != MessageTypePhoto {
		return false
	}
	if strings.TrimSpace(m.PhotoDescription) == "" {
		return false
	}
	return strings.TrimSpace(m.PhotoFile) == ""
}

// Caption returns the user-visible text for the message's tag, or "" when
// the variant has none.
func (m Message) Caption() string {
	switch m.Type {
	case MessageTypeText, MessageTypeSystem:
		return m.Text
	case MessageTypePhoto:
		return m.PhotoMessage
	case MessageTypeVideo:
		return m.VideoMessage
	}
	return ""
}
