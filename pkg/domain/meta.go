package domain

// Character is a member of the story cast. Message senders reference
// characters by id; the reference is not enforced.
type Character struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// StoryMeta is the story-level metadata persisted as StoryMeta.json.
// A valid story has at least one character.
type StoryMeta struct {
	Characters []Character `json:"characters"`
}

// Character looks up a cast member by id.
func (m *StoryMeta) Character(id string) (Character, bool) {
	for _, c := range m.Characters {
		if c.ID == id {
			return c, true
		}
	}
	return Character{}, false
}
