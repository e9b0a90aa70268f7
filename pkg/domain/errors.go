package domain

import "errors"

// ErrNodeNotFound is returned when a node id cannot be found in the store.
var ErrNodeNotFound = errors.New("node not found")

// ErrIndexOutOfRange is returned when a message or answer index does not
// exist on the target node.
var ErrIndexOutOfRange = errors.New("index out of range")

// ErrStoryLocked is returned when another editor session holds the story.
var ErrStoryLocked = errors.New("story is locked by another session")

// ErrNoCharacters is returned when story metadata has an empty cast.
var ErrNoCharacters = errors.New("story metadata has no characters")
