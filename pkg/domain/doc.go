/*
Package domain contains the core domain models for the storyed editor.

It defines the fundamental entities of a branching dialogue story: Nodes,
Messages, Answers and the story metadata. This package is kept pure and free
of external dependencies like I/O or persistence, following Hexagonal
Architecture principles.

# Key Entities

  - Node: a unit of story content holding an ordered message sequence and
    the outgoing answer-choices.
  - Message: a tagged variant over text/photo/video/system content.
  - Answer: a user-facing choice that may link to a successor node.
  - StoryMeta: the cast of characters messages refer to by sender id.
*/
package domain
