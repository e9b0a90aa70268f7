/*
Package editor orchestrates user operations against the story core.

A Session ties together the node store, the persistence scheduler, the
layout engine and the selection engine for one open story. Every mutating
operation updates the store, schedules persistence for the owning node and
refreshes the layout: structural edits (links, node creation, answer
removal) recompute the full layout, content edits take the lighter
reflow-only path.

The image-fill workflow also lives here; it walks the graph for photo
messages awaiting generation and drives the external ImageProvider one
candidate at a time.
*/
package editor
