/*
Package layout computes the deterministic layered layout of a story graph
and the selection/ancestry highlighting over it.

The engine is pure: it consumes the node set plus an injected height
measurement callback and produces columns, coordinates and edge anchors.
No presentation concern leaks in; callers (terminal preview, HTTP API)
render the result however they like.

Column assignment is a breadth-first traversal from the smallest node id.
First visit wins: a node keeps the column of whichever path reached it
first, even when a later, shorter cross-link shows up. That keeps the
traversal O(V+E) and re-runs byte-stable on unchanged data.
*/
package layout
