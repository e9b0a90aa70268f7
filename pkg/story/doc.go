/*
Package story holds the persistence-facing core of the editor: the in-memory
node store (single source of truth for graph data), the debounced
persistence scheduler, and the repository that maps the domain model onto
the on-disk story layout.

The store owns all node documents; mutations go through Put so every change
marks the node dirty and reaches the scheduler. The scheduler coalesces
saves per node id (last write wins within the debounce window) and flushes
through the repository. The repository speaks only to the ports.Storage
collaborator, never the OS directly.
*/
package story
