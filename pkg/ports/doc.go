/*
Package ports defines the driven ports (interfaces) for the storyed editor
core.

These interfaces decouple the core from external implementations, allowing
the editor to work with various storage backends, image providers, and lock
coordinators.

# Key Interfaces

  - Storage: hierarchical file namespace the story is persisted into.
  - ImageProvider: external image generation capability.
  - DistributedLocker: cross-process locking for exclusive story access.
*/
package ports
