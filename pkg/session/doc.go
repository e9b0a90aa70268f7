/*
Package session implements exclusive story access.

An editor session owns its story for its whole lifetime, so the lock
manager hands out long-held leases rather than per-operation locks: one
in-process table guards sessions inside a single editor binary, and an
optional DistributedLocker extends the guarantee across processes (for
example when two editor instances share a network volume).
*/
package session
