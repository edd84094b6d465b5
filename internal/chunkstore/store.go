// Package chunkstore implements the ordered Chunk store of spec.md §4.3:
// two implementations — an in-memory vector and an on-disk directory of
// one file per chunk — behind a single capability-set interface, per the
// "dynamic dispatch for chunk store" design note in spec.md §9.
//
// Grounded on the CArray holding a capability, not a concrete type, the
// same structuring habit pebble uses for its objstorage.Provider and
// vfs.FS interfaces.
package chunkstore

import "github.com/stefan-jansen/bcolz-zipline/internal/chunk"

// Store is the capability set a chunk store exposes. Both MemStore and
// DiskStore implement it.
type Store interface {
	// Len returns the number of chunks held.
	Len() int
	// Get returns the chunk at index i.
	Get(i int) (*chunk.Chunk, error)
	// Append adds a chunk to the end of the store.
	Append(c *chunk.Chunk) error
	// Set replaces the chunk at index i.
	Set(i int, c *chunk.Chunk) error
	// Pop removes and discards the last chunk.
	Pop() error
	// FlushTail persists c as the store's tail without incrementing Len,
	// per spec.md §4.3 (meaningful only for on-disk stores; a no-op for
	// MemStore).
	FlushTail(c *chunk.Chunk) error
	// Free drops any decompressed buffers cached by the store without
	// invalidating it, per spec.md §5's memory discipline.
	Free()
	// ReadOnly reports whether mutating calls fail with ErrReadOnly.
	ReadOnly() bool
}
