package chunkstore

import (
	"github.com/stefan-jansen/bcolz-zipline/internal/cerrors"
	"github.com/stefan-jansen/bcolz-zipline/internal/chunk"
)

// MemStore is the in-memory Store implementation: a plain vector of
// Chunks, per spec.md §4.3's "in-memory vector" variant.
type MemStore struct {
	chunks   []*chunk.Chunk
	readOnly bool
}

// NewMemStore returns an empty in-memory chunk store.
func NewMemStore(readOnly bool) *MemStore {
	return &MemStore{readOnly: readOnly}
}

func (s *MemStore) Len() int { return len(s.chunks) }

func (s *MemStore) Get(i int) (*chunk.Chunk, error) {
	if i < 0 || i >= len(s.chunks) {
		return nil, cerrors.ErrOutOfRange
	}
	return s.chunks[i], nil
}

func (s *MemStore) Append(c *chunk.Chunk) error {
	if s.readOnly {
		return cerrors.ErrReadOnly
	}
	s.chunks = append(s.chunks, c)
	return nil
}

func (s *MemStore) Set(i int, c *chunk.Chunk) error {
	if s.readOnly {
		return cerrors.ErrReadOnly
	}
	if i < 0 || i >= len(s.chunks) {
		return cerrors.ErrOutOfRange
	}
	s.chunks[i] = c
	return nil
}

func (s *MemStore) Pop() error {
	if s.readOnly {
		return cerrors.ErrReadOnly
	}
	if len(s.chunks) == 0 {
		return cerrors.ErrOutOfRange
	}
	s.chunks = s.chunks[:len(s.chunks)-1]
	return nil
}

// FlushTail is a no-op for an in-memory store: there is no on-disk tail
// file to write.
func (s *MemStore) FlushTail(*chunk.Chunk) error {
	if s.readOnly {
		return cerrors.ErrReadOnly
	}
	return nil
}

// Free is a no-op: MemStore holds no separate decompressed-buffer cache
// beyond the Chunks themselves.
func (s *MemStore) Free() {}

func (s *MemStore) ReadOnly() bool { return s.readOnly }
