package chunkstore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/stefan-jansen/bcolz-zipline/internal/cerrors"
	"github.com/stefan-jansen/bcolz-zipline/internal/chunk"
	"github.com/stefan-jansen/bcolz-zipline/internal/codec"
	"github.com/stefan-jansen/bcolz-zipline/internal/dtype"
)

// DiskStore is the on-disk Store implementation of spec.md §4.3: one file
// per chunk under dir, named "__<decimal-index>.blp", plus a single-slot
// most-recently-read cache.
//
// Per spec.md §9's "cyclic references" design note, the store's mode is
// captured as value-passed configuration at construction rather than via
// a back-reference to the owning CArray.
type DiskStore struct {
	dir      string
	reg      codec.Registry
	typ      dtype.Type
	chunklen int
	count    int
	readOnly bool

	cacheIdx int // -1 means empty
	cacheC   *chunk.Chunk
}

// NewDiskStore opens (or creates) an on-disk chunk store rooted at dir.
// count is the number of full chunk files already present (0 for a
// freshly-created array).
func NewDiskStore(dir string, reg codec.Registry, typ dtype.Type, chunklen, count int, readOnly bool) *DiskStore {
	return &DiskStore{
		dir:      dir,
		reg:      reg,
		typ:      typ,
		chunklen: chunklen,
		count:    count,
		readOnly: readOnly,
		cacheIdx: -1,
	}
}

func fileName(i int) string {
	return fmt.Sprintf("__%d.blp", i)
}

func (s *DiskStore) path(i int) string {
	return filepath.Join(s.dir, fileName(i))
}

func (s *DiskStore) Len() int { return s.count }

func (s *DiskStore) ReadOnly() bool { return s.readOnly }

func (s *DiskStore) Get(i int) (*chunk.Chunk, error) {
	if i < 0 || i >= s.count {
		return nil, cerrors.ErrOutOfRange
	}
	if s.cacheIdx == i {
		return s.cacheC, nil
	}
	c, err := s.readChunkFile(s.path(i), s.chunklen)
	if err != nil {
		return nil, err
	}
	s.cacheIdx = i
	s.cacheC = c
	return c, nil
}

// readChunkFile reads a chunk file in full, validates its pack header,
// and builds a Chunk from the codec buffer that follows it.
func (s *DiskStore) readChunkFile(path string, rows int) (*chunk.Chunk, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(cerrors.ErrIO, "chunkstore: missing chunk file %s", path)
		}
		return nil, errors.Wrap(cerrors.ErrIO, err.Error())
	}
	if _, err := decodePackHeader(raw); err != nil {
		return nil, err
	}
	return chunk.FromCompressedBytes(s.reg, raw[packHeaderLen:], rows, s.typ)
}

func (s *DiskStore) writeChunkFile(path string, c *chunk.Chunk) error {
	h := encodePackHeader(packHeader{version: packFormatVersion, chunkCount: 1})
	buf := append(h, c.Bytes()...)
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return errors.Wrap(cerrors.ErrIO, err.Error())
	}
	return nil
}

func (s *DiskStore) Append(c *chunk.Chunk) error {
	if s.readOnly {
		return cerrors.ErrReadOnly
	}
	if err := s.writeChunkFile(s.path(s.count), c); err != nil {
		return err
	}
	s.count++
	return nil
}

func (s *DiskStore) Set(i int, c *chunk.Chunk) error {
	if s.readOnly {
		return cerrors.ErrReadOnly
	}
	if i < 0 || i >= s.count {
		return cerrors.ErrOutOfRange
	}
	if err := s.writeChunkFile(s.path(i), c); err != nil {
		return err
	}
	if s.cacheIdx == i {
		s.cacheIdx = -1
		s.cacheC = nil
	}
	return nil
}

// Pop removes the last chunk file, plus a possible stale tail file one
// past it that an earlier FlushTail may have left behind, per spec.md
// §4.3.
func (s *DiskStore) Pop() error {
	if s.readOnly {
		return cerrors.ErrReadOnly
	}
	if s.count == 0 {
		return cerrors.ErrOutOfRange
	}
	last := s.count - 1
	if err := removeIfExists(s.path(last)); err != nil {
		return err
	}
	if err := removeIfExists(s.path(last + 1)); err != nil {
		return err
	}
	if s.cacheIdx == last {
		s.cacheIdx = -1
		s.cacheC = nil
	}
	s.count--
	return nil
}

// FlushTail writes c to the file slot immediately past the last full
// chunk, without incrementing the store's chunk count, per spec.md §4.3.
func (s *DiskStore) FlushTail(c *chunk.Chunk) error {
	if s.readOnly {
		return cerrors.ErrReadOnly
	}
	return s.writeChunkFile(s.path(s.count), c)
}

// ReadTail reads back the tail file written by FlushTail, used when
// re-opening a non-chunk-aligned array, per spec.md §4.3.
func (s *DiskStore) ReadTail(rows int) (*chunk.Chunk, error) {
	return s.readChunkFile(s.path(s.count), rows)
}

// Free drops the single-slot cache without invalidating the store.
func (s *DiskStore) Free() {
	s.cacheIdx = -1
	s.cacheC = nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(cerrors.ErrIO, err.Error())
	}
	return nil
}
