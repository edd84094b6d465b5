package chunkstore

import (
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stefan-jansen/bcolz-zipline/internal/cerrors"
	"github.com/stefan-jansen/bcolz-zipline/internal/chunk"
	"github.com/stefan-jansen/bcolz-zipline/internal/codec"
	"github.com/stefan-jansen/bcolz-zipline/internal/cparams"
	"github.com/stefan-jansen/bcolz-zipline/internal/dtype"
)

func int32Chunk(t *testing.T, reg codec.Registry, vals ...int32) *chunk.Chunk {
	t.Helper()
	typ, err := dtype.New(dtype.Int32, 0)
	require.NoError(t, err)
	buf := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(v))
	}
	c, err := chunk.FromArray(reg, buf, len(vals), typ, cparams.Params{}.EnsureDefaults())
	require.NoError(t, err)
	return c
}

func TestMemStoreRoundTrip(t *testing.T) {
	var reg codec.Registry
	s := NewMemStore(false)
	require.NoError(t, s.Append(int32Chunk(t, reg, 1, 2, 3)))
	require.NoError(t, s.Append(int32Chunk(t, reg, 4, 5, 6)))
	require.Equal(t, 2, s.Len())

	c, err := s.Get(0)
	require.NoError(t, err)
	require.Equal(t, 3, c.Len())

	require.NoError(t, s.Pop())
	require.Equal(t, 1, s.Len())
	_, err = s.Get(1)
	require.Error(t, err)
}

func TestMemStoreReadOnly(t *testing.T) {
	s := NewMemStore(true)
	require.ErrorIs(t, s.Append(nil), cerrors.ErrReadOnly)
}

func TestDiskStoreAppendGetPop(t *testing.T) {
	dir := t.TempDir()
	var reg codec.Registry
	typ, err := dtype.New(dtype.Int32, 0)
	require.NoError(t, err)
	s := NewDiskStore(dir, reg, typ, 3, 0, false)

	require.NoError(t, s.Append(int32Chunk(t, reg, 1, 2, 3)))
	require.NoError(t, s.Append(int32Chunk(t, reg, 4, 5, 6)))
	require.Equal(t, 2, s.Len())
	require.FileExists(t, filepath.Join(dir, "__0.blp"))
	require.FileExists(t, filepath.Join(dir, "__1.blp"))

	c, err := s.Get(0)
	require.NoError(t, err)
	require.Equal(t, 3, c.Len())

	// second read should hit the single-slot cache
	c2, err := s.Get(0)
	require.NoError(t, err)
	require.Same(t, c, c2)

	require.NoError(t, s.Pop())
	require.Equal(t, 1, s.Len())
	require.NoFileExists(t, filepath.Join(dir, "__1.blp"))
}

func TestDiskStoreFlushTail(t *testing.T) {
	dir := t.TempDir()
	var reg codec.Registry
	typ, err := dtype.New(dtype.Int32, 0)
	require.NoError(t, err)
	s := NewDiskStore(dir, reg, typ, 3, 0, false)
	require.NoError(t, s.Append(int32Chunk(t, reg, 1, 2, 3)))

	require.NoError(t, s.FlushTail(int32Chunk(t, reg, 7, 8)))
	require.Equal(t, 1, s.Len())
	require.FileExists(t, filepath.Join(dir, "__1.blp"))

	tail, err := s.ReadTail(2)
	require.NoError(t, err)
	require.Equal(t, 2, tail.Len())
}

func TestDiskStoreReadOnly(t *testing.T) {
	dir := t.TempDir()
	var reg codec.Registry
	typ, err := dtype.New(dtype.Int32, 0)
	require.NoError(t, err)
	s := NewDiskStore(dir, reg, typ, 3, 0, true)
	require.Error(t, s.Append(int32Chunk(t, reg, 1)))
}

func TestPackHeaderRoundTrip(t *testing.T) {
	buf := encodePackHeader(packHeader{version: packFormatVersion, chunkCount: -1})
	h, err := decodePackHeader(buf)
	require.NoError(t, err)
	require.Equal(t, int64(-1), h.chunkCount)

	_, err = decodePackHeader([]byte("short"))
	require.Error(t, err)

	bad := append([]byte("xxxx"), buf[4:]...)
	_, err = decodePackHeader(bad)
	require.Error(t, err)
}
