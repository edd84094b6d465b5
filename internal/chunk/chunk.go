// Package chunk implements the immutable compressed container of
// spec.md §4.2: a fixed-size run of elements of a single element type,
// optionally stored as a constant chunk (all elements identical) rather
// than as compressed bytes.
package chunk

import (
	"bytes"

	"github.com/cockroachdb/errors"

	"github.com/stefan-jansen/bcolz-zipline/internal/cerrors"
	"github.com/stefan-jansen/bcolz-zipline/internal/codec"
	"github.com/stefan-jansen/bcolz-zipline/internal/cparams"
	"github.com/stefan-jansen/bcolz-zipline/internal/dtype"
)

// Chunk is an immutable compressed container for one fixed-size run of
// rows of a single element type, per spec.md §4.2.
type Chunk struct {
	typ    dtype.Type
	rows   int // number of logical rows (chunklen, except possibly a caller-trimmed tail at construction)
	nbytes int // rows * typ.AtomSize
	cbytes int // compressed size including the codec header, or 0 if constant

	isConstant bool
	constValue []byte // one atom, valid iff isConstant

	compressed []byte // self-describing compressed buffer from internal/codec, valid iff !isConstant
	blockSize  int

	isBool    bool
	trueCount int // cached count of true rows, bool kind only

	isObject bool
}

// Len returns the number of logical rows held by the chunk.
func (c *Chunk) Len() int { return c.rows }

// NBytes returns the uncompressed size in bytes.
func (c *Chunk) NBytes() int { return c.nbytes }

// CBytes returns the compressed size in bytes, including the codec
// header; 0 for constant chunks, which carry no compressed bytes.
func (c *Chunk) CBytes() int { return c.cbytes }

// BlockSize returns the codec's block granularity, used by the CArray's
// scalar block cache (spec.md §4.4 "Scalar read").
func (c *Chunk) BlockSize() int {
	if c.isConstant {
		return c.typ.AtomSize
	}
	return c.blockSize
}

// IsConstant reports whether the chunk stores a symbolic constant rather
// than compressed bytes.
func (c *Chunk) IsConstant() bool { return c.isConstant }

// ConstValue returns the one representative atom of a constant chunk.
// Only valid when IsConstant is true.
func (c *Chunk) ConstValue() []byte { return c.constValue }

// TrueCount returns the cached count of true-valued rows for a boolean
// chunk, per spec.md §4.2's "bool optimization".
func (c *Chunk) TrueCount() int { return c.trueCount }

// allZero reports whether every byte of buf is zero.
func allZero(buf []byte) bool {
	for _, b := range buf {
		if b != 0 {
			return false
		}
	}
	return true
}

// allRowsEqual reports whether every row of buf (rows of atomSize bytes
// each) is byte-identical to the first row. This generalizes spec.md
// §4.2's "stride 0 along the leading axis" trigger: a caller broadcasting
// one value across many rows (e.g. Resize's default-value fill) produces
// exactly this pattern without this package needing to know about
// strides.
func allRowsEqual(buf []byte, atomSize int) bool {
	if atomSize == 0 || len(buf) <= atomSize {
		return true
	}
	first := buf[:atomSize]
	for off := atomSize; off < len(buf); off += atomSize {
		if !bytes.Equal(buf[off:off+atomSize], first) {
			return false
		}
	}
	return true
}

func countTrueBytes(buf []byte) int {
	n := 0
	for _, b := range buf {
		if b != 0 {
			n++
		}
	}
	return n
}

// FromArray builds a Chunk from rows of in-memory data, per spec.md
// §4.2's "from_array" constructor. Constant-chunk detection only
// applies here, never to disk-backed chunks
// (FromCompressedBytes), so the on-disk format stays uniform.
func FromArray(reg codec.Registry, data []byte, rows int, typ dtype.Type, params cparams.Params) (*Chunk, error) {
	if typ.AtomSize > 0 && typ.AtomSize >= (1<<31) {
		return nil, errors.Wrap(cerrors.ErrTypeTooLarge, "chunk: atom size too large")
	}
	c := &Chunk{typ: typ, rows: rows, nbytes: len(data), isBool: typ.Kind == dtype.Bool}

	if typ.Kind.IsFloat() && params.Quantize != nil && *params.Quantize > 0 {
		data = quantize(data, typ, *params.Quantize)
	}

	if typ.Kind == dtype.Bool {
		c.trueCount = countTrueBytes(data)
	}

	if allRowsEqual(data, typ.AtomSize) || allZero(data) {
		c.isConstant = true
		if len(data) >= typ.AtomSize {
			c.constValue = append([]byte(nil), data[:typ.AtomSize]...)
		} else {
			c.constValue = typ.Zero()
		}
		return c, nil
	}

	shuffleItemSize := typ.CodecItemSize(codec.MaxTypeSize)
	compressed, blockSize, err := reg.Compress(data, shuffleItemSize, typ.AtomSize, params)
	if err != nil {
		return nil, err
	}
	c.compressed = compressed
	c.blockSize = blockSize
	c.cbytes = len(compressed)
	return c, nil
}

// FromCompressedBytes wraps an already-compressed buffer (read back from
// a chunk store's disk file) as a Chunk. Disk-backed chunks never apply
// constant-chunk detection, per spec.md §4.2, though the bool true_count
// cache is still populated eagerly since it is cheap and used by fast
// reductions regardless of how the chunk was constructed.
func FromCompressedBytes(reg codec.Registry, buf []byte, rows int, typ dtype.Type) (*Chunk, error) {
	info, err := codec.BufferInfo(buf)
	if err != nil {
		return nil, errors.Wrap(cerrors.ErrCorruptBuffer, err.Error())
	}
	c := &Chunk{
		typ:        typ,
		rows:       rows,
		nbytes:     info.NBytes,
		cbytes:     len(buf),
		compressed: buf,
		blockSize:  info.BlockSize,
		isBool:     typ.Kind == dtype.Bool,
	}
	if c.isBool {
		plain := make([]byte, info.NBytes)
		if err := reg.Decompress(buf, plain, info.NBytes); err != nil {
			return nil, err
		}
		c.trueCount = countTrueBytes(plain)
	}
	return c, nil
}

// FromPickledObject builds a one-element Object-kind chunk from bytes the
// host has already serialized, per spec.md §4.2's "from_pickled_object"
// constructor and §4.4's "O-kind bypasses the tail" append rule.
func FromPickledObject(reg codec.Registry, data []byte, params cparams.Params) (*Chunk, error) {
	compressed, blockSize, err := reg.Compress(data, 1, 1, params)
	if err != nil {
		return nil, err
	}
	return &Chunk{
		rows:       1,
		nbytes:     len(data),
		cbytes:     len(compressed),
		compressed: compressed,
		blockSize:  blockSize,
		isObject:   true,
	}, nil
}

// Get decompresses rows [start, stop) into dst, per spec.md §4.2's "get"
// operation: constant chunks are filled symbolically; full-chunk reads go
// through the codec's whole-buffer decompress, partial reads through its
// decompress_range.
func (c *Chunk) Get(reg codec.Registry, dst []byte, start, stop int) error {
	if c.isConstant {
		for off := 0; off+c.typ.AtomSize <= len(dst); off += c.typ.AtomSize {
			copy(dst[off:off+c.typ.AtomSize], c.constValue)
		}
		return nil
	}
	n := stop - start
	want := n * c.typ.AtomSize
	if len(dst) != want {
		return errors.Wrap(cerrors.ErrInvalidArgument, "chunk: destination length mismatch")
	}
	if n == c.rows {
		return reg.Decompress(c.compressed, dst, c.nbytes)
	}
	shuffleItemSize := c.typ.CodecItemSize(codec.MaxTypeSize)
	itemsPerRow := c.typ.AtomSize / shuffleItemSize
	return reg.DecompressRange(c.compressed, start*itemsPerRow, n*itemsPerRow, dst)
}

// GetObject returns the full decompressed byte string of an Object-kind
// chunk; the caller deserializes it.
func (c *Chunk) GetObject(reg codec.Registry) ([]byte, error) {
	dst := make([]byte, c.nbytes)
	if err := reg.Decompress(c.compressed, dst, c.nbytes); err != nil {
		return nil, err
	}
	return dst, nil
}

// Bytes returns the raw self-describing compressed buffer, for handing to
// a chunk store to persist.
func (c *Chunk) Bytes() []byte { return c.compressed }

// Set always fails: Chunks are immutable after construction, per spec.md
// §4.2.
func (c *Chunk) Set([]byte) error {
	return cerrors.ErrNotSupported
}
