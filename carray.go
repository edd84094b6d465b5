// Package bcolz implements the compressed, chunked columnar array core:
// the append/trim/resize machinery with its uncompressed leftover tail,
// the block-addressable random-access scalar cache, persistence to a
// root directory, and the range/wheretrue/where iteration engine.
//
// The multi-column table layer, the expression evaluator behind
// string-predicate indexing, and pickle-based object serialization are
// treated as external collaborators the host supplies; this package
// only consumes the narrow interfaces they need (see ObjectCodec and
// Evaluator in host.go).
package bcolz

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/stefan-jansen/bcolz-zipline/internal/cerrors"
	"github.com/stefan-jansen/bcolz-zipline/internal/chunk"
	"github.com/stefan-jansen/bcolz-zipline/internal/chunkstore"
	"github.com/stefan-jansen/bcolz-zipline/internal/codec"
	"github.com/stefan-jansen/bcolz-zipline/internal/cparams"
	"github.com/stefan-jansen/bcolz-zipline/internal/dtype"
	"github.com/stefan-jansen/bcolz-zipline/internal/meta"
)

// cacheState is the block cache's three-state tag, per spec.md §9's
// "Block cache" design note: the source's -1/-2 sentinels conflate two
// distinct states (never populated vs. populated-but-stale), so writes
// and lookups here switch on an explicit tag instead.
type cacheState int

const (
	cacheEmptyState cacheState = iota
	cacheValidState
	cacheDirtyState
)

// blockCache is the single populated decompressed block of spec.md
// §4.4's "Scalar read" section. row and buf are meaningful only when
// state is cacheValidState.
type blockCache struct {
	state    cacheState
	row      int // absolute start row of the cached block
	buf      []byte
	blockLen int // rows spanned by buf
}

// invalidate marks the cache dirty: a write occurred, so the next scalar
// read must repopulate, but no cbytes bookkeeping is touched.
func (bc *blockCache) invalidate() { bc.state = cacheDirtyState }

// reset drops the cached block entirely, per free_cache semantics.
func (bc *blockCache) reset() { bc.state = cacheEmptyState; bc.buf = nil }

// CArray is the compressed, chunked columnar array of spec.md §4.4.
type CArray struct {
	typ    dtype.Type
	reg    codec.Registry
	params cparams.Params

	chunklen    int
	expectedLen int
	n           int // logical length N

	store chunkstore.Store

	leftover     []byte // capacity chunklen*AtomSize
	leftoverRows int

	dflt []byte // default atom value, used by Resize's broadcast fill

	cache blockCache

	mode     Mode
	readOnly bool
	root     string
	layout   meta.Layout
	attrs    *meta.Attrs

	logger  Logger
	metrics *Metrics
}

// Len returns the logical length N.
func (ca *CArray) Len() int { return ca.n }

// Type returns the array's element type.
func (ca *CArray) Type() dtype.Type { return ca.typ }

// Shape returns (N, trailing shape dims...), per spec.md §3.
func (ca *CArray) Shape() []int {
	shape := make([]int, 0, 1+len(ca.typ.TrailingShape))
	shape = append(shape, ca.n)
	shape = append(shape, ca.typ.TrailingShape...)
	return shape
}

// Chunklen returns the fixed number of rows per full chunk.
func (ca *CArray) Chunklen() int { return ca.chunklen }

// IsReadOnly reports whether mutating calls fail with ErrReadOnly.
func (ca *CArray) IsReadOnly() bool { return ca.readOnly }

// NBytes returns N * atomsize.
func (ca *CArray) NBytes() int64 { return int64(ca.n) * int64(ca.typ.AtomSize) }

// CBytes returns the sum of each chunk's compressed size plus the tail
// buffer accounted at its uncompressed capacity, per spec.md §3.
func (ca *CArray) CBytes() int64 {
	var total int64
	for i := 0; i < ca.store.Len(); i++ {
		c, err := ca.store.Get(i)
		if err != nil {
			continue
		}
		total += int64(c.CBytes())
	}
	total += int64(ca.chunklen) * int64(ca.typ.AtomSize)
	return total
}

// New builds a CArray from an initial array of data, per spec.md §4.4's
// "From data" construction path.
func New(data []byte, typ dtype.Type, opts Options) (*CArray, error) {
	opts = opts.EnsureDefaults()
	if typ.Kind == dtype.Object && len(data) > 0 {
		return nil, errors.Wrap(cerrors.ErrNotSupported, "bcolz: object-kind arrays are built empty, then populated with AppendObject")
	}
	if typ.AtomSize > 0 && len(data)%typ.AtomSize != 0 {
		return nil, errors.Wrap(cerrors.ErrInvalidArgument, "bcolz: data length is not a multiple of the atom size")
	}
	rows := 0
	if typ.AtomSize > 0 {
		rows = len(data) / typ.AtomSize
	}

	chunklen := chooseChunklen(opts.Chunklen, maxInt(opts.ExpectedLen, rows), typ.AtomSize)
	if chunklen < 1 {
		return nil, errors.Wrap(cerrors.ErrInvalidArgument, "bcolz: chunklen must be >= 1")
	}

	ca := &CArray{
		typ:         typ,
		reg:         codec.Registry{Threads: opts.Threads},
		params:      opts.CParams,
		chunklen:    chunklen,
		expectedLen: opts.ExpectedLen,
		dflt:        typ.Zero(),
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		cache:       blockCache{state: cacheEmptyState},
	}

	var err error
	if opts.Root != "" {
		err = ca.initPersistent(opts.Root, opts.Mode)
	} else {
		ca.store = chunkstore.NewMemStore(false)
		ca.attrs, _ = meta.NewAttrs("", false)
	}
	if err != nil {
		return nil, err
	}

	ca.leftover = make([]byte, ca.chunklen*typ.AtomSize)

	chunkBytes := ca.chunklen * typ.AtomSize
	off := 0
	if chunkBytes > 0 {
		for off+chunkBytes <= len(data) {
			if err := ca.appendFullChunk(data[off : off+chunkBytes]); err != nil {
				return nil, err
			}
			off += chunkBytes
		}
		if off < len(data) {
			ca.leftoverRows = copy(ca.leftover, data[off:]) / typ.AtomSize
		}
	}
	ca.n = rows

	if ca.root != "" {
		if err := ca.writeStorage(); err != nil {
			return nil, err
		}
		if err := ca.Flush(); err != nil {
			return nil, err
		}
	}
	return ca, nil
}

func (ca *CArray) initPersistent(root string, mode Mode) error {
	create := meta.Create
	if mode == ModeWrite {
		create = meta.CreateTruncating
	}
	layout, err := create(root)
	if err != nil {
		return err
	}
	ca.root = root
	ca.layout = layout
	ca.mode = mode
	ca.readOnly = mode == ModeRead
	ca.store = chunkstore.NewDiskStore(layout.DataDir(), ca.reg, ca.typ, ca.chunklen, 0, ca.readOnly)
	attrs, err := meta.NewAttrs(layout.AttrsDir(), ca.readOnly)
	if err != nil {
		return err
	}
	ca.attrs = attrs
	return nil
}

// decompressChunk decompresses rows [start, stop) of c into dst, timing
// the call through the injected Metrics if one is set.
func (ca *CArray) decompressChunk(c *chunk.Chunk, dst []byte, start, stop int) error {
	begin := time.Now()
	err := c.Get(ca.reg, dst, start, stop)
	ca.metrics.observeDecompress(time.Since(begin).Seconds())
	return err
}

func (ca *CArray) appendFullChunk(rowBytes []byte) error {
	start := time.Now()
	c, err := chunk.FromArray(ca.reg, rowBytes, ca.chunklen, ca.typ, ca.params)
	ca.metrics.observeCompress(time.Since(start).Seconds())
	if err != nil {
		return err
	}
	return ca.store.Append(c)
}

func (ca *CArray) writeStorage() error {
	return ca.layout.WriteStorage(meta.Storage{
		Dtype:       ca.typ.Descriptor(),
		CParams:     meta.ToCParamsJSON(ca.params),
		Chunklen:    ca.chunklen,
		ExpectedLen: ca.expectedLen,
		Default:     encodeDefaultJSON(ca.typ, ca.dflt),
	})
}

// Flush persists pending in-memory state to disk. It is a no-op for
// purely in-memory arrays. Flush is explicit: destroying a CArray value
// never implicitly flushes, per spec.md §4.4.
func (ca *CArray) Flush() error {
	if ca.root == "" {
		return nil
	}
	if ca.leftoverRows > 0 {
		start := time.Now()
		tail, err := chunk.FromArray(ca.reg, ca.leftover[:ca.leftoverRows*ca.typ.AtomSize], ca.leftoverRows, ca.typ, ca.params)
		ca.metrics.observeCompress(time.Since(start).Seconds())
		if err != nil {
			return err
		}
		if err := ca.store.FlushTail(tail); err != nil {
			return err
		}
	}
	if ca.logger != nil {
		ca.logger.Infof("bcolz: flushed %s (n=%d cbytes=%d)", ca.root, ca.n, ca.CBytes())
	}
	return ca.layout.WriteSizes(meta.Sizes{
		Shape:  ca.Shape(),
		NBytes: ca.NBytes(),
		CBytes: ca.CBytes(),
	})
}

// Free drops cached decompressed buffers (the block cache and the chunk
// store's read cache) without invalidating the array, per spec.md §5's
// memory discipline.
func (ca *CArray) Free() {
	ca.cache.reset()
	ca.store.Free()
}

// Purge deletes the persistent root directory. The CArray must not be
// used afterwards.
func (ca *CArray) Purge() error {
	if ca.root == "" {
		return nil
	}
	return meta.Purge(ca.root)
}

// Attrs returns the array's per-instance attribute bag.
func (ca *CArray) Attrs() *meta.Attrs { return ca.attrs }

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
