package bcolz

import (
	"github.com/stefan-jansen/bcolz-zipline/internal/chunkstore"
	"github.com/stefan-jansen/bcolz-zipline/internal/codec"
	"github.com/stefan-jansen/bcolz-zipline/internal/dtype"
	"github.com/stefan-jansen/bcolz-zipline/internal/meta"
)

// Open reconstructs a CArray from a persistent root directory, per
// spec.md §4.4's "From root directory" construction path.
func Open(root string, opts Options) (*CArray, error) {
	opts = opts.EnsureDefaults()

	layout, err := meta.Open(root)
	if err != nil {
		return nil, err
	}
	storage, err := layout.ReadStorage()
	if err != nil {
		return nil, err
	}
	sizes, err := layout.ReadSizes()
	if err != nil {
		return nil, err
	}
	typ, err := dtype.ParseDescriptor(storage.Dtype)
	if err != nil {
		return nil, err
	}

	n := 0
	if len(sizes.Shape) > 0 {
		n = sizes.Shape[0]
	}
	nchunks := 0
	leftoverRows := 0
	if storage.Chunklen > 0 {
		nchunks = n / storage.Chunklen
		leftoverRows = n % storage.Chunklen
	}

	readOnly := opts.Mode == ModeRead
	ca := &CArray{
		typ:         typ,
		reg:         codec.Registry{Threads: opts.Threads},
		params:      storage.CParams.ToParams(),
		chunklen:    storage.Chunklen,
		expectedLen: storage.ExpectedLen,
		n:           n,
		dflt:        decodeDefaultJSON(typ, storage.Default),
		mode:        opts.Mode,
		readOnly:    readOnly,
		root:        root,
		layout:      layout,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		cache:       blockCache{state: cacheEmptyState},
	}

	store := chunkstore.NewDiskStore(layout.DataDir(), ca.reg, typ, ca.chunklen, nchunks, readOnly)
	ca.store = store
	ca.leftover = make([]byte, ca.chunklen*typ.AtomSize)

	if leftoverRows > 0 {
		tail, err := store.ReadTail(leftoverRows)
		if err != nil {
			return nil, err
		}
		if err := ca.decompressChunk(tail, ca.leftover[:leftoverRows*typ.AtomSize], 0, leftoverRows); err != nil {
			return nil, err
		}
		ca.leftoverRows = leftoverRows
	}

	attrs, err := meta.NewAttrs(layout.AttrsDir(), readOnly)
	if err != nil {
		return nil, err
	}
	ca.attrs = attrs

	if opts.Mode == ModeWrite {
		if err := ca.Resize(0); err != nil {
			return nil, err
		}
	}
	return ca, nil
}
