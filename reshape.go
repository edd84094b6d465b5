package bcolz

import (
	"os"

	"github.com/cockroachdb/errors"

	"github.com/stefan-jansen/bcolz-zipline/internal/cerrors"
	"github.com/stefan-jansen/bcolz-zipline/internal/dtype"
	"github.com/stefan-jansen/bcolz-zipline/internal/meta"
)

// Reshape returns a copy of ca with a new shape holding the same total
// element count, per spec.md §4.4's "Reshape" algorithm. At most one
// dimension of newShape may be -1, inferred from the total count. If ca
// is persistent, the copy is built into a sibling temporary directory;
// on success the original root is deleted and the temporary directory is
// renamed into its place. The replacement is these two steps, not one
// atomic rename.
func (ca *CArray) Reshape(newShape []int) (*CArray, error) {
	if len(newShape) == 0 {
		return nil, errors.Wrap(cerrors.ErrInvalidArgument, "bcolz: shape must have at least one dimension")
	}
	total := ca.n
	for _, d := range ca.typ.TrailingShape {
		total *= d
	}

	inferIdx := -1
	known := 1
	for i, d := range newShape {
		switch {
		case d == -1:
			if inferIdx != -1 {
				return nil, errors.Wrap(cerrors.ErrInvalidArgument, "bcolz: at most one -1 dimension allowed")
			}
			inferIdx = i
		case d <= 0:
			return nil, errors.Wrap(cerrors.ErrInvalidArgument, "bcolz: shape dimensions must be positive or a single -1")
		default:
			known *= d
		}
	}
	resolved := append([]int(nil), newShape...)
	if inferIdx != -1 {
		if known == 0 || total%known != 0 {
			return nil, errors.Wrap(cerrors.ErrInvalidArgument, "bcolz: shape is not compatible with the element count")
		}
		resolved[inferIdx] = total / known
	} else if known != total {
		return nil, errors.Wrap(cerrors.ErrInvalidArgument, "bcolz: shape does not match the element count")
	}

	newTyp, err := dtype.New(ca.typ.Kind, ca.typ.ItemSize, resolved[1:]...)
	if err != nil {
		return nil, err
	}

	flat, err := ca.GetSlice(0, ca.n, 1)
	if err != nil {
		return nil, err
	}

	if ca.root == "" {
		return New(flat, newTyp, Options{
			CParams:     ca.params,
			ExpectedLen: resolved[0],
			Logger:      ca.logger,
			Metrics:     ca.metrics,
			Threads:     ca.reg.Threads,
		})
	}

	tempRoot := ca.root + ".reshape.tmp"
	_ = meta.Purge(tempRoot)
	built, err := New(flat, newTyp, Options{
		CParams:     ca.params,
		ExpectedLen: resolved[0],
		Root:        tempRoot,
		Mode:        ModeAppend,
		Logger:      ca.logger,
		Metrics:     ca.metrics,
		Threads:     ca.reg.Threads,
	})
	if err != nil {
		return nil, err
	}
	if err := built.Flush(); err != nil {
		return nil, err
	}

	if err := meta.Purge(ca.root); err != nil {
		return nil, err
	}
	if err := os.Rename(tempRoot, ca.root); err != nil {
		return nil, errors.Wrap(cerrors.ErrIO, err.Error())
	}
	return Open(ca.root, Options{Mode: ca.mode, Logger: ca.logger, Metrics: ca.metrics, Threads: ca.reg.Threads})
}

// Copy returns a fully independent copy of ca built with opts. Zero-valued
// CParams (empty codec name), Logger, Metrics and Threads fall back to
// ca's own; a zero ExpectedLen becomes ca.Len(). A zero Chunklen is
// derived by the chunk-length heuristic rather than copied from ca, and
// an empty Root makes the copy in-memory.
func (ca *CArray) Copy(opts Options) (*CArray, error) {
	flat, err := ca.GetSlice(0, ca.n, 1)
	if err != nil {
		return nil, err
	}
	if opts.CParams.CodecName == "" {
		opts.CParams = ca.params
	}
	if opts.ExpectedLen == 0 {
		opts.ExpectedLen = ca.n
	}
	if opts.Logger == nil {
		opts.Logger = ca.logger
	}
	if opts.Metrics == nil {
		opts.Metrics = ca.metrics
	}
	if opts.Threads == 0 {
		opts.Threads = ca.reg.Threads
	}
	return New(flat, ca.typ, opts)
}

// View returns a new CArray sharing ca's chunk store. The leftover
// buffer is borrowed by value-copy at view time; writes through the
// view are permitted if the underlying store is mutable, but the block
// cache is independent, per spec.md §3's "Ownership" section. The view
// gets its own attribute bag: for an in-memory array it starts empty;
// for a persistent array it is loaded from, and writes to, the same
// attrs/ directory as ca.
func (ca *CArray) View() (*CArray, error) {
	attrsDir := ""
	if ca.root != "" {
		attrsDir = ca.layout.AttrsDir()
	}
	attrs, err := meta.NewAttrs(attrsDir, ca.readOnly)
	if err != nil {
		return nil, err
	}
	v := &CArray{
		typ:         ca.typ,
		reg:         ca.reg,
		params:      ca.params,
		chunklen:    ca.chunklen,
		expectedLen: ca.expectedLen,
		n:           ca.n,
		store:       ca.store,
		leftover:    append([]byte(nil), ca.leftover...),
		leftoverRows: ca.leftoverRows,
		dflt:        ca.dflt,
		cache:       blockCache{state: cacheEmptyState},
		mode:        ca.mode,
		readOnly:    ca.readOnly,
		root:        ca.root,
		layout:      ca.layout,
		attrs:       attrs,
		logger:      ca.logger,
		metrics:     ca.metrics,
	}
	return v, nil
}
