package bcolz

import (
	"github.com/cockroachdb/errors"

	"github.com/stefan-jansen/bcolz-zipline/internal/cerrors"
	"github.com/stefan-jansen/bcolz-zipline/internal/dtype"
)

// Rather than a single state machine driven by mode flags, each
// iteration mode is its own concrete type owning only the fields it
// needs, constructed by Range/WhereTrue/Where, per spec.md §9's
// "Iteration control flow" design note. WhereTrueIter reads one chunk
// (the I/O buffer) at a time; RangeIter and WhereIter read one element
// at a time through GetScalar and its block cache.

// RangeIter yields element values over [start, stop, step) in order.
type RangeIter struct {
	ca          *CArray
	start, stop int
	step        int
	skip, limit int
	pos         int // next logical position to consider, in [start, stop) step space
	yielded     int
	exhausted   bool
}

// Range constructs a plain-range iterator. limit, if positive, bounds
// the total count including skip (so the net yielded count is
// limit-skip); skip is zero or positive and consumed before the first
// yield.
func (ca *CArray) Range(start, stop, step, skip, limit int) (*RangeIter, error) {
	start, stop, err := canonicalizeSlice(start, stop, step, ca.n)
	if err != nil {
		return nil, err
	}
	return &RangeIter{ca: ca, start: start, stop: stop, step: step, skip: skip, limit: limit, pos: start}, nil
}

// Next returns the next element value, or ok=false when the iteration is
// exhausted. Calling Next after exhaustion keeps reporting exhaustion.
func (it *RangeIter) Next() (value []byte, ok bool, err error) {
	if it.exhausted {
		return nil, false, nil
	}
	for it.pos < it.stop {
		if it.limit > 0 && it.yielded >= it.limit {
			it.exhausted = true
			return nil, false, nil
		}
		p := it.pos
		it.pos += it.step
		it.yielded++
		if it.skip > 0 {
			it.skip--
			continue
		}
		v, err := it.ca.GetScalar(p)
		if err != nil {
			return nil, false, err
		}
		return v, true, nil
	}
	it.exhausted = true
	return nil, false, nil
}

// WhereTrueIter yields indices where a rank-1 boolean array is true.
type WhereTrueIter struct {
	ca          *CArray
	skip, limit int
	yielded     int
	nc          int // current chunk index, or ca.store.Len() for the tail
	chunkBuf    []byte
	chunkStart  int
	chunkRows   int
	offInChunk  int
	exhausted   bool
}

// WhereTrue constructs a wheretrue iterator over a boolean, rank-1
// array, per spec.md §4.4's "Iteration" section.
func (ca *CArray) WhereTrue(skip, limit int) (*WhereTrueIter, error) {
	if ca.typ.Kind != dtype.Bool {
		return nil, errors.Wrap(cerrors.ErrInvalidArgument, "bcolz: wheretrue requires a boolean element type")
	}
	return &WhereTrueIter{ca: ca, skip: skip, limit: limit}, nil
}

func (it *WhereTrueIter) loadChunk() (ok bool, err error) {
	nchunks := it.ca.store.Len()
	for it.nc <= nchunks {
		if it.nc == nchunks {
			if it.ca.leftoverRows == 0 {
				it.nc++
				continue
			}
			it.chunkStart = it.nc * it.ca.chunklen
			it.chunkRows = it.ca.leftoverRows
			it.chunkBuf = append([]byte(nil), it.ca.leftover[:it.chunkRows]...)
			it.offInChunk = 0
			it.nc++
			return true, nil
		}
		c, err := it.ca.store.Get(it.nc)
		if err != nil {
			return false, err
		}
		it.chunkStart = it.nc * it.ca.chunklen
		it.chunkRows = c.Len()
		it.nc++
		// Constant-chunk elision: a zero-valued constant chunk contains
		// no true rows, so skip it without decompressing.
		if c.IsConstant() && c.ConstValue()[0] == 0 {
			continue
		}
		if c.IsConstant() {
			it.chunkBuf = make([]byte, it.chunkRows)
			for i := range it.chunkBuf {
				it.chunkBuf[i] = 1
			}
		} else {
			it.chunkBuf = make([]byte, it.chunkRows)
			if err := it.ca.decompressChunk(c, it.chunkBuf, 0, it.chunkRows); err != nil {
				return false, err
			}
		}
		it.offInChunk = 0
		return true, nil
	}
	return false, nil
}

// Next returns the next true index, or ok=false when exhausted.
func (it *WhereTrueIter) Next() (index int, ok bool, err error) {
	if it.exhausted {
		return 0, false, nil
	}
	for {
		if it.chunkBuf == nil || it.offInChunk >= it.chunkRows {
			loaded, err := it.loadChunk()
			if err != nil {
				return 0, false, err
			}
			if !loaded {
				it.exhausted = true
				return 0, false, nil
			}
			continue
		}
		if it.limit > 0 && it.yielded >= it.limit {
			it.exhausted = true
			return 0, false, nil
		}
		row := it.offInChunk
		it.offInChunk++
		if it.chunkBuf[row] == 0 {
			continue
		}
		it.yielded++
		if it.skip > 0 {
			it.skip--
			continue
		}
		return it.chunkStart + row, true, nil
	}
}

// WhereIter yields element values where a companion mask is true.
type WhereIter struct {
	ca          *CArray
	mask        []bool
	skip, limit int
	yielded     int
	pos         int
	exhausted   bool
}

// Where constructs a where iterator selecting rows of ca where mask is
// true. mask must have length ca.Len().
func (ca *CArray) Where(mask []bool, skip, limit int) (*WhereIter, error) {
	if len(mask) != ca.n {
		return nil, errors.Wrap(cerrors.ErrInvalidArgument, "bcolz: mask length must equal array length")
	}
	return &WhereIter{ca: ca, mask: mask, skip: skip, limit: limit}, nil
}

// Next returns the next selected element value, or ok=false when
// exhausted. The mask is scanned one position at a time and ca's data is
// read only at positions where the mask is true; there is no chunk-level
// elision.
func (it *WhereIter) Next() (value []byte, ok bool, err error) {
	if it.exhausted {
		return nil, false, nil
	}
	for it.pos < len(it.mask) {
		if it.limit > 0 && it.yielded >= it.limit {
			it.exhausted = true
			return nil, false, nil
		}
		p := it.pos
		it.pos++
		if !it.mask[p] {
			continue
		}
		it.yielded++
		if it.skip > 0 {
			it.skip--
			continue
		}
		v, err := it.ca.GetScalar(p)
		if err != nil {
			return nil, false, err
		}
		return v, true, nil
	}
	it.exhausted = true
	return nil, false, nil
}
