package bcolz

import (
	"github.com/cockroachdb/errors"

	"github.com/stefan-jansen/bcolz-zipline/internal/cerrors"
	"github.com/stefan-jansen/bcolz-zipline/internal/chunk"
	"github.com/stefan-jansen/bcolz-zipline/internal/dtype"
)

// Append adds m rows of element-type-compatible data to the end of the
// array, per spec.md §4.4's "Append" algorithm.
func (ca *CArray) Append(data []byte) error {
	if ca.readOnly {
		return cerrors.ErrReadOnly
	}
	if ca.typ.Kind == dtype.Object {
		return errors.Wrap(cerrors.ErrNotSupported, "bcolz: use AppendObject for object-kind arrays")
	}
	atomSize := ca.typ.AtomSize
	if atomSize > 0 && len(data)%atomSize != 0 {
		return errors.Wrap(cerrors.ErrTypeMismatch, "bcolz: data length is not a multiple of the atom size")
	}
	m := 0
	if atomSize > 0 {
		m = len(data) / atomSize
	}

	chunkBytes := ca.chunklen * atomSize
	leftoverBytes := ca.leftoverRows * atomSize

	if leftoverBytes+len(data) < chunkBytes {
		copy(ca.leftover[leftoverBytes:leftoverBytes+len(data)], data)
		ca.leftoverRows += m
		ca.n += m
		ca.cache.invalidate()
		return nil
	}

	off := 0
	k := ca.chunklen - ca.leftoverRows
	fillBytes := k * atomSize
	copy(ca.leftover[leftoverBytes:], data[:fillBytes])
	if err := ca.appendFullChunk(ca.leftover[:chunkBytes]); err != nil {
		return err
	}
	off += fillBytes
	ca.leftoverRows = 0

	for off+chunkBytes <= len(data) {
		if err := ca.appendFullChunk(data[off : off+chunkBytes]); err != nil {
			return err
		}
		off += chunkBytes
	}

	remBytes := len(data) - off
	if remBytes > 0 {
		copy(ca.leftover[:remBytes], data[off:])
	}
	ca.leftoverRows = remBytes / maxInt(atomSize, 1)
	ca.n += m
	ca.cache.invalidate()
	return nil
}

// AppendObject appends a single already-host-serialized element to an
// Object-kind array, per spec.md §4.2's from_pickled_object constructor
// and §4.4's "O-kind bypasses the tail" rule: len() then equals the
// chunk store's length.
func (ca *CArray) AppendObject(data []byte) error {
	if ca.readOnly {
		return cerrors.ErrReadOnly
	}
	if ca.typ.Kind != dtype.Object {
		return errors.Wrap(cerrors.ErrNotSupported, "bcolz: AppendObject requires an object-kind array")
	}
	c, err := chunk.FromPickledObject(ca.reg, data, ca.params)
	if err != nil {
		return err
	}
	if err := ca.store.Append(c); err != nil {
		return err
	}
	ca.n = ca.store.Len()
	return nil
}

// Trim removes the last k rows, per spec.md §4.4's "Trim" algorithm.
func (ca *CArray) Trim(k int) error {
	if ca.readOnly {
		return cerrors.ErrReadOnly
	}
	if k < 0 {
		return errors.Wrap(cerrors.ErrInvalidArgument, "bcolz: trim count must be non-negative")
	}
	if k > ca.n {
		return cerrors.ErrOutOfRange
	}
	if k == 0 {
		return nil
	}
	atomSize := ca.typ.AtomSize

	if k <= ca.leftoverRows {
		ca.leftoverRows -= k
		ca.n -= k
		ca.cache.invalidate()
		if ca.root != "" {
			return ca.Flush()
		}
		return nil
	}

	newN := ca.n - k
	newNchunks := newN / ca.chunklen
	newLeftoverRows := newN % ca.chunklen

	keep := newNchunks
	if newLeftoverRows > 0 {
		// The chunk that becomes the new tail stays in the store one
		// extra round, so its prefix can be read before it is popped.
		keep++
	}
	for ca.store.Len() > keep {
		if err := ca.store.Pop(); err != nil {
			return err
		}
	}

	if newLeftoverRows > 0 {
		last, err := ca.store.Get(newNchunks)
		if err != nil {
			return err
		}
		if err := ca.decompressChunk(last, ca.leftover[:newLeftoverRows*atomSize], 0, newLeftoverRows); err != nil {
			return err
		}
		if err := ca.store.Pop(); err != nil {
			return err
		}
	}

	ca.leftoverRows = newLeftoverRows
	ca.n = newN
	ca.cache.invalidate()
	if ca.root != "" {
		return ca.Flush()
	}
	return nil
}

// Resize grows or shrinks the array to newLen, filling new rows with the
// default value on growth, per spec.md §4.4's "Resize" algorithm.
func (ca *CArray) Resize(newLen int) error {
	if newLen < 0 {
		return errors.Wrap(cerrors.ErrInvalidArgument, "bcolz: length must be non-negative")
	}
	if newLen == ca.n {
		return nil
	}
	if newLen > ca.n {
		grow := newLen - ca.n
		atomSize := maxInt(ca.typ.AtomSize, 1)
		buf := make([]byte, grow*atomSize)
		for off := 0; off < len(buf); off += atomSize {
			copy(buf[off:off+atomSize], ca.dflt)
		}
		return ca.Append(buf)
	}
	return ca.Trim(ca.n - newLen)
}
