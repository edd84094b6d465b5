package bcolz

import (
	"github.com/cockroachdb/errors"

	"github.com/stefan-jansen/bcolz-zipline/internal/cerrors"
	"github.com/stefan-jansen/bcolz-zipline/internal/chunk"
)

// GetFancy reads the elements at the given indices, in the order given.
// Indices need not be sorted or unique.
func (ca *CArray) GetFancy(indices []int) ([]byte, error) {
	atomSize := ca.typ.AtomSize
	dst := make([]byte, len(indices)*atomSize)
	for i, idx := range indices {
		v, err := ca.GetScalar(idx)
		if err != nil {
			return nil, err
		}
		copy(dst[i*atomSize:(i+1)*atomSize], v)
	}
	return dst, nil
}

// SetFancy writes data to the given indices, one atom per index. Writes
// are grouped by containing chunk so each affected chunk is decompressed
// and rebuilt at most once.
func (ca *CArray) SetFancy(indices []int, data []byte) error {
	if ca.readOnly {
		return cerrors.ErrReadOnly
	}
	atomSize := ca.typ.AtomSize
	if len(data) != len(indices)*atomSize {
		return errors.Wrap(cerrors.ErrInvalidArgument, "bcolz: input length does not match index count")
	}
	byChunk := map[int][]int{} // chunk index -> positions into indices
	for pos, idx := range indices {
		if idx < 0 || idx >= ca.n {
			return cerrors.ErrOutOfRange
		}
		byChunk[idx/ca.chunklen] = append(byChunk[idx/ca.chunklen], pos)
	}

	nchunks := ca.store.Len()
	for nc, positions := range byChunk {
		if nc >= nchunks {
			for _, pos := range positions {
				row := indices[pos] % ca.chunklen
				copy(ca.leftover[row*atomSize:(row+1)*atomSize], data[pos*atomSize:(pos+1)*atomSize])
			}
			continue
		}
		c, err := ca.store.Get(nc)
		if err != nil {
			return err
		}
		rows := c.Len()
		full := make([]byte, rows*atomSize)
		if err := ca.decompressChunk(c, full, 0, rows); err != nil {
			return err
		}
		for _, pos := range positions {
			row := indices[pos] % ca.chunklen
			copy(full[row*atomSize:(row+1)*atomSize], data[pos*atomSize:(pos+1)*atomSize])
		}
		newChunk, err := chunk.FromArray(ca.reg, full, rows, ca.typ, ca.params)
		if err != nil {
			return err
		}
		if err := ca.store.Set(nc, newChunk); err != nil {
			return err
		}
	}
	ca.cache.invalidate()
	return nil
}

// SetMask scatters data (of length sum(mask)) into the positions where
// mask is true, per spec.md §4.4's "Boolean-mask write" algorithm: each
// chunk is processed independently, skipped entirely when none of its
// rows are selected.
func (ca *CArray) SetMask(mask []bool, data []byte) error {
	if ca.readOnly {
		return cerrors.ErrReadOnly
	}
	if len(mask) != ca.n {
		return errors.Wrap(cerrors.ErrInvalidArgument, "bcolz: mask length must equal array length")
	}
	atomSize := ca.typ.AtomSize
	nSet := 0
	for _, b := range mask {
		if b {
			nSet++
		}
	}
	if len(data) != nSet*atomSize {
		return errors.Wrap(cerrors.ErrInvalidArgument, "bcolz: value buffer length does not match mask popcount")
	}

	nchunks := ca.store.Len()
	dataOff := 0

	for nc := 0; nc*ca.chunklen < ca.n; nc++ {
		chunkStart := nc * ca.chunklen
		chunkEnd := chunkStart + ca.chunklen
		if chunkEnd > ca.n {
			chunkEnd = ca.n
		}
		chunkMask := mask[chunkStart:chunkEnd]

		hits := 0
		for _, b := range chunkMask {
			if b {
				hits++
			}
		}
		if hits == 0 {
			continue
		}

		if nc >= nchunks {
			for row, set := range chunkMask {
				if !set {
					continue
				}
				copy(ca.leftover[row*atomSize:(row+1)*atomSize], data[dataOff:dataOff+atomSize])
				dataOff += atomSize
			}
			continue
		}

		c, err := ca.store.Get(nc)
		if err != nil {
			return err
		}
		rows := c.Len()
		full := make([]byte, rows*atomSize)
		if err := ca.decompressChunk(c, full, 0, rows); err != nil {
			return err
		}
		for row, set := range chunkMask {
			if !set {
				continue
			}
			copy(full[row*atomSize:(row+1)*atomSize], data[dataOff:dataOff+atomSize])
			dataOff += atomSize
		}
		newChunk, err := chunk.FromArray(ca.reg, full, rows, ca.typ, ca.params)
		if err != nil {
			return err
		}
		if err := ca.store.Set(nc, newChunk); err != nil {
			return err
		}
	}
	ca.cache.invalidate()
	return nil
}
