package bcolz

import (
	"github.com/cockroachdb/errors"

	"github.com/stefan-jansen/bcolz-zipline/internal/cerrors"
	"github.com/stefan-jansen/bcolz-zipline/internal/chunk"
)

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// canonicalizeSlice clamps (start, stop) into [0, n] per spec.md §4.4's
// "Slice read" canonicalization; step must be positive.
func canonicalizeSlice(start, stop, step, n int) (int, int, error) {
	if step <= 0 {
		return 0, 0, errors.Wrap(cerrors.ErrNotSupported, "bcolz: step must be positive")
	}
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	if stop < start {
		stop = start
	}
	if stop > n {
		stop = n
	}
	return start, stop, nil
}

// clipToChunk implements the chunk-clipping routine of spec.md §4.4:
// given the global slice bounds and a chunk's row range [chunkStart,
// chunkStart+chunklen), it returns the chunk-local [startb, stopb) and
// the number of strided elements blen it contains.
func clipToChunk(start, stop, step, chunkStart, chunklen int) (startb, stopb, blen int) {
	startb = start - chunkStart
	if startb < 0 {
		startb = 0
	}
	dist := chunkStart + startb - start
	adv := (step - dist%step) % step
	startb += adv
	if startb >= chunklen {
		return 0, 0, 0
	}
	stopb = stop - chunkStart
	if stopb > chunklen {
		stopb = chunklen
	}
	if stopb <= startb {
		return 0, 0, 0
	}
	blen = ceilDiv(stopb-startb, step)
	return startb, stopb, blen
}

// GetSlice reads elements [start:stop:step] into a newly allocated
// buffer, per spec.md §4.4's "Slice read" algorithm.
func (ca *CArray) GetSlice(start, stop, step int) ([]byte, error) {
	start, stop, err := canonicalizeSlice(start, stop, step, ca.n)
	if err != nil {
		return nil, err
	}
	atomSize := ca.typ.AtomSize
	outLen := ceilDiv(stop-start, step)
	dst := make([]byte, outLen*atomSize)
	if outLen == 0 {
		return dst, nil
	}

	nchunks := ca.store.Len()
	firstChunk := start / ca.chunklen
	lastChunkExcl := (stop-1)/ca.chunklen + 1
	outOff := 0

	for i := firstChunk; i < lastChunkExcl; i++ {
		chunkStart := i * ca.chunklen
		startb, stopb, blen := clipToChunk(start, stop, step, chunkStart, ca.chunklen)
		if blen <= 0 {
			continue
		}
		dstSlice := dst[outOff : outOff+blen*atomSize]

		if i < nchunks {
			c, err := ca.store.Get(i)
			if err != nil {
				return nil, err
			}
			if err := ca.readChunkRange(c, dstSlice, startb, stopb, step, blen); err != nil {
				return nil, err
			}
		} else {
			ca.readLeftoverRange(dstSlice, startb, step, blen)
		}
		outOff += blen * atomSize
	}
	return dst, nil
}

func (ca *CArray) readChunkRange(c *chunk.Chunk, dst []byte, startb, stopb, step, blen int) error {
	atomSize := ca.typ.AtomSize
	if step == 1 {
		return ca.decompressChunk(c, dst, startb, stopb)
	}
	scratch := make([]byte, (stopb-startb)*atomSize)
	if err := ca.decompressChunk(c, scratch, startb, stopb); err != nil {
		return err
	}
	for j := 0; j < blen; j++ {
		copy(dst[j*atomSize:(j+1)*atomSize], scratch[j*step*atomSize:j*step*atomSize+atomSize])
	}
	return nil
}

func (ca *CArray) readLeftoverRange(dst []byte, startb, step, blen int) {
	atomSize := ca.typ.AtomSize
	for j := 0; j < blen; j++ {
		row := startb + j*step
		copy(dst[j*atomSize:(j+1)*atomSize], ca.leftover[row*atomSize:(row+1)*atomSize])
	}
}

// SetSlice overwrites elements [start:stop:step] from data, per spec.md
// §4.4's "Slice write" algorithm.
func (ca *CArray) SetSlice(start, stop, step int, data []byte) error {
	if ca.readOnly {
		return cerrors.ErrReadOnly
	}
	start, stop, err := canonicalizeSlice(start, stop, step, ca.n)
	if err != nil {
		return err
	}
	atomSize := ca.typ.AtomSize
	wantLen := ceilDiv(stop-start, step)
	if len(data) != wantLen*atomSize {
		return errors.Wrap(cerrors.ErrInvalidArgument, "bcolz: input length does not match slice length")
	}
	if wantLen == 0 {
		return nil
	}

	nchunks := ca.store.Len()
	firstChunk := start / ca.chunklen
	lastChunkExcl := (stop-1)/ca.chunklen + 1
	inOff := 0

	for i := firstChunk; i < lastChunkExcl; i++ {
		chunkStart := i * ca.chunklen
		startb, stopb, blen := clipToChunk(start, stop, step, chunkStart, ca.chunklen)
		if blen <= 0 {
			continue
		}
		srcSlice := data[inOff : inOff+blen*atomSize]

		if i < nchunks {
			if err := ca.writeChunkRange(i, srcSlice, startb, stopb, step, blen); err != nil {
				return err
			}
		} else {
			ca.writeLeftoverRange(srcSlice, startb, step, blen)
		}
		inOff += blen * atomSize
	}
	ca.cache.invalidate()
	return nil
}

func (ca *CArray) writeChunkRange(i int, src []byte, startb, stopb, step, blen int) error {
	atomSize := ca.typ.AtomSize
	c, err := ca.store.Get(i)
	if err != nil {
		return err
	}
	rows := c.Len()

	if step == 1 && startb == 0 && stopb == rows {
		newChunk, err := chunk.FromArray(ca.reg, src, rows, ca.typ, ca.params)
		if err != nil {
			return err
		}
		return ca.store.Set(i, newChunk)
	}

	full := make([]byte, rows*atomSize)
	if err := ca.decompressChunk(c, full, 0, rows); err != nil {
		return err
	}
	for j := 0; j < blen; j++ {
		row := startb + j*step
		copy(full[row*atomSize:(row+1)*atomSize], src[j*atomSize:(j+1)*atomSize])
	}
	newChunk, err := chunk.FromArray(ca.reg, full, rows, ca.typ, ca.params)
	if err != nil {
		return err
	}
	return ca.store.Set(i, newChunk)
}

func (ca *CArray) writeLeftoverRange(src []byte, startb, step, blen int) {
	atomSize := ca.typ.AtomSize
	for j := 0; j < blen; j++ {
		row := startb + j*step
		copy(ca.leftover[row*atomSize:(row+1)*atomSize], src[j*atomSize:(j+1)*atomSize])
	}
}

// GetScalar reads element p using the block cache, per spec.md §4.4's
// "Scalar read (block cache)" algorithm.
func (ca *CArray) GetScalar(p int) ([]byte, error) {
	if p < 0 || p >= ca.n {
		return nil, cerrors.ErrOutOfRange
	}
	atomSize := ca.typ.AtomSize
	nchunk := p / ca.chunklen
	offsetInChunk := p % ca.chunklen
	nchunks := ca.store.Len()

	if nchunk >= nchunks {
		dst := make([]byte, atomSize)
		copy(dst, ca.leftover[offsetInChunk*atomSize:(offsetInChunk+1)*atomSize])
		return dst, nil
	}

	c, err := ca.store.Get(nchunk)
	if err != nil {
		return nil, err
	}
	blockSize := c.BlockSize()
	if atomSize > blockSize {
		// Cache cannot hold a single row; fall back to a length-1 read.
		out, err := ca.GetSlice(p, p+1, 1)
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	blockLen := blockSize / atomSize
	blockOffsetInChunk := (offsetInChunk / blockLen) * blockLen
	absoluteStart := nchunk*ca.chunklen + blockOffsetInChunk

	if ca.cache.state == cacheValidState && ca.cache.row == absoluteStart {
		localOff := (offsetInChunk - blockOffsetInChunk) * atomSize
		dst := make([]byte, atomSize)
		copy(dst, ca.cache.buf[localOff:localOff+atomSize])
		return dst, nil
	}

	stopRow := blockOffsetInChunk + blockLen
	if stopRow > c.Len() {
		stopRow = c.Len()
	}
	buf := make([]byte, (stopRow-blockOffsetInChunk)*atomSize)
	if err := ca.decompressChunk(c, buf, blockOffsetInChunk, stopRow); err != nil {
		return nil, err
	}
	ca.cache.state = cacheValidState
	ca.cache.row = absoluteStart
	ca.cache.buf = buf
	ca.cache.blockLen = stopRow - blockOffsetInChunk

	localOff := (offsetInChunk - blockOffsetInChunk) * atomSize
	dst := make([]byte, atomSize)
	copy(dst, buf[localOff:localOff+atomSize])
	return dst, nil
}

// SetScalar writes a single element, per spec.md §4.4 (scalar write is a
// length-1 slice write).
func (ca *CArray) SetScalar(p int, value []byte) error {
	return ca.SetSlice(p, p+1, 1, value)
}
