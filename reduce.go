package bcolz

import (
	"encoding/binary"
	"math"

	"github.com/stefan-jansen/bcolz-zipline/internal/cerrors"
	"github.com/stefan-jansen/bcolz-zipline/internal/dtype"
)

// Sum reduces the array with dtype promotion per spec.md §4.4's
// "Reduction: sum": booleans and integer kinds widen to int64; floats
// keep their element width (float32 stays float32, float64 stays
// float64). Constant chunks contribute constant*chunklen without
// decompression; boolean chunks contribute their cached true_count.
func (ca *CArray) Sum() (any, error) {
	switch {
	case ca.typ.Kind == dtype.Bool:
		return ca.sumBool()
	case ca.typ.Kind.IsInteger():
		return ca.sumInt()
	case ca.typ.Kind == dtype.Float32:
		v, err := ca.sumFloat()
		return float32(v), err
	case ca.typ.Kind == dtype.Float64:
		return ca.sumFloat()
	default:
		return nil, cerrors.ErrNotSupported
	}
}

func (ca *CArray) sumBool() (int64, error) {
	var total int64
	nchunks := ca.store.Len()
	for i := 0; i < nchunks; i++ {
		c, err := ca.store.Get(i)
		if err != nil {
			return 0, err
		}
		if c.IsConstant() {
			if c.ConstValue()[0] != 0 {
				total += int64(c.Len())
			}
			continue
		}
		total += int64(c.TrueCount())
	}
	for row := 0; row < ca.leftoverRows; row++ {
		if ca.leftover[row] != 0 {
			total++
		}
	}
	return total, nil
}

func (ca *CArray) sumInt() (int64, error) {
	var total int64
	nchunks := ca.store.Len()
	atomSize := ca.typ.AtomSize
	for i := 0; i < nchunks; i++ {
		c, err := ca.store.Get(i)
		if err != nil {
			return 0, err
		}
		if c.IsConstant() {
			total += decodeIntScalar(c.ConstValue(), ca.typ.Kind) * int64(c.Len())
			continue
		}
		rows := c.Len()
		buf := make([]byte, rows*atomSize)
		if err := ca.decompressChunk(c, buf, 0, rows); err != nil {
			return 0, err
		}
		for off := 0; off < len(buf); off += atomSize {
			total += decodeIntScalar(buf[off:off+atomSize], ca.typ.Kind)
		}
	}
	for row := 0; row < ca.leftoverRows; row++ {
		total += decodeIntScalar(ca.leftover[row*atomSize:(row+1)*atomSize], ca.typ.Kind)
	}
	return total, nil
}

func (ca *CArray) sumFloat() (float64, error) {
	var total float64
	nchunks := ca.store.Len()
	atomSize := ca.typ.AtomSize
	for i := 0; i < nchunks; i++ {
		c, err := ca.store.Get(i)
		if err != nil {
			return 0, err
		}
		if c.IsConstant() {
			total += decodeFloatScalar(c.ConstValue(), ca.typ.Kind) * float64(c.Len())
			continue
		}
		rows := c.Len()
		buf := make([]byte, rows*atomSize)
		if err := ca.decompressChunk(c, buf, 0, rows); err != nil {
			return 0, err
		}
		for off := 0; off < len(buf); off += atomSize {
			total += decodeFloatScalar(buf[off:off+atomSize], ca.typ.Kind)
		}
	}
	for row := 0; row < ca.leftoverRows; row++ {
		total += decodeFloatScalar(ca.leftover[row*atomSize:(row+1)*atomSize], ca.typ.Kind)
	}
	return total, nil
}

func decodeIntScalar(buf []byte, kind dtype.Kind) int64 {
	switch kind {
	case dtype.Int8:
		return int64(int8(buf[0]))
	case dtype.Uint8:
		return int64(buf[0])
	case dtype.Int16:
		return int64(int16(binary.LittleEndian.Uint16(buf)))
	case dtype.Uint16:
		return int64(binary.LittleEndian.Uint16(buf))
	case dtype.Int32:
		return int64(int32(binary.LittleEndian.Uint32(buf)))
	case dtype.Uint32:
		return int64(binary.LittleEndian.Uint32(buf))
	case dtype.Int64:
		return int64(binary.LittleEndian.Uint64(buf))
	case dtype.Uint64:
		return int64(binary.LittleEndian.Uint64(buf))
	default:
		return 0
	}
}

func decodeFloatScalar(buf []byte, kind dtype.Kind) float64 {
	switch kind {
	case dtype.Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(buf)))
	case dtype.Float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(buf))
	default:
		return 0
	}
}
