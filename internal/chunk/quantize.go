package chunk

import (
	"encoding/binary"
	"math"

	"github.com/stefan-jansen/bcolz-zipline/internal/dtype"
)

// quantize rounds float32/float64 elements in buf to digits significant
// decimal digits, value-preserving up to that precision, per spec.md
// §4.2. It returns a new buffer; the input is left untouched.
func quantize(buf []byte, typ dtype.Type, digits int) []byte {
	out := append([]byte(nil), buf...)
	switch typ.Kind {
	case dtype.Float64:
		for off := 0; off+8 <= len(out); off += 8 {
			v := math.Float64frombits(binary.LittleEndian.Uint64(out[off : off+8]))
			binary.LittleEndian.PutUint64(out[off:off+8], math.Float64bits(roundSignificant(v, digits)))
		}
	case dtype.Float32:
		for off := 0; off+4 <= len(out); off += 4 {
			v := float64(math.Float32frombits(binary.LittleEndian.Uint32(out[off : off+4])))
			binary.LittleEndian.PutUint32(out[off:off+4], math.Float32bits(float32(roundSignificant(v, digits))))
		}
	}
	return out
}

// roundSignificant rounds v to the given number of significant decimal
// digits.
func roundSignificant(v float64, digits int) float64 {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	mag := math.Floor(math.Log10(math.Abs(v))) + 1
	scale := math.Pow(10, float64(digits)-mag)
	return math.Round(v*scale) / scale
}
