// Package dtype describes the element type of a CArray: its scalar kind,
// base item size, and any trailing (non-leading) shape dimensions folded
// into the atom size, per spec.md §3.
package dtype

import (
	"github.com/cockroachdb/errors"

	"github.com/stefan-jansen/bcolz-zipline/internal/cerrors"
)

// maxAtomSize is the spec.md §4.2 size limit: atoms of size >= 2^31 bytes
// are rejected with ErrTypeTooLarge.
const maxAtomSize = 1 << 31

// Kind enumerates the scalar element kinds spec.md §3 supports.
type Kind uint8

const (
	Bool Kind = iota
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
	// Bytes is a fixed-length byte string.
	Bytes
	// Rune4 is a fixed-length UCS-4 string; ItemSize is its byte length,
	// 4 bytes per code unit.
	Rune4
	// Opaque is a fixed-size composite record whose layout is opaque to
	// this module.
	Opaque
	// Object is the variable-length opaque "O" kind: one element per
	// chunk, serialized by the host via an ObjectCodec (see host.go in the
	// root bcolz package).
	Object
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	case Uint32:
		return "uint32"
	case Uint64:
		return "uint64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Bytes:
		return "bytes"
	case Rune4:
		return "ucs4"
	case Opaque:
		return "opaque"
	case Object:
		return "object"
	default:
		return "unknown"
	}
}

// baseItemSize returns the natural item size in bytes for fixed-width
// scalar kinds, or 0 for kinds whose item size is caller-supplied
// (Bytes, Rune4, Opaque, Object).
func baseItemSize(k Kind) int {
	switch k {
	case Bool, Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	default:
		return 0
	}
}

// IsFloat reports whether the kind is a floating-point scalar, the only
// kind quantization (spec.md §4.2) applies to.
func (k Kind) IsFloat() bool {
	return k == Float32 || k == Float64
}

// IsInteger reports whether the kind is a signed/unsigned integer,
// relevant to the sum-reduction dtype promotion rules of spec.md §4.4.
func (k Kind) IsInteger() bool {
	switch k {
	case Int8, Int16, Int32, Int64, Uint8, Uint16, Uint32, Uint64:
		return true
	}
	return false
}

// Type is a fixed-size record description: the element kind, its base
// item size in bytes, and any trailing shape dimensions folded into the
// atom.
type Type struct {
	Kind Kind
	// ItemSize is the size in bytes of one scalar. For Bool and the
	// integer/float kinds this is implied by Kind; for Bytes, Rune4 and
	// Opaque it is caller-supplied; Object has no fixed item size (it is
	// unused).
	ItemSize int
	// TrailingShape folds every non-leading dimension of the original
	// shape tuple into the atom, per spec.md §3.
	TrailingShape []int
	// AtomSize is ItemSize * prod(TrailingShape); computed by New.
	AtomSize int
}

// New constructs a Type, computing AtomSize and validating size limits.
// itemSize is ignored (and derived) for fixed-width scalar kinds.
func New(kind Kind, itemSize int, trailingShape ...int) (Type, error) {
	if base := baseItemSize(kind); base != 0 {
		itemSize = base
	}
	if itemSize <= 0 && kind != Object {
		return Type{}, errors.Wrapf(cerrors.ErrInvalidArgument, "dtype: item size must be positive for kind %s", kind)
	}
	shape := append([]int(nil), trailingShape...)
	prod := 1
	for _, d := range shape {
		if d <= 0 {
			return Type{}, errors.Wrapf(cerrors.ErrInvalidArgument, "dtype: trailing dimension must be positive, got %d", d)
		}
		prod *= d
	}
	atomSize := itemSize * prod
	if kind == Object {
		atomSize = 0
	}
	if atomSize >= maxAtomSize {
		return Type{}, errors.Wrapf(cerrors.ErrTypeTooLarge, "dtype: atom size %d exceeds limit", atomSize)
	}
	return Type{Kind: kind, ItemSize: itemSize, TrailingShape: shape, AtomSize: atomSize}, nil
}

// CodecItemSize returns the per-scalar size to feed the compression codec,
// per spec.md §4.2: Bytes -> 1, Rune4 -> 4, Opaque larger than the codec's
// per-item maximum falls back to 1 (byte-granular shuffling).
func (t Type) CodecItemSize(codecMaxTypeSize int) int {
	switch t.Kind {
	case Bytes:
		return 1
	case Rune4:
		return 4
	case Opaque:
		if t.ItemSize > codecMaxTypeSize {
			return 1
		}
		return t.ItemSize
	default:
		if t.ItemSize > codecMaxTypeSize {
			return 1
		}
		return t.ItemSize
	}
}

// Zero returns a zero-filled buffer sized for one atom.
func (t Type) Zero() []byte {
	return make([]byte, t.AtomSize)
}
