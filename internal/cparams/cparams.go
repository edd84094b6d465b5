// Package cparams describes the per-array compression parameters of
// spec.md §4.1: the codec's compression level, the shuffle filter, the
// codec name, and an optional quantization digit count.
//
// The enum + String()/FromString() pairing follows
// sstable/block/compression.go's Compression type in the teacher repo.
package cparams

// Shuffle selects the byte-reordering filter applied before compression.
type Shuffle int

const (
	NoShuffle Shuffle = iota
	ByteShuffle
	// BitShuffle is accepted as a distinct enum value but this module
	// implements it identically to ByteShuffle; see DESIGN.md Open
	// Question decisions.
	BitShuffle
)

// String implements fmt.Stringer.
func (s Shuffle) String() string {
	switch s {
	case NoShuffle:
		return "none"
	case ByteShuffle:
		return "byte"
	case BitShuffle:
		return "bit"
	default:
		return "unknown"
	}
}

// ShuffleFromString is the inverse of String.
func ShuffleFromString(s string) Shuffle {
	switch s {
	case "byte":
		return ByteShuffle
	case "bit":
		return BitShuffle
	default:
		return NoShuffle
	}
}

// Params is the per-array compression configuration of spec.md §4.1.
type Params struct {
	// Level is the backing codec's compression level, 0-9.
	Level int
	// Shuffle selects the pre-compression byte-reordering filter.
	Shuffle Shuffle
	// CodecName names a registered codec (see internal/codec).
	CodecName string
	// Quantize, when non-nil and non-zero, rounds float elements to the
	// given number of significant digits before compression. Only
	// applies to floating-point element types.
	Quantize *int
}

// DefaultLevel is the default compression level, matching the teacher's
// habit of defaulting to a middling level rather than max compression.
const DefaultLevel = 5

// DefaultCodec is the default registered codec name.
const DefaultCodec = "snappy"

// EnsureDefaults fills unset fields with their defaults and returns the
// result; it does not mutate p.
func (p Params) EnsureDefaults() Params {
	if p.CodecName == "" {
		p.CodecName = DefaultCodec
	}
	if p.Level == 0 {
		p.Level = DefaultLevel
	}
	return p
}
