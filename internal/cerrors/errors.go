// Package cerrors defines the sentinel errors shared across every package
// in this module. It has no dependencies on the rest of the module, mirroring
// the role pebble's internal/base package plays for that codebase.
package cerrors

import "errors"

// Sentinel errors surfaced to callers, per the error table in spec.md §7.
// Callers distinguish them with errors.Is; wrapped context is added with
// github.com/cockroachdb/errors.Wrapf at the call site.
var (
	// ErrReadOnly is raised by any mutation attempted on a mode-"r" array.
	ErrReadOnly = errors.New("bcolz: array is read-only")

	// ErrOutOfRange is raised when an index or slice falls outside [0, N),
	// or a trim count exceeds the logical length.
	ErrOutOfRange = errors.New("bcolz: index or slice out of range")

	// ErrTypeMismatch is raised when an input atom's type is incompatible
	// with the array's element type.
	ErrTypeMismatch = errors.New("bcolz: incompatible element type")

	// ErrInvalidArgument is raised for negative lengths, non-positive
	// steps, empty tuple keys, unsupported key kinds, or chunklen < 1.
	ErrInvalidArgument = errors.New("bcolz: invalid argument")

	// ErrNotSupported is raised for negative steps, scalar-input
	// construction, and rank>1 object arrays.
	ErrNotSupported = errors.New("bcolz: operation not supported")

	// ErrTypeTooLarge is raised when an atom size is >= 2^31, or a
	// type's item size exceeds the codec's maximum for an unsupported kind.
	ErrTypeTooLarge = errors.New("bcolz: element type too large")

	// ErrUnknownCodec is raised when a codec name is not registered.
	ErrUnknownCodec = errors.New("bcolz: unknown compression codec")

	// ErrCompressionFailed is raised when the backing codec reports
	// failure while compressing.
	ErrCompressionFailed = errors.New("bcolz: compression failed")

	// ErrCorruptBuffer is raised when a compressed buffer is short,
	// malformed, or fails to decompress to its declared length.
	ErrCorruptBuffer = errors.New("bcolz: corrupt compressed buffer")

	// ErrIO is raised on filesystem errors: missing chunk files, missing
	// metadata directories, or other I/O failures.
	ErrIO = errors.New("bcolz: I/O error")

	// ErrRootExists is raised when creating an array at a root directory
	// that already exists and mode is not "w".
	ErrRootExists = errors.New("bcolz: root directory already exists")
)
