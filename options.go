package bcolz

import (
	"github.com/stefan-jansen/bcolz-zipline/internal/codec"
	"github.com/stefan-jansen/bcolz-zipline/internal/cparams"
)

// Mode selects how a persistent array is opened.
type Mode byte

const (
	// ModeRead opens an existing root read-only; all mutations fail with
	// ErrReadOnly.
	ModeRead Mode = 'r'
	// ModeWrite creates a fresh root, purging any existing root at the
	// same path first; Open with ModeWrite truncates the array to length 0.
	ModeWrite Mode = 'w'
	// ModeAppend opens an existing root for reading and appending, or
	// creates it if absent.
	ModeAppend Mode = 'a'
)

const (
	minTargetChunkSize = 16 * 1024
	maxTargetChunkSize = 4 * 1024 * 1024
)

// Options configures the construction of a CArray. The zero value is
// valid; EnsureDefaults fills in the library defaults.
type Options struct {
	// CParams controls compression: level, shuffle filter, codec name,
	// optional float quantization.
	CParams cparams.Params
	// Chunklen overrides the chunk-length heuristic of §4.4.1 when
	// positive. Zero means "derive from ExpectedLen".
	Chunklen int
	// ExpectedLen hints the eventual logical length, driving the
	// chunk-length heuristic.
	ExpectedLen int
	// Root, when non-empty, makes the array persistent at this
	// directory.
	Root string
	// Mode selects read/write/append semantics for a persistent array.
	// Ignored for in-memory arrays.
	Mode Mode
	// Logger receives diagnostic messages. Defaults to DefaultLogger.
	Logger Logger
	// Metrics, if set, receives latency observations. Nil disables
	// instrumentation.
	Metrics *Metrics
	// Threads selects whether the underlying codec backends may use their
	// own internal parallelism, per spec.md §4.1/§5's threads-on/off
	// switch. Zero value is ThreadsAuto.
	Threads codec.ThreadMode
}

// EnsureDefaults returns a copy of o with zero-valued fields filled in.
func (o Options) EnsureDefaults() Options {
	o.CParams = o.CParams.EnsureDefaults()
	if o.Mode == 0 {
		o.Mode = ModeAppend
	}
	if o.Logger == nil {
		o.Logger = DefaultLogger{}
	}
	return o
}

// chooseChunklen implements the §4.4.1 chunk-length heuristic: chunk
// byte size grows sub-linearly with the expected array size, floored
// and rounded down to a multiple of atomSize.
func chooseChunklen(explicit, expectedLen, atomSize int) int {
	if explicit > 0 {
		return explicit
	}
	if atomSize <= 0 {
		// Object-kind arrays store one element per chunk and never use
		// the leftover tail, so the chunklen heuristic is moot.
		return 1
	}
	expectedNBytes := expectedLen * atomSize
	target := targetChunkSize(expectedNBytes)
	chunklen := target / atomSize
	if chunklen < 1 {
		chunklen = 1
	}
	return chunklen
}

// targetChunkSize picks a byte budget per chunk for a given expected
// total size, in three tiers: small arrays get 16KiB chunks, arrays up
// to 64MiB scale linearly up to 1MiB chunks, and anything larger is
// capped at 4MiB chunks so compression ratio and streaming throughput
// keep improving without chunks growing unbounded.
func targetChunkSize(expectedNBytes int) int {
	const (
		smallThreshold = 4 * 1024 * 1024
		largeThreshold = 64 * 1024 * 1024
	)
	switch {
	case expectedNBytes <= 0:
		return minTargetChunkSize
	case expectedNBytes < smallThreshold:
		return minTargetChunkSize
	case expectedNBytes < largeThreshold:
		span := largeThreshold - smallThreshold
		frac := float64(expectedNBytes-smallThreshold) / float64(span)
		return minTargetChunkSize + int(frac*float64(1024*1024-minTargetChunkSize))
	default:
		return maxTargetChunkSize
	}
}
