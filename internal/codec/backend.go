package codec

import (
	"github.com/golang/snappy"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
)

// backend adapts a third-party compression library to a common per-block
// compress/decompress shape. Each registered codec name (spec.md §4.1's
// "codec_name" enumeration) maps to one backend.
//
// Grounded on sstable/compression.go and sstable/compression_nocgo.go,
// which perform the same kind of per-library adaptation for snappy and
// (pure-Go) zstd.
type backend struct {
	// compress appends the compressed form of src to dst and returns it.
	// concurrency hints the backend's internal parallelism; 1 means serial,
	// 0 lets the backend choose.
	compress func(dst, src []byte, level, concurrency int) ([]byte, error)
	// decompress decodes src into a buffer of exactly len(dst) bytes,
	// writing the result into dst and returning it.
	decompress func(dst, src []byte, concurrency int) ([]byte, error)
}

var backends = map[string]backend{
	"noop": {
		compress: func(dst, src []byte, level, concurrency int) ([]byte, error) {
			return append(dst, src...), nil
		},
		decompress: func(dst, src []byte, concurrency int) ([]byte, error) {
			if len(src) != len(dst) {
				return nil, errShortBuffer
			}
			copy(dst, src)
			return dst, nil
		},
	},
	"snappy": {
		compress: func(dst, src []byte, level, concurrency int) ([]byte, error) {
			return snappy.Encode(nil, src), nil
		},
		decompress: func(dst, src []byte, concurrency int) ([]byte, error) {
			return snappy.Decode(dst, src)
		},
	},
	"s2": {
		compress: func(dst, src []byte, level, concurrency int) ([]byte, error) {
			return s2.Encode(nil, src), nil
		},
		decompress: func(dst, src []byte, concurrency int) ([]byte, error) {
			out, err := s2.Decode(dst, src)
			if err != nil {
				return nil, err
			}
			return out, nil
		},
	},
	"zstd": {
		compress: func(dst, src []byte, level, concurrency int) ([]byte, error) {
			opts := []zstd.EOption{zstd.WithEncoderLevel(zstdLevel(level))}
			if concurrency > 0 {
				opts = append(opts, zstd.WithEncoderConcurrency(concurrency))
			}
			enc, err := zstd.NewWriter(nil, opts...)
			if err != nil {
				return nil, err
			}
			defer enc.Close()
			return enc.EncodeAll(src, nil), nil
		},
		decompress: func(dst, src []byte, concurrency int) ([]byte, error) {
			dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(concurrency))
			if err != nil {
				return nil, err
			}
			defer dec.Close()
			return dec.DecodeAll(src, dst[:0])
		},
	},
}

func zstdLevel(level int) zstd.EncoderLevel {
	switch {
	case level <= 1:
		return zstd.SpeedFastest
	case level <= 4:
		return zstd.SpeedDefault
	case level <= 7:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
