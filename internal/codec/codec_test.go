package codec

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stefan-jansen/bcolz-zipline/internal/cparams"
)

func makeInts(n int) []byte {
	buf := make([]byte, n*4)
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(i))
	}
	return buf
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	for _, name := range []string{"noop", "snappy", "s2", "zstd"} {
		t.Run(name, func(t *testing.T) {
			src := makeInts(10000)
			var r Registry
			params := cparams.Params{CodecName: name, Shuffle: cparams.ByteShuffle}.EnsureDefaults()
			compressed, blockSize, err := r.Compress(src, 4, 4, params)
			require.NoError(t, err)
			require.Greater(t, blockSize, 0)

			info, err := BufferInfo(compressed)
			require.NoError(t, err)
			require.Equal(t, len(src), info.NBytes)

			dest := make([]byte, len(src))
			require.NoError(t, r.Decompress(compressed, dest, len(src)))
			require.Equal(t, src, dest)
		})
	}
}

func TestDecompressRange(t *testing.T) {
	src := makeInts(5000)
	var r Registry
	params := cparams.Params{CodecName: "zstd", Shuffle: cparams.ByteShuffle}.EnsureDefaults()
	compressed, _, err := r.Compress(src, 4, 4, params)
	require.NoError(t, err)

	dest := make([]byte, 40)
	require.NoError(t, r.DecompressRange(compressed, 100, 10, dest))
	require.Equal(t, src[400:440], dest)
}

func TestThreadModeConcurrency(t *testing.T) {
	require.Equal(t, 1, Registry{Threads: ThreadsAuto}.concurrency())
	require.Equal(t, 1, Registry{Threads: ThreadsOff}.concurrency())
	require.Equal(t, 0, Registry{Threads: ThreadsOn}.concurrency())
}

func TestUnknownCodec(t *testing.T) {
	var r Registry
	_, _, err := r.Compress([]byte("x"), 1, 1, cparams.Params{CodecName: "bogus"})
	require.Error(t, err)
}
