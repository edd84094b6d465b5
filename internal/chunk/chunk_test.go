package chunk

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stefan-jansen/bcolz-zipline/internal/codec"
	"github.com/stefan-jansen/bcolz-zipline/internal/cparams"
	"github.com/stefan-jansen/bcolz-zipline/internal/dtype"
)

func int32Rows(vals ...int32) []byte {
	buf := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(v))
	}
	return buf
}

func TestConstantChunkAllZero(t *testing.T) {
	typ, err := dtype.New(dtype.Float64, 0)
	require.NoError(t, err)
	var reg codec.Registry
	data := make([]byte, 8*10000)
	c, err := FromArray(reg, data, 10000, typ, cparams.Params{}.EnsureDefaults())
	require.NoError(t, err)
	require.True(t, c.IsConstant())
	require.Less(t, c.CBytes(), 1024)

	dst := make([]byte, 8*5)
	require.NoError(t, c.Get(reg, dst, 0, 5))
	for _, b := range dst {
		require.Zero(t, b)
	}
}

func TestNonConstantRoundTrip(t *testing.T) {
	typ, err := dtype.New(dtype.Int32, 0)
	require.NoError(t, err)
	var reg codec.Registry
	vals := make([]int32, 1000)
	for i := range vals {
		vals[i] = int32(i)
	}
	data := int32Rows(vals...)
	c, err := FromArray(reg, data, len(vals), typ, cparams.Params{CodecName: "zstd", Shuffle: cparams.ByteShuffle}.EnsureDefaults())
	require.NoError(t, err)
	require.False(t, c.IsConstant())

	dst := make([]byte, 40)
	require.NoError(t, c.Get(reg, dst, 100, 110))
	require.Equal(t, data[400:440], dst)

	full := make([]byte, len(data))
	require.NoError(t, c.Get(reg, full, 0, len(vals)))
	require.Equal(t, data, full)
}

func TestBoolTrueCount(t *testing.T) {
	typ, err := dtype.New(dtype.Bool, 0)
	require.NoError(t, err)
	var reg codec.Registry
	data := make([]byte, 100)
	for i := 0; i < 100; i += 3 {
		data[i] = 1
	}
	c, err := FromArray(reg, data, 100, typ, cparams.Params{}.EnsureDefaults())
	require.NoError(t, err)
	require.False(t, c.IsConstant())
	require.Equal(t, 34, c.TrueCount())
}

func TestSetNotSupported(t *testing.T) {
	c := &Chunk{}
	require.Error(t, c.Set(nil))
}
