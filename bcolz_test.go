package bcolz

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stefan-jansen/bcolz-zipline/internal/cerrors"
	"github.com/stefan-jansen/bcolz-zipline/internal/codec"
	"github.com/stefan-jansen/bcolz-zipline/internal/dtype"
)

func int32Bytes(vals ...int32) []byte {
	buf := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(v))
	}
	return buf
}

func int64Bytes(vals ...int64) []byte {
	buf := make([]byte, len(vals)*8)
	for i, v := range vals {
		binary.LittleEndian.PutUint64(buf[i*8:], uint64(v))
	}
	return buf
}

func uint16Bytes(v uint16) []byte {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, v)
	return buf
}

func decodeInt32(buf []byte) int32 { return int32(binary.LittleEndian.Uint32(buf)) }
func decodeInt64(buf []byte) int64 { return int64(binary.LittleEndian.Uint64(buf)) }
func decodeUint16(buf []byte) uint16 { return binary.LittleEndian.Uint16(buf) }

func TestBuildFromDataSumAndBounds(t *testing.T) {
	typ, err := dtype.New(dtype.Int32, 0)
	require.NoError(t, err)

	const n = 1000000
	vals := make([]int32, n)
	for i := range vals {
		vals[i] = int32(i)
	}
	ca, err := New(int32Bytes(vals...), typ, Options{})
	require.NoError(t, err)
	require.Equal(t, n, ca.Len())

	first, err := ca.GetScalar(0)
	require.NoError(t, err)
	require.EqualValues(t, 0, decodeInt32(first))

	last, err := ca.GetScalar(n - 1)
	require.NoError(t, err)
	require.EqualValues(t, n-1, decodeInt32(last))

	sum, err := ca.Sum()
	require.NoError(t, err)
	require.EqualValues(t, 499999500000, sum)
}

func TestConstantChunkStaysSmall(t *testing.T) {
	typ, err := dtype.New(dtype.Float64, 0)
	require.NoError(t, err)

	const n = 10000
	data := make([]byte, n*8) // all zero
	ca, err := New(data, typ, Options{Chunklen: 100})
	require.NoError(t, err)
	require.Equal(t, n, ca.Len())
	require.Less(t, ca.CBytes(), int64(1024))

	v, err := ca.GetScalar(5000)
	require.NoError(t, err)
	require.EqualValues(t, 0, int64(binary.LittleEndian.Uint64(v)))

	sum, err := ca.Sum()
	require.NoError(t, err)
	require.EqualValues(t, float64(0), sum)
}

func TestAppendOneRowAtATimeThenFlushReopen(t *testing.T) {
	typ, err := dtype.New(dtype.Uint16, 0)
	require.NoError(t, err)

	root := filepath.Join(t.TempDir(), "onerow")
	ca, err := New(nil, typ, Options{Chunklen: 256, Root: root, Mode: ModeWrite})
	require.NoError(t, err)

	for i := 0; i < 1000; i++ {
		require.NoError(t, ca.Append(uint16Bytes(uint16(i%7))))
	}
	require.Equal(t, 1000, ca.Len())

	v, err := ca.GetScalar(257)
	require.NoError(t, err)
	require.EqualValues(t, 257%7, decodeUint16(v))

	require.NoError(t, ca.Flush())

	reopened, err := Open(root, Options{Mode: ModeAppend})
	require.NoError(t, err)
	require.Equal(t, 1000, reopened.Len())

	v2, err := reopened.GetScalar(257)
	require.NoError(t, err)
	require.EqualValues(t, 257%7, decodeUint16(v2))

	v3, err := reopened.GetScalar(999)
	require.NoError(t, err)
	require.EqualValues(t, 999%7, decodeUint16(v3))
}

func TestTrimLeavesExactChunkFileCount(t *testing.T) {
	typ, err := dtype.New(dtype.Int32, 0)
	require.NoError(t, err)

	const n = 5000
	vals := make([]int32, n)
	for i := range vals {
		vals[i] = int32(i * i)
	}

	root := filepath.Join(t.TempDir(), "squares")
	ca, err := New(int32Bytes(vals...), typ, Options{Chunklen: 500, Root: root, Mode: ModeWrite})
	require.NoError(t, err)
	require.Equal(t, n, ca.Len())

	require.NoError(t, ca.Trim(750))
	require.Equal(t, 4250, ca.Len())

	v, err := ca.GetScalar(4249)
	require.NoError(t, err)
	require.EqualValues(t, 4249*4249, decodeInt32(v))

	entries, err := os.ReadDir(filepath.Join(root, "data"))
	require.NoError(t, err)
	require.Len(t, entries, 9)
}

func TestWhereTrueSkipLimit(t *testing.T) {
	typ, err := dtype.New(dtype.Bool, 0)
	require.NoError(t, err)

	const n = 10000
	data := make([]byte, n)
	var want []int
	for i := 0; i < n; i++ {
		if i%17 == 0 {
			data[i] = 1
			want = append(want, i)
		}
	}
	ca, err := New(data, typ, Options{})
	require.NoError(t, err)

	it, err := ca.WhereTrue(4, 9)
	require.NoError(t, err)

	var got []int
	for {
		idx, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, idx)
	}
	require.Equal(t, want[4:9], got)

	idx, ok, err := it.Next()
	require.NoError(t, err)
	require.False(t, ok)
	require.Zero(t, idx)
}

func TestBooleanMaskWrite(t *testing.T) {
	typ, err := dtype.New(dtype.Int8, 0)
	require.NoError(t, err)

	const n = 100
	data := make([]byte, n)
	for i := 0; i < n; i++ {
		data[i] = byte(i % 4)
	}
	ca, err := New(data, typ, Options{})
	require.NoError(t, err)

	mask := make([]bool, n)
	nSet := 0
	for i := 0; i < n; i++ {
		if int8(i%4) < 2 {
			mask[i] = true
			nSet++
		}
	}
	fill := make([]byte, nSet)
	for i := range fill {
		fill[i] = 99
	}
	require.NoError(t, ca.SetMask(mask, fill))

	out, err := ca.GetSlice(0, n, 1)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		switch i % 4 {
		case 0, 1:
			require.EqualValues(t, 99, int8(out[i]), "index %d", i)
		case 2:
			require.EqualValues(t, 2, int8(out[i]), "index %d", i)
		case 3:
			require.EqualValues(t, 3, int8(out[i]), "index %d", i)
		}
	}
}

func TestAppendExactlyFillsTailThenLeavesNoLeftover(t *testing.T) {
	typ, err := dtype.New(dtype.Int32, 0)
	require.NoError(t, err)

	ca, err := New(nil, typ, Options{Chunklen: 10})
	require.NoError(t, err)
	require.NoError(t, ca.Append(int32Bytes(0, 1, 2, 3, 4, 5, 6, 7, 8, 9)))
	require.Equal(t, 10, ca.Len())
	require.Zero(t, ca.leftoverRows)

	v, err := ca.GetScalar(9)
	require.NoError(t, err)
	require.EqualValues(t, 9, decodeInt32(v))
}

func TestTrimExactlyEmptiesLeftover(t *testing.T) {
	typ, err := dtype.New(dtype.Int32, 0)
	require.NoError(t, err)

	vals := make([]int32, 25)
	for i := range vals {
		vals[i] = int32(i)
	}
	ca, err := New(int32Bytes(vals...), typ, Options{Chunklen: 10})
	require.NoError(t, err)
	require.Equal(t, 25, ca.Len())
	require.Equal(t, 5, ca.leftoverRows)

	require.NoError(t, ca.Trim(5))
	require.Equal(t, 20, ca.Len())
	require.Zero(t, ca.leftoverRows)

	v, err := ca.GetScalar(19)
	require.NoError(t, err)
	require.EqualValues(t, 19, decodeInt32(v))
}

func TestResizeGrowAndShrink(t *testing.T) {
	typ, err := dtype.New(dtype.Int64, 0)
	require.NoError(t, err)

	ca, err := New(int64Bytes(1, 2, 3), typ, Options{Chunklen: 4})
	require.NoError(t, err)

	require.NoError(t, ca.Resize(6))
	require.Equal(t, 6, ca.Len())
	for i := 3; i < 6; i++ {
		v, err := ca.GetScalar(i)
		require.NoError(t, err)
		require.Zero(t, decodeInt64(v))
	}

	require.NoError(t, ca.Resize(2))
	require.Equal(t, 2, ca.Len())
	v, err := ca.GetScalar(1)
	require.NoError(t, err)
	require.EqualValues(t, 2, decodeInt64(v))
}

func TestReshapeInfersMissingDimension(t *testing.T) {
	typ, err := dtype.New(dtype.Int32, 0)
	require.NoError(t, err)

	vals := make([]int32, 24)
	for i := range vals {
		vals[i] = int32(i)
	}
	ca, err := New(int32Bytes(vals...), typ, Options{})
	require.NoError(t, err)

	reshaped, err := ca.Reshape([]int{-1, 4, 2})
	require.NoError(t, err)
	require.Equal(t, 3, reshaped.Len())
	require.Equal(t, []int{3, 4, 2}, reshaped.Shape())

	flat, err := reshaped.GetSlice(0, reshaped.Len(), 1)
	require.NoError(t, err)
	for i := 0; i < 24; i++ {
		require.EqualValues(t, i, decodeInt32(flat[i*4:i*4+4]))
	}
}

func TestViewSharesStoreButNotCacheOrAttrs(t *testing.T) {
	typ, err := dtype.New(dtype.Int32, 0)
	require.NoError(t, err)

	ca, err := New(int32Bytes(1, 2, 3, 4), typ, Options{})
	require.NoError(t, err)

	view, err := ca.View()
	require.NoError(t, err)
	require.Equal(t, ca.Len(), view.Len())

	require.NoError(t, ca.Attrs().Set("owner", "original"))
	var got string
	ok, err := view.Attrs().Get("owner", &got)
	require.NoError(t, err)
	require.False(t, ok, "view must not share the owning array's attribute bag")

	v, err := view.GetScalar(2)
	require.NoError(t, err)
	require.EqualValues(t, 3, decodeInt32(v))
}

func TestScalarReadAcrossBlockBoundaries(t *testing.T) {
	typ, err := dtype.New(dtype.Int32, 0)
	require.NoError(t, err)

	const n = 5000
	vals := make([]int32, n)
	for i := range vals {
		vals[i] = int32(i)
	}
	ca, err := New(int32Bytes(vals...), typ, Options{Chunklen: 1000})
	require.NoError(t, err)

	order := []int{10, 11, 999, 1000, 1001, 10, 4999, 0, 2500}
	for _, idx := range order {
		v, err := ca.GetScalar(idx)
		require.NoError(t, err)
		require.EqualValues(t, idx, decodeInt32(v), "index %d", idx)
	}
}

func TestThreadsOptionFlowsIntoCodecRegistry(t *testing.T) {
	typ, err := dtype.New(dtype.Int32, 0)
	require.NoError(t, err)

	auto, err := New(int32Bytes(1, 2, 3), typ, Options{})
	require.NoError(t, err)
	require.Equal(t, codec.ThreadsAuto, auto.reg.Threads)

	on, err := New(int32Bytes(1, 2, 3), typ, Options{Threads: codec.ThreadsOn})
	require.NoError(t, err)
	require.Equal(t, codec.ThreadsOn, on.reg.Threads)
}

func TestModeWriteTruncatesExistingRoot(t *testing.T) {
	typ, err := dtype.New(dtype.Int32, 0)
	require.NoError(t, err)

	root := filepath.Join(t.TempDir(), "truncme")
	first, err := New(int32Bytes(1, 2, 3, 4, 5), typ, Options{Root: root, Mode: ModeWrite})
	require.NoError(t, err)
	require.NoError(t, first.Flush())
	require.Equal(t, 5, first.Len())

	second, err := New(int32Bytes(9, 9), typ, Options{Root: root, Mode: ModeWrite})
	require.NoError(t, err)
	require.Equal(t, 2, second.Len())

	v, err := second.GetScalar(0)
	require.NoError(t, err)
	require.EqualValues(t, 9, decodeInt32(v))
}

func TestReadOnlyArrayRejectsMutation(t *testing.T) {
	typ, err := dtype.New(dtype.Int32, 0)
	require.NoError(t, err)

	root := filepath.Join(t.TempDir(), "ro")
	ca, err := New(int32Bytes(1, 2, 3), typ, Options{Root: root, Mode: ModeWrite})
	require.NoError(t, err)
	require.NoError(t, ca.Flush())

	ro, err := Open(root, Options{Mode: ModeRead})
	require.NoError(t, err)
	require.True(t, ro.IsReadOnly())

	require.ErrorIs(t, ro.Append(int32Bytes(4)), cerrors.ErrReadOnly)
	require.ErrorIs(t, ro.SetScalar(0, int32Bytes(9)), cerrors.ErrReadOnly)
}

func TestObjectKindRoundTripsThroughHostCodec(t *testing.T) {
	typ, err := dtype.New(dtype.Object, 0)
	require.NoError(t, err)

	ca, err := New(nil, typ, Options{})
	require.NoError(t, err)

	codec := stringCodec{}
	require.NoError(t, ca.AppendValue(codec, "first"))
	require.NoError(t, ca.AppendValue(codec, "second"))
	require.Equal(t, 2, ca.Len())

	v, err := ca.ValueAt(codec, 1)
	require.NoError(t, err)
	require.Equal(t, "second", v)
}

type stringCodec struct{}

func (stringCodec) Serialize(value any) ([]byte, error) {
	return []byte(value.(string)), nil
}

func (stringCodec) Deserialize(data []byte) (any, error) {
	return string(data), nil
}

func TestWhereExprDelegatesToEvaluator(t *testing.T) {
	typ, err := dtype.New(dtype.Int32, 0)
	require.NoError(t, err)

	vals := make([]int32, 10)
	for i := range vals {
		vals[i] = int32(i)
	}
	ca, err := New(int32Bytes(vals...), typ, Options{})
	require.NoError(t, err)

	evalGreaterThanFive := func(expression string, ca *CArray) ([]bool, error) {
		mask := make([]bool, ca.Len())
		for i := 0; i < ca.Len(); i++ {
			v, err := ca.GetScalar(i)
			if err != nil {
				return nil, err
			}
			mask[i] = decodeInt32(v) > 5
		}
		return mask, nil
	}

	it, err := ca.WhereExpr("v > 5", evalGreaterThanFive, 0, 0)
	require.NoError(t, err)

	var got []int32
	for {
		v, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, decodeInt32(v))
	}
	require.Equal(t, []int32{6, 7, 8, 9}, got)
}
