package meta

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stefan-jansen/bcolz-zipline/internal/cerrors"
	"github.com/stefan-jansen/bcolz-zipline/internal/cparams"
)

func TestCreateOpenRoundTrip(t *testing.T) {
	root := filepath.Join(t.TempDir(), "arr")
	l, err := Create(root)
	require.NoError(t, err)

	_, err = Create(root)
	require.ErrorIs(t, err, cerrors.ErrRootExists)

	params := cparams.Params{CodecName: "zstd", Shuffle: cparams.ByteShuffle}.EnsureDefaults()
	require.NoError(t, l.WriteStorage(Storage{
		Dtype:       "float64",
		CParams:     ToCParamsJSON(params),
		Chunklen:    8192,
		ExpectedLen: 1000000,
		Default:     []byte("0"),
	}))
	require.NoError(t, l.WriteSizes(Sizes{Shape: []int{1000}, NBytes: 8000, CBytes: 120}))

	l2, err := Open(root)
	require.NoError(t, err)
	s, err := l2.ReadStorage()
	require.NoError(t, err)
	require.Equal(t, "float64", s.Dtype)
	require.Equal(t, 8192, s.Chunklen)
	require.Equal(t, params, s.CParams.ToParams())

	sz, err := l2.ReadSizes()
	require.NoError(t, err)
	require.Equal(t, []int{1000}, sz.Shape)
	require.Equal(t, int64(8000), sz.NBytes)
}

func TestCreateTruncatingReplacesExistingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "arr")
	l, err := Create(root)
	require.NoError(t, err)
	require.NoError(t, l.WriteStorage(Storage{Dtype: "int32", Chunklen: 10}))

	l2, err := CreateTruncating(root)
	require.NoError(t, err)

	_, err = l2.ReadStorage()
	require.Error(t, err, "truncating create must wipe the previous storage document")
}

func TestOpenMissingDirectory(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestAttrsRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "attrs")
	a, err := NewAttrs(dir, false)
	require.NoError(t, err)

	require.NoError(t, a.Set("author", "bcolz"))
	require.NoError(t, a.Set("version", 3))

	var author string
	ok, err := a.Get("author", &author)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "bcolz", author)

	require.Equal(t, []string{"author", "version"}, a.Keys())

	a2, err := NewAttrs(dir, true)
	require.NoError(t, err)
	var version int
	ok, err = a2.Get("version", &version)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 3, version)

	require.ErrorIs(t, a2.Set("author", "readonly"), cerrors.ErrReadOnly)
}

func TestPurge(t *testing.T) {
	root := filepath.Join(t.TempDir(), "arr")
	_, err := Create(root)
	require.NoError(t, err)
	require.NoError(t, Purge(root))
	require.NoDirExists(t, root)
}
