// Package meta persists and reconstructs a CArray's on-disk descriptors:
// the "storage" and "sizes" JSON documents under <root>/meta/, plus the
// free-form "attrs/" bag.
package meta

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/errors/oserror"

	"github.com/stefan-jansen/bcolz-zipline/internal/cerrors"
	"github.com/stefan-jansen/bcolz-zipline/internal/cparams"
)

const (
	dataDirName    = "data"
	metaDirName    = "meta"
	attrsDirName   = "attrs"
	storageFile    = "storage"
	sizesFile      = "sizes"
	dirPermissions = 0o755
)

// Storage is the JSON document at <root>/meta/storage, per spec.md §6.
type Storage struct {
	Dtype        string          `json:"dtype"`
	CParams      CParamsJSON     `json:"cparams"`
	Chunklen     int             `json:"chunklen"`
	ExpectedLen  int             `json:"expectedlen"`
	Default      json.RawMessage `json:"dflt"`
}

// CParamsJSON mirrors cparams.Params in the wire encoding spec.md §6
// specifies: shuffle as an integer code and quantize as a nullable int.
type CParamsJSON struct {
	Level    int    `json:"clevel"`
	Shuffle  int    `json:"shuffle"`
	CName    string `json:"cname"`
	Quantize *int   `json:"quantize"`
}

// Sizes is the JSON document at <root>/meta/sizes, per spec.md §6.
type Sizes struct {
	Shape  []int `json:"shape"`
	NBytes int64 `json:"nbytes"`
	CBytes int64 `json:"cbytes"`
}

// ToCParamsJSON converts a cparams.Params into its wire representation.
func ToCParamsJSON(p cparams.Params) CParamsJSON {
	return CParamsJSON{
		Level:    p.Level,
		Shuffle:  int(p.Shuffle),
		CName:    p.CodecName,
		Quantize: p.Quantize,
	}
}

// ToParams converts a wire cparams document back into cparams.Params.
func (c CParamsJSON) ToParams() cparams.Params {
	return cparams.Params{
		Level:     c.Level,
		Shuffle:   cparams.Shuffle(c.Shuffle),
		CodecName: c.CName,
		Quantize:  c.Quantize,
	}.EnsureDefaults()
}

// Layout resolves the well-known subdirectories and files of a persistent
// CArray root.
type Layout struct {
	Root string
}

func (l Layout) DataDir() string  { return filepath.Join(l.Root, dataDirName) }
func (l Layout) MetaDir() string  { return filepath.Join(l.Root, metaDirName) }
func (l Layout) AttrsDir() string { return filepath.Join(l.Root, attrsDirName) }
func (l Layout) storagePath() string { return filepath.Join(l.MetaDir(), storageFile) }
func (l Layout) sizesPath() string   { return filepath.Join(l.MetaDir(), sizesFile) }

// Exists reports whether the root directory is already present.
func (l Layout) Exists() bool {
	_, err := os.Stat(l.Root)
	return err == nil
}

// Create lays out a fresh root: data/, meta/, attrs/, failing with
// ErrRootExists if the root is already there.
func Create(root string) (Layout, error) {
	l := Layout{Root: root}
	if l.Exists() {
		return Layout{}, cerrors.ErrRootExists
	}
	for _, dir := range []string{root, l.DataDir(), l.MetaDir(), l.AttrsDir()} {
		if err := os.MkdirAll(dir, dirPermissions); err != nil {
			return Layout{}, errors.Wrap(cerrors.ErrIO, err.Error())
		}
	}
	return l, nil
}

// CreateTruncating lays out a fresh root like Create, but first removes
// any existing root at the same path instead of failing, per spec.md §3's
// write-mode "truncate on open" contract and §7's ErrRootExists error
// table entry (RootExists fires on creation with an existing non-w root).
func CreateTruncating(root string) (Layout, error) {
	l := Layout{Root: root}
	if l.Exists() {
		if err := Purge(root); err != nil {
			return Layout{}, err
		}
	}
	return Create(root)
}

// Open validates that root looks like a CArray directory and returns its
// Layout.
func Open(root string) (Layout, error) {
	l := Layout{Root: root}
	for _, dir := range []string{l.DataDir(), l.MetaDir()} {
		if _, err := os.Stat(dir); err != nil {
			if oserror.IsNotExist(err) {
				return Layout{}, errors.Wrapf(cerrors.ErrIO, "meta: missing directory %s", dir)
			}
			return Layout{}, errors.Wrap(cerrors.ErrIO, err.Error())
		}
	}
	return l, nil
}

// WriteStorage writes the storage document, JSON-encoded and terminated
// with a single newline, per spec.md §6.
func (l Layout) WriteStorage(s Storage) error {
	return writeJSONFile(l.storagePath(), s)
}

// ReadStorage reads back the storage document.
func (l Layout) ReadStorage() (Storage, error) {
	var s Storage
	err := readJSONFile(l.storagePath(), &s)
	return s, err
}

// WriteSizes writes the sizes document.
func (l Layout) WriteSizes(s Sizes) error {
	return writeJSONFile(l.sizesPath(), s)
}

// ReadSizes reads back the sizes document.
func (l Layout) ReadSizes() (Sizes, error) {
	var s Sizes
	err := readJSONFile(l.sizesPath(), &s)
	return s, err
}

func writeJSONFile(path string, v any) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(cerrors.ErrInvalidArgument, err.Error())
	}
	buf = append(buf, '\n')
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return errors.Wrap(cerrors.ErrIO, err.Error())
	}
	return nil
}

func readJSONFile(path string, v any) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		if oserror.IsNotExist(err) {
			return errors.Wrapf(cerrors.ErrIO, "meta: missing file %s", path)
		}
		return errors.Wrap(cerrors.ErrIO, err.Error())
	}
	if err := json.Unmarshal(buf, v); err != nil {
		return errors.Wrap(cerrors.ErrCorruptBuffer, err.Error())
	}
	return nil
}

// Purge removes the entire root directory, per spec.md §3's "explicit
// purge" lifecycle event.
func Purge(root string) error {
	if err := os.RemoveAll(root); err != nil {
		return errors.Wrap(cerrors.ErrIO, err.Error())
	}
	return nil
}
