package meta

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/errors/oserror"

	"github.com/stefan-jansen/bcolz-zipline/internal/cerrors"
)

// Attrs is the per-array attribute bag of spec.md §3: arbitrary
// JSON-serializable user metadata, one file per key under attrs/.
type Attrs struct {
	dir      string
	readOnly bool
	cache    map[string]json.RawMessage
}

// NewAttrs opens the attribute bag rooted at dir, eagerly loading every
// key present on disk. dir need not exist yet for an in-memory-only
// array; attribute access then stays purely in-process.
func NewAttrs(dir string, readOnly bool) (*Attrs, error) {
	a := &Attrs{dir: dir, readOnly: readOnly, cache: map[string]json.RawMessage{}}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if oserror.IsNotExist(err) {
			return a, nil
		}
		return nil, errors.Wrap(cerrors.ErrIO, err.Error())
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		buf, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, errors.Wrap(cerrors.ErrIO, err.Error())
		}
		a.cache[e.Name()] = json.RawMessage(buf)
	}
	return a, nil
}

// Keys returns the attribute names currently set, sorted.
func (a *Attrs) Keys() []string {
	keys := make([]string, 0, len(a.cache))
	for k := range a.cache {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get decodes the attribute named key into v.
func (a *Attrs) Get(key string, v any) (bool, error) {
	raw, ok := a.cache[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, errors.Wrap(cerrors.ErrCorruptBuffer, err.Error())
	}
	return true, nil
}

// Set stores v under key, persisting it immediately if the bag is
// backed by a directory.
func (a *Attrs) Set(key string, v any) error {
	if a.readOnly {
		return cerrors.ErrReadOnly
	}
	buf, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(cerrors.ErrInvalidArgument, err.Error())
	}
	a.cache[key] = json.RawMessage(buf)
	if a.dir == "" {
		return nil
	}
	if err := os.MkdirAll(a.dir, dirPermissions); err != nil {
		return errors.Wrap(cerrors.ErrIO, err.Error())
	}
	if err := os.WriteFile(filepath.Join(a.dir, key), buf, 0o644); err != nil {
		return errors.Wrap(cerrors.ErrIO, err.Error())
	}
	return nil
}

// Delete removes key from the bag, both in memory and on disk.
func (a *Attrs) Delete(key string) error {
	if a.readOnly {
		return cerrors.ErrReadOnly
	}
	delete(a.cache, key)
	if a.dir == "" {
		return nil
	}
	if err := os.Remove(filepath.Join(a.dir, key)); err != nil && !oserror.IsNotExist(err) {
		return errors.Wrap(cerrors.ErrIO, err.Error())
	}
	return nil
}
