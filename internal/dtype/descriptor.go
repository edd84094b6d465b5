package dtype

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/stefan-jansen/bcolz-zipline/internal/cerrors"
)

var kindByName = func() map[string]Kind {
	m := map[string]Kind{}
	for k := Bool; k <= Object; k++ {
		m[k.String()] = k
	}
	return m
}()

// Descriptor renders a canonical, round-trippable type descriptor, per
// spec.md §6's storage schema ("dtype": string). Fixed-width kinds
// render as their bare name ("int32"); kinds with a caller-supplied item
// size append it ("bytes:20"); any trailing shape dimensions append as
// "xD1xD2...".
func (t Type) Descriptor() string {
	var b strings.Builder
	b.WriteString(t.Kind.String())
	if base := baseItemSize(t.Kind); base == 0 && t.Kind != Object {
		fmt.Fprintf(&b, ":%d", t.ItemSize)
	}
	for _, d := range t.TrailingShape {
		fmt.Fprintf(&b, "x%d", d)
	}
	return b.String()
}

// ParseDescriptor is the inverse of Descriptor.
func ParseDescriptor(s string) (Type, error) {
	parts := strings.Split(s, "x")
	head := parts[0]
	trailing := make([]int, 0, len(parts)-1)
	for _, p := range parts[1:] {
		d, err := strconv.Atoi(p)
		if err != nil {
			return Type{}, errors.Wrapf(cerrors.ErrInvalidArgument, "dtype: bad descriptor %q", s)
		}
		trailing = append(trailing, d)
	}

	name, itemSize := head, 0
	if idx := strings.IndexByte(head, ':'); idx >= 0 {
		name = head[:idx]
		v, err := strconv.Atoi(head[idx+1:])
		if err != nil {
			return Type{}, errors.Wrapf(cerrors.ErrInvalidArgument, "dtype: bad descriptor %q", s)
		}
		itemSize = v
	}
	kind, ok := kindByName[name]
	if !ok {
		return Type{}, errors.Wrapf(cerrors.ErrInvalidArgument, "dtype: unknown kind %q", name)
	}
	return New(kind, itemSize, trailing...)
}
