package chunkstore

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"

	"github.com/stefan-jansen/bcolz-zipline/internal/cerrors"
)

// packHeaderLen is the size of the outer file header preceding every
// chunk's codec buffer on disk, per spec.md §4.3.
const packHeaderLen = 16

var packMagic = [4]byte{'b', 'l', 'p', 'k'}

const packFormatVersion = 1

// packHeader is the pack header described by spec.md §4.3:
//
//	bytes 0..3   magic "blpk"
//	byte  4      format_version
//	bytes 5..7   reserved, zero
//	bytes 8..15  signed 64-bit chunk count (-1 means unknown)
type packHeader struct {
	version    byte
	chunkCount int64
}

func encodePackHeader(h packHeader) []byte {
	buf := make([]byte, packHeaderLen)
	copy(buf[0:4], packMagic[:])
	buf[4] = h.version
	binary.LittleEndian.PutUint64(buf[8:16], uint64(h.chunkCount))
	return buf
}

func decodePackHeader(buf []byte) (packHeader, error) {
	if len(buf) < packHeaderLen {
		return packHeader{}, errors.Wrap(cerrors.ErrCorruptBuffer, "chunkstore: short pack header")
	}
	if buf[0] != packMagic[0] || buf[1] != packMagic[1] || buf[2] != packMagic[2] || buf[3] != packMagic[3] {
		return packHeader{}, errors.Wrap(cerrors.ErrCorruptBuffer, "chunkstore: bad pack header magic")
	}
	// The chunk count is returned as stored (-1 means "unknown"); it is
	// not checked against any range.
	return packHeader{
		version:    buf[4],
		chunkCount: int64(binary.LittleEndian.Uint64(buf[8:16])),
	}, nil
}
