package codec

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"

	"github.com/stefan-jansen/bcolz-zipline/internal/cerrors"
	"github.com/stefan-jansen/bcolz-zipline/internal/cparams"
)

// blockFlagRaw/blockFlagCompressed mark whether a block's payload is
// stored uncompressed (the codec didn't help) or compressed. Either way
// the payload holds the shuffled bytes when the header's shuffle flag is set.
const (
	blockFlagRaw byte = 0
	blockFlagCompressed byte = 1
)

// Compress compresses src per spec.md §4.1, returning the self-describing
// compressed buffer and the block size chosen. shuffleItemSize is the
// per-scalar size used for the shuffle filter (dtype.Type.CodecItemSize);
// blockAlign is the granularity block boundaries must respect (the
// Chunk's atom size), satisfying spec.md §3's blocksize-is-multiple-of-
// atomsize invariant even when shuffleItemSize is finer-grained.
func (r Registry) Compress(src []byte, shuffleItemSize, blockAlign int, params cparams.Params) (compressed []byte, blockSize int, err error) {
	be, ok := backends[params.CodecName]
	if !ok {
		return nil, 0, errors.Wrapf(cerrors.ErrUnknownCodec, "codec: %q", params.CodecName)
	}
	codecID := nameToID[params.CodecName]

	if shuffleItemSize <= 0 {
		shuffleItemSize = 1
	}
	if blockAlign <= 0 {
		blockAlign = shuffleItemSize
	}
	blockSize = blockSizeHeuristic(len(src), blockAlign)
	nBlocks := numBlocks(len(src), blockSize)

	shuf := byte(params.Shuffle)
	shufBuf := make([]byte, blockSize)

	out := make([]byte, headerLen+offsetTableLen(nBlocks))
	offsets := make([]uint32, nBlocks)

	concurrency := r.concurrency()
	for i := 0; i < nBlocks; i++ {
		start := i * blockSize
		end := start + blockSize
		if end > len(src) {
			end = len(src)
		}
		raw := src[start:end]

		prepared := raw
		if params.Shuffle != cparams.NoShuffle && len(raw) >= shuffleItemSize {
			buf := shufBuf[:len(raw)]
			shuffle(buf, raw, shuffleItemSize)
			prepared = buf
		}

		compBuf, cerr := be.compress(nil, prepared, params.Level, concurrency)
		if cerr != nil {
			return nil, 0, errors.Wrapf(cerrors.ErrCompressionFailed, "codec %q: %v", params.CodecName, cerr)
		}

		offsets[i] = uint32(len(out))
		if len(compBuf) >= len(raw) {
			out = append(out, blockFlagRaw)
			out = appendUint32(out, uint32(len(prepared)))
			out = append(out, prepared...)
		} else {
			out = append(out, blockFlagCompressed)
			out = appendUint32(out, uint32(len(compBuf)))
			out = append(out, compBuf...)
		}
	}

	h := header{
		version:   formatVersion,
		shuffle:   shuf,
		typeSize:  byte(clampTypeSize(shuffleItemSize)),
		codecID:   codecID,
		nBytes:    uint32(len(src)),
		blockSize: uint32(blockSize),
		cBytes:    uint32(len(out)),
	}
	h.encode(out[:headerLen])
	for i, off := range offsets {
		binary.LittleEndian.PutUint32(out[headerLen+i*4:headerLen+i*4+4], off)
	}
	return out, blockSize, nil
}

func clampTypeSize(n int) int {
	if n > MaxTypeSize {
		return 1
	}
	return n
}

func appendUint32(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

// Decompress decompresses the entire buffer src into dest, which must be
// exactly nBytes long.
func (r Registry) Decompress(src, dest []byte, nBytes int) error {
	h, err := decodeHeader(src)
	if err != nil {
		return err
	}
	if int(h.nBytes) != nBytes || len(dest) != nBytes {
		return errors.Wrap(cerrors.ErrCorruptBuffer, "codec: decompressed length mismatch")
	}
	return r.decompressRangeBlocks(src, h, 0, numBlocks(int(h.nBytes), int(h.blockSize)), dest, 0)
}

// DecompressRange decompresses only the items spanning [startItem,
// startItem+nItems) by decoding just the blocks that contain them.
func (r Registry) DecompressRange(src []byte, startItem, nItems int, dest []byte) error {
	h, err := decodeHeader(src)
	if err != nil {
		return err
	}
	typeSize := int(h.typeSize)
	if typeSize == 0 {
		typeSize = 1
	}
	if len(dest) != nItems*typeSize {
		return errors.Wrap(cerrors.ErrCorruptBuffer, "codec: destination length mismatch")
	}
	blockItems := int(h.blockSize) / typeSize
	if blockItems == 0 {
		blockItems = 1
	}
	startByte := startItem * typeSize
	startBlock := startByte / int(h.blockSize)
	endItem := startItem + nItems
	endByte := endItem * typeSize
	endBlock := (endByte - 1) / int(h.blockSize)
	if endByte == 0 {
		endBlock = startBlock
	}
	return r.decompressRangeBlocks(src, h, startBlock, endBlock+1, dest, startByte)
}

// decompressRangeBlocks decompresses blocks [firstBlock, lastBlockExcl)
// of src (described by h) and copies the portion overlapping the
// requested byte range into dest, where dest[0] corresponds to
// destOffsetBytes within the logical uncompressed buffer.
func (r Registry) decompressRangeBlocks(src []byte, h header, firstBlock, lastBlockExcl int, dest []byte, destOffsetBytes int) error {
	be, ok := backendByID(h.codecID)
	if !ok {
		return errors.Wrap(cerrors.ErrUnknownCodec, "codec: unknown codec id in buffer header")
	}
	total := numBlocks(int(h.nBytes), int(h.blockSize))
	offTable := src[headerLen : headerLen+offsetTableLen(total)]
	typeSize := int(h.typeSize)
	if typeSize == 0 {
		typeSize = 1
	}
	concurrency := r.concurrency()

	for i := firstBlock; i < lastBlockExcl; i++ {
		blockStartByte := i * int(h.blockSize)
		blockEndByte := blockStartByte + int(h.blockSize)
		if blockEndByte > int(h.nBytes) {
			blockEndByte = int(h.nBytes)
		}
		blockLen := blockEndByte - blockStartByte

		off := binary.LittleEndian.Uint32(offTable[i*4 : i*4+4])
		flag := src[off]
		payloadLen := binary.LittleEndian.Uint32(src[off+1 : off+5])
		payload := src[off+5 : off+5+payloadLen]

		plain := make([]byte, blockLen)
		if flag == blockFlagRaw {
			copy(plain, payload)
		} else {
			decoded, derr := be.decompress(make([]byte, blockLen), payload, concurrency)
			if derr != nil {
				return errors.Wrap(cerrors.ErrCorruptBuffer, derr.Error())
			}
			if len(decoded) != blockLen {
				return errors.Wrap(cerrors.ErrCorruptBuffer, "codec: decoded block length mismatch")
			}
			copy(plain, decoded)
		}

		if h.shuffle != byte(0) {
			unshuf := make([]byte, blockLen)
			unshuffle(unshuf, plain, typeSize)
			plain = unshuf
		}

		// Copy the overlap between this block and the requested window.
		srcStart := 0
		dstStart := blockStartByte - destOffsetBytes
		if dstStart < 0 {
			srcStart = -dstStart
			dstStart = 0
		}
		n := blockLen - srcStart
		if dstStart+n > len(dest) {
			n = len(dest) - dstStart
		}
		if n > 0 {
			copy(dest[dstStart:dstStart+n], plain[srcStart:srcStart+n])
		}
	}
	return nil
}

func backendByID(id byte) (backend, bool) {
	name, ok := idToName[id]
	if !ok {
		return backend{}, false
	}
	be, ok := backends[name]
	return be, ok
}
