// Package lz4stream implements the core block pipeline, LZ4 frame codec,
// and seek index described by this repository's specification: fixed-size
// input blocks pushed through a pool of worker-owned compression contexts,
// serialized in submission order into an LZ4-framed file with a trailing
// skippable-frame seek index.
package lz4stream

import (
	"encoding/binary"

	"github.com/lz4pack/lz4pack/app/core/xxhash32"
)

// Magic values from the LZ4 frame format.
const (
	frameMagic     uint32 = 0x184D2204
	skippableMagic uint32 = 0x184D2A50
	appMagic       uint32 = 0xCAFEDECA
	tailVersion    uint32 = 1
	tailTypeIndex  uint32 = 0
)

// Flag bitfield (LSB first), per spec.md §3.
const (
	flagPresetDictionary  = 1 << 0
	flagReserved          = 1 << 1
	flagStreamChecksum    = 1 << 2
	flagStreamSize        = 1 << 3
	flagBlockChecksum     = 1 << 4
	flagBlockIndependence = 1 << 5
	flagVersionShift      = 6
)

// DefaultFlags is the on-disk flag byte for the default configuration:
// version=01, blockIndependence=1, streamChecksum=1, everything else 0.
const DefaultFlags byte = (1 << flagVersionShift) | flagBlockIndependence | flagStreamChecksum

const fileHeaderSize = 7 // magic(4) + flags(1) + blockSizeID(1) + crc(1)

// BlockSizeID identifies one of the four permitted block sizes.
type BlockSizeID byte

const (
	BlockSize64KB  BlockSizeID = 4
	BlockSize256KB BlockSizeID = 5
	BlockSize1MB   BlockSizeID = 6
	BlockSize4MB   BlockSizeID = 7
)

var blockSizeCaps = map[BlockSizeID]int{
	BlockSize64KB:  64 * 1024,
	BlockSize256KB: 256 * 1024,
	BlockSize1MB:   1024 * 1024,
	BlockSize4MB:   4 * 1024 * 1024,
}

// Cap returns the maximum uncompressed block size for id, or 0 if id is
// not one of the recognized values.
func (id BlockSizeID) Cap() int {
	return blockSizeCaps[id]
}

// BlockSizeIDFor returns the smallest block-size id whose cap is >= want.
func BlockSizeIDFor(want int) BlockSizeID {
	for _, id := range []BlockSizeID{BlockSize64KB, BlockSize256KB, BlockSize1MB, BlockSize4MB} {
		if id.Cap() >= want {
			return id
		}
	}
	return BlockSize4MB
}

// fileHeader is the 7-byte on-disk header: magic, flags, block-size id
// (bits 4-6 of the third byte), CRC.
type fileHeader struct {
	flags   byte
	blockID BlockSizeID
}

func headerCRC(flags byte, blockByte byte) byte {
	sum := xxhash32.Sum32([]byte{flags, blockByte}, 0)
	return byte(sum >> 8)
}

func (h fileHeader) blockByte() byte {
	return byte(h.blockID&0x7) << 4
}

func (h fileHeader) serialize() []byte {
	buf := make([]byte, fileHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], frameMagic)
	buf[4] = h.flags
	buf[5] = h.blockByte()
	buf[6] = headerCRC(h.flags, buf[5])
	return buf
}

func deserializeFileHeader(buf []byte) (fileHeader, error) {
	if len(buf) < fileHeaderSize {
		return fileHeader{}, errShortHeader
	}
	magic := binary.LittleEndian.Uint32(buf[0:4])
	if magic != frameMagic {
		return fileHeader{}, errBadMagic
	}
	flags := buf[4]
	blockByte := buf[5]
	crc := buf[6]
	if flags != DefaultFlags {
		return fileHeader{}, errBadFlags
	}
	if headerCRC(flags, blockByte) != crc {
		return fileHeader{}, errBadHeaderCRC
	}
	return fileHeader{
		flags:   flags,
		blockID: BlockSizeID((blockByte >> 4) & 0x7),
	}, nil
}

// eosMark is the 4-byte zero length word terminating the block sequence.
var eosMark = [4]byte{0, 0, 0, 0}

// encodeLengthWord packs a block payload size and the raw-store flag into
// the little-endian 31-bit-size + top-bit-flag length word.
func encodeLengthWord(size int, raw bool) uint32 {
	w := uint32(size) & 0x7FFFFFFF
	if raw {
		w |= 0x80000000
	}
	return w
}

func decodeLengthWord(w uint32) (size int, raw bool) {
	return int(w & 0x7FFFFFFF), w>>31 == 1
}
