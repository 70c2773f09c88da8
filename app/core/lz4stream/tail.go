package lz4stream

import (
	"encoding/binary"
	"io"
	"sort"
)

const (
	skippableHeaderSize = 8  // magic(4) + size(4)
	identHeaderSize     = 16 // appMagic(4) + version(4) + type(4) + size(4)
	indexEntryWireSize   = 8  // two LE32 offsets per entry, per spec.md §4.3
)

// IndexEntry is one parsed or pending seek-index record, per spec.md §3.
type IndexEntry struct {
	UOff  int64 // uncompressed start
	USize int64 // uncompressed length
	ZOff  int64 // compressed start
	ZSize int64 // compressed length
}

// index accumulates IndexEntry records on write and serves seek lookups on
// read, per spec.md §4.7.
type index struct {
	entries []IndexEntry
}

// append records one flushed block's offsets, per spec.md §4.2's
// flush_one() contract: (N_before, in_len, Z_before, out_len&0x7FFFFFFF).
func (ix *index) append(uOff, uSize, zOff, zSize int64) {
	ix.entries = append(ix.entries, IndexEntry{UOff: uOff, USize: uSize, ZOff: zOff, ZSize: zSize})
}

// serializeTail writes the full skippable-frame tail: EOS mark, optional
// stream checksum, skippable header, ident block, entry offset pairs, and
// the duplicated skippable header (the reverse-seek anchor), per spec.md
// §4.3.
func serializeTail(w io.Writer, entries []IndexEntry, streamChecksum *uint32) error {
	if _, err := w.Write(eosMark[:]); err != nil {
		return err
	}

	if streamChecksum != nil {
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, *streamChecksum)
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}

	payloadSize := identHeaderSize + len(entries)*indexEntryWireSize
	skipHeader := make([]byte, skippableHeaderSize)
	binary.LittleEndian.PutUint32(skipHeader[0:4], skippableMagic)
	binary.LittleEndian.PutUint32(skipHeader[4:8], uint32(payloadSize))

	if _, err := w.Write(skipHeader); err != nil {
		return err
	}

	ident := make([]byte, identHeaderSize)
	binary.LittleEndian.PutUint32(ident[0:4], appMagic)
	binary.LittleEndian.PutUint32(ident[4:8], tailVersion)
	binary.LittleEndian.PutUint32(ident[8:12], tailTypeIndex)
	binary.LittleEndian.PutUint32(ident[12:16], uint32(len(entries)*indexEntryWireSize))
	if _, err := w.Write(ident); err != nil {
		return err
	}

	entryBuf := make([]byte, indexEntryWireSize)
	for _, e := range entries {
		binary.LittleEndian.PutUint32(entryBuf[0:4], uint32(e.UOff))
		binary.LittleEndian.PutUint32(entryBuf[4:8], uint32(e.ZOff))
		if _, err := w.Write(entryBuf); err != nil {
			return err
		}
	}

	// Write the skippable header again, verbatim, as the reverse-seek
	// anchor per spec.md §3/§4.3.
	if _, err := w.Write(skipHeader); err != nil {
		return err
	}
	return nil
}

// parseTail locates and parses the skippable tail at the end of the file,
// per spec.md §4.3's read algorithm: seek back by the anchor's fixed size,
// validate its magic, then seek back by its declared size to read the
// whole payload. r must support reading at an absolute offset (spec.md
// §1's Non-goal of no generic filesystem abstraction beyond sequential
// read/write, absolute/relative seek, and tell). hasStreamChecksum tells
// parseTail whether a 4-byte checksum word sits between the EOS mark and
// the skippable frame, so it can locate the true end of the last data
// block (immediately before the EOS mark) for the last index entry's size.
func parseTail(r io.ReaderAt, fileSize int64, hasStreamChecksum bool) ([]IndexEntry, int64, error) {
	if fileSize < int64(skippableHeaderSize) {
		return nil, 0, errShortTail
	}

	anchor := make([]byte, skippableHeaderSize)
	if _, err := r.ReadAt(anchor, fileSize-int64(skippableHeaderSize)); err != nil {
		return nil, 0, err
	}
	magic := binary.LittleEndian.Uint32(anchor[0:4])
	if magic != skippableMagic {
		return nil, 0, errNoTail
	}
	payloadSize := int64(binary.LittleEndian.Uint32(anchor[4:8]))

	tailStart := fileSize - int64(skippableHeaderSize) - payloadSize - int64(skippableHeaderSize)
	if tailStart < 0 {
		return nil, 0, errShortTail
	}

	full := make([]byte, int64(skippableHeaderSize)+payloadSize)
	if _, err := r.ReadAt(full, tailStart); err != nil {
		return nil, 0, err
	}

	if binary.LittleEndian.Uint32(full[0:4]) != skippableMagic {
		return nil, 0, errBadTailMagic
	}
	ident := full[skippableHeaderSize:]
	if len(ident) < identHeaderSize {
		return nil, 0, errShortTail
	}
	if binary.LittleEndian.Uint32(ident[0:4]) != appMagic {
		return nil, 0, errBadAppMagic
	}
	identSize := int64(binary.LittleEndian.Uint32(ident[12:16]))
	entryBytes := ident[identHeaderSize : identHeaderSize+identSize]

	n := len(entryBytes) / indexEntryWireSize
	offsets := make([][2]uint32, n)
	for i := 0; i < n; i++ {
		b := entryBytes[i*indexEntryWireSize:]
		offsets[i][0] = binary.LittleEndian.Uint32(b[0:4])
		offsets[i][1] = binary.LittleEndian.Uint32(b[4:8])
	}

	// dataEnd is the byte immediately following the last data block, i.e.
	// the start of the EOS mark — tailStart minus the EOS word and, when
	// present, the stream-checksum word that sit between the last block
	// and the skippable frame.
	dataEnd := tailStart - 4
	if hasStreamChecksum {
		dataEnd -= 4
	}

	entries := make([]IndexEntry, 0, n)
	for i := 0; i < n; i++ {
		uOff := int64(offsets[i][0])
		zOff := int64(offsets[i][1])
		var uSize, zSize int64
		if i+1 < n {
			uSize = int64(offsets[i+1][0]) - uOff
			zSize = int64(offsets[i+1][1]) - zOff
		} else {
			// Last entry's sizes come from adjacent differences against
			// the true end of the last data block, per spec.md §4.3/§9
			// note 2 — this only holds because the tail immediately
			// follows the last data block (no padding).
			uSize = 0 // unknown without the uncompressed total; filled by caller
			zSize = dataEnd - zOff
		}
		entries = append(entries, IndexEntry{UOff: uOff, USize: uSize, ZOff: zOff, ZSize: zSize})
	}

	return entries, tailStart, nil
}

// seekTarget finds the entry with the largest UOff <= offset, per spec.md
// §4.7's seek_by_uncompressed algorithm.
func seekTarget(entries []IndexEntry, offset int64) (IndexEntry, bool) {
	if len(entries) == 0 {
		return IndexEntry{}, false
	}
	i := sort.Search(len(entries), func(i int) bool {
		return entries[i].UOff > offset
	})
	i--
	if i < 0 {
		return IndexEntry{}, false
	}
	return entries[i], true
}
