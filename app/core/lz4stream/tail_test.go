package lz4stream

import (
	"bytes"
	"testing"
)

// fakeReaderAt lets parseTail be exercised against an in-memory buffer
// without touching the filesystem.
type fakeReaderAt struct {
	data []byte
}

func (f *fakeReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(f.data)) {
		return 0, errShortTail
	}
	n := copy(p, f.data[off:])
	return n, nil
}

func TestSerializeParseTailRoundTrip(t *testing.T) {
	// Three 15-byte block frames (4-byte length word + 11-byte payload
	// each), immediately preceded by a 7-byte file header, so the offsets
	// line up with a realistic file layout: header at [0,7), blocks at
	// [7,22), [22,37), [37,52).
	prefix := bytes.Repeat([]byte{0xAA}, 52)
	entries := []IndexEntry{
		{UOff: 0, ZOff: 7},
		{UOff: 11, ZOff: 22},
		{UOff: 22, ZOff: 37},
	}
	var tail bytes.Buffer
	sum := uint32(0xdeadbeef)
	if err := serializeTail(&tail, entries, &sum); err != nil {
		t.Fatalf("serializeTail: %v", err)
	}
	buf := append(append([]byte{}, prefix...), tail.Bytes()...)

	got, tailStart, err := parseTail(&fakeReaderAt{data: buf}, int64(len(buf)), true)
	if err != nil {
		t.Fatalf("parseTail: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("parsed %d entries, want %d", len(got), len(entries))
	}
	// EOS(4) + checksum(4) precede the skippable frame, which sits right
	// after the last data block at offset 52.
	wantTailStart := int64(60)
	if tailStart != wantTailStart {
		t.Fatalf("tailStart = %d, want %d", tailStart, wantTailStart)
	}
	for i, e := range entries {
		if got[i].UOff != e.UOff || got[i].ZOff != e.ZOff {
			t.Fatalf("entry %d = %+v, want uoff/zoff %d/%d", i, got[i], e.UOff, e.ZOff)
		}
	}
	// Adjacent entries chain by differencing, per spec.md §4.3.
	if got[0].USize != 11 || got[0].ZSize != 22-7 {
		t.Fatalf("entry 0 sizes = %+v", got[0])
	}
	if got[1].USize != 11 {
		t.Fatalf("entry 1 usize = %d, want 11", got[1].USize)
	}
	// Last entry's zsize comes from the true end of the last data block
	// (tailStart minus the EOS mark and stream checksum), not from
	// tailStart itself, per spec.md §8 S1.
	if got[2].ZSize != 15 {
		t.Fatalf("entry 2 zsize = %d, want 15", got[2].ZSize)
	}
}

func TestSerializeTailWithoutChecksum(t *testing.T) {
	var buf bytes.Buffer
	if err := serializeTail(&buf, nil, nil); err != nil {
		t.Fatalf("serializeTail: %v", err)
	}
	entries, tailStart, err := parseTail(&fakeReaderAt{data: buf.Bytes()}, int64(buf.Len()), false)
	if err != nil {
		t.Fatalf("parseTail: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("entries = %v, want empty", entries)
	}
	// EOS(4), no checksum, then the skippable frame.
	if tailStart != 4 {
		t.Fatalf("tailStart = %d, want 4", tailStart)
	}
}

func TestParseTailRejectsFileWithoutTail(t *testing.T) {
	data := []byte("not an lz4 tail at all, just plain bytes padded out")
	if _, _, err := parseTail(&fakeReaderAt{data: data}, int64(len(data)), false); err != errNoTail {
		t.Fatalf("err = %v, want errNoTail", err)
	}
}

func TestSeekTargetFindsLargestUOffLessOrEqual(t *testing.T) {
	entries := []IndexEntry{
		{UOff: 0, USize: 65536},
		{UOff: 65536, USize: 65536},
		{UOff: 131072, USize: 65536},
	}
	e, ok := seekTarget(entries, 65540)
	if !ok || e.UOff != 65536 {
		t.Fatalf("seekTarget(65540) = %+v, %v", e, ok)
	}
	e, ok = seekTarget(entries, 0)
	if !ok || e.UOff != 0 {
		t.Fatalf("seekTarget(0) = %+v, %v", e, ok)
	}
	if _, ok := seekTarget(nil, 0); ok {
		t.Fatalf("seekTarget on empty index should report not found")
	}
}

func TestS1TinyIndexEntry(t *testing.T) {
	// spec.md §8 S1: input "hello world" (11 bytes), one block, tail index
	// has exactly one entry (0,11,7,15).
	ix := &index{}
	ix.append(0, 11, 7, 15)
	if len(ix.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(ix.entries))
	}
	e := ix.entries[0]
	if e.UOff != 0 || e.USize != 11 || e.ZOff != 7 || e.ZSize != 15 {
		t.Fatalf("entry = %+v, want (0,11,7,15)", e)
	}
}
