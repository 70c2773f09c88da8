package lz4stream

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"testing"
)

func TestRunCompressRoundTrip(t *testing.T) {
	src := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 200)
	buf := newBlockBuffer(len(src))
	buf.add(src)

	ctx := newCodecContext(1, true)
	outLen, code, err := runCompress(ctx)(buf)
	if err != nil {
		t.Fatalf("runCompress: %v", err)
	}
	if code != 1 {
		t.Fatalf("return code = %d, want 1 (zipped), compressible input should shrink", code)
	}
	if outLen >= len(src) {
		t.Fatalf("outLen = %d, want < %d for compressible input", outLen, len(src))
	}

	sz, raw := decodeLengthWord(binary.LittleEndian.Uint32(buf.out[0:4]))
	if raw {
		t.Fatalf("expected compressed marker, got raw")
	}
	out := make([]byte, len(src))
	n, err := decompressBlock(buf.out[4:4+sz], out)
	if err != nil {
		t.Fatalf("decompressBlock: %v", err)
	}
	if !bytes.Equal(out[:n], src) {
		t.Fatalf("round trip mismatch")
	}
}

func TestRunCompressFallsBackToRawOnIncompressibleInput(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	src := make([]byte, 65536)
	rnd.Read(src)

	buf := newBlockBuffer(len(src))
	buf.add(src)
	ctx := newCodecContext(1, true)
	outLen, code, err := runCompress(ctx)(buf)
	if err != nil {
		t.Fatalf("runCompress: %v", err)
	}
	sz, raw := decodeLengthWord(binary.LittleEndian.Uint32(buf.out[0:4]))
	if !raw {
		t.Fatalf("expected raw marker for incompressible input, code=%d outLen=%d", code, outLen)
	}
	if sz != len(src) {
		t.Fatalf("sz = %d, want %d", sz, len(src))
	}
	if outLen != len(src)+4 {
		t.Fatalf("outLen = %d, want %d", outLen, len(src)+4)
	}
	if !bytes.Equal(buf.out[4:4+sz], src) {
		t.Fatalf("raw payload does not match source verbatim")
	}
}

func TestCodecContextIsHC(t *testing.T) {
	if newCodecContext(1, true).isHC() {
		t.Fatalf("level 1 should not select HC")
	}
	if !newCodecContext(minHCLevel, true).isHC() {
		t.Fatalf("level %d should select HC", minHCLevel)
	}
}

func TestCompressBoundNeverSmallerThanInput(t *testing.T) {
	if compressBound(1000) < 1000 {
		t.Fatalf("compressBound should never be smaller than input size")
	}
}
