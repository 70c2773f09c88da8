package lz4stream

import (
	"encoding/binary"

	"github.com/pierrec/lz4"
)

// minHCLevel is the lowest compression level that selects the HC (high
// compression) codec family, per spec.md §4.4's selection table.
const minHCLevel = 3

const hashTableSize = 1 << 16

// codecContext is the per-worker compression context spec.md §3 requires
// to be "paired 1:1 with buffers" and move with them. It is allocated once
// per blockBuffer and freed when the pipeline closes.
type codecContext struct {
	level       int
	independent bool
	hashTable   []int
}

func newCodecContext(level int, independent bool) *codecContext {
	c := &codecContext{level: level, independent: independent}
	if level < minHCLevel {
		c.hashTable = make([]int, hashTableSize)
	}
	return c
}

// isHC reports whether this context uses the high-compression codec family.
func (c *codecContext) isHC() bool {
	return c.level >= minHCLevel
}

// compressBlock runs the codec entry point selected by (level,
// independent) against src, writing into dst. dst may be smaller than
// lz4.CompressBlockBound (runCompress passes a window of the block
// capacity); an input whose compressed form does not fit yields 0 or an
// error, and runCompress stores such a block raw, matching the C library's
// "return <= 0 means store raw" convention from spec.md §4.4.
func (c *codecContext) compressBlock(src, dst []byte) (int, error) {
	switch {
	case !c.isHC() && c.independent:
		// fast_extState: a fresh hash table per block, i.e. no block
		// dependence.
		for i := range c.hashTable {
			c.hashTable[i] = 0
		}
		return lz4.CompressBlock(src, dst, c.hashTable)
	case !c.isHC() && !c.independent:
		// fast_continue: per spec.md this should carry dependence
		// across blocks via a shared dictionary window. pierrec/lz4's
		// public block API has no continue-with-external-dictionary
		// entry point, so this degrades to the same stateless call as
		// fast_extState — see DESIGN.md. The default flag byte always
		// sets blockIndependence=1, so this path is not exercised by
		// the default pipeline.
		for i := range c.hashTable {
			c.hashTable[i] = 0
		}
		return lz4.CompressBlock(src, dst, c.hashTable)
	case c.isHC() && c.independent:
		return lz4.CompressBlockHC(src, dst, c.level)
	default:
		// HC_continue: same degradation as fast_continue, see above.
		return lz4.CompressBlockHC(src, dst, c.level)
	}
}

// decompressBlock is the single decompress_safe entry point spec.md §1
// names as the decoder's only dependency on the codec library.
func decompressBlock(src, dst []byte) (int, error) {
	return lz4.UncompressBlock(src, dst)
}

// compressBound returns the worst-case compressed size of an n-byte block,
// i.e. the minimum dst capacity compressBlock needs to never fail due to
// lack of room.
func compressBound(n int) int {
	return lz4.CompressBlockBound(n)
}

// runCompress is the task (per spec.md §9's closure-over-context design)
// that the Pool Set hands to blockBuffer.run() for a write-side worker. It
// implements spec.md §4.4 steps 1-3: call the codec, and on non-compressible
// output fall back to storing the block raw with the top-bit marker set.
func runCompress(ctx *codecContext) task {
	return func(b *blockBuffer) (outLen int, returnCode int, err error) {
		src := b.in[:b.inLen]
		// out[0:4] is the length-word prefix; out[4:] is the payload
		// window, per spec.md §4.4.
		payload := b.out[4:]
		n, cerr := ctx.compressBlock(src, payload)
		if cerr != nil || n <= 0 || n >= b.inLen {
			// Did not compress smaller than the input: store raw.
			copy(payload[:b.inLen], src)
			word := encodeLengthWord(b.inLen, true)
			binary.LittleEndian.PutUint32(b.out[0:4], word)
			return b.inLen + 4, 0, nil
		}
		word := encodeLengthWord(n, false)
		binary.LittleEndian.PutUint32(b.out[0:4], word)
		return n + 4, 1, nil
	}
}
