package lz4stream

import (
	"encoding/binary"
	"io"
)

// decode return codes, per spec.md §4.5.
const (
	decodeOK          = 0
	decodeShortInput  = 1
	decodeShortOutput = 2
	decodeEOS         = 3
	// decodeCorrupt is not one of spec.md §4.5's three return codes: it
	// marks a length word that declares a block larger than the input
	// buffer could ever hold, which decodeShortInput's "wait for more
	// bytes" handling can never resolve (the block is no buffer-capacity
	// growth away from fitting). Surfaced by pull() as errCorruptedBlock.
	decodeCorrupt = 4
)

// decoderEngine holds the single buffer spec.md §4.5 describes: a streaming,
// single-buffer decoder that carries over unconsumed input bytes across
// reads from the underlying file.
type decoderEngine struct {
	capacity int
	in       []byte
	inLen    int
	out      []byte
	outLen   int
	pos      int

	lastCode int
	fileEOF  bool

	// hook, when set, runs after every decodeBlockSequence pass, before the
	// caller sees the result. Stream uses it to feed newly decoded plaintext
	// into the Checksum Driver and to read the stream-checksum word at the
	// front of the input buffer at EOS, per spec.md §9 note 1's optional
	// verification — kept as a hook rather than a field so decoderEngine
	// still has no back-reference to Stream.
	hook func()
}

func newDecoderEngine(capacity int) *decoderEngine {
	return &decoderEngine{
		capacity: capacity,
		in:       make([]byte, capacity*2), // room to append a file read before decoding
		out:      make([]byte, capacity),
	}
}

// reset clears all decode state, used by seekByUncompressed to start
// decoding from a fresh file position.
func (d *decoderEngine) reset() {
	d.inLen = 0
	d.outLen = 0
	d.pos = 0
	d.lastCode = 0
	d.fileEOF = false
}

// drain copies min(len(dst), outLen-pos) bytes out of the output side.
func (d *decoderEngine) drain(dst []byte) int {
	avail := d.outLen - d.pos
	n := len(dst)
	if n > avail {
		n = avail
	}
	if n <= 0 {
		return 0
	}
	copy(dst, d.out[d.pos:d.pos+n])
	d.pos += n
	return n
}

// decodeBlockSequence is a single pass over the current input buffer,
// decoding as many whole blocks as fit into the output side, per spec.md
// §4.5's "Decode" pseudocode.
func (d *decoderEngine) decodeBlockSequence() int {
	code := d.decodeBlockSequenceInner()
	if d.hook != nil {
		d.hook()
	}
	return code
}

func (d *decoderEngine) decodeBlockSequenceInner() int {
	inptr := 0
	outptr := 0

	for inptr+4 <= d.inLen {
		word := binary.LittleEndian.Uint32(d.in[inptr : inptr+4])
		sz, raw := decodeLengthWord(word)
		if sz == 0 {
			d.lastCode = decodeEOS
			inptr += 4
			d.carryOver(inptr)
			d.outLen = outptr
			d.pos = 0
			return decodeEOS
		}
		if inptr+4+sz > d.inLen {
			// A block whose declared size can never fit in the input
			// buffer (even fully drained and refilled) is not a genuine
			// short-input condition: appendFromFile can never supply
			// enough room for it, so waiting for more bytes would spin
			// forever. Report it as corrupt instead of short input.
			if 4+sz > len(d.in) {
				d.lastCode = decodeCorrupt
				d.outLen = outptr
				d.pos = 0
				return decodeCorrupt
			}
			d.lastCode = decodeShortInput
			d.carryOver(inptr)
			d.outLen = outptr
			d.pos = 0
			return decodeShortInput
		}
		payload := d.in[inptr+4 : inptr+4+sz]
		if raw {
			if outptr+sz > d.capacity {
				d.lastCode = decodeShortOutput
				d.carryOver(inptr)
				d.outLen = outptr
				d.pos = 0
				return decodeShortOutput
			}
			copy(d.out[outptr:], payload)
			outptr += sz
		} else {
			n, err := decompressBlock(payload, d.out[outptr:])
			if err != nil || n <= 0 {
				d.lastCode = decodeShortOutput
				d.carryOver(inptr)
				d.outLen = outptr
				d.pos = 0
				return decodeShortOutput
			}
			outptr += n
		}
		inptr += 4 + sz
	}

	d.carryOver(inptr)
	d.outLen = outptr
	d.pos = 0
	d.lastCode = decodeOK
	return decodeOK
}

// carryOver moves any unconsumed tail bytes in[inptr:inLen] to the front
// of the input buffer, per spec.md §4.5.
func (d *decoderEngine) carryOver(inptr int) {
	remaining := d.inLen - inptr
	if remaining > 0 {
		copy(d.in[0:], d.in[inptr:d.inLen])
	}
	d.inLen = remaining
}

// appendFromFile reads up to d.capacity bytes from r and appends them to
// the input side, returning the number of bytes read.
func (d *decoderEngine) appendFromFile(r io.Reader) (int, error) {
	room := len(d.in) - d.inLen
	want := d.capacity
	if want > room {
		want = room
	}
	if want <= 0 {
		return 0, nil
	}
	n, err := r.Read(d.in[d.inLen : d.inLen+want])
	d.inLen += n
	if err == io.EOF {
		d.fileEOF = true
		err = nil
	}
	return n, err
}

// pull implements the read(dst, n) loop of spec.md §4.5: drain the output
// side, and when it is empty, append more file bytes (unless the decoder
// is strictly waiting on output-side room) and decode again.
func (d *decoderEngine) pull(r io.Reader, dst []byte) (int, error) {
	total := 0
	for total < len(dst) {
		k := d.drain(dst[total:])
		total += k
		if k > 0 {
			continue
		}

		// Once a pass has hit the EOS mark, whatever sits beyond it in
		// in[] is stream-checksum/tail bytes, never another block — do
		// not decode again. Stream's onDecoded hook already had its
		// chance to read those bytes (e.g. the checksum word) the
		// instant decodeEOS was returned; trying to decode again would
		// reinterpret them as a bogus length word.
		if d.lastCode == decodeEOS {
			return total, io.EOF
		}

		if d.lastCode != decodeShortOutput {
			n, err := d.appendFromFile(r)
			if err != nil {
				return total, err
			}
			if n == 0 && d.inLen == 0 {
				return total, io.EOF
			}
		}
		d.decodeBlockSequence()

		if d.lastCode == decodeCorrupt {
			return total, errCorruptedBlock
		}

		// A block that fails to decode and yields zero output bytes can
		// never make progress on a retry: the failing bytes stay at the
		// front of in and nothing new gets appended while lastCode is
		// short-output. Surface it instead of spinning.
		if d.lastCode == decodeShortOutput && d.outLen == 0 {
			return total, errCorruptedBlock
		}

		// A short-input result once the file is at EOF can never
		// resolve either: no more bytes will ever arrive to complete
		// the pending block, so the stream is truncated. Surface it
		// instead of re-decoding the same unchanged bytes forever.
		if d.lastCode == decodeShortInput && d.fileEOF {
			return total, errCorruptedBlock
		}

		// If a full pull produced no forward progress at all (no
		// output, no further input consumed), stop to avoid spinning;
		// this only happens at genuine EOF with no trailing EOS mark.
		if d.outLen-d.pos == 0 && d.fileEOF && d.inLen == 0 {
			if total == 0 {
				return total, io.EOF
			}
			return total, nil
		}
	}
	return total, nil
}

// eof reports spec.md §4.5's EOF condition: the output side fully drained,
// and either the EOS mark has been decoded (whatever follows it in in[] is
// checksum/tail bytes, never data) or the underlying file is at EOF with no
// unconsumed input.
func (d *decoderEngine) eof() bool {
	if d.outLen-d.pos != 0 {
		return false
	}
	return d.lastCode == decodeEOS || (d.fileEOF && d.inLen == 0)
}
