package lz4stream

import (
	"encoding/binary"
	"io"
	"os"
)

// Default tunables, per spec.md §9's "module-level immutable constants, no
// process-wide mutable state" design note. app/config overrides these from
// the environment; the core never reads the environment itself.
const (
	DefaultLevel     = 1
	DefaultBlockSize = BlockSize256KB
	DefaultThreads   = 4
)

type mode int

const (
	modeRead mode = iota
	modeWrite
)

// OpenReadOptions configures OpenRead. VerifyChecksum turns on spec.md §9
// note 1's SHOULD: validate the stream's XXH32 digest at EOS, failing
// closed with a Tail error on mismatch. Left off by default so Stream can
// still read files written without a valid digest.
type OpenReadOptions struct {
	VerifyChecksum bool
}

// Stream is the external API spec.md §6 names: open_read / open_write /
// read / write / close / seek_uncompressed / seek_raw / eof / ratio /
// detect_format, plus the latched-error discipline of §7.
type Stream struct {
	file *os.File
	mode mode
	header fileHeader

	// write side
	pool     *pool
	checksum *checksumDriver
	index    *index

	// read side
	decoder        *decoderEngine
	opts           OpenReadOptions
	fileSize       int64
	tailStart      int64
	checksumWant   uint32
	checksumSeen   bool
	checksumOK     bool
	checksumDriver *checksumDriver
	uncompressedLen int64 // -1 until resolved
	uncompressedPos int64

	totalUncompressed int64
	totalCompressed   int64

	err    *StreamError
	closed bool
}

// fail latches the first StreamError on the stream, per spec.md §7.
func (s *Stream) fail(e *StreamError) *StreamError {
	if s.err == nil {
		s.err = e
	}
	return s.err
}

// Failed reports whether the stream has a latched error (spec.md §7's
// fail()).
func (s *Stream) Failed() bool {
	return s.err != nil
}

// LastError returns the latched error, or nil (spec.md §7's str_error()).
func (s *Stream) LastError() error {
	if s.err == nil {
		return nil
	}
	return s.err
}

// OpenWrite creates path and prepares a Stream for writing, per spec.md
// §6's open_write(path, level, block_size, n_threads).
func OpenWrite(path string, level int, blockSize BlockSizeID, nThreads int) (*Stream, error) {
	if nThreads < 1 {
		nThreads = DefaultThreads
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, newErr(KindOpen, err)
	}

	header := fileHeader{flags: DefaultFlags, blockID: blockSize}
	if _, err := f.Write(header.serialize()); err != nil {
		f.Close()
		return nil, newErr(KindWrite, err)
	}

	s := &Stream{
		file:            f,
		mode:            modeWrite,
		header:          header,
		checksum:        newChecksumDriver(),
		index:           &index{},
		totalCompressed: fileHeaderSize,
	}
	independent := header.flags&flagBlockIndependence != 0
	s.pool = newPool(nThreads, blockSize.Cap(), level, independent, s)
	return s, nil
}

// onFlush implements flushSink for the write-side pool: it is called with
// the oldest in-flight buffer once its worker has finished, and its only
// job is to write the framed bytes, update the running checksum and
// offsets, and append an IndexEntry — spec.md §4.2's flush_one() contract.
func (s *Stream) onFlush(slot *writeBufferSlot) error {
	buf := slot.buf
	nBefore := s.totalUncompressed
	zBefore := s.totalCompressed

	if _, err := s.file.Write(buf.out[:buf.outLen]); err != nil {
		return err
	}
	s.checksum.update(buf.in[:buf.inLen])

	outLen := int64(buf.outLen) & 0x7FFFFFFF
	s.index.append(nBefore, int64(buf.inLen), zBefore, outLen)
	s.totalUncompressed += int64(buf.inLen)
	s.totalCompressed += outLen
	return nil
}

// OpenRead opens path for reading, per spec.md §6's open_read(path).
func OpenRead(path string, opts OpenReadOptions) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newErr(KindOpen, err)
	}

	headerBuf := make([]byte, fileHeaderSize)
	if _, err := io.ReadFull(f, headerBuf); err != nil {
		f.Close()
		return nil, newErr(KindHeader, err)
	}
	header, err := deserializeFileHeader(headerBuf)
	if err != nil {
		f.Close()
		return nil, newErr(KindHeader, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, newErr(KindOpen, err)
	}

	s := &Stream{
		file:              f,
		mode:              modeRead,
		header:            header,
		opts:              opts,
		fileSize:          info.Size(),
		checksumDriver:    newChecksumDriver(),
		uncompressedLen:   -1,
		totalCompressed:   fileHeaderSize,
	}
	s.decoder = newDecoderEngine(header.blockID.Cap())
	s.decoder.hook = s.onDecoded

	hasChecksum := header.flags&flagStreamChecksum != 0
	entries, tailStart, terr := parseTail(f, s.fileSize, hasChecksum)
	switch terr {
	case nil:
		s.index = &index{entries: entries}
		s.tailStart = tailStart
		if len(entries) > 0 {
			if usize, err := s.resolveLastUSize(entries[len(entries)-1]); err == nil {
				entries[len(entries)-1].USize = usize
				s.uncompressedLen = entries[len(entries)-1].UOff + usize
			}
		} else {
			s.uncompressedLen = 0
		}
	case errNoTail, errShortTail:
		// No usable index; seek_uncompressed degrades to sequential-only,
		// per spec.md §9 note 2 (the tail-differencing trick has no
		// anchor to work from).
		s.index = &index{}
		s.tailStart = s.fileSize
	default:
		f.Close()
		return nil, newErr(KindTail, terr)
	}

	if _, err := f.Seek(int64(fileHeaderSize), io.SeekStart); err != nil {
		f.Close()
		return nil, newErr(KindHeader, err)
	}
	return s, nil
}

// resolveLastUSize decodes the single last block at its recorded (zoff,
// zsize) to learn its true uncompressed length — the one value the tail's
// offset-pair encoding cannot recover by differencing (spec.md §9 note 2).
// It does not disturb the stream's main read cursor.
func (s *Stream) resolveLastUSize(e IndexEntry) (int64, error) {
	if e.ZSize <= 0 {
		return 0, errShortTail
	}
	raw := make([]byte, e.ZSize)
	if _, err := s.file.ReadAt(raw, e.ZOff); err != nil {
		return 0, err
	}
	if len(raw) < 4 {
		return 0, errShortTail
	}
	word := binary.LittleEndian.Uint32(raw[0:4])
	sz, isRaw := decodeLengthWord(word)
	if int64(4+sz) > e.ZSize {
		return 0, errShortTail
	}
	if isRaw {
		return int64(sz), nil
	}
	out := make([]byte, s.header.blockID.Cap())
	n, err := decompressBlock(raw[4:4+sz], out)
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

// onDecoded is the decoderEngine hook: it feeds newly decoded plaintext
// into the checksum driver and, at EOS, optionally verifies the stored
// stream checksum — spec.md §4.6 / §9 note 1.
func (s *Stream) onDecoded() {
	if s.decoder.outLen > 0 {
		s.checksumDriver.update(s.decoder.out[:s.decoder.outLen])
	}
	if s.decoder.lastCode != decodeEOS || s.checksumSeen {
		return
	}
	s.checksumSeen = true
	if s.header.flags&flagStreamChecksum == 0 || !s.opts.VerifyChecksum {
		return
	}
	if s.decoder.inLen < 4 {
		return
	}
	want := binary.LittleEndian.Uint32(s.decoder.in[0:4])
	s.checksumWant = want
	s.checksumOK = want == s.checksumDriver.digest()
	if !s.checksumOK {
		s.fail(newErr(KindTail, errChecksumMismatch))
	}
}

// Write implements spec.md §6's write(buf) → n | error: copies bytes into
// the current buffer, submitting it to the pool whenever it fills.
func (s *Stream) Write(p []byte) (int, error) {
	if s.mode != modeWrite {
		return 0, s.fail(newErr(KindWrite, errClosed))
	}
	if s.err != nil {
		return 0, s.err
	}
	written := 0
	for len(p) > 0 {
		k := s.pool.currentBuffer().add(p)
		written += k
		p = p[k:]
		if k == 0 {
			if serr := s.pool.submit(); serr != nil {
				s.fail(serr)
				return written, serr
			}
		}
	}
	return written, nil
}

// Read implements spec.md §6's read(buf) → n | error via the
// Decompression Engine's pull loop (§4.5).
func (s *Stream) Read(p []byte) (int, error) {
	if s.mode != modeRead {
		return 0, s.fail(newErr(KindRead, errClosed))
	}
	if s.err != nil {
		return 0, s.err
	}
	n, err := s.decoder.pull(s.file, p)
	s.uncompressedPos += int64(n)
	if err != nil && err != io.EOF {
		s.fail(newErr(KindRead, err))
	}
	return n, err
}

// Eof reports spec.md §6's eof(): only meaningful in read mode.
func (s *Stream) Eof() bool {
	if s.mode != modeRead {
		return false
	}
	return s.decoder.eof()
}

// Ratio returns 100*N/Z, spec.md §6's ratio().
func (s *Stream) Ratio() float64 {
	var n, z int64
	if s.mode == modeWrite {
		n, z = s.totalUncompressed, s.totalCompressed
	} else {
		n, z = s.uncompressedPos, s.fileSize
	}
	if z == 0 {
		return 0
	}
	return 100 * float64(n) / float64(z)
}

// SeekUncompressed implements spec.md §4.7/§6's seek_uncompressed(offset,
// whence). whence follows io.Seek* conventions (Begin/Current/End).
func (s *Stream) SeekUncompressed(offset int64, whence int) error {
	if s.mode != modeRead {
		return s.fail(newErr(KindSeek, errClosed))
	}
	if s.err != nil {
		return s.err
	}

	target := offset
	switch whence {
	case io.SeekCurrent:
		target = s.uncompressedPos + offset
	case io.SeekEnd:
		if s.uncompressedLen < 0 {
			return s.fail(newErr(KindSeek, errOffsetNotFound))
		}
		target = s.uncompressedLen + offset
	}
	if target < 0 {
		return s.fail(newErr(KindSeek, errOffsetNotFound))
	}

	if target == 0 && len(s.index.entries) == 0 {
		if _, err := s.file.Seek(int64(fileHeaderSize), io.SeekStart); err != nil {
			return s.fail(newErr(KindSeek, err))
		}
		s.decoder.reset()
		s.uncompressedPos = 0
		return nil
	}

	entry, ok := seekTarget(s.index.entries, target)
	if !ok {
		return s.fail(newErr(KindSeek, errOffsetNotFound))
	}
	if _, err := s.file.Seek(entry.ZOff, io.SeekStart); err != nil {
		return s.fail(newErr(KindSeek, err))
	}
	s.decoder.reset()
	s.uncompressedPos = entry.UOff

	delta := target - entry.UOff
	if delta > 0 {
		discard := make([]byte, delta)
		n, err := s.Read(discard)
		if err != nil && err != io.EOF {
			return s.err
		}
		if int64(n) != delta {
			return s.fail(newErr(KindSeek, errOffsetNotFound))
		}
	}
	return nil
}

// SeekRaw implements spec.md §6's seek_raw(offset, whence): a byte seek in
// the underlying file, read mode only, invalidating decoder state.
func (s *Stream) SeekRaw(offset int64, whence int) error {
	if s.mode != modeRead {
		return s.fail(newErr(KindSeek, errClosed))
	}
	if s.err != nil {
		return s.err
	}
	pos, err := s.file.Seek(offset, whence)
	if err != nil {
		return s.fail(newErr(KindSeek, err))
	}
	s.decoder.reset()
	s.uncompressedPos = pos
	return nil
}

// Close implements spec.md §6's close() → error and §8 invariant 7's
// idempotent-close rule. On write, it best-effort completes the tail write
// even if flushing failed, per spec.md §7.
func (s *Stream) Close() error {
	if s.closed {
		return s.LastError()
	}
	s.closed = true

	if s.mode == modeWrite {
		if serr := s.pool.close(); serr != nil {
			s.fail(serr)
		}
		digest := s.checksum.digest()
		var cksum *uint32
		if s.header.flags&flagStreamChecksum != 0 {
			cksum = &digest
		}
		if err := serializeTail(s.file, s.index.entries, cksum); err != nil {
			s.fail(newErr(KindTail, err))
		}
	}

	if err := s.file.Close(); err != nil {
		s.fail(newErr(KindWrite, err))
	}
	return s.LastError()
}

// Format is the result of DetectFormat, spec.md §6's {Lz4, None}.
type Format int

const (
	FormatNone Format = iota
	FormatLz4
)

// DetectFormat implements spec.md §6's detect_format(path): probe by
// attempting a read-mode open and inspecting the header, per S6.
func DetectFormat(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatNone, err
	}
	defer f.Close()

	headerBuf := make([]byte, fileHeaderSize)
	if _, err := io.ReadFull(f, headerBuf); err != nil {
		return FormatNone, nil
	}
	if _, err := deserializeFileHeader(headerBuf); err != nil {
		return FormatNone, nil
	}
	return FormatLz4, nil
}
