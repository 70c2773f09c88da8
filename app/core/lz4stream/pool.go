package lz4stream

import "errors"

// writeBufferSlot pairs a blockBuffer with the codec context spec.md §3
// says must move with it (1:1, allocated once, freed at close).
type writeBufferSlot struct {
	buf *blockBuffer
	ctx *codecContext
	seq int
}

// pool owns N block buffers and tracks the three disjoint queues spec.md
// §4.2 describes: free, in-flight (submission order), and current.
// Single producer, many workers, single flusher — the same contract
// chronicler/v2's FileWriter upholds for its own write buffer, generalized
// here to a fan-out of worker goroutines instead of one synchronous flush.
type pool struct {
	slots   []*writeBufferSlot
	free    []*writeBufferSlot
	inFlight []*writeBufferSlot
	current *writeBufferSlot

	nextSeq int

	sink flushSink
}

// flushSink is whatever consumes a flushed block's framed bytes: the frame
// writer plus index/checksum bookkeeping that lives in stream.go. Kept as
// an interface so pool.go has no back-reference to Stream, mirroring
// spec.md §9's "no cyclic back-reference" design note.
type flushSink interface {
	onFlush(slot *writeBufferSlot) error
}

func newPool(n, blockCap, level int, independent bool, sink flushSink) *pool {
	p := &pool{sink: sink}
	for i := 0; i < n; i++ {
		p.slots = append(p.slots, &writeBufferSlot{
			buf: newBlockBuffer(blockCap),
			ctx: newCodecContext(level, independent),
		})
	}
	p.free = append(p.free, p.slots...)
	p.current = p.acquireFree()
	return p
}

func (p *pool) acquireFree() *writeBufferSlot {
	if len(p.free) == 0 {
		return nil
	}
	s := p.free[0]
	p.free = p.free[1:]
	return s
}

// currentBuffer returns the writable buffer the producer fills via add()
// / addFromStream().
func (p *pool) currentBuffer() *blockBuffer {
	return p.current.buf
}

// submit spawns the compression worker for current, enqueues it at the
// tail of in-flight (preserving submission order), and promotes a free
// buffer to current. If free is empty, it first flushes the oldest
// in-flight buffer — this is the backpressure spec.md §5 describes.
//
// Callers must not submit an empty current buffer (spec.md §4.1); this is
// a caller contract, not a runtime condition submit() recovers from.
func (p *pool) submit() *StreamError {
	if p.current.buf.inLen == 0 {
		return newErr(KindCompress, errEmptySubmit)
	}

	p.current.seq = p.nextSeq
	p.nextSeq++
	p.current.buf.run(runCompress(p.current.ctx))
	p.inFlight = append(p.inFlight, p.current)

	if len(p.free) == 0 {
		if serr := p.flushOne(); serr != nil {
			return serr
		}
	}
	p.current = p.acquireFree()
	return nil
}

// flushOne pops the head of in-flight, joins its worker, and hands its
// framed output to the sink — the "oldest in-flight buffer" step spec.md
// §4.2/§5 requires, regardless of completion order.
func (p *pool) flushOne() *StreamError {
	if len(p.inFlight) == 0 {
		return nil
	}
	slot := p.inFlight[0]
	p.inFlight = p.inFlight[1:]

	_, _, err := slot.buf.wait()
	if err != nil {
		if errors.Is(err, errWorkerPanicked) {
			return newErr(KindJobUnknown, err)
		}
		return newErr(KindJobWait, err)
	}
	if err := p.sink.onFlush(slot); err != nil {
		return newErr(KindWrite, err)
	}
	slot.buf.reset()
	p.free = append(p.free, slot)
	return nil
}

// inFlightCount reports how many buffers currently have a worker running
// or finished-but-unflushed — used by tests to assert the backpressure
// invariant (spec.md §8 invariant 8: never more than n in-flight).
func (p *pool) inFlightCount() int {
	return len(p.inFlight)
}

// close flushes current if non-empty, then drains in-flight until empty,
// per spec.md §4.2.
func (p *pool) close() *StreamError {
	if p.current != nil && p.current.buf.inLen > 0 {
		if serr := p.submit(); serr != nil {
			return serr
		}
	}
	for len(p.inFlight) > 0 {
		if serr := p.flushOne(); serr != nil {
			return serr
		}
	}
	return nil
}
