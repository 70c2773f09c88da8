package lz4stream

import (
	"io"
	"sync"

	"github.com/lz4pack/lz4pack/app/panichandler"
)

// task is the unit of work a blockBuffer's worker executes. It receives
// exclusive access to the buffer's in/out byte slices for the duration of
// the call, per spec.md §4.1/§9's "pass the operation as a task" design
// note (the buffer holds no back-reference to its owning stream).
type task func(b *blockBuffer) (outLen int, returnCode int, err error)

// blockBuffer is a paired input/output byte buffer with fill counters and
// an output-side read cursor, generalizing chronicler/v2's WriteBuffer from
// "batch of serialized entries" to "fixed-capacity byte window with a
// worker task", per spec.md §4.1.
type blockBuffer struct {
	mu sync.Mutex

	capacity int
	in       []byte
	inLen    int
	out      []byte
	outLen   int
	pos      int

	seq int

	done       chan struct{}
	returnCode int
	workErr    error
	running    bool
	joined     bool
}

func newBlockBuffer(capacity int) *blockBuffer {
	return &blockBuffer{
		capacity: capacity,
		in:       make([]byte, capacity),
		// The output window carries a 4-byte length-word prefix per
		// block, per spec.md's data model (out_len <= C + 4).
		out: make([]byte, capacity+4),
	}
}

// add copies min(n, capacity-inLen) bytes from src into the input side and
// returns the number of bytes copied; 0 means the buffer is full.
func (b *blockBuffer) add(src []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := b.capacity - b.inLen
	if k > len(src) {
		k = len(src)
	}
	if k <= 0 {
		return 0
	}
	copy(b.in[b.inLen:], src[:k])
	b.inLen += k
	return k
}

// addFromStream reads up to min(n, capacity-inLen) bytes from r into the
// input side.
func (b *blockBuffer) addFromStream(r io.Reader, n int) (int, error) {
	b.mu.Lock()
	room := b.capacity - b.inLen
	if n > room {
		n = room
	}
	if n <= 0 {
		b.mu.Unlock()
		return 0, nil
	}
	dst := b.in[b.inLen : b.inLen+n]
	b.mu.Unlock()

	k, err := io.ReadFull(r, dst)
	if err == io.ErrUnexpectedEOF {
		err = nil
	}

	b.mu.Lock()
	b.inLen += k
	b.mu.Unlock()
	return k, err
}

// drain copies min(n, outLen-pos) bytes from the output side into dst,
// starting at the read cursor, and advances the cursor.
func (b *blockBuffer) drain(dst []byte) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	avail := b.outLen - b.pos
	n := len(dst)
	if n > avail {
		n = avail
	}
	if n <= 0 {
		return 0
	}
	copy(dst, b.out[b.pos:b.pos+n])
	b.pos += n
	return n
}

// reset zeroes all counters and the read cursor, returning the buffer to
// the free pool.
func (b *blockBuffer) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.inLen = 0
	b.outLen = 0
	b.pos = 0
	b.returnCode = 0
	b.workErr = nil
	b.running = false
	b.joined = false
	b.done = nil
}

// run spawns a worker goroutine that executes t against this buffer. A
// panic inside t is caught by panichandler.SafeGoWithCallback and surfaces as workErr
// on wait(), per spec.md §7's JobUnknown kind — it never crashes the
// process.
func (b *blockBuffer) run(t task) {
	b.mu.Lock()
	b.running = true
	b.joined = false
	done := make(chan struct{})
	b.done = done
	b.mu.Unlock()

	panichandler.SafeGoWithCallback("lz4stream block worker", func() {
		outLen, code, err := t(b)
		b.mu.Lock()
		b.outLen = outLen
		b.pos = 0
		b.returnCode = code
		b.workErr = err
		b.mu.Unlock()
		close(done)
	}, func() {
		// Panic inside the task: record it so wait() reports JobUnknown
		// instead of hanging forever on an unclosed channel.
		b.mu.Lock()
		if b.workErr == nil {
			b.workErr = errWorkerPanicked
		}
		b.mu.Unlock()
		close(done)
	})
}

// wait joins the worker started by run(). It is idempotent after the
// first join, per spec.md §4.1.
func (b *blockBuffer) wait() (outLen int, returnCode int, err error) {
	b.mu.Lock()
	done := b.done
	joined := b.joined
	b.joined = true
	b.mu.Unlock()

	if done != nil && !joined {
		<-done
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.outLen, b.returnCode, b.workErr
}
