package lz4stream

import "github.com/lz4pack/lz4pack/app/core/xxhash32"

// checksumDriver wraps the streaming XXH32 state spec.md §4.6 describes.
// It is updated with the uncompressed bytes of a block, by the flusher,
// just before that block's buffer is released back to the free pool.
type checksumDriver struct {
	state *xxhash32.State
}

func newChecksumDriver() *checksumDriver {
	return &checksumDriver{state: xxhash32.New(0)}
}

func (c *checksumDriver) update(uncompressed []byte) {
	c.state.Update(uncompressed)
}

func (c *checksumDriver) digest() uint32 {
	return c.state.Sum32()
}
