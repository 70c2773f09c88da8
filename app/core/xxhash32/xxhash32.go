// Package xxhash32 implements the 32-bit xxHash algorithm used for the
// LZ4 frame header CRC and the rolling stream checksum. There is no XXH32
// implementation among this module's dependencies (cespare/xxhash/v2 only
// implements the 64-bit variant), so this package stands in for one.
package xxhash32

import "encoding/binary"

const (
	prime1 uint32 = 2654435761
	prime2 uint32 = 2246822519
	prime3 uint32 = 3266489917
	prime4 uint32 = 668265263
	prime5 uint32 = 374761393
)

func round(acc, input uint32) uint32 {
	acc += input * prime2
	acc = rotl32(acc, 13)
	acc *= prime1
	return acc
}

func rotl32(x uint32, r uint) uint32 {
	return (x << r) | (x >> (32 - r))
}

func avalanche(h uint32) uint32 {
	h ^= h >> 15
	h *= prime2
	h ^= h >> 13
	h *= prime3
	h ^= h >> 16
	return h
}

// Sum32 computes the one-shot XXH32 digest of data with the given seed.
func Sum32(data []byte, seed uint32) uint32 {
	n := len(data)
	p := 0
	var h32 uint32

	if n >= 16 {
		v1 := seed + prime1 + prime2
		v2 := seed + prime2
		v3 := seed
		v4 := seed - prime1

		limit := n - 16
		for p <= limit {
			v1 = round(v1, binary.LittleEndian.Uint32(data[p:]))
			p += 4
			v2 = round(v2, binary.LittleEndian.Uint32(data[p:]))
			p += 4
			v3 = round(v3, binary.LittleEndian.Uint32(data[p:]))
			p += 4
			v4 = round(v4, binary.LittleEndian.Uint32(data[p:]))
			p += 4
		}
		h32 = rotl32(v1, 1) + rotl32(v2, 7) + rotl32(v3, 12) + rotl32(v4, 18)
	} else {
		h32 = seed + prime5
	}

	h32 += uint32(n)

	for p+4 <= n {
		h32 += binary.LittleEndian.Uint32(data[p:]) * prime3
		h32 = rotl32(h32, 17) * prime4
		p += 4
	}
	for p < n {
		h32 += uint32(data[p]) * prime5
		h32 = rotl32(h32, 11) * prime1
		p++
	}

	return avalanche(h32)
}

// State is a streaming XXH32 accumulator, used for the stream checksum that
// is updated one block at a time rather than over the whole input at once.
type State struct {
	seed     uint32
	v1       uint32
	v2       uint32
	v3       uint32
	v4       uint32
	totalLen uint64
	mem      [16]byte
	memSize  int
}

// New creates a new streaming XXH32 state with the given seed.
func New(seed uint32) *State {
	s := &State{}
	s.Reset(seed)
	return s
}

// Reset reinitializes the state with a (possibly new) seed.
func (s *State) Reset(seed uint32) {
	s.seed = seed
	s.v1 = seed + prime1 + prime2
	s.v2 = seed + prime2
	s.v3 = seed
	s.v4 = seed - prime1
	s.totalLen = 0
	s.memSize = 0
}

// Write implements io.Writer, feeding len(p) more bytes into the digest.
func (s *State) Write(p []byte) (int, error) {
	s.Update(p)
	return len(p), nil
}

// Update feeds more bytes into the running digest.
func (s *State) Update(input []byte) {
	n := len(input)
	s.totalLen += uint64(n)
	p := 0

	if s.memSize+n < 16 {
		copy(s.mem[s.memSize:], input)
		s.memSize += n
		return
	}

	if s.memSize > 0 {
		fill := 16 - s.memSize
		copy(s.mem[s.memSize:], input[:fill])
		s.v1 = round(s.v1, binary.LittleEndian.Uint32(s.mem[0:]))
		s.v2 = round(s.v2, binary.LittleEndian.Uint32(s.mem[4:]))
		s.v3 = round(s.v3, binary.LittleEndian.Uint32(s.mem[8:]))
		s.v4 = round(s.v4, binary.LittleEndian.Uint32(s.mem[12:]))
		p = fill
		s.memSize = 0
	}

	if p+16 <= n {
		v1, v2, v3, v4 := s.v1, s.v2, s.v3, s.v4
		limit := n - 16
		for p <= limit {
			v1 = round(v1, binary.LittleEndian.Uint32(input[p:]))
			p += 4
			v2 = round(v2, binary.LittleEndian.Uint32(input[p:]))
			p += 4
			v3 = round(v3, binary.LittleEndian.Uint32(input[p:]))
			p += 4
			v4 = round(v4, binary.LittleEndian.Uint32(input[p:]))
			p += 4
		}
		s.v1, s.v2, s.v3, s.v4 = v1, v2, v3, v4
	}

	if p < n {
		s.memSize = copy(s.mem[:], input[p:])
	}
}

// Sum32 returns the digest of all bytes written so far without resetting
// the state.
func (s *State) Sum32() uint32 {
	var h32 uint32
	if s.totalLen >= 16 {
		h32 = rotl32(s.v1, 1) + rotl32(s.v2, 7) + rotl32(s.v3, 12) + rotl32(s.v4, 18)
	} else {
		h32 = s.seed + prime5
	}

	h32 += uint32(s.totalLen)

	p := 0
	n := s.memSize
	for p+4 <= n {
		h32 += binary.LittleEndian.Uint32(s.mem[p:]) * prime3
		h32 = rotl32(h32, 17) * prime4
		p += 4
	}
	for p < n {
		h32 += uint32(s.mem[p]) * prime5
		h32 = rotl32(h32, 11) * prime1
		p++
	}

	return avalanche(h32)
}
