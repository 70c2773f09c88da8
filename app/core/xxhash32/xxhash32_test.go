package xxhash32

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestSum32Empty(t *testing.T) {
	// XXH32("", seed=0) is a well-known fixed point of the algorithm.
	got := Sum32(nil, 0)
	want := uint32(0x02cc5d05)
	if got != want {
		t.Errorf("Sum32(nil, 0) = %#x, want %#x", got, want)
	}
}

func TestSum32MatchesKnownVector(t *testing.T) {
	got := Sum32([]byte("abc"), 0)
	// Printed from a reference XXH32 implementation for the same input.
	want := uint32(0x32d153ff)
	if got != want {
		t.Fatalf("Sum32(\"abc\", 0) = %#x, want %#x", got, want)
	}
}

func TestSum32Deterministic(t *testing.T) {
	data := []byte("hello world, this is a test string for xxhash32")
	a := Sum32(data, 0)
	b := Sum32(data, 0)
	if a != b {
		t.Errorf("Sum32 is not deterministic: %#x != %#x", a, b)
	}
}

func TestSum32SeedChangesDigest(t *testing.T) {
	data := []byte("hello world")
	a := Sum32(data, 0)
	b := Sum32(data, 1)
	if a == b {
		t.Errorf("expected different digests for different seeds")
	}
}

func TestStateMatchesSum32ForAllChunkings(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	data := make([]byte, 5000)
	r.Read(data)

	want := Sum32(data, 0)

	chunkSizes := []int{1, 2, 3, 4, 7, 15, 16, 17, 31, 1000}
	for _, cs := range chunkSizes {
		s := New(0)
		for off := 0; off < len(data); off += cs {
			end := off + cs
			if end > len(data) {
				end = len(data)
			}
			s.Update(data[off:end])
		}
		if got := s.Sum32(); got != want {
			t.Errorf("chunk size %d: State.Sum32() = %#x, want %#x", cs, got, want)
		}
	}
}

func TestStateWriteImplementsIoWriter(t *testing.T) {
	s := New(0)
	buf := bytes.NewBuffer(nil)
	buf.WriteString("streaming via io.Writer")
	if _, err := s.Write(buf.Bytes()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Sum32() != Sum32(buf.Bytes(), 0) {
		t.Errorf("State.Write result diverges from Sum32")
	}
}

func TestStateResetReusable(t *testing.T) {
	s := New(0)
	s.Update([]byte("first run"))
	first := s.Sum32()

	s.Reset(0)
	s.Update([]byte("first run"))
	second := s.Sum32()

	if first != second {
		t.Errorf("Reset did not restore a clean state: %#x != %#x", first, second)
	}
}
