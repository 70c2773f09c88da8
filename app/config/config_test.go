package config

import (
	"testing"

	"github.com/lz4pack/lz4pack/app/core/lz4stream"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Level != lz4stream.DefaultLevel {
		t.Errorf("Level = %d, want %d", cfg.Level, lz4stream.DefaultLevel)
	}
	if cfg.BlockSize != lz4stream.DefaultBlockSize {
		t.Errorf("BlockSize = %d, want %d", cfg.BlockSize, lz4stream.DefaultBlockSize)
	}
	if cfg.Threads != lz4stream.DefaultThreads {
		t.Errorf("Threads = %d, want %d", cfg.Threads, lz4stream.DefaultThreads)
	}
}

func TestLoadOverridesFromEnvironment(t *testing.T) {
	t.Setenv("LZ4PACK_LEVEL", "9")
	t.Setenv("LZ4PACK_BLOCK_SIZE", "1m")
	t.Setenv("LZ4PACK_THREADS", "8")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Level != 9 {
		t.Errorf("Level = %d, want 9", cfg.Level)
	}
	if cfg.BlockSize != lz4stream.BlockSize1MB {
		t.Errorf("BlockSize = %d, want BlockSize1MB", cfg.BlockSize)
	}
	if cfg.Threads != 8 {
		t.Errorf("Threads = %d, want 8", cfg.Threads)
	}
}

func TestLoadRejectsBadLevel(t *testing.T) {
	t.Setenv("LZ4PACK_LEVEL", "not-a-number")
	if _, err := Load(); err == nil {
		t.Fatalf("expected an error for a non-numeric LZ4PACK_LEVEL")
	}
}

func TestParseBlockSizeAcceptsRawID(t *testing.T) {
	id, err := parseBlockSize("7")
	if err != nil {
		t.Fatalf("parseBlockSize: %v", err)
	}
	if id != lz4stream.BlockSize4MB {
		t.Errorf("id = %d, want BlockSize4MB", id)
	}
}

func TestParseBlockSizeRejectsUnknownID(t *testing.T) {
	if _, err := parseBlockSize("9"); err == nil {
		t.Fatalf("expected an error for an out-of-range block-size id")
	}
}
