// Package config loads lz4pack's environment-driven defaults the way the
// donor server's main.go does: godotenv.Load() first (best effort), then
// os.Getenv plus strconv for each tunable, falling back to a module-level
// constant when unset.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/lz4pack/lz4pack/app/core/lz4stream"
)

const (
	defaultRootPath = "/lz4pack"
	defaultLogLevel = "info"
)

// Config holds the CLI's overridable defaults. Only the knobs spec.md
// actually exposes (level, block_size, n_threads) get environment
// overrides, plus LZ4PACK_ROOT_PATH for the panic logger and LOG_LEVEL for
// slog.
type Config struct {
	Level     int
	BlockSize lz4stream.BlockSizeID
	Threads   int
	RootPath  string
	LogLevel  string
}

// Load reads .env (if present) and the environment, returning a Config
// seeded with lz4stream's own defaults for anything unset.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Level:     lz4stream.DefaultLevel,
		BlockSize: lz4stream.DefaultBlockSize,
		Threads:   lz4stream.DefaultThreads,
		RootPath:  defaultRootPath,
		LogLevel:  defaultLogLevel,
	}

	if v := os.Getenv("LZ4PACK_LEVEL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("LZ4PACK_LEVEL must be a number: %w", err)
		}
		cfg.Level = n
	}

	if v := os.Getenv("LZ4PACK_BLOCK_SIZE"); v != "" {
		id, err := parseBlockSize(v)
		if err != nil {
			return nil, err
		}
		cfg.BlockSize = id
	}

	if v := os.Getenv("LZ4PACK_THREADS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("LZ4PACK_THREADS must be a number: %w", err)
		}
		cfg.Threads = n
	}

	if v := os.Getenv("LZ4PACK_ROOT_PATH"); v != "" {
		cfg.RootPath = v
	} else {
		_ = os.Setenv("LZ4PACK_ROOT_PATH", cfg.RootPath)
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	return cfg, nil
}

// parseBlockSize accepts either a raw block-size id (4-7) or one of the
// human-readable aliases from spec.md §6's table.
func parseBlockSize(v string) (lz4stream.BlockSizeID, error) {
	switch v {
	case "64k", "64K", "64KiB":
		return lz4stream.BlockSize64KB, nil
	case "256k", "256K", "256KiB":
		return lz4stream.BlockSize256KB, nil
	case "1m", "1M", "1MiB":
		return lz4stream.BlockSize1MB, nil
	case "4m", "4M", "4MiB":
		return lz4stream.BlockSize4MB, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("LZ4PACK_BLOCK_SIZE must be one of 64k,256k,1m,4m or a raw id 4-7: %w", err)
	}
	id := lz4stream.BlockSizeID(n)
	if id.Cap() == 0 {
		return 0, fmt.Errorf("LZ4PACK_BLOCK_SIZE id %d is not one of 4,5,6,7", n)
	}
	return id, nil
}
