package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lz4pack/lz4pack/app/core/lz4stream"
)

var (
	compressLevel     int
	compressBlockSize string
	compressThreads   int
)

var compressCmd = &cobra.Command{
	Use:   "compress <input> <output>",
	Short: "Compress a file into a block-parallel lz4pack stream",
	Args:  cobra.ExactArgs(2),
	RunE: guarded("compress", func(cmd *cobra.Command, args []string) error {
		id := runID()
		log := logger(id, "compress")

		if activeConfig != nil {
			if !cmd.Flags().Changed("level") {
				compressLevel = activeConfig.Level
			}
			if !cmd.Flags().Changed("threads") {
				compressThreads = activeConfig.Threads
			}
		}

		blockSize, err := resolveBlockSize(compressBlockSize)
		if err != nil {
			return err
		}
		if activeConfig != nil && !cmd.Flags().Changed("block-size") {
			blockSize = activeConfig.BlockSize
		}

		in, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("compress: %w", err)
		}
		defer in.Close()

		out, err := lz4stream.OpenWrite(args[1], compressLevel, blockSize, compressThreads)
		if err != nil {
			return fmt.Errorf("compress: %w", err)
		}

		log.Info("compressing", "input", args[0], "output", args[1],
			"level", compressLevel, "block_size", blockSize, "threads", compressThreads)

		if _, err := io.Copy(out, in); err != nil {
			_ = out.Close()
			return fmt.Errorf("compress: %w", err)
		}

		if err := out.Close(); err != nil {
			return fmt.Errorf("compress: %w", err)
		}

		log.Info("done", "ratio_pct", out.Ratio())
		return nil
	}),
}

func resolveBlockSize(v string) (lz4stream.BlockSizeID, error) {
	switch v {
	case "64k", "64K", "64KiB":
		return lz4stream.BlockSize64KB, nil
	case "256k", "256K", "256KiB":
		return lz4stream.BlockSize256KB, nil
	case "1m", "1M", "1MiB":
		return lz4stream.BlockSize1MB, nil
	case "4m", "4M", "4MiB":
		return lz4stream.BlockSize4MB, nil
	default:
		return 0, fmt.Errorf("compress: unknown --block-size %q (want 64k, 256k, 1m or 4m)", v)
	}
}

func init() {
	compressCmd.Flags().IntVar(&compressLevel, "level", lz4stream.DefaultLevel, "compression level (1 = fast, 3-16 = high-compression)")
	compressCmd.Flags().StringVar(&compressBlockSize, "block-size", "256k", "block size: 64k, 256k, 1m or 4m")
	compressCmd.Flags().IntVar(&compressThreads, "threads", lz4stream.DefaultThreads, "number of worker goroutines")
	rootCmd.AddCommand(compressCmd)
}
