package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lz4pack/lz4pack/app/core/lz4stream"
)

var decompressVerifyChecksum bool

var decompressCmd = &cobra.Command{
	Use:   "decompress <input> <output>",
	Short: "Decompress an lz4pack stream back to its original bytes",
	Args:  cobra.ExactArgs(2),
	RunE: guarded("decompress", func(cmd *cobra.Command, args []string) error {
		id := runID()
		log := logger(id, "decompress")

		in, err := lz4stream.OpenRead(args[0], lz4stream.OpenReadOptions{VerifyChecksum: decompressVerifyChecksum})
		if err != nil {
			return fmt.Errorf("decompress: %w", err)
		}
		defer in.Close()

		out, err := os.Create(args[1])
		if err != nil {
			return fmt.Errorf("decompress: %w", err)
		}

		log.Info("decompressing", "input", args[0], "output", args[1], "verify_checksum", decompressVerifyChecksum)

		if _, err := io.Copy(out, in); err != nil {
			_ = out.Close()
			return fmt.Errorf("decompress: %w", err)
		}

		if err := out.Close(); err != nil {
			return fmt.Errorf("decompress: %w", err)
		}

		if err := in.LastError(); err != nil {
			return fmt.Errorf("decompress: %w", err)
		}

		log.Info("done")
		return nil
	}),
}

func init() {
	decompressCmd.Flags().BoolVar(&decompressVerifyChecksum, "verify-checksum", false, "verify the trailing stream checksum while decoding")
	rootCmd.AddCommand(decompressCmd)
}
