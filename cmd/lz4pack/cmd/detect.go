package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lz4pack/lz4pack/app/core/lz4stream"
)

var detectCmd = &cobra.Command{
	Use:   "detect <path>",
	Short: "Probe a file for the lz4pack frame header",
	Args:  cobra.ExactArgs(1),
	RunE: guarded("detect", func(cmd *cobra.Command, args []string) error {
		format, err := lz4stream.DetectFormat(args[0])
		if err != nil {
			return fmt.Errorf("detect: %w", err)
		}

		switch format {
		case lz4stream.FormatLz4:
			fmt.Fprintln(cmd.OutOrStdout(), "Lz4")
		default:
			fmt.Fprintln(cmd.OutOrStdout(), "None")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(detectCmd)
}
