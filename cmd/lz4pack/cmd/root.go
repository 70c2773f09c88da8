// Package cmd is the external CLI collaborator spec.md §1 places outside
// the core: argument parsing and usage text live here, calling only
// app/core/lz4stream's open/read/write/close contract.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/lz4pack/lz4pack/app/config"
	"github.com/lz4pack/lz4pack/app/paniclogger"
)

var activeConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "lz4pack",
	Short: "Block-parallel LZ4 file compressor",
	Long: `lz4pack compresses and decompresses files using a block-parallel LZ4
frame format with a trailing seek index.

  lz4pack compress   Compress a file
  lz4pack decompress Decompress a file
  lz4pack detect     Probe a file for the lz4pack frame header
`,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

// Execute runs the CLI with cfg as the environment-resolved defaults.
func Execute(cfg *config.Config) {
	activeConfig = cfg
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// runID gives each invocation a correlation id so concurrent worker log
// lines from a single compress/decompress run can be grepped together.
func runID() string {
	return uuid.NewString()
}

// guarded wraps a subcommand's RunE so a panic in a flag handler or the
// core API surfaces as a returned error instead of a raw stack trace.
func guarded(name string, fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				paniclogger.LogPanic(name, r, stack)
				err = fmt.Errorf("%s: panicked: %v", name, r)
			}
		}()
		return fn(cmd, args)
	}
}

func logger(id, command string) *slog.Logger {
	return slog.Default().With(slog.String("run_id", id), slog.String("command", command))
}
