// Membrowse analyzes compiled ELF firmware against GNU linker scripts and
// reports how every byte maps onto the target's memory regions, sections
// and symbols.
//
// Usage:
//
//	membrowse analyze <elf> [linker-script...] [flags]
//
// See 'membrowse --help' for available commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/membrowse/membrowse/internal/analysis"
	"github.com/membrowse/membrowse/internal/ldscript"
	"github.com/membrowse/membrowse/internal/logging"
	"github.com/membrowse/membrowse/internal/version"
)

// Exit codes form a stable contract for CI pipelines.
const (
	exitOK          = 0
	exitFailure     = 1
	exitInvalidArgs = 2
	exitELFError    = 3
	exitLinkerError = 4
	exitDwarfError  = 5
	exitCancelled   = 130
)

// invalidArgsError marks argument and flag errors for exit-code mapping.
type invalidArgsError struct {
	err error
}

func (e *invalidArgsError) Error() string { return e.err.Error() }
func (e *invalidArgsError) Unwrap() error { return e.err }

func main() {
	if err := logging.InitializeFromEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitFailure)
	}
	defer logging.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps the error taxonomy onto the CLI exit codes.
func exitCode(err error) int {
	var (
		invalidArgs *invalidArgsError
		elfErr      *analysis.ELFFormatError
		parseErr    *ldscript.ParseError
		evalErr     *ldscript.EvalError
		dwarfErr    *analysis.DwarfError
		cancelled   *analysis.CancelledError
	)
	switch {
	case errors.As(err, &invalidArgs):
		return exitInvalidArgs
	case errors.As(err, &elfErr):
		return exitELFError
	case errors.As(err, &parseErr), errors.As(err, &evalErr):
		return exitLinkerError
	case errors.As(err, &dwarfErr):
		return exitDwarfError
	case errors.As(err, &cancelled), errors.Is(err, context.Canceled):
		return exitCancelled
	}
	return exitFailure
}

var rootCmd = &cobra.Command{
	Use:   "membrowse",
	Short: "Firmware memory usage analyzer",
	Long: `MemBrowse analyzes a compiled ELF binary together with its GNU linker
scripts and attributes every byte to a memory region, an ELF section and,
where debug information permits, a symbol and its source file.

The JSON report is the substrate for firmware size regression tracking in
CI pipelines; the human output gives a quick memory-layout summary.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &invalidArgsError{err: err}
	})

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(analyzeCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("membrowse %s (commit: %s)\n", version.Version, version.Commit)
	},
}
