package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/membrowse/membrowse/internal/analysis"
	"github.com/membrowse/membrowse/internal/browser"
	"github.com/membrowse/membrowse/internal/config"
	"github.com/membrowse/membrowse/internal/ldscript"
	"github.com/membrowse/membrowse/internal/render"
)

// Analyze command flags
var (
	defVars         []string
	skipLineProgram bool
	jsonOutput      bool
	humanOutput     bool
	interactive     bool
	outputPath      string
	configPath      string
)

func init() {
	analyzeCmd.Flags().StringArrayVar(&defVars, "def", nil,
		"Define a linker variable, VAR=VALUE (repeatable; K/M/G suffixes accepted)")
	analyzeCmd.Flags().BoolVar(&skipLineProgram, "skip-line-program", false,
		"Skip the DWARF line program for faster analysis at reduced source coverage")
	analyzeCmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the JSON report (default)")
	analyzeCmd.Flags().BoolVar(&humanOutput, "human", false, "Emit a human-readable memory summary")
	analyzeCmd.Flags().BoolVar(&interactive, "interactive", false, "Browse the report interactively")
	analyzeCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the report to a file instead of stdout")
	analyzeCmd.Flags().StringVar(&configPath, "config", "", "Config file path (default .membrowse.yaml if present)")
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <elf> [linker-script...]",
	Short: "Analyze an ELF binary's memory usage",
	Long: `Analyze a compiled ELF binary against zero or more GNU linker scripts.

Linker scripts supply the MEMORY regions every section is attributed to.
Without scripts, synthetic Code and Data regions are derived from the
binary's allocated sections. Symbols are mapped to their definition source
files using DWARF debug information when present.`,
	Example: `  # JSON report for CI
  membrowse analyze firmware.elf boards/stm32f4/flash.ld

  # Linker variable supplied outside the scripts
  membrowse analyze firmware.elf flash.ld --def __flash_size__=4096K

  # Quick terminal summary
  membrowse analyze firmware.elf flash.ld --human

  # Faster analysis without the DWARF line program
  membrowse analyze firmware.elf flash.ld --skip-line-program`,
	Args: cobra.ArbitraryArgs,
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if len(args) < 1 {
		return &invalidArgsError{err: fmt.Errorf("an ELF file argument is required")}
	}
	if jsonOutput && humanOutput {
		return &invalidArgsError{err: fmt.Errorf("--json and --human are mutually exclusive")}
	}
	elfPath := args[0]
	scripts := args[1:]

	cfg, err := config.Load(configPath)
	if err != nil {
		return &invalidArgsError{err: err}
	}
	if len(scripts) == 0 {
		scripts = cfg.LinkerScripts
	}

	overrides, err := buildOverrides(cfg.LinkerVars, defVars)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := analysis.Analyze(ctx, elfPath, scripts, analysis.Options{
		VarOverrides:    overrides,
		SkipLineProgram: skipLineProgram || cfg.SkipLineProgram,
	})
	if err != nil {
		return err
	}

	if interactive {
		return browser.Run(report, elfPath)
	}

	var out []byte
	if humanOutput {
		out = []byte(render.Human(report, elfPath))
	} else {
		out, err = report.JSON()
		if err != nil {
			return err
		}
		out = append(out, '\n')
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, out, 0644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		return nil
	}
	_, err = os.Stdout.Write(out)
	return err
}

// buildOverrides merges config linker_vars with --def flags; a flag wins
// over a config entry of the same name.
func buildOverrides(fromConfig map[string]string, fromFlags []string) (map[string]int64, error) {
	overrides := make(map[string]int64)

	for name, value := range fromConfig {
		v, err := ldscript.ParseValue(value)
		if err != nil {
			return nil, &invalidArgsError{
				err: fmt.Errorf("invalid linker_vars value %s=%s: %w", name, value, err)}
		}
		overrides[name] = v
	}

	for _, def := range fromFlags {
		name, value, ok := strings.Cut(def, "=")
		if !ok || name == "" {
			return nil, &invalidArgsError{
				err: fmt.Errorf("invalid --def %q, expected VAR=VALUE", def)}
		}
		v, err := ldscript.ParseValue(value)
		if err != nil {
			return nil, &invalidArgsError{
				err: fmt.Errorf("invalid --def value %q: %w", def, err)}
		}
		overrides[name] = v
	}

	if len(overrides) == 0 {
		return nil, nil
	}
	return overrides, nil
}
