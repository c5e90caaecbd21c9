package analysis

import (
	"bytes"
	"context"
	"crypto/sha256"
	"debug/elf"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/membrowse/membrowse/internal/dwarfinfo"
	"github.com/membrowse/membrowse/internal/elffile"
	"github.com/membrowse/membrowse/internal/ldscript"
	"github.com/membrowse/membrowse/internal/logging"
)

// Options parameterize a single analysis call.
type Options struct {
	// VarOverrides supplies values for linker symbols defined outside the
	// scripts (CLI --def, config linker_vars), already parsed to numbers.
	VarOverrides map[string]int64
	// SkipLineProgram disables the DWARF line-program resolution tier.
	SkipLineProgram bool
	// Now supplies the report timestamp; defaults to time.Now. Pinning it
	// makes repeated runs byte-identical.
	Now func() time.Time
}

// AnalysisContext carries everything one analyze call accumulates. All
// state is per-call; nothing is shared between invocations, which keeps
// hundreds of back-to-back calls in one process independent.
type AnalysisContext struct {
	ELFPath     string
	ELFData     []byte
	File        *elf.File
	Arch        elffile.Architecture
	Regions     []*ldscript.Region
	Sections    []*elffile.Section
	Symbols     []*elffile.Symbol
	DwarfInfo   *dwarfinfo.Info
	Warnings    []string
	AutoRegions bool
}

// Analyze runs the full pipeline over one ELF binary and its linker
// scripts and returns the finished report. The context is checked between
// pipeline stages and at compilation-unit boundaries; cancellation
// surfaces as *CancelledError with no partial output.
func Analyze(ctx context.Context, elfPath string, scriptPaths []string, opts Options) (*Report, error) {
	log := logging.GetLogger()
	start := time.Now()

	ac := &AnalysisContext{ELFPath: elfPath}
	if err := checkCancel(ctx); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(elfPath)
	if err != nil {
		return nil, &ELFFormatError{Path: elfPath, Err: err}
	}
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, &ELFFormatError{Path: elfPath, Err: err}
	}
	ac.ELFData = data
	ac.File = f
	ac.Arch = elffile.DetectArch(f)
	log.Debug("ELF loaded",
		zap.String("path", elfPath),
		zap.String("arch", string(ac.Arch)),
		zap.Int("bytes", len(data)))

	if err := checkCancel(ctx); err != nil {
		return nil, err
	}
	if err := resolveRegions(ac, scriptPaths, opts); err != nil {
		return nil, err
	}

	ac.Sections = elffile.ScanSections(f)
	ac.Symbols, err = elffile.ScanSymbols(f)
	if err != nil {
		return nil, &ELFFormatError{Path: elfPath, Err: err}
	}
	log.Debug("ELF scanned",
		zap.Int("sections", len(ac.Sections)),
		zap.Int("symbols", len(ac.Symbols)))

	if len(ac.Regions) == 0 {
		ac.Regions = defaultRegions(ac.Sections)
		ac.AutoRegions = true
		if len(scriptPaths) > 0 {
			ac.Warnings = append(ac.Warnings,
				"no memory regions found in linker scripts, synthesized Code/Data regions")
		}
	}

	if err := checkCancel(ctx); err != nil {
		return nil, err
	}
	info, err := dwarfinfo.Process(ctx, f, dwarfinfo.Options{SkipLineProgram: opts.SkipLineProgram}, log)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &CancelledError{Err: ctx.Err()}
		}
		return nil, &DwarfError{Err: err}
	}
	ac.DwarfInfo = info

	resolver := dwarfinfo.NewResolver(info)
	for _, sym := range ac.Symbols {
		sym.SourceFile, sym.SourceLine = resolver.Resolve(sym.Name, sym.Address)
	}

	if err := checkCancel(ctx); err != nil {
		return nil, err
	}
	mapSections(ac.Sections, ac.Regions)
	mapSymbols(ac.Symbols, ac.Regions)
	usage := rollUp(ac.Regions, ac.Sections)

	sortForReport(ac.Sections, ac.Symbols)

	sum := sha256.Sum256(data)
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	report := &Report{
		Architecture: ac.Arch,
		Regions:      usage,
		Sections:     ac.Sections,
		Symbols:      ac.Symbols,
		Units:        info.CUs,
		Warnings:     ac.Warnings,
		ELFSHA256:    hex.EncodeToString(sum[:]),
		AnalyzedAt:   now().UTC(),
	}
	logging.LogAnalysis(elfPath, len(ac.Sections), len(ac.Symbols), time.Since(start))
	return report, nil
}

// resolveRegions parses and executes the linker scripts, or leaves the
// region list empty for the default fallback.
func resolveRegions(ac *AnalysisContext, scriptPaths []string, opts Options) error {
	if len(scriptPaths) == 0 {
		return nil
	}
	var scripts []*ldscript.Script
	for _, path := range scriptPaths {
		src, err := os.ReadFile(path)
		if err != nil {
			return &ldscript.ParseError{
				Pos: ldscript.Pos{File: path},
				Msg: fmt.Sprintf("cannot read linker script: %v", err),
			}
		}
		script, warnings, err := ldscript.Parse(path, string(src))
		if err != nil {
			return err
		}
		for _, w := range warnings {
			ac.Warnings = append(ac.Warnings, w.String())
		}
		scripts = append(scripts, script)
	}

	result, err := ldscript.Execute(scripts, ldscript.ExecOptions{
		ArchDefaults: elffile.DefaultVars(ac.Arch),
		Overrides:    opts.VarOverrides,
	})
	if err != nil {
		return err
	}
	for _, w := range result.Warnings {
		ac.Warnings = append(ac.Warnings, w.String())
	}
	ac.Regions = result.Regions
	for _, r := range ac.Regions {
		logging.LogRegion(r.Name, r.Origin, r.Length, r.Attrs)
	}
	return nil
}

// sortForReport orders sections and symbols by (region, address, name),
// regionless entries last, for stable output.
func sortForReport(sections []*elffile.Section, symbols []*elffile.Symbol) {
	regionLess := func(a, b string) (bool, bool) {
		if a == b {
			return false, false
		}
		if a == "" {
			return false, true
		}
		if b == "" {
			return true, true
		}
		return a < b, true
	}
	sort.SliceStable(sections, func(i, j int) bool {
		if less, decided := regionLess(sections[i].Region, sections[j].Region); decided {
			return less
		}
		if sections[i].Address != sections[j].Address {
			return sections[i].Address < sections[j].Address
		}
		return sections[i].Name < sections[j].Name
	})
	sort.SliceStable(symbols, func(i, j int) bool {
		if less, decided := regionLess(symbols[i].Region, symbols[j].Region); decided {
			return less
		}
		if symbols[i].Address != symbols[j].Address {
			return symbols[i].Address < symbols[j].Address
		}
		return symbols[i].Name < symbols[j].Name
	})
}

func checkCancel(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &CancelledError{Err: err}
	}
	return nil
}
