package ldscript

import (
	"errors"
	"strings"
	"testing"
)

func mustParse(t *testing.T, file, src string) *Script {
	t.Helper()
	script, _, err := Parse(file, src)
	if err != nil {
		t.Fatalf("Parse(%s) error = %v", file, err)
	}
	return script
}

func execute(t *testing.T, opts ExecOptions, srcs ...string) *Result {
	t.Helper()
	var scripts []*Script
	for _, src := range srcs {
		scripts = append(scripts, mustParse(t, "test.ld", src))
	}
	result, err := Execute(scripts, opts)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	return result
}

func TestExecuteSimpleRegions(t *testing.T) {
	result := execute(t, ExecOptions{}, `
MEMORY
{
  FLASH (rx)  : ORIGIN = 0x08000000, LENGTH = 512K
  RAM (rwx)   : ORIGIN = 0x20000000, LENGTH = 128K
}
`)
	if len(result.Regions) != 2 {
		t.Fatalf("got %d regions, want 2", len(result.Regions))
	}
	flash := result.Regions[0]
	if flash.Name != "FLASH" || flash.Origin != 0x08000000 || flash.Length != 512*1024 {
		t.Errorf("FLASH = %+v", flash)
	}
	if flash.Attrs != "rx" || flash.Kind != KindFlash {
		t.Errorf("FLASH attrs/kind = %q/%s", flash.Attrs, flash.Kind)
	}
	ram := result.Regions[1]
	if ram.Origin != 0x20000000 || ram.Length != 128*1024 {
		t.Errorf("RAM = %+v", ram)
	}
	if !ram.Writable() {
		t.Error("RAM not writable")
	}
	if flash.Writable() {
		t.Error("FLASH writable")
	}
}

func TestExecuteVariablesAndExpressions(t *testing.T) {
	result := execute(t, ExecOptions{}, `
_flash_origin = 0x08000000;
_app_offset = 32K;
MEMORY
{
  BOOT (rx) : ORIGIN = _flash_origin, LENGTH = _app_offset
  APP (rx)  : ORIGIN = _flash_origin + _app_offset, LENGTH = 512K - _app_offset
}
`)
	app := result.Regions[1]
	if app.Origin != 0x08000000+32*1024 {
		t.Errorf("APP.Origin = %#x", app.Origin)
	}
	if app.Length != 512*1024-32*1024 {
		t.Errorf("APP.Length = %d", app.Length)
	}
}

func TestExecuteForwardReference(t *testing.T) {
	// RAM is declared before the symbol it uses is assigned, and SRAM2
	// depends on RAM via ORIGIN/LENGTH. Both settle in the fixpoint.
	result := execute(t, ExecOptions{}, `
MEMORY
{
  SRAM2 (rwx) : ORIGIN = ORIGIN(RAM) + LENGTH(RAM), LENGTH = 16K
  RAM (rwx)   : ORIGIN = 0x20000000, LENGTH = _ram_size
}
_ram_size = 64K;
`)
	if len(result.Regions) != 2 {
		t.Fatalf("got %d regions, want 2", len(result.Regions))
	}
	sram2 := result.Regions[0]
	if sram2.Name != "SRAM2" {
		t.Fatalf("regions[0] = %s, want SRAM2 (declaration order)", sram2.Name)
	}
	if sram2.Origin != 0x20000000+64*1024 {
		t.Errorf("SRAM2.Origin = %#x", sram2.Origin)
	}
}

func TestExecuteDefinedConditional(t *testing.T) {
	src := `
MEMORY
{
  FLASH (rx) : ORIGIN = 0x08000000, LENGTH = DEFINED(_flash_size) ? _flash_size : 1M
}
`
	// Without a binding the DEFINED() branch falls back.
	result := execute(t, ExecOptions{}, src)
	if result.Regions[0].Length != 1024*1024 {
		t.Errorf("fallback LENGTH = %d, want 1M", result.Regions[0].Length)
	}

	// An override makes DEFINED() true without any script assignment.
	result = execute(t, ExecOptions{Overrides: map[string]int64{"_flash_size": 2 * 1024 * 1024}}, src)
	if result.Regions[0].Length != 2*1024*1024 {
		t.Errorf("override LENGTH = %d, want 2M", result.Regions[0].Length)
	}
}

func TestExecuteUndefinedSymbolFails(t *testing.T) {
	src := `
MEMORY
{
  FLASH (rx) : ORIGIN = 0x08000000, LENGTH = __flash_size__
}
`
	script := mustParse(t, "board.ld", src)
	_, err := Execute([]*Script{script}, ExecOptions{})
	var evalErr *EvalError
	if !errors.As(err, &evalErr) {
		t.Fatalf("Execute() error = %v, want *EvalError", err)
	}
	if evalErr.Symbol != "__flash_size__" {
		t.Errorf("EvalError.Symbol = %q, want __flash_size__", evalErr.Symbol)
	}
	if evalErr.Pos.File != "board.ld" {
		t.Errorf("EvalError.Pos.File = %q, want board.ld", evalErr.Pos.File)
	}
}

func TestExecuteOverrideResolvesUndefined(t *testing.T) {
	// The scenario behind CLI --def __flash_size__=4096K.
	result := execute(t, ExecOptions{Overrides: map[string]int64{"__flash_size__": 4096 * 1024}}, `
MEMORY
{
  FLASH (rx) : ORIGIN = 0x08000000, LENGTH = __flash_size__
}
`)
	if result.Regions[0].Length != 4194304 {
		t.Errorf("FLASH.Length = %d, want 4194304", result.Regions[0].Length)
	}
}

func TestExecuteDuplicateRegionLastWins(t *testing.T) {
	result := execute(t, ExecOptions{}, `
MEMORY { FLASH (rx) : ORIGIN = 0x08000000, LENGTH = 512K }
`, `
MEMORY { FLASH (rx) : ORIGIN = 0x08000000, LENGTH = 1M }
`)
	if len(result.Regions) != 1 {
		t.Fatalf("got %d regions, want 1", len(result.Regions))
	}
	if result.Regions[0].Length != 1024*1024 {
		t.Errorf("FLASH.Length = %d, want 1M (last declaration)", result.Regions[0].Length)
	}
	if !hasWarning(result.Warnings, "duplicate memory region") {
		t.Errorf("no duplicate-region warning in %v", result.Warnings)
	}
}

func TestExecuteMultiScriptEnvironment(t *testing.T) {
	// Assignments from an earlier script are visible to a later one.
	result := execute(t, ExecOptions{}, `
_sd_size = 0x26000;
`, `
MEMORY
{
  FLASH_APP (rx) : ORIGIN = 0x0 + _sd_size, LENGTH = 1M - _sd_size
}
`)
	if result.Regions[0].Origin != 0x26000 {
		t.Errorf("FLASH_APP.Origin = %#x, want 0x26000", result.Regions[0].Origin)
	}
}

func TestExecuteHierarchy(t *testing.T) {
	result := execute(t, ExecOptions{}, `
MEMORY
{
  FLASH (rx)      : ORIGIN = 0x08000000, LENGTH = 1M
  FLASH_BOOT (rx) : ORIGIN = 0x08000000, LENGTH = 32K
  FLASH_APP (rx)  : ORIGIN = 0x08008000, LENGTH = 992K
  RAM (rwx)       : ORIGIN = 0x20000000, LENGTH = 128K
}
`)
	byName := map[string]*Region{}
	for _, r := range result.Regions {
		byName[r.Name] = r
	}
	if byName["FLASH_BOOT"].Parent != "FLASH" {
		t.Errorf("FLASH_BOOT.Parent = %q, want FLASH", byName["FLASH_BOOT"].Parent)
	}
	if byName["FLASH_APP"].Parent != "FLASH" {
		t.Errorf("FLASH_APP.Parent = %q, want FLASH", byName["FLASH_APP"].Parent)
	}
	if byName["RAM"].Parent != "" {
		t.Errorf("RAM.Parent = %q, want none", byName["RAM"].Parent)
	}
}

func TestExecuteOverlapWarning(t *testing.T) {
	result := execute(t, ExecOptions{}, `
MEMORY
{
  ALPHA (rx) : ORIGIN = 0x1000, LENGTH = 0x1000
  BETA (rw)  : ORIGIN = 0x1800, LENGTH = 0x1000
}
`)
	if !hasWarning(result.Warnings, "overlap") {
		t.Errorf("no overlap warning in %v", result.Warnings)
	}
}

func TestExecuteZeroLengthDropped(t *testing.T) {
	result := execute(t, ExecOptions{}, `
MEMORY
{
  EMPTY (rx) : ORIGIN = 0x1000, LENGTH = 0
  REAL (rx)  : ORIGIN = 0x2000, LENGTH = 4K
}
`)
	if len(result.Regions) != 1 || result.Regions[0].Name != "REAL" {
		t.Fatalf("regions = %+v, want only REAL", result.Regions)
	}
	if !hasWarning(result.Warnings, "zero length") {
		t.Errorf("no zero-length warning in %v", result.Warnings)
	}
}

func TestExecuteSectionsExpressionSupport(t *testing.T) {
	result := execute(t, ExecOptions{}, `
MEMORY
{
  FLASH (rx) : ORIGIN = 0x08000000, LENGTH = 512K
  RAM (rwx)  : ORIGIN = 0x20000000, LENGTH = 128K
}
SECTIONS
{
  .text : { *(.text*) } > FLASH
  .data : { _sdata = .; } > RAM AT> FLASH
  _stack_top = ORIGIN(RAM) + LENGTH(RAM);
}
`)
	top, ok := result.Env.Lookup("_stack_top")
	if !ok {
		t.Fatal("_stack_top not bound by pass 2")
	}
	if top != 0x20000000+128*1024 {
		t.Errorf("_stack_top = %#x", top)
	}
	sdata, ok := result.Env.Lookup("_sdata")
	if !ok {
		t.Fatal("_sdata not bound inside .data body")
	}
	if sdata != 0x20000000 {
		t.Errorf("_sdata = %#x, want RAM origin", sdata)
	}
}

func TestExecuteArchDefaults(t *testing.T) {
	result := execute(t, ExecOptions{
		ArchDefaults: map[string]int64{"_sd_size": 0x26000},
	}, `
MEMORY
{
  FLASH (rx) : ORIGIN = _sd_size, LENGTH = 1M
}
`)
	if result.Regions[0].Origin != 0x26000 {
		t.Errorf("Origin = %#x, want arch default 0x26000", result.Regions[0].Origin)
	}
}

func hasWarning(warnings []Warning, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w.Msg, substr) {
			return true
		}
	}
	return false
}
