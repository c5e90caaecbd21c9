package analysis

import (
	"math"
	"testing"

	"github.com/membrowse/membrowse/internal/elffile"
	"github.com/membrowse/membrowse/internal/ldscript"
)

func stm32Regions() []*ldscript.Region {
	return []*ldscript.Region{
		{Name: "FLASH", Origin: 0x08000000, Length: 512 * 1024, Attrs: "rx",
			Kind: ldscript.KindFlash, Index: 0},
		{Name: "RAM", Origin: 0x20000000, Length: 128 * 1024, Attrs: "rwx",
			Kind: ldscript.KindRAM, Index: 1},
	}
}

func simpleProgramSections() []*elffile.Section {
	return []*elffile.Section{
		{Name: ".text", Address: 0x08000100, Size: 300, Type: "PROGBITS",
			Flags: []string{"ALLOC", "EXEC"}},
		{Name: ".rodata", Address: 0x08010000, Size: 64, Type: "PROGBITS",
			Flags: []string{"ALLOC"}},
		{Name: ".data", Address: 0x20000000, Size: 32, Type: "PROGBITS",
			Flags: []string{"ALLOC", "WRITE"}},
		{Name: ".bss", Address: 0x20000020, Size: 1024, Type: "NOBITS",
			Flags: []string{"ALLOC", "WRITE"}},
	}
}

func TestMapAndRollUpSimpleProgram(t *testing.T) {
	regions := stm32Regions()
	sections := simpleProgramSections()

	mapSections(sections, regions)
	usage := rollUp(regions, sections)

	if len(usage) != 2 {
		t.Fatalf("got %d usage entries, want 2", len(usage))
	}

	flash := usage[0]
	if flash.Region.Name != "FLASH" {
		t.Fatalf("usage[0] = %s, want FLASH", flash.Region.Name)
	}
	if flash.Used != 364 {
		t.Errorf("FLASH.Used = %d, want 364", flash.Used)
	}
	if math.Abs(flash.Utilization-0.0694) > 0.01 {
		t.Errorf("FLASH.Utilization = %f, want ~0.07", flash.Utilization)
	}
	wantSections := []string{".text", ".rodata"}
	for i, name := range wantSections {
		if flash.Sections[i] != name {
			t.Errorf("FLASH.Sections[%d] = %s, want %s", i, flash.Sections[i], name)
		}
	}

	ram := usage[1]
	if ram.Used != 1056 {
		t.Errorf("RAM.Used = %d, want 1056", ram.Used)
	}
	if math.Abs(ram.Utilization-0.8057) > 0.01 {
		t.Errorf("RAM.Utilization = %f, want ~0.81", ram.Utilization)
	}

	for _, sec := range sections {
		switch sec.Name {
		case ".text", ".rodata":
			if sec.Region != "FLASH" {
				t.Errorf("%s.Region = %q, want FLASH", sec.Name, sec.Region)
			}
		case ".data", ".bss":
			if sec.Region != "RAM" {
				t.Errorf("%s.Region = %q, want RAM", sec.Name, sec.Region)
			}
		}
	}
}

func TestMapNOBITSExcludedFromROM(t *testing.T) {
	// A NOBITS section whose load address lands in a read-only region
	// (the AT> case) occupies no device storage there.
	regions := stm32Regions()
	sections := []*elffile.Section{
		{Name: ".noinit", Address: 0x08020000, Size: 2048, Type: "NOBITS",
			Flags: []string{"ALLOC", "WRITE"}},
	}

	mapSections(sections, regions)
	if sections[0].Region != "FLASH" {
		t.Fatalf(".noinit region = %q, want FLASH", sections[0].Region)
	}
	if sections[0].SizeOnDevice != 0 {
		t.Errorf(".noinit SizeOnDevice = %d, want 0 in non-writable region", sections[0].SizeOnDevice)
	}

	usage := rollUp(regions, sections)
	if usage[0].Used != 0 {
		t.Errorf("FLASH.Used = %d, want 0", usage[0].Used)
	}
}

func TestMapMostSpecificRegionWins(t *testing.T) {
	regions := []*ldscript.Region{
		{Name: "FLASH", Origin: 0x08000000, Length: 1024 * 1024, Attrs: "rx", Kind: ldscript.KindFlash},
		{Name: "FLASH_APP", Origin: 0x08008000, Length: 128 * 1024, Attrs: "rx",
			Kind: ldscript.KindFlash, Parent: "FLASH"},
	}
	sections := []*elffile.Section{
		{Name: ".text", Address: 0x08008100, Size: 4096, Type: "PROGBITS",
			Flags: []string{"ALLOC", "EXEC"}},
	}

	mapSections(sections, regions)
	if sections[0].Region != "FLASH_APP" {
		t.Errorf(".text region = %q, want FLASH_APP (most specific)", sections[0].Region)
	}
}

func TestMapUnmappedBucket(t *testing.T) {
	regions := stm32Regions()
	sections := []*elffile.Section{
		{Name: ".ccmram", Address: 0x10000000, Size: 256, Type: "PROGBITS",
			Flags: []string{"ALLOC", "WRITE"}},
	}

	mapSections(sections, regions)
	if sections[0].Region != "" {
		t.Errorf(".ccmram region = %q, want unmapped", sections[0].Region)
	}

	usage := rollUp(regions, sections)
	last := usage[len(usage)-1]
	if last.Region.Name != UnmappedRegion {
		t.Fatalf("last usage = %s, want %s", last.Region.Name, UnmappedRegion)
	}
	if last.Used != 256 {
		t.Errorf("unmapped used = %d, want 256", last.Used)
	}
	if !last.Region.Auto {
		t.Error("unmapped bucket not flagged auto")
	}
}

func TestMapSymbols(t *testing.T) {
	regions := stm32Regions()
	symbols := []*elffile.Symbol{
		{Name: "main", Address: 0x08000120, Size: 100},
		{Name: "heap_start", Address: 0x20001000, Size: 0},
		{Name: "orphan", Address: 0x7000000, Size: 4},
	}

	mapSymbols(symbols, regions)
	if symbols[0].Region != "FLASH" {
		t.Errorf("main region = %q, want FLASH", symbols[0].Region)
	}
	if symbols[1].Region != "RAM" {
		t.Errorf("heap_start region = %q, want RAM", symbols[1].Region)
	}
	if symbols[2].Region != "" {
		t.Errorf("orphan region = %q, want none", symbols[2].Region)
	}
}

func TestRollUpUtilizationBounds(t *testing.T) {
	regions := []*ldscript.Region{
		{Name: "TINY", Origin: 0x0, Length: 16, Attrs: "rwx", Kind: ldscript.KindRAM},
	}
	sections := []*elffile.Section{
		{Name: ".blob", Address: 0x0, Size: 64, Type: "PROGBITS", Flags: []string{"ALLOC"}},
	}

	mapSections(sections, regions)
	usage := rollUp(regions, sections)
	if usage[0].Utilization > 100 {
		t.Errorf("utilization = %f, want clamped to 100", usage[0].Utilization)
	}
}
