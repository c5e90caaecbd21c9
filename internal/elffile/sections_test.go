package elffile

import (
	"debug/elf"
	"testing"
)

func TestSectionFlags(t *testing.T) {
	flags := sectionFlags(elf.SHF_ALLOC | elf.SHF_EXECINSTR)
	want := []string{"ALLOC", "EXEC"}
	if len(flags) != len(want) {
		t.Fatalf("sectionFlags() = %v, want %v", flags, want)
	}
	for i := range want {
		if flags[i] != want[i] {
			t.Errorf("flags[%d] = %q, want %q", i, flags[i], want[i])
		}
	}

	flags = sectionFlags(elf.SHF_ALLOC | elf.SHF_WRITE | elf.SHF_TLS)
	sec := &Section{Flags: flags}
	if !sec.HasFlag("WRITE") || !sec.HasFlag("TLS") || sec.HasFlag("EXEC") {
		t.Errorf("HasFlag over %v gave wrong answers", flags)
	}
}

func TestSectionType(t *testing.T) {
	tests := []struct {
		typ  elf.SectionType
		want string
	}{
		{elf.SHT_PROGBITS, "PROGBITS"},
		{elf.SHT_NOBITS, "NOBITS"},
		{elf.SHT_NOTE, "NOTE"},
		{elf.SHT_INIT_ARRAY, "INIT_ARRAY"},
		{elf.SHT_STRTAB, "STRTAB"},
	}
	for _, tt := range tests {
		if got := sectionType(tt.typ); got != tt.want {
			t.Errorf("sectionType(%v) = %q, want %q", tt.typ, got, tt.want)
		}
	}
}
