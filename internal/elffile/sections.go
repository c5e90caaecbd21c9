package elffile

import (
	"debug/elf"
	"strings"
)

// Section is one allocated output section of the binary.
type Section struct {
	Name    string
	Address uint64
	Size    uint64
	Flags   []string
	Type    string

	// Region is the memory region the section was mapped into, "" when
	// unmapped. SizeOnDevice is the section's contribution to that
	// region's used total; both are filled by the region mapper.
	Region       string
	SizeOnDevice uint64
}

// HasFlag reports whether the section carries the named flag.
func (s *Section) HasFlag(name string) bool {
	for _, f := range s.Flags {
		if f == name {
			return true
		}
	}
	return false
}

// ScanSections enumerates the allocated sections of the binary. Sections
// without SHF_ALLOC (debug info, string tables) occupy no target memory
// and are skipped.
func ScanSections(f *elf.File) []*Section {
	var out []*Section
	for _, s := range f.Sections {
		if s.Flags&elf.SHF_ALLOC == 0 {
			continue
		}
		out = append(out, &Section{
			Name:    s.Name,
			Address: s.Addr,
			Size:    s.Size,
			Flags:   sectionFlags(s.Flags),
			Type:    sectionType(s.Type),
		})
	}
	return out
}

func sectionFlags(f elf.SectionFlag) []string {
	var flags []string
	add := func(mask elf.SectionFlag, name string) {
		if f&mask != 0 {
			flags = append(flags, name)
		}
	}
	add(elf.SHF_ALLOC, "ALLOC")
	add(elf.SHF_EXECINSTR, "EXEC")
	add(elf.SHF_WRITE, "WRITE")
	add(elf.SHF_TLS, "TLS")
	add(elf.SHF_MERGE, "MERGE")
	add(elf.SHF_STRINGS, "STRINGS")
	return flags
}

func sectionType(t elf.SectionType) string {
	switch t {
	case elf.SHT_PROGBITS:
		return "PROGBITS"
	case elf.SHT_NOBITS:
		return "NOBITS"
	case elf.SHT_NOTE:
		return "NOTE"
	case elf.SHT_INIT_ARRAY:
		return "INIT_ARRAY"
	case elf.SHT_FINI_ARRAY:
		return "FINI_ARRAY"
	case elf.SHT_PREINIT_ARRAY:
		return "PREINIT_ARRAY"
	case elf.SHT_STRTAB:
		return "STRTAB"
	case elf.SHT_SYMTAB:
		return "SYMTAB"
	case elf.SHT_DYNAMIC:
		return "DYNAMIC"
	case elf.SHT_REL:
		return "REL"
	case elf.SHT_RELA:
		return "RELA"
	case elf.SHT_HASH:
		return "HASH"
	case elf.SHT_DYNSYM:
		return "DYNSYM"
	}
	s := t.String()
	return strings.TrimPrefix(s, "SHT_")
}
