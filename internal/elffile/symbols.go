package elffile

import (
	"debug/elf"
	"errors"
	"sort"
	"strings"

	"github.com/ianlancetaylor/demangle"
)

// Symbol is one named, address-bearing entity from the symbol table.
type Symbol struct {
	Name      string
	Demangled string // "" when the name does not demangle
	Address   uint64
	Size      uint64
	Kind      string // FUNC, OBJECT, TLS, OTHER
	Binding   string // LOCAL, GLOBAL, WEAK
	Section   string

	// SourceFile/SourceLine come from the DWARF source resolver; Region
	// from the region mapper. Zero values mean unknown.
	SourceFile string
	SourceLine uint32
	Region     string
}

// ScanSymbols enumerates the symbol table, filtered to real, sized symbols.
// Mapping symbols ("$t", "$d" on ARM), section and file entries, and
// unnamed locals are dropped. FUNC and OBJECT symbols with known addresses
// are retained even at size zero for reference; they never contribute to
// used totals. The result is deduplicated on (address, name) and sorted by
// (address, name) for determinism.
func ScanSymbols(f *elf.File) ([]*Symbol, error) {
	syms, err := f.Symbols()
	if err != nil {
		if errors.Is(err, elf.ErrNoSymbols) {
			return nil, nil
		}
		return nil, err
	}

	type symKey struct {
		addr uint64
		name string
	}
	seen := make(map[symKey]bool, len(syms))
	var out []*Symbol

	for _, sym := range syms {
		if !keepSymbol(sym) {
			continue
		}
		key := symKey{sym.Value, sym.Name}
		if seen[key] {
			continue
		}
		seen[key] = true

		out = append(out, &Symbol{
			Name:      sym.Name,
			Demangled: demangleName(sym.Name),
			Address:   sym.Value,
			Size:      sym.Size,
			Kind:      symbolKind(elf.ST_TYPE(sym.Info)),
			Binding:   symbolBinding(elf.ST_BIND(sym.Info)),
			Section:   sectionNameFor(f, sym.Section),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Address != out[j].Address {
			return out[i].Address < out[j].Address
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func keepSymbol(sym elf.Symbol) bool {
	if sym.Name == "" || strings.HasPrefix(sym.Name, "$") {
		return false
	}
	typ := elf.ST_TYPE(sym.Info)
	switch typ {
	case elf.STT_SECTION, elf.STT_FILE:
		return false
	}
	// Local convenience labels with neither size nor a real type carry no
	// accounting value.
	if elf.ST_BIND(sym.Info) == elf.STB_LOCAL && sym.Size == 0 &&
		typ != elf.STT_FUNC && typ != elf.STT_OBJECT {
		return false
	}
	return true
}

func symbolKind(t elf.SymType) string {
	switch t {
	case elf.STT_FUNC:
		return "FUNC"
	case elf.STT_OBJECT:
		return "OBJECT"
	case elf.STT_TLS:
		return "TLS"
	case elf.STT_SECTION:
		return "SECTION"
	case elf.STT_FILE:
		return "FILE"
	}
	return "OTHER"
}

func symbolBinding(b elf.SymBind) string {
	switch b {
	case elf.STB_LOCAL:
		return "LOCAL"
	case elf.STB_WEAK:
		return "WEAK"
	}
	return "GLOBAL"
}

func sectionNameFor(f *elf.File, idx elf.SectionIndex) string {
	if int(idx) <= 0 || int(idx) >= len(f.Sections) {
		return ""
	}
	return f.Sections[idx].Name
}

// demangleName returns the demangled form of a C++ or Rust symbol name, or
// "" when the name is not mangled.
func demangleName(name string) string {
	d, err := demangle.ToString(name)
	if err != nil || d == name {
		return ""
	}
	return d
}
