package dwarfinfo

import (
	"debug/dwarf"
	"path"
	"strings"
)

// CompilationUnit describes one DWARF compile unit.
type CompilationUnit struct {
	Name     string
	CompDir  string
	Producer string
	Language string
	LowPC    uint64
	HighPC   uint64
	HasRange bool

	// Files is the unit's file table with original DWARF indices
	// preserved: entry 0 is empty for DWARF v2-v4 (1-based tables) and
	// meaningful for v5 (0-based). Entries hold the first-seen original
	// spelling of each logical file.
	Files []string

	Index  int
	Offset dwarf.Offset
}

// Covers reports whether the unit's PC range contains addr.
func (cu *CompilationUnit) Covers(addr uint64) bool {
	return cu.HasRange && addr >= cu.LowPC && addr < cu.HighPC
}

// FileAt resolves a DW_AT_decl_file index in this unit's table. The index
// is always interpreted against the table of the unit the DIE belongs to;
// tables are never flattened across units.
func (cu *CompilationUnit) FileAt(idx int64) string {
	if idx < 0 || idx >= int64(len(cu.Files)) {
		return ""
	}
	return cu.Files[idx]
}

// fileDedup canonicalizes file-table spellings across the whole binary.
// Compiler-emitted tables routinely repeat one logical file with differing
// case, directory prefix or trailing slash; entries are keyed by the
// comp_dir-absolute, lowercased posix form while the first-seen original
// spelling is what reports carry.
type fileDedup struct {
	byNorm map[string]string
}

func newFileDedup() *fileDedup {
	return &fileDedup{byNorm: make(map[string]string)}
}

func (d *fileDedup) canonical(compDir, name string) string {
	if name == "" {
		return ""
	}
	full := name
	if !path.IsAbs(full) && compDir != "" {
		full = path.Join(compDir, full)
	}
	norm := strings.ToLower(path.Clean(strings.ReplaceAll(full, "\\", "/")))
	if orig, ok := d.byNorm[norm]; ok {
		return orig
	}
	d.byNorm[norm] = name
	return name
}

// languageName maps a DW_LANG code to a readable name.
func languageName(code int64) string {
	switch code {
	case 0x01, 0x02, 0x0c, 0x1d, 0x2c:
		return "C"
	case 0x04, 0x19, 0x1a, 0x21, 0x2a, 0x2b:
		return "C++"
	case 0x1c:
		return "Rust"
	case 0x16:
		return "Go"
	case 0x07, 0x08, 0x0e, 0x22, 0x23:
		return "Fortran"
	case 0x8001:
		return "Assembly"
	default:
		if code == 0 {
			return ""
		}
		return "other"
	}
}
