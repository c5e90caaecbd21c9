package ldscript

import (
	"fmt"
	"strings"
)

// RegionKind classifies a memory region for reporting and accounting.
type RegionKind string

const (
	KindFlash   RegionKind = "FLASH"
	KindRAM     RegionKind = "RAM"
	KindROM     RegionKind = "ROM"
	KindEEPROM  RegionKind = "EEPROM"
	KindCCM     RegionKind = "CCM"
	KindBackup  RegionKind = "BACKUP"
	KindUnknown RegionKind = "UNKNOWN"
)

// Region is one canonical memory region extracted from the MEMORY blocks.
type Region struct {
	Name   string
	Origin uint64
	Length uint64
	Attrs  string // normalized attribute letters, e.g. "rwx"
	Parent string // parent region name for hierarchical declarations
	Kind   RegionKind
	Auto   bool // synthesized rather than declared
	Index  int  // declaration order
	Pos    Pos
}

// End returns the first address past the region.
func (r *Region) End() uint64 { return r.Origin + r.Length }

// Contains reports whether addr falls inside the region.
func (r *Region) Contains(addr uint64) bool {
	return addr >= r.Origin && addr < r.End()
}

// Writable reports whether the region carries the write attribute. Regions
// with no attribute string at all (ESP-IDF style) are treated as writable
// when they classify as RAM or cannot be classified (KindUnknown).
func (r *Region) Writable() bool {
	if r.Attrs != "" {
		return strings.Contains(r.Attrs, "w")
	}
	return r.Kind == KindRAM || r.Kind == KindUnknown
}

// normalizeAttrs reduces a raw MEMORY attribute string to its positive
// attribute letters in canonical order. A '!' inverts the sense of the
// letters that follow it, so those are excluded from the set.
func normalizeAttrs(raw string) string {
	present := map[rune]bool{}
	negated := false
	for _, c := range strings.ToLower(raw) {
		switch c {
		case '!':
			negated = true
			continue
		case 'r', 'w', 'x', 'a', 'i', 'l':
			if !negated {
				if c == 'l' {
					c = 'i' // 'l' and 'i' both mark initialized sections
				}
				present[c] = true
			}
		}
	}
	var b strings.Builder
	for _, c := range "rwxai" {
		if present[c] {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// classifyRegion determines the region kind from its name and attributes.
func classifyRegion(name, attrs string) RegionKind {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "eeprom"):
		return KindEEPROM
	case strings.Contains(n, "ccmram") || strings.Contains(n, "ccm"):
		return KindCCM
	case strings.Contains(n, "backup"):
		return KindBackup
	case strings.Contains(n, "flash") || strings.Contains(n, "rom") || strings.Contains(n, "code"):
		if strings.Contains(n, "rom") && !strings.Contains(n, "flash") {
			return KindROM
		}
		return KindFlash
	case strings.Contains(n, "ram") || strings.Contains(n, "sram") ||
		strings.Contains(n, "data") || strings.Contains(n, "heap") ||
		strings.Contains(n, "stack"):
		return KindRAM
	}
	switch {
	case strings.Contains(attrs, "x") && !strings.Contains(attrs, "w"):
		return KindROM
	case strings.Contains(attrs, "w"):
		return KindRAM
	case strings.Contains(attrs, "r"):
		return KindROM
	}
	return KindUnknown
}

// detectHierarchy fills in Parent for contained regions and warns about
// overlaps that do not look hierarchical. Regions without a parent relation
// are expected to be pairwise non-overlapping.
func detectHierarchy(regions []*Region, warnings *[]Warning) {
	for _, child := range regions {
		var best *Region
		for _, parent := range regions {
			if parent == child || parent.Length <= child.Length {
				continue
			}
			if child.Origin >= parent.Origin && child.End() <= parent.End() &&
				looksHierarchical(parent, child) {
				// Prefer the tightest enclosing parent.
				if best == nil || parent.Length < best.Length {
					best = parent
				}
			}
		}
		if best != nil {
			child.Parent = best.Name
			if !attrsCompatible(best, child) {
				*warnings = append(*warnings, Warning{
					Pos: child.Pos,
					Msg: fmt.Sprintf("region %s declares attributes %q not granted by parent %s (%q)",
						child.Name, child.Attrs, best.Name, best.Attrs),
				})
			}
		}
	}

	for i, r1 := range regions {
		for _, r2 := range regions[i+1:] {
			if r1.Parent == r2.Name || r2.Parent == r1.Name {
				continue
			}
			if r1.Origin < r2.End() && r2.Origin < r1.End() {
				*warnings = append(*warnings, Warning{
					Pos: r2.Pos,
					Msg: fmt.Sprintf("memory regions %s and %s overlap", r1.Name, r2.Name),
				})
			}
		}
	}
}

// looksHierarchical applies the naming heuristics for parent/child region
// declarations: the child shares the parent's name prefix (FLASH/FLASH_APP,
// RAM/RAM_NOCACHE) or shares its first underscore-separated component.
func looksHierarchical(parent, child *Region) bool {
	p := strings.ToLower(parent.Name)
	c := strings.ToLower(child.Name)
	if strings.HasPrefix(c, p) && parent.Kind == child.Kind {
		return true
	}
	pParts := strings.Split(p, "_")
	cParts := strings.Split(c, "_")
	return len(cParts) > len(pParts) && cParts[0] == pParts[0]
}

// attrsCompatible reports whether the child's attributes are a subset of
// the parent's. Empty attribute strings are compatible with anything.
func attrsCompatible(parent, child *Region) bool {
	if parent.Attrs == "" || child.Attrs == "" {
		return true
	}
	for _, c := range child.Attrs {
		if !strings.ContainsRune(parent.Attrs, c) {
			return false
		}
	}
	return true
}
