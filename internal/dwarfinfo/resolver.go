package dwarfinfo

import "sort"

// lineProximityLimit bounds how far a line-table entry may sit from a
// symbol's address and still be accepted. Covers prologue adjustment and
// ARM thumb-bit skew.
const lineProximityLimit = 100

// Resolver answers (address, name) → source file lookups over a processed
// Info. Resolution order: the symbol definition map, then declaration-only
// names, then inlined-subroutine call sites, then the line program (when
// not skipped), then compilation-unit containment.
type Resolver struct {
	info *Info
}

// NewResolver wraps a processed Info.
func NewResolver(info *Info) *Resolver {
	return &Resolver{info: info}
}

// Resolve returns the definition source file and line for a symbol, or
// ("", 0) when nothing is known.
func (r *Resolver) Resolve(name string, addr uint64) (string, uint32) {
	if ref, ok := r.info.symFiles[SymKey{Addr: addr, Name: name}]; ok {
		return ref.File, ref.Line
	}
	if ref, ok := r.info.declByName[name]; ok {
		return ref.File, ref.Line
	}
	if file, line, ok := r.inlineLookup(addr); ok {
		return file, line
	}
	if file, line, ok := r.lineLookup(addr); ok {
		return file, line
	}
	if cu := r.cuFor(addr); cu != nil && cu.Name != "" {
		return cu.Name, 0
	}
	return "", 0
}

// inlineLookup maps an address covered by an inlined subroutine to its
// call site. Concrete definitions were consulted first, so this can never
// override one.
func (r *Resolver) inlineLookup(addr uint64) (string, uint32, bool) {
	inl := r.info.inlines
	i := sort.Search(len(inl), func(i int) bool { return inl[i].addr > addr })
	for j := i - 1; j >= 0; j-- {
		rec := inl[j]
		if rec.endAddr > rec.addr && addr >= rec.addr && addr < rec.endAddr {
			return rec.file, uint32(rec.line), true
		}
		if rec.addr == addr {
			return rec.file, uint32(rec.line), true
		}
		if addr-rec.addr > lineProximityLimit {
			break
		}
	}
	return "", 0, false
}

// lineLookup finds the nearest line-table entry within the proximity
// limit.
func (r *Resolver) lineLookup(addr uint64) (string, uint32, bool) {
	lines := r.info.lines
	if len(lines) == 0 {
		return "", 0, false
	}
	i := sort.Search(len(lines), func(i int) bool { return lines[i].addr >= addr })

	bestDist := uint64(lineProximityLimit) + 1
	var best *lineEntry
	if i < len(lines) {
		if d := lines[i].addr - addr; d < bestDist {
			bestDist = d
			best = &lines[i]
		}
	}
	if i > 0 {
		if d := addr - lines[i-1].addr; d < bestDist {
			best = &lines[i-1]
		}
	}
	if best == nil {
		return "", 0, false
	}
	return best.file, best.line, true
}

// cuFor finds a compilation unit whose PC range covers the address.
func (r *Resolver) cuFor(addr uint64) *CompilationUnit {
	for _, cu := range r.info.CUs {
		if cu.Covers(addr) {
			return cu
		}
	}
	return nil
}
