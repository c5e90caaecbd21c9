package dwarfinfo

import "sort"

// finish turns the collected records into the lookup maps, applying the
// declaration-vs-definition policy.
//
// Candidates are sorted by (address, DIE offset) first, which makes the
// merge independent of the order compilation units were walked in: the
// same records produce the same maps regardless of how they arrived.
func (p *processor) finish() {
	recs := p.records
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].addr != recs[j].addr {
			return recs[i].addr < recs[j].addr
		}
		return recs[i].off < recs[j].off
	})

	defsByKey := make(map[SymKey][]record)
	defNames := make(map[string]bool)
	for _, rec := range recs {
		if !rec.hasAddr || rec.isDecl || rec.isInline {
			continue
		}
		key := SymKey{Addr: rec.addr, Name: rec.name}
		defsByKey[key] = append(defsByKey[key], rec)
		defNames[rec.name] = true
	}

	// A definition with a real address and no DW_AT_declaration wins. When
	// address-bound duplicates disagree (weak or inline copies), the one
	// whose unit's PC range contains the address wins; remaining ties go
	// to the lowest DIE offset, which the sort already put first.
	for key, candidates := range defsByKey {
		chosen := candidates[0]
		if len(candidates) > 1 {
			for _, c := range candidates {
				if c.cu.Covers(c.addr) {
					chosen = c
					break
				}
			}
		}
		p.info.symFiles[key] = FileRef{File: chosen.file, Line: uint32(chosen.line)}
	}

	// Declaration-only names: when exactly one unit references the name,
	// attribute it to that unit's declaring file (header-defined statics).
	declsByName := make(map[string][]record)
	for _, rec := range recs {
		if !rec.isDecl || defNames[rec.name] {
			continue
		}
		declsByName[rec.name] = append(declsByName[rec.name], rec)
	}
	for name, decls := range declsByName {
		cus := make(map[int]bool)
		for _, d := range decls {
			cus[d.cu.Index] = true
		}
		if len(cus) == 1 {
			first := decls[0]
			for _, d := range decls[1:] {
				if d.off < first.off {
					first = d
				}
			}
			p.info.declByName[name] = FileRef{File: first.file, Line: uint32(first.line)}
		}
	}

	for _, rec := range recs {
		if rec.isInline {
			p.info.inlines = append(p.info.inlines, rec)
		}
	}

	sort.Slice(p.info.lines, func(i, j int) bool {
		return p.info.lines[i].addr < p.info.lines[j].addr
	})
}
