package analysis

import (
	"github.com/membrowse/membrowse/internal/elffile"
	"github.com/membrowse/membrowse/internal/ldscript"
)

// defaultRegions synthesizes Code and Data regions for binaries analyzed
// without linker scripts (typical for non-embedded ELFs): Code covers the
// executable allocated sections, Data the writable ones. Both are
// informational only and carry the auto flag.
func defaultRegions(sections []*elffile.Section) []*ldscript.Region {
	code := spanRegion("Code", sections, func(s *elffile.Section) bool {
		return s.HasFlag("ALLOC") && s.HasFlag("EXEC")
	})
	data := spanRegion("Data", sections, func(s *elffile.Section) bool {
		return s.HasFlag("ALLOC") && s.HasFlag("WRITE")
	})

	var out []*ldscript.Region
	if code != nil {
		code.Attrs = "rx"
		code.Kind = ldscript.KindFlash
		code.Index = 0
		out = append(out, code)
	}
	if data != nil {
		data.Attrs = "rw"
		data.Kind = ldscript.KindRAM
		data.Index = len(out)
		out = append(out, data)
	}
	return out
}

func spanRegion(name string, sections []*elffile.Section, match func(*elffile.Section) bool) *ldscript.Region {
	var lo, hi uint64
	found := false
	for _, s := range sections {
		if !match(s) {
			continue
		}
		end := s.Address + s.Size
		if !found {
			lo, hi = s.Address, end
			found = true
			continue
		}
		if s.Address < lo {
			lo = s.Address
		}
		if end > hi {
			hi = end
		}
	}
	if !found || hi <= lo {
		return nil
	}
	return &ldscript.Region{
		Name:   name,
		Origin: lo,
		Length: hi - lo,
		Auto:   true,
	}
}
