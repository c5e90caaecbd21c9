package analysis

import (
	"math"
	"sort"

	"github.com/membrowse/membrowse/internal/elffile"
	"github.com/membrowse/membrowse/internal/ldscript"
)

// UnmappedRegion is the synthetic roll-up bucket for allocated sections
// that fall into no declared region.
const UnmappedRegion = "__unmapped__"

// RegionUsage is the per-region roll-up added on top of the declared
// region data.
type RegionUsage struct {
	Region      *ldscript.Region
	Used        uint64
	Utilization float64 // percent, 0..100
	Sections    []string
}

// mapSections assigns each section to the single region containing its
// address. When hierarchical regions both match, the most specific one
// (smallest length) wins. It also fills SizeOnDevice: NOBITS sections
// occupy no device storage in regions without the write attribute, which
// keeps .bss out of ROM totals when its load address lands there (the
// GNU AT> case).
func mapSections(sections []*elffile.Section, regions []*ldscript.Region) {
	for _, sec := range sections {
		region := findRegion(regions, sec.Address)
		if region == nil {
			sec.Region = ""
			sec.SizeOnDevice = 0
			if sec.Type != "NOBITS" {
				sec.SizeOnDevice = sec.Size
			}
			continue
		}
		sec.Region = region.Name
		if sec.Type == "NOBITS" && !region.Writable() {
			sec.SizeOnDevice = 0
		} else {
			sec.SizeOnDevice = sec.Size
		}
	}
}

// findRegion returns the most specific region containing addr.
func findRegion(regions []*ldscript.Region, addr uint64) *ldscript.Region {
	var best *ldscript.Region
	for _, r := range regions {
		if !r.Contains(addr) {
			continue
		}
		if best == nil || r.Length < best.Length {
			best = r
		}
	}
	return best
}

// mapSymbols assigns each symbol the region of its address.
func mapSymbols(symbols []*elffile.Symbol, regions []*ldscript.Region) {
	for _, sym := range symbols {
		if r := findRegion(regions, sym.Address); r != nil {
			sym.Region = r.Name
		}
	}
}

// rollUp computes per-region usage in region declaration order, appending
// the synthetic unmapped bucket when needed. Member sections are listed in
// address order.
func rollUp(regions []*ldscript.Region, sections []*elffile.Section) []*RegionUsage {
	byRegion := make(map[string][]*elffile.Section)
	for _, sec := range sections {
		key := sec.Region
		if key == "" {
			key = UnmappedRegion
		}
		byRegion[key] = append(byRegion[key], sec)
	}
	for _, members := range byRegion {
		sort.Slice(members, func(i, j int) bool {
			if members[i].Address != members[j].Address {
				return members[i].Address < members[j].Address
			}
			return members[i].Name < members[j].Name
		})
	}

	var out []*RegionUsage
	for _, region := range regions {
		usage := &RegionUsage{Region: region}
		for _, sec := range byRegion[region.Name] {
			usage.Used += sec.SizeOnDevice
			usage.Sections = append(usage.Sections, sec.Name)
		}
		if region.Length > 0 {
			u := float64(usage.Used) / float64(region.Length) * 100
			usage.Utilization = math.Min(math.Max(u, 0), 100)
		}
		out = append(out, usage)
	}

	if unmapped := byRegion[UnmappedRegion]; len(unmapped) > 0 {
		usage := &RegionUsage{
			Region: &ldscript.Region{Name: UnmappedRegion, Auto: true},
		}
		for _, sec := range unmapped {
			usage.Used += sec.SizeOnDevice
			usage.Sections = append(usage.Sections, sec.Name)
		}
		out = append(out, usage)
	}
	return out
}
