package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/membrowse/membrowse/internal/dwarfinfo"
	"github.com/membrowse/membrowse/internal/elffile"
)

// SchemaVersion identifies the report wire format.
const SchemaVersion = "1.0"

// Report is the completed analysis result.
type Report struct {
	Architecture elffile.Architecture
	Regions      []*RegionUsage
	Sections     []*elffile.Section
	Symbols      []*elffile.Symbol
	Units        []*dwarfinfo.CompilationUnit
	Warnings     []string
	ELFSHA256    string
	AnalyzedAt   time.Time
}

// Wire structures. Field sets and names are a stable contract; nothing
// beyond them may appear in the output.

type wireRegion struct {
	Address     string   `json:"address"`
	Size        uint64   `json:"size"`
	Used        uint64   `json:"used"`
	Utilization float64  `json:"utilization"`
	Attrs       string   `json:"attrs"`
	Parent      *string  `json:"parent"`
	Sections    []string `json:"sections"`
	Auto        bool     `json:"auto"`
}

type namedRegion struct {
	name   string
	region wireRegion
}

// orderedRegions marshals as a JSON object whose key order follows region
// declaration order in the linker script.
type orderedRegions []namedRegion

func (o orderedRegions) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, nr := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(nr.name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(nr.region)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type wireSection struct {
	Name    string   `json:"name"`
	Address string   `json:"address"`
	Size    uint64   `json:"size"`
	Flags   []string `json:"flags"`
	Type    string   `json:"type"`
	Region  *string  `json:"region"`
}

type wireSymbol struct {
	Name       string  `json:"name"`
	Demangled  *string `json:"demangled"`
	Address    string  `json:"address"`
	Size       uint64  `json:"size"`
	Type       string  `json:"type"`
	Binding    string  `json:"binding"`
	Section    string  `json:"section"`
	Region     *string `json:"region"`
	SourceFile *string `json:"source_file"`
	SourceLine *uint32 `json:"source_line"`
}

type wireUnit struct {
	Name     string `json:"name"`
	CompDir  string `json:"comp_dir"`
	Producer string `json:"producer"`
	Language string `json:"language"`
}

type wireMeta struct {
	ELFSHA256  string   `json:"elf_sha256"`
	AnalyzedAt string   `json:"analyzed_at"`
	Warnings   []string `json:"warnings,omitempty"`
}

type wireReport struct {
	SchemaVersion string         `json:"schema_version"`
	Architecture  string         `json:"architecture"`
	MemoryRegions orderedRegions `json:"memory_regions"`
	Sections      []wireSection  `json:"sections"`
	Symbols       []wireSymbol   `json:"symbols"`
	Units         []wireUnit     `json:"compilation_units"`
	Meta          wireMeta       `json:"meta"`
}

// JSON serializes the report into the stable wire format.
func (r *Report) JSON() ([]byte, error) {
	w := wireReport{
		SchemaVersion: SchemaVersion,
		Architecture:  wireArchitecture(r.Architecture),
		MemoryRegions: make(orderedRegions, 0, len(r.Regions)),
		Sections:      make([]wireSection, 0, len(r.Sections)),
		Symbols:       make([]wireSymbol, 0, len(r.Symbols)),
		Units:         make([]wireUnit, 0, len(r.Units)),
		Meta: wireMeta{
			ELFSHA256:  r.ELFSHA256,
			AnalyzedAt: r.AnalyzedAt.Format(time.RFC3339),
			Warnings:   r.Warnings,
		},
	}

	for _, usage := range r.Regions {
		region := usage.Region
		w.MemoryRegions = append(w.MemoryRegions, namedRegion{
			name: region.Name,
			region: wireRegion{
				Address:     hexAddr(region.Origin),
				Size:        region.Length,
				Used:        usage.Used,
				Utilization: math.Round(usage.Utilization*100) / 100,
				Attrs:       region.Attrs,
				Parent:      optString(region.Parent),
				Sections:    nonNil(usage.Sections),
				Auto:        region.Auto,
			},
		})
	}

	for _, sec := range r.Sections {
		w.Sections = append(w.Sections, wireSection{
			Name:    sec.Name,
			Address: hexAddr(sec.Address),
			Size:    sec.Size,
			Flags:   nonNil(sec.Flags),
			Type:    sec.Type,
			Region:  optString(sec.Region),
		})
	}

	for _, sym := range r.Symbols {
		w.Symbols = append(w.Symbols, wireSymbol{
			Name:       sym.Name,
			Demangled:  optString(sym.Demangled),
			Address:    hexAddr(sym.Address),
			Size:       sym.Size,
			Type:       sym.Kind,
			Binding:    sym.Binding,
			Section:    sym.Section,
			Region:     optString(sym.Region),
			SourceFile: optString(sym.SourceFile),
			SourceLine: optLine(sym.SourceLine),
		})
	}

	for _, cu := range r.Units {
		w.Units = append(w.Units, wireUnit{
			Name:     cu.Name,
			CompDir:  cu.CompDir,
			Producer: cu.Producer,
			Language: cu.Language,
		})
	}

	return json.MarshalIndent(w, "", "  ")
}

// wireArchitecture maps the detected architecture onto the report enum.
func wireArchitecture(a elffile.Architecture) string {
	switch a {
	case elffile.ArchARM, elffile.ArchXtensa, elffile.ArchRISCV,
		elffile.ArchX86, elffile.ArchX8664:
		return string(a)
	}
	return "other"
}

func hexAddr(v uint64) string { return fmt.Sprintf("0x%x", v) }

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optLine(v uint32) *uint32 {
	if v == 0 {
		return nil
	}
	return &v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
