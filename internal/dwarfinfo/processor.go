package dwarfinfo

import (
	"context"
	"debug/dwarf"
	"debug/elf"
	"encoding/binary"

	"go.uber.org/zap"
)

// Options control DWARF processing.
type Options struct {
	// SkipLineProgram disables the line-program resolution tier, trading
	// some source-file coverage for a faster walk.
	SkipLineProgram bool
}

// record is one candidate source binding collected from a DIE.
type record struct {
	name     string
	addr     uint64
	hasAddr  bool
	endAddr  uint64 // inlined subroutines only
	file     string
	line     int64
	isDecl   bool
	isInline bool
	off      dwarf.Offset
	cu       *CompilationUnit
}

// SymKey identifies a symbol instance. Keying by address and name keeps
// identically named statics from different translation units apart.
type SymKey struct {
	Addr uint64
	Name string
}

// FileRef is a resolved source location.
type FileRef struct {
	File string
	Line uint32
}

type lineEntry struct {
	addr uint64
	file string
	line uint32
}

type declInfo struct {
	file    string
	cuIndex int
}

// Info is the outcome of a DWARF walk, consumed by the source resolver.
type Info struct {
	CUs []*CompilationUnit

	symFiles   map[SymKey]FileRef
	declByName map[string]FileRef
	inlines    []record // sorted by addr
	lines      []lineEntry
}

// Process walks every compilation unit of the binary and builds the symbol
// to definition-file map. A binary without DWARF yields an empty Info.
// Malformed units are logged and skipped; only cancellation aborts the
// walk.
func Process(ctx context.Context, f *elf.File, opts Options, log *zap.Logger) (*Info, error) {
	info := &Info{
		symFiles:   make(map[SymKey]FileRef),
		declByName: make(map[string]FileRef),
	}

	d, err := f.DWARF()
	if err != nil {
		// No or unreadable debug info: section-level analysis proceeds.
		log.Debug("no usable DWARF data", zap.Error(err))
		return info, nil
	}

	p := &processor{
		d:         d,
		info:      info,
		dedup:     newFileDedup(),
		addrSize:  4,
		byteOrder: f.ByteOrder,
		log:       log,
	}
	if f.Class == elf.ELFCLASS64 {
		p.addrSize = 8
	}
	if s := f.Section(".debug_addr"); s != nil {
		if data, err := s.Data(); err == nil {
			p.addrTab = &debugAddrTable{data: data, addrSize: p.addrSize, byteOrder: f.ByteOrder}
		}
	}

	// Index the compile units first so a malformed one can be skipped
	// without losing its successors.
	var cuOffsets []dwarf.Offset
	r := d.Reader()
	for {
		e, err := r.Next()
		if err != nil {
			log.Warn("DWARF unit index truncated", zap.Error(err))
			break
		}
		if e == nil {
			break
		}
		if e.Tag == dwarf.TagCompileUnit {
			cuOffsets = append(cuOffsets, e.Offset)
		}
		r.SkipChildren()
	}

	for i, off := range cuOffsets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p.processCU(r, off, i, opts)
	}

	p.finish()
	return info, nil
}

type processor struct {
	d         *dwarf.Data
	info      *Info
	dedup     *fileDedup
	addrTab   *debugAddrTable
	addrSize  int
	byteOrder binary.ByteOrder
	log       *zap.Logger

	records []record
}

// processCU walks a single compile unit; any error inside it skips only
// that unit.
func (p *processor) processCU(r *dwarf.Reader, off dwarf.Offset, index int, opts Options) {
	r.Seek(off)
	cuEntry, err := r.Next()
	if err != nil || cuEntry == nil || cuEntry.Tag != dwarf.TagCompileUnit {
		p.log.Warn("skipping malformed compilation unit", zap.Uint64("offset", uint64(off)), zap.Error(err))
		return
	}

	cu := p.buildCU(cuEntry, index)
	p.info.CUs = append(p.info.CUs, cu)

	lr, err := p.d.LineReader(cuEntry)
	if err == nil && lr != nil {
		for _, lf := range lr.Files() {
			if lf == nil {
				cu.Files = append(cu.Files, "")
				continue
			}
			cu.Files = append(cu.Files, p.dedup.canonical(cu.CompDir, lf.Name))
		}
	}

	addrBase := uint64(0)
	if v, ok := cuEntry.Val(dwarf.AttrAddrBase).(int64); ok {
		addrBase = uint64(v)
	}

	if cuEntry.Children {
		p.walkDIEs(r, cu, addrBase)
	}

	if !opts.SkipLineProgram && lr != nil {
		p.scanLineProgram(lr, cu)
	}
}

func (p *processor) buildCU(e *dwarf.Entry, index int) *CompilationUnit {
	cu := &CompilationUnit{Index: index, Offset: e.Offset}
	if v, ok := e.Val(dwarf.AttrName).(string); ok {
		cu.Name = v
	}
	if v, ok := e.Val(dwarf.AttrCompDir).(string); ok {
		cu.CompDir = v
	}
	if v, ok := e.Val(dwarf.AttrProducer).(string); ok {
		cu.Producer = v
	}
	if v, ok := e.Val(dwarf.AttrLanguage).(int64); ok {
		cu.Language = languageName(v)
	}

	if low, ok := e.Val(dwarf.AttrLowpc).(uint64); ok {
		cu.LowPC = low
		if high, ok := p.highPC(e, low); ok {
			cu.HighPC = high
			cu.HasRange = cu.HighPC > cu.LowPC
		}
	}
	if !cu.HasRange {
		if ranges, err := p.d.Ranges(e); err == nil && len(ranges) > 0 {
			cu.LowPC = ranges[0][0]
			cu.HighPC = ranges[0][1]
			for _, rg := range ranges[1:] {
				if rg[0] < cu.LowPC {
					cu.LowPC = rg[0]
				}
				if rg[1] > cu.HighPC {
					cu.HighPC = rg[1]
				}
			}
			cu.HasRange = cu.HighPC > cu.LowPC
		}
	}
	return cu
}

// highPC decodes DW_AT_high_pc, which is either an absolute address or an
// offset from low_pc depending on its attribute class.
func (p *processor) highPC(e *dwarf.Entry, low uint64) (uint64, bool) {
	field := e.AttrField(dwarf.AttrHighpc)
	if field == nil {
		return 0, false
	}
	switch field.Class {
	case dwarf.ClassAddress:
		if v, ok := field.Val.(uint64); ok {
			return v, true
		}
	case dwarf.ClassConstant:
		if v, ok := field.Val.(int64); ok {
			return low + uint64(v), true
		}
	}
	return 0, false
}

// walkDIEs iterates the children of one compile unit, collecting candidate
// records. Variables are only interesting at file scope, so subprogram
// nesting is tracked.
func (p *processor) walkDIEs(r *dwarf.Reader, cu *CompilationUnit, addrBase uint64) {
	// The unit itself occupies the bottom of the stack; its terminator
	// ends the walk.
	stack := []dwarf.Tag{dwarf.TagCompileUnit}
	subNest := 0

	for {
		e, err := r.Next()
		if err != nil {
			p.log.Warn("DWARF walk error, unit truncated",
				zap.String("unit", cu.Name), zap.Error(err))
			return
		}
		if e == nil {
			return
		}
		if e.Tag == 0 {
			if stack[len(stack)-1] == dwarf.TagSubprogram {
				subNest--
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return
			}
			continue
		}

		switch e.Tag {
		case dwarf.TagSubprogram:
			p.collectSubprogram(e, cu)
		case dwarf.TagVariable:
			if subNest == 0 {
				p.collectVariable(e, cu, addrBase)
			}
		case dwarf.TagInlinedSubroutine:
			p.collectInlined(e, cu)
		case dwarf.TagCompileUnit:
			// Reached the next unit without a proper terminator.
			r.Seek(e.Offset)
			return
		}

		if e.Children {
			stack = append(stack, e.Tag)
			if e.Tag == dwarf.TagSubprogram {
				subNest++
			}
		}
	}
}

func dieName(e *dwarf.Entry) string {
	if v, ok := e.Val(dwarf.AttrLinkageName).(string); ok && v != "" {
		return v
	}
	if v, ok := e.Val(dwarf.AttrName).(string); ok {
		return v
	}
	return ""
}

func (p *processor) declFileLine(e *dwarf.Entry, cu *CompilationUnit) (string, int64) {
	idx, ok := e.Val(dwarf.AttrDeclFile).(int64)
	if !ok {
		return "", 0
	}
	file := cu.FileAt(idx)
	line, _ := e.Val(dwarf.AttrDeclLine).(int64)
	return file, line
}

func isDeclaration(e *dwarf.Entry) bool {
	v, ok := e.Val(dwarf.AttrDeclaration).(bool)
	return ok && v
}

// collectSubprogram records a function definition (low_pc or ranges plus
// decl file and line) or a bare declaration.
func (p *processor) collectSubprogram(e *dwarf.Entry, cu *CompilationUnit) {
	name := dieName(e)
	if name == "" {
		return
	}
	file, line := p.declFileLine(e, cu)
	if file == "" {
		return
	}

	addr, hasAddr := e.Val(dwarf.AttrLowpc).(uint64)
	if !hasAddr {
		if ranges, err := p.d.Ranges(e); err == nil && len(ranges) > 0 {
			addr, hasAddr = ranges[0][0], true
		}
	}

	decl := isDeclaration(e)
	if hasAddr && line > 0 && !decl {
		p.records = append(p.records, record{
			name: name, addr: addr, hasAddr: true,
			file: file, line: line, off: e.Offset, cu: cu,
		})
		return
	}
	p.records = append(p.records, record{
		name: name, file: file, line: line, isDecl: true, off: e.Offset, cu: cu,
	})
}

// collectVariable records a file-scope object. Only locations of the forms
// DW_OP_addr and DW_OP_addrx bind an address; a DIE marked
// DW_AT_declaration is a declaration regardless of its location.
func (p *processor) collectVariable(e *dwarf.Entry, cu *CompilationUnit, addrBase uint64) {
	name := dieName(e)
	if name == "" {
		return
	}
	file, line := p.declFileLine(e, cu)
	if file == "" {
		return
	}

	if isDeclaration(e) {
		p.records = append(p.records, record{
			name: name, file: file, line: line, isDecl: true, off: e.Offset, cu: cu,
		})
		return
	}

	field := e.AttrField(dwarf.AttrLocation)
	if field == nil || field.Class != dwarf.ClassExprLoc {
		return
	}
	expr, ok := field.Val.([]byte)
	if !ok {
		return
	}
	addr, ok := parseLocation(expr, p.addrSize, p.byteOrder, p.addrTab, addrBase)
	if !ok {
		return
	}
	p.records = append(p.records, record{
		name: name, addr: addr, hasAddr: true,
		file: file, line: line, off: e.Offset, cu: cu,
	})
}

// collectInlined records the PC range an inlined call covers, attributed
// to the call site's file. These never override concrete definitions.
func (p *processor) collectInlined(e *dwarf.Entry, cu *CompilationUnit) {
	low, ok := e.Val(dwarf.AttrLowpc).(uint64)
	if !ok {
		if ranges, err := p.d.Ranges(e); err == nil && len(ranges) > 0 {
			low, ok = ranges[0][0], true
		}
	}
	if !ok {
		return
	}
	high, _ := p.highPC(e, low)

	idx, ok := e.Val(dwarf.AttrCallFile).(int64)
	if !ok {
		return
	}
	file := cu.FileAt(idx)
	if file == "" {
		return
	}
	line, _ := e.Val(dwarf.AttrCallLine).(int64)
	p.records = append(p.records, record{
		addr: low, hasAddr: true, endAddr: high,
		file: file, line: line, isInline: true, off: e.Offset, cu: cu,
	})
}

func (p *processor) scanLineProgram(lr *dwarf.LineReader, cu *CompilationUnit) {
	var le dwarf.LineEntry
	for {
		if err := lr.Next(&le); err != nil {
			return
		}
		if le.EndSequence || le.Address == 0 || le.File == nil || le.File.Name == "" {
			continue
		}
		p.info.lines = append(p.info.lines, lineEntry{
			addr: le.Address,
			file: p.dedup.canonical(cu.CompDir, le.File.Name),
			line: uint32(le.Line),
		})
	}
}
