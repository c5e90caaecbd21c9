package ldscript

import (
	"errors"
	"math"
)

// ExecOptions parameterize script execution.
type ExecOptions struct {
	// ArchDefaults holds architecture-specific default symbol bindings,
	// consulted when a symbol is not assigned by the scripts themselves.
	ArchDefaults map[string]int64
	// Overrides holds user-supplied symbol values (CLI --def / config
	// linker_vars), consulted after the defaults.
	Overrides map[string]int64
}

// Result is the outcome of executing one or more linker scripts.
type Result struct {
	Regions  []*Region
	Env      *Env
	Warnings []Warning
}

type pendingEntry struct {
	entry   MemoryEntry
	region  *Region // non-nil once resolved
	settled bool    // resolved or dropped with a warning
}

// Execute runs the two-pass evaluation over the parsed scripts, treated as
// if concatenated in order. Pass 1 processes MEMORY blocks and top-level
// assignments and freezes the region list; pass 2 processes SECTIONS for
// expression support only.
func Execute(scripts []*Script, opts ExecOptions) (*Result, error) {
	env := NewEnv(opts.ArchDefaults, opts.Overrides)

	var assigns []*AssignStmt
	var entries []*pendingEntry
	entryIndex := map[string]int{}

	for _, script := range scripts {
		for _, stmt := range script.Stmts {
			switch s := stmt.(type) {
			case *AssignStmt:
				assigns = append(assigns, s)
			case *MemoryStmt:
				for i := range s.Entries {
					entry := s.Entries[i]
					if at, dup := entryIndex[entry.Name]; dup {
						env.warnf(entry.Pos, "duplicate memory region %q, last declaration wins", entry.Name)
						entries[at] = &pendingEntry{entry: entry}
						delete(env.regions, entry.Name)
						continue
					}
					entryIndex[entry.Name] = len(entries)
					entries = append(entries, &pendingEntry{entry: entry})
				}
			}
		}
	}

	// Pass 1: resolve assignments and region entries to a fixpoint so that
	// forward references and ORIGIN/LENGTH cross-references settle.
	done := make([]bool, len(assigns))
	for {
		progress := false
		for i, a := range assigns {
			if done[i] {
				continue
			}
			if applyAssign(env, a) {
				done[i] = true
				progress = true
			}
		}
		for _, pe := range entries {
			if pe.settled {
				continue
			}
			region, dropped, err := resolveEntry(env, pe.entry)
			if err != nil {
				continue
			}
			pe.settled = true
			progress = true
			if dropped {
				continue
			}
			pe.region = region
			env.regions[region.Name] = region
		}
		if !progress {
			break
		}
	}

	var regions []*Region
	for _, pe := range entries {
		if pe.region != nil {
			regions = append(regions, pe.region)
			continue
		}
		if pe.settled {
			continue
		}
		// Still unresolved after the fixpoint: surface the undefined
		// symbol at its first use site.
		region, dropped, err := resolveEntry(env, pe.entry)
		if err != nil {
			var undef *errUndefined
			if errors.As(err, &undef) {
				return nil, &EvalError{Symbol: undef.symbol, Pos: undef.pos}
			}
			return nil, err
		}
		if !dropped {
			regions = append(regions, region)
		}
	}
	for i, r := range regions {
		r.Index = i
	}
	detectHierarchy(regions, &env.warnings)

	// Pass 2: SECTIONS, for SIZEOF/ADDR/LOADADDR and location-counter
	// expression support. The region list is frozen; failures here are
	// never fatal.
	for _, script := range scripts {
		for _, stmt := range script.Stmts {
			sections, ok := stmt.(*SectionsStmt)
			if !ok {
				continue
			}
			execSections(env, sections)
		}
	}

	return &Result{Regions: regions, Env: env, Warnings: env.warnings}, nil
}

// applyAssign evaluates one assignment against the environment. It reports
// whether the assignment settled; unresolved references leave it pending.
func applyAssign(env *Env, a *AssignStmt) bool {
	if a.Provide && env.Defined(a.Name) {
		return true
	}
	v, err := env.Eval(a.Value)
	if err != nil {
		return false
	}
	if a.Op == "=" {
		env.Set(a.Name, v)
		return true
	}
	old, ok := env.Lookup(a.Name)
	if !ok {
		return false
	}
	switch a.Op {
	case "+=":
		env.Set(a.Name, old+v)
	case "-=":
		env.Set(a.Name, old-v)
	case "*=":
		env.Set(a.Name, old*v)
	case "/=":
		if v == 0 {
			env.warnf(a.Pos, "division by zero in assignment to %s", a.Name)
			env.Set(a.Name, 0)
		} else {
			env.Set(a.Name, old/v)
		}
	case "&=":
		env.Set(a.Name, old&v)
	case "|=":
		env.Set(a.Name, old|v)
	case "<<=":
		env.Set(a.Name, old<<uint64(v&63))
	case ">>=":
		env.Set(a.Name, old>>uint64(v&63))
	}
	return true
}

// resolveEntry evaluates one MEMORY entry into a Region. dropped means the
// entry was invalid and has been discarded with a warning.
func resolveEntry(env *Env, entry MemoryEntry) (region *Region, dropped bool, err error) {
	originV, err := env.Eval(entry.Origin)
	if err != nil {
		return nil, false, err
	}
	lengthV, err := env.Eval(entry.Length)
	if err != nil {
		return nil, false, err
	}

	origin := uint64(originV)
	length := uint64(lengthV)
	if length == 0 {
		env.warnf(entry.Pos, "memory region %q has zero length, dropped", entry.Name)
		return nil, true, nil
	}
	if origin > math.MaxUint64-length {
		env.warnf(entry.Pos, "memory region %q overflows the 64-bit address space, dropped", entry.Name)
		return nil, true, nil
	}

	attrs := normalizeAttrs(entry.Attrs)
	return &Region{
		Name:   entry.Name,
		Origin: origin,
		Length: length,
		Attrs:  attrs,
		Kind:   classifyRegion(entry.Name, attrs),
		Pos:    entry.Pos,
	}, false, nil
}

// execSections walks a SECTIONS block, maintaining the location counter and
// recording output section addresses for expression support.
func execSections(env *Env, sections *SectionsStmt) {
	regionCursor := map[string]int64{}

	for _, item := range sections.Items {
		switch s := item.(type) {
		case *AssignStmt:
			execSectionAssign(env, s)
		case *OutputSection:
			sec := &sectionVal{}
			switch {
			case s.Addr != nil:
				if v, err := env.Eval(s.Addr); err == nil {
					sec.Addr = v
				}
			case s.Region != "":
				if r, ok := env.regions[s.Region]; ok {
					cur, seen := regionCursor[s.Region]
					if !seen {
						cur = int64(r.Origin)
					}
					sec.Addr = cur
					regionCursor[s.Region] = cur
				}
			default:
				sec.Addr, _ = env.vars["."]
			}

			switch {
			case s.LoadAddr != nil:
				if v, err := env.Eval(s.LoadAddr); err == nil {
					sec.LoadAddr = v
				}
			case s.LoadRegion != "":
				if r, ok := env.regions[s.LoadRegion]; ok {
					sec.LoadAddr = int64(r.Origin)
				}
			default:
				sec.LoadAddr = sec.Addr
			}

			env.sections[s.Name] = sec
			env.Set(".", sec.Addr)
			for _, body := range s.Body {
				if a, ok := body.(*AssignStmt); ok {
					execSectionAssign(env, a)
				}
			}
		}
	}
}

// execSectionAssign applies a pass-2 assignment. Symbols that the compiler
// or a future link step would provide are routinely missing here, so
// failures are silently skipped.
func execSectionAssign(env *Env, a *AssignStmt) {
	if a.Provide && env.Defined(a.Name) {
		return
	}
	v, err := env.Eval(a.Value)
	if err != nil {
		return
	}
	if a.Op != "=" {
		applyAssign(env, a)
		return
	}
	env.Set(a.Name, v)
}
