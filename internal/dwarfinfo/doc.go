// Package dwarfinfo walks DWARF 2-5 debug information to map symbols to
// their definition source files.
//
// The processor collects, per compilation unit, the file table (preserving
// original DWARF indices) and the interesting DIEs: subprogram definitions
// with a code address, file-scope variables whose location expression
// resolves to an absolute address, and inlined subroutines. A DIE carrying
// DW_AT_declaration is a declaration only and never binds an address.
//
// The declaration-vs-definition policy then resolves each (address, name)
// pair: a real definition wins; declaration-only names referenced by a
// single compilation unit attribute to that unit's declaring file;
// conflicting address-bound duplicates are settled by compilation-unit
// range containment and finally by DIE offset order. Candidates are sorted
// by (address, DIE offset) before the policy runs, so the result does not
// depend on compilation-unit order in the file.
//
// The layer is deliberately lenient: a malformed compilation unit is
// logged and skipped, never fatal. Bad debug info must not take down an
// otherwise successful section-level analysis.
package dwarfinfo
