// Package ldscript parses and evaluates GNU LD linker scripts to extract
// memory region definitions.
//
// The package accepts real-world scripts as shipped by ESP-IDF, Zephyr,
// STM32 vendor HALs and MicroPython boards. It tokenizes and parses the
// essential grammar (MEMORY, SECTIONS, assignments, PROVIDE, expressions)
// into a tagged-variant syntax tree, then executes the tree in two passes:
//
//	Pass 1: MEMORY blocks and all top-level assignments. The region list
//	        is frozen at the end of this pass.
//	Pass 2: SECTIONS, which may depend on region origins and lengths, and
//	        finalizes SIZEOF/LOADADDR support. Output sections produced
//	        here exist only for expression support.
//
// Multiple scripts are evaluated as if concatenated in order; assignments
// mutate a single global symbol environment and later MEMORY blocks add
// regions (a duplicate name replaces the earlier one with a warning).
//
// Unknown directives produce a warning and are skipped. Syntax errors fail
// with a *ParseError citing file, line, column, and a one-line excerpt.
// Undefined symbols reached while evaluating ORIGIN or LENGTH fail with a
// *EvalError naming the symbol and its first use site.
package ldscript
