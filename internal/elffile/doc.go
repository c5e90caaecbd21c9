// Package elffile extracts architecture, section and symbol information
// from ELF binaries using the standard library debug/elf reader.
package elffile
