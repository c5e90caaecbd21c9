// Package config loads the optional .membrowse.yaml configuration file.
//
// The file carries analysis defaults so CI invocations stay short:
//
//	linker_scripts:
//	  - boards/stm32f4/flash.ld
//	linker_vars:
//	  __flash_size__: 4096K
//	  _sd_size: "0x26000"
//	skip_line_program: false
//
// linker_vars is the canonical configuration key for externally supplied
// linker symbols. The equivalent CLI flag is --def VAR=VALUE, and a flag
// wins over a config entry with the same name.
package config
