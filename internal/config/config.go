package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up in the working directory when no --config
// flag is given.
const DefaultFileName = ".membrowse.yaml"

// Config holds persistent analysis options.
//
// linker_vars is the canonical key for externally supplied linker symbols;
// CLI --def flags override entries of the same name.
type Config struct {
	// LinkerScripts lists scripts applied when the command line names none.
	LinkerScripts []string `yaml:"linker_scripts"`
	// LinkerVars supplies values for linker symbols defined outside the
	// scripts, e.g. __flash_size__: 4096K.
	LinkerVars map[string]string `yaml:"linker_vars"`
	// SkipLineProgram disables DWARF line-program resolution by default.
	SkipLineProgram bool `yaml:"skip_line_program"`
}

// Load reads a configuration file. A missing default file is not an
// error; a missing explicit path is.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &cfg, nil
}
