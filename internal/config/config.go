package config

import (
	"fmt"
	"path/filepath"
)

// Config represents the complete stubscope configuration.
// It can be loaded from .stubscope/config.yml with environment variable overrides.
type Config struct {
	Typeshed       string      `yaml:"typeshed" mapstructure:"typeshed"`               // stub corpus root (contains VERSIONS)
	SearchPath     []string    `yaml:"search_path" mapstructure:"search_path"`         // extra roots for -stubs and installed packages
	PythonVersion  string      `yaml:"python_version" mapstructure:"python_version"`   // target version, e.g. "3.12"
	Platform       string      `yaml:"platform" mapstructure:"platform"`               // value of sys.platform inside stubs
	StrictWarnings bool        `yaml:"strict_warnings" mapstructure:"strict_warnings"` // promote parser warnings to errors
	AllowPyFiles   bool        `yaml:"allow_py_files" mapstructure:"allow_py_files"`   // fall back to .py sources in packages
	Cache          CacheConfig `yaml:"cache" mapstructure:"cache"`
}

// CacheConfig sizes the memoization caches used by the finder and parser.
type CacheConfig struct {
	LookupCapacity int `yaml:"lookup_capacity" mapstructure:"lookup_capacity"` // module name -> file lookups
	TableCapacity  int `yaml:"table_capacity" mapstructure:"table_capacity"`   // parsed symbol tables
}

// Default returns a configuration with sensible defaults.
// Typeshed has no default and must be provided.
func Default() *Config {
	return &Config{
		Typeshed:       "",
		SearchPath:     []string{},
		PythonVersion:  DefaultVersion.String(),
		Platform:       DefaultPlatform(),
		StrictWarnings: false,
		AllowPyFiles:   false,
		Cache: CacheConfig{
			LookupCapacity: 4096,
			TableCapacity:  1024,
		},
	}
}

// SearchConfig converts the loaded configuration into the immutable value
// shared by every lookup in a session. Relative paths are made absolute.
func (c *Config) SearchConfig() (SearchConfig, error) {
	version, err := ParseVersion(c.PythonVersion)
	if err != nil {
		return SearchConfig{}, err
	}

	typeshed, err := filepath.Abs(c.Typeshed)
	if err != nil {
		return SearchConfig{}, fmt.Errorf("failed to resolve typeshed path: %w", err)
	}

	searchPath := make([]string, 0, len(c.SearchPath))
	for _, p := range c.SearchPath {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return SearchConfig{}, fmt.Errorf("failed to resolve search path %q: %w", p, err)
		}
		searchPath = append(searchPath, abs)
	}

	return NewSearchConfig(typeshed, searchPath, version, c.Platform,
		WithStrictWarnings(c.StrictWarnings),
		WithAllowPyFiles(c.AllowPyFiles),
	), nil
}
