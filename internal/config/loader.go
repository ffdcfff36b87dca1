package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variable overrides (STUBSCOPE_*).
const EnvPrefix = "STUBSCOPE"

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir    string
	configFile string
	v          *viper.Viper
}

// LoaderOption customizes a Loader.
type LoaderOption func(*loader)

// WithConfigFile makes the loader read an explicit file instead of searching
// .stubscope/ under the root directory.
func WithConfigFile(path string) LoaderOption {
	return func(l *loader) { l.configFile = path }
}

// WithViper lets callers (the CLI) hand in a viper instance that already has
// command-line flags bound to it.
func WithViper(v *viper.Viper) LoaderOption {
	return func(l *loader) { l.v = v }
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string, opts ...LoaderOption) Loader {
	l := &loader{rootDir: rootDir}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Flags bound on a caller-provided viper instance
// 2. Environment variables (STUBSCOPE_*)
// 3. Config file (.stubscope/config.yml or .stubscope/config.yaml)
// 4. Default values
func (l *loader) Load() (*Config, error) {
	v := l.v
	if v == nil {
		v = viper.New()
	}

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(l.rootDir, ".stubscope"))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	// Replace . with _ in env var names (e.g., STUBSCOPE_CACHE_LOOKUP_CAPACITY)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("typeshed")
	v.BindEnv("search_path")
	v.BindEnv("python_version")
	v.BindEnv("platform")
	v.BindEnv("strict_warnings")
	v.BindEnv("allow_py_files")
	v.BindEnv("cache.lookup_capacity")
	v.BindEnv("cache.table_capacity")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(l.configFile == "" && os.IsNotExist(err)) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.SearchPath = splitSearchPath(cfg.SearchPath)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("typeshed", defaults.Typeshed)
	v.SetDefault("search_path", defaults.SearchPath)
	v.SetDefault("python_version", defaults.PythonVersion)
	v.SetDefault("platform", defaults.Platform)
	v.SetDefault("strict_warnings", defaults.StrictWarnings)
	v.SetDefault("allow_py_files", defaults.AllowPyFiles)

	v.SetDefault("cache.lookup_capacity", defaults.Cache.LookupCapacity)
	v.SetDefault("cache.table_capacity", defaults.Cache.TableCapacity)
}

// splitSearchPath expands entries that hold an OS path list, which is what
// STUBSCOPE_SEARCH_PATH delivers (e.g. "/a:/b").
func splitSearchPath(entries []string) []string {
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		for _, p := range filepath.SplitList(entry) {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
