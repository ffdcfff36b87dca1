// Package config provides configuration loading for stubscope.
//
// Configuration Hierarchy (highest to lowest priority):
//  1. Command-line flags bound by the CLI
//  2. Environment variables (STUBSCOPE_*)
//  3. Project config (.stubscope/config.yml)
//  4. Built-in defaults
//
// Environment Variable Convention:
//   - Prefix: STUBSCOPE_
//   - Nested fields: Use underscores (STUBSCOPE_CACHE_LOOKUP_CAPACITY)
//   - STUBSCOPE_SEARCH_PATH takes an OS path list ("/a:/b")
//
// The loaded Config is turned into a SearchConfig, the immutable value that
// the finder, parser and resolver share for a whole session:
//
//	cfg, err := config.NewLoader(projectDir).Load()
//	if err != nil {
//	    return err
//	}
//	sc, err := cfg.SearchConfig()
package config
