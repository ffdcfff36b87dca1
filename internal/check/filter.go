package check

import (
	"fmt"

	"github.com/gobwas/glob"

	"github.com/mvp-joe/stubscope/internal/finder"
)

type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// Filter selects modules by dotted name. "*" stays within one segment and
// "**" spans segments, so "os.*" matches "os.path" but not "os.path.x".
type Filter struct {
	include []compiledPattern
	exclude []compiledPattern
}

// NewFilter compiles include and exclude patterns. With no include patterns
// every module not excluded matches.
func NewFilter(include, exclude []string) (*Filter, error) {
	f := &Filter{}
	var err error
	if f.include, err = compile(include); err != nil {
		return nil, err
	}
	if f.exclude, err = compile(exclude); err != nil {
		return nil, err
	}
	return f, nil
}

func compile(patterns []string) ([]compiledPattern, error) {
	out := make([]compiledPattern, 0, len(patterns))
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		g, err := glob.Compile(pattern, '.')
		if err != nil {
			return nil, fmt.Errorf("invalid module pattern %q: %w", pattern, err)
		}
		out = append(out, compiledPattern{pattern: pattern, glob: g})
	}
	return out, nil
}

// Match reports whether module passes the filter. A nil Filter matches
// everything.
func (f *Filter) Match(module finder.ModulePath) bool {
	if f == nil {
		return true
	}
	name := string(module)
	for _, cp := range f.exclude {
		if cp.glob.Match(name) {
			return false
		}
	}
	if len(f.include) == 0 {
		return true
	}
	for _, cp := range f.include {
		if cp.glob.Match(name) {
			return true
		}
	}
	return false
}

// Select returns the stub files whose module passes the filter, in order.
func (f *Filter) Select(files []finder.StubFile) []finder.StubFile {
	out := make([]finder.StubFile, 0, len(files))
	for _, file := range files {
		if f.Match(file.Module) {
			out = append(out, file)
		}
	}
	return out
}
