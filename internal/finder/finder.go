// Package finder maps dotted module names onto stub files.
//
// Lookup order for a module whose top-level name is X:
//
//  1. the stub corpus (typeshed), gated by its VERSIONS manifest, with the
//     @python2 overlay consulted first when targeting the legacy major version
//  2. X-stubs/ on each search root
//  3. X/ on each search root, .pyi first and then .py when AllowPyFiles is set
package finder

import (
	"fmt"
	"path/filepath"

	"github.com/maypok86/otter"
	"github.com/spf13/afero"

	"github.com/mvp-joe/stubscope/internal/config"
	"github.com/mvp-joe/stubscope/internal/syntax"
)

// DefaultLookupCapacity bounds the lookup memo when no capacity is given.
const DefaultLookupCapacity = 4096

// Finder resolves module names against one SearchConfig. It is safe for
// concurrent use; the corpus is assumed not to change while it lives.
type Finder struct {
	cfg      config.SearchConfig
	fs       afero.Fs
	versions VersionTable
	lookups  otter.Cache[ModulePath, string]
}

// Option customizes a Finder.
type Option func(*options)

type options struct {
	fs             afero.Fs
	lookupCapacity int
}

// WithFs makes the finder probe fsys instead of the OS filesystem.
func WithFs(fsys afero.Fs) Option {
	return func(o *options) { o.fs = fsys }
}

// WithLookupCapacity bounds the number of memoized lookups.
func WithLookupCapacity(n int) Option {
	return func(o *options) { o.lookupCapacity = n }
}

// New creates a Finder. It reads the corpus manifest up front, so a missing
// or malformed VERSIONS file fails here rather than on first lookup.
func New(cfg config.SearchConfig, opts ...Option) (*Finder, error) {
	o := options{fs: afero.NewOsFs(), lookupCapacity: DefaultLookupCapacity}
	for _, opt := range opts {
		opt(&o)
	}
	if o.lookupCapacity <= 0 {
		return nil, fmt.Errorf("lookup capacity must be positive, got %d", o.lookupCapacity)
	}

	versions, err := LoadVersionTable(o.fs, cfg.Typeshed())
	if err != nil {
		return nil, err
	}

	lookups, err := otter.MustBuilder[ModulePath, string](o.lookupCapacity).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create lookup cache: %w", err)
	}

	return &Finder{cfg: cfg, fs: o.fs, versions: versions, lookups: lookups}, nil
}

// Config returns the search configuration the finder was built with.
func (f *Finder) Config() config.SearchConfig { return f.cfg }

// Versions returns the corpus manifest.
func (f *Finder) Versions() VersionTable { return f.versions }

// Close releases the lookup cache.
func (f *Finder) Close() {
	f.lookups.Close()
}

// GetStubFile returns the file that provides module name, if any.
func (f *Finder) GetStubFile(name ModulePath) (string, bool) {
	if path, ok := f.lookups.Get(name); ok {
		return path, path != ""
	}
	path := f.find(name)
	// misses are memoized as ""
	f.lookups.Set(name, path)
	return path, path != ""
}

// GetStubAST finds and parses the stub for module name.
func (f *Finder) GetStubAST(name ModulePath) (*syntax.Module, bool, error) {
	path, ok := f.GetStubFile(name)
	if !ok {
		return nil, false, nil
	}
	mod, err := f.ParseStubFile(path)
	if err != nil {
		return nil, true, err
	}
	return mod, true, nil
}

// ParseStubFile reads and parses one stub file.
func (f *Finder) ParseStubFile(path string) (*syntax.Module, error) {
	source, err := afero.ReadFile(f.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read stub %s: %w", path, err)
	}
	return syntax.Parse(path, source)
}

func (f *Finder) find(name ModulePath) string {
	if name.IsEmpty() {
		return ""
	}

	if stub := f.findInTypeshed(name); stub != "" {
		return stub
	}

	top, rest := name.Head(), name.Tail()
	searchPath := f.cfg.SearchPath()

	for _, root := range searchPath {
		dir := filepath.Join(root, top+"-stubs")
		if !safeExists(f.fs, dir) {
			continue
		}
		if stub := f.findFileInDir(dir, rest, "pyi"); stub != "" {
			return stub
		}
	}

	for _, root := range searchPath {
		dir := filepath.Join(root, top)
		if !safeExists(f.fs, dir) {
			continue
		}
		if stub := f.findFileInDir(dir, rest, "pyi"); stub != "" {
			return stub
		}
		if f.cfg.AllowPyFiles() {
			if source := f.findFileInDir(dir, rest, "py"); source != "" {
				return source
			}
		}
	}

	return ""
}

func (f *Finder) findInTypeshed(name ModulePath) string {
	r, ok := f.versions[name.Head()]
	if !ok || !r.Contains(f.cfg.Version()) {
		return ""
	}

	if f.cfg.IsLegacy() {
		overlay := filepath.Join(f.cfg.Typeshed(), LegacyDir)
		stub := f.findFileInDir(overlay, name, "pyi")
		if stub != "" || r.LegacyOnly {
			return stub
		}
	}

	return f.findFileInDir(f.cfg.Typeshed(), name, "pyi")
}

// findFileInDir descends one segment at a time. The empty module is the
// directory's own __init__.
func (f *Finder) findFileInDir(dir string, module ModulePath, ext string) string {
	if module.IsEmpty() {
		init := filepath.Join(dir, "__init__."+ext)
		if safeExists(f.fs, init) {
			return init
		}
		return ""
	}

	next := module.Head()
	if module.Len() == 1 {
		stub := filepath.Join(dir, next+"."+ext)
		if safeExists(f.fs, stub) {
			return stub
		}
	}

	nextDir := filepath.Join(dir, next)
	if safeExists(f.fs, nextDir) {
		return f.findFileInDir(nextDir, module.Tail(), ext)
	}
	return ""
}
