// Package stubscope finds Python type stubs, builds their symbol tables for a
// target Python version and platform, and resolves names across modules.
//
//	cfg := stubscope.NewSearchConfig("typeshed/stdlib", nil, stubscope.Version{Major: 3, Minor: 12}, "linux")
//	r, err := stubscope.NewResolver(cfg)
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//	res, err := r.GetFullyQualifiedName("os.path.join")
//
// The functions here open a fresh finder per call. Callers making many
// lookups should keep a Resolver, which memoizes everything it reads.
package stubscope

import (
	"github.com/charmbracelet/log"

	"github.com/mvp-joe/stubscope/internal/config"
	"github.com/mvp-joe/stubscope/internal/finder"
	"github.com/mvp-joe/stubscope/internal/resolver"
	"github.com/mvp-joe/stubscope/internal/stubparser"
)

type (
	SearchConfig = config.SearchConfig
	SearchOption = config.SearchOption
	Version      = config.Version

	ModulePath  = finder.ModulePath
	StubFile    = finder.StubFile
	SymbolTable = stubparser.SymbolTable
	NameInfo    = stubparser.NameInfo

	ResolvedName    = resolver.ResolvedName
	Absent          = resolver.Absent
	ModuleReference = resolver.ModuleReference
	ReExport        = resolver.ReExport
	Direct          = resolver.Direct
)

var (
	// WithStrictWarnings promotes parser warnings to errors.
	WithStrictWarnings = config.WithStrictWarnings
	// WithAllowPyFiles lets lookups fall back to .py sources.
	WithAllowPyFiles = config.WithAllowPyFiles

	ErrInvalidStub      = stubparser.ErrInvalidStub
	ErrManifestNotFound = finder.ErrManifestNotFound
	ErrAliasCycle       = resolver.ErrAliasCycle
)

// NewSearchConfig builds the configuration every lookup is made against.
func NewSearchConfig(typeshed string, searchPath []string, version Version, platform string, opts ...SearchOption) SearchConfig {
	return config.NewSearchConfig(typeshed, searchPath, version, platform, opts...)
}

// Option customizes the parser behind the package-level functions and
// NewResolver.
type Option = stubparser.Option

// WithLogger sets where parser warnings are written. The default is the
// charmbracelet/log default logger.
func WithLogger(logger *log.Logger) Option {
	return stubparser.WithLogger(logger)
}

// GetStubFile returns the file providing module. The error is only about
// the corpus itself, e.g. a missing VERSIONS manifest.
func GetStubFile(module string, cfg SearchConfig) (string, bool, error) {
	f, err := finder.New(cfg)
	if err != nil {
		return "", false, err
	}
	defer f.Close()

	path, ok := f.GetStubFile(ModulePath(module))
	return path, ok, nil
}

// GetStubNames returns the symbol table of module. found is false when no
// file provides it.
func GetStubNames(module string, cfg SearchConfig, opts ...Option) (SymbolTable, bool, error) {
	f, p, err := open(cfg, opts)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()
	defer p.Close()

	return p.GetStubNames(ModulePath(module))
}

// AllStubFiles lists every module cfg can see with the file providing it.
func AllStubFiles(cfg SearchConfig) ([]StubFile, error) {
	f, err := finder.New(cfg)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return f.AllStubFiles(), nil
}

// Resolver resolves names across modules and owns the caches behind it.
type Resolver struct {
	*resolver.Resolver

	finder *finder.Finder
	parser *stubparser.Parser
}

// NewResolver creates a Resolver over cfg.
func NewResolver(cfg SearchConfig, opts ...Option) (*Resolver, error) {
	f, p, err := open(cfg, opts)
	if err != nil {
		return nil, err
	}
	return &Resolver{Resolver: resolver.New(p), finder: f, parser: p}, nil
}

// Close releases the resolver's caches.
func (r *Resolver) Close() {
	r.parser.Close()
	r.finder.Close()
}

func open(cfg SearchConfig, opts []Option) (*finder.Finder, *stubparser.Parser, error) {
	f, err := finder.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	p, err := stubparser.New(f, opts...)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return f, p, nil
}
