// Package stubparser turns a stub module's syntax tree into a SymbolTable.
//
// Conditions on sys.platform and sys.version_info are folded against the
// search configuration, so the table holds exactly the names that exist for
// the target platform and version. Wildcard imports are expanded by parsing
// the imported module through the same Finder.
package stubparser

import (
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/maypok86/otter"

	"github.com/mvp-joe/stubscope/internal/condition"
	"github.com/mvp-joe/stubscope/internal/config"
	"github.com/mvp-joe/stubscope/internal/finder"
	"github.com/mvp-joe/stubscope/internal/syntax"
)

// DefaultTableCapacity bounds the table memo when no capacity is given.
const DefaultTableCapacity = 1024

// Parser builds symbol tables for modules located by a Finder. It is safe for
// concurrent use.
type Parser struct {
	finder *finder.Finder
	cfg    config.SearchConfig
	env    condition.Env
	logger *log.Logger
	tables otter.Cache[finder.ModulePath, SymbolTable]
}

// Option customizes a Parser.
type Option func(*options)

type options struct {
	logger        *log.Logger
	tableCapacity int
}

// WithLogger sets the logger warnings are written to.
func WithLogger(logger *log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithTableCapacity bounds the number of memoized module tables.
func WithTableCapacity(n int) Option {
	return func(o *options) { o.tableCapacity = n }
}

// New creates a Parser over f's search configuration.
func New(f *finder.Finder, opts ...Option) (*Parser, error) {
	o := options{logger: log.Default(), tableCapacity: DefaultTableCapacity}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tableCapacity <= 0 {
		return nil, fmt.Errorf("table capacity must be positive, got %d", o.tableCapacity)
	}

	tables, err := otter.MustBuilder[finder.ModulePath, SymbolTable](o.tableCapacity).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to create table cache: %w", err)
	}

	return &Parser{
		finder: f,
		cfg:    f.Config(),
		env:    condition.EnvFor(f.Config()),
		logger: o.logger,
		tables: tables,
	}, nil
}

// Finder returns the finder the parser locates modules with.
func (p *Parser) Finder() *finder.Finder { return p.finder }

// Close releases the table cache.
func (p *Parser) Close() {
	p.tables.Close()
}

// ParseOptions describe the file a syntax tree came from.
type ParseOptions struct {
	// IsInit marks a package __init__ file; it changes how leading dots in
	// relative imports resolve.
	IsInit bool
	// Lenient skips constructs a stub may not contain instead of failing.
	// It is used for .py sources.
	Lenient bool
}

// session carries per-call state through star-import recursion.
type session struct {
	active map[finder.ModulePath]bool
	// incomplete is set once a star-import cycle was cut short; tables built
	// afterwards are not memoized.
	incomplete bool
}

func newSession() *session {
	return &session{active: make(map[finder.ModulePath]bool)}
}

// GetStubNames returns the symbol table of module name. found is false when
// no file provides the module.
func (p *Parser) GetStubNames(name finder.ModulePath) (SymbolTable, bool, error) {
	return p.getStubNames(name, newSession())
}

func (p *Parser) getStubNames(name finder.ModulePath, s *session) (SymbolTable, bool, error) {
	if table, ok := p.tables.Get(name); ok {
		return table, true, nil
	}

	path, ok := p.finder.GetStubFile(name)
	if !ok {
		return nil, false, nil
	}
	mod, err := p.finder.ParseStubFile(path)
	if err != nil {
		return nil, true, err
	}

	base := filepath.Base(path)
	opts := ParseOptions{
		IsInit:  base == "__init__.pyi" || base == "__init__.py",
		Lenient: filepath.Ext(path) == ".py",
	}

	s.active[name] = true
	table, err := p.parseModule(mod, name, opts, s)
	delete(s.active, name)
	if err != nil {
		return nil, true, err
	}

	if !s.incomplete {
		p.tables.Set(name, table)
	}
	return table, true, nil
}

// ParseModule builds the symbol table of an already parsed module. name is
// the module's own dotted path, used to resolve relative imports.
func (p *Parser) ParseModule(mod *syntax.Module, name finder.ModulePath, opts ParseOptions) (SymbolTable, error) {
	s := newSession()
	s.active[name] = true
	return p.parseModule(mod, name, opts, s)
}

func (p *Parser) parseModule(mod *syntax.Module, name finder.ModulePath, opts ParseOptions, s *session) (SymbolTable, error) {
	v := &visitor{
		p:       p,
		module:  name,
		path:    mod.Path,
		isInit:  opts.IsInit,
		lenient: opts.Lenient,
		s:       s,
	}

	infos, err := v.visitAll(mod.Body)
	if err != nil {
		return nil, err
	}
	if v.excluded {
		// a failed top-level assert: the module does not exist here
		return SymbolTable{}, nil
	}
	return v.fold(infos, false)
}

// StarImportNames returns the names "from name import *" binds: __all__ when
// the module defines it, otherwise its exported names. found is false when
// the module does not exist.
func (p *Parser) StarImportNames(name finder.ModulePath) ([]string, bool, error) {
	return p.starImportNames(name, "", newSession())
}

func (p *Parser) starImportNames(name finder.ModulePath, importer string, s *session) ([]string, bool, error) {
	table, found, err := p.getStubNames(name, s)
	if err != nil || !found {
		return nil, found, err
	}
	if info, ok := table["__all__"]; ok {
		names, err := DunderAllFromInfo(info, importer)
		return names, true, err
	}
	return table.Exported(), true, nil
}
