// Package resolver follows names across modules: aliases and re-exports are
// chased until they reach a definition, a module, or nothing.
package resolver

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dominikbraun/graph"

	"github.com/mvp-joe/stubscope/internal/finder"
	"github.com/mvp-joe/stubscope/internal/stubparser"
)

// ErrAliasCycle is returned when a chain of re-exports leads back to itself.
var ErrAliasCycle = errors.New("alias cycle")

// Resolver caches modules and name resolutions for the lifetime of a
// session. Its methods are safe for concurrent use.
type Resolver struct {
	parser *stubparser.Parser
	finder *finder.Finder

	mu      sync.Mutex
	modules map[finder.ModulePath]*Module
	// aliases holds every followed "module:name" -> "module:name" edge.
	aliases graph.Graph[string, string]
}

// New creates a Resolver reading modules through p.
func New(p *stubparser.Parser) *Resolver {
	return &Resolver{
		parser:  p,
		finder:  p.Finder(),
		modules: make(map[finder.ModulePath]*Module),
		aliases: graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles()),
	}
}

// GetModule returns the module at path. A module no file provides is
// returned with Exists false and no names.
func (r *Resolver) GetModule(path finder.ModulePath) (*Module, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.module(path)
}

// GetName resolves name in module.
func (r *Resolver) GetName(module finder.ModulePath, name string) (ResolvedName, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getName(module, name)
}

// GetFullyQualifiedName resolves a dotted name such as "os.path.join": the
// last segment is the name and the rest the module.
func (r *Resolver) GetFullyQualifiedName(name string) (ResolvedName, error) {
	var module, tail string
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		module, tail = name[:i], name[i+1:]
	} else {
		tail = name
	}
	return r.GetName(finder.ModulePath(module), tail)
}

// GetDunderAll returns the literal value of module's __all__. found is false
// when the module has no __all__.
func (r *Resolver) GetDunderAll(module finder.ModulePath) ([]string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.getName(module, "__all__")
	if err != nil {
		return nil, false, err
	}

	var info stubparser.NameInfo
	source := module
	switch v := res.(type) {
	case Absent:
		return nil, false, nil
	case Direct:
		info = v.Info
	case ReExport:
		info, source = v.Info, v.Source
	case ModuleReference:
		path, _ := r.finder.GetStubFile(module)
		return nil, true, &stubparser.InvalidStubError{
			Path:    path,
			Message: "invalid __all__: bound to module " + string(v.Path),
		}
	}

	path, _ := r.finder.GetStubFile(source)
	names, err := stubparser.DunderAllFromInfo(info, path)
	if err != nil {
		return nil, true, err
	}
	return names, true, nil
}

func (r *Resolver) module(path finder.ModulePath) (*Module, error) {
	if m, ok := r.modules[path]; ok {
		return m, nil
	}
	names, found, err := r.parser.GetStubNames(path)
	if err != nil {
		return nil, err
	}
	m := newModule(path, names, found)
	r.modules[path] = m
	return m, nil
}

func (r *Resolver) getName(module finder.ModulePath, name string) (ResolvedName, error) {
	m, err := r.module(module)
	if err != nil {
		return nil, err
	}
	if res, ok := m.resolved[name]; ok {
		return res, nil
	}

	res, err := r.resolve(m, name)
	if err != nil {
		return nil, err
	}
	m.resolved[name] = res
	return res, nil
}

func (r *Resolver) resolve(m *Module, name string) (ResolvedName, error) {
	info, ok := m.Names[name]
	if !ok {
		return Absent{}, nil
	}
	imported, ok := info.Decl.(stubparser.ImportedName)
	if !ok {
		return Direct{Info: info}, nil
	}
	if imported.Name == "" {
		return ModuleReference{Path: imported.Module}, nil
	}

	// "from pkg import mod" names a submodule when one exists
	sub := imported.Module.Append(imported.Name)
	if _, ok := r.finder.GetStubFile(sub); ok {
		return ModuleReference{Path: sub}, nil
	}

	if err := r.follow(m.Path, name, imported.Module, imported.Name); err != nil {
		return nil, err
	}
	res, err := r.getName(imported.Module, imported.Name)
	if err != nil {
		return nil, err
	}
	if direct, ok := res.(Direct); ok {
		return ReExport{Source: imported.Module, Info: direct.Info}, nil
	}
	return res, nil
}

// follow records the alias edge about to be chased, failing when it closes
// a cycle.
func (r *Resolver) follow(fromModule finder.ModulePath, fromName string, toModule finder.ModulePath, toName string) error {
	from := aliasKey(fromModule, fromName)
	to := aliasKey(toModule, toName)

	for _, v := range []string{from, to} {
		if err := r.aliases.AddVertex(v); err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
			return fmt.Errorf("failed to record alias %s: %w", v, err)
		}
	}

	err := r.aliases.AddEdge(from, to)
	switch {
	case err == nil, errors.Is(err, graph.ErrEdgeAlreadyExists):
		return nil
	case errors.Is(err, graph.ErrEdgeCreatesCycle):
		return fmt.Errorf("%w: %s -> %s", ErrAliasCycle, from, to)
	default:
		return fmt.Errorf("failed to record alias %s -> %s: %w", from, to, err)
	}
}

func aliasKey(module finder.ModulePath, name string) string {
	return string(module) + ":" + name
}
