package resolver

import (
	"github.com/mvp-joe/stubscope/internal/finder"
	"github.com/mvp-joe/stubscope/internal/stubparser"
)

// Module is a resolved module and its per-name results.
type Module struct {
	Path  finder.ModulePath
	Names stubparser.SymbolTable
	// Exists reports whether a file provides the module. A module gated out
	// by a top-level assert exists but has no names.
	Exists bool

	resolved map[string]ResolvedName
}

func newModule(path finder.ModulePath, names stubparser.SymbolTable, exists bool) *Module {
	if names == nil {
		names = stubparser.SymbolTable{}
	}
	return &Module{
		Path:     path,
		Names:    names,
		Exists:   exists,
		resolved: make(map[string]ResolvedName),
	}
}
