package stubparser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mvp-joe/stubscope/internal/finder"
	"github.com/mvp-joe/stubscope/internal/syntax"
)

// Declaration is what a name is bound to: a RawNode, an ImportedName or an
// OverloadGroup.
type Declaration interface {
	declaration()
	String() string
}

// RawNode is a definition in the stub itself: a def, class, assignment, or
// for __all__ manipulations a list expression.
type RawNode struct {
	Node syntax.Node
}

// ImportedName aliases a name from another module. An empty Name means the
// alias is the module itself ("import os").
type ImportedName struct {
	Module finder.ModulePath
	Name   string
}

// OverloadGroup collects two or more definitions of one name, in source order.
// Members are RawNode or ImportedName, never nested groups.
type OverloadGroup struct {
	Definitions []Declaration
}

func (RawNode) declaration()       {}
func (ImportedName) declaration()  {}
func (OverloadGroup) declaration() {}

func (d RawNode) String() string {
	return syntax.Brief(d.Node)
}

func (d ImportedName) String() string {
	if d.Name == "" {
		return "import " + d.Module.String()
	}
	return fmt.Sprintf("from %s import %s", d.Module, d.Name)
}

func (d OverloadGroup) String() string {
	parts := make([]string, len(d.Definitions))
	for i, defn := range d.Definitions {
		parts[i] = defn.String()
	}
	return "overloads[" + strings.Join(parts, "; ") + "]"
}

// NameInfo describes one name in a module or class body. Children is non-nil
// exactly for classes and holds the class body's names.
type NameInfo struct {
	Name       string
	IsExported bool
	Decl       Declaration
	Children   SymbolTable
}

func (i NameInfo) String() string {
	return fmt.Sprintf("NameInfo(name=%s, exported=%t, %s)", i.Name, i.IsExported, i.Decl)
}

// SymbolTable maps names to their NameInfo. Tables returned by the parser
// are shared through its cache and must not be modified.
type SymbolTable map[string]NameInfo

// Names returns all names, sorted.
func (t SymbolTable) Names() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Exported returns the exported names, sorted.
func (t SymbolTable) Exported() []string {
	var names []string
	for name, info := range t {
		if info.IsExported {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// IsExportedName applies the naming convention: a leading underscore makes a
// name private.
func IsExportedName(name string) bool {
	return !strings.HasPrefix(name, "_")
}

func equalInfo(a, b NameInfo) bool {
	return a.Name == b.Name &&
		a.IsExported == b.IsExported &&
		equalDecl(a.Decl, b.Decl) &&
		equalTables(a.Children, b.Children)
}

// equalDecl compares raw nodes by identity and imports by target.
func equalDecl(a, b Declaration) bool {
	switch x := a.(type) {
	case RawNode:
		y, ok := b.(RawNode)
		return ok && x.Node == y.Node
	case ImportedName:
		y, ok := b.(ImportedName)
		return ok && x == y
	case OverloadGroup:
		y, ok := b.(OverloadGroup)
		if !ok || len(x.Definitions) != len(y.Definitions) {
			return false
		}
		for i := range x.Definitions {
			if !equalDecl(x.Definitions[i], y.Definitions[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func equalTables(a, b SymbolTable) bool {
	if (a == nil) != (b == nil) || len(a) != len(b) {
		return false
	}
	for name, x := range a {
		y, ok := b[name]
		if !ok || !equalInfo(x, y) {
			return false
		}
	}
	return true
}
