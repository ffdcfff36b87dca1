package resolver

import (
	"fmt"

	"github.com/mvp-joe/stubscope/internal/finder"
	"github.com/mvp-joe/stubscope/internal/stubparser"
)

// ResolvedName is the outcome of resolving a name: Absent, ModuleReference,
// ReExport or Direct.
type ResolvedName interface {
	resolvedName()
	String() string
}

// Absent means the name does not exist.
type Absent struct{}

// ModuleReference means the name is bound to a module.
type ModuleReference struct {
	Path finder.ModulePath
}

// ReExport is a definition reached through at least one alias. Source is
// the module the alias pointed at.
type ReExport struct {
	Source finder.ModulePath
	Info   stubparser.NameInfo
}

// Direct is a definition in the queried module itself.
type Direct struct {
	Info stubparser.NameInfo
}

func (Absent) resolvedName()          {}
func (ModuleReference) resolvedName() {}
func (ReExport) resolvedName()        {}
func (Direct) resolvedName()          {}

func (Absent) String() string { return "absent" }

func (r ModuleReference) String() string { return "module " + string(r.Path) }

func (r ReExport) String() string {
	return fmt.Sprintf("re-export from %s: %s", r.Source, r.Info)
}

func (r Direct) String() string { return r.Info.String() }
