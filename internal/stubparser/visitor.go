package stubparser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mvp-joe/stubscope/internal/condition"
	"github.com/mvp-joe/stubscope/internal/finder"
	"github.com/mvp-joe/stubscope/internal/syntax"
)

type visitor struct {
	p       *Parser
	module  finder.ModulePath
	path    string
	isInit  bool
	lenient bool
	s       *session

	// excluded is set by a definitely-false assert and stops the traversal.
	excluded bool
}

func (v *visitor) visitAll(stmts []syntax.Stmt) ([]NameInfo, error) {
	var out []NameInfo
	for _, stmt := range stmts {
		if v.excluded {
			return nil, nil
		}
		infos, err := v.visit(stmt)
		if err != nil {
			return nil, err
		}
		out = append(out, infos...)
	}
	return out, nil
}

func (v *visitor) visit(stmt syntax.Stmt) ([]NameInfo, error) {
	switch n := stmt.(type) {
	case *syntax.FunctionDef:
		return []NameInfo{{Name: n.Name, IsExported: IsExportedName(n.Name), Decl: RawNode{Node: n}}}, nil

	case *syntax.ClassDef:
		body, err := v.visitAll(n.Body)
		if err != nil || v.excluded {
			return nil, err
		}
		children, err := v.fold(body, true)
		if err != nil {
			return nil, err
		}
		return []NameInfo{{Name: n.Name, IsExported: IsExportedName(n.Name), Decl: RawNode{Node: n}, Children: children}}, nil

	case *syntax.Assign:
		var out []NameInfo
		for _, target := range n.Targets {
			name, ok := target.(*syntax.Name)
			if !ok {
				if v.lenient {
					continue
				}
				return nil, invalidStub(v.path, "assignment should only be to a simple name: %s", syntax.Brief(n))
			}
			out = append(out, NameInfo{Name: name.ID, IsExported: IsExportedName(name.ID), Decl: RawNode{Node: n}})
		}
		return out, nil

	case *syntax.AnnAssign:
		name, ok := n.Target.(*syntax.Name)
		if !ok {
			return v.reject(n, "assignment should only be to a simple name")
		}
		return []NameInfo{{Name: name.ID, IsExported: IsExportedName(name.ID), Decl: RawNode{Node: n}}}, nil

	case *syntax.AugAssign:
		if n.Op != "+=" {
			return v.reject(n, "only += is allowed in stubs")
		}
		if name, ok := n.Target.(*syntax.Name); !ok || name.ID != "__all__" {
			return v.reject(n, "+= is allowed only for __all__")
		}
		return []NameInfo{{Name: "__all__", IsExported: true, Decl: RawNode{Node: n}}}, nil

	case *syntax.If:
		value, known, err := v.condition(n.Test)
		if err != nil {
			return nil, err
		}
		if !known {
			// can't tell which branch applies, so keep both
			body, err := v.visitAll(n.Body)
			if err != nil {
				return nil, err
			}
			orelse, err := v.visitAll(n.Else)
			if err != nil {
				return nil, err
			}
			return append(body, orelse...), nil
		}
		if value {
			return v.visitAll(n.Body)
		}
		return v.visitAll(n.Else)

	case *syntax.Try:
		// try/except is used for conditional imports; assume the body runs
		body, err := v.visitAll(n.Body)
		if err != nil {
			return nil, err
		}
		final, err := v.visitAll(n.Finally)
		if err != nil {
			return nil, err
		}
		return append(body, final...), nil

	case *syntax.Assert:
		value, known, err := v.condition(n.Test)
		if err != nil {
			return nil, err
		}
		if known && !value {
			v.excluded = true
		}
		return nil, nil

	case *syntax.Import:
		return v.visitImport(n), nil

	case *syntax.ImportFrom:
		return v.visitImportFrom(n)

	case *syntax.ExprStmt:
		if c, ok := n.Value.(*syntax.Constant); ok && (c.Kind == syntax.ConstEllipsis || c.Kind == syntax.ConstStr) {
			return nil, nil
		}
		if info, ok := dunderAllCall(n.Value); ok {
			return []NameInfo{info}, nil
		}
		return v.reject(n, "cannot handle expression")

	case *syntax.Pass:
		return nil, nil

	case *syntax.Unsupported:
		return v.reject(n, "cannot handle "+strings.ReplaceAll(n.Kind, "_", " "))

	default:
		return v.reject(stmt, fmt.Sprintf("cannot handle %T", stmt))
	}
}

// reject skips stmt in lenient mode and fails otherwise.
func (v *visitor) reject(stmt syntax.Node, msg string) ([]NameInfo, error) {
	if v.lenient {
		return nil, nil
	}
	return nil, invalidStub(v.path, "%s: %s", msg, syntax.Brief(stmt))
}

// condition evaluates a guard. known is false when the guard cannot be
// evaluated in lenient mode.
func (v *visitor) condition(test syntax.Expr) (value, known bool, err error) {
	value, err = condition.Test(test, v.p.env)
	if err == nil {
		return value, true, nil
	}
	var evalErr *condition.EvalError
	if v.lenient && errors.As(err, &evalErr) {
		return false, false, nil
	}
	return false, false, &InvalidStubError{Path: v.path, Message: err.Error(), Err: err}
}

func (v *visitor) visitImport(n *syntax.Import) []NameInfo {
	out := make([]NameInfo, 0, len(n.Names))
	for _, alias := range n.Names {
		if alias.AsName != "" {
			out = append(out, NameInfo{
				Name:       alias.AsName,
				IsExported: true,
				Decl:       ImportedName{Module: finder.ModulePath(alias.Name)},
			})
			continue
		}
		// "import a.b" binds only "a"
		head := finder.ModulePath(alias.Name).Head()
		out = append(out, NameInfo{Name: head, Decl: ImportedName{Module: finder.ModulePath(head)}})
	}
	return out
}

// sourceModule resolves the module an ImportFrom reads from. In a package's
// __init__ a single leading dot means the package itself.
func (v *visitor) sourceModule(n *syntax.ImportFrom) finder.ModulePath {
	stated := finder.ModulePath(n.Module)
	switch {
	case n.Level == 0:
		return stated
	case v.isInit:
		return v.module.TrimTail(n.Level - 1).Join(stated)
	default:
		return v.module.TrimTail(n.Level).Join(stated)
	}
}

func (v *visitor) visitImportFrom(n *syntax.ImportFrom) ([]NameInfo, error) {
	source := v.sourceModule(n)

	var out []NameInfo
	for _, alias := range n.Names {
		switch {
		case alias.AsName != "":
			out = append(out, NameInfo{
				Name:       alias.AsName,
				IsExported: IsExportedName(alias.AsName),
				Decl:       ImportedName{Module: source, Name: alias.Name},
			})

		case alias.Name == "*":
			if v.s.active[source] {
				if err := v.warn("star import cycle: %s re-enters %s", v.module, source); err != nil {
					return nil, err
				}
				v.s.incomplete = true
				continue
			}
			names, found, err := v.p.starImportNames(source, v.path, v.s)
			if err != nil {
				return nil, err
			}
			if !found {
				if err := v.warn("could not import %s in %s with %s", source, v.module, v.p.cfg); err != nil {
					return nil, err
				}
				continue
			}
			for _, name := range names {
				out = append(out, NameInfo{Name: name, IsExported: true, Decl: ImportedName{Module: source, Name: name}})
			}

		default:
			out = append(out, NameInfo{Name: alias.Name, Decl: ImportedName{Module: source, Name: alias.Name}})
		}
	}
	return out, nil
}

// dunderAllCall recognizes __all__.extend(x) and __all__.append(x).
func dunderAllCall(e syntax.Expr) (NameInfo, bool) {
	call, ok := e.(*syntax.Call)
	if !ok || len(call.Args) != 1 || call.Keywords != 0 {
		return NameInfo{}, false
	}
	attr, ok := call.Func.(*syntax.Attribute)
	if !ok {
		return NameInfo{}, false
	}
	if name, ok := attr.Value.(*syntax.Name); !ok || name.ID != "__all__" {
		return NameInfo{}, false
	}
	arg := call.Args[0]
	if _, starred := arg.(*syntax.Starred); starred {
		return NameInfo{}, false
	}

	switch attr.Attr {
	case "extend":
		return NameInfo{Name: "__all__", IsExported: true, Decl: RawNode{Node: arg}}, true
	case "append":
		return NameInfo{Name: "__all__", IsExported: true, Decl: RawNode{Node: syntax.NewList(arg, arg)}}, true
	}
	return NameInfo{}, false
}

// warn logs a conflict, or fails with it under strict warnings.
func (v *visitor) warn(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if v.p.cfg.StrictWarnings() {
		return invalidStub(v.path, "%s", msg)
	}
	v.p.logger.Warn(msg, "path", v.path)
	return nil
}
