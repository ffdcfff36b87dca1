// Package condition folds the small expression subset stubs use to gate
// declarations on the target platform and interpreter version, e.g.
// `sys.platform == "win32"` or `sys.version_info >= (3, 10)`.
package condition

import (
	"fmt"

	"github.com/mvp-joe/stubscope/internal/config"
	"github.com/mvp-joe/stubscope/internal/syntax"
)

// Env holds the values of the symbolic reads a condition may make.
type Env struct {
	Platform string
	Version  config.Version
}

// EnvFor returns the environment a search configuration targets.
func EnvFor(cfg config.SearchConfig) Env {
	return Env{Platform: cfg.Platform(), Version: cfg.Version()}
}

// EvalError reports an expression outside the supported subset, or one that
// Python itself would reject (e.g. ordering a str against an int).
type EvalError struct {
	Pos    syntax.Pos
	Expr   string
	Reason string
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("cannot evaluate %q at %d:%d: %s", e.Expr, e.Pos.Line, e.Pos.Column, e.Reason)
}

func evalErr(n syntax.Node, format string, args ...any) error {
	err := &EvalError{Reason: fmt.Sprintf(format, args...)}
	if n != nil {
		err.Pos = n.Position()
		err.Expr = syntax.Brief(n)
	}
	return err
}

// Test evaluates e and reports its truth.
func Test(e syntax.Expr, env Env) (bool, error) {
	v, err := Evaluate(e, env)
	if err != nil {
		return false, err
	}
	return v.Truthy(), nil
}

// Evaluate folds e to a constant. Supported: literals, tuples, single
// comparisons, and/or, subscripts and slices, sys.platform,
// sys.version_info, TYPE_CHECKING and MYPY.
func Evaluate(e syntax.Expr, env Env) (Value, error) {
	switch n := e.(type) {
	case nil:
		return Value{}, evalErr(nil, "missing expression")
	case *syntax.Constant:
		return constant(n), nil
	case *syntax.Tuple:
		elts := make([]Value, 0, len(n.Elts))
		for _, elt := range n.Elts {
			v, err := Evaluate(elt, env)
			if err != nil {
				return Value{}, err
			}
			elts = append(elts, v)
		}
		return Tuple(elts...), nil
	case *syntax.Name:
		switch n.ID {
		case "TYPE_CHECKING":
			return Bool(true), nil
		case "MYPY":
			return Bool(false), nil
		}
		return Value{}, evalErr(n, "invalid name %q in stub condition", n.ID)
	case *syntax.Attribute:
		return attribute(n, env)
	case *syntax.Compare:
		return compare(n, env)
	case *syntax.BoolOp:
		return boolOp(n, env)
	case *syntax.Subscript:
		container, err := Evaluate(n.Value, env)
		if err != nil {
			return Value{}, err
		}
		key, err := Evaluate(n.Index, env)
		if err != nil {
			return Value{}, err
		}
		v, err := index(container, key)
		if err != nil {
			return Value{}, evalErr(n, "%v", err)
		}
		return v, nil
	case *syntax.Slice:
		return sliceValue(n, env)
	default:
		return Value{}, evalErr(e, "unsupported expression")
	}
}

func constant(c *syntax.Constant) Value {
	switch c.Kind {
	case syntax.ConstBool:
		return Bool(c.Bool)
	case syntax.ConstInt:
		return Int(c.Int)
	case syntax.ConstFloat:
		return Float(c.Float)
	case syntax.ConstStr:
		return Str(c.Str)
	case syntax.ConstBytes:
		return Bytes(c.Str)
	case syntax.ConstEllipsis:
		return Ellipsis()
	default:
		return None()
	}
}

func attribute(n *syntax.Attribute, env Env) (Value, error) {
	base, ok := n.Value.(*syntax.Name)
	if !ok {
		return Value{}, evalErr(n, "invalid code in stub")
	}
	if base.ID != "sys" {
		return Value{}, evalErr(n, "attribute access must be on the sys module")
	}
	switch n.Attr {
	case "platform":
		return Str(env.Platform), nil
	case "version_info":
		return Tuple(Int(int64(env.Version.Major)), Int(int64(env.Version.Minor))), nil
	}
	return Value{}, evalErr(n, "invalid attribute sys.%s", n.Attr)
}

func compare(n *syntax.Compare, env Env) (Value, error) {
	if len(n.Ops) != 1 || len(n.Comparators) != 1 {
		return Value{}, evalErr(n, "cannot evaluate chained comparison")
	}
	left, err := Evaluate(n.Left, env)
	if err != nil {
		return Value{}, err
	}
	right, err := Evaluate(n.Comparators[0], env)
	if err != nil {
		return Value{}, err
	}

	op := n.Ops[0]
	switch op {
	case "==":
		return Bool(Equal(left, right)), nil
	case "!=":
		return Bool(!Equal(left, right)), nil
	case "is":
		return Bool(identical(left, right)), nil
	case "is not":
		return Bool(!identical(left, right)), nil
	case "in", "not in":
		found, err := contains(right, left)
		if err != nil {
			return Value{}, evalErr(n, "%v", err)
		}
		return Bool(found == (op == "in")), nil
	case "<", "<=", ">", ">=":
		order, err := Compare(left, right)
		if err != nil {
			return Value{}, evalErr(n, "%v", err)
		}
		switch op {
		case "<":
			return Bool(order < 0), nil
		case "<=":
			return Bool(order <= 0), nil
		case ">":
			return Bool(order > 0), nil
		default:
			return Bool(order >= 0), nil
		}
	}
	return Value{}, evalErr(n, "unsupported comparison operator %q", op)
}

// boolOp short-circuits and yields the deciding operand, as Python does.
func boolOp(n *syntax.BoolOp, env Env) (Value, error) {
	if len(n.Values) == 0 {
		return Value{}, evalErr(n, "empty boolean operation")
	}
	var v Value
	for _, operand := range n.Values {
		var err error
		v, err = Evaluate(operand, env)
		if err != nil {
			return Value{}, err
		}
		switch n.Op {
		case "or":
			if v.Truthy() {
				return v, nil
			}
		case "and":
			if !v.Truthy() {
				return v, nil
			}
		default:
			return Value{}, evalErr(n, "unsupported boolean operator %q", n.Op)
		}
	}
	return v, nil
}

func sliceValue(n *syntax.Slice, env Env) (Value, error) {
	s := &slice{}
	parts := []struct {
		expr syntax.Expr
		dst  **int64
	}{{n.Lower, &s.lower}, {n.Upper, &s.upper}, {n.Step, &s.step}}

	for _, part := range parts {
		if part.expr == nil {
			continue
		}
		v, err := Evaluate(part.expr, env)
		if err != nil {
			return Value{}, err
		}
		if v.Kind == KindNone {
			continue
		}
		i, ok := v.asInt()
		if !ok {
			return Value{}, evalErr(n, "slice indices must be integers or None, not %s", v.Kind)
		}
		*part.dst = &i
	}
	if s.step != nil && *s.step == 0 {
		return Value{}, evalErr(n, "slice step cannot be zero")
	}
	return Value{Kind: KindSlice, slice: s}, nil
}
