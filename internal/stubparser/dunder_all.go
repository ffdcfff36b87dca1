package stubparser

import (
	"github.com/mvp-joe/stubscope/internal/syntax"
)

// DunderAllFromInfo extracts the literal value of __all__. Every contributing
// definition must be a list or tuple of string constants; their names are
// concatenated in definition order. path is only used in errors.
func DunderAllFromInfo(info NameInfo, path string) ([]string, error) {
	switch decl := info.Decl.(type) {
	case RawNode:
		return dunderAllFromNode(decl.Node, path)
	case OverloadGroup:
		var names []string
		for _, defn := range decl.Definitions {
			raw, ok := defn.(RawNode)
			if !ok {
				return nil, invalidStub(path, "invalid __all__: %s", info)
			}
			sub, err := dunderAllFromNode(raw.Node, path)
			if err != nil {
				return nil, err
			}
			names = append(names, sub...)
		}
		return names, nil
	default:
		return nil, invalidStub(path, "invalid __all__: %s", info)
	}
}

func dunderAllFromNode(n syntax.Node, path string) ([]string, error) {
	var rhs syntax.Node
	switch n := n.(type) {
	case *syntax.Assign:
		rhs = n.Value
	case *syntax.AugAssign:
		rhs = n.Value
	case *syntax.AnnAssign:
		if n.Value == nil {
			return nil, invalidStub(path, "invalid __all__: %s", syntax.Brief(n))
		}
		rhs = n.Value
	case *syntax.List, *syntax.Tuple:
		rhs = n
	default:
		return nil, invalidStub(path, "invalid __all__: %s", syntax.Brief(n))
	}

	var elts []syntax.Expr
	switch r := rhs.(type) {
	case *syntax.List:
		elts = r.Elts
	case *syntax.Tuple:
		elts = r.Elts
	default:
		return nil, invalidStub(path, "invalid __all__: %s", syntax.Brief(rhs))
	}

	names := make([]string, 0, len(elts))
	for _, elt := range elts {
		c, ok := elt.(*syntax.Constant)
		if !ok || c.Kind != syntax.ConstStr {
			return nil, invalidStub(path, "invalid __all__: %s", syntax.Brief(rhs))
		}
		names = append(names, c.Str)
	}
	return names, nil
}
