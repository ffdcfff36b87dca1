package finder

import (
	"path/filepath"
	"strings"
	"unicode"
)

// ModulePath is a dotted module name such as "os.path". It is kept in its
// canonical dotted form so it can be used directly as a map key. The empty
// path is valid and never resolves.
type ModulePath string

// NewModulePath joins segments into a ModulePath.
func NewModulePath(parts ...string) ModulePath {
	return ModulePath("").Append(parts...)
}

// Parts returns the path's segments.
func (p ModulePath) Parts() []string {
	if p == "" {
		return nil
	}
	return strings.Split(string(p), ".")
}

// Len returns the number of segments.
func (p ModulePath) Len() int {
	if p == "" {
		return 0
	}
	return strings.Count(string(p), ".") + 1
}

func (p ModulePath) IsEmpty() bool { return p == "" }

// Head returns the top-level segment.
func (p ModulePath) Head() string {
	head, _, _ := strings.Cut(string(p), ".")
	return head
}

// Tail drops the top-level segment.
func (p ModulePath) Tail() ModulePath {
	_, tail, _ := strings.Cut(string(p), ".")
	return ModulePath(tail)
}

// Last returns the final segment.
func (p ModulePath) Last() string {
	if i := strings.LastIndexByte(string(p), '.'); i >= 0 {
		return string(p[i+1:])
	}
	return string(p)
}

// Parent drops the final segment.
func (p ModulePath) Parent() ModulePath {
	return p.TrimTail(1)
}

// TrimTail drops the last n segments. Dropping more segments than the path
// has yields the empty path, like slicing a Python tuple.
func (p ModulePath) TrimTail(n int) ModulePath {
	if n <= 0 {
		return p
	}
	parts := p.Parts()
	if n >= len(parts) {
		return ""
	}
	return ModulePath(strings.Join(parts[:len(parts)-n], "."))
}

// Append returns p extended by parts. Empty parts are skipped.
func (p ModulePath) Append(parts ...string) ModulePath {
	var sb strings.Builder
	sb.WriteString(string(p))
	for _, part := range parts {
		if part == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(part)
	}
	return ModulePath(sb.String())
}

// Join appends another dotted path.
func (p ModulePath) Join(other ModulePath) ModulePath {
	return p.Append(other.Parts()...)
}

func (p ModulePath) String() string { return string(p) }

var initNames = []string{"__init__.pyi", "__init__.py"}

// moduleFromPath derives the module name of a file from its path relative
// to a search root: "foo-stubs/bar/__init__.pyi" is "foo.bar".
func moduleFromPath(rel string) ModulePath {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	last := parts[len(parts)-1]
	for _, init := range initNames {
		if last == init {
			parts = parts[:len(parts)-1]
			break
		}
	}
	if n := len(parts); n > 0 {
		for _, ext := range []string{".pyi", ".py"} {
			if strings.HasSuffix(parts[n-1], ext) {
				parts[n-1] = strings.TrimSuffix(parts[n-1], ext)
				break
			}
		}
	}
	return ModulePath(strings.ReplaceAll(strings.Join(parts, "."), "-stubs", ""))
}

// isIdentifier reports whether s is a valid Python identifier.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', unicode.IsLetter(r):
		case i > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return true
}
