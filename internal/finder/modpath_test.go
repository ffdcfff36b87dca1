package finder

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModulePath(t *testing.T) {
	t.Parallel()

	p := NewModulePath("os", "path")
	assert.Equal(t, ModulePath("os.path"), p)
	assert.Equal(t, []string{"os", "path"}, p.Parts())
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, "os", p.Head())
	assert.Equal(t, ModulePath("path"), p.Tail())
	assert.Equal(t, "path", p.Last())
	assert.Equal(t, ModulePath("os"), p.Parent())
	assert.Equal(t, ModulePath("os.path.sep"), p.Append("sep"))
	assert.Equal(t, ModulePath("os.path.a.b"), p.Join("a.b"))

	var empty ModulePath
	assert.True(t, empty.IsEmpty())
	assert.Equal(t, 0, empty.Len())
	assert.Nil(t, empty.Parts())
	assert.Equal(t, ModulePath("x"), empty.Append("", "x"))
}

func TestModulePath_TrimTail(t *testing.T) {
	t.Parallel()

	p := ModulePath("a.b.c")
	assert.Equal(t, p, p.TrimTail(0))
	assert.Equal(t, ModulePath("a.b"), p.TrimTail(1))
	assert.Equal(t, ModulePath("a"), p.TrimTail(2))
	assert.Equal(t, ModulePath(""), p.TrimTail(3))
	assert.Equal(t, ModulePath(""), p.TrimTail(10))
}

func TestModuleFromPath(t *testing.T) {
	t.Parallel()

	tests := map[string]ModulePath{
		"foo.pyi":                    "foo",
		"foo/__init__.pyi":           "foo",
		"foo/bar.pyi":                "foo.bar",
		"foo-stubs/__init__.pyi":     "foo",
		"foo-stubs/bar/__init__.pyi": "foo.bar",
		"pkg/mod.py":                 "pkg.mod",
		filepath.Join("a", "b.pyi"):  "a.b",
	}
	for path, want := range tests {
		assert.Equal(t, want, moduleFromPath(path), path)
	}
}

func TestIsIdentifier(t *testing.T) {
	t.Parallel()

	assert.True(t, isIdentifier("foo"))
	assert.True(t, isIdentifier("_foo1"))
	assert.True(t, isIdentifier("éclair"))
	assert.False(t, isIdentifier(""))
	assert.False(t, isIdentifier("1foo"))
	assert.False(t, isIdentifier("foo-stubs"))
	assert.False(t, isIdentifier("@python2"))
}
