package finder

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/stubscope/internal/config"
)

// Test Plan for Finder:
// - Corpus lookups honor the manifest's min/max versions
// - Legacy overlay wins at major version 2; legacy-only modules never fall
//   back to the main corpus; others do
// - Modules missing from the manifest are never found
// - Packages resolve to __init__.pyi, submodules to nested files
// - X-stubs beats X; X is searched per submodule when X-stubs lacks it
// - .py sources are found only with AllowPyFiles
// - Missing search roots and failing stats read as "does not exist"
// - A missing manifest fails New with ErrManifestNotFound
// - A fresh finder sees manifest and legacy overlay edits
// - Lookups are memoized, misses included
// - AllStubFiles yields each module once in tier order, skipping
//   directories without __init__, non-identifier directories and .py files
// - GetStubAST parses the located file; ParseStubFile reads through the
//   finder's filesystem

var (
	typeshedDir     = filepath.Join("..", "..", "testdata", "typeshed")
	sitePackagesDir = filepath.Join("..", "..", "testdata", "site-packages")
)

func newTestFinder(t *testing.T, version config.Version, opts ...config.SearchOption) *Finder {
	t.Helper()
	cfg := config.NewSearchConfig(typeshedDir, []string{sitePackagesDir}, version, "linux", opts...)
	f, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(f.Close)
	return f
}

func v(major, minor int) config.Version {
	return config.Version{Major: major, Minor: minor}
}

func TestGetStubFile_Typeshed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		module  string
		version config.Version
		want    string // relative to typeshed; "" means not found
	}{
		{"current version", "lib", v(3, 12), "lib.pyi"},
		{"legacy overlay wins", "lib", v(2, 7), "@python2/lib.pyi"},
		{"overlay miss falls back", "shared", v(2, 7), "shared.pyi"},
		{"legacy only module", "py2only", v(2, 7), "@python2/py2only.pyi"},
		{"legacy only module removed", "py2only", v(3, 12), ""},
		{"before min version", "newlib", v(3, 3), ""},
		{"at min version", "newlib", v(3, 4), "newlib.pyi"},
		{"at max version", "oldlib", v(3, 5), "oldlib.pyi"},
		{"after max version", "oldlib", v(3, 6), ""},
		{"not in manifest", "unlisted", v(3, 12), ""},
		{"package", "pkg", v(3, 12), "pkg/__init__.pyi"},
		{"submodule", "pkg.sub", v(3, 12), "pkg/sub.pyi"},
		{"missing submodule", "pkg.missing", v(3, 12), ""},
		{"unknown module", "nosuchmodule", v(3, 12), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newTestFinder(t, tt.version)

			got, ok := f.GetStubFile(ModulePath(tt.module))
			if tt.want == "" {
				assert.False(t, ok)
				assert.Empty(t, got)
				return
			}
			require.True(t, ok)
			assert.Equal(t, filepath.Join(typeshedDir, tt.want), got)
		})
	}
}

func TestGetStubFile_SearchPath(t *testing.T) {
	t.Parallel()

	f := newTestFinder(t, v(3, 12))

	tests := []struct {
		module string
		want   string // relative to site-packages
	}{
		{"foo", "foo-stubs/__init__.pyi"},
		{"foo.bar", "foo-stubs/bar.pyi"},
		{"foo.extra", "foo/extra.pyi"},
		{"baz", "baz/__init__.pyi"},
		{"baz.notpkg.mod", "baz/notpkg/mod.pyi"},
		{"baz.qux", ""},
		{"baz.lenient", ""},
	}

	for _, tt := range tests {
		got, ok := f.GetStubFile(ModulePath(tt.module))
		if tt.want == "" {
			assert.False(t, ok, tt.module)
			continue
		}
		require.True(t, ok, tt.module)
		assert.Equal(t, filepath.Join(sitePackagesDir, tt.want), got, tt.module)
	}
}

func TestGetStubFile_AllowPyFiles(t *testing.T) {
	t.Parallel()

	f := newTestFinder(t, v(3, 12), config.WithAllowPyFiles(true))

	got, ok := f.GetStubFile("baz.qux")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(sitePackagesDir, "baz", "qux.py"), got)

	// .pyi still wins
	got, ok = f.GetStubFile("baz")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(sitePackagesDir, "baz", "__init__.pyi"), got)
}

func TestGetStubFile_EmptyName(t *testing.T) {
	t.Parallel()

	f := newTestFinder(t, v(3, 12))
	_, ok := f.GetStubFile("")
	assert.False(t, ok)
}

func TestGetStubFile_MissingSearchRoot(t *testing.T) {
	t.Parallel()

	cfg := config.NewSearchConfig(typeshedDir, []string{filepath.Join(t.TempDir(), "missing"), sitePackagesDir}, v(3, 12), "linux")
	f, err := New(cfg)
	require.NoError(t, err)
	defer f.Close()

	_, ok := f.GetStubFile("foo")
	assert.True(t, ok)
}

// statFailingFs fails every Stat under prefix, like a permission error would.
type statFailingFs struct {
	afero.Fs
	prefix string
}

func (fs statFailingFs) Stat(name string) (os.FileInfo, error) {
	if strings.HasPrefix(name, fs.prefix) {
		return nil, os.ErrPermission
	}
	return fs.Fs.Stat(name)
}

func TestGetStubFile_ProbeErrorsAreMisses(t *testing.T) {
	t.Parallel()

	mem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(mem, "/ts/VERSIONS", []byte("mod: 3.0\n"), 0o644))
	require.NoError(t, afero.WriteFile(mem, "/ts/mod.pyi", []byte("x: int\n"), 0o644))
	require.NoError(t, afero.WriteFile(mem, "/site/locked/__init__.pyi", []byte("y: int\n"), 0o644))

	cfg := config.NewSearchConfig("/ts", []string{"/site"}, v(3, 12), "linux")
	f, err := New(cfg, WithFs(statFailingFs{Fs: mem, prefix: "/site/locked"}))
	require.NoError(t, err)
	defer f.Close()

	_, ok := f.GetStubFile("locked")
	assert.False(t, ok)

	path, ok := f.GetStubFile("mod")
	require.True(t, ok)
	assert.Equal(t, "/ts/mod.pyi", path)
}

func TestGetStubFile_Memoized(t *testing.T) {
	t.Parallel()

	mem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(mem, "/ts/VERSIONS", []byte("mod: 3.0\n"), 0o644))
	require.NoError(t, afero.WriteFile(mem, "/ts/mod.pyi", []byte("x: int\n"), 0o644))

	f, err := New(config.NewSearchConfig("/ts", nil, v(3, 12), "linux"), WithFs(mem))
	require.NoError(t, err)
	defer f.Close()

	_, ok := f.GetStubFile("mod.sub")
	require.False(t, ok)
	path, ok := f.GetStubFile("mod")
	require.True(t, ok)

	// the corpus is assumed immutable, so changes are not observed
	require.NoError(t, mem.Remove("/ts/mod.pyi"))
	require.NoError(t, afero.WriteFile(mem, "/ts/mod/sub.pyi", []byte("y: int\n"), 0o644))

	again, ok := f.GetStubFile("mod")
	assert.True(t, ok)
	assert.Equal(t, path, again)
	_, ok = f.GetStubFile("mod.sub")
	assert.False(t, ok)
}

func TestNew_MissingManifest(t *testing.T) {
	t.Parallel()

	cfg := config.NewSearchConfig(t.TempDir(), nil, v(3, 12), "linux")
	_, err := New(cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrManifestNotFound))
}

func TestNew_MalformedManifest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestName), []byte("good: 3.0\nbad line\n"), 0o644))

	_, err := New(config.NewSearchConfig(dir, nil, v(3, 12), "linux"))
	require.Error(t, err)

	var manifestErr *ManifestError
	require.True(t, errors.As(err, &manifestErr))
	assert.Equal(t, 2, manifestErr.Line)
	assert.Equal(t, "bad line", manifestErr.Text)
}

func TestNew_RereadsEditedManifest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	manifest := filepath.Join(dir, ManifestName)
	for _, name := range []string{"a.pyi", "b.pyi", "c.pyi"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x: int\n"), 0o644))
	}
	cfg := config.NewSearchConfig(dir, nil, v(3, 12), "linux")

	edit := func(content string, age time.Duration) {
		t.Helper()
		require.NoError(t, os.WriteFile(manifest, []byte(content), 0o644))
		stamp := time.Now().Add(-age)
		require.NoError(t, os.Chtimes(manifest, stamp, stamp))
	}
	lookup := func(name ModulePath) bool {
		t.Helper()
		f, err := New(cfg)
		require.NoError(t, err)
		defer f.Close()
		_, ok := f.GetStubFile(name)
		return ok
	}

	edit("a: 3.0\n", 3*time.Hour)
	assert.True(t, lookup("a"))
	assert.False(t, lookup("b"))

	// module added
	edit("a: 3.0\nb: 3.0\n", 2*time.Hour)
	assert.True(t, lookup("b"), "a fresh finder should see the added module")

	// same size, different module
	edit("a: 3.0\nc: 3.0\n", time.Hour)
	assert.False(t, lookup("b"), "a fresh finder should drop the removed module")
	assert.True(t, lookup("c"))
}

func TestNew_RereadsLegacyOverlay(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	legacy := filepath.Join(dir, LegacyDir)
	require.NoError(t, os.MkdirAll(legacy, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestName), []byte("old: 2.7\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.pyi"), []byte("x: int\n"), 0o644))
	stamp := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(legacy, stamp, stamp))

	cfg := config.NewSearchConfig(dir, nil, v(3, 12), "linux")
	f, err := New(cfg)
	require.NoError(t, err)
	assert.False(t, f.Versions()["old"].LegacyOnly)
	f.Close()

	require.NoError(t, os.WriteFile(filepath.Join(legacy, "old.pyi"), []byte("x: int\n"), 0o644))
	now := time.Now()
	require.NoError(t, os.Chtimes(legacy, now, now))

	f, err = New(cfg)
	require.NoError(t, err)
	defer f.Close()
	assert.True(t, f.Versions()["old"].LegacyOnly, "a fresh finder should see the overlay listing change")
}

func TestNew_InvalidCapacity(t *testing.T) {
	t.Parallel()

	_, err := New(config.NewSearchConfig(typeshedDir, nil, v(3, 12), "linux"), WithLookupCapacity(0))
	assert.Error(t, err)
}

func TestGetStubAST(t *testing.T) {
	t.Parallel()

	f := newTestFinder(t, v(3, 12))

	mod, found, err := f.GetStubAST("other")
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, mod.Body, 4)
	assert.Equal(t, filepath.Join(typeshedDir, "other.pyi"), mod.Path)

	mod, found, err = f.GetStubAST("nosuchmodule")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, mod)
}

func TestParseStubFile_SyntaxError(t *testing.T) {
	t.Parallel()

	mem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(mem, "/ts/VERSIONS", []byte("broken: 3.0\n"), 0o644))
	require.NoError(t, afero.WriteFile(mem, "/ts/broken.pyi", []byte("def (:\n"), 0o644))

	f, err := New(config.NewSearchConfig("/ts", nil, v(3, 12), "linux"), WithFs(mem))
	require.NoError(t, err)
	defer f.Close()

	_, found, err := f.GetStubAST("broken")
	assert.True(t, found)
	assert.Error(t, err)
}

func TestParseStubFile(t *testing.T) {
	t.Parallel()

	mem := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(mem, "/ts/VERSIONS", []byte("mod: 3.0\n"), 0o644))
	require.NoError(t, afero.WriteFile(mem, "/elsewhere/mod.pyi", []byte("x: int\n"), 0o644))

	f, err := New(config.NewSearchConfig("/ts", nil, v(3, 12), "linux"), WithFs(mem))
	require.NoError(t, err)
	defer f.Close()

	mod, err := f.ParseStubFile("/elsewhere/mod.pyi")
	require.NoError(t, err)
	assert.Equal(t, "/elsewhere/mod.pyi", mod.Path)
	assert.Len(t, mod.Body, 1)

	_, err = f.ParseStubFile("/elsewhere/missing.pyi")
	assert.Error(t, err)
}

func modules(files []StubFile) []string {
	out := make([]string, 0, len(files))
	for _, sf := range files {
		out = append(out, sf.Module.String())
	}
	return out
}

func TestAllStubFiles_Current(t *testing.T) {
	t.Parallel()

	f := newTestFinder(t, v(3, 12))
	files := f.AllStubFiles()

	assert.Equal(t, []string{
		// foo-stubs
		"foo", "foo.bar",
		// normal packages
		"baz", "foo.extra",
		// corpus files, then packages
		"conditions", "cycle_a", "cycle_b", "dunder_all", "gated", "imported",
		"lib", "newlib", "other", "overloads", "reexport", "shared", "simple",
		"star_all", "star_cycle_a", "star_cycle_b", "starimport",
		"pkg", "pkg.sibling", "pkg.sub",
	}, modules(files))

	for _, sf := range files {
		if sf.Module == "foo" {
			assert.Equal(t, filepath.Join(sitePackagesDir, "foo-stubs", "__init__.pyi"), sf.Path)
		}
		assert.Equal(t, ".pyi", filepath.Ext(sf.Path))
	}
}

func TestAllStubFiles_Legacy(t *testing.T) {
	t.Parallel()

	cfg := config.NewSearchConfig(typeshedDir, nil, v(2, 7), "linux")
	f, err := New(cfg)
	require.NoError(t, err)
	defer f.Close()

	files := f.AllStubFiles()
	assert.Equal(t, []string{"lib", "py2only", "conditions", "oldlib", "shared"}, modules(files))
	assert.Equal(t, filepath.Join(typeshedDir, "@python2", "lib.pyi"), files[0].Path)
}

func TestAllStubFiles_MatchesLookup(t *testing.T) {
	t.Parallel()

	f := newTestFinder(t, v(3, 12))
	for _, sf := range f.AllStubFiles() {
		path, ok := f.GetStubFile(sf.Module)
		require.True(t, ok, sf.Module)
		assert.Equal(t, sf.Path, path, sf.Module)
	}
}
