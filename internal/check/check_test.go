package check

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/stubscope/internal/config"
	"github.com/mvp-joe/stubscope/internal/finder"
	"github.com/mvp-joe/stubscope/internal/stubparser"
	"github.com/mvp-joe/stubscope/internal/syntax"
)

// Test Plan for check:
// - Every module of the test corpus parses and resolves through lookup
// - An X-stubs package shadowed by a corpus module is checked through the
//   corpus file and is not a failure
// - Strict warnings turn the star-import cycle into two failures
// - Failures stay per module; syntax errors and invalid stubs are reported
//   with their path and keep their error type
// - Filters narrow the run; "*" stays within a segment
// - A cancelled context stops the run and returns the partial report
// - The reporter sees start, each module and completion

var (
	typeshedDir     = filepath.Join("..", "..", "testdata", "typeshed")
	sitePackagesDir = filepath.Join("..", "..", "testdata", "site-packages")
)

func newParser(t *testing.T, opts ...config.SearchOption) *stubparser.Parser {
	t.Helper()
	cfg := config.NewSearchConfig(typeshedDir, []string{sitePackagesDir}, config.Version{Major: 3, Minor: 12}, "linux", opts...)
	f, err := finder.New(cfg)
	require.NoError(t, err)
	p, err := stubparser.New(f, stubparser.WithLogger(log.New(&bytes.Buffer{})))
	require.NoError(t, err)
	t.Cleanup(func() {
		p.Close()
		f.Close()
	})
	return p
}

func memParser(t *testing.T, files map[string]string) *stubparser.Parser {
	t.Helper()
	mem := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(mem, path, []byte(content), 0o644))
	}
	cfg := config.NewSearchConfig("/ts", nil, config.Version{Major: 3, Minor: 12}, "linux")
	f, err := finder.New(cfg, finder.WithFs(mem))
	require.NoError(t, err)
	p, err := stubparser.New(f, stubparser.WithLogger(log.New(&bytes.Buffer{})))
	require.NoError(t, err)
	t.Cleanup(func() {
		p.Close()
		f.Close()
	})
	return p
}

type recorder struct {
	total    int
	modules  []finder.ModulePath
	failed   []finder.ModulePath
	complete *Report
}

func (r *recorder) OnStart(total int) { r.total = total }

func (r *recorder) OnModule(file finder.StubFile, err error) {
	r.modules = append(r.modules, file.Module)
	if err != nil {
		r.failed = append(r.failed, file.Module)
	}
}

func (r *recorder) OnComplete(report *Report) { r.complete = report }

func failedModules(report *Report) []finder.ModulePath {
	out := make([]finder.ModulePath, 0, len(report.Failures))
	for _, f := range report.Failures {
		out = append(out, f.Module)
	}
	return out
}

func TestRun_TestCorpus(t *testing.T) {
	t.Parallel()

	p := newParser(t)
	rec := &recorder{}
	report, err := Run(context.Background(), p, Options{Reporter: rec})
	require.NoError(t, err)

	assert.True(t, report.OK(), "failures: %v", report.Failures)
	assert.Equal(t, len(p.Finder().AllStubFiles()), report.Checked)
	assert.Equal(t, report.Checked, rec.total)
	assert.Len(t, rec.modules, report.Checked)
	assert.Empty(t, rec.failed)
	assert.Same(t, report, rec.complete)
}

func TestRun_StrictWarnings(t *testing.T) {
	t.Parallel()

	p := newParser(t, config.WithStrictWarnings(true))
	report, err := Run(context.Background(), p, Options{})
	require.NoError(t, err)

	assert.False(t, report.OK())
	assert.Equal(t, []finder.ModulePath{"star_cycle_a", "star_cycle_b"}, failedModules(report))
	for _, f := range report.Failures {
		assert.ErrorIs(t, f.Err, stubparser.ErrInvalidStub)
	}
}

func TestRun_StubPackageOverCorpusModule(t *testing.T) {
	t.Parallel()

	mem := afero.NewMemMapFs()
	files := map[string]string{
		"/ts/VERSIONS":                 "foo: 3.0\nbar: 3.0\n",
		"/ts/foo.pyi":                  "x: int\n",
		"/ts/bar.pyi":                  "while True: ...\n",
		"/site/foo-stubs/__init__.pyi": "y: int\n",
		"/site/bar-stubs/__init__.pyi": "z: int\n",
	}
	for path, content := range files {
		require.NoError(t, afero.WriteFile(mem, path, []byte(content), 0o644))
	}
	cfg := config.NewSearchConfig("/ts", []string{"/site"}, config.Version{Major: 3, Minor: 12}, "linux")
	f, err := finder.New(cfg, finder.WithFs(mem))
	require.NoError(t, err)
	t.Cleanup(f.Close)
	p, err := stubparser.New(f, stubparser.WithLogger(log.New(&bytes.Buffer{})))
	require.NoError(t, err)
	t.Cleanup(p.Close)

	enumerated := map[finder.ModulePath]string{}
	for _, sf := range f.AllStubFiles() {
		enumerated[sf.Module] = sf.Path
	}
	require.Equal(t, "/site/foo-stubs/__init__.pyi", enumerated["foo"])
	resolved, ok := f.GetStubFile("foo")
	require.True(t, ok)
	require.Equal(t, "/ts/foo.pyi", resolved)

	report, err := Run(context.Background(), p, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Checked)

	// foo passes even though enumeration and lookup disagree on its file;
	// bar is judged by the corpus file lookup picks
	require.Len(t, report.Failures, 1)
	assert.Equal(t, finder.ModulePath("bar"), report.Failures[0].Module)
	assert.Equal(t, "/ts/bar.pyi", report.Failures[0].Path)
	assert.ErrorIs(t, report.Failures[0].Err, stubparser.ErrInvalidStub)
}

func TestRun_IsolatesFailures(t *testing.T) {
	t.Parallel()

	p := memParser(t, map[string]string{
		"/ts/VERSIONS":    "a: 3.0\nbroken: 3.0\nsyntax: 3.0\nz: 3.0\n",
		"/ts/a.pyi":       "x: int\n",
		"/ts/broken.pyi":  "while True: ...\n",
		"/ts/syntax.pyi":  "def (:\n",
		"/ts/z.pyi":       "from broken import *\ny: int\n",
		"/ts/unused.pyi":  "for x in y: ...\n",
		"/ts/VERSIONS.md": "not a stub\n",
	})

	report, err := Run(context.Background(), p, Options{})
	require.NoError(t, err)

	assert.Equal(t, 4, report.Checked)
	assert.Equal(t, []finder.ModulePath{"broken", "syntax", "z"}, failedModules(report))

	byModule := make(map[finder.ModulePath]Failure)
	for _, f := range report.Failures {
		byModule[f.Module] = f
	}

	broken := byModule["broken"]
	assert.Equal(t, "/ts/broken.pyi", broken.Path)
	assert.ErrorIs(t, broken.Err, stubparser.ErrInvalidStub)
	assert.Contains(t, broken.Error(), "broken (/ts/broken.pyi): ")

	var syntaxErr *syntax.SyntaxError
	require.True(t, errors.As(byModule["syntax"].Err, &syntaxErr))
	assert.Equal(t, 1, syntaxErr.Line)

	// the star import drags the broken module into z
	assert.ErrorIs(t, byModule["z"].Err, stubparser.ErrInvalidStub)
}

func TestRun_Filter(t *testing.T) {
	t.Parallel()

	filter, err := NewFilter([]string{"pkg.*", "cycle_?"}, []string{"cycle_b"})
	require.NoError(t, err)

	rec := &recorder{}
	report, err := Run(context.Background(), newParser(t), Options{Filter: filter, Reporter: rec})
	require.NoError(t, err)
	assert.True(t, report.OK())
	assert.Equal(t, []finder.ModulePath{"cycle_a", "pkg.sibling", "pkg.sub"}, rec.modules)
}

func TestRun_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &recorder{}
	report, err := Run(ctx, newParser(t), Options{Reporter: rec})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Zero(t, report.Checked)
	assert.Positive(t, rec.total)
	assert.Nil(t, rec.complete)
}

func TestFilter_Match(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		include []string
		exclude []string
		module  finder.ModulePath
		want    bool
	}{
		{"no patterns", nil, nil, "os.path", true},
		{"exact", []string{"os"}, nil, "os", true},
		{"star within segment", []string{"os.*"}, nil, "os.path", true},
		{"star stops at dot", []string{"os.*"}, nil, "os.path.x", false},
		{"star needs a segment", []string{"os.*"}, nil, "os", false},
		{"double star spans", []string{"os.**"}, nil, "os.path.x", true},
		{"alternatives", []string{"{os,sys}"}, nil, "sys", true},
		{"excluded", nil, []string{"_*"}, "_thread", false},
		{"exclude wins", []string{"**"}, []string{"test.**"}, "test.support", false},
		{"empty pattern ignored", []string{""}, nil, "os", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f, err := NewFilter(tt.include, tt.exclude)
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Match(tt.module))
		})
	}
}

func TestFilter_Invalid(t *testing.T) {
	t.Parallel()

	_, err := NewFilter([]string{"os.[a"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid module pattern "os.[a"`)

	var nilFilter *Filter
	assert.True(t, nilFilter.Match("anything"))
}
