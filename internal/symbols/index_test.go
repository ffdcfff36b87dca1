package symbols

import (
	"bytes"
	"context"
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

// Test Plan for Index:
// - Build indexes every module of the test corpus, class members included
// - Field queries find functions, classes, members and overload groups
// - Module, kind and exported filters narrow hits natively
// - Limit caps the number of hits
// - Modules that fail to parse are skipped and logged
// - Empty queries and cancelled builds fail

var (
	typeshedDir     = filepath.Join("..", "..", "testdata", "typeshed")
	sitePackagesDir = filepath.Join("..", "..", "testdata", "site-packages")
)

func buildIndex(t *testing.T) *Index {
	t.Helper()
	cfg := config.NewSearchConfig(typeshedDir, []string{sitePackagesDir}, config.Version{Major: 3, Minor: 12}, "linux")
	f, err := finder.New(cfg)
	require.NoError(t, err)
	p, err := stubparser.New(f, stubparser.WithLogger(log.New(&bytes.Buffer{})))
	require.NoError(t, err)

	idx, err := Build(context.Background(), p, WithLogger(log.New(&bytes.Buffer{})))
	require.NoError(t, err)
	t.Cleanup(func() {
		idx.Close()
		p.Close()
		f.Close()
	})
	return idx
}

func names(hits []Symbol) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.QualifiedName()
	}
	return out
}

func TestBuild_Stats(t *testing.T) {
	t.Parallel()
	idx := buildIndex(t)

	stats := idx.Stats()
	assert.Positive(t, stats.Modules)
	assert.Greater(t, stats.Symbols, stats.Modules)
	assert.Empty(t, stats.Skipped)
}

func TestSearch(t *testing.T) {
	t.Parallel()
	idx := buildIndex(t)
	ctx := context.Background()

	t.Run("function", func(t *testing.T) {
		t.Parallel()
		hits, err := idx.Search(ctx, "+name:func +module:simple", nil)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "simple.func", hits[0].QualifiedName())
		assert.Equal(t, KindFunction, hits[0].Kind)
		assert.True(t, hits[0].Exported)
		assert.Contains(t, hits[0].Text, "def func()")
	})

	t.Run("class and member", func(t *testing.T) {
		t.Parallel()
		hits, err := idx.Search(ctx, "name:cls", &SearchOptions{Module: "simple"})
		require.NoError(t, err)
		assert.Contains(t, names(hits), "simple.Cls")

		hits, err = idx.Search(ctx, "name:method", &SearchOptions{Module: "simple"})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "Cls.method", hits[0].Name)
		assert.Equal(t, KindFunction, hits[0].Kind)
	})

	t.Run("overloads", func(t *testing.T) {
		t.Parallel()
		hits, err := idx.Search(ctx, "name:overloaded", nil)
		require.NoError(t, err)
		require.NotEmpty(t, hits)
		assert.Equal(t, finder.ModulePath("overloads"), hits[0].Module)
		assert.Equal(t, KindOverload, hits[0].Kind)
	})

	t.Run("module wildcard", func(t *testing.T) {
		t.Parallel()
		hits, err := idx.Search(ctx, "name:exported", &SearchOptions{Module: "simp*"})
		require.NoError(t, err)
		assert.Equal(t, []string{"simple.exported"}, names(hits))

		hits, err = idx.Search(ctx, "name:exported", nil)
		require.NoError(t, err)
		assert.Contains(t, names(hits), "other.exported")
		assert.Contains(t, names(hits), "simple.exported")
	})

	t.Run("kind filter", func(t *testing.T) {
		t.Parallel()
		hits, err := idx.Search(ctx, "module:simple", &SearchOptions{Kind: KindModule, Limit: 50})
		require.NoError(t, err)
		assert.Equal(t, []string{"simple.other"}, names(hits))
	})

	t.Run("exported only", func(t *testing.T) {
		t.Parallel()
		all, err := idx.Search(ctx, "module:simple", &SearchOptions{Limit: 50})
		require.NoError(t, err)
		exported, err := idx.Search(ctx, "module:simple", &SearchOptions{ExportedOnly: true, Limit: 50})
		require.NoError(t, err)

		assert.Less(t, len(exported), len(all))
		assert.Contains(t, names(all), "simple._private")
		assert.NotContains(t, names(exported), "simple._private")
		for _, h := range exported {
			assert.True(t, h.Exported, h.QualifiedName())
		}
	})

	t.Run("limit", func(t *testing.T) {
		t.Parallel()
		hits, err := idx.Search(ctx, "module:simple", &SearchOptions{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, hits, 2)
	})

	t.Run("no hits", func(t *testing.T) {
		t.Parallel()
		hits, err := idx.Search(ctx, "name:nothing_by_this_name", nil)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("empty query", func(t *testing.T) {
		t.Parallel()
		_, err := idx.Search(ctx, "", nil)
		assert.Error(t, err)
	})
}

func TestBuild_SkipsBrokenModules(t *testing.T) {
	t.Parallel()

	mem := afero.NewMemMapFs()
	files := map[string]string{
		"/ts/VERSIONS":   "good: 3.0\nbroken: 3.0\n",
		"/ts/good.pyi":   "def ok() -> None: ...\n",
		"/ts/broken.pyi": "while True: ...\n",
	}
	for path, content := range files {
		require.NoError(t, afero.WriteFile(mem, path, []byte(content), 0o644))
	}
	cfg := config.NewSearchConfig("/ts", nil, config.Version{Major: 3, Minor: 12}, "linux")
	f, err := finder.New(cfg, finder.WithFs(mem))
	require.NoError(t, err)
	p, err := stubparser.New(f, stubparser.WithLogger(log.New(&bytes.Buffer{})))
	require.NoError(t, err)
	defer f.Close()
	defer p.Close()

	var logs bytes.Buffer
	idx, err := Build(context.Background(), p, WithLogger(log.New(&logs)))
	require.NoError(t, err)
	defer idx.Close()

	stats := idx.Stats()
	assert.Equal(t, 1, stats.Modules)
	assert.Equal(t, []finder.ModulePath{"broken"}, stats.Skipped)
	assert.Contains(t, logs.String(), "skipping module")

	hits, err := idx.Search(context.Background(), "name:ok", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"good.ok"}, names(hits))
}

func TestBuild_Cancelled(t *testing.T) {
	t.Parallel()
	cfg := config.NewSearchConfig(typeshedDir, nil, config.Version{Major: 3, Minor: 12}, "linux")
	f, err := finder.New(cfg)
	require.NoError(t, err)
	p, err := stubparser.New(f, stubparser.WithLogger(log.New(&bytes.Buffer{})))
	require.NoError(t, err)
	defer f.Close()
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Build(ctx, p)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	parse := func(src string) syntax.Node {
		mod, err := syntax.Parse("m.pyi", []byte(src))
		require.NoError(t, err)
		require.Len(t, mod.Body, 1)
		return mod.Body[0]
	}

	tests := []struct {
		name string
		decl stubparser.Declaration
		want string
	}{
		{"def", stubparser.RawNode{Node: parse("def f() -> None: ...\n")}, KindFunction},
		{"class", stubparser.RawNode{Node: parse("class C: ...\n")}, KindClass},
		{"annotated", stubparser.RawNode{Node: parse("x: int\n")}, KindVariable},
		{"assign", stubparser.RawNode{Node: parse("x = 1\n")}, KindVariable},
		{"other node", stubparser.RawNode{Node: parse("pass\n")}, KindOther},
		{"module", stubparser.ImportedName{Module: "os"}, KindModule},
		{"import", stubparser.ImportedName{Module: "os", Name: "path"}, KindImport},
		{"overload", stubparser.OverloadGroup{}, KindOverload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, KindOf(tt.decl))
		})
	}
}
