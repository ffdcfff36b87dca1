// Package symbols keeps a full-text index of the names every visible stub
// defines, so a name can be found without knowing which module holds it.
package symbols

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/charmbracelet/log"

	"github.com/mvp-joe/stubscope/internal/finder"
	"github.com/mvp-joe/stubscope/internal/stubparser"
	"github.com/mvp-joe/stubscope/internal/syntax"
)

// Symbol kinds stored in the kind field.
const (
	KindFunction = "function"
	KindClass    = "class"
	KindVariable = "variable"
	KindImport   = "import"
	KindModule   = "module"
	KindOverload = "overload"
	KindOther    = "other"
)

const (
	defaultLimit = 20
	maxLimit     = 200
	batchSize    = 1000
)

// Symbol is one indexed name. Members of a class are indexed with their
// dotted path, e.g. "Cls.method".
type Symbol struct {
	Module     finder.ModulePath `json:"module"`
	Name       string            `json:"name"`
	Kind       string            `json:"kind"`
	Exported   bool              `json:"exported"`
	Text       string            `json:"text"`
	Score      float64           `json:"score,omitempty"`
	Highlights []string          `json:"highlights,omitempty"`
}

// QualifiedName returns "module.name".
func (s Symbol) QualifiedName() string {
	return s.Module.Append(s.Name).String()
}

// SearchOptions narrows a search. The zero value searches everything.
type SearchOptions struct {
	// Module is a wildcard pattern on the module name ("*" and "?").
	Module string
	// Kind restricts hits to one symbol kind.
	Kind         string
	ExportedOnly bool
	Limit        int
}

// Stats describes what Build indexed.
type Stats struct {
	Modules int
	Symbols int
	Skipped []finder.ModulePath
}

// Index is an in-memory symbol index. It is safe for concurrent use.
type Index struct {
	index bleve.Index
	mu    sync.RWMutex
	stats Stats
}

// Option customizes Build.
type Option func(*options)

type options struct {
	logger *log.Logger
}

// WithLogger sets where modules that fail to parse are reported.
func WithLogger(logger *log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Build parses every stub p's finder can see and indexes its names. Modules
// that fail to parse are logged and skipped.
func Build(ctx context.Context, p *stubparser.Parser, opts ...Option) (*Index, error) {
	o := options{logger: log.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	index, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create symbol index: %w", err)
	}

	idx := &Index{index: index}
	if err := idx.load(ctx, p, o.logger); err != nil {
		index.Close()
		return nil, err
	}
	return idx, nil
}

// buildMapping indexes names and declarations as text, and module, kind and
// exported as exact keywords for filtering. The name field holds the last
// segment only; "Cls.method" would otherwise be a single token. The full
// dotted path is stored in path.
func buildMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()

	keyword := func(index bool) *mapping.FieldMapping {
		m := bleve.NewTextFieldMapping()
		m.Analyzer = "keyword"
		m.Store = true
		m.Index = index
		return m
	}

	nameMapping := bleve.NewTextFieldMapping()
	nameMapping.Analyzer = "standard"
	nameMapping.Store = true

	textMapping := bleve.NewTextFieldMapping()
	textMapping.Analyzer = "standard"
	textMapping.Store = true
	textMapping.IncludeTermVectors = true

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("id", keyword(false))
	docMapping.AddFieldMappingsAt("module", keyword(true))
	docMapping.AddFieldMappingsAt("name", nameMapping)
	docMapping.AddFieldMappingsAt("path", keyword(false))
	docMapping.AddFieldMappingsAt("kind", keyword(true))
	docMapping.AddFieldMappingsAt("exported", keyword(true))
	docMapping.AddFieldMappingsAt("text", textMapping)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

func (idx *Index) load(ctx context.Context, p *stubparser.Parser, logger *log.Logger) error {
	batch := idx.index.NewBatch()
	flush := func() error {
		if batch.Size() == 0 {
			return nil
		}
		if err := idx.index.Batch(batch); err != nil {
			return fmt.Errorf("failed to execute batch: %w", err)
		}
		batch = idx.index.NewBatch()
		return nil
	}

	for _, file := range p.Finder().AllStubFiles() {
		if err := ctx.Err(); err != nil {
			return err
		}

		table, found, err := p.GetStubNames(file.Module)
		if err != nil || !found {
			logger.Warn("skipping module", "module", file.Module, "error", err)
			idx.stats.Skipped = append(idx.stats.Skipped, file.Module)
			continue
		}
		idx.stats.Modules++

		for _, sym := range collect(file.Module, "", table) {
			if err := batch.Index(documentID(sym), toDocument(sym)); err != nil {
				return fmt.Errorf("failed to add %s to batch: %w", sym.QualifiedName(), err)
			}
			idx.stats.Symbols++
			if batch.Size() >= batchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}
	return flush()
}

// collect flattens a table and its class bodies into symbols.
func collect(module finder.ModulePath, prefix string, table stubparser.SymbolTable) []Symbol {
	var out []Symbol
	for _, name := range table.Names() {
		info := table[name]
		sym := Symbol{
			Module:   module,
			Name:     prefix + name,
			Kind:     KindOf(info.Decl),
			Exported: info.IsExported,
			Text:     info.Decl.String(),
		}
		out = append(out, sym)
		if info.Children != nil {
			out = append(out, collect(module, sym.Name+".", info.Children)...)
		}
	}
	return out
}

// KindOf classifies a declaration.
func KindOf(decl stubparser.Declaration) string {
	switch d := decl.(type) {
	case stubparser.ImportedName:
		if d.Name == "" {
			return KindModule
		}
		return KindImport
	case stubparser.OverloadGroup:
		return KindOverload
	case stubparser.RawNode:
		switch d.Node.(type) {
		case *syntax.FunctionDef:
			return KindFunction
		case *syntax.ClassDef:
			return KindClass
		case *syntax.Assign, *syntax.AnnAssign, *syntax.AugAssign:
			return KindVariable
		}
	}
	return KindOther
}

func documentID(sym Symbol) string {
	return sym.Module.String() + ":" + sym.Name
}

func lastSegment(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

func toDocument(sym Symbol) map[string]interface{} {
	return map[string]interface{}{
		"id":       documentID(sym),
		"module":   sym.Module.String(),
		"name":     lastSegment(sym.Name),
		"path":     sym.Name,
		"kind":     sym.Kind,
		"exported": strconv.FormatBool(sym.Exported),
		"text":     sym.Text,
	}
}

// Stats reports what the index holds.
func (idx *Index) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.stats
}

// Search runs a bleve query string ("name:open", "+kind:class text:int",
// "name:get*") and returns hits in score order. opts may be nil.
func (idx *Index) Search(ctx context.Context, queryStr string, opts *SearchOptions) ([]Symbol, error) {
	if queryStr == "" {
		return nil, errors.New("query must not be empty")
	}
	if opts == nil {
		opts = &SearchOptions{}
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	queries := []query.Query{bleve.NewQueryStringQuery(queryStr)}
	if opts.Module != "" {
		q := bleve.NewWildcardQuery(opts.Module)
		q.SetField("module")
		queries = append(queries, q)
	}
	if opts.Kind != "" {
		q := bleve.NewTermQuery(opts.Kind)
		q.SetField("kind")
		queries = append(queries, q)
	}
	if opts.ExportedOnly {
		q := bleve.NewTermQuery("true")
		q.SetField("exported")
		queries = append(queries, q)
	}

	var finalQuery query.Query = queries[0]
	if len(queries) > 1 {
		finalQuery = bleve.NewConjunctionQuery(queries...)
	}

	req := bleve.NewSearchRequestOptions(finalQuery, limit, 0, false)
	style := "html"
	req.Highlight = bleve.NewHighlight()
	req.Highlight.Style = &style
	req.Highlight.Fields = []string{"text"}
	req.Fields = []string{"module", "path", "kind", "exported", "text"}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	result, err := idx.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("symbol search failed: %w", err)
	}

	hits := make([]Symbol, 0, len(result.Hits))
	for _, hit := range result.Hits {
		module, _ := hit.Fields["module"].(string)
		name, _ := hit.Fields["path"].(string)
		kind, _ := hit.Fields["kind"].(string)
		exported, _ := hit.Fields["exported"].(string)
		text, _ := hit.Fields["text"].(string)

		sym := Symbol{
			Module:   finder.ModulePath(module),
			Name:     name,
			Kind:     kind,
			Exported: exported == "true",
			Text:     text,
			Score:    hit.Score,
		}
		for _, fragments := range hit.Fragments {
			sym.Highlights = append(sym.Highlights, fragments...)
		}
		hits = append(hits, sym)
	}
	return hits, nil
}

// Close releases the index.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.index.Close()
}
