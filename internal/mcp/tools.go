package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/stubscope/internal/finder"
	"github.com/mvp-joe/stubscope/internal/resolver"
	"github.com/mvp-joe/stubscope/internal/stubparser"
	"github.com/mvp-joe/stubscope/internal/symbols"
)

type toolHandler = func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// IndexSource returns the symbol index searches run against.
type IndexSource func(ctx context.Context) (*symbols.Index, error)

// FindResponse is the stub_find result.
type FindResponse struct {
	Module string `json:"module"`
	Found  bool   `json:"found"`
	Path   string `json:"path,omitempty"`
}

// NameEntry is one name of a symbol table. Members is set for classes.
type NameEntry struct {
	Name        string      `json:"name"`
	Kind        string      `json:"kind"`
	Exported    bool        `json:"exported"`
	Declaration string      `json:"declaration"`
	Members     []NameEntry `json:"members,omitempty"`
}

// NamesResponse is the stub_names result.
type NamesResponse struct {
	Module string      `json:"module"`
	Names  []NameEntry `json:"names"`
}

// ResolveResponse is the stub_resolve result. Result is one of "absent",
// "module", "re-export" or "direct".
type ResolveResponse struct {
	Name   string     `json:"name"`
	Result string     `json:"result"`
	Module string     `json:"module,omitempty"`
	Source string     `json:"source,omitempty"`
	Entry  *NameEntry `json:"entry,omitempty"`
}

// ExportsResponse is the stub_exports result. DunderAll tells whether the
// names come from __all__ or from the naming convention.
type ExportsResponse struct {
	Module    string   `json:"module"`
	DunderAll bool     `json:"dunder_all"`
	Names     []string `json:"names"`
}

// SearchResponse is the stub_search result.
type SearchResponse struct {
	Query    string           `json:"query"`
	Results  []symbols.Symbol `json:"results"`
	Total    int              `json:"total"`
	Metadata SearchMetadata   `json:"metadata"`
}

// SearchMetadata carries timing for a search.
type SearchMetadata struct {
	TookMs int `json:"took_ms"`
}

// AddFindTool registers stub_find.
func AddFindTool(s *server.MCPServer, p *stubparser.Parser) {
	tool := mcp.NewTool(
		"stub_find",
		mcp.WithDescription("Locate the stub file that provides a Python module for the configured version and platform."),
		mcp.WithString("module",
			mcp.Required(),
			mcp.Description("Dotted module name, e.g. 'os.path'")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
	s.AddTool(tool, createFindHandler(p))
}

func createFindHandler(p *stubparser.Parser) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}
		module, err := parseStringArg(argsMap, "module", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		path, found := p.Finder().GetStubFile(finder.ModulePath(module))
		return marshalToolResponse(&FindResponse{Module: module, Found: found, Path: path})
	}
}

// AddNamesTool registers stub_names.
func AddNamesTool(s *server.MCPServer, p *stubparser.Parser) {
	tool := mcp.NewTool(
		"stub_names",
		mcp.WithDescription(`List the names a Python module's stub defines.

Conditions on sys.version_info and sys.platform are already applied, so only
names that exist for the configured target are returned. Classes carry their
members.`),
		mcp.WithString("module",
			mcp.Required(),
			mcp.Description("Dotted module name, e.g. 'collections'")),
		mcp.WithBoolean("exported_only",
			mcp.Description("Skip private names (default: false)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
	s.AddTool(tool, createNamesHandler(p))
}

func createNamesHandler(p *stubparser.Parser) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}
		module, err := parseStringArg(argsMap, "module", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		exportedOnly := parseBoolArg(argsMap, "exported_only", false)

		table, found, err := p.GetStubNames(finder.ModulePath(module))
		if err != nil {
			return lookupError(err)
		}
		if !found {
			return mcp.NewToolResultError(fmt.Sprintf("module %s not found", module)), nil
		}
		return marshalToolResponse(&NamesResponse{Module: module, Names: tableEntries(table, exportedOnly)})
	}
}

// AddResolveTool registers stub_resolve.
func AddResolveTool(s *server.MCPServer, r *resolver.Resolver) {
	tool := mcp.NewTool(
		"stub_resolve",
		mcp.WithDescription(`Resolve a fully qualified name such as 'os.path.join', following
imports and re-exports to the module that defines it.

The result is "direct" for a definition in the named module, "re-export"
with the defining module as source, "module" when the name is bound to a
module, or "absent".`),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Fully qualified name")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
	s.AddTool(tool, createResolveHandler(r))
}

func createResolveHandler(r *resolver.Resolver) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}
		name, err := parseStringArg(argsMap, "name", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		res, err := r.GetFullyQualifiedName(name)
		if err != nil {
			return lookupError(err)
		}

		response := &ResolveResponse{Name: name}
		switch v := res.(type) {
		case resolver.Absent:
			response.Result = "absent"
		case resolver.ModuleReference:
			response.Result = "module"
			response.Module = v.Path.String()
		case resolver.ReExport:
			response.Result = "re-export"
			response.Source = v.Source.String()
			entry := nameEntry(v.Info, false)
			response.Entry = &entry
		case resolver.Direct:
			response.Result = "direct"
			entry := nameEntry(v.Info, false)
			response.Entry = &entry
		}
		return marshalToolResponse(response)
	}
}

// AddExportsTool registers stub_exports.
func AddExportsTool(s *server.MCPServer, r *resolver.Resolver) {
	tool := mcp.NewTool(
		"stub_exports",
		mcp.WithDescription("List the names 'from MODULE import *' binds: the module's __all__ when it has one, its exported names otherwise."),
		mcp.WithString("module",
			mcp.Required(),
			mcp.Description("Dotted module name")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
	s.AddTool(tool, createExportsHandler(r))
}

func createExportsHandler(r *resolver.Resolver) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}
		name, err := parseStringArg(argsMap, "module", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		module := finder.ModulePath(name)

		m, err := r.GetModule(module)
		if err != nil {
			return lookupError(err)
		}
		if !m.Exists {
			return mcp.NewToolResultError(fmt.Sprintf("module %s not found", module)), nil
		}

		names, found, err := r.GetDunderAll(module)
		if err != nil {
			return lookupError(err)
		}
		if !found {
			names = m.Names.Exported()
		}
		if names == nil {
			names = []string{}
		}
		return marshalToolResponse(&ExportsResponse{Module: name, DunderAll: found, Names: names})
	}
}

// AddSearchTool registers stub_search.
func AddSearchTool(s *server.MCPServer, source IndexSource) {
	tool := mcp.NewTool(
		"stub_search",
		mcp.WithDescription(`Full-text search over every name the visible stubs define, using bleve
query syntax.

Fields:
- name: the name itself (class members by their own name)
- text: the declaration source
- module: exact module name
- kind: function, class, variable, import, module, overload, other

Examples:
- name:open
- +kind:class text:Mapping
- name:get*`),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Bleve query string")),
		mcp.WithString("module",
			mcp.Description("Wildcard filter on the module name, e.g. 'os.*'")),
		mcp.WithString("kind",
			mcp.Description("Only return symbols of this kind")),
		mcp.WithBoolean("exported_only",
			mcp.Description("Skip private names (default: false)")),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results (1-200, default: 20)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
	s.AddTool(tool, createSearchHandler(source))
}

func createSearchHandler(source IndexSource) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		startTime := time.Now()

		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}
		query, err := parseStringArg(argsMap, "query", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		module, err := parseStringArg(argsMap, "module", false)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		kind, err := parseStringArg(argsMap, "kind", false)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		opts := &symbols.SearchOptions{
			Module:       module,
			Kind:         kind,
			ExportedOnly: parseBoolArg(argsMap, "exported_only", false),
			Limit:        parseClampedInt(argsMap, "limit", 20, 1, 200),
		}

		idx, err := source(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to build symbol index: %w", err)
		}
		results, err := idx.Search(ctx, query, opts)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return marshalToolResponse(&SearchResponse{
			Query:   query,
			Results: results,
			Total:   len(results),
			Metadata: SearchMetadata{
				TookMs: int(time.Since(startTime).Milliseconds()),
			},
		})
	}
}

// lookupError turns stub problems into tool errors the client can act on
// and leaves everything else as a server error.
func lookupError(err error) (*mcp.CallToolResult, error) {
	if errors.Is(err, stubparser.ErrInvalidStub) || errors.Is(err, resolver.ErrAliasCycle) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return nil, err
}

func tableEntries(table stubparser.SymbolTable, exportedOnly bool) []NameEntry {
	entries := []NameEntry{}
	for _, name := range table.Names() {
		info := table[name]
		if exportedOnly && !info.IsExported {
			continue
		}
		entries = append(entries, nameEntry(info, exportedOnly))
	}
	return entries
}

func nameEntry(info stubparser.NameInfo, exportedOnly bool) NameEntry {
	entry := NameEntry{
		Name:        info.Name,
		Kind:        symbols.KindOf(info.Decl),
		Exported:    info.IsExported,
		Declaration: info.Decl.String(),
	}
	if info.Children != nil {
		entry.Members = tableEntries(info.Children, exportedOnly)
	}
	return entry
}
