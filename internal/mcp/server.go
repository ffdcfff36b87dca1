// Package mcp serves stub lookups to MCP clients over stdio: modules can be
// located, listed, resolved through re-exports and searched by name.
package mcp

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/stubscope/internal/resolver"
	"github.com/mvp-joe/stubscope/internal/stubparser"
	"github.com/mvp-joe/stubscope/internal/symbols"
)

// Server owns the MCP server and the lookups its tools share.
type Server struct {
	parser   *stubparser.Parser
	resolver *resolver.Resolver
	logger   *log.Logger
	mcp      *server.MCPServer

	mu    sync.Mutex
	index *symbols.Index
}

// NewServer registers every stub tool over p. The symbol index is built on
// the first search.
func NewServer(p *stubparser.Parser, version string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		parser:   p,
		resolver: resolver.New(p),
		logger:   logger,
		mcp: server.NewMCPServer(
			"stubscope",
			version,
			server.WithToolCapabilities(true),
		),
	}

	AddFindTool(s.mcp, p)
	AddNamesTool(s.mcp, p)
	AddResolveTool(s.mcp, s.resolver)
	AddExportsTool(s.mcp, s.resolver)
	AddSearchTool(s.mcp, s.symbolIndex)
	return s
}

// MCP returns the underlying server.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// symbolIndex builds the index once. A failed build is retried on the next
// call.
func (s *Server) symbolIndex(ctx context.Context) (*symbols.Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index != nil {
		return s.index, nil
	}
	idx, err := symbols.Build(ctx, s.parser, symbols.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}
	stats := idx.Stats()
	s.logger.Info("symbol index built", "modules", stats.Modules, "symbols", stats.Symbols, "skipped", len(stats.Skipped))
	s.index = idx
	return idx, nil
}

// Serve runs the server on stdio until the client disconnects or ctx is
// done.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting MCP server on stdio")
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down MCP server")
		return nil
	}
}

// Close releases the symbol index.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		return nil
	}
	err := s.index.Close()
	s.index = nil
	return err
}
