package cli

import (
	"github.com/spf13/cobra"

	"github.com/mvp-joe/stubscope/internal/mcp"
)

func newMCPCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve stub lookups to MCP clients over stdio",
		Long: `MCP starts a Model Context Protocol server on stdin/stdout. It exposes
stub_find, stub_names, stub_resolve, stub_exports and stub_search for the
configured corpus, version and platform. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			srv := mcp.NewServer(s.parser, Version, s.logger)
			defer srv.Close()
			return srv.Serve(cmd.Context())
		},
	}
}
