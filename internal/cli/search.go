package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/stubscope/internal/symbols"
)

func newSearchCmd(opts *rootOptions) *cobra.Command {
	var (
		search   symbols.SearchOptions
		exported bool
	)

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search every visible stub for names",
		Long: `Search indexes the names of every module the configuration can see and
runs a bleve query against them. Fields are name, text (the declaration),
module and kind.

Examples:
  stubscope search name:open
  stubscope search '+kind:class text:Mapping' --module 'collections*'
  stubscope search 'name:get*' --exported --limit 50`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			idx, err := symbols.Build(cmd.Context(), s.parser, symbols.WithLogger(s.logger))
			if err != nil {
				return err
			}
			defer idx.Close()

			stats := idx.Stats()
			s.logger.Debug("symbol index built", "modules", stats.Modules, "symbols", stats.Symbols)

			search.ExportedOnly = exported
			hits, err := idx.Search(cmd.Context(), args[0], &search)
			if err != nil {
				return err
			}
			if len(hits) == 0 {
				return fmt.Errorf("no names match %q", args[0])
			}

			out := cmd.OutOrStdout()
			for _, hit := range hits {
				first, _, _ := strings.Cut(hit.Text, "\n")
				fmt.Fprintf(out, "%s\t%s\t%s\n", hit.QualifiedName(), hit.Kind, strings.TrimSpace(first))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&search.Module, "module", "", "Wildcard filter on the module name")
	cmd.Flags().StringVar(&search.Kind, "kind", "", "Only show names of this kind (function, class, variable, import, module, overload)")
	cmd.Flags().BoolVar(&exported, "exported", false, "Only show exported names")
	cmd.Flags().IntVar(&search.Limit, "limit", 20, "Maximum number of results")
	return cmd
}
