package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/stubscope/internal/check"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	var match, exclude []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every module and the stub file providing it",
		Long: `List enumerates installed stub packages, then installed packages, then the
typeshed corpus. Each module appears once, with the file a lookup of that
module would return.

Patterns match dotted module names: '*' stays within one segment and '**'
crosses segments.

Examples:
  stubscope list
  stubscope list --match 'os.*' --match sys`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := check.NewFilter(match, exclude)
			if err != nil {
				return err
			}

			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			for _, file := range filter.Select(s.finder.AllStubFiles()) {
				fmt.Fprintf(out, "%s\t%s\n", file.Module, file.Path)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&match, "match", nil, "Only list modules matching these patterns")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Skip modules matching these patterns")
	return cmd
}
