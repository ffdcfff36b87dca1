package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/stubscope/internal/resolver"
)

func newResolveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve NAME",
		Short: "Follow a dotted name to its definition",
		Long: `Resolve splits NAME into a module and a final name, then follows imports
and re-exports until it reaches a definition or a module.

Examples:
  stubscope resolve os.path.join
  stubscope resolve collections.abc.Mapping`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := resolver.New(s.parser).GetFullyQualifiedName(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch v := res.(type) {
			case resolver.Absent:
				return fmt.Errorf("name %s not found", args[0])
			case resolver.ModuleReference:
				fmt.Fprintf(out, "module %s\n", v.Path)
			case resolver.ReExport:
				fmt.Fprintf(out, "%s re-exported from %s: %s\n", v.Info.Name, v.Source, summary(v.Info.Decl))
			case resolver.Direct:
				fmt.Fprintf(out, "%s: %s\n", v.Info.Name, summary(v.Info.Decl))
			}
			return nil
		},
	}
}
