package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/stubscope/internal/finder"
)

func newFindCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "find MODULE",
		Short: "Print the stub file that provides a module",
		Long: `Find prints the file a module resolves to, searching the typeshed corpus
first, then X-stubs packages, then installed packages.

Examples:
  stubscope find os.path
  stubscope find --python-version 2.7 --platform win32 _winreg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			path, ok := s.finder.GetStubFile(finder.ModulePath(args[0]))
			if !ok {
				return fmt.Errorf("module %s not found", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}
