package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/stubscope/internal/finder"
	"github.com/mvp-joe/stubscope/internal/resolver"
	"github.com/mvp-joe/stubscope/internal/stubparser"
)

func newNamesCmd(opts *rootOptions) *cobra.Command {
	var exportedOnly bool

	cmd := &cobra.Command{
		Use:   "names MODULE",
		Short: "Print the symbol table of a module",
		Long: `Names prints every name a module defines for the configured Python version
and platform. Class members are indented under their class; private names
are marked.

Examples:
  stubscope names collections
  stubscope names --exported os`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			table, found, err := s.parser.GetStubNames(finder.ModulePath(args[0]))
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("module %s not found", args[0])
			}
			printTable(cmd.OutOrStdout(), table, 0, exportedOnly)
			return nil
		},
	}

	cmd.Flags().BoolVar(&exportedOnly, "exported", false, "Only print exported names")
	return cmd
}

func newExportsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "exports MODULE",
		Short: "Print the names a star import of MODULE binds",
		Long: `Exports prints the module's __all__ when it defines one (directly or
through a re-export), and its exported names otherwise.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			module := finder.ModulePath(args[0])
			r := resolver.New(s.parser)
			m, err := r.GetModule(module)
			if err != nil {
				return err
			}
			if !m.Exists {
				return fmt.Errorf("module %s not found", module)
			}

			names, found, err := r.GetDunderAll(module)
			if err != nil {
				return err
			}
			if !found {
				names = m.Names.Exported()
			}
			out := cmd.OutOrStdout()
			for _, name := range names {
				fmt.Fprintln(out, name)
			}
			return nil
		},
	}
}

func printTable(out io.Writer, table stubparser.SymbolTable, depth int, exportedOnly bool) {
	indent := strings.Repeat("  ", depth)
	for _, name := range table.Names() {
		info := table[name]
		if exportedOnly && !info.IsExported {
			continue
		}
		marker := ""
		if !info.IsExported {
			marker = " (private)"
		}
		fmt.Fprintf(out, "%s%s%s: %s\n", indent, name, marker, summary(info.Decl))
		if info.Children != nil {
			printTable(out, info.Children, depth+1, exportedOnly)
		}
	}
}

// summary is a one-line rendering of a declaration.
func summary(decl stubparser.Declaration) string {
	switch d := decl.(type) {
	case stubparser.RawNode:
		first, _, more := strings.Cut(d.String(), "\n")
		if more {
			return strings.TrimSpace(first) + " ..."
		}
		return first
	case stubparser.OverloadGroup:
		return fmt.Sprintf("%d overloads", len(d.Definitions))
	default:
		return decl.String()
	}
}
