// Package cli implements the stubscope command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mvp-joe/stubscope/internal/config"
	"github.com/mvp-joe/stubscope/internal/finder"
	"github.com/mvp-joe/stubscope/internal/stubparser"
)

// rootOptions holds the global flags and the viper instance they are bound
// to. Each command tree gets its own, so tests can build trees freely.
type rootOptions struct {
	cfgFile string
	verbose bool
	v       *viper.Viper
}

// NewRootCmd builds the stubscope command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "stubscope",
		Short: "Find, parse and resolve Python type stubs",
		Long: `stubscope locates .pyi stub files in a typeshed-style corpus and in
installed packages, builds their symbol tables for a target Python version
and platform, and follows re-exports across modules.

Examples:
  stubscope --typeshed ./typeshed/stdlib find os.path
  stubscope names collections
  stubscope resolve os.path.join
  stubscope check --match 'email.**'
  stubscope search 'name:join'`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (default is .stubscope/config.yml)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	flags.String("typeshed", "", "stub corpus root (the directory holding VERSIONS)")
	flags.StringSlice("search-path", nil, "extra roots searched for X-stubs and installed packages")
	flags.String("python-version", "", "target Python version, e.g. 3.12 (default 3.12)")
	flags.String("platform", "", "target sys.platform (default from the host OS)")
	flags.Bool("strict", false, "treat parser warnings as errors")
	flags.Bool("allow-py", false, "fall back to .py sources in installed packages")

	// Bind flags to viper
	_ = opts.v.BindPFlag("typeshed", flags.Lookup("typeshed"))
	_ = opts.v.BindPFlag("search_path", flags.Lookup("search-path"))
	_ = opts.v.BindPFlag("python_version", flags.Lookup("python-version"))
	_ = opts.v.BindPFlag("platform", flags.Lookup("platform"))
	_ = opts.v.BindPFlag("strict_warnings", flags.Lookup("strict"))
	_ = opts.v.BindPFlag("allow_py_files", flags.Lookup("allow-py"))

	cmd.AddCommand(
		newFindCmd(opts),
		newNamesCmd(opts),
		newResolveCmd(opts),
		newExportsCmd(opts),
		newListCmd(opts),
		newCheckCmd(opts),
		newSearchCmd(opts),
		newMCPCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the command line and exits non-zero on failure. Cancelling
// ctx stops a running check between modules.
func Execute(ctx context.Context) {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// session is everything a command needs to answer queries.
type session struct {
	cfg    *config.Config
	finder *finder.Finder
	parser *stubparser.Parser
	logger *log.Logger
}

func (s *session) Close() {
	s.parser.Close()
	s.finder.Close()
}

// open loads the configuration (flags > env > config file > defaults) and
// wires the finder and parser.
func (o *rootOptions) open(cmd *cobra.Command) (*session, error) {
	logger := log.NewWithOptions(cmd.ErrOrStderr(), log.Options{Prefix: "stubscope"})
	if o.verbose {
		logger.SetLevel(log.DebugLevel)
	}

	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	loaderOpts := []config.LoaderOption{config.WithViper(o.v)}
	if o.cfgFile != "" {
		loaderOpts = append(loaderOpts, config.WithConfigFile(o.cfgFile))
	}
	cfg, err := config.NewLoader(wd, loaderOpts...).Load()
	if err != nil {
		return nil, err
	}
	if used := o.v.ConfigFileUsed(); used != "" {
		logger.Debug("using config file", "path", used)
	}

	sc, err := cfg.SearchConfig()
	if err != nil {
		return nil, err
	}
	logger.Debug("search configuration", "config", sc)

	f, err := finder.New(sc, finder.WithLookupCapacity(cfg.Cache.LookupCapacity))
	if err != nil {
		return nil, err
	}
	p, err := stubparser.New(f,
		stubparser.WithLogger(logger),
		stubparser.WithTableCapacity(cfg.Cache.TableCapacity),
	)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &session{cfg: cfg, finder: f, parser: p, logger: logger}, nil
}
