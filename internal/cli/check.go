package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/stubscope/internal/check"
	"github.com/mvp-joe/stubscope/internal/watcher"
)

func newCheckCmd(opts *rootOptions) *cobra.Command {
	var match, exclude []string
	var quiet, watch bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Parse every stub and report the ones that fail",
		Long: `Check enumerates the same modules as 'list' and builds each one's symbol
table. A failing module is reported and the run continues; the command exits
non-zero when any module failed.

Use --strict to treat parser warnings (name conflicts, star-import cycles)
as failures.

Examples:
  stubscope check
  stubscope check --strict --match 'email.**'
  stubscope check --quiet
  stubscope check --watch --match 'mylib.**'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := check.NewFilter(match, exclude)
			if err != nil {
				return err
			}

			run := func() (*session, error) {
				s, err := opts.open(cmd)
				if err != nil {
					return nil, err
				}
				defer s.Close()
				return s, runCheck(cmd, s, filter, quiet)
			}

			s, err := run()
			if !watch || s == nil {
				return err
			}
			if err != nil {
				s.logger.Error(err.Error())
			}
			return watchCheck(cmd, s, run)
		},
	}

	cmd.Flags().StringSliceVar(&match, "match", nil, "Only check modules matching these patterns")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Skip modules matching these patterns")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress output")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-run whenever a stub or VERSIONS changes")
	return cmd
}

func runCheck(cmd *cobra.Command, s *session, filter *check.Filter, quiet bool) error {
	reporter := newCheckProgressReporter(cmd.ErrOrStderr(), quiet)
	report, err := check.Run(cmd.Context(), s.parser, check.Options{Filter: filter, Reporter: reporter})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, f := range report.Failures {
		fmt.Fprintf(out, "FAIL %s\n", f.Error())
	}
	if !report.OK() {
		return fmt.Errorf("%d of %d modules failed", len(report.Failures), report.Checked)
	}
	return nil
}

// watchCheck re-runs the check with a fresh session after every batch of
// stub changes until the command's context is cancelled.
func watchCheck(cmd *cobra.Command, s *session, run func() (*session, error)) error {
	sc, err := s.cfg.SearchConfig()
	if err != nil {
		return err
	}
	var dirs []string
	for _, dir := range append([]string{sc.Typeshed()}, sc.SearchPath()...) {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			dirs = append(dirs, dir)
		}
	}

	w, err := watcher.New(dirs, watcher.WithLogger(s.logger))
	if err != nil {
		return fmt.Errorf("failed to watch stubs: %w", err)
	}
	defer w.Stop()

	ctx := cmd.Context()
	rerun := make(chan struct{}, 1)
	err = w.Start(ctx, func(files []string) {
		s.logger.Info("stubs changed", "files", len(files))
		select {
		case rerun <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return err
	}

	s.logger.Info("watching for changes", "dirs", dirs)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-rerun:
			if _, err := run(); err != nil {
				s.logger.Error(err.Error())
			}
		}
	}
}
