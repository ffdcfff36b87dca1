package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/mvp-joe/stubscope/internal/check"
	"github.com/mvp-joe/stubscope/internal/finder"
)

// checkProgressReporter draws a progress bar while check runs and lists the
// failures at the end.
type checkProgressReporter struct {
	quiet bool
	out   io.Writer
	bar   *progressbar.ProgressBar
}

func newCheckProgressReporter(out io.Writer, quiet bool) *checkProgressReporter {
	return &checkProgressReporter{quiet: quiet, out: out}
}

func (c *checkProgressReporter) OnStart(total int) {
	if c.quiet {
		return
	}
	c.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription("Checking stubs"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("modules/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(c.out)
		}),
	)
}

func (c *checkProgressReporter) OnModule(file finder.StubFile, err error) {
	if c.quiet || c.bar == nil {
		return
	}
	_ = c.bar.Add(1)
}

func (c *checkProgressReporter) OnComplete(report *check.Report) {
	if c.bar != nil {
		_ = c.bar.Finish()
		c.bar = nil
	}
	if c.quiet {
		return
	}
	fmt.Fprintf(c.out, "✓ Checked %s modules in %.1fs, %d failed\n",
		formatNumber(report.Checked), report.Duration.Seconds(), len(report.Failures))
}

// formatNumber adds thousands separators.
func formatNumber(n int) string {
	if n < 1000 {
		return strconv.Itoa(n)
	}

	str := strconv.Itoa(n)
	var sb strings.Builder
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(c)
	}
	return sb.String()
}
