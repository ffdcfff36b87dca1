// Package check parses every stub a configuration can see and collects the
// failures. One broken file never stops the run.
package check

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mvp-joe/stubscope/internal/finder"
	"github.com/mvp-joe/stubscope/internal/stubparser"
)

// Reporter receives progress while a check runs.
type Reporter interface {
	OnStart(total int)
	OnModule(file finder.StubFile, err error)
	OnComplete(report *Report)
}

// Failure is one module that could not be checked.
type Failure struct {
	Module finder.ModulePath
	Path   string
	Err    error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s (%s): %v", f.Module, f.Path, f.Err)
}

// Report summarizes a run.
type Report struct {
	Checked  int
	Failures []Failure
	Duration time.Duration
}

// OK reports whether every checked module parsed.
func (r *Report) OK() bool { return len(r.Failures) == 0 }

// Options configures Run.
type Options struct {
	Filter   *Filter
	Reporter Reporter
}

// Run enumerates the parser's stub files and parses each one. Every
// enumerated module must resolve on its own, and the file it resolves to
// must parse without error. Cancellation is checked between modules;
// the partial report is returned with the context's error.
func Run(ctx context.Context, p *stubparser.Parser, opts Options) (*Report, error) {
	start := time.Now()
	files := opts.Filter.Select(p.Finder().AllStubFiles())

	report := &Report{}
	if opts.Reporter != nil {
		opts.Reporter.OnStart(len(files))
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(start)
			return report, err
		}

		path, err := checkModule(p, file)
		report.Checked++
		if err != nil {
			report.Failures = append(report.Failures, Failure{Module: file.Module, Path: path, Err: err})
		}
		if opts.Reporter != nil {
			opts.Reporter.OnModule(file, err)
		}
	}

	report.Duration = time.Since(start)
	if opts.Reporter != nil {
		opts.Reporter.OnComplete(report)
	}
	return report, nil
}

// checkModule parses the file that lookup picks for the module and returns
// its path. Enumeration walks the search roots before the corpus while lookup
// prefers the corpus, so an X-stubs package over a corpus module is
// enumerated under one path and resolved to another. Only a lookup miss is a
// failure.
func checkModule(p *stubparser.Parser, file finder.StubFile) (string, error) {
	path, ok := p.Finder().GetStubFile(file.Module)
	if !ok {
		return file.Path, errors.New("enumerated module does not resolve")
	}

	_, found, err := p.GetStubNames(file.Module)
	if err != nil {
		return path, err
	}
	if !found {
		return path, errors.New("module vanished while parsing")
	}
	return path, nil
}
