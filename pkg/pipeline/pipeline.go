// Package pipeline provides the core scanning pipeline for Assertscan.
//
// The pipeline consists of three stages per package:
//
//  1. Locate: resolve the package name to a source location via registry
//     metadata (repository URL or source distribution archive)
//  2. Acquire: materialize the source tree on disk (shallow clone or
//     download + extract)
//  3. Scan: parse every Python file and collect assert statements
//
// A Runner fans packages out over a bounded worker pool and owns the run
// workspace and output sink; a Pipeline handles one package at a time.
// Failures are contained to the package they occur in: the pipeline logs
// the cause, classifies the outcome and moves on.
package pipeline

import (
	"context"

	"github.com/charmbracelet/log"

	"assertscan/pkg/errors"
	"assertscan/pkg/progress"
	"assertscan/pkg/sink"
	"assertscan/pkg/source"
)

// Locator resolves a package name to a source location.
type Locator interface {
	Locate(ctx context.Context, pkg string) (source.Location, error)
}

// Acquirer materializes a source location under a workspace directory and
// returns the directory holding the source tree.
type Acquirer interface {
	Acquire(ctx context.Context, loc source.Location, workspace string) (string, error)
}

// Scanner extracts assert statements from a source tree.
type Scanner interface {
	Count(dir string) (int, error)
	Scan(ctx context.Context, dir string, onFile func()) ([]string, error)
}

// Outcome classifies how a package's run ended.
type Outcome int

const (
	// OutcomeRecorded means the package was scanned and a record written.
	OutcomeRecorded Outcome = iota
	// OutcomeSkipped means no source location could be determined.
	OutcomeSkipped
	// OutcomeFailed means a stage failed and no record was written.
	OutcomeFailed
)

// Pipeline runs the locate → acquire → scan sequence for single packages.
//
// The Pipeline is stateless; multiple goroutines can safely process
// different packages through the same Pipeline.
type Pipeline struct {
	locator  Locator
	acquirer Acquirer
	scanner  Scanner
	sink     sink.Sink
	tracker  progress.Tracker
	logger   *log.Logger
}

// New assembles a pipeline from its stages.
// If tracker is nil, progress events are discarded.
// If logger is nil, the default logger is used.
func New(locator Locator, acquirer Acquirer, scanner Scanner, out sink.Sink, tracker progress.Tracker, logger *log.Logger) *Pipeline {
	if tracker == nil {
		tracker = progress.Nop{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Pipeline{
		locator:  locator,
		acquirer: acquirer,
		scanner:  scanner,
		sink:     out,
		tracker:  tracker,
		logger:   logger,
	}
}

// Run processes one package inside its private workspace directory.
//
// Errors never escape: every failure is logged with the package name and
// classified in the returned Outcome. The overall progress counter
// advances exactly once, on every exit path.
func (p *Pipeline) Run(ctx context.Context, pkg, workspace string) Outcome {
	defer p.tracker.Step()

	loc, err := p.locator.Locate(ctx, pkg)
	if err != nil {
		p.logger.Warn("resolution failed", "package", pkg, "err", errors.UserMessage(err))
		return OutcomeFailed
	}
	if loc.IsNone() {
		p.logger.Info("no source location", "package", pkg)
		return OutcomeSkipped
	}

	dir, err := p.acquirer.Acquire(ctx, loc, workspace)
	if err != nil {
		p.logger.Warn("acquisition failed", "package", pkg, "source", loc.URL, "err", errors.UserMessage(err))
		return OutcomeFailed
	}

	total, err := p.scanner.Count(dir)
	if err != nil {
		p.logger.Warn("source walk failed", "package", pkg, "err", errors.UserMessage(err))
		return OutcomeFailed
	}

	task := p.tracker.Add(pkg, total)
	asserts, err := p.scanner.Scan(ctx, dir, func() {
		p.tracker.Advance(task, 1)
	})
	p.tracker.Remove(task)
	if err != nil {
		p.logger.Warn("scan failed", "package", pkg, "err", errors.UserMessage(err))
		return OutcomeFailed
	}

	rec := sink.Record{Package: pkg, Assertions: asserts}
	if err := p.sink.Append(ctx, rec); err != nil {
		p.logger.Warn("record write failed", "package", pkg, "err", errors.UserMessage(err))
		return OutcomeFailed
	}

	p.logger.Debug("package recorded", "package", pkg, "assertions", len(asserts))
	return OutcomeRecorded
}
