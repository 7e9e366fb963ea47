package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"assertscan/pkg/errors"
	"assertscan/pkg/progress"
	"assertscan/pkg/pypi"
)

// DefaultConcurrency bounds how many packages are in flight at once.
const DefaultConcurrency = 100

// Runner fans a package list out over a bounded worker pool.
type Runner struct {
	pipeline    *Pipeline
	tracker     progress.Tracker
	logger      *log.Logger
	concurrency int
}

// Summary aggregates the results of one run.
type Summary struct {
	Packages int
	Recorded int
	Skipped  int
	Failed   int
	Duration time.Duration
}

// NewRunner creates a runner draining packages through the given pipeline.
// If concurrency is not positive, DefaultConcurrency is used.
func NewRunner(p *Pipeline, tracker progress.Tracker, logger *log.Logger, concurrency int) *Runner {
	if tracker == nil {
		tracker = progress.Nop{}
	}
	if logger == nil {
		logger = log.Default()
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Runner{
		pipeline:    p,
		tracker:     tracker,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Run processes every named package and returns aggregate counts.
//
// A temporary run workspace is created and removed on all exits; each
// package works in its own subdirectory. Individual package failures are
// absorbed by the pipeline, so Run only fails on setup errors or when the
// context is cancelled.
func (r *Runner) Run(ctx context.Context, packages []string) (Summary, error) {
	start := time.Now()
	runID := uuid.NewString()[:8]

	workspace, err := os.MkdirTemp("", "assertscan-"+runID+"-*")
	if err != nil {
		return Summary{}, errors.Wrap(errors.ErrCodeInternal, err, "creating run workspace")
	}
	defer os.RemoveAll(workspace)

	r.logger.Info("starting run",
		"run", runID,
		"packages", len(packages),
		"concurrency", r.concurrency,
		"workspace", workspace)

	r.tracker.Start(len(packages))
	defer r.tracker.Finish()

	var recorded, skipped, failed atomic.Int64

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for _, pkg := range packages {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			dir := filepath.Join(workspace, pypi.NormalizePkgName(pkg))
			if err := os.MkdirAll(dir, 0755); err != nil {
				r.logger.Warn("workspace setup failed", "package", pkg, "err", err)
				failed.Add(1)
				r.tracker.Step()
				return nil
			}
			switch r.pipeline.Run(ctx, pkg, dir) {
			case OutcomeRecorded:
				recorded.Add(1)
			case OutcomeSkipped:
				skipped.Add(1)
			case OutcomeFailed:
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	summary := Summary{
		Packages: len(packages),
		Recorded: int(recorded.Load()),
		Skipped:  int(skipped.Load()),
		Failed:   int(failed.Load()),
		Duration: time.Since(start),
	}

	if err := ctx.Err(); err != nil {
		return summary, err
	}

	r.logger.Info("run complete",
		"run", runID,
		"packages", summary.Packages,
		"records", summary.Recorded,
		"skipped", summary.Skipped,
		"failures", summary.Failed,
		"duration", summary.Duration)
	return summary, nil
}
