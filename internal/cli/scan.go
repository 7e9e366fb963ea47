package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"assertscan/pkg/pipeline"
	"assertscan/pkg/pypi"
	"assertscan/pkg/scan"
	"assertscan/pkg/sink"
	"assertscan/pkg/source"
)

// defaultCacheTTL is how long registry responses stay cached.
const defaultCacheTTL = 24 * time.Hour

// scanOpts holds the command-line flags for the scan command.
type scanOpts struct {
	input       string // package list file
	output      string // NDJSON results file
	concurrency int    // maximum packages in flight
	refresh     bool   // bypass the registry cache
	noCache     bool   // disable response caching entirely
	redis       string // redis URL for the cache backend
	mongoURI    string // optional MongoDB sink
	config      string // TOML config file
	plain       bool   // force the non-TTY progress output
}

// scanCommand creates the scan command.
func (c *CLI) scanCommand() *cobra.Command {
	opts := scanOpts{
		output:      "results.ndjson",
		concurrency: pipeline.DefaultConcurrency,
	}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan PyPI packages for assert statements",
		Long: `Scan resolves each package in the input list to a source location
(repository URL or source distribution), downloads the source, and parses
every Python file for assert statements.

Results are written as newline-delimited JSON, one line per package:

  {"requests": ["assert x > 0", "assert isinstance(r, Response)"]}

Packages that fail to resolve, download or parse are logged and skipped;
they never abort the run.

Examples:
  assertscan scan --input top-pypi-packages.json
  assertscan scan --input top.json --output results.ndjson --concurrency 50
  assertscan scan --input top.json --redis redis://localhost:6379/0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyConfig(cmd, &opts); err != nil {
				return err
			}
			return c.runScan(cmd.Context(), &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "package list file (JSON with a \"rows\" array)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", opts.output, "output file for NDJSON results")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", opts.concurrency, "maximum packages processed in parallel")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass the registry response cache")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable registry response caching")
	cmd.Flags().StringVar(&opts.redis, "redis", "", "redis URL for the response cache (e.g. redis://localhost:6379/0)")
	cmd.Flags().StringVar(&opts.mongoURI, "mongo-uri", "", "also insert records into this MongoDB instance")
	cmd.Flags().StringVar(&opts.config, "config", "", "TOML config file (default assertscan.toml if present)")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "plain log output instead of the progress display")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

// applyConfig fills in options from the TOML config file for every flag
// the user didn't set explicitly.
func applyConfig(cmd *cobra.Command, opts *scanOpts) error {
	cfg, err := loadConfig(opts.config)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if !flags.Changed("input") && cfg.Input != "" {
		opts.input = cfg.Input
	}
	if !flags.Changed("output") && cfg.Output != "" {
		opts.output = cfg.Output
	}
	if !flags.Changed("concurrency") && cfg.Concurrency > 0 {
		opts.concurrency = cfg.Concurrency
	}
	if !flags.Changed("no-cache") {
		opts.noCache = cfg.NoCache
	}
	if !flags.Changed("redis") && cfg.Redis != "" {
		opts.redis = cfg.Redis
	}
	if !flags.Changed("mongo-uri") && cfg.MongoURI != "" {
		opts.mongoURI = cfg.MongoURI
	}
	return nil
}

// runScan wires the pipeline together and processes the package list.
func (c *CLI) runScan(ctx context.Context, opts *scanOpts) error {
	logger := loggerFromContext(ctx)

	packages, err := pipeline.LoadPackages(opts.input)
	if err != nil {
		return err
	}
	if len(packages) == 0 {
		printWarning("No packages in %s", opts.input)
		return nil
	}

	backend, err := newCache(ctx, opts.noCache, opts.redis)
	if err != nil {
		return err
	}
	defer backend.Close()

	out, err := buildSink(ctx, opts)
	if err != nil {
		return err
	}
	defer out.Close()

	tracker, stop := newTracker(logger, opts.plain)
	defer stop()

	client := pypi.NewClient(backend, defaultCacheTTL)
	p := pipeline.New(
		pypi.NewLocator(client, opts.refresh),
		source.NewAcquirer(),
		scan.NewScanner(logger),
		out, tracker, logger,
	)

	summary, err := pipeline.NewRunner(p, tracker, logger, opts.concurrency).Run(ctx, packages)
	if err != nil {
		return err
	}

	printSuccess("Scanned %d of %d packages", summary.Recorded, summary.Packages)
	if summary.Skipped > 0 {
		printDetail("%d without a source location", summary.Skipped)
	}
	if summary.Failed > 0 {
		printDetail("%d failed", summary.Failed)
	}
	printDetail("Results: %s", opts.output)
	return nil
}

// buildSink opens the NDJSON file sink, teeing to MongoDB when configured.
func buildSink(ctx context.Context, opts *scanOpts) (sink.Sink, error) {
	file, err := sink.NewFileSink(opts.output)
	if err != nil {
		return nil, err
	}
	if opts.mongoURI == "" {
		return file, nil
	}

	mongo, err := sink.NewMongoSink(ctx, opts.mongoURI)
	if err != nil {
		file.Close()
		return nil, err
	}
	return sink.NewMulti(file, mongo), nil
}
