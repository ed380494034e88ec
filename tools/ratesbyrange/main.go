package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/robotomize/cbarates"
	"github.com/robotomize/cbarates/internal/envconfig"
	"github.com/robotomize/cbarates/internal/logging"
	"github.com/robotomize/cbarates/internal/strutil"
	"github.com/robotomize/cbarates/provider"
	"github.com/robotomize/cbarates/provider/cba"
	"github.com/robotomize/cbarates/provider/httputil"
	"github.com/robotomize/cbarates/tabular"
	"golang.org/x/time/rate"
)

var errNoCodes = errors.New("no currency codes")

var flagRange = flag.NewFlagSet("ratesbyrange", flag.ContinueOnError)

var (
	start    = flagRange.String("start", "2024-05-01", "first date of the range, YYYY-MM-DD")
	end      = flagRange.String("end", "2025-05-01", "last date of the range, YYYY-MM-DD")
	codes    = flagRange.String("codes", "USD", "currency codes separated by commas")
	out      = flagRange.String("out", "", "output folder, CBA_OUTPUT_DIR by default")
	workers  = flagRange.Int("workers", 0, "number of concurrent requests, CBA_WORKERS by default")
	timeout  = flagRange.Duration("timeout", 0, "timeout of a single request, CBA_REQUEST_TIMEOUT by default")
	retryNum = flagRange.Uint64("retry", 0, "number of retries of a failed request")
	abort    = flagRange.Bool("abort", false, "stop on the first failed request")
	quiet    = flagRange.Bool("quiet", false, "do not print the progress markers")
)

type runOptions struct {
	endpoint *url.URL
	rng      cbarates.Range
	dir      string
	workers  int
	timeout  time.Duration
	retryNum uint64
	rps      float64
	abort    bool
	progress io.Writer
}

func main() {
	cfg, err := envconfig.Load()
	if err != nil {
		logging.DefaultLogger().Fatalf("load config: %v", err)
	}

	logger, err := logging.NewLoggerFromLevel(os.Stderr, cfg.LogLevel)
	if err != nil {
		logging.DefaultLogger().Fatalf("logger: %v", err)
	}

	ctx, cancel := signal.NotifyContext(logging.WithLogger(context.Background(), logger), os.Interrupt)
	defer cancel()

	if err := flagRange.Parse(os.Args[1:]); err != nil {
		logger.Fatalf("flag parse: %v", err)
	}

	opts, err := prepare(cfg)
	if err != nil {
		logger.Fatal(err)
	}

	if err := realMain(ctx, opts); err != nil {
		cancel()
		logger.Fatal(err)
	}
}

func prepare(cfg envconfig.Config) (runOptions, error) {
	opts := runOptions{
		dir:      cfg.OutputDir,
		workers:  cfg.Workers,
		timeout:  cfg.RequestTimeout,
		retryNum: *retryNum,
		rps:      cfg.RequestsPerSecond,
		abort:    *abort,
		progress: os.Stdout,
	}

	u, err := cfg.EndpointURL()
	if err != nil {
		return opts, err
	}
	opts.endpoint = u

	first, err := time.Parse(provider.DateLayout, *start)
	if err != nil {
		return opts, fmt.Errorf("use -start YYYY-MM-DD: %w", err)
	}

	last, err := time.Parse(provider.DateLayout, *end)
	if err != nil {
		return opts, fmt.Errorf("use -end YYYY-MM-DD: %w", err)
	}

	opts.rng = cbarates.Range{Start: first, End: last, Codes: strutil.SplitCodes(*codes)}

	if *out != "" {
		opts.dir = *out
	}

	if *workers > 0 {
		opts.workers = *workers
	}

	if *timeout > 0 {
		opts.timeout = *timeout
	}

	if *quiet {
		opts.progress = nil
	}

	return opts, nil
}

// realMain collects the range and saves the table. The table is saved even when the collection was
// aborted, the error is returned afterwards
func realMain(ctx context.Context, opts runOptions) error {
	logger := logging.FromContext(ctx)

	if len(opts.rng.Codes) == 0 {
		return fmt.Errorf("use -codes USD,EUR: %w", errNoCodes)
	}

	if err := opts.rng.Validate(); err != nil {
		return fmt.Errorf("use -codes USD,EUR: %w", err)
	}

	source := cba.NewSource(httputil.DefaultHTTPClient(), cba.WithEndpoint(opts.endpoint))
	if unknown := unknownCodes(opts.rng.Codes, source.GetCodes()); len(unknown) > 0 {
		logger.Warnf("codes %v are not published by the bank, their records will be empty", unknown)
	}

	collectorOpts := []cbarates.Option{
		cbarates.WithWorkers(opts.workers),
		cbarates.WithRequestTimeout(opts.timeout),
		cbarates.WithRetryNum(opts.retryNum),
	}

	if opts.abort {
		collectorOpts = append(collectorOpts, cbarates.WithAbortOnError())
	}

	if opts.rps > 0 {
		collectorOpts = append(collectorOpts, cbarates.WithRateLimit(rate.Limit(opts.rps), opts.workers))
	}

	if opts.progress != nil {
		collectorOpts = append(collectorOpts, cbarates.WithProgress(cbarates.ProgressWriter(opts.progress)))
	}

	table, collectErr := cbarates.New(source, collectorOpts...).Collect(ctx, opts.rng)

	fileName, err := tabular.WriteFile(opts.dir, tabular.FileName(opts.rng.Codes, opts.rng.Start, opts.rng.End), table.Records)
	if err != nil {
		if !errors.Is(err, tabular.ErrContentEqual) {
			return fmt.Errorf("save table: %w", err)
		}

		logger.Warnf("warning: %v", err)
	}

	logger.WithField("file", fileName).Infof("file is ready: %d records, %d with quotation", table.Len(), table.Complete())

	if collectErr != nil {
		return collectErr
	}

	if err := table.Err(); err != nil {
		return fmt.Errorf("%d requests failed: %w", len(table.Failures), err)
	}

	return nil
}

func unknownCodes(codes, published []string) []string {
	known := make(map[string]struct{}, len(published))
	for _, code := range published {
		known[code] = struct{}{}
	}

	unknown := make([]string, 0)
	for _, code := range codes {
		if _, ok := known[code]; !ok {
			unknown = append(unknown, code)
		}
	}

	return unknown
}
