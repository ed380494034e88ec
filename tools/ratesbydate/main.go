package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/robotomize/cbarates"
	"github.com/robotomize/cbarates/internal/envconfig"
	"github.com/robotomize/cbarates/internal/logging"
	"github.com/robotomize/cbarates/internal/strutil"
	"github.com/robotomize/cbarates/provider"
	"github.com/robotomize/cbarates/provider/cba"
	"github.com/robotomize/cbarates/provider/httputil"
	"github.com/robotomize/cbarates/tabular"
)

const defaultFileName = "rates.csv"

var flagDate = flag.NewFlagSet("ratesbydate", flag.ContinueOnError)

var (
	day   = flagDate.String("date", "2025-05-01", "date of the quotation, YYYY-MM-DD")
	codes = flagDate.String("codes", "USD", "currency codes separated by commas")
	out   = flagDate.String("out", "", "output folder, CBA_OUTPUT_DIR by default")
	name  = flagDate.String("name", defaultFileName, "output file name")
)

func main() {
	cfg, err := envconfig.Load()
	if err != nil {
		logging.DefaultLogger().Fatalf("load config: %v", err)
	}

	logger, err := logging.NewLoggerFromLevel(os.Stderr, cfg.LogLevel)
	if err != nil {
		logging.DefaultLogger().Fatalf("logger: %v", err)
	}

	ctx := logging.WithLogger(context.Background(), logger)

	if err := flagDate.Parse(os.Args[1:]); err != nil {
		logger.Fatalf("flag parse: %v", err)
	}

	d, err := time.Parse(provider.DateLayout, *day)
	if err != nil {
		logger.Fatalf("use -date YYYY-MM-DD: %v", err)
	}

	u, err := cfg.EndpointURL()
	if err != nil {
		logger.Fatal(err)
	}

	dir := cfg.OutputDir
	if *out != "" {
		dir = *out
	}

	list := strutil.SplitCodes(*codes)
	if len(list) == 0 {
		logger.Fatal("use -codes USD,EUR")
	}

	fileName, err := realMain(ctx, u, d, list, cfg.RequestTimeout, dir, *name)
	if err != nil {
		logger.Fatal(err)
	}

	logger.Infof("file is ready %s", fileName)
}

// realMain requests the quotations of a single day and saves them. A code without quotation keeps an empty row
func realMain(
	ctx context.Context, endpoint *url.URL, d time.Time, codes []string, timeout time.Duration, dir, name string,
) (string, error) {
	source := cba.NewSource(httputil.DefaultHTTPClient(), cba.WithEndpoint(endpoint))
	collector := cbarates.New(source, cbarates.WithRequestTimeout(timeout), cbarates.WithAbortOnError())

	table, err := collector.Collect(ctx, cbarates.Range{Start: d, End: d, Codes: codes})
	if err != nil {
		return "", fmt.Errorf("collect: %w", err)
	}

	fileName, err := tabular.WriteFile(dir, name, table.Records)
	if err != nil {
		if !errors.Is(err, tabular.ErrContentEqual) {
			return fileName, fmt.Errorf("save table: %w", err)
		}

		logging.FromContext(ctx).Warnf("warning: %v", err)
	}

	return fileName, nil
}
