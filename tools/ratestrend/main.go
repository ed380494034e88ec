package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/robotomize/cbarates/internal/envconfig"
	"github.com/robotomize/cbarates/internal/logging"
	"github.com/robotomize/cbarates/internal/strutil"
	"github.com/robotomize/cbarates/tabular"
	"github.com/robotomize/cbarates/trend"
)

var flagTrend = flag.NewFlagSet("ratestrend", flag.ContinueOnError)

var (
	in     = flagTrend.String("in", "", "path to a table saved by ratesbyrange")
	code   = flagTrend.String("code", "USD", "currency code to draw, empty for every row of the table")
	window = flagTrend.Int("window", trend.DefaultWindow, "moving average window, rows")
	out    = flagTrend.String("out", "", "path to the png or svg file, {CODE}_trend.png by default")
	title  = flagTrend.String("title", "", "chart title")
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

	if err := flagTrend.Parse(os.Args[1:]); err != nil {
		logger.Fatalf("flag parse: %v", err)
	}

	if *in == "" {
		logger.Fatal("use -in <path> path to the table with rates")
	}

	c := strutil.NormalizeCode(*code)
	target := *out
	if target == "" {
		target = outputName(c)
	}

	if err := realMain(ctx, *in, target, c, *window, *title); err != nil {
		logger.Fatal(err)
	}

	logger.Infof("chart is ready %s", target)
}

func outputName(code string) string {
	if code == "" {
		return "rates_trend.png"
	}

	return code + "_trend.png"
}

func realMain(ctx context.Context, in, target, code string, window int, title string) error {
	format, err := trend.FormatFromPath(target)
	if err != nil {
		return fmt.Errorf("use -out with .png or .svg: %w", err)
	}

	f, err := os.Open(in)
	if err != nil {
		return fmt.Errorf("open table: %w", err)
	}
	defer f.Close()

	records, err := tabular.Read(f)
	if err != nil {
		return fmt.Errorf("read table: %w", err)
	}

	points, err := trend.Series(records, code, window)
	if err != nil {
		return fmt.Errorf("series: %w", err)
	}

	logging.FromContext(ctx).Debugf("%d of %d rows have quotation", len(points), len(records))

	chart := trend.Chart{Title: title, Code: code, Window: window, Points: points}
	buf := bytes.NewBuffer(make([]byte, 0, 64*1024))
	if err := trend.Render(buf, chart, format); err != nil {
		return fmt.Errorf("render: %w", err)
	}

	if dir := filepath.Dir(target); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir: %w", err)
		}
	}

	if err := os.WriteFile(target, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}

	return nil
}
