package cbarates

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/robotomize/cbarates/internal/logging"
	"github.com/robotomize/cbarates/provider"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var ErrInvalidRange = errors.New("invalid range")

const (
	DefaultRequestTimeout = 300 * time.Second
	DefaultWorkers        = 1
	DefaultRetryNum       = 0
	DefaultRetryDuration  = 5 * time.Second
)

type Option func(*Collector)

type Options struct {
	Workers        int
	RetryNum       uint64
	RetryDuration  time.Duration
	RequestTimeout time.Duration
	AbortOnError   bool
}

// WithWorkers set the number of pairs fetched at the same time. One worker keeps a single outstanding request
func WithWorkers(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.opts.Workers = n
		}
	}
}

// WithRetryNum set number of repeated requests for transport errors. Missing quotations are never retried
func WithRetryNum(n uint64) Option {
	return func(c *Collector) {
		c.opts.RetryNum = n
	}
}

// WithRetryDuration constant pause between retries
func WithRetryDuration(t time.Duration) Option {
	return func(c *Collector) {
		if t > 0 {
			c.opts.RetryDuration = t
		}
	}
}

// WithRequestTimeout set a timeout for every request of a pair
func WithRequestTimeout(t time.Duration) Option {
	return func(c *Collector) {
		if t > 0 {
			c.opts.RequestTimeout = t
		}
	}
}

// WithAbortOnError stops the collection on the first transport error. Collect returns the records collected
// before the failed pair together with the error
func WithAbortOnError() Option {
	return func(c *Collector) {
		c.opts.AbortOnError = true
	}
}

// WithRateLimit limits the requests to the source
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Collector) {
		if burst < 1 {
			burst = 1
		}

		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithProgress set the function called once for every processed pair
func WithProgress(f ProgressFunc) Option {
	return func(c *Collector) {
		c.progress = f
	}
}

// New return collector of the source
func New(source provider.Source, opts ...Option) *Collector {
	c := &Collector{
		source: source,
		opts: Options{
			Workers:        DefaultWorkers,
			RetryNum:       DefaultRetryNum,
			RetryDuration:  DefaultRetryDuration,
			RequestTimeout: DefaultRequestTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type Collector struct {
	opts Options

	source   provider.Source
	limiter  *rate.Limiter
	progress ProgressFunc
}

// Range is a closed interval of calendar days and the currency codes to query for each day
type Range struct {
	Start time.Time
	End   time.Time
	Codes []string
}

// Validate rejects blank codes. A range without codes is valid and yields an empty table
func (r Range) Validate() error {
	for i, code := range r.Codes {
		if code == "" {
			return fmt.Errorf("%w: blank currency code at %d", ErrInvalidRange, i)
		}
	}

	return nil
}

// Days returns every calendar day from Start to End inclusive. It is empty when Start is after End
func (r Range) Days() []time.Time {
	start, end := provider.Day(r.Start), provider.Day(r.End)

	days := make([]time.Time, 0)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}

	return days
}

// Pairs returns the queries in date-major order, the codes keep the order of the range
func (r Range) Pairs() []Pair {
	days := r.Days()
	pairs := make([]Pair, 0, len(days)*len(r.Codes))
	for _, d := range days {
		for _, code := range r.Codes {
			pairs = append(pairs, Pair{Date: d, Code: code})
		}
	}

	return pairs
}

// Pair is a single query of the range
type Pair struct {
	Date time.Time
	Code string
}

func (p Pair) String() string {
	return p.Date.Format(provider.DateLayout) + " " + p.Code
}

// PairError is a transport error of a single pair
type PairError struct {
	Pair Pair
	Err  error
}

func (e *PairError) Error() string {
	return fmt.Sprintf("pair %s: %v", e.Pair, e.Err)
}

func (e *PairError) Unwrap() error {
	return e.Err
}

// Table is the result of a collection. A pair that failed keeps an empty record in its place
type Table struct {
	Records  []provider.Record
	Failures []PairError
}

func (t Table) Len() int {
	return len(t.Records)
}

// Complete returns the number of records with a quotation
func (t Table) Complete() int {
	var n int
	for _, r := range t.Records {
		if !r.Empty() {
			n++
		}
	}

	return n
}

// Err joins the errors of the failed pairs, nil if every pair was fetched
func (t Table) Err() error {
	var merr *multierror.Error
	for i := range t.Failures {
		merr = multierror.Append(merr, &t.Failures[i])
	}

	return merr.ErrorOrNil()
}

type Progress struct {
	Pair   Pair
	Record provider.Record
	Err    error
	Done   int
	Total  int
}

// Marker returns "+" for a pair with quotation and "-" otherwise
func (p Progress) Marker() string {
	if p.Err == nil && !p.Record.Empty() {
		return "+"
	}

	return "-"
}

type ProgressFunc func(Progress)

// ProgressWriter prints a marker line for every pair, e.g. "+ 2024-05-01 USD"
func ProgressWriter(w io.Writer) ProgressFunc {
	return func(p Progress) {
		_, _ = fmt.Fprintf(w, "%s %s\n", p.Marker(), p.Pair)
	}
}

// Collect queries the source once for every pair of the range. Records are placed in date-major order
// whatever the number of workers. Transport errors of single pairs are kept in Table.Failures and the
// collection goes on, unless WithAbortOnError is set. On abort or cancellation the table holds the records
// collected before the first pair without a result
func (c *Collector) Collect(ctx context.Context, r Range) (Table, error) {
	if err := r.Validate(); err != nil {
		return Table{}, err
	}

	pairs := r.Pairs()
	table := Table{Records: make([]provider.Record, len(pairs))}
	if len(pairs) == 0 {
		return table, nil
	}

	var (
		mtx      sync.Mutex
		finished int
	)

	done := make([]bool, len(pairs))
	failures := make([]*PairError, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)

	for i, pair := range pairs {
		if gctx.Err() != nil {
			break
		}

		i, pair := i, pair
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}

			rec, err := c.fetch(gctx, pair)
			if err != nil && gctx.Err() != nil && errors.Is(err, context.Canceled) {
				// interrupted by an abort or by the caller, the pair has no result
				return nil
			}

			if err != nil {
				rec = provider.NewEmptyRecord(pair.Date, pair.Code)
			}

			mtx.Lock()
			defer mtx.Unlock()

			table.Records[i] = rec
			done[i] = true
			finished++

			if err != nil {
				failures[i] = &PairError{Pair: pair, Err: err}
			}

			c.report(gctx, Progress{Pair: pair, Record: rec, Err: err, Done: finished, Total: len(pairs)})

			if err != nil && c.opts.AbortOnError {
				return failures[i]
			}

			return nil
		})
	}

	abortErr := g.Wait()

	for _, f := range failures {
		if f != nil {
			table.Failures = append(table.Failures, *f)
		}
	}

	switch {
	case abortErr != nil:
		table.Records = table.Records[:prefix(done, failures)]
		return table, fmt.Errorf("collect aborted: %w", abortErr)
	case ctx.Err() != nil:
		table.Records = table.Records[:prefix(done, failures)]
		return table, fmt.Errorf("collect cancelled: %w", ctx.Err())
	}

	return table, nil
}

// prefix returns the length of the leading run of pairs fetched without error
func prefix(done []bool, failures []*PairError) int {
	for i := range done {
		if !done[i] || failures[i] != nil {
			return i
		}
	}

	return len(done)
}

func (c *Collector) fetch(ctx context.Context, pair Pair) (provider.Record, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return provider.Record{}, fmt.Errorf("rate limiter wait: %w", err)
		}
	}

	b, err := retry.NewConstant(c.opts.RetryDuration)
	if err != nil {
		return provider.Record{}, fmt.Errorf("retry backoff: %w", err)
	}

	b = retry.WithMaxRetries(c.opts.RetryNum, b)

	var (
		rec     provider.Record
		lastErr error
	)

	if err := retry.Do(ctx, b, func(ctx context.Context) error {
		reqCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
		defer cancel()

		r, err := c.source.FetchByDate(reqCtx, pair.Date, pair.Code)
		if err != nil {
			lastErr = fmt.Errorf("fetch by date: %w", err)
			return retry.RetryableError(lastErr)
		}

		rec = r

		return nil
	}); err != nil {
		// retry keeps its own wrapper around the last attempt
		switch {
		case ctx.Err() != nil:
			return provider.Record{}, fmt.Errorf("fetch by date: %w", ctx.Err())
		case lastErr != nil:
			return provider.Record{}, lastErr
		default:
			return provider.Record{}, err
		}
	}

	return rec, nil
}

func (c *Collector) report(ctx context.Context, p Progress) {
	if c.progress != nil {
		c.progress(p)
		return
	}

	logger := logging.FromContext(ctx).WithField("done", fmt.Sprintf("%d/%d", p.Done, p.Total))
	if p.Err != nil {
		logger.WithError(p.Err).Warnf("%s %s", p.Marker(), p.Pair)
		return
	}

	logger.Debugf("%s %s", p.Marker(), p.Pair)
}
