package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robotomize/cbarates/internal/hashio"
	"github.com/robotomize/cbarates/internal/strutil"
	"github.com/robotomize/cbarates/provider"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	Separator        = ';'
	DecimalSeparator = ","
	Extension        = ".csv"
)

var (
	ErrUnknownColumn = errors.New("unknown column")
	ErrMissingColumn = errors.New("missing column")
	ErrContentEqual  = errors.New("content of the file is equal to the new version")
)

var defaultHashFunc = hashio.MD5()

type Column string

const (
	ColumnDate       Column = "date"
	ColumnCurrency   Column = "currency"
	ColumnAmount     Column = "amount"
	ColumnRate       Column = "rate"
	ColumnDifference Column = "difference"
)

// DefaultColumns is the layout of an exported table
var DefaultColumns = []Column{ColumnDate, ColumnCurrency, ColumnAmount, ColumnRate, ColumnDifference}

func (c Column) valid() bool {
	switch c {
	case ColumnDate, ColumnCurrency, ColumnAmount, ColumnRate, ColumnDifference:
		return true
	default:
		return false
	}
}

type Option func(*options)

type options struct {
	columns []Column
}

// WithColumns set the columns and their order
func WithColumns(columns ...Column) Option {
	return func(o *options) {
		o.columns = columns
	}
}

func newOptions(opts []Option) (options, error) {
	o := options{columns: DefaultColumns}
	for _, opt := range opts {
		opt(&o)
	}

	if len(o.columns) == 0 {
		return o, fmt.Errorf("%w: empty column list", ErrUnknownColumn)
	}

	for _, c := range o.columns {
		if !c.valid() {
			return o, fmt.Errorf("%w: %q", ErrUnknownColumn, c)
		}
	}

	return o, nil
}

// FileName returns the name of the exported table, e.g. usd_eur_2024-05-01_2025-05-01.csv
func FileName(codes []string, start, end time.Time) string {
	return fmt.Sprintf(
		"%s_%s_%s%s",
		strutil.JoinLower(codes, "_"), start.Format(provider.DateLayout), end.Format(provider.DateLayout), Extension,
	)
}

// Write writes the records as UTF-8 with BOM, fields separated by ';' and decimals by ','.
// The numeric cells of an empty record are blank
func Write(w io.Writer, records []provider.Record, opts ...Option) error {
	o, err := newOptions(opts)
	if err != nil {
		return err
	}

	bw := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())

	cw := csv.NewWriter(bw)
	cw.Comma = Separator

	header := make([]string, len(o.columns))
	for i, c := range o.columns {
		header[i] = string(c)
	}

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(o.columns))
	for i, rec := range records {
		for j, c := range o.columns {
			row[j] = cell(rec, c)
		}

		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	if err := bw.Close(); err != nil {
		return fmt.Errorf("close encoder: %w", err)
	}

	return nil
}

func cell(rec provider.Record, c Column) string {
	switch c {
	case ColumnDate:
		return rec.Date
	case ColumnCurrency:
		return rec.Currency
	}

	if rec.Empty() {
		return ""
	}

	switch c {
	case ColumnAmount:
		return formatDecimal(rec.Quote.Amount)
	case ColumnRate:
		return formatDecimal(rec.Quote.Rate)
	case ColumnDifference:
		return formatDecimal(rec.Quote.Difference)
	default:
		return ""
	}
}

func formatDecimal(d decimal.Decimal) string {
	return strings.Replace(d.String(), ".", DecimalSeparator, 1)
}

func parseDecimal(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.Replace(strings.TrimSpace(s), DecimalSeparator, ".", 1))
}

// WriteFile writes the table into dir/name, dir is created when missing. The file is replaced atomically.
// If the file already holds the same content it is left untouched and ErrContentEqual is returned
func WriteFile(dir, name string, records []provider.Record, opts ...Option) (string, error) {
	fileName := filepath.Join(dir, name)

	buf := bytes.NewBuffer(make([]byte, 0, 512))
	if err := Write(buf, records, opts...); err != nil {
		return fileName, fmt.Errorf("write table: %w", err)
	}

	oldHash, err := hashio.ReadFile(fileName, defaultHashFunc)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fileName, fmt.Errorf("hashing file: %w", err)
	}

	if len(oldHash) != 0 && bytes.Equal(oldHash, hashio.Sum(buf.Bytes(), defaultHashFunc)) {
		return fileName, fmt.Errorf("%w: %s", ErrContentEqual, fileName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fileName, fmt.Errorf("create dir: %w", err)
	}

	if err := flush(fileName, buf.Bytes()); err != nil {
		return fileName, fmt.Errorf("save table to a file: %w", err)
	}

	return fileName, nil
}

func flush(fileName string, b []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(fileName), "."+filepath.Base(fileName)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}

	if err := os.Rename(tmpName, fileName); err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	return nil
}
