package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/robotomize/cbarates/provider"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Read parses a table written by Write. The BOM is optional. Only the date and rate columns are required,
// a missing amount is read as 1 and a missing difference as 0. A row with a blank or unparsable rate is
// returned as an empty record
func Read(r io.Reader) ([]provider.Record, error) {
	cr := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	cr.Comma = Separator
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty table", ErrMissingColumn)
		}

		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[Column]int, len(header))
	for i, name := range header {
		c := Column(strings.ToLower(strings.TrimSpace(name)))
		if _, ok := index[c]; !ok {
			index[c] = i
		}
	}

	for _, required := range []Column{ColumnDate, ColumnRate} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	records := make([]provider.Record, 0)
	for {
		row, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}

			return nil, fmt.Errorf("read row: %w", err)
		}

		records = append(records, parseRow(row, index))
	}

	return records, nil
}

func parseRow(row []string, index map[Column]int) provider.Record {
	value := func(c Column) string {
		i, ok := index[c]
		if !ok {
			return ""
		}

		return strings.TrimSpace(row[i])
	}

	rec := provider.Record{
		Date:     value(ColumnDate),
		Currency: value(ColumnCurrency),
	}

	rate, err := parseDecimal(value(ColumnRate))
	if err != nil {
		return rec
	}

	amount, err := parseDecimal(value(ColumnAmount))
	if err != nil {
		amount = decimal.NewFromInt(1)
	}

	difference, err := parseDecimal(value(ColumnDifference))
	if err != nil {
		difference = decimal.Zero
	}

	rec.Quote = &provider.Quote{Amount: amount, Rate: rate, Difference: difference}

	return rec
}
