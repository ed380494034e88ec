package tabular

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/robotomize/cbarates/provider"
	"github.com/shopspring/decimal"
)

var bom = "\xef\xbb\xbf"

func mustDate(s string) time.Time {
	t, err := time.Parse(provider.DateLayout, s)
	if err != nil {
		panic(err)
	}

	return t
}

func mustRecord(date, currency, amount, rate, difference string) provider.Record {
	return provider.NewRecord(mustDate(date), currency, provider.Quote{
		Amount:     decimal.RequireFromString(amount),
		Rate:       decimal.RequireFromString(rate),
		Difference: decimal.RequireFromString(difference),
	})
}

func TestFileName(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		codes    []string
		expected string
	}{
		{name: "test_single_code", codes: []string{"USD"}, expected: "usd_2024-05-01_2025-05-01.csv"},
		{name: "test_many_codes", codes: []string{"USD", "EUR", "RUB"}, expected: "usd_eur_rub_2024-05-01_2025-05-01.csv"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := FileName(tc.codes, mustDate("2024-05-01"), mustDate("2025-05-01"))
			if diff := cmp.Diff(tc.expected, got); diff != "" {
				t.Errorf("mismatch (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestWrite(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		records  []provider.Record
		opts     []Option
		expected string
		err      error
	}{
		{
			name: "test_complete_and_empty",
			records: []provider.Record{
				mustRecord("2024-05-01", "USD", "1", "387.2", "-0.4"),
				provider.NewEmptyRecord(mustDate("2024-05-02"), "USD"),
			},
			expected: bom + "date;currency;amount;rate;difference\n" +
				"2024-05-01;USD;1;387,2;-0,4\n" +
				"2024-05-02;USD;;;\n",
		},
		{
			name:     "test_header_only",
			records:  nil,
			expected: bom + "date;currency;amount;rate;difference\n",
		},
		{
			name:     "test_selected_columns",
			records:  []provider.Record{mustRecord("2024-05-01", "JPY", "10", "28.15", "0")},
			opts:     []Option{WithColumns(ColumnRate, ColumnDate)},
			expected: bom + "rate;date\n28,15;2024-05-01\n",
		},
		{
			name:    "test_unknown_column",
			records: []provider.Record{mustRecord("2024-05-01", "USD", "1", "387.2", "-0.4")},
			opts:    []Option{WithColumns(ColumnDate, "iso")},
			err:     ErrUnknownColumn,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			buf := bytes.NewBuffer(nil)
			err := Write(buf, tc.records, tc.opts...)
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					diff := cmp.Diff(tc.err, err, cmpopts.EquateErrors())
					t.Errorf("mismatch (-want, +got):\n%s", diff)
				}

				return
			}

			if err != nil {
				t.Fatalf("write: %v", err)
			}

			if diff := cmp.Diff(tc.expected, buf.String()); diff != "" {
				t.Errorf("mismatch (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestRead(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected []provider.Record
		err      error
	}{
		{
			name: "test_with_bom",
			input: bom + "date;currency;amount;rate;difference\n" +
				"2024-05-01;USD;1;387,2;-0,4\n" +
				"2024-05-02;USD;;;\n",
			expected: []provider.Record{
				mustRecord("2024-05-01", "USD", "1", "387.2", "-0.4"),
				provider.NewEmptyRecord(mustDate("2024-05-02"), "USD"),
			},
		},
		{
			name:  "test_without_bom_and_optional_columns",
			input: "Date;Rate\n2024-05-01;387.5\n",
			expected: []provider.Record{
				{Date: "2024-05-01", Quote: &provider.Quote{
					Amount:     decimal.NewFromInt(1),
					Rate:       decimal.RequireFromString("387.5"),
					Difference: decimal.Zero,
				}},
			},
		},
		{
			name:  "test_unparsable_rate_is_empty",
			input: "date;currency;rate\n2024-05-01;USD;n/a\n",
			expected: []provider.Record{
				provider.NewEmptyRecord(mustDate("2024-05-01"), "USD"),
			},
		},
		{
			name:  "test_missing_rate_column",
			input: "date;currency;amount\n2024-05-01;USD;1\n",
			err:   ErrMissingColumn,
		},
		{
			name:  "test_empty_input",
			input: "",
			err:   ErrMissingColumn,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			records, err := Read(strings.NewReader(tc.input))
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					diff := cmp.Diff(tc.err, err, cmpopts.EquateErrors())
					t.Errorf("mismatch (-want, +got):\n%s", diff)
				}

				return
			}

			if err != nil {
				t.Fatalf("read: %v", err)
			}

			if diff := cmp.Diff(tc.expected, records); diff != "" {
				t.Errorf("mismatch (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestWriteRead(t *testing.T) {
	t.Parallel()

	records := []provider.Record{
		mustRecord("2024-05-01", "USD", "1", "387.2", "-0.4"),
		mustRecord("2024-05-01", "EUR", "1", "415.03", "1.25"),
		provider.NewEmptyRecord(mustDate("2024-05-02"), "USD"),
		provider.NewEmptyRecord(mustDate("2024-05-02"), "EUR"),
	}

	buf := bytes.NewBuffer(nil)
	if err := Write(buf, records); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if diff := cmp.Diff(records, got); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "data")
	name := FileName([]string{"USD"}, mustDate("2024-05-01"), mustDate("2024-05-02"))
	records := []provider.Record{
		mustRecord("2024-05-01", "USD", "1", "387.2", "-0.4"),
		provider.NewEmptyRecord(mustDate("2024-05-02"), "USD"),
	}

	fileName, err := WriteFile(dir, name, records)
	if err != nil {
		t.Fatalf("write file: %v", err)
	}

	if diff := cmp.Diff(filepath.Join(dir, "usd_2024-05-01_2024-05-02.csv"), fileName); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}

	b, err := os.ReadFile(fileName)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}

	if !bytes.HasPrefix(b, []byte(bom)) {
		t.Errorf("file does not start with BOM: %q", b[:3])
	}

	if _, err := WriteFile(dir, name, records); !errors.Is(err, ErrContentEqual) {
		t.Errorf("mismatch error, want %v, got %v", ErrContentEqual, err)
	}

	records = append(records, mustRecord("2024-05-03", "USD", "1", "388", "0.8"))
	if _, err := WriteFile(dir, name, records); err != nil {
		t.Fatalf("rewrite file: %v", err)
	}

	f, err := os.Open(fileName)
	if err != nil {
		t.Fatalf("open file: %v", err)
	}
	defer f.Close()

	got, err := Read(f)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if diff := cmp.Diff(records, got); diff != "" {
		t.Errorf("mismatch (-want, +got):\n%s", diff)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}

	if diff := cmp.Diff(1, len(entries)); diff != "" {
		t.Errorf("temp files left in dir (-want, +got):\n%s", diff)
	}
}
